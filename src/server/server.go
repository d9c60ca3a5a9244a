package server

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"meridiandb/src/auth"
	"meridiandb/src/directors"
	"meridiandb/src/engine"
	"meridiandb/src/helpers"
	"meridiandb/src/schema"
	"meridiandb/src/settings"
)

// Server represents the main TCP server for MeridianDB
type Server struct {
	Host              string
	Port              int
	Listener          net.Listener
	AuthEnabled       bool
	Users             *auth.UserStore
	ActiveConnections map[string]*Connection
	mu                sync.Mutex
	Running           bool
	collectionService *directors.CollectionService
	journal           *engine.FileJournal
	logger            *zap.SugaredLogger
}

// Connection represents an active client connection
type Connection struct {
	ID         string
	Conn       net.Conn
	Reader     *bufio.Reader
	Writer     *bufio.Writer
	User       string
	Authorized bool
	LastActive time.Time
	Logger     *zap.SugaredLogger
}

// InitServer initializes the MeridianDB server
func InitServer(config *settings.Arguments) (*Server, error) {
	var logger *zap.Logger
	var err error

	if config.Debug {
		// Development configuration with more verbose output
		z := zap.NewDevelopmentConfig()
		z.OutputPaths = []string{"stdout"}
		logger, err = z.Build()
	} else {
		// Production configuration
		logger, err = zap.NewProduction()
	}

	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	// Create a sugared logger for easier API
	sugar := logger.Sugar()

	// Replace standard log with zap
	zap.ReplaceGlobals(logger)

	// Create the validation stack
	validators := schema.NewValidatorRegistry(sugar)
	registry := schema.NewSchemaRegistry(sugar)
	validationEngine := schema.NewValidationEngine(validators, sugar)

	// Create the storage engine
	documentFactory := engine.NewDocumentFactory()
	storeValidator := schema.NewStoreValidator(registry, validationEngine)
	storageEngine := engine.NewStorageEngine(storeValidator, documentFactory, sugar)

	// Attach the change journal
	journal, err := engine.NewFileJournal(config.JournalFile, config.MaxJournalFileSize)
	if err != nil {
		return nil, fmt.Errorf("failed to open change journal: %w", err)
	}
	storageEngine.SetChangeSink(journal)

	// Create service
	collectionService := directors.NewCollectionService(storageEngine, registry, validators, sugar, config)

	// Initialize the singleton
	directors.InitServiceManager(collectionService, sugar)

	server := &Server{
		Host:              config.Host,
		Port:              config.Port,
		AuthEnabled:       config.AuthEnabled,
		Users:             auth.NewUserStore(),
		ActiveConnections: make(map[string]*Connection),
		collectionService: collectionService,
		journal:           journal,
		logger:            sugar,
	}

	return server, nil
}

// AddUser adds a user with the given password
func (s *Server) AddUser(username, password string) error {
	return s.Users.AddUser(username, password)
}

// Start begins listening for incoming connections
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.Host, s.Port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("error starting server on %s: %w", addr, err)
	}

	s.Listener = listener
	s.Running = true

	s.logger.Infof("MeridianDB server listening on %s", addr)

	go s.acceptConnections()

	return nil
}

// Stop gracefully shuts down the server
func (s *Server) Stop() error {
	s.Running = false

	// Close all active connections
	s.mu.Lock()
	for id, conn := range s.ActiveConnections {
		conn.Conn.Close()
		delete(s.ActiveConnections, id)
	}
	s.mu.Unlock()

	// Close the listener
	var listenerErr error
	if s.Listener != nil {
		listenerErr = s.Listener.Close()
	}

	wg.Wait()

	// Close the change journal
	if s.journal != nil {
		if err := s.journal.Close(); err != nil {
			s.logger.Warnf("Error closing change journal: %v", err)
		}
	}

	// Flush any buffered log entries
	s.logger.Info("Server shutdown complete")
	s.logger.Sync()

	return listenerErr
}

var wg sync.WaitGroup

// acceptConnections handles incoming connection requests
func (s *Server) acceptConnections() {
	s.logger.Infow("Server started accepting connections",
		"host", s.Host,
		"port", s.Port)

	for s.Running {
		conn, err := s.Listener.Accept()
		if err != nil {
			if s.Running { // Only log if we're still supposed to be running
				s.logger.Errorw("Error accepting connection", "error", err)
			}
			continue
		}
		wg.Add(1)

		s.logger.Infow("New connection received",
			"remoteAddr", conn.RemoteAddr().String())

		go func(c net.Conn) {
			defer wg.Done()
			s.handleConnection(c)
		}(conn)
	}
}

// handleConnection processes a single client connection
func (s *Server) handleConnection(conn net.Conn) {
	connID := generateConnectionID()
	reader := bufio.NewReader(conn)
	writer := bufio.NewWriter(conn)

	connLogger := s.logger
	if settings.GetSettings().Debug {
		connLogger = connLogger.With(
			"connID", connID,
			"remoteAddr", conn.RemoteAddr().String())
	}

	connection := &Connection{
		ID:         connID,
		Conn:       conn,
		Reader:     reader,
		Writer:     writer,
		Authorized: !s.AuthEnabled, // If auth is disabled, connection is automatically authorized
		LastActive: time.Now(),
		Logger:     connLogger,
	}

	// Register the connection
	s.mu.Lock()
	s.ActiveConnections[connID] = connection
	s.mu.Unlock()

	// Ensure connection is removed when this function exits
	defer func() {
		conn.Close()
		s.mu.Lock()
		delete(s.ActiveConnections, connID)
		s.mu.Unlock()
		connLogger.Infof("Connection closed: %s", connID)
		connLogger.Sync()
	}()

	// Send welcome message
	writer.WriteString("MeridianDB ready\n")
	writer.Flush()

	scanner := bufio.NewScanner(reader)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		connection.LastActive = time.Now()

		if strings.EqualFold(line, "QUIT") {
			sendSuccess(writer, "Goodbye")
			return
		}

		result, err := s.processCommand(connection, line)
		if err != nil {
			sendError(writer, err.Error())
		} else {
			sendResult(writer, result, connLogger)
		}
	}

	if err := scanner.Err(); err != nil {
		connLogger.Errorw("Error reading from client", "error", err)
	}
}

// processCommand dispatches one client line. The grammar is
// VERB <collection> [args...], with JSON payloads for values.
func (s *Server) processCommand(conn *Connection, command string) (interface{}, error) {
	parts := strings.Fields(command)
	if len(parts) == 0 {
		return nil, fmt.Errorf("empty command")
	}
	verb := strings.ToUpper(parts[0])

	if verb == "AUTH" {
		if len(parts) != 3 {
			return nil, fmt.Errorf("usage: AUTH <username> <password>")
		}
		if err := s.Users.Authenticate(parts[1], parts[2]); err != nil {
			return nil, fmt.Errorf("authentication failed")
		}
		conn.Authorized = true
		conn.User = parts[1]
		conn.Logger.Infow("Client authenticated", "user", conn.User)
		return "Authentication successful", nil
	}

	if !conn.Authorized {
		return nil, fmt.Errorf("not authenticated")
	}

	service := directors.GetServiceManager().CollectionService
	if service == nil {
		service = s.collectionService
	}

	switch verb {
	case "INSERT":
		if len(parts) < 3 {
			return nil, fmt.Errorf("usage: INSERT <collection> <json>")
		}
		value, err := parseValue(strings.Join(parts[2:], " "))
		if err != nil {
			return nil, err
		}
		doc, err := service.CreateDocument(parts[1], value)
		if err != nil {
			return nil, err
		}
		return docToNative(doc), nil

	case "GET":
		if len(parts) != 3 {
			return nil, fmt.Errorf("usage: GET <collection> <document-id>")
		}
		doc, err := service.GetDocument(parts[1], parts[2])
		if err != nil {
			return nil, err
		}
		return docToNative(doc), nil

	case "REPLACE":
		if len(parts) < 4 {
			return nil, fmt.Errorf("usage: REPLACE <collection> <document-id> <json>")
		}
		value, err := parseValue(strings.Join(parts[3:], " "))
		if err != nil {
			return nil, err
		}
		doc, err := service.UpdateDocument(parts[1], parts[2], func(engine.Value) (engine.Value, error) {
			return value, nil
		})
		if err != nil {
			return nil, err
		}
		return docToNative(doc), nil

	case "DELETE":
		if len(parts) != 3 {
			return nil, fmt.Errorf("usage: DELETE <collection> <document-id>")
		}
		if err := service.DeleteDocument(parts[1], parts[2]); err != nil {
			return nil, err
		}
		return "Deleted", nil

	case "FIND":
		if len(parts) < 4 {
			return nil, fmt.Errorf("usage: FIND <collection> <column> <json-value>")
		}
		value, err := parseValue(strings.Join(parts[3:], " "))
		if err != nil {
			return nil, err
		}
		docs, err := service.FindEqual(parts[1], parts[2], value)
		if err != nil {
			return nil, err
		}
		return docsToNative(docs), nil

	case "RANGE":
		if len(parts) != 5 {
			return nil, fmt.Errorf("usage: RANGE <collection> <column> <lower-json> <upper-json>")
		}
		lower, err := parseValue(parts[3])
		if err != nil {
			return nil, err
		}
		upper, err := parseValue(parts[4])
		if err != nil {
			return nil, err
		}
		docs, err := service.FindRange(parts[1], parts[2], &lower, &upper, true, true)
		if err != nil {
			return nil, err
		}
		return docsToNative(docs), nil

	case "LIST":
		if len(parts) != 2 {
			return nil, fmt.Errorf("usage: LIST <collection>")
		}
		docs, err := service.ListDocuments(parts[1])
		if err != nil {
			return nil, err
		}
		return docsToNative(docs), nil

	case "INDEX":
		// INDEX <collection> <column> <hash|ordered> [unique]
		if len(parts) < 4 {
			return nil, fmt.Errorf("usage: INDEX <collection> <column> <hash|ordered> [unique]")
		}
		unique := len(parts) > 4 && strings.EqualFold(parts[4], "unique")
		var err error
		switch strings.ToLower(parts[3]) {
		case "hash":
			err = service.CreateHashIndex(parts[1], parts[2], unique)
		case "ordered":
			err = service.CreateOrderedIndex(parts[1], parts[2], unique)
		default:
			return nil, fmt.Errorf("unknown index kind %q", parts[3])
		}
		if err != nil {
			return nil, err
		}
		return "Index created", nil

	case "EXPORT":
		if len(parts) != 3 {
			return nil, fmt.Errorf("usage: EXPORT <collection> <file>")
		}
		if err := service.ExportCollection(parts[1], parts[2]); err != nil {
			return nil, err
		}
		return "Exported", nil

	case "IMPORT":
		if len(parts) != 2 {
			return nil, fmt.Errorf("usage: IMPORT <file>")
		}
		collection, results, err := service.ImportCollection(parts[1])
		if err != nil && len(results) == 0 {
			return nil, err
		}
		loaded := 0
		for _, r := range results {
			if r.Err == nil {
				loaded++
			}
		}
		return map[string]interface{}{
			"collection": collection,
			"loaded":     loaded,
			"failed":     len(results) - loaded,
		}, nil

	case "STATS":
		stats := service.RegistryStats()
		return map[string]interface{}{
			"collections":        service.Collections(),
			"schemas":            stats.TotalCollections,
			"validation_enabled": stats.EnabledCollections,
		}, nil

	default:
		return nil, fmt.Errorf("unknown command %q", verb)
	}
}

// parseValue decodes a JSON payload into an engine value. A payload
// that is not valid JSON falls back to a plain string, with one layer
// of quotes stripped.
func parseValue(payload string) (engine.Value, error) {
	var native interface{}
	if err := json.Unmarshal([]byte(payload), &native); err != nil {
		return engine.String(helpers.StripQuotes(payload)), nil
	}
	value, err := engine.FromNative(native)
	if err != nil {
		return engine.Null(), fmt.Errorf("invalid value: %w", err)
	}
	return value, nil
}

func docToNative(doc *engine.Document) map[string]interface{} {
	return map[string]interface{}{
		"document_id": doc.DocumentID,
		"value":       doc.Value.ToNative(),
		"created_at":  doc.Metadata.CreatedAt.Format(time.RFC3339Nano),
		"updated_at":  doc.Metadata.UpdatedAt.Format(time.RFC3339Nano),
		"version":     doc.Metadata.Version,
	}
}

func docsToNative(docs []*engine.Document) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(docs))
	for _, doc := range docs {
		out = append(out, docToNative(doc))
	}
	return out
}

// Helper functions
func sendError(writer *bufio.Writer, message string) {
	response := map[string]interface{}{
		"status":  "error",
		"message": message,
	}
	jsonResponse, _ := json.Marshal(response)
	writer.WriteString(string(jsonResponse) + "\n")
	writer.Flush()
}

func sendSuccess(writer *bufio.Writer, message string) {
	response := map[string]interface{}{
		"status":  "success",
		"message": message,
	}
	jsonResponse, _ := json.Marshal(response)
	writer.WriteString(string(jsonResponse) + "\n")
	writer.Flush()
}

func sendResult(writer *bufio.Writer, result interface{}, logger *zap.SugaredLogger) {
	switch typedResult := result.(type) {
	case *string:
		if typedResult != nil {
			writer.WriteString(*typedResult + "\n")
			writer.Flush()
			return
		}
	case string:
		writer.WriteString(typedResult + "\n")
		writer.Flush()
		return
	}

	data, _ := json.Marshal(result)
	logger.Debugf("Sending result: %s", data)
	writer.WriteString(string(data) + "\n")
	writer.Flush()
}

func generateConnectionID() string {
	now := time.Now().UnixNano()
	return fmt.Sprintf("conn_%x", now)
}
