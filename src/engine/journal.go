package engine

// This file contains the change journal for the storage engine.
// Every committed mutation is appended here in commit order, so the
// journal can replay a collection's history.

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"golang.org/x/sys/unix"

	"meridiandb/src/helpers"
)

// journalEntry is the on-disk shape of one change record.
type journalEntry struct {
	Timestamp  time.Time   `bson:"timestamp"`
	Operation  string      `bson:"operation"`
	Collection string      `bson:"collection"`
	DocumentID string      `bson:"document_id"`
	Version    uint64      `bson:"version"`
	Before     interface{} `bson:"before,omitempty"`
	After      interface{} `bson:"after,omitempty"`
}

// FileJournal is a ChangeSink that appends each record to a daily
// journal file as a length-prefixed BSON document. Writes are synced
// with fdatasync so a committed record survives a crash.
type FileJournal struct {
	mu           sync.Mutex
	file         *os.File
	baseFilePath string
	currentDate  time.Time
	maxFileSize  int64
	currentSize  int64
}

// NewFileJournal opens (or creates) the journal file for today under
// the given path. The date is appended to the file name so each day
// gets its own file.
func NewFileJournal(journalFilePath string, maxFileSize int64) (*FileJournal, error) {
	j := &FileJournal{
		baseFilePath: getBaseFilePath(journalFilePath),
		currentDate:  time.Now().Truncate(24 * time.Hour),
		maxFileSize:  maxFileSize,
	}

	if err := j.ensureCorrectFileOpen(); err != nil {
		return nil, err
	}
	return j, nil
}

// getBaseFilePath strips any existing date suffix from the path.
func getBaseFilePath(journalFilePath string) string {
	dir := filepath.Dir(journalFilePath)
	base := filepath.Base(journalFilePath)
	ext := filepath.Ext(journalFilePath)

	baseName := strings.TrimSuffix(base, ext)
	datePattern := regexp.MustCompile(`_\d{4}-\d{2}-\d{2}$`)
	baseName = datePattern.ReplaceAllString(baseName, "")

	return filepath.Join(dir, baseName)
}

// ensureCorrectFileOpen rotates to today's journal file when the date
// has rolled over since the last write.
func (j *FileJournal) ensureCorrectFileOpen() error {
	today := time.Now().Truncate(24 * time.Hour)

	if j.file != nil && j.currentDate.Equal(today) {
		return nil
	}

	if j.file != nil {
		if err := j.file.Close(); err != nil {
			return fmt.Errorf("failed to close previous journal file: %w", err)
		}
		j.file = nil
	}

	dateStr := today.Format("2006-01-02")
	fileName := fmt.Sprintf("%s_%s%s", j.baseFilePath, dateStr, filepath.Ext(j.baseFilePath))
	if filepath.Ext(j.baseFilePath) == "" {
		fileName = fmt.Sprintf("%s_%s.journal", j.baseFilePath, dateStr)
	}

	dir := filepath.Dir(fileName)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create journal directory: %w", err)
	}

	file, err := os.OpenFile(fileName, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open journal file %s: %w", fileName, err)
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return fmt.Errorf("failed to stat journal file %s: %w", fileName, err)
	}

	j.file = file
	j.currentDate = today
	j.currentSize = info.Size()

	return nil
}

// Append writes a change record as a 4-byte little-endian length prefix
// followed by the BSON payload, then syncs the data to disk.
func (j *FileJournal) Append(record ChangeRecord) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if err := j.ensureCorrectFileOpen(); err != nil {
		return err
	}

	entry := journalEntry{
		Timestamp:  record.Timestamp,
		Operation:  string(record.Operation),
		Collection: record.Collection,
		DocumentID: record.DocumentID,
		Version:    record.Version,
	}
	if record.Before != nil {
		entry.Before = record.Before.ToNative()
	}
	if record.After != nil {
		entry.After = record.After.ToNative()
	}

	payload, err := bson.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to encode journal entry: %w", err)
	}

	var prefix [4]byte
	binary.LittleEndian.PutUint32(prefix[:], uint32(len(payload)))

	if _, err := j.file.Write(prefix[:]); err != nil {
		return fmt.Errorf("failed to write journal length prefix: %w", err)
	}
	if _, err := j.file.Write(payload); err != nil {
		return fmt.Errorf("failed to write journal entry: %w", err)
	}
	if err := unix.Fdatasync(int(j.file.Fd())); err != nil {
		return fmt.Errorf("failed to sync journal file: %w", err)
	}

	// TODO rotate within the day when currentSize passes maxFileSize;
	// daily rotation bounds growth for now.
	j.currentSize += int64(len(prefix) + len(payload))

	return nil
}

// ReadJournalFile decodes every entry of a journal file, in write
// order. Used for replay and inspection tooling.
func ReadJournalFile(path string) ([]map[string]interface{}, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read journal file %s: %w", path, err)
	}

	var entries []map[string]interface{}
	for offset := 0; offset < len(payload); {
		if len(payload)-offset < 4 {
			return entries, fmt.Errorf("truncated journal entry prefix at offset %d", offset)
		}
		size := int(binary.LittleEndian.Uint32(payload[offset : offset+4]))
		offset += 4
		if size < 0 || len(payload)-offset < size {
			return entries, fmt.Errorf("truncated journal entry at offset %d", offset)
		}
		entry, err := helpers.DecodeBSON(payload[offset : offset+size])
		if err != nil {
			return entries, fmt.Errorf("corrupt journal entry at offset %d: %w", offset, err)
		}
		entries = append(entries, entry)
		offset += size
	}
	return entries, nil
}

// Close closes the journal file.
func (j *FileJournal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.file != nil {
		if err := j.file.Close(); err != nil {
			return fmt.Errorf("failed to close journal file: %w", err)
		}
		j.file = nil
	}
	return nil
}
