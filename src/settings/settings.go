package settings

import "sync"

type Arguments struct {
	// The file path to the datafiles (snapshots, exports)
	DataDir string
	LogDir  string

	// The file path for the change journal
	JournalFile string

	// Maximum size in bytes before a journal file rotates
	MaxJournalFileSize int64

	ConfigFile string

	// The mode of operation
	// standalone, cluster
	Mode string

	// the host name or IP address to listen on
	Host string

	// the port number to listen on
	Port int

	// Strongly verbose logging
	Verbose bool

	// Debug-level logging and per-operation traces
	Debug bool

	AuthEnabled bool // Enable authentication

	// Print Log Messages to screen as well as the log file
	PrintToScreen bool

	Version string
}

var (
	instance *Arguments
	once     sync.Once
)

// GetSettings returns the process-wide argument singleton. The first
// caller materializes it; Apply fills it in from parsed flags.
func GetSettings() *Arguments {
	once.Do(func() {
		instance = &Arguments{
			Host:               "localhost",
			Port:               1776,
			JournalFile:        "./data/changes.journal",
			MaxJournalFileSize: 64 << 20,
			Mode:               "standalone",
		}
	})
	return instance
}

// Apply copies parsed command line arguments into the singleton.
func Apply(args Arguments) *Arguments {
	s := GetSettings()
	*s = args
	return s
}
