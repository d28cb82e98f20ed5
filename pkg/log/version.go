package log

// Version information for the log package.
const (
	// Version is the current version of the log package. 1.1 added With and ParseLevel.
	Version = "1.1.0"

	// MinCompatibleVersion is the oldest version whose adapters still satisfy Logger.
	MinCompatibleVersion = "1.0.0"
)
