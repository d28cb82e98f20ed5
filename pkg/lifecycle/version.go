package lifecycle

// Version information for the lifecycle package.
const (
	// Version is the current version of the lifecycle package.
	Version = "2.0.0"

	// MinCompatibleVersion is the oldest version whose callers still compile.
	MinCompatibleVersion = "2.0.0"
)
