package events

// Version information for the events package.
const (
	Version              = "1.0.0"
	MinCompatibleVersion = "1.0.0"
)
