package constants

// Channel buffer size constants
const (
	// DefaultChannelBound is the default capacity of the chunk handoff channel.
	DefaultChannelBound = 1000

	// PathsChannelMultiplier sizes the path feed channel as workers * multiplier.
	PathsChannelMultiplier = 4
)
