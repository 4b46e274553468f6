package constants

// Numeric limits and process exit codes
const (
	// ExitOK is returned when every path was attempted and all output was flushed.
	ExitOK = 0

	// ExitFileErrors is returned when at least one file failed and the run was
	// configured to fail on file errors.
	ExitFileErrors = 1

	// ExitFatal is returned on configuration, write and handoff errors.
	ExitFatal = 2

	// MaxReportedFileErrors limits how many file errors are listed in the
	// final summary log line.
	MaxReportedFileErrors = 10
)
