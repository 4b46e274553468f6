package errors

import (
	"errors"
	"fmt"
	"sync"
)

// Sentinel errors for common error conditions
var (
	// Per-file errors, recovered locally by the worker pool
	ErrFileOpen   = errors.New("file open failed")
	ErrDecompress = errors.New("decompression failed")
	ErrReadFailed = errors.New("read failed")

	// Shared sink errors, escalated to the caller
	ErrHandoffClosed = errors.New("handoff channel closed")
	ErrWriteFailed   = errors.New("write failed")

	// Configuration errors
	ErrInvalidConfig = errors.New("invalid configuration")

	// General errors
	ErrInvalidArgument = errors.New("invalid argument")
)

// Error wrapping functions

// Wrap wraps an error with additional context
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// Wrapf wraps an error with formatted context
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Is checks if an error is of a specific type
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As attempts to extract a specific error type
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}


// FileOp names the stage at which processing of a single file failed.
type FileOp string

const (
	// OpOpen is opening the file.
	OpOpen FileOp = "open"
	// OpDecompress is decompressing: an invalid header, or corrupt or
	// truncated compressed data anywhere in the stream.
	OpDecompress FileOp = "decompress"
	// OpRead is reading the decompressed stream.
	OpRead FileOp = "read"
)

// FileError is the failure of one input file. It matches both the sentinel
// of its operation and the underlying cause with errors.Is.
type FileError struct {
	Path string
	Op   FileOp
	Err  error
}

// NewFileError returns a FileError for the given path and operation.
func NewFileError(path string, op FileOp, err error) *FileError {
	return &FileError{Path: path, Op: op, Err: err}
}

func (e *FileError) Error() string {
	return fmt.Sprintf("%s %q: %v", e.Op, e.Path, e.Err)
}

// Unwrap returns both the operation sentinel and the cause.
func (e *FileError) Unwrap() []error {
	return []error{e.sentinel(), e.Err}
}

func (e *FileError) sentinel() error {
	switch e.Op {
	case OpOpen:
		return ErrFileOpen
	case OpDecompress:
		return ErrDecompress
	default:
		return ErrReadFailed
	}
}

// Multi-error support for operations that can have multiple failures

// MultiError represents multiple errors. It is safe for concurrent use.
type MultiError struct {
	mu     sync.Mutex
	errors []error
}

// NewMultiError creates a new MultiError
func NewMultiError() *MultiError {
	return &MultiError{
		errors: make([]error, 0),
	}
}

// Add adds an error to the MultiError
func (m *MultiError) Add(err error) {
	if err == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errors = append(m.errors, err)
}

// HasErrors returns true if there are any errors
func (m *MultiError) HasErrors() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.errors) > 0
}

// Len returns the number of collected errors.
func (m *MultiError) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.errors)
}

// Error implements the error interface
func (m *MultiError) Error() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.errors) == 0 {
		return ""
	}
	if len(m.errors) == 1 {
		return m.errors[0].Error()
	}
	return fmt.Sprintf("multiple errors occurred: %v", m.errors)
}

// Errors returns a copy of all collected errors
func (m *MultiError) Errors() []error {
	m.mu.Lock()
	defer m.mu.Unlock()
	errs := make([]error, len(m.errors))
	copy(errs, m.errors)
	return errs
}

// Unwrap exposes the collected errors to errors.Is and errors.As.
func (m *MultiError) Unwrap() []error {
	return m.Errors()
}

// ErrorOrNil returns nil if no errors, otherwise returns the MultiError
func (m *MultiError) ErrorOrNil() error {
	if m.HasErrors() {
		return m
	}
	return nil
}
