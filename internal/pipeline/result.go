package pipeline

import (
	"sync/atomic"

	"github.com/mimecast/gzscan/internal/errors"
)

// Result summarizes one run of the pipeline.
type Result struct {
	FilesAttempted  uint64
	FilesFailed     uint64
	LinesScanned    uint64
	LinesMatched    uint64
	ChunksHandedOff uint64
	ChunksWritten   uint64
	BytesWritten    uint64
	// FileErrors lists every file that could not be processed.
	FileErrors []*errors.FileError
	// Cancelled is set when the run stopped before all paths were attempted.
	Cancelled bool
}

// Failed returns true if at least one file could not be processed.
func (r Result) Failed() bool {
	return r.FilesFailed > 0
}

// Err returns the file errors as a single error, or nil.
func (r Result) Err() error {
	multi := errors.NewMultiError()
	for _, fe := range r.FileErrors {
		multi.Add(fe)
	}
	return multi.ErrorOrNil()
}

// tally is updated concurrently by the workers.
type tally struct {
	filesAttempted  atomic.Uint64
	linesScanned    atomic.Uint64
	linesMatched    atomic.Uint64
	chunksHandedOff atomic.Uint64
	fileErrors      *errors.MultiError
}

func newTally() *tally {
	return &tally{fileErrors: errors.NewMultiError()}
}

func (t *tally) result() Result {
	r := Result{
		FilesAttempted:  t.filesAttempted.Load(),
		LinesScanned:    t.linesScanned.Load(),
		LinesMatched:    t.linesMatched.Load(),
		ChunksHandedOff: t.chunksHandedOff.Load(),
	}
	for _, err := range t.fileErrors.Errors() {
		if fe, ok := err.(*errors.FileError); ok {
			r.FileErrors = append(r.FileErrors, fe)
		}
	}
	r.FilesFailed = uint64(len(r.FileErrors))
	return r
}
