package pipeline

import (
	"context"
	"time"

	concpool "github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"

	"github.com/mimecast/gzscan/internal/errors"
	"github.com/mimecast/gzscan/internal/filter"
	"github.com/mimecast/gzscan/internal/io/fs"
	"github.com/mimecast/gzscan/internal/metrics"
)

// workerPool runs decode, filter and accumulate for every path with at most
// workers files in flight. Workers share nothing but the handoff.
type workerPool struct {
	workers   int
	decoder   *fs.Decoder
	filter    filter.Filter
	threshold int
	handoff   *Handoff
	metrics   *metrics.Collector
	logger    *zap.Logger
	tally     *tally
	// fail escalates an error that affects the shared sink.
	fail func(error)
}

// run attempts every path received until paths is closed or ctx is done. It
// returns once all started files have finished.
func (wp *workerPool) run(ctx context.Context, paths <-chan string) {
	p := concpool.New().WithMaxGoroutines(wp.workers)
	defer p.Wait()

	for {
		select {
		case <-ctx.Done():
			return
		case path, ok := <-paths:
			if !ok {
				return
			}
			if ctx.Err() != nil {
				return
			}
			p.Go(func() {
				wp.processFile(ctx, path)
			})
		}
	}
}

// processFile runs one file through decoder, filter and accumulator. File
// failures are recorded and do not affect other files.
func (wp *workerPool) processFile(ctx context.Context, path string) {
	start := time.Now()
	wp.tally.filesAttempted.Add(1)

	acc := newAccumulator(wp.handoff, wp.threshold, wp.metrics)
	defer acc.release()

	var scanned, matched uint64
	err := wp.decoder.DecodeFile(ctx, path, func(line []byte) error {
		scanned++
		if !wp.filter.Match(line) {
			return nil
		}
		matched++
		return acc.append(ctx, line)
	})
	if err == nil {
		err = acc.flush(ctx)
	}

	wp.tally.linesScanned.Add(scanned)
	wp.tally.linesMatched.Add(matched)
	wp.tally.chunksHandedOff.Add(acc.chunks)
	wp.metrics.Lines(scanned, matched)

	var fileErr *errors.FileError
	switch {
	case err == nil:
		wp.metrics.FileDone(false, time.Since(start))
		wp.logger.Debug("Processed file", zap.String("path", path),
			zap.Uint64("lines", scanned), zap.Uint64("matched", matched),
			zap.Uint64("chunks", acc.chunks))
	case errors.As(err, &fileErr):
		wp.tally.fileErrors.Add(fileErr)
		wp.metrics.FileDone(true, time.Since(start))
		wp.logger.Warn("Unable to process file", zap.String("path", path),
			zap.String("op", string(fileErr.Op)), zap.Error(fileErr.Err))
	case ctx.Err() != nil:
		wp.logger.Debug("Abandoned file", zap.String("path", path), zap.Error(err))
	default:
		wp.fail(errors.Wrapf(err, "processing %q", path))
	}
}
