// Package pipeline implements the concurrent scan of gzscan. A fan-out stage
// decodes and filters files in parallel; a fan-in stage, made of a bounded
// handoff channel and a single writer, serializes the matching lines to the
// output.
//
// Memory held between the two stages is bounded by the handoff capacity
// times the flush threshold (plus one line per chunk), independent of the
// number of files and workers. Lines of one file keep their order in the
// output; lines of different files interleave in arrival order.
package pipeline

import (
	"context"
	"io"
	"runtime"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/mimecast/gzscan/internal/constants"
	"github.com/mimecast/gzscan/internal/filter"
	"github.com/mimecast/gzscan/internal/io/fs"
	"github.com/mimecast/gzscan/internal/metrics"
)

// Config holds the tunables of a pipeline. Zero values select defaults.
type Config struct {
	// Substring selects lines to emit; empty emits every line.
	Substring string
	// Workers is the number of files decoded concurrently.
	Workers int
	// ChannelBound is the capacity of the handoff channel, in chunks.
	ChannelBound int
	// FlushThreshold is the chunk size in bytes at which a worker hands off.
	FlushThreshold int
	// OutputBufferSize is the size of the writer's output buffer.
	OutputBufferSize int
	// Decoder configures decompression and line splitting.
	Decoder fs.Options
}

func (c Config) withDefaults() Config {
	if c.Workers <= 0 {
		c.Workers = runtime.NumCPU()
	}
	if c.ChannelBound <= 0 {
		c.ChannelBound = constants.DefaultChannelBound
	}
	if c.FlushThreshold <= 0 {
		c.FlushThreshold = constants.FlushThreshold
	}
	if c.OutputBufferSize <= 0 {
		c.OutputBufferSize = constants.OutputBufferSize
	}
	return c
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *zap.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *metrics.Collector) Option {
	return func(p *Pipeline) {
		p.metrics = m
	}
}

// Pipeline scans compressed files for matching lines. A Pipeline may be run
// any number of times, also concurrently; runs share no state.
type Pipeline struct {
	cfg     Config
	decoder *fs.Decoder
	filter  filter.Filter
	logger  *zap.Logger
	metrics *metrics.Collector
}

// New returns a pipeline for cfg.
func New(cfg Config, opts ...Option) *Pipeline {
	cfg = cfg.withDefaults()
	p := &Pipeline{
		cfg:     cfg,
		decoder: fs.NewDecoder(cfg.Decoder),
		filter:  filter.New(cfg.Substring),
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Config returns the effective configuration.
func (p *Pipeline) Config() Config {
	return p.cfg
}

// Run attempts every path received from paths and writes the matching lines
// to out. It returns after paths is closed (or ctx is done), every started
// file has finished and the output has been flushed.
//
// Failures of single files are reported in the Result only. The returned
// error is set for failures of the shared sink (write or handoff errors) and
// when ctx ends before all paths were attempted. The caller must stop
// sending on paths once ctx is done.
func (p *Pipeline) Run(ctx context.Context, paths <-chan string, out io.Writer) (Result, error) {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		fatalOnce sync.Once
		fatalErr  error
	)
	fail := func(err error) {
		fatalOnce.Do(func() {
			fatalErr = err
			p.logger.Error("Aborting scan", zap.Error(err))
		})
		cancel()
	}

	p.logger.Debug("Running pipeline", zap.Stringer("filter", p.filter),
		zap.Int("workers", p.cfg.Workers), zap.Int("channel_bound", p.cfg.ChannelBound))

	handoff := NewHandoff(p.cfg.ChannelBound)
	writer := NewWriter(out, p.cfg.OutputBufferSize, handoff, p.metrics)
	tally := newTally()

	var g errgroup.Group
	g.Go(func() error {
		return writer.Run(fail)
	})

	workers := &workerPool{
		workers:   p.cfg.Workers,
		decoder:   p.decoder,
		filter:    p.filter,
		threshold: p.cfg.FlushThreshold,
		handoff:   handoff,
		metrics:   p.metrics,
		logger:    p.logger,
		tally:     tally,
		fail:      fail,
	}
	workers.run(runCtx, paths)

	// All producers are done.
	handoff.Close()
	writerErr := g.Wait()

	result := tally.result()
	result.ChunksWritten, result.BytesWritten = writer.Stats()
	result.Cancelled = runCtx.Err() != nil

	switch {
	case fatalErr != nil:
		return result, fatalErr
	case writerErr != nil:
		return result, writerErr
	case ctx.Err() != nil:
		return result, ctx.Err()
	}
	return result, nil
}

// RunPaths runs the pipeline over a fixed list of paths.
func (p *Pipeline) RunPaths(ctx context.Context, paths []string, out io.Writer) (Result, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	ch := make(chan string)
	go func() {
		defer close(ch)
		for _, path := range paths {
			select {
			case ch <- path:
			case <-ctx.Done():
				return
			}
		}
	}()

	return p.Run(ctx, ch, out)
}
