package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mimecast/gzscan/internal/config"
	"github.com/mimecast/gzscan/internal/constants"
	"github.com/mimecast/gzscan/internal/errors"
	"github.com/mimecast/gzscan/internal/io/signal"
	"github.com/mimecast/gzscan/internal/logger"
	"github.com/mimecast/gzscan/internal/metrics"
	"github.com/mimecast/gzscan/internal/pipeline"
	"github.com/mimecast/gzscan/internal/profiling"
	"github.com/mimecast/gzscan/internal/source"
	"github.com/mimecast/gzscan/internal/version"
)

const metricsShutdownTimeout = 5 * time.Second

// app carries the streams of one invocation and its exit status.
type app struct {
	stdin    io.Reader
	stdout   io.Writer
	stderr   io.Writer
	exitCode int

	configFile string
	profile    profiling.Flags
}

// run executes gzscan with args and returns the exit status.
func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	a := &app{stdin: stdin, stdout: stdout, stderr: stderr}

	cmd := a.newRootCommand()
	cmd.SetArgs(args)
	cmd.SetIn(stdin)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	if err := cmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return constants.ExitFatal
	}
	return a.exitCode
}

func (a *app) newRootCommand() *cobra.Command {
	d := config.DefaultConfig()

	cmd := &cobra.Command{
		Use:   "gzscan",
		Short: "Scan compressed CSV files in parallel for lines containing a substring",
		Long: `gzscan reads newline separated paths of gzip (or zstd) compressed files,
decompresses and scans them in parallel and writes every line containing the
record substring to stdout. Lines of one file keep their order; lines of
different files interleave.

Settings are read from flags, GZSCAN_* environment variables and gzscan.yaml
(in that order).`,
		Args:          cobra.NoArgs,
		Version:       version.String(),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			v := config.NewViper(a.configFile)
			if err := v.BindPFlags(cmd.Flags()); err != nil {
				return err
			}
			cfg, err := config.Load(v)
			if err != nil {
				return err
			}
			a.exitCode = a.scan(cmd.Context(), cfg)
			return nil
		},
	}
	cmd.SetVersionTemplate("{{.Version}}\n")

	flags := cmd.Flags()
	flags.StringVar(&a.configFile, "config", "", "Config file (default gzscan.yaml in /etc/gzscan, $HOME/.gzscan or .)")
	flags.StringP(config.KeyRecordSubstring, "r", d.RecordSubstring, "Emit only lines containing this substring (empty emits all)")
	flags.IntP(config.KeyChannelBound, "c", d.ChannelBound, "Capacity of the handoff channel, in chunks")
	flags.IntP(config.KeyWorkers, "w", d.Workers, "Number of files decoded concurrently")
	flags.Int(config.KeyFlushThreshold, d.FlushThreshold, "Chunk size in bytes at which a worker hands off")
	flags.Int(config.KeyDecompressBuffer, d.DecompressBuffer, "Decoder read buffer size in bytes")
	flags.Int(config.KeyOutputBuffer, d.OutputBuffer, "Output buffer size in bytes")
	flags.String(config.KeyDecodeStrategy, d.DecodeStrategy, "Line decoding: stream or buffer")
	flags.Bool(config.KeyStripTerminators, d.StripTerminators, "Strip line terminators from emitted lines")
	flags.String(config.KeyCompression, d.Compression, "Input compression: gzip, zstd or auto")
	flags.Bool(config.KeyFailOnFileError, d.FailOnFileError, "Exit with status 1 if any file could not be processed")
	flags.StringP(config.KeyInput, "i", d.Input, "File holding the path list, - for stdin")
	flags.String(config.KeyLogLevel, d.LogLevel, "Log level: debug, info, warn, error or none")
	flags.String(config.KeyLogFormat, d.LogFormat, "Log format: text or json")
	flags.String(config.KeyMetricsAddr, d.MetricsAddr, "Serve Prometheus metrics on this address")
	profiling.AddFlags(flags, &a.profile)

	return cmd
}

// scan runs the pipeline for a loaded configuration and returns the exit
// status.
func (a *app) scan(ctx context.Context, cfg *config.Config) int {
	log, err := logger.New(a.stderr, cfg.LogFormat, cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(a.stderr, "Error: %v\n", err)
		return constants.ExitFatal
	}
	defer func() { _ = log.Sync() }()

	profiler := profiling.NewProfiler(a.profile.ToConfig(version.Name), log)
	defer profiler.Stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.New(reg)
	if cfg.MetricsAddr != "" {
		stopMetrics := serveMetrics(cfg.MetricsAddr, reg, log)
		defer stopMetrics()
	}

	input, err := source.Open(cfg.Input, a.stdin)
	if err != nil {
		log.Error("Unable to open path list", zap.Error(err))
		return constants.ExitFatal
	}
	defer input.Close()

	ctx, stop := signal.NotifyContext(ctx, log)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := pipeline.New(cfg.Pipeline(), pipeline.WithLogger(log), pipeline.WithMetrics(m))
	log.Info("Starting scan",
		zap.String("record_substring", cfg.RecordSubstring),
		zap.Int("workers", p.Config().Workers),
		zap.Int("channel_bound", p.Config().ChannelBound),
		zap.String("compression", cfg.Compression),
		zap.String("decode_strategy", cfg.DecodeStrategy))

	paths := make(chan string, p.Config().Workers*constants.PathsChannelMultiplier)
	sourceDone := make(chan error, 1)
	go func() {
		sourceDone <- source.Paths(ctx, input, paths)
	}()

	start := time.Now()
	result, runErr := p.Run(ctx, paths, a.stdout)

	// Run only succeeds once paths is closed, so the reader has returned. After
	// a failed or cancelled run the reader may be blocked on an open stdin
	// pipe; it is left behind and ends with the process.
	var sourceErr error
	if runErr == nil {
		sourceErr = <-sourceDone
	}
	cancel()

	profiler.LogMetrics("scan")
	log.Info("Scan finished",
		zap.Duration("duration", time.Since(start)),
		zap.Uint64("files", result.FilesAttempted),
		zap.Uint64("files_failed", result.FilesFailed),
		zap.Uint64("lines_scanned", result.LinesScanned),
		zap.Uint64("lines_matched", result.LinesMatched),
		zap.Uint64("chunks", result.ChunksWritten),
		zap.Uint64("bytes", result.BytesWritten))
	reportFileErrors(log, result)

	switch {
	case runErr != nil:
		log.Error("Scan aborted", zap.Error(runErr))
		return constants.ExitFatal
	case sourceErr != nil && !errors.Is(sourceErr, context.Canceled):
		log.Error("Unable to read path list", zap.Error(sourceErr))
		return constants.ExitFatal
	case result.Failed() && cfg.FailOnFileError:
		return constants.ExitFileErrors
	}
	return constants.ExitOK
}

// reportFileErrors logs a summary of the failed files.
func reportFileErrors(log *zap.Logger, result pipeline.Result) {
	if !result.Failed() {
		return
	}

	reported := result.FileErrors
	if len(reported) > constants.MaxReportedFileErrors {
		reported = reported[:constants.MaxReportedFileErrors]
	}
	paths := make([]string, len(reported))
	for i, fe := range reported {
		paths[i] = fe.Path
	}

	log.Warn("Some files could not be processed",
		zap.Uint64("count", result.FilesFailed),
		zap.Strings("paths", paths),
		zap.Bool("truncated", len(reported) < len(result.FileErrors)))
}

// serveMetrics exposes reg on addr/metrics until the returned function is
// called.
func serveMetrics(addr string, reg *prometheus.Registry, log *zap.Logger) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: metricsShutdownTimeout}

	done := make(chan struct{})
	go func() {
		defer close(done)
		log.Info("Starting prometheus metrics server", zap.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Metrics server failed", zap.Error(err))
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), metricsShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			log.Warn("Metrics server shutdown failed", zap.Error(err))
		}
		<-done
	}
}
