// Package config loads the gzscan configuration from defaults, an optional
// YAML config file, GZSCAN_* environment variables and command-line flags.
//
// Precedence (highest to lowest):
// 1. Command-line flags
// 2. Environment variables
// 3. Configuration file
// 4. Default values
package config

import (
	"io"
	"runtime"
	"strings"

	"github.com/spf13/viper"

	"github.com/mimecast/gzscan/internal/constants"
	"github.com/mimecast/gzscan/internal/errors"
	"github.com/mimecast/gzscan/internal/io/fs"
	"github.com/mimecast/gzscan/internal/logger"
	"github.com/mimecast/gzscan/internal/pipeline"
	"github.com/mimecast/gzscan/internal/source"
)

// Configuration keys. Flags, env vars and config file entries share them.
const (
	KeyRecordSubstring  = "record-substring"
	KeyChannelBound     = "channel-bound"
	KeyWorkers          = "workers"
	KeyFlushThreshold   = "flush-threshold"
	KeyDecompressBuffer = "decompress-buffer"
	KeyOutputBuffer     = "output-buffer"
	KeyDecodeStrategy   = "decode-strategy"
	KeyStripTerminators = "strip-terminators"
	KeyCompression      = "compression"
	KeyFailOnFileError  = "fail-on-file-error"
	KeyInput            = "input"
	KeyLogLevel         = "log-level"
	KeyLogFormat        = "log-format"
	KeyMetricsAddr      = "metrics-addr"
)

// EnvPrefix prefixes every environment variable, e.g. GZSCAN_CHANNEL_BOUND.
const EnvPrefix = "GZSCAN"

// minDecompressBuffer is the smallest buffer bufio accepts.
const minDecompressBuffer = 16

// Config is the complete configuration of a gzscan run.
type Config struct {
	RecordSubstring  string `mapstructure:"record-substring"`
	ChannelBound     int    `mapstructure:"channel-bound"`
	Workers          int    `mapstructure:"workers"`
	FlushThreshold   int    `mapstructure:"flush-threshold"`
	DecompressBuffer int    `mapstructure:"decompress-buffer"`
	OutputBuffer     int    `mapstructure:"output-buffer"`
	DecodeStrategy   string `mapstructure:"decode-strategy"`
	StripTerminators bool   `mapstructure:"strip-terminators"`
	Compression      string `mapstructure:"compression"`
	FailOnFileError  bool   `mapstructure:"fail-on-file-error"`
	Input            string `mapstructure:"input"`
	LogLevel         string `mapstructure:"log-level"`
	LogFormat        string `mapstructure:"log-format"`
	MetricsAddr      string `mapstructure:"metrics-addr"`
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() *Config {
	return &Config{
		ChannelBound:     constants.DefaultChannelBound,
		Workers:          runtime.NumCPU(),
		FlushThreshold:   constants.FlushThreshold,
		DecompressBuffer: constants.DecompressBufferSize,
		OutputBuffer:     constants.OutputBufferSize,
		DecodeStrategy:   fs.Streaming.String(),
		Compression:      fs.Gzip.String(),
		Input:            source.Stdin,
		LogLevel:         "info",
		LogFormat:        logger.FormatText,
	}
}

// Validate checks every setting and returns the first invalid one wrapped in
// errors.ErrInvalidConfig.
func (c *Config) Validate() error {
	positive := []struct {
		key   string
		value int
	}{
		{KeyChannelBound, c.ChannelBound},
		{KeyWorkers, c.Workers},
		{KeyFlushThreshold, c.FlushThreshold},
		{KeyOutputBuffer, c.OutputBuffer},
	}
	for _, p := range positive {
		if p.value <= 0 {
			return errors.Wrapf(errors.ErrInvalidConfig, "%s must be positive, got %d", p.key, p.value)
		}
	}
	if c.DecompressBuffer < minDecompressBuffer {
		return errors.Wrapf(errors.ErrInvalidConfig, "%s must be at least %d, got %d",
			KeyDecompressBuffer, minDecompressBuffer, c.DecompressBuffer)
	}

	if _, err := fs.ParseStrategy(c.DecodeStrategy); err != nil {
		return errors.Wrapf(errors.ErrInvalidConfig, "%s: %v", KeyDecodeStrategy, err)
	}
	if _, err := fs.ParseCompression(c.Compression); err != nil {
		return errors.Wrapf(errors.ErrInvalidConfig, "%s: %v", KeyCompression, err)
	}
	if _, err := logger.New(io.Discard, c.LogFormat, c.LogLevel); err != nil {
		return err
	}
	return nil
}

// Pipeline returns the pipeline configuration. c must be valid.
func (c *Config) Pipeline() pipeline.Config {
	strategy, _ := fs.ParseStrategy(c.DecodeStrategy)
	compression, _ := fs.ParseCompression(c.Compression)

	return pipeline.Config{
		Substring:        c.RecordSubstring,
		Workers:          c.Workers,
		ChannelBound:     c.ChannelBound,
		FlushThreshold:   c.FlushThreshold,
		OutputBufferSize: c.OutputBuffer,
		Decoder: fs.Options{
			Strategy:         strategy,
			Compression:      compression,
			StripTerminators: c.StripTerminators,
			BufferSize:       c.DecompressBuffer,
		},
	}
}

// NewViper returns a viper instance reading GZSCAN_* environment variables
// and the config file. An empty configFile searches gzscan.yaml in
// /etc/gzscan, $HOME/.gzscan and the working directory.
func NewViper(configFile string) *viper.Viper {
	v := viper.New()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("gzscan")
		v.SetConfigType("yaml")
		for _, path := range []string{"/etc/gzscan", "$HOME/.gzscan", "."} {
			v.AddConfigPath(path)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	// Unmarshal only sees keys viper knows about.
	d := DefaultConfig()
	v.SetDefault(KeyRecordSubstring, d.RecordSubstring)
	v.SetDefault(KeyChannelBound, d.ChannelBound)
	v.SetDefault(KeyWorkers, d.Workers)
	v.SetDefault(KeyFlushThreshold, d.FlushThreshold)
	v.SetDefault(KeyDecompressBuffer, d.DecompressBuffer)
	v.SetDefault(KeyOutputBuffer, d.OutputBuffer)
	v.SetDefault(KeyDecodeStrategy, d.DecodeStrategy)
	v.SetDefault(KeyStripTerminators, d.StripTerminators)
	v.SetDefault(KeyCompression, d.Compression)
	v.SetDefault(KeyFailOnFileError, d.FailOnFileError)
	v.SetDefault(KeyInput, d.Input)
	v.SetDefault(KeyLogLevel, d.LogLevel)
	v.SetDefault(KeyLogFormat, d.LogFormat)
	v.SetDefault(KeyMetricsAddr, d.MetricsAddr)

	return v
}

// Load reads the config file, if any, and returns the merged and validated
// configuration. A missing config file in the search path is not an error;
// a missing explicit one is.
func Load(v *viper.Viper) (*Config, error) {
	if err := v.ReadInConfig(); err != nil {
		// ConfigFileUsed is only set for an explicit or found file.
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) || v.ConfigFileUsed() != "" {
			return nil, errors.Wrapf(errors.ErrInvalidConfig, "reading config file: %v", err)
		}
	}

	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.Wrapf(errors.ErrInvalidConfig, "decoding config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
