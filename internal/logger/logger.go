// Package logger builds the zap logger of gzscan. Logs never go to stdout,
// which carries the matched lines.
package logger

import (
	"io"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/mimecast/gzscan/internal/errors"
	"github.com/mimecast/gzscan/internal/version"
)

// Formats and levels accepted by New.
const (
	FormatText = "text"
	FormatJSON = "json"
	LevelNone  = "none"
)

// New returns a logger writing to w. The level "none" disables logging.
func New(w io.Writer, logFormat, logLevel string) (*zap.Logger, error) {
	if logLevel == LevelNone {
		return zap.NewNop(), nil
	}

	level, err := zapcore.ParseLevel(logLevel)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrInvalidConfig, "unknown log level %q", logLevel)
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "timestamp"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var encoder zapcore.Encoder
	switch logFormat {
	case FormatText:
		encoderCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encoderCfg)
	case FormatJSON:
		encoder = zapcore.NewJSONEncoder(encoderCfg)
	default:
		return nil, errors.Wrapf(errors.ErrInvalidConfig, "unknown log format %q", logFormat)
	}

	core := zapcore.NewCore(encoder, zapcore.Lock(zapcore.AddSync(w)), zap.NewAtomicLevelAt(level))
	log := zap.New(core)

	if logFormat == FormatJSON {
		log = log.With(zap.String("build.version", version.Version), zap.String("build.commit", version.Commit))
	}
	return log, nil
}
