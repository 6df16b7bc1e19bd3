// Package logging builds the zap loggers used across the bridge and maps
// the worker's numeric verbosity onto zap levels.
package logging

import (
	"fmt"
	"sort"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/najoast/tlbridge/config"
)

// Verbosity values understood by the worker.
const (
	VerbosityFatal   int32 = 0
	VerbosityError   int32 = 1
	VerbosityWarning int32 = 2
	VerbosityInfo    int32 = 3
	VerbosityDebug   int32 = 4
)

// LevelForVerbosity maps a worker verbosity onto a zap level. Anything
// above debug is still debug.
func LevelForVerbosity(v int32) zapcore.Level {
	switch {
	case v <= VerbosityFatal:
		return zapcore.FatalLevel
	case v == VerbosityError:
		return zapcore.ErrorLevel
	case v == VerbosityWarning:
		return zapcore.WarnLevel
	case v == VerbosityInfo:
		return zapcore.InfoLevel
	default:
		return zapcore.DebugLevel
	}
}

// VerbosityForLevel is the inverse of LevelForVerbosity.
func VerbosityForLevel(l zapcore.Level) int32 {
	switch {
	case l >= zapcore.FatalLevel:
		return VerbosityFatal
	case l == zapcore.ErrorLevel:
		return VerbosityError
	case l == zapcore.WarnLevel:
		return VerbosityWarning
	case l == zapcore.InfoLevel:
		return VerbosityInfo
	default:
		return VerbosityDebug
	}
}

// ParseLevel converts a configured level name to a zap level. trace has no
// zap equivalent and maps to debug.
func ParseLevel(l config.LogLevel) (zapcore.Level, error) {
	switch l {
	case config.LogLevelTrace, config.LogLevelDebug:
		return zapcore.DebugLevel, nil
	case config.LogLevelInfo, "":
		return zapcore.InfoLevel, nil
	case config.LogLevelWarn:
		return zapcore.WarnLevel, nil
	case config.LogLevelError:
		return zapcore.ErrorLevel, nil
	case config.LogLevelFatal:
		return zapcore.FatalLevel, nil
	default:
		return zapcore.InfoLevel, fmt.Errorf("unknown log level %q", l)
	}
}

// New builds a logger from cfg. The returned AtomicLevel controls the
// logger at runtime.
func New(cfg config.LogConfig) (*zap.Logger, zap.AtomicLevel, error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return nil, zap.AtomicLevel{}, err
	}
	atom := zap.NewAtomicLevelAt(level)

	zc := zap.NewProductionConfig()
	if cfg.Format == config.LogFormatConsole {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = atom
	zc.Sampling = nil
	if cfg.Output != "" {
		zc.OutputPaths = []string{cfg.Output}
	}
	if len(cfg.Fields) > 0 {
		zc.InitialFields = make(map[string]interface{}, len(cfg.Fields))
		keys := make([]string, 0, len(cfg.Fields))
		for k := range cfg.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			zc.InitialFields[k] = cfg.Fields[k]
		}
	}

	logger, err := zc.Build()
	if err != nil {
		return nil, zap.AtomicLevel{}, fmt.Errorf("build logger: %w", err)
	}
	return logger, atom, nil
}
