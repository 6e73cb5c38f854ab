// Package logging builds the zap logger shared by every component.
//
// The terminal UI owns stdout, so logging is silent unless a level is
// configured, and it is written to a file when one is given.
package logging

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ParseLevel maps a level name to a zap level. Unknown names fall back to
// info.
func ParseLevel(level string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// New creates a logger at level writing to path ("" means stderr). An empty
// level disables logging entirely.
func New(level, path string) (*zap.Logger, error) {
	if strings.TrimSpace(level) == "" {
		return zap.NewNop(), nil
	}

	output := "stderr"
	encoding := "console"
	if path != "" {
		output = path
		encoding = "json"
	}

	config := zap.Config{
		Level:            zap.NewAtomicLevelAt(ParseLevel(level)),
		Encoding:         encoding,
		EncoderConfig:    zap.NewProductionEncoderConfig(),
		OutputPaths:      []string{output},
		ErrorOutputPaths: []string{output},
	}
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if path == "" {
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	logger, err := config.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return logger, nil
}
