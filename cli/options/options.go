// Package options contains helpers shared by sagan commands.
package options

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Verbose is a flag shared by all commands that log.
const Verbose = "verbose, v"

// HandleLoggingParams builds the process logger. If the user selected
// verbose output, debug level is enabled.
func HandleLoggingParams(verbose bool) (*zap.Logger, error) {
	level := zapcore.InfoLevel
	if verbose {
		level = zapcore.DebugLevel
	}

	cc := zap.NewProductionConfig()
	cc.DisableCaller = true
	cc.DisableStacktrace = true
	cc.EncoderConfig.EncodeDuration = zapcore.StringDurationEncoder
	cc.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	cc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cc.Encoding = "console"
	cc.Level = zap.NewAtomicLevelAt(level)
	cc.Sampling = nil

	return cc.Build()
}
