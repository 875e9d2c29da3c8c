/*
 * Copyright (C) 2025 Nethesis S.r.l.
 * SPDX-License-Identifier: GPL-3.0-or-later
 */

package logs

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var Logs *zap.SugaredLogger = zap.NewNop().Sugar()

// Init builds the process logger. Level and format are optional and default
// to "info" and "console".
func Init(name string, options ...string) {
	level := "info"
	format := "console"
	if len(options) > 0 && options[0] != "" {
		level = options[0]
	}
	if len(options) > 1 && options[1] != "" {
		format = options[1]
	}

	config := zap.NewProductionConfig()
	config.Level = zap.NewAtomicLevelAt(parseLevel(level))
	config.Encoding = "console"
	if format == "json" || format == "structured" {
		config.Encoding = "json"
	}
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.OutputPaths = []string{"stderr"}
	config.ErrorOutputPaths = []string{"stderr"}

	logger, err := config.Build(zap.AddCallerSkip(1))
	if err != nil {
		logger = zap.NewExample()
	}

	Logs = logger.Named(name).Sugar()
}

// Log writes a "[LEVEL][TAG] message" line at the level named by its first tag.
func Log(message string) {
	switch levelFromMessage(message) {
	case zapcore.ErrorLevel:
		Logs.Error(message)
	case zapcore.WarnLevel:
		Logs.Warn(message)
	case zapcore.DebugLevel:
		Logs.Debug(message)
	default:
		Logs.Info(message)
	}
}

// Sync flushes buffered entries.
func Sync() {
	_ = Logs.Sync()
}

func levelFromMessage(message string) zapcore.Level {
	if !strings.HasPrefix(message, "[") {
		return zapcore.InfoLevel
	}
	end := strings.Index(message, "]")
	if end < 0 {
		return zapcore.InfoLevel
	}

	switch strings.ToUpper(message[1:end]) {
	case "CRITICAL", "ERROR":
		return zapcore.ErrorLevel
	case "WARNING", "WARN":
		return zapcore.WarnLevel
	case "DEBUG":
		return zapcore.DebugLevel
	default:
		return zapcore.InfoLevel
	}
}

func parseLevel(level string) zapcore.Level {
	switch strings.ToLower(level) {
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
