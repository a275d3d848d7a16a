// Package logging builds the process-wide zap logger, replacing the
// teacher's hand-rolled *log.Logger wrapper (internal/common/logger.go)
// with structured logging while keeping the same Info/Warn/Error call-site
// shape.
package logging

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds the process-wide logger: JSON to stderr at Info level, or
// console-encoded Debug level when REDUST_DEBUG_LOG is set (handy for
// interactive runs, mirroring the teacher's plain-text log lines).
func New() *zap.Logger {
	level := zapcore.InfoLevel
	encoder := zap.NewProductionEncoderConfig()
	enc := zapcore.NewJSONEncoder(encoder)

	if os.Getenv("REDUST_DEBUG_LOG") != "" {
		level = zapcore.DebugLevel
		encoder = zap.NewDevelopmentEncoderConfig()
		enc = zapcore.NewConsoleEncoder(encoder)
	}

	core := zapcore.NewCore(enc, zapcore.Lock(os.Stderr), level)
	return zap.New(core)
}
