// Copyright (c) 2026 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger defines the interface for logging operations.
// It provides methods for different log levels and formatted output.
type Logger interface {
	// Printf formats and prints a log message.
	Printf(format string, v ...any)
	// Println prints a log message with a newline.
	Println(v ...any)
	// SetOutput sets the output destination for the logger.
	SetOutput(w io.Writer)
}

// StructuredLogger is a Logger that can also attach typed fields to a message.
type StructuredLogger interface {
	Logger
	// Info logs msg at info level with fields.
	Info(msg string, fields ...zap.Field)
	// Error logs msg at error level with fields.
	Error(msg string, fields ...zap.Field)
}

// CLILogger implements Logger using the standard log package.
// It's designed for command-line interface output with human-readable formatting.
type CLILogger struct{ logger *log.Logger }

// NewCLILogger creates a new CLI logger with timestamps disabled.
// This is suitable for user-facing CLI output.
func NewCLILogger() *CLILogger {
	l := log.New(os.Stdout, "", 0)
	return &CLILogger{logger: l}
}

// Printf formats and prints a log message using fmt.Printf semantics.
func (c *CLILogger) Printf(format string, v ...any) { c.logger.Printf(format, v...) }

// Println prints a log message with a newline.
func (c *CLILogger) Println(v ...any) { c.logger.Println(v...) }

// SetOutput sets the output destination for the CLI logger.
func (c *CLILogger) SetOutput(w io.Writer) { c.logger.SetOutput(w) }

// swappableWriter lets SetOutput redirect a zap core that was built once.
type swappableWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *swappableWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}

func (s *swappableWriter) Sync() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if f, ok := s.w.(interface{ Sync() error }); ok {
		return f.Sync()
	}
	return nil
}

func (s *swappableWriter) set(w io.Writer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if w == nil {
		w = io.Discard
	}
	s.w = w
}

// JSONLogger implements Logger with [zap], writing one JSON object per line:
//
//	{"level":"info","message":"..."}
//
// Typed fields are added with Info and Error.
//
// JSONLogger is safe for concurrent use by multiple goroutines.
//
// [zap]: https://pkg.go.dev/go.uber.org/zap
type JSONLogger struct {
	out *swappableWriter
	zap *zap.Logger
}

// NewJSONLogger creates a JSON logger writing to w. A nil writer discards output.
func NewJSONLogger(w io.Writer) *JSONLogger {
	out := &swappableWriter{}
	out.set(w)

	encoderCfg := zapcore.EncoderConfig{
		MessageKey:     "message",
		LevelKey:       "level",
		NameKey:        "logger",
		EncodeLevel:    zapcore.LowercaseLevelEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		LineEnding:     zapcore.DefaultLineEnding,
	}
	core := zapcore.NewCore(zapcore.NewJSONEncoder(encoderCfg), out, zap.DebugLevel)

	return &JSONLogger{out: out, zap: zap.New(core)}
}

// Printf formats and logs a message at info level.
func (j *JSONLogger) Printf(format string, v ...any) { j.zap.Info(fmt.Sprintf(format, v...)) }

// Println logs a message at info level. Operands are joined as by fmt.Sprintln.
func (j *JSONLogger) Println(v ...any) {
	j.zap.Info(strings.TrimSuffix(fmt.Sprintln(v...), "\n"))
}

// Info logs msg at info level with fields.
func (j *JSONLogger) Info(msg string, fields ...zap.Field) { j.zap.Info(msg, fields...) }

// Error logs msg at error level with fields.
func (j *JSONLogger) Error(msg string, fields ...zap.Field) { j.zap.Error(msg, fields...) }

// SetOutput sets the output destination. A nil writer discards output.
func (j *JSONLogger) SetOutput(w io.Writer) { j.out.set(w) }

// Zap returns the underlying zap logger.
func (j *JSONLogger) Zap() *zap.Logger { return j.zap }

// Sync flushes buffered output.
func (j *JSONLogger) Sync() error { return j.zap.Sync() }
