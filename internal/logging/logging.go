// Package logging builds steward's zap loggers.
//
// Errors logged anywhere in the process are also appended to errors.log in the
// log directory, which is the file the errors command tails. Member joins and
// leaves go to a separate joinleave.log through the Membership logger.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options configures New.
type Options struct {
	// Dir is the directory holding errors.log and joinleave.log.
	Dir string
	// Level is the console level name ("debug", "info", ...).
	Level string
	// Verbose forces debug level on the console.
	Verbose bool
	// Console receives human-readable output. Nil means os.Stderr; use
	// io.Discard when a TUI owns the terminal.
	Console io.Writer
}

// Loggers bundles the process logger with the membership event logger.
type Loggers struct {
	Logger     *zap.Logger
	Membership *zap.Logger

	files []*os.File
}

// New opens the log files under opts.Dir and builds the loggers.
func New(opts Options) (*Loggers, error) {
	level := zapcore.InfoLevel
	if opts.Level != "" {
		parsed, err := zapcore.ParseLevel(opts.Level)
		if err != nil {
			return nil, fmt.Errorf("parse log level: %w", err)
		}
		level = parsed
	}
	if opts.Verbose {
		level = zapcore.DebugLevel
	}

	console := opts.Console
	if console == nil {
		console = os.Stderr
	}

	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}

	l := &Loggers{}
	errorsFile, err := l.open(filepath.Join(opts.Dir, "errors.log"))
	if err != nil {
		return nil, err
	}
	membershipFile, err := l.open(filepath.Join(opts.Dir, "joinleave.log"))
	if err != nil {
		_ = l.Close()
		return nil, err
	}

	encoder := zapcore.NewConsoleEncoder(encoderConfig())
	consoleCore := zapcore.NewCore(encoder, zapcore.AddSync(console), level)
	errorCore := zapcore.NewCore(encoder, zapcore.AddSync(errorsFile), zapcore.ErrorLevel)
	membershipCore := zapcore.NewCore(encoder, zapcore.AddSync(membershipFile), zapcore.InfoLevel)

	l.Logger = zap.New(zapcore.NewTee(consoleCore, errorCore), zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
	l.Membership = zap.New(zapcore.NewTee(consoleCore, membershipCore)).Named("membership")
	return l, nil
}

// Nop returns loggers that discard everything, for tests.
func Nop() *Loggers {
	return &Loggers{Logger: zap.NewNop(), Membership: zap.NewNop()}
}

// Close flushes the loggers and closes the log files.
func (l *Loggers) Close() error {
	if l.Logger != nil {
		_ = l.Logger.Sync()
	}
	if l.Membership != nil {
		_ = l.Membership.Sync()
	}
	var first error
	for _, f := range l.files {
		if err := f.Close(); err != nil && first == nil {
			first = err
		}
	}
	l.files = nil
	return first
}

func (l *Loggers) open(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	l.files = append(l.files, f)
	return f, nil
}

func encoderConfig() zapcore.EncoderConfig {
	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05")
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	cfg.ConsoleSeparator = " "
	return cfg
}
