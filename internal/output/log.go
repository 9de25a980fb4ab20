// Package output provides logging and terminal output utilities.
package output

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/log"
)

// DefaultLogFile is the diagnostic log written in the working directory.
const DefaultLogFile = "yoctobom.log"

// LogToStderr as LogConfig.File sends the diagnostic log to stderr only.
const LogToStderr = "-"

// logger is the global logger instance.
var logger *log.Logger

// logFile is the open diagnostic log, if any.
var logFile *os.File

func init() {
	logger = log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: false,
		ReportCaller:    false,
	})
}

// LogConfig controls the diagnostic logger.
type LogConfig struct {
	// Verbose enables debug level and mirrors the log to stderr.
	Verbose bool

	// File is the append-only log file. Empty or LogToStderr logs to stderr.
	File string

	// Timestamps controls whether timestamps are written. Default: true.
	Timestamps *bool
}

// SetupLogging configures the global logger. Any previously opened log file
// is closed.
func SetupLogging(cfg LogConfig) error {
	CloseLogging()

	level := log.InfoLevel
	if cfg.Verbose {
		level = log.DebugLevel
	}

	timestamps := true
	if cfg.Timestamps != nil {
		timestamps = *cfg.Timestamps
	}
	if cfg.Verbose {
		timestamps = true
	}

	var w io.Writer = os.Stderr
	if cfg.File != "" && cfg.File != LogToStderr {
		f, err := os.OpenFile(cfg.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			return fmt.Errorf("opening log file %s: %w", cfg.File, err)
		}
		logFile = f
		w = f
		if cfg.Verbose {
			w = io.MultiWriter(f, os.Stderr)
		}
	}

	logger = log.NewWithOptions(w, log.Options{
		Level:           level,
		ReportTimestamp: timestamps,
		ReportCaller:    cfg.Verbose,
		TimeFormat:      "2006-01-02 15:04:05",
	})
	return nil
}

// CloseLogging closes the log file opened by SetupLogging.
func CloseLogging() {
	if logFile != nil {
		_ = logFile.Close()
		logFile = nil
	}
}

// ComponentLogger returns a child logger prefixed with a manifest component
// key, e.g. "openssl/1.1.1d".
func ComponentLogger(key string) *log.Logger {
	return logger.WithPrefix(key)
}

// Debug logs a debug message.
func Debug(msg string, keyvals ...interface{}) {
	logger.Debug(msg, keyvals...)
}

// Info logs an info message.
func Info(msg string, keyvals ...interface{}) {
	logger.Info(msg, keyvals...)
}

// Warn logs a warning message.
func Warn(msg string, keyvals ...interface{}) {
	logger.Warn(msg, keyvals...)
}

// Error logs an error message.
func Error(msg string, keyvals ...interface{}) {
	logger.Error(msg, keyvals...)
}

// BoolPtr returns a pointer to b.
func BoolPtr(b bool) *bool {
	return &b
}
