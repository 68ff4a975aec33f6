// Package logging configures the process-wide zerolog logger.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

var logger *zerolog.Logger

// Init sets up the global logger.
// level is one of "debug", "info", "warn", "error"; anything else falls
// back to info. If file is non-empty, log output goes to both the console
// and the file (opened for append).
func Init(level string, file string) error {
	var logLevel zerolog.Level
	switch strings.ToLower(level) {
	case "debug":
		logLevel = zerolog.DebugLevel
	case "info":
		logLevel = zerolog.InfoLevel
	case "warn":
		logLevel = zerolog.WarnLevel
	case "error":
		logLevel = zerolog.ErrorLevel
	default:
		logLevel = zerolog.InfoLevel
	}

	var output io.Writer = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "2006-01-02 15:04:05"}

	if file != "" {
		fileWriter, err := os.OpenFile(file, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return err
		}
		output = io.MultiWriter(output, fileWriter)
	}

	l := zerolog.New(output).With().Timestamp().Logger().Level(logLevel)
	logger = &l
	return nil
}

// Get returns the global logger. Before Init it returns a logger that
// discards everything, so library code can log unconditionally.
func Get() *zerolog.Logger {
	if logger == nil {
		l := zerolog.New(io.Discard)
		logger = &l
	}
	return logger
}
