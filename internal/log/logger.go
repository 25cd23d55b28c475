// Package log builds the process logger and its error reporting hooks.
package log

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	logFileMaxSizeMB  = 50
	logFileMaxBackups = 5
	logFileMaxAgeDays = 28
)

// Settings selects the log level and an optional rotating log file.
type Settings struct {
	Level string
	// File, when set, receives a copy of every log line in addition to stdout.
	File string
}

// NewLogger constructs a logrus logger configured with JSON output.
func NewLogger(settings Settings) (*logrus.Logger, error) {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano})
	logger.SetReportCaller(false)
	logger.SetLevel(logrus.InfoLevel)

	if level := strings.TrimSpace(settings.Level); level != "" {
		parsedLevel, err := logrus.ParseLevel(strings.ToLower(level))
		if err != nil {
			return nil, eris.Wrapf(err, "invalid log level: %s", level)
		}
		logger.SetLevel(parsedLevel)
	}

	if file := strings.TrimSpace(settings.File); file != "" {
		if err := os.MkdirAll(filepath.Dir(file), 0o750); err != nil {
			return nil, eris.Wrapf(err, "creating log directory for %s", file)
		}
		logger.SetOutput(io.MultiWriter(os.Stdout, &lumberjack.Logger{
			Filename:   file,
			MaxSize:    logFileMaxSizeMB,
			MaxBackups: logFileMaxBackups,
			MaxAge:     logFileMaxAgeDays,
		}))
	}

	return logger, nil
}

// Component returns an entry tagged with the component that writes it.
func Component(logger *logrus.Logger, name string) *logrus.Entry {
	return logger.WithField("component", name)
}
