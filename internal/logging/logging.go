package logging

import (
	"io"
	"strings"

	"github.com/sirupsen/logrus"
)

type Fields = logrus.Fields

// New returns a JSON logger at the named level ("debug", "warn", "error";
// anything else means info).
func New(level string) *logrus.Logger {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetLevel(parseLevel(level))
	return logger
}

// Discard returns a logger that drops everything. Used where no logger was
// wired.
func Discard() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func parseLevel(level string) logrus.Level {
	switch strings.ToLower(level) {
	case "debug":
		return logrus.DebugLevel
	case "warn":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}
