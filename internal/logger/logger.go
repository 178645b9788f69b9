// internal/logger/logger.go

package logger

import (
	"os"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	defaultLogger *logrus.Logger
	once          sync.Once
)

// Setup configures the process logger from level and format.
// Format is "json" or "text"; level defaults to info.
func Setup(level, format string) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)

	lvl, err := logrus.ParseLevel(strings.ToLower(level))
	if err != nil {
		lvl = logrus.InfoLevel
	}
	l.SetLevel(lvl)

	if strings.ToLower(format) == "json" {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	defaultLogger = l
	return l
}

// L returns the process logger, configuring it from LOG_LEVEL and
// LOG_FORMAT on first use
func L() *logrus.Logger {
	once.Do(func() {
		if defaultLogger == nil {
			Setup(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"))
		}
	})
	return defaultLogger
}
