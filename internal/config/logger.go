package config

import (
	"runtime"

	"github.com/sirupsen/logrus"
)

// NewLogger builds the logrus.Logger every command shares. verbose maps
// to debug level; the text formatter prints full timestamps and no
// caller information (§2.1).
func NewLogger(verbose bool) *logrus.Logger {
	logger := logrus.New()
	level := logrus.InfoLevel
	if verbose {
		level = logrus.DebugLevel
	}
	logger.SetLevel(level)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
		CallerPrettyfier: func(f *runtime.Frame) (string, string) {
			return "", ""
		},
	})
	return logger
}
