package logging

import (
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

var defaultLog *logrus.Logger

func init() {
	defaultLog = logrus.New()
	defaultLog.SetOutput(os.Stderr)
	defaultLog.SetLevel(logrus.InfoLevel)
	defaultLog.SetFormatter(&logrus.TextFormatter{
		TimestampFormat: "2006-01-02 15:04:05",
		FullTimestamp:   true,
	})
}

// SetLevel switches the log level by name ("debug", "info", "warn", "error").
// Unknown names leave the level unchanged.
func SetLevel(name string) {
	switch strings.ToLower(name) {
	case "debug":
		defaultLog.SetLevel(logrus.DebugLevel)
	case "info":
		defaultLog.SetLevel(logrus.InfoLevel)
	case "warn", "warning":
		defaultLog.SetLevel(logrus.WarnLevel)
	case "error":
		defaultLog.SetLevel(logrus.ErrorLevel)
	}
}

// Debugf - Debug message
func Debugf(format string, args ...interface{}) {
	defaultLog.Debugf(format, args...)
}

// Infof - Info message
func Infof(format string, args ...interface{}) {
	defaultLog.Infof(format, args...)
}

// Warnf - Warn message
func Warnf(format string, args ...interface{}) {
	defaultLog.Warnf(format, args...)
}

// Errorf - Error message
func Errorf(format string, args ...interface{}) {
	defaultLog.Errorf(format, args...)
}
