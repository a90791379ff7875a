// Package logger holds the shared logger instance used across the module.
package logger

import (
	"os"

	logger "github.com/sirupsen/logrus"
	prefixed "github.com/x-cray/logrus-prefixed-formatter"
)

var L = &logger.Logger{
	Out:   os.Stderr,
	Level: level(),
	Formatter: &prefixed.TextFormatter{
		TimestampFormat: "2006-01-02 15:04:05",
		FullTimestamp: true,
		ForceFormatting: true,
	},
}

// WithComponent tags log lines with the originating component. The
// prefixed formatter renders the "prefix" field in front of the message.
func WithComponent(name string) *logger.Entry {
	return L.WithField("prefix", name)
}

func level() logger.Level {
	if lvl, err := logger.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil {
		return lvl
	}
	return logger.InfoLevel
}
