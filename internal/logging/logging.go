package logging

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// New creates a logrus logger writing to stdout at level with a json or text format.
// Unknown levels fall back to info.
func New(level, format string) *logrus.Logger {
	return NewWithOutput(level, format, os.Stdout)
}

// NewWithOutput is New with an explicit writer.
func NewWithOutput(level, format string, out io.Writer) *logrus.Logger {
	logger := logrus.New()

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	logger.SetLevel(lvl)

	if format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02 15:04:05",
		})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
		})
	}

	logger.SetOutput(out)
	return logger
}
