// Package logging builds the process logger.
package logging

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
)

// New returns a logger writing to stdout in the given format ("json" or "text").
func New(level, format string) (*logrus.Logger, error) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}

	logger := logrus.New()
	logger.SetOutput(os.Stdout)
	logger.SetLevel(lvl)
	switch format {
	case "", "json":
		logger.SetFormatter(&logrus.JSONFormatter{})
	case "text":
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	default:
		return nil, fmt.Errorf("invalid log format %q", format)
	}
	return logger, nil
}

// LogError logs err with the location it was observed at. data is omitted when nil.
func LogError(logger *logrus.Logger, module, funcName, context string, data any, err error) {
	fields := logrus.Fields{
		"module":   module,
		"funcName": funcName,
		"context":  context,
	}
	if data != nil {
		fields["data"] = data
	}
	logger.WithFields(fields).Error(err.Error())
}
