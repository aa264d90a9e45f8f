package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// LogFormat selects the logrus formatter.
type LogFormat string

const (
	FormatText LogFormat = "text"
	FormatJSON LogFormat = "json"
)

// UnmarshalText lets viper and envconfig decode the format directly.
func (f *LogFormat) UnmarshalText(text []byte) error {
	value := LogFormat(strings.ToLower(strings.TrimSpace(string(text))))
	switch value {
	case "":
		*f = FormatText
		return nil
	case FormatText, FormatJSON:
		*f = value
		return nil
	default:
		return fmt.Errorf("invalid log format %q, must be %q or %q", string(text), FormatText, FormatJSON)
	}
}

// NewLogger configures the standard logrus logger and returns it, so library
// code logging through the package-level functions shares the format.
func NewLogger(format LogFormat) *logrus.Logger {
	return configure(logrus.StandardLogger(), format, os.Stdout)
}

func configure(logger *logrus.Logger, format LogFormat, out io.Writer) *logrus.Logger {
	if format == FormatJSON {
		logger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
		})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}

	logger.SetOutput(out)
	logger.SetLevel(logrus.DebugLevel)
	if lvl, err := logrus.ParseLevel(os.Getenv("RDS_LOG_LEVEL")); err == nil {
		logger.SetLevel(lvl)
	}

	return logger
}
