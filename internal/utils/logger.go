package utils

import (
	"io"
	"os"
	"path/filepath"

	"inkcloud/internal/types"

	"github.com/sirupsen/logrus"
)

// SetupLogger configures the global logrus logger from the log configuration.
func SetupLogger(configManager types.ConfigManager) {
	logConfig := configManager.GetLogConfig()

	level, err := logrus.ParseLevel(logConfig.Level)
	if err != nil {
		logrus.Warnf("Invalid log level %q, using info", logConfig.Level)
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)

	if logConfig.Format == "json" {
		logrus.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
		})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{
			ForceColors:     true,
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
		})
	}

	if logConfig.EnableFile {
		if err := os.MkdirAll(filepath.Dir(logConfig.FilePath), 0o755); err != nil {
			logrus.Warnf("Failed to create log directory: %v", err)
			return
		}
		logFile, err := os.OpenFile(logConfig.FilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			logrus.Warnf("Failed to open log file: %v", err)
			return
		}
		logrus.SetOutput(io.MultiWriter(os.Stdout, logFile))
	}
}
