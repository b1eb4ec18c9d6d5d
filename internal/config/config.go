package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

const (
	defaultCheckpointSecs = 10
	defaultHTTPTimeout    = 60
)

// Config holds the environment-driven tuning knobs. The data the tool
// operates on (state file, keys file, selectors) comes from command
// flags instead.
type Config struct {
	LogLevel           logrus.Level
	CheckpointInterval time.Duration
	HTTPTimeout        time.Duration
}

// ReadConfig loads an optional .env file from the working directory
// and reads the environment. Missing variables fall back to defaults.
func ReadConfig() Config {
	if err := godotenv.Load(); err != nil {
		logrus.Debug("No .env file found, reading from environment")
	}

	level := ParseLogLevel(os.Getenv("LOG_LEVEL"))
	SetLogLevel(level)

	return Config{
		LogLevel:           level,
		CheckpointInterval: envSeconds("CHECKPOINT_SECONDS", defaultCheckpointSecs),
		HTTPTimeout:        envSeconds("HTTP_TIMEOUT_SECONDS", defaultHTTPTimeout),
	}
}

func envSeconds(key string, def int) time.Duration {
	secs := def
	if s := os.Getenv(key); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			secs = v
		} else {
			logrus.Errorf("Error parsing %s=%q. Setting to default.", key, s)
		}
	}
	return time.Duration(secs) * time.Second
}

// ParseLogLevel parses a string and returns the corresponding logrus.Level.
func ParseLogLevel(logLevel string) logrus.Level {
	switch strings.ToLower(logLevel) {
	case "debug":
		return logrus.DebugLevel
	case "", "info":
		return logrus.InfoLevel
	case "warn":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	default:
		logrus.Error("Invalid log level", "level", logLevel, "setting_to", logrus.InfoLevel.String())
		return logrus.InfoLevel
	}
}

// SetLogLevel sets the log level for the application.
func SetLogLevel(level logrus.Level) {
	logrus.SetLevel(level)
}
