package logger

import (
	"io"
	"os"
	"strconv"
)

// Options configures a Logger.
type Options struct {
	Level       string    // debug, info, warn, error
	Format      string    // json, text
	Output      io.Writer // overrides every other output setting
	ServiceName string

	// Environment "local" logs to stdout only; anything else also writes File.
	Environment string
	File        string
	FileOnly    bool

	// Rotation for File.
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// DefaultOptions returns stdout JSON logging at info level.
func DefaultOptions() *Options {
	return &Options{
		Level:       "info",
		Format:      "json",
		ServiceName: "videoqa",
		Environment: "local",
		MaxSizeMB:   100,
		MaxBackups:  7,
		MaxAgeDays:  30,
		Compress:    true,
	}
}

// ApplyEnv overrides options from LOG_* and APP_ENV environment variables.
func (o *Options) ApplyEnv() *Options {
	o.Level = getEnv("LOG_LEVEL", o.Level)
	o.Format = getEnv("LOG_FORMAT", o.Format)
	o.ServiceName = getEnv("SERVICE_NAME", o.ServiceName)
	o.Environment = getEnv("APP_ENV", o.Environment)
	o.File = getEnv("LOG_FILE", o.File)
	o.FileOnly = getEnvBool("LOG_FILE_ONLY", o.FileOnly)
	o.MaxSizeMB = getEnvInt("LOG_MAX_SIZE", o.MaxSizeMB)
	o.MaxBackups = getEnvInt("LOG_MAX_BACKUPS", o.MaxBackups)
	o.MaxAgeDays = getEnvInt("LOG_MAX_AGE", o.MaxAgeDays)
	o.Compress = getEnvBool("LOG_COMPRESS", o.Compress)
	return o
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	b, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return defaultVal
	}
	return b
}

func getEnvInt(key string, defaultVal int) int {
	i, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return defaultVal
	}
	return i
}
