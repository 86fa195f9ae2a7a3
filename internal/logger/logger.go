package logger

import (
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

const timestampFormat = "2006-01-02T15:04:05.000Z07:00"

var (
	rotatingFile   io.Closer
	rotatingFileMu sync.Mutex
)

// Logger wraps logrus.Entry with context-aware helpers.
type Logger struct {
	*logrus.Entry
}

// New builds a Logger from opts; nil uses DefaultOptions.
// Parameters:
//   - opts: level, format, and output settings.
// Returns:
//   - *Logger: logger tagged with the service name.
func New(opts *Options) *Logger {
	if opts == nil {
		opts = DefaultOptions()
	}

	log := logrus.New()
	level, err := logrus.ParseLevel(opts.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)
	log.SetReportCaller(true)
	log.SetFormatter(formatter(opts.Format))
	log.SetOutput(output(opts))

	return &Logger{Entry: log.WithField("service", opts.ServiceName)}
}

// NewFromEnv builds a Logger from DefaultOptions overridden by environment variables.
func NewFromEnv() *Logger {
	return New(DefaultOptions().ApplyEnv())
}

func formatter(format string) logrus.Formatter {
	if strings.EqualFold(format, "text") {
		return &logrus.TextFormatter{
			FullTimestamp:    true,
			TimestampFormat:  timestampFormat,
			CallerPrettyfier: callerPrettyfier,
		}
	}
	return &logrus.JSONFormatter{
		TimestampFormat: timestampFormat,
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime:  "timestamp",
			logrus.FieldKeyLevel: "level",
			logrus.FieldKeyMsg:   "message",
		},
		CallerPrettyfier: callerPrettyfier,
	}
}

func output(opts *Options) io.Writer {
	if opts.Output != nil {
		return opts.Output
	}

	var writers []io.Writer
	if opts.Environment == "local" || !opts.FileOnly {
		writers = append(writers, os.Stdout)
	}
	if opts.Environment != "local" && opts.File != "" {
		file := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    opts.MaxSizeMB,
			MaxBackups: opts.MaxBackups,
			MaxAge:     opts.MaxAgeDays,
			Compress:   opts.Compress,
		}
		writers = append(writers, file)

		rotatingFileMu.Lock()
		rotatingFile = file
		rotatingFileMu.Unlock()
	}
	if len(writers) == 0 {
		return os.Stdout
	}
	return io.MultiWriter(writers...)
}

// Sync closes the rotating log file, if one is open.
// Call it before the process exits.
func Sync() error {
	rotatingFileMu.Lock()
	defer rotatingFileMu.Unlock()
	if rotatingFile != nil {
		return rotatingFile.Close()
	}
	return nil
}

// WithFields returns a derived Logger with fields applied.
func (l *Logger) WithFields(fields Fields) *Logger {
	return &Logger{Entry: l.Entry.WithFields(logrus.Fields(fields))}
}

// WithField returns a derived Logger with one field applied.
func (l *Logger) WithField(key string, value interface{}) *Logger {
	return &Logger{Entry: l.Entry.WithField(key, value)}
}

// WithError returns a derived Logger with an error field.
func (l *Logger) WithError(err error) *Logger {
	return &Logger{Entry: l.Entry.WithError(err)}
}

// callerPrettyfier trims caller info to package.func and file:line.
func callerPrettyfier(frame *runtime.Frame) (function string, file string) {
	funcName := frame.Function
	if idx := strings.LastIndex(funcName, "/"); idx != -1 {
		funcName = funcName[idx+1:]
	}
	return funcName, filepath.Base(frame.File) + ":" + strconv.Itoa(frame.Line)
}
