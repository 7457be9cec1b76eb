// Package logger wraps logrus with lumberjack-based file rotation
// behind a process-wide singleton, following the teacher's
// logger.Logger pattern.
package logger

import (
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/madgoathaz/goatd-kernel-telemetry/config"
)

// Logger embeds *logrus.Logger so callers use it exactly like a plain
// logrus logger while this package owns rotation and singleton setup.
type Logger struct {
	*logrus.Logger
	logFile *lumberjack.Logger
}

var (
	once     sync.Once
	instance *Logger
)

// Get returns the process-wide Logger, initializing it with sane
// defaults if Init has not been called yet.
func Get() *Logger {
	once.Do(func() {
		instance = &Logger{Logger: logrus.New()}
	})
	return instance
}

// Init configures the singleton from cfg, wiring file rotation and an
// io.MultiWriter(stdout, file) sink when ToFile is set.
func Init(cfg config.LoggingConfig) *Logger {
	l := Get()
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	l.SetLevel(level)
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05.000",
	})

	if !cfg.ToFile || cfg.FilePath == "" {
		l.SetOutput(os.Stdout)
		return l
	}

	l.logFile = &lumberjack.Logger{
		Filename:   cfg.FilePath,
		MaxSize:    parseMaxSizeMB(cfg.MaxSize),
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   true,
	}
	l.SetOutput(io.MultiWriter(os.Stdout, l.logFile))
	return l
}

// parseMaxSizeMB parses strings like "50MB" into an integer megabyte
// count, defaulting to 50 on any parse failure.
func parseMaxSizeMB(s string) int {
	s = strings.ToUpper(strings.TrimSpace(s))
	s = strings.TrimSuffix(s, "MB")
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 50
	}
	return n
}
