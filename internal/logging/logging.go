// Package logging builds the process logger.
package logging

import (
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"strings"

	formatter "github.com/antonfisher/nested-logrus-formatter"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config selects the level and destinations.
type Config struct {
	// Level is a logrus level name. Empty means info.
	Level string
	// File, when set, receives a rotated copy of everything written to Output.
	File string
	// Output defaults to stderr.
	Output io.Writer
	// Colors enables ANSI colors on the console.
	Colors bool
}

// New returns a logger writing to cfg.Output and, if set, a rotated file.
func New(cfg Config) (*logrus.Logger, error) {
	level := logrus.InfoLevel
	if cfg.Level != "" {
		l, err := logrus.ParseLevel(cfg.Level)
		if err != nil {
			return nil, fmt.Errorf("log level: %w", err)
		}
		level = l
	}

	logger := logrus.New()
	logger.SetLevel(level)
	logger.SetFormatter(&formatter.Formatter{
		NoColors:              !cfg.Colors,
		TimestampFormat:       "02 Jan 06 - 15:04:05",
		HideKeys:              false,
		CallerFirst:           true,
		CustomCallerFormatter: callerFormatter(cfg.Colors),
	})

	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	writers := []io.Writer{out}

	if cfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.File), 0755); err != nil {
			return nil, fmt.Errorf("create log directory: %w", err)
		}
		writers = append(writers, &lumberjack.Logger{
			Filename:   cfg.File,
			LocalTime:  true,
			Compress:   true,
			MaxSize:    100,
			MaxAge:     7,
			MaxBackups: 3,
		})
	}

	logger.SetOutput(io.MultiWriter(writers...))
	logger.SetReportCaller(true)
	return logger, nil
}

// Discard returns a logger that drops everything.
func Discard() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	l.SetLevel(logrus.PanicLevel)
	return l
}

func callerFormatter(colors bool) func(*runtime.Frame) string {
	return func(f *runtime.Frame) string {
		s := strings.Split(f.Function, ".")
		funcName := s[len(s)-1]
		if colors {
			return fmt.Sprintf(" \x1b[%dm[%s:%d][%s()]\x1b[0m", 34, path.Base(f.File), f.Line, funcName)
		}
		return fmt.Sprintf(" [%s:%d][%s()]", path.Base(f.File), f.Line, funcName)
	}
}
