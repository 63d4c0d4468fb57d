package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/avatarctic/car-marketplace/configs"
)

// NewLogger builds the process logger from cfg. An unknown level falls back
// to info, and an unusable log file falls back to stdout; both are reported
// through the returned logger rather than failing startup.
func NewLogger(cfg configs.LogConfig) *logrus.Logger {
	logger := logrus.New()

	output, outErr := buildOutput(cfg)
	logger.SetOutput(output)

	switch strings.ToLower(cfg.Format) {
	case "text":
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, TimestampFormat: time.RFC3339})
	default:
		logger.SetFormatter(&logrus.JSONFormatter{TimestampFormat: time.RFC3339Nano})
	}

	level, levelErr := logrus.ParseLevel(cfg.Level)
	if levelErr != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if outErr != nil {
		logger.WithFields(logrus.Fields{"action": "logger_fallback", "path": cfg.FilePath}).Warn(outErr.Error())
	}
	if levelErr != nil {
		logger.WithField("level", cfg.Level).Warn("unknown log level, using info")
	}
	return logger
}

// buildOutput returns a rotating file writer for cfg.FilePath, or stdout
// when no path is set or the directory cannot be created.
func buildOutput(cfg configs.LogConfig) (io.Writer, error) {
	if cfg.FilePath == "" {
		return os.Stdout, nil
	}
	if err := os.MkdirAll(filepath.Dir(cfg.FilePath), 0o755); err != nil {
		return os.Stdout, fmt.Errorf("create log directory: %w", err)
	}
	return &lumberjack.Logger{
		Filename:   cfg.FilePath,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		Compress:   cfg.Compress,
		LocalTime:  true,
	}, nil
}
