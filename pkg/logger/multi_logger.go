package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogCategory represents different log categories
type LogCategory string

const (
	CategoryBatch     LogCategory = "batch"     // Download batch lifecycle events (JSON)
	CategoryDiscovery LogCategory = "discovery" // Discovery pass events (JSON)
	CategoryError     LogCategory = "error"     // Application errors (JSON)
	CategoryDownload  LogCategory = "download"  // Raw downloader output, written by the downloader
)

// ValidCategory reports whether a category has a readable log file
func ValidCategory(category LogCategory) bool {
	switch category {
	case CategoryBatch, CategoryDiscovery, CategoryError, CategoryDownload:
		return true
	}
	return false
}

// MultiLogger provides categorized event logs, one JSON file per category and day.
// Raw downloader output does not go through here.
type MultiLogger struct {
	loggers map[LogCategory]*zap.Logger
	files   []*os.File
	config  MultiLoggerConfig
	mu      sync.RWMutex
}

// MultiLoggerConfig contains configuration for multi-output logging
type MultiLoggerConfig struct {
	Level   string // debug, info, warn, error
	LogsDir string // Directory for log files
}

// NewMultiLogger creates a new multi-output logger
func NewMultiLogger(config MultiLoggerConfig) (*MultiLogger, error) {
	if config.LogsDir == "" {
		return nil, fmt.Errorf("logs_dir must be specified")
	}

	if err := os.MkdirAll(config.LogsDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create logs directory: %w", err)
	}

	ml := &MultiLogger{
		loggers: make(map[LogCategory]*zap.Logger),
		config:  config,
	}

	level, err := zapcore.ParseLevel(config.Level)
	if err != nil {
		level = zapcore.InfoLevel
	}

	levels := map[LogCategory]zapcore.Level{
		CategoryBatch:     level,
		CategoryDiscovery: level,
		CategoryError:     zapcore.ErrorLevel,
	}
	for category, lvl := range levels {
		logger, err := ml.createStructuredLogger(category, lvl)
		if err != nil {
			ml.Close()
			return nil, fmt.Errorf("failed to create %s logger: %w", category, err)
		}
		ml.loggers[category] = logger
	}

	return ml, nil
}

// NewNopMultiLogger returns a MultiLogger that discards every event
func NewNopMultiLogger() *MultiLogger {
	nop := zap.NewNop()
	return &MultiLogger{
		loggers: map[LogCategory]*zap.Logger{
			CategoryBatch:     nop,
			CategoryDiscovery: nop,
			CategoryError:     nop,
		},
	}
}

func (ml *MultiLogger) createStructuredLogger(category LogCategory, level zapcore.Level) (*zap.Logger, error) {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "ts"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.MessageKey = "msg"
	encoderConfig.LevelKey = "level"
	encoderConfig.CallerKey = ""

	file, err := os.OpenFile(CategoryLogPath(ml.config.LogsDir, category, time.Now()), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}
	ml.files = append(ml.files, file)

	core := zapcore.NewCore(zapcore.NewJSONEncoder(encoderConfig), zapcore.AddSync(file), level)
	return zap.New(core).With(zap.String("category", string(category))), nil
}

// CategoryLogPath returns the log file of a category for the given day
func CategoryLogPath(logsDir string, category LogCategory, date time.Time) string {
	return filepath.Join(logsDir, fmt.Sprintf("%s-%s.log", category, date.Format("20060102")))
}

// GetLogsDir returns the logs directory path
func (ml *MultiLogger) GetLogsDir() string {
	return ml.config.LogsDir
}

// GetLogger returns the structured logger for a specific category
func (ml *MultiLogger) GetLogger(category LogCategory) *zap.Logger {
	ml.mu.RLock()
	defer ml.mu.RUnlock()

	if logger, ok := ml.loggers[category]; ok {
		return logger
	}
	return ml.loggers[CategoryError]
}

// LogAppError logs an application-level error
func (ml *MultiLogger) LogAppError(msg string, fields ...zap.Field) {
	ml.GetLogger(CategoryError).Error(msg, fields...)
}

// LogBatchEvent logs a download batch lifecycle event
func (ml *MultiLogger) LogBatchEvent(event string, fields ...zap.Field) {
	ml.GetLogger(CategoryBatch).Info(event, fields...)
}

// LogDiscoveryEvent logs a discovery pass event
func (ml *MultiLogger) LogDiscoveryEvent(event string, fields ...zap.Field) {
	ml.GetLogger(CategoryDiscovery).Info(event, fields...)
}

// Sync flushes all loggers
func (ml *MultiLogger) Sync() error {
	ml.mu.RLock()
	defer ml.mu.RUnlock()

	var lastErr error
	for _, logger := range ml.loggers {
		if err := logger.Sync(); err != nil {
			lastErr = err
		}
	}
	return lastErr
}

// Close flushes all loggers and closes their files
func (ml *MultiLogger) Close() error {
	ml.mu.Lock()
	defer ml.mu.Unlock()

	var lastErr error
	for _, logger := range ml.loggers {
		if err := logger.Sync(); err != nil {
			lastErr = err
		}
	}
	for _, file := range ml.files {
		if err := file.Close(); err != nil {
			lastErr = err
		}
	}
	ml.files = nil
	return lastErr
}
