// Package logging provides config-driven categorized logging for repolens.
// Each subsystem logs through its own category so a noisy area (stream, tools)
// can be silenced without losing the rest. Output goes through a zap core;
// until Initialize is called every logger is a no-op.
package logging

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category represents a log category/system
type Category string

const (
	CategoryBoot      Category = "boot"      // CLI startup, config loading
	CategoryAgent     Category = "agent"     // Analysis orchestration
	CategoryBackend   Category = "backend"   // Backend sessions and transport
	CategoryStream    Category = "stream"    // Event stream consumption
	CategoryTools     Category = "tools"     // Sandboxed tool execution
	CategoryRetry     Category = "retry"     // Validation retry controller
	CategoryScan      Category = "scan"      // Repository scanning
	CategoryTelemetry Category = "telemetry" // Metrics export
)

// Config mirrors the relevant parts of config.LoggingConfig
// to avoid circular imports.
type Config struct {
	DebugMode  bool
	Level      string          // debug, info, warn, error
	Format     string          // json, console
	File       string          // empty = stderr
	Categories map[string]bool // per-category toggles; missing = enabled
}

// Logger is a category-scoped printf-style logger.
type Logger struct {
	category Category
	sugar    *zap.SugaredLogger
}

var (
	mu      sync.RWMutex
	base    = zap.NewNop()
	cfg     Config
	loggers = make(map[Category]*Logger)
	sink    *os.File
)

// Initialize builds the zap core from c. Calling it again replaces the
// previous core and closes any log file it opened.
func Initialize(c Config) error {
	mu.Lock()
	defer mu.Unlock()

	closeSinkLocked()
	loggers = make(map[Category]*Logger)
	cfg = c

	if !c.DebugMode && strings.TrimSpace(c.Level) == "" {
		base = zap.NewNop()
		return nil
	}

	level, err := zapcore.ParseLevel(defaultString(c.Level, "info"))
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", c.Level, err)
	}
	if c.DebugMode {
		level = zapcore.DebugLevel
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	var enc zapcore.Encoder
	if c.Format == "json" {
		enc = zapcore.NewJSONEncoder(encCfg)
	} else {
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		enc = zapcore.NewConsoleEncoder(encCfg)
	}

	var ws zapcore.WriteSyncer = zapcore.Lock(os.Stderr)
	if c.File != "" {
		f, err := os.OpenFile(c.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		sink = f
		ws = zapcore.AddSync(f)
	}

	base = zap.New(zapcore.NewCore(enc, ws, zap.NewAtomicLevelAt(level)))
	base.Named("boot").Debug("logging initialized",
		zap.String("level", level.String()),
		zap.String("format", defaultString(c.Format, "console")),
		zap.Int("category_overrides", len(c.Categories)))
	return nil
}

// UseZap installs an existing zap logger as the backing core. Used by the
// CLI, which builds its own zap logger, and by tests (zaptest/observer).
func UseZap(l *zap.Logger) {
	mu.Lock()
	defer mu.Unlock()
	closeSinkLocked()
	loggers = make(map[Category]*Logger)
	if l == nil {
		l = zap.NewNop()
	}
	base = l
}

// Sync flushes buffered entries and closes the log file, if any.
func Sync() {
	mu.Lock()
	defer mu.Unlock()
	_ = base.Sync()
	closeSinkLocked()
}

func closeSinkLocked() {
	if sink != nil {
		_ = sink.Close()
		sink = nil
	}
}

// IsCategoryEnabled returns whether a specific category is enabled
func IsCategoryEnabled(category Category) bool {
	mu.RLock()
	defer mu.RUnlock()
	return categoryEnabledLocked(category)
}

func categoryEnabledLocked(category Category) bool {
	if cfg.Categories == nil {
		return true
	}
	enabled, exists := cfg.Categories[string(category)]
	if !exists {
		return true
	}
	return enabled
}

// Get returns (or creates) a logger for the given category.
// Disabled categories get a no-op logger.
func Get(category Category) *Logger {
	mu.RLock()
	if l, ok := loggers[category]; ok {
		mu.RUnlock()
		return l
	}
	mu.RUnlock()

	mu.Lock()
	defer mu.Unlock()
	if l, ok := loggers[category]; ok {
		return l
	}

	core := base
	if !categoryEnabledLocked(category) {
		core = zap.NewNop()
	}
	l := &Logger{
		category: category,
		sugar:    core.Named(string(category)).Sugar(),
	}
	loggers[category] = l
	return l
}

// Debug logs a debug message
func (l *Logger) Debug(format string, args ...interface{}) {
	l.sugar.Debugf(format, args...)
}

// Info logs an informational message
func (l *Logger) Info(format string, args ...interface{}) {
	l.sugar.Infof(format, args...)
}

// Warn logs a warning message
func (l *Logger) Warn(format string, args ...interface{}) {
	l.sugar.Warnf(format, args...)
}

// Error logs an error message
func (l *Logger) Error(format string, args ...interface{}) {
	l.sugar.Errorf(format, args...)
}

// With returns a logger carrying structured key/value context.
func (l *Logger) With(keysAndValues ...interface{}) *Logger {
	return &Logger{category: l.category, sugar: l.sugar.With(keysAndValues...)}
}

func defaultString(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

// =============================================================================
// CONVENIENCE FUNCTIONS - Quick logging without getting a logger first
// =============================================================================

func Boot(format string, args ...interface{})      { Get(CategoryBoot).Info(format, args...) }
func BootDebug(format string, args ...interface{}) { Get(CategoryBoot).Debug(format, args...) }
func BootWarn(format string, args ...interface{})  { Get(CategoryBoot).Warn(format, args...) }

func Agent(format string, args ...interface{})      { Get(CategoryAgent).Info(format, args...) }
func AgentDebug(format string, args ...interface{}) { Get(CategoryAgent).Debug(format, args...) }
func AgentWarn(format string, args ...interface{})  { Get(CategoryAgent).Warn(format, args...) }
func AgentError(format string, args ...interface{}) { Get(CategoryAgent).Error(format, args...) }

func Backend(format string, args ...interface{})      { Get(CategoryBackend).Info(format, args...) }
func BackendDebug(format string, args ...interface{}) { Get(CategoryBackend).Debug(format, args...) }
func BackendWarn(format string, args ...interface{})  { Get(CategoryBackend).Warn(format, args...) }
func BackendError(format string, args ...interface{}) { Get(CategoryBackend).Error(format, args...) }

func StreamDebug(format string, args ...interface{}) { Get(CategoryStream).Debug(format, args...) }
func StreamWarn(format string, args ...interface{})  { Get(CategoryStream).Warn(format, args...) }

func Tools(format string, args ...interface{})      { Get(CategoryTools).Info(format, args...) }
func ToolsDebug(format string, args ...interface{}) { Get(CategoryTools).Debug(format, args...) }
func ToolsWarn(format string, args ...interface{})  { Get(CategoryTools).Warn(format, args...) }

func Retry(format string, args ...interface{})      { Get(CategoryRetry).Info(format, args...) }
func RetryDebug(format string, args ...interface{}) { Get(CategoryRetry).Debug(format, args...) }
func RetryWarn(format string, args ...interface{})  { Get(CategoryRetry).Warn(format, args...) }

func Scan(format string, args ...interface{})      { Get(CategoryScan).Info(format, args...) }
func ScanDebug(format string, args ...interface{}) { Get(CategoryScan).Debug(format, args...) }

func Telemetry(format string, args ...interface{})     { Get(CategoryTelemetry).Info(format, args...) }
func TelemetryWarn(format string, args ...interface{}) { Get(CategoryTelemetry).Warn(format, args...) }

// Timer helps measure operation duration
type Timer struct {
	category Category
	op       string
	start    time.Time
}

// StartTimer begins timing an operation
func StartTimer(category Category, operation string) *Timer {
	return &Timer{
		category: category,
		op:       operation,
		start:    time.Now(),
	}
}

// Stop ends the timer and logs the duration
func (t *Timer) Stop() time.Duration {
	elapsed := time.Since(t.start)
	Get(t.category).Debug("%s completed in %v", t.op, elapsed)
	return elapsed
}

// StopWithThreshold logs warning if duration exceeds threshold
func (t *Timer) StopWithThreshold(threshold time.Duration) time.Duration {
	elapsed := time.Since(t.start)
	if elapsed > threshold {
		Get(t.category).Warn("%s took %v (threshold: %v)", t.op, elapsed, threshold)
	} else {
		Get(t.category).Debug("%s completed in %v", t.op, elapsed)
	}
	return elapsed
}
