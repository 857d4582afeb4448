// Package config provides configuration for the ringq pipeline.
//
// Each section has a Default* constructor and a *FromEnv variant that applies
// RINGQ_* environment overrides on top. Load assembles everything. Invalid
// or non-positive override values are ignored and the default is kept.
package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/randomizedcoder/cirqueue/internal/asynclog"
	"github.com/randomizedcoder/cirqueue/internal/dispatch"
)

// =============================================================================
// QUEUES
// =============================================================================

// QueueConfig sizes the dispatch ring and the log chunk queues.
type QueueConfig struct {
	DispatchCapacity int // bytes
	LogQueueCapacity int // chunks per log file
	MaxPayload       int // bytes per work item
}

// DefaultQueue returns the default queue sizing.
func DefaultQueue() QueueConfig {
	return QueueConfig{
		DispatchCapacity: dispatch.DefaultCapacity,
		LogQueueCapacity: asynclog.DefaultQueueCapacity,
		MaxPayload:       dispatch.DefaultMaxPayload,
	}
}

// QueueFromEnv returns queue sizing with environment overrides.
func QueueFromEnv() QueueConfig {
	cfg := DefaultQueue()

	if v := getEnvInt("RINGQ_DISPATCH_CAPACITY", 0); v > 0 {
		cfg.DispatchCapacity = v
	}
	if v := getEnvInt("RINGQ_LOG_QUEUE_CAPACITY", 0); v > 0 {
		cfg.LogQueueCapacity = v
	}
	if v := getEnvInt("RINGQ_MAX_PAYLOAD", 0); v > 0 {
		cfg.MaxPayload = v
	}

	return cfg
}

// =============================================================================
// LOGGING
// =============================================================================

// LogConfig controls the async log file.
type LogConfig struct {
	File          string
	FlushInterval time.Duration
	Level         slog.Level
}

// DefaultLog returns the default log settings.
func DefaultLog() LogConfig {
	return LogConfig{
		File:          "ringq.log",
		FlushInterval: asynclog.DefaultFlushInterval,
		Level:         slog.LevelInfo,
	}
}

// LogFromEnv returns log settings with environment overrides.
func LogFromEnv() LogConfig {
	cfg := DefaultLog()

	if v := os.Getenv("RINGQ_LOG_FILE"); v != "" {
		cfg.File = v
	}
	if v := getEnvDuration("RINGQ_FLUSH_INTERVAL", 0); v > 0 {
		cfg.FlushInterval = v
	}
	if v := os.Getenv("RINGQ_LOG_LEVEL"); v != "" {
		cfg.Level = ParseLevel(v, cfg.Level)
	}

	return cfg
}

// ParseLevel maps debug, info, warn or error (any case) to a slog.Level,
// returning def for anything else.
func ParseLevel(s string, def slog.Level) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return def
	}
	return l
}

// =============================================================================
// DEBUG SERVER
// =============================================================================

// DebugConfig controls the HTTP debug endpoint.
type DebugConfig struct {
	Enabled    bool
	ListenAddr string
}

// DefaultDebug returns the default debug server settings.
func DefaultDebug() DebugConfig {
	return DebugConfig{
		Enabled:    false,
		ListenAddr: "127.0.0.1:9090",
	}
}

// DebugFromEnv returns debug server settings with environment overrides.
func DebugFromEnv() DebugConfig {
	cfg := DefaultDebug()

	if v := os.Getenv("RINGQ_DEBUG_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Enabled = b
		}
	}
	if v := os.Getenv("RINGQ_DEBUG_ADDR"); v != "" {
		cfg.ListenAddr = v
	}

	return cfg
}

// =============================================================================
// PIPELINE
// =============================================================================

// PipelineConfig shapes the demo producer/consumer run.
type PipelineConfig struct {
	Producers   int
	Duration    time.Duration
	PayloadSize int // bytes per generated work item
}

// DefaultPipeline returns the default pipeline shape.
func DefaultPipeline() PipelineConfig {
	return PipelineConfig{
		Producers:   4,
		Duration:    5 * time.Second,
		PayloadSize: 100,
	}
}

// PipelineFromEnv returns the pipeline shape with environment overrides.
func PipelineFromEnv() PipelineConfig {
	cfg := DefaultPipeline()

	if v := getEnvInt("RINGQ_PRODUCERS", 0); v > 0 {
		cfg.Producers = v
	}
	if v := getEnvDuration("RINGQ_DURATION", 0); v > 0 {
		cfg.Duration = v
	}
	if v := getEnvInt("RINGQ_PAYLOAD_SIZE", 0); v > 0 {
		cfg.PayloadSize = v
	}

	return cfg
}

// =============================================================================
// COMPLETE CONFIGURATION
// =============================================================================

// AppConfig holds the complete configuration.
type AppConfig struct {
	Queue    QueueConfig
	Log      LogConfig
	Debug    DebugConfig
	Pipeline PipelineConfig
}

// Load returns the complete configuration with environment overrides.
func Load() AppConfig {
	return AppConfig{
		Queue:    QueueFromEnv(),
		Log:      LogFromEnv(),
		Debug:    DebugFromEnv(),
		Pipeline: PipelineFromEnv(),
	}
}

// Dispatch converts the queue section into dispatcher settings.
func (c AppConfig) Dispatch() dispatch.Config {
	return dispatch.Config{
		Capacity:   c.Queue.DispatchCapacity,
		MaxPayload: c.Queue.MaxPayload,
	}
}

// AsyncLog converts the queue and log sections into manager settings.
func (c AppConfig) AsyncLog() asynclog.Config {
	return asynclog.Config{
		FlushInterval: c.Log.FlushInterval,
		QueueCapacity: c.Queue.LogQueueCapacity,
	}
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

// getEnvDuration accepts Go duration syntax ("250ms", "5s").
func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}
