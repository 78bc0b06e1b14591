package recurrence

import (
	"io"
	"log/slog"
)

// EngineConfig holds configuration options for the recurrence engine
type EngineConfig struct {
	// Cache configuration
	CacheEnabled bool
	CacheConfig  CacheConfig

	// DefaultWindowMonths is the ceiling applied when a window has no End.
	DefaultWindowMonths int
	// MaxOccurrences caps the instances a single template may emit per call.
	MaxOccurrences int

	Logger *slog.Logger
}

// DefaultEngineConfig provides sensible defaults for production use
var DefaultEngineConfig = EngineConfig{
	CacheEnabled: true,
	CacheConfig:  DefaultCacheConfig,

	DefaultWindowMonths: DefaultWindowSpan,
	MaxOccurrences:      5000,
}

// DisabledCacheConfig turns off caching entirely
var DisabledCacheConfig = EngineConfig{
	CacheEnabled: false,
	CacheConfig:  CacheConfig{}, // Not used

	DefaultWindowMonths: DefaultWindowSpan,
	MaxOccurrences:      5000,
}

// NewEngineWithConfig creates a new recurrence engine with custom configuration
func NewEngineWithConfig(config EngineConfig) *Engine {
	if config.MaxOccurrences <= 0 {
		config.MaxOccurrences = DefaultEngineConfig.MaxOccurrences
	}
	if config.DefaultWindowMonths <= 0 {
		config.DefaultWindowMonths = DefaultWindowSpan
	}
	if config.Logger == nil {
		config.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	var cache *ExpansionCache
	if config.CacheEnabled {
		cache = NewExpansionCache(config.CacheConfig)
	}

	return &Engine{
		cache:  cache,
		config: config,
		logger: config.Logger,
	}
}
