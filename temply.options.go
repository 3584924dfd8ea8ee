package temply

import (
	"go.uber.org/zap"
)

// Default configuration values
const (
	DefaultMaxDepth       = 100
	DefaultParseCacheSize = 256
)

// Option is a functional option for configuring the Engine.
type Option func(*engineConfig)

// engineConfig holds the internal configuration for an Engine.
type engineConfig struct {
	maxDepth       int
	parseCacheSize int
	logger         *zap.Logger
	tags           []Tag
}

// defaultEngineConfig returns the default engine configuration.
func defaultEngineConfig() *engineConfig {
	return &engineConfig{
		maxDepth:       DefaultMaxDepth,
		parseCacheSize: DefaultParseCacheSize,
		logger:         nil,
	}
}

// WithMaxDepth sets the maximum nesting depth for rendering.
// Use 0 for unlimited depth.
// Default: 100
func WithMaxDepth(depth int) Option {
	return func(c *engineConfig) {
		c.maxDepth = depth
	}
}

// WithParseCacheSize sets the capacity of the parsed-template cache.
// Use 0 to disable caching.
// Default: 256
func WithParseCacheSize(size int) Option {
	return func(c *engineConfig) {
		c.parseCacheSize = size
	}
}

// WithLogger sets the logger for the engine.
// Default: nil (no logging)
func WithLogger(logger *zap.Logger) Option {
	return func(c *engineConfig) {
		c.logger = logger
	}
}

// WithTags registers custom statement tags at construction time.
// Registration failures surface from New.
func WithTags(tags ...Tag) Option {
	return func(c *engineConfig) {
		c.tags = append(c.tags, tags...)
	}
}
