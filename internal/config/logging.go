package config

import "proofread/internal/logging"

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level      string          `yaml:"level"`                // debug, info, warn, error
	Format     string          `yaml:"format"`               // json, console
	File       string          `yaml:"file,omitempty"`       // empty = stderr
	DebugMode  bool            `yaml:"debug_mode"`           // forces debug level
	Categories map[string]bool `yaml:"categories,omitempty"` // Per-category toggles
}

// Options converts the section into logging options.
func (c LoggingConfig) Options() logging.Options {
	opts := logging.Options{
		Level:      c.Level,
		Format:     c.Format,
		DebugMode:  c.DebugMode,
		Categories: c.Categories,
	}
	if c.File != "" {
		opts.Outputs = []string{c.File}
	}
	return opts
}

// IsCategoryEnabled returns whether logging is enabled for a category.
// Categories not listed are enabled.
func (c LoggingConfig) IsCategoryEnabled(category string) bool {
	if c.Categories == nil {
		return true
	}
	enabled, exists := c.Categories[category]
	if !exists {
		return true // Enable by default if not specified
	}
	return enabled
}
