package model

import (
	"time"
)

// ProviderInfo describes one LLM provider as exposed to clients.
type ProviderInfo struct {
	Available    bool     `json:"available"`
	DefaultModel string   `json:"default_model,omitempty"`
	Models       []string `json:"models,omitempty"`
}

// BotConfig is the bot capability document served to clients so they
// can drive provider and model selection.
type BotConfig struct {
	DefaultProvider    string                  `json:"default_provider"`
	AvailableProviders map[string]ProviderInfo `json:"available_providers"`
	Features           map[string]bool         `json:"features,omitempty"`
}

// Provider returns the info for a named provider.
func (c *BotConfig) Provider(name string) (ProviderInfo, bool) {
	info, ok := c.AvailableProviders[name]
	return info, ok
}

// ServiceStats is a lightweight runtime snapshot for operators.
type ServiceStats struct {
	Service      string          `json:"service"`
	Timestamp    time.Time       `json:"timestamp"`
	TotalThreads int             `json:"total_threads"`
	Providers    map[string]bool `json:"providers"`
	UptimeSecs   int64           `json:"uptime_seconds"`
}
