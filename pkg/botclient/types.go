package botclient

import (
	"time"
)

// Thread is a conversation thread as returned by the bot API. Responses
// holds the latest variant per response key; SubQueries is the full
// interaction history.
type Thread struct {
	ThreadID    string            `json:"thread_id"`
	Query       string            `json:"query"`
	Responses   map[string]string `json:"responses"`
	SubQueries  []SubQuery        `json:"sub_queries"`
	TimeCreated time.Time         `json:"time_created"`
	TimeUpdated time.Time         `json:"time_updated"`
	Metadata    *ThreadMetadata   `json:"metadata,omitempty"`
}

// ThreadMetadata carries ownership and bookkeeping for a thread.
type ThreadMetadata struct {
	UserID            string          `json:"user_id"`
	Provider          string          `json:"provider"`
	Model             string          `json:"model,omitempty"`
	TotalInteractions int             `json:"total_interactions"`
	WasContinuation   bool            `json:"was_continuation,omitempty"`
	ProcessingMethod  string          `json:"processing_method,omitempty"`
	Preferences       map[string]bool `json:"preferences,omitempty"`
}

// SubQuery is a single interaction within a thread.
type SubQuery struct {
	SubQuery         string    `json:"sub_query"`
	SubQueryResponse string    `json:"sub_query_response"`
	TimeCreated      time.Time `json:"time_created"`
}

// ThreadSummary is the listing projection of a thread.
type ThreadSummary struct {
	ThreadID         string    `json:"thread_id"`
	Query            string    `json:"query"`
	TimeCreated      time.Time `json:"time_created"`
	TimeUpdated      time.Time `json:"time_updated"`
	InteractionCount int       `json:"interaction_count"`
	LastInteraction  *SubQuery `json:"last_interaction,omitempty"`
}

// ThreadPage is one page of threads, newest update first.
type ThreadPage struct {
	Threads []ThreadSummary `json:"threads"`
	Total   int             `json:"total"`
	Limit   int             `json:"limit"`
	Skip    int             `json:"skip"`
	HasMore bool            `json:"has_more"`
}

// ChatRequest posts a query to the bot.
//
// Model is a pointer so that an unset model is absent from the
// serialized payload rather than present as null; the server treats the
// two differently from an explicit model choice.
type ChatRequest struct {
	ThreadID    string   `json:"thread_id,omitempty"`
	Query       string   `json:"query"`
	Provider    string   `json:"provider,omitempty"`
	Model       *string  `json:"model,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
	MaxTokens   *int     `json:"max_tokens,omitempty"`
}

// PreferenceAck acknowledges a preference switch.
type PreferenceAck struct {
	Success     bool   `json:"success"`
	ThreadID    string `json:"thread_id"`
	ResponseKey string `json:"response_key"`
	Preferred   bool   `json:"preferred"`
}

// ProviderInfo describes one backend provider.
type ProviderInfo struct {
	Available    bool     `json:"available"`
	DefaultModel string   `json:"default_model,omitempty"`
	Models       []string `json:"models,omitempty"`
}

// BotConfig is the provider/model availability document served by the
// backend. Selection is driven off this through a Selector.
type BotConfig struct {
	DefaultProvider    string                  `json:"default_provider"`
	AvailableProviders map[string]ProviderInfo `json:"available_providers"`
	Features           map[string]bool         `json:"features,omitempty"`
}

// ServiceStats is the backend's runtime snapshot.
type ServiceStats struct {
	Service      string          `json:"service"`
	Timestamp    time.Time       `json:"timestamp"`
	TotalThreads int             `json:"total_threads"`
	Providers    map[string]bool `json:"providers"`
	UptimeSecs   int64           `json:"uptime_seconds"`
}

type toggleRequest struct {
	ThreadID    string `json:"thread_id"`
	ResponseKey string `json:"response_key"`
	Preferred   bool   `json:"preferred"`
}
