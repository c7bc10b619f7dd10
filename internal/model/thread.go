// Package model defines data structures for the bot platform.
package model

import (
	"time"
)

// Response keys for the three perspective variants generated per query.
const (
	ResponseKeyA = "query_A"
	ResponseKeyB = "query_B"
	ResponseKeyC = "query_C"
)

// ResponseKeys lists the variant keys in generation order.
var ResponseKeys = []string{ResponseKeyA, ResponseKeyB, ResponseKeyC}

// Thread is a conversation thread document. A thread holds the latest
// response variants plus the full interaction history in SubQueries.
type Thread struct {
	ThreadID    string            `json:"thread_id"`
	Query       string            `json:"query"`
	Responses   map[string]string `json:"responses"`
	SubQueries  []SubQuery        `json:"sub_queries"`
	TimeCreated time.Time         `json:"time_created"`
	TimeUpdated time.Time         `json:"time_updated"`
	Metadata    *ThreadMetadata   `json:"metadata,omitempty"`
}

// SubQuery is a single interaction within a thread.
type SubQuery struct {
	SubQuery         string                      `json:"sub_query"`
	SubQueryResponse string                      `json:"sub_query_response"`
	TimeCreated      time.Time                   `json:"time_created"`
	ResponseMetadata map[string]ResponseMetadata `json:"response_metadata,omitempty"`
}

// ResponseMetadata records how a single response variant was produced.
type ResponseMetadata struct {
	Provider    string  `json:"provider"`
	Model       string  `json:"model"`
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
	DurationMs  int64   `json:"duration_ms"`
	TokensIn    int     `json:"tokens_in,omitempty"`
	TokensOut   int     `json:"tokens_out,omitempty"`
	Error       string  `json:"error,omitempty"`
}

// ThreadMetadata holds ownership and bookkeeping for a thread.
type ThreadMetadata struct {
	UserID            string          `json:"user_id"`
	Provider          string          `json:"provider"`
	Model             string          `json:"model,omitempty"`
	TotalInteractions int             `json:"total_interactions"`
	WasContinuation   bool            `json:"was_continuation,omitempty"`
	ProcessingMethod  string          `json:"processing_method,omitempty"`
	Preferences       map[string]bool `json:"preferences,omitempty"`
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

// ThreadPage is one page of a user's threads, newest first.
type ThreadPage struct {
	Threads []ThreadSummary `json:"threads"`
	Total   int             `json:"total"`
	Limit   int             `json:"limit"`
	Skip    int             `json:"skip"`
	HasMore bool            `json:"has_more"`
}
