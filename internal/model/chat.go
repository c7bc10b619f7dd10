package model

// ChatRequest is the request to post a query to the bot.
//
// Model distinguishes absent from explicit null: a nil pointer means
// the caller left provider default selection in place, while a pointer
// to the empty string is rejected by validation.
type ChatRequest struct {
	ThreadID    string   `json:"thread_id,omitempty"`
	Query       string   `json:"query"`
	Provider    string   `json:"provider,omitempty"`
	Model       *string  `json:"model,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
	MaxTokens   *int     `json:"max_tokens,omitempty"`
}

// ToggleRequest marks one response variant as the preferred answer.
// Preferred defaults to true when omitted.
type ToggleRequest struct {
	ThreadID    string `json:"thread_id"`
	ResponseKey string `json:"response_key"`
	Preferred   *bool  `json:"preferred,omitempty"`
}

// PreferenceAck acknowledges a preference switch.
type PreferenceAck struct {
	Success     bool   `json:"success"`
	ThreadID    string `json:"thread_id"`
	ResponseKey string `json:"response_key"`
	Preferred   bool   `json:"preferred"`
}
