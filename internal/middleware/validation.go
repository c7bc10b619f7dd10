package middleware

import (
	"errors"
	"strings"
	"unicode/utf8"
)

// Request field bounds, matching the request model specification.
const (
	maxQueryLength       = 8192
	maxThreadIDLength    = 128
	maxResponseKeyLength = 64
	minTemperature       = 0.0
	maxTemperature       = 2.0
	minMaxTokens         = 100
	maxMaxTokens         = 4000
)

// ValidateQuery validates a chat query.
func ValidateQuery(query string) error {
	if strings.TrimSpace(query) == "" {
		return errors.New("query cannot be empty")
	}
	if len(query) > maxQueryLength {
		return errors.New("query exceeds maximum length")
	}
	if !utf8.ValidString(query) {
		return errors.New("query must be valid UTF-8")
	}
	return nil
}

// ValidateThreadID validates a thread ID. IDs are opaque but must be
// printable and short enough to embed in paths and event subjects.
func ValidateThreadID(id string) error {
	if id == "" {
		return errors.New("thread ID cannot be empty")
	}
	if len(id) > maxThreadIDLength {
		return errors.New("thread ID exceeds maximum length")
	}
	for _, r := range id {
		if r <= ' ' || r == 0x7f {
			return errors.New("thread ID contains invalid characters")
		}
	}
	return nil
}

// ValidateResponseKey validates a response variant key.
func ValidateResponseKey(key string) error {
	if key == "" {
		return errors.New("response key cannot be empty")
	}
	if len(key) > maxResponseKeyLength {
		return errors.New("response key exceeds maximum length")
	}
	return nil
}

// ValidateTemperature validates an optional temperature override.
func ValidateTemperature(t *float64) error {
	if t == nil {
		return nil
	}
	if *t < minTemperature || *t > maxTemperature {
		return errors.New("temperature must be between 0.0 and 2.0")
	}
	return nil
}

// ValidateMaxTokens validates an optional max token override.
func ValidateMaxTokens(n *int) error {
	if n == nil {
		return nil
	}
	if *n < minMaxTokens || *n > maxMaxTokens {
		return errors.New("max_tokens must be between 100 and 4000")
	}
	return nil
}
