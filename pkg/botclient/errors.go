package botclient

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// maxErrorBody bounds how much of an error response is read.
const maxErrorBody = 64 << 10

// APIError is the normalized form of every non-2xx API response.
//
// Message is the backend's "detail" field when present, else its
// "message" field, else a generic string built from the HTTP status.
// Body is the parsed JSON error payload, or nil when the body was not
// valid JSON. Callers discriminate on StatusCode.
type APIError struct {
	Message    string
	StatusCode int
	Body       any
}

// Error implements the error interface.
func (e *APIError) Error() string {
	return e.Message
}

// NotFound reports whether the error is a 404.
func (e *APIError) NotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// Unauthorized reports whether the error is an auth failure (401/403).
func (e *APIError) Unauthorized() bool {
	return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
}

// ServerError reports whether the error is a 5xx.
func (e *APIError) ServerError() bool {
	return e.StatusCode >= 500
}

// newAPIError normalizes a non-2xx response. Failing to parse the error
// body must never itself become an error: any parse failure falls back
// to the generic status-line message.
func newAPIError(resp *http.Response) *APIError {
	apiErr := &APIError{
		StatusCode: resp.StatusCode,
		Message:    fmt.Sprintf("API Error: %d %s", resp.StatusCode, http.StatusText(resp.StatusCode)),
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil || len(data) == 0 {
		return apiErr
	}

	var body any
	if err := json.Unmarshal(data, &body); err != nil {
		return apiErr
	}
	apiErr.Body = body

	if fields, ok := body.(map[string]any); ok {
		if detail, ok := fields["detail"].(string); ok && detail != "" {
			apiErr.Message = detail
		} else if msg, ok := fields["message"].(string); ok && msg != "" {
			apiErr.Message = msg
		}
	}
	return apiErr
}
