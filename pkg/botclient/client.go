// Package botclient is a Go client for the bot platform REST API.
//
// The client is stateless: every operation performs exactly one HTTP
// round trip, reads the bearer token from its CredentialProvider at
// call time, and applies no retries, timeouts or caching of its own.
// Callers control deadlines through the request context and the
// injected http.Client.
//
// Every non-2xx response is normalized into an *APIError carrying the
// backend's error message, the HTTP status code and the parsed error
// body; transport-level failures are returned wrapped instead.
package botclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/trivium-ai/bot-platform/pkg/logger"
)

const basePath = "/api/v1/bot"

// Client calls the bot platform API.
type Client struct {
	baseURL    string
	creds      CredentialProvider
	httpClient *http.Client
	logger     *logger.Logger
	userAgent  string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets the http.Client used for requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithLogger sets the client logger.
func WithLogger(log *logger.Logger) Option {
	return func(c *Client) {
		c.logger = log
	}
}

// WithUserAgent sets the User-Agent header sent with requests.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// New creates a client for the API at baseURL. creds supplies the
// bearer token per call; a nil provider sends unauthenticated requests.
func New(baseURL string, creds CredentialProvider, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		creds:      creds,
		httpClient: http.DefaultClient,
		logger:     logger.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ListThreads returns one page of the caller's threads, newest update
// first. limit bounds the page size and skip offsets into the listing;
// both must be non-negative.
func (c *Client) ListThreads(ctx context.Context, limit, skip int) (*ThreadPage, error) {
	if limit < 0 || skip < 0 {
		return nil, fmt.Errorf("limit and skip must be non-negative (limit=%d, skip=%d)", limit, skip)
	}

	var page ThreadPage
	path := fmt.Sprintf("%s/threads?limit=%d&skip=%d", basePath, limit, skip)
	if err := c.do(ctx, http.MethodGet, path, nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// GetThread returns a single thread. An unknown id yields an *APIError
// with StatusCode 404.
func (c *Client) GetThread(ctx context.Context, threadID string) (*Thread, error) {
	if threadID == "" {
		return nil, fmt.Errorf("thread id is required")
	}

	var thread Thread
	path := basePath + "/threads/" + url.PathEscape(threadID)
	if err := c.do(ctx, http.MethodGet, path, nil, &thread); err != nil {
		return nil, err
	}
	return &thread, nil
}

// PostMessage sends a query to the bot and returns the resulting
// thread. When req.Model is nil the model field is absent from the
// transmitted payload and the provider default applies.
func (c *Client) PostMessage(ctx context.Context, req *ChatRequest) (*Thread, error) {
	if req == nil || req.Query == "" {
		return nil, fmt.Errorf("query is required")
	}

	var thread Thread
	if err := c.do(ctx, http.MethodPost, basePath+"/chat", req, &thread); err != nil {
		return nil, err
	}
	return &thread, nil
}

// MarkPreferredResponse marks one response variant as the preferred
// answer for a thread.
func (c *Client) MarkPreferredResponse(ctx context.Context, threadID, responseKey string) (*PreferenceAck, error) {
	if threadID == "" || responseKey == "" {
		return nil, fmt.Errorf("thread id and response key are required")
	}

	var ack PreferenceAck
	body := toggleRequest{ThreadID: threadID, ResponseKey: responseKey, Preferred: true}
	if err := c.do(ctx, http.MethodPost, basePath+"/switch_response", body, &ack); err != nil {
		return nil, err
	}
	return &ack, nil
}

// BotConfig retrieves the provider/model availability document.
func (c *Client) BotConfig(ctx context.Context) (*BotConfig, error) {
	var cfg BotConfig
	if err := c.do(ctx, http.MethodGet, basePath+"/config", nil, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Stats retrieves the backend's runtime snapshot.
func (c *Client) Stats(ctx context.Context) (*ServiceStats, error) {
	var stats ServiceStats
	if err := c.do(ctx, http.MethodGet, basePath+"/conversation_stats", nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// do performs one round trip: marshal body, attach the current bearer
// token, send, and either decode a 2xx response into out or normalize
// the failure into an *APIError.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reqBody *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	} else {
		reqBody = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	c.authorize(ctx, req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newAPIError(resp)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// authorize attaches the bearer token to req. A missing or failing
// credential is logged and the request proceeds unauthenticated; the
// backend answers it with a 401.
func (c *Client) authorize(ctx context.Context, req *http.Request) {
	if c.creds == nil {
		c.logger.Warn("no credential provider configured, sending unauthenticated request",
			zap.String("path", req.URL.Path),
		)
		return
	}

	token, err := c.creds.Token(ctx)
	if err != nil {
		c.logger.Warn("failed to read credential, sending unauthenticated request",
			zap.String("path", req.URL.Path),
			zap.Error(err),
		)
		return
	}
	if token == "" {
		c.logger.Warn("empty credential, sending unauthenticated request",
			zap.String("path", req.URL.Path),
		)
		return
	}

	req.Header.Set("Authorization", "Bearer "+token)
}
