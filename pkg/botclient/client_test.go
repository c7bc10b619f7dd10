package botclient

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetThreadSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/v1/bot/threads/thread_abc123_1718000000", r.URL.Path)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"thread_id": "thread_abc123_1718000000",
			"query":     "what is raft?",
			"responses": map[string]string{
				"query_A": "answer a",
				"query_B": "answer b",
				"query_C": "answer c",
			},
			"time_created": time.Now().UTC(),
			"time_updated": time.Now().UTC(),
		})
	}))
	defer srv.Close()

	c := New(srv.URL, StaticToken("test-token"))
	thread, err := c.GetThread(context.Background(), "thread_abc123_1718000000")
	require.NoError(t, err)
	assert.Equal(t, "thread_abc123_1718000000", thread.ThreadID)
	assert.Equal(t, "what is raft?", thread.Query)
	assert.Len(t, thread.Responses, 3)
}

func TestErrorMessageFromDetail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"detail":"Thread not found"}`))
	}))
	defer srv.Close()

	c := New(srv.URL, StaticToken("t"))
	_, err := c.GetThread(context.Background(), "abc")
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Equal(t, "Thread not found", apiErr.Message)
	assert.True(t, apiErr.NotFound())
	require.NotNil(t, apiErr.Body)
	assert.Equal(t, map[string]any{"detail": "Thread not found"}, apiErr.Body)
}

func TestErrorMessageFromMessageField(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"message":"query cannot be empty"}`))
	}))
	defer srv.Close()

	c := New(srv.URL, StaticToken("t"))
	_, err := c.ListThreads(context.Background(), 10, 0)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "query cannot be empty", apiErr.Message)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
}

func TestErrorFallbackOnUnparseableBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("<html>bad gateway</html>"))
	}))
	defer srv.Close()

	c := New(srv.URL, StaticToken("t"))
	_, err := c.BotConfig(context.Background())

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "API Error: 502 Bad Gateway", apiErr.Message)
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	assert.Nil(t, apiErr.Body)
	assert.True(t, apiErr.ServerError())
}

func TestErrorFallbackOnEmptyBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := New(srv.URL, StaticToken("t"))
	_, err := c.BotConfig(context.Background())

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "API Error: 401 Unauthorized", apiErr.Message)
	assert.Nil(t, apiErr.Body)
	assert.True(t, apiErr.Unauthorized())
}

func TestPostMessageOmitsModelWhenUnset(t *testing.T) {
	var raw map[string]json.RawMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := io.ReadAll(r.Body)
		assert.NoError(t, err)
		assert.NoError(t, json.Unmarshal(data, &raw))
		w.Write([]byte(`{"thread_id":"thread_x_1"}`))
	}))
	defer srv.Close()

	c := New(srv.URL, StaticToken("t"))
	_, err := c.PostMessage(context.Background(), &ChatRequest{
		Query:    "hello",
		Provider: "ollama",
	})
	require.NoError(t, err)

	_, present := raw["model"]
	assert.False(t, present, "model key must be absent, not null")
	assert.JSONEq(t, `"hello"`, string(raw["query"]))
	assert.JSONEq(t, `"ollama"`, string(raw["provider"]))
}

func TestPostMessageIncludesModelWhenSet(t *testing.T) {
	var raw map[string]json.RawMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(data, &raw))
		w.Write([]byte(`{"thread_id":"thread_x_1"}`))
	}))
	defer srv.Close()

	model := "mistral"
	c := New(srv.URL, StaticToken("t"))
	_, err := c.PostMessage(context.Background(), &ChatRequest{
		Query:    "hello",
		Provider: "ollama",
		Model:    &model,
	})
	require.NoError(t, err)

	require.Contains(t, raw, "model")
	assert.JSONEq(t, `"mistral"`, string(raw["model"]))
}

func TestListThreadsQueryString(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.RawQuery
		w.Write([]byte(`{"threads":[],"total":0,"limit":50,"skip":0,"has_more":false}`))
	}))
	defer srv.Close()

	c := New(srv.URL, StaticToken("t"))
	page, err := c.ListThreads(context.Background(), 50, 0)
	require.NoError(t, err)
	assert.Equal(t, "limit=50&skip=0", gotQuery)
	assert.False(t, page.HasMore)
}

func TestListThreadsRejectsNegativeInputs(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer srv.Close()

	c := New(srv.URL, StaticToken("t"))
	_, err := c.ListThreads(context.Background(), -1, 0)
	assert.Error(t, err)
	_, err = c.ListThreads(context.Background(), 10, -5)
	assert.Error(t, err)
	assert.Zero(t, calls, "no request may be sent for invalid input")
}

func TestMarkPreferredResponseBody(t *testing.T) {
	var raw map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/bot/switch_response", r.URL.Path)
		data, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(data, &raw))
		w.Write([]byte(`{"success":true,"thread_id":"thread_x_1","response_key":"query_B","preferred":true}`))
	}))
	defer srv.Close()

	c := New(srv.URL, StaticToken("t"))
	ack, err := c.MarkPreferredResponse(context.Background(), "thread_x_1", "query_B")
	require.NoError(t, err)

	assert.Equal(t, map[string]any{
		"thread_id":    "thread_x_1",
		"response_key": "query_B",
		"preferred":    true,
	}, raw)
	assert.True(t, ack.Success)
	assert.Equal(t, "query_B", ack.ResponseKey)
}

func TestTokenReadPerCall(t *testing.T) {
	var seen []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, r.Header.Get("Authorization"))
		w.Write([]byte(`{"threads":[],"total":0,"limit":1,"skip":0,"has_more":false}`))
	}))
	defer srv.Close()

	calls := 0
	creds := TokenFunc(func(context.Context) (string, error) {
		calls++
		if calls == 1 {
			return "first", nil
		}
		return "second", nil
	})

	c := New(srv.URL, creds)
	_, err := c.ListThreads(context.Background(), 1, 0)
	require.NoError(t, err)
	_, err = c.ListThreads(context.Background(), 1, 0)
	require.NoError(t, err)

	assert.Equal(t, []string{"Bearer first", "Bearer second"}, seen)
}

func TestMissingCredentialProceedsUnauthenticated(t *testing.T) {
	var gotAuth string
	requests := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		gotAuth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"detail":"Missing authorization header"}`))
	}))
	defer srv.Close()

	creds := TokenFunc(func(context.Context) (string, error) {
		return "", errors.New("keychain locked")
	})

	c := New(srv.URL, creds)
	_, err := c.BotConfig(context.Background())

	// The request is still attempted without a token; the backend's 401
	// surfaces as a normal APIError.
	assert.Equal(t, 1, requests)
	assert.Empty(t, gotAuth)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
}

func TestNetworkFailureIsNotAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // connection refused from here on

	c := New(srv.URL, StaticToken("t"))
	_, err := c.BotConfig(context.Background())
	require.Error(t, err)

	var apiErr *APIError
	assert.False(t, errors.As(err, &apiErr), "transport failures must not masquerade as API errors")
}

func TestBotConfigDecoding(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/bot/config", r.URL.Path)
		w.Write([]byte(`{
			"default_provider": "ollama",
			"available_providers": {
				"ollama": {"available": true, "default_model": "llama3", "models": ["llama3", "mistral"]},
				"openai": {"available": false}
			}
		}`))
	}))
	defer srv.Close()

	c := New(srv.URL, StaticToken("t"))
	cfg, err := c.BotConfig(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "ollama", cfg.DefaultProvider)
	require.Contains(t, cfg.AvailableProviders, "openai")
	assert.False(t, cfg.AvailableProviders["openai"].Available)
	assert.Equal(t, []string{"llama3", "mistral"}, cfg.AvailableProviders["ollama"].Models)
}
