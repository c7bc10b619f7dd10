package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trivium-ai/bot-platform/internal/llm"
	"github.com/trivium-ai/bot-platform/internal/model"
	"github.com/trivium-ai/bot-platform/internal/store"
	"github.com/trivium-ai/bot-platform/pkg/logger"
)

// fakeLLM is a scriptable llm.Client for service tests.
type fakeLLM struct {
	name       string
	available  bool
	defModel   string
	models     []string
	completeFn func(ctx context.Context, req *llm.CompletionRequest) (*llm.CompletionResponse, error)
}

func (f *fakeLLM) Complete(ctx context.Context, req *llm.CompletionRequest) (*llm.CompletionResponse, error) {
	return f.completeFn(ctx, req)
}
func (f *fakeLLM) Name() string         { return f.name }
func (f *fakeLLM) DefaultModel() string { return f.defModel }
func (f *fakeLLM) Models() []string     { return f.models }
func (f *fakeLLM) Available() bool      { return f.available }

// captureEvents records published thread events.
type captureEvents struct {
	events []*model.ThreadEvent
}

func (c *captureEvents) PublishThreadEvent(_ context.Context, e *model.ThreadEvent) error {
	c.events = append(c.events, e)
	return nil
}

// echoClient answers every prompt. The hyde reformulation prompt gets
// three numbered questions; everything else gets an echo of the prompt.
func echoClient() *fakeLLM {
	return &fakeLLM{
		name:      llm.ProviderOllama,
		available: true,
		defModel:  "llama3",
		models:    []string{"llama3", "mistral"},
		completeFn: func(_ context.Context, req *llm.CompletionRequest) (*llm.CompletionResponse, error) {
			prompt := req.Messages[0].Content
			if strings.Contains(prompt, "three numbered questions") {
				return &llm.CompletionResponse{Content: "1. essence?\n2. systems?\n3. application?"}, nil
			}
			return &llm.CompletionResponse{
				Content:   "answer to: " + prompt,
				Model:     req.Model,
				TokensIn:  10,
				TokensOut: 20,
			}, nil
		},
	}
}

func newTestService(t *testing.T, clients ...llm.Client) (*BotService, *captureEvents) {
	t.Helper()

	ts, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { ts.Close() })

	registry := llm.NewRegistry()
	for _, c := range clients {
		registry.Register(c)
	}

	events := &captureEvents{}
	svc := NewBotService(ts, registry, events, logger.NewNop(), llm.ProviderOllama)
	return svc, events
}

func TestProcessChatCreatesThread(t *testing.T) {
	svc, events := newTestService(t, echoClient())
	ctx := context.Background()

	thread, err := svc.ProcessChat(ctx, "user-1", &model.ChatRequest{Query: "what is raft?"})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(thread.ThreadID, "thread_"))
	assert.Equal(t, "what is raft?", thread.Query)
	require.Len(t, thread.Responses, 3)
	for _, key := range model.ResponseKeys {
		assert.Contains(t, thread.Responses, key)
		assert.Contains(t, thread.Responses[key], "answer to:")
	}

	require.Len(t, thread.SubQueries, 1)
	assert.Equal(t, "what is raft?", thread.SubQueries[0].SubQuery)
	assert.Equal(t, thread.Responses[model.ResponseKeyA], thread.SubQueries[0].SubQueryResponse)
	require.NotNil(t, thread.SubQueries[0].ResponseMetadata)
	assert.InDelta(t, 0.8, thread.SubQueries[0].ResponseMetadata[model.ResponseKeyB].Temperature, 1e-9)

	require.NotNil(t, thread.Metadata)
	assert.Equal(t, "user-1", thread.Metadata.UserID)
	assert.Equal(t, llm.ProviderOllama, thread.Metadata.Provider)
	assert.Equal(t, "llama3", thread.Metadata.Model)
	assert.Equal(t, 1, thread.Metadata.TotalInteractions)
	assert.Equal(t, "hyde", thread.Metadata.ProcessingMethod)

	require.Len(t, events.events, 1)
	assert.Equal(t, model.EventTypeThreadCreated, events.events[0].Type)
}

func TestProcessChatRejectsUnknownProvider(t *testing.T) {
	svc, _ := newTestService(t, echoClient())
	_, err := svc.ProcessChat(context.Background(), "user-1", &model.ChatRequest{
		Query:    "hi",
		Provider: "bedrock",
	})
	assert.ErrorIs(t, err, ErrProviderUnknown)
}

func TestProcessChatRejectsUnavailableProvider(t *testing.T) {
	down := echoClient()
	down.name = llm.ProviderOpenAI
	down.available = false

	svc, events := newTestService(t, echoClient(), down)
	_, err := svc.ProcessChat(context.Background(), "user-1", &model.ChatRequest{
		Query:    "hi",
		Provider: llm.ProviderOpenAI,
	})
	assert.ErrorIs(t, err, ErrProviderUnavailable)
	assert.Empty(t, events.events)
}

func TestProcessChatContinuesThread(t *testing.T) {
	svc, events := newTestService(t, echoClient())
	ctx := context.Background()

	first, err := svc.ProcessChat(ctx, "user-1", &model.ChatRequest{Query: "first question"})
	require.NoError(t, err)

	second, err := svc.ProcessChat(ctx, "user-1", &model.ChatRequest{
		ThreadID: first.ThreadID,
		Query:    "follow-up question",
	})
	require.NoError(t, err)

	assert.Equal(t, first.ThreadID, second.ThreadID)
	assert.Equal(t, "first question", second.Query, "original query is preserved on continuation")
	require.Len(t, second.SubQueries, 2)
	assert.Equal(t, "follow-up question", second.SubQueries[1].SubQuery)
	assert.Equal(t, 2, second.Metadata.TotalInteractions)
	assert.True(t, second.Metadata.WasContinuation)

	require.Len(t, events.events, 2)
	assert.Equal(t, model.EventTypeThreadUpdated, events.events[1].Type)
}

func TestProcessChatDeniesForeignThread(t *testing.T) {
	svc, _ := newTestService(t, echoClient())
	ctx := context.Background()

	thread, err := svc.ProcessChat(ctx, "user-1", &model.ChatRequest{Query: "mine"})
	require.NoError(t, err)

	_, err = svc.ProcessChat(ctx, "user-2", &model.ChatRequest{
		ThreadID: thread.ThreadID,
		Query:    "not yours",
	})
	assert.ErrorIs(t, err, ErrAccessDenied)
}

func TestProcessChatVariantFailureDegrades(t *testing.T) {
	broken := echoClient()
	broken.completeFn = func(_ context.Context, req *llm.CompletionRequest) (*llm.CompletionResponse, error) {
		return nil, errors.New("model overloaded")
	}

	svc, _ := newTestService(t, broken)
	thread, err := svc.ProcessChat(context.Background(), "user-1", &model.ChatRequest{Query: "hi"})
	require.NoError(t, err, "variant failures must not fail the request")

	for _, key := range model.ResponseKeys {
		assert.Contains(t, thread.Responses[key], "I apologize")
		meta := thread.SubQueries[0].ResponseMetadata[key]
		assert.Equal(t, "model overloaded", meta.Error)
	}
}

func TestProcessChatHonorsModelOverride(t *testing.T) {
	var seenModels []string
	client := echoClient()
	base := client.completeFn
	client.completeFn = func(ctx context.Context, req *llm.CompletionRequest) (*llm.CompletionResponse, error) {
		seenModels = append(seenModels, req.Model)
		return base(ctx, req)
	}

	svc, _ := newTestService(t, client)
	override := "mistral"
	thread, err := svc.ProcessChat(context.Background(), "user-1", &model.ChatRequest{
		Query: "hi",
		Model: &override,
	})
	require.NoError(t, err)
	assert.Equal(t, "mistral", thread.Metadata.Model)
	for _, m := range seenModels {
		assert.Equal(t, "mistral", m)
	}
}

func TestGetThreadNotFound(t *testing.T) {
	svc, _ := newTestService(t, echoClient())
	_, err := svc.GetThread(context.Background(), "user-1", "thread_missing_1")
	assert.ErrorIs(t, err, ErrThreadNotFound)
}

func TestGetThreadOwnership(t *testing.T) {
	svc, _ := newTestService(t, echoClient())
	ctx := context.Background()

	thread, err := svc.ProcessChat(ctx, "user-1", &model.ChatRequest{Query: "hi"})
	require.NoError(t, err)

	_, err = svc.GetThread(ctx, "user-2", thread.ThreadID)
	assert.ErrorIs(t, err, ErrAccessDenied)

	got, err := svc.GetThread(ctx, "user-1", thread.ThreadID)
	require.NoError(t, err)
	assert.Equal(t, thread.ThreadID, got.ThreadID)
}

func TestListThreadsPaging(t *testing.T) {
	svc, _ := newTestService(t, echoClient())
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := svc.ProcessChat(ctx, "user-1", &model.ChatRequest{Query: "q"})
		require.NoError(t, err)
	}

	page, err := svc.ListThreads(ctx, "user-1", 2, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)
	assert.Len(t, page.Threads, 2)
	assert.True(t, page.HasMore)
	require.NotNil(t, page.Threads[0].LastInteraction)

	page, err = svc.ListThreads(ctx, "user-1", 2, 2)
	require.NoError(t, err)
	assert.Len(t, page.Threads, 1)
	assert.False(t, page.HasMore)
}

func TestSwitchPreference(t *testing.T) {
	svc, events := newTestService(t, echoClient())
	ctx := context.Background()

	thread, err := svc.ProcessChat(ctx, "user-1", &model.ChatRequest{Query: "hi"})
	require.NoError(t, err)

	ack, err := svc.SwitchPreference(ctx, "user-1", &model.ToggleRequest{
		ThreadID:    thread.ThreadID,
		ResponseKey: model.ResponseKeyB,
	})
	require.NoError(t, err)
	assert.True(t, ack.Success)
	assert.True(t, ack.Preferred)
	assert.Equal(t, model.ResponseKeyB, ack.ResponseKey)

	got, err := svc.GetThread(ctx, "user-1", thread.ThreadID)
	require.NoError(t, err)
	assert.True(t, got.Metadata.Preferences[model.ResponseKeyB])
	assert.True(t, got.TimeUpdated.After(thread.TimeCreated) || got.TimeUpdated.Equal(thread.TimeCreated))

	last := events.events[len(events.events)-1]
	assert.Equal(t, model.EventTypePreference, last.Type)
	assert.Equal(t, model.ResponseKeyB, last.ResponseKey)
}

func TestSwitchPreferenceClear(t *testing.T) {
	svc, _ := newTestService(t, echoClient())
	ctx := context.Background()

	thread, err := svc.ProcessChat(ctx, "user-1", &model.ChatRequest{Query: "hi"})
	require.NoError(t, err)

	off := false
	ack, err := svc.SwitchPreference(ctx, "user-1", &model.ToggleRequest{
		ThreadID:    thread.ThreadID,
		ResponseKey: model.ResponseKeyA,
		Preferred:   &off,
	})
	require.NoError(t, err)
	assert.False(t, ack.Preferred)
}

func TestSwitchPreferenceUnknownThread(t *testing.T) {
	svc, _ := newTestService(t, echoClient())
	_, err := svc.SwitchPreference(context.Background(), "user-1", &model.ToggleRequest{
		ThreadID:    "thread_missing_1",
		ResponseKey: model.ResponseKeyA,
	})
	assert.ErrorIs(t, err, ErrThreadNotFound)
}

func TestSwitchPreferenceForeignThread(t *testing.T) {
	svc, _ := newTestService(t, echoClient())
	ctx := context.Background()

	thread, err := svc.ProcessChat(ctx, "user-1", &model.ChatRequest{Query: "hi"})
	require.NoError(t, err)

	_, err = svc.SwitchPreference(ctx, "user-2", &model.ToggleRequest{
		ThreadID:    thread.ThreadID,
		ResponseKey: model.ResponseKeyA,
	})
	assert.ErrorIs(t, err, ErrAccessDenied)
}

func TestConfigReportsAvailability(t *testing.T) {
	down := echoClient()
	down.name = llm.ProviderOpenAI
	down.available = false

	svc, _ := newTestService(t, echoClient(), down)
	cfg := svc.Config()

	assert.Equal(t, llm.ProviderOllama, cfg.DefaultProvider)

	ollama := cfg.AvailableProviders[llm.ProviderOllama]
	assert.True(t, ollama.Available)
	assert.Equal(t, "llama3", ollama.DefaultModel)
	assert.Contains(t, ollama.Models, "llama3")

	openai := cfg.AvailableProviders[llm.ProviderOpenAI]
	assert.False(t, openai.Available)
	assert.Empty(t, openai.Models, "unavailable providers expose no models")
}

func TestStats(t *testing.T) {
	svc, _ := newTestService(t, echoClient())
	ctx := context.Background()

	_, err := svc.ProcessChat(ctx, "user-1", &model.ChatRequest{Query: "hi"})
	require.NoError(t, err)

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalThreads)
	assert.True(t, stats.Providers[llm.ProviderOllama])
}
