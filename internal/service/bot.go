// Package service provides business logic for the bot platform.
package service

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/trivium-ai/bot-platform/internal/llm"
	"github.com/trivium-ai/bot-platform/internal/model"
	"github.com/trivium-ai/bot-platform/internal/store"
	"github.com/trivium-ai/bot-platform/pkg/logger"
	"github.com/trivium-ai/bot-platform/pkg/metrics"
)

// Service errors mapped to HTTP statuses by the handler layer.
var (
	ErrThreadNotFound      = errors.New("thread not found")
	ErrAccessDenied        = errors.New("access denied")
	ErrProviderUnknown     = errors.New("unknown provider")
	ErrProviderUnavailable = errors.New("provider unavailable")
)

// Default generation parameters, matching the request model defaults.
const (
	defaultTemperature = 0.7
	defaultMaxTokens   = 1500
	hydeTemperature    = 0.8
	hydeMaxTokens      = 1000
)

// EventPublisher publishes thread lifecycle events.
type EventPublisher interface {
	PublishThreadEvent(ctx context.Context, event *model.ThreadEvent) error
}

// BotService handles chat processing and thread persistence.
type BotService struct {
	store    *store.ThreadStore
	registry *llm.Registry
	events   EventPublisher
	logger   *logger.Logger

	defaultProvider string
	started         time.Time
}

// NewBotService creates a new bot service. events may be nil when no
// broker is configured; event publishing is then skipped.
func NewBotService(
	ts *store.ThreadStore,
	registry *llm.Registry,
	events EventPublisher,
	log *logger.Logger,
	defaultProvider string,
) *BotService {
	return &BotService{
		store:           ts,
		registry:        registry,
		events:          events,
		logger:          log,
		defaultProvider: defaultProvider,
		started:         time.Now(),
	}
}

// ProcessChat runs the full pipeline for one query: reformulate it into
// three perspective questions, answer them in parallel, and persist the
// result on a new or existing thread owned by userID.
func (s *BotService) ProcessChat(ctx context.Context, userID string, req *model.ChatRequest) (*model.Thread, error) {
	start := time.Now()

	providerName := req.Provider
	if providerName == "" {
		providerName = s.defaultProvider
	}

	client, ok := s.registry.Get(providerName)
	if !ok {
		metrics.ChatInteractionsTotal.WithLabelValues("unknown", "rejected").Inc()
		return nil, fmt.Errorf("%w: %s", ErrProviderUnknown, providerName)
	}
	if !client.Available() {
		metrics.ChatInteractionsTotal.WithLabelValues(providerName, "unavailable").Inc()
		return nil, fmt.Errorf("%w: %s", ErrProviderUnavailable, providerName)
	}

	modelName := client.DefaultModel()
	if req.Model != nil && *req.Model != "" {
		modelName = *req.Model
	}

	temperature := defaultTemperature
	if req.Temperature != nil {
		temperature = *req.Temperature
	}
	maxTokens := defaultMaxTokens
	if req.MaxTokens != nil {
		maxTokens = *req.MaxTokens
	}

	// Resolve the target thread before spending any LLM calls.
	threadID := req.ThreadID
	var existing *model.Thread
	if threadID == "" {
		threadID = generateThreadID()
	} else {
		t, err := s.store.Get(ctx, threadID)
		switch {
		case err == nil:
			if t.Metadata != nil && t.Metadata.UserID != userID {
				return nil, ErrAccessDenied
			}
			existing = t
		case errors.Is(err, store.ErrNotFound):
			// Continuing an unknown id starts a fresh thread under it.
		default:
			return nil, fmt.Errorf("load thread: %w", err)
		}
	}

	questions := s.generateQuestions(ctx, client, modelName, req.Query)
	responses, respMeta := s.generateVariants(ctx, client, modelName, questions, temperature, maxTokens)

	now := time.Now().UTC()
	subQuery := model.SubQuery{
		SubQuery:         req.Query,
		SubQueryResponse: responses[model.ResponseKeyA],
		TimeCreated:      now,
		ResponseMetadata: respMeta,
	}

	eventType := model.EventTypeThreadUpdated
	var thread *model.Thread

	if existing != nil {
		existing.Responses = responses
		existing.SubQueries = append(existing.SubQueries, subQuery)
		existing.TimeUpdated = now
		if existing.Metadata != nil {
			existing.Metadata.TotalInteractions++
			existing.Metadata.WasContinuation = true
			existing.Metadata.Provider = providerName
			existing.Metadata.Model = modelName
		}
		thread = existing
	} else {
		eventType = model.EventTypeThreadCreated
		thread = &model.Thread{
			ThreadID:    threadID,
			Query:       req.Query,
			Responses:   responses,
			SubQueries:  []model.SubQuery{subQuery},
			TimeCreated: now,
			TimeUpdated: now,
			Metadata: &model.ThreadMetadata{
				UserID:            userID,
				Provider:          providerName,
				Model:             modelName,
				TotalInteractions: 1,
				ProcessingMethod:  "hyde",
			},
		}
	}

	if err := s.store.Save(ctx, thread); err != nil {
		return nil, fmt.Errorf("save thread: %w", err)
	}

	if eventType == model.EventTypeThreadCreated {
		metrics.ThreadsCreatedTotal.WithLabelValues(providerName).Inc()
	}
	metrics.ChatInteractionsTotal.WithLabelValues(providerName, "success").Inc()

	s.publishEvent(ctx, &model.ThreadEvent{
		ID:        uuid.NewString(),
		ThreadID:  thread.ThreadID,
		UserID:    userID,
		Type:      eventType,
		Provider:  providerName,
		CreatedAt: now,
	})

	s.logger.Info("chat request processed",
		zap.String("thread_id", thread.ThreadID),
		zap.String("provider", providerName),
		zap.String("model", modelName),
		zap.Int("interactions", len(thread.SubQueries)),
		zap.Duration("duration", time.Since(start)),
	)

	return thread, nil
}

// generateQuestions asks the provider to reformulate the query. On any
// failure a static set of perspective questions keeps the pipeline going.
func (s *BotService) generateQuestions(ctx context.Context, client llm.Client, modelName, query string) []string {
	resp, err := client.Complete(ctx, &llm.CompletionRequest{
		Model:       modelName,
		Messages:    []llm.ChatMessage{{Role: "user", Content: buildHydePrompt(query)}},
		Temperature: hydeTemperature,
		MaxTokens:   hydeMaxTokens,
	})
	if err != nil {
		s.logger.Warn("question generation failed, using fallbacks",
			zap.String("model", modelName),
			zap.Error(err),
		)
		return fallbackQuestions(query)
	}
	return parseHydeQuestions(resp.Content)
}

// generateVariants answers all questions in parallel, one response key
// per question, with a small temperature offset per variant. A failed
// variant degrades to an apology response with the error recorded in
// its metadata; it never fails the whole request.
func (s *BotService) generateVariants(
	ctx context.Context,
	client llm.Client,
	modelName string,
	questions []string,
	temperature float64,
	maxTokens int,
) (map[string]string, map[string]model.ResponseMetadata) {
	type variant struct {
		content string
		meta    model.ResponseMetadata
	}
	results := make([]variant, len(model.ResponseKeys))

	g, gctx := errgroup.WithContext(ctx)
	for i := range model.ResponseKeys {
		i := i
		question := questions[i]
		g.Go(func() error {
			start := time.Now()
			meta := model.ResponseMetadata{
				Provider:    client.Name(),
				Model:       modelName,
				Temperature: temperature + float64(i)*0.1,
				MaxTokens:   maxTokens,
			}

			resp, err := client.Complete(gctx, &llm.CompletionRequest{
				Model:       modelName,
				Messages:    []llm.ChatMessage{{Role: "user", Content: buildResponsePrompt(question)}},
				Temperature: meta.Temperature,
				MaxTokens:   maxTokens,
			})
			if err != nil {
				meta.Error = err.Error()
				meta.DurationMs = time.Since(start).Milliseconds()
				results[i] = variant{
					content: fmt.Sprintf("I apologize, but I encountered an error while processing your question: %s. Please try again.", question),
					meta:    meta,
				}
				metrics.RecordCompletion(client.Name(), modelName, "error", time.Since(start).Seconds(), 0, 0)
				return nil
			}

			meta.DurationMs = resp.LatencyMs
			meta.TokensIn = resp.TokensIn
			meta.TokensOut = resp.TokensOut
			results[i] = variant{content: resp.Content, meta: meta}
			metrics.RecordCompletion(client.Name(), modelName, "success", time.Since(start).Seconds(), resp.TokensIn, resp.TokensOut)
			return nil
		})
	}
	_ = g.Wait()

	responses := make(map[string]string, len(model.ResponseKeys))
	respMeta := make(map[string]model.ResponseMetadata, len(model.ResponseKeys))
	for i, key := range model.ResponseKeys {
		responses[key] = results[i].content
		respMeta[key] = results[i].meta
	}
	return responses, respMeta
}

// GetThread returns a thread owned by userID.
func (s *BotService) GetThread(ctx context.Context, userID, threadID string) (*model.Thread, error) {
	thread, err := s.store.Get(ctx, threadID)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrThreadNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load thread: %w", err)
	}
	if thread.Metadata == nil || thread.Metadata.UserID != userID {
		return nil, ErrAccessDenied
	}
	return thread, nil
}

// ListThreads returns one page of the user's threads, newest first.
func (s *BotService) ListThreads(ctx context.Context, userID string, limit, skip int) (*model.ThreadPage, error) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 100 {
		limit = 100
	}
	if skip < 0 {
		skip = 0
	}

	threads, total, err := s.store.List(ctx, userID, limit, skip)
	if err != nil {
		return nil, fmt.Errorf("list threads: %w", err)
	}

	summaries := make([]model.ThreadSummary, 0, len(threads))
	for _, t := range threads {
		summary := model.ThreadSummary{
			ThreadID:         t.ThreadID,
			Query:            t.Query,
			TimeCreated:      t.TimeCreated,
			TimeUpdated:      t.TimeUpdated,
			InteractionCount: len(t.SubQueries),
		}
		if n := len(t.SubQueries); n > 0 {
			last := t.SubQueries[n-1]
			summary.LastInteraction = &last
		}
		summaries = append(summaries, summary)
	}

	return &model.ThreadPage{
		Threads: summaries,
		Total:   total,
		Limit:   limit,
		Skip:    skip,
		HasMore: skip+limit < total,
	}, nil
}

// SwitchPreference marks one response variant as preferred (or clears
// the mark) on a thread owned by userID.
func (s *BotService) SwitchPreference(ctx context.Context, userID string, req *model.ToggleRequest) (*model.PreferenceAck, error) {
	thread, err := s.GetThread(ctx, userID, req.ThreadID)
	if err != nil {
		return nil, err
	}

	preferred := true
	if req.Preferred != nil {
		preferred = *req.Preferred
	}

	if thread.Metadata.Preferences == nil {
		thread.Metadata.Preferences = make(map[string]bool)
	}
	thread.Metadata.Preferences[req.ResponseKey] = preferred
	thread.TimeUpdated = time.Now().UTC()

	if err := s.store.Save(ctx, thread); err != nil {
		return nil, fmt.Errorf("save thread: %w", err)
	}

	metrics.PreferenceSwitchesTotal.Inc()

	s.publishEvent(ctx, &model.ThreadEvent{
		ID:          uuid.NewString(),
		ThreadID:    thread.ThreadID,
		UserID:      userID,
		Type:        model.EventTypePreference,
		ResponseKey: req.ResponseKey,
		CreatedAt:   thread.TimeUpdated,
	})

	s.logger.Info("response preference updated",
		zap.String("thread_id", req.ThreadID),
		zap.String("response_key", req.ResponseKey),
		zap.Bool("preferred", preferred),
	)

	return &model.PreferenceAck{
		Success:     true,
		ThreadID:    req.ThreadID,
		ResponseKey: req.ResponseKey,
		Preferred:   preferred,
	}, nil
}

// Config reports provider availability and models so clients can drive
// provider and model selection.
func (s *BotService) Config() *model.BotConfig {
	providers := make(map[string]model.ProviderInfo)
	for _, name := range s.registry.Names() {
		client, _ := s.registry.Get(name)
		info := model.ProviderInfo{Available: client.Available()}
		if info.Available {
			info.DefaultModel = client.DefaultModel()
			info.Models = client.Models()
			if !slices.Contains(info.Models, info.DefaultModel) {
				info.Models = append([]string{info.DefaultModel}, info.Models...)
			}
		}
		providers[name] = info
	}

	return &model.BotConfig{
		DefaultProvider:    s.defaultProvider,
		AvailableProviders: providers,
		Features: map[string]bool{
			"hyde_expansion":       true,
			"multi_response":       true,
			"thread_persistence":   true,
			"response_preferences": true,
		},
	}
}

// Stats returns a runtime snapshot of the service.
func (s *BotService) Stats(ctx context.Context) (*model.ServiceStats, error) {
	total, err := s.store.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("count threads: %w", err)
	}

	providers := make(map[string]bool)
	for _, name := range s.registry.Names() {
		client, _ := s.registry.Get(name)
		providers[name] = client.Available()
	}

	return &model.ServiceStats{
		Service:      "bot-platform",
		Timestamp:    time.Now().UTC(),
		TotalThreads: total,
		Providers:    providers,
		UptimeSecs:   int64(time.Since(s.started).Seconds()),
	}, nil
}

func (s *BotService) publishEvent(ctx context.Context, event *model.ThreadEvent) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishThreadEvent(ctx, event); err != nil {
		s.logger.Warn("failed to publish thread event",
			zap.String("thread_id", event.ThreadID),
			zap.String("type", string(event.Type)),
			zap.Error(err),
		)
	}
}

// generateThreadID returns an id like thread_a1b2c3d4e5f6_1718000000.
func generateThreadID() string {
	u := uuid.New()
	return fmt.Sprintf("thread_%s_%d", hex.EncodeToString(u[:])[:12], time.Now().Unix())
}
