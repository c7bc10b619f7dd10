package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trivium-ai/bot-platform/internal/model"
)

func newTestStore(t *testing.T) *ThreadStore {
	t.Helper()
	s, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func makeThread(id, userID string, updated time.Time) *model.Thread {
	return &model.Thread{
		ThreadID: id,
		Query:    "query for " + id,
		Responses: map[string]string{
			model.ResponseKeyA: "a",
			model.ResponseKeyB: "b",
			model.ResponseKeyC: "c",
		},
		SubQueries: []model.SubQuery{
			{SubQuery: "query for " + id, SubQueryResponse: "a", TimeCreated: updated},
		},
		TimeCreated: updated,
		TimeUpdated: updated,
		Metadata: &model.ThreadMetadata{
			UserID:            userID,
			Provider:          "ollama",
			TotalInteractions: 1,
		},
	}
}

func TestSaveAndGet(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Millisecond)
	want := makeThread("thread_aaa_1", "user-1", now)
	require.NoError(t, s.Save(ctx, want))

	got, err := s.Get(ctx, "thread_aaa_1")
	require.NoError(t, err)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("thread round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestGetNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSaveRequiresThreadID(t *testing.T) {
	s := newTestStore(t)
	err := s.Save(context.Background(), &model.Thread{})
	assert.Error(t, err)
}

func TestSaveUpsertsExisting(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	base := time.Now().UTC()
	thread := makeThread("thread_bbb_1", "user-1", base)
	require.NoError(t, s.Save(ctx, thread))

	thread.Responses[model.ResponseKeyB] = "revised"
	thread.TimeUpdated = base.Add(time.Minute)
	require.NoError(t, s.Save(ctx, thread))

	got, err := s.Get(ctx, "thread_bbb_1")
	require.NoError(t, err)
	assert.Equal(t, "revised", got.Responses[model.ResponseKeyB])

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestListOrderingAndPaging(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	base := time.Now().UTC()
	for i := 0; i < 5; i++ {
		id := fmt.Sprintf("thread_ccc_%d", i)
		require.NoError(t, s.Save(ctx, makeThread(id, "user-1", base.Add(time.Duration(i)*time.Minute))))
	}
	// Another user's thread must not leak into the listing.
	require.NoError(t, s.Save(ctx, makeThread("thread_other_1", "user-2", base)))

	threads, total, err := s.List(ctx, "user-1", 2, 0)
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	require.Len(t, threads, 2)
	assert.Equal(t, "thread_ccc_4", threads[0].ThreadID)
	assert.Equal(t, "thread_ccc_3", threads[1].ThreadID)

	threads, total, err = s.List(ctx, "user-1", 2, 4)
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	require.Len(t, threads, 1)
	assert.Equal(t, "thread_ccc_0", threads[0].ThreadID)
}

func TestListEmptyUser(t *testing.T) {
	s := newTestStore(t)
	threads, total, err := s.List(context.Background(), "nobody", 10, 0)
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, threads)
}
