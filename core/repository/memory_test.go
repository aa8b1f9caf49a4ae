package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"research-agent/core/models"
)

func TestMemoryStoreRequestLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	req, err := store.CreateRequest(ctx, "distributed consensus")
	require.NoError(t, err)
	require.NotEmpty(t, req.ID)
	assert.Equal(t, models.StatusPending, req.Status)

	require.NoError(t, store.SetTaskID(ctx, req.ID, "task-1"))

	got, err := store.GetRequest(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, "task-1", got.TaskID)

	require.NoError(t, store.UpdateStatus(ctx, req.ID, models.StatusCompleted, &models.ResearchResults{Topic: "distributed consensus"}, ""))
	got, err = store.GetRequest(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, got.Status)
	require.NotNil(t, got.CompletedAt)
	require.NotNil(t, got.Results)
}

func TestMemoryStoreNotFound(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	_, err := store.GetRequest(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, store.SetTaskID(ctx, "missing", "t"), ErrNotFound)
	assert.ErrorIs(t, store.UpdateStatus(ctx, "missing", models.StatusFailed, nil, "x"), ErrNotFound)
	assert.ErrorIs(t, store.DeleteRequest(ctx, "missing"), ErrNotFound)
}

func TestMemoryStoreCascadeDelete(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	req, err := store.CreateRequest(ctx, "cascade semantics")
	require.NoError(t, err)

	_, err = store.CreateLog(ctx, req.ID, models.StepInputParsing, models.LogStatusStarted, "start", nil)
	require.NoError(t, err)
	require.NoError(t, store.CreateArticle(ctx, &models.Article{RequestID: req.ID, Title: "A", Source: "src"}))

	require.NoError(t, store.DeleteRequest(ctx, req.ID))

	_, err = store.GetRequest(ctx, req.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	logs, err := store.ListLogs(ctx, req.ID)
	require.NoError(t, err)
	assert.Empty(t, logs)

	articles, err := store.ListArticles(ctx, req.ID, 0)
	require.NoError(t, err)
	assert.Empty(t, articles)
}

func TestMemoryStoreListOrderingAndFilter(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	first, err := store.CreateRequest(ctx, "first topic")
	require.NoError(t, err)
	second, err := store.CreateRequest(ctx, "second topic")
	require.NoError(t, err)
	third, err := store.CreateRequest(ctx, "third topic")
	require.NoError(t, err)

	require.NoError(t, store.UpdateStatus(ctx, second.ID, models.StatusFailed, nil, "boom"))

	all, err := store.ListRequests(ctx, nil, 0, 10)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, third.ID, all[0].ID, "newest first")
	assert.Equal(t, first.ID, all[2].ID)

	failed := models.StatusFailed
	onlyFailed, err := store.ListRequests(ctx, &failed, 0, 10)
	require.NoError(t, err)
	require.Len(t, onlyFailed, 1)
	assert.Equal(t, second.ID, onlyFailed[0].ID)

	count, err := store.CountRequests(ctx, &failed)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	paged, err := store.ListRequests(ctx, nil, 1, 1)
	require.NoError(t, err)
	require.Len(t, paged, 1)
	assert.Equal(t, second.ID, paged[0].ID)
}

func TestMemoryStoreLogCompletion(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	req, err := store.CreateRequest(ctx, "log lifecycle")
	require.NoError(t, err)

	logID, err := store.CreateLog(ctx, req.ID, models.StepDataGathering, models.LogStatusStarted, "fetching", nil)
	require.NoError(t, err)

	details := map[string]interface{}{"articles_count": 3}
	require.NoError(t, store.UpdateLog(ctx, logID, models.LogStatusCompleted, "fetched", details))

	logs, err := store.ListLogs(ctx, req.ID)
	require.NoError(t, err)
	require.Len(t, logs, 1)

	entry := logs[0]
	assert.Equal(t, models.LogStatusCompleted, entry.Status)
	assert.Equal(t, "fetched", entry.Message)
	require.NotNil(t, entry.CompletedAt)
	require.NotNil(t, entry.DurationMs)
	assert.GreaterOrEqual(t, *entry.DurationMs, int64(0))
}

func TestMemoryStoreArticleRanking(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	req, err := store.CreateRequest(ctx, "ranking")
	require.NoError(t, err)

	for _, a := range []*models.Article{
		{RequestID: req.ID, Title: "low", Source: "s", RelevanceScore: 10},
		{RequestID: req.ID, Title: "high", Source: "s", RelevanceScore: 90},
		{RequestID: req.ID, Title: "mid", Source: "s", RelevanceScore: 50},
	} {
		require.NoError(t, store.CreateArticle(ctx, a))
	}

	articles, err := store.ListArticles(ctx, req.ID, 2)
	require.NoError(t, err)
	require.Len(t, articles, 2)
	assert.Equal(t, "high", articles[0].Title)
	assert.Equal(t, "mid", articles[1].Title)
}
