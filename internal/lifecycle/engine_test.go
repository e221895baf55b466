package lifecycle

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tutorialcms/internal/db"
)

func TestEngineVersionLifecycle(t *testing.T) {
	engine, repo, _ := newTestEngine(t)
	ctx := context.Background()
	repo.put(Entity{
		Type:     db.ContentTutorial,
		ID:       1,
		Title:    "Intro",
		Body:     "hello",
		Metadata: map[string]interface{}{"level": "beginner"},
	})

	v1, err := engine.CreateVersion(ctx, db.ContentTutorial, 1, 3)
	require.NoError(t, err)
	assert.Equal(t, 1, v1.VersionNumber)
	assert.Equal(t, "beginner", v1.Metadata["level"])

	require.NoError(t, repo.UpdateFields(ctx, db.ContentTutorial, 1, Fields{Title: "Intro v2", Body: "hello again"}))
	v2, err := engine.CreateVersion(ctx, db.ContentTutorial, 1, 3)
	require.NoError(t, err)
	assert.Equal(t, 2, v2.VersionNumber)
	assert.NotEqual(t, v1.ContentHash, v2.ContentHash)

	restored, err := engine.RestoreVersion(ctx, db.ContentTutorial, 1, 1, 4)
	require.NoError(t, err)
	assert.Equal(t, 3, restored.VersionNumber)
	assert.Equal(t, v1.ContentHash, restored.ContentHash)

	history, err := engine.ListVersions(ctx, db.ContentTutorial, 1)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, db.ChangeRestore, history[0].ChangeType)

	got, err := engine.GetVersion(ctx, db.ContentTutorial, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, "Intro v2", got.Title)
}

func TestEngineCreateVersionMissingEntity(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	_, err := engine.CreateVersion(context.Background(), db.ContentPage, 10, 1)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = engine.CreateVersion(context.Background(), db.ContentPage, 0, 1)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestEngineScheduleCancelAndExecute(t *testing.T) {
	engine, repo, _ := newTestEngine(t)
	ctx := context.Background()
	now := time.Now()
	repo.put(Entity{Type: db.ContentPage, ID: 2})

	kept, err := engine.ScheduleAction(ctx, ScheduleInput{
		Type: db.ContentPage, ContentID: 2, Action: db.ActionPublish, ScheduledFor: now.Add(-time.Minute),
	})
	require.NoError(t, err)
	dropped, err := engine.ScheduleAction(ctx, ScheduleInput{
		Type: db.ContentPage, ContentID: 2, Action: db.ActionDelete, ScheduledFor: now.Add(-time.Second),
	})
	require.NoError(t, err)
	require.NoError(t, engine.CancelScheduledAction(ctx, dropped.ID))

	listed, err := engine.ListScheduledActions(ctx, ScheduleFilter{Type: db.ContentPage, ContentID: 2})
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, kept.ID, listed[0].ID)

	summary, err := engine.ExecuteDue(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Executed)

	live, ok := repo.get(db.ContentPage, 2)
	require.True(t, ok)
	assert.True(t, live.Published)

	assert.ErrorIs(t, engine.CancelScheduledAction(ctx, kept.ID), ErrAlreadyExecuted)
	assert.ErrorIs(t, engine.CancelScheduledAction(ctx, dropped.ID), ErrNotFound)
	assert.ErrorIs(t, engine.CancelScheduledAction(ctx, 0), ErrValidation)
}

func TestEngineUsesConfiguredClock(t *testing.T) {
	gdb := setupLifecycleTestDB(t)
	repo := newMemRepo()
	fixed := time.Date(2023, 3, 4, 5, 6, 7, 0, time.UTC)
	engine := NewEngine(gdb, repo, Config{Now: func() time.Time { return fixed }}, testLogger())
	repo.put(Entity{Type: db.ContentTutorial, ID: 1, Title: "clock"})

	v, err := engine.CreateVersion(context.Background(), db.ContentTutorial, 1, 1)
	require.NoError(t, err)
	assert.True(t, v.CreatedAt.Equal(fixed))
}
