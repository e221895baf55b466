package lifecycle

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/tutorialcms/internal/db"
	"gorm.io/gorm"
)

// Config tunes the engine. Zero values keep the defaults.
type Config struct {
	VersionAllocAttempts int
	ClaimLease           time.Duration
	Now                  func() time.Time
	// Observer receives every executor run summary. Optional.
	Observer RunObserver
}

// Engine exposes the lifecycle operations used by the admin layer.
type Engine struct {
	Versions  *VersionStore
	Schedules *ScheduleStore
	Restorer  *Restorer
	Executor  *Executor
	content   ContentRepository
	log       zerolog.Logger
}

// NewEngine builds the stores over gdb and routes every entity mutation
// through content.
func NewEngine(gdb *gorm.DB, content ContentRepository, cfg Config, log zerolog.Logger) *Engine {
	versions := NewVersionStore(gdb,
		WithAllocAttempts(cfg.VersionAllocAttempts),
		WithVersionLogger(log),
		WithVersionClock(cfg.Now),
	)
	schedules := NewScheduleStore(gdb,
		WithClaimLease(cfg.ClaimLease),
		WithScheduleClock(cfg.Now),
	)
	return &Engine{
		Versions:  versions,
		Schedules: schedules,
		Restorer:  NewRestorer(versions, content, log),
		Executor:  NewExecutor(schedules, content, cfg.Observer, log),
		content:   content,
		log:       log,
	}
}

// CreateVersion snapshots the current live state of (t, id).
func (e *Engine) CreateVersion(ctx context.Context, t db.ContentType, id uint, authorID uint) (*db.ContentVersion, error) {
	if err := validateTarget(t, id); err != nil {
		return nil, err
	}
	entity, err := e.content.GetByID(ctx, t, id)
	if err != nil {
		return nil, err
	}
	return e.Versions.Snapshot(ctx, SnapshotInput{
		Type:      t,
		ContentID: id,
		Title:     entity.Title,
		Body:      entity.Body,
		Metadata:  entity.Metadata,
		AuthorID:  authorID,
	})
}

// ListVersions returns the history of (t, id), newest first.
func (e *Engine) ListVersions(ctx context.Context, t db.ContentType, id uint) ([]db.ContentVersion, error) {
	return e.Versions.List(ctx, t, id)
}

// GetVersion returns one snapshot.
func (e *Engine) GetVersion(ctx context.Context, t db.ContentType, id uint, number int) (*db.ContentVersion, error) {
	return e.Versions.Get(ctx, t, id, number)
}

// RestoreVersion rolls (t, id) back to the given snapshot as a new version.
func (e *Engine) RestoreVersion(ctx context.Context, t db.ContentType, id uint, number int, authorID uint) (*db.ContentVersion, error) {
	return e.Restorer.Restore(ctx, t, id, number, authorID)
}

// ScheduleAction enqueues a future state change.
func (e *Engine) ScheduleAction(ctx context.Context, input ScheduleInput) (*db.ScheduledAction, error) {
	record, err := e.Schedules.Schedule(ctx, input)
	if err != nil {
		return nil, err
	}
	e.log.Info().
		Uint("action_id", record.ID).
		Str("action", record.Action.String()).
		Str("content_type", string(record.ContentType)).
		Uint("content_id", record.ContentID).
		Time("scheduled_for", record.ScheduledFor).
		Msg("scheduled action created")
	return record, nil
}

// CancelScheduledAction removes a pending action.
func (e *Engine) CancelScheduledAction(ctx context.Context, id uint) error {
	if id == 0 {
		return fmt.Errorf("%w: scheduled action id must be positive", ErrValidation)
	}
	if err := e.Schedules.Cancel(ctx, id); err != nil {
		return err
	}
	e.log.Info().Uint("action_id", id).Msg("scheduled action canceled")
	return nil
}

// ListScheduledActions lists actions matching filter.
func (e *Engine) ListScheduledActions(ctx context.Context, filter ScheduleFilter) ([]db.ScheduledAction, error) {
	return e.Schedules.List(ctx, filter)
}

// ExecuteDue runs every action due at now.
func (e *Engine) ExecuteDue(ctx context.Context, now time.Time) (RunSummary, error) {
	return e.Executor.ExecuteDue(ctx, now)
}
