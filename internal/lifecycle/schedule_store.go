package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tutorialcms/internal/db"
	"gorm.io/gorm"
)

// ScheduleStore is the pending/executed ledger of scheduled actions.
type ScheduleStore struct {
	db *gorm.DB
	// lease is how long a claim blocks other executors. Zero means a claim
	// never expires on its own.
	lease time.Duration
	now   func() time.Time
}

// ScheduleStoreOption customizes a ScheduleStore.
type ScheduleStoreOption func(*ScheduleStore)

// WithClaimLease lets a claim older than lease be taken over, which recovers
// actions stranded by an executor that died mid-run.
func WithClaimLease(lease time.Duration) ScheduleStoreOption {
	return func(s *ScheduleStore) {
		if lease > 0 {
			s.lease = lease
		}
	}
}

// WithScheduleClock overrides the clock stamping created_at and claimed_at.
func WithScheduleClock(now func() time.Time) ScheduleStoreOption {
	return func(s *ScheduleStore) {
		if now != nil {
			s.now = now
		}
	}
}

// NewScheduleStore returns a ScheduleStore over gdb.
func NewScheduleStore(gdb *gorm.DB, opts ...ScheduleStoreOption) *ScheduleStore {
	s := &ScheduleStore{db: gdb, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ScheduleInput describes a new scheduled action.
type ScheduleInput struct {
	Type         db.ContentType
	ContentID    uint
	Action       db.Action
	ScheduledFor time.Time
	AuthorID     uint
}

// ScheduleFilter narrows List. Zero values match everything.
type ScheduleFilter struct {
	Type            db.ContentType
	ContentID       uint
	IncludeExecuted bool
}

// Schedule records a pending action. A time in the past is accepted and is
// simply due on the next executor run.
func (s *ScheduleStore) Schedule(ctx context.Context, input ScheduleInput) (*db.ScheduledAction, error) {
	if err := validateTarget(input.Type, input.ContentID); err != nil {
		return nil, err
	}
	if !input.Action.Valid() {
		return nil, fmt.Errorf("%w: unknown action %s", ErrValidation, input.Action)
	}
	if input.ScheduledFor.IsZero() {
		return nil, fmt.Errorf("%w: scheduled time is required", ErrValidation)
	}

	record := db.ScheduledAction{
		ContentType:  input.Type,
		ContentID:    input.ContentID,
		Action:       input.Action,
		ScheduledFor: input.ScheduledFor.UTC(),
		CreatedBy:    input.AuthorID,
		CreatedAt:    s.now(),
	}
	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

// Get loads one scheduled action.
func (s *ScheduleStore) Get(ctx context.Context, id uint) (*db.ScheduledAction, error) {
	var record db.ScheduledAction
	if err := s.db.WithContext(ctx).First(&record, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: scheduled action %d", ErrNotFound, id)
		}
		return nil, err
	}
	return &record, nil
}

// Cancel removes a pending, unclaimed action.
func (s *ScheduleStore) Cancel(ctx context.Context, id uint) error {
	result := s.db.WithContext(ctx).
		Where("id = ? AND executed = ? AND claim_token = ?", id, false, "").
		Delete(&db.ScheduledAction{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 1 {
		return nil
	}

	record, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if record.Executed {
		return fmt.Errorf("%w: scheduled action %d ran at %s", ErrAlreadyExecuted, id, formatTime(record.ExecutedAt))
	}
	return fmt.Errorf("%w: scheduled action %d is being executed", ErrConflict, id)
}

// ListPending returns unexecuted actions, oldest scheduled time first.
func (s *ScheduleStore) ListPending(ctx context.Context) ([]db.ScheduledAction, error) {
	var records []db.ScheduledAction
	if err := s.db.WithContext(ctx).
		Where("executed = ?", false).
		Order("scheduled_for asc, id asc").
		Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// ListDue returns pending actions whose time is at or before now, oldest first.
func (s *ScheduleStore) ListDue(ctx context.Context, now time.Time) ([]db.ScheduledAction, error) {
	var records []db.ScheduledAction
	if err := s.db.WithContext(ctx).
		Where("executed = ? AND scheduled_for <= ?", false, now.UTC()).
		Order("scheduled_for asc, id asc").
		Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// List returns actions matching filter, oldest scheduled time first.
func (s *ScheduleStore) List(ctx context.Context, filter ScheduleFilter) ([]db.ScheduledAction, error) {
	query := s.db.WithContext(ctx).Model(&db.ScheduledAction{})
	if filter.Type != "" {
		if !filter.Type.Valid() {
			return nil, fmt.Errorf("%w: unknown content type %q", ErrValidation, filter.Type)
		}
		query = query.Where("content_type = ?", filter.Type)
	}
	if filter.ContentID != 0 {
		query = query.Where("content_id = ?", filter.ContentID)
	}
	if !filter.IncludeExecuted {
		query = query.Where("executed = ?", false)
	}

	var records []db.ScheduledAction
	if err := query.Order("scheduled_for asc, id asc").Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// Claim atomically marks a pending action as in flight. It returns the claim
// token and true when this caller won; false means another executor holds it
// or it already ran. claimed_at comes from the store clock, not the run's due
// time, so the lease is measured in real time.
func (s *ScheduleStore) Claim(ctx context.Context, id uint) (string, bool, error) {
	token := uuid.NewString()
	claimedAt := s.now().UTC()

	query := s.db.WithContext(ctx).Model(&db.ScheduledAction{}).
		Where("id = ? AND executed = ?", id, false)
	if s.lease > 0 {
		query = query.Where("(claim_token = ? OR claimed_at < ?)", "", claimedAt.Add(-s.lease))
	} else {
		query = query.Where("claim_token = ?", "")
	}

	result := query.Updates(map[string]interface{}{
		"claim_token": token,
		"claimed_at":  claimedAt,
	})
	if result.Error != nil {
		return "", false, result.Error
	}
	if result.RowsAffected != 1 {
		return "", false, nil
	}
	return token, true, nil
}

// Release returns a claimed action to pending and records why it failed.
func (s *ScheduleStore) Release(ctx context.Context, id uint, token string, cause error) error {
	lastError := ""
	if cause != nil {
		lastError = cause.Error()
	}
	result := s.db.WithContext(ctx).Model(&db.ScheduledAction{}).
		Where("id = ? AND claim_token = ? AND executed = ?", id, token, false).
		Updates(map[string]interface{}{
			"claim_token": "",
			"claimed_at":  nil,
			"attempts":    gorm.Expr("attempts + 1"),
			"last_error":  lastError,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected != 1 {
		return fmt.Errorf("%w: claim on scheduled action %d no longer held", ErrConflict, id)
	}
	return nil
}

// MarkExecuted moves a claimed action to its terminal state.
func (s *ScheduleStore) MarkExecuted(ctx context.Context, id uint, token string, at time.Time) error {
	executedAt := at.UTC()
	result := s.db.WithContext(ctx).Model(&db.ScheduledAction{}).
		Where("id = ? AND claim_token = ? AND executed = ?", id, token, false).
		Updates(map[string]interface{}{
			"executed":    true,
			"executed_at": executedAt,
			"claim_token": "",
			"claimed_at":  nil,
			"attempts":    gorm.Expr("attempts + 1"),
			"last_error":  "",
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected != 1 {
		return fmt.Errorf("%w: claim on scheduled action %d no longer held", ErrConflict, id)
	}
	return nil
}

func formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "an unknown time"
	}
	return t.UTC().Format(time.RFC3339)
}
