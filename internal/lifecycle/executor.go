package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/tutorialcms/internal/db"
)

// RunSummary reports one ExecuteDue invocation.
type RunSummary struct {
	Due      int                `json:"due"`
	Executed int                `json:"executed"`
	Skipped  int                `json:"skipped"`
	Failures []ExecutionFailure `json:"failures"`
}

// RunObserver is told about every finished ExecuteDue run.
type RunObserver interface {
	ObserveRun(summary RunSummary, elapsed time.Duration)
}

// Executor applies due scheduled actions against the live entities.
//
// Each action goes Pending -> Claimed -> Executed, or back to Pending when
// applying fails. The claim is a conditional update, so overlapping runs
// never apply the same action twice.
type Executor struct {
	schedules *ScheduleStore
	content   ContentRepository
	observer  RunObserver
	log       zerolog.Logger
}

// NewExecutor wires an Executor. observer may be nil.
func NewExecutor(schedules *ScheduleStore, content ContentRepository, observer RunObserver, log zerolog.Logger) *Executor {
	return &Executor{schedules: schedules, content: content, observer: observer, log: log}
}

// ExecuteDue processes every action due at now, oldest scheduled time first,
// so the latest scheduled action on an item decides its final state. The
// returned error is non-nil only when the due set could not be read; per
// action failures are in the summary.
func (e *Executor) ExecuteDue(ctx context.Context, now time.Time) (RunSummary, error) {
	started := time.Now()
	summary := RunSummary{Failures: []ExecutionFailure{}}
	defer func() {
		if e.observer != nil {
			e.observer.ObserveRun(summary, time.Since(started))
		}
	}()

	due, err := e.schedules.ListDue(ctx, now)
	if err != nil {
		return summary, err
	}
	summary.Due = len(due)

	for _, action := range due {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		token, claimed, err := e.schedules.Claim(ctx, action.ID)
		if err != nil {
			summary.Failures = append(summary.Failures, failureFor(action, fmt.Errorf("claim: %w", err)))
			continue
		}
		if !claimed {
			summary.Skipped++
			continue
		}

		if err := e.run(ctx, action, token, now); err != nil {
			failure := failureFor(action, err)
			summary.Failures = append(summary.Failures, failure)
			e.log.Warn().
				Uint("action_id", action.ID).
				Str("action", action.Action.String()).
				Str("content_type", string(action.ContentType)).
				Uint("content_id", action.ContentID).
				Err(err).
				Msg("scheduled action failed, left pending")
			continue
		}
		summary.Executed++
	}

	e.log.Info().
		Time("now", now).
		Int("due", summary.Due).
		Int("executed", summary.Executed).
		Int("skipped", summary.Skipped).
		Int("failed", len(summary.Failures)).
		Msg("scheduled actions run finished")
	return summary, nil
}

// settleTimeout bounds the write that settles a claim once the caller's
// context is gone.
const settleTimeout = 5 * time.Second

// run applies a claimed action and settles the claim either way. Settling
// ignores cancellation of ctx, otherwise a canceled run would leave the claim
// held and the action would never run again.
func (e *Executor) run(ctx context.Context, action db.ScheduledAction, token string, now time.Time) error {
	applyErr := e.apply(ctx, action)

	settleCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), settleTimeout)
	defer cancel()

	if applyErr != nil {
		if releaseErr := e.schedules.Release(settleCtx, action.ID, token, applyErr); releaseErr != nil {
			return errors.Join(applyErr, fmt.Errorf("release claim: %w", releaseErr))
		}
		return applyErr
	}

	if err := e.schedules.MarkExecuted(settleCtx, action.ID, token, now); err != nil {
		// The effect is idempotent, so handing the action back for a retry is safe.
		if releaseErr := e.schedules.Release(settleCtx, action.ID, token, err); releaseErr != nil {
			return errors.Join(fmt.Errorf("mark executed: %w", err), fmt.Errorf("release claim: %w", releaseErr))
		}
		return fmt.Errorf("mark executed: %w", err)
	}
	return nil
}

func (e *Executor) apply(ctx context.Context, action db.ScheduledAction) error {
	switch action.Action {
	case db.ActionPublish:
		return e.content.SetPublished(ctx, action.ContentType, action.ContentID, true)
	case db.ActionUnpublish:
		return e.content.SetPublished(ctx, action.ContentType, action.ContentID, false)
	case db.ActionDelete:
		if err := e.content.Delete(ctx, action.ContentType, action.ContentID); err != nil && !errors.Is(err, ErrNotFound) {
			return err
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown action %s", ErrValidation, action.Action)
	}
}

func failureFor(action db.ScheduledAction, err error) ExecutionFailure {
	return ExecutionFailure{
		ActionID:    action.ID,
		ContentType: action.ContentType,
		ContentID:   action.ContentID,
		Action:      action.Action,
		Err:         err,
	}
}
