package lifecycle

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/tutorialcms/internal/db"
)

// Error kinds returned by the engine. Callers match them with errors.Is; the
// wrapped message carries the identifiers involved.
var (
	ErrNotFound         = errors.New("not found")
	ErrConflict         = errors.New("conflict")
	ErrValidation       = errors.New("validation failed")
	ErrAlreadyExecuted  = errors.New("scheduled action already executed")
	ErrExecutionFailure = errors.New("execution failure")
)

// ExecutionFailure describes one scheduled action the executor could not
// apply. The action stays pending and is retried by a later run.
type ExecutionFailure struct {
	ActionID    uint
	ContentType db.ContentType
	ContentID   uint
	Action      db.Action
	Err         error
}

func (f ExecutionFailure) Error() string {
	return fmt.Sprintf("scheduled action %d (%s %s/%d): %v", f.ActionID, f.Action, f.ContentType, f.ContentID, f.Err)
}

// Unwrap exposes both the failure kind and the underlying cause.
func (f ExecutionFailure) Unwrap() []error {
	return []error{ErrExecutionFailure, f.Err}
}

// Message is the cause rendered for JSON responses and the last_error column.
func (f ExecutionFailure) Message() string {
	if f.Err == nil {
		return ""
	}
	return f.Err.Error()
}

// MarshalJSON renders the cause as a string field.
func (f ExecutionFailure) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ActionID    uint           `json:"actionId"`
		ContentType db.ContentType `json:"contentType"`
		ContentID   uint           `json:"contentId"`
		Action      string         `json:"action"`
		Error       string         `json:"error"`
	}{
		ActionID:    f.ActionID,
		ContentType: f.ContentType,
		ContentID:   f.ContentID,
		Action:      f.Action.String(),
		Error:       f.Message(),
	})
}

func validateTarget(t db.ContentType, id uint) error {
	if !t.Valid() {
		return fmt.Errorf("%w: unknown content type %q", ErrValidation, t)
	}
	if id == 0 {
		return fmt.Errorf("%w: content id must be positive", ErrValidation)
	}
	return nil
}
