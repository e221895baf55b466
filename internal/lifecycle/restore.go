package lifecycle

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/tutorialcms/internal/db"
)

// Restorer writes a historical snapshot back onto the live entity and records
// the result as the newest version. History is never rewritten.
type Restorer struct {
	versions *VersionStore
	content  ContentRepository
	log      zerolog.Logger
}

// NewRestorer wires a Restorer.
func NewRestorer(versions *VersionStore, content ContentRepository, log zerolog.Logger) *Restorer {
	return &Restorer{versions: versions, content: content, log: log}
}

// Restore copies version number onto (t, id) and returns the new version.
// A missing version yields ErrNotFound; a missing live entity yields
// ErrConflict and nothing is created.
func (r *Restorer) Restore(ctx context.Context, t db.ContentType, id uint, number int, authorID uint) (*db.ContentVersion, error) {
	target, err := r.versions.Get(ctx, t, id, number)
	if err != nil {
		return nil, err
	}

	if _, err := r.content.GetByID(ctx, t, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%w: %s/%d no longer exists, cannot restore version %d", ErrConflict, t, id, number)
		}
		return nil, err
	}

	fields := Fields{
		Title:    target.Title,
		Body:     target.Body,
		Metadata: copyMetadata(target.Metadata),
	}
	if err := r.content.UpdateFields(ctx, t, id, fields); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%w: %s/%d was removed during restore", ErrConflict, t, id)
		}
		return nil, err
	}

	restored, err := r.versions.Snapshot(ctx, SnapshotInput{
		Type:         t,
		ContentID:    id,
		Title:        fields.Title,
		Body:         fields.Body,
		Metadata:     fields.Metadata,
		AuthorID:     authorID,
		ChangeType:   db.ChangeRestore,
		RestoredFrom: number,
	})
	if err != nil {
		return nil, err
	}

	r.log.Info().
		Str("content_type", string(t)).
		Uint("content_id", id).
		Int("restored_from", number).
		Int("version", restored.VersionNumber).
		Uint("author_id", authorID).
		Msg("content version restored")
	return restored, nil
}
