package lifecycle

import (
	"context"
	"time"

	"github.com/tutorialcms/internal/db"
)

// Entity is the live tutorial or page as seen by the engine.
type Entity struct {
	Type      db.ContentType
	ID        uint
	Title     string
	Body      string
	Metadata  map[string]interface{}
	Published bool
	UpdatedAt time.Time
}

// Fields are the editable fields a snapshot captures and a restore writes back.
type Fields struct {
	Title    string
	Body     string
	Metadata map[string]interface{}
}

// ContentRepository is the narrow contract onto the live entity store. Both
// the executor and the restorer mutate entities only through it.
//
// GetByID, UpdateFields and SetPublished return an error wrapping ErrNotFound
// when the entity does not exist. Delete succeeds for missing entities.
type ContentRepository interface {
	GetByID(ctx context.Context, t db.ContentType, id uint) (*Entity, error)
	UpdateFields(ctx context.Context, t db.ContentType, id uint, fields Fields) error
	SetPublished(ctx context.Context, t db.ContentType, id uint, published bool) error
	Delete(ctx context.Context, t db.ContentType, id uint) error
}
