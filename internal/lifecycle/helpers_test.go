package lifecycle

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"github.com/tutorialcms/internal/db"
	"gorm.io/gorm"
)

func setupLifecycleTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	gdb, err := db.Init(db.Options{
		Driver: db.DriverSQLite,
		Path:   filepath.Join(t.TempDir(), "lifecycle.db"),
		Silent: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close(gdb) })
	return gdb
}

// memRepo is an in-memory ContentRepository that counts effects.
type memRepo struct {
	mu       sync.Mutex
	entities map[string]*Entity
	calls    map[string]int
	failures map[string]error
}

func newMemRepo() *memRepo {
	return &memRepo{
		entities: make(map[string]*Entity),
		calls:    make(map[string]int),
		failures: make(map[string]error),
	}
}

func (r *memRepo) put(e Entity) {
	r.mu.Lock()
	defer r.mu.Unlock()
	copied := e
	r.entities[versionKey(e.Type, e.ID)] = &copied
}

func (r *memRepo) get(t db.ContentType, id uint) (Entity, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entities[versionKey(t, id)]
	if !ok {
		return Entity{}, false
	}
	return *e, true
}

func (r *memRepo) failNext(op string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures[op] = err
}

func (r *memRepo) count(op string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls[op]
}

func (r *memRepo) enter(op string) error {
	r.calls[op]++
	if err, ok := r.failures[op]; ok {
		delete(r.failures, op)
		return err
	}
	return nil
}

func (r *memRepo) GetByID(_ context.Context, t db.ContentType, id uint) (*Entity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.enter("get"); err != nil {
		return nil, err
	}
	e, ok := r.entities[versionKey(t, id)]
	if !ok {
		return nil, fmt.Errorf("%w: %s/%d", ErrNotFound, t, id)
	}
	copied := *e
	return &copied, nil
}

func (r *memRepo) UpdateFields(_ context.Context, t db.ContentType, id uint, fields Fields) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.enter("update"); err != nil {
		return err
	}
	e, ok := r.entities[versionKey(t, id)]
	if !ok {
		return fmt.Errorf("%w: %s/%d", ErrNotFound, t, id)
	}
	e.Title = fields.Title
	e.Body = fields.Body
	e.Metadata = fields.Metadata
	e.UpdatedAt = time.Now()
	return nil
}

func (r *memRepo) SetPublished(_ context.Context, t db.ContentType, id uint, published bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.enter("publish"); err != nil {
		return err
	}
	e, ok := r.entities[versionKey(t, id)]
	if !ok {
		return fmt.Errorf("%w: %s/%d", ErrNotFound, t, id)
	}
	e.Published = published
	return nil
}

func (r *memRepo) Delete(_ context.Context, t db.ContentType, id uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.enter("delete"); err != nil {
		return err
	}
	delete(r.entities, versionKey(t, id))
	return nil
}

func newTestEngine(t *testing.T) (*Engine, *memRepo, *gorm.DB) {
	t.Helper()
	gdb := setupLifecycleTestDB(t)
	repo := newMemRepo()
	return NewEngine(gdb, repo, Config{}, testLogger()), repo, gdb
}

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}
