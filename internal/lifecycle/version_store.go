package lifecycle

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/tutorialcms/internal/db"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const defaultAllocAttempts = 5

// VersionStore is the append-only ledger of content snapshots.
//
// Version numbers are allocated as MAX+1 inside a transaction. Writers in the
// same process are serialized per (type, id); writers in other processes are
// caught by the unique index and retried.
type VersionStore struct {
	db          *gorm.DB
	locks       *keyedMutex
	maxAttempts int
	now         func() time.Time
	log         zerolog.Logger
}

// VersionStoreOption customizes a VersionStore.
type VersionStoreOption func(*VersionStore)

// WithAllocAttempts bounds how many times a lost allocation race is retried.
func WithAllocAttempts(n int) VersionStoreOption {
	return func(s *VersionStore) {
		if n > 0 {
			s.maxAttempts = n
		}
	}
}

// WithVersionLogger sets the logger used for allocation retries.
func WithVersionLogger(log zerolog.Logger) VersionStoreOption {
	return func(s *VersionStore) {
		s.log = log
	}
}

// WithVersionClock overrides the clock stamping created_at.
func WithVersionClock(now func() time.Time) VersionStoreOption {
	return func(s *VersionStore) {
		if now != nil {
			s.now = now
		}
	}
}

// NewVersionStore returns a VersionStore over gdb.
func NewVersionStore(gdb *gorm.DB, opts ...VersionStoreOption) *VersionStore {
	s := &VersionStore{
		db:          gdb,
		locks:       newKeyedMutex(),
		maxAttempts: defaultAllocAttempts,
		now:         time.Now,
		log:         zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SnapshotInput carries the state recorded by Snapshot.
type SnapshotInput struct {
	Type      db.ContentType
	ContentID uint
	Title     string
	Body      string
	Metadata  map[string]interface{}
	AuthorID  uint
	// ChangeType defaults to update.
	ChangeType   string
	RestoredFrom int
}

// Snapshot appends the next version for (Type, ContentID).
func (s *VersionStore) Snapshot(ctx context.Context, input SnapshotInput) (*db.ContentVersion, error) {
	if err := validateTarget(input.Type, input.ContentID); err != nil {
		return nil, err
	}
	changeType, err := normalizeChangeType(input.ChangeType)
	if err != nil {
		return nil, err
	}
	input.ChangeType = changeType

	unlock := s.locks.Lock(versionKey(input.Type, input.ContentID))
	defer unlock()

	var lastErr error
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		version, err := s.appendNext(ctx, input)
		if err == nil {
			return version, nil
		}
		if !isDuplicateKey(err) {
			return nil, err
		}
		lastErr = err
		s.log.Debug().
			Str("content_type", string(input.Type)).
			Uint("content_id", input.ContentID).
			Int("attempt", attempt).
			Msg("version number taken by a concurrent writer, retrying")
	}

	return nil, fmt.Errorf("%w: allocating version for %s/%d failed after %d attempts: %v",
		ErrConflict, input.Type, input.ContentID, s.maxAttempts, lastErr)
}

func (s *VersionStore) appendNext(ctx context.Context, input SnapshotInput) (*db.ContentVersion, error) {
	var version db.ContentVersion
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current int
		if err := tx.Model(&db.ContentVersion{}).
			Where("content_type = ? AND content_id = ?", input.Type, input.ContentID).
			Select("COALESCE(MAX(version_number), 0)").
			Scan(&current).Error; err != nil {
			return err
		}

		metadata := copyMetadata(input.Metadata)
		version = db.ContentVersion{
			ContentType:   input.Type,
			ContentID:     input.ContentID,
			VersionNumber: current + 1,
			Title:         input.Title,
			Body:          input.Body,
			Metadata:      metadata,
			ChangeType:    input.ChangeType,
			RestoredFrom:  input.RestoredFrom,
			ContentHash:   hashFields(input.Title, input.Body, metadata),
			CreatedBy:     input.AuthorID,
			CreatedAt:     s.now(),
		}
		return tx.Create(&version).Error
	})
	if err != nil {
		return nil, err
	}
	return &version, nil
}

// List returns every version of (t, id), newest first.
func (s *VersionStore) List(ctx context.Context, t db.ContentType, id uint) ([]db.ContentVersion, error) {
	if err := validateTarget(t, id); err != nil {
		return nil, err
	}
	var versions []db.ContentVersion
	if err := s.db.WithContext(ctx).
		Where("content_type = ? AND content_id = ?", t, id).
		Order("version_number desc").
		Find(&versions).Error; err != nil {
		return nil, err
	}
	return versions, nil
}

// Get returns one version or an error wrapping ErrNotFound.
func (s *VersionStore) Get(ctx context.Context, t db.ContentType, id uint, number int) (*db.ContentVersion, error) {
	if err := validateTarget(t, id); err != nil {
		return nil, err
	}
	if number <= 0 {
		return nil, fmt.Errorf("%w: version number must be positive", ErrValidation)
	}

	var version db.ContentVersion
	if err := s.db.WithContext(ctx).
		Where("content_type = ? AND content_id = ? AND version_number = ?", t, id, number).
		First(&version).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: version %d of %s/%d", ErrNotFound, number, t, id)
		}
		return nil, err
	}
	return &version, nil
}

// Latest returns the newest version or an error wrapping ErrNotFound.
func (s *VersionStore) Latest(ctx context.Context, t db.ContentType, id uint) (*db.ContentVersion, error) {
	if err := validateTarget(t, id); err != nil {
		return nil, err
	}

	var version db.ContentVersion
	if err := s.db.WithContext(ctx).
		Where("content_type = ? AND content_id = ?", t, id).
		Order("version_number desc").
		First(&version).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: no versions for %s/%d", ErrNotFound, t, id)
		}
		return nil, err
	}
	return &version, nil
}

func versionKey(t db.ContentType, id uint) string {
	return fmt.Sprintf("%s/%d", t, id)
}

func normalizeChangeType(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	switch trimmed {
	case "":
		return db.ChangeUpdate, nil
	case db.ChangeCreate, db.ChangeUpdate, db.ChangeRestore:
		return trimmed, nil
	}
	return "", fmt.Errorf("%w: unknown change type %q", ErrValidation, raw)
}

func copyMetadata(src map[string]interface{}) datatypes.JSONMap {
	dst := make(datatypes.JSONMap, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

// hashFields fingerprints a snapshot. encoding/json sorts map keys, so equal
// metadata always hashes the same.
func hashFields(title, body string, metadata map[string]interface{}) string {
	h := sha256.New()
	h.Write([]byte(title))
	h.Write([]byte{0})
	h.Write([]byte(body))
	h.Write([]byte{0})
	if encoded, err := json.Marshal(metadata); err == nil {
		h.Write(encoded)
	}
	return hex.EncodeToString(h.Sum(nil))
}

func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate key")
}
