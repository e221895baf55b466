package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tutorialcms/internal/db"
	"github.com/tutorialcms/internal/lifecycle"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ContentRepository implements lifecycle.ContentRepository over the
// tutorials and pages tables.
type ContentRepository struct {
	db  *gorm.DB
	now func() time.Time
}

// NewContentRepository returns a repository backed by gdb.
func NewContentRepository(gdb *gorm.DB) *ContentRepository {
	return &ContentRepository{db: gdb, now: time.Now}
}

var _ lifecycle.ContentRepository = (*ContentRepository)(nil)

func (r *ContentRepository) GetByID(ctx context.Context, t db.ContentType, id uint) (*lifecycle.Entity, error) {
	switch t {
	case db.ContentTutorial:
		var tutorial db.Tutorial
		if err := r.db.WithContext(ctx).First(&tutorial, id).Error; err != nil {
			return nil, notFoundOr(err, t, id)
		}
		return &lifecycle.Entity{
			Type:      t,
			ID:        tutorial.ID,
			Title:     tutorial.Title,
			Body:      tutorial.Body,
			Metadata:  tutorial.Metadata,
			Published: tutorial.Published,
			UpdatedAt: tutorial.UpdatedAt,
		}, nil
	case db.ContentPage:
		var page db.Page
		if err := r.db.WithContext(ctx).First(&page, id).Error; err != nil {
			return nil, notFoundOr(err, t, id)
		}
		return &lifecycle.Entity{
			Type:      t,
			ID:        page.ID,
			Title:     page.Title,
			Body:      page.Body,
			Metadata:  page.Metadata,
			Published: page.Published,
			UpdatedAt: page.UpdatedAt,
		}, nil
	}
	return nil, unknownType(t)
}

func (r *ContentRepository) UpdateFields(ctx context.Context, t db.ContentType, id uint, fields lifecycle.Fields) error {
	metadata := datatypes.JSONMap{}
	for k, v := range fields.Metadata {
		metadata[k] = v
	}
	return r.update(ctx, t, id, map[string]interface{}{
		"title":    fields.Title,
		"body":     fields.Body,
		"summary":  summarizeContent(fields.Body),
		"metadata": metadata,
	})
}

func (r *ContentRepository) SetPublished(ctx context.Context, t db.ContentType, id uint, published bool) error {
	updates := map[string]interface{}{"published": published}
	if published {
		updates["published_at"] = r.now()
	}
	return r.update(ctx, t, id, updates)
}

// Delete soft deletes the entity. Deleting a missing entity is not an error.
func (r *ContentRepository) Delete(ctx context.Context, t db.ContentType, id uint) error {
	model, err := modelFor(t)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Delete(model, id).Error
}

func (r *ContentRepository) update(ctx context.Context, t db.ContentType, id uint, updates map[string]interface{}) error {
	model, err := modelFor(t)
	if err != nil {
		return err
	}
	result := r.db.WithContext(ctx).Model(model).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%w: %s %d", lifecycle.ErrNotFound, t, id)
	}
	return nil
}

func modelFor(t db.ContentType) (interface{}, error) {
	switch t {
	case db.ContentTutorial:
		return &db.Tutorial{}, nil
	case db.ContentPage:
		return &db.Page{}, nil
	}
	return nil, unknownType(t)
}

func notFoundOr(err error, t db.ContentType, id uint) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%w: %s %d", lifecycle.ErrNotFound, t, id)
	}
	return err
}

func unknownType(t db.ContentType) error {
	return fmt.Errorf("%w: unknown content type %q", lifecycle.ErrValidation, t)
}
