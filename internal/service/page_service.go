package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tutorialcms/internal/db"
	"github.com/tutorialcms/internal/lifecycle"
	"gorm.io/gorm"
)

var ErrPageNotFound = errors.New("page not found")

// PageService provides access to standalone pages such as About.
type PageService struct {
	db       *gorm.DB
	versions VersionRecorder
}

// NewPageService returns a new PageService instance.
func NewPageService(gdb *gorm.DB, versions VersionRecorder) *PageService {
	return &PageService{db: gdb, versions: versions}
}

// Get fetches a page by id.
func (s *PageService) Get(ctx context.Context, id uint) (*db.Page, error) {
	var page db.Page
	if err := s.db.WithContext(ctx).First(&page, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPageNotFound
		}
		return nil, err
	}
	return &page, nil
}

// GetBySlug fetches a page for a given slug. publishedOnly hides drafts.
func (s *PageService) GetBySlug(ctx context.Context, slug string, publishedOnly bool) (*db.Page, error) {
	query := s.db.WithContext(ctx).Where("slug = ?", slug)
	if publishedOnly {
		query = query.Where("published = ?", true)
	}

	var page db.Page
	if err := query.First(&page).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPageNotFound
		}
		return nil, err
	}
	return &page, nil
}

// List returns pages ordered by title.
func (s *PageService) List(ctx context.Context, filter ContentFilter) ([]db.Page, error) {
	var pages []db.Page
	query := applyContentFilters(s.db.WithContext(ctx).Model(&db.Page{}), "pages", filter, true)
	if err := query.Order("pages.title asc, pages.id asc").Find(&pages).Error; err != nil {
		return nil, err
	}
	return pages, nil
}

// Create persists a page and records version 1.
func (s *PageService) Create(ctx context.Context, input ContentInput) (*db.Page, error) {
	title, slug, err := normalizeContentInput(input, "page")
	if err != nil {
		return nil, err
	}

	page := db.Page{
		Slug:     slug,
		Title:    title,
		Summary:  summaryFor(input),
		Body:     input.Body,
		Metadata: toJSONMap(input.Metadata),
		UserID:   input.UserID,
	}
	if err := s.db.WithContext(ctx).Create(&page).Error; err != nil {
		return nil, translateSaveError(err)
	}
	if err := s.snapshot(ctx, &page, input.UserID, db.ChangeCreate); err != nil {
		return nil, err
	}
	return &page, nil
}

// Update applies edits to a page and records a new version.
func (s *PageService) Update(ctx context.Context, id uint, input ContentInput) (*db.Page, error) {
	page, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	title, slug, err := normalizeContentInput(input, "page")
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(input.Slug) == "" {
		slug = page.Slug
	}

	page.Slug = slug
	page.Title = title
	page.Summary = summaryFor(input)
	page.Body = input.Body
	page.Metadata = toJSONMap(input.Metadata)

	if err := s.db.WithContext(ctx).Save(page).Error; err != nil {
		return nil, translateSaveError(err)
	}
	if err := s.snapshot(ctx, page, input.UserID, db.ChangeUpdate); err != nil {
		return nil, err
	}
	return page, nil
}

// Delete soft deletes a page.
func (s *PageService) Delete(ctx context.Context, id uint) error {
	result := s.db.WithContext(ctx).Delete(&db.Page{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrPageNotFound
	}
	return nil
}

func (s *PageService) snapshot(ctx context.Context, page *db.Page, authorID uint, change string) error {
	if s.versions == nil {
		return nil
	}
	if _, err := s.versions.Snapshot(ctx, lifecycle.SnapshotInput{
		Type:       db.ContentPage,
		ContentID:  page.ID,
		Title:      page.Title,
		Body:       page.Body,
		Metadata:   page.Metadata,
		AuthorID:   authorID,
		ChangeType: change,
	}); err != nil {
		return fmt.Errorf("record version for page %d: %w", page.ID, err)
	}
	return nil
}
