package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tutorialcms/internal/db"
	"github.com/tutorialcms/internal/lifecycle"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var (
	ErrTutorialNotFound = errors.New("tutorial not found")
	ErrTitleRequired    = errors.New("title is required")
	ErrSlugTaken        = errors.New("slug is already in use")
)

// VersionRecorder appends a snapshot after every save.
type VersionRecorder interface {
	Snapshot(ctx context.Context, input lifecycle.SnapshotInput) (*db.ContentVersion, error)
}

// TutorialService wraps tutorial related database operations.
type TutorialService struct {
	db       *gorm.DB
	versions VersionRecorder
}

// ContentInput represents fields accepted when creating or updating a
// tutorial or page.
type ContentInput struct {
	Slug     string
	Title    string
	Summary  string
	Body     string
	Metadata map[string]interface{}
	UserID   uint
}

// ContentFilter describes filters for listing tutorials and pages.
type ContentFilter struct {
	Search  string
	Status  string
	Page    int
	PerPage int
}

// TutorialListResult aggregates paginated list data and counters.
type TutorialListResult struct {
	Tutorials      []db.Tutorial
	Total          int64
	PublishedCount int64
	DraftCount     int64
	TotalPages     int
	Page           int
	PerPage        int
}

// NewTutorialService creates a TutorialService instance.
func NewTutorialService(gdb *gorm.DB, versions VersionRecorder) *TutorialService {
	return &TutorialService{db: gdb, versions: versions}
}

// Get fetches a tutorial by id.
func (s *TutorialService) Get(ctx context.Context, id uint) (*db.Tutorial, error) {
	var tutorial db.Tutorial
	if err := s.db.WithContext(ctx).First(&tutorial, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTutorialNotFound
		}
		return nil, err
	}
	return &tutorial, nil
}

// GetPublishedBySlug 返回已发布的教程，供前台展示。
func (s *TutorialService) GetPublishedBySlug(ctx context.Context, slug string) (*db.Tutorial, error) {
	var tutorial db.Tutorial
	if err := s.db.WithContext(ctx).
		Where("slug = ? AND published = ?", slug, true).
		First(&tutorial).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTutorialNotFound
		}
		return nil, err
	}
	return &tutorial, nil
}

// Create persists a tutorial and records version 1.
func (s *TutorialService) Create(ctx context.Context, input ContentInput) (*db.Tutorial, error) {
	title, slug, err := normalizeContentInput(input, "tutorial")
	if err != nil {
		return nil, err
	}

	tutorial := db.Tutorial{
		Slug:     slug,
		Title:    title,
		Summary:  summaryFor(input),
		Body:     input.Body,
		Metadata: toJSONMap(input.Metadata),
		UserID:   input.UserID,
	}
	if err := s.db.WithContext(ctx).Create(&tutorial).Error; err != nil {
		return nil, translateSaveError(err)
	}

	if err := s.snapshot(ctx, &tutorial, input.UserID, db.ChangeCreate); err != nil {
		return nil, err
	}
	return &tutorial, nil
}

// Update applies edits to an existing tutorial and records a new version.
func (s *TutorialService) Update(ctx context.Context, id uint, input ContentInput) (*db.Tutorial, error) {
	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	title, slug, err := normalizeContentInput(input, "tutorial")
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(input.Slug) == "" {
		slug = existing.Slug
	}

	existing.Slug = slug
	existing.Title = title
	existing.Summary = summaryFor(input)
	existing.Body = input.Body
	existing.Metadata = toJSONMap(input.Metadata)

	if err := s.db.WithContext(ctx).Save(existing).Error; err != nil {
		return nil, translateSaveError(err)
	}

	if err := s.snapshot(ctx, existing, input.UserID, db.ChangeUpdate); err != nil {
		return nil, err
	}
	return existing, nil
}

// Delete soft deletes a tutorial by id. Version history is kept.
func (s *TutorialService) Delete(ctx context.Context, id uint) error {
	result := s.db.WithContext(ctx).Delete(&db.Tutorial{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrTutorialNotFound
	}
	return nil
}

// List provides paginated tutorials with aggregated counters based on filters.
func (s *TutorialService) List(ctx context.Context, filter ContentFilter) (*TutorialListResult, error) {
	result := &TutorialListResult{Page: filter.Page, PerPage: filter.PerPage}
	if result.Page <= 0 {
		result.Page = 1
	}
	if result.PerPage <= 0 {
		result.PerPage = 10
	}

	base := s.db.WithContext(ctx).Model(&db.Tutorial{})
	if err := applyContentFilters(base, "tutorials", filter, true).Count(&result.Total).Error; err != nil {
		return nil, err
	}

	orderBy := "tutorials.updated_at desc, tutorials.id desc"
	if strings.EqualFold(filter.Status, "published") {
		orderBy = "tutorials.published_at desc, tutorials.id desc"
	}

	var tutorials []db.Tutorial
	dataQuery := applyContentFilters(s.db.WithContext(ctx).Model(&db.Tutorial{}), "tutorials", filter, true)
	if err := dataQuery.Order(orderBy).
		Limit(result.PerPage).
		Offset((result.Page - 1) * result.PerPage).
		Find(&tutorials).Error; err != nil {
		return nil, err
	}

	published, draft, err := countByStatus(ctx, s.db, &db.Tutorial{}, "tutorials", filter)
	if err != nil {
		return nil, err
	}
	result.PublishedCount = published
	result.DraftCount = draft
	result.TotalPages = totalPages(result.Total, result.PerPage)
	result.Tutorials = tutorials
	return result, nil
}

func (s *TutorialService) snapshot(ctx context.Context, tutorial *db.Tutorial, authorID uint, change string) error {
	if s.versions == nil {
		return nil
	}
	_, err := s.versions.Snapshot(ctx, lifecycle.SnapshotInput{
		Type:       db.ContentTutorial,
		ContentID:  tutorial.ID,
		Title:      tutorial.Title,
		Body:       tutorial.Body,
		Metadata:   tutorial.Metadata,
		AuthorID:   authorID,
		ChangeType: change,
	})
	if err != nil {
		return fmt.Errorf("record version for tutorial %d: %w", tutorial.ID, err)
	}
	return nil
}

func normalizeContentInput(input ContentInput, slugPrefix string) (string, string, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return "", "", ErrTitleRequired
	}
	slug, err := normalizeSlug(input.Slug, title, slugPrefix)
	if err != nil {
		return "", "", err
	}
	return title, slug, nil
}

func summaryFor(input ContentInput) string {
	if summary := strings.TrimSpace(input.Summary); summary != "" {
		return summary
	}
	return summarizeContent(input.Body)
}

func toJSONMap(src map[string]interface{}) datatypes.JSONMap {
	dst := make(datatypes.JSONMap, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

func translateSaveError(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) || strings.Contains(strings.ToLower(err.Error()), "unique") {
		return ErrSlugTaken
	}
	return err
}

func applyContentFilters(query *gorm.DB, table string, filter ContentFilter, includeStatus bool) *gorm.DB {
	if search := strings.TrimSpace(filter.Search); search != "" {
		like := "%" + search + "%"
		query = query.Where(fmt.Sprintf("(%[1]s.title LIKE ? OR %[1]s.body LIKE ? OR %[1]s.summary LIKE ?)", table), like, like, like)
	}

	if includeStatus {
		switch strings.ToLower(strings.TrimSpace(filter.Status)) {
		case "published":
			query = query.Where(table+".published = ?", true)
		case "draft":
			query = query.Where(table+".published = ?", false)
		}
	}
	return query
}

func countByStatus(ctx context.Context, gdb *gorm.DB, model interface{}, table string, filter ContentFilter) (int64, int64, error) {
	var published, draft int64
	if err := applyContentFilters(gdb.WithContext(ctx).Model(model), table, filter, false).
		Where(table+".published = ?", true).
		Count(&published).Error; err != nil {
		return 0, 0, err
	}
	if err := applyContentFilters(gdb.WithContext(ctx).Model(model), table, filter, false).
		Where(table+".published = ?", false).
		Count(&draft).Error; err != nil {
		return 0, 0, err
	}
	return published, draft, nil
}

func totalPages(total int64, perPage int) int {
	if total == 0 {
		return 1
	}
	return int((total + int64(perPage) - 1) / int64(perPage))
}
