package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tutorialcms/internal/db"
	"github.com/tutorialcms/internal/service"
)

type contentPayload struct {
	Slug     string                 `json:"slug"`
	Title    string                 `json:"title"`
	Summary  string                 `json:"summary"`
	Body     string                 `json:"body"`
	Metadata map[string]interface{} `json:"metadata"`
}

func (p contentPayload) input(userID uint) service.ContentInput {
	return service.ContentInput{
		Slug:     p.Slug,
		Title:    p.Title,
		Summary:  p.Summary,
		Body:     p.Body,
		Metadata: p.Metadata,
		UserID:   userID,
	}
}

func tutorialView(t *db.Tutorial) gin.H {
	return gin.H{
		"id":          t.ID,
		"type":        db.ContentTutorial,
		"slug":        t.Slug,
		"title":       t.Title,
		"summary":     t.Summary,
		"body":        t.Body,
		"metadata":    t.Metadata,
		"published":   t.Published,
		"publishedAt": t.PublishedAt,
		"createdAt":   t.CreatedAt,
		"updatedAt":   t.UpdatedAt,
	}
}

func pageView(p *db.Page) gin.H {
	return gin.H{
		"id":          p.ID,
		"type":        db.ContentPage,
		"slug":        p.Slug,
		"title":       p.Title,
		"summary":     p.Summary,
		"body":        p.Body,
		"metadata":    p.Metadata,
		"published":   p.Published,
		"publishedAt": p.PublishedAt,
		"createdAt":   p.CreatedAt,
		"updatedAt":   p.UpdatedAt,
	}
}

func contentFilterFromQuery(c *gin.Context) service.ContentFilter {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("perPage", "10"))
	return service.ContentFilter{
		Search:  c.Query("search"),
		Status:  c.Query("status"),
		Page:    page,
		PerPage: perPage,
	}
}

// ListTutorials 获取教程列表
func (a *API) ListTutorials(c *gin.Context) {
	result, err := a.tutorials.List(c.Request.Context(), contentFilterFromQuery(c))
	if err != nil {
		a.respondServiceError(c, err, "获取教程列表失败")
		return
	}

	items := make([]gin.H, 0, len(result.Tutorials))
	for i := range result.Tutorials {
		items = append(items, tutorialView(&result.Tutorials[i]))
	}
	c.JSON(http.StatusOK, gin.H{
		"tutorials":      items,
		"total":          result.Total,
		"publishedCount": result.PublishedCount,
		"draftCount":     result.DraftCount,
		"page":           result.Page,
		"perPage":        result.PerPage,
		"totalPages":     result.TotalPages,
	})
}

// GetTutorial 获取单篇教程
func (a *API) GetTutorial(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的教程ID")
		return
	}

	tutorial, err := a.tutorials.Get(c.Request.Context(), id)
	if err != nil {
		a.respondServiceError(c, err, "获取教程失败")
		return
	}
	c.JSON(http.StatusOK, gin.H{"tutorial": tutorialView(tutorial)})
}

// CreateTutorial 创建教程并记录版本 1
func (a *API) CreateTutorial(c *gin.Context) {
	var payload contentPayload
	if !bindJSON(c, &payload, "请求格式不正确") {
		return
	}

	tutorial, err := a.tutorials.Create(c.Request.Context(), payload.input(currentUserID(c)))
	if err != nil {
		a.respondServiceError(c, err, "创建教程失败")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"tutorial": tutorialView(tutorial)})
}

// UpdateTutorial 更新教程并追加新版本
func (a *API) UpdateTutorial(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的教程ID")
		return
	}

	var payload contentPayload
	if !bindJSON(c, &payload, "请求格式不正确") {
		return
	}

	tutorial, err := a.tutorials.Update(c.Request.Context(), id, payload.input(currentUserID(c)))
	if err != nil {
		a.respondServiceError(c, err, "更新教程失败")
		return
	}
	c.JSON(http.StatusOK, gin.H{"tutorial": tutorialView(tutorial)})
}

// DeleteTutorial 软删除教程，版本历史保留
func (a *API) DeleteTutorial(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的教程ID")
		return
	}

	if err := a.tutorials.Delete(c.Request.Context(), id); err != nil {
		a.respondServiceError(c, err, "删除教程失败")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "教程已删除"})
}

// ListPages 获取页面列表
func (a *API) ListPages(c *gin.Context) {
	pages, err := a.pages.List(c.Request.Context(), contentFilterFromQuery(c))
	if err != nil {
		a.respondServiceError(c, err, "获取页面列表失败")
		return
	}

	items := make([]gin.H, 0, len(pages))
	for i := range pages {
		items = append(items, pageView(&pages[i]))
	}
	c.JSON(http.StatusOK, gin.H{"pages": items})
}

// GetPage 获取单个页面
func (a *API) GetPage(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的页面ID")
		return
	}

	page, err := a.pages.Get(c.Request.Context(), id)
	if err != nil {
		a.respondServiceError(c, err, "获取页面失败")
		return
	}
	c.JSON(http.StatusOK, gin.H{"page": pageView(page)})
}

// CreatePage 创建页面并记录版本 1
func (a *API) CreatePage(c *gin.Context) {
	var payload contentPayload
	if !bindJSON(c, &payload, "请求格式不正确") {
		return
	}

	page, err := a.pages.Create(c.Request.Context(), payload.input(currentUserID(c)))
	if err != nil {
		a.respondServiceError(c, err, "创建页面失败")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"page": pageView(page)})
}

// UpdatePage 更新页面并追加新版本
func (a *API) UpdatePage(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的页面ID")
		return
	}

	var payload contentPayload
	if !bindJSON(c, &payload, "请求格式不正确") {
		return
	}

	page, err := a.pages.Update(c.Request.Context(), id, payload.input(currentUserID(c)))
	if err != nil {
		a.respondServiceError(c, err, "更新页面失败")
		return
	}
	c.JSON(http.StatusOK, gin.H{"page": pageView(page)})
}

// DeletePage 软删除页面
func (a *API) DeletePage(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的页面ID")
		return
	}

	if err := a.pages.Delete(c.Request.Context(), id); err != nil {
		a.respondServiceError(c, err, "删除页面失败")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "页面已删除"})
}

func formatTimestamp(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.In(time.Local).Format("2006-01-02 15:04")
}
