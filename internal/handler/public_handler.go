package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tutorialcms/internal/service"
)

const renderFallback = "<p>内容暂时无法展示。</p>"

// ShowTutorial 返回已发布教程及渲染后的 HTML
func (a *API) ShowTutorial(c *gin.Context) {
	tutorial, err := a.tutorials.GetPublishedBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		a.respondServiceError(c, err, "加载教程失败")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"tutorial":    tutorialView(tutorial),
		"html":        renderOrFallback(tutorial.Body),
		"publishedAt": formatTimestamp(tutorial.PublishedAt),
	})
}

// ShowPage 返回已发布页面及渲染后的 HTML
func (a *API) ShowPage(c *gin.Context) {
	page, err := a.pages.GetBySlug(c.Request.Context(), c.Param("slug"), true)
	if err != nil {
		a.respondServiceError(c, err, "加载页面失败")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"page":        pageView(page),
		"html":        renderOrFallback(page.Body),
		"publishedAt": formatTimestamp(page.PublishedAt),
	})
}

func renderOrFallback(body string) string {
	html, err := service.RenderMarkdown(body)
	if err != nil {
		return renderFallback
	}
	return string(html)
}
