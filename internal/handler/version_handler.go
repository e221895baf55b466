package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tutorialcms/internal/db"
)

// CreateVersion 为当前内容状态手动创建快照
func (a *API) CreateVersion(t db.ContentType) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := parseUintParam(c, "id")
		if err != nil {
			respondError(c, http.StatusBadRequest, err.Error())
			return
		}

		version, err := a.engine.CreateVersion(c.Request.Context(), t, id, currentUserID(c))
		if err != nil {
			a.respondServiceError(c, err, "创建版本失败")
			return
		}
		c.JSON(http.StatusCreated, gin.H{"version": version})
	}
}

// ListVersions 返回版本历史，最新版本在前
func (a *API) ListVersions(t db.ContentType) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := parseUintParam(c, "id")
		if err != nil {
			respondError(c, http.StatusBadRequest, err.Error())
			return
		}

		versions, err := a.engine.ListVersions(c.Request.Context(), t, id)
		if err != nil {
			a.respondServiceError(c, err, "获取版本历史失败")
			return
		}
		if versions == nil {
			versions = []db.ContentVersion{}
		}
		c.JSON(http.StatusOK, gin.H{"versions": versions})
	}
}

// GetVersion 返回指定版本
func (a *API) GetVersion(t db.ContentType) gin.HandlerFunc {
	return func(c *gin.Context) {
		version, ok := a.lookupVersion(c, t)
		if !ok {
			return
		}
		c.JSON(http.StatusOK, gin.H{"version": version})
	}
}

// PreviewVersion 渲染指定版本的正文
func (a *API) PreviewVersion(t db.ContentType) gin.HandlerFunc {
	return func(c *gin.Context) {
		version, ok := a.lookupVersion(c, t)
		if !ok {
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"versionNumber": version.VersionNumber,
			"title":         version.Title,
			"html":          renderOrFallback(version.Body),
		})
	}
}

// RestoreVersion 将内容回滚到指定版本，并记录为最新版本
func (a *API) RestoreVersion(t db.ContentType) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := parseUintParam(c, "id")
		if err != nil {
			respondError(c, http.StatusBadRequest, err.Error())
			return
		}
		number, err := parseVersionParam(c)
		if err != nil {
			respondError(c, http.StatusBadRequest, err.Error())
			return
		}

		restored, err := a.engine.RestoreVersion(c.Request.Context(), t, id, number, currentUserID(c))
		if err != nil {
			a.respondServiceError(c, err, "恢复版本失败")
			return
		}
		c.JSON(http.StatusOK, gin.H{"version": restored})
	}
}

func (a *API) lookupVersion(c *gin.Context, t db.ContentType) (*db.ContentVersion, bool) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return nil, false
	}
	number, err := parseVersionParam(c)
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return nil, false
	}

	version, err := a.engine.GetVersion(c.Request.Context(), t, id, number)
	if err != nil {
		a.respondServiceError(c, err, "获取版本失败")
		return nil, false
	}
	return version, true
}
