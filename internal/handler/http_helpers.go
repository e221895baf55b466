package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/tutorialcms/internal/lifecycle"
	"github.com/tutorialcms/internal/service"
)

func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"error": message})
}

func bindJSON(c *gin.Context, dst interface{}, message string) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		respondError(c, http.StatusBadRequest, message)
		return false
	}
	return true
}

func parseUintParam(c *gin.Context, key string) (uint, error) {
	raw := c.Param(key)
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return uint(id), nil
}

func parseVersionParam(c *gin.Context) (int, error) {
	number, err := strconv.Atoi(c.Param("version"))
	if err != nil || number <= 0 {
		return 0, errors.New("invalid version")
	}
	return number, nil
}

func parseBoolQuery(c *gin.Context, key string) bool {
	switch strings.ToLower(strings.TrimSpace(c.Query(key))) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

// respondServiceError 将领域错误映射为 HTTP 状态码。
func (a *API) respondServiceError(c *gin.Context, err error, fallback string) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		a.log.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
		respondError(c, status, fallback)
		return
	}
	respondError(c, status, err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, lifecycle.ErrNotFound),
		errors.Is(err, service.ErrTutorialNotFound),
		errors.Is(err, service.ErrPageNotFound):
		return http.StatusNotFound
	case errors.Is(err, lifecycle.ErrConflict),
		errors.Is(err, lifecycle.ErrAlreadyExecuted),
		errors.Is(err, service.ErrSlugTaken):
		return http.StatusConflict
	case errors.Is(err, lifecycle.ErrValidation),
		errors.Is(err, service.ErrTitleRequired),
		errors.Is(err, service.ErrInvalidSlug):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// currentUserID 返回会话中的用户 ID，未登录时为 0。
func currentUserID(c *gin.Context) uint {
	switch v := sessions.Default(c).Get(sessionUserIDKey).(type) {
	case uint:
		return v
	case int:
		return uint(v)
	case int64:
		return uint(v)
	case float64:
		return uint(v)
	}
	return 0
}
