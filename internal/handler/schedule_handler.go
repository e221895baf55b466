package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tutorialcms/internal/db"
	"github.com/tutorialcms/internal/lifecycle"
)

type schedulePayload struct {
	Action       string `json:"action"`
	ScheduledFor string `json:"scheduledFor"`
}

// ScheduleAction 登记一次未来的发布、下线或删除
func (a *API) ScheduleAction(t db.ContentType) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := parseUintParam(c, "id")
		if err != nil {
			respondError(c, http.StatusBadRequest, err.Error())
			return
		}

		var payload schedulePayload
		if !bindJSON(c, &payload, "请求格式不正确") {
			return
		}
		action, err := db.ParseAction(payload.Action)
		if err != nil {
			respondError(c, http.StatusBadRequest, err.Error())
			return
		}
		at, err := time.Parse(time.RFC3339, strings.TrimSpace(payload.ScheduledFor))
		if err != nil {
			respondError(c, http.StatusBadRequest, "scheduledFor must be an RFC3339 timestamp")
			return
		}

		record, err := a.engine.ScheduleAction(c.Request.Context(), lifecycle.ScheduleInput{
			Type:         t,
			ContentID:    id,
			Action:       action,
			ScheduledFor: at,
			AuthorID:     currentUserID(c),
		})
		if err != nil {
			a.respondServiceError(c, err, "创建计划任务失败")
			return
		}
		c.JSON(http.StatusCreated, gin.H{"scheduledAction": record})
	}
}

// ListScheduledActions 按内容筛选计划任务
func (a *API) ListScheduledActions(c *gin.Context) {
	var filter lifecycle.ScheduleFilter
	if raw := strings.TrimSpace(c.Query("type")); raw != "" {
		t, err := db.ParseContentType(raw)
		if err != nil {
			respondError(c, http.StatusBadRequest, err.Error())
			return
		}
		filter.Type = t
	}
	if raw := strings.TrimSpace(c.Query("contentId")); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			respondError(c, http.StatusBadRequest, "invalid contentId")
			return
		}
		filter.ContentID = uint(id)
	}
	filter.IncludeExecuted = parseBoolQuery(c, "includeExecuted")

	records, err := a.engine.ListScheduledActions(c.Request.Context(), filter)
	if err != nil {
		a.respondServiceError(c, err, "获取计划任务失败")
		return
	}
	if records == nil {
		records = []db.ScheduledAction{}
	}
	c.JSON(http.StatusOK, gin.H{"scheduledActions": records})
}

// CancelScheduledAction 取消尚未执行的计划任务
func (a *API) CancelScheduledAction(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, err.Error())
		return
	}

	if err := a.engine.CancelScheduledAction(c.Request.Context(), id); err != nil {
		a.respondServiceError(c, err, "取消计划任务失败")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "计划任务已取消"})
}

// ExecuteDue 立即执行所有到期的计划任务，可用 at 参数指定时间点
func (a *API) ExecuteDue(c *gin.Context) {
	now := time.Now()
	if raw := strings.TrimSpace(c.Query("at")); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			respondError(c, http.StatusBadRequest, "at must be an RFC3339 timestamp")
			return
		}
		now = parsed
	}

	summary, err := a.engine.ExecuteDue(c.Request.Context(), now)
	if err != nil {
		a.respondServiceError(c, err, "执行计划任务失败")
		return
	}
	c.JSON(http.StatusOK, gin.H{"summary": summary})
}
