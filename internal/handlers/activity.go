package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/loomplan/loomplan-api/internal/constants"
	apierrors "github.com/loomplan/loomplan-api/internal/errors"
	"github.com/loomplan/loomplan-api/internal/middleware"
	"github.com/loomplan/loomplan-api/internal/models"
	"github.com/loomplan/loomplan-api/internal/repository"
	"github.com/loomplan/loomplan-api/internal/services"
)

// ActivityHandler exposes the audit log over HTTP. Every route is
// scoped by an access-checked parent (workspace, project or task); the
// raw log is never queryable across the whole system by normal users.
type ActivityHandler struct {
	auditService *services.AuditService
}

// NewActivityHandler creates a new ActivityHandler
func NewActivityHandler(auditService *services.AuditService) *ActivityHandler {
	return &ActivityHandler{
		auditService: auditService,
	}
}

// WorkspaceActivity returns the audit history of one workspace.
func (h *ActivityHandler) WorkspaceActivity(c *gin.Context) {
	ws, ok := middleware.GetWorkspace(c)
	if !ok {
		apierrors.InternalError(c, "")
		return
	}

	filter, ok := activityFilterFromQuery(c)
	if !ok {
		return
	}
	filter.WorkspaceID = &ws.ID

	h.respondList(c, filter)
}

// ProjectActivity returns the audit history of one project.
func (h *ActivityHandler) ProjectActivity(c *gin.Context) {
	project, ok := middleware.GetProject(c)
	if !ok {
		apierrors.InternalError(c, "")
		return
	}

	filter, ok := activityFilterFromQuery(c)
	if !ok {
		return
	}
	filter.ProjectID = &project.ID

	h.respondList(c, filter)
}

// TaskActivity returns the audit history of one task.
func (h *ActivityHandler) TaskActivity(c *gin.Context) {
	task, ok := middleware.GetTask(c)
	if !ok {
		apierrors.InternalError(c, "")
		return
	}

	filter, ok := activityFilterFromQuery(c)
	if !ok {
		return
	}
	kind := models.KindTask
	filter.ContentType = &kind
	filter.ObjectID = &task.ID

	h.respondList(c, filter)
}

// MyActivity returns the caller's own audit history.
func (h *ActivityHandler) MyActivity(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	filter, ok := activityFilterFromQuery(c)
	if !ok {
		return
	}
	filter.UserID = &userID

	h.respondList(c, filter)
}

// Summary aggregates activity over a trailing window (default 7 days).
func (h *ActivityHandler) Summary(c *gin.Context) {
	days := 7
	if raw := c.Query("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			apierrors.BadRequest(c, "Invalid days")
			return
		}
		days = parsed
	}

	summary, err := h.auditService.Summarize(days)
	if err != nil {
		apierrors.InternalError(c, "")
		return
	}

	c.JSON(http.StatusOK, summary)
}

func (h *ActivityHandler) respondList(c *gin.Context, filter repository.ActivityFilter) {
	entries, err := h.auditService.ListActivity(filter)
	if err != nil {
		apierrors.InternalError(c, "")
		return
	}

	c.JSON(http.StatusOK, gin.H{"activity": entries})
}

// activityFilterFromQuery parses the shared query parameters: action,
// from, to (RFC3339) and limit.
func activityFilterFromQuery(c *gin.Context) (repository.ActivityFilter, bool) {
	filter := repository.ActivityFilter{Limit: constants.DefaultActivityLimit}

	if raw := c.Query("action"); raw != "" {
		filter.Action = &raw
	}
	if raw := c.Query("from"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			apierrors.BadRequest(c, "Invalid from timestamp")
			return filter, false
		}
		filter.From = &t
	}
	if raw := c.Query("to"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			apierrors.BadRequest(c, "Invalid to timestamp")
			return filter, false
		}
		filter.To = &t
	}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			apierrors.BadRequest(c, "Invalid limit")
			return filter, false
		}
		filter.Limit = limit
	}

	return filter, true
}
