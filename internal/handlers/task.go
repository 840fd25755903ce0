package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/loomplan/loomplan-api/internal/dto"
	apierrors "github.com/loomplan/loomplan-api/internal/errors"
	"github.com/loomplan/loomplan-api/internal/middleware"
	"github.com/loomplan/loomplan-api/internal/models"
	"github.com/loomplan/loomplan-api/internal/repository"
	"github.com/loomplan/loomplan-api/internal/services"
	"github.com/loomplan/loomplan-api/internal/utils"
)

// TaskHandler coordinates task-related HTTP handlers.
type TaskHandler struct {
	taskService    *services.TaskService
	projectService *services.ProjectService
	accessService  *services.AccessService
	hierarchy      *services.HierarchyService
	aiService      *services.AIService
}

// NewTaskHandler creates a new TaskHandler
func NewTaskHandler(
	taskService *services.TaskService,
	projectService *services.ProjectService,
	accessService *services.AccessService,
	hierarchy *services.HierarchyService,
	aiService *services.AIService,
) *TaskHandler {
	return &TaskHandler{
		taskService:    taskService,
		projectService: projectService,
		accessService:  accessService,
		hierarchy:      hierarchy,
		aiService:      aiService,
	}
}

// ListTasks returns tasks in projects the caller may view.
func (h *TaskHandler) ListTasks(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)
	pagination := utils.GetPaginationParams(c)

	filter := repository.TaskFilter{
		Page:     pagination.Page,
		PageSize: pagination.Limit,
	}
	if raw := c.Query("project_id"); raw != "" {
		id, err := parseQueryID(raw)
		if err != nil {
			apierrors.BadRequest(c, "Invalid project_id")
			return
		}
		filter.ProjectIDs = []uint64{id}
	}
	if raw := c.Query("sprint_id"); raw != "" {
		id, err := parseQueryID(raw)
		if err != nil {
			apierrors.BadRequest(c, "Invalid sprint_id")
			return
		}
		filter.SprintID = &id
	}
	if raw := c.Query("status"); raw != "" {
		status := models.TaskStatus(raw)
		filter.Status = &status
	}
	if raw := c.Query("priority"); raw != "" {
		priority := models.TaskPriority(raw)
		filter.Priority = &priority
	}
	if c.Query("assigned_to_me") == "true" {
		filter.AssigneeID = &userID
	}

	tasks, total, err := h.taskService.ListTasks(userID, filter)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskListResponse(tasks, pagination.Page, pagination.Limit, total))
}

// CreateTask creates a task in the sprint from the URL. The caller needs
// edit access to the sprint's project.
func (h *TaskHandler) CreateTask(c *gin.Context) {
	type CreateRequest struct {
		Title       string              `json:"title" binding:"required,max=200"`
		Description string              `json:"description"`
		Priority    models.TaskPriority `json:"priority"`
		AssigneeID  *uint64             `json:"assignee_id"`
		StartDate   *time.Time          `json:"start_date"`
		DueDate     *time.Time          `json:"due_date"`
	}

	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	sprintID, err := parseIDParam(c, "id")
	if err != nil {
		apierrors.BadRequest(c, "Invalid sprint ID")
		return
	}
	userID, _ := middleware.GetUserID(c)

	sprint, err := h.projectService.GetSprint(sprintID)
	if err != nil {
		respondProjectError(c, err)
		return
	}
	if !h.ensureSprintEdit(c, userID, sprint) {
		return
	}

	task, err := h.taskService.CreateTask(services.CreateTaskInput{
		SprintID:    sprintID,
		ActorID:     userID,
		Title:       req.Title,
		Description: req.Description,
		Priority:    req.Priority,
		AssigneeID:  req.AssigneeID,
		StartDate:   req.StartDate,
		DueDate:     req.DueDate,
	})
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToTaskDTO(*task))
}

// GetTask returns the task loaded by the view middleware.
func (h *TaskHandler) GetTask(c *gin.Context) {
	task, ok := middleware.GetTask(c)
	if !ok {
		apierrors.InternalError(c, "")
		return
	}

	full, err := h.taskService.GetTask(task.ID)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskDTO(*full))
}

// UpdateTask applies changes within the edit scope resolved by the
// middleware.
func (h *TaskHandler) UpdateTask(c *gin.Context) {
	type UpdateRequest struct {
		Title         *string              `json:"title" binding:"omitempty,max=200"`
		Description   *string              `json:"description"`
		Status        *models.TaskStatus   `json:"status"`
		Priority      *models.TaskPriority `json:"priority"`
		AssigneeID    *uint64              `json:"assignee_id"`
		ClearAssignee bool                 `json:"clear_assignee"`
		StartDate     *time.Time           `json:"start_date"`
		DueDate       *time.Time           `json:"due_date"`
		Reason        string               `json:"reason"`
	}

	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	task, ok := middleware.GetTask(c)
	if !ok {
		apierrors.InternalError(c, "")
		return
	}
	scope, ok := middleware.GetTaskEditScope(c)
	if !ok {
		apierrors.InternalError(c, "")
		return
	}
	userID, _ := middleware.GetUserID(c)

	updated, err := h.taskService.UpdateTask(userID, task.ID, services.UpdateTaskInput{
		Title:         req.Title,
		Description:   req.Description,
		Status:        req.Status,
		Priority:      req.Priority,
		AssigneeID:    req.AssigneeID,
		ClearAssignee: req.ClearAssignee,
		StartDate:     req.StartDate,
		DueDate:       req.DueDate,
		Reason:        req.Reason,
	}, scope)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskDTO(*updated))
}

// DeleteTask removes a task. Deletion always needs full edit rights; a
// limited assignee scope is not enough.
func (h *TaskHandler) DeleteTask(c *gin.Context) {
	type DeleteRequest struct {
		Reason string `json:"reason"`
	}
	var req DeleteRequest
	_ = c.ShouldBindJSON(&req)

	task, ok := middleware.GetTask(c)
	if !ok {
		apierrors.InternalError(c, "")
		return
	}
	scope, ok := middleware.GetTaskEditScope(c)
	if !ok {
		apierrors.InternalError(c, "")
		return
	}
	if !scope.AllFields {
		apierrors.Forbidden(c, "Project edit access required to delete a task")
		return
	}
	userID, _ := middleware.GetUserID(c)

	if err := h.taskService.DeleteTask(userID, task.ID, req.Reason); err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Task deleted"})
}

// ListDependencies returns a task's dependency edges.
func (h *TaskHandler) ListDependencies(c *gin.Context) {
	task, ok := middleware.GetTask(c)
	if !ok {
		apierrors.InternalError(c, "")
		return
	}

	deps, err := h.taskService.ListDependencies(task.ID)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"dependencies": deps})
}

// AddDependency creates a dependency edge from the task to another.
func (h *TaskHandler) AddDependency(c *gin.Context) {
	type DependencyRequest struct {
		DependsOnID uint64                `json:"depends_on_id" binding:"required"`
		Type        models.DependencyType `json:"type"`
	}

	var req DependencyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	task, ok := middleware.GetTask(c)
	if !ok {
		apierrors.InternalError(c, "")
		return
	}
	userID, _ := middleware.GetUserID(c)

	dep, err := h.taskService.AddDependency(userID, task.ID, req.DependsOnID, req.Type)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dep)
}

// RemoveDependency deletes a dependency edge.
func (h *TaskHandler) RemoveDependency(c *gin.Context) {
	dependsOnID, err := parseIDParam(c, "dependsOnID")
	if err != nil {
		apierrors.BadRequest(c, "Invalid dependency ID")
		return
	}

	task, ok := middleware.GetTask(c)
	if !ok {
		apierrors.InternalError(c, "")
		return
	}
	userID, _ := middleware.GetUserID(c)

	if err := h.taskService.RemoveDependency(userID, task.ID, dependsOnID); err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Dependency removed"})
}

// GenerateTasks breaks free-form text into task drafts with AI. The
// drafts are returned to the caller for review, not persisted.
func (h *TaskHandler) GenerateTasks(c *gin.Context) {
	type GenerateRequest struct {
		Text string `json:"text" binding:"required"`
	}

	var req GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	tasks, err := h.aiService.GenerateTasks(c.Request.Context(), req.Text)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"tasks": tasks})
}

// ensureSprintEdit resolves the sprint's project and requires edit
// access, with the usual 404-for-invisible semantics.
func (h *TaskHandler) ensureSprintEdit(c *gin.Context, userID uint64, sprint *models.Sprint) bool {
	milestone, err := h.hierarchy.MilestoneOf(sprint)
	if err != nil {
		apierrors.InternalError(c, "")
		return false
	}
	project, err := h.hierarchy.ProjectOf(milestone)
	if err != nil {
		apierrors.InternalError(c, "")
		return false
	}

	canEdit, err := h.accessService.CanEditProject(userID, project)
	if err != nil {
		apierrors.InternalError(c, "")
		return false
	}
	if canEdit {
		return true
	}

	canView, err := h.accessService.CanViewProject(userID, project)
	if err != nil {
		apierrors.InternalError(c, "")
		return false
	}
	if canView {
		apierrors.Forbidden(c, "Project edit access required")
	} else {
		apierrors.NotFound(c, "Sprint not found")
	}
	return false
}

func respondTaskError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrTaskNotFound),
		errors.Is(err, services.ErrDependencyNotFound),
		errors.Is(err, services.ErrDependencyTargetGone):
		apierrors.NotFound(c, err.Error())
	case errors.Is(err, services.ErrFieldNotEditable):
		apierrors.Forbidden(c, err.Error())
	case errors.Is(err, services.ErrTaskTitleRequired),
		errors.Is(err, services.ErrSelfDependency),
		errors.Is(err, services.ErrAINoTasksGenerated),
		errors.Is(err, services.ErrAINoValidTasks):
		apierrors.BadRequest(c, err.Error())
	case errors.Is(err, services.ErrDuplicateDependency):
		apierrors.Conflict(c, err.Error())
	case errors.Is(err, services.ErrAIServiceNotConfigured):
		apierrors.InternalError(c, err.Error())
	default:
		apierrors.InternalError(c, "Internal server error")
	}
}
