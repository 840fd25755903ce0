package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	apierrors "github.com/loomplan/loomplan-api/internal/errors"
	"github.com/loomplan/loomplan-api/internal/middleware"
	"github.com/loomplan/loomplan-api/internal/models"
	"github.com/loomplan/loomplan-api/internal/services"
)

// ProjectHandler coordinates project, milestone and sprint HTTP
// handlers.
type ProjectHandler struct {
	projectService *services.ProjectService
	accessService  *services.AccessService
	hierarchy      *services.HierarchyService
}

// NewProjectHandler creates a new ProjectHandler
func NewProjectHandler(
	projectService *services.ProjectService,
	accessService *services.AccessService,
	hierarchy *services.HierarchyService,
) *ProjectHandler {
	return &ProjectHandler{
		projectService: projectService,
		accessService:  accessService,
		hierarchy:      hierarchy,
	}
}

// stageRequest is the request body shared by milestone and sprint
// create/update endpoints.
type stageRequest struct {
	Name        *string             `json:"name" binding:"omitempty,max=200"`
	Description *string             `json:"description"`
	Status      *models.StageStatus `json:"status"`
	StartDate   *time.Time          `json:"start_date"`
	EndDate     *time.Time          `json:"end_date"`
	Reason      string              `json:"reason"`
}

func (r stageRequest) toInput() services.StageInput {
	return services.StageInput{
		Name:        r.Name,
		Description: r.Description,
		Status:      r.Status,
		StartDate:   r.StartDate,
		EndDate:     r.EndDate,
		Reason:      r.Reason,
	}
}

// CreateProject creates a project inside the workspace from the URL.
func (h *ProjectHandler) CreateProject(c *gin.Context) {
	type CreateRequest struct {
		Name        string            `json:"name" binding:"required,max=200"`
		Description string            `json:"description"`
		Visibility  models.Visibility `json:"visibility"`
		StartDate   *time.Time        `json:"start_date"`
		EndDate     *time.Time        `json:"end_date"`
	}

	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	ws, ok := middleware.GetWorkspace(c)
	if !ok {
		apierrors.InternalError(c, "")
		return
	}
	userID, _ := middleware.GetUserID(c)

	project, err := h.projectService.CreateProject(services.CreateProjectInput{
		WorkspaceID: ws.ID,
		ActorID:     userID,
		Name:        req.Name,
		Description: req.Description,
		Visibility:  req.Visibility,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
	})
	if err != nil {
		respondProjectError(c, err)
		return
	}

	c.JSON(http.StatusCreated, project)
}

// ListProjects returns projects the caller may view, optionally scoped
// to one workspace via the workspace_id query parameter.
func (h *ProjectHandler) ListProjects(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	var workspaceID *uint64
	if raw := c.Query("workspace_id"); raw != "" {
		id, err := parseQueryID(raw)
		if err != nil {
			apierrors.BadRequest(c, "Invalid workspace_id")
			return
		}
		workspaceID = &id
	}

	projects, err := h.projectService.ListProjects(userID, workspaceID)
	if err != nil {
		respondProjectError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"projects": projects})
}

// GetProject returns the project loaded by the view middleware.
func (h *ProjectHandler) GetProject(c *gin.Context) {
	project, ok := middleware.GetProject(c)
	if !ok {
		apierrors.InternalError(c, "")
		return
	}

	full, err := h.projectService.GetProject(project.ID)
	if err != nil {
		respondProjectError(c, err)
		return
	}

	c.JSON(http.StatusOK, full)
}

// UpdateProject updates a project.
func (h *ProjectHandler) UpdateProject(c *gin.Context) {
	type UpdateRequest struct {
		Name        *string             `json:"name" binding:"omitempty,max=200"`
		Description *string             `json:"description"`
		Visibility  *models.Visibility  `json:"visibility"`
		Status      *models.StageStatus `json:"status"`
		StartDate   *time.Time          `json:"start_date"`
		EndDate     *time.Time          `json:"end_date"`
		Reason      string              `json:"reason"`
	}

	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	project, ok := middleware.GetProject(c)
	if !ok {
		apierrors.InternalError(c, "")
		return
	}
	userID, _ := middleware.GetUserID(c)

	updated, err := h.projectService.UpdateProject(userID, project.ID, services.UpdateProjectInput{
		Name:        req.Name,
		Description: req.Description,
		Visibility:  req.Visibility,
		Status:      req.Status,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		Reason:      req.Reason,
	})
	if err != nil {
		respondProjectError(c, err)
		return
	}

	c.JSON(http.StatusOK, updated)
}

// ArchiveProject marks a project archived.
func (h *ProjectHandler) ArchiveProject(c *gin.Context) {
	h.setArchived(c, true)
}

// UnarchiveProject clears the archived flag.
func (h *ProjectHandler) UnarchiveProject(c *gin.Context) {
	h.setArchived(c, false)
}

func (h *ProjectHandler) setArchived(c *gin.Context, archived bool) {
	project, ok := middleware.GetProject(c)
	if !ok {
		apierrors.InternalError(c, "")
		return
	}
	userID, _ := middleware.GetUserID(c)

	updated, err := h.projectService.SetProjectArchived(userID, project.ID, archived)
	if err != nil {
		respondProjectError(c, err)
		return
	}

	c.JSON(http.StatusOK, updated)
}

// DeleteProject removes a project and its hierarchy.
func (h *ProjectHandler) DeleteProject(c *gin.Context) {
	type DeleteRequest struct {
		Reason string `json:"reason"`
	}
	var req DeleteRequest
	_ = c.ShouldBindJSON(&req)

	project, ok := middleware.GetProject(c)
	if !ok {
		apierrors.InternalError(c, "")
		return
	}
	userID, _ := middleware.GetUserID(c)

	if err := h.projectService.DeleteProject(userID, project.ID, req.Reason); err != nil {
		respondProjectError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Project deleted"})
}

// ListProjectMembers returns the project's members.
func (h *ProjectHandler) ListProjectMembers(c *gin.Context) {
	project, ok := middleware.GetProject(c)
	if !ok {
		apierrors.InternalError(c, "")
		return
	}

	members, err := h.projectService.ListProjectMembers(project.ID)
	if err != nil {
		respondProjectError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"members": members})
}

// AddProjectMember enrolls a workspace member into the project.
func (h *ProjectHandler) AddProjectMember(c *gin.Context) {
	type AddMemberRequest struct {
		UserID uint64  `json:"user_id" binding:"required"`
		RoleID *uint64 `json:"role_id"`
	}

	var req AddMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	project, ok := middleware.GetProject(c)
	if !ok {
		apierrors.InternalError(c, "")
		return
	}
	userID, _ := middleware.GetUserID(c)

	member, err := h.projectService.AddProjectMember(userID, project.ID, req.UserID, req.RoleID)
	if err != nil {
		respondProjectError(c, err)
		return
	}

	c.JSON(http.StatusCreated, member)
}

// RemoveProjectMember removes a user from the project.
func (h *ProjectHandler) RemoveProjectMember(c *gin.Context) {
	memberUserID, err := parseIDParam(c, "userID")
	if err != nil {
		apierrors.BadRequest(c, "Invalid user ID")
		return
	}

	project, ok := middleware.GetProject(c)
	if !ok {
		apierrors.InternalError(c, "")
		return
	}
	userID, _ := middleware.GetUserID(c)

	if err := h.projectService.RemoveProjectMember(userID, project.ID, memberUserID); err != nil {
		respondProjectError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Member removed"})
}

// ListMilestones returns a project's milestones.
func (h *ProjectHandler) ListMilestones(c *gin.Context) {
	project, ok := middleware.GetProject(c)
	if !ok {
		apierrors.InternalError(c, "")
		return
	}

	milestones, err := h.projectService.ListMilestones(project.ID)
	if err != nil {
		respondProjectError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"milestones": milestones})
}

// CreateMilestone adds a milestone to a project.
func (h *ProjectHandler) CreateMilestone(c *gin.Context) {
	var req stageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	project, ok := middleware.GetProject(c)
	if !ok {
		apierrors.InternalError(c, "")
		return
	}
	userID, _ := middleware.GetUserID(c)

	milestone, err := h.projectService.CreateMilestone(userID, project.ID, req.toInput())
	if err != nil {
		respondProjectError(c, err)
		return
	}

	c.JSON(http.StatusCreated, milestone)
}

// GetMilestone returns one milestone. View access follows the owning
// project.
func (h *ProjectHandler) GetMilestone(c *gin.Context) {
	milestone, ok := h.milestoneWithAccess(c, false)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, milestone)
}

// UpdateMilestone updates a milestone. Edit access follows the owning
// project.
func (h *ProjectHandler) UpdateMilestone(c *gin.Context) {
	var req stageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	milestone, ok := h.milestoneWithAccess(c, true)
	if !ok {
		return
	}
	userID, _ := middleware.GetUserID(c)

	updated, err := h.projectService.UpdateMilestone(userID, milestone.ID, req.toInput())
	if err != nil {
		respondProjectError(c, err)
		return
	}

	c.JSON(http.StatusOK, updated)
}

// DeleteMilestone removes a milestone and everything beneath it.
func (h *ProjectHandler) DeleteMilestone(c *gin.Context) {
	type DeleteRequest struct {
		Reason string `json:"reason"`
	}
	var req DeleteRequest
	_ = c.ShouldBindJSON(&req)

	milestone, ok := h.milestoneWithAccess(c, true)
	if !ok {
		return
	}
	userID, _ := middleware.GetUserID(c)

	if err := h.projectService.DeleteMilestone(userID, milestone.ID, req.Reason); err != nil {
		respondProjectError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Milestone deleted"})
}

// ListSprints returns a milestone's sprints.
func (h *ProjectHandler) ListSprints(c *gin.Context) {
	milestone, ok := h.milestoneWithAccess(c, false)
	if !ok {
		return
	}

	sprints, err := h.projectService.ListSprints(milestone.ID)
	if err != nil {
		respondProjectError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"sprints": sprints})
}

// CreateSprint adds a sprint to a milestone.
func (h *ProjectHandler) CreateSprint(c *gin.Context) {
	var req stageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	milestone, ok := h.milestoneWithAccess(c, true)
	if !ok {
		return
	}
	userID, _ := middleware.GetUserID(c)

	sprint, err := h.projectService.CreateSprint(userID, milestone.ID, req.toInput())
	if err != nil {
		respondProjectError(c, err)
		return
	}

	c.JSON(http.StatusCreated, sprint)
}

// GetSprint returns one sprint.
func (h *ProjectHandler) GetSprint(c *gin.Context) {
	sprint, ok := h.sprintWithAccess(c, false)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, sprint)
}

// UpdateSprint updates a sprint.
func (h *ProjectHandler) UpdateSprint(c *gin.Context) {
	var req stageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	sprint, ok := h.sprintWithAccess(c, true)
	if !ok {
		return
	}
	userID, _ := middleware.GetUserID(c)

	updated, err := h.projectService.UpdateSprint(userID, sprint.ID, req.toInput())
	if err != nil {
		respondProjectError(c, err)
		return
	}

	c.JSON(http.StatusOK, updated)
}

// DeleteSprint removes a sprint and its tasks.
func (h *ProjectHandler) DeleteSprint(c *gin.Context) {
	type DeleteRequest struct {
		Reason string `json:"reason"`
	}
	var req DeleteRequest
	_ = c.ShouldBindJSON(&req)

	sprint, ok := h.sprintWithAccess(c, true)
	if !ok {
		return
	}
	userID, _ := middleware.GetUserID(c)

	if err := h.projectService.DeleteSprint(userID, sprint.ID, req.Reason); err != nil {
		respondProjectError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Sprint deleted"})
}

// milestoneWithAccess loads the :id milestone and enforces project
// access: 404 when the caller cannot view, 403 for viewers without edit
// rights on edit paths.
func (h *ProjectHandler) milestoneWithAccess(c *gin.Context, needEdit bool) (*models.Milestone, bool) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		apierrors.BadRequest(c, "Invalid milestone ID")
		return nil, false
	}

	milestone, err := h.projectService.GetMilestone(id)
	if err != nil {
		respondProjectError(c, err)
		return nil, false
	}

	project, err := h.hierarchy.ProjectOf(milestone)
	if err != nil {
		apierrors.InternalError(c, "")
		return nil, false
	}

	if !h.checkStageAccess(c, project, needEdit, "Milestone not found") {
		return nil, false
	}
	return milestone, true
}

// sprintWithAccess does the same for the :id sprint.
func (h *ProjectHandler) sprintWithAccess(c *gin.Context, needEdit bool) (*models.Sprint, bool) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		apierrors.BadRequest(c, "Invalid sprint ID")
		return nil, false
	}

	sprint, err := h.projectService.GetSprint(id)
	if err != nil {
		respondProjectError(c, err)
		return nil, false
	}

	milestone, err := h.hierarchy.MilestoneOf(sprint)
	if err != nil {
		apierrors.InternalError(c, "")
		return nil, false
	}
	project, err := h.hierarchy.ProjectOf(milestone)
	if err != nil {
		apierrors.InternalError(c, "")
		return nil, false
	}

	if !h.checkStageAccess(c, project, needEdit, "Sprint not found") {
		return nil, false
	}
	return sprint, true
}

func (h *ProjectHandler) checkStageAccess(c *gin.Context, project *models.Project, needEdit bool, notFoundMsg string) bool {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "")
		return false
	}

	canView, err := h.accessService.CanViewProject(userID, project)
	if err != nil {
		apierrors.InternalError(c, "")
		return false
	}
	if !canView {
		apierrors.NotFound(c, notFoundMsg)
		return false
	}
	if !needEdit {
		return true
	}

	canEdit, err := h.accessService.CanEditProject(userID, project)
	if err != nil {
		apierrors.InternalError(c, "")
		return false
	}
	if !canEdit {
		apierrors.Forbidden(c, "Project edit access required")
		return false
	}
	return true
}

func respondProjectError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrProjectNotFound),
		errors.Is(err, services.ErrMilestoneNotFound),
		errors.Is(err, services.ErrSprintNotFound),
		errors.Is(err, services.ErrWorkspaceNotFound),
		errors.Is(err, services.ErrProjectMemberNotFound):
		apierrors.NotFound(c, err.Error())
	case errors.Is(err, services.ErrProjectCreateForbidden),
		errors.Is(err, services.ErrProjectDeleteForbidden):
		apierrors.Forbidden(c, err.Error())
	case errors.Is(err, services.ErrNotInWorkspace):
		apierrors.BadRequest(c, err.Error())
	case errors.Is(err, services.ErrAlreadyProjectMember):
		apierrors.Conflict(c, err.Error())
	default:
		apierrors.InternalError(c, "Internal server error")
	}
}
