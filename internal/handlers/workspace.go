package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	apierrors "github.com/loomplan/loomplan-api/internal/errors"
	"github.com/loomplan/loomplan-api/internal/middleware"
	"github.com/loomplan/loomplan-api/internal/services"
)

// WorkspaceHandler coordinates workspace, membership and access-grant
// HTTP handlers.
type WorkspaceHandler struct {
	workspaceService *services.WorkspaceService
}

// NewWorkspaceHandler creates a new WorkspaceHandler
func NewWorkspaceHandler(workspaceService *services.WorkspaceService) *WorkspaceHandler {
	return &WorkspaceHandler{
		workspaceService: workspaceService,
	}
}

// CreateWorkspace creates a new workspace owned by the caller.
func (h *WorkspaceHandler) CreateWorkspace(c *gin.Context) {
	type CreateRequest struct {
		Name        string `json:"name" binding:"required,max=200"`
		Description string `json:"description"`
	}

	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	userID, _ := middleware.GetUserID(c)
	ws, err := h.workspaceService.CreateWorkspace(services.CreateWorkspaceInput{
		Name:        req.Name,
		Description: req.Description,
		OwnerID:     userID,
	})
	if err != nil {
		respondWorkspaceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, ws)
}

// ListWorkspaces returns workspaces the caller owns or belongs to.
func (h *WorkspaceHandler) ListWorkspaces(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)
	workspaces, err := h.workspaceService.ListWorkspaces(userID)
	if err != nil {
		respondWorkspaceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"workspaces": workspaces})
}

// GetWorkspace returns the workspace loaded by the access middleware.
func (h *WorkspaceHandler) GetWorkspace(c *gin.Context) {
	ws, ok := middleware.GetWorkspace(c)
	if !ok {
		apierrors.InternalError(c, "")
		return
	}
	c.JSON(http.StatusOK, ws)
}

// UpdateWorkspace updates workspace metadata.
func (h *WorkspaceHandler) UpdateWorkspace(c *gin.Context) {
	type UpdateRequest struct {
		Name        *string `json:"name" binding:"omitempty,max=200"`
		Description *string `json:"description"`
	}

	var req UpdateRequest
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

	updated, err := h.workspaceService.UpdateWorkspace(userID, ws.ID, services.UpdateWorkspaceInput{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		respondWorkspaceError(c, err)
		return
	}

	c.JSON(http.StatusOK, updated)
}

// DeleteWorkspace deletes a workspace and all of its contents.
func (h *WorkspaceHandler) DeleteWorkspace(c *gin.Context) {
	type DeleteRequest struct {
		Reason string `json:"reason"`
	}
	var req DeleteRequest
	_ = c.ShouldBindJSON(&req)

	ws, ok := middleware.GetWorkspace(c)
	if !ok {
		apierrors.InternalError(c, "")
		return
	}
	userID, _ := middleware.GetUserID(c)

	if err := h.workspaceService.DeleteWorkspace(userID, ws.ID, req.Reason); err != nil {
		respondWorkspaceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Workspace deleted"})
}

// ListMembers returns the workspace's members.
func (h *WorkspaceHandler) ListMembers(c *gin.Context) {
	ws, ok := middleware.GetWorkspace(c)
	if !ok {
		apierrors.InternalError(c, "")
		return
	}

	members, err := h.workspaceService.ListMembers(ws.ID)
	if err != nil {
		respondWorkspaceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"members": members})
}

// AddMember enrolls a user into the workspace.
func (h *WorkspaceHandler) AddMember(c *gin.Context) {
	type AddMemberRequest struct {
		UserID  uint64  `json:"user_id" binding:"required"`
		IsAdmin bool    `json:"is_admin"`
		RoleID  *uint64 `json:"role_id"`
	}

	var req AddMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	ws, ok := middleware.GetWorkspace(c)
	if !ok {
		apierrors.InternalError(c, "")
		return
	}
	actorID, _ := middleware.GetUserID(c)

	member, err := h.workspaceService.AddMember(services.AddMemberInput{
		WorkspaceID: ws.ID,
		ActorID:     actorID,
		UserID:      req.UserID,
		IsAdmin:     req.IsAdmin,
		RoleID:      req.RoleID,
	})
	if err != nil {
		respondWorkspaceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, member)
}

// UpdateMember changes a member's admin flag or role.
func (h *WorkspaceHandler) UpdateMember(c *gin.Context) {
	type UpdateMemberRequest struct {
		IsAdmin   *bool   `json:"is_admin"`
		RoleID    *uint64 `json:"role_id"`
		ClearRole bool    `json:"clear_role"`
	}

	var req UpdateMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	memberUserID, err := parseIDParam(c, "userID")
	if err != nil {
		apierrors.BadRequest(c, "Invalid user ID")
		return
	}

	ws, ok := middleware.GetWorkspace(c)
	if !ok {
		apierrors.InternalError(c, "")
		return
	}
	actorID, _ := middleware.GetUserID(c)

	member, svcErr := h.workspaceService.UpdateMember(actorID, ws.ID, memberUserID, services.UpdateMemberInput{
		IsAdmin:   req.IsAdmin,
		RoleID:    req.RoleID,
		ClearRole: req.ClearRole,
	})
	if svcErr != nil {
		respondWorkspaceError(c, svcErr)
		return
	}

	c.JSON(http.StatusOK, member)
}

// RemoveMember removes a user from the workspace.
func (h *WorkspaceHandler) RemoveMember(c *gin.Context) {
	memberUserID, err := parseIDParam(c, "userID")
	if err != nil {
		apierrors.BadRequest(c, "Invalid user ID")
		return
	}

	ws, ok := middleware.GetWorkspace(c)
	if !ok {
		apierrors.InternalError(c, "")
		return
	}
	actorID, _ := middleware.GetUserID(c)

	if err := h.workspaceService.RemoveMember(actorID, ws.ID, memberUserID); err != nil {
		respondWorkspaceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Member removed"})
}

// GrantAccess creates or replaces an explicit project grant for a
// workspace member.
func (h *WorkspaceHandler) GrantAccess(c *gin.Context) {
	type GrantRequest struct {
		WorkspaceMemberID uint64 `json:"workspace_member_id" binding:"required"`
		ProjectID         uint64 `json:"project_id" binding:"required"`
		CanView           bool   `json:"can_view"`
		CanEdit           bool   `json:"can_edit"`
	}

	var req GrantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	ws, ok := middleware.GetWorkspace(c)
	if !ok {
		apierrors.InternalError(c, "")
		return
	}
	actorID, _ := middleware.GetUserID(c)

	grant, err := h.workspaceService.GrantProjectAccess(services.GrantAccessInput{
		ActorID:           actorID,
		WorkspaceID:       ws.ID,
		WorkspaceMemberID: req.WorkspaceMemberID,
		ProjectID:         req.ProjectID,
		CanView:           req.CanView,
		CanEdit:           req.CanEdit,
	})
	if err != nil {
		respondWorkspaceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, grant)
}

// RevokeAccess deletes an explicit project grant.
func (h *WorkspaceHandler) RevokeAccess(c *gin.Context) {
	memberID, err := parseIDParam(c, "memberID")
	if err != nil {
		apierrors.BadRequest(c, "Invalid member ID")
		return
	}
	projectID, err := parseIDParam(c, "projectID")
	if err != nil {
		apierrors.BadRequest(c, "Invalid project ID")
		return
	}

	ws, ok := middleware.GetWorkspace(c)
	if !ok {
		apierrors.InternalError(c, "")
		return
	}
	actorID, _ := middleware.GetUserID(c)

	if err := h.workspaceService.RevokeProjectAccess(actorID, ws.ID, memberID, projectID); err != nil {
		respondWorkspaceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Access grant revoked"})
}

func respondWorkspaceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrWorkspaceNotFound),
		errors.Is(err, services.ErrMemberNotFound),
		errors.Is(err, services.ErrGrantNotFound),
		errors.Is(err, services.ErrProjectNotFound):
		apierrors.NotFound(c, err.Error())
	case errors.Is(err, services.ErrNotWorkspaceOwner),
		errors.Is(err, services.ErrNotWorkspaceManager):
		apierrors.Forbidden(c, err.Error())
	case errors.Is(err, services.ErrOwnerNotRemovable),
		errors.Is(err, services.ErrGrantCrossWorkspace):
		apierrors.BadRequest(c, err.Error())
	case errors.Is(err, services.ErrAlreadyMember):
		apierrors.Conflict(c, err.Error())
	default:
		apierrors.InternalError(c, "Internal server error")
	}
}

func parseIDParam(c *gin.Context, name string) (uint64, error) {
	return strconv.ParseUint(c.Param(name), 10, 64)
}

func parseQueryID(raw string) (uint64, error) {
	return strconv.ParseUint(raw, 10, 64)
}
