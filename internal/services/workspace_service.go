package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/loomplan/loomplan-api/internal/models"
	"github.com/loomplan/loomplan-api/internal/repository"
	"gorm.io/gorm"
)

var (
	ErrWorkspaceNotFound   = errors.New("workspace not found")
	ErrNotWorkspaceOwner   = errors.New("only the workspace owner can perform this action")
	ErrNotWorkspaceManager = errors.New("only the workspace owner or an admin can perform this action")
	ErrOwnerNotRemovable   = errors.New("the workspace owner cannot be removed")
	ErrAlreadyMember       = errors.New("user is already a member of the workspace")
	ErrMemberNotFound      = errors.New("workspace member not found")
	ErrGrantCrossWorkspace = errors.New("grant target project is not in the member's workspace")
	ErrGrantNotFound       = errors.New("access grant not found")
)

// WorkspaceService handles workspaces, memberships and per-member
// project access grants.
type WorkspaceService struct {
	workspaceRepo repository.WorkspaceRepository
	projectRepo   repository.ProjectRepository
	accessRepo    repository.AccessRepository
	audit         *AuditService
	notification  *NotificationService
}

// NewWorkspaceService creates a new WorkspaceService
func NewWorkspaceService(
	workspaceRepo repository.WorkspaceRepository,
	projectRepo repository.ProjectRepository,
	accessRepo repository.AccessRepository,
	audit *AuditService,
	notification *NotificationService,
) *WorkspaceService {
	return &WorkspaceService{
		workspaceRepo: workspaceRepo,
		projectRepo:   projectRepo,
		accessRepo:    accessRepo,
		audit:         audit,
		notification:  notification,
	}
}

// CreateWorkspaceInput represents input for creating a workspace
type CreateWorkspaceInput struct {
	Name        string
	Description string
	OwnerID     uint64
}

// CreateWorkspace creates a workspace and enrolls the owner as an admin
// member so membership queries never need an owner special case.
func (s *WorkspaceService) CreateWorkspace(input CreateWorkspaceInput) (*models.Workspace, error) {
	if input.Name == "" {
		return nil, fmt.Errorf("workspace name is required")
	}

	ws := &models.Workspace{
		Name:        input.Name,
		Description: input.Description,
		OwnerID:     input.OwnerID,
	}
	if err := s.workspaceRepo.Create(ws); err != nil {
		return nil, fmt.Errorf("failed to create workspace: %w", err)
	}

	member := &models.WorkspaceMember{
		WorkspaceID: ws.ID,
		UserID:      input.OwnerID,
		IsAdmin:     true,
		JoinedAt:    time.Now(),
	}
	if err := s.workspaceRepo.AddMember(member); err != nil {
		return nil, fmt.Errorf("failed to enroll workspace owner: %w", err)
	}

	s.audit.LogCreate(&input.OwnerID, models.KindWorkspace, ws.ID,
		SnapshotWorkspace(ws, s.audit.ResolveUserDisplay),
		WorkspaceAuditContext(ws), "")

	return ws, nil
}

// GetWorkspace retrieves a workspace by ID.
func (s *WorkspaceService) GetWorkspace(id uint64) (*models.Workspace, error) {
	ws, err := s.workspaceRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWorkspaceNotFound
		}
		return nil, fmt.Errorf("failed to find workspace: %w", err)
	}
	return ws, nil
}

// ListWorkspaces returns workspaces the user owns or belongs to.
func (s *WorkspaceService) ListWorkspaces(userID uint64) ([]models.Workspace, error) {
	workspaces, err := s.workspaceRepo.ListForUser(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list workspaces: %w", err)
	}
	return workspaces, nil
}

// UpdateWorkspaceInput represents input for updating a workspace
type UpdateWorkspaceInput struct {
	Name        *string
	Description *string
}

// UpdateWorkspace updates a workspace. Owner or admin only.
func (s *WorkspaceService) UpdateWorkspace(actorID, id uint64, input UpdateWorkspaceInput) (*models.Workspace, error) {
	ws, err := s.GetWorkspace(id)
	if err != nil {
		return nil, err
	}
	if err := s.ensureManager(ws, actorID); err != nil {
		return nil, err
	}

	before := SnapshotWorkspace(ws, s.audit.ResolveUserDisplay)

	if input.Name != nil {
		if *input.Name == "" {
			return nil, fmt.Errorf("workspace name cannot be empty")
		}
		ws.Name = *input.Name
	}
	if input.Description != nil {
		ws.Description = *input.Description
	}

	if err := s.workspaceRepo.Update(ws); err != nil {
		return nil, fmt.Errorf("failed to update workspace: %w", err)
	}

	s.audit.LogUpdate(&actorID, models.KindWorkspace, ws.ID,
		before, SnapshotWorkspace(ws, s.audit.ResolveUserDisplay),
		WorkspaceAuditContext(ws), "")

	return ws, nil
}

// DeleteWorkspace removes a workspace and everything beneath it. Owner
// only. The audit entry is written before the rows vanish so the
// captured state survives the delete.
func (s *WorkspaceService) DeleteWorkspace(actorID, id uint64, reason string) error {
	ws, err := s.GetWorkspace(id)
	if err != nil {
		return err
	}
	if ws.OwnerID != actorID {
		return ErrNotWorkspaceOwner
	}

	s.audit.LogDelete(&actorID, models.KindWorkspace, ws.ID,
		SnapshotWorkspace(ws, s.audit.ResolveUserDisplay),
		WorkspaceAuditContext(ws), reason)

	if err := s.workspaceRepo.Delete(id); err != nil {
		return fmt.Errorf("failed to delete workspace: %w", err)
	}
	return nil
}

// AddMemberInput represents input for adding a workspace member
type AddMemberInput struct {
	WorkspaceID uint64
	ActorID     uint64
	UserID      uint64
	IsAdmin     bool
	RoleID      *uint64
}

// AddMember enrolls a user into a workspace. Owner or admin only.
func (s *WorkspaceService) AddMember(input AddMemberInput) (*models.WorkspaceMember, error) {
	ws, err := s.GetWorkspace(input.WorkspaceID)
	if err != nil {
		return nil, err
	}
	if err := s.ensureManager(ws, input.ActorID); err != nil {
		return nil, err
	}

	if _, err := s.workspaceRepo.FindMember(input.WorkspaceID, input.UserID); err == nil {
		return nil, ErrAlreadyMember
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check membership: %w", err)
	}

	member := &models.WorkspaceMember{
		WorkspaceID: input.WorkspaceID,
		UserID:      input.UserID,
		IsAdmin:     input.IsAdmin,
		RoleID:      input.RoleID,
		JoinedAt:    time.Now(),
	}
	if err := s.workspaceRepo.AddMember(member); err != nil {
		return nil, fmt.Errorf("failed to add member: %w", err)
	}

	s.audit.LogEvent(&input.ActorID, ActionMemberAdded, models.KindWorkspaceMember, member.ID,
		nil, SnapshotWorkspaceMember(member, s.audit.ResolveUserDisplay),
		models.JSONMap{"member_user_id": input.UserID, "is_admin": input.IsAdmin},
		WorkspaceAuditContext(ws), "")

	kind := models.KindWorkspace
	s.notification.Notify(input.UserID, &input.ActorID,
		fmt.Sprintf("You were added to workspace %q", ws.Name),
		models.NotificationMemberAdded, &kind, &ws.ID)

	return member, nil
}

// RemoveMember removes a member. Owner or admin only; the owner's own
// membership is permanent.
func (s *WorkspaceService) RemoveMember(actorID, workspaceID, userID uint64) error {
	ws, err := s.GetWorkspace(workspaceID)
	if err != nil {
		return err
	}
	if err := s.ensureManager(ws, actorID); err != nil {
		return err
	}
	if userID == ws.OwnerID {
		return ErrOwnerNotRemovable
	}

	member, err := s.workspaceRepo.FindMember(workspaceID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrMemberNotFound
		}
		return fmt.Errorf("failed to find member: %w", err)
	}

	if err := s.workspaceRepo.RemoveMember(workspaceID, userID); err != nil {
		return fmt.Errorf("failed to remove member: %w", err)
	}

	s.audit.LogEvent(&actorID, ActionMemberRemoved, models.KindWorkspaceMember, member.ID,
		SnapshotWorkspaceMember(member, s.audit.ResolveUserDisplay), nil,
		models.JSONMap{"member_user_id": userID},
		WorkspaceAuditContext(ws), "")

	return nil
}

// UpdateMemberInput represents input for updating a workspace member
type UpdateMemberInput struct {
	IsAdmin   *bool
	RoleID    *uint64
	ClearRole bool
}

// UpdateMember changes a member's admin flag or role. Owner or admin
// only.
func (s *WorkspaceService) UpdateMember(actorID, workspaceID, userID uint64, input UpdateMemberInput) (*models.WorkspaceMember, error) {
	ws, err := s.GetWorkspace(workspaceID)
	if err != nil {
		return nil, err
	}
	if err := s.ensureManager(ws, actorID); err != nil {
		return nil, err
	}

	member, err := s.workspaceRepo.FindMember(workspaceID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMemberNotFound
		}
		return nil, fmt.Errorf("failed to find member: %w", err)
	}

	before := SnapshotWorkspaceMember(member, s.audit.ResolveUserDisplay)

	if input.IsAdmin != nil {
		member.IsAdmin = *input.IsAdmin
	}
	if input.ClearRole {
		member.RoleID = nil
		member.Role = nil
	} else if input.RoleID != nil {
		member.RoleID = input.RoleID
		member.Role = nil
	}

	if err := s.workspaceRepo.UpdateMember(member); err != nil {
		return nil, fmt.Errorf("failed to update member: %w", err)
	}

	s.audit.LogUpdate(&actorID, models.KindWorkspaceMember, member.ID,
		before, SnapshotWorkspaceMember(member, s.audit.ResolveUserDisplay),
		WorkspaceAuditContext(ws), "")

	return member, nil
}

// ListMembers returns the members of a workspace.
func (s *WorkspaceService) ListMembers(workspaceID uint64) ([]models.WorkspaceMember, error) {
	members, err := s.workspaceRepo.ListMembers(workspaceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list members: %w", err)
	}
	return members, nil
}

// GrantAccessInput represents input for a per-member project grant
type GrantAccessInput struct {
	ActorID           uint64
	WorkspaceID       uint64
	WorkspaceMemberID uint64
	ProjectID         uint64
	CanView           bool
	CanEdit           bool
}

// GrantProjectAccess creates or replaces an explicit grant. The member
// and the project must live in the same workspace; a grant reaching
// across workspaces is rejected outright.
func (s *WorkspaceService) GrantProjectAccess(input GrantAccessInput) (*models.WorkspaceProjectAccess, error) {
	ws, err := s.GetWorkspace(input.WorkspaceID)
	if err != nil {
		return nil, err
	}
	if err := s.ensureManager(ws, input.ActorID); err != nil {
		return nil, err
	}

	member, err := s.workspaceRepo.FindMemberByID(input.WorkspaceMemberID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMemberNotFound
		}
		return nil, fmt.Errorf("failed to find member: %w", err)
	}
	if member.WorkspaceID != input.WorkspaceID {
		return nil, ErrGrantCrossWorkspace
	}

	project, err := s.projectRepo.FindByID(input.ProjectID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("failed to find project: %w", err)
	}
	if project.WorkspaceID != input.WorkspaceID {
		return nil, ErrGrantCrossWorkspace
	}

	grant, err := s.accessRepo.FindGrant(input.WorkspaceMemberID, input.ProjectID)
	switch {
	case err == nil:
		grant.CanView = input.CanView
		grant.CanEdit = input.CanEdit
		grant.GrantedByID = &input.ActorID
		if err := s.accessRepo.UpdateGrant(grant); err != nil {
			return nil, fmt.Errorf("failed to update grant: %w", err)
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		grant = &models.WorkspaceProjectAccess{
			WorkspaceMemberID: input.WorkspaceMemberID,
			ProjectID:         input.ProjectID,
			CanView:           input.CanView,
			CanEdit:           input.CanEdit,
			GrantedByID:       &input.ActorID,
			GrantedAt:         time.Now(),
		}
		if err := s.accessRepo.CreateGrant(grant); err != nil {
			return nil, fmt.Errorf("failed to create grant: %w", err)
		}
	default:
		return nil, fmt.Errorf("failed to check existing grant: %w", err)
	}

	s.audit.LogEvent(&input.ActorID, ActionAccessGranted, models.KindProject, project.ID,
		nil, nil,
		models.JSONMap{
			"member_user_id": member.UserID,
			"can_view":       input.CanView,
			"can_edit":       input.CanEdit,
		},
		ProjectAuditContext(ws, project), "")

	return grant, nil
}

// RevokeProjectAccess deletes an explicit grant, returning the member to
// the default visibility rules.
func (s *WorkspaceService) RevokeProjectAccess(actorID, workspaceID, workspaceMemberID, projectID uint64) error {
	ws, err := s.GetWorkspace(workspaceID)
	if err != nil {
		return err
	}
	if err := s.ensureManager(ws, actorID); err != nil {
		return err
	}

	member, err := s.workspaceRepo.FindMemberByID(workspaceMemberID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrMemberNotFound
		}
		return fmt.Errorf("failed to find member: %w", err)
	}
	if member.WorkspaceID != workspaceID {
		return ErrGrantCrossWorkspace
	}

	if _, err := s.accessRepo.FindGrant(workspaceMemberID, projectID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrGrantNotFound
		}
		return fmt.Errorf("failed to find grant: %w", err)
	}
	if err := s.accessRepo.RevokeGrant(workspaceMemberID, projectID); err != nil {
		return fmt.Errorf("failed to revoke grant: %w", err)
	}

	ctx := WorkspaceAuditContext(ws)
	ctx.ProjectID = &projectID
	s.audit.LogEvent(&actorID, ActionAccessRevoked, models.KindProject, projectID,
		nil, nil, models.JSONMap{"member_user_id": member.UserID}, ctx, "")

	return nil
}

// ListProjectGrants returns all explicit grants on a project.
func (s *WorkspaceService) ListProjectGrants(projectID uint64) ([]models.WorkspaceProjectAccess, error) {
	grants, err := s.accessRepo.ListGrantsForProject(projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list grants: %w", err)
	}
	return grants, nil
}

// ensureManager verifies the actor is the owner or an admin member.
func (s *WorkspaceService) ensureManager(ws *models.Workspace, actorID uint64) error {
	if ws.OwnerID == actorID {
		return nil
	}
	member, err := s.workspaceRepo.FindMember(ws.ID, actorID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotWorkspaceManager
		}
		return fmt.Errorf("failed to check membership: %w", err)
	}
	if !member.IsAdmin {
		return ErrNotWorkspaceManager
	}
	return nil
}
