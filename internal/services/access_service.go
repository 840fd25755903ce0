package services

import (
	"errors"
	"fmt"

	"github.com/loomplan/loomplan-api/internal/models"
	"github.com/loomplan/loomplan-api/internal/rbac"
	"github.com/loomplan/loomplan-api/internal/repository"
	"gorm.io/gorm"
)

// EditableTaskFields are the only fields a task assignee may change when
// they lack project edit rights.
var EditableTaskFields = []string{"status", "description", "start_date", "due_date"}

// TaskEditScope reports what a user may do to a task. When CanEdit is
// true and AllFields is false, only the fields listed in Fields may
// change.
type TaskEditScope struct {
	CanEdit   bool     `json:"can_edit"`
	AllFields bool     `json:"all_fields"`
	Fields    []string `json:"fields,omitempty"`
}

// AccessService decides who can see and change what. Each decision is a
// disjunction of independent rules: the first rule that grants wins,
// no rule can revoke what another granted, and rule order only matters
// for short-circuiting.
type AccessService struct {
	userRepo      repository.UserRepository
	workspaceRepo repository.WorkspaceRepository
	projectRepo   repository.ProjectRepository
	accessRepo    repository.AccessRepository
}

// NewAccessService creates a new AccessService
func NewAccessService(
	userRepo repository.UserRepository,
	workspaceRepo repository.WorkspaceRepository,
	projectRepo repository.ProjectRepository,
	accessRepo repository.AccessRepository,
) *AccessService {
	return &AccessService{
		userRepo:      userRepo,
		workspaceRepo: workspaceRepo,
		projectRepo:   projectRepo,
		accessRepo:    accessRepo,
	}
}

// CanViewProject reports whether a user may see a project. Grants come
// from, in order of checking: direct project membership, workspace
// ownership, workspace admin membership, an explicit view grant, and
// public visibility combined with workspace membership.
func (s *AccessService) CanViewProject(userID uint64, project *models.Project) (bool, error) {
	isMember, err := s.projectRepo.IsMember(project.ID, userID)
	if err != nil {
		return false, fmt.Errorf("failed to check project membership: %w", err)
	}
	if isMember {
		return true, nil
	}

	ws, err := s.workspaceRepo.FindByID(project.WorkspaceID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, fmt.Errorf("%w: project %d references workspace %d", ErrHierarchyBroken, project.ID, project.WorkspaceID)
		}
		return false, fmt.Errorf("failed to load workspace: %w", err)
	}
	if ws.OwnerID == userID {
		return true, nil
	}

	member, err := s.workspaceRepo.FindMember(project.WorkspaceID, userID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, fmt.Errorf("failed to check workspace membership: %w", err)
	}
	if member != nil && member.IsAdmin {
		return true, nil
	}

	if member != nil {
		grant, err := s.accessRepo.FindGrant(member.ID, project.ID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return false, fmt.Errorf("failed to check access grant: %w", err)
		}
		// A grant without can_view confers nothing; it never blocks the
		// public-visibility rule below.
		if grant != nil && grant.CanView {
			return true, nil
		}
		if project.Visibility == models.VisibilityPublic {
			return true, nil
		}
	}

	return false, nil
}

// CanEditProject reports whether a user may change a project or its
// contents. Editing implies viewing: every rule here also satisfies a
// view rule.
func (s *AccessService) CanEditProject(userID uint64, project *models.Project) (bool, error) {
	isMember, err := s.projectRepo.IsMember(project.ID, userID)
	if err != nil {
		return false, fmt.Errorf("failed to check project membership: %w", err)
	}
	if isMember {
		return true, nil
	}

	ws, err := s.workspaceRepo.FindByID(project.WorkspaceID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, fmt.Errorf("%w: project %d references workspace %d", ErrHierarchyBroken, project.ID, project.WorkspaceID)
		}
		return false, fmt.Errorf("failed to load workspace: %w", err)
	}
	if ws.OwnerID == userID {
		return true, nil
	}

	member, err := s.workspaceRepo.FindMember(project.WorkspaceID, userID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, fmt.Errorf("failed to check workspace membership: %w", err)
	}
	if member == nil {
		// Role permissions never reach across workspaces.
		return false, nil
	}
	if member.IsAdmin {
		return true, nil
	}

	grant, err := s.accessRepo.FindGrant(member.ID, project.ID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, fmt.Errorf("failed to check access grant: %w", err)
	}
	if grant != nil && grant.CanEdit {
		return true, nil
	}

	return s.HasRolePermission(userID, rbac.PermProjectEdit)
}

// CanViewTask reports whether a user may see a task. Being the assignee
// or reporter grants visibility even without project access.
func (s *AccessService) CanViewTask(userID uint64, task *models.Task, project *models.Project) (bool, error) {
	if task.AssigneeID != nil && *task.AssigneeID == userID {
		return true, nil
	}
	if task.ReporterID != nil && *task.ReporterID == userID {
		return true, nil
	}
	return s.CanViewProject(userID, project)
}

// CanEditTask resolves the edit scope for a task. Project editors and
// holders of the task.edit role permission (on projects they can view)
// touch everything; a bare assignee is limited to status, description
// and the schedule dates.
func (s *AccessService) CanEditTask(userID uint64, task *models.Task, project *models.Project) (TaskEditScope, error) {
	canEdit, err := s.CanEditProject(userID, project)
	if err != nil {
		return TaskEditScope{}, err
	}
	if canEdit {
		return TaskEditScope{CanEdit: true, AllFields: true}, nil
	}

	hasTaskEdit, err := s.HasRolePermission(userID, rbac.PermTaskEdit)
	if err != nil {
		return TaskEditScope{}, err
	}
	if hasTaskEdit {
		canView, err := s.CanViewProject(userID, project)
		if err != nil {
			return TaskEditScope{}, err
		}
		if canView {
			return TaskEditScope{CanEdit: true, AllFields: true}, nil
		}
	}

	if task.AssigneeID != nil && *task.AssigneeID == userID {
		return TaskEditScope{
			CanEdit: true,
			Fields:  append([]string(nil), EditableTaskFields...),
		}, nil
	}

	return TaskEditScope{}, nil
}

// AccessibleProjects returns every project the user may view, resolved
// in a single query.
func (s *AccessService) AccessibleProjects(userID uint64) ([]models.Project, error) {
	projects, err := s.projectRepo.ListAccessible(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list accessible projects: %w", err)
	}
	return projects, nil
}

// HasRolePermission reports whether the user's role carries a
// permission. Users without a role have no role permissions; this is
// deliberate default-deny, not an error.
func (s *AccessService) HasRolePermission(userID uint64, perm rbac.Permission) (bool, error) {
	user, err := s.userRepo.FindByID(userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to load user: %w", err)
	}
	if user.RoleID == nil {
		return false, nil
	}
	has, err := s.accessRepo.RoleHasPermission(*user.RoleID, string(perm))
	if err != nil {
		return false, fmt.Errorf("failed to check role permission: %w", err)
	}
	return has, nil
}
