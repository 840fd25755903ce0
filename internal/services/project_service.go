package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/loomplan/loomplan-api/internal/models"
	"github.com/loomplan/loomplan-api/internal/rbac"
	"github.com/loomplan/loomplan-api/internal/repository"
	"gorm.io/gorm"
)

var (
	ErrProjectNotFound        = errors.New("project not found")
	ErrMilestoneNotFound      = errors.New("milestone not found")
	ErrSprintNotFound         = errors.New("sprint not found")
	ErrProjectCreateForbidden = errors.New("user cannot create projects in this workspace")
	ErrProjectDeleteForbidden = errors.New("only the workspace owner or an admin can delete a project")
	ErrNotInWorkspace         = errors.New("user is not a member of the project's workspace")
	ErrAlreadyProjectMember   = errors.New("user is already a member of the project")
	ErrProjectMemberNotFound  = errors.New("project member not found")
)

// ProjectService handles projects and their milestone/sprint structure.
type ProjectService struct {
	projectRepo   repository.ProjectRepository
	milestoneRepo repository.MilestoneRepository
	sprintRepo    repository.SprintRepository
	workspaceRepo repository.WorkspaceRepository
	hierarchy     *HierarchyService
	access        *AccessService
	audit         *AuditService
	notification  *NotificationService
}

// NewProjectService creates a new ProjectService
func NewProjectService(
	projectRepo repository.ProjectRepository,
	milestoneRepo repository.MilestoneRepository,
	sprintRepo repository.SprintRepository,
	workspaceRepo repository.WorkspaceRepository,
	hierarchy *HierarchyService,
	access *AccessService,
	audit *AuditService,
	notification *NotificationService,
) *ProjectService {
	return &ProjectService{
		projectRepo:   projectRepo,
		milestoneRepo: milestoneRepo,
		sprintRepo:    sprintRepo,
		workspaceRepo: workspaceRepo,
		hierarchy:     hierarchy,
		access:        access,
		audit:         audit,
		notification:  notification,
	}
}

// CreateProjectInput represents input for creating a project
type CreateProjectInput struct {
	WorkspaceID uint64
	ActorID     uint64
	Name        string
	Description string
	Visibility  models.Visibility
	StartDate   *time.Time
	EndDate     *time.Time
}

// CreateProject creates a project and enrolls the creator as a member.
// The workspace owner and admins may always create; other members need
// the project.create role permission.
func (s *ProjectService) CreateProject(input CreateProjectInput) (*models.Project, error) {
	if input.Name == "" {
		return nil, fmt.Errorf("project name is required")
	}

	ws, err := s.workspaceRepo.FindByID(input.WorkspaceID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWorkspaceNotFound
		}
		return nil, fmt.Errorf("failed to find workspace: %w", err)
	}

	if err := s.ensureCanCreate(ws, input.ActorID); err != nil {
		return nil, err
	}

	visibility := input.Visibility
	if visibility == "" {
		visibility = models.VisibilityPrivate
	}

	project := &models.Project{
		WorkspaceID: input.WorkspaceID,
		Name:        input.Name,
		Description: input.Description,
		Visibility:  visibility,
		Status:      models.StageNotStarted,
		StartDate:   input.StartDate,
		EndDate:     input.EndDate,
	}
	if err := s.projectRepo.Create(project); err != nil {
		return nil, fmt.Errorf("failed to create project: %w", err)
	}

	member := &models.ProjectMember{
		UserID:    input.ActorID,
		ProjectID: project.ID,
		JoinedAt:  time.Now(),
	}
	if err := s.projectRepo.AddMember(member); err != nil {
		return nil, fmt.Errorf("failed to enroll project creator: %w", err)
	}

	s.audit.LogCreate(&input.ActorID, models.KindProject, project.ID,
		SnapshotProject(project), ProjectAuditContext(ws, project), "")

	return project, nil
}

// GetProject retrieves a project with its members.
func (s *ProjectService) GetProject(id uint64) (*models.Project, error) {
	project, err := s.projectRepo.FindByID(id, "Members", "Members.User")
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("failed to find project: %w", err)
	}
	return project, nil
}

// ListProjects returns projects the user may view, optionally narrowed
// to one workspace.
func (s *ProjectService) ListProjects(userID uint64, workspaceID *uint64) ([]models.Project, error) {
	projects, err := s.access.AccessibleProjects(userID)
	if err != nil {
		return nil, err
	}
	if workspaceID == nil {
		return projects, nil
	}
	filtered := make([]models.Project, 0, len(projects))
	for _, p := range projects {
		if p.WorkspaceID == *workspaceID {
			filtered = append(filtered, p)
		}
	}
	return filtered, nil
}

// UpdateProjectInput represents input for updating a project
type UpdateProjectInput struct {
	Name        *string
	Description *string
	Visibility  *models.Visibility
	Status      *models.StageStatus
	StartDate   *time.Time
	EndDate     *time.Time
	Reason      string
}

// UpdateProject updates a project. Access is checked by the caller; the
// service captures state before mutating so the audit diff is faithful.
func (s *ProjectService) UpdateProject(actorID, id uint64, input UpdateProjectInput) (*models.Project, error) {
	project, err := s.findProject(id)
	if err != nil {
		return nil, err
	}
	ws, err := s.hierarchy.WorkspaceOf(project)
	if err != nil {
		return nil, err
	}

	before := SnapshotProject(project)

	if input.Name != nil {
		if *input.Name == "" {
			return nil, fmt.Errorf("project name cannot be empty")
		}
		project.Name = *input.Name
	}
	if input.Description != nil {
		project.Description = *input.Description
	}
	if input.Visibility != nil {
		project.Visibility = *input.Visibility
	}
	if input.Status != nil {
		project.Status = *input.Status
	}
	if input.StartDate != nil {
		project.StartDate = input.StartDate
	}
	if input.EndDate != nil {
		project.EndDate = input.EndDate
	}

	if err := s.projectRepo.Update(project); err != nil {
		return nil, fmt.Errorf("failed to update project: %w", err)
	}

	s.audit.LogUpdate(&actorID, models.KindProject, project.ID,
		before, SnapshotProject(project),
		ProjectAuditContext(ws, project), input.Reason)

	return project, nil
}

// SetProjectArchived flips the archived flag. Archived projects keep
// their data and stay visible; only the flag changes.
func (s *ProjectService) SetProjectArchived(actorID, id uint64, archived bool) (*models.Project, error) {
	project, err := s.findProject(id)
	if err != nil {
		return nil, err
	}
	if project.Archived == archived {
		return project, nil
	}
	ws, err := s.hierarchy.WorkspaceOf(project)
	if err != nil {
		return nil, err
	}

	project.Archived = archived
	if err := s.projectRepo.Update(project); err != nil {
		return nil, fmt.Errorf("failed to update project: %w", err)
	}

	action := ActionArchived
	if !archived {
		action = ActionUnarchived
	}
	s.audit.LogEvent(&actorID, action, models.KindProject, project.ID, nil, nil, nil,
		ProjectAuditContext(ws, project), "")

	return project, nil
}

// DeleteProject removes a project and its hierarchy. Workspace owner or
// admin only.
func (s *ProjectService) DeleteProject(actorID, id uint64, reason string) error {
	project, err := s.findProject(id)
	if err != nil {
		return err
	}
	ws, err := s.hierarchy.WorkspaceOf(project)
	if err != nil {
		return err
	}
	if !s.isWorkspaceManager(ws, actorID) {
		return ErrProjectDeleteForbidden
	}

	s.audit.LogDelete(&actorID, models.KindProject, project.ID,
		SnapshotProject(project), ProjectAuditContext(ws, project), reason)

	if err := s.projectRepo.Delete(id); err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}
	return nil
}

// AddProjectMember enrolls a workspace member into a project.
func (s *ProjectService) AddProjectMember(actorID, projectID, userID uint64, roleID *uint64) (*models.ProjectMember, error) {
	project, err := s.findProject(projectID)
	if err != nil {
		return nil, err
	}
	ws, err := s.hierarchy.WorkspaceOf(project)
	if err != nil {
		return nil, err
	}

	// Project membership never reaches outside the workspace.
	if ws.OwnerID != userID {
		if _, err := s.workspaceRepo.FindMember(project.WorkspaceID, userID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrNotInWorkspace
			}
			return nil, fmt.Errorf("failed to check workspace membership: %w", err)
		}
	}

	isMember, err := s.projectRepo.IsMember(projectID, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to check project membership: %w", err)
	}
	if isMember {
		return nil, ErrAlreadyProjectMember
	}

	member := &models.ProjectMember{
		UserID:    userID,
		ProjectID: projectID,
		RoleID:    roleID,
		JoinedAt:  time.Now(),
	}
	if err := s.projectRepo.AddMember(member); err != nil {
		return nil, fmt.Errorf("failed to add project member: %w", err)
	}

	s.audit.LogEvent(&actorID, ActionMemberAdded, models.KindProjectMember, member.ID,
		nil, SnapshotProjectMember(member, s.audit.ResolveUserDisplay),
		models.JSONMap{"member_user_id": userID},
		ProjectAuditContext(ws, project), "")

	kind := models.KindProject
	s.notification.Notify(userID, &actorID,
		fmt.Sprintf("You were added to project %q", project.Name),
		models.NotificationMemberAdded, &kind, &project.ID)

	return member, nil
}

// RemoveProjectMember removes a user from a project.
func (s *ProjectService) RemoveProjectMember(actorID, projectID, userID uint64) error {
	project, err := s.findProject(projectID)
	if err != nil {
		return err
	}
	ws, err := s.hierarchy.WorkspaceOf(project)
	if err != nil {
		return err
	}

	isMember, err := s.projectRepo.IsMember(projectID, userID)
	if err != nil {
		return fmt.Errorf("failed to check project membership: %w", err)
	}
	if !isMember {
		return ErrProjectMemberNotFound
	}

	if err := s.projectRepo.RemoveMember(projectID, userID); err != nil {
		return fmt.Errorf("failed to remove project member: %w", err)
	}

	s.audit.LogEvent(&actorID, ActionMemberRemoved, models.KindProjectMember, userID,
		nil, nil, models.JSONMap{"member_user_id": userID},
		ProjectAuditContext(ws, project), "")

	return nil
}

// ListProjectMembers returns the members of a project.
func (s *ProjectService) ListProjectMembers(projectID uint64) ([]models.ProjectMember, error) {
	members, err := s.projectRepo.ListMembers(projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list project members: %w", err)
	}
	return members, nil
}

// StageInput represents input for creating or updating a milestone or
// sprint
type StageInput struct {
	Name        *string
	Description *string
	Status      *models.StageStatus
	StartDate   *time.Time
	EndDate     *time.Time
	Reason      string
}

// CreateMilestone adds a milestone to a project.
func (s *ProjectService) CreateMilestone(actorID, projectID uint64, input StageInput) (*models.Milestone, error) {
	project, err := s.findProject(projectID)
	if err != nil {
		return nil, err
	}
	ws, err := s.hierarchy.WorkspaceOf(project)
	if err != nil {
		return nil, err
	}
	if input.Name == nil || *input.Name == "" {
		return nil, fmt.Errorf("milestone name is required")
	}

	milestone := &models.Milestone{
		ProjectID: projectID,
		Name:      *input.Name,
		Status:    models.StageNotStarted,
		StartDate: input.StartDate,
		EndDate:   input.EndDate,
	}
	if input.Description != nil {
		milestone.Description = *input.Description
	}
	if input.Status != nil {
		milestone.Status = *input.Status
	}

	if err := s.milestoneRepo.Create(milestone); err != nil {
		return nil, fmt.Errorf("failed to create milestone: %w", err)
	}

	ctx := ProjectAuditContext(ws, project)
	ctx.MilestoneID = &milestone.ID
	ctx.MilestoneName = milestone.Name
	s.audit.LogCreate(&actorID, models.KindMilestone, milestone.ID,
		SnapshotMilestone(milestone), ctx, "")

	return milestone, nil
}

// GetMilestone retrieves a milestone by ID.
func (s *ProjectService) GetMilestone(id uint64) (*models.Milestone, error) {
	milestone, err := s.milestoneRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMilestoneNotFound
		}
		return nil, fmt.Errorf("failed to find milestone: %w", err)
	}
	return milestone, nil
}

// ListMilestones returns a project's milestones.
func (s *ProjectService) ListMilestones(projectID uint64) ([]models.Milestone, error) {
	milestones, err := s.milestoneRepo.ListByProject(projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list milestones: %w", err)
	}
	return milestones, nil
}

// UpdateMilestone updates a milestone.
func (s *ProjectService) UpdateMilestone(actorID, id uint64, input StageInput) (*models.Milestone, error) {
	milestone, err := s.GetMilestone(id)
	if err != nil {
		return nil, err
	}
	project, err := s.hierarchy.ProjectOf(milestone)
	if err != nil {
		return nil, err
	}
	ws, err := s.hierarchy.WorkspaceOf(project)
	if err != nil {
		return nil, err
	}

	before := SnapshotMilestone(milestone)
	applyStageInput(&milestone.Name, &milestone.Description, &milestone.Status,
		&milestone.StartDate, &milestone.EndDate, input)

	if err := s.milestoneRepo.Update(milestone); err != nil {
		return nil, fmt.Errorf("failed to update milestone: %w", err)
	}

	ctx := ProjectAuditContext(ws, project)
	ctx.MilestoneID = &milestone.ID
	ctx.MilestoneName = milestone.Name
	s.audit.LogUpdate(&actorID, models.KindMilestone, milestone.ID,
		before, SnapshotMilestone(milestone), ctx, input.Reason)

	return milestone, nil
}

// DeleteMilestone removes a milestone and its sprints and tasks.
func (s *ProjectService) DeleteMilestone(actorID, id uint64, reason string) error {
	milestone, err := s.GetMilestone(id)
	if err != nil {
		return err
	}
	project, err := s.hierarchy.ProjectOf(milestone)
	if err != nil {
		return err
	}
	ws, err := s.hierarchy.WorkspaceOf(project)
	if err != nil {
		return err
	}

	ctx := ProjectAuditContext(ws, project)
	ctx.MilestoneID = &milestone.ID
	ctx.MilestoneName = milestone.Name
	s.audit.LogDelete(&actorID, models.KindMilestone, milestone.ID,
		SnapshotMilestone(milestone), ctx, reason)

	if err := s.milestoneRepo.Delete(id); err != nil {
		return fmt.Errorf("failed to delete milestone: %w", err)
	}
	return nil
}

// CreateSprint adds a sprint to a milestone.
func (s *ProjectService) CreateSprint(actorID, milestoneID uint64, input StageInput) (*models.Sprint, error) {
	milestone, err := s.GetMilestone(milestoneID)
	if err != nil {
		return nil, err
	}
	project, err := s.hierarchy.ProjectOf(milestone)
	if err != nil {
		return nil, err
	}
	ws, err := s.hierarchy.WorkspaceOf(project)
	if err != nil {
		return nil, err
	}
	if input.Name == nil || *input.Name == "" {
		return nil, fmt.Errorf("sprint name is required")
	}

	sprint := &models.Sprint{
		MilestoneID: milestoneID,
		Name:        *input.Name,
		Status:      models.StageNotStarted,
		StartDate:   input.StartDate,
		EndDate:     input.EndDate,
	}
	if input.Description != nil {
		sprint.Description = *input.Description
	}
	if input.Status != nil {
		sprint.Status = *input.Status
	}

	if err := s.sprintRepo.Create(sprint); err != nil {
		return nil, fmt.Errorf("failed to create sprint: %w", err)
	}

	ctx := ProjectAuditContext(ws, project)
	ctx.MilestoneID = &milestone.ID
	ctx.MilestoneName = milestone.Name
	ctx.SprintID = &sprint.ID
	ctx.SprintName = sprint.Name
	s.audit.LogCreate(&actorID, models.KindSprint, sprint.ID,
		SnapshotSprint(sprint), ctx, "")

	return sprint, nil
}

// GetSprint retrieves a sprint by ID.
func (s *ProjectService) GetSprint(id uint64) (*models.Sprint, error) {
	sprint, err := s.sprintRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSprintNotFound
		}
		return nil, fmt.Errorf("failed to find sprint: %w", err)
	}
	return sprint, nil
}

// ListSprints returns a milestone's sprints.
func (s *ProjectService) ListSprints(milestoneID uint64) ([]models.Sprint, error) {
	sprints, err := s.sprintRepo.ListByMilestone(milestoneID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sprints: %w", err)
	}
	return sprints, nil
}

// UpdateSprint updates a sprint.
func (s *ProjectService) UpdateSprint(actorID, id uint64, input StageInput) (*models.Sprint, error) {
	sprint, err := s.GetSprint(id)
	if err != nil {
		return nil, err
	}
	milestone, err := s.hierarchy.MilestoneOf(sprint)
	if err != nil {
		return nil, err
	}
	project, err := s.hierarchy.ProjectOf(milestone)
	if err != nil {
		return nil, err
	}
	ws, err := s.hierarchy.WorkspaceOf(project)
	if err != nil {
		return nil, err
	}

	before := SnapshotSprint(sprint)
	applyStageInput(&sprint.Name, &sprint.Description, &sprint.Status,
		&sprint.StartDate, &sprint.EndDate, input)

	if err := s.sprintRepo.Update(sprint); err != nil {
		return nil, fmt.Errorf("failed to update sprint: %w", err)
	}

	ctx := ProjectAuditContext(ws, project)
	ctx.MilestoneID = &milestone.ID
	ctx.MilestoneName = milestone.Name
	ctx.SprintID = &sprint.ID
	ctx.SprintName = sprint.Name
	s.audit.LogUpdate(&actorID, models.KindSprint, sprint.ID,
		before, SnapshotSprint(sprint), ctx, input.Reason)

	return sprint, nil
}

// DeleteSprint removes a sprint and its tasks.
func (s *ProjectService) DeleteSprint(actorID, id uint64, reason string) error {
	sprint, err := s.GetSprint(id)
	if err != nil {
		return err
	}
	milestone, err := s.hierarchy.MilestoneOf(sprint)
	if err != nil {
		return err
	}
	project, err := s.hierarchy.ProjectOf(milestone)
	if err != nil {
		return err
	}
	ws, err := s.hierarchy.WorkspaceOf(project)
	if err != nil {
		return err
	}

	ctx := ProjectAuditContext(ws, project)
	ctx.MilestoneID = &milestone.ID
	ctx.MilestoneName = milestone.Name
	ctx.SprintID = &sprint.ID
	ctx.SprintName = sprint.Name
	s.audit.LogDelete(&actorID, models.KindSprint, sprint.ID,
		SnapshotSprint(sprint), ctx, reason)

	if err := s.sprintRepo.Delete(id); err != nil {
		return fmt.Errorf("failed to delete sprint: %w", err)
	}
	return nil
}

func (s *ProjectService) findProject(id uint64) (*models.Project, error) {
	project, err := s.projectRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("failed to find project: %w", err)
	}
	return project, nil
}

func (s *ProjectService) ensureCanCreate(ws *models.Workspace, actorID uint64) error {
	if s.isWorkspaceManager(ws, actorID) {
		return nil
	}
	if _, err := s.workspaceRepo.FindMember(ws.ID, actorID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrProjectCreateForbidden
		}
		return fmt.Errorf("failed to check workspace membership: %w", err)
	}
	has, err := s.access.HasRolePermission(actorID, rbac.PermProjectCreate)
	if err != nil {
		return err
	}
	if !has {
		return ErrProjectCreateForbidden
	}
	return nil
}

func (s *ProjectService) isWorkspaceManager(ws *models.Workspace, actorID uint64) bool {
	if ws.OwnerID == actorID {
		return true
	}
	member, err := s.workspaceRepo.FindMember(ws.ID, actorID)
	return err == nil && member.IsAdmin
}

func applyStageInput(name, description *string, status *models.StageStatus, startDate, endDate **time.Time, input StageInput) {
	if input.Name != nil && *input.Name != "" {
		*name = *input.Name
	}
	if input.Description != nil {
		*description = *input.Description
	}
	if input.Status != nil {
		*status = *input.Status
	}
	if input.StartDate != nil {
		*startDate = input.StartDate
	}
	if input.EndDate != nil {
		*endDate = input.EndDate
	}
}
