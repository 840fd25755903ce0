package services

import (
	"errors"
	"fmt"

	"github.com/loomplan/loomplan-api/internal/models"
	"github.com/loomplan/loomplan-api/internal/repository"
	"gorm.io/gorm"
)

var (
	// ErrHierarchyBroken marks a dangling parent reference. Under correct
	// operation every child row points at an existing parent, so this is a
	// data-integrity failure and is never silently absorbed.
	ErrHierarchyBroken = errors.New("hierarchy integrity violation: parent record missing")
)

// HierarchyService resolves parent chains across the containment tree
// (Task -> Sprint -> Milestone -> Project -> Workspace). Every walk is
// typed; callers never pass entity kind strings around.
type HierarchyService struct {
	workspaceRepo repository.WorkspaceRepository
	projectRepo   repository.ProjectRepository
	milestoneRepo repository.MilestoneRepository
	sprintRepo    repository.SprintRepository
	taskRepo      repository.TaskRepository
}

// NewHierarchyService creates a new HierarchyService
func NewHierarchyService(
	workspaceRepo repository.WorkspaceRepository,
	projectRepo repository.ProjectRepository,
	milestoneRepo repository.MilestoneRepository,
	sprintRepo repository.SprintRepository,
	taskRepo repository.TaskRepository,
) *HierarchyService {
	return &HierarchyService{
		workspaceRepo: workspaceRepo,
		projectRepo:   projectRepo,
		milestoneRepo: milestoneRepo,
		sprintRepo:    sprintRepo,
		taskRepo:      taskRepo,
	}
}

// SprintOf returns the sprint containing a task.
func (s *HierarchyService) SprintOf(task *models.Task) (*models.Sprint, error) {
	sprint, err := s.sprintRepo.FindByID(task.SprintID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: task %d references sprint %d", ErrHierarchyBroken, task.ID, task.SprintID)
		}
		return nil, fmt.Errorf("failed to resolve sprint of task %d: %w", task.ID, err)
	}
	return sprint, nil
}

// MilestoneOf returns the milestone containing a sprint.
func (s *HierarchyService) MilestoneOf(sprint *models.Sprint) (*models.Milestone, error) {
	milestone, err := s.milestoneRepo.FindByID(sprint.MilestoneID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: sprint %d references milestone %d", ErrHierarchyBroken, sprint.ID, sprint.MilestoneID)
		}
		return nil, fmt.Errorf("failed to resolve milestone of sprint %d: %w", sprint.ID, err)
	}
	return milestone, nil
}

// ProjectOf returns the project containing a milestone.
func (s *HierarchyService) ProjectOf(milestone *models.Milestone) (*models.Project, error) {
	project, err := s.projectRepo.FindByID(milestone.ProjectID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: milestone %d references project %d", ErrHierarchyBroken, milestone.ID, milestone.ProjectID)
		}
		return nil, fmt.Errorf("failed to resolve project of milestone %d: %w", milestone.ID, err)
	}
	return project, nil
}

// WorkspaceOf returns the workspace containing a project.
func (s *HierarchyService) WorkspaceOf(project *models.Project) (*models.Workspace, error) {
	ws, err := s.workspaceRepo.FindByID(project.WorkspaceID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: project %d references workspace %d", ErrHierarchyBroken, project.ID, project.WorkspaceID)
		}
		return nil, fmt.Errorf("failed to resolve workspace of project %d: %w", project.ID, err)
	}
	return ws, nil
}

// ProjectOfTask walks the full chain from a task up to its project.
func (s *HierarchyService) ProjectOfTask(task *models.Task) (*models.Project, error) {
	sprint, err := s.SprintOf(task)
	if err != nil {
		return nil, err
	}
	milestone, err := s.MilestoneOf(sprint)
	if err != nil {
		return nil, err
	}
	return s.ProjectOf(milestone)
}

// TaskContext is the fully resolved ancestry of a task.
type TaskContext struct {
	Task      *models.Task
	Sprint    *models.Sprint
	Milestone *models.Milestone
	Project   *models.Project
	Workspace *models.Workspace
}

// ContextOfTask resolves every ancestor of a task in one walk. The audit
// layer uses it to denormalize hierarchical context into log entries.
func (s *HierarchyService) ContextOfTask(task *models.Task) (*TaskContext, error) {
	sprint, err := s.SprintOf(task)
	if err != nil {
		return nil, err
	}
	milestone, err := s.MilestoneOf(sprint)
	if err != nil {
		return nil, err
	}
	project, err := s.ProjectOf(milestone)
	if err != nil {
		return nil, err
	}
	ws, err := s.WorkspaceOf(project)
	if err != nil {
		return nil, err
	}
	return &TaskContext{
		Task:      task,
		Sprint:    sprint,
		Milestone: milestone,
		Project:   project,
		Workspace: ws,
	}, nil
}
