package services

import (
	"fmt"
	"log"

	"github.com/loomplan/loomplan-api/internal/models"
	"github.com/loomplan/loomplan-api/internal/repository"
)

// CompletionService drives the bottom-up auto-completion cascade. When a
// task reaches Done, each ancestor in turn completes automatically once
// all of its children are in their terminal state, stopping at the first
// level that still has open work. A container with no children never
// auto-completes. There is no reverse cascade: reopening a task leaves
// completed ancestors untouched.
type CompletionService struct {
	hierarchy     *HierarchyService
	cascadeRepo   repository.CascadeRepository
	projectRepo   repository.ProjectRepository
	workspaceRepo repository.WorkspaceRepository
	audit         *AuditService
	notification  *NotificationService
}

// NewCompletionService creates a new CompletionService
func NewCompletionService(
	hierarchy *HierarchyService,
	cascadeRepo repository.CascadeRepository,
	projectRepo repository.ProjectRepository,
	workspaceRepo repository.WorkspaceRepository,
	audit *AuditService,
	notification *NotificationService,
) *CompletionService {
	return &CompletionService{
		hierarchy:     hierarchy,
		cascadeRepo:   cascadeRepo,
		projectRepo:   projectRepo,
		workspaceRepo: workspaceRepo,
		audit:         audit,
		notification:  notification,
	}
}

// OnTaskCompleted runs the cascade for a task that just transitioned to
// Done. Callers invoke it on the edge only, not on every save of an
// already-done task.
func (s *CompletionService) OnTaskCompleted(task *models.Task) error {
	sprint, err := s.hierarchy.SprintOf(task)
	if err != nil {
		return err
	}

	counts, err := s.cascadeRepo.CountSprintTasks(sprint.ID)
	if err != nil {
		return fmt.Errorf("failed to count tasks of sprint %d: %w", sprint.ID, err)
	}
	if !counts.AllTerminal() {
		return nil
	}

	won, err := s.cascadeRepo.MarkSprintCompleted(sprint.ID)
	if err != nil {
		return fmt.Errorf("failed to complete sprint %d: %w", sprint.ID, err)
	}
	if !won {
		// Another writer completed it; that writer also continues upward.
		return nil
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
	ctx := AuditContext{
		WorkspaceID:   &ws.ID,
		WorkspaceName: ws.Name,
		ProjectID:     &project.ID,
		ProjectName:   project.Name,
		MilestoneID:   &milestone.ID,
		MilestoneName: milestone.Name,
	}
	s.announceCompletion(project, models.KindSprint, sprint.ID, sprint.Name, ctx)

	return s.continueAtMilestone(milestone, project, ws)
}

func (s *CompletionService) continueAtMilestone(milestone *models.Milestone, project *models.Project, ws *models.Workspace) error {
	counts, err := s.cascadeRepo.CountMilestoneSprints(milestone.ID)
	if err != nil {
		return fmt.Errorf("failed to count sprints of milestone %d: %w", milestone.ID, err)
	}
	if !counts.AllTerminal() {
		return nil
	}
	won, err := s.cascadeRepo.MarkMilestoneCompleted(milestone.ID)
	if err != nil {
		return fmt.Errorf("failed to complete milestone %d: %w", milestone.ID, err)
	}
	if !won {
		return nil
	}
	ctx := ProjectAuditContext(ws, project)
	s.announceCompletion(project, models.KindMilestone, milestone.ID, milestone.Name, ctx)

	return s.continueAtProject(project, ws)
}

func (s *CompletionService) continueAtProject(project *models.Project, ws *models.Workspace) error {
	counts, err := s.cascadeRepo.CountProjectMilestones(project.ID)
	if err != nil {
		return fmt.Errorf("failed to count milestones of project %d: %w", project.ID, err)
	}
	if !counts.AllTerminal() {
		return nil
	}
	won, err := s.cascadeRepo.MarkProjectCompleted(project.ID)
	if err != nil {
		return fmt.Errorf("failed to complete project %d: %w", project.ID, err)
	}
	if !won {
		return nil
	}
	ctx := ProjectAuditContext(ws, project)
	s.announceCompletion(project, models.KindProject, project.ID, project.Name, ctx)

	return s.continueAtWorkspace(ws)
}

// continueAtWorkspace is the top of the cascade. A workspace has no
// status of its own; when its last project completes, every workspace
// member gets a one-off notification instead of a state change.
func (s *CompletionService) continueAtWorkspace(ws *models.Workspace) error {
	counts, err := s.cascadeRepo.CountWorkspaceProjects(ws.ID)
	if err != nil {
		return fmt.Errorf("failed to count projects of workspace %d: %w", ws.ID, err)
	}
	if !counts.AllTerminal() {
		return nil
	}

	kind := models.KindWorkspace
	verb := fmt.Sprintf("All projects in workspace %q are completed", ws.Name)
	members, err := s.workspaceRepo.ListMembers(ws.ID)
	if err != nil {
		log.Printf("completion: failed to list members of workspace %d: %v", ws.ID, err)
	}
	for _, m := range members {
		s.notification.NotifySystem(m.UserID, verb, models.NotificationStatusChange, &kind, &ws.ID)
	}
	s.audit.LogEvent(nil, ActionAutoCompleted, models.KindWorkspace, ws.ID,
		nil, nil,
		models.JSONMap{"scope": "all_projects"},
		WorkspaceAuditContext(ws), "")
	return nil
}

// announceCompletion logs the auto-completion and notifies every member
// of the containing project. Both are best-effort.
func (s *CompletionService) announceCompletion(project *models.Project, kind models.EntityKind, id uint64, name string, ctx AuditContext) {
	s.audit.LogEvent(nil, ActionAutoCompleted, kind, id, nil, nil, nil, ctx, "")

	verb := fmt.Sprintf("%s %q was automatically completed", kind, name)
	members, err := s.projectRepo.ListMembers(project.ID)
	if err != nil {
		log.Printf("completion: failed to list members of project %d: %v", project.ID, err)
		return
	}
	for _, m := range members {
		s.notification.NotifySystem(m.UserID, verb, models.NotificationStatusChange, &kind, &id)
	}
}
