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
	ErrTaskNotFound         = errors.New("task not found")
	ErrTaskTitleRequired    = errors.New("task title is required")
	ErrFieldNotEditable     = errors.New("field is not editable with the current access level")
	ErrSelfDependency       = errors.New("a task cannot depend on itself")
	ErrDuplicateDependency  = errors.New("the dependency already exists")
	ErrDependencyNotFound   = errors.New("dependency not found")
	ErrDependencyTargetGone = errors.New("dependency target task not found")
)

// TaskService handles tasks, their audit trail and the completion
// cascade. Every mutation captures state before touching the row so the
// logged diff reflects what actually changed.
type TaskService struct {
	taskRepo     repository.TaskRepository
	hierarchy    *HierarchyService
	access       *AccessService
	audit        *AuditService
	notification *NotificationService
	completion   *CompletionService
}

// NewTaskService creates a new TaskService
func NewTaskService(
	taskRepo repository.TaskRepository,
	hierarchy *HierarchyService,
	access *AccessService,
	audit *AuditService,
	notification *NotificationService,
	completion *CompletionService,
) *TaskService {
	return &TaskService{
		taskRepo:     taskRepo,
		hierarchy:    hierarchy,
		access:       access,
		audit:        audit,
		notification: notification,
		completion:   completion,
	}
}

// CreateTaskInput represents input for creating a task
type CreateTaskInput struct {
	SprintID    uint64
	ActorID     uint64
	Title       string
	Description string
	Priority    models.TaskPriority
	AssigneeID  *uint64
	StartDate   *time.Time
	DueDate     *time.Time
}

// CreateTask creates a task with the actor as reporter.
func (s *TaskService) CreateTask(input CreateTaskInput) (*models.Task, error) {
	if input.Title == "" {
		return nil, ErrTaskTitleRequired
	}

	priority := input.Priority
	if priority == "" {
		priority = models.TaskPriorityMedium
	}

	task := &models.Task{
		SprintID:    input.SprintID,
		Title:       input.Title,
		Description: input.Description,
		Status:      models.TaskStatusTodo,
		Priority:    priority,
		AssigneeID:  input.AssigneeID,
		ReporterID:  &input.ActorID,
		StartDate:   input.StartDate,
		DueDate:     input.DueDate,
	}
	if err := s.taskRepo.Create(task); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	if tc, err := s.hierarchy.ContextOfTask(task); err == nil {
		s.audit.LogCreate(&input.ActorID, models.KindTask, task.ID,
			SnapshotTask(task, s.audit.ResolveUserDisplay), TaskAuditContext(tc), "")
	}

	if task.AssigneeID != nil && *task.AssigneeID != input.ActorID {
		s.notifyAssignment(task, input.ActorID)
	}

	return task, nil
}

// GetTask retrieves a task with related data.
func (s *TaskService) GetTask(id uint64) (*models.Task, error) {
	task, err := s.taskRepo.FindByID(id, "Assignee", "Reporter", "Sprint")
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}
	return task, nil
}

// ListTasks returns tasks in projects the user may view, with optional
// filters. An explicit project filter is intersected with the user's
// accessible set rather than trusted.
func (s *TaskService) ListTasks(userID uint64, filter repository.TaskFilter) ([]models.Task, int64, error) {
	accessible, err := s.access.AccessibleProjects(userID)
	if err != nil {
		return nil, 0, err
	}
	allowed := make(map[uint64]bool, len(accessible))
	for _, p := range accessible {
		allowed[p.ID] = true
	}

	var projectIDs []uint64
	if len(filter.ProjectIDs) > 0 {
		for _, id := range filter.ProjectIDs {
			if allowed[id] {
				projectIDs = append(projectIDs, id)
			}
		}
	} else {
		for _, p := range accessible {
			projectIDs = append(projectIDs, p.ID)
		}
	}
	if len(projectIDs) == 0 {
		return []models.Task{}, 0, nil
	}
	filter.ProjectIDs = projectIDs

	tasks, total, err := s.taskRepo.List(filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list tasks: %w", err)
	}
	return tasks, total, nil
}

// UpdateTaskInput represents input for updating a task
type UpdateTaskInput struct {
	Title         *string
	Description   *string
	Status        *models.TaskStatus
	Priority      *models.TaskPriority
	AssigneeID    *uint64
	ClearAssignee bool
	StartDate     *time.Time
	DueDate       *time.Time
	Reason        string
}

// UpdateTask applies changes within the caller's edit scope. Assignees
// without project edit rights may only touch status, description and
// the schedule dates; anything else is rejected before any write.
func (s *TaskService) UpdateTask(actorID, id uint64, input UpdateTaskInput, scope TaskEditScope) (*models.Task, error) {
	task, err := s.taskRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}

	if !scope.AllFields {
		if err := checkLimitedScope(input, scope); err != nil {
			return nil, err
		}
	}

	tc, err := s.hierarchy.ContextOfTask(task)
	if err != nil {
		return nil, err
	}
	before := SnapshotTask(task, s.audit.ResolveUserDisplay)
	prevStatus := task.Status
	prevAssignee := task.AssigneeID

	if input.Title != nil {
		if *input.Title == "" {
			return nil, ErrTaskTitleRequired
		}
		task.Title = *input.Title
	}
	if input.Description != nil {
		task.Description = *input.Description
	}
	if input.Status != nil {
		task.Status = *input.Status
	}
	if input.Priority != nil {
		task.Priority = *input.Priority
	}
	if input.ClearAssignee {
		task.AssigneeID = nil
		task.Assignee = nil
	} else if input.AssigneeID != nil {
		task.AssigneeID = input.AssigneeID
		task.Assignee = nil
	}
	if input.StartDate != nil {
		task.StartDate = input.StartDate
	}
	if input.DueDate != nil {
		task.DueDate = input.DueDate
	}

	if err := s.taskRepo.Update(task); err != nil {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}

	after := SnapshotTask(task, s.audit.ResolveUserDisplay)
	s.audit.LogUpdate(&actorID, models.KindTask, task.ID,
		before, after, TaskAuditContext(tc), input.Reason)

	if task.Status != prevStatus {
		s.audit.LogEvent(&actorID, ActionStatusChange, models.KindTask, task.ID,
			before, after,
			models.JSONMap{"from": string(prevStatus), "to": string(task.Status)},
			TaskAuditContext(tc), input.Reason)

		if task.Status == models.TaskStatusDone {
			// Cascade runs on the edge only; saving an already-done
			// task must not re-trigger it.
			if err := s.completion.OnTaskCompleted(task); err != nil {
				return nil, err
			}
		}
	}

	if assigneeChanged(prevAssignee, task.AssigneeID) && task.AssigneeID != nil && *task.AssigneeID != actorID {
		s.notifyAssignment(task, actorID)
	}

	return s.GetTask(task.ID)
}

// DeleteTask removes a task. The audit entry carries the final state.
func (s *TaskService) DeleteTask(actorID, id uint64, reason string) error {
	task, err := s.taskRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTaskNotFound
		}
		return fmt.Errorf("failed to find task: %w", err)
	}

	if tc, err := s.hierarchy.ContextOfTask(task); err == nil {
		s.audit.LogDelete(&actorID, models.KindTask, task.ID,
			SnapshotTask(task, s.audit.ResolveUserDisplay), TaskAuditContext(tc), reason)
	}

	if err := s.taskRepo.Delete(id); err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	return nil
}

// AddDependency creates a directed dependency edge between two tasks.
func (s *TaskService) AddDependency(actorID, taskID, dependsOnID uint64, depType models.DependencyType) (*models.TaskDependency, error) {
	if taskID == dependsOnID {
		return nil, ErrSelfDependency
	}

	task, err := s.taskRepo.FindByID(taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}
	if _, err := s.taskRepo.FindByID(dependsOnID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDependencyTargetGone
		}
		return nil, fmt.Errorf("failed to find dependency target: %w", err)
	}

	if _, err := s.taskRepo.FindDependency(taskID, dependsOnID); err == nil {
		return nil, ErrDuplicateDependency
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check existing dependency: %w", err)
	}

	if depType == "" {
		depType = models.DependencyBlockedBy
	}
	dep := &models.TaskDependency{
		TaskID:      taskID,
		DependsOnID: dependsOnID,
		Type:        depType,
	}
	if err := s.taskRepo.CreateDependency(dep); err != nil {
		return nil, fmt.Errorf("failed to create dependency: %w", err)
	}

	if tc, err := s.hierarchy.ContextOfTask(task); err == nil {
		s.audit.LogEvent(&actorID, ActionUpdate, models.KindTask, taskID, nil, nil,
			models.JSONMap{"dependency_added": dependsOnID, "dependency_type": string(depType)},
			TaskAuditContext(tc), "")
	}

	return dep, nil
}

// RemoveDependency deletes a dependency edge.
func (s *TaskService) RemoveDependency(actorID, taskID, dependsOnID uint64) error {
	if _, err := s.taskRepo.FindDependency(taskID, dependsOnID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrDependencyNotFound
		}
		return fmt.Errorf("failed to find dependency: %w", err)
	}
	if err := s.taskRepo.DeleteDependency(taskID, dependsOnID); err != nil {
		return fmt.Errorf("failed to delete dependency: %w", err)
	}
	return nil
}

// ListDependencies returns a task's outgoing dependency edges.
func (s *TaskService) ListDependencies(taskID uint64) ([]models.TaskDependency, error) {
	deps, err := s.taskRepo.ListDependencies(taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to list dependencies: %w", err)
	}
	return deps, nil
}

func (s *TaskService) notifyAssignment(task *models.Task, actorID uint64) {
	kind := models.KindTask
	s.notification.Notify(*task.AssigneeID, &actorID,
		fmt.Sprintf("You were assigned to task %q", task.Title),
		models.NotificationAssignment, &kind, &task.ID)
}

// checkLimitedScope rejects any change outside the allowed field list.
func checkLimitedScope(input UpdateTaskInput, scope TaskEditScope) error {
	allowed := make(map[string]bool, len(scope.Fields))
	for _, f := range scope.Fields {
		allowed[f] = true
	}

	if input.Title != nil && !allowed["title"] {
		return fmt.Errorf("%w: title", ErrFieldNotEditable)
	}
	if input.Description != nil && !allowed["description"] {
		return fmt.Errorf("%w: description", ErrFieldNotEditable)
	}
	if input.Status != nil && !allowed["status"] {
		return fmt.Errorf("%w: status", ErrFieldNotEditable)
	}
	if input.Priority != nil && !allowed["priority"] {
		return fmt.Errorf("%w: priority", ErrFieldNotEditable)
	}
	if (input.AssigneeID != nil || input.ClearAssignee) && !allowed["assignee"] {
		return fmt.Errorf("%w: assignee", ErrFieldNotEditable)
	}
	if input.StartDate != nil && !allowed["start_date"] {
		return fmt.Errorf("%w: start_date", ErrFieldNotEditable)
	}
	if input.DueDate != nil && !allowed["due_date"] {
		return fmt.Errorf("%w: due_date", ErrFieldNotEditable)
	}
	return nil
}

func assigneeChanged(before, after *uint64) bool {
	if before == nil && after == nil {
		return false
	}
	if before == nil || after == nil {
		return true
	}
	return *before != *after
}
