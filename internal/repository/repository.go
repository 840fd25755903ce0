package repository

import (
	"time"

	"github.com/loomplan/loomplan-api/internal/models"
)

// UserRepository defines the interface for user data access
type UserRepository interface {
	// Create creates a new user
	Create(user *models.User) error

	// FindByID finds a user by ID
	FindByID(id uint64) (*models.User, error)

	// FindByUsername finds a user by username
	FindByUsername(username string) (*models.User, error)

	// AssignRole sets or clears a user's role
	AssignRole(userID uint64, roleID *uint64) error
}

// WorkspaceRepository defines the interface for workspace and membership data access
type WorkspaceRepository interface {
	Create(ws *models.Workspace) error
	FindByID(id uint64) (*models.Workspace, error)
	Update(ws *models.Workspace) error

	// Delete removes a workspace and everything it owns
	Delete(id uint64) error

	// ListForUser lists workspaces where the user is the owner or a member
	ListForUser(userID uint64) ([]models.Workspace, error)

	AddMember(member *models.WorkspaceMember) error
	UpdateMember(member *models.WorkspaceMember) error
	RemoveMember(workspaceID, userID uint64) error
	FindMember(workspaceID, userID uint64) (*models.WorkspaceMember, error)
	FindMemberByID(memberID uint64) (*models.WorkspaceMember, error)
	ListMembers(workspaceID uint64) ([]models.WorkspaceMember, error)
}

// ProjectRepository defines the interface for project data access
type ProjectRepository interface {
	Create(project *models.Project) error
	FindByID(id uint64, preload ...string) (*models.Project, error)
	Update(project *models.Project) error
	Delete(id uint64) error
	ListByWorkspace(workspaceID uint64) ([]models.Project, error)

	// ListAccessible returns every project the user may view: direct
	// membership, owned/admin workspaces, explicit view grants, and public
	// projects in workspaces the user belongs to. One query; it is the base
	// filter for all listing endpoints.
	ListAccessible(userID uint64) ([]models.Project, error)

	AddMember(member *models.ProjectMember) error
	RemoveMember(projectID, userID uint64) error
	IsMember(projectID, userID uint64) (bool, error)
	ListMembers(projectID uint64) ([]models.ProjectMember, error)
}

// MilestoneRepository defines the interface for milestone data access
type MilestoneRepository interface {
	Create(m *models.Milestone) error
	FindByID(id uint64) (*models.Milestone, error)
	Update(m *models.Milestone) error
	Delete(id uint64) error
	ListByProject(projectID uint64) ([]models.Milestone, error)
}

// SprintRepository defines the interface for sprint data access
type SprintRepository interface {
	Create(s *models.Sprint) error
	FindByID(id uint64) (*models.Sprint, error)
	Update(s *models.Sprint) error
	Delete(id uint64) error
	ListByMilestone(milestoneID uint64) ([]models.Sprint, error)
}

// TaskFilter holds filtering options for listing tasks
type TaskFilter struct {
	ProjectIDs  []uint64
	SprintID    *uint64
	Status      *models.TaskStatus
	Priority    *models.TaskPriority
	AssigneeID  *uint64
	DueDateFrom *time.Time
	DueDateTo   *time.Time
	Page        int
	PageSize    int
}

// TaskRepository defines the interface for task data access
type TaskRepository interface {
	Create(task *models.Task) error
	FindByID(id uint64, preload ...string) (*models.Task, error)
	Update(task *models.Task) error
	Delete(id uint64) error
	List(filter TaskFilter) ([]models.Task, int64, error)

	CreateDependency(dep *models.TaskDependency) error
	DeleteDependency(taskID, dependsOnID uint64) error
	FindDependency(taskID, dependsOnID uint64) (*models.TaskDependency, error)
	ListDependencies(taskID uint64) ([]models.TaskDependency, error)
}

// AccessRepository defines the interface for access grants and role permissions
type AccessRepository interface {
	CreateGrant(grant *models.WorkspaceProjectAccess) error
	UpdateGrant(grant *models.WorkspaceProjectAccess) error
	RevokeGrant(workspaceMemberID, projectID uint64) error
	FindGrant(workspaceMemberID, projectID uint64) (*models.WorkspaceProjectAccess, error)

	// FindGrantForUser resolves the grant through the user's workspace
	// membership instead of a membership id.
	FindGrantForUser(userID, projectID uint64) (*models.WorkspaceProjectAccess, error)

	ListGrantsForProject(projectID uint64) ([]models.WorkspaceProjectAccess, error)

	// RoleHasPermission reports whether a role_permissions row exists for
	// the pair.
	RoleHasPermission(roleID uint64, permissionType string) (bool, error)
}

// StageCounts reports how many children a container has and how many of
// them are in their terminal state.
type StageCounts struct {
	Total    int64
	Terminal int64
}

// AllTerminal reports whether every child is terminal. A childless
// container is never considered complete.
func (c StageCounts) AllTerminal() bool {
	return c.Total > 0 && c.Terminal == c.Total
}

// CascadeRepository supports the bottom-up completion cascade. The
// Mark* methods are compare-and-set: they complete the row only if it is
// not already completed and report whether this call won the transition,
// so concurrent completions settle on exactly one winner.
type CascadeRepository interface {
	CountSprintTasks(sprintID uint64) (StageCounts, error)
	CountMilestoneSprints(milestoneID uint64) (StageCounts, error)
	CountProjectMilestones(projectID uint64) (StageCounts, error)
	CountWorkspaceProjects(workspaceID uint64) (StageCounts, error)

	MarkSprintCompleted(id uint64) (bool, error)
	MarkMilestoneCompleted(id uint64) (bool, error)
	MarkProjectCompleted(id uint64) (bool, error)
}

// ActivityFilter narrows audit-log queries. Zero-valued fields are ignored.
type ActivityFilter struct {
	ContentType *models.EntityKind
	ObjectID    *uint64
	WorkspaceID *uint64
	ProjectID   *uint64
	UserID      *uint64
	Action      *string
	From        *time.Time
	To          *time.Time
	Limit       int
}

// ActivitySummary aggregates audit activity over a trailing window.
type ActivitySummary struct {
	Since    time.Time         `json:"since"`
	Total    int64             `json:"total"`
	ByAction map[string]int64  `json:"by_action"`
	ByEntity map[string]int64  `json:"by_entity"`
	ByUser   map[uint64]int64  `json:"by_user"`
}

// ActivityRepository defines the interface for the append-only audit store.
// There is deliberately no update or delete.
type ActivityRepository interface {
	Create(entry *models.ActivityLog) error
	List(filter ActivityFilter) ([]models.ActivityLog, error)
	Summarize(days int) (*ActivitySummary, error)
}

// NotificationRepository defines the interface for notification data access
type NotificationRepository interface {
	Create(n *models.Notification) error
	ListByRecipient(recipientID uint64, unreadOnly bool, limit int) ([]models.Notification, error)
	CountUnread(recipientID uint64) (int64, error)
	MarkRead(id, recipientID uint64) error
	MarkAllRead(recipientID uint64) error
}

// CommentRepository defines the interface for comments and attachments
type CommentRepository interface {
	Create(comment *models.Comment) error
	FindByID(id uint64) (*models.Comment, error)
	Delete(id uint64) error
	ListForTask(taskID uint64) ([]models.Comment, error)
	ListForSprint(sprintID uint64) ([]models.Comment, error)
	ListForProject(projectID uint64) ([]models.Comment, error)

	CreateAttachment(a *models.Attachment) error
	ListAttachmentsForTask(taskID uint64) ([]models.Attachment, error)
	DeleteAttachment(id uint64) error
}
