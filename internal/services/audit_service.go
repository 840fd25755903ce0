package services

import (
	"fmt"
	"log"

	"github.com/loomplan/loomplan-api/internal/models"
	"github.com/loomplan/loomplan-api/internal/repository"
)

// Audit action vocabulary. List queries filter on these strings, so new
// actions get a constant here rather than an inline literal.
const (
	ActionCreate        = "create"
	ActionUpdate        = "update"
	ActionDelete        = "delete"
	ActionStatusChange  = "status_change"
	ActionMemberAdded   = "member_added"
	ActionMemberRemoved = "member_removed"
	ActionAccessGranted = "access_granted"
	ActionAccessRevoked = "access_revoked"
	ActionAutoCompleted = "auto_completed"
	ActionArchived      = "archived"
	ActionUnarchived    = "unarchived"
	ActionRoleAssigned  = "role_assigned"
)

// AuditContext is the denormalized ancestry attached to a log entry so
// per-workspace and per-project history never needs to re-walk the
// hierarchy, which may have changed or vanished since the event.
type AuditContext struct {
	WorkspaceID   *uint64
	WorkspaceName string
	ProjectID     *uint64
	ProjectName   string
	MilestoneID   *uint64
	MilestoneName string
	SprintID      *uint64
	SprintName    string
	TaskID        *uint64
	TaskTitle     string
}

// WorkspaceAuditContext builds the context for workspace-level events.
func WorkspaceAuditContext(ws *models.Workspace) AuditContext {
	return AuditContext{WorkspaceID: &ws.ID, WorkspaceName: ws.Name}
}

// ProjectAuditContext builds the context for project-level events.
func ProjectAuditContext(ws *models.Workspace, p *models.Project) AuditContext {
	return AuditContext{
		WorkspaceID:   &ws.ID,
		WorkspaceName: ws.Name,
		ProjectID:     &p.ID,
		ProjectName:   p.Name,
	}
}

// TaskAuditContext builds the context for task-level events from a
// resolved ancestry.
func TaskAuditContext(tc *TaskContext) AuditContext {
	return AuditContext{
		WorkspaceID:   &tc.Workspace.ID,
		WorkspaceName: tc.Workspace.Name,
		ProjectID:     &tc.Project.ID,
		ProjectName:   tc.Project.Name,
		MilestoneID:   &tc.Milestone.ID,
		MilestoneName: tc.Milestone.Name,
		SprintID:      &tc.Sprint.ID,
		SprintName:    tc.Sprint.Name,
		TaskID:        &tc.Task.ID,
		TaskTitle:     tc.Task.Title,
	}
}

// AuditService writes the append-only activity log. Logging is
// best-effort: a failed write is reported to the process log and
// swallowed, because no business operation should fail or roll back over
// its own audit trail.
type AuditService struct {
	activityRepo repository.ActivityRepository
	userRepo     repository.UserRepository
}

// NewAuditService creates a new AuditService
func NewAuditService(activityRepo repository.ActivityRepository, userRepo repository.UserRepository) *AuditService {
	return &AuditService{
		activityRepo: activityRepo,
		userRepo:     userRepo,
	}
}

// ResolveUserDisplay returns a username for snapshot references, with a
// stable placeholder when the user row is gone.
func (s *AuditService) ResolveUserDisplay(id uint64) string {
	user, err := s.userRepo.FindByID(id)
	if err != nil {
		return fmt.Sprintf("user:%d", id)
	}
	return user.Username
}

// LogCreate records entity creation. Only the new-value side is stored.
func (s *AuditService) LogCreate(actorID *uint64, kind models.EntityKind, objectID uint64, snap Snapshot, ctx AuditContext, reason string) {
	s.write(&models.ActivityLog{
		UserID:      actorID,
		Action:      ActionCreate,
		ContentType: kind,
		ObjectID:    objectID,
		Reason:      reason,
		NewValue:    snap.ToJSONMap(),
		ExtraInfo:   ctx.toExtraInfo(nil),
		WorkspaceID: ctx.WorkspaceID,
		ProjectID:   ctx.ProjectID,
	})
}

// LogUpdate records an update with the complete before and after state.
// The diff lives in extra_info.changed_fields only; a save that changed
// nothing still writes an entry, with an empty changed-field list.
func (s *AuditService) LogUpdate(actorID *uint64, kind models.EntityKind, objectID uint64, before, after Snapshot, ctx AuditContext, reason string) {
	_, _, fields := DiffSnapshots(before, after)
	if fields == nil {
		fields = []string{}
	}
	s.write(&models.ActivityLog{
		UserID:      actorID,
		Action:      ActionUpdate,
		ContentType: kind,
		ObjectID:    objectID,
		Reason:      reason,
		OldValue:    before.ToJSONMap(),
		NewValue:    after.ToJSONMap(),
		ExtraInfo:   ctx.toExtraInfo(fields),
		WorkspaceID: ctx.WorkspaceID,
		ProjectID:   ctx.ProjectID,
	})
}

// LogDelete records entity deletion. Only the old-value side is stored.
func (s *AuditService) LogDelete(actorID *uint64, kind models.EntityKind, objectID uint64, snap Snapshot, ctx AuditContext, reason string) {
	s.write(&models.ActivityLog{
		UserID:      actorID,
		Action:      ActionDelete,
		ContentType: kind,
		ObjectID:    objectID,
		Reason:      reason,
		OldValue:    snap.ToJSONMap(),
		ExtraInfo:   ctx.toExtraInfo(nil),
		WorkspaceID: ctx.WorkspaceID,
		ProjectID:   ctx.ProjectID,
	})
}

// LogEvent records a domain event that is not a plain create, update or
// delete: status edges, membership changes, access grants, automatic
// completion. Before and after snapshots are optional and carried only
// by events that change state, such as status edges. A nil actor marks
// a system-generated event.
func (s *AuditService) LogEvent(actorID *uint64, action string, kind models.EntityKind, objectID uint64, before, after Snapshot, detail models.JSONMap, ctx AuditContext, reason string) {
	extra := ctx.toExtraInfo(nil)
	for k, v := range detail {
		if extra == nil {
			extra = models.JSONMap{}
		}
		extra[k] = v
	}
	s.write(&models.ActivityLog{
		UserID:      actorID,
		Action:      action,
		ContentType: kind,
		ObjectID:    objectID,
		Reason:      reason,
		OldValue:    before.ToJSONMap(),
		NewValue:    after.ToJSONMap(),
		ExtraInfo:   extra,
		WorkspaceID: ctx.WorkspaceID,
		ProjectID:   ctx.ProjectID,
	})
}

// ListActivity returns matching log entries, newest first.
func (s *AuditService) ListActivity(filter repository.ActivityFilter) ([]models.ActivityLog, error) {
	entries, err := s.activityRepo.List(filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list activity: %w", err)
	}
	return entries, nil
}

// ActivityForEntity returns the history of one entity.
func (s *AuditService) ActivityForEntity(kind models.EntityKind, objectID uint64, limit int) ([]models.ActivityLog, error) {
	return s.ListActivity(repository.ActivityFilter{
		ContentType: &kind,
		ObjectID:    &objectID,
		Limit:       limit,
	})
}

// Summarize aggregates activity over the trailing window.
func (s *AuditService) Summarize(days int) (*repository.ActivitySummary, error) {
	summary, err := s.activityRepo.Summarize(days)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize activity: %w", err)
	}
	return summary, nil
}

func (s *AuditService) write(entry *models.ActivityLog) {
	if !entry.ContentType.Valid() {
		log.Printf("audit: dropping entry with unknown entity kind %q", entry.ContentType)
		return
	}
	if err := s.activityRepo.Create(entry); err != nil {
		log.Printf("audit: failed to record %s on %s %d: %v", entry.Action, entry.ContentType, entry.ObjectID, err)
	}
}

func (c AuditContext) toExtraInfo(changedFields []string) models.JSONMap {
	extra := models.JSONMap{}
	if c.WorkspaceID != nil {
		extra["workspace_id"] = *c.WorkspaceID
		extra["workspace_name"] = c.WorkspaceName
	}
	if c.ProjectID != nil {
		extra["project_id"] = *c.ProjectID
		extra["project_name"] = c.ProjectName
	}
	if c.MilestoneID != nil {
		extra["milestone_id"] = *c.MilestoneID
		extra["milestone_name"] = c.MilestoneName
	}
	if c.SprintID != nil {
		extra["sprint_id"] = *c.SprintID
		extra["sprint_name"] = c.SprintName
	}
	if c.TaskID != nil {
		extra["task_id"] = *c.TaskID
		extra["task_title"] = c.TaskTitle
	}
	if changedFields != nil {
		extra["changed_fields"] = changedFields
	}
	if len(extra) == 0 {
		return nil
	}
	return extra
}
