package models

// EntityKind is the closed set of entity discriminators used by activity
// logs and notification targets. Free-text type names are never used, so
// a renamed model cannot silently break log queries.
type EntityKind string

const (
	KindWorkspace       EntityKind = "Workspace"
	KindWorkspaceMember EntityKind = "WorkspaceMember"
	KindProject         EntityKind = "Project"
	KindProjectMember   EntityKind = "ProjectMember"
	KindMilestone       EntityKind = "Milestone"
	KindSprint          EntityKind = "Sprint"
	KindTask            EntityKind = "Task"
)

// Valid reports whether k is one of the known entity kinds.
func (k EntityKind) Valid() bool {
	switch k {
	case KindWorkspace, KindWorkspaceMember, KindProject, KindProjectMember,
		KindMilestone, KindSprint, KindTask:
		return true
	}
	return false
}
