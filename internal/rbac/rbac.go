package rbac

// Permission is one entry of the closed permission vocabulary. Role
// checks compare against these constants only; a free-text permission
// string would be a silent authorization bypass.
type Permission string

const (
	// User management
	PermUserCreate  Permission = "user.create"
	PermUserView    Permission = "user.view"
	PermUserEdit    Permission = "user.edit"
	PermUserDelete  Permission = "user.delete"
	PermUserSuspend Permission = "user.suspend"

	// Workspace management
	PermWorkspaceCreate        Permission = "workspace.create"
	PermWorkspaceView          Permission = "workspace.view"
	PermWorkspaceEdit          Permission = "workspace.edit"
	PermWorkspaceDelete        Permission = "workspace.delete"
	PermWorkspaceManageMembers Permission = "workspace.manage_members"
	PermWorkspaceAssignRoles   Permission = "workspace.assign_roles"

	// Role management
	PermRoleCreate Permission = "role.create"
	PermRoleView   Permission = "role.view"
	PermRoleEdit   Permission = "role.edit"
	PermRoleDelete Permission = "role.delete"
	PermRoleAssign Permission = "role.assign"

	// Project hierarchy
	PermProjectCreate        Permission = "project.create"
	PermProjectView          Permission = "project.view"
	PermProjectEdit          Permission = "project.edit"
	PermProjectDelete        Permission = "project.delete"
	PermProjectManageMembers Permission = "project.manage_members"

	PermMilestoneCreate Permission = "milestone.create"
	PermMilestoneView   Permission = "milestone.view"
	PermMilestoneEdit   Permission = "milestone.edit"
	PermMilestoneDelete Permission = "milestone.delete"

	PermSprintCreate Permission = "sprint.create"
	PermSprintView   Permission = "sprint.view"
	PermSprintEdit   Permission = "sprint.edit"
	PermSprintDelete Permission = "sprint.delete"

	PermTaskCreate       Permission = "task.create"
	PermTaskView         Permission = "task.view"
	PermTaskEdit         Permission = "task.edit"
	PermTaskDelete       Permission = "task.delete"
	PermTaskAssign       Permission = "task.assign"
	PermTaskUpdateStatus Permission = "task.update_status"

	// Collaboration
	PermCommentCreate    Permission = "comment.create"
	PermCommentView      Permission = "comment.view"
	PermAttachmentUpload Permission = "attachment.upload"
	PermAttachmentView   Permission = "attachment.view"

	// System
	PermNotificationCreate Permission = "notification.create"
	PermActivityLog        Permission = "activity.log"
	PermAutoComplete       Permission = "hierarchy.auto_complete"
)

// Conventional role names seeded at startup.
const (
	RoleAdmin        = "Admin"
	RoleProjectAdmin = "Project Admin"
	RoleUser         = "User"
	RoleSystem       = "System"
)

// Registry is the role to permission mapping, built once at process start
// and passed by reference into whatever consults it. There is no package
// level mutable state.
type Registry struct {
	grants map[string][]Permission
}

// NewRegistry builds a registry from an explicit role to permission map.
func NewRegistry(grants map[string][]Permission) *Registry {
	copied := make(map[string][]Permission, len(grants))
	for role, perms := range grants {
		copied[role] = append([]Permission(nil), perms...)
	}
	return &Registry{grants: copied}
}

// DefaultRegistry returns the conventional four-role setup: Admin manages
// access and workspaces, Project Admin manages the project hierarchy,
// User views assigned work, System drives automation.
func DefaultRegistry() *Registry {
	return NewRegistry(map[string][]Permission{
		RoleAdmin: {
			PermUserCreate, PermUserView, PermUserEdit, PermUserDelete, PermUserSuspend,
			PermWorkspaceCreate, PermWorkspaceView, PermWorkspaceEdit, PermWorkspaceDelete,
			PermWorkspaceManageMembers, PermWorkspaceAssignRoles,
			PermRoleCreate, PermRoleView, PermRoleEdit, PermRoleDelete, PermRoleAssign,
			PermProjectView, PermMilestoneView, PermSprintView, PermTaskView,
		},
		RoleProjectAdmin: {
			PermProjectCreate, PermProjectView, PermProjectEdit, PermProjectDelete, PermProjectManageMembers,
			PermMilestoneCreate, PermMilestoneView, PermMilestoneEdit, PermMilestoneDelete,
			PermSprintCreate, PermSprintView, PermSprintEdit, PermSprintDelete,
			PermTaskCreate, PermTaskView, PermTaskEdit, PermTaskDelete, PermTaskAssign,
			PermCommentCreate, PermCommentView, PermAttachmentUpload, PermAttachmentView,
		},
		RoleUser: {
			PermWorkspaceView, PermProjectView, PermTaskView, PermTaskUpdateStatus,
			PermCommentCreate, PermCommentView,
			PermMilestoneView, PermSprintView,
		},
		RoleSystem: {
			PermAutoComplete, PermNotificationCreate, PermActivityLog,
		},
	})
}

// Roles returns the role names known to the registry.
func (r *Registry) Roles() []string {
	names := make([]string, 0, len(r.grants))
	for name := range r.grants {
		names = append(names, name)
	}
	return names
}

// Permissions returns the permissions granted to a role. Unknown roles
// get nothing.
func (r *Registry) Permissions(role string) []Permission {
	return r.grants[role]
}

// Has reports whether a role carries a permission.
func (r *Registry) Has(role string, perm Permission) bool {
	for _, p := range r.grants[role] {
		if p == perm {
			return true
		}
	}
	return false
}
