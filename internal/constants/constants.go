package constants

// Session / gin context keys
const (
	ContextKeyUserID    = "user_id"
	ContextKeyProject   = "project"
	ContextKeyTask      = "task"
	ContextKeyWorkspace = "workspace"
	ContextKeyMember    = "workspace_member"
	ContextKeyEditScope = "task_edit_scope"
)

// Pagination
const (
	MinPageSize     = 1
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Auth
const MinPasswordLength = 8

// DefaultActivityLimit bounds audit-log query endpoints when the caller
// does not specify one.
const DefaultActivityLimit = 50

// MaxAIGeneratedTasks caps one AI breakdown request.
const MaxAIGeneratedTasks = 20
