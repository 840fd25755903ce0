package models

import "time"

// Workspace is the top-level container. The owner is the exclusive top
// admin and cannot be removed from the member list.
type Workspace struct {
	ID          uint64    `gorm:"primarykey" json:"id"`
	Name        string    `gorm:"type:varchar(200);not null" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	OwnerID     uint64    `gorm:"not null" json:"owner_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Relations
	Owner    User              `gorm:"foreignKey:OwnerID" json:"owner,omitempty"`
	Members  []WorkspaceMember `gorm:"foreignKey:WorkspaceID;constraint:OnDelete:CASCADE" json:"members,omitempty"`
	Projects []Project         `gorm:"foreignKey:WorkspaceID;constraint:OnDelete:CASCADE" json:"projects,omitempty"`
}

// WorkspaceMember links a user to a workspace. Unique per (workspace, user).
type WorkspaceMember struct {
	ID          uint64    `gorm:"primarykey" json:"id"`
	WorkspaceID uint64    `gorm:"not null;uniqueIndex:idx_workspace_user" json:"workspace_id"`
	UserID      uint64    `gorm:"not null;uniqueIndex:idx_workspace_user" json:"user_id"`
	IsAdmin     bool      `gorm:"default:false" json:"is_admin"`
	RoleID      *uint64   `json:"role_id"`
	JoinedAt    time.Time `json:"joined_at"`

	// Relations
	Workspace Workspace `gorm:"foreignKey:WorkspaceID" json:"workspace,omitempty"`
	User      User      `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Role      *Role     `gorm:"foreignKey:RoleID;constraint:OnDelete:SET NULL" json:"role,omitempty"`
}
