package models

import "time"

// WorkspaceProjectAccess is an explicit per-member grant on a single
// project. Grants are additive: a row with can_view or can_edit set
// widens access, a row with both false confers nothing. Only valid for
// projects in the member's own workspace.
//
// The flags carry no column defaults: gorm would skip a zero-valued
// field that has a default clause on insert, silently turning an
// explicit false into the column default.
type WorkspaceProjectAccess struct {
	ID                uint64    `gorm:"primarykey" json:"id"`
	WorkspaceMemberID uint64    `gorm:"not null;uniqueIndex:idx_member_project" json:"workspace_member_id"`
	ProjectID         uint64    `gorm:"not null;uniqueIndex:idx_member_project" json:"project_id"`
	CanView           bool      `gorm:"not null" json:"can_view"`
	CanEdit           bool      `gorm:"not null" json:"can_edit"`
	GrantedByID       *uint64   `json:"granted_by_id"`
	GrantedAt         time.Time `json:"granted_at"`

	// Relations
	WorkspaceMember WorkspaceMember `gorm:"foreignKey:WorkspaceMemberID;constraint:OnDelete:CASCADE" json:"workspace_member,omitempty"`
	Project         Project         `gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE" json:"project,omitempty"`
	GrantedBy       *User           `gorm:"foreignKey:GrantedByID;constraint:OnDelete:SET NULL" json:"granted_by,omitempty"`
}

// RolePermission maps a role to one permission string from the closed
// vocabulary in the rbac package. Unique per (role, permission).
type RolePermission struct {
	ID             uint64 `gorm:"primarykey" json:"id"`
	RoleID         uint64 `gorm:"not null;uniqueIndex:idx_role_permission" json:"role_id"`
	PermissionType string `gorm:"type:varchar(50);not null;uniqueIndex:idx_role_permission" json:"permission_type"`

	// Relations
	Role Role `gorm:"foreignKey:RoleID;constraint:OnDelete:CASCADE" json:"role,omitempty"`
}
