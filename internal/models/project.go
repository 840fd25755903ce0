package models

import "time"

type Visibility string

const (
	VisibilityPublic  Visibility = "public"
	VisibilityPrivate Visibility = "private"
)

// StageStatus labels Milestone, Sprint and Project progress. The value is
// open-ended except for StageCompleted, which is terminal for the
// completion cascade.
type StageStatus string

const (
	StageNotStarted StageStatus = "Not Started"
	StageInProgress StageStatus = "In Progress"
	StageCompleted  StageStatus = "Completed"
)

type Project struct {
	ID          uint64      `gorm:"primarykey" json:"id"`
	Name        string      `gorm:"type:varchar(200);not null" json:"name"`
	Description string      `gorm:"type:text" json:"description"`
	WorkspaceID uint64      `gorm:"not null;index" json:"workspace_id"`
	Visibility  Visibility  `gorm:"type:varchar(20);not null;default:'private'" json:"visibility"`
	Status      StageStatus `gorm:"type:varchar(50);not null;default:'Not Started'" json:"status"`
	Archived    bool        `gorm:"default:false" json:"archived"`
	StartDate   *time.Time  `json:"start_date"`
	EndDate     *time.Time  `json:"end_date"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`

	// Relations
	Workspace  Workspace       `gorm:"foreignKey:WorkspaceID" json:"workspace,omitempty"`
	Members    []ProjectMember `gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE" json:"members,omitempty"`
	Milestones []Milestone     `gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE" json:"milestones,omitempty"`
}

// ProjectMember links a user to a project. Unique per (user, project).
type ProjectMember struct {
	ID        uint64    `gorm:"primarykey" json:"id"`
	UserID    uint64    `gorm:"not null;uniqueIndex:idx_user_project" json:"user_id"`
	ProjectID uint64    `gorm:"not null;uniqueIndex:idx_user_project" json:"project_id"`
	RoleID    *uint64   `json:"role_id"`
	JoinedAt  time.Time `json:"joined_at"`

	// Relations
	User    User    `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Project Project `gorm:"foreignKey:ProjectID" json:"project,omitempty"`
	Role    *Role   `gorm:"foreignKey:RoleID;constraint:OnDelete:SET NULL" json:"role,omitempty"`
}
