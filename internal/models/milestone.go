package models

import "time"

// Milestone belongs to a Project. The project reference is immutable once
// set; there is no re-parenting flow.
type Milestone struct {
	ID          uint64      `gorm:"primarykey" json:"id"`
	ProjectID   uint64      `gorm:"not null;index" json:"project_id"`
	Name        string      `gorm:"type:varchar(200);not null" json:"name"`
	Description string      `gorm:"type:text" json:"description"`
	Status      StageStatus `gorm:"type:varchar(50);not null;default:'Not Started'" json:"status"`
	StartDate   *time.Time  `json:"start_date"`
	EndDate     *time.Time  `json:"end_date"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`

	// Relations
	Project Project  `gorm:"foreignKey:ProjectID" json:"project,omitempty"`
	Sprints []Sprint `gorm:"foreignKey:MilestoneID;constraint:OnDelete:CASCADE" json:"sprints,omitempty"`
}
