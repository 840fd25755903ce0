package models

import "time"

// Sprint belongs to a Milestone.
type Sprint struct {
	ID          uint64      `gorm:"primarykey" json:"id"`
	MilestoneID uint64      `gorm:"not null;index" json:"milestone_id"`
	Name        string      `gorm:"type:varchar(200);not null" json:"name"`
	Description string      `gorm:"type:text" json:"description"`
	Status      StageStatus `gorm:"type:varchar(50);not null;default:'Not Started'" json:"status"`
	StartDate   *time.Time  `json:"start_date"`
	EndDate     *time.Time  `json:"end_date"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`

	// Relations
	Milestone Milestone `gorm:"foreignKey:MilestoneID" json:"milestone,omitempty"`
	Tasks     []Task    `gorm:"foreignKey:SprintID;constraint:OnDelete:CASCADE" json:"tasks,omitempty"`
}
