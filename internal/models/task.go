package models

import "time"

type TaskStatus string

const (
	TaskStatusTodo       TaskStatus = "To-do"
	TaskStatusInProgress TaskStatus = "In Progress"
	TaskStatusReview     TaskStatus = "Review"
	TaskStatusDone       TaskStatus = "Done"
)

type TaskPriority string

const (
	TaskPriorityLow      TaskPriority = "Low"
	TaskPriorityMedium   TaskPriority = "Medium"
	TaskPriorityHigh     TaskPriority = "High"
	TaskPriorityCritical TaskPriority = "Critical"
)

type Task struct {
	ID          uint64       `gorm:"primarykey" json:"id"`
	SprintID    uint64       `gorm:"not null;index" json:"sprint_id"`
	Title       string       `gorm:"type:varchar(200);not null" json:"title"`
	Description string       `gorm:"type:text" json:"description"`
	Status      TaskStatus   `gorm:"type:varchar(20);not null;default:'To-do'" json:"status"`
	Priority    TaskPriority `gorm:"type:varchar(20);not null;default:'Medium'" json:"priority"`
	AssigneeID  *uint64      `gorm:"index" json:"assignee_id"`
	ReporterID  *uint64      `json:"reporter_id"`
	StartDate   *time.Time   `json:"start_date"`
	DueDate     *time.Time   `json:"due_date"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`

	// Relations
	Sprint   Sprint `gorm:"foreignKey:SprintID" json:"sprint,omitempty"`
	Assignee *User  `gorm:"foreignKey:AssigneeID;constraint:OnDelete:SET NULL" json:"assignee,omitempty"`
	Reporter *User  `gorm:"foreignKey:ReporterID;constraint:OnDelete:SET NULL" json:"reporter,omitempty"`
}

type DependencyType string

const (
	DependencyBlockedBy DependencyType = "Blocked By"
	DependencyBlocks    DependencyType = "Blocks"
	DependencyRelatedTo DependencyType = "Related To"
)

// TaskDependency is a directed edge between two tasks. Self-loops are
// rejected before persistence; the ordered pair is unique.
type TaskDependency struct {
	ID          uint64         `gorm:"primarykey" json:"id"`
	TaskID      uint64         `gorm:"not null;uniqueIndex:idx_task_depends" json:"task_id"`
	DependsOnID uint64         `gorm:"not null;uniqueIndex:idx_task_depends" json:"depends_on_id"`
	Type        DependencyType `gorm:"type:varchar(50);not null;default:'Blocked By'" json:"type"`
	CreatedAt   time.Time      `json:"created_at"`

	// Relations
	Task      Task `gorm:"foreignKey:TaskID;constraint:OnDelete:CASCADE" json:"task,omitempty"`
	DependsOn Task `gorm:"foreignKey:DependsOnID;constraint:OnDelete:CASCADE" json:"depends_on,omitempty"`
}
