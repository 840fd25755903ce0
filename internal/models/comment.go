package models

import "time"

// Comment can attach to a Task, a Sprint or a Project; exactly one of the
// three references is set.
type Comment struct {
	ID        uint64    `gorm:"primarykey" json:"id"`
	AuthorID  uint64    `gorm:"not null" json:"author_id"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	TaskID    *uint64   `gorm:"index" json:"task_id,omitempty"`
	SprintID  *uint64   `gorm:"index" json:"sprint_id,omitempty"`
	ProjectID *uint64   `gorm:"index" json:"project_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Author  User     `gorm:"foreignKey:AuthorID" json:"author,omitempty"`
	Task    *Task    `gorm:"foreignKey:TaskID;constraint:OnDelete:CASCADE" json:"task,omitempty"`
	Sprint  *Sprint  `gorm:"foreignKey:SprintID;constraint:OnDelete:CASCADE" json:"sprint,omitempty"`
	Project *Project `gorm:"foreignKey:ProjectID;constraint:OnDelete:CASCADE" json:"project,omitempty"`
}

// Attachment stores file metadata for a task or a comment. Blob storage
// itself lives outside this service.
type Attachment struct {
	ID           uint64    `gorm:"primarykey" json:"id"`
	Filename     string    `gorm:"type:varchar(255);not null" json:"filename"`
	FileSize     int64     `gorm:"default:0" json:"file_size"`
	StoragePath  string    `gorm:"type:varchar(500)" json:"storage_path"`
	UploadedByID *uint64   `json:"uploaded_by_id"`
	TaskID       *uint64   `gorm:"index" json:"task_id,omitempty"`
	CommentID    *uint64   `gorm:"index" json:"comment_id,omitempty"`
	UploadedAt   time.Time `gorm:"autoCreateTime" json:"uploaded_at"`

	// Relations
	UploadedBy *User    `gorm:"foreignKey:UploadedByID;constraint:OnDelete:SET NULL" json:"uploaded_by,omitempty"`
	Task       *Task    `gorm:"foreignKey:TaskID;constraint:OnDelete:CASCADE" json:"task,omitempty"`
	Comment    *Comment `gorm:"foreignKey:CommentID;constraint:OnDelete:CASCADE" json:"comment,omitempty"`
}
