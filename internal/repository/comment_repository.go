package repository

import (
	"github.com/loomplan/loomplan-api/internal/models"
	"gorm.io/gorm"
)

// GormCommentRepository is a GORM implementation of CommentRepository
type GormCommentRepository struct {
	db *gorm.DB
}

// NewCommentRepository creates a new CommentRepository
func NewCommentRepository(db *gorm.DB) CommentRepository {
	return &GormCommentRepository{db: db}
}

func (r *GormCommentRepository) Create(comment *models.Comment) error {
	return r.db.Create(comment).Error
}

func (r *GormCommentRepository) FindByID(id uint64) (*models.Comment, error) {
	var comment models.Comment
	if err := r.db.Preload("Author").First(&comment, id).Error; err != nil {
		return nil, err
	}
	return &comment, nil
}

func (r *GormCommentRepository) Delete(id uint64) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("comment_id = ?", id).Delete(&models.Attachment{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Comment{}, id).Error
	})
}

func (r *GormCommentRepository) ListForTask(taskID uint64) ([]models.Comment, error) {
	return r.listWhere("task_id = ?", taskID)
}

func (r *GormCommentRepository) ListForSprint(sprintID uint64) ([]models.Comment, error) {
	return r.listWhere("sprint_id = ?", sprintID)
}

func (r *GormCommentRepository) ListForProject(projectID uint64) ([]models.Comment, error) {
	return r.listWhere("project_id = ?", projectID)
}

func (r *GormCommentRepository) listWhere(cond string, arg uint64) ([]models.Comment, error) {
	var comments []models.Comment
	if err := r.db.Preload("Author").
		Where(cond, arg).
		Order("created_at DESC").
		Find(&comments).Error; err != nil {
		return nil, err
	}
	return comments, nil
}

func (r *GormCommentRepository) CreateAttachment(a *models.Attachment) error {
	return r.db.Create(a).Error
}

func (r *GormCommentRepository) ListAttachmentsForTask(taskID uint64) ([]models.Attachment, error) {
	var attachments []models.Attachment
	if err := r.db.Preload("UploadedBy").
		Where("task_id = ?", taskID).
		Order("uploaded_at DESC").
		Find(&attachments).Error; err != nil {
		return nil, err
	}
	return attachments, nil
}

func (r *GormCommentRepository) DeleteAttachment(id uint64) error {
	return r.db.Delete(&models.Attachment{}, id).Error
}
