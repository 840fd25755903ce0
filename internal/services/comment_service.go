package services

import (
	"errors"
	"fmt"

	"github.com/loomplan/loomplan-api/internal/models"
	"github.com/loomplan/loomplan-api/internal/repository"
	"gorm.io/gorm"
)

var (
	ErrCommentNotFound    = errors.New("comment not found")
	ErrCommentEmpty       = errors.New("comment content is required")
	ErrCommentNoTarget    = errors.New("comment must target exactly one of task, sprint or project")
	ErrNotCommentAuthor   = errors.New("only the comment author can delete it")
	ErrAttachmentNotFound = errors.New("attachment not found")
)

// CommentService handles comments and attachment metadata.
type CommentService struct {
	commentRepo  repository.CommentRepository
	taskRepo     repository.TaskRepository
	notification *NotificationService
}

// NewCommentService creates a new CommentService
func NewCommentService(
	commentRepo repository.CommentRepository,
	taskRepo repository.TaskRepository,
	notification *NotificationService,
) *CommentService {
	return &CommentService{
		commentRepo:  commentRepo,
		taskRepo:     taskRepo,
		notification: notification,
	}
}

// CreateCommentInput represents input for creating a comment
type CreateCommentInput struct {
	AuthorID  uint64
	Content   string
	TaskID    *uint64
	SprintID  *uint64
	ProjectID *uint64
}

// CreateComment creates a comment on a task, sprint or project. A task
// comment notifies the assignee.
func (s *CommentService) CreateComment(input CreateCommentInput) (*models.Comment, error) {
	if input.Content == "" {
		return nil, ErrCommentEmpty
	}
	targets := 0
	for _, t := range []*uint64{input.TaskID, input.SprintID, input.ProjectID} {
		if t != nil {
			targets++
		}
	}
	if targets != 1 {
		return nil, ErrCommentNoTarget
	}

	comment := &models.Comment{
		AuthorID:  input.AuthorID,
		Content:   input.Content,
		TaskID:    input.TaskID,
		SprintID:  input.SprintID,
		ProjectID: input.ProjectID,
	}
	if err := s.commentRepo.Create(comment); err != nil {
		return nil, fmt.Errorf("failed to create comment: %w", err)
	}

	if input.TaskID != nil {
		if task, err := s.taskRepo.FindByID(*input.TaskID); err == nil {
			if task.AssigneeID != nil && *task.AssigneeID != input.AuthorID {
				kind := models.KindTask
				s.notification.Notify(*task.AssigneeID, &input.AuthorID,
					fmt.Sprintf("New comment on task %q", task.Title),
					models.NotificationComment, &kind, &task.ID)
			}
		}
	}

	return s.commentRepo.FindByID(comment.ID)
}

// DeleteComment deletes a comment. Author only.
func (s *CommentService) DeleteComment(actorID, id uint64) error {
	comment, err := s.commentRepo.FindByID(id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrCommentNotFound
		}
		return fmt.Errorf("failed to find comment: %w", err)
	}
	if comment.AuthorID != actorID {
		return ErrNotCommentAuthor
	}
	if err := s.commentRepo.Delete(id); err != nil {
		return fmt.Errorf("failed to delete comment: %w", err)
	}
	return nil
}

// ListComments returns the comments on one target, newest first.
func (s *CommentService) ListComments(taskID, sprintID, projectID *uint64) ([]models.Comment, error) {
	switch {
	case taskID != nil:
		return s.commentRepo.ListForTask(*taskID)
	case sprintID != nil:
		return s.commentRepo.ListForSprint(*sprintID)
	case projectID != nil:
		return s.commentRepo.ListForProject(*projectID)
	}
	return nil, ErrCommentNoTarget
}

// AttachInput represents input for recording attachment metadata
type AttachInput struct {
	UploaderID  uint64
	Filename    string
	FileSize    int64
	StoragePath string
	TaskID      *uint64
	CommentID   *uint64
}

// RecordAttachment stores attachment metadata for a task or comment.
func (s *CommentService) RecordAttachment(input AttachInput) (*models.Attachment, error) {
	if input.Filename == "" {
		return nil, fmt.Errorf("attachment filename is required")
	}
	if (input.TaskID == nil) == (input.CommentID == nil) {
		return nil, fmt.Errorf("attachment must target exactly one of task or comment")
	}

	a := &models.Attachment{
		Filename:     input.Filename,
		FileSize:     input.FileSize,
		StoragePath:  input.StoragePath,
		UploadedByID: &input.UploaderID,
		TaskID:       input.TaskID,
		CommentID:    input.CommentID,
	}
	if err := s.commentRepo.CreateAttachment(a); err != nil {
		return nil, fmt.Errorf("failed to record attachment: %w", err)
	}
	return a, nil
}

// ListTaskAttachments returns attachment metadata for a task.
func (s *CommentService) ListTaskAttachments(taskID uint64) ([]models.Attachment, error) {
	attachments, err := s.commentRepo.ListAttachmentsForTask(taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to list attachments: %w", err)
	}
	return attachments, nil
}

// DeleteAttachment removes attachment metadata.
func (s *CommentService) DeleteAttachment(id uint64) error {
	if err := s.commentRepo.DeleteAttachment(id); err != nil {
		return fmt.Errorf("failed to delete attachment: %w", err)
	}
	return nil
}
