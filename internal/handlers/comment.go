package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	apierrors "github.com/loomplan/loomplan-api/internal/errors"
	"github.com/loomplan/loomplan-api/internal/middleware"
	"github.com/loomplan/loomplan-api/internal/models"
	"github.com/loomplan/loomplan-api/internal/services"
)

// CommentHandler coordinates comment and attachment HTTP handlers.
type CommentHandler struct {
	commentService *services.CommentService
	projectService *services.ProjectService
	accessService  *services.AccessService
	hierarchy      *services.HierarchyService
}

// NewCommentHandler creates a new CommentHandler
func NewCommentHandler(commentService *services.CommentService, projectService *services.ProjectService, accessService *services.AccessService, hierarchy *services.HierarchyService) *CommentHandler {
	return &CommentHandler{
		commentService: commentService,
		projectService: projectService,
		accessService:  accessService,
		hierarchy:      hierarchy,
	}
}

// ListTaskComments returns the comments on a task.
func (h *CommentHandler) ListTaskComments(c *gin.Context) {
	task, ok := middleware.GetTask(c)
	if !ok {
		apierrors.InternalError(c, "")
		return
	}

	comments, err := h.commentService.ListComments(&task.ID, nil, nil)
	if err != nil {
		respondCommentError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"comments": comments})
}

// CreateTaskComment adds a comment to a task.
func (h *CommentHandler) CreateTaskComment(c *gin.Context) {
	type CommentRequest struct {
		Content string `json:"content" binding:"required"`
	}

	var req CommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	task, ok := middleware.GetTask(c)
	if !ok {
		apierrors.InternalError(c, "")
		return
	}
	userID, _ := middleware.GetUserID(c)

	comment, err := h.commentService.CreateComment(services.CreateCommentInput{
		AuthorID: userID,
		Content:  req.Content,
		TaskID:   &task.ID,
	})
	if err != nil {
		respondCommentError(c, err)
		return
	}

	c.JSON(http.StatusCreated, comment)
}

// ListProjectComments returns the comments on a project.
func (h *CommentHandler) ListProjectComments(c *gin.Context) {
	project, ok := middleware.GetProject(c)
	if !ok {
		apierrors.InternalError(c, "")
		return
	}

	comments, err := h.commentService.ListComments(nil, nil, &project.ID)
	if err != nil {
		respondCommentError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"comments": comments})
}

// CreateProjectComment adds a comment to a project.
func (h *CommentHandler) CreateProjectComment(c *gin.Context) {
	type CommentRequest struct {
		Content string `json:"content" binding:"required"`
	}

	var req CommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	project, ok := middleware.GetProject(c)
	if !ok {
		apierrors.InternalError(c, "")
		return
	}
	userID, _ := middleware.GetUserID(c)

	comment, err := h.commentService.CreateComment(services.CreateCommentInput{
		AuthorID:  userID,
		Content:   req.Content,
		ProjectID: &project.ID,
	})
	if err != nil {
		respondCommentError(c, err)
		return
	}

	c.JSON(http.StatusCreated, comment)
}

// ListSprintComments returns the comments on a sprint.
func (h *CommentHandler) ListSprintComments(c *gin.Context) {
	sprint, ok := h.sprintWithView(c)
	if !ok {
		return
	}

	comments, err := h.commentService.ListComments(nil, &sprint.ID, nil)
	if err != nil {
		respondCommentError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"comments": comments})
}

// CreateSprintComment adds a comment to a sprint.
func (h *CommentHandler) CreateSprintComment(c *gin.Context) {
	type CommentRequest struct {
		Content string `json:"content" binding:"required"`
	}

	var req CommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	sprint, ok := h.sprintWithView(c)
	if !ok {
		return
	}
	userID, _ := middleware.GetUserID(c)

	comment, err := h.commentService.CreateComment(services.CreateCommentInput{
		AuthorID: userID,
		Content:  req.Content,
		SprintID: &sprint.ID,
	})
	if err != nil {
		respondCommentError(c, err)
		return
	}

	c.JSON(http.StatusCreated, comment)
}

// sprintWithView loads the :id sprint and requires view access to its
// project. Denied or missing sprints both answer 404.
func (h *CommentHandler) sprintWithView(c *gin.Context) (*models.Sprint, bool) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		apierrors.BadRequest(c, "Invalid sprint ID")
		return nil, false
	}

	sprint, err := h.projectService.GetSprint(id)
	if err != nil {
		if errors.Is(err, services.ErrSprintNotFound) {
			apierrors.NotFound(c, "Sprint not found")
		} else {
			apierrors.InternalError(c, "Internal server error")
		}
		return nil, false
	}

	milestone, err := h.hierarchy.MilestoneOf(sprint)
	if err != nil {
		apierrors.InternalError(c, "")
		return nil, false
	}
	project, err := h.hierarchy.ProjectOf(milestone)
	if err != nil {
		apierrors.InternalError(c, "")
		return nil, false
	}

	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "")
		return nil, false
	}
	canView, err := h.accessService.CanViewProject(userID, project)
	if err != nil {
		apierrors.InternalError(c, "")
		return nil, false
	}
	if !canView {
		apierrors.NotFound(c, "Sprint not found")
		return nil, false
	}
	return sprint, true
}

// DeleteComment deletes a comment. Author only.
func (h *CommentHandler) DeleteComment(c *gin.Context) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		apierrors.BadRequest(c, "Invalid comment ID")
		return
	}
	userID, _ := middleware.GetUserID(c)

	if err := h.commentService.DeleteComment(userID, id); err != nil {
		respondCommentError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Comment deleted"})
}

// ListTaskAttachments returns attachment metadata for a task.
func (h *CommentHandler) ListTaskAttachments(c *gin.Context) {
	task, ok := middleware.GetTask(c)
	if !ok {
		apierrors.InternalError(c, "")
		return
	}

	attachments, err := h.commentService.ListTaskAttachments(task.ID)
	if err != nil {
		respondCommentError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"attachments": attachments})
}

// RecordTaskAttachment stores attachment metadata for a task. File
// bytes live in external storage; this records the pointer.
func (h *CommentHandler) RecordTaskAttachment(c *gin.Context) {
	type AttachRequest struct {
		Filename    string `json:"filename" binding:"required,max=255"`
		FileSize    int64  `json:"file_size"`
		StoragePath string `json:"storage_path"`
	}

	var req AttachRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	task, ok := middleware.GetTask(c)
	if !ok {
		apierrors.InternalError(c, "")
		return
	}
	userID, _ := middleware.GetUserID(c)

	attachment, err := h.commentService.RecordAttachment(services.AttachInput{
		UploaderID:  userID,
		Filename:    req.Filename,
		FileSize:    req.FileSize,
		StoragePath: req.StoragePath,
		TaskID:      &task.ID,
	})
	if err != nil {
		respondCommentError(c, err)
		return
	}

	c.JSON(http.StatusCreated, attachment)
}

func respondCommentError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrCommentNotFound),
		errors.Is(err, services.ErrAttachmentNotFound):
		apierrors.NotFound(c, err.Error())
	case errors.Is(err, services.ErrNotCommentAuthor):
		apierrors.Forbidden(c, err.Error())
	case errors.Is(err, services.ErrCommentEmpty),
		errors.Is(err, services.ErrCommentNoTarget):
		apierrors.BadRequest(c, err.Error())
	default:
		apierrors.InternalError(c, "Internal server error")
	}
}
