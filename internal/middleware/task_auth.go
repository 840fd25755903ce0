package middleware

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/loomplan/loomplan-api/internal/constants"
	"github.com/loomplan/loomplan-api/internal/database"
	apierrors "github.com/loomplan/loomplan-api/internal/errors"
	"github.com/loomplan/loomplan-api/internal/models"
	"github.com/loomplan/loomplan-api/internal/services"
)

// RequireTaskView checks view access to the task in the :id parameter.
// Assignee and reporter see their task regardless of project access;
// everyone else needs project view rights. Denials answer 404.
func RequireTaskView(access *services.AccessService, hierarchy *services.HierarchyService) gin.HandlerFunc {
	return func(c *gin.Context) {
		task, project, userID, ok := loadTask(c, hierarchy)
		if !ok {
			return
		}

		canView, err := access.CanViewTask(userID, task, project)
		if err != nil {
			apierrors.InternalError(c, "")
			c.Abort()
			return
		}
		if !canView {
			apierrors.NotFound(c, "Task not found")
			c.Abort()
			return
		}

		c.Set(constants.ContextKeyTask, *task)
		c.Set(constants.ContextKeyProject, *project)
		c.Next()
	}
}

// RequireTaskEdit resolves the caller's edit scope for the task in the
// :id parameter and stores it for the handler. A viewer without edit
// rights gets 403; a user who cannot even view the task gets 404.
func RequireTaskEdit(access *services.AccessService, hierarchy *services.HierarchyService) gin.HandlerFunc {
	return func(c *gin.Context) {
		task, project, userID, ok := loadTask(c, hierarchy)
		if !ok {
			return
		}

		scope, err := access.CanEditTask(userID, task, project)
		if err != nil {
			apierrors.InternalError(c, "")
			c.Abort()
			return
		}
		if !scope.CanEdit {
			canView, err := access.CanViewTask(userID, task, project)
			if err != nil {
				apierrors.InternalError(c, "")
				c.Abort()
				return
			}
			if canView {
				apierrors.Forbidden(c, "Task edit access required")
			} else {
				apierrors.NotFound(c, "Task not found")
			}
			c.Abort()
			return
		}

		c.Set(constants.ContextKeyTask, *task)
		c.Set(constants.ContextKeyProject, *project)
		c.Set(constants.ContextKeyEditScope, scope)
		c.Next()
	}
}

// GetTask retrieves the task loaded by the task middleware.
func GetTask(c *gin.Context) (models.Task, bool) {
	v, exists := c.Get(constants.ContextKeyTask)
	if !exists {
		return models.Task{}, false
	}
	task, ok := v.(models.Task)
	return task, ok
}

// GetTaskEditScope retrieves the edit scope resolved by RequireTaskEdit.
func GetTaskEditScope(c *gin.Context) (services.TaskEditScope, bool) {
	v, exists := c.Get(constants.ContextKeyEditScope)
	if !exists {
		return services.TaskEditScope{}, false
	}
	scope, ok := v.(services.TaskEditScope)
	return scope, ok
}

func loadTask(c *gin.Context, hierarchy *services.HierarchyService) (*models.Task, *models.Project, uint64, bool) {
	taskIDStr := c.Param("id")
	taskID, err := strconv.ParseUint(taskIDStr, 10, 64)
	if err != nil {
		apierrors.BadRequest(c, "Invalid task ID")
		c.Abort()
		return nil, nil, 0, false
	}

	userID, exists := GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "")
		c.Abort()
		return nil, nil, 0, false
	}

	var task models.Task
	if err := database.GetDB().First(&task, taskID).Error; err != nil {
		apierrors.NotFound(c, "Task not found")
		c.Abort()
		return nil, nil, 0, false
	}

	project, err := hierarchy.ProjectOfTask(&task)
	if err != nil {
		// A broken parent chain is a data problem, not a user problem.
		apierrors.InternalError(c, "")
		c.Abort()
		return nil, nil, 0, false
	}

	return &task, project, userID, true
}
