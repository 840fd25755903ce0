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

// RequireProjectView checks view access to the project in the :id
// parameter. A denial answers 404, never 403: a user without view
// rights must not learn that the project exists.
func RequireProjectView(access *services.AccessService) gin.HandlerFunc {
	return func(c *gin.Context) {
		project, userID, ok := loadProject(c)
		if !ok {
			return
		}

		canView, err := access.CanViewProject(userID, project)
		if err != nil {
			apierrors.InternalError(c, "")
			c.Abort()
			return
		}
		if !canView {
			apierrors.NotFound(c, "Project not found")
			c.Abort()
			return
		}

		c.Set(constants.ContextKeyProject, *project)
		c.Next()
	}
}

// RequireProjectEdit checks edit access to the project in the :id
// parameter. A viewer without edit rights gets 403; a user without even
// view rights gets the same 404 as a missing project.
func RequireProjectEdit(access *services.AccessService) gin.HandlerFunc {
	return func(c *gin.Context) {
		project, userID, ok := loadProject(c)
		if !ok {
			return
		}

		canEdit, err := access.CanEditProject(userID, project)
		if err != nil {
			apierrors.InternalError(c, "")
			c.Abort()
			return
		}
		if !canEdit {
			canView, err := access.CanViewProject(userID, project)
			if err != nil {
				apierrors.InternalError(c, "")
				c.Abort()
				return
			}
			if canView {
				apierrors.Forbidden(c, "Project edit access required")
			} else {
				apierrors.NotFound(c, "Project not found")
			}
			c.Abort()
			return
		}

		c.Set(constants.ContextKeyProject, *project)
		c.Next()
	}
}

// GetProject retrieves the project loaded by the project middleware.
func GetProject(c *gin.Context) (models.Project, bool) {
	v, exists := c.Get(constants.ContextKeyProject)
	if !exists {
		return models.Project{}, false
	}
	project, ok := v.(models.Project)
	return project, ok
}

func loadProject(c *gin.Context) (*models.Project, uint64, bool) {
	projectIDStr := c.Param("id")
	projectID, err := strconv.ParseUint(projectIDStr, 10, 64)
	if err != nil {
		apierrors.BadRequest(c, "Invalid project ID")
		c.Abort()
		return nil, 0, false
	}

	userID, exists := GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "")
		c.Abort()
		return nil, 0, false
	}

	var project models.Project
	if err := database.GetDB().First(&project, projectID).Error; err != nil {
		apierrors.NotFound(c, "Project not found")
		c.Abort()
		return nil, 0, false
	}

	return &project, userID, true
}
