package middleware

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/loomplan/loomplan-api/internal/constants"
	"github.com/loomplan/loomplan-api/internal/database"
	apierrors "github.com/loomplan/loomplan-api/internal/errors"
	"github.com/loomplan/loomplan-api/internal/models"
)

// RequireWorkspaceAccess checks if the user belongs to the workspace.
// Denials answer 404 so a denied workspace is indistinguishable from a
// missing one.
func RequireWorkspaceAccess() gin.HandlerFunc {
	return func(c *gin.Context) {
		wsIDStr := c.Param("id")
		wsID, err := strconv.ParseUint(wsIDStr, 10, 64)
		if err != nil {
			apierrors.BadRequest(c, "Invalid workspace ID")
			c.Abort()
			return
		}

		userID, exists := GetUserID(c)
		if !exists {
			apierrors.Unauthorized(c, "")
			c.Abort()
			return
		}

		var ws models.Workspace
		if err := database.GetDB().First(&ws, wsID).Error; err != nil {
			apierrors.NotFound(c, "Workspace not found")
			c.Abort()
			return
		}

		if ws.OwnerID != userID {
			var member models.WorkspaceMember
			err := database.GetDB().
				Where("workspace_id = ? AND user_id = ?", wsID, userID).
				First(&member).Error
			if err != nil {
				apierrors.NotFound(c, "Workspace not found")
				c.Abort()
				return
			}
			c.Set(constants.ContextKeyMember, member)
		}

		c.Set(constants.ContextKeyWorkspace, ws)
		c.Next()
	}
}

// RequireWorkspaceManager checks if the user is the workspace owner or
// an admin member. Runs after RequireWorkspaceAccess, so the workspace
// existence is already established and a denial may answer 403.
func RequireWorkspaceManager() gin.HandlerFunc {
	return func(c *gin.Context) {
		ws, ok := GetWorkspace(c)
		if !ok {
			apierrors.InternalError(c, "Workspace access check missing")
			c.Abort()
			return
		}

		userID, _ := GetUserID(c)
		if ws.OwnerID == userID {
			c.Next()
			return
		}

		member, ok := GetWorkspaceMember(c)
		if !ok || !member.IsAdmin {
			apierrors.Forbidden(c, "Workspace admin access required")
			c.Abort()
			return
		}

		c.Next()
	}
}

// GetWorkspace retrieves the workspace loaded by RequireWorkspaceAccess.
func GetWorkspace(c *gin.Context) (models.Workspace, bool) {
	v, exists := c.Get(constants.ContextKeyWorkspace)
	if !exists {
		return models.Workspace{}, false
	}
	ws, ok := v.(models.Workspace)
	return ws, ok
}

// GetWorkspaceMember retrieves the caller's membership, when the caller
// is a member rather than the owner.
func GetWorkspaceMember(c *gin.Context) (models.WorkspaceMember, bool) {
	v, exists := c.Get(constants.ContextKeyMember)
	if !exists {
		return models.WorkspaceMember{}, false
	}
	member, ok := v.(models.WorkspaceMember)
	return member, ok
}
