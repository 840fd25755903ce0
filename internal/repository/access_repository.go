package repository

import (
	"github.com/loomplan/loomplan-api/internal/models"
	"gorm.io/gorm"
)

// GormAccessRepository is a GORM implementation of AccessRepository
type GormAccessRepository struct {
	db *gorm.DB
}

// NewAccessRepository creates a new AccessRepository
func NewAccessRepository(db *gorm.DB) AccessRepository {
	return &GormAccessRepository{db: db}
}

func (r *GormAccessRepository) CreateGrant(grant *models.WorkspaceProjectAccess) error {
	return r.db.Create(grant).Error
}

func (r *GormAccessRepository) UpdateGrant(grant *models.WorkspaceProjectAccess) error {
	return r.db.Save(grant).Error
}

func (r *GormAccessRepository) RevokeGrant(workspaceMemberID, projectID uint64) error {
	return r.db.Where("workspace_member_id = ? AND project_id = ?", workspaceMemberID, projectID).
		Delete(&models.WorkspaceProjectAccess{}).Error
}

func (r *GormAccessRepository) FindGrant(workspaceMemberID, projectID uint64) (*models.WorkspaceProjectAccess, error) {
	var grant models.WorkspaceProjectAccess
	if err := r.db.Where("workspace_member_id = ? AND project_id = ?", workspaceMemberID, projectID).
		First(&grant).Error; err != nil {
		return nil, err
	}
	return &grant, nil
}

// FindGrantForUser resolves the grant through the user's workspace membership.
func (r *GormAccessRepository) FindGrantForUser(userID, projectID uint64) (*models.WorkspaceProjectAccess, error) {
	var grant models.WorkspaceProjectAccess
	err := r.db.
		Joins("JOIN workspace_members ON workspace_members.id = workspace_project_accesses.workspace_member_id").
		Where("workspace_members.user_id = ? AND workspace_project_accesses.project_id = ?", userID, projectID).
		First(&grant).Error
	if err != nil {
		return nil, err
	}
	return &grant, nil
}

func (r *GormAccessRepository) ListGrantsForProject(projectID uint64) ([]models.WorkspaceProjectAccess, error) {
	var grants []models.WorkspaceProjectAccess
	if err := r.db.Preload("WorkspaceMember").Preload("WorkspaceMember.User").Preload("GrantedBy").
		Where("project_id = ?", projectID).
		Find(&grants).Error; err != nil {
		return nil, err
	}
	return grants, nil
}

// RoleHasPermission reports whether a role_permissions row exists for the pair.
func (r *GormAccessRepository) RoleHasPermission(roleID uint64, permissionType string) (bool, error) {
	var count int64
	err := r.db.Model(&models.RolePermission{}).
		Where("role_id = ? AND permission_type = ?", roleID, permissionType).
		Count(&count).Error
	return count > 0, err
}
