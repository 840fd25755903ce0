package repository

import (
	"github.com/loomplan/loomplan-api/internal/models"
	"gorm.io/gorm"
)

// GormWorkspaceRepository is a GORM implementation of WorkspaceRepository
type GormWorkspaceRepository struct {
	db *gorm.DB
}

// NewWorkspaceRepository creates a new WorkspaceRepository
func NewWorkspaceRepository(db *gorm.DB) WorkspaceRepository {
	return &GormWorkspaceRepository{db: db}
}

func (r *GormWorkspaceRepository) Create(ws *models.Workspace) error {
	return r.db.Create(ws).Error
}

func (r *GormWorkspaceRepository) FindByID(id uint64) (*models.Workspace, error) {
	var ws models.Workspace
	if err := r.db.First(&ws, id).Error; err != nil {
		return nil, err
	}
	return &ws, nil
}

func (r *GormWorkspaceRepository) Update(ws *models.Workspace) error {
	return r.db.Save(ws).Error
}

// Delete removes a workspace and everything it owns in one transaction.
// Children are removed leaf-first so foreign keys hold throughout.
func (r *GormWorkspaceRepository) Delete(id uint64) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var projectIDs []uint64
		if err := tx.Model(&models.Project{}).Where("workspace_id = ?", id).
			Pluck("id", &projectIDs).Error; err != nil {
			return err
		}

		for _, pid := range projectIDs {
			if err := deleteProjectTree(tx, pid); err != nil {
				return err
			}
		}

		if err := tx.Where("workspace_id = ?", id).Delete(&models.WorkspaceMember{}).Error; err != nil {
			return err
		}

		return tx.Delete(&models.Workspace{}, id).Error
	})
}

// ListForUser lists workspaces where the user is the owner or a member
func (r *GormWorkspaceRepository) ListForUser(userID uint64) ([]models.Workspace, error) {
	var workspaces []models.Workspace
	memberSub := r.db.Model(&models.WorkspaceMember{}).
		Select("workspace_id").
		Where("user_id = ?", userID)
	if err := r.db.
		Where("owner_id = ? OR id IN (?)", userID, memberSub).
		Find(&workspaces).Error; err != nil {
		return nil, err
	}
	return workspaces, nil
}

func (r *GormWorkspaceRepository) AddMember(member *models.WorkspaceMember) error {
	return r.db.Create(member).Error
}

func (r *GormWorkspaceRepository) UpdateMember(member *models.WorkspaceMember) error {
	return r.db.Save(member).Error
}

func (r *GormWorkspaceRepository) RemoveMember(workspaceID, userID uint64) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var member models.WorkspaceMember
		if err := tx.Where("workspace_id = ? AND user_id = ?", workspaceID, userID).
			First(&member).Error; err != nil {
			return err
		}

		// Grants hang off the membership and die with it.
		if err := tx.Where("workspace_member_id = ?", member.ID).
			Delete(&models.WorkspaceProjectAccess{}).Error; err != nil {
			return err
		}

		return tx.Delete(&member).Error
	})
}

func (r *GormWorkspaceRepository) FindMember(workspaceID, userID uint64) (*models.WorkspaceMember, error) {
	var member models.WorkspaceMember
	if err := r.db.Where("workspace_id = ? AND user_id = ?", workspaceID, userID).
		First(&member).Error; err != nil {
		return nil, err
	}
	return &member, nil
}

func (r *GormWorkspaceRepository) FindMemberByID(memberID uint64) (*models.WorkspaceMember, error) {
	var member models.WorkspaceMember
	if err := r.db.Preload("User").First(&member, memberID).Error; err != nil {
		return nil, err
	}
	return &member, nil
}

func (r *GormWorkspaceRepository) ListMembers(workspaceID uint64) ([]models.WorkspaceMember, error) {
	var members []models.WorkspaceMember
	if err := r.db.Preload("User").Preload("Role").
		Where("workspace_id = ?", workspaceID).
		Find(&members).Error; err != nil {
		return nil, err
	}
	return members, nil
}
