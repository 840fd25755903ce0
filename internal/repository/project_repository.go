package repository

import (
	"github.com/loomplan/loomplan-api/internal/models"
	"gorm.io/gorm"
)

// GormProjectRepository is a GORM implementation of ProjectRepository
type GormProjectRepository struct {
	db *gorm.DB
}

// NewProjectRepository creates a new ProjectRepository
func NewProjectRepository(db *gorm.DB) ProjectRepository {
	return &GormProjectRepository{db: db}
}

func (r *GormProjectRepository) Create(project *models.Project) error {
	return r.db.Create(project).Error
}

func (r *GormProjectRepository) FindByID(id uint64, preload ...string) (*models.Project, error) {
	var project models.Project
	query := r.db
	for _, p := range preload {
		query = query.Preload(p)
	}
	if err := query.First(&project, id).Error; err != nil {
		return nil, err
	}
	return &project, nil
}

func (r *GormProjectRepository) Update(project *models.Project) error {
	return r.db.Save(project).Error
}

func (r *GormProjectRepository) Delete(id uint64) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		return deleteProjectTree(tx, id)
	})
}

// deleteProjectTree removes a project and its whole subtree, leaf-first.
// Shared with the workspace cascade delete.
func deleteProjectTree(tx *gorm.DB, projectID uint64) error {
	milestoneIDs := tx.Model(&models.Milestone{}).Select("id").Where("project_id = ?", projectID)
	sprintIDs := tx.Model(&models.Sprint{}).Select("id").Where("milestone_id IN (?)", milestoneIDs)
	taskIDs := tx.Model(&models.Task{}).Select("id").Where("sprint_id IN (?)", sprintIDs)

	if err := tx.Where("task_id IN (?) OR depends_on_id IN (?)", taskIDs, taskIDs).
		Delete(&models.TaskDependency{}).Error; err != nil {
		return err
	}
	if err := tx.Where("task_id IN (?)", taskIDs).Delete(&models.Attachment{}).Error; err != nil {
		return err
	}
	if err := tx.Where("task_id IN (?) OR sprint_id IN (?) OR project_id = ?",
		taskIDs, sprintIDs, projectID).Delete(&models.Comment{}).Error; err != nil {
		return err
	}
	if err := tx.Where("sprint_id IN (?)", sprintIDs).Delete(&models.Task{}).Error; err != nil {
		return err
	}
	if err := tx.Where("milestone_id IN (?)", milestoneIDs).Delete(&models.Sprint{}).Error; err != nil {
		return err
	}
	if err := tx.Where("project_id = ?", projectID).Delete(&models.Milestone{}).Error; err != nil {
		return err
	}
	if err := tx.Where("project_id = ?", projectID).Delete(&models.ProjectMember{}).Error; err != nil {
		return err
	}
	if err := tx.Where("project_id = ?", projectID).Delete(&models.WorkspaceProjectAccess{}).Error; err != nil {
		return err
	}
	return tx.Delete(&models.Project{}, projectID).Error
}

func (r *GormProjectRepository) ListByWorkspace(workspaceID uint64) ([]models.Project, error) {
	var projects []models.Project
	if err := r.db.Where("workspace_id = ?", workspaceID).
		Order("created_at DESC").
		Find(&projects).Error; err != nil {
		return nil, err
	}
	return projects, nil
}

// ListAccessible returns every project the user may view, as one query.
func (r *GormProjectRepository) ListAccessible(userID uint64) ([]models.Project, error) {
	memberProjects := r.db.Model(&models.ProjectMember{}).
		Select("project_id").
		Where("user_id = ?", userID)

	adminWorkspaces := r.db.Model(&models.WorkspaceMember{}).
		Select("workspace_id").
		Where("user_id = ? AND is_admin = ?", userID, true)

	ownedWorkspaces := r.db.Model(&models.Workspace{}).
		Select("id").
		Where("owner_id = ?", userID)

	grantedProjects := r.db.Model(&models.WorkspaceProjectAccess{}).
		Select("workspace_project_accesses.project_id").
		Joins("JOIN workspace_members ON workspace_members.id = workspace_project_accesses.workspace_member_id").
		Where("workspace_members.user_id = ? AND workspace_project_accesses.can_view = ?", userID, true)

	memberWorkspaces := r.db.Model(&models.WorkspaceMember{}).
		Select("workspace_id").
		Where("user_id = ?", userID)

	var projects []models.Project
	err := r.db.
		Where("projects.id IN (?)", memberProjects).
		Or("projects.workspace_id IN (?)", adminWorkspaces).
		Or("projects.workspace_id IN (?)", ownedWorkspaces).
		Or("projects.id IN (?)", grantedProjects).
		Or("projects.workspace_id IN (?) AND projects.visibility = ?", memberWorkspaces, models.VisibilityPublic).
		Order("created_at DESC").
		Find(&projects).Error
	if err != nil {
		return nil, err
	}
	return projects, nil
}

func (r *GormProjectRepository) AddMember(member *models.ProjectMember) error {
	return r.db.Create(member).Error
}

func (r *GormProjectRepository) RemoveMember(projectID, userID uint64) error {
	return r.db.Where("project_id = ? AND user_id = ?", projectID, userID).
		Delete(&models.ProjectMember{}).Error
}

func (r *GormProjectRepository) IsMember(projectID, userID uint64) (bool, error) {
	var count int64
	err := r.db.Model(&models.ProjectMember{}).
		Where("project_id = ? AND user_id = ?", projectID, userID).
		Count(&count).Error
	return count > 0, err
}

func (r *GormProjectRepository) ListMembers(projectID uint64) ([]models.ProjectMember, error) {
	var members []models.ProjectMember
	if err := r.db.Preload("User").Preload("Role").
		Where("project_id = ?", projectID).
		Find(&members).Error; err != nil {
		return nil, err
	}
	return members, nil
}
