package repository

import (
	"github.com/loomplan/loomplan-api/internal/models"
	"gorm.io/gorm"
)

// GormCascadeRepository is a GORM implementation of CascadeRepository
type GormCascadeRepository struct {
	db *gorm.DB
}

// NewCascadeRepository creates a new CascadeRepository
func NewCascadeRepository(db *gorm.DB) CascadeRepository {
	return &GormCascadeRepository{db: db}
}

func (r *GormCascadeRepository) CountSprintTasks(sprintID uint64) (StageCounts, error) {
	return r.count(&models.Task{}, "sprint_id = ?", sprintID, string(models.TaskStatusDone))
}

func (r *GormCascadeRepository) CountMilestoneSprints(milestoneID uint64) (StageCounts, error) {
	return r.count(&models.Sprint{}, "milestone_id = ?", milestoneID, string(models.StageCompleted))
}

func (r *GormCascadeRepository) CountProjectMilestones(projectID uint64) (StageCounts, error) {
	return r.count(&models.Milestone{}, "project_id = ?", projectID, string(models.StageCompleted))
}

func (r *GormCascadeRepository) CountWorkspaceProjects(workspaceID uint64) (StageCounts, error) {
	return r.count(&models.Project{}, "workspace_id = ?", workspaceID, string(models.StageCompleted))
}

func (r *GormCascadeRepository) count(model any, cond string, parentID uint64, terminal string) (StageCounts, error) {
	var counts StageCounts
	if err := r.db.Model(model).Where(cond, parentID).Count(&counts.Total).Error; err != nil {
		return StageCounts{}, err
	}
	if err := r.db.Model(model).Where(cond, parentID).Where("status = ?", terminal).Count(&counts.Terminal).Error; err != nil {
		return StageCounts{}, err
	}
	return counts, nil
}

func (r *GormCascadeRepository) MarkSprintCompleted(id uint64) (bool, error) {
	return r.markCompleted(&models.Sprint{}, id)
}

func (r *GormCascadeRepository) MarkMilestoneCompleted(id uint64) (bool, error) {
	return r.markCompleted(&models.Milestone{}, id)
}

func (r *GormCascadeRepository) MarkProjectCompleted(id uint64) (bool, error) {
	return r.markCompleted(&models.Project{}, id)
}

// markCompleted flips the row to Completed only if it is not there yet.
// RowsAffected tells concurrent callers apart: exactly one sees 1.
func (r *GormCascadeRepository) markCompleted(model any, id uint64) (bool, error) {
	result := r.db.Model(model).
		Where("id = ? AND status <> ?", id, models.StageCompleted).
		Update("status", models.StageCompleted)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}
