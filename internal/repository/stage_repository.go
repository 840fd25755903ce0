package repository

import (
	"github.com/loomplan/loomplan-api/internal/models"
	"gorm.io/gorm"
)

// GormMilestoneRepository is a GORM implementation of MilestoneRepository
type GormMilestoneRepository struct {
	db *gorm.DB
}

// NewMilestoneRepository creates a new MilestoneRepository
func NewMilestoneRepository(db *gorm.DB) MilestoneRepository {
	return &GormMilestoneRepository{db: db}
}

func (r *GormMilestoneRepository) Create(m *models.Milestone) error {
	return r.db.Create(m).Error
}

func (r *GormMilestoneRepository) FindByID(id uint64) (*models.Milestone, error) {
	var m models.Milestone
	if err := r.db.First(&m, id).Error; err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *GormMilestoneRepository) Update(m *models.Milestone) error {
	return r.db.Save(m).Error
}

func (r *GormMilestoneRepository) Delete(id uint64) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		sprintIDs := tx.Model(&models.Sprint{}).Select("id").Where("milestone_id = ?", id)
		taskIDs := tx.Model(&models.Task{}).Select("id").Where("sprint_id IN (?)", sprintIDs)

		if err := tx.Where("task_id IN (?) OR depends_on_id IN (?)", taskIDs, taskIDs).
			Delete(&models.TaskDependency{}).Error; err != nil {
			return err
		}
		if err := tx.Where("sprint_id IN (?)", sprintIDs).Delete(&models.Task{}).Error; err != nil {
			return err
		}
		if err := tx.Where("milestone_id = ?", id).Delete(&models.Sprint{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Milestone{}, id).Error
	})
}

func (r *GormMilestoneRepository) ListByProject(projectID uint64) ([]models.Milestone, error) {
	var milestones []models.Milestone
	if err := r.db.Where("project_id = ?", projectID).
		Order("start_date").
		Find(&milestones).Error; err != nil {
		return nil, err
	}
	return milestones, nil
}

// GormSprintRepository is a GORM implementation of SprintRepository
type GormSprintRepository struct {
	db *gorm.DB
}

// NewSprintRepository creates a new SprintRepository
func NewSprintRepository(db *gorm.DB) SprintRepository {
	return &GormSprintRepository{db: db}
}

func (r *GormSprintRepository) Create(s *models.Sprint) error {
	return r.db.Create(s).Error
}

func (r *GormSprintRepository) FindByID(id uint64) (*models.Sprint, error) {
	var s models.Sprint
	if err := r.db.First(&s, id).Error; err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *GormSprintRepository) Update(s *models.Sprint) error {
	return r.db.Save(s).Error
}

func (r *GormSprintRepository) Delete(id uint64) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		taskIDs := tx.Model(&models.Task{}).Select("id").Where("sprint_id = ?", id)

		if err := tx.Where("task_id IN (?) OR depends_on_id IN (?)", taskIDs, taskIDs).
			Delete(&models.TaskDependency{}).Error; err != nil {
			return err
		}
		if err := tx.Where("sprint_id = ?", id).Delete(&models.Task{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Sprint{}, id).Error
	})
}

func (r *GormSprintRepository) ListByMilestone(milestoneID uint64) ([]models.Sprint, error) {
	var sprints []models.Sprint
	if err := r.db.Where("milestone_id = ?", milestoneID).
		Order("start_date").
		Find(&sprints).Error; err != nil {
		return nil, err
	}
	return sprints, nil
}
