package repository

import (
	"github.com/loomplan/loomplan-api/internal/database"
	"github.com/loomplan/loomplan-api/internal/models"
	"github.com/loomplan/loomplan-api/internal/utils"
	"gorm.io/gorm"
)

// GormTaskRepository is a GORM implementation of TaskRepository
type GormTaskRepository struct {
	db *gorm.DB
}

// NewTaskRepository creates a new TaskRepository
func NewTaskRepository(db *gorm.DB) TaskRepository {
	return &GormTaskRepository{db: db}
}

func (r *GormTaskRepository) Create(task *models.Task) error {
	return r.db.Create(task).Error
}

func (r *GormTaskRepository) FindByID(id uint64, preload ...string) (*models.Task, error) {
	var task models.Task
	query := r.db
	for _, p := range preload {
		query = query.Preload(p)
	}
	if err := query.First(&task, id).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

func (r *GormTaskRepository) Update(task *models.Task) error {
	return r.db.Save(task).Error
}

func (r *GormTaskRepository) Delete(id uint64) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("task_id = ? OR depends_on_id = ?", id, id).
			Delete(&models.TaskDependency{}).Error; err != nil {
			return err
		}
		if err := tx.Where("task_id = ?", id).Delete(&models.Attachment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("task_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Task{}, id).Error
	})
}

// List retrieves tasks scoped to the given projects, with filtering and
// pagination. An empty project set yields an empty result, not all tasks.
func (r *GormTaskRepository) List(filter TaskFilter) ([]models.Task, int64, error) {
	if len(filter.ProjectIDs) == 0 {
		return []models.Task{}, 0, nil
	}

	sprintIDs := r.db.Model(&models.Sprint{}).
		Select("sprints.id").
		Joins("JOIN milestones ON milestones.id = sprints.milestone_id").
		Where("milestones.project_id IN ?", filter.ProjectIDs)

	query := r.db.Model(&models.Task{}).Where("tasks.sprint_id IN (?)", sprintIDs)

	if filter.SprintID != nil {
		query = query.Where("tasks.sprint_id = ?", *filter.SprintID)
	}
	if filter.Status != nil {
		query = query.Where("tasks.status = ?", *filter.Status)
	}
	if filter.Priority != nil {
		query = query.Where("tasks.priority = ?", *filter.Priority)
	}
	if filter.AssigneeID != nil {
		query = query.Where("tasks.assignee_id = ?", *filter.AssigneeID)
	}
	if filter.DueDateFrom != nil {
		query = query.Where("tasks.due_date >= ?", *filter.DueDateFrom)
	}
	if filter.DueDateTo != nil {
		query = query.Where("tasks.due_date < ?", *filter.DueDateTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	listQuery := query.Order("tasks.created_at DESC")
	if filter.Page > 0 && filter.PageSize > 0 {
		listQuery = listQuery.Scopes(database.Paginate(utils.PaginationParams{
			Page:   filter.Page,
			Limit:  filter.PageSize,
			Offset: (filter.Page - 1) * filter.PageSize,
		}))
	}

	var tasks []models.Task
	if err := listQuery.Preload("Assignee").Preload("Reporter").Find(&tasks).Error; err != nil {
		return nil, 0, err
	}

	return tasks, total, nil
}

func (r *GormTaskRepository) CreateDependency(dep *models.TaskDependency) error {
	return r.db.Create(dep).Error
}

func (r *GormTaskRepository) DeleteDependency(taskID, dependsOnID uint64) error {
	return r.db.Where("task_id = ? AND depends_on_id = ?", taskID, dependsOnID).
		Delete(&models.TaskDependency{}).Error
}

func (r *GormTaskRepository) FindDependency(taskID, dependsOnID uint64) (*models.TaskDependency, error) {
	var dep models.TaskDependency
	if err := r.db.Where("task_id = ? AND depends_on_id = ?", taskID, dependsOnID).
		First(&dep).Error; err != nil {
		return nil, err
	}
	return &dep, nil
}

func (r *GormTaskRepository) ListDependencies(taskID uint64) ([]models.TaskDependency, error) {
	var deps []models.TaskDependency
	if err := r.db.Preload("DependsOn").
		Where("task_id = ?", taskID).
		Find(&deps).Error; err != nil {
		return nil, err
	}
	return deps, nil
}
