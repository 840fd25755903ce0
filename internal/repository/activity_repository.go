package repository

import (
	"time"

	"github.com/loomplan/loomplan-api/internal/models"
	"gorm.io/gorm"
)

// GormActivityRepository is a GORM implementation of ActivityRepository.
// The backing table is append-only; this type exposes no update or delete.
type GormActivityRepository struct {
	db *gorm.DB
}

// NewActivityRepository creates a new ActivityRepository
func NewActivityRepository(db *gorm.DB) ActivityRepository {
	return &GormActivityRepository{db: db}
}

func (r *GormActivityRepository) Create(entry *models.ActivityLog) error {
	return r.db.Create(entry).Error
}

// List returns matching entries newest first.
func (r *GormActivityRepository) List(filter ActivityFilter) ([]models.ActivityLog, error) {
	query := r.db.Model(&models.ActivityLog{})

	if filter.ContentType != nil {
		query = query.Where("content_type = ?", *filter.ContentType)
	}
	if filter.ObjectID != nil {
		query = query.Where("object_id = ?", *filter.ObjectID)
	}
	if filter.WorkspaceID != nil {
		query = query.Where("workspace_id = ?", *filter.WorkspaceID)
	}
	if filter.ProjectID != nil {
		query = query.Where("project_id = ?", *filter.ProjectID)
	}
	if filter.UserID != nil {
		query = query.Where("user_id = ?", *filter.UserID)
	}
	if filter.Action != nil {
		query = query.Where("action = ?", *filter.Action)
	}
	if filter.From != nil {
		query = query.Where("timestamp >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("timestamp < ?", *filter.To)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}

	var entries []models.ActivityLog
	if err := query.Order("timestamp DESC, id DESC").Limit(limit).Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// Summarize counts activity by action, entity kind and user over a
// trailing N-day window.
func (r *GormActivityRepository) Summarize(days int) (*ActivitySummary, error) {
	if days <= 0 {
		days = 7
	}
	since := time.Now().AddDate(0, 0, -days)

	summary := &ActivitySummary{
		Since:    since,
		ByAction: map[string]int64{},
		ByEntity: map[string]int64{},
		ByUser:   map[uint64]int64{},
	}

	base := func() *gorm.DB {
		return r.db.Model(&models.ActivityLog{}).Where("timestamp >= ?", since)
	}

	if err := base().Count(&summary.Total).Error; err != nil {
		return nil, err
	}

	type actionRow struct {
		Action string
		Count  int64
	}
	var actions []actionRow
	if err := base().Select("action, COUNT(*) AS count").Group("action").Scan(&actions).Error; err != nil {
		return nil, err
	}
	for _, row := range actions {
		summary.ByAction[row.Action] = row.Count
	}

	type entityRow struct {
		ContentType string
		Count       int64
	}
	var entities []entityRow
	if err := base().Select("content_type, COUNT(*) AS count").Group("content_type").Scan(&entities).Error; err != nil {
		return nil, err
	}
	for _, row := range entities {
		summary.ByEntity[row.ContentType] = row.Count
	}

	type userRow struct {
		UserID *uint64
		Count  int64
	}
	var users []userRow
	if err := base().Select("user_id, COUNT(*) AS count").Group("user_id").Scan(&users).Error; err != nil {
		return nil, err
	}
	for _, row := range users {
		if row.UserID != nil {
			summary.ByUser[*row.UserID] = row.Count
		}
	}

	return summary, nil
}
