package database

import (
	"fmt"

	"gorm.io/gorm"
)

// AddIndexes adds performance-critical indexes beyond what AutoMigrate
// derives from struct tags.
func AddIndexes(db *gorm.DB) error {
	indexes := []struct {
		table   string
		name    string
		columns string
	}{
		// Task filtering and cascade counting
		{"tasks", "idx_tasks_sprint_status", "sprint_id, status"},
		{"tasks", "idx_tasks_due_date", "due_date"},

		// Stage completion counting
		{"sprints", "idx_sprints_milestone_status", "milestone_id, status"},
		{"milestones", "idx_milestones_project_status", "project_id, status"},
		{"projects", "idx_projects_workspace_status", "workspace_id, status"},

		// Activity history reads, newest first
		{"activity_logs", "idx_activity_workspace_ts", "workspace_id, timestamp"},
		{"activity_logs", "idx_activity_project_ts", "project_id, timestamp"},
		{"activity_logs", "idx_activity_user_ts", "user_id, timestamp"},
	}

	for _, idx := range indexes {
		var count int64
		err := db.Raw(`
			SELECT COUNT(*)
			FROM pg_indexes
			WHERE tablename = ? AND indexname = ?
		`, idx.table, idx.name).Count(&count).Error

		if err != nil {
			return fmt.Errorf("failed to check index %s: %w", idx.name, err)
		}

		if count > 0 {
			continue
		}

		sql := fmt.Sprintf("CREATE INDEX %s ON %s (%s)", idx.name, idx.table, idx.columns)
		if err := db.Exec(sql).Error; err != nil {
			return fmt.Errorf("failed to create index %s: %w", idx.name, err)
		}
	}

	return nil
}
