package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// JSONMap is a schemaless JSON column. Heterogeneous per-entity shapes go
// through it without schema migration.
type JSONMap map[string]any

func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

func (m *JSONMap) Scan(value any) error {
	if value == nil {
		*m = nil
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type for JSONMap: %T", value)
	}
	return json.Unmarshal(data, m)
}

// ActivityLog is an immutable, append-only audit record. The application
// never updates or deletes rows. WorkspaceID and ProjectID duplicate the
// hierarchical context carried in ExtraInfo so per-workspace and
// per-project history can be read without joining through four tables.
type ActivityLog struct {
	ID          uint64     `gorm:"primarykey" json:"id"`
	UserID      *uint64    `gorm:"index" json:"user_id"`
	Action      string     `gorm:"type:varchar(255);not null;index" json:"action"`
	ContentType EntityKind `gorm:"type:varchar(100);not null;index:idx_activity_entity" json:"content_type"`
	ObjectID    uint64     `gorm:"not null;index:idx_activity_entity" json:"object_id"`
	Reason      string     `gorm:"type:text" json:"reason,omitempty"`
	OldValue    JSONMap    `gorm:"type:json" json:"old_value,omitempty"`
	NewValue    JSONMap    `gorm:"type:json" json:"new_value,omitempty"`
	ExtraInfo   JSONMap    `gorm:"type:json" json:"extra_info,omitempty"`
	WorkspaceID *uint64    `gorm:"index" json:"workspace_id,omitempty"`
	ProjectID   *uint64    `gorm:"index" json:"project_id,omitempty"`
	Timestamp   time.Time  `gorm:"autoCreateTime;index" json:"timestamp"`

	// Relations
	User *User `gorm:"foreignKey:UserID;constraint:OnDelete:SET NULL" json:"user,omitempty"`
}
