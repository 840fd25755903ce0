package models

import "time"

type NotificationType string

const (
	NotificationMention      NotificationType = "mention"
	NotificationDeadline     NotificationType = "deadline"
	NotificationAssignment   NotificationType = "assignment"
	NotificationComment      NotificationType = "comment"
	NotificationMemberAdded  NotificationType = "member_added"
	NotificationStatusChange NotificationType = "status_change"
	NotificationGeneral      NotificationType = "general"
)

// Notification is an in-app alert. A nil actor marks a system-generated
// notification (deadline reminders, auto-completion).
type Notification struct {
	ID               uint64           `gorm:"primarykey" json:"id"`
	RecipientID      uint64           `gorm:"not null;index:idx_notifications_recipient" json:"recipient_id"`
	ActorID          *uint64          `json:"actor_id"`
	Verb             string           `gorm:"type:varchar(255);not null" json:"verb"`
	NotificationType NotificationType `gorm:"type:varchar(20);not null;default:'general'" json:"notification_type"`
	TargetKind       *EntityKind      `gorm:"type:varchar(100)" json:"target_kind,omitempty"`
	TargetID         *uint64          `json:"target_id,omitempty"`
	Read             bool             `gorm:"default:false;index" json:"read"`
	Timestamp        time.Time        `gorm:"autoCreateTime;index:idx_notifications_recipient" json:"timestamp"`

	// Relations
	Recipient User  `gorm:"foreignKey:RecipientID;constraint:OnDelete:CASCADE" json:"recipient,omitempty"`
	Actor     *User `gorm:"foreignKey:ActorID;constraint:OnDelete:SET NULL" json:"actor,omitempty"`
}
