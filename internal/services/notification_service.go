package services

import (
	"errors"
	"fmt"
	"log"

	"github.com/loomplan/loomplan-api/internal/models"
	"github.com/loomplan/loomplan-api/internal/repository"
	"gorm.io/gorm"
)

var ErrNotificationNotFound = errors.New("notification not found")

// NotificationService handles in-app notifications. Delivery is
// best-effort for the same reason audit logging is: a failed
// notification never fails the operation that triggered it.
type NotificationService struct {
	notificationRepo repository.NotificationRepository
}

// NewNotificationService creates a new NotificationService
func NewNotificationService(notificationRepo repository.NotificationRepository) *NotificationService {
	return &NotificationService{notificationRepo: notificationRepo}
}

// Notify creates a notification from a user action.
func (s *NotificationService) Notify(recipientID uint64, actorID *uint64, verb string, ntype models.NotificationType, targetKind *models.EntityKind, targetID *uint64) {
	n := &models.Notification{
		RecipientID:      recipientID,
		ActorID:          actorID,
		Verb:             verb,
		NotificationType: ntype,
		TargetKind:       targetKind,
		TargetID:         targetID,
	}
	if err := s.notificationRepo.Create(n); err != nil {
		log.Printf("notification: failed to notify user %d (%s): %v", recipientID, verb, err)
	}
}

// NotifySystem creates a notification with no human actor, for
// automation such as the completion cascade.
func (s *NotificationService) NotifySystem(recipientID uint64, verb string, ntype models.NotificationType, targetKind *models.EntityKind, targetID *uint64) {
	s.Notify(recipientID, nil, verb, ntype, targetKind, targetID)
}

// List returns a user's notifications, newest first.
func (s *NotificationService) List(recipientID uint64, unreadOnly bool, limit int) ([]models.Notification, error) {
	notifications, err := s.notificationRepo.ListByRecipient(recipientID, unreadOnly, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	return notifications, nil
}

// CountUnread returns the unread badge count.
func (s *NotificationService) CountUnread(recipientID uint64) (int64, error) {
	count, err := s.notificationRepo.CountUnread(recipientID)
	if err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return count, nil
}

// MarkRead marks one of the user's own notifications as read.
func (s *NotificationService) MarkRead(id, recipientID uint64) error {
	if err := s.notificationRepo.MarkRead(id, recipientID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotificationNotFound
		}
		return fmt.Errorf("failed to mark notification read: %w", err)
	}
	return nil
}

// MarkAllRead marks all of the user's notifications as read.
func (s *NotificationService) MarkAllRead(recipientID uint64) error {
	if err := s.notificationRepo.MarkAllRead(recipientID); err != nil {
		return fmt.Errorf("failed to mark notifications read: %w", err)
	}
	return nil
}
