package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"micro-crm/backend/notifications-service/models"
	"micro-crm/backend/utils/logging"

	"github.com/google/uuid"
)

var (
	ErrValidation      = errors.New("validation failed")
	ErrUnauthenticated = errors.New("missing user identity")
	ErrForbidden       = errors.New("notifications belong to another user")
)

const MaxMessage = 500

type NotificationStore interface {
	Create(ctx context.Context, n *models.Notification) error
	ListByUser(ctx context.Context, userID string) ([]models.Notification, error)
	MarkRead(ctx context.Context, userID string, ref models.NotificationRef) error
	Delete(ctx context.Context, userID string, ref models.NotificationRef) error
}

type NotificationService struct {
	store NotificationStore
	now   func() time.Time
}

func NewNotificationService(store NotificationStore) *NotificationService {
	return &NotificationService{store: store, now: time.Now}
}

// CreateNotification stores an unread notification. Timestamps are truncated
// to the millisecond precision of the storage key.
func (ns *NotificationService) CreateNotification(ctx context.Context, req models.CreateNotificationRequest) (*models.Notification, error) {
	userID := strings.TrimSpace(req.UserID)
	message := strings.TrimSpace(req.Message)
	if userID == "" || message == "" {
		return nil, fmt.Errorf("%w: userId and message are required", ErrValidation)
	}
	if len([]rune(message)) > MaxMessage {
		return nil, fmt.Errorf("%w: message must be at most %d characters", ErrValidation, MaxMessage)
	}

	n := &models.Notification{
		UserID:    userID,
		TaskID:    strings.TrimSpace(req.TaskID),
		Message:   message,
		CreatedAt: ns.now().UTC().Truncate(time.Millisecond),
	}
	if err := ns.store.Create(ctx, n); err != nil {
		return nil, err
	}
	logging.Logger.Infof("Event ID: NOTIFICATION_CREATED, Description: Notification %s created for user %s", n.ID, userID)
	return n, nil
}

// ListForUser only lets callers read their own notifications.
func (ns *NotificationService) ListForUser(ctx context.Context, callerID, userID string) ([]models.Notification, error) {
	if callerID == "" {
		return nil, ErrUnauthenticated
	}
	if callerID != userID {
		return nil, ErrForbidden
	}
	return ns.store.ListByUser(ctx, userID)
}

func (ns *NotificationService) MarkAsRead(ctx context.Context, callerID string, ref models.NotificationRef) error {
	if err := validateRef(callerID, ref); err != nil {
		return err
	}
	return ns.store.MarkRead(ctx, callerID, ref)
}

func (ns *NotificationService) Delete(ctx context.Context, callerID string, ref models.NotificationRef) error {
	if err := validateRef(callerID, ref); err != nil {
		return err
	}
	if err := ns.store.Delete(ctx, callerID, ref); err != nil {
		return err
	}
	logging.Logger.Infof("Event ID: NOTIFICATION_DELETED, Description: Notification %s deleted by user %s", ref.NotificationID, callerID)
	return nil
}

func validateRef(callerID string, ref models.NotificationRef) error {
	if callerID == "" {
		return ErrUnauthenticated
	}
	if _, err := uuid.Parse(ref.NotificationID); err != nil || ref.CreatedAt.IsZero() {
		return fmt.Errorf("%w: notificationId and createdAt are required", ErrValidation)
	}
	return nil
}
