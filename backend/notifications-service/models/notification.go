package models

import (
	"errors"
	"time"
)

var ErrNotificationNotFound = errors.New("notification not found")

// Notification rows are keyed by (userId, createdAt, id).
type Notification struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	TaskID    string    `json:"taskId,omitempty"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
	IsRead    bool      `json:"isRead"`
}

type CreateNotificationRequest struct {
	UserID  string `json:"userId"`
	TaskID  string `json:"taskId"`
	Message string `json:"message"`
}

// NotificationRef identifies one row of the caller's notifications.
type NotificationRef struct {
	NotificationID string    `json:"notificationId"`
	CreatedAt      time.Time `json:"createdAt"`
}
