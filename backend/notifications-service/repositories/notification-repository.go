package repositories

import (
	"context"
	"fmt"

	"micro-crm/backend/notifications-service/models"
	"micro-crm/backend/utils/logging"

	"github.com/gocql/gocql"
)

type NotificationRepo struct {
	session *gocql.Session
}

// NewNotificationRepo creates the notifications keyspace when missing and
// opens a session on it.
func NewNotificationRepo(host string) (*NotificationRepo, error) {
	cluster := gocql.NewCluster(host)
	cluster.Keyspace = "system"
	session, err := cluster.CreateSession()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to cassandra: %w", err)
	}

	err = session.Query(
		`CREATE KEYSPACE IF NOT EXISTS notifications
         WITH replication = {
             'class': 'SimpleStrategy',
             'replication_factor': 1
         }`).Exec()
	session.Close()
	if err != nil {
		return nil, fmt.Errorf("failed to create keyspace: %w", err)
	}

	cluster.Keyspace = "notifications"
	cluster.Consistency = gocql.One
	session, err = cluster.CreateSession()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to notifications keyspace: %w", err)
	}

	logging.Logger.Info("Event ID: DB_CONNECTED, Description: Connected to Cassandra notifications keyspace")
	return &NotificationRepo{session: session}, nil
}

func (nr *NotificationRepo) CloseSession() {
	nr.session.Close()
	logging.Logger.Info("Event ID: DB_SESSION_CLOSED, Description: Cassandra session closed")
}

func (nr *NotificationRepo) CreateTable() error {
	err := nr.session.Query(
		`CREATE TABLE IF NOT EXISTS notifications_by_user (
			user_id TEXT,
			created_at TIMESTAMP,
			id UUID,
			task_id TEXT,
			message TEXT,
			is_read BOOLEAN,
			PRIMARY KEY ((user_id), created_at, id)
		) WITH CLUSTERING ORDER BY (created_at DESC, id ASC)`).Exec()
	if err != nil {
		return fmt.Errorf("failed to create notifications table: %w", err)
	}
	return nil
}

func (nr *NotificationRepo) Create(ctx context.Context, n *models.Notification) error {
	id := gocql.TimeUUID()
	if n.ID != "" {
		parsed, err := gocql.ParseUUID(n.ID)
		if err != nil {
			return fmt.Errorf("invalid notification id: %w", err)
		}
		id = parsed
	}

	err := nr.session.Query(
		`INSERT INTO notifications_by_user (user_id, created_at, id, task_id, message, is_read)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		n.UserID, n.CreatedAt, id, n.TaskID, n.Message, n.IsRead,
	).WithContext(ctx).Exec()
	if err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}
	n.ID = id.String()
	return nil
}

// ListByUser returns the user's notifications newest first.
func (nr *NotificationRepo) ListByUser(ctx context.Context, userID string) ([]models.Notification, error) {
	iter := nr.session.Query(
		`SELECT id, user_id, task_id, message, created_at, is_read
		 FROM notifications_by_user WHERE user_id = ?`, userID,
	).WithContext(ctx).Iter()

	notifications := []models.Notification{}
	var (
		id gocql.UUID
		n  models.Notification
	)
	for iter.Scan(&id, &n.UserID, &n.TaskID, &n.Message, &n.CreatedAt, &n.IsRead) {
		n.ID = id.String()
		notifications = append(notifications, n)
	}
	if err := iter.Close(); err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	return notifications, nil
}

// MarkRead uses a conditional update so that unknown rows are not upserted.
func (nr *NotificationRepo) MarkRead(ctx context.Context, userID string, ref models.NotificationRef) error {
	id, err := gocql.ParseUUID(ref.NotificationID)
	if err != nil {
		return models.ErrNotificationNotFound
	}
	applied, err := nr.session.Query(
		`UPDATE notifications_by_user SET is_read = true
		 WHERE user_id = ? AND created_at = ? AND id = ? IF EXISTS`,
		userID, ref.CreatedAt, id,
	).WithContext(ctx).ScanCAS()
	if err != nil {
		return fmt.Errorf("failed to mark notification as read: %w", err)
	}
	if !applied {
		return models.ErrNotificationNotFound
	}
	return nil
}

func (nr *NotificationRepo) Delete(ctx context.Context, userID string, ref models.NotificationRef) error {
	id, err := gocql.ParseUUID(ref.NotificationID)
	if err != nil {
		return models.ErrNotificationNotFound
	}
	applied, err := nr.session.Query(
		`DELETE FROM notifications_by_user
		 WHERE user_id = ? AND created_at = ? AND id = ? IF EXISTS`,
		userID, ref.CreatedAt, id,
	).WithContext(ctx).ScanCAS()
	if err != nil {
		return fmt.Errorf("failed to delete notification: %w", err)
	}
	if !applied {
		return models.ErrNotificationNotFound
	}
	return nil
}
