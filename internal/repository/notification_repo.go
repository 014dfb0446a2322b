package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/senyabanana/tender-workflow/internal/models"

	"github.com/jackc/pgx/v5/pgxpool"
)

// NotificationRepository - хранилище уведомлений пользователей.
type NotificationRepository interface {
	CreateNotification(ctx context.Context, n *models.Notification) error
	MarkNotification(ctx context.Context, id string, status models.NotificationStatus, at time.Time) error
}

// PostgresNotificationRepository - реализация NotificationRepository для базы данных.
type PostgresNotificationRepository struct {
	DB *pgxpool.Pool
}

// NewPostgresNotificationRepository создаёт новый экземпляр PostgresNotificationRepository.
func NewPostgresNotificationRepository(db *pgxpool.Pool) *PostgresNotificationRepository {
	return &PostgresNotificationRepository{DB: db}
}

// CreateNotification сохраняет уведомление.
func (r *PostgresNotificationRepository) CreateNotification(ctx context.Context, n *models.Notification) error {
	_, err := r.DB.Exec(ctx, `
		INSERT INTO notification (id, user_id, title, message, url, icon, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		n.ID, n.UserID, n.Title, n.Message, n.URL, n.Icon, n.Status, n.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert notification: %w", err)
	}
	return nil
}

// MarkNotification фиксирует результат доставки уведомления.
func (r *PostgresNotificationRepository) MarkNotification(ctx context.Context, id string, status models.NotificationStatus, at time.Time) error {
	var deliveredAt *time.Time
	if status == models.NotificationDelivered {
		deliveredAt = &at
	}
	tag, err := r.DB.Exec(ctx, `UPDATE notification SET status = $1, delivered_at = $2 WHERE id = $3`, status, deliveredAt, id)
	if err != nil {
		return fmt.Errorf("failed to update notification: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
