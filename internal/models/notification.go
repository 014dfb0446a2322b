package models

import "time"

// NotificationStatus - состояние доставки уведомления.
type NotificationStatus string

const (
	NotificationPending   NotificationStatus = "pending"
	NotificationDelivered NotificationStatus = "delivered"
	NotificationFailed    NotificationStatus = "failed"
)

// Notification - уведомление пользователю внутри приложения.
type Notification struct {
	ID          string             `json:"id"`
	UserID      string             `json:"userId"`
	Title       string             `json:"title"`
	Message     string             `json:"message"`
	URL         string             `json:"url,omitempty"`
	Icon        string             `json:"icon,omitempty"`
	Status      NotificationStatus `json:"status"`
	CreatedAt   time.Time          `json:"createdAt"`
	DeliveredAt *time.Time         `json:"deliveredAt,omitempty"`
}
