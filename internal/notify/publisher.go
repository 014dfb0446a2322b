package notify

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/senyabanana/tender-workflow/internal/models"

	"github.com/redis/go-redis/v9"
)

// Publisher доставляет сохранённое уведомление во внешний транспорт.
type Publisher interface {
	Publish(ctx context.Context, n models.Notification) error
}

// RedisPublisher публикует уведомления в канал Redis пользователя.
type RedisPublisher struct {
	client *redis.Client
	prefix string
}

// NewRedisPublisher создаёт публикатор; каналы называются <prefix>:<userId>.
func NewRedisPublisher(client *redis.Client, prefix string) *RedisPublisher {
	if prefix == "" {
		prefix = "notifications"
	}
	return &RedisPublisher{client: client, prefix: prefix}
}

// Channel возвращает имя канала пользователя.
func (p *RedisPublisher) Channel(userID string) string {
	return p.prefix + ":" + userID
}

// Publish отправляет уведомление подписчикам канала.
func (p *RedisPublisher) Publish(ctx context.Context, n models.Notification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}
	if err := p.client.Publish(ctx, p.Channel(n.UserID), payload).Err(); err != nil {
		return fmt.Errorf("publish notification: %w", err)
	}
	return nil
}
