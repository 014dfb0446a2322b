package mocks

import (
	"context"
	"sync"

	"github.com/senyabanana/tender-workflow/internal/models"
)

// Notifier запоминает уведомления вместо их отправки.
type Notifier struct {
	mu   sync.Mutex
	sent []models.Notification
}

func (n *Notifier) Notify(ctx context.Context, msg models.Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, msg)
}

func (n *Notifier) NotifyAll(ctx context.Context, userIDs []string, msg models.Notification) {
	for _, id := range userIDs {
		m := msg
		m.UserID = id
		n.Notify(ctx, m)
	}
}

// Sent возвращает все уведомления в порядке постановки.
func (n *Notifier) Sent() []models.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]models.Notification(nil), n.sent...)
}

// For возвращает уведомления конкретного пользователя.
func (n *Notifier) For(userID string) []models.Notification {
	var out []models.Notification
	for _, msg := range n.Sent() {
		if msg.UserID == userID {
			out = append(out, msg)
		}
	}
	return out
}

// Reset очищает записанные уведомления.
func (n *Notifier) Reset() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = nil
}

// Publisher - фейковый канал доставки уведомлений.
type Publisher struct {
	mu        sync.Mutex
	Err       error
	published []models.Notification
}

func (p *Publisher) Publish(ctx context.Context, n models.Notification) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Err != nil {
		return p.Err
	}
	p.published = append(p.published, n)
	return nil
}

// Published возвращает доставленные уведомления.
func (p *Publisher) Published() []models.Notification {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]models.Notification(nil), p.published...)
}
