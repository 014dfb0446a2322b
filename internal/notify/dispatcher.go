package notify

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/senyabanana/tender-workflow/internal/metrics"
	"github.com/senyabanana/tender-workflow/internal/models"
	"github.com/senyabanana/tender-workflow/internal/repository"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// ErrClosed - диспетчер уже остановлен.
var ErrClosed = errors.New("notification dispatcher is closed")

// Options - параметры диспетчера уведомлений.
type Options struct {
	Workers         int
	QueueSize       int
	RatePerSecond   float64
	Burst           int
	DeliveryTimeout time.Duration
}

func (o Options) withDefaults() Options {
	if o.Workers <= 0 {
		o.Workers = 8
	}
	if o.QueueSize <= 0 {
		o.QueueSize = 1024
	}
	if o.Burst <= 0 {
		o.Burst = 1
	}
	if o.DeliveryTimeout <= 0 {
		o.DeliveryTimeout = 10 * time.Second
	}
	return o
}

type task struct {
	ctx          context.Context
	notification models.Notification
}

// Dispatcher сохраняет и доставляет уведомления в фоне.
// Ошибки доставки логируются и считаются в метриках, но никогда не возвращаются вызывающему.
type Dispatcher struct {
	repo      repository.NotificationRepository
	publisher Publisher
	limiter   *rate.Limiter
	logger    *zap.Logger
	metrics   *metrics.Metrics
	opts      Options
	now       func() time.Time

	mu     sync.RWMutex
	closed bool
	tasks  chan task
	done   chan struct{}
}

// NewDispatcher создаёт диспетчер и запускает обработку очереди.
func NewDispatcher(repo repository.NotificationRepository, publisher Publisher, logger *zap.Logger, m *metrics.Metrics, opts Options) *Dispatcher {
	opts = opts.withDefaults()

	limit := rate.Inf
	if opts.RatePerSecond > 0 {
		limit = rate.Limit(opts.RatePerSecond)
	}

	d := &Dispatcher{
		repo:      repo,
		publisher: publisher,
		limiter:   rate.NewLimiter(limit, opts.Burst),
		logger:    logger.With(zap.String("component", "notify_dispatcher")),
		metrics:   m,
		opts:      opts,
		now:       func() time.Time { return time.Now().UTC() },
		tasks:     make(chan task, opts.QueueSize),
		done:      make(chan struct{}),
	}
	go d.run()
	return d
}

func (d *Dispatcher) run() {
	defer close(d.done)

	p := pool.New().WithMaxGoroutines(d.opts.Workers)
	for t := range d.tasks {
		t := t
		p.Go(func() {
			defer d.metrics.NotifyQueueDepth.Dec()
			d.deliver(t)
		})
	}
	p.Wait()
}

// Notify ставит уведомление в очередь. Если очередь переполнена, уведомление отбрасывается.
func (d *Dispatcher) Notify(ctx context.Context, n models.Notification) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.metrics.Notifications.WithLabelValues("dropped").Inc()
		d.logger.Warn("notification dropped", zap.String("user_id", n.UserID), zap.Error(ErrClosed))
		return
	}

	select {
	case d.tasks <- task{ctx: context.WithoutCancel(ctx), notification: n}:
		d.metrics.NotifyQueueDepth.Inc()
	default:
		d.metrics.Notifications.WithLabelValues("dropped").Inc()
		d.logger.Warn("notification queue is full, notification dropped",
			zap.String("user_id", n.UserID),
			zap.String("title", n.Title))
	}
}

// NotifyAll ставит в очередь одно уведомление на каждого получателя.
func (d *Dispatcher) NotifyAll(ctx context.Context, userIDs []string, n models.Notification) {
	for _, userID := range userIDs {
		msg := n
		msg.UserID = userID
		d.Notify(ctx, msg)
	}
}

// Close прекращает приём уведомлений и дожидается обработки очереди или отмены ctx.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.tasks)
	}
	d.mu.Unlock()

	select {
	case <-d.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) deliver(t task) {
	ctx, cancel := context.WithTimeout(t.ctx, d.opts.DeliveryTimeout)
	defer cancel()

	n := t.notification
	n.ID = uuid.New().String()
	n.Status = models.NotificationPending
	n.CreatedAt = d.now()

	log := d.logger.With(
		zap.String("notification_id", n.ID),
		zap.String("user_id", n.UserID),
		zap.String("title", n.Title),
	)

	if err := d.repo.CreateNotification(ctx, &n); err != nil {
		d.metrics.Notifications.WithLabelValues("failed_store").Inc()
		log.Error("failed to store notification", zap.Error(err))
		return
	}

	if err := d.limiter.Wait(ctx); err != nil {
		d.fail(ctx, log, n, err)
		return
	}

	if err := d.publisher.Publish(ctx, n); err != nil {
		d.fail(ctx, log, n, err)
		return
	}

	if err := d.repo.MarkNotification(ctx, n.ID, models.NotificationDelivered, d.now()); err != nil {
		log.Warn("failed to mark notification delivered", zap.Error(err))
	}
	d.metrics.Notifications.WithLabelValues("delivered").Inc()
	log.Debug("notification delivered")
}

func (d *Dispatcher) fail(ctx context.Context, log *zap.Logger, n models.Notification, cause error) {
	d.metrics.Notifications.WithLabelValues("failed_publish").Inc()
	log.Error("failed to publish notification", zap.Error(cause))

	// ctx мог истечь во время ожидания лимитера.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := d.repo.MarkNotification(ctx, n.ID, models.NotificationFailed, d.now()); err != nil {
		log.Warn("failed to mark notification failed", zap.Error(err))
	}
}
