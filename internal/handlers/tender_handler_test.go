package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/senyabanana/tender-workflow/internal/metrics"
	"github.com/senyabanana/tender-workflow/internal/models"
	"github.com/senyabanana/tender-workflow/internal/repository/mocks"
	"github.com/senyabanana/tender-workflow/internal/services"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// deadlineStore запоминает, был ли у контекста выборки просроченных тендеров дедлайн.
type deadlineStore struct {
	*mocks.Store

	mu          sync.Mutex
	hasDeadline bool
}

func (s *deadlineStore) ListExpiredTenders(ctx context.Context, now time.Time) ([]models.Tender, error) {
	s.mu.Lock()
	_, s.hasDeadline = ctx.Deadline()
	s.mu.Unlock()
	return s.Store.ListExpiredTenders(ctx, now)
}

func TestCloseExpiredUsesRequestTimeout(t *testing.T) {
	store := &deadlineStore{Store: mocks.NewStore()}
	logger := zap.NewNop()
	service := services.NewTenderService(store, store, store, &mocks.Notifier{}, logger, metrics.New(prometheus.NewRegistry()))
	handler := NewTenderHandler(service, logger, time.Second)

	admin := models.Caller{ID: "0b6f7c1e-1111-4000-8000-000000000004", Roles: []string{models.RoleAdmin}}
	req := httptest.NewRequest(http.MethodPost, "/api/admin/tenders/close-expired", nil)
	req = req.WithContext(models.WithCaller(req.Context(), admin))
	rec := httptest.NewRecorder()

	handler.CloseExpired(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	store.mu.Lock()
	defer store.mu.Unlock()
	if !store.hasDeadline {
		t.Error("close-expired ran without the request timeout")
	}
}

func TestCloseExpiredRequiresCaller(t *testing.T) {
	store := mocks.NewStore()
	logger := zap.NewNop()
	service := services.NewTenderService(store, store, store, &mocks.Notifier{}, logger, metrics.New(prometheus.NewRegistry()))
	handler := NewTenderHandler(service, logger, time.Second)

	rec := httptest.NewRecorder()
	handler.CloseExpired(rec, httptest.NewRequest(http.MethodPost, "/api/admin/tenders/close-expired", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}
