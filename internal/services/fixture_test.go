package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/senyabanana/tender-workflow/internal/metrics"
	"github.com/senyabanana/tender-workflow/internal/models"
	"github.com/senyabanana/tender-workflow/internal/repository/mocks"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

const (
	tenantBuyer     = "6f1d2a3b-0000-4000-8000-000000000001"
	tenantSeller    = "6f1d2a3b-0000-4000-8000-000000000002"
	categoryChairs  = "9a7c1e20-0000-4000-8000-000000000001"
	categoryPaper   = "9a7c1e20-0000-4000-8000-000000000002"
	unknownTenderID = "00000000-0000-4000-8000-00000000dead"
)

var (
	buyer   = models.Caller{ID: "buyer-1", Roles: []string{models.RoleTenant}, Tenants: []string{tenantBuyer}}
	seller1 = models.Caller{ID: "seller-1", Roles: []string{models.RoleTenant}, Tenants: []string{tenantSeller}}
	seller2 = models.Caller{ID: "seller-2", Roles: []string{models.RoleTenant}, Tenants: []string{tenantSeller}}
	admin   = models.Caller{ID: "admin-1", Roles: []string{models.RoleAdmin}}
)

type fixture struct {
	store    *mocks.Store
	notifier *mocks.Notifier
	metrics  *metrics.Metrics
	tenders  *TenderService
	bids     *BidService
	now      time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		store:    mocks.NewStore(),
		notifier: &mocks.Notifier{},
		metrics:  metrics.New(prometheus.NewRegistry()),
		now:      time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	logger := zap.NewNop()
	clock := func() time.Time { return f.now }

	f.tenders = NewTenderService(f.store, f.store, f.store, f.notifier, logger, f.metrics)
	f.tenders.Now = clock
	f.bids = NewBidService(f.store, f.store, f.notifier, logger, f.metrics)
	f.bids.Now = clock

	f.store.CategoryTenants[categoryChairs] = []string{tenantSeller, tenantBuyer}
	f.store.TenantMembers[tenantSeller] = []string{seller1.ID, seller2.ID}
	f.store.TenantMembers[tenantBuyer] = []string{buyer.ID}
	f.store.RoleUsers[models.RoleTenant] = []string{buyer.ID, seller1.ID, seller2.ID}
	return f
}

func (f *fixture) createTender(t *testing.T, owner models.Caller, title string, category ...string) *models.Tender {
	t.Helper()
	tender, err := f.tenders.CreateTender(context.Background(), owner, models.TenderRequest{
		Title:    title,
		Type:     models.RFQ,
		Category: category,
	})
	if err != nil {
		t.Fatalf("CreateTender() error = %v", err)
	}
	return tender
}

func (f *fixture) openTender(t *testing.T, owner models.Caller, title string, category ...string) *models.Tender {
	t.Helper()
	tender := f.createTender(t, owner, title, category...)
	opened, err := f.tenders.UpdateTenderStatus(context.Background(), owner, tender.ID, models.OpenTender)
	if err != nil {
		t.Fatalf("UpdateTenderStatus(open) error = %v", err)
	}
	f.notifier.Reset()
	return opened
}

func (f *fixture) bidCount(t *testing.T, tenderID string) int {
	t.Helper()
	tender, ok := f.store.Tender(tenderID)
	if !ok {
		t.Fatalf("tender %s not found", tenderID)
	}
	return tender.BidCount
}

func assertKind(t *testing.T, err error, kind models.ErrorKind) {
	t.Helper()
	var errResp *models.ErrorResponse
	if !errors.As(err, &errResp) {
		t.Fatalf("expected %s error, got %v", kind, err)
	}
	if errResp.Kind != kind {
		t.Fatalf("error kind = %s (%s), want %s", errResp.Kind, errResp.Message, kind)
	}
}

func recipients(sent []models.Notification) map[string]string {
	out := make(map[string]string, len(sent))
	for _, n := range sent {
		out[n.UserID] = n.Title
	}
	return out
}
