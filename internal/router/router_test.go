package router

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/senyabanana/tender-workflow/internal/auth"
	"github.com/senyabanana/tender-workflow/internal/handlers"
	"github.com/senyabanana/tender-workflow/internal/metrics"
	"github.com/senyabanana/tender-workflow/internal/models"
	"github.com/senyabanana/tender-workflow/internal/repository/mocks"
	"github.com/senyabanana/tender-workflow/internal/services"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/zap"
)

const testSecret = "router-test-secret"

type testServer struct {
	handler  http.Handler
	store    *mocks.Store
	notifier *mocks.Notifier
	metrics  *metrics.Metrics
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	store := mocks.NewStore()
	notifier := &mocks.Notifier{}
	m := metrics.New(prometheus.NewRegistry())
	logger := zap.NewNop()

	tenderService := services.NewTenderService(store, store, store, notifier, logger, m)
	bidService := services.NewBidService(store, store, notifier, logger, m)

	return &testServer{
		handler: InitRoutes(
			handlers.NewTenderHandler(tenderService, logger, time.Second),
			handlers.NewBidHandler(bidService, logger, time.Second),
			testSecret, logger, m),
		store:    store,
		notifier: notifier,
		metrics:  m,
	}
}

func (s *testServer) do(t *testing.T, caller *models.Caller, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if caller != nil {
		token, err := auth.GenerateToken(*caller, testSecret, time.Hour)
		if err != nil {
			t.Fatalf("GenerateToken() error = %v", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return v
}

func TestPing(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, nil, http.MethodGet, "/api/ping", nil)
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("ping = %d %q", rec.Code, rec.Body.String())
	}
}

func TestAuthentication(t *testing.T) {
	s := newTestServer(t)

	t.Run("missing token", func(t *testing.T) {
		rec := s.do(t, nil, http.MethodGet, "/api/tenders", nil)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", rec.Code)
		}
		if resp := decode[models.ErrorResponse](t, rec); resp.Kind != models.KindUnauthorized {
			t.Errorf("kind = %s", resp.Kind)
		}
	})

	t.Run("invalid token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/tenders", nil)
		req.Header.Set("Authorization", "Bearer garbage")
		rec := httptest.NewRecorder()
		s.handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", rec.Code)
		}
	})

	t.Run("valid token", func(t *testing.T) {
		rec := s.do(t, &models.Caller{ID: "0b6f7c1e-1111-4000-8000-000000000001"}, http.MethodGet, "/api/tenders", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
		}
		page := decode[models.PaginatedDocs[models.Tender]](t, rec)
		if page.Docs == nil || page.TotalDocs != 0 || page.Limit != models.DefaultLimit {
			t.Errorf("unexpected page: %+v", page)
		}
	})
}

func TestTenderAndBidFlow(t *testing.T) {
	s := newTestServer(t)
	buyer := &models.Caller{ID: "0b6f7c1e-1111-4000-8000-000000000002", Roles: []string{models.RoleTenant}}
	seller := &models.Caller{ID: "0b6f7c1e-1111-4000-8000-000000000003", Roles: []string{models.RoleTenant}}
	s.store.RoleUsers[models.RoleTenant] = []string{buyer.ID, seller.ID}

	rec := s.do(t, buyer, http.MethodPost, "/api/tenders/new", map[string]any{
		"title": "Office Chairs",
		"type":  "rfq",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create tender = %d: %s", rec.Code, rec.Body.String())
	}
	tender := decode[models.Tender](t, rec)

	rec = s.do(t, seller, http.MethodGet, "/api/tenders/"+tender.ID, nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("draft visible to seller: %d", rec.Code)
	}

	rec = s.do(t, buyer, http.MethodPut, "/api/tenders/"+tender.ID+"/status", map[string]any{"status": "open"})
	if rec.Code != http.StatusOK {
		t.Fatalf("publish = %d: %s", rec.Code, rec.Body.String())
	}
	if sent := s.notifier.For(seller.ID); len(sent) != 1 {
		t.Errorf("seller notifications = %+v", sent)
	}

	bidBody := map[string]any{"tenderId": tender.ID, "amount": "500000", "currency": "RWF"}
	rec = s.do(t, seller, http.MethodPost, "/api/bids/new", bidBody)
	if rec.Code != http.StatusCreated {
		t.Fatalf("submit bid = %d: %s", rec.Code, rec.Body.String())
	}
	bid := decode[models.Bid](t, rec)

	rec = s.do(t, seller, http.MethodPost, "/api/bids/new", bidBody)
	if rec.Code != http.StatusConflict {
		t.Fatalf("duplicate bid = %d, want 409", rec.Code)
	}

	rec = s.do(t, seller, http.MethodGet, "/api/tenders/"+tender.ID+"/bids", nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("seller listed bids: %d", rec.Code)
	}

	rec = s.do(t, buyer, http.MethodGet, "/api/tenders/"+tender.ID+"/bids?status=submitted", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("owner list bids = %d: %s", rec.Code, rec.Body.String())
	}
	if page := decode[models.PaginatedDocs[models.Bid]](t, rec); page.TotalDocs != 1 {
		t.Errorf("bids totalDocs = %d, want 1", page.TotalDocs)
	}

	rec = s.do(t, seller, http.MethodGet, "/api/bids/my", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("my bids = %d: %s", rec.Code, rec.Body.String())
	}

	rec = s.do(t, buyer, http.MethodPut, "/api/bids/"+bid.ID+"/status", map[string]any{"status": "shortlisted"})
	if rec.Code != http.StatusOK {
		t.Fatalf("shortlist = %d: %s", rec.Code, rec.Body.String())
	}

	rec = s.do(t, buyer, http.MethodPost, "/api/bids/"+bid.ID+"/withdraw", nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("owner withdrew bid: %d", rec.Code)
	}

	rec = s.do(t, seller, http.MethodPost, "/api/bids/"+bid.ID+"/withdraw", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("withdraw = %d: %s", rec.Code, rec.Body.String())
	}

	rec = s.do(t, buyer, http.MethodGet, "/api/tenders/"+tender.ID, nil)
	if got := decode[models.Tender](t, rec); got.BidCount != 1 || got.Status != models.OpenTender {
		t.Errorf("tender after flow: %+v", got)
	}

	if got := testutil.ToFloat64(s.metrics.HTTPRequests.WithLabelValues(http.MethodPost, "/api/bids/new", "409")); got != 1 {
		t.Errorf("conflict requests metric = %v, want 1", got)
	}
}

func TestBadInput(t *testing.T) {
	s := newTestServer(t)
	caller := &models.Caller{ID: "0b6f7c1e-1111-4000-8000-000000000001"}

	t.Run("malformed body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/tenders/new", strings.NewReader("{"))
		token, _ := auth.GenerateToken(*caller, testSecret, time.Hour)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		s.handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("bad limit", func(t *testing.T) {
		rec := s.do(t, caller, http.MethodGet, "/api/tenders?limit=500", nil)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("huge page", func(t *testing.T) {
		rec := s.do(t, caller, http.MethodGet, "/api/tenders?page=9223372036854775807", nil)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("unknown tender", func(t *testing.T) {
		rec := s.do(t, caller, http.MethodGet, "/api/tenders/00000000-0000-4000-8000-000000000000", nil)
		if rec.Code != http.StatusNotFound {
			t.Fatalf("status = %d, want 404", rec.Code)
		}
	})

	t.Run("close expired requires admin", func(t *testing.T) {
		rec := s.do(t, caller, http.MethodPost, "/api/admin/tenders/close-expired", nil)
		if rec.Code != http.StatusForbidden {
			t.Fatalf("status = %d, want 403", rec.Code)
		}
		rec = s.do(t, &models.Caller{ID: "0b6f7c1e-1111-4000-8000-000000000004", Roles: []string{models.RoleAdmin}}, http.MethodPost, "/api/admin/tenders/close-expired", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("admin status = %d, want 200: %s", rec.Code, rec.Body.String())
		}
	})
}
