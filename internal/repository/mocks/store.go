// Package mocks содержит хранилища в памяти для тестов сервисов и обработчиков.
package mocks

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/senyabanana/tender-workflow/internal/models"
	"github.com/senyabanana/tender-workflow/internal/repository"
)

// ErrMockStorage - ошибка, которую возвращает хранилище при заданном сбое.
var ErrMockStorage = errors.New("mock storage error")

// Store реализует TenderRepository, BidRepository, DirectoryRepository и NotificationRepository в памяти.
// Создание предложения и увеличение счётчика выполняются под одной блокировкой.
type Store struct {
	mu            sync.Mutex
	tenders       map[string]models.Tender
	bids          map[string]models.Bid
	notifications map[string]models.Notification

	// Справочник для рассылки: категория -> магазины, магазин -> участники, роль -> пользователи.
	CategoryTenants map[string][]string
	TenantMembers   map[string][]string
	RoleUsers       map[string][]string

	// FailDirectory заставляет методы справочника возвращать ErrMockStorage.
	FailDirectory bool
}

var (
	_ repository.TenderRepository       = (*Store)(nil)
	_ repository.BidRepository          = (*Store)(nil)
	_ repository.DirectoryRepository    = (*Store)(nil)
	_ repository.NotificationRepository = (*Store)(nil)
)

// NewStore создаёт пустое хранилище.
func NewStore() *Store {
	return &Store{
		tenders:         make(map[string]models.Tender),
		bids:            make(map[string]models.Bid),
		notifications:   make(map[string]models.Notification),
		CategoryTenants: make(map[string][]string),
		TenantMembers:   make(map[string][]string),
		RoleUsers:       make(map[string][]string),
	}
}

// PutTender кладёт тендер в хранилище как есть.
func (s *Store) PutTender(t models.Tender) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tenders[t.ID] = t
}

// Tender возвращает копию сохранённого тендера.
func (s *Store) Tender(id string) (models.Tender, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tenders[id]
	return t, ok
}

// Notifications возвращает сохранённые уведомления.
func (s *Store) Notifications() []models.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Notification, 0, len(s.notifications))
	for _, n := range s.notifications {
		out = append(out, n)
	}
	return out
}

func (s *Store) CreateTender(ctx context.Context, tender *models.Tender) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, t := range s.tenders {
		if t.TenderNumber == tender.TenderNumber {
			return repository.ErrDuplicate
		}
	}
	s.tenders[tender.ID] = *tender
	return nil
}

func (s *Store) GetTender(ctx context.Context, tenderId string) (*models.Tender, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tenders[tenderId]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &t, nil
}

func (s *Store) ListTenders(ctx context.Context, filter models.TenderFilter, page models.Page) ([]models.Tender, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var matched []models.Tender
	for _, t := range s.tenders {
		if filter.CreatedBy != "" && t.CreatedBy != filter.CreatedBy {
			continue
		}
		if filter.VisibleTo != "" && t.Status != models.OpenTender && t.CreatedBy != filter.VisibleTo {
			continue
		}
		if filter.Status != "" && t.Status != filter.Status {
			continue
		}
		if filter.Type != "" && t.Type != filter.Type {
			continue
		}
		if filter.TenantID != "" && (t.TenantID == nil || *t.TenantID != filter.TenantID) {
			continue
		}
		matched = append(matched, t)
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID < matched[j].ID
	})
	return paginate(matched, page), len(matched), nil
}

func (s *Store) EditTender(ctx context.Context, tenderId string, update models.TenderUpdate) (*models.Tender, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tenders[tenderId]
	if !ok || !t.Editable() {
		return nil, repository.ErrStaleStatus
	}
	if update.Title != nil {
		t.Title = *update.Title
	}
	if update.Description != nil {
		t.Description = update.Description
	}
	if update.Type != nil {
		t.Type = *update.Type
	}
	if update.Category != nil {
		t.Category = *update.Category
	}
	if update.ResponseDeadline != nil {
		t.ResponseDeadline = update.ResponseDeadline
	}
	if update.ContactPreference != nil {
		t.ContactPreference = *update.ContactPreference
	}
	if update.Documents != nil {
		t.Documents = *update.Documents
	}
	t.UpdatedAt = time.Now().UTC()
	s.tenders[tenderId] = t
	return &t, nil
}

func (s *Store) UpdateTenderStatus(ctx context.Context, tenderId string, from, to models.TenderStatus) (*models.Tender, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tenders[tenderId]
	if !ok || t.Status != from {
		return nil, repository.ErrStaleStatus
	}
	t.Status = to
	t.UpdatedAt = time.Now().UTC()
	s.tenders[tenderId] = t
	return &t, nil
}

func (s *Store) ListExpiredTenders(ctx context.Context, now time.Time) ([]models.Tender, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []models.Tender
	for _, t := range s.tenders {
		if t.Status == models.OpenTender && t.DeadlinePassed(now) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ResponseDeadline.Before(*out[j].ResponseDeadline) })
	return out, nil
}

func (s *Store) CreateBid(ctx context.Context, bid *models.Bid) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, b := range s.bids {
		if b.TenderID == bid.TenderID && b.SubmittedBy == bid.SubmittedBy {
			return repository.ErrDuplicate
		}
	}
	t, ok := s.tenders[bid.TenderID]
	if !ok || t.Status != models.OpenTender {
		return repository.ErrStaleStatus
	}
	t.BidCount++
	s.tenders[t.ID] = t
	s.bids[bid.ID] = *bid
	return nil
}

func (s *Store) GetBid(ctx context.Context, bidId string) (*models.Bid, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.bids[bidId]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &b, nil
}

func (s *Store) BidExists(ctx context.Context, tenderId, userId string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, b := range s.bids {
		if b.TenderID == tenderId && b.SubmittedBy == userId {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) GetTenderBids(ctx context.Context, query models.BidQuery) ([]models.Bid, int, error) {
	return s.listBids(query.Page, func(b models.Bid) bool {
		return b.TenderID == query.TenderID && (query.Status == "" || b.Status == query.Status)
	})
}

func (s *Store) GetUserBids(ctx context.Context, userId string, page models.Page) ([]models.Bid, int, error) {
	return s.listBids(page, func(b models.Bid) bool { return b.SubmittedBy == userId })
}

func (s *Store) listBids(page models.Page, match func(models.Bid) bool) ([]models.Bid, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var matched []models.Bid
	for _, b := range s.bids {
		if match(b) {
			matched = append(matched, b)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID < matched[j].ID
	})
	return paginate(matched, page), len(matched), nil
}

func (s *Store) GetTenderBidders(ctx context.Context, tenderId string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []string
	for _, b := range s.bids {
		if b.TenderID == tenderId && b.Status != models.WithdrawnBid {
			out = append(out, b.SubmittedBy)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (s *Store) UpdateBidStatus(ctx context.Context, bidId string, from, to models.BidStatus) (*models.Bid, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.bids[bidId]
	if !ok || b.Status != from {
		return nil, repository.ErrStaleStatus
	}
	b.Status = to
	b.UpdatedAt = time.Now().UTC()
	s.bids[bidId] = b
	return &b, nil
}

func (s *Store) GetTenantsByCategories(ctx context.Context, categories []string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailDirectory {
		return nil, ErrMockStorage
	}
	var out []string
	for _, c := range categories {
		out = append(out, s.CategoryTenants[c]...)
	}
	return out, nil
}

func (s *Store) GetUsersByTenants(ctx context.Context, tenants []string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailDirectory {
		return nil, ErrMockStorage
	}
	var out []string
	for _, t := range tenants {
		out = append(out, s.TenantMembers[t]...)
	}
	return out, nil
}

func (s *Store) GetUsersByRole(ctx context.Context, role string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.FailDirectory {
		return nil, ErrMockStorage
	}
	return append([]string(nil), s.RoleUsers[role]...), nil
}

func (s *Store) CreateNotification(ctx context.Context, n *models.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifications[n.ID] = *n
	return nil
}

func (s *Store) MarkNotification(ctx context.Context, id string, status models.NotificationStatus, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.notifications[id]
	if !ok {
		return repository.ErrNotFound
	}
	n.Status = status
	if status == models.NotificationDelivered {
		n.DeliveredAt = &at
	}
	s.notifications[id] = n
	return nil
}

func paginate[T any](items []T, page models.Page) []T {
	offset := page.Offset()
	if offset >= len(items) {
		return nil
	}
	end := offset + page.Limit
	if page.Limit <= 0 || end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}
