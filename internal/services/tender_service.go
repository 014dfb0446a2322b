package services

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/senyabanana/tender-workflow/internal/access"
	"github.com/senyabanana/tender-workflow/internal/metrics"
	"github.com/senyabanana/tender-workflow/internal/models"
	"github.com/senyabanana/tender-workflow/internal/repository"
	"github.com/senyabanana/tender-workflow/internal/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Notifier - получатель событий для уведомления пользователей. Не возвращает ошибок:
// сбой доставки не должен откатывать уже сохранённое изменение.
type Notifier interface {
	Notify(ctx context.Context, n models.Notification)
	NotifyAll(ctx context.Context, userIDs []string, n models.Notification)
}

var allowedTenderTransitions = map[models.TenderStatus][]models.TenderStatus{
	models.DraftTender:     {models.OpenTender, models.CancelledTender},
	models.OpenTender:      {models.ClosedTender, models.CancelledTender},
	models.ClosedTender:    {},
	models.CancelledTender: {},
}

var (
	allowedTenderTypes = []models.TenderType{models.RFQ, models.RFP}
	allowedContacts    = []models.ContactPreference{models.ContactEmail, models.ContactPhone, models.ContactChat}
)

const tenderNumberAttempts = 3

type TenderService struct {
	Repo      repository.TenderRepository
	Bids      repository.BidRepository
	Directory repository.DirectoryRepository
	Notifier  Notifier
	Logger    *zap.Logger
	Metrics   *metrics.Metrics
	Now       func() time.Time
}

// NewTenderService создаёт новый экземпляр TenderService.
func NewTenderService(repo repository.TenderRepository, bids repository.BidRepository, directory repository.DirectoryRepository,
	notifier Notifier, logger *zap.Logger, m *metrics.Metrics) *TenderService {
	return &TenderService{
		Repo:      repo,
		Bids:      bids,
		Directory: directory,
		Notifier:  notifier,
		Logger:    logger.With(zap.String("component", "tender_service")),
		Metrics:   m,
		Now:       func() time.Time { return time.Now().UTC() },
	}
}

// FetchTenders получает список тендеров, видимых пользователю.
func (s *TenderService) FetchTenders(ctx context.Context, caller models.Caller, query models.TenderQuery) (models.PaginatedDocs[models.Tender], error) {
	var empty models.PaginatedDocs[models.Tender]

	if query.Status != "" {
		if _, ok := allowedTenderTransitions[query.Status]; !ok {
			return empty, models.BadRequest("unsupported tender status: %s", query.Status)
		}
	}
	if query.Type != "" && !utils.Contains(allowedTenderTypes, query.Type) {
		return empty, models.BadRequest("unsupported tender type: %s", query.Type)
	}
	if query.TenantID != "" {
		if _, err := uuid.Parse(query.TenantID); err != nil {
			return empty, models.BadRequest("invalid tenant id")
		}
	}

	filter := access.TenderScope(caller, query)
	tenders, total, err := s.Repo.ListTenders(ctx, filter, query.Page)
	if err != nil {
		return empty, fmt.Errorf("list tenders: %w", err)
	}
	return models.NewPaginatedDocs(tenders, total, query.Page), nil
}

// GetTender получает тендер по ID с проверкой видимости.
func (s *TenderService) GetTender(ctx context.Context, caller models.Caller, tenderId string) (*models.Tender, error) {
	tender, err := s.loadTender(ctx, tenderId)
	if err != nil {
		return nil, err
	}
	if !access.Can(caller, access.ViewTender, access.Resource{Tender: tender}) {
		return nil, models.Forbidden("you are not authorized to view this tender")
	}
	return tender, nil
}

// CreateTender создает новый тендер в статусе draft.
func (s *TenderService) CreateTender(ctx context.Context, caller models.Caller, req models.TenderRequest) (*models.Tender, error) {
	if err := validateTitle(req.Title); err != nil {
		return nil, err
	}
	if !utils.Contains(allowedTenderTypes, req.Type) {
		return nil, models.BadRequest("invalid tender type, must be 'rfq' or 'rfp'")
	}
	if req.ContactPreference == "" {
		req.ContactPreference = models.ContactEmail
	}
	if !utils.Contains(allowedContacts, req.ContactPreference) {
		return nil, models.BadRequest("invalid contact preference, must be 'email', 'phone' or 'chat'")
	}
	if len(req.Documents) > models.MaxDocuments {
		return nil, models.BadRequest("too many documents, at most %d allowed", models.MaxDocuments)
	}
	category, err := normalizeCategories(req.Category)
	if err != nil {
		return nil, err
	}

	tenantID := caller.FirstTenant()
	if req.TenantID != nil && *req.TenantID != "" {
		if _, err := uuid.Parse(*req.TenantID); err != nil {
			return nil, models.BadRequest("invalid tenant id")
		}
		if !access.Can(caller, access.CreateForTenant, access.Resource{TenantID: *req.TenantID}) {
			return nil, models.Forbidden("you are not a member of tenant %s", *req.TenantID)
		}
		tenantID = req.TenantID
	}

	now := s.Now()
	tender := &models.Tender{
		ID:                uuid.New().String(),
		Title:             req.Title,
		Description:       req.Description,
		Type:              req.Type,
		Status:            models.DraftTender,
		Category:          category,
		ResponseDeadline:  req.ResponseDeadline,
		ContactPreference: req.ContactPreference,
		BidCount:          0,
		Documents:         req.Documents,
		TenantID:          tenantID,
		CreatedBy:         caller.ID,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	for attempt := 1; ; attempt++ {
		tender.TenderNumber, err = utils.NewTenderNumber(now)
		if err != nil {
			return nil, fmt.Errorf("generate tender number: %w", err)
		}
		err = s.Repo.CreateTender(ctx, tender)
		if !errors.Is(err, repository.ErrDuplicate) || attempt == tenderNumberAttempts {
			break
		}
		s.Logger.Warn("tender number collision, retrying", zap.String("tender_number", tender.TenderNumber))
	}
	if err != nil {
		return nil, fmt.Errorf("create tender: %w", err)
	}

	s.Logger.Info("tender created",
		zap.String("tender_id", tender.ID),
		zap.String("tender_number", tender.TenderNumber),
		zap.String("created_by", caller.ID))
	return tender, nil
}

// EditTender меняет поля тендера, кроме статуса.
func (s *TenderService) EditTender(ctx context.Context, caller models.Caller, tenderId string, update models.TenderUpdate) (*models.Tender, error) {
	if update.Empty() {
		return nil, models.BadRequest("no fields to update")
	}
	if update.Title != nil {
		if err := validateTitle(*update.Title); err != nil {
			return nil, err
		}
	}
	if update.Type != nil && !utils.Contains(allowedTenderTypes, *update.Type) {
		return nil, models.BadRequest("invalid tender type, must be 'rfq' or 'rfp'")
	}
	if update.ContactPreference != nil && !utils.Contains(allowedContacts, *update.ContactPreference) {
		return nil, models.BadRequest("invalid contact preference, must be 'email', 'phone' or 'chat'")
	}
	if update.Documents != nil && len(*update.Documents) > models.MaxDocuments {
		return nil, models.BadRequest("too many documents, at most %d allowed", models.MaxDocuments)
	}
	if update.Category != nil {
		category, err := normalizeCategories(*update.Category)
		if err != nil {
			return nil, err
		}
		update.Category = &category
	}

	tender, err := s.loadTender(ctx, tenderId)
	if err != nil {
		return nil, err
	}
	if !access.Can(caller, access.EditTender, access.Resource{Tender: tender}) {
		return nil, models.Forbidden("you are not authorized to edit this tender")
	}
	if !tender.Editable() {
		return nil, notEditable(tender.Status)
	}

	updated, err := s.Repo.EditTender(ctx, tenderId, update)
	if errors.Is(err, repository.ErrStaleStatus) {
		// Тендер закрыли между чтением и записью.
		if current, loadErr := s.loadTender(ctx, tenderId); loadErr == nil {
			return nil, notEditable(current.Status)
		}
		return nil, notEditable(tender.Status)
	}
	if err != nil {
		return nil, fmt.Errorf("edit tender: %w", err)
	}
	return updated, nil
}

// UpdateTenderStatus меняет статус тендера по таблице переходов и рассылает уведомления.
func (s *TenderService) UpdateTenderStatus(ctx context.Context, caller models.Caller, tenderId string, status models.TenderStatus) (*models.Tender, error) {
	if status == "" {
		return nil, models.BadRequest("missing required field: status")
	}
	if _, ok := allowedTenderTransitions[status]; !ok {
		return nil, models.BadRequest("unsupported tender status: %s", status)
	}

	tender, err := s.loadTender(ctx, tenderId)
	if err != nil {
		return nil, err
	}
	if !access.Can(caller, access.ChangeTenderStatus, access.Resource{Tender: tender}) {
		return nil, models.Forbidden("you are not authorized to change the status of this tender")
	}

	return s.transition(ctx, caller, tender, status)
}

// CloseExpired закрывает открытые тендеры с истёкшим сроком приёма предложений.
func (s *TenderService) CloseExpired(ctx context.Context, caller models.Caller) ([]models.Tender, error) {
	if !access.Can(caller, access.CloseExpired, access.Resource{}) {
		return nil, models.Forbidden("only administrators can close expired tenders")
	}

	expired, err := s.Repo.ListExpiredTenders(ctx, s.Now())
	if err != nil {
		return nil, fmt.Errorf("list expired tenders: %w", err)
	}

	closed := make([]models.Tender, 0, len(expired))
	for i := range expired {
		tender, err := s.transition(ctx, caller, &expired[i], models.ClosedTender)
		if err != nil {
			var errResp *models.ErrorResponse
			if errors.As(err, &errResp) {
				s.Logger.Info("skipping expired tender", zap.String("tender_id", expired[i].ID), zap.Error(err))
				continue
			}
			return closed, err
		}
		closed = append(closed, *tender)
	}

	s.Logger.Info("expired tenders closed", zap.Int("count", len(closed)))
	return closed, nil
}

func (s *TenderService) transition(ctx context.Context, caller models.Caller, tender *models.Tender, to models.TenderStatus) (*models.Tender, error) {
	from := tender.Status
	if !utils.Contains(allowedTenderTransitions[from], to) {
		return nil, badTransition(from, to)
	}

	updated, err := s.Repo.UpdateTenderStatus(ctx, tender.ID, from, to)
	if errors.Is(err, repository.ErrStaleStatus) {
		if current, loadErr := s.loadTender(ctx, tender.ID); loadErr == nil {
			return nil, badTransition(current.Status, to)
		}
		return nil, badTransition(from, to)
	}
	if err != nil {
		return nil, fmt.Errorf("update tender status: %w", err)
	}

	s.Metrics.TenderTransitions.WithLabelValues(string(from), string(to)).Inc()
	s.Logger.Info("tender status changed",
		zap.String("tender_id", updated.ID),
		zap.String("from", string(from)),
		zap.String("to", string(to)),
		zap.String("actor", caller.ID))

	switch to {
	case models.OpenTender:
		s.notifyPublished(ctx, caller, updated)
	case models.ClosedTender, models.CancelledTender:
		s.notifyBidders(ctx, caller, updated)
	}
	return updated, nil
}

// notifyPublished рассылает продавцам из подходящих категорий сообщение о новом тендере.
func (s *TenderService) notifyPublished(ctx context.Context, caller models.Caller, tender *models.Tender) {
	recipients, err := s.publishRecipients(ctx, tender)
	if err != nil {
		s.Logger.Error("failed to resolve tender recipients", zap.String("tender_id", tender.ID), zap.Error(err))
		return
	}

	recipients = exclude(recipients, caller.ID, tender.CreatedBy)
	s.Notifier.NotifyAll(ctx, recipients, models.Notification{
		Title:   "New Tender Published",
		Message: fmt.Sprintf("A new tender %q (%s) matching your categories is open for bids.", tender.Title, tender.TenderNumber),
		URL:     tenderURL(tender.ID),
		Icon:    "tender",
	})
	s.Logger.Info("tender publish fan-out", zap.String("tender_id", tender.ID), zap.Int("recipients", len(recipients)))
}

func (s *TenderService) publishRecipients(ctx context.Context, tender *models.Tender) ([]string, error) {
	if len(tender.Category) == 0 {
		return s.Directory.GetUsersByRole(ctx, models.RoleTenant)
	}

	tenants, err := s.Directory.GetTenantsByCategories(ctx, tender.Category)
	if err != nil {
		return nil, fmt.Errorf("tenants by categories: %w", err)
	}
	if len(tenants) == 0 {
		return nil, nil
	}
	users, err := s.Directory.GetUsersByTenants(ctx, tenants)
	if err != nil {
		return nil, fmt.Errorf("users by tenants: %w", err)
	}
	return users, nil
}

// notifyBidders сообщает авторам предложений о закрытии или отмене тендера.
func (s *TenderService) notifyBidders(ctx context.Context, caller models.Caller, tender *models.Tender) {
	bidders, err := s.Bids.GetTenderBidders(ctx, tender.ID)
	if err != nil {
		s.Logger.Error("failed to resolve tender bidders", zap.String("tender_id", tender.ID), zap.Error(err))
		return
	}

	title, verb := "Tender Closed", "closed"
	if tender.Status == models.CancelledTender {
		title, verb = "Tender Cancelled", "cancelled"
	}
	s.Notifier.NotifyAll(ctx, exclude(bidders, caller.ID), models.Notification{
		Title:   title,
		Message: fmt.Sprintf("Tender %q (%s) you bid on has been %s.", tender.Title, tender.TenderNumber, verb),
		URL:     tenderURL(tender.ID),
		Icon:    "tender",
	})
}

func (s *TenderService) loadTender(ctx context.Context, tenderId string) (*models.Tender, error) {
	if _, err := uuid.Parse(tenderId); err != nil {
		return nil, models.BadRequest("invalid tender id")
	}
	tender, err := s.Repo.GetTender(ctx, tenderId)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, models.NotFound("tender not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get tender: %w", err)
	}
	return tender, nil
}

func validateTitle(title string) error {
	n := utf8.RuneCountInString(title)
	if n < models.MinTitleLength || n > models.MaxTitleLength {
		return models.BadRequest("title must be between %d and %d characters", models.MinTitleLength, models.MaxTitleLength)
	}
	return nil
}

func normalizeCategories(category []string) ([]string, error) {
	seen := make(map[string]struct{}, len(category))
	out := make([]string, 0, len(category))
	for _, c := range category {
		if _, err := uuid.Parse(c); err != nil {
			return nil, models.BadRequest("invalid category id: %s", c)
		}
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out, nil
}

func badTransition(from, to models.TenderStatus) error {
	return models.BadRequest("bad transition: %s -> %s", from, to)
}

func notEditable(status models.TenderStatus) error {
	return models.BadRequest("tender is not editable in status %s", status)
}

func tenderURL(tenderId string) string {
	return "/tenders/" + tenderId
}

// exclude убирает повторы и перечисленных пользователей из списка получателей.
func exclude(userIDs []string, skip ...string) []string {
	seen := make(map[string]struct{}, len(userIDs)+len(skip))
	for _, id := range skip {
		seen[id] = struct{}{}
	}
	out := make([]string, 0, len(userIDs))
	for _, id := range userIDs {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
