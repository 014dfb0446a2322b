package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/senyabanana/tender-workflow/internal/access"
	"github.com/senyabanana/tender-workflow/internal/metrics"
	"github.com/senyabanana/tender-workflow/internal/models"
	"github.com/senyabanana/tender-workflow/internal/repository"
	"github.com/senyabanana/tender-workflow/internal/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Отклонённые и отозванные предложения - терминальные.
var allowedBidTransitions = map[models.BidStatus][]models.BidStatus{
	models.SubmittedBid:   {models.ShortlistedBid, models.RejectedBid, models.WithdrawnBid},
	models.ShortlistedBid: {models.RejectedBid, models.WithdrawnBid},
	models.RejectedBid:    {},
	models.WithdrawnBid:   {},
}

// Решение по предложению принимает владелец тендера.
var ownerBidDecisions = []models.BidStatus{models.ShortlistedBid, models.RejectedBid}

var currencyCode = regexp.MustCompile(`^[A-Z]{3}$`)

type BidService struct {
	Repo     repository.BidRepository
	Tenders  repository.TenderRepository
	Notifier Notifier
	Logger   *zap.Logger
	Metrics  *metrics.Metrics
	Now      func() time.Time
}

// NewBidService создает новый экземпляр BidService.
func NewBidService(repo repository.BidRepository, tenders repository.TenderRepository, notifier Notifier, logger *zap.Logger, m *metrics.Metrics) *BidService {
	return &BidService{
		Repo:     repo,
		Tenders:  tenders,
		Notifier: notifier,
		Logger:   logger.With(zap.String("component", "bid_service")),
		Metrics:  m,
		Now:      func() time.Time { return time.Now().UTC() },
	}
}

// SubmitBid подаёт предложение на открытый тендер.
func (s *BidService) SubmitBid(ctx context.Context, caller models.Caller, req models.BidRequest) (*models.Bid, error) {
	if req.TenderID == "" {
		return nil, models.BadRequest("missing required field: tenderId")
	}
	if req.Amount.Valid && req.Amount.Decimal.IsNegative() {
		return nil, models.BadRequest("amount must be non-negative")
	}
	if req.Currency == "" {
		req.Currency = models.DefaultCurrency
	}
	if !currencyCode.MatchString(req.Currency) {
		return nil, models.BadRequest("invalid currency code: %s", req.Currency)
	}
	if len(req.Documents) > models.MaxDocuments {
		return nil, models.BadRequest("too many documents, at most %d allowed", models.MaxDocuments)
	}

	tender, err := s.loadTender(ctx, req.TenderID)
	if err != nil {
		return nil, err
	}
	if tender.Status != models.OpenTender {
		return nil, models.BadRequest("tender is not open for bids (status %s)", tender.Status)
	}
	if tender.CreatedBy == caller.ID {
		return nil, models.BadRequest("you cannot bid on your own tender")
	}
	if tender.DeadlinePassed(s.Now()) {
		return nil, models.BadRequest("response deadline has passed")
	}

	exists, err := s.Repo.BidExists(ctx, tender.ID, caller.ID)
	if err != nil {
		return nil, fmt.Errorf("check existing bid: %w", err)
	}
	if exists {
		s.Metrics.BidConflicts.Inc()
		return nil, models.Conflict("you have already submitted a bid for this tender")
	}

	now := s.Now()
	bid := &models.Bid{
		ID:          uuid.New().String(),
		TenderID:    tender.ID,
		SubmittedBy: caller.ID,
		Status:      models.SubmittedBid,
		Message:     req.Message,
		Documents:   req.Documents,
		Amount:      req.Amount,
		Currency:    req.Currency,
		ValidUntil:  req.ValidUntil,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err = s.Repo.CreateBid(ctx, bid)
	switch {
	case errors.Is(err, repository.ErrDuplicate):
		s.Metrics.BidConflicts.Inc()
		return nil, models.Conflict("you have already submitted a bid for this tender")
	case errors.Is(err, repository.ErrStaleStatus):
		return nil, models.BadRequest("tender is not open for bids")
	case err != nil:
		return nil, fmt.Errorf("create bid: %w", err)
	}

	s.Metrics.BidsSubmitted.Inc()
	s.Logger.Info("bid submitted",
		zap.String("bid_id", bid.ID),
		zap.String("tender_id", tender.ID),
		zap.String("submitted_by", caller.ID))

	s.Notifier.Notify(ctx, models.Notification{
		UserID:  tender.CreatedBy,
		Title:   "New Bid Received",
		Message: fmt.Sprintf("A new bid was submitted for your tender %q (%s).", tender.Title, tender.TenderNumber),
		URL:     tenderURL(tender.ID) + "/bids",
		Icon:    "bid",
	})
	return bid, nil
}

// GetBid получает предложение; доступно автору, владельцу тендера и администратору.
func (s *BidService) GetBid(ctx context.Context, caller models.Caller, bidId string) (*models.Bid, error) {
	bid, tender, err := s.loadBidWithTender(ctx, bidId)
	if err != nil {
		return nil, err
	}
	if !access.Can(caller, access.ViewBid, access.Resource{Tender: tender, Bid: bid}) {
		return nil, models.Forbidden("you are not authorized to view this bid")
	}
	return bid, nil
}

// GetTenderBids получает список предложений по тендеру для его владельца.
func (s *BidService) GetTenderBids(ctx context.Context, caller models.Caller, query models.BidQuery) (models.PaginatedDocs[models.Bid], error) {
	var empty models.PaginatedDocs[models.Bid]

	if query.Status != "" {
		if _, ok := allowedBidTransitions[query.Status]; !ok {
			return empty, models.BadRequest("unsupported bid status: %s", query.Status)
		}
	}

	tender, err := s.loadTender(ctx, query.TenderID)
	if err != nil {
		return empty, err
	}
	if !access.Can(caller, access.ListBids, access.Resource{Tender: tender}) {
		return empty, models.Forbidden("user is not authorized to view bids for this tender")
	}

	bids, total, err := s.Repo.GetTenderBids(ctx, query)
	if err != nil {
		return empty, fmt.Errorf("list tender bids: %w", err)
	}
	return models.NewPaginatedDocs(bids, total, query.Page), nil
}

// GetUserBids получает список предложений пользователя.
func (s *BidService) GetUserBids(ctx context.Context, caller models.Caller, page models.Page) (models.PaginatedDocs[models.Bid], error) {
	bids, total, err := s.Repo.GetUserBids(ctx, caller.ID, page)
	if err != nil {
		return models.PaginatedDocs[models.Bid]{}, fmt.Errorf("list user bids: %w", err)
	}
	return models.NewPaginatedDocs(bids, total, page), nil
}

// UpdateBidStatus выносит решение по предложению: shortlisted или rejected.
func (s *BidService) UpdateBidStatus(ctx context.Context, caller models.Caller, bidId string, status models.BidStatus) (*models.Bid, error) {
	if !utils.Contains(ownerBidDecisions, status) {
		return nil, models.BadRequest("invalid bid status, must be 'shortlisted' or 'rejected'")
	}

	bid, tender, err := s.loadBidWithTender(ctx, bidId)
	if err != nil {
		return nil, err
	}
	if !access.Can(caller, access.DecideBid, access.Resource{Tender: tender, Bid: bid}) {
		return nil, models.Forbidden("only the tender owner can change the status of this bid")
	}

	updated, err := s.changeStatus(ctx, bid, status)
	if err != nil {
		return nil, err
	}

	title, verb := "Bid Shortlisted", "shortlisted"
	if status == models.RejectedBid {
		title, verb = "Bid Rejected", "rejected"
	}
	s.Notifier.Notify(ctx, models.Notification{
		UserID:  updated.SubmittedBy,
		Title:   title,
		Message: fmt.Sprintf("Your bid for tender %q (%s) has been %s.", tender.Title, tender.TenderNumber, verb),
		URL:     tenderURL(tender.ID),
		Icon:    "bid",
	})
	return updated, nil
}

// WithdrawBid отзывает предложение по инициативе автора.
func (s *BidService) WithdrawBid(ctx context.Context, caller models.Caller, bidId string) (*models.Bid, error) {
	bid, tender, err := s.loadBidWithTender(ctx, bidId)
	if err != nil {
		return nil, err
	}
	if !access.Can(caller, access.WithdrawBid, access.Resource{Tender: tender, Bid: bid}) {
		return nil, models.Forbidden("only the bidder can withdraw this bid")
	}
	if bid.Status == models.WithdrawnBid {
		return nil, models.BadRequest("bid is already withdrawn")
	}

	updated, err := s.changeStatus(ctx, bid, models.WithdrawnBid)
	if err != nil {
		return nil, err
	}

	s.Notifier.Notify(ctx, models.Notification{
		UserID:  tender.CreatedBy,
		Title:   "Bid Withdrawn",
		Message: fmt.Sprintf("A bid for your tender %q (%s) has been withdrawn.", tender.Title, tender.TenderNumber),
		URL:     tenderURL(tender.ID) + "/bids",
		Icon:    "bid",
	})
	return updated, nil
}

func (s *BidService) changeStatus(ctx context.Context, bid *models.Bid, to models.BidStatus) (*models.Bid, error) {
	from := bid.Status
	if !utils.Contains(allowedBidTransitions[from], to) {
		return nil, models.BadRequest("bad transition: %s -> %s", from, to)
	}

	updated, err := s.Repo.UpdateBidStatus(ctx, bid.ID, from, to)
	if errors.Is(err, repository.ErrStaleStatus) {
		return nil, models.BadRequest("bid status changed concurrently, expected %s", from)
	}
	if err != nil {
		return nil, fmt.Errorf("update bid status: %w", err)
	}

	s.Logger.Info("bid status changed",
		zap.String("bid_id", bid.ID),
		zap.String("from", string(from)),
		zap.String("to", string(to)))
	return updated, nil
}

func (s *BidService) loadBidWithTender(ctx context.Context, bidId string) (*models.Bid, *models.Tender, error) {
	if _, err := uuid.Parse(bidId); err != nil {
		return nil, nil, models.BadRequest("invalid bid id")
	}
	bid, err := s.Repo.GetBid(ctx, bidId)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil, models.NotFound("bid not found")
	}
	if err != nil {
		return nil, nil, fmt.Errorf("get bid: %w", err)
	}

	tender, err := s.Tenders.GetTender(ctx, bid.TenderID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil, models.NotFound("tender not found")
	}
	if err != nil {
		return nil, nil, fmt.Errorf("get tender: %w", err)
	}
	return bid, tender, nil
}

func (s *BidService) loadTender(ctx context.Context, tenderId string) (*models.Tender, error) {
	if _, err := uuid.Parse(tenderId); err != nil {
		return nil, models.BadRequest("invalid tender id")
	}
	tender, err := s.Tenders.GetTender(ctx, tenderId)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, models.NotFound("tender not found")
	}
	if err != nil {
		return nil, fmt.Errorf("get tender: %w", err)
	}
	return tender, nil
}
