package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/senyabanana/tender-workflow/internal/models"
	"github.com/senyabanana/tender-workflow/internal/services"
	"github.com/senyabanana/tender-workflow/internal/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// BidHandler - структура для обработки HTTP-запросов по предложениям.
type BidHandler struct {
	Service *services.BidService
	Logger  *zap.Logger
	Timeout time.Duration
}

// NewBidHandler создаёт новый экземпляр BidHandler.
func NewBidHandler(service *services.BidService, logger *zap.Logger, timeout time.Duration) *BidHandler {
	return &BidHandler{
		Service: service,
		Logger:  logger.With(zap.String("handler", "bid")),
		Timeout: timeout,
	}
}

// CreateBid обрабатывает запросы для подачи предложения.
func (h *BidHandler) CreateBid(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFrom(r)
	if err != nil {
		writeError(w, h.Logger, err, "")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	var bidReq models.BidRequest
	if err := decodeBody(w, r, &bidReq); err != nil {
		writeError(w, h.Logger, err, "")
		return
	}

	bid, err := h.Service.SubmitBid(ctx, caller, bidReq)
	if err != nil {
		writeError(w, h.Logger, err, "failed to submit bid")
		return
	}
	utils.SendJSON(w, h.Logger, http.StatusCreated, bid)
}

// GetUserBids обрабатывает запросы для получения предложений текущего пользователя.
func (h *BidHandler) GetUserBids(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFrom(r)
	if err != nil {
		writeError(w, h.Logger, err, "")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	page, err := utils.ParsePage(r.URL.Query().Get("limit"), r.URL.Query().Get("page"))
	if err != nil {
		writeError(w, h.Logger, models.BadRequest("%s", err.Error()), "")
		return
	}

	bids, err := h.Service.GetUserBids(ctx, caller, page)
	if err != nil {
		writeError(w, h.Logger, err, "failed to fetch bids")
		return
	}
	utils.SendJSON(w, h.Logger, http.StatusOK, bids)
}

// GetTenderBids обрабатывает запросы для получения предложений по тендеру.
func (h *BidHandler) GetTenderBids(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFrom(r)
	if err != nil {
		writeError(w, h.Logger, err, "")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	q := r.URL.Query()
	page, err := utils.ParsePage(q.Get("limit"), q.Get("page"))
	if err != nil {
		writeError(w, h.Logger, models.BadRequest("%s", err.Error()), "")
		return
	}

	bids, err := h.Service.GetTenderBids(ctx, caller, models.BidQuery{
		TenderID: chi.URLParam(r, "tenderId"),
		Status:   models.BidStatus(q.Get("status")),
		Page:     page,
	})
	if err != nil {
		writeError(w, h.Logger, err, "failed to fetch bids")
		return
	}
	utils.SendJSON(w, h.Logger, http.StatusOK, bids)
}

// GetBid обрабатывает запросы для получения предложения по ID.
func (h *BidHandler) GetBid(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFrom(r)
	if err != nil {
		writeError(w, h.Logger, err, "")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	bid, err := h.Service.GetBid(ctx, caller, chi.URLParam(r, "bidId"))
	if err != nil {
		writeError(w, h.Logger, err, "failed to fetch bid")
		return
	}
	utils.SendJSON(w, h.Logger, http.StatusOK, bid)
}

// UpdateBidStatus обрабатывает решение владельца тендера по предложению.
func (h *BidHandler) UpdateBidStatus(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFrom(r)
	if err != nil {
		writeError(w, h.Logger, err, "")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	var statusReq models.BidStatusRequest
	if err := decodeBody(w, r, &statusReq); err != nil {
		writeError(w, h.Logger, err, "")
		return
	}

	bid, err := h.Service.UpdateBidStatus(ctx, caller, chi.URLParam(r, "bidId"), statusReq.Status)
	if err != nil {
		writeError(w, h.Logger, err, "failed to update bid status")
		return
	}
	utils.SendJSON(w, h.Logger, http.StatusOK, bid)
}

// WithdrawBid обрабатывает отзыв предложения автором.
func (h *BidHandler) WithdrawBid(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFrom(r)
	if err != nil {
		writeError(w, h.Logger, err, "")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	bid, err := h.Service.WithdrawBid(ctx, caller, chi.URLParam(r, "bidId"))
	if err != nil {
		writeError(w, h.Logger, err, "failed to withdraw bid")
		return
	}
	utils.SendJSON(w, h.Logger, http.StatusOK, bid)
}
