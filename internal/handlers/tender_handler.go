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

// TenderHandler - структура для обработки HTTP-запросов по тендерам.
type TenderHandler struct {
	Service *services.TenderService
	Logger  *zap.Logger
	Timeout time.Duration
}

// NewTenderHandler создаёт новый экземпляр TenderHandler.
func NewTenderHandler(service *services.TenderService, logger *zap.Logger, timeout time.Duration) *TenderHandler {
	return &TenderHandler{
		Service: service,
		Logger:  logger.With(zap.String("handler", "tender")),
		Timeout: timeout,
	}
}

// GetTenders обрабатывает запросы для получения списка тендеров.
func (h *TenderHandler) GetTenders(w http.ResponseWriter, r *http.Request) {
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

	query := models.TenderQuery{
		Status:   models.TenderStatus(q.Get("status")),
		Type:     models.TenderType(q.Get("type")),
		TenantID: q.Get("tenantId"),
		Mine:     q.Get("mine") == "true",
		Page:     page,
	}

	tenders, err := h.Service.FetchTenders(ctx, caller, query)
	if err != nil {
		writeError(w, h.Logger, err, "failed to fetch tenders")
		return
	}
	utils.SendJSON(w, h.Logger, http.StatusOK, tenders)
}

// GetTender обрабатывает запросы для получения тендера по ID.
func (h *TenderHandler) GetTender(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFrom(r)
	if err != nil {
		writeError(w, h.Logger, err, "")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	tender, err := h.Service.GetTender(ctx, caller, chi.URLParam(r, "tenderId"))
	if err != nil {
		writeError(w, h.Logger, err, "failed to fetch tender")
		return
	}
	utils.SendJSON(w, h.Logger, http.StatusOK, tender)
}

// CreateTender обрабатывает запросы для создания тендера.
func (h *TenderHandler) CreateTender(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFrom(r)
	if err != nil {
		writeError(w, h.Logger, err, "")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	var tenderReq models.TenderRequest
	if err := decodeBody(w, r, &tenderReq); err != nil {
		writeError(w, h.Logger, err, "")
		return
	}

	tender, err := h.Service.CreateTender(ctx, caller, tenderReq)
	if err != nil {
		writeError(w, h.Logger, err, "failed to create tender")
		return
	}
	utils.SendJSON(w, h.Logger, http.StatusCreated, tender)
}

// EditTender обрабатывает запросы для изменения тендера.
func (h *TenderHandler) EditTender(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFrom(r)
	if err != nil {
		writeError(w, h.Logger, err, "")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	var update models.TenderUpdate
	if err := decodeBody(w, r, &update); err != nil {
		writeError(w, h.Logger, err, "")
		return
	}

	tender, err := h.Service.EditTender(ctx, caller, chi.URLParam(r, "tenderId"), update)
	if err != nil {
		writeError(w, h.Logger, err, "failed to edit tender")
		return
	}
	utils.SendJSON(w, h.Logger, http.StatusOK, tender)
}

// UpdateTenderStatus обрабатывает запросы для изменения статуса тендера.
func (h *TenderHandler) UpdateTenderStatus(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFrom(r)
	if err != nil {
		writeError(w, h.Logger, err, "")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	var statusReq models.TenderStatusRequest
	if err := decodeBody(w, r, &statusReq); err != nil {
		writeError(w, h.Logger, err, "")
		return
	}

	tender, err := h.Service.UpdateTenderStatus(ctx, caller, chi.URLParam(r, "tenderId"), statusReq.Status)
	if err != nil {
		writeError(w, h.Logger, err, "failed to update tender status")
		return
	}
	utils.SendJSON(w, h.Logger, http.StatusOK, tender)
}

// CloseExpired обрабатывает запросы администратора на закрытие просроченных тендеров.
func (h *TenderHandler) CloseExpired(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFrom(r)
	if err != nil {
		writeError(w, h.Logger, err, "")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	tenders, err := h.Service.CloseExpired(ctx, caller)
	if err != nil {
		writeError(w, h.Logger, err, "failed to close expired tenders")
		return
	}
	utils.SendJSON(w, h.Logger, http.StatusOK, map[string]any{"closed": tenders, "count": len(tenders)})
}
