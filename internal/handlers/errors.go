package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/senyabanana/tender-workflow/internal/models"
	"github.com/senyabanana/tender-workflow/internal/utils"

	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

// writeError отправляет ErrorResponse как есть, остальные ошибки - как 500 с общим текстом.
func writeError(w http.ResponseWriter, logger *zap.Logger, err error, fallback string) {
	var errResp *models.ErrorResponse
	if errors.As(err, &errResp) {
		logger.Info("request rejected", zap.String("kind", string(errResp.Kind)), zap.String("reason", errResp.Message))
		utils.SendErrorResponse(w, logger, errResp)
		return
	}
	logger.Error(fallback, zap.Error(err))
	utils.SendErrorResponse(w, logger, models.NewErrorResponse(http.StatusInternalServerError, fallback))
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return models.BadRequest("invalid request body")
	}
	return nil
}

func callerFrom(r *http.Request) (models.Caller, error) {
	caller, ok := models.CallerFrom(r.Context())
	if !ok || caller.ID == "" {
		return models.Caller{}, models.NewErrorResponse(http.StatusUnauthorized, "authentication required")
	}
	return caller, nil
}
