package utils

import (
	"crypto/rand"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"strconv"
	"time"

	"github.com/senyabanana/tender-workflow/internal/models"

	"go.uber.org/zap"
)

// SendErrorResponse отправляет ошибку в формате JSON
func SendErrorResponse(w http.ResponseWriter, logger *zap.Logger, errResp *models.ErrorResponse) {
	SendJSON(w, logger, errResp.StatusCode, errResp)
}

// SendJSON отправляет тело ответа в формате JSON
func SendJSON(w http.ResponseWriter, logger *zap.Logger, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Warn("failed to encode response", zap.Error(err))
	}
}

// ParsePage обрабатывает limit и page
func ParsePage(limitStr, pageStr string) (models.Page, error) {
	page := models.Page{Limit: models.DefaultLimit, Page: 1}

	if limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit <= 0 || limit > models.MaxLimit {
			return page, fmt.Errorf("invalid limit parameter, must be a positive integer [1:%d]", models.MaxLimit)
		}
		page.Limit = limit
	}

	if pageStr != "" {
		p, err := strconv.Atoi(pageStr)
		if err != nil || p < 1 || p > models.MaxPage {
			return page, fmt.Errorf("invalid page parameter, must be a positive integer [1:%d]", models.MaxPage)
		}
		page.Page = p
	}

	return page, nil
}

// Contains - функция для проверки допустимых переходов статусов
func Contains[T comparable](values []T, value T) bool {
	for _, v := range values {
		if v == value {
			return true
		}
	}
	return false
}

const tenderNumberAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// NewTenderNumber генерирует номер тендера вида TND-<8 цифр времени>-<4 символа>.
func NewTenderNumber(now time.Time) (string, error) {
	suffix := make([]byte, 4)
	max := big.NewInt(int64(len(tenderNumberAlphabet)))
	for i := range suffix {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		suffix[i] = tenderNumberAlphabet[n.Int64()]
	}
	return fmt.Sprintf("TND-%08d-%s", now.UnixMilli()%100_000_000, suffix), nil
}
