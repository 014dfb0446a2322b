package models

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// BidStatus - статус предложения.
type BidStatus string

const (
	SubmittedBid   BidStatus = "submitted"   // Предложение подано
	ShortlistedBid BidStatus = "shortlisted" // Предложение в шорт-листе
	RejectedBid    BidStatus = "rejected"    // Предложение отклонено
	WithdrawnBid   BidStatus = "withdrawn"   // Предложение отозвано автором
)

// DefaultCurrency - валюта предложения по умолчанию.
const DefaultCurrency = "RWF"

// Bid представляет модель предложения.
type Bid struct {
	ID          string              `json:"id"`
	TenderID    string              `json:"tender"`
	SubmittedBy string              `json:"submittedBy"`
	Status      BidStatus           `json:"status"`
	Message     json.RawMessage     `json:"message,omitempty"`
	Documents   []string            `json:"documents"`
	Amount      decimal.NullDecimal `json:"amount"`
	Currency    string              `json:"currency"`
	ValidUntil  *time.Time          `json:"validUntil,omitempty"`
	CreatedAt   time.Time           `json:"createdAt"`
	UpdatedAt   time.Time           `json:"updatedAt"`
}

// BidRequest представляет структуру запроса для подачи предложения.
type BidRequest struct {
	TenderID   string              `json:"tenderId"`
	Message    json.RawMessage     `json:"message"`
	Documents  []string            `json:"documents"`
	Amount     decimal.NullDecimal `json:"amount"`
	Currency   string              `json:"currency"`
	ValidUntil *time.Time          `json:"validUntil"`
}

// BidStatusRequest - тело запроса на смену статуса предложения владельцем тендера.
type BidStatusRequest struct {
	Status BidStatus `json:"status"`
}

// BidQuery - параметры выборки предложений по тендеру.
type BidQuery struct {
	TenderID string
	Status   BidStatus
	Page     Page
}
