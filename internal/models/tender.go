package models

import (
	"encoding/json"
	"time"
)

type (
	TenderType        string // Тип тендера
	TenderStatus      string // Статус тендера
	ContactPreference string // Предпочтительный способ связи
)

const (
	RFQ TenderType = "rfq" // Запрос котировок
	RFP TenderType = "rfp" // Запрос предложений

	DraftTender     TenderStatus = "draft"     // Тендер создан
	OpenTender      TenderStatus = "open"      // Тендер опубликован и принимает предложения
	ClosedTender    TenderStatus = "closed"    // Тендер закрыт
	CancelledTender TenderStatus = "cancelled" // Тендер отменён

	ContactEmail ContactPreference = "email"
	ContactPhone ContactPreference = "phone"
	ContactChat  ContactPreference = "chat"
)

const (
	MinTitleLength = 3
	MaxTitleLength = 200
	MaxDocuments   = 10
)

// Tender представляет модель тендера.
type Tender struct {
	ID                string            `json:"id"`
	TenderNumber      string            `json:"tenderNumber"`
	Title             string            `json:"title"`
	Description       json.RawMessage   `json:"description,omitempty"`
	Type              TenderType        `json:"type"`
	Status            TenderStatus      `json:"status"`
	Category          []string          `json:"category"`
	ResponseDeadline  *time.Time        `json:"responseDeadline,omitempty"`
	ContactPreference ContactPreference `json:"contactPreference"`
	BidCount          int               `json:"bidCount"`
	Documents         []string          `json:"documents"`
	TenantID          *string           `json:"tenant,omitempty"`
	CreatedBy         string            `json:"createdBy"`
	CreatedAt         time.Time         `json:"createdAt"`
	UpdatedAt         time.Time         `json:"updatedAt"`
}

// Editable сообщает, можно ли менять поля тендера в текущем статусе.
func (t *Tender) Editable() bool {
	return t.Status == DraftTender || t.Status == OpenTender
}

// DeadlinePassed сообщает, истёк ли срок приёма предложений к моменту now.
func (t *Tender) DeadlinePassed(now time.Time) bool {
	return t.ResponseDeadline != nil && !now.Before(*t.ResponseDeadline)
}

// TenderRequest представляет структуру запроса для создания тендера.
type TenderRequest struct {
	Title             string            `json:"title"`
	Description       json.RawMessage   `json:"description"`
	Type              TenderType        `json:"type"`
	TenantID          *string           `json:"tenant"`
	Category          []string          `json:"category"`
	ResponseDeadline  *time.Time        `json:"responseDeadline"`
	ContactPreference ContactPreference `json:"contactPreference"`
	Documents         []string          `json:"documents"`
}

// TenderUpdate содержит изменяемые поля тендера; nil означает "не менять".
type TenderUpdate struct {
	Title             *string            `json:"title"`
	Description       json.RawMessage    `json:"description"`
	Type              *TenderType        `json:"type"`
	Category          *[]string          `json:"category"`
	ResponseDeadline  *time.Time         `json:"responseDeadline"`
	ContactPreference *ContactPreference `json:"contactPreference"`
	Documents         *[]string          `json:"documents"`
}

// Empty сообщает, что в запросе нет ни одного поля для изменения.
func (u TenderUpdate) Empty() bool {
	return u.Title == nil && u.Description == nil && u.Type == nil && u.Category == nil &&
		u.ResponseDeadline == nil && u.ContactPreference == nil && u.Documents == nil
}

// TenderStatusRequest - тело запроса на смену статуса тендера.
type TenderStatusRequest struct {
	Status TenderStatus `json:"status"`
}

// TenderQuery - параметры выборки списка тендеров.
type TenderQuery struct {
	Status   TenderStatus
	Type     TenderType
	TenantID string
	Mine     bool
	Page     Page
}

// TenderFilter - предикат выборки тендеров, который строит слой доступа.
// Пустые поля не ограничивают выборку.
type TenderFilter struct {
	CreatedBy string // createdBy == CreatedBy
	VisibleTo string // status == open OR createdBy == VisibleTo
	Status    TenderStatus
	Type      TenderType
	TenantID  string
}
