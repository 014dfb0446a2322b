package access

import "github.com/senyabanana/tender-workflow/internal/models"

// Action описывает операцию, которую пользователь хочет выполнить над ресурсом.
type Action string

const (
	ViewTender         Action = "tender:view"
	EditTender         Action = "tender:edit"
	ChangeTenderStatus Action = "tender:status"
	CreateForTenant    Action = "tender:create-for-tenant"
	ListBids           Action = "bid:list"
	ViewBid            Action = "bid:view"
	DecideBid          Action = "bid:decide"
	WithdrawBid        Action = "bid:withdraw"
	CloseExpired       Action = "tender:close-expired"
)

// Resource - объект проверки. Для ставок Tender - тендер, к которому относится Bid.
type Resource struct {
	Tender   *models.Tender
	Bid      *models.Bid
	TenantID string
}

// Can решает, может ли caller выполнить action над res.
// Функция чистая: никаких обращений к хранилищу, только данные из аргументов.
func Can(caller models.Caller, action Action, res Resource) bool {
	if caller.ID == "" {
		return false
	}

	switch action {
	case ViewTender:
		if res.Tender == nil {
			return false
		}
		return caller.Privileged() || ownsTender(caller, res.Tender) || res.Tender.Status == models.OpenTender
	case EditTender, ChangeTenderStatus, ListBids, DecideBid:
		if res.Tender == nil {
			return false
		}
		return caller.Privileged() || ownsTender(caller, res.Tender)
	case ViewBid:
		if res.Bid == nil {
			return false
		}
		if caller.Privileged() || res.Bid.SubmittedBy == caller.ID {
			return true
		}
		return res.Tender != nil && ownsTender(caller, res.Tender)
	case WithdrawBid:
		// Отозвать предложение может только его автор, администратор тоже нет.
		return res.Bid != nil && res.Bid.SubmittedBy == caller.ID
	case CreateForTenant:
		return caller.Privileged() || caller.MemberOf(res.TenantID)
	case CloseExpired:
		return caller.Privileged()
	default:
		return false
	}
}

func ownsTender(caller models.Caller, tender *models.Tender) bool {
	return tender.CreatedBy == caller.ID
}
