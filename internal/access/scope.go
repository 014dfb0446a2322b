package access

import "github.com/senyabanana/tender-workflow/internal/models"

// TenderScope строит фильтр списка тендеров для пользователя.
// Флаги из запроса могут только сузить выборку, но не расширить её.
func TenderScope(caller models.Caller, query models.TenderQuery) models.TenderFilter {
	filter := models.TenderFilter{
		Status:   query.Status,
		Type:     query.Type,
		TenantID: query.TenantID,
	}

	switch {
	case query.Mine:
		filter.CreatedBy = caller.ID
	case caller.Privileged():
	default:
		filter.VisibleTo = caller.ID
	}
	return filter
}
