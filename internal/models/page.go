package models

const (
	DefaultLimit = 10
	MaxLimit     = 50
	MaxPage      = 1_000_000
)

// Page - параметры постраничной выборки.
type Page struct {
	Limit int
	Page  int
}

// Offset возвращает смещение для SQL-запроса.
func (p Page) Offset() int {
	return (p.Page - 1) * p.Limit
}

// PaginatedDocs - страница результатов с метаданными.
type PaginatedDocs[T any] struct {
	Docs        []T  `json:"docs"`
	TotalDocs   int  `json:"totalDocs"`
	Limit       int  `json:"limit"`
	Page        int  `json:"page"`
	TotalPages  int  `json:"totalPages"`
	HasNextPage bool `json:"hasNextPage"`
}

// NewPaginatedDocs собирает страницу по общему количеству документов.
func NewPaginatedDocs[T any](docs []T, total int, page Page) PaginatedDocs[T] {
	if docs == nil {
		docs = []T{}
	}
	totalPages := 0
	if page.Limit > 0 {
		totalPages = (total + page.Limit - 1) / page.Limit
	}
	return PaginatedDocs[T]{
		Docs:        docs,
		TotalDocs:   total,
		Limit:       page.Limit,
		Page:        page.Page,
		TotalPages:  totalPages,
		HasNextPage: page.Page < totalPages,
	}
}
