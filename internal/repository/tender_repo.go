package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/senyabanana/tender-workflow/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lib/pq"
)

// TenderRepository - интерфейс для работы с тендерами.
type TenderRepository interface {
	CreateTender(ctx context.Context, tender *models.Tender) error
	GetTender(ctx context.Context, tenderId string) (*models.Tender, error)
	ListTenders(ctx context.Context, filter models.TenderFilter, page models.Page) ([]models.Tender, int, error)
	EditTender(ctx context.Context, tenderId string, update models.TenderUpdate) (*models.Tender, error)
	UpdateTenderStatus(ctx context.Context, tenderId string, from, to models.TenderStatus) (*models.Tender, error)
	ListExpiredTenders(ctx context.Context, now time.Time) ([]models.Tender, error)
}

// PostgresTenderRepository - реализация TenderRepository для базы данных.
type PostgresTenderRepository struct {
	DB *pgxpool.Pool
}

// NewPostgresTenderRepository создаёт новый экземпляр PostgresTenderRepository.
func NewPostgresTenderRepository(db *pgxpool.Pool) *PostgresTenderRepository {
	return &PostgresTenderRepository{DB: db}
}

const tenderColumns = `id, tender_number, title, description, type, status, category, response_deadline,
	contact_preference, bid_count, documents, tenant_id, created_by, created_at, updated_at`

func scanTender(row pgx.Row, extra ...any) (*models.Tender, error) {
	var (
		t           models.Tender
		description []byte
	)
	dest := []any{
		&t.ID,
		&t.TenderNumber,
		&t.Title,
		&description,
		&t.Type,
		&t.Status,
		&t.Category,
		&t.ResponseDeadline,
		&t.ContactPreference,
		&t.BidCount,
		&t.Documents,
		&t.TenantID,
		&t.CreatedBy,
		&t.CreatedAt,
		&t.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	t.Description = description
	return &t, nil
}

// CreateTender сохраняет новый тендер.
func (r *PostgresTenderRepository) CreateTender(ctx context.Context, tender *models.Tender) error {
	_, err := r.DB.Exec(ctx, `
		INSERT INTO tender (id, tender_number, title, description, type, status, category, response_deadline,
		                    contact_preference, bid_count, documents, tenant_id, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		tender.ID,
		tender.TenderNumber,
		tender.Title,
		nullableJSON(tender.Description),
		tender.Type,
		tender.Status,
		nonNil(tender.Category),
		tender.ResponseDeadline,
		tender.ContactPreference,
		tender.BidCount,
		nonNil(tender.Documents),
		tender.TenantID,
		tender.CreatedBy,
		tender.CreatedAt,
		tender.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to insert tender: %w", err)
	}
	return nil
}

// GetTender возвращает тендер по ID.
func (r *PostgresTenderRepository) GetTender(ctx context.Context, tenderId string) (*models.Tender, error) {
	row := r.DB.QueryRow(ctx, `SELECT `+tenderColumns+` FROM tender WHERE id = $1`, tenderId)
	return scanTender(row)
}

// ListTenders возвращает страницу тендеров по фильтру и общее количество подходящих записей.
func (r *PostgresTenderRepository) ListTenders(ctx context.Context, filter models.TenderFilter, page models.Page) ([]models.Tender, int, error) {
	query := `SELECT ` + tenderColumns + `, count(*) OVER() FROM tender`
	var filters []string
	var args []interface{}
	argIndex := 1

	if filter.CreatedBy != "" {
		filters = append(filters, fmt.Sprintf("created_by = $%d", argIndex))
		args = append(args, filter.CreatedBy)
		argIndex++
	}
	if filter.VisibleTo != "" {
		filters = append(filters, fmt.Sprintf("(status = 'open' OR created_by = $%d)", argIndex))
		args = append(args, filter.VisibleTo)
		argIndex++
	}
	if filter.Status != "" {
		filters = append(filters, fmt.Sprintf("status = $%d", argIndex))
		args = append(args, filter.Status)
		argIndex++
	}
	if filter.Type != "" {
		filters = append(filters, fmt.Sprintf("type = $%d", argIndex))
		args = append(args, filter.Type)
		argIndex++
	}
	if filter.TenantID != "" {
		filters = append(filters, fmt.Sprintf("tenant_id = $%d", argIndex))
		args = append(args, filter.TenantID)
		argIndex++
	}

	if len(filters) > 0 {
		query += " WHERE " + strings.Join(filters, " AND ")
	}

	query += fmt.Sprintf(" ORDER BY created_at DESC, id LIMIT $%d OFFSET $%d", argIndex, argIndex+1)
	args = append(args, page.Limit, page.Offset())

	rows, err := r.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var (
		tenders []models.Tender
		total   int
	)
	for rows.Next() {
		tender, err := scanTender(rows, &total)
		if err != nil {
			return nil, 0, err
		}
		tenders = append(tenders, *tender)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return tenders, total, nil
}

// EditTender меняет поля тендера, пока он в статусе draft или open.
func (r *PostgresTenderRepository) EditTender(ctx context.Context, tenderId string, update models.TenderUpdate) (*models.Tender, error) {
	var updates []string
	var args []interface{}
	argIndex := 1

	set := func(column string, value any) {
		updates = append(updates, fmt.Sprintf("%s = $%d", column, argIndex))
		args = append(args, value)
		argIndex++
	}

	if update.Title != nil {
		set("title", *update.Title)
	}
	if update.Description != nil {
		set("description", nullableJSON(update.Description))
	}
	if update.Type != nil {
		set("type", *update.Type)
	}
	if update.Category != nil {
		set("category", nonNil(*update.Category))
	}
	if update.ResponseDeadline != nil {
		set("response_deadline", *update.ResponseDeadline)
	}
	if update.ContactPreference != nil {
		set("contact_preference", *update.ContactPreference)
	}
	if update.Documents != nil {
		set("documents", nonNil(*update.Documents))
	}
	set("updated_at", time.Now().UTC())

	query := fmt.Sprintf(`UPDATE tender SET %s WHERE id = $%d AND status = ANY($%d) RETURNING `+tenderColumns,
		strings.Join(updates, ", "), argIndex, argIndex+1)
	args = append(args, tenderId, pq.Array([]string{string(models.DraftTender), string(models.OpenTender)}))

	tender, err := scanTender(r.DB.QueryRow(ctx, query, args...))
	if errors.Is(err, ErrNotFound) {
		return nil, ErrStaleStatus
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update tender: %w", err)
	}
	return tender, nil
}

// UpdateTenderStatus переводит тендер из статуса from в статус to.
// Если тендер уже не в статусе from, возвращается ErrStaleStatus.
func (r *PostgresTenderRepository) UpdateTenderStatus(ctx context.Context, tenderId string, from, to models.TenderStatus) (*models.Tender, error) {
	row := r.DB.QueryRow(ctx, `
		UPDATE tender SET status = $1, updated_at = $2
		WHERE id = $3 AND status = $4
		RETURNING `+tenderColumns,
		to, time.Now().UTC(), tenderId, from)

	tender, err := scanTender(row)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrStaleStatus
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update tender status: %w", err)
	}
	return tender, nil
}

// ListExpiredTenders возвращает открытые тендеры с истёкшим сроком приёма предложений.
func (r *PostgresTenderRepository) ListExpiredTenders(ctx context.Context, now time.Time) ([]models.Tender, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT `+tenderColumns+` FROM tender
		WHERE status = 'open' AND response_deadline IS NOT NULL AND response_deadline <= $1
		ORDER BY response_deadline`, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tenders []models.Tender
	for rows.Next() {
		tender, err := scanTender(rows)
		if err != nil {
			return nil, err
		}
		tenders = append(tenders, *tender)
	}
	return tenders, rows.Err()
}
