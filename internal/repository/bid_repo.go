package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/senyabanana/tender-workflow/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// BidRepository - интерфейс для работы с предложениями.
type BidRepository interface {
	CreateBid(ctx context.Context, bid *models.Bid) error
	GetBid(ctx context.Context, bidId string) (*models.Bid, error)
	BidExists(ctx context.Context, tenderId, userId string) (bool, error)
	GetTenderBids(ctx context.Context, query models.BidQuery) ([]models.Bid, int, error)
	GetUserBids(ctx context.Context, userId string, page models.Page) ([]models.Bid, int, error)
	GetTenderBidders(ctx context.Context, tenderId string) ([]string, error)
	UpdateBidStatus(ctx context.Context, bidId string, from, to models.BidStatus) (*models.Bid, error)
}

// PostgresBidRepository - реализация BidRepository для базы данных.
type PostgresBidRepository struct {
	DB *pgxpool.Pool
}

// NewPostgresBidRepository создает новый экземпляр PostgresBidRepository.
func NewPostgresBidRepository(db *pgxpool.Pool) *PostgresBidRepository {
	return &PostgresBidRepository{DB: db}
}

const bidColumns = `id, tender_id, submitted_by, status, message, documents, amount, currency, valid_until, created_at, updated_at`

func scanBid(row pgx.Row, extra ...any) (*models.Bid, error) {
	var (
		b       models.Bid
		message []byte
	)
	dest := []any{
		&b.ID,
		&b.TenderID,
		&b.SubmittedBy,
		&b.Status,
		&message,
		&b.Documents,
		&b.Amount,
		&b.Currency,
		&b.ValidUntil,
		&b.CreatedAt,
		&b.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	b.Message = message
	return &b, nil
}

// CreateBid сохраняет предложение и увеличивает счётчик предложений тендера в одной транзакции.
// Повторное предложение того же автора даёт ErrDuplicate, закрытый тендер - ErrStaleStatus.
func (r *PostgresBidRepository) CreateBid(ctx context.Context, bid *models.Bid) error {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
		INSERT INTO bid (id, tender_id, submitted_by, status, message, documents, amount, currency, valid_until, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		bid.ID,
		bid.TenderID,
		bid.SubmittedBy,
		bid.Status,
		nullableJSON(bid.Message),
		nonNil(bid.Documents),
		bid.Amount,
		bid.Currency,
		bid.ValidUntil,
		bid.CreatedAt,
		bid.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("failed to insert bid: %w", err)
	}

	tag, err := tx.Exec(ctx, `UPDATE tender SET bid_count = bid_count + 1 WHERE id = $1 AND status = 'open'`, bid.TenderID)
	if err != nil {
		return fmt.Errorf("failed to increment bid count: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrStaleStatus
	}

	return tx.Commit(ctx)
}

// GetBid возвращает предложение по ID.
func (r *PostgresBidRepository) GetBid(ctx context.Context, bidId string) (*models.Bid, error) {
	return scanBid(r.DB.QueryRow(ctx, `SELECT `+bidColumns+` FROM bid WHERE id = $1`, bidId))
}

// BidExists проверяет, подавал ли пользователь предложение на тендер.
func (r *PostgresBidRepository) BidExists(ctx context.Context, tenderId, userId string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM bid WHERE tender_id = $1 AND submitted_by = $2)`
	err := r.DB.QueryRow(ctx, query, tenderId, userId).Scan(&exists)
	return exists, err
}

// GetTenderBids возвращает страницу предложений по тендеру.
func (r *PostgresBidRepository) GetTenderBids(ctx context.Context, query models.BidQuery) ([]models.Bid, int, error) {
	sql := `SELECT ` + bidColumns + `, count(*) OVER() FROM bid WHERE tender_id = $1`
	args := []interface{}{query.TenderID}
	if query.Status != "" {
		sql += ` AND status = $2 ORDER BY created_at DESC, id LIMIT $3 OFFSET $4`
		args = append(args, query.Status)
	} else {
		sql += ` ORDER BY created_at DESC, id LIMIT $2 OFFSET $3`
	}
	args = append(args, query.Page.Limit, query.Page.Offset())
	return r.listBids(ctx, sql, args...)
}

// GetUserBids возвращает страницу предложений пользователя по всем тендерам.
func (r *PostgresBidRepository) GetUserBids(ctx context.Context, userId string, page models.Page) ([]models.Bid, int, error) {
	sql := `SELECT ` + bidColumns + `, count(*) OVER() FROM bid WHERE submitted_by = $1
	        ORDER BY created_at DESC, id LIMIT $2 OFFSET $3`
	return r.listBids(ctx, sql, userId, page.Limit, page.Offset())
}

func (r *PostgresBidRepository) listBids(ctx context.Context, sql string, args ...interface{}) ([]models.Bid, int, error) {
	rows, err := r.DB.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var (
		bids  []models.Bid
		total int
	)
	for rows.Next() {
		bid, err := scanBid(rows, &total)
		if err != nil {
			return nil, 0, err
		}
		bids = append(bids, *bid)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return bids, total, nil
}

// GetTenderBidders возвращает авторов неотозванных предложений по тендеру.
func (r *PostgresBidRepository) GetTenderBidders(ctx context.Context, tenderId string) ([]string, error) {
	rows, err := r.DB.Query(ctx, `SELECT DISTINCT submitted_by::text FROM bid WHERE tender_id = $1 AND status <> $2`,
		tenderId, models.WithdrawnBid)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

// UpdateBidStatus переводит предложение из статуса from в статус to.
func (r *PostgresBidRepository) UpdateBidStatus(ctx context.Context, bidId string, from, to models.BidStatus) (*models.Bid, error) {
	row := r.DB.QueryRow(ctx, `
		UPDATE bid SET status = $1, updated_at = $2
		WHERE id = $3 AND status = $4
		RETURNING `+bidColumns,
		to, time.Now().UTC(), bidId, from)

	bid, err := scanBid(row)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrStaleStatus
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update bid status: %w", err)
	}
	return bid, nil
}
