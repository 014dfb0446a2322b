package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lib/pq"
)

// DirectoryRepository - справочник пользователей, магазинов и товаров для рассылки уведомлений.
type DirectoryRepository interface {
	GetTenantsByCategories(ctx context.Context, categories []string) ([]string, error)
	GetUsersByTenants(ctx context.Context, tenants []string) ([]string, error)
	GetUsersByRole(ctx context.Context, role string) ([]string, error)
}

// PostgresDirectoryRepository - реализация DirectoryRepository для базы данных.
type PostgresDirectoryRepository struct {
	DB *pgxpool.Pool
}

// NewPostgresDirectoryRepository создаёт новый экземпляр PostgresDirectoryRepository.
func NewPostgresDirectoryRepository(db *pgxpool.Pool) *PostgresDirectoryRepository {
	return &PostgresDirectoryRepository{DB: db}
}

// GetTenantsByCategories возвращает магазины, у которых есть товары в одной из категорий.
func (r *PostgresDirectoryRepository) GetTenantsByCategories(ctx context.Context, categories []string) ([]string, error) {
	if len(categories) == 0 {
		return nil, nil
	}
	return r.collect(ctx, `SELECT DISTINCT tenant_id::text FROM product WHERE category_id::text = ANY($1)`, pq.Array(categories))
}

// GetUsersByTenants возвращает участников перечисленных магазинов.
func (r *PostgresDirectoryRepository) GetUsersByTenants(ctx context.Context, tenants []string) ([]string, error) {
	if len(tenants) == 0 {
		return nil, nil
	}
	return r.collect(ctx, `SELECT DISTINCT user_id::text FROM tenant_member WHERE tenant_id::text = ANY($1)`, pq.Array(tenants))
}

// GetUsersByRole возвращает пользователей с указанной ролью.
func (r *PostgresDirectoryRepository) GetUsersByRole(ctx context.Context, role string) ([]string, error) {
	return r.collect(ctx, `SELECT id::text FROM app_user WHERE $1 = ANY(roles)`, role)
}

func (r *PostgresDirectoryRepository) collect(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := r.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}
