package repository

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrNotFound - запись не найдена.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate - нарушено ограничение уникальности.
	ErrDuplicate = errors.New("duplicate record")
	// ErrStaleStatus - запись уже не находится в ожидаемом статусе.
	ErrStaleStatus = errors.New("record status changed concurrently")
)

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func nullableJSON(raw []byte) any {
	if len(raw) == 0 {
		return nil
	}
	return raw
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
