// Package storage holds the pgx repositories. Each repository owns the SQL
// for one slice of the schema; domain errors come out as model sentinels so
// callers never see driver error codes.
package storage

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// isSlotConflict matches both guards on the bookings table: the unique
// (barber_id, start_at) index (23505) and the tstzrange exclusion constraint
// (23P01). Either one means another active booking got the window first.
func isSlotConflict(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == "23505" || pgErr.Code == "23P01"
}

func isNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
