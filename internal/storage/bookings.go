package storage

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/barberbook/barberbook/internal/model"
	"github.com/barberbook/barberbook/internal/outbox"
	"github.com/barberbook/barberbook/libs/db"
)

// BookingRepository writes booking rows and their outbox events in one
// transaction. It is the only place the database's slot constraints surface,
// and they surface as model.ErrSlotTaken.
type BookingRepository struct {
	pool   *db.Pool
	outbox *outbox.Repository
	loc    *time.Location
}

func NewBookingRepository(pool *db.Pool, ob *outbox.Repository, loc *time.Location) *BookingRepository {
	return &BookingRepository{pool: pool, outbox: ob, loc: loc}
}

const bookingColumns = `
	id, barber_id, offering_id, client_name, client_phone,
	start_at, end_at, status, price::text, created_at`

func (r *BookingRepository) scanBooking(row pgx.Row) (model.Booking, error) {
	var b model.Booking
	var status string
	err := row.Scan(
		&b.ID, &b.BarberID, &b.OfferingID, &b.ClientName, &b.ClientPhone,
		&b.StartAt, &b.EndAt, &status, &b.Price, &b.CreatedAt,
	)
	if err != nil {
		return model.Booking{}, err
	}
	b.Status = model.BookingStatus(status)
	b.StartAt = b.StartAt.In(r.loc)
	b.EndAt = b.EndAt.In(r.loc)
	return b, nil
}

// ActiveOnDate returns the pending and confirmed bookings whose start falls on
// the given local date. The bounds are the local midnight and the next one, so
// the window stays correct across DST changes.
func (r *BookingRepository) ActiveOnDate(ctx context.Context, barberID int64, date time.Time) ([]model.Booking, error) {
	dayStart := date
	dayEnd := date.AddDate(0, 0, 1)
	rows, err := r.pool.Query(ctx, `
		SELECT`+bookingColumns+`
		FROM bookings
		WHERE barber_id = $1
		  AND status IN ('pending', 'confirmed')
		  AND start_at >= $2
		  AND start_at < $3
		ORDER BY start_at
	`, barberID, dayStart, dayEnd)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return r.collectBookings(rows)
}

func (r *BookingRepository) collectBookings(rows pgx.Rows) ([]model.Booking, error) {
	var bookings []model.Booking
	for rows.Next() {
		b, err := r.scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}

// Create inserts the booking and its created event atomically. When another
// transaction already holds an active booking for an overlapping window, the
// unique index or the exclusion constraint rejects the insert and the caller
// gets model.ErrSlotTaken, same as a stale pre-check would have produced.
func (r *BookingRepository) Create(ctx context.Context, b model.Booking, evt func(model.Booking) outbox.Event) (model.Booking, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return model.Booking{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	err = tx.QueryRow(ctx, `
		INSERT INTO bookings (barber_id, offering_id, client_name, client_phone, start_at, end_at, status, price)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at
	`, b.BarberID, b.OfferingID, b.ClientName, b.ClientPhone, b.StartAt, b.EndAt, string(b.Status), b.Price).
		Scan(&b.ID, &b.CreatedAt)
	if err != nil {
		if isSlotConflict(err) {
			return model.Booking{}, model.ErrSlotTaken
		}
		return model.Booking{}, err
	}

	if err := r.outbox.Insert(ctx, tx, evt(b)); err != nil {
		return model.Booking{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return model.Booking{}, err
	}
	return b, nil
}

func (r *BookingRepository) GetBooking(ctx context.Context, id int64) (model.Booking, error) {
	b, err := r.scanBooking(r.pool.QueryRow(ctx, `
		SELECT`+bookingColumns+`
		FROM bookings
		WHERE id = $1
	`, id))
	if err != nil {
		if isNotFound(err) {
			return model.Booking{}, model.ErrBookingNotFound
		}
		return model.Booking{}, err
	}
	return b, nil
}

// UpdateStatus flips the booking's status and writes the status-changed event
// in the same transaction. The row is locked first and its status re-checked
// under the lock: the caller's earlier read may be stale when two panel
// actions race, and a finalised booking must stay finalised.
func (r *BookingRepository) UpdateStatus(ctx context.Context, id int64, status model.BookingStatus, evt func(model.Booking) outbox.Event) (model.Booking, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return model.Booking{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	b, err := r.scanBooking(tx.QueryRow(ctx, `
		SELECT`+bookingColumns+`
		FROM bookings
		WHERE id = $1
		FOR UPDATE
	`, id))
	if err != nil {
		if isNotFound(err) {
			return model.Booking{}, model.ErrBookingNotFound
		}
		return model.Booking{}, err
	}
	if !b.Status.Active() {
		return model.Booking{}, model.ErrBookingFinal
	}

	if _, err := tx.Exec(ctx, `
		UPDATE bookings SET status = $2 WHERE id = $1
	`, id, string(status)); err != nil {
		return model.Booking{}, err
	}
	b.Status = status

	if err := r.outbox.Insert(ctx, tx, evt(b)); err != nil {
		return model.Booking{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return model.Booking{}, err
	}
	return b, nil
}

func (r *BookingRepository) ListUpcoming(ctx context.Context, barberID int64, from time.Time) ([]model.Booking, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT`+bookingColumns+`
		FROM bookings
		WHERE barber_id = $1
		  AND status IN ('pending', 'confirmed')
		  AND start_at >= $2
		ORDER BY start_at
	`, barberID, from)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return r.collectBookings(rows)
}
