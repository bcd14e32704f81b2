package storage

import (
	"context"
	"time"

	"github.com/barberbook/barberbook/internal/model"
	"github.com/barberbook/barberbook/libs/db"
)

type CatalogRepository struct {
	pool *db.Pool
}

func NewCatalogRepository(pool *db.Pool) *CatalogRepository {
	return &CatalogRepository{pool: pool}
}

// OfferingFor resolves the (barber, service) pair. The schema enforces at most
// one offering per pair, so a missing row means the barber does not offer the
// service at all.
func (r *CatalogRepository) OfferingFor(ctx context.Context, barberID, serviceID int64) (model.Offering, error) {
	var o model.Offering
	var durationMinutes int
	err := r.pool.QueryRow(ctx, `
		SELECT o.id, o.barber_id, o.service_id, o.price::text,
			s.id, s.name, COALESCE(s.description, ''), s.duration_minutes
		FROM offerings o
		JOIN services s ON s.id = o.service_id
		WHERE o.barber_id = $1 AND o.service_id = $2
	`, barberID, serviceID).Scan(
		&o.ID, &o.BarberID, &o.ServiceID, &o.Price,
		&o.Service.ID, &o.Service.Name, &o.Service.Description, &durationMinutes,
	)
	if err != nil {
		if isNotFound(err) {
			return model.Offering{}, model.ErrOfferingNotFound
		}
		return model.Offering{}, err
	}
	o.Service.Duration = time.Duration(durationMinutes) * time.Minute
	return o, nil
}

// ListOfferingsForBarber returns the barber's catalog ordered by service name,
// the order the booking page presents it in.
func (r *CatalogRepository) ListOfferingsForBarber(ctx context.Context, barberID int64) ([]model.Offering, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT o.id, o.barber_id, o.service_id, o.price::text,
			s.id, s.name, COALESCE(s.description, ''), s.duration_minutes
		FROM offerings o
		JOIN services s ON s.id = o.service_id
		WHERE o.barber_id = $1
		ORDER BY s.name, s.id
	`, barberID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var offerings []model.Offering
	for rows.Next() {
		var o model.Offering
		var durationMinutes int
		if err := rows.Scan(
			&o.ID, &o.BarberID, &o.ServiceID, &o.Price,
			&o.Service.ID, &o.Service.Name, &o.Service.Description, &durationMinutes,
		); err != nil {
			return nil, err
		}
		o.Service.Duration = time.Duration(durationMinutes) * time.Minute
		offerings = append(offerings, o)
	}
	return offerings, rows.Err()
}
