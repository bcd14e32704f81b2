package storage

import (
	"context"

	"github.com/barberbook/barberbook/internal/model"
	"github.com/barberbook/barberbook/libs/db"
)

type BarberRepository struct {
	pool *db.Pool
}

func NewBarberRepository(pool *db.Pool) *BarberRepository {
	return &BarberRepository{pool: pool}
}

func (r *BarberRepository) GetBarber(ctx context.Context, id int64) (model.Barber, error) {
	var b model.Barber
	err := r.pool.QueryRow(ctx, `
		SELECT id, display_name, email, password_hash, whatsapp_phone, COALESCE(bio, '')
		FROM barbers
		WHERE id = $1
	`, id).Scan(&b.ID, &b.DisplayName, &b.Email, &b.PasswordHash, &b.WhatsAppPhone, &b.Bio)
	if err != nil {
		if isNotFound(err) {
			return model.Barber{}, model.ErrBarberNotFound
		}
		return model.Barber{}, err
	}
	return b, nil
}

// GetByEmail backs panel login. A missing row comes back as
// model.ErrInvalidCredentials so the handler cannot leak which emails exist.
func (r *BarberRepository) GetByEmail(ctx context.Context, email string) (model.Barber, error) {
	var b model.Barber
	err := r.pool.QueryRow(ctx, `
		SELECT id, display_name, email, password_hash, whatsapp_phone, COALESCE(bio, '')
		FROM barbers
		WHERE lower(email) = lower($1)
	`, email).Scan(&b.ID, &b.DisplayName, &b.Email, &b.PasswordHash, &b.WhatsAppPhone, &b.Bio)
	if err != nil {
		if isNotFound(err) {
			return model.Barber{}, model.ErrInvalidCredentials
		}
		return model.Barber{}, err
	}
	return b, nil
}

func (r *BarberRepository) ListBarbers(ctx context.Context) ([]model.Barber, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, display_name, email, password_hash, whatsapp_phone, COALESCE(bio, '')
		FROM barbers
		ORDER BY display_name, id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var barbers []model.Barber
	for rows.Next() {
		var b model.Barber
		if err := rows.Scan(&b.ID, &b.DisplayName, &b.Email, &b.PasswordHash, &b.WhatsAppPhone, &b.Bio); err != nil {
			return nil, err
		}
		barbers = append(barbers, b)
	}
	return barbers, rows.Err()
}
