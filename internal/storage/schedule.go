package storage

import (
	"context"
	"time"

	"github.com/barberbook/barberbook/internal/calendar"
	"github.com/barberbook/barberbook/internal/model"
	"github.com/barberbook/barberbook/libs/db"
)

// ScheduleRepository stores recurring work blocks and absence ranges. Absence
// dates live in DATE columns; they are rebased into the shop's zone on the way
// out so range checks against local midnights behave.
type ScheduleRepository struct {
	pool *db.Pool
	loc  *time.Location
}

func NewScheduleRepository(pool *db.Pool, loc *time.Location) *ScheduleRepository {
	return &ScheduleRepository{pool: pool, loc: loc}
}

const dateFormat = "2006-01-02"

func (r *ScheduleRepository) rebaseDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, r.loc)
}

func (r *ScheduleRepository) WorkBlocksForWeekday(ctx context.Context, barberID int64, weekday calendar.Weekday) ([]model.WorkBlock, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, barber_id, weekday, start_minute, end_minute
		FROM work_blocks
		WHERE barber_id = $1 AND weekday = $2
		ORDER BY start_minute
	`, barberID, int(weekday))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanWorkBlocks(rows)
}

func (r *ScheduleRepository) ListWorkBlocks(ctx context.Context, barberID int64) ([]model.WorkBlock, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, barber_id, weekday, start_minute, end_minute
		FROM work_blocks
		WHERE barber_id = $1
		ORDER BY weekday, start_minute
	`, barberID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanWorkBlocks(rows)
}

func scanWorkBlocks(rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}) ([]model.WorkBlock, error) {
	var blocks []model.WorkBlock
	for rows.Next() {
		var b model.WorkBlock
		var weekday, startMinute, endMinute int
		if err := rows.Scan(&b.ID, &b.BarberID, &weekday, &startMinute, &endMinute); err != nil {
			return nil, err
		}
		b.Weekday = calendar.Weekday(weekday)
		b.StartMinute = calendar.MinuteOfDay(startMinute)
		b.EndMinute = calendar.MinuteOfDay(endMinute)
		blocks = append(blocks, b)
	}
	return blocks, rows.Err()
}

func (r *ScheduleRepository) WorkWeekdays(ctx context.Context, barberID int64) ([]calendar.Weekday, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT DISTINCT weekday
		FROM work_blocks
		WHERE barber_id = $1
		ORDER BY weekday
	`, barberID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var weekdays []calendar.Weekday
	for rows.Next() {
		var wd int
		if err := rows.Scan(&wd); err != nil {
			return nil, err
		}
		weekdays = append(weekdays, calendar.Weekday(wd))
	}
	return weekdays, rows.Err()
}

func (r *ScheduleRepository) CreateWorkBlock(ctx context.Context, b model.WorkBlock) (model.WorkBlock, error) {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO work_blocks (barber_id, weekday, start_minute, end_minute)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, b.BarberID, int(b.Weekday), int(b.StartMinute), int(b.EndMinute)).Scan(&b.ID)
	if err != nil {
		return model.WorkBlock{}, err
	}
	return b, nil
}

func (r *ScheduleRepository) GetWorkBlock(ctx context.Context, id int64) (model.WorkBlock, error) {
	var b model.WorkBlock
	var weekday, startMinute, endMinute int
	err := r.pool.QueryRow(ctx, `
		SELECT id, barber_id, weekday, start_minute, end_minute
		FROM work_blocks
		WHERE id = $1
	`, id).Scan(&b.ID, &b.BarberID, &weekday, &startMinute, &endMinute)
	if err != nil {
		if isNotFound(err) {
			return model.WorkBlock{}, model.ErrNotFound
		}
		return model.WorkBlock{}, err
	}
	b.Weekday = calendar.Weekday(weekday)
	b.StartMinute = calendar.MinuteOfDay(startMinute)
	b.EndMinute = calendar.MinuteOfDay(endMinute)
	return b, nil
}

func (r *ScheduleRepository) DeleteWorkBlock(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM work_blocks WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}

func (r *ScheduleRepository) AbsencesOverlapping(ctx context.Context, barberID int64, from, to time.Time) ([]model.AbsenceRange, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, barber_id, start_date, end_date, COALESCE(reason, '')
		FROM absence_ranges
		WHERE barber_id = $1 AND end_date >= $2::date AND start_date <= $3::date
		ORDER BY start_date
	`, barberID, from.Format(dateFormat), to.Format(dateFormat))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return r.scanAbsences(rows)
}

func (r *ScheduleRepository) ListAbsences(ctx context.Context, barberID int64) ([]model.AbsenceRange, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, barber_id, start_date, end_date, COALESCE(reason, '')
		FROM absence_ranges
		WHERE barber_id = $1
		ORDER BY start_date
	`, barberID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return r.scanAbsences(rows)
}

func (r *ScheduleRepository) scanAbsences(rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}) ([]model.AbsenceRange, error) {
	var absences []model.AbsenceRange
	for rows.Next() {
		var a model.AbsenceRange
		var start, end time.Time
		if err := rows.Scan(&a.ID, &a.BarberID, &start, &end, &a.Reason); err != nil {
			return nil, err
		}
		a.StartDate = r.rebaseDate(start)
		a.EndDate = r.rebaseDate(end)
		absences = append(absences, a)
	}
	return absences, rows.Err()
}

// IsFullyBlocked reports whether any absence range covers the given local date.
func (r *ScheduleRepository) IsFullyBlocked(ctx context.Context, barberID int64, date time.Time) (bool, error) {
	var blocked bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM absence_ranges
			WHERE barber_id = $1 AND start_date <= $2::date AND end_date >= $2::date
		)
	`, barberID, date.Format(dateFormat)).Scan(&blocked)
	return blocked, err
}

func (r *ScheduleRepository) CreateAbsence(ctx context.Context, a model.AbsenceRange) (model.AbsenceRange, error) {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO absence_ranges (barber_id, start_date, end_date, reason)
		VALUES ($1, $2::date, $3::date, $4)
		RETURNING id
	`, a.BarberID, a.StartDate.Format(dateFormat), a.EndDate.Format(dateFormat), a.Reason).Scan(&a.ID)
	if err != nil {
		return model.AbsenceRange{}, err
	}
	return a, nil
}

func (r *ScheduleRepository) GetAbsence(ctx context.Context, id int64) (model.AbsenceRange, error) {
	var a model.AbsenceRange
	var start, end time.Time
	err := r.pool.QueryRow(ctx, `
		SELECT id, barber_id, start_date, end_date, COALESCE(reason, '')
		FROM absence_ranges
		WHERE id = $1
	`, id).Scan(&a.ID, &a.BarberID, &start, &end, &a.Reason)
	if err != nil {
		if isNotFound(err) {
			return model.AbsenceRange{}, model.ErrNotFound
		}
		return model.AbsenceRange{}, err
	}
	a.StartDate = r.rebaseDate(start)
	a.EndDate = r.rebaseDate(end)
	return a, nil
}

func (r *ScheduleRepository) DeleteAbsence(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM absence_ranges WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}
