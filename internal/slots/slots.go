// Package slots generates bookable start times for a barber, service and date,
// and answers the rolling-window "which dates are worth offering" query.
package slots

import (
	"context"
	"time"

	"github.com/barberbook/barberbook/internal/calendar"
	"github.com/barberbook/barberbook/internal/model"
)

// Interval is a half-open busy window [Start, End).
type Interval struct {
	Start time.Time
	End   time.Time
}

// WalkBlock returns the start times within [blockStart, blockEnd) where a
// booking of length duration fits without touching any busy interval.
//
// The cursor advances by the service duration itself, not by a smaller step:
// slots are only tried at whole multiples of the duration from the block
// start. A block tail shorter than the duration is never offered, even when a
// cancelled neighbour would have made it reachable. Keep it that way.
func WalkBlock(blockStart, blockEnd time.Time, duration time.Duration, busy []Interval, now time.Time) []time.Time {
	if duration <= 0 || !blockEnd.After(blockStart) {
		return nil
	}

	var starts []time.Time
	for cursor := blockStart; !cursor.Add(duration).After(blockEnd); cursor = cursor.Add(duration) {
		slotEnd := cursor.Add(duration)
		if overlapsAny(cursor, slotEnd, busy) {
			continue
		}
		if cursor.Before(now) {
			continue
		}
		starts = append(starts, cursor)
	}
	return starts
}

func overlapsAny(start, end time.Time, busy []Interval) bool {
	for _, b := range busy {
		if calendar.Overlaps(start, end, b.Start, b.End) {
			return true
		}
	}
	return false
}

// CatalogSource resolves what a barber offers.
type CatalogSource interface {
	// OfferingFor returns model.ErrOfferingNotFound when the barber does not
	// offer the service.
	OfferingFor(ctx context.Context, barberID, serviceID int64) (model.Offering, error)
}

// ScheduleSource is read-only access to a barber's recurring hours and absences.
type ScheduleSource interface {
	WorkBlocksForWeekday(ctx context.Context, barberID int64, weekday calendar.Weekday) ([]model.WorkBlock, error)
	WorkWeekdays(ctx context.Context, barberID int64) ([]calendar.Weekday, error)
	AbsencesOverlapping(ctx context.Context, barberID int64, from, to time.Time) ([]model.AbsenceRange, error)
	IsFullyBlocked(ctx context.Context, barberID int64, date time.Time) (bool, error)
}

// BookingSource exposes the bookings that occupy slots.
type BookingSource interface {
	// ActiveOnDate returns the barber's pending and confirmed bookings whose
	// start falls on the given local date.
	ActiveOnDate(ctx context.Context, barberID int64, date time.Time) ([]model.Booking, error)
}

type Generator struct {
	catalog  CatalogSource
	schedule ScheduleSource
	bookings BookingSource
	loc      *time.Location
}

func NewGenerator(catalog CatalogSource, schedule ScheduleSource, bookings BookingSource, loc *time.Location) *Generator {
	return &Generator{catalog: catalog, schedule: schedule, bookings: bookings, loc: loc}
}

// SlotsForDate produces the offerable HH:MM start times for one calendar date,
// in ascending time order. now is injected so same-day generation filters
// already-passed starts deterministically.
func (g *Generator) SlotsForDate(ctx context.Context, barberID, serviceID int64, date time.Time, now time.Time) ([]string, error) {
	offering, err := g.catalog.OfferingFor(ctx, barberID, serviceID)
	if err != nil {
		return nil, err
	}

	day := calendar.DayStart(date, g.loc)

	// Absence takes absolute precedence over work blocks.
	blocked, err := g.schedule.IsFullyBlocked(ctx, barberID, day)
	if err != nil {
		return nil, err
	}
	if blocked {
		return []string{}, nil
	}

	blocks, err := g.schedule.WorkBlocksForWeekday(ctx, barberID, calendar.WeekdayOf(day))
	if err != nil {
		return nil, err
	}
	if len(blocks) == 0 {
		return []string{}, nil
	}

	existing, err := g.bookings.ActiveOnDate(ctx, barberID, day)
	if err != nil {
		return nil, err
	}
	busy := make([]Interval, 0, len(existing))
	for _, b := range existing {
		busy = append(busy, Interval{Start: b.StartAt, End: b.EndAt})
	}

	var out []string
	var last time.Time
	for _, block := range blocks {
		blockStart := calendar.At(day, block.StartMinute, g.loc)
		blockEnd := calendar.At(day, block.EndMinute, g.loc)
		for _, start := range WalkBlock(blockStart, blockEnd, offering.Service.Duration, busy, now) {
			// Blocks arrive ordered by start time; overlapping or duplicate
			// block configuration must still yield a strictly ascending list.
			if !last.IsZero() && !start.After(last) {
				continue
			}
			last = start
			out = append(out, start.In(g.loc).Format("15:04"))
		}
	}
	if out == nil {
		out = []string{}
	}
	return out, nil
}

// AvailableDates lists the YYYY-MM-DD dates in [today, today+horizonDays]
// where the barber has at least one recurring work block and no covering
// absence. It deliberately ignores remaining capacity: a fully booked day
// still appears, and SlotsForDate returns nothing for it.
func (g *Generator) AvailableDates(ctx context.Context, barberID int64, today time.Time, horizonDays int) ([]string, error) {
	if horizonDays < 0 {
		horizonDays = 0
	}

	weekdays, err := g.schedule.WorkWeekdays(ctx, barberID)
	if err != nil {
		return nil, err
	}
	working := map[calendar.Weekday]bool{}
	for _, wd := range weekdays {
		working[wd] = true
	}

	from := calendar.DayStart(today, g.loc)
	to := from.AddDate(0, 0, horizonDays)

	absences, err := g.schedule.AbsencesOverlapping(ctx, barberID, from, to)
	if err != nil {
		return nil, err
	}
	blockedDates := map[string]bool{}
	for _, a := range absences {
		for d := a.StartDate; !d.After(a.EndDate); d = d.AddDate(0, 0, 1) {
			blockedDates[d.Format("2006-01-02")] = true
		}
	}

	out := []string{}
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		key := d.Format("2006-01-02")
		if working[calendar.WeekdayOf(d)] && !blockedDates[key] {
			out = append(out, key)
		}
	}
	return out, nil
}
