// Package model defines the booking domain entities and the errors the
// repositories and services surface for them.
package model

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/barberbook/barberbook/internal/calendar"
)

// Barber is a service professional with a schedule and an offering catalog.
type Barber struct {
	ID            int64
	DisplayName   string
	Email         string
	PasswordHash  string
	WhatsAppPhone string
	Bio           string
}

// Service is a generic catalog entry. Price lives on the per-barber Offering,
// duration on the service itself.
type Service struct {
	ID          int64
	Name        string
	Description string
	Duration    time.Duration
}

// Offering is a (barber, service) pairing with a price. At most one offering
// exists per pair. Bookings reference offerings, never bare services.
type Offering struct {
	ID        int64
	BarberID  int64
	ServiceID int64
	Price     string
	Service   Service
}

// WorkBlock is a recurring weekly window during which a barber takes bookings.
// Times are minutes since midnight in the configured local zone.
type WorkBlock struct {
	ID          int64
	BarberID    int64
	Weekday     calendar.Weekday
	StartMinute calendar.MinuteOfDay
	EndMinute   calendar.MinuteOfDay
}

func (b WorkBlock) Validate() error {
	if !b.Weekday.Valid() {
		return fmt.Errorf("weekday must be 0 (Monday) through 6 (Sunday), got %d", int(b.Weekday))
	}
	if !b.StartMinute.Valid() || !b.EndMinute.Valid() {
		return errors.New("start and end must be valid clock times")
	}
	if b.EndMinute <= b.StartMinute {
		return errors.New("end time must be after start time")
	}
	return nil
}

// AbsenceRange blocks a barber completely over an inclusive date range.
// StartDate and EndDate are local midnights.
type AbsenceRange struct {
	ID        int64
	BarberID  int64
	StartDate time.Time
	EndDate   time.Time
	Reason    string
}

func (a AbsenceRange) Validate(today time.Time) error {
	if a.EndDate.Before(a.StartDate) {
		return errors.New("end date cannot be before start date")
	}
	if a.StartDate.Before(today) {
		return errors.New("start date cannot be in the past")
	}
	return nil
}

// Covers reports whether date (a local midnight) falls within the inclusive range.
func (a AbsenceRange) Covers(date time.Time) bool {
	return !date.Before(a.StartDate) && !date.After(a.EndDate)
}

type BookingStatus string

const (
	StatusPending   BookingStatus = "pending"
	StatusConfirmed BookingStatus = "confirmed"
	StatusCancelled BookingStatus = "cancelled"
	StatusCompleted BookingStatus = "completed"
)

func (s BookingStatus) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCancelled, StatusCompleted:
		return true
	}
	return false
}

// Active statuses are the ones that occupy a slot. Cancelled and completed
// bookings never constrain new ones.
func (s BookingStatus) Active() bool {
	return s == StatusPending || s == StatusConfirmed
}

// Booking is a confirmed-or-pending reservation of a slot. EndAt is computed
// once at creation from the offering's service duration and stored; it is
// never recomputed. OfferingID is nullable so a booking row survives offering
// deletion for audit.
type Booking struct {
	ID          int64
	BarberID    int64
	OfferingID  *int64
	ClientName  string
	ClientPhone string
	StartAt     time.Time
	EndAt       time.Time
	Status      BookingStatus
	Price       string
	CreatedAt   time.Time
}

// FriendlyDuration renders a duration the way the booking UI shows it:
// "30min", "1h" or "1h 30min".
func FriendlyDuration(d time.Duration) string {
	total := int(d.Minutes())
	if total <= 0 {
		return "0min"
	}
	hours := total / 60
	minutes := total % 60
	var parts []string
	if hours > 0 {
		parts = append(parts, fmt.Sprintf("%dh", hours))
	}
	if minutes > 0 {
		parts = append(parts, fmt.Sprintf("%dmin", minutes))
	}
	return strings.Join(parts, " ")
}
