// Package booking validates and writes bookings. Creation re-runs the same
// collision logic as slot generation against live state, inside one storage
// transaction, so two concurrent requests for overlapping windows can never
// both succeed.
package booking

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/barberbook/barberbook/internal/calendar"
	"github.com/barberbook/barberbook/internal/model"
	"github.com/barberbook/barberbook/internal/outbox"
)

type CatalogSource interface {
	OfferingFor(ctx context.Context, barberID, serviceID int64) (model.Offering, error)
}

type ScheduleSource interface {
	IsFullyBlocked(ctx context.Context, barberID int64, date time.Time) (bool, error)
}

type BarberSource interface {
	GetBarber(ctx context.Context, id int64) (model.Barber, error)
}

// Repository is the mutable side of the booking store. Create and UpdateStatus
// must write the booking row and the outbox event atomically, and Create must
// translate a storage-level slot conflict into model.ErrSlotTaken. UpdateStatus
// must re-check the stored status under its own lock and return
// model.ErrBookingFinal for a cancelled or completed row; the service's
// pre-check reads without a lock and can lose a race.
type Repository interface {
	ActiveOnDate(ctx context.Context, barberID int64, date time.Time) ([]model.Booking, error)
	Create(ctx context.Context, b model.Booking, evt func(model.Booking) outbox.Event) (model.Booking, error)
	GetBooking(ctx context.Context, id int64) (model.Booking, error)
	UpdateStatus(ctx context.Context, id int64, status model.BookingStatus, evt func(model.Booking) outbox.Event) (model.Booking, error)
	ListUpcoming(ctx context.Context, barberID int64, from time.Time) ([]model.Booking, error)
}

type Service struct {
	catalog  CatalogSource
	schedule ScheduleSource
	barbers  BarberSource
	repo     Repository
	loc      *time.Location
	now      func() time.Time
}

func NewService(catalog CatalogSource, schedule ScheduleSource, barbers BarberSource, repo Repository, loc *time.Location, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{catalog: catalog, schedule: schedule, barbers: barbers, repo: repo, loc: loc, now: now}
}

type CreateParams struct {
	BarberID    int64
	ServiceID   int64
	ClientName  string
	ClientPhone string
	StartAt     time.Time
}

// Create runs the ordered validation gates and persists the booking with
// status pending. The first failing gate wins and nothing is written. The
// booking-created event is written in the same transaction as the row; actual
// notification delivery happens out of band and cannot fail the booking.
func (s *Service) Create(ctx context.Context, p CreateParams) (model.Booking, error) {
	offering, err := s.catalog.OfferingFor(ctx, p.BarberID, p.ServiceID)
	if err != nil {
		return model.Booking{}, err
	}

	start := p.StartAt.In(s.loc)
	end := start.Add(offering.Service.Duration)

	if start.Before(s.now()) {
		return model.Booking{}, model.ErrTimePassed
	}

	day := calendar.DayStart(start, s.loc)
	blocked, err := s.schedule.IsFullyBlocked(ctx, p.BarberID, day)
	if err != nil {
		return model.Booking{}, err
	}
	if blocked {
		return model.Booking{}, model.ErrBarberAbsent
	}

	existing, err := s.repo.ActiveOnDate(ctx, p.BarberID, day)
	if err != nil {
		return model.Booking{}, err
	}
	for _, b := range existing {
		if calendar.Overlaps(start, end, b.StartAt, b.EndAt) {
			return model.Booking{}, model.ErrSlotTaken
		}
	}

	barber, err := s.barbers.GetBarber(ctx, p.BarberID)
	if err != nil {
		return model.Booking{}, err
	}

	offeringID := offering.ID
	booking := model.Booking{
		BarberID:    p.BarberID,
		OfferingID:  &offeringID,
		ClientName:  strings.TrimSpace(p.ClientName),
		ClientPhone: strings.TrimSpace(p.ClientPhone),
		StartAt:     start,
		EndAt:       end,
		Status:      model.StatusPending,
		Price:       offering.Price,
	}

	created, err := s.repo.Create(ctx, booking, func(b model.Booking) outbox.Event {
		return createdEvent(b, barber, offering.Service.Name)
	})
	if err != nil {
		return model.Booking{}, err
	}
	return created, nil
}

// Confirm marks a pending booking confirmed on behalf of the owning barber.
func (s *Service) Confirm(ctx context.Context, barberID, bookingID int64) (model.Booking, error) {
	return s.setStatus(ctx, barberID, bookingID, model.StatusConfirmed)
}

// Cancel cancels a pending or confirmed booking on behalf of the owning barber.
func (s *Service) Cancel(ctx context.Context, barberID, bookingID int64) (model.Booking, error) {
	return s.setStatus(ctx, barberID, bookingID, model.StatusCancelled)
}

func (s *Service) setStatus(ctx context.Context, barberID, bookingID int64, status model.BookingStatus) (model.Booking, error) {
	booking, err := s.repo.GetBooking(ctx, bookingID)
	if err != nil {
		return model.Booking{}, err
	}
	if booking.BarberID != barberID {
		return model.Booking{}, model.ErrNotOwner
	}
	if !booking.Status.Active() {
		return model.Booking{}, model.ErrBookingFinal
	}

	return s.repo.UpdateStatus(ctx, bookingID, status, func(b model.Booking) outbox.Event {
		return statusChangedEvent(b, booking.Status)
	})
}

// Upcoming lists the barber's pending and confirmed bookings from today on.
func (s *Service) Upcoming(ctx context.Context, barberID int64) ([]model.Booking, error) {
	today := calendar.DayStart(s.now().In(s.loc), s.loc)
	return s.repo.ListUpcoming(ctx, barberID, today)
}

// View returns a booking for the anonymous confirmation page. The caller is
// responsible for having verified the view token first.
func (s *Service) View(ctx context.Context, bookingID int64) (model.Booking, error) {
	return s.repo.GetBooking(ctx, bookingID)
}

func createdEvent(b model.Booking, barber model.Barber, serviceName string) outbox.Event {
	start := b.StartAt
	payload, _ := json.Marshal(map[string]any{
		"booking_id":   b.ID,
		"barber_id":    b.BarberID,
		"barber_name":  barber.DisplayName,
		"barber_phone": model.NormalizeWhatsAppPhone(barber.WhatsAppPhone),
		"client_name":  b.ClientName,
		"service_name": serviceName,
		"starts_at":    start.Format(time.RFC3339),
		"message": fmt.Sprintf("New booking! Client: %s. Service: %s | Date: %s at %s.",
			b.ClientName, serviceName, start.Format("02/01"), start.Format("15:04")),
	})
	return outbox.Event{
		AggregateType: "booking",
		AggregateID:   fmt.Sprintf("%d", b.ID),
		EventType:     outbox.EventBookingCreated,
		Payload:       payload,
	}
}

func statusChangedEvent(b model.Booking, previous model.BookingStatus) outbox.Event {
	payload, _ := json.Marshal(map[string]any{
		"booking_id":      b.ID,
		"barber_id":       b.BarberID,
		"client_name":     b.ClientName,
		"previous_status": string(previous),
		"status":          string(b.Status),
		"starts_at":       b.StartAt.Format(time.RFC3339),
	})
	return outbox.Event{
		AggregateType: "booking",
		AggregateID:   fmt.Sprintf("%d", b.ID),
		EventType:     outbox.EventBookingStatusChanged,
		Payload:       payload,
	}
}
