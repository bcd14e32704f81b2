// Package handlers exposes the booking engine over HTTP: the anonymous
// booking API and the authenticated provider panel.
package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/barberbook/barberbook/internal/booking"
	"github.com/barberbook/barberbook/internal/calendar"
	"github.com/barberbook/barberbook/internal/model"
	"github.com/barberbook/barberbook/libs/auth"
)

// AvailabilityHorizonDays is the rolling window the available-dates endpoint
// exposes, today included.
const AvailabilityHorizonDays = 30

const viewTokenTTL = 30 * 24 * time.Hour

type SlotSource interface {
	SlotsForDate(ctx context.Context, barberID, serviceID int64, date, now time.Time) ([]string, error)
	AvailableDates(ctx context.Context, barberID int64, today time.Time, horizonDays int) ([]string, error)
}

type BookingWriter interface {
	Create(ctx context.Context, p booking.CreateParams) (model.Booking, error)
	View(ctx context.Context, bookingID int64) (model.Booking, error)
}

type BarberDirectory interface {
	GetBarber(ctx context.Context, id int64) (model.Barber, error)
	ListBarbers(ctx context.Context) ([]model.Barber, error)
}

type OfferingLister interface {
	ListOfferingsForBarber(ctx context.Context, barberID int64) ([]model.Offering, error)
}

type PublicHandler struct {
	slots    SlotSource
	bookings BookingWriter
	barbers  BarberDirectory
	catalog  OfferingLister
	logger   *slog.Logger
	loc      *time.Location
	secret   string
	now      func() time.Time
}

func NewPublicHandler(slots SlotSource, bookings BookingWriter, barbers BarberDirectory, catalog OfferingLister, logger *slog.Logger, loc *time.Location, secret string, now func() time.Time) *PublicHandler {
	if now == nil {
		now = time.Now
	}
	return &PublicHandler{
		slots:    slots,
		bookings: bookings,
		barbers:  barbers,
		catalog:  catalog,
		logger:   logger,
		loc:      loc,
		secret:   secret,
		now:      now,
	}
}

// AvailableSlots serves GET /api/get-available-slots/?barber_id=&service_id=&date=.
func (h *PublicHandler) AvailableSlots(w http.ResponseWriter, r *http.Request) {
	barberID, err := strconv.ParseInt(r.URL.Query().Get("barber_id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "barber_id must be an integer")
		return
	}
	serviceID, err := strconv.ParseInt(r.URL.Query().Get("service_id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "service_id must be an integer")
		return
	}
	date, err := calendar.ParseDate(r.URL.Query().Get("date"), h.loc)
	if err != nil {
		writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}

	available, err := h.slots.SlotsForDate(r.Context(), barberID, serviceID, date, h.now().In(h.loc))
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"available_slots": available})
}

// AvailableDates serves GET /api/get-barber-available-dates/{barber_id}/.
func (h *PublicHandler) AvailableDates(w http.ResponseWriter, r *http.Request) {
	barberID, err := strconv.ParseInt(r.PathValue("barber_id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "barber_id must be an integer")
		return
	}
	if _, err := h.barbers.GetBarber(r.Context(), barberID); err != nil {
		writeDomainError(w, h.logger, err)
		return
	}

	dates, err := h.slots.AvailableDates(r.Context(), barberID, h.now().In(h.loc), AvailabilityHorizonDays)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"available_dates": dates})
}

type createAppointmentRequest struct {
	BarberID      int64  `json:"barber_id"`
	ServiceID     int64  `json:"service_id"`
	ClientName    string `json:"client_name"`
	ClientPhone   string `json:"client_phone"`
	StartDatetime string `json:"start_datetime"`
}

// startDatetimeFormat is the minute-precision local timestamp the booking API
// accepts and echoes.
const startDatetimeFormat = "2006-01-02T15:04"

type bookingResponse struct {
	ID            int64  `json:"id"`
	BarberID      int64  `json:"barber_id"`
	ClientName    string `json:"client_name"`
	ClientPhone   string `json:"client_phone"`
	StartDatetime string `json:"start_datetime"`
	Date          string `json:"date"`
	Time          string `json:"time"`
	StartsAt      string `json:"starts_at"`
	EndsAt        string `json:"ends_at"`
	Status        string `json:"status"`
	Price         string `json:"price"`
}

func toBookingResponse(b model.Booking, loc *time.Location) bookingResponse {
	start := b.StartAt.In(loc)
	return bookingResponse{
		ID:            b.ID,
		BarberID:      b.BarberID,
		ClientName:    b.ClientName,
		ClientPhone:   b.ClientPhone,
		StartDatetime: start.Format(startDatetimeFormat),
		Date:          start.Format("2006-01-02"),
		Time:          start.Format("15:04"),
		StartsAt:      start.Format(time.RFC3339),
		EndsAt:        b.EndAt.In(loc).Format(time.RFC3339),
		Status:        string(b.Status),
		Price:         b.Price,
	}
}

// CreateAppointment serves POST /api/create-appointment/. On success it
// returns 201 with the booking and a signed view token the anonymous client
// can use to fetch the confirmation later.
func (h *PublicHandler) CreateAppointment(w http.ResponseWriter, r *http.Request) {
	var req createAppointmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.ClientName) == "" {
		writeError(w, http.StatusBadRequest, "client_name is required")
		return
	}
	if strings.TrimSpace(req.ClientPhone) == "" {
		writeError(w, http.StatusBadRequest, "client_phone is required")
		return
	}
	start, err := time.ParseInLocation(startDatetimeFormat, req.StartDatetime, h.loc)
	if err != nil {
		writeError(w, http.StatusBadRequest, "start_datetime must be YYYY-MM-DDTHH:MM")
		return
	}

	created, err := h.bookings.Create(r.Context(), booking.CreateParams{
		BarberID:    req.BarberID,
		ServiceID:   req.ServiceID,
		ClientName:  req.ClientName,
		ClientPhone: req.ClientPhone,
		StartAt:     start,
	})
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}

	token, err := h.viewToken(created.ID)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, struct {
		bookingResponse
		ViewToken string `json:"view_token"`
	}{toBookingResponse(created, h.loc), token})
}

func (h *PublicHandler) viewToken(bookingID int64) (string, error) {
	now := h.now()
	return auth.SignHS256(auth.Claims{
		Sub:   bookingID,
		Scope: auth.ScopeBookingView,
		Exp:   now.Add(viewTokenTTL).Unix(),
		Iat:   now.Unix(),
	}, h.secret)
}

// ViewAppointment serves GET /api/appointments/{id}/?token=. The token is the
// only credential; it must verify and be bound to this exact booking id.
func (h *PublicHandler) ViewAppointment(w http.ResponseWriter, r *http.Request) {
	bookingID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "id must be an integer")
		return
	}
	claims, err := auth.ParseAndVerifyHS256(r.URL.Query().Get("token"), h.secret)
	if err != nil || claims.Scope != auth.ScopeBookingView || claims.Sub != bookingID {
		writeError(w, http.StatusForbidden, "invalid or expired token")
		return
	}

	b, err := h.bookings.View(r.Context(), bookingID)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toBookingResponse(b, h.loc))
}

type barberResponse struct {
	ID          int64  `json:"id"`
	DisplayName string `json:"display_name"`
	Bio         string `json:"bio,omitempty"`
}

// ListBarbers serves GET /api/barbers/.
func (h *PublicHandler) ListBarbers(w http.ResponseWriter, r *http.Request) {
	barbers, err := h.barbers.ListBarbers(r.Context())
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	out := make([]barberResponse, 0, len(barbers))
	for _, b := range barbers {
		out = append(out, barberResponse{ID: b.ID, DisplayName: b.DisplayName, Bio: b.Bio})
	}
	writeJSON(w, http.StatusOK, map[string]any{"barbers": out})
}

type serviceResponse struct {
	ServiceID   int64  `json:"service_id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Duration    string `json:"duration"`
	Price       string `json:"price"`
}

// ListBarberServices serves GET /api/barbers/{barber_id}/services/: what the
// barber offers, with price and friendly duration for the booking page.
func (h *PublicHandler) ListBarberServices(w http.ResponseWriter, r *http.Request) {
	barberID, err := strconv.ParseInt(r.PathValue("barber_id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "barber_id must be an integer")
		return
	}
	if _, err := h.barbers.GetBarber(r.Context(), barberID); err != nil {
		writeDomainError(w, h.logger, err)
		return
	}

	offerings, err := h.catalog.ListOfferingsForBarber(r.Context(), barberID)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	out := make([]serviceResponse, 0, len(offerings))
	for _, o := range offerings {
		out = append(out, serviceResponse{
			ServiceID:   o.ServiceID,
			Name:        o.Service.Name,
			Description: o.Service.Description,
			Duration:    model.FriendlyDuration(o.Service.Duration),
			Price:       o.Price,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"services": out})
}
