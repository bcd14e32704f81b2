package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/barberbook/barberbook/internal/calendar"
	"github.com/barberbook/barberbook/internal/model"
	"github.com/barberbook/barberbook/libs/auth"
)

const panelTokenTTL = 24 * time.Hour

type CredentialSource interface {
	GetByEmail(ctx context.Context, email string) (model.Barber, error)
}

type ScheduleStore interface {
	ListWorkBlocks(ctx context.Context, barberID int64) ([]model.WorkBlock, error)
	CreateWorkBlock(ctx context.Context, b model.WorkBlock) (model.WorkBlock, error)
	GetWorkBlock(ctx context.Context, id int64) (model.WorkBlock, error)
	DeleteWorkBlock(ctx context.Context, id int64) error
	ListAbsences(ctx context.Context, barberID int64) ([]model.AbsenceRange, error)
	CreateAbsence(ctx context.Context, a model.AbsenceRange) (model.AbsenceRange, error)
	GetAbsence(ctx context.Context, id int64) (model.AbsenceRange, error)
	DeleteAbsence(ctx context.Context, id int64) error
}

type PanelBookings interface {
	Upcoming(ctx context.Context, barberID int64) ([]model.Booking, error)
	Confirm(ctx context.Context, barberID, bookingID int64) (model.Booking, error)
	Cancel(ctx context.Context, barberID, bookingID int64) (model.Booking, error)
}

// PanelHandler is the barber-facing management API. Every route behind it runs
// under RequirePanelAuth; mutations additionally check resource ownership.
type PanelHandler struct {
	credentials CredentialSource
	schedule    ScheduleStore
	bookings    PanelBookings
	logger      *slog.Logger
	loc         *time.Location
	secret      string
	now         func() time.Time
}

func NewPanelHandler(credentials CredentialSource, schedule ScheduleStore, bookings PanelBookings, logger *slog.Logger, loc *time.Location, secret string, now func() time.Time) *PanelHandler {
	if now == nil {
		now = time.Now
	}
	return &PanelHandler{
		credentials: credentials,
		schedule:    schedule,
		bookings:    bookings,
		logger:      logger,
		loc:         loc,
		secret:      secret,
		now:         now,
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// Login serves POST /api/panel/login/. Wrong email and wrong password are
// indistinguishable to the caller.
func (h *PanelHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	barber, err := h.credentials.GetByEmail(r.Context(), req.Email)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(barber.PasswordHash), []byte(req.Password)) != nil {
		writeDomainError(w, h.logger, model.ErrInvalidCredentials)
		return
	}

	now := h.now()
	token, err := auth.SignHS256(auth.Claims{
		Sub:      barber.ID,
		BarberID: barber.ID,
		Scope:    auth.ScopePanel,
		Exp:      now.Add(panelTokenTTL).Unix(),
		Iat:      now.Unix(),
	}, h.secret)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int64(panelTokenTTL.Seconds()),
	})
}

// Appointments serves GET /api/panel/appointments/: the barber's upcoming
// pending and confirmed bookings.
func (h *PanelHandler) Appointments(w http.ResponseWriter, r *http.Request) {
	bookings, err := h.bookings.Upcoming(r.Context(), barberIDFrom(r.Context()))
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	out := make([]bookingResponse, 0, len(bookings))
	for _, b := range bookings {
		out = append(out, toBookingResponse(b, h.loc))
	}
	writeJSON(w, http.StatusOK, map[string]any{"appointments": out})
}

// ConfirmAppointment serves POST /api/panel/appointments/{id}/confirm/.
func (h *PanelHandler) ConfirmAppointment(w http.ResponseWriter, r *http.Request) {
	h.setAppointmentStatus(w, r, h.bookings.Confirm)
}

// CancelAppointment serves POST /api/panel/appointments/{id}/cancel/.
func (h *PanelHandler) CancelAppointment(w http.ResponseWriter, r *http.Request) {
	h.setAppointmentStatus(w, r, h.bookings.Cancel)
}

func (h *PanelHandler) setAppointmentStatus(w http.ResponseWriter, r *http.Request, mutate func(context.Context, int64, int64) (model.Booking, error)) {
	bookingID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "id must be an integer")
		return
	}
	b, err := mutate(r.Context(), barberIDFrom(r.Context()), bookingID)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, toBookingResponse(b, h.loc))
}

type workBlockRequest struct {
	Weekday int    `json:"weekday"`
	Start   string `json:"start"`
	End     string `json:"end"`
}

type workBlockResponse struct {
	ID      int64  `json:"id"`
	Weekday int    `json:"weekday"`
	Start   string `json:"start"`
	End     string `json:"end"`
}

func toWorkBlockResponse(b model.WorkBlock) workBlockResponse {
	return workBlockResponse{
		ID:      b.ID,
		Weekday: int(b.Weekday),
		Start:   b.StartMinute.Clock(),
		End:     b.EndMinute.Clock(),
	}
}

// ListWorkBlocks serves GET /api/panel/work-blocks/.
func (h *PanelHandler) ListWorkBlocks(w http.ResponseWriter, r *http.Request) {
	blocks, err := h.schedule.ListWorkBlocks(r.Context(), barberIDFrom(r.Context()))
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	out := make([]workBlockResponse, 0, len(blocks))
	for _, b := range blocks {
		out = append(out, toWorkBlockResponse(b))
	}
	writeJSON(w, http.StatusOK, map[string]any{"work_blocks": out})
}

// CreateWorkBlock serves POST /api/panel/work-blocks/.
func (h *PanelHandler) CreateWorkBlock(w http.ResponseWriter, r *http.Request) {
	var req workBlockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	start, err := calendar.ParseClock(req.Start)
	if err != nil {
		writeError(w, http.StatusBadRequest, "start must be HH:MM")
		return
	}
	end, err := calendar.ParseClock(req.End)
	if err != nil {
		writeError(w, http.StatusBadRequest, "end must be HH:MM")
		return
	}

	block := model.WorkBlock{
		BarberID:    barberIDFrom(r.Context()),
		Weekday:     calendar.Weekday(req.Weekday),
		StartMinute: start,
		EndMinute:   end,
	}
	if err := block.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	created, err := h.schedule.CreateWorkBlock(r.Context(), block)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, toWorkBlockResponse(created))
}

// DeleteWorkBlock serves DELETE /api/panel/work-blocks/{id}/.
func (h *PanelHandler) DeleteWorkBlock(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "id must be an integer")
		return
	}
	block, err := h.schedule.GetWorkBlock(r.Context(), id)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	if block.BarberID != barberIDFrom(r.Context()) {
		writeDomainError(w, h.logger, model.ErrNotOwner)
		return
	}
	if err := h.schedule.DeleteWorkBlock(r.Context(), id); err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type absenceRequest struct {
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	Reason    string `json:"reason"`
}

type absenceResponse struct {
	ID        int64  `json:"id"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	Reason    string `json:"reason,omitempty"`
}

func toAbsenceResponse(a model.AbsenceRange) absenceResponse {
	return absenceResponse{
		ID:        a.ID,
		StartDate: a.StartDate.Format("2006-01-02"),
		EndDate:   a.EndDate.Format("2006-01-02"),
		Reason:    a.Reason,
	}
}

// ListAbsences serves GET /api/panel/absences/.
func (h *PanelHandler) ListAbsences(w http.ResponseWriter, r *http.Request) {
	absences, err := h.schedule.ListAbsences(r.Context(), barberIDFrom(r.Context()))
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	out := make([]absenceResponse, 0, len(absences))
	for _, a := range absences {
		out = append(out, toAbsenceResponse(a))
	}
	writeJSON(w, http.StatusOK, map[string]any{"absences": out})
}

// CreateAbsence serves POST /api/panel/absences/.
func (h *PanelHandler) CreateAbsence(w http.ResponseWriter, r *http.Request) {
	var req absenceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	start, err := calendar.ParseDate(req.StartDate, h.loc)
	if err != nil {
		writeError(w, http.StatusBadRequest, "start_date must be YYYY-MM-DD")
		return
	}
	end, err := calendar.ParseDate(req.EndDate, h.loc)
	if err != nil {
		writeError(w, http.StatusBadRequest, "end_date must be YYYY-MM-DD")
		return
	}

	absence := model.AbsenceRange{
		BarberID:  barberIDFrom(r.Context()),
		StartDate: start,
		EndDate:   end,
		Reason:    req.Reason,
	}
	today := calendar.DayStart(h.now().In(h.loc), h.loc)
	if err := absence.Validate(today); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	created, err := h.schedule.CreateAbsence(r.Context(), absence)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, toAbsenceResponse(created))
}

// DeleteAbsence serves DELETE /api/panel/absences/{id}/.
func (h *PanelHandler) DeleteAbsence(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "id must be an integer")
		return
	}
	absence, err := h.schedule.GetAbsence(r.Context(), id)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	if absence.BarberID != barberIDFrom(r.Context()) {
		writeDomainError(w, h.logger, model.ErrNotOwner)
		return
	}
	if err := h.schedule.DeleteAbsence(r.Context(), id); err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
