package handlers

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/barberbook/barberbook/internal/calendar"
	"github.com/barberbook/barberbook/internal/model"
	"github.com/barberbook/barberbook/libs/auth"
)

type fakeCredentials struct {
	barber model.Barber
}

func (f *fakeCredentials) GetByEmail(_ context.Context, email string) (model.Barber, error) {
	if !strings.EqualFold(email, f.barber.Email) {
		return model.Barber{}, model.ErrInvalidCredentials
	}
	return f.barber, nil
}

type fakeScheduleStore struct {
	nextID   int64
	blocks   map[int64]model.WorkBlock
	absences map[int64]model.AbsenceRange
}

func newFakeScheduleStore() *fakeScheduleStore {
	return &fakeScheduleStore{nextID: 1, blocks: map[int64]model.WorkBlock{}, absences: map[int64]model.AbsenceRange{}}
}

func (f *fakeScheduleStore) ListWorkBlocks(_ context.Context, barberID int64) ([]model.WorkBlock, error) {
	var out []model.WorkBlock
	for _, b := range f.blocks {
		if b.BarberID == barberID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *fakeScheduleStore) CreateWorkBlock(_ context.Context, b model.WorkBlock) (model.WorkBlock, error) {
	b.ID = f.nextID
	f.nextID++
	f.blocks[b.ID] = b
	return b, nil
}

func (f *fakeScheduleStore) GetWorkBlock(_ context.Context, id int64) (model.WorkBlock, error) {
	b, ok := f.blocks[id]
	if !ok {
		return model.WorkBlock{}, model.ErrNotFound
	}
	return b, nil
}

func (f *fakeScheduleStore) DeleteWorkBlock(_ context.Context, id int64) error {
	if _, ok := f.blocks[id]; !ok {
		return model.ErrNotFound
	}
	delete(f.blocks, id)
	return nil
}

func (f *fakeScheduleStore) ListAbsences(_ context.Context, barberID int64) ([]model.AbsenceRange, error) {
	var out []model.AbsenceRange
	for _, a := range f.absences {
		if a.BarberID == barberID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeScheduleStore) CreateAbsence(_ context.Context, a model.AbsenceRange) (model.AbsenceRange, error) {
	a.ID = f.nextID
	f.nextID++
	f.absences[a.ID] = a
	return a, nil
}

func (f *fakeScheduleStore) GetAbsence(_ context.Context, id int64) (model.AbsenceRange, error) {
	a, ok := f.absences[id]
	if !ok {
		return model.AbsenceRange{}, model.ErrNotFound
	}
	return a, nil
}

func (f *fakeScheduleStore) DeleteAbsence(_ context.Context, id int64) error {
	if _, ok := f.absences[id]; !ok {
		return model.ErrNotFound
	}
	delete(f.absences, id)
	return nil
}

type fakePanelBookings struct {
	bookings map[int64]model.Booking
}

func (f *fakePanelBookings) Upcoming(_ context.Context, barberID int64) ([]model.Booking, error) {
	var out []model.Booking
	for _, b := range f.bookings {
		if b.BarberID == barberID && b.Status.Active() {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *fakePanelBookings) setStatus(barberID, bookingID int64, status model.BookingStatus) (model.Booking, error) {
	b, ok := f.bookings[bookingID]
	if !ok {
		return model.Booking{}, model.ErrBookingNotFound
	}
	if b.BarberID != barberID {
		return model.Booking{}, model.ErrNotOwner
	}
	if !b.Status.Active() {
		return model.Booking{}, model.ErrBookingFinal
	}
	b.Status = status
	f.bookings[bookingID] = b
	return b, nil
}

func (f *fakePanelBookings) Confirm(_ context.Context, barberID, bookingID int64) (model.Booking, error) {
	return f.setStatus(barberID, bookingID, model.StatusConfirmed)
}

func (f *fakePanelBookings) Cancel(_ context.Context, barberID, bookingID int64) (model.Booking, error) {
	return f.setStatus(barberID, bookingID, model.StatusCancelled)
}

func newPanelServer(t *testing.T, bookings *fakePanelBookings) (*httptest.Server, *fakeScheduleStore) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	creds := &fakeCredentials{barber: model.Barber{ID: 1, Email: "rafael@example.com", PasswordHash: string(hash)}}
	schedule := newFakeScheduleStore()
	if bookings == nil {
		bookings = &fakePanelBookings{bookings: map[int64]model.Booking{}}
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	now := func() time.Time { return time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC) }
	h := NewPanelHandler(creds, schedule, bookings, logger, time.UTC, testSecret, now)

	mux := http.NewServeMux()
	h.Register(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, schedule
}

func panelToken(t *testing.T, barberID int64) string {
	t.Helper()
	token, err := auth.SignHS256(auth.Claims{
		Sub: barberID, BarberID: barberID, Scope: auth.ScopePanel,
		Exp: time.Now().Add(time.Hour).Unix(), Iat: time.Now().Unix(),
	}, testSecret)
	if err != nil {
		t.Fatal(err)
	}
	return token
}

func doAuthed(t *testing.T, method, url, token, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

func TestLogin(t *testing.T) {
	srv, _ := newPanelServer(t, nil)

	resp := postJSON(t, srv.URL+"/api/panel/login/", `{"email":"rafael@example.com","password":"s3cret"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var body loginResponse
	decode(t, resp, &body)
	if body.TokenType != "Bearer" || body.AccessToken == "" {
		t.Fatalf("unexpected login response: %+v", body)
	}

	claims, err := auth.ParseAndVerifyHS256(body.AccessToken, testSecret)
	if err != nil {
		t.Fatalf("access token does not verify: %v", err)
	}
	if claims.Scope != auth.ScopePanel || claims.BarberID != 1 {
		t.Fatalf("claims = %+v", claims)
	}
}

func TestLogin_BadCredentials(t *testing.T) {
	srv, _ := newPanelServer(t, nil)

	for _, body := range []string{
		`{"email":"rafael@example.com","password":"wrong"}`,
		`{"email":"nobody@example.com","password":"s3cret"}`,
	} {
		resp := postJSON(t, srv.URL+"/api/panel/login/", body)
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("body %q: status = %d, want 401", body, resp.StatusCode)
		}
		var out struct {
			Error string `json:"error"`
		}
		decode(t, resp, &out)
		if out.Error != "invalid email or password" {
			t.Fatalf("error = %q; wrong email and wrong password must read the same", out.Error)
		}
	}
}

func TestPanelRequiresToken(t *testing.T) {
	srv, _ := newPanelServer(t, nil)

	for _, token := range []string{"", "garbage"} {
		resp := doAuthed(t, http.MethodGet, srv.URL+"/api/panel/appointments/", token, "")
		resp.Body.Close()
		if resp.StatusCode != http.StatusUnauthorized {
			t.Fatalf("token %q: status = %d, want 401", token, resp.StatusCode)
		}
	}

	// A booking view token must not open the panel even though it verifies.
	viewToken, _ := auth.SignHS256(auth.Claims{Sub: 7, Scope: auth.ScopeBookingView, Exp: time.Now().Add(time.Hour).Unix()}, testSecret)
	resp := doAuthed(t, http.MethodGet, srv.URL+"/api/panel/appointments/", viewToken, "")
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("view token: status = %d, want 401", resp.StatusCode)
	}
}

func TestWorkBlockLifecycle(t *testing.T) {
	srv, schedule := newPanelServer(t, nil)
	token := panelToken(t, 1)

	resp := doAuthed(t, http.MethodPost, srv.URL+"/api/panel/work-blocks/", token, `{"weekday":0,"start":"09:00","end":"12:00"}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create: status = %d, want 201", resp.StatusCode)
	}
	var created workBlockResponse
	decode(t, resp, &created)
	if created.Start != "09:00" || created.End != "12:00" {
		t.Fatalf("created = %+v", created)
	}

	stored := schedule.blocks[created.ID]
	if stored.BarberID != 1 || stored.Weekday != calendar.Weekday(0) {
		t.Fatalf("stored block = %+v; owner must come from the token", stored)
	}

	resp = doAuthed(t, http.MethodDelete, srv.URL+"/api/panel/work-blocks/1/", token, "")
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete: status = %d, want 204", resp.StatusCode)
	}
}

func TestWorkBlock_Invalid(t *testing.T) {
	srv, _ := newPanelServer(t, nil)
	token := panelToken(t, 1)

	for _, body := range []string{
		`{"weekday":0,"start":"12:00","end":"09:00"}`,
		`{"weekday":0,"start":"09:00","end":"09:00"}`,
		`{"weekday":7,"start":"09:00","end":"12:00"}`,
		`{"weekday":0,"start":"9am","end":"12:00"}`,
	} {
		resp := doAuthed(t, http.MethodPost, srv.URL+"/api/panel/work-blocks/", token, body)
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("body %q: status = %d, want 400", body, resp.StatusCode)
		}
	}
}

func TestWorkBlock_ForeignDelete(t *testing.T) {
	srv, schedule := newPanelServer(t, nil)
	schedule.blocks[1] = model.WorkBlock{ID: 1, BarberID: 2, Weekday: 0, StartMinute: 540, EndMinute: 720}
	schedule.nextID = 2

	resp := doAuthed(t, http.MethodDelete, srv.URL+"/api/panel/work-blocks/1/", panelToken(t, 1), "")
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", resp.StatusCode)
	}
	if _, ok := schedule.blocks[1]; !ok {
		t.Fatal("foreign block must not be deleted")
	}

	resp = doAuthed(t, http.MethodDelete, srv.URL+"/api/panel/work-blocks/99/", panelToken(t, 1), "")
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("missing block: status = %d, want 404", resp.StatusCode)
	}
}

func TestAbsenceLifecycle(t *testing.T) {
	srv, schedule := newPanelServer(t, nil)
	token := panelToken(t, 1)

	resp := doAuthed(t, http.MethodPost, srv.URL+"/api/panel/absences/", token, `{"start_date":"2026-02-10","end_date":"2026-02-12","reason":"trip"}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create: status = %d, want 201", resp.StatusCode)
	}
	var created absenceResponse
	decode(t, resp, &created)
	if created.StartDate != "2026-02-10" || created.EndDate != "2026-02-12" {
		t.Fatalf("created = %+v", created)
	}
	if schedule.absences[created.ID].BarberID != 1 {
		t.Fatal("owner must come from the token")
	}

	// End before start and past start are both rejected.
	for _, body := range []string{
		`{"start_date":"2026-02-12","end_date":"2026-02-10"}`,
		`{"start_date":"2026-01-20","end_date":"2026-02-10"}`,
	} {
		resp := doAuthed(t, http.MethodPost, srv.URL+"/api/panel/absences/", token, body)
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("body %q: status = %d, want 400", body, resp.StatusCode)
		}
	}

	resp = doAuthed(t, http.MethodDelete, srv.URL+"/api/panel/absences/1/", token, "")
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete: status = %d, want 204", resp.StatusCode)
	}
}

func TestConfirmAndCancelAppointment(t *testing.T) {
	bookings := &fakePanelBookings{bookings: map[int64]model.Booking{
		5: {ID: 5, BarberID: 1, Status: model.StatusPending, StartAt: time.Date(2026, 2, 2, 10, 0, 0, 0, time.UTC), EndAt: time.Date(2026, 2, 2, 10, 30, 0, 0, time.UTC)},
		6: {ID: 6, BarberID: 2, Status: model.StatusPending},
	}}
	srv, _ := newPanelServer(t, bookings)
	token := panelToken(t, 1)

	resp := doAuthed(t, http.MethodPost, srv.URL+"/api/panel/appointments/5/confirm/", token, "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("confirm: status = %d, want 200", resp.StatusCode)
	}
	var body bookingResponse
	decode(t, resp, &body)
	if body.Status != "confirmed" {
		t.Fatalf("status = %q, want confirmed", body.Status)
	}

	resp = doAuthed(t, http.MethodPost, srv.URL+"/api/panel/appointments/6/confirm/", token, "")
	resp.Body.Close()
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("foreign booking: status = %d, want 403", resp.StatusCode)
	}

	resp = doAuthed(t, http.MethodPost, srv.URL+"/api/panel/appointments/5/cancel/", token, "")
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("cancel: status = %d, want 200", resp.StatusCode)
	}

	resp = doAuthed(t, http.MethodPost, srv.URL+"/api/panel/appointments/5/confirm/", token, "")
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("confirm after cancel: status = %d, want 400", resp.StatusCode)
	}

	resp = doAuthed(t, http.MethodPost, srv.URL+"/api/panel/appointments/99/confirm/", token, "")
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("missing booking: status = %d, want 404", resp.StatusCode)
	}
}

func TestPanelAppointments(t *testing.T) {
	bookings := &fakePanelBookings{bookings: map[int64]model.Booking{
		5: {ID: 5, BarberID: 1, Status: model.StatusPending, StartAt: time.Date(2026, 2, 2, 10, 0, 0, 0, time.UTC), EndAt: time.Date(2026, 2, 2, 10, 30, 0, 0, time.UTC)},
	}}
	srv, _ := newPanelServer(t, bookings)

	resp := doAuthed(t, http.MethodGet, srv.URL+"/api/panel/appointments/", panelToken(t, 1), "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var body struct {
		Appointments []bookingResponse `json:"appointments"`
	}
	decode(t, resp, &body)
	if len(body.Appointments) != 1 || body.Appointments[0].ID != 5 {
		t.Fatalf("appointments = %+v", body.Appointments)
	}
}
