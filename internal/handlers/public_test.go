package handlers

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/barberbook/barberbook/internal/booking"
	"github.com/barberbook/barberbook/internal/model"
	"github.com/barberbook/barberbook/libs/auth"
	"github.com/barberbook/barberbook/libs/httpx"
)

const testSecret = "test-secret"

type fakeSlotSource struct {
	slots    []string
	dates    []string
	slotsErr error
}

func (f *fakeSlotSource) SlotsForDate(context.Context, int64, int64, time.Time, time.Time) ([]string, error) {
	return f.slots, f.slotsErr
}

func (f *fakeSlotSource) AvailableDates(context.Context, int64, time.Time, int) ([]string, error) {
	return f.dates, nil
}

type fakeBookingWriter struct {
	created   model.Booking
	createErr error
	lastReq   booking.CreateParams
}

func (f *fakeBookingWriter) Create(_ context.Context, p booking.CreateParams) (model.Booking, error) {
	f.lastReq = p
	if f.createErr != nil {
		return model.Booking{}, f.createErr
	}
	b := f.created
	b.ClientName = p.ClientName
	b.StartAt = p.StartAt
	b.EndAt = p.StartAt.Add(30 * time.Minute)
	return b, nil
}

func (f *fakeBookingWriter) View(_ context.Context, id int64) (model.Booking, error) {
	if id != f.created.ID {
		return model.Booking{}, model.ErrBookingNotFound
	}
	return f.created, nil
}

type fakeDirectory struct {
	barbers []model.Barber
}

func (f *fakeDirectory) GetBarber(_ context.Context, id int64) (model.Barber, error) {
	for _, b := range f.barbers {
		if b.ID == id {
			return b, nil
		}
	}
	return model.Barber{}, model.ErrBarberNotFound
}

func (f *fakeDirectory) ListBarbers(context.Context) ([]model.Barber, error) {
	return f.barbers, nil
}

type fakeOfferings struct {
	offerings []model.Offering
}

func (f *fakeOfferings) ListOfferingsForBarber(context.Context, int64) ([]model.Offering, error) {
	return f.offerings, nil
}

func newPublicServer(t *testing.T, slots *fakeSlotSource, writer *fakeBookingWriter, limiter httpx.Middleware) *httptest.Server {
	t.Helper()
	if slots == nil {
		slots = &fakeSlotSource{}
	}
	if writer == nil {
		writer = &fakeBookingWriter{created: model.Booking{ID: 7, BarberID: 1, Status: model.StatusPending, Price: "50.00", StartAt: time.Now(), EndAt: time.Now()}}
	}
	dir := &fakeDirectory{barbers: []model.Barber{{ID: 1, DisplayName: "Rafael", Bio: "fades"}}}
	offerings := &fakeOfferings{offerings: []model.Offering{
		{ID: 100, BarberID: 1, ServiceID: 10, Price: "50.00", Service: model.Service{ID: 10, Name: "Corte", Duration: 90 * time.Minute}},
	}}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	now := func() time.Time { return time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC) }
	h := NewPublicHandler(slots, writer, dir, offerings, logger, time.UTC, testSecret, now)

	mux := http.NewServeMux()
	h.Register(mux, limiter)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func decode(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
}

func TestAvailableSlots(t *testing.T) {
	slots := &fakeSlotSource{slots: []string{"09:00", "10:30"}}
	srv := newPublicServer(t, slots, nil, nil)

	resp, err := http.Get(srv.URL + "/api/get-available-slots/?barber_id=1&service_id=10&date=2026-02-02")
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var body struct {
		AvailableSlots []string `json:"available_slots"`
	}
	decode(t, resp, &body)
	if len(body.AvailableSlots) != 2 || body.AvailableSlots[0] != "09:00" {
		t.Fatalf("available_slots = %v", body.AvailableSlots)
	}
}

func TestAvailableSlots_BadParams(t *testing.T) {
	srv := newPublicServer(t, nil, nil, nil)

	for _, q := range []string{
		"?service_id=10&date=2026-02-02",
		"?barber_id=1&date=2026-02-02",
		"?barber_id=1&service_id=10&date=02-02-2026",
		"?barber_id=abc&service_id=10&date=2026-02-02",
	} {
		resp, err := http.Get(srv.URL + "/api/get-available-slots/" + q)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("query %q: status = %d, want 400", q, resp.StatusCode)
		}
	}
}

func TestAvailableSlots_UnknownOffering(t *testing.T) {
	slots := &fakeSlotSource{slotsErr: model.ErrOfferingNotFound}
	srv := newPublicServer(t, slots, nil, nil)

	resp, err := http.Get(srv.URL + "/api/get-available-slots/?barber_id=1&service_id=99&date=2026-02-02")
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
	var body struct {
		Error string `json:"error"`
	}
	decode(t, resp, &body)
	if body.Error != "invalid service or barber" {
		t.Fatalf("error = %q", body.Error)
	}
}

func TestAvailableDates(t *testing.T) {
	slots := &fakeSlotSource{dates: []string{"2026-02-02", "2026-02-03"}}
	srv := newPublicServer(t, slots, nil, nil)

	resp, err := http.Get(srv.URL + "/api/get-barber-available-dates/1/")
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var body struct {
		AvailableDates []string `json:"available_dates"`
	}
	decode(t, resp, &body)
	if len(body.AvailableDates) != 2 {
		t.Fatalf("available_dates = %v", body.AvailableDates)
	}

	resp, err = http.Get(srv.URL + "/api/get-barber-available-dates/99/")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown barber: status = %d, want 404", resp.StatusCode)
	}
}

func postJSON(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

func TestCreateAppointment(t *testing.T) {
	writer := &fakeBookingWriter{created: model.Booking{ID: 7, BarberID: 1, Status: model.StatusPending, Price: "50.00"}}
	srv := newPublicServer(t, nil, writer, nil)

	resp := postJSON(t, srv.URL+"/api/create-appointment/",
		`{"barber_id":1,"service_id":10,"client_name":"João","client_phone":"3499999999","start_datetime":"2026-02-02T10:00"}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("status = %d, want 201", resp.StatusCode)
	}
	var body struct {
		ID            int64  `json:"id"`
		Status        string `json:"status"`
		StartDatetime string `json:"start_datetime"`
		Time          string `json:"time"`
		ViewToken     string `json:"view_token"`
	}
	decode(t, resp, &body)
	if body.ID != 7 || body.Status != "pending" || body.Time != "10:00" {
		t.Fatalf("unexpected body: %+v", body)
	}
	if body.StartDatetime != "2026-02-02T10:00" {
		t.Fatalf("start_datetime = %q, want the request value echoed", body.StartDatetime)
	}

	claims, err := auth.ParseAndVerifyHS256(body.ViewToken, testSecret)
	if err != nil {
		t.Fatalf("view token does not verify: %v", err)
	}
	if claims.Scope != auth.ScopeBookingView || claims.Sub != 7 {
		t.Fatalf("view token claims = %+v", claims)
	}

	if !writer.lastReq.StartAt.Equal(time.Date(2026, 2, 2, 10, 0, 0, 0, time.UTC)) {
		t.Fatalf("start passed to writer = %v", writer.lastReq.StartAt)
	}
}

func TestCreateAppointment_Validation(t *testing.T) {
	srv := newPublicServer(t, nil, nil, nil)

	cases := []string{
		`{"barber_id":1,"service_id":10,"client_phone":"34","start_datetime":"2026-02-02T10:00"}`,
		`{"barber_id":1,"service_id":10,"client_name":"J","start_datetime":"2026-02-02T10:00"}`,
		`{"barber_id":1,"service_id":10,"client_name":"J","client_phone":"34","start_datetime":"bad"}`,
		`{"barber_id":1,"service_id":10,"client_name":"J","client_phone":"34","start_datetime":"2026-02-02 10:00"}`,
		`{"barber_id":1,"service_id":10,"client_name":"J","client_phone":"34","start_datetime":"2026-02-02T25:99"}`,
		`not json`,
	}
	for _, body := range cases {
		resp := postJSON(t, srv.URL+"/api/create-appointment/", body)
		resp.Body.Close()
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("body %q: status = %d, want 400", body, resp.StatusCode)
		}
	}
}

func TestCreateAppointment_SlotTaken(t *testing.T) {
	writer := &fakeBookingWriter{createErr: model.ErrSlotTaken}
	srv := newPublicServer(t, nil, writer, nil)

	resp := postJSON(t, srv.URL+"/api/create-appointment/",
		`{"barber_id":1,"service_id":10,"client_name":"J","client_phone":"34","start_datetime":"2026-02-02T10:00"}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	var body struct {
		Error string `json:"error"`
	}
	decode(t, resp, &body)
	if body.Error != "this time slot was just taken, choose another" {
		t.Fatalf("error = %q", body.Error)
	}
}

func TestCreateAppointment_RateLimited(t *testing.T) {
	limiter := httpx.NewRateLimiter(5, time.Minute)
	srv := newPublicServer(t, nil, nil, limiter.Middleware())

	payload := `{"barber_id":1,"service_id":10,"client_name":"J","client_phone":"34","start_datetime":"2026-02-02T10:00"}`
	for i := 0; i < 5; i++ {
		resp := postJSON(t, srv.URL+"/api/create-appointment/", payload)
		resp.Body.Close()
		if resp.StatusCode == http.StatusTooManyRequests {
			t.Fatalf("request %d limited too early", i+1)
		}
	}
	resp := postJSON(t, srv.URL+"/api/create-appointment/", payload)
	resp.Body.Close()
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("sixth request: status = %d, want 429", resp.StatusCode)
	}
}

func TestViewAppointment(t *testing.T) {
	writer := &fakeBookingWriter{created: model.Booking{ID: 7, BarberID: 1, Status: model.StatusPending, StartAt: time.Date(2026, 2, 2, 10, 0, 0, 0, time.UTC), EndAt: time.Date(2026, 2, 2, 10, 30, 0, 0, time.UTC)}}
	srv := newPublicServer(t, nil, writer, nil)

	token, err := auth.SignHS256(auth.Claims{Sub: 7, Scope: auth.ScopeBookingView, Exp: time.Now().Add(time.Hour).Unix()}, testSecret)
	if err != nil {
		t.Fatal(err)
	}

	resp, err := http.Get(srv.URL + "/api/appointments/7/?token=" + token)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var body struct {
		ID   int64  `json:"id"`
		Date string `json:"date"`
	}
	decode(t, resp, &body)
	if body.ID != 7 || body.Date != "2026-02-02" {
		t.Fatalf("unexpected body: %+v", body)
	}

	// Token bound to a different booking must not open this one.
	otherToken, _ := auth.SignHS256(auth.Claims{Sub: 8, Scope: auth.ScopeBookingView, Exp: time.Now().Add(time.Hour).Unix()}, testSecret)
	for _, tok := range []string{"", "garbage", otherToken} {
		resp, err := http.Get(srv.URL + "/api/appointments/7/?token=" + tok)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusForbidden {
			t.Fatalf("token %q: status = %d, want 403", tok, resp.StatusCode)
		}
	}
}

func TestListBarberServices(t *testing.T) {
	srv := newPublicServer(t, nil, nil, nil)

	resp, err := http.Get(srv.URL + "/api/barbers/1/services/")
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var body struct {
		Services []struct {
			ServiceID int64  `json:"service_id"`
			Name      string `json:"name"`
			Duration  string `json:"duration"`
			Price     string `json:"price"`
		} `json:"services"`
	}
	decode(t, resp, &body)
	if len(body.Services) != 1 {
		t.Fatalf("services = %+v", body.Services)
	}
	if body.Services[0].Duration != "1h 30min" || body.Services[0].Price != "50.00" {
		t.Fatalf("service = %+v", body.Services[0])
	}
}

func TestListBarbers(t *testing.T) {
	srv := newPublicServer(t, nil, nil, nil)

	resp, err := http.Get(srv.URL + "/api/barbers/")
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var body struct {
		Barbers []struct {
			ID          int64  `json:"id"`
			DisplayName string `json:"display_name"`
		} `json:"barbers"`
	}
	decode(t, resp, &body)
	if len(body.Barbers) != 1 || body.Barbers[0].DisplayName != "Rafael" {
		t.Fatalf("barbers = %+v", body.Barbers)
	}
}
