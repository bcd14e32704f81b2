package handlers

import (
	"net/http"

	"github.com/barberbook/barberbook/libs/httpx"
)

// Register mounts the public API. createLimiter, when non-nil, wraps only the
// anonymous booking endpoint.
func (h *PublicHandler) Register(mux *http.ServeMux, createLimiter httpx.Middleware) {
	mux.HandleFunc("GET /api/get-available-slots/{$}", h.AvailableSlots)
	mux.HandleFunc("GET /api/get-barber-available-dates/{barber_id}/{$}", h.AvailableDates)
	mux.HandleFunc("GET /api/appointments/{id}/{$}", h.ViewAppointment)
	mux.HandleFunc("GET /api/barbers/{$}", h.ListBarbers)
	mux.HandleFunc("GET /api/barbers/{barber_id}/services/{$}", h.ListBarberServices)

	var create http.Handler = http.HandlerFunc(h.CreateAppointment)
	if createLimiter != nil {
		create = createLimiter(create)
	}
	mux.Handle("POST /api/create-appointment/{$}", create)
}

// Register mounts the panel API. Everything except login sits behind the
// bearer-token middleware.
func (h *PanelHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/panel/login/{$}", h.Login)

	authed := RequirePanelAuth(h.secret)
	protect := func(f http.HandlerFunc) http.Handler { return authed(f) }

	mux.Handle("GET /api/panel/appointments/{$}", protect(h.Appointments))
	mux.Handle("POST /api/panel/appointments/{id}/confirm/{$}", protect(h.ConfirmAppointment))
	mux.Handle("POST /api/panel/appointments/{id}/cancel/{$}", protect(h.CancelAppointment))
	mux.Handle("GET /api/panel/work-blocks/{$}", protect(h.ListWorkBlocks))
	mux.Handle("POST /api/panel/work-blocks/{$}", protect(h.CreateWorkBlock))
	mux.Handle("DELETE /api/panel/work-blocks/{id}/{$}", protect(h.DeleteWorkBlock))
	mux.Handle("GET /api/panel/absences/{$}", protect(h.ListAbsences))
	mux.Handle("POST /api/panel/absences/{$}", protect(h.CreateAbsence))
	mux.Handle("DELETE /api/panel/absences/{id}/{$}", protect(h.DeleteAbsence))
}
