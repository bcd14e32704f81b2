package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/barberbook/barberbook/internal/model"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeDomainError maps domain sentinels to HTTP statuses with their taxonomy
// message. Anything unmapped is logged and returned as an opaque 500.
func writeDomainError(w http.ResponseWriter, logger *slog.Logger, err error) {
	switch {
	case errors.Is(err, model.ErrOfferingNotFound),
		errors.Is(err, model.ErrBarberNotFound),
		errors.Is(err, model.ErrBookingNotFound),
		errors.Is(err, model.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, model.ErrTimePassed),
		errors.Is(err, model.ErrBarberAbsent),
		errors.Is(err, model.ErrSlotTaken),
		errors.Is(err, model.ErrBookingFinal):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, model.ErrNotOwner):
		writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, model.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, err.Error())
	default:
		if logger != nil {
			logger.Error("request failed", "err", err)
		}
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
