package model

import "errors"

// Domain errors shared by the repositories and services. Handlers map these to
// HTTP statuses; the messages are the user-facing validation taxonomy.
var (
	// ErrOfferingNotFound: the barber does not offer the requested service.
	ErrOfferingNotFound = errors.New("invalid service or barber")

	// ErrBarberNotFound: no such barber.
	ErrBarberNotFound = errors.New("barber not found")

	// ErrBookingNotFound: no such booking.
	ErrBookingNotFound = errors.New("booking not found")

	// ErrNotFound: generic missing row (work blocks, absences).
	ErrNotFound = errors.New("not found")

	// ErrTimePassed: the requested start is already in the past.
	ErrTimePassed = errors.New("this time has already passed")

	// ErrBarberAbsent: an absence range fully blocks the requested date.
	ErrBarberAbsent = errors.New("barber unavailable on this date")

	// ErrSlotTaken covers both a stale read and a lost race; callers cannot
	// tell the two apart, which is deliberate.
	ErrSlotTaken = errors.New("this time slot was just taken, choose another")

	// ErrBookingFinal: confirm/cancel attempted on a cancelled or completed booking.
	ErrBookingFinal = errors.New("booking is already finalised")

	// ErrNotOwner: the acting barber does not own the target resource.
	ErrNotOwner = errors.New("you do not own this resource")

	// ErrInvalidCredentials: panel login failure.
	ErrInvalidCredentials = errors.New("invalid email or password")
)
