package domain

import "errors"

// Precondition errors. They abort a request before anything is mutated and
// map to 4xx responses.
var (
	ErrUnauthenticated        = errors.New("unauthenticated")
	ErrMissingBookingID       = errors.New("booking id is required")
	ErrNotFound               = errors.New("not found")
	ErrForbidden              = errors.New("booking belongs to another user")
	ErrAlreadyCanceled        = errors.New("booking is already canceled")
	ErrNothingToCancel        = errors.New("nothing to cancel")
	ErrCancellationInProgress = errors.New("cancellation already in progress")
	ErrNoFlights              = errors.New("booking has no flights")
	ErrNoReferences           = errors.New("booking flights have no booking references")
)

// ErrExternalUnavailable is returned when the reservation system could not be
// reached for any reference of a request.
var ErrExternalUnavailable = errors.New("reservation system unavailable")
