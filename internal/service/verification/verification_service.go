// Package verification reconciles stored flights against the external
// reservation system. It only reads and reports; stored statuses are never
// changed here.
package verification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Domenick1991/tripbooking/internal/afs"
	"github.com/Domenick1991/tripbooking/internal/domain"
	"github.com/Domenick1991/tripbooking/internal/repository"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const (
	StatusVerificationFailed = "VERIFICATION_FAILED"
	StatusNoFlightsReturned  = "NO_FLIGHTS_RETURNED"
	StatusNotFound           = "NOT_FOUND"
	StatusMissingReference   = "MISSING_REFERENCE"
)

type VerificationUseCase interface {
	VerifyBooking(ctx context.Context, bookingID, callerID uuid.UUID) (*Report, error)
}

type ReservationClient interface {
	RetrieveByReference(ctx context.Context, reference, lastName string) ([]domain.AFSFlight, error)
}

// Entry is the verification outcome for one stored flight.
type Entry struct {
	BookingFlightID  uuid.UUID            `json:"bookingFlightId"`
	FlightID         string               `json:"flightId"`
	BookingReference string               `json:"bookingReference,omitempty"`
	Verified         bool                 `json:"verified"`
	Status           string               `json:"status"`
	LocalStatus      domain.BookingStatus `json:"localStatus"`
	StatusMismatch   bool                 `json:"statusMismatch"`
	Message          string               `json:"message,omitempty"`
	FlightNumber     string               `json:"flightNumber,omitempty"`
	DepartureTime    string               `json:"departureTime,omitempty"`
	ArrivalTime      string               `json:"arrivalTime,omitempty"`
	Origin           string               `json:"origin,omitempty"`
	Destination      string               `json:"destination,omitempty"`
}

type BookingSummary struct {
	ID            uuid.UUID            `json:"id"`
	Status        domain.BookingStatus `json:"status"`
	PassengerName string               `json:"passengerName"`
}

type Report struct {
	Message             string
	Booking             BookingSummary
	FlightVerifications []Entry
	BookingReferences   []string
	VerifiedAt          time.Time
}

type Service struct {
	bookings       repository.BookingRepository
	users          repository.UserRepository
	afs            ReservationClient
	logger         *slog.Logger
	maxConcurrency int
	now            func() time.Time
}

func NewService(bookings repository.BookingRepository, users repository.UserRepository, afs ReservationClient, logger *slog.Logger, maxConcurrency int) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if maxConcurrency <= 0 {
		maxConcurrency = 4
	}
	return &Service{
		bookings:       bookings,
		users:          users,
		afs:            afs,
		logger:         logger,
		maxConcurrency: maxConcurrency,
		now:            time.Now,
	}
}

type lookup struct {
	flights []domain.AFSFlight
	err     error
}

func (s *Service) VerifyBooking(ctx context.Context, bookingID, callerID uuid.UUID) (*Report, error) {
	if callerID == uuid.Nil {
		return nil, domain.ErrUnauthenticated
	}
	if bookingID == uuid.Nil {
		return nil, domain.ErrMissingBookingID
	}

	owner, err := s.bookings.GetOwnerID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if owner != callerID {
		return nil, domain.ErrForbidden
	}

	booking, err := s.bookings.GetWithItems(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if len(booking.Flights) == 0 {
		return nil, domain.ErrNoFlights
	}
	refs, groups := groupByReference(booking.Flights)
	if len(refs) == 0 {
		return nil, domain.ErrNoReferences
	}

	passenger, err := s.users.GetByID(ctx, booking.UserID)
	if err != nil {
		return nil, fmt.Errorf("verification: load passenger: %w", err)
	}

	lookups := s.retrieve(ctx, refs, passenger.LastName)

	entries := make([]Entry, 0, len(booking.Flights))
	var unavailable []error
	for i, ref := range refs {
		l := lookups[i]
		if l.err != nil && errors.Is(l.err, afs.ErrUnavailable) {
			unavailable = append(unavailable, fmt.Errorf("%s: %w", ref, l.err))
		}
		entries = append(entries, reconcile(groups[ref], l)...)
	}
	if len(unavailable) == len(refs) {
		return nil, fmt.Errorf("%w: %w", domain.ErrExternalUnavailable, errors.Join(unavailable...))
	}

	for _, f := range booking.Flights {
		if f.BookingReference != "" {
			continue
		}
		entries = append(entries, Entry{
			BookingFlightID: f.ID,
			FlightID:        f.FlightID,
			Status:          StatusMissingReference,
			LocalStatus:     f.Status,
			Message:         "flight has no booking reference",
		})
	}

	report := &Report{
		Message: "Flight verification completed",
		Booking: BookingSummary{
			ID:            booking.ID,
			Status:        booking.Status,
			PassengerName: passenger.FullName(),
		},
		FlightVerifications: entries,
		BookingReferences:   refs,
		VerifiedAt:          s.now().UTC(),
	}
	for _, e := range entries {
		if !e.Verified || e.StatusMismatch {
			report.Message = "Flight verification completed with discrepancies"
			break
		}
	}
	return report, nil
}

func (s *Service) retrieve(ctx context.Context, refs []string, lastName string) []lookup {
	lookups := make([]lookup, len(refs))
	var g errgroup.Group
	g.SetLimit(s.maxConcurrency)
	for i, ref := range refs {
		g.Go(func() error {
			flights, err := s.afs.RetrieveByReference(ctx, ref, lastName)
			if err != nil {
				s.logger.WarnContext(ctx, "airline retrieval failed", "booking_reference", ref, "error", err)
			}
			lookups[i] = lookup{flights: flights, err: err}
			return nil
		})
	}
	_ = g.Wait()
	return lookups
}

// reconcile matches the stored flights of one reference against the
// authoritative segments.
func reconcile(local []domain.BookingFlight, l lookup) []Entry {
	entries := make([]Entry, 0, len(local))
	if l.err != nil {
		for _, f := range local {
			e := baseEntry(f)
			e.Status = StatusVerificationFailed
			e.Message = l.err.Error()
			entries = append(entries, e)
		}
		return entries
	}
	if len(l.flights) == 0 {
		for _, f := range local {
			e := baseEntry(f)
			e.Status = StatusNoFlightsReturned
			e.Message = "reservation system returned no flights"
			entries = append(entries, e)
		}
		return entries
	}

	byID := make(map[string]domain.AFSFlight, len(l.flights))
	for _, af := range l.flights {
		byID[af.ID] = af
	}
	for _, f := range local {
		e := baseEntry(f)
		af, ok := byID[f.FlightID]
		if !ok {
			e.Status = StatusNotFound
			e.Message = "flight not found in reservation"
			entries = append(entries, e)
			continue
		}
		e.Verified = true
		e.Status = af.Status
		e.FlightNumber = af.FlightNumber
		e.DepartureTime = af.DepartureTime
		e.ArrivalTime = af.ArrivalTime
		e.Origin = af.Origin
		e.Destination = af.Destination
		e.StatusMismatch = isCanceledStatus(af.Status) != (f.Status == domain.BookingStatusCanceled)
		entries = append(entries, e)
	}
	return entries
}

func baseEntry(f domain.BookingFlight) Entry {
	return Entry{
		BookingFlightID:  f.ID,
		FlightID:         f.FlightID,
		BookingReference: f.BookingReference,
		LocalStatus:      f.Status,
	}
}

func isCanceledStatus(status string) bool {
	switch strings.ToUpper(strings.TrimSpace(status)) {
	case "CANCELED", "CANCELLED":
		return true
	default:
		return false
	}
}

// groupByReference groups every stored flight, canceled ones included, by
// booking reference in first-seen order.
func groupByReference(flights []domain.BookingFlight) ([]string, map[string][]domain.BookingFlight) {
	var refs []string
	groups := make(map[string][]domain.BookingFlight)
	for _, f := range flights {
		if f.BookingReference == "" {
			continue
		}
		if _, ok := groups[f.BookingReference]; !ok {
			refs = append(refs, f.BookingReference)
		}
		groups[f.BookingReference] = append(groups[f.BookingReference], f)
	}
	return refs, groups
}

var _ VerificationUseCase = (*Service)(nil)
