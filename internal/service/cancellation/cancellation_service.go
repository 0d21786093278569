// Package cancellation cancels whole bookings or selected flight references
// and rooms. Flight references are canceled in the external reservation
// system first; failures are collected per item and never abort siblings.
package cancellation

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/Domenick1991/tripbooking/internal/domain"
	"github.com/Domenick1991/tripbooking/internal/repository"
	"github.com/Domenick1991/tripbooking/internal/service/aggregate"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

type CancellationUseCase interface {
	Cancel(ctx context.Context, req CancelRequest) (*CancelResult, error)
}

type ReservationClient interface {
	CancelByReference(ctx context.Context, reference, lastName string) (map[string]any, error)
}

type Locker interface {
	AcquireBookingLock(ctx context.Context, bookingID uuid.UUID, ttl time.Duration) (string, error)
	ReleaseBookingLock(ctx context.Context, bookingID uuid.UUID, token string) error
}

type Notifier interface {
	Notify(ctx context.Context, notification domain.Notification) error
}

type CancelRequest struct {
	BookingID         uuid.UUID
	UserID            uuid.UUID
	CancelAll         bool
	BookingReferences []string
	BookingRooms      []uuid.UUID
}

const (
	ItemBookingReference = "booking_reference"
	ItemBookingRoom      = "booking_room"
	ItemBooking          = "booking"
)

// ItemFailure describes one requested item that could not be canceled.
type ItemFailure struct {
	Kind   string `json:"kind"`
	ID     string `json:"id"`
	Reason string `json:"reason"`
}

type AFSResponse struct {
	BookingReference string         `json:"bookingReference"`
	Response         map[string]any `json:"response"`
}

type CanceledSet struct {
	All               bool        `json:"all"`
	BookingReferences []string    `json:"bookingReferences"`
	BookingFlights    []uuid.UUID `json:"bookingFlights"`
	BookingRooms      []uuid.UUID `json:"bookingRooms"`
}

type ItemSet struct {
	BookingReferences []string    `json:"bookingReferences"`
	BookingRooms      []uuid.UUID `json:"bookingRooms"`
}

type CancelResult struct {
	Message      string
	Booking      *domain.Booking
	AFSResponses []AFSResponse
	Canceled     CanceledSet
	Requested    ItemSet
	// Skipped holds requested items that were already canceled.
	Skipped  ItemSet
	Failures []ItemFailure
	// Warning is set when a cancel-all left flights active.
	Warning string
}

type ServiceOption func(*Service)

func WithLocker(locker Locker, ttl time.Duration) ServiceOption {
	return func(s *Service) {
		s.locker = locker
		if ttl > 0 {
			s.lockTTL = ttl
		}
	}
}

func WithNotifier(notifier Notifier, timeout time.Duration) ServiceOption {
	return func(s *Service) {
		s.notifier = notifier
		if timeout > 0 {
			s.notifyTimeout = timeout
		}
	}
}

func WithMaxConcurrency(n int) ServiceOption {
	return func(s *Service) {
		if n > 0 {
			s.maxConcurrency = n
		}
	}
}

func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

type Service struct {
	bookings       repository.BookingRepository
	users          repository.UserRepository
	afs            ReservationClient
	locker         Locker
	notifier       Notifier
	logger         *slog.Logger
	maxConcurrency int
	lockTTL        time.Duration
	notifyTimeout  time.Duration

	pending sync.WaitGroup
}

func NewService(
	bookings repository.BookingRepository,
	users repository.UserRepository,
	afs ReservationClient,
	opts ...ServiceOption,
) *Service {
	s := &Service{
		bookings:       bookings,
		users:          users,
		afs:            afs,
		logger:         slog.Default(),
		maxConcurrency: 4,
		lockTTL:        time.Minute,
		notifyTimeout:  5 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Wait blocks until notifications dispatched so far have been handed off.
func (s *Service) Wait() {
	s.pending.Wait()
}

func (s *Service) Cancel(ctx context.Context, req CancelRequest) (*CancelResult, error) {
	if req.UserID == uuid.Nil {
		return nil, domain.ErrUnauthenticated
	}
	if req.BookingID == uuid.Nil {
		return nil, domain.ErrMissingBookingID
	}
	refs := normalizeReferences(req.BookingReferences)
	rooms := dedupeIDs(req.BookingRooms)
	if !req.CancelAll && len(refs) == 0 && len(rooms) == 0 {
		return nil, domain.ErrNothingToCancel
	}

	owner, err := s.bookings.GetOwnerID(ctx, req.BookingID)
	if err != nil {
		return nil, err
	}
	if owner != req.UserID {
		return nil, domain.ErrForbidden
	}

	unlock, err := s.lock(ctx, req.BookingID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	booking, err := s.bookings.GetWithItems(ctx, req.BookingID)
	if err != nil {
		return nil, err
	}
	if booking.Canceled() {
		return nil, domain.ErrAlreadyCanceled
	}

	result := &CancelResult{
		Booking:   booking,
		Requested: ItemSet{BookingReferences: refs, BookingRooms: rooms},
		Canceled: CanceledSet{
			BookingReferences: []string{},
			BookingFlights:    []uuid.UUID{},
			BookingRooms:      []uuid.UUID{},
		},
		Skipped:      ItemSet{BookingReferences: []string{}, BookingRooms: []uuid.UUID{}},
		AFSResponses: []AFSResponse{},
		Failures:     []ItemFailure{},
	}

	if req.CancelAll {
		err = s.cancelAll(ctx, booking, result)
	} else {
		err = s.cancelPartial(ctx, booking, refs, rooms, result)
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Service) cancelAll(ctx context.Context, booking *domain.Booking, result *CancelResult) error {
	idx := aggregate.IndexReferences(booking.Flights)
	result.Requested.BookingReferences = idx.Keys

	lastName, err := s.passengerLastName(ctx, booking, len(idx.Keys))
	if err != nil {
		return err
	}
	outcomes := s.cancelReferences(ctx, booking.ID, idx.Keys, lastName)
	s.applyReferenceOutcomes(booking, outcomes, result)

	activeRooms := make([]uuid.UUID, 0, len(booking.Rooms))
	for _, r := range booking.Rooms {
		if r.Active() {
			activeRooms = append(activeRooms, r.ID)
		}
	}
	result.Requested.BookingRooms = activeRooms
	s.cancelRooms(ctx, booking, activeRooms, result)

	// Cancel-all is an explicit intent: the booking is canceled even when
	// some references could not be canceled in the reservation system.
	if err := s.bookings.UpdateStatus(ctx, booking.ID, domain.BookingStatusCanceled); err != nil {
		s.logger.ErrorContext(ctx, "persist booking status", "booking_id", booking.ID, "error", err)
		result.Failures = append(result.Failures, ItemFailure{Kind: ItemBooking, ID: booking.ID.String(), Reason: err.Error()})
	} else {
		booking.Status = domain.BookingStatusCanceled
		result.Canceled.All = true
	}

	if flights, _ := aggregate.ActiveCounts(*booking); flights > 0 && result.Canceled.All {
		result.Warning = fmt.Sprintf("%d flight(s) could not be canceled with the airline and remain active; booking was marked canceled", flights)
		s.logger.WarnContext(ctx, "booking canceled with active flights", "booking_id", booking.ID, "active_flights", flights)
	}

	result.Message = "Booking canceled successfully"
	if len(result.Failures) > 0 {
		result.Message = "Booking canceled with errors"
	}

	s.notify(ctx, booking, domain.NotificationBookingCanceled, "Your booking has been canceled.",
		result.Canceled.BookingReferences, result.Canceled.BookingRooms, true)
	return nil
}

func (s *Service) cancelPartial(ctx context.Context, booking *domain.Booking, refs []string, rooms []uuid.UUID, result *CancelResult) error {
	idx := aggregate.IndexReferences(booking.Flights)
	toCancel := make([]string, 0, len(refs))
	for _, ref := range refs {
		if idx.Has(ref) {
			toCancel = append(toCancel, ref)
			continue
		}
		result.Skipped.BookingReferences = append(result.Skipped.BookingReferences, ref)
	}

	lastName, err := s.passengerLastName(ctx, booking, len(toCancel))
	if err != nil {
		return err
	}
	outcomes := s.cancelReferences(ctx, booking.ID, toCancel, lastName)
	s.applyReferenceOutcomes(booking, outcomes, result)
	s.cancelRooms(ctx, booking, rooms, result)

	canceledAny := len(result.Canceled.BookingReferences)+len(result.Canceled.BookingRooms) > 0
	if canceledAny {
		// Recompute only after every item outcome is known, from the stored
		// rows so concurrent cancellations of sibling items are accounted for.
		fresh, err := s.bookings.SyncStatus(ctx, booking.ID)
		if err != nil {
			s.logger.ErrorContext(ctx, "persist booking status", "booking_id", booking.ID, "error", err)
			result.Failures = append(result.Failures, ItemFailure{Kind: ItemBooking, ID: booking.ID.String(), Reason: err.Error()})
		} else {
			booking = fresh
			result.Booking = fresh
		}
	}

	switch {
	case booking.Canceled():
		result.Message = "Booking canceled successfully"
	case !canceledAny:
		result.Message = "No items were canceled"
	default:
		result.Message = "Booking partially canceled"
	}

	if !canceledAny {
		return nil
	}
	kind, message := domain.NotificationBookingPartiallyCanceled, "Part of your booking has been canceled."
	if booking.Canceled() {
		kind, message = domain.NotificationBookingCanceled, "Your booking has been canceled."
	}
	s.notify(ctx, booking, kind, message,
		result.Canceled.BookingReferences, result.Canceled.BookingRooms, len(result.Canceled.BookingRooms) > 0)
	return nil
}

// referenceOutcome is the result of canceling one booking reference.
type referenceOutcome struct {
	reference string
	payload   map[string]any
	err       error
}

// cancelReferences fans the references out with bounded concurrency. Rows of
// distinct references are disjoint, so the goroutines never touch the same
// flights.
func (s *Service) cancelReferences(ctx context.Context, bookingID uuid.UUID, refs []string, lastName string) []referenceOutcome {
	outcomes := make([]referenceOutcome, len(refs))
	var g errgroup.Group
	g.SetLimit(s.maxConcurrency)
	for i, ref := range refs {
		g.Go(func() error {
			outcomes[i] = s.cancelReference(ctx, bookingID, ref, lastName)
			return nil
		})
	}
	_ = g.Wait()
	return outcomes
}

func (s *Service) cancelReference(ctx context.Context, bookingID uuid.UUID, ref, lastName string) referenceOutcome {
	out := referenceOutcome{reference: ref}

	payload, err := s.afs.CancelByReference(ctx, ref, lastName)
	if err != nil {
		s.logger.WarnContext(ctx, "airline cancellation failed", "booking_id", bookingID, "booking_reference", ref, "error", err)
		out.err = err
		return out
	}
	out.payload = payload

	if _, err := s.bookings.CancelFlightsByReference(ctx, bookingID, ref); err != nil {
		s.logger.ErrorContext(ctx, "airline canceled but local update failed", "booking_id", bookingID, "booking_reference", ref, "error", err)
		out.err = fmt.Errorf("canceled with airline but not recorded: %w", err)
	}
	return out
}

func (s *Service) applyReferenceOutcomes(booking *domain.Booking, outcomes []referenceOutcome, result *CancelResult) {
	for _, o := range outcomes {
		if o.payload != nil {
			result.AFSResponses = append(result.AFSResponses, AFSResponse{BookingReference: o.reference, Response: o.payload})
		}
		if o.err != nil {
			result.Failures = append(result.Failures, ItemFailure{Kind: ItemBookingReference, ID: o.reference, Reason: o.err.Error()})
			continue
		}
		changed := aggregate.MarkReferenceCanceled(booking, o.reference)
		result.Canceled.BookingReferences = append(result.Canceled.BookingReferences, o.reference)
		result.Canceled.BookingFlights = append(result.Canceled.BookingFlights, changed...)
	}
}

func (s *Service) cancelRooms(ctx context.Context, booking *domain.Booking, ids []uuid.UUID, result *CancelResult) {
	for _, id := range ids {
		room, ok := booking.Room(id)
		if !ok {
			s.logger.WarnContext(ctx, "room booking not found", "booking_id", booking.ID, "booking_room_id", id)
			result.Failures = append(result.Failures, ItemFailure{Kind: ItemBookingRoom, ID: id.String(), Reason: domain.ErrNotFound.Error()})
			continue
		}
		if !room.Active() {
			result.Skipped.BookingRooms = append(result.Skipped.BookingRooms, id)
			continue
		}
		if err := s.bookings.CancelRoom(ctx, booking.ID, id); err != nil {
			s.logger.ErrorContext(ctx, "cancel room booking", "booking_id", booking.ID, "booking_room_id", id, "error", err)
			result.Failures = append(result.Failures, ItemFailure{Kind: ItemBookingRoom, ID: id.String(), Reason: err.Error()})
			continue
		}
		room.Status = domain.BookingStatusCanceled
		result.Canceled.BookingRooms = append(result.Canceled.BookingRooms, id)
	}
}

func (s *Service) passengerLastName(ctx context.Context, booking *domain.Booking, refs int) (string, error) {
	if refs == 0 {
		return "", nil
	}
	user, err := s.users.GetByID(ctx, booking.UserID)
	if err != nil {
		return "", fmt.Errorf("cancellation: load passenger: %w", err)
	}
	return user.LastName, nil
}

func (s *Service) lock(ctx context.Context, bookingID uuid.UUID) (func(), error) {
	if s.locker == nil {
		return func() {}, nil
	}
	token, err := s.locker.AcquireBookingLock(ctx, bookingID, s.lockTTL)
	if err != nil {
		return nil, fmt.Errorf("cancellation: %w", err)
	}
	if token == "" {
		return nil, domain.ErrCancellationInProgress
	}
	return func() {
		if err := s.locker.ReleaseBookingLock(context.WithoutCancel(ctx), bookingID, token); err != nil {
			s.logger.WarnContext(ctx, "release booking lock", "booking_id", bookingID, "error", err)
		}
	}, nil
}

// notify sends notifications in the background. Failures are only logged.
func (s *Service) notify(ctx context.Context, booking *domain.Booking, kind domain.NotificationType, message string, refs []string, rooms []uuid.UUID, includeOwners bool) {
	if s.notifier == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	base := domain.Notification{
		Type:              kind,
		BookingID:         booking.ID,
		Message:           message,
		BookingReferences: append([]string(nil), refs...),
		BookingRooms:      append([]uuid.UUID(nil), rooms...),
	}
	userID := booking.UserID

	s.pending.Add(1)
	go func() {
		defer s.pending.Done()

		customer := base
		customer.RecipientID = userID
		customer.Role = domain.RecipientCustomer
		s.send(ctx, customer)

		if !includeOwners {
			return
		}
		owners, err := s.bookings.HotelOwnerIDs(ctx, base.BookingID)
		if err != nil {
			s.logger.WarnContext(ctx, "load hotel owners", "booking_id", base.BookingID, "error", err)
			return
		}
		for _, owner := range owners {
			if owner == userID {
				continue
			}
			n := base
			n.RecipientID = owner
			n.Role = domain.RecipientHotelOwner
			n.Message = "A booking at your hotel has been canceled."
			s.send(ctx, n)
		}
	}()
}

func (s *Service) send(ctx context.Context, n domain.Notification) {
	ctx, cancel := context.WithTimeout(ctx, s.notifyTimeout)
	defer cancel()
	if err := s.notifier.Notify(ctx, n); err != nil {
		s.logger.WarnContext(ctx, "notification failed", "booking_id", n.BookingID, "recipient_id", n.RecipientID, "type", n.Type, "error", err)
	}
}

func normalizeReferences(refs []string) []string {
	out := make([]string, 0, len(refs))
	seen := make(map[string]struct{}, len(refs))
	for _, ref := range refs {
		ref = strings.TrimSpace(ref)
		if ref == "" {
			continue
		}
		if _, ok := seen[ref]; ok {
			continue
		}
		seen[ref] = struct{}{}
		out = append(out, ref)
	}
	return out
}

func dedupeIDs(ids []uuid.UUID) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(ids))
	seen := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok || id == uuid.Nil {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

var _ CancellationUseCase = (*Service)(nil)
