// Package aggregate derives a booking's status from its flights and rooms.
// Everything here is pure: callers persist the results.
package aggregate

import (
	"github.com/Domenick1991/tripbooking/internal/domain"
	"github.com/google/uuid"
)

// ActiveCounts returns the number of non-canceled flights and rooms.
func ActiveCounts(b domain.Booking) (flights, rooms int) {
	for _, f := range b.Flights {
		if f.Active() {
			flights++
		}
	}
	for _, r := range b.Rooms {
		if r.Active() {
			rooms++
		}
	}
	return flights, rooms
}

// RecomputeStatus marks the booking canceled once every flight and room is
// canceled. A booking without items keeps its status, and a canceled booking
// never reverts.
func RecomputeStatus(b domain.Booking) domain.Booking {
	if b.Status == domain.BookingStatusCanceled {
		return b
	}
	if len(b.Flights)+len(b.Rooms) == 0 {
		return b
	}
	flights, rooms := ActiveCounts(b)
	if flights == 0 && rooms == 0 {
		b.Status = domain.BookingStatusCanceled
	}
	return b
}

// Consistent reports whether the booking status agrees with its items.
func Consistent(b domain.Booking) bool {
	if len(b.Flights)+len(b.Rooms) == 0 {
		return true
	}
	flights, rooms := ActiveCounts(b)
	allCanceled := flights == 0 && rooms == 0
	return allCanceled == (b.Status == domain.BookingStatusCanceled)
}

// ReferenceIndex maps a booking reference to the ids of its non-canceled
// flight rows. Keys keeps first-seen order so processing is deterministic.
type ReferenceIndex struct {
	Keys    []string
	Flights map[string][]uuid.UUID
}

// IndexReferences groups active flights by booking reference. Flights without
// a reference are not indexed.
func IndexReferences(flights []domain.BookingFlight) ReferenceIndex {
	idx := ReferenceIndex{Flights: make(map[string][]uuid.UUID)}
	for _, f := range flights {
		if !f.Active() || f.BookingReference == "" {
			continue
		}
		if _, ok := idx.Flights[f.BookingReference]; !ok {
			idx.Keys = append(idx.Keys, f.BookingReference)
		}
		idx.Flights[f.BookingReference] = append(idx.Flights[f.BookingReference], f.ID)
	}
	return idx
}

func (idx ReferenceIndex) Has(reference string) bool {
	return len(idx.Flights[reference]) > 0
}

// MarkReferenceCanceled cancels every flight sharing the reference and
// returns the ids that changed.
func MarkReferenceCanceled(b *domain.Booking, reference string) []uuid.UUID {
	var changed []uuid.UUID
	for i := range b.Flights {
		f := &b.Flights[i]
		if f.BookingReference == reference && f.Active() {
			f.Status = domain.BookingStatusCanceled
			changed = append(changed, f.ID)
		}
	}
	return changed
}
