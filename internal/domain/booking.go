package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCanceled  BookingStatus = "canceled"
)

// Booking is the aggregate root. Flights and Rooms are loaded alongside it
// by the repository; Status must be consistent with their statuses.
type Booking struct {
	ID            uuid.UUID       `json:"id"`
	UserID        uuid.UUID       `json:"userId"`
	Status        BookingStatus   `json:"status"`
	PaymentStatus string          `json:"paymentStatus"`
	CheckIn       *time.Time      `json:"checkIn,omitempty"`
	CheckOut      *time.Time      `json:"checkOut,omitempty"`
	TotalPrice    decimal.Decimal `json:"totalPrice"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`

	Flights []BookingFlight `json:"bookingFlights"`
	Rooms   []BookingRoom   `json:"bookingRooms"`
}

// BookingFlight is one flight segment. Segments issued together by the
// carrier share a BookingReference and are canceled as a unit.
type BookingFlight struct {
	ID               uuid.UUID     `json:"id"`
	BookingID        uuid.UUID     `json:"bookingId"`
	FlightID         string        `json:"flightId"`
	BookingReference string        `json:"bookingReference,omitempty"`
	Status           BookingStatus `json:"status"`
}

type BookingRoom struct {
	ID        uuid.UUID     `json:"id"`
	BookingID uuid.UUID     `json:"bookingId"`
	RoomID    uuid.UUID     `json:"roomId"`
	Quantity  int           `json:"quantity"`
	Status    BookingStatus `json:"status"`
}

func (f BookingFlight) Active() bool { return f.Status != BookingStatusCanceled }

func (r BookingRoom) Active() bool { return r.Status != BookingStatusCanceled }

func (b *Booking) Canceled() bool { return b.Status == BookingStatusCanceled }

// Room returns the room line-item with the given id.
func (b *Booking) Room(id uuid.UUID) (*BookingRoom, bool) {
	for i := range b.Rooms {
		if b.Rooms[i].ID == id {
			return &b.Rooms[i], true
		}
	}
	return nil, false
}

type User struct {
	ID        uuid.UUID
	FirstName string
	LastName  string
	Email     string
}

// FullName is the passenger name as presented to the airline system.
func (u User) FullName() string {
	switch {
	case u.FirstName == "":
		return u.LastName
	case u.LastName == "":
		return u.FirstName
	default:
		return u.FirstName + " " + u.LastName
	}
}
