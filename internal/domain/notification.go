package domain

import "github.com/google/uuid"

type NotificationType string

const (
	NotificationBookingCanceled          NotificationType = "booking_canceled"
	NotificationBookingPartiallyCanceled NotificationType = "booking_partially_canceled"
)

type RecipientRole string

const (
	RecipientCustomer   RecipientRole = "customer"
	RecipientHotelOwner RecipientRole = "hotel_owner"
)

// Notification is a push-style message about a booking change.
type Notification struct {
	Type              NotificationType
	BookingID         uuid.UUID
	RecipientID       uuid.UUID
	Role              RecipientRole
	Message           string
	BookingReferences []string
	BookingRooms      []uuid.UUID
}
