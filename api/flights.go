package api

import (
	"net/http"
	"time"

	"github.com/Domenick1991/tripbooking/internal/service/verification"
	"github.com/gin-gonic/gin"
)

type FlightHandler struct {
	service verification.VerificationUseCase
}

type verifyResponse struct {
	Message               string                      `json:"message"`
	Booking               verification.BookingSummary `json:"booking"`
	FlightVerifications   []verification.Entry        `json:"flightVerifications"`
	BookingReferences     []string                    `json:"bookingReferences"`
	VerificationTimestamp string                      `json:"verificationTimestamp"`
}

func NewFlightHandler(service verification.VerificationUseCase) *FlightHandler {
	return &FlightHandler{service: service}
}

func (h *FlightHandler) Register(router *gin.RouterGroup) {
	router.GET("/verify", h.verify)
}

func (h *FlightHandler) verify(c *gin.Context) {
	bookingID, err := parseBookingID(c.Query("bookingId"))
	if err != nil {
		writeError(c, err)
		return
	}

	report, err := h.service.VerifyBooking(c.Request.Context(), bookingID, callerID(c))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, verifyResponse{
		Message:               report.Message,
		Booking:               report.Booking,
		FlightVerifications:   report.FlightVerifications,
		BookingReferences:     report.BookingReferences,
		VerificationTimestamp: report.VerifiedAt.Format(time.RFC3339),
	})
}
