package api

import (
	"net/http"
	"strings"

	"github.com/Domenick1991/tripbooking/internal/domain"
	"github.com/Domenick1991/tripbooking/internal/service/cancellation"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type BookingHandler struct {
	service cancellation.CancellationUseCase
}

type cancelBookingRequest struct {
	BookingID               string   `json:"bookingId"`
	CancelAll               bool     `json:"cancelAll"`
	CancelBookingReferences []string `json:"cancelBookingReferences"`
	CancelBookingRooms      []string `json:"cancelBookingRooms"`
}

type cancelBookingResponse struct {
	Message      string                     `json:"message"`
	Booking      *domain.Booking            `json:"booking"`
	AFSResponses []cancellation.AFSResponse `json:"afsResponses"`
	Canceled     cancellation.CanceledSet   `json:"canceled"`
	Requested    cancellation.ItemSet       `json:"requested"`
	Skipped      cancellation.ItemSet       `json:"skipped"`
	Failures     []cancellation.ItemFailure `json:"failures"`
	Warning      string                     `json:"warning,omitempty"`
}

func NewBookingHandler(service cancellation.CancellationUseCase) *BookingHandler {
	return &BookingHandler{service: service}
}

func (h *BookingHandler) Register(router *gin.RouterGroup) {
	router.DELETE("", h.cancel)
}

func (h *BookingHandler) cancel(c *gin.Context) {
	var req cancelBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	bookingID, err := parseBookingID(req.BookingID)
	if err != nil {
		writeError(c, err)
		return
	}
	rooms := make([]uuid.UUID, 0, len(req.CancelBookingRooms))
	for _, raw := range req.CancelBookingRooms {
		id, err := uuid.Parse(strings.TrimSpace(raw))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid booking room id: " + raw})
			return
		}
		rooms = append(rooms, id)
	}

	result, err := h.service.Cancel(c.Request.Context(), cancellation.CancelRequest{
		BookingID:         bookingID,
		UserID:            callerID(c),
		CancelAll:         req.CancelAll,
		BookingReferences: req.CancelBookingReferences,
		BookingRooms:      rooms,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	failures := result.Failures
	if failures == nil {
		failures = []cancellation.ItemFailure{}
	}
	afsResponses := result.AFSResponses
	if afsResponses == nil {
		afsResponses = []cancellation.AFSResponse{}
	}
	c.JSON(http.StatusOK, cancelBookingResponse{
		Message:      result.Message,
		Booking:      result.Booking,
		AFSResponses: afsResponses,
		Canceled:     result.Canceled,
		Requested:    result.Requested,
		Skipped:      result.Skipped,
		Failures:     failures,
		Warning:      result.Warning,
	})
}

// parseBookingID treats an empty id as missing and a malformed one as a bad request.
func parseBookingID(raw string) (uuid.UUID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return uuid.Nil, domain.ErrMissingBookingID
	}
	id, err := uuid.Parse(raw)
	if err != nil || id == uuid.Nil {
		return uuid.Nil, domain.ErrMissingBookingID
	}
	return id, nil
}
