package api

import (
	"errors"
	"net/http"

	"github.com/Domenick1991/tripbooking/internal/domain"
	"github.com/gin-gonic/gin"
)

// statusFor maps service errors to HTTP status codes. Unknown errors are 500.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrMissingBookingID),
		errors.Is(err, domain.ErrAlreadyCanceled),
		errors.Is(err, domain.ErrNothingToCancel),
		errors.Is(err, domain.ErrNoFlights),
		errors.Is(err, domain.ErrNoReferences):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrCancellationInProgress):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeError(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
		c.JSON(status, gin.H{"error": "internal error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
