package ginserver

import (
	"errors"
	"net/http"

	gin "github.com/gin-gonic/gin"

	"staybook/internal/app/reservations"
	"staybook/internal/domain/booking"
	"staybook/internal/domain/property"
	"staybook/internal/domain/shared/daterange"
)

// respondError maps the engine's error taxonomy onto HTTP status codes so
// the outer layer never guesses from message text.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, daterange.ErrInvalidRange),
		errors.Is(err, booking.ErrInvalidOccupancy),
		errors.Is(err, booking.ErrInvalidRating),
		errors.Is(err, booking.ErrNoteTooLong),
		errors.Is(err, booking.ErrGuestRequired):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, booking.ErrNotFound), errors.Is(err, property.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, reservations.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, reservations.ErrNotAvailable),
		errors.Is(err, booking.ErrInvalidTransition),
		errors.Is(err, booking.ErrInvalidState),
		errors.Is(err, booking.ErrAlreadyReviewed):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, booking.ErrNotCancellable):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, reservations.ErrTimeout):
		c.JSON(http.StatusGatewayTimeout, gin.H{"error": err.Error()})
	default:
		// includes booking.ErrCodeGenerationExhausted, which pages on-call
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
