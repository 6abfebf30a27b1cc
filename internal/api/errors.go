package api

import (
	"errors"
	"net/http"

	"taverna/internal/booking"
	"taverna/internal/chat"
	"taverna/internal/reservations"

	"github.com/gin-gonic/gin"
)

// errorStatus maps domain errors to HTTP status codes
func errorStatus(err error) int {
	var verr *booking.ValidationError
	switch {
	case errors.As(err, &verr),
		errors.Is(err, reservations.ErrMissingField),
		errors.Is(err, reservations.ErrInvalidField),
		errors.Is(err, reservations.ErrInvalidDate),
		errors.Is(err, reservations.ErrInvalidTime),
		errors.Is(err, chat.ErrEmptyMessage):
		return http.StatusBadRequest
	case errors.Is(err, reservations.ErrNotFound),
		errors.Is(err, chat.ErrPlaceholderNotFound):
		return http.StatusNotFound
	case errors.Is(err, reservations.ErrSlotUnavailable),
		errors.Is(err, reservations.ErrReservationCancelled),
		errors.Is(err, booking.ErrInvalidTransition),
		errors.Is(err, booking.ErrFieldNotEditable),
		errors.Is(err, booking.ErrTimesLoading),
		errors.Is(err, booking.ErrSubmitInProgress):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// errorBody renders err, including per-field messages for validation errors
func errorBody(err error) gin.H {
	body := gin.H{"error": err.Error()}
	var verr *booking.ValidationError
	if errors.As(err, &verr) {
		body["fieldErrors"] = verr.Fields
	}
	return body
}

func respondError(c *gin.Context, err error) {
	c.JSON(errorStatus(err), errorBody(err))
}
