package api

import (
	"errors"
	"net/http"

	"taverna/internal/auth"
	"taverna/internal/booking"

	"github.com/gin-gonic/gin"
)

func (s *SiteAPI) StartBooking(c *gin.Context) {
	guest := auth.GuestID(c)
	id, wf := s.bookings.Start(guest, booking.APIFrom(s.reservations.For(guest)))
	s.monitor.Increment("bookings_started")
	c.JSON(http.StatusCreated, gin.H{"id": id, "state": wf.State()})
}

func (s *SiteAPI) GetBooking(c *gin.Context) {
	wf, ok := s.workflow(c)
	if !ok {
		return
	}
	s.respondBooking(c, wf, nil, http.StatusOK)
}

// UpdateBooking applies field changes. With ?wait=true the response is
// held until any slot query it started has settled.
func (s *SiteAPI) UpdateBooking(c *gin.Context) {
	wf, ok := s.workflow(c)
	if !ok {
		return
	}

	var changes booking.Changes
	if err := c.ShouldBindJSON(&changes); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := wf.Apply(c.Request.Context(), changes)
	s.waitIfAsked(c, wf)
	s.respondBooking(c, wf, err, http.StatusOK)
}

func (s *SiteAPI) NextBookingStep(c *gin.Context) {
	wf, ok := s.workflow(c)
	if !ok {
		return
	}
	err := wf.Next()
	s.metrics.RecordTransition("next", err)
	s.respondBooking(c, wf, err, http.StatusOK)
}

func (s *SiteAPI) PreviousBookingStep(c *gin.Context) {
	wf, ok := s.workflow(c)
	if !ok {
		return
	}
	err := wf.Back(c.Request.Context())
	s.metrics.RecordTransition("back", err)
	s.waitIfAsked(c, wf)
	s.respondBooking(c, wf, err, http.StatusOK)
}

// ConfirmBooking submits the reservation from the review step
func (s *SiteAPI) ConfirmBooking(c *gin.Context) {
	wf, ok := s.workflow(c)
	if !ok {
		return
	}

	_, err := wf.Confirm(c.Request.Context())
	var verr *booking.ValidationError
	if !errors.As(err, &verr) && !errors.Is(err, booking.ErrInvalidTransition) {
		s.metrics.RecordReservation("create", err)
	}
	s.respondBooking(c, wf, err, http.StatusCreated)
}

func (s *SiteAPI) DiscardBooking(c *gin.Context) {
	if !s.bookings.Delete(auth.GuestID(c), c.Param("id")) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Booking not found"})
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *SiteAPI) workflow(c *gin.Context) (*booking.Workflow, bool) {
	wf, ok := s.bookings.Get(auth.GuestID(c), c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Booking not found"})
		return nil, false
	}
	return wf, true
}

func (s *SiteAPI) waitIfAsked(c *gin.Context, wf *booking.Workflow) {
	if c.Query("wait") != "true" {
		return
	}
	select {
	case <-wf.Settled():
	case <-c.Request.Context().Done():
	}
}

// respondBooking always includes the current state so clients can render
// field and global errors
func (s *SiteAPI) respondBooking(c *gin.Context, wf *booking.Workflow, err error, okStatus int) {
	if err != nil {
		body := errorBody(err)
		body["state"] = wf.State()
		c.JSON(errorStatus(err), body)
		return
	}
	c.JSON(okStatus, gin.H{"state": wf.State()})
}
