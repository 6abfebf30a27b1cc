package api

import (
	"net/http"

	"taverna/internal/auth"
	"taverna/internal/models"
	"taverna/internal/reservations"

	"github.com/gin-gonic/gin"
)

func (s *SiteAPI) guestStore(c *gin.Context) *reservations.Store {
	return s.reservations.For(auth.GuestID(c)).Store()
}

// ListReservations returns the guest's reservations; ?upcoming=true keeps
// only confirmed ones from today on
func (s *SiteAPI) ListReservations(c *gin.Context) {
	store := s.guestStore(c)

	var (
		list []models.Reservation
		err  error
	)
	if c.Query("upcoming") == "true" {
		list, err = store.Upcoming(c.Request.Context())
	} else {
		list, err = store.List(c.Request.Context())
	}
	if err != nil {
		respondError(c, err)
		return
	}
	if list == nil {
		list = []models.Reservation{}
	}
	c.JSON(http.StatusOK, gin.H{"reservations": list})
}

// CreateReservation books directly, without the step-by-step flow
func (s *SiteAPI) CreateReservation(c *gin.Context) {
	var r models.Reservation
	if err := c.ShouldBindJSON(&r); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	saved, err := s.guestStore(c).Create(c.Request.Context(), r)
	s.metrics.RecordReservation("create", err)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, saved)
}

func (s *SiteAPI) GetReservation(c *gin.Context) {
	r, err := s.guestStore(c).Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

func (s *SiteAPI) UpdateReservation(c *gin.Context) {
	var patch reservations.Patch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	r, err := s.guestStore(c).Update(c.Request.Context(), c.Param("id"), patch)
	s.metrics.RecordReservation("update", err)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

// CancelReservation marks the reservation cancelled; records are never deleted
func (s *SiteAPI) CancelReservation(c *gin.Context) {
	store := s.guestStore(c)
	id := c.Param("id")

	err := store.Cancel(c.Request.Context(), id)
	s.metrics.RecordReservation("cancel", err)
	if err != nil {
		respondError(c, err)
		return
	}

	r, err := store.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}
