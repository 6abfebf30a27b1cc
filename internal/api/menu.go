package api

import (
	"net/http"
	"strconv"
	"time"

	"taverna/internal/auth"
	"taverna/internal/booking"
	"taverna/internal/menu"
	"taverna/internal/models"

	"github.com/gin-gonic/gin"
)

// ListMenu returns the catalog, optionally narrowed by ?category and ?dietary
func (s *SiteAPI) ListMenu(c *gin.Context) {
	items := s.catalog.Items()
	if category := c.Query("category"); category != "" {
		items = s.catalog.ByCategory(category)
	}
	if tag := c.Query("dietary"); tag != "" {
		items = menu.WithDietary(items, tag)
	}
	if items == nil {
		items = []models.MenuItem{}
	}
	c.JSON(http.StatusOK, gin.H{"items": items, "categories": s.catalog.Categories()})
}

func (s *SiteAPI) GetMenuItem(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid menu item id"})
		return
	}
	item, ok := s.catalog.ByID(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Menu item not found"})
		return
	}
	c.JSON(http.StatusOK, item)
}

// GetAvailability lists the free slots for ?date=YYYY-MM-DD
func (s *SiteAPI) GetAvailability(c *gin.Context) {
	date := c.Query("date")
	if date == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "date query parameter is required"})
		return
	}

	start := time.Now()
	slots, err := s.reservations.For(auth.GuestID(c)).FetchSlots(c.Request.Context(), date)
	s.metrics.ObserveSlotQuery(time.Since(start))
	if err != nil {
		respondError(c, err)
		return
	}

	notice := ""
	if len(slots) == 0 {
		notice = booking.MsgNoTimesAvailable
	}
	c.JSON(http.StatusOK, gin.H{"date": date, "times": slots, "notice": notice})
}
