package api

import (
	"net/http"
	"strconv"

	"taverna/internal/auth"
	"taverna/internal/cart"

	"github.com/gin-gonic/gin"
)

type addCartItemRequest struct {
	MenuItemID int `json:"menuItemId" binding:"required"`
	Quantity   int `json:"quantity"`
}

type setQuantityRequest struct {
	Quantity *int `json:"quantity" binding:"required"`
}

func cartView(l *cart.Ledger) gin.H {
	return gin.H{"items": l.Items(), "count": l.Count(), "total": l.Total()}
}

func (s *SiteAPI) ledger(c *gin.Context) *cart.Ledger {
	return s.carts.For(c.Request.Context(), auth.GuestID(c))
}

func (s *SiteAPI) GetCart(c *gin.Context) {
	c.JSON(http.StatusOK, cartView(s.ledger(c)))
}

// AddCartItem adds quantity (default one) of a menu item
func (s *SiteAPI) AddCartItem(c *gin.Context) {
	var req addCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	item, ok := s.catalog.ByID(req.MenuItemID)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Menu item not found"})
		return
	}

	ctx := c.Request.Context()
	l := s.ledger(c)
	line := l.Add(ctx, item)
	if req.Quantity > 1 {
		l.SetQuantity(ctx, item.ID, line.Quantity+req.Quantity-1)
	}
	s.metrics.RecordCartAdd(item.Category)
	c.JSON(http.StatusCreated, cartView(l))
}

// SetCartItemQuantity changes a line's quantity; zero or less removes it
func (s *SiteAPI) SetCartItemQuantity(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid menu item id"})
		return
	}
	var req setQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	l := s.ledger(c)
	if !l.SetQuantity(c.Request.Context(), id, *req.Quantity) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Item not in cart"})
		return
	}
	c.JSON(http.StatusOK, cartView(l))
}

func (s *SiteAPI) RemoveCartItem(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid menu item id"})
		return
	}

	l := s.ledger(c)
	if !l.Remove(c.Request.Context(), id) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Item not in cart"})
		return
	}
	c.JSON(http.StatusOK, cartView(l))
}

func (s *SiteAPI) ClearCart(c *gin.Context) {
	l := s.ledger(c)
	l.Clear(c.Request.Context())
	c.JSON(http.StatusOK, cartView(l))
}
