package api

import (
	"context"
	"net/http"
	"time"

	"taverna/internal/auth"
	"taverna/internal/booking"
	"taverna/internal/cart"
	"taverna/internal/chat"
	"taverna/internal/menu"
	"taverna/internal/metrics"
	"taverna/internal/monitoring"
	"taverna/internal/reservations"
	"taverna/internal/storage"

	"github.com/gin-gonic/gin"
)

// Options wires the API to its collaborators. Completer may be nil, in which
// case the assistant answers with the trouble-connecting message.
type Options struct {
	Catalog       *menu.Catalog
	Store         storage.Store
	Grid          reservations.SlotGrid
	Issuer        *auth.Issuer
	Completer     chat.Completer
	Metrics       *metrics.MetricsCollector
	Monitor       *monitoring.Monitor
	SessionTTL    time.Duration
	GuestIdleTTL  time.Duration
	MaxHistory    int
	PromptHistory int
	DedupeCards   bool
}

// SiteAPI represents the restaurant site's HTTP API
type SiteAPI struct {
	Router       *gin.Engine
	catalog      *menu.Catalog
	issuer       *auth.Issuer
	reservations *reservations.Services
	bookings     *booking.Sessions
	carts        *cart.Ledgers
	chats        *chat.Conversations
	metrics      *metrics.MetricsCollector
	monitor      *monitoring.Monitor
	llmEnabled   bool
}

// NewSiteAPI creates the API and registers every route
func NewSiteAPI(opts Options) *SiteAPI {
	if opts.Monitor == nil {
		opts.Monitor = monitoring.NewMonitor()
	}
	if opts.Metrics == nil {
		opts.Metrics = metrics.NewMetricsCollector(opts.Monitor)
	}

	var parserOpts []chat.ParserOption
	if opts.DedupeCards {
		parserOpts = append(parserOpts, chat.WithDeduplication())
	}
	assistant := chat.NewAssistant(
		opts.Completer,
		chat.NewParser(opts.Catalog.Items(), parserOpts...),
		opts.Catalog.PromptListing(),
		opts.PromptHistory,
	)
	maxHistory := opts.MaxHistory

	router := gin.Default()
	router.Use(opts.Metrics.Middleware())

	api := &SiteAPI{
		Router:       router,
		catalog:      opts.Catalog,
		issuer:       opts.Issuer,
		reservations: reservations.NewServices(opts.Store, opts.Grid, opts.GuestIdleTTL),
		bookings:     booking.NewSessions(opts.SessionTTL),
		carts:        cart.NewLedgers(opts.Store, opts.GuestIdleTTL),
		chats: chat.NewConversations(opts.GuestIdleTTL, func(ctx context.Context, guest string) *chat.Conversation {
			return chat.NewConversation(ctx, storage.Namespace(opts.Store, guest), assistant, chat.WithMaxHistory(maxHistory))
		}),
		metrics:    opts.Metrics,
		monitor:    opts.Monitor,
		llmEnabled: opts.Completer != nil,
	}

	api.setupRoutes()
	return api
}

// setupRoutes configures all API endpoints
func (s *SiteAPI) setupRoutes() {
	s.Router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "message": "Taverna API is running"})
	})

	v1 := s.Router.Group("/api/v1")
	{
		v1.POST("/session", s.CreateSession)

		v1.GET("/menu", s.ListMenu)
		v1.GET("/menu/:id", s.GetMenuItem)
		v1.GET("/stats", s.GetStats)
	}

	guest := v1.Group("", auth.Middleware(s.issuer))
	{
		guest.GET("/availability", s.GetAvailability)

		guest.GET("/reservations", s.ListReservations)
		guest.POST("/reservations", s.CreateReservation)
		guest.GET("/reservations/:id", s.GetReservation)
		guest.PATCH("/reservations/:id", s.UpdateReservation)
		guest.DELETE("/reservations/:id", s.CancelReservation)

		guest.POST("/bookings", s.StartBooking)
		guest.GET("/bookings/:id", s.GetBooking)
		guest.PUT("/bookings/:id", s.UpdateBooking)
		guest.POST("/bookings/:id/next", s.NextBookingStep)
		guest.POST("/bookings/:id/back", s.PreviousBookingStep)
		guest.POST("/bookings/:id/confirm", s.ConfirmBooking)
		guest.DELETE("/bookings/:id", s.DiscardBooking)

		guest.GET("/cart", s.GetCart)
		guest.POST("/cart/items", s.AddCartItem)
		guest.PUT("/cart/items/:id", s.SetCartItemQuantity)
		guest.DELETE("/cart/items/:id", s.RemoveCartItem)
		guest.DELETE("/cart", s.ClearCart)

		guest.GET("/chat/messages", s.GetChatMessages)
		guest.POST("/chat/messages", s.SendChatMessage)
		guest.DELETE("/chat/messages", s.ClearChat)
		guest.GET("/chat/ws", s.handleChatSocket)
	}
}

// CreateSession issues a token for a new anonymous guest
func (s *SiteAPI) CreateSession(c *gin.Context) {
	guest, token, expires, err := s.issuer.NewGuest()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	s.monitor.Increment("sessions_issued")
	c.JSON(http.StatusCreated, gin.H{"guestId": guest, "token": token, "expiresAt": expires})
}

// GetStats returns the in-process activity snapshot
func (s *SiteAPI) GetStats(c *gin.Context) {
	stats := s.monitor.GetMetrics()
	stats["active_bookings"] = s.bookings.Len()
	stats["menu_items"] = s.catalog.Len()
	stats["assistant_enabled"] = s.llmEnabled
	c.JSON(http.StatusOK, stats)
}
