package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"taverna/internal/api"
	"taverna/internal/auth"
	"taverna/internal/chat"
	"taverna/internal/config"
	"taverna/internal/database"
	"taverna/internal/llm"
	"taverna/internal/menu"
	"taverna/internal/metrics"
	"taverna/internal/monitoring"
	"taverna/internal/reservations"
	"taverna/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/jinzhu/gorm"
)

var (
	port        = flag.Int("port", 0, "API server port (overrides config)")
	metricsPort = flag.Int("metrics-port", 0, "Metrics server port (overrides config)")
	configFile  = flag.String("config", "configs/config.yaml", "Path to configuration file")
)

func main() {
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if *metricsPort != 0 {
		cfg.Metrics.Port = *metricsPort
	}
	gin.SetMode(cfg.Server.Mode)

	// Initialize storage
	db, store, err := initializeStore(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}
	defer database.Close(db)

	catalog, err := loadMenu(cfg.Menu)
	if err != nil {
		log.Fatalf("Failed to load menu: %v", err)
	}

	grid, err := reservations.NewSlotGrid(cfg.Reservations.Opening, cfg.Reservations.Closing, cfg.Reservations.Interval)
	if err != nil {
		log.Fatalf("Invalid reservation hours: %v", err)
	}

	issuer, err := auth.NewIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	if err != nil {
		log.Fatalf("Failed to initialize token issuer: %v", err)
	}

	monitor := monitoring.NewMonitor()
	collector := metrics.NewMetricsCollector(monitor)

	// Initialize LLM
	completer, err := initializeAssistant(cfg.LLM, collector)
	if err != nil {
		log.Fatalf("Failed to initialize LLM: %v", err)
	}

	site := api.NewSiteAPI(api.Options{
		Catalog:       catalog,
		Store:         store,
		Grid:          grid,
		Issuer:        issuer,
		Completer:     completer,
		Metrics:       collector,
		Monitor:       monitor,
		SessionTTL:    cfg.Booking.SessionTTL,
		GuestIdleTTL:  cfg.Server.GuestIdleTTL,
		MaxHistory:    cfg.Chat.MaxHistory,
		PromptHistory: cfg.Chat.PromptHistory,
		DedupeCards:   cfg.Chat.DedupeCards,
	})

	var metricsServer *http.Server
	if cfg.Metrics.Enabled {
		metricsServer = startMetricsServer(cfg.Metrics, collector)
	}

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: site.Router,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down servers...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("API server shutdown error: %v", err)
		}
		if metricsServer != nil {
			if err := metricsServer.Shutdown(shutdownCtx); err != nil {
				log.Printf("Metrics server shutdown error: %v", err)
			}
		}
	}()

	log.Printf("Starting API server on port %d", cfg.Server.Port)
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("API server error: %v", err)
	}
}

// initializeStore opens the configured database. The "memory" driver keeps
// everything in process and returns a nil *gorm.DB.
func initializeStore(cfg *config.Config) (*gorm.DB, storage.Store, error) {
	if cfg.Database.Driver == "memory" {
		log.Println("Using in-memory storage; data is lost on restart")
		return nil, storage.NewMemoryStore(), nil
	}

	db, err := database.Open(database.Options{
		Driver:   cfg.Database.Driver,
		DSN:      cfg.Database.DSN,
		Debug:    cfg.LogLevel == "debug",
		MaxOpen:  cfg.Database.MaxOpenConns,
		MaxIdle:  cfg.Database.MaxIdleConns,
		Lifetime: cfg.Database.ConnMaxLifetime,
	})
	if err != nil {
		return nil, nil, err
	}

	store, err := storage.NewGormStore(db)
	if err != nil {
		database.Close(db)
		return nil, nil, err
	}
	return db, store, nil
}

func loadMenu(cfg config.MenuConfig) (*menu.Catalog, error) {
	if cfg.File == "" {
		return menu.Default()
	}
	return menu.LoadFile(cfg.File)
}

// initializeAssistant returns nil when no provider is configured, which
// leaves the chat answering with its trouble message
func initializeAssistant(cfg config.LLMConfig, collector *metrics.MetricsCollector) (chat.Completer, error) {
	provider, err := llm.New(cfg)
	if err != nil {
		return nil, err
	}
	if provider == nil {
		return nil, nil
	}

	log.Printf("Chat assistant using %s (%s)", provider.Name(), cfg.Model)
	return &llm.PromptCompleter{
		Provider: provider,
		Timeout:  cfg.Timeout,
		Observe:  collector.ObserveCompletion,
	}, nil
}

func startMetricsServer(cfg config.MetricsConfig, collector *metrics.MetricsCollector) *http.Server {
	metricsRouter := gin.New()
	metricsRouter.Use(gin.Recovery())
	metricsRouter.GET(cfg.Path, gin.WrapH(collector.Handler()))

	metricsServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: metricsRouter,
	}

	go func() {
		log.Printf("Starting metrics server on port %d", cfg.Port)
		if err := metricsServer.ListenAndServe(); err != http.ErrServerClosed {
			log.Printf("Metrics server error: %v", err)
		}
	}()
	return metricsServer
}
