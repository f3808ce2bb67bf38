package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/go-chi/chi/v5"
	"github.com/kdilshan5712/igolanka-booking/internal/auth"
	"github.com/kdilshan5712/igolanka-booking/internal/backend"
	"github.com/kdilshan5712/igolanka-booking/internal/booking"
	"github.com/kdilshan5712/igolanka-booking/internal/catalog"
	"github.com/kdilshan5712/igolanka-booking/internal/config"
	"github.com/kdilshan5712/igolanka-booking/internal/database"
	"github.com/kdilshan5712/igolanka-booking/internal/handlers"
	"github.com/kdilshan5712/igolanka-booking/internal/notifier"
	"gorm.io/gorm"
)

func main() {
	// Load Configuration
	cfg := config.LoadConfig()

	// Connect to Database
	db := database.Connect(cfg)

	// Package lookups and payments go to the backend when one is configured
	var lookup catalog.Lookup = catalog.NewSampleCatalog()
	var backendClient *backend.Client
	if cfg.BackendURL != "" {
		backendClient = backend.NewClient(cfg.BackendURL, cfg.BackendTimeout)
		lookup = backendClient
	}

	var gateway booking.PaymentGateway
	refs := booking.ReferenceGenerator{Prefix: cfg.BookingReferencePrefix}
	switch cfg.PaymentGateway {
	case config.GatewayBackend:
		gateway = booking.NewBackendGateway(backendClient, cfg.BackendTimeout)
	default:
		gateway = booking.NewSimulatedGateway(cfg.PaymentSuccessRate, cfg.PaymentDelay, cfg.PaymentDelayJitter, refs)
	}
	log.Printf("Using %s payment gateway", cfg.PaymentGateway)

	registry := booking.NewRegistry(bookingDependencies(cfg, db, gateway))

	// Initialize Handlers
	var bookingNotifier notifier.Notifier
	if session := discordSession(cfg); session != nil {
		defer session.Close()
		bookingNotifier = notifier.NewDiscordNotifier(session, cfg.DiscordNotificationsChannelID)
	}

	authHandler := auth.NewAuthHandler(cfg, db)
	bookingHandler := handlers.NewBookingHandler(registry, lookup, db, bookingNotifier, handlers.Paths{
		Login:       cfg.LoginPath,
		VerifyEmail: cfg.VerifyEmailPath,
		Catalog:     cfg.CatalogPath,
	})

	// Initialize Router
	r := chi.NewRouter()

	// Register Routes
	handlers.RegisterRoutes(r, authHandler, bookingHandler, handlers.NewAPIKeyHandler(db), handlers.RouteOptions{
		EnableCORS:    cfg.EnableCORS,
		AllowedOrigin: cfg.FrontendURL,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go sweepSessions(ctx, registry, db, cfg.SessionIdleTimeout, cfg.DraftRetention)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.BackendTimeout + cfg.PaymentDelay + cfg.PaymentDelayJitter + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start Server
	go func() {
		log.Printf("Starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}

func bookingDependencies(cfg *config.Config, db *gorm.DB, gateway booking.PaymentGateway) booking.Dependencies {
	clock := booking.SystemClock{}
	validator := booking.NewValidator(clock, cfg.MaxTravelers)
	paths := booking.Paths{Login: cfg.LoginPath, Catalog: cfg.CatalogPath}

	return booking.Dependencies{
		Navigator: booking.NewNavigator(validator, paths),
		Gateway:   gateway,
		History:   database.NewHistoryRepository(db),
		Mirror: func(session string) booking.DraftPersistence {
			return database.NewDraftMirror(db, session)
		},
		Slot: func(session string) booking.ConfirmationSlot {
			return database.NewConfirmationSlot(db, session)
		},
		Clock: clock,
	}
}

func discordSession(cfg *config.Config) *discordgo.Session {
	if cfg.DiscordBotToken == "" || cfg.DiscordNotificationsChannelID == "" {
		log.Printf("Discord notifier not initialized: bot token or channel missing")
		return nil
	}

	session, err := discordgo.New("Bot " + cfg.DiscordBotToken)
	if err != nil {
		log.Printf("Discord notifier not initialized: %v", err)
		return nil
	}
	if err := session.Open(); err != nil {
		log.Printf("Discord notifier not initialized: %v", err)
		return nil
	}
	return session
}

// sweepSessions drops idle booking sessions from memory. Their drafts stay
// in the database, and are restored on the next request, until retention runs out.
func sweepSessions(ctx context.Context, registry *booking.Registry, db *gorm.DB, idle, retention time.Duration) {
	if idle <= 0 {
		return
	}

	ticker := time.NewTicker(idle / 4)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := registry.Sweep(idle); removed > 0 {
				log.Printf("Swept %d idle booking sessions, %d active", removed, registry.Len())
			}
			if retention > 0 {
				purged, err := database.PurgeDrafts(ctx, db, time.Now().Add(-retention))
				if err != nil {
					log.Printf("Failed to purge stale drafts: %v", err)
				} else if purged > 0 {
					log.Printf("Purged %d stale drafts", purged)
				}
			}
		}
	}
}
