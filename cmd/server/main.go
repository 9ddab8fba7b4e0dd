package main

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"showvote/internal/cache"
	"showvote/internal/config"
	"showvote/internal/handlers"
	"showvote/internal/models"
	"showvote/internal/ratelimit"
	"showvote/internal/realtime"
	"showvote/internal/repositories"
	"showvote/internal/services"
	syncpkg "showvote/internal/sync"
	"showvote/internal/votes"
)

func main() {
	// Load .env file for local development
	_ = godotenv.Load()

	// Initialize structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	gin.SetMode(cfg.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize database
	db, err := models.NewDatabase(ctx, cfg.MongodbURL, cfg.DBName)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close(context.Background())

	if err := db.CreateIndexes(ctx); err != nil {
		slog.Error("Failed to create indexes", "error", err)
		os.Exit(1)
	}

	// Initialize cache: valkey when configured, durable mongo-backed
	// entries otherwise
	var backend cache.Cache
	if cfg.ValkeyURL != "" {
		backend, err = cache.NewValkeyCache(cfg.ValkeyURL)
		if err != nil {
			slog.Error("Failed to initialize valkey cache", "error", err)
			os.Exit(1)
		}
	} else {
		backend = cache.NewPersistentCache(db.DB.Collection(models.CollectionCacheEntries))
		slog.Info("No VALKEY_URL set, using durable mongo-backed cache")
	}
	defer backend.Close()

	fresh := cache.NewFreshnessCache(backend)

	// Initialize providers
	var artistProvider services.ArtistProvider
	if cfg.SpotifyEnabled() {
		artistProvider = services.NewSpotifyService(cfg.SpotifyClientID, cfg.SpotifyClientSecret)
	} else {
		slog.Warn("Spotify credentials not configured, artist sync disabled")
	}

	var eventProvider services.EventProvider
	if cfg.TicketmasterEnabled() {
		eventProvider = services.NewTicketmasterService(cfg.TicketmasterAPIKey)
	} else {
		slog.Warn("Ticketmaster API key not configured, show sync disabled")
	}

	// Initialize repositories
	artistRepo := repositories.NewMongoArtistRepository(db)
	venueRepo := repositories.NewMongoVenueRepository(db)
	showRepo := repositories.NewMongoShowRepository(db)
	setlistRepo := repositories.NewMongoSetlistRepository(db)
	voteRepo := repositories.NewMongoVoteRepository(db)
	syncStateRepo := repositories.NewMongoSyncStateRepository(db)

	// Synchronization stack
	seeder := syncpkg.NewSeeder(setlistRepo, artistRepo, artistProvider, cfg.SeedSampleSize,
		rand.New(rand.NewSource(time.Now().UnixNano())))
	queue := syncpkg.NewQueue(syncStateRepo, cfg.SyncWorkers, 128)
	coordinator := syncpkg.NewCoordinator(
		artistRepo, venueRepo, showRepo, syncStateRepo,
		artistProvider, eventProvider,
		seeder, fresh, nil, queue,
		syncpkg.CoordinatorConfig{
			ArtistStaleness: cfg.ArtistStaleness(),
			VenueStaleness:  cfg.VenueStaleness(),
			Budget:          cfg.SyncBudget(),
		},
	)
	queue.Start(ctx, coordinator)
	queue.StartSweeper(ctx, time.Minute)

	// Voting and realtime fan-out
	hub := realtime.NewHub()
	ledger := votes.NewLedger(voteRepo, setlistRepo, hub, cfg.AnonymousVoteCap)

	// Rate limiting for inbound sync requests
	limiter := ratelimit.New(cfg.RateLimitWindow(), cfg.RateLimitRequests)
	limiter.StartSweeper(ctx, cfg.RateLimitWindow())

	// HTTP surface
	syncHandler := handlers.NewSyncHandler(coordinator, limiter)
	votesHandler := handlers.NewVotesHandler(ledger)
	setlistsHandler := handlers.NewSetlistsHandler(setlistRepo, hub)
	artistsHandler := handlers.NewArtistsHandler(artistRepo, showRepo)
	healthHandler := handlers.NewHealthHandler(db, backend)

	identity := handlers.IdentityMiddleware(handlers.IdentityConfig{
		JWTSecret:   cfg.JWTSecret,
		RequireAuth: cfg.RequireAuthVotes,
	})

	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/health", healthHandler.Health)

	api := router.Group("/api/v1")
	api.Use(identity)
	{
		api.POST("/sync", syncHandler.Sync)
		api.POST("/votes", votesHandler.Vote)
		api.GET("/artists/:id/shows", artistsHandler.UpcomingShows)
		api.GET("/setlists/:id", setlistsHandler.Get)
		api.GET("/setlists/:id/live", setlistsHandler.Live)
	}

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("Server starting", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("Graceful shutdown failed", "error", err)
	}

	queue.Wait()
	slog.Info("Server stopped")
}
