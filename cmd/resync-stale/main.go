package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"time"

	"github.com/joho/godotenv"

	"showvote/internal/cache"
	"showvote/internal/config"
	"showvote/internal/models"
	"showvote/internal/repositories"
	"showvote/internal/services"
	syncpkg "showvote/internal/sync"
)

// resync-stale walks artists and venues whose last sync is past the
// staleness threshold and refreshes them through the coordinator. Meant to
// run from cron; request-path syncs stay fast because this keeps the long
// tail warm.
func main() {
	batchSize := flag.Int64("batch", 200, "maximum entities to refresh per run")
	flag.Parse()

	// Load .env file for local development
	_ = godotenv.Load()

	// Initialize structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	db, err := models.NewDatabase(ctx, cfg.MongodbURL, cfg.DBName)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close(ctx)

	backend := cache.Cache(cache.NewPersistentCache(db.DB.Collection(models.CollectionCacheEntries)))
	if cfg.ValkeyURL != "" {
		if valkey, err := cache.NewValkeyCache(cfg.ValkeyURL); err == nil {
			backend = valkey
		} else {
			slog.Warn("Valkey unavailable, falling back to mongo cache", "error", err)
		}
	}
	defer backend.Close()

	var artistProvider services.ArtistProvider
	if cfg.SpotifyEnabled() {
		artistProvider = services.NewSpotifyService(cfg.SpotifyClientID, cfg.SpotifyClientSecret)
	}
	var eventProvider services.EventProvider
	if cfg.TicketmasterEnabled() {
		eventProvider = services.NewTicketmasterService(cfg.TicketmasterAPIKey)
	}

	artistRepo := repositories.NewMongoArtistRepository(db)
	venueRepo := repositories.NewMongoVenueRepository(db)
	showRepo := repositories.NewMongoShowRepository(db)
	setlistRepo := repositories.NewMongoSetlistRepository(db)
	syncStateRepo := repositories.NewMongoSyncStateRepository(db)

	seeder := syncpkg.NewSeeder(setlistRepo, artistRepo, artistProvider, cfg.SeedSampleSize,
		rand.New(rand.NewSource(time.Now().UnixNano())))
	coordinator := syncpkg.NewCoordinator(
		artistRepo, venueRepo, showRepo, syncStateRepo,
		artistProvider, eventProvider,
		seeder, cache.NewFreshnessCache(backend), nil, nil,
		syncpkg.CoordinatorConfig{
			ArtistStaleness: cfg.ArtistStaleness(),
			VenueStaleness:  cfg.VenueStaleness(),
		},
	)

	slog.Info("Starting stale entity refresh", "batch", *batchSize)

	refreshed, failed := 0, 0

	if artistProvider != nil {
		stale, err := artistRepo.ListStale(ctx, time.Now().Add(-cfg.ArtistStaleness()), *batchSize)
		if err != nil {
			slog.Error("Failed to list stale artists", "error", err)
			os.Exit(1)
		}
		for _, artist := range stale {
			if artist.SpotifyID == "" {
				continue
			}
			req := syncpkg.Request{
				EntityType: models.EntityTypeArtist,
				ExternalID: artist.SpotifyID,
				Options:    syncpkg.Options{SkipDependencies: true},
			}
			if _, err := coordinator.Sync(ctx, req); err != nil {
				slog.Warn("Artist refresh failed", "spotifyID", artist.SpotifyID, "error", err)
				failed++
				continue
			}
			refreshed++
		}
	}

	if eventProvider != nil {
		stale, err := venueRepo.ListStale(ctx, time.Now().Add(-cfg.VenueStaleness()), *batchSize)
		if err != nil {
			slog.Error("Failed to list stale venues", "error", err)
			os.Exit(1)
		}
		for _, venue := range stale {
			if venue.TicketmasterID == "" {
				continue
			}
			req := syncpkg.Request{
				EntityType: models.EntityTypeVenue,
				ExternalID: venue.TicketmasterID,
				Options:    syncpkg.Options{SkipDependencies: true},
			}
			if _, err := coordinator.Sync(ctx, req); err != nil {
				slog.Warn("Venue refresh failed", "ticketmasterID", venue.TicketmasterID, "error", err)
				failed++
				continue
			}
			refreshed++
		}
	}

	slog.Info("Stale entity refresh completed", "refreshed", refreshed, "failed", failed)

	fmt.Printf("Refreshed: %d entities\n", refreshed)
	fmt.Printf("Failed:    %d entities\n", failed)
}
