package sync

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"

	"showvote/internal/models"
	"showvote/internal/repositories"
	"showvote/internal/services"
)

// Seeder guarantees every show a non-empty, votable setlist. Seeding samples
// the artist's catalog so voters see plausible songs even before any real
// setlist data exists.
type Seeder struct {
	setlists repositories.SetlistRepository
	artists  repositories.ArtistRepository
	provider services.ArtistProvider

	sampleSize int

	// rng is injected so tests can assert deterministic draws
	mu  sync.Mutex
	rng *rand.Rand
}

// NewSeeder creates a seeder that draws up to sampleSize tracks per setlist.
// provider may be nil when no catalog provider is configured.
func NewSeeder(setlists repositories.SetlistRepository, artists repositories.ArtistRepository, provider services.ArtistProvider, sampleSize int, rng *rand.Rand) *Seeder {
	return &Seeder{
		setlists:   setlists,
		artists:    artists,
		provider:   provider,
		sampleSize: sampleSize,
		rng:        rng,
	}
}

// EnsureSeeded returns the show's setlist, creating and seeding it if absent.
// Idempotent: a populated setlist is returned untouched, a creation race
// resolves to the winner's row without duplicate songs, and a setlist left
// empty by an earlier interrupted seeding is re-seeded.
func (s *Seeder) EnsureSeeded(ctx context.Context, show *models.Show) (*models.Setlist, error) {
	existing, err := s.setlists.FindByShowID(ctx, show.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up setlist: %w", err)
	}
	if existing != nil {
		return s.repairIfEmpty(ctx, existing, show)
	}

	setlist := models.NewSetlist(show.ID, show.ArtistID)
	created, err := s.setlists.Create(ctx, setlist)
	if err != nil {
		return nil, fmt.Errorf("failed to create setlist: %w", err)
	}
	if !created {
		// Lost the creation race; the winner may still be mid-seeding, so
		// the repair path double-checks instead of trusting it
		return s.repairIfEmpty(ctx, setlist, show)
	}

	if err := s.seed(ctx, setlist, show); err != nil {
		return nil, err
	}
	return setlist, nil
}

// repairIfEmpty re-seeds a setlist that exists but has no songs, which is the
// state left behind when a previous seeding crashed between creating the
// setlist and inserting its songs
func (s *Seeder) repairIfEmpty(ctx context.Context, setlist *models.Setlist, show *models.Show) (*models.Setlist, error) {
	count, err := s.setlists.CountSongs(ctx, setlist.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to count setlist songs: %w", err)
	}
	if count > 0 {
		return setlist, nil
	}

	slog.Warn("Re-seeding empty setlist", "setlistID", setlist.ID.Hex(), "showID", show.ID.Hex())
	if err := s.seed(ctx, setlist, show); err != nil {
		return nil, err
	}
	return setlist, nil
}

func (s *Seeder) seed(ctx context.Context, setlist *models.Setlist, show *models.Show) error {
	tracks := s.drawTracks(ctx, show)
	songs := make([]*models.SetlistSong, len(tracks))
	for i, track := range tracks {
		song := models.NewSetlistSong(setlist.ID, track.Title, i+1)
		song.TrackID = track.ExternalID
		song.DurationMs = track.DurationMs
		song.PreviewURL = track.PreviewURL
		song.ImageURL = track.ImageURL
		songs[i] = song
	}

	if err := s.setlists.InsertSongs(ctx, songs); err != nil {
		return fmt.Errorf("failed to seed setlist songs: %w", err)
	}

	slog.Info("Seeded setlist", "setlistID", setlist.ID.Hex(), "showID", show.ID.Hex(), "songs", len(songs))
	return nil
}

// drawTracks samples the artist's catalog, refreshing it from the provider
// when the local cache is empty and falling back to generic placeholders
// when no tracks are obtainable at all
func (s *Seeder) drawTracks(ctx context.Context, show *models.Show) []models.CatalogTrack {
	catalog := s.loadCatalog(ctx, show)
	if len(catalog) == 0 {
		placeholders := make([]models.CatalogTrack, s.sampleSize)
		for i := range placeholders {
			placeholders[i] = models.CatalogTrack{Title: fmt.Sprintf("Fan favorite #%d", i+1)}
		}
		return placeholders
	}

	return s.sample(catalog)
}

func (s *Seeder) loadCatalog(ctx context.Context, show *models.Show) []models.CatalogTrack {
	artist, err := s.artists.FindByID(ctx, show.ArtistID.Hex())
	if err != nil || artist == nil {
		slog.Warn("Seeding without artist row", "showID", show.ID.Hex(), "error", err)
		return nil
	}
	if len(artist.CatalogTracks) > 0 {
		return artist.CatalogTracks
	}

	if s.provider == nil || artist.SpotifyID == "" {
		return nil
	}

	tracks, err := s.provider.GetTopTracks(ctx, artist.SpotifyID)
	if err != nil {
		slog.Warn("Catalog fetch failed during seeding", "artistID", artist.ID.Hex(), "error", err)
		return nil
	}

	catalog := make([]models.CatalogTrack, len(tracks))
	for i, t := range tracks {
		catalog[i] = models.CatalogTrack{
			ExternalID: t.ExternalID,
			Title:      t.Title,
			DurationMs: t.DurationMs,
			PreviewURL: t.PreviewURL,
			ImageURL:   t.ImageURL,
		}
	}

	if err := s.artists.SetCatalogTracks(ctx, artist.ID, catalog); err != nil {
		slog.Warn("Failed to cache artist catalog", "artistID", artist.ID.Hex(), "error", err)
	}

	return catalog
}

// sample draws up to sampleSize distinct tracks, positions assigned in draw
// order
func (s *Seeder) sample(catalog []models.CatalogTrack) []models.CatalogTrack {
	drawn := make([]models.CatalogTrack, len(catalog))
	copy(drawn, catalog)

	s.mu.Lock()
	s.rng.Shuffle(len(drawn), func(i, j int) {
		drawn[i], drawn[j] = drawn[j], drawn[i]
	})
	s.mu.Unlock()

	if len(drawn) > s.sampleSize {
		drawn = drawn[:s.sampleSize]
	}
	return drawn
}
