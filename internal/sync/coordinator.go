// Package sync implements the synchronization coordinator: cascading,
// idempotent ingestion of artists, venues, and shows from external
// providers, plus setlist seeding and the background retry queue.
package sync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"showvote/internal/cache"
	"showvote/internal/models"
	"showvote/internal/ratelimit"
	"showvote/internal/repositories"
	"showvote/internal/services"
)

// Sync outcome statuses, for the parent entity and each dependency
const (
	StatusCompleted = "completed"
	StatusSkipped   = "skipped"
	StatusDeferred  = "deferred"
	StatusFailed    = "failed"
)

// ErrInvalidRequest is returned when a sync request names no entity
var ErrInvalidRequest = errors.New("invalid sync request")

// Options tune a single sync call
type Options struct {
	// ForceRefresh bypasses the staleness check and the provider cache
	ForceRefresh bool `json:"forceRefresh"`
	// SkipDependencies syncs only the named entity without cascading
	SkipDependencies bool `json:"skipDependencies"`
}

// Request identifies the entity to sync by internal id, external provider
// id, or name (for creation)
type Request struct {
	EntityType models.EntityType `json:"entityType"`
	EntityID   string            `json:"entityId,omitempty"`
	ExternalID string            `json:"externalId,omitempty"`
	Name       string            `json:"name,omitempty"`
	Options    Options           `json:"options"`
}

// Validate checks that the request names a known entity type and at least
// one way to resolve it
func (r Request) Validate() error {
	switch r.EntityType {
	case models.EntityTypeArtist, models.EntityTypeVenue, models.EntityTypeShow:
	default:
		return fmt.Errorf("%w: unknown entity type %q", ErrInvalidRequest, r.EntityType)
	}
	if r.EntityID == "" && r.ExternalID == "" && r.Name == "" {
		return fmt.Errorf("%w: one of entityId, externalId, name is required", ErrInvalidRequest)
	}
	return nil
}

// flightKey collapses concurrent syncs of the same entity into one attempt
func (r Request) flightKey() string {
	ref := r.ExternalID
	if ref == "" {
		ref = r.EntityID
	}
	if ref == "" {
		ref = "name:" + r.Name
	}
	return string(r.EntityType) + "/" + ref
}

// DependencyResult reports the outcome of one cascade step
type DependencyResult struct {
	Status   string `json:"status"`
	EntityID string `json:"entityId,omitempty"`
	Error    string `json:"error,omitempty"`
}

// Result is the outcome of a sync call. Status is deferred when part of the
// cascade was pushed to the background queue.
type Result struct {
	Status       string                      `json:"status"`
	Entity       interface{}                 `json:"entity,omitempty"`
	Dependencies map[string]DependencyResult `json:"dependencies,omitempty"`
}

// Enqueuer accepts deferred sync work
type Enqueuer interface {
	Enqueue(req Request) bool
}

// CoordinatorConfig carries the coordinator's tuning knobs
type CoordinatorConfig struct {
	ArtistStaleness time.Duration
	VenueStaleness  time.Duration
	// Budget bounds one sync call; remaining cascade steps are deferred
	Budget time.Duration
	// RetryBackoff spaces retries of transient failures
	RetryBackoff time.Duration
}

// Coordinator drives entity synchronization. All provider calls pass through
// the outbound rate limiter (when set) and the freshness cache.
type Coordinator struct {
	artists    repositories.ArtistRepository
	venues     repositories.VenueRepository
	shows      repositories.ShowRepository
	syncStates repositories.SyncStateRepository

	artistProvider services.ArtistProvider
	eventProvider  services.EventProvider

	seeder   *Seeder
	fresh    *cache.FreshnessCache
	outbound *ratelimit.Limiter
	queue    Enqueuer

	cfg    CoordinatorConfig
	flight singleflight.Group
}

// NewCoordinator wires a coordinator. artistProvider, eventProvider,
// outbound, and queue may be nil; the corresponding paths degrade
// explicitly rather than silently.
func NewCoordinator(
	artists repositories.ArtistRepository,
	venues repositories.VenueRepository,
	shows repositories.ShowRepository,
	syncStates repositories.SyncStateRepository,
	artistProvider services.ArtistProvider,
	eventProvider services.EventProvider,
	seeder *Seeder,
	fresh *cache.FreshnessCache,
	outbound *ratelimit.Limiter,
	queue Enqueuer,
	cfg CoordinatorConfig,
) *Coordinator {
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = 5 * time.Minute
	}
	return &Coordinator{
		artists:        artists,
		venues:         venues,
		shows:          shows,
		syncStates:     syncStates,
		artistProvider: artistProvider,
		eventProvider:  eventProvider,
		seeder:         seeder,
		fresh:          fresh,
		outbound:       outbound,
		queue:          queue,
		cfg:            cfg,
	}
}

// Sync synchronizes one entity, cascading through its dependencies. The
// call is detached from the caller's cancellation: sync work is idempotent,
// so an abandoned request is allowed to finish and be cached.
func (c *Coordinator) Sync(ctx context.Context, req Request) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	detached := context.WithoutCancel(ctx)
	budgetCtx := detached
	var cancel context.CancelFunc
	if c.cfg.Budget > 0 {
		budgetCtx, cancel = context.WithTimeout(detached, c.cfg.Budget)
		defer cancel()
	}

	return c.do(budgetCtx, req)
}

// do dispatches through singleflight so concurrent requests for the same
// entity join one in-flight attempt
func (c *Coordinator) do(ctx context.Context, req Request) (*Result, error) {
	v, err, _ := c.flight.Do(req.flightKey(), func() (interface{}, error) {
		switch req.EntityType {
		case models.EntityTypeArtist:
			return c.syncArtist(ctx, req)
		case models.EntityTypeVenue:
			return c.syncVenue(ctx, req)
		case models.EntityTypeShow:
			return c.syncShow(ctx, req)
		}
		return nil, fmt.Errorf("%w: unknown entity type %q", ErrInvalidRequest, req.EntityType)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Result), nil
}

func (c *Coordinator) syncArtist(ctx context.Context, req Request) (*Result, error) {
	artist, err := c.resolveArtist(ctx, req)
	if err != nil {
		return nil, err
	}

	if artist != nil && !req.Options.ForceRefresh && !artist.IsStale(c.cfg.ArtistStaleness) {
		return &Result{Status: StatusSkipped, Entity: artist}, nil
	}

	if c.artistProvider == nil {
		return nil, &services.ProviderError{
			Provider: "spotify", Operation: "sync artist",
			Kind: services.KindConfiguration, Message: "no artist provider configured",
		}
	}

	spotifyID := req.ExternalID
	if artist != nil && artist.SpotifyID != "" {
		spotifyID = artist.SpotifyID
	}

	// Reserve the row before the provider round-trip, so a failed first
	// sync still leaves an identity to hang the failure state on
	if artist == nil {
		artist, err = c.artists.EnsurePlaceholder(ctx, spotifyID, req.Name)
		if err != nil {
			return nil, err
		}
	}

	stateID := spotifyID
	if stateID == "" {
		stateID = "name:" + c.artistName(req, artist)
	}

	info, err := c.fetchArtistInfo(ctx, spotifyID, c.artistName(req, artist), req.Options.ForceRefresh)
	if err != nil {
		c.recordFailure(ctx, models.EntityTypeArtist, stateID, err)
		return nil, err
	}

	if err := c.syncStates.MarkInProgress(ctx, models.EntityTypeArtist, info.ExternalID); err != nil {
		slog.Warn("Failed to mark sync in progress", "entityID", info.ExternalID, "error", err)
	}

	update := repositories.ArtistProviderUpdate{
		// SpotifyID closes the loop on name-reserved placeholders
		SpotifyID:  info.ExternalID,
		Name:       info.Name,
		Popularity: info.Popularity,
		Genres:     info.Genres,
		ImageURL:   info.ImageURL,
	}

	// The catalog is supplementary; a failed track fetch does not fail the
	// artist sync
	if tracks, trackErr := c.fetchTopTracks(ctx, info.ExternalID, req.Options.ForceRefresh); trackErr != nil {
		slog.Warn("Top tracks fetch failed", "spotifyID", info.ExternalID, "error", trackErr)
	} else {
		update.CatalogTracks = toCatalogTracks(tracks)
	}

	merged, err := c.artists.MergeProviderData(ctx, artist.ID, update)
	if err != nil {
		c.recordFailure(ctx, models.EntityTypeArtist, info.ExternalID, err)
		return nil, err
	}

	if err := c.syncStates.MarkCompleted(ctx, models.EntityTypeArtist, info.ExternalID); err != nil {
		slog.Warn("Failed to mark sync completed", "entityID", info.ExternalID, "error", err)
	}

	slog.Info("Artist synced", "artistID", merged.ID.Hex(), "spotifyID", info.ExternalID)
	return &Result{Status: StatusCompleted, Entity: merged}, nil
}

func (c *Coordinator) artistName(req Request, artist *models.Artist) string {
	if artist != nil && artist.Name != "" {
		return artist.Name
	}
	return req.Name
}

func (c *Coordinator) resolveArtist(ctx context.Context, req Request) (*models.Artist, error) {
	switch {
	case req.EntityID != "":
		artist, err := c.artists.FindByID(ctx, req.EntityID)
		if err != nil {
			return nil, err
		}
		if artist == nil {
			return nil, fmt.Errorf("%w: artist %s not found", ErrInvalidRequest, req.EntityID)
		}
		return artist, nil
	case req.ExternalID != "":
		return c.artists.FindBySpotifyID(ctx, req.ExternalID)
	default:
		return c.artists.FindByName(ctx, req.Name)
	}
}

func (c *Coordinator) syncVenue(ctx context.Context, req Request) (*Result, error) {
	venue, err := c.resolveVenue(ctx, req)
	if err != nil {
		return nil, err
	}

	if venue != nil && !req.Options.ForceRefresh && !venue.IsStale(c.cfg.VenueStaleness) {
		return &Result{Status: StatusSkipped, Entity: venue}, nil
	}

	if c.eventProvider == nil {
		return nil, &services.ProviderError{
			Provider: "ticketmaster", Operation: "sync venue",
			Kind: services.KindConfiguration, Message: "no event provider configured",
		}
	}

	ticketmasterID := req.ExternalID
	if venue != nil && venue.TicketmasterID != "" {
		ticketmasterID = venue.TicketmasterID
	}
	if ticketmasterID == "" {
		return nil, fmt.Errorf("%w: venue sync requires an external id", ErrInvalidRequest)
	}

	// Reserve before fetching; the provider name fills in on merge
	if venue == nil {
		venue, err = c.venues.EnsurePlaceholder(ctx, ticketmasterID, "")
		if err != nil {
			return nil, err
		}
	}

	info, err := c.fetchVenueInfo(ctx, ticketmasterID, req.Options.ForceRefresh)
	if err != nil {
		c.recordFailure(ctx, models.EntityTypeVenue, ticketmasterID, err)
		return nil, err
	}

	if err := c.syncStates.MarkInProgress(ctx, models.EntityTypeVenue, info.ExternalID); err != nil {
		slog.Warn("Failed to mark sync in progress", "entityID", info.ExternalID, "error", err)
	}

	merged, err := c.venues.MergeProviderData(ctx, venue.ID, repositories.VenueProviderUpdate{
		Name:    info.Name,
		City:    info.City,
		State:   info.State,
		Country: info.Country,
	})
	if err != nil {
		c.recordFailure(ctx, models.EntityTypeVenue, info.ExternalID, err)
		return nil, err
	}

	if err := c.syncStates.MarkCompleted(ctx, models.EntityTypeVenue, info.ExternalID); err != nil {
		slog.Warn("Failed to mark sync completed", "entityID", info.ExternalID, "error", err)
	}

	slog.Info("Venue synced", "venueID", merged.ID.Hex(), "ticketmasterID", info.ExternalID)
	return &Result{Status: StatusCompleted, Entity: merged}, nil
}

func (c *Coordinator) resolveVenue(ctx context.Context, req Request) (*models.Venue, error) {
	switch {
	case req.EntityID != "":
		venue, err := c.venues.FindByID(ctx, req.EntityID)
		if err != nil {
			return nil, err
		}
		if venue == nil {
			return nil, fmt.Errorf("%w: venue %s not found", ErrInvalidRequest, req.EntityID)
		}
		return venue, nil
	case req.ExternalID != "":
		return c.venues.FindByTicketmasterID(ctx, req.ExternalID)
	default:
		return nil, fmt.Errorf("%w: venue sync requires an id", ErrInvalidRequest)
	}
}

// syncShow ingests one show and cascades through its artist, venue, and
// setlist. Dependency failures are recorded per-dependency and never abort
// the show itself; only a failed event fetch is fatal.
func (c *Coordinator) syncShow(ctx context.Context, req Request) (*Result, error) {
	if c.eventProvider == nil {
		return nil, &services.ProviderError{
			Provider: "ticketmaster", Operation: "sync show",
			Kind: services.KindConfiguration, Message: "no event provider configured",
		}
	}

	existing, err := c.resolveShow(ctx, req)
	if err != nil {
		return nil, err
	}

	deps := make(map[string]DependencyResult)

	if existing != nil && !req.Options.ForceRefresh && !c.showStale(existing) {
		// Fresh row: no provider round-trip, but the setlist guarantee
		// still holds (an earlier seeding may have been deferred)
		if !req.Options.SkipDependencies {
			c.seedDependency(ctx, existing, deps)
		}
		return &Result{Status: StatusSkipped, Entity: existing, Dependencies: deps}, nil
	}

	ticketmasterID := req.ExternalID
	if existing != nil && existing.TicketmasterID != "" {
		ticketmasterID = existing.TicketmasterID
	}
	if ticketmasterID == "" {
		return nil, fmt.Errorf("%w: show sync requires an external id", ErrInvalidRequest)
	}

	event, err := c.fetchEventInfo(ctx, ticketmasterID, req.Options.ForceRefresh)
	if err != nil {
		c.recordFailure(ctx, models.EntityTypeShow, ticketmasterID, err)
		return nil, err
	}

	if err := c.syncStates.MarkInProgress(ctx, models.EntityTypeShow, event.ExternalID); err != nil {
		slog.Warn("Failed to mark sync in progress", "entityID", event.ExternalID, "error", err)
	}

	artist, err := c.artistDependency(ctx, event, req.Options, deps)
	if err != nil {
		c.recordFailure(ctx, models.EntityTypeShow, event.ExternalID, err)
		return nil, err
	}

	venue, err := c.venueDependency(ctx, event, req.Options, deps)
	if err != nil {
		c.recordFailure(ctx, models.EntityTypeShow, event.ExternalID, err)
		return nil, err
	}

	// The show row itself must land even if the dependency cascade burned
	// the whole budget
	storeCtx := context.WithoutCancel(ctx)

	show, err := c.shows.EnsureShow(storeCtx, event.ExternalID, artist.ID, venue.ID, event.Date)
	if err != nil {
		c.recordFailure(ctx, models.EntityTypeShow, event.ExternalID, err)
		return nil, err
	}

	show, err = c.shows.MergeProviderData(storeCtx, show.ID, repositories.ShowProviderUpdate{
		Name:      event.Name,
		Date:      event.Date,
		TicketURL: event.TicketURL,
		ImageURL:  event.ImageURL,
	})
	if err != nil {
		c.recordFailure(ctx, models.EntityTypeShow, event.ExternalID, err)
		return nil, err
	}

	if !req.Options.SkipDependencies {
		c.seedDependency(ctx, show, deps)
	}

	if err := c.syncStates.MarkCompleted(storeCtx, models.EntityTypeShow, event.ExternalID); err != nil {
		slog.Warn("Failed to mark sync completed", "entityID", event.ExternalID, "error", err)
	}

	status := StatusCompleted
	for _, dep := range deps {
		if dep.Status == StatusDeferred {
			status = StatusDeferred
			break
		}
	}

	slog.Info("Show synced", "showID", show.ID.Hex(), "ticketmasterID", event.ExternalID, "status", status)
	return &Result{Status: status, Entity: show, Dependencies: deps}, nil
}

func (c *Coordinator) resolveShow(ctx context.Context, req Request) (*models.Show, error) {
	switch {
	case req.EntityID != "":
		show, err := c.shows.FindByID(ctx, req.EntityID)
		if err != nil {
			return nil, err
		}
		if show == nil {
			return nil, fmt.Errorf("%w: show %s not found", ErrInvalidRequest, req.EntityID)
		}
		return show, nil
	case req.ExternalID != "":
		return c.shows.FindByTicketmasterID(ctx, req.ExternalID)
	default:
		return nil, fmt.Errorf("%w: show sync requires an id", ErrInvalidRequest)
	}
}

// showStale reuses the artist staleness window; show facts change about as
// often as artist facts
func (c *Coordinator) showStale(show *models.Show) bool {
	return time.Since(show.LastSyncedAt) > c.cfg.ArtistStaleness
}

// artistDependency resolves the show's artist: a full cascade sync within
// budget, a deferred background sync past budget, and a placeholder row
// when the provider fails. The returned artist row is always usable.
func (c *Coordinator) artistDependency(ctx context.Context, event *services.EventInfo, opts Options, deps map[string]DependencyResult) (*models.Artist, error) {
	if opts.SkipDependencies {
		return c.artistFallback(ctx, event, deps, DependencyResult{Status: StatusSkipped})
	}

	depReq := Request{
		EntityType: models.EntityTypeArtist,
		Name:       event.ArtistName,
		Options:    Options{ForceRefresh: opts.ForceRefresh},
	}

	if ctx.Err() != nil {
		if c.enqueue(depReq) {
			return c.artistFallback(ctx, event, deps, DependencyResult{Status: StatusDeferred})
		}
		return c.artistFallback(ctx, event, deps, DependencyResult{
			Status: StatusFailed, Error: "sync budget exhausted and queue unavailable",
		})
	}

	result, err := c.do(ctx, depReq)
	if err != nil {
		slog.Warn("Artist dependency failed", "artist", event.ArtistName, "error", err)
		return c.artistFallback(ctx, event, deps, DependencyResult{Status: StatusFailed, Error: err.Error()})
	}

	artist := result.Entity.(*models.Artist)
	deps["artist"] = DependencyResult{Status: result.Status, EntityID: artist.ID.Hex()}
	return artist, nil
}

func (c *Coordinator) artistFallback(ctx context.Context, event *services.EventInfo, deps map[string]DependencyResult, dep DependencyResult) (*models.Artist, error) {
	// The placeholder write must land even when the budget context has
	// already expired
	artist, err := c.artists.EnsurePlaceholder(context.WithoutCancel(ctx), "", event.ArtistName)
	if err != nil {
		return nil, fmt.Errorf("failed to reserve artist placeholder: %w", err)
	}
	dep.EntityID = artist.ID.Hex()
	deps["artist"] = dep
	return artist, nil
}

func (c *Coordinator) venueDependency(ctx context.Context, event *services.EventInfo, opts Options, deps map[string]DependencyResult) (*models.Venue, error) {
	embedded := event.Venue
	if embedded == nil {
		embedded = &services.VenueInfo{Name: "Unknown Venue"}
	}

	if opts.SkipDependencies || embedded.ExternalID == "" {
		return c.venueFallback(ctx, embedded, deps, DependencyResult{Status: StatusSkipped})
	}

	depReq := Request{
		EntityType: models.EntityTypeVenue,
		ExternalID: embedded.ExternalID,
		Options:    Options{ForceRefresh: opts.ForceRefresh},
	}

	if ctx.Err() != nil {
		if c.enqueue(depReq) {
			venue, err := c.venueFallback(ctx, embedded, deps, DependencyResult{Status: StatusDeferred})
			return venue, err
		}
		return c.venueFallback(ctx, embedded, deps, DependencyResult{
			Status: StatusFailed, Error: "sync budget exhausted and queue unavailable",
		})
	}

	result, err := c.do(ctx, depReq)
	if err != nil {
		slog.Warn("Venue dependency failed", "ticketmasterID", embedded.ExternalID, "error", err)
		return c.venueFallback(ctx, embedded, deps, DependencyResult{Status: StatusFailed, Error: err.Error()})
	}

	venue := result.Entity.(*models.Venue)
	deps["venue"] = DependencyResult{Status: result.Status, EntityID: venue.ID.Hex()}
	return venue, nil
}

func (c *Coordinator) venueFallback(ctx context.Context, embedded *services.VenueInfo, deps map[string]DependencyResult, dep DependencyResult) (*models.Venue, error) {
	venue, err := c.venues.EnsurePlaceholder(context.WithoutCancel(ctx), embedded.ExternalID, embedded.Name)
	if err != nil {
		return nil, fmt.Errorf("failed to reserve venue placeholder: %w", err)
	}
	dep.EntityID = venue.ID.Hex()
	deps["venue"] = dep
	return venue, nil
}

// seedDependency guarantees the show a votable setlist. Past budget, the
// whole show is re-enqueued; the re-sync will find everything fresh and only
// run the seeder.
func (c *Coordinator) seedDependency(ctx context.Context, show *models.Show, deps map[string]DependencyResult) {
	if ctx.Err() != nil {
		req := Request{EntityType: models.EntityTypeShow, ExternalID: show.TicketmasterID}
		if c.enqueue(req) {
			deps["setlist"] = DependencyResult{Status: StatusDeferred}
		} else {
			deps["setlist"] = DependencyResult{Status: StatusFailed, Error: "sync budget exhausted and queue unavailable"}
		}
		return
	}

	setlist, err := c.seeder.EnsureSeeded(ctx, show)
	if err != nil {
		slog.Warn("Setlist seeding failed", "showID", show.ID.Hex(), "error", err)
		deps["setlist"] = DependencyResult{Status: StatusFailed, Error: err.Error()}
		return
	}

	deps["setlist"] = DependencyResult{Status: StatusCompleted, EntityID: setlist.ID.Hex()}
}

func (c *Coordinator) enqueue(req Request) bool {
	return c.queue != nil && c.queue.Enqueue(req)
}

// recordFailure stores the failure on the entity's sync state. Transient
// failures get a retry-after so the sweeper picks them up; fatal kinds do
// not.
func (c *Coordinator) recordFailure(ctx context.Context, entityType models.EntityType, entityID string, cause error) {
	var retryAfter time.Time
	if services.IsTransient(cause) {
		retryAfter = time.Now().Add(c.cfg.RetryBackoff)
	}
	// Failure bookkeeping must not itself be lost to a dead context
	if err := c.syncStates.MarkFailed(context.WithoutCancel(ctx), entityType, entityID, cause, retryAfter); err != nil {
		slog.Error("Failed to record sync failure", "entityType", entityType, "entityID", entityID, "error", err)
	}
}

// Provider fetches, all passing through the freshness cache so repeated
// syncs inside a staleness window cost no network calls.

func (c *Coordinator) fetchArtistInfo(ctx context.Context, spotifyID, name string, force bool) (*services.ArtistInfo, error) {
	if spotifyID == "" {
		if name == "" {
			return nil, fmt.Errorf("%w: artist sync requires an external id or name", ErrInvalidRequest)
		}
		return cachedFetch(ctx, c, "provider:spotify:search:"+name, c.cfg.ArtistStaleness, force, func(ctx context.Context) (*services.ArtistInfo, error) {
			return c.artistProvider.SearchArtist(ctx, name)
		})
	}

	return cachedFetch(ctx, c, "provider:spotify:artist:"+spotifyID, c.cfg.ArtistStaleness, force, func(ctx context.Context) (*services.ArtistInfo, error) {
		return c.artistProvider.GetArtistByID(ctx, spotifyID)
	})
}

func (c *Coordinator) fetchTopTracks(ctx context.Context, spotifyID string, force bool) ([]services.TrackInfo, error) {
	tracks, err := cachedFetch(ctx, c, "provider:spotify:toptracks:"+spotifyID, c.cfg.ArtistStaleness, force, func(ctx context.Context) (*[]services.TrackInfo, error) {
		t, err := c.artistProvider.GetTopTracks(ctx, spotifyID)
		if err != nil {
			return nil, err
		}
		return &t, nil
	})
	if err != nil {
		return nil, err
	}
	return *tracks, nil
}

func (c *Coordinator) fetchVenueInfo(ctx context.Context, ticketmasterID string, force bool) (*services.VenueInfo, error) {
	return cachedFetch(ctx, c, "provider:ticketmaster:venue:"+ticketmasterID, c.cfg.VenueStaleness, force, func(ctx context.Context) (*services.VenueInfo, error) {
		return c.eventProvider.GetVenue(ctx, ticketmasterID)
	})
}

func (c *Coordinator) fetchEventInfo(ctx context.Context, ticketmasterID string, force bool) (*services.EventInfo, error) {
	return cachedFetch(ctx, c, "provider:ticketmaster:event:"+ticketmasterID, c.cfg.ArtistStaleness, force, func(ctx context.Context) (*services.EventInfo, error) {
		return c.eventProvider.GetEvent(ctx, ticketmasterID)
	})
}

// cachedFetch runs fetch through the outbound rate limiter and the
// freshness cache, JSON-encoding the payload for the cache backend
func cachedFetch[T any](ctx context.Context, c *Coordinator, key string, ttl time.Duration, force bool, fetch func(context.Context) (*T, error)) (*T, error) {
	if force {
		if err := c.fresh.Invalidate(ctx, key); err != nil {
			slog.Warn("Failed to invalidate cache entry", "key", key, "error", err)
		}
	}

	payload, err := c.fresh.GetOrCompute(ctx, key, ttl, func(ctx context.Context) ([]byte, error) {
		if c.outbound != nil && !c.outbound.Admit("outbound") {
			return nil, &services.ProviderError{
				Provider: "outbound", Operation: "fetch " + key,
				Kind: services.KindRateLimited, Message: "outbound rate limit reached",
			}
		}
		value, err := fetch(ctx)
		if err != nil {
			return nil, err
		}
		return json.Marshal(value)
	})
	if err != nil {
		return nil, err
	}

	var value T
	if err := json.Unmarshal(payload, &value); err != nil {
		return nil, fmt.Errorf("failed to decode cached payload for %s: %w", key, err)
	}
	return &value, nil
}

func toCatalogTracks(tracks []services.TrackInfo) []models.CatalogTrack {
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
	return catalog
}
