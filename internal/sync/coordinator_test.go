package sync

import (
	"context"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"showvote/internal/cache"
	"showvote/internal/models"
	"showvote/internal/repositories"
	"showvote/internal/services"
	"showvote/internal/testutil"
)

type coordinatorMocks struct {
	artists        *testutil.MockArtistRepository
	venues         *testutil.MockVenueRepository
	shows          *testutil.MockShowRepository
	setlists       *testutil.MockSetlistRepository
	states         *testutil.MockSyncStateRepository
	artistProvider *testutil.MockArtistProvider
	eventProvider  *testutil.MockEventProvider
}

func newTestCoordinator(budget time.Duration, queue Enqueuer) (*Coordinator, *coordinatorMocks) {
	m := &coordinatorMocks{
		artists:        &testutil.MockArtistRepository{},
		venues:         &testutil.MockVenueRepository{},
		shows:          &testutil.MockShowRepository{},
		setlists:       &testutil.MockSetlistRepository{},
		states:         &testutil.MockSyncStateRepository{},
		artistProvider: &testutil.MockArtistProvider{},
		eventProvider:  &testutil.MockEventProvider{},
	}

	m.states.On("MarkInProgress", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	m.states.On("MarkCompleted", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	m.states.On("MarkFailed", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)

	seeder := NewSeeder(m.setlists, m.artists, m.artistProvider, 5, rand.New(rand.NewSource(1)))
	fresh := cache.NewFreshnessCache(cache.NewMemoryCache())

	coordinator := NewCoordinator(
		m.artists, m.venues, m.shows, m.states,
		m.artistProvider, m.eventProvider,
		seeder, fresh, nil, queue,
		CoordinatorConfig{
			ArtistStaleness: 24 * time.Hour,
			VenueStaleness:  720 * time.Hour,
			Budget:          budget,
		},
	)
	return coordinator, m
}

type fakeQueue struct {
	mu   sync.Mutex
	reqs []Request
}

func (q *fakeQueue) Enqueue(req Request) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.reqs = append(q.reqs, req)
	return true
}

func (q *fakeQueue) requests() []Request {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]Request(nil), q.reqs...)
}

func TestCoordinator_SyncArtistCreatesRow(t *testing.T) {
	coordinator, m := newTestCoordinator(10*time.Second, nil)

	placeholder := testutil.NewArtistBuilder().WithSpotifyID("sp-1").Build()
	merged := testutil.NewArtistBuilder().
		WithID(placeholder.ID).
		WithSpotifyID("sp-1").
		WithLastSyncedAt(time.Now()).
		Build()

	m.artists.On("FindBySpotifyID", mock.Anything, "sp-1").Return(nil, nil).Once()
	m.artistProvider.On("GetArtistByID", mock.Anything, "sp-1").
		Return(&services.ArtistInfo{ExternalID: "sp-1", Name: "Test Artist", Popularity: 80}, nil).Once()
	m.artistProvider.On("GetTopTracks", mock.Anything, "sp-1").
		Return([]services.TrackInfo{{ExternalID: "t1", Title: "Song One"}}, nil).Once()
	m.artists.On("EnsurePlaceholder", mock.Anything, "sp-1", "").Return(placeholder, nil).Once()
	m.artists.On("MergeProviderData", mock.Anything, placeholder.ID, mock.MatchedBy(func(u repositories.ArtistProviderUpdate) bool {
		return u.SpotifyID == "sp-1" && u.Name == "Test Artist" && u.Popularity == 80 && len(u.CatalogTracks) == 1
	})).Return(merged, nil).Once()

	result, err := coordinator.Sync(context.Background(), Request{
		EntityType: models.EntityTypeArtist,
		ExternalID: "sp-1",
	})

	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, result.Status)
	assert.Equal(t, merged, result.Entity)
	m.states.AssertCalled(t, "MarkCompleted", mock.Anything, models.EntityTypeArtist, "sp-1")
}

func TestCoordinator_SyncArtistIdempotent(t *testing.T) {
	coordinator, m := newTestCoordinator(10*time.Second, nil)

	placeholder := testutil.NewArtistBuilder().WithSpotifyID("sp-1").Build()
	merged := testutil.NewArtistBuilder().
		WithID(placeholder.ID).
		WithSpotifyID("sp-1").
		WithLastSyncedAt(time.Now()).
		Build()

	m.artists.On("FindBySpotifyID", mock.Anything, "sp-1").Return(nil, nil).Once()
	m.artists.On("FindBySpotifyID", mock.Anything, "sp-1").Return(merged, nil)
	m.artistProvider.On("GetArtistByID", mock.Anything, "sp-1").
		Return(&services.ArtistInfo{ExternalID: "sp-1", Name: "Test Artist"}, nil).Once()
	m.artistProvider.On("GetTopTracks", mock.Anything, "sp-1").
		Return([]services.TrackInfo{}, nil).Once()
	m.artists.On("EnsurePlaceholder", mock.Anything, "sp-1", "").Return(placeholder, nil).Once()
	m.artists.On("MergeProviderData", mock.Anything, placeholder.ID, mock.Anything).Return(merged, nil).Once()

	req := Request{EntityType: models.EntityTypeArtist, ExternalID: "sp-1"}

	first, err := coordinator.Sync(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, first.Status)

	// No upstream change within the staleness window: same row, no new
	// provider call (the Once expectations above would reject one)
	second, err := coordinator.Sync(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, StatusSkipped, second.Status)
	assert.Equal(t, first.Entity.(*models.Artist).ID, second.Entity.(*models.Artist).ID)
}

func TestCoordinator_SyncArtistFreshRowSkipsProvider(t *testing.T) {
	coordinator, m := newTestCoordinator(10*time.Second, nil)

	fresh := testutil.NewArtistBuilder().WithSpotifyID("sp-1").WithLastSyncedAt(time.Now()).Build()
	m.artists.On("FindBySpotifyID", mock.Anything, "sp-1").Return(fresh, nil)

	result, err := coordinator.Sync(context.Background(), Request{
		EntityType: models.EntityTypeArtist,
		ExternalID: "sp-1",
	})

	require.NoError(t, err)
	assert.Equal(t, StatusSkipped, result.Status)
	m.artistProvider.AssertNotCalled(t, "GetArtistByID", mock.Anything, mock.Anything)
}

func TestCoordinator_SyncArtistNotFoundUpstream(t *testing.T) {
	coordinator, m := newTestCoordinator(10*time.Second, nil)

	m.artists.On("FindBySpotifyID", mock.Anything, "sp-missing").Return(nil, nil)
	m.artists.On("EnsurePlaceholder", mock.Anything, "sp-missing", "").
		Return(testutil.NewArtistBuilder().WithSpotifyID("sp-missing").Build(), nil)
	m.artistProvider.On("GetArtistByID", mock.Anything, "sp-missing").
		Return(nil, &services.ProviderError{
			Provider: "spotify", Operation: "get artist", Kind: services.KindNotFound,
		})

	_, err := coordinator.Sync(context.Background(), Request{
		EntityType: models.EntityTypeArtist,
		ExternalID: "sp-missing",
	})

	require.Error(t, err)
	assert.True(t, services.IsNotFound(err))
	// Not-found is never retried: no retry-after on the failure record
	m.states.AssertCalled(t, "MarkFailed", mock.Anything, models.EntityTypeArtist, "sp-missing",
		mock.Anything, mock.MatchedBy(func(retryAfter time.Time) bool { return retryAfter.IsZero() }))
}

func TestCoordinator_ArtistRowReservedBeforeFetch(t *testing.T) {
	coordinator, m := newTestCoordinator(10*time.Second, nil)

	placeholder := testutil.NewArtistBuilder().WithSpotifyID("sp-1").Build()

	m.artists.On("FindBySpotifyID", mock.Anything, "sp-1").Return(nil, nil)
	m.artists.On("EnsurePlaceholder", mock.Anything, "sp-1", "").Return(placeholder, nil)
	m.artistProvider.On("GetArtistByID", mock.Anything, "sp-1").
		Return(nil, &services.ProviderError{
			Provider: "spotify", Operation: "get artist", Kind: services.KindTransient,
		})

	_, err := coordinator.Sync(context.Background(), Request{
		EntityType: models.EntityTypeArtist,
		ExternalID: "sp-1",
	})

	// The fetch failed, but the identity row was reserved first so retries
	// and failure state have something to attach to
	require.Error(t, err)
	m.artists.AssertCalled(t, "EnsurePlaceholder", mock.Anything, "sp-1", "")
	m.states.AssertCalled(t, "MarkFailed", mock.Anything, models.EntityTypeArtist, "sp-1",
		mock.Anything, mock.Anything)
}

func TestCoordinator_VenueRowReservedBeforeFetch(t *testing.T) {
	coordinator, m := newTestCoordinator(10*time.Second, nil)

	venue := models.NewVenue("")
	venue.ID = primitive.NewObjectID()
	venue.TicketmasterID = "tm-v1"

	m.venues.On("FindByTicketmasterID", mock.Anything, "tm-v1").Return(nil, nil)
	m.venues.On("EnsurePlaceholder", mock.Anything, "tm-v1", "").Return(venue, nil)
	m.eventProvider.On("GetVenue", mock.Anything, "tm-v1").
		Return(nil, &services.ProviderError{
			Provider: "ticketmaster", Operation: "get venue", Kind: services.KindTransient,
		})

	_, err := coordinator.Sync(context.Background(), Request{
		EntityType: models.EntityTypeVenue,
		ExternalID: "tm-v1",
	})

	require.Error(t, err)
	m.venues.AssertCalled(t, "EnsurePlaceholder", mock.Anything, "tm-v1", "")
	m.states.AssertCalled(t, "MarkFailed", mock.Anything, models.EntityTypeVenue, "tm-v1",
		mock.Anything, mock.Anything)
}

func TestCoordinator_InvalidRequest(t *testing.T) {
	coordinator, _ := newTestCoordinator(10*time.Second, nil)

	_, err := coordinator.Sync(context.Background(), Request{EntityType: "playlist"})
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = coordinator.Sync(context.Background(), Request{EntityType: models.EntityTypeArtist})
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func showEvent() *services.EventInfo {
	return &services.EventInfo{
		ExternalID: "tm-e1",
		Name:       "Test Artist at The Fillmore",
		ArtistName: "Test Artist",
		Date:       time.Date(2026, 10, 1, 20, 0, 0, 0, time.UTC),
		Venue:      &services.VenueInfo{ExternalID: "tm-v1", Name: "The Fillmore"},
	}
}

// expectArtistCascade wires the mocks for a full artist dependency sync
// resolved by name: the placeholder is name-keyed, the merge attaches the
// spotify id the search resolved
func expectArtistCascade(m *coordinatorMocks, artist *models.Artist) {
	m.artists.On("FindByName", mock.Anything, "Test Artist").Return(nil, nil)
	m.artists.On("EnsurePlaceholder", mock.Anything, "", "Test Artist").Return(artist, nil)
	m.artistProvider.On("SearchArtist", mock.Anything, "Test Artist").
		Return(&services.ArtistInfo{ExternalID: "sp-1", Name: "Test Artist"}, nil)
	m.artistProvider.On("GetTopTracks", mock.Anything, "sp-1").
		Return([]services.TrackInfo{{ExternalID: "t1", Title: "Song One"}}, nil)
	m.artists.On("MergeProviderData", mock.Anything, artist.ID, mock.MatchedBy(func(u repositories.ArtistProviderUpdate) bool {
		return u.SpotifyID == "sp-1"
	})).Return(artist, nil)
}

func TestCoordinator_ShowCascadePartialVenueFailure(t *testing.T) {
	coordinator, m := newTestCoordinator(10*time.Second, nil)

	artist := testutil.NewArtistBuilder().
		WithSpotifyID("sp-1").
		WithLastSyncedAt(time.Now()).
		WithCatalogTracks(testutil.CatalogTracks(8)...).
		Build()
	venue := models.NewVenue("The Fillmore")
	venue.ID = primitive.NewObjectID()
	venue.TicketmasterID = "tm-v1"

	event := showEvent()
	show := models.NewShow(artist.ID, venue.ID, event.Date)
	show.ID = primitive.NewObjectID()
	show.TicketmasterID = "tm-e1"

	m.shows.On("FindByTicketmasterID", mock.Anything, "tm-e1").Return(nil, nil)
	m.eventProvider.On("GetEvent", mock.Anything, "tm-e1").Return(event, nil)

	expectArtistCascade(m, artist)

	// Venue detail fetch times out; the show must still land, linked to the
	// venue row reserved before the fetch
	m.venues.On("FindByTicketmasterID", mock.Anything, "tm-v1").Return(nil, nil)
	m.venues.On("EnsurePlaceholder", mock.Anything, "tm-v1", "").Return(venue, nil)
	m.eventProvider.On("GetVenue", mock.Anything, "tm-v1").Return(nil, &services.ProviderError{
		Provider: "ticketmaster", Operation: "get venue", Kind: services.KindTransient,
	})
	m.venues.On("EnsurePlaceholder", mock.Anything, "tm-v1", "The Fillmore").Return(venue, nil)

	m.shows.On("EnsureShow", mock.Anything, "tm-e1", artist.ID, venue.ID, event.Date).Return(show, nil)
	m.shows.On("MergeProviderData", mock.Anything, show.ID, mock.Anything).Return(show, nil)

	setlist := models.NewSetlist(show.ID, artist.ID)
	m.setlists.On("FindByShowID", mock.Anything, show.ID).Return(nil, nil)
	m.setlists.On("Create", mock.Anything, mock.AnythingOfType("*models.Setlist")).
		Run(func(args mock.Arguments) {
			args.Get(1).(*models.Setlist).ID = setlist.ID
		}).Return(true, nil)
	m.artists.On("FindByID", mock.Anything, artist.ID.Hex()).Return(artist, nil)
	m.setlists.On("InsertSongs", mock.Anything, mock.Anything).Return(nil)

	result, err := coordinator.Sync(context.Background(), Request{
		EntityType: models.EntityTypeShow,
		ExternalID: "tm-e1",
	})

	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, result.Status)
	assert.Equal(t, StatusFailed, result.Dependencies["venue"].Status)
	assert.Equal(t, StatusCompleted, result.Dependencies["artist"].Status)
	assert.Equal(t, StatusCompleted, result.Dependencies["setlist"].Status)

	// Transient venue failure carries a retry-after for the sweeper
	m.states.AssertCalled(t, "MarkFailed", mock.Anything, models.EntityTypeVenue, "tm-v1",
		mock.Anything, mock.MatchedBy(func(retryAfter time.Time) bool { return !retryAfter.IsZero() }))
	m.states.AssertCalled(t, "MarkCompleted", mock.Anything, models.EntityTypeShow, "tm-e1")
}

func TestCoordinator_ShowSkipDependencies(t *testing.T) {
	coordinator, m := newTestCoordinator(10*time.Second, nil)

	artist := testutil.NewArtistBuilder().WithName("Test Artist").Build()
	venue := models.NewVenue("The Fillmore")
	venue.ID = primitive.NewObjectID()

	event := showEvent()
	show := models.NewShow(artist.ID, venue.ID, event.Date)
	show.ID = primitive.NewObjectID()

	m.shows.On("FindByTicketmasterID", mock.Anything, "tm-e1").Return(nil, nil)
	m.eventProvider.On("GetEvent", mock.Anything, "tm-e1").Return(event, nil)
	m.artists.On("EnsurePlaceholder", mock.Anything, "", "Test Artist").Return(artist, nil)
	m.venues.On("EnsurePlaceholder", mock.Anything, "tm-v1", "The Fillmore").Return(venue, nil)
	m.shows.On("EnsureShow", mock.Anything, "tm-e1", artist.ID, venue.ID, event.Date).Return(show, nil)
	m.shows.On("MergeProviderData", mock.Anything, show.ID, mock.Anything).Return(show, nil)

	result, err := coordinator.Sync(context.Background(), Request{
		EntityType: models.EntityTypeShow,
		ExternalID: "tm-e1",
		Options:    Options{SkipDependencies: true},
	})

	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, result.Status)
	assert.Equal(t, StatusSkipped, result.Dependencies["artist"].Status)
	assert.Equal(t, StatusSkipped, result.Dependencies["venue"].Status)
	m.artistProvider.AssertNotCalled(t, "SearchArtist", mock.Anything, mock.Anything)
	m.setlists.AssertNotCalled(t, "FindByShowID", mock.Anything, mock.Anything)
}

func TestCoordinator_ShowBudgetDefersCascade(t *testing.T) {
	queue := &fakeQueue{}
	coordinator, m := newTestCoordinator(time.Nanosecond, queue)

	artist := testutil.NewArtistBuilder().WithName("Test Artist").Build()
	venue := models.NewVenue("The Fillmore")
	venue.ID = primitive.NewObjectID()

	event := showEvent()
	show := models.NewShow(artist.ID, venue.ID, event.Date)
	show.ID = primitive.NewObjectID()
	show.TicketmasterID = "tm-e1"

	m.shows.On("FindByTicketmasterID", mock.Anything, "tm-e1").Return(nil, nil)
	m.eventProvider.On("GetEvent", mock.Anything, "tm-e1").Return(event, nil)
	m.artists.On("EnsurePlaceholder", mock.Anything, "", "Test Artist").Return(artist, nil)
	m.venues.On("EnsurePlaceholder", mock.Anything, "tm-v1", "The Fillmore").Return(venue, nil)
	m.shows.On("EnsureShow", mock.Anything, "tm-e1", artist.ID, venue.ID, event.Date).Return(show, nil)
	m.shows.On("MergeProviderData", mock.Anything, show.ID, mock.Anything).Return(show, nil)

	result, err := coordinator.Sync(context.Background(), Request{
		EntityType: models.EntityTypeShow,
		ExternalID: "tm-e1",
	})

	require.NoError(t, err)
	assert.Equal(t, StatusDeferred, result.Status)
	assert.Equal(t, StatusDeferred, result.Dependencies["artist"].Status)
	assert.Equal(t, StatusDeferred, result.Dependencies["venue"].Status)
	assert.Equal(t, StatusDeferred, result.Dependencies["setlist"].Status)

	// The queue holds the remaining cascade: artist, venue, and the show
	// re-sync that will run the seeder
	types := map[models.EntityType]int{}
	for _, req := range queue.requests() {
		types[req.EntityType]++
	}
	assert.Equal(t, 1, types[models.EntityTypeArtist])
	assert.Equal(t, 1, types[models.EntityTypeVenue])
	assert.Equal(t, 1, types[models.EntityTypeShow])
}

func TestCoordinator_ConcurrentSyncsJoinOneFlight(t *testing.T) {
	coordinator, m := newTestCoordinator(10*time.Second, nil)

	placeholder := testutil.NewArtistBuilder().WithSpotifyID("sp-1").Build()
	merged := testutil.NewArtistBuilder().
		WithID(placeholder.ID).
		WithSpotifyID("sp-1").
		WithLastSyncedAt(time.Now()).
		Build()

	m.artists.On("FindBySpotifyID", mock.Anything, "sp-1").Return(nil, nil)
	m.artists.On("EnsurePlaceholder", mock.Anything, "sp-1", "").Return(placeholder, nil)
	m.artists.On("MergeProviderData", mock.Anything, placeholder.ID, mock.Anything).Return(merged, nil)
	m.artistProvider.On("GetTopTracks", mock.Anything, "sp-1").Return([]services.TrackInfo{}, nil)

	// At most one provider fetch despite concurrent requests
	m.artistProvider.On("GetArtistByID", mock.Anything, "sp-1").
		Run(func(mock.Arguments) { time.Sleep(50 * time.Millisecond) }).
		Return(&services.ArtistInfo{ExternalID: "sp-1", Name: "Test Artist"}, nil).Once()

	req := Request{EntityType: models.EntityTypeArtist, ExternalID: "sp-1"}

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = coordinator.Sync(context.Background(), req)
		}(i)
	}
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
}
