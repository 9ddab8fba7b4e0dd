package sync

import (
	"context"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"showvote/internal/models"
	"showvote/internal/services"
	"showvote/internal/testutil"
)

func newTestShow() *models.Show {
	show := models.NewShow(primitive.NewObjectID(), primitive.NewObjectID(), time.Now().Add(14*24*time.Hour))
	show.ID = primitive.NewObjectID()
	return show
}

// capturedSongs makes the InsertSongs expectation record what the seeder drew
func capturedSongs(setlists *testutil.MockSetlistRepository, into *[]*models.SetlistSong) {
	setlists.On("InsertSongs", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			*into = args.Get(1).([]*models.SetlistSong)
		}).Return(nil)
}

func TestSeeder_SeedsFromCatalog(t *testing.T) {
	setlists := &testutil.MockSetlistRepository{}
	artists := &testutil.MockArtistRepository{}
	seeder := NewSeeder(setlists, artists, nil, 5, rand.New(rand.NewSource(42)))

	show := newTestShow()
	artist := testutil.NewArtistBuilder().
		WithID(show.ArtistID).
		WithCatalogTracks(testutil.CatalogTracks(10)...).
		Build()

	setlists.On("FindByShowID", mock.Anything, show.ID).Return(nil, nil)
	setlists.On("Create", mock.Anything, mock.AnythingOfType("*models.Setlist")).
		Run(func(args mock.Arguments) {
			args.Get(1).(*models.Setlist).ID = primitive.NewObjectID()
		}).Return(true, nil)
	artists.On("FindByID", mock.Anything, show.ArtistID.Hex()).Return(artist, nil)

	var songs []*models.SetlistSong
	capturedSongs(setlists, &songs)

	setlist, err := seeder.EnsureSeeded(context.Background(), show)

	require.NoError(t, err)
	require.NotNil(t, setlist)
	require.Len(t, songs, 5)

	seen := map[string]bool{}
	for i, song := range songs {
		assert.Equal(t, i+1, song.Position, "positions follow draw order")
		assert.Equal(t, 0, song.VoteCount)
		assert.Equal(t, setlist.ID, song.SetlistID)
		assert.False(t, seen[song.Title], "tracks are distinct")
		seen[song.Title] = true
	}
}

func TestSeeder_DeterministicDraw(t *testing.T) {
	draw := func(seed int64) []string {
		setlists := &testutil.MockSetlistRepository{}
		artists := &testutil.MockArtistRepository{}
		seeder := NewSeeder(setlists, artists, nil, 5, rand.New(rand.NewSource(seed)))

		show := newTestShow()
		artist := testutil.NewArtistBuilder().
			WithID(show.ArtistID).
			WithCatalogTracks(testutil.CatalogTracks(10)...).
			Build()

		setlists.On("FindByShowID", mock.Anything, show.ID).Return(nil, nil)
		setlists.On("Create", mock.Anything, mock.Anything).
			Run(func(args mock.Arguments) {
				args.Get(1).(*models.Setlist).ID = primitive.NewObjectID()
			}).Return(true, nil)
		artists.On("FindByID", mock.Anything, show.ArtistID.Hex()).Return(artist, nil)

		var songs []*models.SetlistSong
		capturedSongs(setlists, &songs)

		_, err := seeder.EnsureSeeded(context.Background(), show)
		require.NoError(t, err)

		titles := make([]string, len(songs))
		for i, song := range songs {
			titles[i] = song.Title
		}
		return titles
	}

	assert.Equal(t, draw(7), draw(7), "same seed draws the same sample")
}

func TestSeeder_ExistingSetlistUntouched(t *testing.T) {
	setlists := &testutil.MockSetlistRepository{}
	artists := &testutil.MockArtistRepository{}
	seeder := NewSeeder(setlists, artists, nil, 5, rand.New(rand.NewSource(1)))

	show := newTestShow()
	existing := models.NewSetlist(show.ID, show.ArtistID)
	existing.ID = primitive.NewObjectID()

	setlists.On("FindByShowID", mock.Anything, show.ID).Return(existing, nil)
	setlists.On("CountSongs", mock.Anything, existing.ID).Return(int64(5), nil)

	setlist, err := seeder.EnsureSeeded(context.Background(), show)

	require.NoError(t, err)
	assert.Equal(t, existing.ID, setlist.ID)
	setlists.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	setlists.AssertNotCalled(t, "InsertSongs", mock.Anything, mock.Anything)
}

func TestSeeder_CreationRaceDoesNotDuplicateSongs(t *testing.T) {
	setlists := &testutil.MockSetlistRepository{}
	artists := &testutil.MockArtistRepository{}
	seeder := NewSeeder(setlists, artists, nil, 5, rand.New(rand.NewSource(1)))

	show := newTestShow()
	winner := models.NewSetlist(show.ID, show.ArtistID)
	winner.ID = primitive.NewObjectID()

	setlists.On("FindByShowID", mock.Anything, show.ID).Return(nil, nil)
	setlists.On("Create", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			*args.Get(1).(*models.Setlist) = *winner
		}).Return(false, nil)
	setlists.On("CountSongs", mock.Anything, winner.ID).Return(int64(5), nil)

	setlist, err := seeder.EnsureSeeded(context.Background(), show)

	require.NoError(t, err)
	assert.Equal(t, winner.ID, setlist.ID)
	setlists.AssertNotCalled(t, "InsertSongs", mock.Anything, mock.Anything)
}

func TestSeeder_ReseedsSetlistLeftEmptyByInterruptedSeeding(t *testing.T) {
	setlists := &testutil.MockSetlistRepository{}
	artists := &testutil.MockArtistRepository{}
	seeder := NewSeeder(setlists, artists, nil, 5, rand.New(rand.NewSource(1)))

	show := newTestShow()
	artist := testutil.NewArtistBuilder().
		WithID(show.ArtistID).
		WithCatalogTracks(testutil.CatalogTracks(10)...).
		Build()
	artists.On("FindByID", mock.Anything, show.ArtistID.Hex()).Return(artist, nil)

	// First attempt: setlist row lands, song insert dies mid-flight
	var orphaned *models.Setlist
	setlists.On("FindByShowID", mock.Anything, show.ID).Return(nil, nil).Once()
	setlists.On("Create", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			orphaned = args.Get(1).(*models.Setlist)
			orphaned.ID = primitive.NewObjectID()
		}).Return(true, nil).Once()
	setlists.On("InsertSongs", mock.Anything, mock.Anything).
		Return(fmt.Errorf("connection reset")).Once()

	_, err := seeder.EnsureSeeded(context.Background(), show)
	require.Error(t, err)

	// Second attempt must notice the empty setlist and seed it
	setlists.On("FindByShowID", mock.Anything, show.ID).Return(orphaned, nil)
	setlists.On("CountSongs", mock.Anything, orphaned.ID).Return(int64(0), nil)

	var songs []*models.SetlistSong
	capturedSongs(setlists, &songs)

	setlist, err := seeder.EnsureSeeded(context.Background(), show)

	require.NoError(t, err)
	assert.Equal(t, orphaned.ID, setlist.ID)
	require.Len(t, songs, 5, "repaired setlist is votable again")
	setlists.AssertNumberOfCalls(t, "Create", 1)
}

func TestSeeder_RefreshesEmptyCatalogFromProvider(t *testing.T) {
	setlists := &testutil.MockSetlistRepository{}
	artists := &testutil.MockArtistRepository{}
	provider := &testutil.MockArtistProvider{}
	seeder := NewSeeder(setlists, artists, provider, 5, rand.New(rand.NewSource(1)))

	show := newTestShow()
	artist := testutil.NewArtistBuilder().WithID(show.ArtistID).WithSpotifyID("sp-1").Build()

	setlists.On("FindByShowID", mock.Anything, show.ID).Return(nil, nil)
	setlists.On("Create", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			args.Get(1).(*models.Setlist).ID = primitive.NewObjectID()
		}).Return(true, nil)
	artists.On("FindByID", mock.Anything, show.ArtistID.Hex()).Return(artist, nil)
	provider.On("GetTopTracks", mock.Anything, "sp-1").Return([]services.TrackInfo{
		{ExternalID: "t1", Title: "Song One"},
		{ExternalID: "t2", Title: "Song Two"},
	}, nil)
	artists.On("SetCatalogTracks", mock.Anything, artist.ID, mock.Anything).Return(nil)

	var songs []*models.SetlistSong
	capturedSongs(setlists, &songs)

	_, err := seeder.EnsureSeeded(context.Background(), show)

	require.NoError(t, err)
	assert.Len(t, songs, 2)
	artists.AssertCalled(t, "SetCatalogTracks", mock.Anything, artist.ID, mock.Anything)
}

func TestSeeder_PlaceholderFallback(t *testing.T) {
	setlists := &testutil.MockSetlistRepository{}
	artists := &testutil.MockArtistRepository{}
	provider := &testutil.MockArtistProvider{}
	seeder := NewSeeder(setlists, artists, provider, 5, rand.New(rand.NewSource(1)))

	show := newTestShow()
	artist := testutil.NewArtistBuilder().WithID(show.ArtistID).WithSpotifyID("sp-1").Build()

	setlists.On("FindByShowID", mock.Anything, show.ID).Return(nil, nil)
	setlists.On("Create", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			args.Get(1).(*models.Setlist).ID = primitive.NewObjectID()
		}).Return(true, nil)
	artists.On("FindByID", mock.Anything, show.ArtistID.Hex()).Return(artist, nil)
	provider.On("GetTopTracks", mock.Anything, "sp-1").Return(nil, &services.ProviderError{
		Provider: "spotify", Operation: "top tracks", Kind: services.KindTransient,
	})

	var songs []*models.SetlistSong
	capturedSongs(setlists, &songs)

	_, err := seeder.EnsureSeeded(context.Background(), show)

	require.NoError(t, err)
	require.Len(t, songs, 5)
	for i, song := range songs {
		assert.Equal(t, fmt.Sprintf("Fan favorite #%d", i+1), song.Title)
		assert.Equal(t, 0, song.VoteCount)
	}
}
