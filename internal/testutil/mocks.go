package testutil

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"showvote/internal/models"
	"showvote/internal/realtime"
	"showvote/internal/repositories"
	"showvote/internal/services"
)

// MockArtistRepository is a mock implementation of ArtistRepository for testing
type MockArtistRepository struct {
	mock.Mock
}

func (m *MockArtistRepository) FindByID(ctx context.Context, id string) (*models.Artist, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Artist), args.Error(1)
}

func (m *MockArtistRepository) FindBySpotifyID(ctx context.Context, spotifyID string) (*models.Artist, error) {
	args := m.Called(ctx, spotifyID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Artist), args.Error(1)
}

func (m *MockArtistRepository) FindByName(ctx context.Context, name string) (*models.Artist, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Artist), args.Error(1)
}

func (m *MockArtistRepository) EnsurePlaceholder(ctx context.Context, spotifyID, name string) (*models.Artist, error) {
	args := m.Called(ctx, spotifyID, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Artist), args.Error(1)
}

func (m *MockArtistRepository) MergeProviderData(ctx context.Context, id primitive.ObjectID, update repositories.ArtistProviderUpdate) (*models.Artist, error) {
	args := m.Called(ctx, id, update)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Artist), args.Error(1)
}

func (m *MockArtistRepository) SetCatalogTracks(ctx context.Context, id primitive.ObjectID, tracks []models.CatalogTrack) error {
	args := m.Called(ctx, id, tracks)
	return args.Error(0)
}

func (m *MockArtistRepository) ListStale(ctx context.Context, olderThan time.Time, limit int64) ([]*models.Artist, error) {
	args := m.Called(ctx, olderThan, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Artist), args.Error(1)
}

func (m *MockArtistRepository) Count(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

// MockVenueRepository is a mock implementation of VenueRepository for testing
type MockVenueRepository struct {
	mock.Mock
}

func (m *MockVenueRepository) FindByID(ctx context.Context, id string) (*models.Venue, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Venue), args.Error(1)
}

func (m *MockVenueRepository) FindByTicketmasterID(ctx context.Context, ticketmasterID string) (*models.Venue, error) {
	args := m.Called(ctx, ticketmasterID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Venue), args.Error(1)
}

func (m *MockVenueRepository) EnsurePlaceholder(ctx context.Context, ticketmasterID, name string) (*models.Venue, error) {
	args := m.Called(ctx, ticketmasterID, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Venue), args.Error(1)
}

func (m *MockVenueRepository) MergeProviderData(ctx context.Context, id primitive.ObjectID, update repositories.VenueProviderUpdate) (*models.Venue, error) {
	args := m.Called(ctx, id, update)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Venue), args.Error(1)
}

func (m *MockVenueRepository) ListStale(ctx context.Context, olderThan time.Time, limit int64) ([]*models.Venue, error) {
	args := m.Called(ctx, olderThan, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Venue), args.Error(1)
}

func (m *MockVenueRepository) Count(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

// MockShowRepository is a mock implementation of ShowRepository for testing
type MockShowRepository struct {
	mock.Mock
}

func (m *MockShowRepository) FindByID(ctx context.Context, id string) (*models.Show, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Show), args.Error(1)
}

func (m *MockShowRepository) FindByTicketmasterID(ctx context.Context, ticketmasterID string) (*models.Show, error) {
	args := m.Called(ctx, ticketmasterID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Show), args.Error(1)
}

func (m *MockShowRepository) EnsureShow(ctx context.Context, ticketmasterID string, artistID, venueID primitive.ObjectID, date time.Time) (*models.Show, error) {
	args := m.Called(ctx, ticketmasterID, artistID, venueID, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Show), args.Error(1)
}

func (m *MockShowRepository) MergeProviderData(ctx context.Context, id primitive.ObjectID, update repositories.ShowProviderUpdate) (*models.Show, error) {
	args := m.Called(ctx, id, update)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Show), args.Error(1)
}

func (m *MockShowRepository) ListUpcomingByArtist(ctx context.Context, artistID primitive.ObjectID, limit int64) ([]*models.Show, error) {
	args := m.Called(ctx, artistID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Show), args.Error(1)
}

func (m *MockShowRepository) Count(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

// MockSetlistRepository is a mock implementation of SetlistRepository for testing
type MockSetlistRepository struct {
	mock.Mock
}

func (m *MockSetlistRepository) FindByID(ctx context.Context, id string) (*models.Setlist, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Setlist), args.Error(1)
}

func (m *MockSetlistRepository) FindByShowID(ctx context.Context, showID primitive.ObjectID) (*models.Setlist, error) {
	args := m.Called(ctx, showID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Setlist), args.Error(1)
}

func (m *MockSetlistRepository) Create(ctx context.Context, setlist *models.Setlist) (bool, error) {
	args := m.Called(ctx, setlist)
	return args.Bool(0), args.Error(1)
}

func (m *MockSetlistRepository) InsertSongs(ctx context.Context, songs []*models.SetlistSong) error {
	args := m.Called(ctx, songs)
	return args.Error(0)
}

func (m *MockSetlistRepository) ListSongs(ctx context.Context, setlistID primitive.ObjectID) ([]*models.SetlistSong, error) {
	args := m.Called(ctx, setlistID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.SetlistSong), args.Error(1)
}

func (m *MockSetlistRepository) FindSongByID(ctx context.Context, songID string) (*models.SetlistSong, error) {
	args := m.Called(ctx, songID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SetlistSong), args.Error(1)
}

func (m *MockSetlistRepository) CountSongs(ctx context.Context, setlistID primitive.ObjectID) (int64, error) {
	args := m.Called(ctx, setlistID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockSetlistRepository) RecountSong(ctx context.Context, songID primitive.ObjectID) (int, error) {
	args := m.Called(ctx, songID)
	return args.Int(0), args.Error(1)
}

// MockVoteRepository is a mock implementation of VoteRepository for testing
type MockVoteRepository struct {
	mock.Mock
}

func (m *MockVoteRepository) Record(ctx context.Context, vote *models.Vote, anonCap int) (int, error) {
	args := m.Called(ctx, vote, anonCap)
	return args.Int(0), args.Error(1)
}

func (m *MockVoteRepository) Retract(ctx context.Context, identity string, songID primitive.ObjectID) (int, error) {
	args := m.Called(ctx, identity, songID)
	return args.Int(0), args.Error(1)
}

func (m *MockVoteRepository) FindByIdentityAndSong(ctx context.Context, identity string, songID primitive.ObjectID) (*models.Vote, error) {
	args := m.Called(ctx, identity, songID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Vote), args.Error(1)
}

func (m *MockVoteRepository) CountForShow(ctx context.Context, identity string, showID primitive.ObjectID) (int64, error) {
	args := m.Called(ctx, identity, showID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockVoteRepository) CountForSong(ctx context.Context, songID primitive.ObjectID) (int64, error) {
	args := m.Called(ctx, songID)
	return args.Get(0).(int64), args.Error(1)
}

// MockSyncStateRepository is a mock implementation of SyncStateRepository for testing
type MockSyncStateRepository struct {
	mock.Mock
}

func (m *MockSyncStateRepository) Find(ctx context.Context, entityType models.EntityType, entityID string) (*models.SyncState, error) {
	args := m.Called(ctx, entityType, entityID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.SyncState), args.Error(1)
}

func (m *MockSyncStateRepository) MarkInProgress(ctx context.Context, entityType models.EntityType, entityID string) error {
	args := m.Called(ctx, entityType, entityID)
	return args.Error(0)
}

func (m *MockSyncStateRepository) MarkCompleted(ctx context.Context, entityType models.EntityType, entityID string) error {
	args := m.Called(ctx, entityType, entityID)
	return args.Error(0)
}

func (m *MockSyncStateRepository) MarkFailed(ctx context.Context, entityType models.EntityType, entityID string, cause error, retryAfter time.Time) error {
	args := m.Called(ctx, entityType, entityID, cause, retryAfter)
	return args.Error(0)
}

func (m *MockSyncStateRepository) ListRetryable(ctx context.Context, now time.Time, limit int64) ([]*models.SyncState, error) {
	args := m.Called(ctx, now, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.SyncState), args.Error(1)
}

// MockArtistProvider is a mock implementation of ArtistProvider for testing
type MockArtistProvider struct {
	mock.Mock
}

func (m *MockArtistProvider) GetProviderName() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockArtistProvider) GetArtistByID(ctx context.Context, artistID string) (*services.ArtistInfo, error) {
	args := m.Called(ctx, artistID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.ArtistInfo), args.Error(1)
}

func (m *MockArtistProvider) SearchArtist(ctx context.Context, name string) (*services.ArtistInfo, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.ArtistInfo), args.Error(1)
}

func (m *MockArtistProvider) GetTopTracks(ctx context.Context, artistID string) ([]services.TrackInfo, error) {
	args := m.Called(ctx, artistID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]services.TrackInfo), args.Error(1)
}

func (m *MockArtistProvider) Health(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// MockEventProvider is a mock implementation of EventProvider for testing
type MockEventProvider struct {
	mock.Mock
}

func (m *MockEventProvider) GetProviderName() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockEventProvider) GetEvent(ctx context.Context, eventID string) (*services.EventInfo, error) {
	args := m.Called(ctx, eventID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.EventInfo), args.Error(1)
}

func (m *MockEventProvider) GetUpcomingEvents(ctx context.Context, artistName string) ([]*services.EventInfo, error) {
	args := m.Called(ctx, artistName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*services.EventInfo), args.Error(1)
}

func (m *MockEventProvider) GetVenue(ctx context.Context, venueID string) (*services.VenueInfo, error) {
	args := m.Called(ctx, venueID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*services.VenueInfo), args.Error(1)
}

func (m *MockEventProvider) Health(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// MockPublisher records published realtime events for assertions
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(setlistID string, event realtime.Event) {
	m.Called(setlistID, event)
}
