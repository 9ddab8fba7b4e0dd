package services

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/oauth2/clientcredentials"
)

// spotifyService implements ArtistProvider for Spotify
type spotifyService struct {
	client      *resty.Client
	tokenSource *clientcredentials.Config
	accessToken string
	tokenExpiry time.Time
	mu          sync.RWMutex

	apiURL string
}

// Spotify API endpoints
const (
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyAPIURL   = "https://api.spotify.com/v1"
)

// NewSpotifyService creates a new Spotify artist provider
func NewSpotifyService(clientID, clientSecret string) ArtistProvider {
	tokenSource := &clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     spotifyTokenURL,
	}

	client := resty.New().
		SetTimeout(10 * time.Second).
		SetRetryCount(3).
		SetRetryWaitTime(1 * time.Second).
		SetRetryMaxWaitTime(5 * time.Second)

	return &spotifyService{
		client:      client,
		tokenSource: tokenSource,
		apiURL:      spotifyAPIURL,
	}
}

// GetProviderName returns the provider name
func (s *spotifyService) GetProviderName() string {
	return "spotify"
}

// GetArtistByID fetches artist details from the Spotify API
func (s *spotifyService) GetArtistByID(ctx context.Context, artistID string) (*ArtistInfo, error) {
	if err := s.ensureValidToken(ctx); err != nil {
		return nil, err
	}

	var spotifyArtist SpotifyArtist
	resp, err := s.client.R().
		SetContext(ctx).
		SetAuthToken(s.token()).
		SetResult(&spotifyArtist).
		Get(fmt.Sprintf("%s/artists/%s", s.apiURL, artistID))

	if err != nil {
		return nil, &ProviderError{
			Provider:  "spotify",
			Operation: "get_artist",
			Kind:      KindTransient,
			Message:   "request failed",
			Err:       err,
		}
	}

	if err := s.checkStatus(resp, "get_artist"); err != nil {
		return nil, err
	}

	return convertSpotifyArtist(&spotifyArtist), nil
}

// SearchArtist finds the best-matching Spotify artist for a name
func (s *spotifyService) SearchArtist(ctx context.Context, name string) (*ArtistInfo, error) {
	if err := s.ensureValidToken(ctx); err != nil {
		return nil, err
	}

	var searchResult spotifyArtistSearchResult
	resp, err := s.client.R().
		SetContext(ctx).
		SetAuthToken(s.token()).
		SetQueryParams(map[string]string{
			"q":     name,
			"type":  "artist",
			"limit": "1",
		}).
		SetResult(&searchResult).
		Get(fmt.Sprintf("%s/search", s.apiURL))

	if err != nil {
		return nil, &ProviderError{
			Provider:  "spotify",
			Operation: "search_artist",
			Kind:      KindTransient,
			Message:   "request failed",
			Err:       err,
		}
	}

	if err := s.checkStatus(resp, "search_artist"); err != nil {
		return nil, err
	}

	if len(searchResult.Artists.Items) == 0 {
		return nil, &ProviderError{
			Provider:  "spotify",
			Operation: "search_artist",
			Kind:      KindNotFound,
			Message:   "no artist found for " + name,
		}
	}

	return convertSpotifyArtist(&searchResult.Artists.Items[0]), nil
}

// GetTopTracks fetches the artist's most popular tracks
func (s *spotifyService) GetTopTracks(ctx context.Context, artistID string) ([]TrackInfo, error) {
	if err := s.ensureValidToken(ctx); err != nil {
		return nil, err
	}

	var topTracks spotifyTopTracksResult
	resp, err := s.client.R().
		SetContext(ctx).
		SetAuthToken(s.token()).
		SetQueryParam("market", "US").
		SetResult(&topTracks).
		Get(fmt.Sprintf("%s/artists/%s/top-tracks", s.apiURL, artistID))

	if err != nil {
		return nil, &ProviderError{
			Provider:  "spotify",
			Operation: "get_top_tracks",
			Kind:      KindTransient,
			Message:   "request failed",
			Err:       err,
		}
	}

	if err := s.checkStatus(resp, "get_top_tracks"); err != nil {
		return nil, err
	}

	tracks := make([]TrackInfo, 0, len(topTracks.Tracks))
	for _, track := range topTracks.Tracks {
		tracks = append(tracks, convertSpotifyTrack(&track))
	}

	return tracks, nil
}

// Health checks Spotify API health
func (s *spotifyService) Health(ctx context.Context) error {
	return s.ensureValidToken(ctx)
}

func (s *spotifyService) token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.accessToken
}

// ensureValidToken ensures we have a valid access token
func (s *spotifyService) ensureValidToken(ctx context.Context) error {
	s.mu.RLock()
	if s.accessToken != "" && time.Now().Before(s.tokenExpiry) {
		s.mu.RUnlock()
		return nil
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()

	// Double-check after acquiring write lock
	if s.accessToken != "" && time.Now().Before(s.tokenExpiry) {
		return nil
	}

	if s.tokenSource.ClientID == "" || s.tokenSource.ClientSecret == "" {
		return &ProviderError{
			Provider:  "spotify",
			Operation: "auth",
			Kind:      KindConfiguration,
			Message:   "missing client credentials",
		}
	}

	token, err := s.tokenSource.Token(ctx)
	if err != nil {
		return &ProviderError{
			Provider:  "spotify",
			Operation: "auth",
			Kind:      KindTransient,
			Message:   "failed to get access token",
			Err:       err,
		}
	}

	s.accessToken = token.AccessToken
	s.tokenExpiry = token.Expiry

	slog.Info("Spotify access token refreshed", "expires_at", token.Expiry)

	return nil
}

// checkStatus maps a non-200 response to the error taxonomy
func (s *spotifyService) checkStatus(resp *resty.Response, operation string) error {
	switch {
	case resp.StatusCode() == http.StatusOK:
		return nil
	case resp.StatusCode() == http.StatusNotFound:
		return &ProviderError{
			Provider:  "spotify",
			Operation: operation,
			Kind:      KindNotFound,
			Message:   "not found",
		}
	case resp.StatusCode() == http.StatusTooManyRequests:
		return &ProviderError{
			Provider:  "spotify",
			Operation: operation,
			Kind:      KindRateLimited,
			Message:   "rate limited by provider",
		}
	case resp.StatusCode() == http.StatusUnauthorized || resp.StatusCode() == http.StatusForbidden:
		return &ProviderError{
			Provider:  "spotify",
			Operation: operation,
			Kind:      KindConfiguration,
			Message:   fmt.Sprintf("API returned status %d", resp.StatusCode()),
		}
	default:
		return &ProviderError{
			Provider:  "spotify",
			Operation: operation,
			Kind:      KindTransient,
			Message:   fmt.Sprintf("API returned status %d", resp.StatusCode()),
		}
	}
}

// convertSpotifyArtist converts a Spotify API response to ArtistInfo
func convertSpotifyArtist(artist *SpotifyArtist) *ArtistInfo {
	var imageURL string
	if len(artist.Images) > 0 {
		imageURL = artist.Images[0].URL
		for _, img := range artist.Images {
			if img.Width >= 300 && img.Width <= 640 {
				imageURL = img.URL
				break
			}
		}
	}

	return &ArtistInfo{
		ExternalID: artist.ID,
		Name:       artist.Name,
		Popularity: artist.Popularity,
		Genres:     artist.Genres,
		ImageURL:   imageURL,
	}
}

// convertSpotifyTrack converts a Spotify API response to TrackInfo
func convertSpotifyTrack(track *SpotifyTrack) TrackInfo {
	var imageURL string
	if len(track.Album.Images) > 0 {
		imageURL = track.Album.Images[0].URL
	}

	return TrackInfo{
		ExternalID: track.ID,
		Title:      track.Name,
		DurationMs: track.DurationMs,
		PreviewURL: track.PreviewURL,
		ImageURL:   imageURL,
	}
}

// Spotify API response structures
type SpotifyArtist struct {
	ID         string         `json:"id"`
	Name       string         `json:"name"`
	Popularity int            `json:"popularity"`
	Genres     []string       `json:"genres"`
	Images     []SpotifyImage `json:"images"`
}

type SpotifyTrack struct {
	ID         string       `json:"id"`
	Name       string       `json:"name"`
	DurationMs int          `json:"duration_ms"`
	PreviewURL string       `json:"preview_url"`
	Album      SpotifyAlbum `json:"album"`
}

type SpotifyAlbum struct {
	ID     string         `json:"id"`
	Name   string         `json:"name"`
	Images []SpotifyImage `json:"images"`
}

type SpotifyImage struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

type spotifyArtistSearchResult struct {
	Artists spotifyArtistPaging `json:"artists"`
}

type spotifyArtistPaging struct {
	Items []SpotifyArtist `json:"items"`
	Total int             `json:"total"`
}

type spotifyTopTracksResult struct {
	Tracks []SpotifyTrack `json:"tracks"`
}
