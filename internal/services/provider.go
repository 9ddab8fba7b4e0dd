package services

import (
	"context"
	"errors"
	"time"
)

// ErrorKind classifies provider failures so callers can decide between
// aborting, surfacing 404, and scheduling a retry
type ErrorKind string

const (
	// KindConfiguration: missing/invalid credentials. Fatal, never retried.
	KindConfiguration ErrorKind = "configuration"
	// KindNotFound: the entity does not exist upstream. Not retried.
	KindNotFound ErrorKind = "not_found"
	// KindTransient: network errors, timeouts, 5xx. Retried with backoff.
	KindTransient ErrorKind = "transient"
	// KindRateLimited: the provider (or our own outbound limiter) said no.
	KindRateLimited ErrorKind = "rate_limited"
)

// ProviderError represents an error from a provider service
type ProviderError struct {
	Provider  string
	Operation string
	Kind      ErrorKind
	Message   string
	Err       error
}

func (e *ProviderError) Error() string {
	msg := e.Provider + " " + e.Operation + " failed"
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += " - " + e.Err.Error()
	}
	return msg
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err is a provider not-found error
func IsNotFound(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe) && pe.Kind == KindNotFound
}

// IsTransient reports whether err is worth retrying later
func IsTransient(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe) && (pe.Kind == KindTransient || pe.Kind == KindRateLimited)
}

// IsConfiguration reports whether err is a fatal credentials problem
func IsConfiguration(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe) && pe.Kind == KindConfiguration
}

// ArtistInfo is a normalized artist record from a catalog provider
type ArtistInfo struct {
	ExternalID string   `json:"external_id"`
	Name       string   `json:"name"`
	Popularity int      `json:"popularity,omitempty"`
	Genres     []string `json:"genres,omitempty"`
	ImageURL   string   `json:"image_url,omitempty"`
}

// TrackInfo is a normalized track from an artist's catalog
type TrackInfo struct {
	ExternalID string `json:"external_id"`
	Title      string `json:"title"`
	DurationMs int    `json:"duration_ms,omitempty"`
	PreviewURL string `json:"preview_url,omitempty"`
	ImageURL   string `json:"image_url,omitempty"`
}

// VenueInfo is a normalized venue from an event provider
type VenueInfo struct {
	ExternalID string `json:"external_id"`
	Name       string `json:"name"`
	City       string `json:"city,omitempty"`
	State      string `json:"state,omitempty"`
	Country    string `json:"country,omitempty"`
}

// EventInfo is a normalized show from an event provider. The venue comes
// embedded because event providers return it inline; the coordinator decides
// whether to persist it.
type EventInfo struct {
	ExternalID string    `json:"external_id"`
	Name       string    `json:"name"`
	ArtistName string    `json:"artist_name"`
	Date       time.Time `json:"date"`
	TicketURL  string    `json:"ticket_url,omitempty"`
	ImageURL   string    `json:"image_url,omitempty"`
	Venue      *VenueInfo `json:"venue,omitempty"`
}

// ArtistProvider fetches artist facts and catalogs from an external source.
// Implementations are purely functional from the coordinator's perspective:
// no side effects beyond outbound HTTP.
type ArtistProvider interface {
	// GetProviderName returns the name of this provider
	GetProviderName() string

	// GetArtistByID fetches an artist using the provider-specific ID
	GetArtistByID(ctx context.Context, artistID string) (*ArtistInfo, error)

	// SearchArtist finds the best-matching artist for a name
	SearchArtist(ctx context.Context, name string) (*ArtistInfo, error)

	// GetTopTracks fetches the artist's most popular tracks
	GetTopTracks(ctx context.Context, artistID string) ([]TrackInfo, error)

	// Health checks if the provider is reachable and authenticated
	Health(ctx context.Context) error
}

// EventProvider fetches shows and venues from an external source
type EventProvider interface {
	// GetProviderName returns the name of this provider
	GetProviderName() string

	// GetEvent fetches one event using the provider-specific ID
	GetEvent(ctx context.Context, eventID string) (*EventInfo, error)

	// GetUpcomingEvents lists upcoming events for an artist name
	GetUpcomingEvents(ctx context.Context, artistName string) ([]*EventInfo, error)

	// GetVenue fetches one venue using the provider-specific ID
	GetVenue(ctx context.Context, venueID string) (*VenueInfo, error)

	// Health checks if the provider is reachable
	Health(ctx context.Context) error
}
