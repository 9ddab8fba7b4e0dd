package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all configuration for the application
type Config struct {
	// Application settings
	Port       string `envconfig:"PORT" default:"8080"`
	GinMode    string `envconfig:"GIN_MODE" default:"debug"`
	BaseURL    string `envconfig:"BASE_URL" default:"http://localhost:8080"`
	MongodbURL string `envconfig:"MONGODB_URL" required:"true"`
	DBName     string `envconfig:"DB_NAME" default:"showvote"`
	ValkeyURL  string `envconfig:"VALKEY_URL"`

	// Identity
	JWTSecret        string `envconfig:"JWT_SECRET"`
	RequireAuthVotes bool   `envconfig:"REQUIRE_AUTH_VOTES" default:"false"`

	// Provider credentials
	SpotifyClientID     string `envconfig:"SPOTIFY_CLIENT_ID"`
	SpotifyClientSecret string `envconfig:"SPOTIFY_CLIENT_SECRET"`
	TicketmasterAPIKey  string `envconfig:"TICKETMASTER_API_KEY"`

	// Sync behavior
	ArtistStalenessHours int `envconfig:"ARTIST_STALENESS_HOURS" default:"24"`
	VenueStalenessHours  int `envconfig:"VENUE_STALENESS_HOURS" default:"720"`
	SyncBudgetSeconds    int `envconfig:"SYNC_BUDGET_SECONDS" default:"10"`
	SyncWorkers          int `envconfig:"SYNC_WORKERS" default:"2"`
	SeedSampleSize       int `envconfig:"SEED_SAMPLE_SIZE" default:"5"`

	// Rate limiting (sliding window)
	RateLimitWindowSeconds int `envconfig:"RATE_LIMIT_WINDOW_SECONDS" default:"60"`
	RateLimitRequests      int `envconfig:"RATE_LIMIT_REQUESTS" default:"30"`

	// Voting
	AnonymousVoteCap int `envconfig:"ANONYMOUS_VOTE_CAP" default:"3"`
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks that configured features have complete credentials.
// Missing provider credentials are a fatal configuration error: a sync
// path without credentials must fail at startup, not at request time.
func (c *Config) Validate() error {
	if (c.SpotifyClientID == "") != (c.SpotifyClientSecret == "") {
		return fmt.Errorf("spotify credentials incomplete: both SPOTIFY_CLIENT_ID and SPOTIFY_CLIENT_SECRET are required")
	}

	if c.RateLimitWindowSeconds <= 0 || c.RateLimitRequests <= 0 {
		return fmt.Errorf("rate limit window and threshold must be positive")
	}

	if c.AnonymousVoteCap < 0 {
		return fmt.Errorf("ANONYMOUS_VOTE_CAP cannot be negative")
	}

	if c.SeedSampleSize <= 0 {
		return fmt.Errorf("SEED_SAMPLE_SIZE must be positive")
	}

	return nil
}

// SpotifyEnabled reports whether the Spotify artist provider is configured
func (c *Config) SpotifyEnabled() bool {
	return c.SpotifyClientID != "" && c.SpotifyClientSecret != ""
}

// TicketmasterEnabled reports whether the Ticketmaster event provider is configured
func (c *Config) TicketmasterEnabled() bool {
	return c.TicketmasterAPIKey != ""
}

// ArtistStaleness returns the maximum age before an artist is refreshed
func (c *Config) ArtistStaleness() time.Duration {
	return time.Duration(c.ArtistStalenessHours) * time.Hour
}

// VenueStaleness returns the maximum age before a venue is refreshed
func (c *Config) VenueStaleness() time.Duration {
	return time.Duration(c.VenueStalenessHours) * time.Hour
}

// SyncBudget returns the per-call time budget for a cascade sync
func (c *Config) SyncBudget() time.Duration {
	return time.Duration(c.SyncBudgetSeconds) * time.Second
}

// RateLimitWindow returns the sliding window duration
func (c *Config) RateLimitWindow() time.Duration {
	return time.Duration(c.RateLimitWindowSeconds) * time.Second
}
