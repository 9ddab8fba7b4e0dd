package services

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

// ticketmasterService implements EventProvider for the Ticketmaster
// Discovery API (API-key auth, no token exchange)
type ticketmasterService struct {
	client *resty.Client
	apiKey string
	apiURL string
}

const ticketmasterAPIURL = "https://app.ticketmaster.com/discovery/v2"

// NewTicketmasterService creates a new Ticketmaster event provider
func NewTicketmasterService(apiKey string) EventProvider {
	client := resty.New().
		SetTimeout(10 * time.Second).
		SetRetryCount(3).
		SetRetryWaitTime(1 * time.Second).
		SetRetryMaxWaitTime(5 * time.Second)

	return &ticketmasterService{
		client: client,
		apiKey: apiKey,
		apiURL: ticketmasterAPIURL,
	}
}

// GetProviderName returns the provider name
func (s *ticketmasterService) GetProviderName() string {
	return "ticketmaster"
}

// GetEvent fetches a single event by its Ticketmaster ID
func (s *ticketmasterService) GetEvent(ctx context.Context, eventID string) (*EventInfo, error) {
	if err := s.checkCredentials("get_event"); err != nil {
		return nil, err
	}

	var event ticketmasterEvent
	resp, err := s.client.R().
		SetContext(ctx).
		SetQueryParam("apikey", s.apiKey).
		SetResult(&event).
		Get(fmt.Sprintf("%s/events/%s.json", s.apiURL, eventID))

	if err != nil {
		return nil, &ProviderError{
			Provider:  "ticketmaster",
			Operation: "get_event",
			Kind:      KindTransient,
			Message:   "request failed",
			Err:       err,
		}
	}

	if err := s.checkStatus(resp, "get_event"); err != nil {
		return nil, err
	}

	info, err := convertTicketmasterEvent(&event)
	if err != nil {
		return nil, &ProviderError{
			Provider:  "ticketmaster",
			Operation: "get_event",
			Kind:      KindTransient,
			Message:   "malformed event payload",
			Err:       err,
		}
	}

	return info, nil
}

// GetUpcomingEvents lists upcoming events for an artist name, soonest first
func (s *ticketmasterService) GetUpcomingEvents(ctx context.Context, artistName string) ([]*EventInfo, error) {
	if err := s.checkCredentials("get_upcoming_events"); err != nil {
		return nil, err
	}

	var page ticketmasterEventPage
	resp, err := s.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"apikey":         s.apiKey,
			"keyword":        artistName,
			"classification": "music",
			"sort":           "date,asc",
			"size":           "20",
		}).
		SetResult(&page).
		Get(fmt.Sprintf("%s/events.json", s.apiURL))

	if err != nil {
		return nil, &ProviderError{
			Provider:  "ticketmaster",
			Operation: "get_upcoming_events",
			Kind:      KindTransient,
			Message:   "request failed",
			Err:       err,
		}
	}

	if err := s.checkStatus(resp, "get_upcoming_events"); err != nil {
		return nil, err
	}

	events := make([]*EventInfo, 0, len(page.Embedded.Events))
	for i := range page.Embedded.Events {
		info, err := convertTicketmasterEvent(&page.Embedded.Events[i])
		if err != nil {
			// One malformed event should not poison the page
			continue
		}
		events = append(events, info)
	}

	return events, nil
}

// GetVenue fetches a single venue by its Ticketmaster ID
func (s *ticketmasterService) GetVenue(ctx context.Context, venueID string) (*VenueInfo, error) {
	if err := s.checkCredentials("get_venue"); err != nil {
		return nil, err
	}

	var venue ticketmasterVenue
	resp, err := s.client.R().
		SetContext(ctx).
		SetQueryParam("apikey", s.apiKey).
		SetResult(&venue).
		Get(fmt.Sprintf("%s/venues/%s.json", s.apiURL, venueID))

	if err != nil {
		return nil, &ProviderError{
			Provider:  "ticketmaster",
			Operation: "get_venue",
			Kind:      KindTransient,
			Message:   "request failed",
			Err:       err,
		}
	}

	if err := s.checkStatus(resp, "get_venue"); err != nil {
		return nil, err
	}

	return convertTicketmasterVenue(&venue), nil
}

// Health checks that the API key is accepted
func (s *ticketmasterService) Health(ctx context.Context) error {
	if err := s.checkCredentials("health"); err != nil {
		return err
	}

	resp, err := s.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{"apikey": s.apiKey, "size": "1"}).
		Get(fmt.Sprintf("%s/events.json", s.apiURL))
	if err != nil {
		return fmt.Errorf("ticketmaster health check failed: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return fmt.Errorf("ticketmaster health check returned status %d", resp.StatusCode())
	}
	return nil
}

func (s *ticketmasterService) checkCredentials(operation string) error {
	if s.apiKey == "" {
		return &ProviderError{
			Provider:  "ticketmaster",
			Operation: operation,
			Kind:      KindConfiguration,
			Message:   "missing API key",
		}
	}
	return nil
}

func (s *ticketmasterService) checkStatus(resp *resty.Response, operation string) error {
	switch {
	case resp.StatusCode() == http.StatusOK:
		return nil
	case resp.StatusCode() == http.StatusNotFound:
		return &ProviderError{
			Provider:  "ticketmaster",
			Operation: operation,
			Kind:      KindNotFound,
			Message:   "not found",
		}
	case resp.StatusCode() == http.StatusTooManyRequests:
		return &ProviderError{
			Provider:  "ticketmaster",
			Operation: operation,
			Kind:      KindRateLimited,
			Message:   "rate limited by provider",
		}
	case resp.StatusCode() == http.StatusUnauthorized:
		return &ProviderError{
			Provider:  "ticketmaster",
			Operation: operation,
			Kind:      KindConfiguration,
			Message:   "API key rejected",
		}
	default:
		return &ProviderError{
			Provider:  "ticketmaster",
			Operation: operation,
			Kind:      KindTransient,
			Message:   fmt.Sprintf("API returned status %d", resp.StatusCode()),
		}
	}
}

// convertTicketmasterEvent converts a Discovery API event to EventInfo
func convertTicketmasterEvent(event *ticketmasterEvent) (*EventInfo, error) {
	if event.ID == "" {
		return nil, fmt.Errorf("event has no id")
	}

	date, err := time.Parse(time.RFC3339, event.Dates.Start.DateTime)
	if err != nil {
		// Some events only carry a local date
		date, err = time.Parse("2006-01-02", event.Dates.Start.LocalDate)
		if err != nil {
			return nil, fmt.Errorf("event %s has no parseable date: %w", event.ID, err)
		}
	}

	info := &EventInfo{
		ExternalID: event.ID,
		Name:       event.Name,
		Date:       date,
		TicketURL:  event.URL,
	}

	if len(event.Images) > 0 {
		info.ImageURL = event.Images[0].URL
	}

	if len(event.Embedded.Attractions) > 0 {
		info.ArtistName = event.Embedded.Attractions[0].Name
	}

	if len(event.Embedded.Venues) > 0 {
		info.Venue = convertTicketmasterVenue(&event.Embedded.Venues[0])
	}

	return info, nil
}

// convertTicketmasterVenue converts a Discovery API venue to VenueInfo
func convertTicketmasterVenue(venue *ticketmasterVenue) *VenueInfo {
	return &VenueInfo{
		ExternalID: venue.ID,
		Name:       venue.Name,
		City:       venue.City.Name,
		State:      venue.State.StateCode,
		Country:    venue.Country.CountryCode,
	}
}

// Ticketmaster Discovery API response structures
type ticketmasterEventPage struct {
	Embedded struct {
		Events []ticketmasterEvent `json:"events"`
	} `json:"_embedded"`
}

type ticketmasterEvent struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	URL    string `json:"url"`
	Images []struct {
		URL string `json:"url"`
	} `json:"images"`
	Dates struct {
		Start struct {
			DateTime  string `json:"dateTime"`
			LocalDate string `json:"localDate"`
		} `json:"start"`
	} `json:"dates"`
	Embedded struct {
		Venues      []ticketmasterVenue      `json:"venues"`
		Attractions []ticketmasterAttraction `json:"attractions"`
	} `json:"_embedded"`
}

type ticketmasterVenue struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	City struct {
		Name string `json:"name"`
	} `json:"city"`
	State struct {
		StateCode string `json:"stateCode"`
	} `json:"state"`
	Country struct {
		CountryCode string `json:"countryCode"`
	} `json:"country"`
}

type ticketmasterAttraction struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
