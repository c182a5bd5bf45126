package sources

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"barmap/internal/models"
)

const (
	DefaultPlacesURL = "https://places.googleapis.com/v1"

	searchFieldMask  = "places.displayName,places.id,places.location,places.rating,places.userRatingCount,places.priceLevel,places.types,places.formattedAddress"
	detailsFieldMask = "displayName,formattedAddress,internationalPhoneNumber,rating,userRatingCount,regularOpeningHours,websiteUri,priceLevel,types"
)

// Places searches bars through the Google Places API (New) and can enrich
// them with place details.
type Places struct {
	BaseURL string
	APIKey  string
	Query   string
	// Location bias circle.
	CenterLat  float64
	CenterLng  float64
	Radius     int
	MaxResults int
	// Minimum gap between details calls.
	RateLimit time.Duration
	Client    *http.Client

	mu       sync.Mutex
	lastCall time.Time
}

func NewPlaces(baseURL, apiKey string, radius int, rateLimit time.Duration) *Places {
	if baseURL == "" {
		baseURL = DefaultPlacesURL
	}
	if radius <= 0 {
		radius = 50000
	}
	return &Places{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		APIKey:     apiKey,
		Query:      "bars in Washington DC",
		CenterLat:  38.9072,
		CenterLng:  -77.0369,
		Radius:     radius,
		MaxResults: 20,
		RateLimit:  rateLimit,
		Client:     newHTTPClient(),
	}
}

func (p *Places) Name() string { return models.SourceGoogle }

type searchTextRequest struct {
	TextQuery      string       `json:"textQuery"`
	MaxResultCount int          `json:"maxResultCount"`
	LocationBias   locationBias `json:"locationBias"`
}

type locationBias struct {
	Circle circle `json:"circle"`
}

type circle struct {
	Center latLng `json:"center"`
	Radius int    `json:"radius"`
}

type latLng struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type localizedText struct {
	Text string `json:"text"`
}

type place struct {
	ID               string         `json:"id"`
	DisplayName      *localizedText `json:"displayName"`
	Location         *latLng        `json:"location"`
	Rating           float64        `json:"rating"`
	UserRatingCount  int            `json:"userRatingCount"`
	PriceLevel       string         `json:"priceLevel"`
	Types            []string       `json:"types"`
	FormattedAddress string         `json:"formattedAddress"`
}

type searchTextResponse struct {
	Places []place `json:"places"`
}

// PlaceDetails is the subset of a details response merged into a bar.
type PlaceDetails struct {
	InternationalPhoneNumber string   `json:"internationalPhoneNumber"`
	WebsiteURI               string   `json:"websiteUri"`
	PriceLevel               string   `json:"priceLevel"`
	Types                    []string `json:"types"`
	RegularOpeningHours      struct {
		WeekdayDescriptions []string `json:"weekdayDescriptions"`
	} `json:"regularOpeningHours"`
}

// Fetch runs one text search and returns the places that carry a location.
func (p *Places) Fetch(ctx context.Context) ([]models.Bar, error) {
	if p.APIKey == "" {
		return nil, ErrMissingAPIKey
	}

	body, err := json.Marshal(searchTextRequest{
		TextQuery:      p.Query,
		MaxResultCount: p.MaxResults,
		LocationBias: locationBias{Circle: circle{
			Center: latLng{Latitude: p.CenterLat, Longitude: p.CenterLng},
			Radius: p.Radius,
		}},
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.BaseURL+"/places:searchText", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Goog-FieldMask", searchFieldMask)

	var data searchTextResponse
	if err := p.do(req, &data); err != nil {
		return nil, fmt.Errorf("places search: %w", err)
	}

	bars := make([]models.Bar, 0, len(data.Places))
	for _, pl := range data.Places {
		if bar, ok := placeToBar(pl); ok {
			bars = append(bars, bar)
		}
	}
	logrus.WithField("bars", len(bars)).Info("Places search finished")
	return bars, nil
}

// Details fetches one place. Calls are spaced by RateLimit.
func (p *Places) Details(ctx context.Context, placeID string) (*PlaceDetails, error) {
	if p.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	if err := p.throttle(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.BaseURL+"/places/"+url.PathEscape(placeID), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-Goog-FieldMask", detailsFieldMask)

	var details PlaceDetails
	if err := p.do(req, &details); err != nil {
		return nil, fmt.Errorf("place details %s: %w", placeID, err)
	}
	return &details, nil
}

// Enrich merges place details into bar. Bars without a place id are left as is.
func (p *Places) Enrich(ctx context.Context, bar *models.Bar) error {
	if bar.ExternalID == "" {
		return nil
	}
	d, err := p.Details(ctx, bar.ExternalID)
	if err != nil {
		return err
	}
	bar.Phone = d.InternationalPhoneNumber
	bar.Website = d.WebsiteURI
	bar.OpeningHours = d.RegularOpeningHours.WeekdayDescriptions
	if d.PriceLevel != "" {
		bar.PriceLevel = d.PriceLevel
	}
	if len(d.Types) > 0 {
		bar.Types = d.Types
	}
	return nil
}

func (p *Places) do(req *http.Request, out interface{}) error {
	req.Header.Set("X-Goog-Api-Key", p.APIKey)
	req.Header.Set("User-Agent", userAgent)

	resp, err := p.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return &StatusError{Code: resp.StatusCode, Body: string(body)}
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (p *Places) throttle(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if wait := p.RateLimit - time.Since(p.lastCall); wait > 0 && !p.lastCall.IsZero() {
		t := time.NewTimer(wait)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
	p.lastCall = time.Now()
	return nil
}

func placeToBar(pl place) (models.Bar, bool) {
	if pl.Location == nil {
		return models.Bar{}, false
	}
	name := unnamedBar
	if pl.DisplayName != nil && strings.TrimSpace(pl.DisplayName.Text) != "" {
		name = pl.DisplayName.Text
	}
	return models.Bar{
		Name:             name,
		Lat:              pl.Location.Latitude,
		Lng:              pl.Location.Longitude,
		Source:           models.SourceGoogle,
		ExternalID:       pl.ID,
		Address:          pl.FormattedAddress,
		Rating:           pl.Rating,
		UserRatingsTotal: pl.UserRatingCount,
		PriceLevel:       pl.PriceLevel,
		Types:            pl.Types,
	}, true
}
