package sources

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"barmap/internal/models"
)

const searchFixture = `{
  "places": [
    {"id": "place-1", "displayName": {"text": "The Whiskey Room"},
     "location": {"latitude": 38.912, "longitude": -77.045},
     "rating": 4.5, "userRatingCount": 210, "priceLevel": "PRICE_LEVEL_MODERATE",
     "types": ["bar", "point_of_interest"], "formattedAddress": "1 Main St NW, Washington, DC"},
    {"id": "place-2", "location": {"latitude": 38.9, "longitude": -77.03}},
    {"id": "place-3", "displayName": {"text": "Nowhere"}}
  ]
}`

const detailsFixture = `{
  "internationalPhoneNumber": "+1 202-555-0100",
  "websiteUri": "https://whiskey.test",
  "priceLevel": "PRICE_LEVEL_EXPENSIVE",
  "types": ["bar"],
  "regularOpeningHours": {"weekdayDescriptions": ["Monday: Closed", "Tuesday: 6:00 PM – 2:00 AM"]}
}`

func TestPlacesFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/places:searchText" || r.Method != http.MethodPost {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("X-Goog-Api-Key") != "key" {
			t.Errorf("api key header = %q", r.Header.Get("X-Goog-Api-Key"))
		}
		if r.Header.Get("X-Goog-FieldMask") != searchFieldMask {
			t.Errorf("field mask = %q", r.Header.Get("X-Goog-FieldMask"))
		}
		var body searchTextRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
			return
		}
		if body.TextQuery != "bars in Washington DC" || body.MaxResultCount != 20 {
			t.Errorf("body = %+v", body)
		}
		if body.LocationBias.Circle.Center.Latitude != 38.9072 || body.LocationBias.Circle.Radius != 50000 {
			t.Errorf("location bias = %+v", body.LocationBias)
		}
		w.Write([]byte(searchFixture))
	}))
	defer srv.Close()

	p := NewPlaces(srv.URL, "key", 0, 0)
	bars, err := p.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(bars) != 2 {
		t.Fatalf("bars = %d, want 2", len(bars))
	}
	b := bars[0]
	if b.Name != "The Whiskey Room" || b.ExternalID != "place-1" || b.Source != models.SourceGoogle {
		t.Errorf("bar = %+v", b)
	}
	if b.Rating != 4.5 || b.UserRatingsTotal != 210 || b.Address != "1 Main St NW, Washington, DC" {
		t.Errorf("details = %+v", b)
	}
	if bars[1].Name != "Unnamed Bar" {
		t.Errorf("unnamed = %q", bars[1].Name)
	}
}

func TestPlacesMissingKey(t *testing.T) {
	p := NewPlaces("http://unused.invalid", "", 0, 0)
	if _, err := p.Fetch(context.Background()); !errors.Is(err, ErrMissingAPIKey) {
		t.Errorf("Fetch err = %v", err)
	}
	if _, err := p.Details(context.Background(), "x"); !errors.Is(err, ErrMissingAPIKey) {
		t.Errorf("Details err = %v", err)
	}
}

func TestPlacesEnrich(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/places/place-1" || r.Method != http.MethodGet {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		w.Write([]byte(detailsFixture))
	}))
	defer srv.Close()

	p := NewPlaces(srv.URL, "key", 0, 0)
	bar := &models.Bar{Name: "The Whiskey Room", ExternalID: "place-1", PriceLevel: "PRICE_LEVEL_MODERATE"}
	if err := p.Enrich(context.Background(), bar); err != nil {
		t.Fatalf("Enrich: %v", err)
	}
	if bar.Phone != "+1 202-555-0100" || bar.Website != "https://whiskey.test" {
		t.Errorf("contact = %q %q", bar.Phone, bar.Website)
	}
	if bar.PriceLevel != "PRICE_LEVEL_EXPENSIVE" || len(bar.OpeningHours) != 2 {
		t.Errorf("bar = %+v", bar)
	}

	noID := &models.Bar{Name: "Manual"}
	if err := p.Enrich(context.Background(), noID); err != nil {
		t.Errorf("Enrich without id: %v", err)
	}
}

func TestPlacesDetailsRateLimit(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.Write([]byte(detailsFixture))
	}))
	defer srv.Close()

	p := NewPlaces(srv.URL, "key", 0, 50*time.Millisecond)
	start := time.Now()
	for i := 0; i < 3; i++ {
		if _, err := p.Details(context.Background(), "place-1"); err != nil {
			t.Fatalf("Details: %v", err)
		}
	}
	if elapsed := time.Since(start); elapsed < 100*time.Millisecond {
		t.Errorf("3 calls took %v, want at least 100ms", elapsed)
	}
	if atomic.LoadInt32(&calls) != 3 {
		t.Errorf("calls = %d", calls)
	}
}

func TestPlacesThrottleCancelled(t *testing.T) {
	p := NewPlaces("http://unused.invalid", "key", 0, time.Hour)
	p.lastCall = time.Now()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := p.throttle(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("throttle err = %v", err)
	}
}
