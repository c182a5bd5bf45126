package sources

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"barmap/internal/models"
)

const overpassFixture = `{
  "elements": [
    {"type": "node", "id": 101, "lat": 38.915, "lon": -77.038,
     "tags": {"amenity": "bar", "name": "Sample Bar 1", "addr:housenumber": "1400", "addr:street": "14th Street NW", "addr:city": "Washington", "opening_hours": "Mo-Su 16:00-02:00"}},
    {"type": "way", "id": 202, "center": {"lat": 38.912, "lon": -77.045},
     "tags": {"amenity": "bar", "name": "The Whiskey Room", "contact:website": "https://whiskey.test"}},
    {"type": "node", "id": 303, "lat": 38.900, "lon": -77.030, "tags": {"amenity": "bar"}},
    {"type": "relation", "id": 404, "tags": {"amenity": "bar", "name": "No Geometry"}}
  ]
}`

func newOverpassServer(t *testing.T, gotQuery *string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
			return
		}
		*gotQuery = r.PostForm.Get("data")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(overpassFixture))
	}))
}

func TestOverpassFetch(t *testing.T) {
	var query string
	srv := newOverpassServer(t, &query)
	defer srv.Close()

	o := NewOverpass(srv.URL, "")
	bars, err := o.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	if !strings.Contains(query, `area["ISO3166-2"="US-DC"]->.searchArea;`) || !strings.Contains(query, "out center;") {
		t.Errorf("unexpected query:\n%s", query)
	}
	if len(bars) != 3 {
		t.Fatalf("bars = %d, want 3", len(bars))
	}

	first := bars[0]
	if first.Name != "Sample Bar 1" || first.Lat != 38.915 || first.Lng != -77.038 {
		t.Errorf("first = %+v", first)
	}
	if first.ExternalID != "node/101" || first.Source != models.SourceOSM {
		t.Errorf("first id = %s/%s", first.Source, first.ExternalID)
	}
	if first.Address != "1400 14th Street NW, Washington" {
		t.Errorf("address = %q", first.Address)
	}
	if len(first.OpeningHours) != 1 || first.OpeningHours[0] != "Mo-Su 16:00-02:00" {
		t.Errorf("opening hours = %v", first.OpeningHours)
	}

	way := bars[1]
	if way.Lat != 38.912 || way.Lng != -77.045 || way.ExternalID != "way/202" {
		t.Errorf("way center not used: %+v", way)
	}
	if way.Website != "https://whiskey.test" {
		t.Errorf("website = %q", way.Website)
	}

	if bars[2].Name != "Unnamed Bar" {
		t.Errorf("unnamed = %q", bars[2].Name)
	}
}

func TestOverpassSkipUnnamed(t *testing.T) {
	var query string
	srv := newOverpassServer(t, &query)
	defer srv.Close()

	o := NewOverpass(srv.URL, `area["name"="District of Columbia"]["boundary"="administrative"]["admin_level"="6"]`)
	o.SkipUnnamed = true
	bars, err := o.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(bars) != 2 {
		t.Errorf("bars = %d, want 2", len(bars))
	}
	if !strings.Contains(query, `["admin_level"="6"]->.searchArea`) {
		t.Errorf("custom area not used:\n%s", query)
	}
}

func TestOverpassStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := NewOverpass(srv.URL, "").Fetch(context.Background())
	var se *StatusError
	if !errors.As(err, &se) || se.Code != http.StatusTooManyRequests {
		t.Fatalf("err = %v, want StatusError 429", err)
	}
}
