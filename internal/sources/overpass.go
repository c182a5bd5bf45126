package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"barmap/internal/models"
)

// DefaultOverpassArea selects the District of Columbia by ISO code.
const DefaultOverpassArea = `area["ISO3166-2"="US-DC"]`

const overpassQuery = `[out:json][timeout:25];
%s->.searchArea;
(
  node["amenity"="bar"](area.searchArea);
  way["amenity"="bar"](area.searchArea);
  relation["amenity"="bar"](area.searchArea);
);
out center;`

// Overpass pulls amenity=bar features from OpenStreetMap.
type Overpass struct {
	URL  string
	Area string
	// SkipUnnamed drops features without a name tag instead of labelling
	// them "Unnamed Bar".
	SkipUnnamed bool
	Client      *http.Client
}

func NewOverpass(endpoint, area string) *Overpass {
	if area == "" {
		area = DefaultOverpassArea
	}
	return &Overpass{URL: endpoint, Area: area, Client: newHTTPClient()}
}

func (o *Overpass) Name() string { return models.SourceOSM }

type overpassResponse struct {
	Elements []overpassElement `json:"elements"`
}

type overpassElement struct {
	Type   string            `json:"type"`
	ID     int64             `json:"id"`
	Lat    *float64          `json:"lat"`
	Lon    *float64          `json:"lon"`
	Center *overpassCenter   `json:"center"`
	Tags   map[string]string `json:"tags"`
}

type overpassCenter struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Query is the Overpass QL sent for the configured area.
func (o *Overpass) Query() string {
	return fmt.Sprintf(overpassQuery, o.Area)
}

func (o *Overpass) Fetch(ctx context.Context) ([]models.Bar, error) {
	form := url.Values{"data": {o.Query()}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.URL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", userAgent)

	resp, err := o.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("overpass request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, &StatusError{Code: resp.StatusCode, Body: string(body)}
	}

	var data overpassResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("decode overpass response: %w", err)
	}

	bars := make([]models.Bar, 0, len(data.Elements))
	for _, el := range data.Elements {
		bar, ok := o.toBar(el)
		if !ok {
			continue
		}
		bars = append(bars, bar)
	}
	logrus.WithFields(logrus.Fields{
		"elements": len(data.Elements),
		"bars":     len(bars),
	}).Info("Overpass fetch finished")
	return bars, nil
}

func (o *Overpass) toBar(el overpassElement) (models.Bar, bool) {
	var lat, lon float64
	switch {
	case el.Lat != nil && el.Lon != nil:
		lat, lon = *el.Lat, *el.Lon
	case el.Center != nil:
		lat, lon = el.Center.Lat, el.Center.Lon
	default:
		return models.Bar{}, false
	}

	name := strings.TrimSpace(el.Tags["name"])
	if name == "" {
		if o.SkipUnnamed {
			return models.Bar{}, false
		}
		name = unnamedBar
	}

	return models.Bar{
		Name:         name,
		Lat:          lat,
		Lng:          lon,
		HappyHour:    el.Tags["happy_hours"],
		Source:       models.SourceOSM,
		ExternalID:   el.Type + "/" + strconv.FormatInt(el.ID, 10),
		Address:      osmAddress(el.Tags),
		Phone:        firstTag(el.Tags, "phone", "contact:phone"),
		Website:      firstTag(el.Tags, "website", "contact:website"),
		OpeningHours: nonEmpty(el.Tags["opening_hours"]),
		Types:        nonEmpty(el.Tags["amenity"]),
	}, true
}

func osmAddress(tags map[string]string) string {
	street := strings.TrimSpace(tags["addr:housenumber"] + " " + tags["addr:street"])
	parts := []string{}
	for _, p := range []string{street, tags["addr:city"], tags["addr:postcode"]} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, ", ")
}

func firstTag(tags map[string]string, keys ...string) string {
	for _, k := range keys {
		if v := tags[k]; v != "" {
			return v
		}
	}
	return ""
}

func nonEmpty(v string) []string {
	if v == "" {
		return nil
	}
	return []string{v}
}
