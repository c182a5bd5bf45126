// Package mapview turns bar records into the browser map: the initial view,
// one marker per bar with its popup, the Leaflet page and a GeoJSON export.
package mapview

import (
	"html"

	"barmap/internal/config"
	"barmap/internal/models"
)

// TileLayer is the raster tile provider the browser map pulls from.
type TileLayer struct {
	URL         string `json:"url"`
	Attribution string `json:"attribution"`
}

// View is the initial map state.
type View struct {
	Center    [2]float64 `json:"center"` // lat, lng
	Zoom      int        `json:"zoom"`
	TileLayer TileLayer  `json:"tile_layer"`
}

// Marker is a pin with its popup content.
type Marker struct {
	ID     uint    `json:"id,omitempty"`
	Name   string  `json:"name"`
	Lat    float64 `json:"lat"`
	Lng    float64 `json:"lng"`
	Popup  string  `json:"popup"`
	Source string  `json:"source,omitempty"`
}

// Map is everything the page needs to draw.
type Map struct {
	View    View     `json:"view"`
	Markers []Marker `json:"markers"`
}

// DefaultView is downtown Washington, DC on OpenStreetMap tiles.
func DefaultView() View {
	return View{
		Center: [2]float64{38.9072, -77.0369},
		Zoom:   13,
		TileLayer: TileLayer{
			URL:         "https://{s}.tile.openstreetmap.org/{z}/{x}/{y}.png",
			Attribution: "&copy; OpenStreetMap contributors",
		},
	}
}

// ViewFromConfig builds the view from configuration, falling back to the
// default for any unset field.
func ViewFromConfig(c config.MapConfig) View {
	v := DefaultView()
	if c.CenterLat != 0 || c.CenterLng != 0 {
		v.Center = [2]float64{c.CenterLat, c.CenterLng}
	}
	if c.Zoom > 0 {
		v.Zoom = c.Zoom
	}
	if c.TileURL != "" {
		v.TileLayer.URL = c.TileURL
	}
	if c.TileAttribution != "" {
		v.TileLayer.Attribution = c.TileAttribution
	}
	return v
}

// PopupHTML is the popup body: bold name, line break, happy hour text.
func PopupHTML(b models.Bar) string {
	return "<strong>" + html.EscapeString(b.Name) + "</strong><br>" + html.EscapeString(b.HappyHour)
}

// NewMarker places a marker at the bar's exact coordinate.
func NewMarker(b models.Bar) Marker {
	return Marker{
		ID:     b.ID,
		Name:   b.Name,
		Lat:    b.Lat,
		Lng:    b.Lng,
		Popup:  PopupHTML(b),
		Source: b.Source,
	}
}

// Build returns the map with one marker per bar, in input order.
func Build(v View, bars []models.Bar) Map {
	markers := make([]Marker, 0, len(bars))
	for _, b := range bars {
		markers = append(markers, NewMarker(b))
	}
	return Map{View: v, Markers: markers}
}
