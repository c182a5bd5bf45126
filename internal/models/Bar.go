package models

import (
	"github.com/lib/pq"
	"gorm.io/gorm"

	"barmap/internal/geo"
)

// Bar sources
const (
	SourceSeed   = "seed"
	SourceOSM    = "osm"
	SourceGoogle = "google"
	SourceManual = "manual"
)

// Bar is a venue shown on the map with its happy hour promotion.
// (Source, ExternalID) identifies a bar across repeated imports.
type Bar struct {
	gorm.Model
	Name      string  `json:"name" binding:"required"`
	Lat       float64 `json:"lat"`
	Lng       float64 `json:"lng"`
	HappyHour string  `json:"happy_hour"`

	Source     string `json:"source" gorm:"size:16;uniqueIndex:idx_bars_source_external"`
	ExternalID string `json:"external_id,omitempty" gorm:"uniqueIndex:idx_bars_source_external"`

	Address          string         `json:"address,omitempty"`
	Rating           float64        `json:"rating,omitempty"`
	UserRatingsTotal int            `json:"user_ratings_total,omitempty"`
	PriceLevel       string         `json:"price_level,omitempty"`
	Phone            string         `json:"phone,omitempty"`
	Website          string         `json:"website,omitempty"`
	OpeningHours     pq.StringArray `json:"opening_hours,omitempty" gorm:"type:text[]"`
	Types            pq.StringArray `json:"types,omitempty" gorm:"type:text[]"`

	// Point geometry (SRID 4326) as WKB, kept in sync with Lat/Lng.
	Geometry []byte `json:"-" gorm:"type:bytea"`
}

// BeforeSave refreshes the WKB point from the coordinates.
func (b *Bar) BeforeSave(tx *gorm.DB) error {
	g, err := geo.PointWKB(b.Lat, b.Lng)
	if err != nil {
		return err
	}
	b.Geometry = g
	return nil
}

// ValidCoordinates reports whether Lat/Lng are valid degree values.
func (b Bar) ValidCoordinates() bool {
	return geo.ValidCoordinate(b.Lat, b.Lng)
}
