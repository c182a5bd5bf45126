package mapview

import (
	"strconv"

	gjson "github.com/twpayne/go-geom/encoding/geojson"

	"barmap/internal/geo"
	"barmap/internal/models"
)

// FeatureCollection renders the bars as a GeoJSON FeatureCollection of points.
func FeatureCollection(bars []models.Bar) *gjson.FeatureCollection {
	fc := &gjson.FeatureCollection{Features: make([]*gjson.Feature, 0, len(bars))}
	for _, b := range bars {
		f := &gjson.Feature{
			Geometry: geo.Point(b.Lat, b.Lng),
			Properties: map[string]interface{}{
				"name":       b.Name,
				"happy_hour": b.HappyHour,
				"popup":      PopupHTML(b),
				"source":     b.Source,
			},
		}
		if b.ID != 0 {
			f.ID = strconv.FormatUint(uint64(b.ID), 10)
		}
		fc.Features = append(fc.Features, f)
	}
	return fc
}
