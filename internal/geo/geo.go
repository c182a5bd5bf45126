// Package geo holds the coordinate helpers shared by the store, the map and
// the importers: WKB/GeoJSON encoding through go-geom and great-circle math.
package geo

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/twpayne/go-geom"
	gjson "github.com/twpayne/go-geom/encoding/geojson"
	"github.com/twpayne/go-geom/encoding/wkb"
)

// SRID of every stored geometry.
const SRID = 4326

const earthRadius = 6371000 // metres

var ErrNotPoint = errors.New("geometry is not a point")

// ValidCoordinate reports whether lat/lng are valid degree values.
func ValidCoordinate(lat, lng float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lng) {
		return false
	}
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}

// Point builds a go-geom point. GeoJSON/WKB order is lng, lat.
func Point(lat, lng float64) *geom.Point {
	return geom.NewPointFlat(geom.XY, []float64{lng, lat}).SetSRID(SRID)
}

// PointWKB encodes a coordinate as little-endian WKB.
func PointWKB(lat, lng float64) ([]byte, error) {
	return wkb.Marshal(Point(lat, lng), binary.LittleEndian)
}

// PointFromWKB decodes a WKB point back to lat, lng.
func PointFromWKB(b []byte) (float64, float64, error) {
	g, err := wkb.Unmarshal(b)
	if err != nil {
		return 0, 0, fmt.Errorf("decode wkb: %w", err)
	}
	p, ok := g.(*geom.Point)
	if !ok {
		return 0, 0, ErrNotPoint
	}
	return p.Y(), p.X(), nil
}

// WKBToGeoJSON converts WKB bytes into a GeoJSON string
func WKBToGeoJSON(b []byte) (string, error) {
	if len(b) == 0 {
		return "", nil
	}
	g, err := wkb.Unmarshal(b)
	if err != nil {
		return "", err
	}
	out, err := gjson.Marshal(g)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// Distance returns the haversine distance in metres between two points.
func Distance(lat1, lng1, lat2, lng2 float64) float64 {
	dLat := toRadians(lat2 - lat1)
	dLng := toRadians(lng2 - lng1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(lat1))*math.Cos(toRadians(lat2))*
			math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadius * c
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
