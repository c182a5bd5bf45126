// Package store persists bars and admin users with gorm.
package store

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"gorm.io/gorm"

	"barmap/internal/geo"
	"barmap/internal/models"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidCoordinate = errors.New("invalid coordinate")
	ErrDuplicate         = errors.New("already exists")
)

// Near restricts a listing to bars within Radius metres of a point.
type Near struct {
	Lat    float64
	Lng    float64
	Radius float64
}

// Filter narrows List. Zero values mean no restriction.
type Filter struct {
	Source string
	Query  string
	Near   *Near
	Limit  int
}

// BarStore is the persistence contract used by the handlers and importers.
type BarStore interface {
	List(ctx context.Context, f Filter) ([]models.Bar, error)
	Get(ctx context.Context, id uint) (*models.Bar, error)
	Create(ctx context.Context, bar *models.Bar) error
	Update(ctx context.Context, bar *models.Bar) error
	Delete(ctx context.Context, id uint) error
	Upsert(ctx context.Context, bar *models.Bar) (UpsertResult, error)
}

// UpsertResult says what Upsert did with a bar.
type UpsertResult int

const (
	Updated UpsertResult = iota
	Created
	// Skipped means the row was deleted by an admin and stays deleted.
	Skipped
)

func (r UpsertResult) String() string {
	switch r {
	case Created:
		return "created"
	case Skipped:
		return "skipped"
	}
	return "updated"
}

// Bars is the gorm implementation of BarStore.
type Bars struct {
	db *gorm.DB
}

func NewBars(db *gorm.DB) *Bars {
	return &Bars{db: db}
}

// List returns bars ordered by insertion.
func (s *Bars) List(ctx context.Context, f Filter) ([]models.Bar, error) {
	q := s.db.WithContext(ctx).Model(&models.Bar{}).Order("id asc")
	if f.Source != "" {
		q = q.Where("source = ?", f.Source)
	}
	if f.Query != "" {
		q = q.Where(`LOWER(name) LIKE ? ESCAPE '\'`, "%"+escapeLike(strings.ToLower(f.Query))+"%")
	}
	if f.Near != nil {
		minLat, maxLat, minLng, maxLng := boundingBox(*f.Near)
		q = q.Where("lat BETWEEN ? AND ? AND lng BETWEEN ? AND ?", minLat, maxLat, minLng, maxLng)
	}
	if f.Limit > 0 && f.Near == nil {
		q = q.Limit(f.Limit)
	}

	var bars []models.Bar
	if err := q.Find(&bars).Error; err != nil {
		return nil, fmt.Errorf("list bars: %w", err)
	}
	if f.Near != nil {
		bars = withinRadius(bars, *f.Near)
		if f.Limit > 0 && len(bars) > f.Limit {
			bars = bars[:f.Limit]
		}
	}
	return bars, nil
}

func (s *Bars) Get(ctx context.Context, id uint) (*models.Bar, error) {
	var bar models.Bar
	if err := s.db.WithContext(ctx).First(&bar, id).Error; err != nil {
		return nil, translate(err)
	}
	return &bar, nil
}

func (s *Bars) Create(ctx context.Context, bar *models.Bar) error {
	if !bar.ValidCoordinates() {
		return ErrInvalidCoordinate
	}
	if err := s.db.WithContext(ctx).Create(bar).Error; err != nil {
		return translate(err)
	}
	return nil
}

func (s *Bars) Update(ctx context.Context, bar *models.Bar) error {
	if !bar.ValidCoordinates() {
		return ErrInvalidCoordinate
	}
	if err := s.db.WithContext(ctx).Save(bar).Error; err != nil {
		return translate(err)
	}
	return nil
}

func (s *Bars) Delete(ctx context.Context, id uint) error {
	res := s.db.WithContext(ctx).Delete(&models.Bar{}, id)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Upsert inserts the bar or refreshes the row with the same source and
// external id. bar.ID is set unless the result is Skipped.
func (s *Bars) Upsert(ctx context.Context, bar *models.Bar) (UpsertResult, error) {
	if !bar.ValidCoordinates() {
		return Updated, ErrInvalidCoordinate
	}

	result := Updated
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.Bar
		err := tx.Unscoped().Where("source = ? AND external_id = ?", bar.Source, bar.ExternalID).First(&existing).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			result = Created
			return tx.Create(bar).Error
		}
		if err != nil {
			return err
		}
		if existing.DeletedAt.Valid {
			result = Skipped
			return nil
		}
		merge(&existing, bar)
		if err := tx.Save(&existing).Error; err != nil {
			return err
		}
		*bar = existing
		return nil
	})
	if err != nil {
		return Updated, translate(err)
	}
	return result, nil
}

// merge copies imported fields onto an existing row. Fields an import does not
// carry (an empty happy hour, say) keep their stored value.
func merge(dst *models.Bar, src *models.Bar) {
	dst.Name = src.Name
	dst.Lat = src.Lat
	dst.Lng = src.Lng
	if src.HappyHour != "" {
		dst.HappyHour = src.HappyHour
	}
	if src.Address != "" {
		dst.Address = src.Address
	}
	if src.Rating != 0 {
		dst.Rating = src.Rating
	}
	if src.UserRatingsTotal != 0 {
		dst.UserRatingsTotal = src.UserRatingsTotal
	}
	if src.PriceLevel != "" {
		dst.PriceLevel = src.PriceLevel
	}
	if src.Phone != "" {
		dst.Phone = src.Phone
	}
	if src.Website != "" {
		dst.Website = src.Website
	}
	if len(src.OpeningHours) > 0 {
		dst.OpeningHours = src.OpeningHours
	}
	if len(src.Types) > 0 {
		dst.Types = src.Types
	}
}

func translate(err error) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%w: %v", ErrDuplicate, err)
	}
	return err
}

// boundingBox is a cheap SQL prefilter around a radius search.
func boundingBox(n Near) (minLat, maxLat, minLng, maxLng float64) {
	const metresPerDegree = 111320.0
	dLat := n.Radius / metresPerDegree
	cos := math.Cos(n.Lat * math.Pi / 180)
	dLng := 180.0
	if cos > 1e-9 {
		dLng = math.Min(180, n.Radius/(metresPerDegree*cos))
	}
	return n.Lat - dLat, n.Lat + dLat, n.Lng - dLng, n.Lng + dLng
}

func withinRadius(bars []models.Bar, n Near) []models.Bar {
	out := bars[:0]
	for _, b := range bars {
		if geo.Distance(n.Lat, n.Lng, b.Lat, b.Lng) <= n.Radius {
			out = append(out, b)
		}
	}
	return out
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
