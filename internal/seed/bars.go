// Package seed holds the hand-picked bars shown before any import has run.
package seed

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"barmap/internal/models"
	"barmap/internal/store"
)

var bars = []models.Bar{
	{
		Name:      "Sample Bar 1",
		Lat:       38.915,
		Lng:       -77.038,
		HappyHour: "Mon–Fri 4–7 PM: $5 beers, $3 tacos",
	},
	{
		Name:      "Sample Bar 2",
		Lat:       38.900,
		Lng:       -77.030,
		HappyHour: "Every day 5–8 PM: 2-for-1 cocktails",
	},
	{
		Name:      "The Whiskey Room",
		Lat:       38.912,
		Lng:       -77.045,
		HappyHour: "Tues–Sun 6–9 PM: Half-price whiskey flights",
	},
}

// Bars returns a fresh copy of the seed bars in their fixed order.
func Bars() []models.Bar {
	out := make([]models.Bar, len(bars))
	for i, b := range bars {
		b.Source = models.SourceSeed
		b.ExternalID = slug(b.Name)
		out[i] = b
	}
	return out
}

// Upserter is the part of the bar store seeding needs.
type Upserter interface {
	Upsert(ctx context.Context, bar *models.Bar) (store.UpsertResult, error)
}

// Apply writes the seed bars. Seed bars an admin deleted are not restored.
func Apply(ctx context.Context, s Upserter) error {
	for _, b := range Bars() {
		result, err := s.Upsert(ctx, &b)
		if err != nil {
			return fmt.Errorf("seed %q: %w", b.Name, err)
		}
		logrus.WithFields(logrus.Fields{
			"bar":    b.Name,
			"result": result.String(),
		}).Debug("Seed bar applied")
	}
	return nil
}

func slug(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "-")
}
