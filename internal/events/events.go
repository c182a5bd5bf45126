// Package events fans bar changes out to live map viewers and to Kafka.
package events

import (
	"context"
	"errors"
	"time"

	"barmap/internal/mapview"
	"barmap/internal/models"
)

// Event types
const (
	BarCreated = "created"
	BarUpdated = "updated"
	BarDeleted = "deleted"
)

// BarEvent describes one change to a bar.
type BarEvent struct {
	Type   string         `json:"type"`
	RunID  string         `json:"run_id,omitempty"`
	Marker mapview.Marker `json:"marker"`
	Bar    models.Bar     `json:"bar"`
	At     time.Time      `json:"at"`
}

// NewBarEvent stamps an event for bar.
func NewBarEvent(kind string, bar models.Bar) BarEvent {
	return BarEvent{
		Type:   kind,
		Marker: mapview.NewMarker(bar),
		Bar:    bar,
		At:     time.Now().UTC(),
	}
}

// Publisher delivers bar events somewhere.
type Publisher interface {
	Publish(ctx context.Context, ev BarEvent) error
}

// Multi publishes to every publisher and joins their errors.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, ev BarEvent) error {
	var errs []error
	for _, p := range m {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Nop drops every event.
type Nop struct{}

func (Nop) Publish(context.Context, BarEvent) error { return nil }
