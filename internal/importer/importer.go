// Package importer pulls bars from a source, validates and enriches them,
// stores them and announces every stored bar.
package importer

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"barmap/internal/events"
	"barmap/internal/models"
	"barmap/internal/snapshot"
	"barmap/internal/sources"
	"barmap/internal/store"
)

var (
	ErrMissingName       = errors.New("bar has no name")
	ErrInvalidCoordinate = errors.New("bar has invalid coordinates")
)

// BarWriter is the store surface an import needs.
type BarWriter interface {
	Upsert(ctx context.Context, bar *models.Bar) (store.UpsertResult, error)
	List(ctx context.Context, f store.Filter) ([]models.Bar, error)
}

// SnapshotWriter stores the post-import listing of a source.
type SnapshotWriter interface {
	Put(ctx context.Context, key string, bars []models.Bar) error
}

// Options tune one import run.
type Options struct {
	// Enrich runs the source's detail lookups when it supports them.
	Enrich bool
}

// Result summarises one run.
type Result struct {
	RunID    string        `json:"run_id"`
	Source   string        `json:"source"`
	Fetched  int           `json:"fetched"`
	Stored   int           `json:"stored"`
	Created  int           `json:"created"`
	Rejected int           `json:"rejected"`
	Skipped  int           `json:"skipped"`
	Failed   int           `json:"failed"`
	Duration time.Duration `json:"duration"`
}

type Importer struct {
	store     BarWriter
	publisher events.Publisher
	snapshots SnapshotWriter
}

// New builds an Importer. publisher and snapshots may be nil.
func New(s BarWriter, publisher events.Publisher, snapshots SnapshotWriter) *Importer {
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &Importer{store: s, publisher: publisher, snapshots: snapshots}
}

// Run performs one import from src.
func (im *Importer) Run(ctx context.Context, src sources.Source, opts Options) (Result, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	start := time.Now()
	res := Result{RunID: uuid.NewString(), Source: src.Name()}
	log := logrus.WithFields(logrus.Fields{"run_id": res.RunID, "source": res.Source})

	bars, err := src.Fetch(ctx)
	if err != nil {
		return res, fmt.Errorf("fetch %s: %w", src.Name(), err)
	}
	res.Fetched = len(bars)
	log.WithField("fetched", res.Fetched).Info("Import started")

	in := make(chan *models.Bar)
	go func() {
		defer close(in)
		for i := range bars {
			select {
			case in <- &bars[i]:
			case <-ctx.Done():
				return
			}
		}
	}()

	for r := range im.pipeline(src, opts).Process(ctx, in) {
		if r.Err != nil {
			res.Rejected++
			log.WithError(r.Err).WithField("bar", r.Item.Name).Warn("Bar rejected")
			continue
		}
		result, err := im.store.Upsert(ctx, r.Item)
		if err != nil {
			if fatalStoreError(ctx, err) {
				return res, fmt.Errorf("store %q: %w", r.Item.Name, err)
			}
			if errors.Is(err, store.ErrInvalidCoordinate) {
				res.Rejected++
			} else {
				res.Failed++
				log.WithError(err).WithField("bar", r.Item.Name).Warn("Bar not stored")
			}
			continue
		}
		if result == store.Skipped {
			res.Skipped++
			log.WithField("bar", r.Item.Name).Debug("Bar deleted by admin, not re-imported")
			continue
		}
		res.Stored++
		kind := events.BarUpdated
		if result == store.Created {
			res.Created++
			kind = events.BarCreated
		}
		ev := events.NewBarEvent(kind, *r.Item)
		ev.RunID = res.RunID
		if err := im.publisher.Publish(ctx, ev); err != nil {
			log.WithError(err).WithField("bar", r.Item.Name).Warn("Failed to publish bar event")
		}
	}
	if err := ctx.Err(); err != nil {
		return res, err
	}

	if im.snapshots != nil {
		if err := im.exportSnapshot(ctx, src.Name()); err != nil {
			log.WithError(err).Error("Snapshot export failed")
		}
	}

	res.Duration = time.Since(start)
	log.WithFields(logrus.Fields{
		"stored":   res.Stored,
		"created":  res.Created,
		"rejected": res.Rejected,
		"skipped":  res.Skipped,
		"failed":   res.Failed,
		"duration": res.Duration.String(),
	}).Info("Import finished")
	return res, nil
}

func (im *Importer) pipeline(src sources.Source, opts Options) *Pipeline[models.Bar] {
	stages := []Stage[models.Bar]{
		NewStage("validate", Step[models.Bar](validate)).Required(),
	}
	if enricher, ok := src.(sources.Enricher); ok && opts.Enrich {
		stages = append(stages, NewStage("enrich", Step[models.Bar](enricher.Enrich)))
	}
	return NewPipeline(stages...)
}

func (im *Importer) exportSnapshot(ctx context.Context, source string) error {
	bars, err := im.store.List(ctx, store.Filter{Source: source})
	if err != nil {
		return err
	}
	return im.snapshots.Put(ctx, snapshot.Key(source), bars)
}

// fatalStoreError reports whether a store error should end the whole run
// rather than just the current bar.
func fatalStoreError(ctx context.Context, err error) bool {
	return ctx.Err() != nil ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, driver.ErrBadConn)
}

func validate(_ context.Context, bar *models.Bar) error {
	bar.Name = strings.TrimSpace(bar.Name)
	if bar.Name == "" {
		return ErrMissingName
	}
	if !bar.ValidCoordinates() {
		return fmt.Errorf("%w: %v,%v", ErrInvalidCoordinate, bar.Lat, bar.Lng)
	}
	return nil
}
