package main

import (
	"context"
	"errors"
	"flag"

	"github.com/sirupsen/logrus"

	"barmap/internal/config"
	"barmap/internal/events"
	"barmap/internal/importer"
	"barmap/internal/logger"
	"barmap/internal/models"
	"barmap/internal/snapshot"
	"barmap/internal/sources"
	"barmap/internal/store"
	"barmap/pkg/graceful"
)

func main() {
	source := flag.String("source", models.SourceOSM, "bar source to import: osm or google")
	enrich := flag.Bool("enrich", false, "fetch place details for every bar (google only)")
	flag.Parse()

	cfg := config.Load()
	logger.Setup(cfg.LogLevel)

	ctx, cancel := graceful.Context(context.Background())
	defer cancel()

	var src sources.Source
	switch *source {
	case models.SourceOSM:
		src = sources.NewOverpass(cfg.OverpassURL, cfg.OverpassArea)
	case models.SourceGoogle:
		places := sources.NewPlaces(cfg.PlacesURL, cfg.PlacesAPIKey, cfg.PlacesRadius, cfg.PlacesRateLimit)
		places.CenterLat, places.CenterLng = cfg.Map.CenterLat, cfg.Map.CenterLng
		src = places
	default:
		logrus.Fatalf("Unknown source %q, want osm or google", *source)
	}

	db, err := config.InitDB(cfg.DB)
	if err != nil {
		logrus.WithError(err).Fatal("Database setup failed")
	}

	var publisher events.Publisher = events.Nop{}
	if cfg.KafkaBroker != "" {
		kp := events.NewKafkaPublisher(cfg.KafkaBroker, cfg.KafkaTopic)
		defer kp.Close()
		publisher = kp
	}

	var snapshots importer.SnapshotWriter
	snap, err := snapshot.New(cfg.Minio)
	switch {
	case errors.Is(err, snapshot.ErrNotConfigured):
		logrus.Info("Snapshot storage not configured, skipping export")
	case err != nil:
		logrus.WithError(err).Fatal("Snapshot storage setup failed")
	default:
		if err := snap.EnsureBucket(ctx); err != nil {
			logrus.WithError(err).Fatal("Snapshot bucket setup failed")
		}
		snapshots = snap
	}

	res, err := importer.New(store.NewBars(db), publisher, snapshots).Run(ctx, src, importer.Options{Enrich: *enrich})
	if err != nil {
		logrus.WithError(err).WithField("run_id", res.RunID).Fatal("Import failed")
	}
	logrus.WithFields(logrus.Fields{
		"run_id":   res.RunID,
		"fetched":  res.Fetched,
		"stored":   res.Stored,
		"created":  res.Created,
		"rejected": res.Rejected,
	}).Info("Import complete")
}
