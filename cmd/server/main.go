package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"barmap/internal/config"
	"barmap/internal/controllers"
	"barmap/internal/events"
	"barmap/internal/importer"
	"barmap/internal/logger"
	"barmap/internal/mapview"
	"barmap/internal/middleware"
	"barmap/internal/routes"
	"barmap/internal/seed"
	"barmap/internal/snapshot"
	"barmap/internal/sources"
	"barmap/internal/store"
	"barmap/pkg/graceful"
)

func main() {
	cfg := config.Load()

	// Initialize structured logging to file
	logger.Setup(cfg.LogLevel)

	ctx, cancel := graceful.Context(context.Background())
	defer cancel()

	// Connect to the database
	db, err := config.InitDB(cfg.DB)
	if err != nil {
		logrus.WithError(err).Fatal("Database setup failed")
	}
	bars := store.NewBars(db)
	users := store.NewUsers(db)

	if cfg.AdminEmail != "" && cfg.AdminPassword != "" {
		hash, err := controllers.HashPassword(cfg.AdminPassword)
		if err != nil {
			logrus.WithError(err).Fatal("Could not hash admin password")
		}
		if err := users.EnsureAdmin(ctx, cfg.AdminEmail, hash); err != nil {
			logrus.WithError(err).Fatal("Could not create admin account")
		}
	}

	if cfg.SeedBars {
		if err := seed.Apply(ctx, bars); err != nil {
			logrus.WithError(err).Fatal("Seeding bars failed")
		}
	}

	hub := events.NewHub()
	defer hub.Stop()
	publishers := events.Multi{hub}
	if cfg.KafkaBroker != "" {
		kp := events.NewKafkaPublisher(cfg.KafkaBroker, cfg.KafkaTopic)
		defer kp.Close()
		publishers = append(publishers, kp)
		logrus.WithFields(logrus.Fields{"broker": cfg.KafkaBroker, "topic": cfg.KafkaTopic}).Info("Publishing bar events to Kafka")
	}

	var (
		snapshots   importer.SnapshotWriter
		snapshotAPI *controllers.SnapshotController
	)
	snap, err := snapshot.New(cfg.Minio)
	switch {
	case errors.Is(err, snapshot.ErrNotConfigured):
		logrus.Info("Snapshot storage not configured, exports disabled")
	case err != nil:
		logrus.WithError(err).Fatal("Snapshot storage setup failed")
	default:
		if err := snap.EnsureBucket(ctx); err != nil {
			logrus.WithError(err).Fatal("Snapshot bucket setup failed")
		}
		snapshots = snap
		snapshotAPI = controllers.NewSnapshotController(snap)
	}

	places := sources.NewPlaces(cfg.PlacesURL, cfg.PlacesAPIKey, cfg.PlacesRadius, cfg.PlacesRateLimit)
	places.CenterLat, places.CenterLng = cfg.Map.CenterLat, cfg.Map.CenterLng

	auth := middleware.NewAuth(cfg.JWTSecret)
	r := routes.SetupRouter(routes.Deps{
		Auth:      auth,
		Map:       controllers.NewMapController(bars, mapview.ViewFromConfig(cfg.Map), "/ws/bars"),
		Bars:      controllers.NewBarController(bars, publishers),
		Login:     controllers.NewAuthController(users, auth),
		Imports:   controllers.NewImportController(importer.New(bars, publishers, snapshots), sources.NewOverpass(cfg.OverpassURL, cfg.OverpassArea), places),
		Snapshots: snapshotAPI,
		WebSocket: controllers.NewWebSocketController(hub),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           middleware.EnableCORS(r, cfg.CORSOrigins),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logrus.WithField("addr", srv.Addr).Info("Server running")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.WithError(err).Fatal("Server failed")
		}
	}()

	<-ctx.Done()

	shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Error("Server shutdown failed")
	}
	logrus.Info("Server stopped")
}
