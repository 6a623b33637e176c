package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/mauv0809/catch-league/internal/config"
	"github.com/mauv0809/catch-league/internal/database"
	server "github.com/mauv0809/catch-league/internal/http"
	"github.com/mauv0809/catch-league/internal/league"
	"github.com/mauv0809/catch-league/internal/localstore"
	"github.com/mauv0809/catch-league/internal/metrics"
	"github.com/mauv0809/catch-league/internal/model"
	"github.com/mauv0809/catch-league/internal/notifier/slack"
	"github.com/mauv0809/catch-league/internal/objectstore"
	"github.com/mauv0809/catch-league/internal/pubsub"
	"github.com/mauv0809/catch-league/internal/reconciler"
	"github.com/mauv0809/catch-league/internal/remote"
	"github.com/mauv0809/catch-league/internal/remote/mongo"
)

func main() {
	// Start profiling timer
	startTime := time.Now()
	log.SetFormatter(log.JSONFormatter)
	cfg := config.Load()
	ctx := context.Background()

	db, dbTeardown, err := database.InitDB(ctx, cfg.DBName, cfg.Turso.PrimaryURL, cfg.Turso.AuthToken)
	dbInitDuration := time.Since(startTime)
	log.Info("Database initialization time recorded", "duration_ms", dbInitDuration.Milliseconds())
	if err != nil {
		log.Fatalf("Failed to initialize database: %s", err)
	}
	defer func() {
		log.Info("Closing database connection")
		dbTeardown()
	}()

	local, err := openLocal(cfg.Local, db)
	if err != nil {
		log.Fatalf("Failed to open local queue: %s", err)
	}
	defer local.Close()

	remoteStore, err := openRemote(ctx, cfg.Remote)
	if err != nil {
		log.Fatalf("Failed to open remote store: %s", err)
	}
	defer remoteStore.Close(context.Background())

	metricsSvc := metrics.NewService()
	metricsHandler := metrics.NewMetricsHandler()
	counters := metrics.NewCounterStore(db)

	var uploader objectstore.Uploader
	if cfg.R2.Enabled() {
		uploader, err = objectstore.NewS3Uploader(ctx, objectstore.Config{
			Endpoint:        cfg.R2.Endpoint,
			AccessKeyID:     cfg.R2.AccessKeyID,
			AccessKeySecret: cfg.R2.AccessKeySecret,
			Bucket:          cfg.R2.Bucket,
			CDNBaseURL:      cfg.R2.CDNBaseURL,
		})
		if err != nil {
			log.Fatalf("Failed to initialize object storage: %s", err)
		}
	} else {
		log.Warn("Object storage not configured, catches are saved without photos")
	}

	publisher := pubsub.NewNoop()
	if cfg.ProjectID != "" {
		publisher, err = pubsub.New(ctx, cfg.ProjectID)
		if err != nil {
			log.Fatalf("Failed to initialize pubsub: %s", err)
		}
	}
	defer publisher.Close()

	notifier := slack.NewNotifier(cfg.Slack.Token, cfg.Slack.ChannelID, metricsSvc)
	slackDryRun := cfg.Slack.Token == ""

	rec := reconciler.New(reconciler.Deps{
		Local:    local,
		Remote:   remoteStore,
		Metrics:  metricsSvc,
		Counters: counters,
		User:     model.User{ID: cfg.User.ID, Name: cfg.User.Name},
	}, reconciler.Options{
		Online:             cfg.Sync.StartOnline,
		InvitePollInterval: cfg.Sync.InvitePollInterval,
		SweepInterval:      cfg.Sync.SweepInterval,
	})
	// With Pub/Sub the announcement goes through the push subscription,
	// otherwise straight to Slack.
	rec.OnFinished(func(t model.Tournament) {
		event := pubsub.NewTournamentFinished(t)
		if cfg.ProjectID != "" {
			if err := publisher.SendMessage(pubsub.EventTournamentFinished, event); err != nil {
				log.Error("Failed to publish tournament finished", "error", err, "tournamentId", t.ID)
			}
			return
		}
		if err := notifier.SendTournamentFinished(event, slackDryRun); err != nil {
			log.Error("Failed to announce tournament finished", "error", err, "tournamentId", t.ID)
		}
	})
	if err := rec.Init(ctx); err != nil {
		log.Fatalf("Failed to initialize reconciler: %s", err)
	}
	defer func() {
		if err := rec.Dispose(); err != nil {
			log.Error("Failed to dispose reconciler", "error", err)
		}
	}()

	leagueSvc := league.NewService(league.Deps{
		Reconciler: rec,
		Uploader:   uploader,
		Publisher:  publisher,
		Metrics:    metricsSvc,
	})

	s := server.NewServer(leagueSvc, rec, metricsSvc, metricsHandler, counters, cfg, notifier, publisher)
	defer s.Close()

	// --- Record startup time ---
	startupDuration := time.Since(startTime)
	metricsSvc.SetStartupTime(startupDuration.Seconds())
	log.Info("Startup time recorded", "duration_ms", startupDuration.Milliseconds())

	// --- Graceful shutdown setup ---
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: s,
	}

	// Channel to listen for errors coming from the server
	serverErrors := make(chan error, 1)

	// Start the server in a goroutine
	go func() {
		log.Info("Server started", "port", cfg.Port, "user", cfg.User.ID, "local", cfg.Local.Backend, "remote", cfg.Remote.Backend)
		serverErrors <- srv.ListenAndServe()
	}()

	// Channel to listen for interrupt signals
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// Block until we receive a signal or an error
	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	case sig := <-shutdown:
		log.Info("Shutdown signal received", "signal", sig)

		// Create a context with a timeout for the shutdown.
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		// Attempt to gracefully shut down the server.
		if err := srv.Shutdown(ctx); err != nil {
			log.Error("Server shutdown failed", "error", err)
		} else {
			log.Info("Server gracefully stopped")
		}
	}

	log.Info("Server process shutting down")
}

func openLocal(cfg config.LocalConfig, db *sql.DB) (localstore.Store, error) {
	switch cfg.Backend {
	case config.BackendBadger:
		return localstore.NewBadgerStore(cfg.BadgerDir)
	case config.BackendMemory:
		log.Warn("Using in-memory local queue, pending writes do not survive restarts")
		return localstore.NewMemory(), nil
	default:
		return localstore.NewSQLStore(db), nil
	}
}

func openRemote(ctx context.Context, cfg config.RemoteConfig) (remote.Store, error) {
	if cfg.Backend == config.BackendMemory {
		log.Warn("Using in-memory remote store")
		return remote.NewMemory(), nil
	}
	return mongo.NewStore(ctx, cfg.MongoURI, cfg.MongoDB)
}
