package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/ukydev/fleet-maintenance/internal/auth"
	"github.com/ukydev/fleet-maintenance/internal/config"
	"github.com/ukydev/fleet-maintenance/internal/db"
	"github.com/ukydev/fleet-maintenance/internal/documents"
	"github.com/ukydev/fleet-maintenance/internal/events"
	"github.com/ukydev/fleet-maintenance/internal/fleet"
	"github.com/ukydev/fleet-maintenance/internal/handlers"
	"github.com/ukydev/fleet-maintenance/internal/middleware"
	"github.com/ukydev/fleet-maintenance/internal/seed"
)

// app is a wired service ready to serve.
type app struct {
	store   *fleet.Store
	handler http.Handler
	closers []func(context.Context)
}

func (a *app) close(ctx context.Context) {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i](ctx)
	}
}

// setup wires the store, its event sinks and the HTTP router from cfg.
func setup(ctx context.Context, cfg *config.Config, logger *log.Logger) (*app, error) {
	a := &app{}
	var sinks events.Multi
	var journal *db.MongoJournal

	if cfg.Mongo.Enabled {
		client, err := db.ConnectMongo(ctx, cfg.Mongo.URI)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func(ctx context.Context) { _ = client.Disconnect(ctx) })
		journal = &db.MongoJournal{Collection: client.Database(cfg.Mongo.Database).Collection(cfg.Mongo.Collection)}
		if err := journal.EnsureIndexes(ctx); err != nil {
			a.close(ctx)
			return nil, err
		}
		sinks = append(sinks, &events.JournalSink{Journal: journal})
		logger.WithField("database", cfg.Mongo.Database).Info("Event journal enabled")
	}

	if cfg.MQTT.Enabled {
		pub, err := events.NewMQTTPublisher(cfg.MQTT.Broker, cfg.MQTT.ClientID, cfg.MQTT.TopicPrefix, cfg.MQTT.QoS)
		if err != nil {
			a.close(ctx)
			return nil, err
		}
		a.closers = append(a.closers, func(context.Context) { pub.Close() })
		sinks = append(sinks, pub)
	}

	tracker := documents.NewTracker(cfg.Policy.ExpiringWindow())
	storeOpts := []fleet.Option{
		fleet.WithPolicy(cfg.Policy.Policy),
		fleet.WithDocuments(tracker),
		fleet.WithLogger(logger.WithField("component", "fleet")),
	}
	if len(sinks) > 0 {
		dispatcher := events.NewDispatcher(sinks, 1024, logger.WithField("component", "events"))
		dispatcher.Start(context.WithoutCancel(ctx), 1)
		a.closers = append(a.closers, func(context.Context) { dispatcher.Close() })
		storeOpts = append(storeOpts, fleet.WithPublisher(dispatcher))
	}
	a.store = fleet.NewStore(storeOpts...)

	if cfg.Seed.Path != "" {
		fx, err := seed.Load(cfg.Seed.Path)
		if err != nil {
			a.close(ctx)
			return nil, err
		}
		if err := fx.Apply(ctx, a.store, tracker); err != nil {
			a.close(ctx)
			return nil, err
		}
	}

	handlerOpts := []handlers.Option{
		handlers.WithCacheTTL(cfg.Server.CacheTTL()),
		handlers.WithLogger(logger.WithField("component", "http")),
	}
	if journal != nil {
		handlerOpts = append(handlerOpts, handlers.WithJournal(journal))
	}

	var limiter *middleware.IPRateLimiter
	if cfg.Server.RateLimitPerSec > 0 {
		limiter = middleware.NewIPRateLimiter(rate.Limit(cfg.Server.RateLimitPerSec), cfg.Server.RateLimitBurst)
	}
	tokens := auth.NewService(cfg.Auth.JWTSecret, cfg.Auth.TokenExpiry)
	a.handler = handlers.NewRouter(
		handlers.NewHandler(a.store, handlerOpts...),
		middleware.NewAuthMiddleware(tokens),
		limiter,
	)
	return a, nil
}

func main() {
	logger := log.StandardLogger()

	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config.yaml"
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		logger.WithError(err).WithField("path", configPath).Fatal("Failed to load configuration")
	}
	if err := cfg.Log.Apply(logger); err != nil {
		logger.WithError(err).Fatal("Invalid log configuration")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := setup(ctx, cfg, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to start")
	}

	server := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           a.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.WithField("port", cfg.Server.Port).Info("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("HTTP server stopped")
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	logger.Info("Shutdown signal received, stopping services")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("HTTP server shutdown")
	}
	a.close(shutdownCtx)
	logger.Info("Server gracefully stopped")
}
