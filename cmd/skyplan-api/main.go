// README: Entry point; loads config, wires services, starts the HTTP server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"skyplan/internal/ai"
	"skyplan/internal/config"
	"skyplan/internal/flow"
	httptransport "skyplan/internal/http"
	"skyplan/internal/infra"
	"skyplan/internal/maps"
	"skyplan/internal/modules/aiusage"
	"skyplan/internal/modules/assistant"
	"skyplan/internal/modules/auth"
	"skyplan/internal/modules/itinerary"
	"skyplan/internal/modules/queryparse"
	"skyplan/internal/modules/search"
	"skyplan/migrations"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger, err := infra.NewLogger(cfg.Env)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := serve(ctx, cfg, logger); err != nil {
		logger.Error("server stopped", zap.Error(err))
		return err
	}
	return nil
}

// serve wires every service from cfg and runs the HTTP server until ctx is
// done. Resources opened here are released before it returns.
func serve(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	gen, closeGen, err := ai.NewGenerator(ctx, ai.Options{
		Mock:        cfg.MockAI(),
		APIKey:      cfg.AI.GeminiKey,
		Model:       cfg.AI.Model,
		Temperature: cfg.AI.Temperature,
	}, logger)
	if err != nil {
		return fmt.Errorf("ai init: %w", err)
	}
	defer closeGen()
	engine := flow.NewEngine(gen, logger)

	// Postgres is optional: without it quotas are off and itineraries are not saved.
	var (
		ledger aiusage.Ledger
		repo   itinerary.Repository
	)
	if cfg.DB.DSN != "" {
		dbPool, err := infra.NewDB(ctx, cfg.DB.DSN)
		if err != nil {
			return fmt.Errorf("postgres init: %w", err)
		}
		defer dbPool.Close()
		if err := infra.Migrate(ctx, dbPool, migrations.FS); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		ledger = aiusage.NewStore(dbPool)
		repo = itinerary.NewStore(dbPool)
	} else {
		logger.Warn("SKYPLAN_DB_DSN not set; quotas and saved itineraries disabled")
	}

	var convStore assistant.Store
	if cfg.Redis.Addr != "" {
		redisClient, err := infra.NewRedis(ctx, cfg.Redis.Addr)
		if err != nil {
			return fmt.Errorf("redis init: %w", err)
		}
		defer func() { _ = redisClient.Close() }()
		// A turn makes at most two flow calls.
		convStore = assistant.NewRedisStore(redisClient, cfg.Conversation.TTL, 2*cfg.AI.FlowTimeout)
	} else {
		logger.Warn("SKYPLAN_REDIS_ADDR not set; conversations kept in memory")
		convStore = assistant.NewMemoryStore()
	}

	var routes assistant.RouteProber
	if cfg.Maps.APIKey != "" {
		routeSvc, err := maps.NewRouteService(cfg.Maps.APIKey)
		if err != nil {
			return fmt.Errorf("maps init: %w", err)
		}
		routes = routeSvc
	}

	var (
		verifier infra.TokenVerifier
		admin    auth.Admin
		signIn   auth.SignInProvider
	)
	if cfg.Firebase.ProjectID != "" {
		client, err := infra.NewFirebaseAuth(ctx, cfg.Firebase.ProjectID, cfg.Firebase.CredentialsFile)
		if err != nil {
			return fmt.Errorf("firebase init: %w", err)
		}
		verifier = infra.NewFirebaseVerifier(client)
		admin = auth.NewFirebaseAdmin(client)
	} else {
		logger.Warn("FIREBASE_PROJECT_ID not set; every caller is a guest")
	}
	if cfg.Firebase.WebAPIKey != "" {
		signIn, err = auth.NewIdentityToolkit(ctx, cfg.Firebase.WebAPIKey)
		if err != nil {
			return fmt.Errorf("identity toolkit init: %w", err)
		}
	}

	flights := search.NewCannedProvider()
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := httptransport.NewRouter(httptransport.RouterDeps{
		Logger:      logger,
		Verifier:    verifier,
		CORSOrigins: cfg.HTTP.CORSOrigins,
		RatePerMin:  cfg.HTTP.RatePerMin,
		FlowTimeout: cfg.AI.FlowTimeout,
		Parser:      queryparse.NewService(engine),
		Flights:     flights,
		Itineraries: itinerary.NewService(engine, repo, logger),
		Sessions:    assistant.NewSessions(assistant.NewService(engine, flights, routes, logger), convStore),
		Auth:        auth.NewService(admin, signIn, ""),
		Usage:       aiusage.NewService(ledger),
	})

	server := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Warn("shutdown", zap.Error(err))
		}
	}()

	logger.Info("listening", zap.String("addr", cfg.HTTP.Addr), zap.Bool("mock_ai", cfg.MockAI()))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	<-shutdownDone
	return nil
}
