package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"lexshare/api"
	"lexshare/config"
	"lexshare/db"
	"lexshare/inflight"
	"lexshare/share"
	"lexshare/utils"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// @title           LexShare API
// @version         1.0.0

// @description     ## LexShare API
// @description
// @description     Community bulletin board for curated legal research collections ("shared environments").
// @description
// @description     **High-Level Overview:**
// @description     *   Publish a snapshot of dossiers, quick-norms and custom aliases, optionally with notes and highlights.
// @description     *   Every content change appends a version. In `replace` mode the previous version is marked replaced, in `coexist` mode it is left as it was. Nothing is ever removed from the history.
// @description     *   Other users may suggest additions. The owner approves them (`merge` or `replace`) as a new version, or rejects them with a note.
// @description     *   Likes, downloads and views are counted. Reports go to the administrators.
// @description
// @description     **Errors** are returned as `{"error": "...", "code": "..."}`. Codes: `validation`, `not_owner`, `forbidden`, `not_found`, `not_pending`, `self_suggestion`, `duplicate_report`, `busy`.

// @contact.name   LexShare Maintainers

// @host      localhost:8080
// @BasePath  /
// @schemes   http

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

const shutdownTimeout = 30 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "CRITICAL: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	utils.SetupGlobalLogger(utils.NewLogger(cfg.LogLevel, cfg.LogFormat, os.Stdout))
	gin.SetMode(gin.ReleaseMode)

	store, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("initialize store: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close store")
		}
	}()

	guard, closeGuard, err := newGuard(cfg)
	if err != nil {
		return fmt.Errorf("initialize in-flight guard: %w", err)
	}
	defer closeGuard()

	router := api.NewRouter(api.Deps{
		Service: share.NewService(store),
		Store:   store,
		Guard:   guard,
		Config:  cfg,
		DocsDir: "docs",
	})

	listenAddr := fmt.Sprintf("%s:%s", cfg.ListenAddress, cfg.ListenPort)
	server := &http.Server{
		Addr:              listenAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	serveErr := make(chan error, 1)
	go func() {
		log.Info().Str("address", listenAddr).Str("store", cfg.StoreDriver).Msg("starting server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server failed to start: %w", err)
		}
		return nil
	case sig := <-sigChan:
		log.Info().Str("signal", sig.String()).Msg("shutdown signal received")
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("server shutdown error")
	}
	log.Info().Msg("graceful shutdown complete")
	return nil
}

// openStore opens the configured persistence backend.
func openStore(cfg *config.Config) (db.Store, error) {
	switch cfg.StoreDriver {
	case config.StorePostgres:
		return db.NewPostgresStore(db.PostgresConfig{
			DSN:             cfg.PostgresDSN,
			LogLevel:        cfg.PostgresLogLevel,
			MaxIdleConns:    cfg.PostgresMaxIdleConns,
			MaxOpenConns:    cfg.PostgresMaxOpenConns,
			ConnMaxLifetime: cfg.PostgresConnMaxLifetime,
		})
	default:
		return db.NewDatabase(cfg)
	}
}

// newGuard returns a redis-backed guard when a redis address is configured,
// an in-process one otherwise.
func newGuard(cfg *config.Config) (inflight.Guard, func(), error) {
	if cfg.RedisAddr == "" {
		return inflight.NewMemoryGuard(cfg.InflightTTL), func() {}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("connect to redis at %s: %w", cfg.RedisAddr, err)
	}
	log.Info().Str("addr", cfg.RedisAddr).Msg("using redis in-flight guard")

	closeFn := func() {
		if err := client.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close redis client")
		}
	}
	return inflight.NewRedisGuard(client, "lexshare:inflight:", cfg.InflightTTL), closeFn, nil
}
