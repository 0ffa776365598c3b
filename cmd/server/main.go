package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"dressup/internal/ai/gemini"
	"dressup/internal/config"
	"dressup/internal/session"
	"dressup/internal/storage"
	"dressup/internal/transport/rest"
)

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	zlog.Logger = zlog.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})

	ctx := context.Background()
	cfg := config.FromEnv()

	kv, cleanup, err := openStore(ctx, cfg)
	if err != nil {
		zlog.Fatal().Err(err).Str("store", cfg.Store).Msg("failed to open session store")
	}
	defer cleanup()
	zlog.Info().Str("store", cfg.Store).Dur("ttl", cfg.SessionTTL).Msg("session store ready")

	if cfg.GeminiAPIKey == "" {
		zlog.Warn().Msg("GEMINI_API_KEY not set; generation requires per-session credentials")
	}

	repo := session.NewRepository(kv, cfg.SessionTTL)
	notifier := session.NewNotifier()
	store := session.NewStore(repo, notifier)
	watcher := session.NewWatcher(store, notifier)
	provider := gemini.New(cfg.GeminiBaseURL, cfg.GeminiModel)

	router := rest.NewRouter(&rest.Container{
		Sessions:           store,
		Watcher:            watcher,
		Provider:           provider,
		ServerAPIKey:       cfg.GeminiAPIKey,
		PublicBaseURL:      cfg.PublicBaseURL,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		zlog.Info().Str("addr", srv.Addr).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zlog.Fatal().Err(err).Msg("listen and serve")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zlog.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zlog.Error().Err(err).Msg("forced shutdown")
	}
}

// openStore selects the storage backend from config and verifies it is
// reachable before the server accepts traffic.
func openStore(ctx context.Context, cfg config.Config) (storage.KV, func(), error) {
	switch cfg.Store {
	case "redis":
		addr := strings.TrimPrefix(cfg.RedisURI, "redis://")
		client := redis.NewClient(&redis.Options{Addr: addr})
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if _, err := client.Ping(pingCtx).Result(); err != nil {
			client.Close()
			return nil, nil, err
		}
		return storage.NewRedisKV(client), func() { client.Close() }, nil

	case "mongo":
		client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
		if err != nil {
			return nil, nil, err
		}
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx, nil); err != nil {
			client.Disconnect(ctx)
			return nil, nil, err
		}
		kv, err := storage.NewMongoKV(ctx, client.Database(cfg.MongoDB))
		if err != nil {
			client.Disconnect(ctx)
			return nil, nil, err
		}
		return kv, func() { client.Disconnect(context.Background()) }, nil

	default:
		return storage.NewMemoryKV(), func() {}, nil
	}
}
