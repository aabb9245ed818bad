// Command identikit runs the identity client as a headless daemon: it
// keeps the stored session fresh in the background and exposes health
// and metrics endpoints for the host.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"identikit/internal/identity"
	"identikit/internal/platform/config"
	"identikit/internal/platform/logger"
	"identikit/internal/platform/metrics"
	platformredis "identikit/internal/platform/redis"
	"identikit/internal/session"
)

func main() {
	// Optional .env for local development; the environment wins.
	_ = godotenv.Load()

	cfg := config.FromEnv()
	log := logger.New(os.Stderr, cfg.LogLevel)

	rdb, err := platformredis.New(config.RedisFromEnv())
	if err != nil {
		log.Fatal().Err(err).Msg("redis connection failed")
	}

	var store session.TokenStore
	if rdb != nil {
		store = session.NewRedisTokenStore(rdb.Client)
		log.Info().Msg("using redis token store")
	} else {
		store = session.NewInMemoryTokenStore()
		log.Info().Msg("redis not configured, using in-memory token store")
	}

	svc := identity.NewHTTPClient(cfg.IdentityBaseURL, cfg.PublicAPIKey)
	mx := metrics.New()

	manager := session.New(store, svc,
		session.WithLogger(log),
		session.WithMetrics(mx),
		session.WithRefreshThreshold(cfg.RefreshThreshold),
		session.WithCheckInterval(cfg.RefreshInterval),
		session.WithRedirectDelay(cfg.ExpiredRedirectDelay),
		session.WithCallbacks(session.Callbacks{
			OnSessionExpired: func(message string) {
				log.Warn().Str("notice", message).Msg("session expired")
			},
			OnRedirectLogin: func() {
				log.Info().Msg("session cleared, sign-in required")
			},
		}),
	)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	authenticated := manager.Init(ctx)
	cancel()
	log.Info().Bool("authenticated", authenticated).Str("ops_addr", cfg.OpsAddr).
		Msg("identikit started")

	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	router.Handle("/metrics", promhttp.Handler())
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if rdb != nil {
			if err := rdb.Health(r.Context()); err != nil {
				http.Error(w, "redis unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	router.Get("/sessionz", func(w http.ResponseWriter, r *http.Request) {
		info, ok := manager.SessionInfo(r.Context())
		if !ok {
			http.Error(w, "no session", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte(info.UserID + " expires in " + info.ExpiresIn.String() + "\n"))
	})

	srv := &http.Server{
		Addr:              cfg.OpsAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("ops server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down")

	manager.Destroy()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("ops server shutdown failed")
	}
	if rdb != nil {
		_ = rdb.Close()
	}
}
