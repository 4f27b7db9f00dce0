package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"iskolar.org/internal/audit"
	"iskolar.org/internal/auth"
	"iskolar.org/internal/config"
	"iskolar.org/internal/httpapi"
	"iskolar.org/internal/obs"
	"iskolar.org/internal/store/pg"
	"iskolar.org/internal/stream"
	"iskolar.org/internal/student"
)

// Overridden at build time via -ldflags.
var (
	version = "0.1.0"
	commit  = "none"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLog := obs.NewLogger("iskolar-api", version, true)
		bootLog.Fatal().Err(err).Msg("load config")
	}
	log := obs.NewLogger("iskolar-api", version, cfg.Dev)

	obs.Init()
	obs.InitBuildInfo(version, commit)

	// The DSN selects the backing store. Without one the API runs fully
	// in memory, which is enough for local work against the login page.
	var (
		authStore auth.Store
		students  student.Service
		db        *sql.DB
	)
	if cfg.Postgres.DSN != "" {
		pgStore, err := pg.Open(cfg.Postgres.DSN)
		if err != nil {
			log.Fatal().Err(err).Msg("open postgres")
		}
		defer pgStore.Close()
		authStore = pgStore
		students = pgStore.Students()
		db = pgStore.DB()
		log.Info().Msg("using postgres store")
	} else {
		authStore = auth.NewMemoryStore()
		students = student.NewInMemory()
		log.Warn().Msg("no ISKOLAR_PG_DSN set, using in-memory store")
	}

	authSvc, err := auth.NewService(authStore, []byte(cfg.Session.Secret),
		auth.WithSessionTTL(cfg.Session.TTL),
		auth.WithRememberTTL(cfg.Session.RememberTTL),
		auth.WithBcryptCost(cfg.Session.BcryptCost),
	)
	if err != nil {
		log.Fatal().Err(err).Msg("build auth service")
	}

	if cfg.Bootstrap.Email != "" && cfg.Bootstrap.Password != "" {
		account, err := authSvc.Bootstrap(context.Background(), cfg.Bootstrap.Email, cfg.Bootstrap.Password)
		if err != nil {
			log.Fatal().Err(err).Msg("bootstrap master admin")
		}
		if account != nil {
			log.Info().Str("account_id", account.ID).Str("email", account.Email).Msg("bootstrapped master admin")
		}
	}

	activity := stream.New()
	recorder := audit.NewRecorder(log, activity)

	api := httpapi.New(httpapi.Config{
		Version:      version,
		CookieName:   cfg.Session.CookieName,
		CookieSecure: cfg.Session.CookieSecure,
		RateBurst:    cfg.Rate.Burst,
		RatePerSec:   cfg.Rate.PerSec,
	}, authSvc, students, httpapi.ReadyProbe{DB: db}, log, recorder, activity)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		// No WriteTimeout: /v1/events holds its response open.
		IdleTimeout: 60 * time.Second,
	}

	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go purgeExpiredSessions(rootCtx, authSvc, log)

	go func() {
		log.Info().Str("addr", srv.Addr).Str("version", version).Msg("starting iskolar-api")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("listen")
		}
	}()

	<-rootCtx.Done()
	log.Info().Msg("shutting down")
	obs.SetReady(false)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("shutdown")
	}
	log.Info().Msg("stopped")
}

// purgeExpiredSessions trims session rows past their horizon once an hour.
// Validation never depends on this; it only keeps the table small.
func purgeExpiredSessions(ctx context.Context, svc *auth.Service, log zerolog.Logger) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := svc.PurgeExpiredSessions(ctx)
			if err != nil {
				log.Error().Err(err).Msg("purge expired sessions")
				continue
			}
			if n > 0 {
				log.Info().Int64("purged", n).Msg("purged expired sessions")
			}
		}
	}
}
