package main

import (
	"context"
	"crypto/rand"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"myrestaurants/internal/adapters/auth"
	server "myrestaurants/internal/adapters/http_server"
	"myrestaurants/internal/adapters/observability"
	redisad "myrestaurants/internal/adapters/redis"
	"myrestaurants/internal/app"
	"myrestaurants/internal/domain"
	"myrestaurants/internal/shared"
	"myrestaurants/internal/storage/memory"
	mysqlrepo "myrestaurants/internal/storage/mysql"
)

const shutdownGrace = 10 * time.Second

func main() {
	cfg := shared.Load()

	// set global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv, cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, db, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.StoreDriver).Msg("store unavailable")
	}
	if db != nil {
		defer db.Close()
	}

	cache := openCache(ctx, cfg)
	q := app.NewQueryService(store, cache, cfg.CacheTTL)
	c := app.NewCommandService(store, cache)

	tokens := auth.NewTokens(sessionSecret(cfg), cfg.SessionTTL)
	authn := auth.NewAuthenticator(store.Users(), tokens)
	views, err := server.LoadViews()
	if err != nil {
		log.Fatal().Err(err).Msg("templates failed to load")
	}

	// http
	srv := server.New(server.Options{Timeout: cfg.RequestTimeout, Actors: authn, Cookie: cfg.SessionCookie, Secure: cfg.SessionSecure})
	reg := observability.InitRegistry()
	srv.Mount("/metrics", observability.MetricsHandler(reg))
	srv.MountHealth()
	srv.MountAccounts(&server.AccountHandlers{
		Auth:       authn,
		Views:      views,
		Cookie:     cfg.SessionCookie,
		SessionTTL: cfg.SessionTTL,
		Secure:     cfg.SessionSecure,
		LoginRPS:   cfg.LoginRPS,
		LoginBurst: cfg.LoginBurst,
	})
	srv.MountAPI(&server.APIHandlers{API: app.NewAPI(store, q, c), CORSOrigins: cfg.CORSOrigins})
	srv.MountPages(&server.PageHandlers{P: app.NewPages(q, c), Views: views})

	servers := []*http.Server{{Addr: cfg.HTTPAddr, Handler: srv.Mux(), ReadHeaderTimeout: 5 * time.Second}}
	if m := observability.Serve(cfg.MetricsAddr, reg); m != nil {
		servers = append(servers, m)
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, s := range servers {
		s := s
		g.Go(func() error {
			log.Info().Str("addr", s.Addr).Msg("listening")
			if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		log.Info().Msg("shutting down")
		sctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		for _, s := range servers {
			if err := s.Shutdown(sctx); err != nil {
				log.Warn().Err(err).Str("addr", s.Addr).Msg("shutdown incomplete")
			}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Fatal().Err(err).Msg("http server failed")
	}
	log.Info().Msg("bye")
}

// openStore returns the configured store; db is nil for the memory driver.
func openStore(ctx context.Context, cfg shared.Config) (domain.Store, *sql.DB, error) {
	if cfg.StoreDriver == "memory" {
		log.Warn().Msg("using the in-memory store; data is lost on exit")
		return memory.NewStore(), nil, nil
	}
	db, err := mysqlrepo.Open(ctx, cfg.MySQLDSN)
	if err != nil {
		return nil, nil, err
	}
	if err := mysqlrepo.Bootstrap(ctx, db); err != nil {
		db.Close()
		return nil, nil, err
	}
	log.Info().Msg("database connection ok")
	return mysqlrepo.New(db), db, nil
}

// openCache falls back to no caching when redis does not answer.
func openCache(ctx context.Context, cfg shared.Config) domain.Cache {
	rc := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	pctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := rc.Ping(pctx); err != nil {
		log.Warn().Err(err).Str("addr", cfg.RedisAddr).Msg("redis unavailable, caching disabled")
		_ = rc.Close()
		return app.NopCache{}
	}
	return rc
}

func sessionSecret(cfg shared.Config) []byte {
	if cfg.SessionSecret != "" {
		return []byte(cfg.SessionSecret)
	}
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		log.Fatal().Err(err).Msg("cannot generate session secret")
	}
	return b
}
