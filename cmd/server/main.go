package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/HenryAG36/online-mini-golf-sub000/internal/api"
	"github.com/HenryAG36/online-mini-golf-sub000/internal/api/handlers"
	"github.com/HenryAG36/online-mini-golf-sub000/internal/auth"
	"github.com/HenryAG36/online-mini-golf-sub000/internal/config"
	"github.com/HenryAG36/online-mini-golf-sub000/internal/database"
	"github.com/HenryAG36/online-mini-golf-sub000/internal/levels"
	"github.com/HenryAG36/online-mini-golf-sub000/internal/logger"
	"github.com/HenryAG36/online-mini-golf-sub000/internal/middleware"
	"github.com/HenryAG36/online-mini-golf-sub000/internal/migrations"
	"github.com/HenryAG36/online-mini-golf-sub000/internal/redis"
	"github.com/HenryAG36/online-mini-golf-sub000/internal/scorecard"
	"github.com/HenryAG36/online-mini-golf-sub000/internal/session"
	"github.com/HenryAG36/online-mini-golf-sub000/internal/ws"
)

func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
	log.Info("server stopped cleanly")
}

func run(ctx context.Context, cfg *config.Config, log *zap.Logger) error {
	db, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer db.Close()

	if cfg.MigrateOnStart {
		log.Info("running DB migrations on startup")
		if err := migrations.Run(cfg.DatabaseURL, "migrations", logger.Named(log, "migrate")); err != nil {
			return err
		}
	}

	rdb, err := redis.Connect(ctx, cfg.RedisURL)
	if err != nil {
		return err
	}
	defer rdb.Close()

	store := levels.NewStore(db, rdb, logger.Named(log, "levels"))
	if ls, err := levels.LoadDir(cfg.LevelsDir); err != nil {
		log.Warn("no level files loaded; serving stored levels only", zap.String("dir", cfg.LevelsDir), zap.Error(err))
	} else if n, err := levels.Sync(ctx, store, ls, logger.Named(log, "levels")); err != nil {
		return err
	} else {
		log.Info("levels synced", zap.Int("files", len(ls)), zap.Int("changed", n))
	}

	g, gctx := errgroup.WithContext(ctx)

	hub := ws.NewHub(logger.Named(log, "ws"))
	hub.UseRedis(rdb)

	mgr := session.NewManager(gctx, session.Options{
		Physics:        cfg.Physics(),
		TickInterval:   cfg.TickInterval(),
		BroadcastEvery: cfg.BroadcastEvery(),
		MaxPlayers:     cfg.MaxPlayersPerSession,
		IdleTimeout:    cfg.SessionIdleTimeout(),
	}, store, hub, scorecard.NewStore(db), logger.Named(log, "session"))
	mgr.UseRedis(rdb)

	tokens := auth.NewIssuer(cfg.JWTSecret, cfg.PlayerTokenTTL())
	socket := ws.NewHandler(hub, mgr, tokens, func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || middleware.OriginAllowed(cfg, origin)
	}, logger.Named(log, "ws"))

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	api.SetupRoutes(router, api.Server{
		Config: cfg,
		Handlers: handlers.Deps{
			Sessions: mgr,
			Levels:   store,
			Scores:   scorecard.NewStore(db),
			Tokens:   tokens,
		},
		Socket:    socket.Serve,
		LiveCount: mgr.Len,
		Log:       logger.Named(log, "api"),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g.Go(func() error { return hub.Run(gctx) })
	g.Go(func() error { return hub.Subscribe(gctx) })
	g.Go(func() error {
		return mgr.RunReaper(gctx, time.Duration(cfg.SessionReaperIntervalSecs)*time.Second)
	})
	g.Go(func() error {
		log.Info("starting minigolf server", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn("http shutdown", zap.Error(err))
		}
		return mgr.Shutdown("server shutting down")
	})

	return g.Wait()
}
