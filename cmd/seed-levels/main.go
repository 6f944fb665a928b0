package main

import (
	"context"
	"flag"
	"os"

	"go.uber.org/zap"

	"github.com/HenryAG36/online-mini-golf-sub000/internal/config"
	"github.com/HenryAG36/online-mini-golf-sub000/internal/database"
	"github.com/HenryAG36/online-mini-golf-sub000/internal/levels"
	"github.com/HenryAG36/online-mini-golf-sub000/internal/logger"
	"github.com/HenryAG36/online-mini-golf-sub000/internal/migrations"
	"github.com/HenryAG36/online-mini-golf-sub000/internal/redis"
)

func main() {
	cfg := config.Load()

	dir := flag.String("dir", cfg.LevelsDir, "directory of level YAML files")
	migrate := flag.Bool("migrate", false, "apply database migrations first")
	check := flag.Bool("check", false, "validate the files without touching the database")
	flag.Parse()

	log, err := logger.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ls, err := levels.LoadDir(*dir)
	if err != nil {
		log.Error("invalid level files", zap.String("dir", *dir), zap.Error(err))
		os.Exit(1)
	}
	for _, l := range ls {
		log.Info("level ok",
			zap.String("slug", l.Slug),
			zap.Int("par", l.Par),
			zap.Int("obstacles", len(l.Course.Obstacles)),
			zap.String("fingerprint", l.Fingerprint))
	}
	if *check {
		return
	}

	ctx := context.Background()
	db, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	if *migrate {
		if err := migrations.Run(cfg.DatabaseURL, "migrations", logger.Named(log, "migrate")); err != nil {
			log.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	// Redis is only needed to drop stale cache entries.
	rdb, err := redis.Connect(ctx, cfg.RedisURL)
	if err != nil {
		log.Warn("redis unavailable; cached levels will expire on their own", zap.Error(err))
		rdb = nil
	} else {
		defer rdb.Close()
	}

	changed, err := levels.Sync(ctx, levels.NewStore(db, rdb, log), ls, log)
	if err != nil {
		log.Fatal("failed to seed levels", zap.Error(err))
	}
	log.Info("levels seeded", zap.Int("files", len(ls)), zap.Int("changed", changed))
}
