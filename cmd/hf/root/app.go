package root

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"os"
	"strings"

	"github.com/redis/go-redis/v9"

	"habitforge/internal/catalog"
	"habitforge/internal/config"
	"habitforge/internal/engine"
	"habitforge/internal/notify"
	"habitforge/internal/platform/logger"
	"habitforge/internal/platform/tracing"
	"habitforge/internal/storage"
)

// app holds everything a command needs. The SQLite-only repos are nil when
// running against Postgres.
type app struct {
	cfg   *config.Config
	log   *logger.Logger
	svc   *engine.Service
	store storage.Store
	user  string

	db         *sql.DB
	badges     *storage.BadgeRepo
	activities *storage.ActivityRepo
	rdb        *redis.Client
}

var errNeedsSQLite = errors.New("this command needs the sqlite database driver")

func loadConfig() (*config.Config, error) {
	path := configPath
	if path == "" {
		p, err := config.DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if dbPath != "" {
		cfg.Database.Driver = "sqlite"
		cfg.Database.Path = dbPath
	}
	return cfg, nil
}

func resolveUser() string {
	for _, v := range []string{userFlag, os.Getenv("HF_USER"), os.Getenv("USER")} {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return "local"
}

func openApp(ctx context.Context) (*app, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	log, err := logger.New(logger.Options{Mode: cfg.Log.Mode, Level: cfg.Log.Level, HashSalt: cfg.Log.Salt})
	if err != nil {
		return nil, nil, err
	}
	a := &app{cfg: cfg, log: log, user: resolveUser()}

	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
		log.Sync()
	}
	fail := func(err error) (*app, func(), error) {
		cleanup()
		return nil, nil, err
	}

	shutdown, err := tracing.Init(ctx, log, tracing.Config{
		ServiceName: "habitforge",
		Version:     Version,
		Enabled:     cfg.Tracing.Enabled,
		Endpoint:    cfg.Tracing.Endpoint,
		Insecure:    cfg.Tracing.Insecure,
		SampleRatio: cfg.Tracing.SampleRatio,
		Writer:      os.Stderr,
	})
	if err != nil {
		log.Warn("tracing disabled", "error", err)
	}
	closers = append(closers, func() { _ = shutdown(context.Background()) })

	switch cfg.Database.Driver {
	case "postgres":
		pg, err := storage.OpenPostgresStore(ctx, cfg.Database.DSN)
		if err != nil {
			return fail(err)
		}
		a.store = pg
	default:
		path, err := storage.ResolveDBPath(cfg.Database.Path)
		if err != nil {
			return fail(err)
		}
		db, err := storage.Open(ctx, path)
		if err != nil {
			return fail(err)
		}
		a.db = db
		a.store = storage.NewSQLiteStore(db)
		a.badges = storage.NewBadgeRepo(db)
		a.activities = storage.NewActivityRepo(db)
	}
	closers = append(closers, func() { _ = a.store.Close() })

	notifier := notify.NewMulti(log, notify.NewLog(log))
	if a.activities != nil {
		notifier.Add(notify.NewFeed(a.activities))
	}
	if cfg.Redis.Addr != "" {
		rdb, err := notify.DialRedis(ctx, cfg.Redis.Addr)
		if err != nil {
			log.Warn("redis unavailable, events stay local", "addr", cfg.Redis.Addr, "error", err)
		} else {
			a.rdb = rdb
			closers = append(closers, func() { _ = rdb.Close() })
			notifier.Add(notify.NewRedis(rdb, cfg.Redis.Channel))
		}
	}

	loc, err := cfg.Location()
	if err != nil {
		return fail(err)
	}
	a.svc = engine.NewService(a.store,
		engine.WithCatalog(badgeSource(cfg, a.badges)),
		engine.WithNotifier(notifier),
		engine.WithLogger(log),
		engine.WithRules(engineRules(cfg.Rules)),
		engine.WithRetryPolicy(storage.RetryPolicy{
			MaxAttempts:     cfg.Tx.MaxAttempts,
			InitialInterval: cfg.Tx.InitialInterval,
			MaxInterval:     cfg.Tx.MaxInterval,
		}),
		engine.WithLocation(loc),
	)
	return a, cleanup, nil
}

// openSession is openApp for commands that act as the user: it runs
// today's check-in first and reports anything it cost to w.
func openSession(ctx context.Context, w io.Writer) (*app, func(), error) {
	a, cleanup, err := openApp(ctx)
	if err != nil {
		return nil, nil, err
	}
	res, err := a.svc.DailyLogin(ctx, a.user, nil)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	printCheckIn(w, res, a.svc.Rules().MaxHearts, true)
	return a, cleanup, nil
}

// badgeSource picks the catalog: an explicit YAML file, else the stored
// catalog with the built-in set as fallback.
func badgeSource(cfg *config.Config, repo *storage.BadgeRepo) engine.Catalog {
	xp := cfg.Rules.DefaultBadgeXP
	switch {
	case cfg.BadgeCatalog != "":
		return &catalog.FileSource{Path: cfg.BadgeCatalog, DefaultXP: xp}
	case repo != nil:
		return &catalog.SQLSource{Repo: repo, DefaultXP: xp, Fallback: catalog.Default(xp)}
	default:
		return catalog.Default(xp)
	}
}

func engineRules(r config.Rules) engine.Rules {
	return engine.Rules{
		XPPerCompletion:  r.XPPerCompletion,
		PointsPerLevel:   r.PointsPerLevel,
		MaxHearts:        r.MaxHearts,
		StreakFreezeItem: r.StreakFreezeItem,
		DefaultBadgeXP:   r.DefaultBadgeXP,
		LeaderboardSize:  r.LeaderboardSize,
	}
}
