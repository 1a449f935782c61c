package main // Entry point package

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4" // Echo web framework
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/spf13/pflag"

	"github.com/iliyamo/travel-booking/internal/config" // Internal config loader
	"github.com/iliyamo/travel-booking/internal/database"
	"github.com/iliyamo/travel-booking/internal/handler"
	"github.com/iliyamo/travel-booking/internal/middleware"
	"github.com/iliyamo/travel-booking/internal/querycache"
	"github.com/iliyamo/travel-booking/internal/queue"
	"github.com/iliyamo/travel-booking/internal/repository"
	"github.com/iliyamo/travel-booking/internal/router" // Internal router setup
	"github.com/iliyamo/travel-booking/internal/seed"
	"github.com/iliyamo/travel-booking/internal/service"
	"github.com/iliyamo/travel-booking/internal/session"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		envFile  string
		seedFile string
		migrate  bool
		seedDB   bool
		consumer bool
	)
	flags := pflag.NewFlagSet("server", pflag.ContinueOnError)
	flags.StringVar(&envFile, "env-file", ".env", "dotenv file loaded before reading the environment")
	flags.BoolVar(&migrate, "migrate", false, "apply the embedded schema before serving")
	flags.BoolVar(&seedDB, "seed", false, "insert the catalog before serving")
	flags.StringVar(&seedFile, "seed-file", "", "YAML catalog used by --seed (default: built-in catalog)")
	flags.BoolVar(&consumer, "consumer", false, "run the queue consumer alongside the HTTP server")
	if err := flags.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	// A missing default .env is fine; a missing file named on the command
	// line is not.
	if err := godotenv.Load(envFile); err != nil && (flags.Changed("env-file") || !errors.Is(err, fs.ErrNotExist)) {
		return fmt.Errorf("load %s: %w", envFile, err)
	}

	cfg := config.Load() // Load environment config
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	var lh slog.Handler = slog.NewTextHandler(os.Stdout, opts)
	if cfg.LogJSON {
		lh = slog.NewJSONHandler(os.Stdout, opts)
	}
	logger := slog.New(lh).With("env", cfg.Env)
	slog.SetDefault(logger)
	handler.Timeout = cfg.RequestTimeout

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(cfg)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()
	if migrate {
		if err := database.Migrate(ctx, db); err != nil {
			return err
		}
		logger.Info("schema applied", "driver", cfg.DBDriver)
	}

	rdb := config.NewRedisClient(logger)
	if rdb != nil {
		defer rdb.Close()
	}

	qcfg := config.LoadQueryCacheConfig()
	backend := querycache.NewBackend(qcfg, rdb, logger)
	cache := querycache.New(backend, qcfg, logger)
	if mem, ok := backend.(*querycache.MemoryBackend); ok {
		go sweep(ctx, mem, qcfg.GCTime, logger)
	}

	qc := config.LoadQueueConfig()
	publisher := queue.NewPublisher(qc, logger)
	if consumer {
		go func() {
			if err := queue.NewConsumer(qc, logger).Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("consumer stopped", "error", err)
			}
		}()
	}

	deps := service.Deps{
		Packages:     repository.NewPackageRepo(db),
		Hotels:       repository.NewHotelRepo(db),
		Airlines:     repository.NewAirlineRepo(db),
		Conventions:  repository.NewConventionRepo(db),
		Reservations: repository.NewReservationRepo(db),
		Reviews:      repository.NewReviewRepo(db),
		Profiles:     repository.NewProfileRepo(db),
		Stats:        repository.NewStatsRepo(db),
		Cache:        cache,
		Events:       publisher,
		Logger:       logger,
	}
	svc := service.New(deps)

	broker := session.NewBroker(64, logger)
	defer broker.Close()
	sessions := session.NewManager(cfg, deps.Profiles, repository.NewTokenRepo(db), publisher, broker, logger)
	go service.WatchSessions(ctx, broker, cache, logger)

	if seedDB {
		seeder := &seed.Seeder{
			Catalog:     svc.Catalog,
			Hotels:      deps.Hotels,
			Airlines:    deps.Airlines,
			Conventions: deps.Conventions,
			Packages:    deps.Packages,
			Profiles:    deps.Profiles,
			BcryptCost:  cfg.BcryptCost,
			Logger:      logger.With("component", "seed"),
		}
		if err := runSeed(ctx, seeder, seedFile); err != nil {
			return err
		}
	}

	gate := middleware.NewGate(svc.Profiles.IsAdmin, cfg.RequestTimeout, logger)
	limit := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb, logger)

	e := echo.New() // Create Echo instance
	e.HideBanner = true
	e.HidePort = true
	e.Use(echomw.Recover())
	e.Use(middleware.RequestLogger(logger))

	catalog := &handler.CatalogHandler{Catalog: svc.Catalog}
	router.RegisterRoutes(e, db)
	router.RegisterPublic(e, catalog)
	router.RegisterAuth(e, handler.NewAuthHandler(sessions), cfg.JWTSecret, limit)
	router.RegisterGate(e, &handler.GateHandler{Gate: gate}, cfg.JWTSecret)
	router.RegisterCustomer(e, &handler.CustomerHandler{
		Reservations: svc.Reservations,
		Reviews:      svc.Reviews,
		Profiles:     svc.Profiles,
	}, gate, cfg.JWTSecret, limit)
	router.RegisterAdmin(e, &handler.AdminHandler{Admin: svc.Admin}, &handler.AdminCatalogHandler{Catalog: svc.Catalog}, catalog, gate, cfg.JWTSecret)

	addr := ":" + cfg.Port // Address string with port
	errc := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", addr, "driver", cfg.DBDriver)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}

// runSeed loads the catalog and inserts what is missing.  SEED_ADMIN_EMAIL
// and SEED_ADMIN_PASSWORD add an administrator when the catalog has none.
func runSeed(ctx context.Context, s *seed.Seeder, path string) error {
	cat, err := seed.Load(path)
	if err != nil {
		return err
	}
	if email := os.Getenv("SEED_ADMIN_EMAIL"); cat.Admin == nil && email != "" {
		cat.Admin = &seed.Admin{Email: email, Password: os.Getenv("SEED_ADMIN_PASSWORD")}
	}
	_, err = s.Run(ctx, cat)
	return err
}

// sweep drops expired entries from the in-process cache backend.
func sweep(ctx context.Context, mem *querycache.MemoryBackend, every time.Duration, logger *slog.Logger) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := mem.Sweep(); n > 0 {
				logger.Debug("query cache swept", "dropped", n)
			}
		}
	}
}
