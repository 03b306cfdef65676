package main // Entry point package

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/iliyamo/tripbook/internal/config"
	"github.com/iliyamo/tripbook/internal/database"
	"github.com/iliyamo/tripbook/internal/handler"
	"github.com/iliyamo/tripbook/internal/logging"
	"github.com/iliyamo/tripbook/internal/metrics"
	"github.com/iliyamo/tripbook/internal/middleware"
	"github.com/iliyamo/tripbook/internal/queue"
	"github.com/iliyamo/tripbook/internal/repository"
	"github.com/iliyamo/tripbook/internal/repository/memstore"
	"github.com/iliyamo/tripbook/internal/repository/mongostore"
	"github.com/iliyamo/tripbook/internal/router"
	"github.com/iliyamo/tripbook/internal/search"
	"github.com/iliyamo/tripbook/internal/service"
	"github.com/iliyamo/tripbook/internal/tracing"
	"github.com/iliyamo/tripbook/internal/utils"
)

func main() {
	cfg, err := config.Load() // Load environment config
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.LogLevel)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("server stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

// stores groups the credential and booking stores of the selected driver.
type stores struct {
	users    service.UserStore
	bookings service.BookingStore
	ping     handler.Check
	close    func()
}

func openStores(ctx context.Context, cfg config.Config, logger *slog.Logger) (stores, error) {
	switch cfg.StoreDriver {
	case config.StoreMemory:
		logger.Warn("using in-memory store; data is lost on restart")
		m := memstore.New()
		return stores{users: m, bookings: m.Bookings(), ping: m.Ping, close: func() {}}, nil

	case config.StoreMongo:
		cctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		m, err := mongostore.Connect(cctx, cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return stores{}, err
		}
		return stores{
			users:    m.Users(),
			bookings: m.Bookings(),
			ping:     m.Ping,
			close:    func() { _ = m.Close(context.Background()) },
		}, nil

	default:
		db, err := database.Open(ctx, database.Config{
			User:     cfg.DBUser,
			Password: cfg.DBPass,
			Host:     cfg.DBHost,
			Port:     cfg.DBPort,
			Name:     cfg.DBName,
		})
		if err != nil {
			return stores{}, err
		}
		mctx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		if err := database.Migrate(mctx, db); err != nil {
			_ = db.Close()
			return stores{}, err
		}
		return stores{
			users:    repository.NewUserRepo(db),
			bookings: repository.NewBookingRepo(db),
			ping:     db.PingContext,
			close:    func() { _ = db.Close() },
		}, nil
	}
}

func run(cfg config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Init(ctx, logger, "tripbook", cfg.Env)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer func() { _ = shutdownTracing(context.Background()) }()

	st, err := openStores(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("open %s store: %w", cfg.StoreDriver, err)
	}
	defer st.close()

	var tokenOpts []utils.TokenOption
	if cfg.TokenLegacyNoExpiry {
		logger.Warn("TOKEN_LEGACY_NO_EXPIRY is set: tokens are issued without expiry and accepted forever; this is insecure")
		tokenOpts = append(tokenOpts, utils.WithoutExpiry())
	}
	tokens := utils.NewTokenManager(cfg.JWTSecret, cfg.TokenTTL, tokenOpts...)
	hasher := utils.NewPasswordHasher(cfg.BcryptCost)

	var publisher service.BookingPublisher
	if cfg.RabbitMQURL != "" {
		publisher = queue.NewPublisher(cfg.RabbitMQURL, logger)
	}
	if cfg.BookingConsumerEnabled {
		consumer := queue.NewConsumer(cfg.RabbitMQURL, cfg.BookingLogDir, logger)
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("booking consumer stopped", slog.Any("error", err))
			}
		}()
	}

	var searcher handler.Searcher
	if cfg.SearchEnabled() {
		searcher = search.NewClient(search.Config{
			BaseURL:      cfg.AmadeusBaseURL,
			ClientID:     cfg.AmadeusClientID,
			ClientSecret: cfg.AmadeusClientSecret,
		}, logger)
	} else {
		logger.Warn("AMADEUS_CLIENT_ID/AMADEUS_CLIENT_SECRET not set; search endpoints disabled")
	}

	rdb := config.NewRedisClient(ctx, cfg.Redis, logger)
	ready := map[string]handler.Check{"store": st.ping}
	if rdb != nil {
		defer rdb.Close()
		ready["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}

	authSvc := service.NewAuthService(st.users, hasher, tokens, logger)
	bookingSvc := service.NewBookingService(st.bookings, publisher, logger)

	e := echo.New() // Create Echo instance
	e.HideBanner = true
	e.HidePort = true
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(echo.WrapMiddleware(otelhttp.NewMiddleware("tripbook")))
	e.Use(metrics.HTTPMetricsMiddleware)
	e.Use(middleware.RequestLogger(logger))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSAllowedOrigins,
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
	}))
	e.Use(echomw.BodyLimit("1M"))

	router.RegisterAll(e, router.Deps{
		Auth:      handler.NewAuthHandler(authSvc, logger),
		Bookings:  handler.NewBookingHandler(bookingSvc, logger),
		Search:    handler.NewSearchHandler(searcher),
		Verifier:  tokens,
		RateLimit: middleware.NewRateLimiter(cfg.RateLimit, rdb, logger).Middleware(),
		Cache:     middleware.NewSearchCache(cfg.SearchCache, rdb, logger).Middleware(),
		Ready:     ready,
	})

	addr := ":" + cfg.Port // Address string with port
	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", slog.String("addr", addr), slog.String("env", cfg.Env), slog.String("store", cfg.StoreDriver))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(sctx)
}
