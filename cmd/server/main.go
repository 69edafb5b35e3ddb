package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/stdlib"
	"golang.org/x/sync/errgroup"

	"github.com/dukerupert/fusionx/internal"
	"github.com/dukerupert/fusionx/internal/billing"
	"github.com/dukerupert/fusionx/internal/cache"
	"github.com/dukerupert/fusionx/internal/cookie"
	"github.com/dukerupert/fusionx/internal/email"
	"github.com/dukerupert/fusionx/internal/handler/storefront"
	"github.com/dukerupert/fusionx/internal/jobs"
	"github.com/dukerupert/fusionx/internal/middleware"
	"github.com/dukerupert/fusionx/internal/postal"
	"github.com/dukerupert/fusionx/internal/postgres"
	"github.com/dukerupert/fusionx/internal/pricing"
	"github.com/dukerupert/fusionx/internal/router"
	"github.com/dukerupert/fusionx/internal/routes"
	"github.com/dukerupert/fusionx/internal/service"
	"github.com/dukerupert/fusionx/internal/shipping"
	"github.com/dukerupert/fusionx/internal/telemetry"
	"github.com/dukerupert/fusionx/internal/validate"
	"github.com/dukerupert/fusionx/internal/worker"
)

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load configuration
	cfg, err := internal.NewConfig()
	if err != nil {
		return fmt.Errorf("config initialization failed: %w", err)
	}

	// Configure logger
	logger := internal.NewLogger(os.Stdout, cfg.Env, cfg.LogLevel)
	slog.SetDefault(logger)

	flushSentry, err := telemetry.InitSentry(telemetry.SentryConfig{
		DSN:              cfg.Sentry.DSN,
		Enabled:          cfg.Sentry.Enabled,
		Environment:      cfg.Sentry.Environment,
		Release:          cfg.Sentry.Release,
		SampleRate:       cfg.Sentry.SampleRate,
		TracesSampleRate: cfg.Sentry.TracesSampleRate,
		Debug:            cfg.Sentry.Debug,
	}, logger)
	if err != nil {
		return err
	}
	defer flushSentry()

	telemetry.InitBusinessMetrics("fusionx")

	// Database
	logger.Info("Connecting to database...")
	pool, err := postgres.Connect(ctx, cfg.DatabaseUrl)
	if err != nil {
		return fmt.Errorf("database connection failed: %w", err)
	}
	defer pool.Close()
	logger.Info("Database connection established")

	logger.Info("Running database migrations...")
	sqlDB := stdlib.OpenDBFromPool(pool)
	err = internal.RunMigrations(ctx, sqlDB, logger)
	sqlDB.Close()
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	logger.Info("Database migrations completed successfully")

	// Stores
	sessionStore := postgres.NewSessionStore(pool)
	inventoryStore := postgres.NewInventoryStore(pool)
	userCartStore := postgres.NewUserCartStore(pool)
	userStore := postgres.NewUserStore(pool)
	orderStore := postgres.NewOrderStore(pool)
	offerStore := postgres.NewOfferStore(pool)
	pincodeStore := postgres.NewPincodeStore(pool)
	jobStore := postgres.NewJobStore(pool)

	appCache := cache.New()

	// Providers
	payments, err := billing.New(billing.Config{
		Provider:  cfg.Payment.Provider,
		KeyID:     cfg.Payment.KeyID,
		KeySecret: cfg.Payment.KeySecret,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize payment provider: %w", err)
	}
	logger.Info("Payment provider initialized", "provider", payments.Name())

	var fakePay *storefront.FakePayHandler
	if fake, ok := payments.(*billing.FakeProvider); ok && cfg.Env != "prod" {
		fakePay = storefront.NewFakePayHandler(fake)
		logger.Warn("Local payment provider active, POST /fakepay/pay settles payment orders")
	}

	shippingTable, err := shipping.NewTable(cfg.RegisteredState, shipping.NeighbourStates, shipping.DefaultRates)
	if err != nil {
		return fmt.Errorf("failed to initialize shipping table: %w", err)
	}

	postalLookup := postal.NewService(appCache, pincodeStore,
		postal.NewHTTPFetcher(cfg.Postal.APIURL, cfg.Postal.Timeout), logger)

	var emailService *email.Service
	var notifier service.OrderNotifier
	if cfg.Email.Enabled {
		sender := email.NewSMTPSender(&email.SMTPConfig{
			Host:     cfg.Email.Host,
			Port:     int(cfg.Email.Port),
			Username: cfg.Email.Username,
			Password: cfg.Email.Password,
			From:     cfg.Email.From,
			FromName: cfg.Email.FromName,
		}, logger)
		emailService, err = email.NewService(sender, cfg.Email.From, cfg.Email.FromName)
		if err != nil {
			return fmt.Errorf("failed to initialize email service: %w", err)
		}
		notifier = jobs.NewOrderNotifier(jobStore)
	}

	// Services
	inventoryService := service.NewInventoryService(inventoryStore, logger)
	cartService := service.NewCartService(inventoryStore, userCartStore)
	orderService := service.NewOrderService(orderStore, inventoryStore, payments, shippingTable, notifier, cfg.Payment.Currency, logger)
	addressService := service.NewAddressService(userStore)
	checkoutService := service.NewCheckoutService(
		cartService,
		inventoryService,
		orderService,
		userStore,
		service.NewOfferCatalog(offerStore, appCache, cfg.OfferCacheTTL),
		postalLookup,
		pricing.NewEngine(shippingTable),
		validate.New(),
		payments,
		logger,
	)

	// HTTP
	metrics := middleware.NewMetrics("fusionx", nil)
	offerLimit := middleware.OfferRateLimiterConfig()
	offerLimit.RequestsPerSecond = cfg.RateLimit.OfferRPS
	offerLimit.BurstSize = cfg.RateLimit.OfferBurst
	offerLimiter := middleware.NewRateLimiter(offerLimit)
	defer offerLimiter.Stop()

	r := router.New(
		telemetry.SentryMiddleware(),
		router.Recovery(logger),
		middleware.RequestID,
		middleware.WithClientIP(),
		metrics.Middleware,
		middleware.SecurityHeaders(middleware.DefaultSecurityHeadersConfig()),
		middleware.MaxBodySize(middleware.DefaultMaxBodySize),
		middleware.WithSession(middleware.SessionConfig{
			Store:      sessionStore,
			Cookie:     cookie.NewConfig(cfg.Session.CookieDomain, cfg.Session.CookieSecure),
			CookieName: cfg.Session.CookieName,
			TTL:        cfg.Session.TTL,
		}),
		middleware.WithRequestLogger(logger),
		telemetry.SentryContextMiddleware(middleware.SessionUser),
		middleware.ReleaseCheckout(checkoutService),
		router.Logger(logger),
	)

	routes.RegisterSystemRoutes(r, routes.SystemDeps{
		Ping:    pool.Ping,
		Metrics: metrics.Handler(nil),
	})
	routes.RegisterStorefrontRoutes(r, routes.StorefrontDeps{
		CartHandler:     storefront.NewCartHandler(cartService),
		CheckoutHandler: storefront.NewCheckoutHandler(checkoutService, postalLookup),
		OrderHandler:    storefront.NewOrderHandler(orderService),
		AddressHandler:  storefront.NewAddressHandler(addressService),
		FakePayHandler:  fakePay,
		OfferLimit:      offerLimiter.Middleware,
		PaymentTimeout:  middleware.Timeout(middleware.PaymentTimeout),
	})

	logger.Debug("Routes registered", "routes", r.Routes())

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	// Background jobs
	jobWorker := worker.NewWorker(worker.Deps{
		Jobs:      jobStore,
		Email:     emailService,
		Orders:    orderStore,
		Users:     userStore,
		Inventory: inventoryService,
		Sessions:  sessionStore,
	}, worker.Config{
		PollInterval:   cfg.Worker.PollInterval,
		MaxConcurrency: cfg.Worker.Concurrency,
	}, logger)
	scheduler := worker.NewScheduler(jobStore, worker.ScheduleConfig{
		SweepInterval:     cfg.Reservation.SweepInterval,
		ReservationMaxAge: cfg.Reservation.MaxAge,
	}, logger)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Starting server", "port", cfg.Port, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		return ignoreCanceled(jobWorker.Start(gctx))
	})
	g.Go(func() error {
		return ignoreCanceled(scheduler.Start(gctx))
	})

	return g.Wait()
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}
