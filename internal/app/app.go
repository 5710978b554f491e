package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/yega-app/yega-api/internal/domain/order"
	"github.com/yega-app/yega-api/internal/domain/payment"
	"github.com/yega-app/yega-api/internal/domain/product"
	"github.com/yega-app/yega-api/internal/domain/store"
	"github.com/yega-app/yega-api/internal/domain/user"
	"github.com/yega-app/yega-api/internal/events"
	"github.com/yega-app/yega-api/internal/handler"
	"github.com/yega-app/yega-api/internal/storage/postgres"
	"github.com/yega-app/yega-api/internal/stripe"
	"github.com/yega-app/yega-api/internal/token"
	"github.com/yega-app/yega-api/pkg/health"
	"github.com/yega-app/yega-api/pkg/httpmiddleware"
)

const serviceName = "yega-api"

// Run creates all dependencies, starts the HTTP server and the outbox relay,
// and handles graceful shutdown. It is the single wiring point for the
// application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	// PostgreSQL pool + migrations.
	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(cfg.DatabaseURL, lg); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	healthSvc := health.New()
	healthSvc.AddReadinessCheck("postgres", 5*time.Second, health.PingCheck(pool))
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))
	healthSvc.AddLivenessCheck("gc", time.Second, health.GCMaxPauseCheck(time.Second))
	healthSvc.Start(ctx, 10*time.Second)

	api, err := newAPI(ctx, pool, cfg)
	if err != nil {
		return err
	}

	router := newRouter(api, healthSvc)
	routeFinder := httpmiddleware.MakeRouteFinder(router)
	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: httpmiddleware.Wrap(router,
			httpmiddleware.Recovery(),
			httpmiddleware.SecureHeaders(),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				AllowOrigins:     cfg.CORS.Origins,
				AllowHeaders:     []string{"Content-Type", "Authorization", httpmiddleware.HeaderRequestID},
				ExposeHeaders:    []string{"X-Total-Count", httpmiddleware.HeaderRequestID},
				AllowCredentials: cfg.CORS.AllowCredentials,
				MaxAge:           86400,
			}),
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.Instrument(serviceName, routeFinder, m),
			httpmiddleware.LogRequests(routeFinder),
			httpmiddleware.Labeler(routeFinder),
		),
	}

	g, gctx := errgroup.WithContext(ctx)

	if len(cfg.Kafka.Brokers) > 0 {
		publisher, err := events.NewKafkaPublisher(cfg.Kafka.Brokers)
		if err != nil {
			return errors.Wrap(err, "connect kafka")
		}
		defer func() {
			if err := publisher.Close(); err != nil {
				lg.Warn("Close kafka producer", zap.Error(err))
			}
		}()

		relay, err := events.NewRelay(postgres.NewOutboxRepository(pool), publisher, m.MeterProvider(), events.RelayConfig{
			Interval:  cfg.Kafka.Interval,
			BatchSize: cfg.Kafka.BatchSize,
		})
		if err != nil {
			return errors.Wrap(err, "create outbox relay")
		}
		g.Go(func() error {
			return relay.Run(gctx)
		})
	} else {
		lg.Info("Kafka brokers not configured, order events stay in the outbox")
	}

	// Graceful shutdown: wait for cancellation, drain, then stop.
	g.Go(func() error {
		<-gctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		healthSvc.Stop()
		return nil
	})

	g.Go(func() error {
		healthSvc.SetReady(true)
		lg.Info("Server listening", zap.String("addr", cfg.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "server")
		}
		return nil
	})

	return g.Wait()
}

// newAPI wires repositories and domain services into the HTTP handler.
func newAPI(ctx context.Context, pool *pgxpool.Pool, cfg *Config) (*handler.Handler, error) {
	tokens, err := token.NewManager(token.Config{
		Secret:        cfg.JWT.Secret,
		RefreshSecret: cfg.JWT.RefreshSecret,
		AccessTTL:     cfg.JWT.AccessTTL,
		RefreshTTL:    cfg.JWT.RefreshTTL,
	})
	if err != nil {
		return nil, errors.Wrap(err, "create token manager")
	}
	shipping, err := cfg.Orders.shippingCost()
	if err != nil {
		return nil, err
	}

	// Repositories.
	userRepo := postgres.NewUserRepository(pool)
	storeRepo := postgres.NewStoreRepository(pool)
	productRepo := postgres.NewProductRepository(pool)
	orderRepo := postgres.NewOrderRepository(pool)
	paymentRepo := postgres.NewPaymentRepository(pool)

	// Domain services.
	orderService := order.NewService(orderRepo, order.Config{ShippingCost: shipping})
	provider := stripe.New(stripe.Config{
		SecretKey:     cfg.Stripe.SecretKey,
		WebhookSecret: cfg.Stripe.WebhookSecret,
		BackendURL:    cfg.Stripe.BackendURL,
	})

	return handler.NewHandler(handler.Deps{
		Users:    user.NewService(userRepo, tokens),
		Stores:   store.NewService(storeRepo),
		Products: product.NewService(productRepo, storeRepo),
		Orders:   orderService,
		Payments: payment.NewService(orderService, paymentRepo, provider, cfg.Stripe.Currency),
		Tokens:   tokens,
		AuthLimiter: httpmiddleware.RateLimitWithCleanup(ctx, httpmiddleware.RateLimitConfig{
			Max:    cfg.RateLimit.Max,
			Window: cfg.RateLimit.Window,
		}),
	}), nil
}

// newRouter mounts the health endpoints next to the API routes.
func newRouter(api *handler.Handler, hc *health.Health) chi.Router {
	r := api.Routes()
	r.Get("/health", hc.StatusEndpoint)
	r.Get("/livez", hc.LiveEndpoint)
	r.Get("/readyz", hc.ReadyEndpoint)
	return r
}
