// Package app wires the storefront together: config, storage, domain
// services, HTTP server, and graceful shutdown.
package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/xenking/retail-convenience/internal/domain/cart"
	"github.com/xenking/retail-convenience/internal/domain/catalog"
	"github.com/xenking/retail-convenience/internal/domain/order"
	"github.com/xenking/retail-convenience/internal/domain/payment"
	"github.com/xenking/retail-convenience/internal/domain/session"
	"github.com/xenking/retail-convenience/internal/handler"
	"github.com/xenking/retail-convenience/internal/storage/postgres"
	"github.com/xenking/retail-convenience/pkg/health"
	"github.com/xenking/retail-convenience/pkg/httpmiddleware"
)

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	cat, err := catalog.Load()
	if err != nil {
		return errors.Wrap(err, "load catalog")
	}

	probes := health.New()
	probes.AddLive("goroutines", time.Second, health.GoroutineCountCheck(10000))

	// Saved payment info persists in PostgreSQL when a database is
	// configured; otherwise it lives in process memory like everything else.
	var payments payment.Store = payment.NewMemoryStore()
	if cfg.DatabaseURL != "" {
		pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return errors.Wrap(err, "create db pool")
		}
		defer pool.Close()

		if err := postgres.RunMigrations(ctx, pool); err != nil {
			return errors.Wrap(err, "run migrations")
		}
		payments = postgres.NewPaymentStore(pool)
		probes.AddReady("postgres", 5*time.Second, health.PingCheck(pool))
		lg.Info("Saved payment info backed by PostgreSQL")
	} else {
		lg.Info("Saved payment info kept in memory")
	}

	processor := payment.NewProcessor(payment.Delays{
		Card:     cfg.Simulation.CardDelay,
		ApplePay: cfg.Simulation.ApplePayDelay,
	})
	assembler := order.NewAssembler(order.NewNumberGenerator(lg.Named("orders")))

	h := handler.New(
		handler.Config{
			LoginDelay: cfg.Simulation.LoginDelay,
			Meter:      m.MeterProvider().Meter("retail-api"),
		},
		cat,
		cart.NewStore(),
		session.NewRegistry(),
		assembler,
		processor,
		payments,
	)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /livez", probes.LiveEndpoint)
	mux.HandleFunc("GET /readyz", probes.ReadyEndpoint)
	mux.Handle("/api/", h.Routes())

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: httpmiddleware.Wrap(mux,
			httpmiddleware.Recovery(),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				AllowOrigins:     cfg.CORS.Origins,
				AllowHeaders:     []string{"Content-Type", "X-Session-Token"},
				AllowCredentials: cfg.CORS.AllowCredentials,
				MaxAge:           86400,
			}),
			httpmiddleware.RateLimitWithCleanup(ctx, httpmiddleware.RateLimitConfig{
				Max:    cfg.RateLimit.Max,
				Window: cfg.RateLimit.Window,
			}),
			httpmiddleware.RequestID(),
			httpmiddleware.InjectLogger(zctx.From(ctx)),
			httpmiddleware.Instrument("retail-api", m.TracerProvider(),
				otelhttp.WithMeterProvider(m.MeterProvider())),
			httpmiddleware.LogRequests(),
		),
	}
	probes.SetReady(true)

	// Graceful shutdown: flip readiness, drain, then stop the listener.
	shutdownDone := make(chan struct{})
	go func() {
		<-ctx.Done()
		probes.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		close(shutdownDone)
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}
