package main

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/barberbook/barberbook/internal/booking"
	"github.com/barberbook/barberbook/internal/handlers"
	"github.com/barberbook/barberbook/internal/outbox"
	"github.com/barberbook/barberbook/internal/slots"
	"github.com/barberbook/barberbook/internal/storage"
	"github.com/barberbook/barberbook/libs/config"
	"github.com/barberbook/barberbook/libs/db"
	"github.com/barberbook/barberbook/libs/httpx"
	"github.com/barberbook/barberbook/libs/kafkax"
	otelx "github.com/barberbook/barberbook/libs/otel"
	"github.com/barberbook/barberbook/libs/runtime"
)

const (
	createAppointmentLimit  = 5
	createAppointmentWindow = time.Minute
)

func main() {
	_ = godotenv.Load()

	service := config.String("SERVICE_NAME", "barberbook")
	port, err := config.Port("PORT", "8080")
	if err != nil {
		panic(err)
	}
	logger := runtime.NewLogger(service)

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(service))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	loc, err := config.Location("TIME_ZONE", "America/Sao_Paulo")
	if err != nil {
		panic(err)
	}
	secret, err := config.RequiredString("TOKEN_SECRET")
	if err != nil {
		panic(err)
	}
	dbURL, err := config.RequiredString("DATABASE_URL")
	if err != nil {
		panic(err)
	}

	pool, err := db.Open(ctx, dbURL)
	if err != nil {
		logger.Error("db connection failed", "err", err)
		panic(err)
	}
	defer pool.Close()

	barberRepo := storage.NewBarberRepository(pool)
	catalogRepo := storage.NewCatalogRepository(pool)
	scheduleRepo := storage.NewScheduleRepository(pool, loc)
	outboxRepo := outbox.NewRepository(pool)
	bookingRepo := storage.NewBookingRepository(pool, outboxRepo, loc)

	generator := slots.NewGenerator(catalogRepo, scheduleRepo, bookingRepo, loc)
	bookingService := booking.NewService(catalogRepo, scheduleRepo, barberRepo, bookingRepo, loc, nil)

	kafkaBrokers := config.String("KAFKA_BROKERS", "")
	outboxPublisher := outbox.NewPublisher(pool, outboxRepo, logger, outbox.PublisherConfig{
		Brokers:   kafkaBrokers,
		PollEvery: 2 * time.Second,
		BatchSize: 50,
	})
	go outboxPublisher.Run(ctx)

	// The anonymous booking endpoint is the only rate-limited route. With a
	// Redis address configured the window is shared across instances;
	// otherwise a per-process limiter covers single-instance deployments.
	var createLimiter httpx.Middleware
	if addr := config.String("REDIS_ADDR", ""); addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: addr, Password: config.String("REDIS_PASSWORD", "")})
		createLimiter = httpx.NewRedisRateLimiter(rdb, createAppointmentLimit, createAppointmentWindow, "create-appointment").
			Middleware(logger, true)
	} else {
		createLimiter = httpx.NewRateLimiter(createAppointmentLimit, createAppointmentWindow).Middleware()
	}

	publicHandler := handlers.NewPublicHandler(generator, bookingService, barberRepo, catalogRepo, logger, loc, secret, nil)
	panelHandler := handlers.NewPanelHandler(barberRepo, scheduleRepo, bookingService, logger, loc, secret, nil)

	readyChecks := []runtime.ReadyCheck{
		{Name: "db", Check: db.ReadyCheck(pool)},
	}
	if kafkaBrokers != "" {
		readyChecks = append(readyChecks, runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(kafkaBrokers)})
	}
	mux := runtime.NewBaseMuxWithReady(readyChecks...)
	publicHandler.Register(mux, createLimiter)
	panelHandler.Register(mux)

	var corsOrigins []string
	if raw := config.String("CORS_ALLOWED_ORIGINS", ""); raw != "" {
		corsOrigins = strings.Split(raw, ",")
	}
	httpHandler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithCORS(httpx.CORSPolicy{
			AllowedOrigins: corsOrigins,
			AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Authorization", "Content-Type"},
			MaxAge:         time.Hour,
		}),
		httpx.WithBodyLimit(1<<20),
	)
	httpHandler = otelhttp.NewHandler(httpHandler, service)
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           httpHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server starting", "addr", srv.Addr, "zone", loc.String())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "err", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	logger.Info("http server stopped")
}
