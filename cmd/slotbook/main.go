package main

import (
	"context"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/arefin-dev/slotbook/internal/booking"
	"github.com/arefin-dev/slotbook/internal/gcal"
	"github.com/arefin-dev/slotbook/internal/handlers"
	"github.com/arefin-dev/slotbook/internal/outbox"
	"github.com/arefin-dev/slotbook/internal/plans"
	"github.com/arefin-dev/slotbook/internal/storage"
	"github.com/arefin-dev/slotbook/libs/config"
	"github.com/arefin-dev/slotbook/libs/db"
	"github.com/arefin-dev/slotbook/libs/httpx"
	"github.com/arefin-dev/slotbook/libs/kafkax"
	otelx "github.com/arefin-dev/slotbook/libs/otel"
	"github.com/arefin-dev/slotbook/libs/runtime"
)

func main() {
	service := config.String("SERVICE_NAME", "slotbook")
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

	dbURL, err := config.RequiredString("DATABASE_URL")
	if err != nil {
		panic(err)
	}
	jwtSecret, err := config.RequiredString("JWT_SECRET")
	if err != nil {
		panic(err)
	}

	pool, err := db.Open(ctx, dbURL, db.PoolConfigFromEnv())
	if err != nil {
		logger.Error("db connection failed", "err", err)
		panic(err)
	}
	defer pool.Close()

	outboxRepo := outbox.NewRepository(pool)
	hostRepo := storage.NewHostRepository(pool)
	accountRepo := storage.NewAccountRepository(pool)
	bookingRepo := storage.NewBookingRepository(pool, outboxRepo)
	meetingTypeRepo := storage.NewMeetingTypeRepository(pool)

	calClient := gcal.New(
		config.String("GOOGLE_CLIENT_ID", ""),
		config.String("GOOGLE_CLIENT_SECRET", ""),
		accountRepo,
		logger,
	)

	var plansProvider plans.Provider
	if stripeKey := config.String("STRIPE_SECRET_KEY", ""); stripeKey != "" {
		plansProvider = plans.NewStripeProvider(stripeKey, logger)
	} else {
		logger.Warn("STRIPE_SECRET_KEY missing; plan tiers come from stored host records")
		plansProvider = plans.NewStaticProvider()
	}

	svc := booking.NewService(hostRepo, bookingRepo, accountRepo, meetingTypeRepo, calClient, plansProvider, logger)

	kafkaBrokers := config.String("KAFKA_BROKERS", "")
	outboxPublisher := outbox.NewPublisher(pool, outboxRepo, logger, outbox.PublisherConfig{
		Brokers:   kafkaBrokers,
		PollEvery: 2 * time.Second,
		BatchSize: 50,
	})
	go outboxPublisher.Run(ctx)

	// Public endpoints are unauthenticated; rate limit them per client IP.
	// Redis gives a shared window across instances, the in-memory limiter
	// covers single-instance deployments.
	publicLimit := config.Int("PUBLIC_RATE_LIMIT", 60)
	var publicLimiter httpx.Middleware
	if redisAddr := config.String("REDIS_ADDR", ""); redisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: redisAddr})
		publicLimiter = httpx.NewRedisRateLimiter(rdb, publicLimit, time.Minute, "slotbook:public").
			Middleware(logger, config.Bool("RATE_LIMIT_FAIL_OPEN", true))
	} else {
		publicLimiter = httpx.NewRateLimiter(publicLimit, time.Minute).Middleware()
	}

	publicHandler := handlers.NewPublicHandler(svc, logger)
	hostHandler := handlers.NewHostHandler(svc, hostRepo, accountRepo, meetingTypeRepo, calClient, jwtSecret, logger)

	readyChecks := []runtime.ReadyCheck{
		{Name: "db", Check: db.ReadyCheck(pool)},
	}
	if kafkaBrokers != "" {
		readyChecks = append(readyChecks, runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(kafkaBrokers)})
	}
	mux := runtime.NewBaseMux(readyChecks...)

	public := func(h http.HandlerFunc) http.Handler {
		return publicLimiter(h)
	}
	mux.Handle("/api/v1/public/host", public(publicHandler.HostPage))
	mux.Handle("/api/v1/public/slots", public(publicHandler.Slots))
	mux.Handle("/api/v1/public/dates", public(publicHandler.Dates))
	mux.Handle("/api/v1/public/book", public(publicHandler.Book))

	mux.HandleFunc("/api/v1/bookings", hostHandler.Bookings)
	mux.HandleFunc("/api/v1/bookings/cancel", hostHandler.CancelBooking)
	mux.HandleFunc("/api/v1/availability", hostHandler.Availability)
	mux.HandleFunc("/api/v1/quota", hostHandler.Quota)
	mux.HandleFunc("/api/v1/accounts", hostHandler.Accounts)
	mux.HandleFunc("/api/v1/accounts/default", hostHandler.SetDefaultAccount)
	mux.HandleFunc("/api/v1/accounts/disconnect", hostHandler.DisconnectAccount)
	mux.HandleFunc("/api/v1/meeting-types", hostHandler.MeetingTypes)

	httpHandler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithCORS(httpx.CORSPolicy{
			AllowedOrigins:   config.List("CORS_ALLOWED_ORIGINS", ""),
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
			AllowedHeaders:   []string{"Authorization", "Content-Type"},
			AllowCredentials: true,
			MaxAge:           10 * time.Minute,
		}),
		httpx.WithBodyLimit(1<<20),
		httpx.WithTimeout(30*time.Second),
	)
	httpHandler = otelhttp.NewHandler(httpHandler, service)

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           httpHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server starting", "addr", srv.Addr)
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
