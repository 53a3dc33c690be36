package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/tutorlink/tutorlink-api/internal/config"
	"github.com/tutorlink/tutorlink-api/internal/domain/coin"
	"github.com/tutorlink/tutorlink-api/internal/domain/pricing"
	"github.com/tutorlink/tutorlink-api/internal/domain/settlement"
	"github.com/tutorlink/tutorlink-api/internal/domain/tutoring"
	"github.com/tutorlink/tutorlink-api/internal/domain/unlock"
	"github.com/tutorlink/tutorlink-api/internal/domain/user"
	"github.com/tutorlink/tutorlink-api/internal/middleware"
	"github.com/tutorlink/tutorlink-api/internal/pkg/database"
	"github.com/tutorlink/tutorlink-api/internal/pkg/email"
	"github.com/tutorlink/tutorlink-api/internal/pkg/jwt"
	"github.com/tutorlink/tutorlink-api/internal/pkg/logger"
	"github.com/tutorlink/tutorlink-api/internal/pkg/payment"
	"github.com/tutorlink/tutorlink-api/internal/pkg/response"
)

// handlers groups the HTTP handlers mounted by newRouter.
type handlers struct {
	requests *unlock.Handler
	coins    *coin.Handler
	pricing  *pricing.Handler
	webhooks *settlement.Handler
}

func main() {
	cfg := config.Load()

	logCloser, err := logger.Init(logger.Config{
		Level:       cfg.LogLevel,
		Environment: cfg.Env,
		LogFile:     cfg.LogFile,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialise logger")
	}
	defer logCloser.Close()

	log.Info().
		Str("env", cfg.Env).
		Str("port", cfg.Port).
		Msg("Starting TutorLink API")

	db, err := database.NewPostgres(cfg.DatabaseURL, database.PoolConfig{
		MaxOpenConns: cfg.DBMaxOpenConns,
		MaxIdleConns: cfg.DBMaxIdleConns,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer database.ClosePostgres(db)

	migrateCtx, cancelMigrate := context.WithTimeout(context.Background(), 30*time.Second)
	err = database.Migrate(migrateCtx, db)
	cancelMigrate()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to apply schema")
	}

	// Views are counted without deduplication when Redis is down.
	rdb, err := database.NewRedis(cfg.RedisURL)
	if err != nil {
		log.Warn().Err(err).Msg("Redis unavailable, view deduplication disabled")
		rdb = nil
	}
	defer database.CloseRedis(rdb)

	jwtService := jwt.NewService(cfg.JWTSecret, cfg.JWTAccessTTL)

	emailService := email.NewService(email.NewSender(email.Config{
		ResendAPIKey: cfg.ResendAPIKey,
		From:         cfg.EmailFrom,
	}))
	defer emailService.Close()

	// ---------- Repositories ----------
	userRepo := user.NewRepository(db)
	requestRepo := tutoring.NewRepository(db)
	coinRepo := coin.NewRepository(db)
	unlockRepo := unlock.NewRepository(db, coinRepo)
	settlementRepo := settlement.NewRepository(db, coinRepo)

	// ---------- Services ----------
	requestService := tutoring.NewService(requestRepo, tutoring.NewRedisViewCounter(rdb, cfg.ViewDedupWindow))
	gate := unlock.NewGate(unlockRepo, requestRepo, coinRepo, userRepo)
	coinService := coin.NewService(coinRepo)
	settlementService := settlement.NewService(
		settlementRepo,
		userRepo,
		settlement.NewEmailNotifier(emailService, cfg.FrontendURL),
	)

	providers := payment.NewRegistry()
	if cfg.StripeEnabled() {
		providers.Register(payment.NewStripeProvider(cfg.StripeWebhookSecret))
	}
	if cfg.RazorpayEnabled() {
		providers.Register(payment.NewRazorpayProvider(cfg.RazorpayKeyID, cfg.RazorpayKeySecret, cfg.RazorpayWebhookSecret))
	}
	log.Info().Strs("providers", providers.List()).Msg("Payment webhooks enabled")

	r := newRouter(cfg, jwtService, handlers{
		requests: unlock.NewHandler(gate, requestService),
		coins:    coin.NewHandler(coinService),
		pricing:  pricing.NewHandler(),
		webhooks: settlement.NewHandler(settlementService, providers),
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}

func newRouter(cfg *config.Config, jwtService *jwt.Service, h handlers) chi.Router {
	r := chi.NewRouter()

	r.Use(chimw.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recover)
	r.Use(middleware.CORSHandler(cfg.AllowedOrigins))

	authMiddleware := middleware.Auth(jwtService)
	optionalAuth := middleware.OptionalAuth(jwtService)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		response.OK(w, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Mount("/requests", h.requests.Routes(optionalAuth, authMiddleware))
		r.Mount("/unlocks", h.requests.HistoryRoutes(authMiddleware))
		r.Mount("/coins", h.coins.Routes(authMiddleware))
		r.Mount("/pricing", h.pricing.Routes())
	})

	// Provider callbacks authenticate by signature, not JWT.
	r.Mount("/webhooks", h.webhooks.Routes())

	return r
}
