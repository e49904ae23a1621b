package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/sajilotech/frontdesk/internal/answerer"
	"github.com/sajilotech/frontdesk/internal/chat"
	"github.com/sajilotech/frontdesk/internal/http/handlers"
	httpmw "github.com/sajilotech/frontdesk/internal/http/middleware"
	"github.com/sajilotech/frontdesk/internal/ledger/postgres"
	"github.com/sajilotech/frontdesk/internal/mailer"
	"github.com/sajilotech/frontdesk/internal/session"
	"github.com/sajilotech/frontdesk/pkg/config"
	"github.com/sajilotech/frontdesk/pkg/database"
	"github.com/sajilotech/frontdesk/pkg/events"
	"github.com/sajilotech/frontdesk/pkg/logger"
	mw "github.com/sajilotech/frontdesk/pkg/middleware"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	ctx := context.Background()

	// The ledger is a hard dependency; refuse to serve without it.
	pool, err := database.Connect(ctx, cfg.Database.URL)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	store := postgres.New(pool)
	if err := store.EnsureSchema(ctx); err != nil {
		logger.Error("Failed to prepare database schema", "error", err)
		os.Exit(1)
	}

	eventBus, err := events.NewNATSEventBus(cfg.NATS.URL)
	if err != nil {
		logger.Error("Failed to connect to NATS", "error", err)
		os.Exit(1)
	}
	defer eventBus.Close()

	redisOpts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		logger.Error("Invalid Redis URL", "error", err)
		os.Exit(1)
	}
	redisClient := redis.NewClient(redisOpts)
	defer redisClient.Close()

	knowledge := answerer.NewClient(cfg.Answerer.URL, cfg.Answerer.Timeout, cfg.Answerer.MaxRetries)
	probeCtx, cancelProbe := context.WithTimeout(ctx, time.Minute)
	if err := knowledge.Probe(probeCtx); err != nil {
		cancelProbe()
		logger.Error("Knowledge service unreachable", "url", cfg.Answerer.URL, "error", err)
		os.Exit(1)
	}
	cancelProbe()

	var mail mailer.Service
	switch {
	case cfg.Email.DevMode:
		mail = mailer.NewDevMailer()
	case cfg.Email.MailerSendKey != "":
		mail = mailer.NewMailerSend(cfg.Email.MailerSendKey, "Frontdesk", cfg.Email.SMTPFrom)
	default:
		mail = mailer.NewSMTPMailer(
			cfg.Email.SMTPHost, cfg.Email.SMTPPort, cfg.Email.SMTPFrom,
			cfg.Email.SMTPUser, cfg.Email.SMTPPass, cfg.Email.SMTPUseTLS,
		)
	}

	registry := session.NewRegistry(store, eventBus, cfg.Booking.MinLeadTime, cfg.Session.IdleTimeout, time.Now)
	transport := httpmw.NewSessionTransport(registry, cfg.Session.Secret, cfg.Session.IdleTimeout, cfg.Session.CookieName, cfg.Session.CookieSecure)
	bot := chat.NewBot(registry, store, knowledge, mail, eventBus)
	h := handlers.NewChatHandler(bot, registry, store, transport)

	limiter := httpmw.NewRateLimiter(redisClient, httpmw.RateLimitConfig{
		Requests: 60,
		Window:   time.Minute,
		KeyFunc:  httpmw.ChatRateLimitKeyFunc,
	})

	r := chi.NewRouter()

	r.Use(mw.RequestID)
	r.Use(mw.ServiceName("frontdesk"))
	r.Use(mw.Logging)
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					logger.ErrorContext(r.Context(), "Panic recovered", "error", err)
					http.Error(w, "Internal server error", http.StatusInternalServerError)
				}
			}()
			next.ServeHTTP(w, r)
		})
	})

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:3000", "*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	health := handlers.NewHealthHandler(pool, knowledge)
	r.Get("/healthz", health.Check)

	r.Route("/v1/chat", func(r chi.Router) {
		r.Use(limiter.Middleware())
		r.Mount("/", h.Routes())
	})

	// Idle-session sweep.
	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	go func() {
		ticker := time.NewTicker(cfg.Session.SweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-sweepCtx.Done():
				return
			case <-ticker.C:
				if n := registry.SweepExpired(sweepCtx, cfg.Session.SweepMaxIdle); n > 0 {
					logger.Info("Evicted idle sessions", "count", n)
				}
			}
		}
	}()

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info("Shutting down frontdesk service...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Frontdesk service shutdown error", "error", err)
		}
	}()

	logger.Info("Frontdesk service starting", "port", cfg.Server.Port)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Frontdesk service failed", "error", err)
		os.Exit(1)
	}
}
