package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/xavierca1/muyu-crm/internal/config"
	"github.com/xavierca1/muyu-crm/internal/infra/auth"
	"github.com/xavierca1/muyu-crm/internal/infra/database"
	"github.com/xavierca1/muyu-crm/internal/infra/http/handlers"
	"github.com/xavierca1/muyu-crm/internal/infra/http/middleware"
	"github.com/xavierca1/muyu-crm/internal/infra/integration/openai"
	"github.com/xavierca1/muyu-crm/internal/infra/integration/whatsapp"
	"github.com/xavierca1/muyu-crm/internal/infra/logger"
	"github.com/xavierca1/muyu-crm/internal/infra/mail"
	"github.com/xavierca1/muyu-crm/internal/infra/pdf"
	"github.com/xavierca1/muyu-crm/internal/infra/queue"
	"github.com/xavierca1/muyu-crm/internal/infra/worker"
	"github.com/xavierca1/muyu-crm/internal/usecase"
)

const version = "1.0.0"

func main() {
	godotenv.Load()

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}

	zlog, err := logger.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer zlog.Sync()

	if cfg.SentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			EnableTracing:    true,
			TracesSampleRate: 0.2,
			Environment:      cfg.Env,
			Release:          "muyu-crm@" + version,
		}); err != nil {
			zlog.Error("sentry init failed", zap.Error(err))
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 1. Database
	db, err := database.NewDBConnection(cfg.DatabaseURL)
	if err != nil {
		zlog.Fatal("database connection failed", zap.Error(err))
	}
	defer db.Close()

	backfilled, err := database.Migrate(ctx, db)
	if err != nil {
		zlog.Fatal("migration failed", zap.Error(err))
	}
	zlog.Info("schema up to date", zap.Int64("last_interaction_backfilled", backfilled))

	institutionRepo := database.NewInstitutionRepository(db)
	interactionRepo := database.NewInteractionRepository(db)
	taskRepo := database.NewTaskRepository(db)
	userRepo := database.NewUserRepository(db)

	// 2. Mail, broker and external services
	var (
		mailer     usecase.EmailService
		dispatcher usecase.EmailDispatcher
		digestMail worker.Mailer
		broker     handlers.BrokerStatus
	)
	if cfg.MailConfigured() {
		sender := mail.NewEmailSender(cfg.MailHost, cfg.MailPort, cfg.MailUser, cfg.MailPass, cfg.MailFrom)
		mailer, dispatcher, digestMail = sender, sender, sender

		if cfg.RabbitMQURL != "" {
			rmq, err := queue.NewRabbitMQ(cfg.RabbitMQURL)
			if err != nil {
				zlog.Warn("rabbitmq unavailable, sending mail synchronously", zap.Error(err))
			} else {
				defer rmq.Close()
				broker = rmq
				dispatcher = queue.NewProducer(rmq.Ch)

				consumeCh, err := rmq.Conn.Channel()
				if err != nil {
					zlog.Fatal("rabbitmq consumer channel", zap.Error(err))
				}
				mailWorker := queue.NewWorker(consumeCh, sender, zlog.Named("email-worker"))
				go func() {
					if err := mailWorker.Start(ctx); err != nil {
						zlog.Error("email worker stopped", zap.Error(err))
					}
				}()
			}
		}
	} else {
		zlog.Warn("SMTP not configured; email features disabled")
	}

	ai := openai.NewClient(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel, cfg.OpenAIEmbeddingModel, cfg.AITimeout)
	wa := whatsapp.NewClient(cfg.WhatsAppAccessToken, cfg.WhatsAppPhoneID, zlog.Named("whatsapp"))

	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTExpiry)
	hasher := auth.NewHasher()

	var (
		cookies  middleware.SessionCookies
		sessions handlers.SessionStore
	)
	if store, err := auth.NewCookieStore(cfg.SessionKey, cfg.CookieSecure, cfg.JWTExpiry, zlog); err != nil {
		zlog.Warn("cookie sessions disabled", zap.Error(err))
	} else {
		cookies, sessions = store, store
	}

	// 3. UseCases
	clock := usecase.NewClock(cfg.Location())
	moveStage := usecase.NewMoveStageUseCase(institutionRepo, taskRepo, interactionRepo, clock, zlog)
	authUC := usecase.NewAuthUseCase(userRepo, hasher, tokens, clock, zlog)
	outbound := usecase.NewOutboundUseCase(institutionRepo, taskRepo, userRepo, mailer, dispatcher, wa, clock, cfg.StaleAfterDays, zlog)
	staleUC := usecase.NewStaleLeadsUseCase(institutionRepo, taskRepo, clock, cfg.StaleAfterDays, zlog)

	// 4. Background jobs
	digest := worker.NewStaleLeadWorker(staleUC, userRepo, digestMail, cfg.StaleAfterDays, cfg.DigestCron, cfg.Location(), zlog.Named("stale-digest"))
	go func() {
		if err := digest.Start(ctx); err != nil {
			zlog.Error("stale lead worker stopped", zap.Error(err))
		}
	}()

	clientIPs, err := middleware.NewIPResolver(cfg.TrustedProxies)
	if err != nil {
		zlog.Fatal("invalid TRUSTED_PROXIES", zap.Error(err))
	}
	loginLimiter := middleware.NewRateLimiter(10, time.Minute)
	go loginLimiter.Cleanup(5*time.Minute, ctx.Done())

	// 5. Handlers
	health := handlers.NewHealthHandler(db, broker, version)
	health.Mail = cfg.MailConfigured()
	health.AI = ai.Configured()
	health.WhatsApp = wa.Configured()

	router := handlers.NewRouter(handlers.RouterDeps{
		Log:           zlog,
		CORSOrigins:   cfg.CORSOrigins,
		Sentry:        cfg.SentryDSN != "",
		Authenticator: authUC,
		Cookies:       cookies,
		LoginLimiter:  loginLimiter,
		ClientIPs:     clientIPs,
		Health:        health,
		Auth:          handlers.NewAuthHandler(authUC, sessions, zlog),
		Institutions: &handlers.InstitutionHandler{
			Institutions: usecase.NewInstitutionUseCase(institutionRepo, userRepo, moveStage, clock, cfg.StaleAfterDays, zlog),
			MoveStage:    moveStage,
			Interactions: usecase.NewInteractionUseCase(institutionRepo, interactionRepo, clock, zlog),
			Outbound:     outbound,
			Importer:     usecase.NewImportInstitutionsUseCase(institutionRepo, userRepo, clock, zlog),
			Log:          zlog,
		},
		Tasks: &handlers.TaskHandler{
			Tasks:    usecase.NewTaskUseCase(taskRepo, institutionRepo, userRepo, clock, zlog),
			Outbound: outbound,
			Log:      zlog,
		},
		Alerts:    &handlers.AlertHandler{Stale: staleUC, Log: zlog},
		Campaigns: &handlers.CampaignHandler{Outbound: outbound, Log: zlog},
		Dashboard: &handlers.DashboardHandler{
			Dashboard: usecase.NewDashboardUseCase(institutionRepo, taskRepo, clock, cfg.StaleAfterDays, zlog),
			Log:       zlog,
		},
		Users: &handlers.UserHandler{Users: usecase.NewUserUseCase(userRepo, hasher, clock, zlog), Log: zlog},
		Assistant: &handlers.AssistantHandler{
			Documents: usecase.NewDocumentQAUseCase(pdf.NewExtractor(20<<20), ai, ai, clock, zlog),
			Tables:    usecase.NewTableQAUseCase(ai, zlog),
			Log:       zlog,
		},
	})

	// 6. Server
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.AITimeout + 30*time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		zlog.Info("muyu crm listening", zap.String("port", cfg.Port), zap.String("env", cfg.Env))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zlog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zlog.Error("graceful shutdown failed", zap.Error(err))
		os.Exit(1)
	}
}
