package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"quickvision/internal/config"
	"quickvision/internal/domain/ports/adapter"
	aiAdapters "quickvision/internal/infra/adapters/ai"
	payAdapters "quickvision/internal/infra/adapters/payment"
	tele "quickvision/internal/infra/adapters/telegram"
	apiv1 "quickvision/internal/infra/api/apiv1"
	pg "quickvision/internal/infra/db/postgres"
	"quickvision/internal/infra/logging"
	"quickvision/internal/infra/metrics"
	red "quickvision/internal/infra/redis"
	"quickvision/internal/infra/sched"
	"quickvision/internal/infra/web"
	"quickvision/internal/infra/worker"
	"quickvision/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (noop external adapters)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Warn().Msg("dev mode enabled")
	}

	metrics.MustRegister()

	// ---- Postgres ----
	pool, err := pg.Connect(ctx, cfg.Database.URL)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres connect failed")
	}
	defer pool.Close()

	// ---- Redis (optional; bot command throttling only) ----
	var rateLimiter *red.RateLimiter
	if cfg.Redis.URL != "" {
		redisClient, err := red.NewClient(ctx, &cfg.Redis)
		if err != nil {
			logger.Fatal().Err(err).Msg("redis connect failed")
		}
		rateLimiter = red.NewRateLimiter(redisClient)
	} else {
		logger.Warn().Msg("redis.url not set; bot command throttling disabled")
	}

	// ---- Repositories ----
	accountRepo := pg.NewPostgresAccountRepo(pool)
	codeRepo := pg.NewPostgresActivationCodeRepo(pool)
	paymentRepo := pg.NewPostgresPaymentRepo(pool)
	activityRepo := pg.NewPostgresActivityRepo(pool)
	captureRepo := pg.NewPostgresCaptureRepo(pool)
	tm := pg.NewTxManager(pool)

	// ---- Vision adapters (Groq first, Gemini fallback) ----
	var providers []adapter.VisionAdapter
	if cfg.Vision.GroqKey != "" {
		groq, err := aiAdapters.NewGroqAdapter(
			cfg.Vision.GroqKey, cfg.Vision.GroqURL, cfg.Vision.GroqModel,
			cfg.Vision.RatePerSec, cfg.Vision.Burst, cfg.Vision.Timeout,
		)
		if err != nil {
			logger.Fatal().Err(err).Msg("groq adapter init failed")
		}
		providers = append(providers, groq)
	}
	if cfg.Vision.GeminiKey != "" {
		gemini, err := aiAdapters.NewGeminiAdapter(ctx, cfg.Vision.GeminiKey, cfg.Vision.GeminiModel)
		if err != nil {
			logger.Fatal().Err(err).Msg("gemini adapter init failed")
		}
		providers = append(providers, gemini)
	}

	var vision adapter.VisionAdapter
	if cfg.Runtime.Dev && len(providers) == 0 {
		vision = aiAdapters.NewNoopVisionAdapter()
	} else {
		// The failover wrapper also owns the per-provider metrics, so it
		// wraps even a single provider.
		vision = aiAdapters.NewMultiVisionAdapter(logger, providers...)
	}
	logger.Info().Str("provider", vision.Name()).Msg("vision adapter ready")

	// ---- Messenger (sender bot) ----
	var messenger adapter.MessengerAdapter
	if cfg.Runtime.Dev {
		messenger = tele.NewNoopMessenger()
	} else {
		messenger, err = tele.NewSenderBot(cfg.Bot.SenderToken)
		if err != nil {
			logger.Fatal().Err(err).Msg("sender bot init failed")
		}
	}

	// ---- Worker pool ----
	dispatch := worker.NewPool(cfg.Bot.Workers, logger)
	dispatch.Start(ctx)
	defer dispatch.Stop()

	// ---- Use cases ----
	verifier := payAdapters.NewKaspiVerifier(cfg.Payment.Kaspi.SecretKey)
	notifier := usecase.NewNotificationUseCase(messenger, cfg.Payment.Kaspi.SiteURL, logger)
	notifier.SetAdminChat(cfg.Bot.AdminChatID)
	ledgerUC := usecase.NewLedgerUseCase(accountRepo, logger)
	activationUC := usecase.NewActivationUseCase(codeRepo, accountRepo, activityRepo, logger)
	gate := usecase.NewAdmissionGate(activityRepo)
	captureUC := usecase.NewCaptureUseCase(
		activationUC, ledgerUC, gate, activityRepo, captureRepo, vision, notifier,
		cfg.Vision.Instruction, cfg.API.MaxImageBytes,
		cfg.RateLimit.PerMinute, cfg.RateLimit.PerHour, logger,
	)
	settlementUC := usecase.NewSettlementUseCase(
		paymentRepo, accountRepo, activityRepo, ledgerUC, activationUC,
		verifier, notifier, dispatch, tm, logger,
	)
	accountUC := usecase.NewAccountUseCase(
		accountRepo, codeRepo, paymentRepo, activityRepo, captureRepo,
		activationUC, ledgerUC, tm, logger,
	)

	// ---- Telegram (interactive bot) ----
	bot, err := tele.NewMainBot(&cfg.Bot, ledgerUC, activationUC, settlementUC, rateLimiter, cfg.Payment.Prices, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("telegram bot init failed")
	}
	go func() {
		if err := bot.StartPolling(ctx); err != nil && err != context.Canceled {
			logger.Error().Err(err).Msg("telegram polling stopped")
		}
	}()

	// ---- Client API ----
	router := chi.NewRouter()
	apiSrv := apiv1.NewServer(activationUC, captureUC, ledgerUC, settlementUC, cfg.API.MaxImageBytes, logger)
	apiv1.RegisterAPIV1(router, apiSrv)
	apiServer := &http.Server{Addr: fmt.Sprintf(":%d", cfg.API.Port), Handler: router}
	go func() {
		logger.Info().Str("addr", apiServer.Addr).Msg("client api listening")
		if err := apiServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("client api server error")
		}
	}()

	// ---- Operator API ----
	auth := web.NewAuthManager(cfg.Admin.JWTSecret, cfg.Admin.Password, !cfg.Runtime.Dev, cfg.Admin.SessionTTL)
	opsMux := http.NewServeMux()
	web.NewServer(accountUC, auth, logger).RegisterRoutes(opsMux)
	opsServer := &http.Server{Addr: fmt.Sprintf(":%d", cfg.Admin.Port), Handler: opsMux}
	go func() {
		logger.Info().Str("addr", opsServer.Addr).Msg("operator api listening")
		if err := opsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("operator api server error")
		}
	}()

	// ---- Expiry sweep ----
	sweeper := sched.NewExpiryWorker(10*time.Minute, ledgerUC, notifier, logger)
	go func() { _ = sweeper.Run(ctx) }()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	logger.Info().Msg("shutdown requested")

	bot.StopPolling()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := apiServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("client api shutdown")
	}
	if err := opsServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("operator api shutdown")
	}
	cancel()
}
