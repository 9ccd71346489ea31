package server

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"aegiswallet/internal/application/calendarsync/usecases"
	"aegiswallet/internal/domain/calendarsync"
	"aegiswallet/internal/infrastructure/cache"
	"aegiswallet/internal/infrastructure/config"
	"aegiswallet/internal/infrastructure/database"
	"aegiswallet/internal/infrastructure/googlecal"
	"aegiswallet/internal/infrastructure/migration"
	"aegiswallet/internal/infrastructure/repository"
	"aegiswallet/internal/infrastructure/scheduler"
	httpRouter "aegiswallet/internal/interfaces/http"
	"aegiswallet/internal/interfaces/http/handlers"
	"aegiswallet/internal/shared/biztime"
	"aegiswallet/internal/shared/logger"
)

var (
	env                string
	autoMigrate        bool
	skipMigrationCheck bool
)

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "server",
		Short: "Start the HTTP server",
		Long:  `Start the AegisWallet calendar sync server with the HTTP surface and background scheduler.`,
		RunE:  run,
	}

	cmd.Flags().StringVarP(&env, "env", "e", "development", "Environment (development, test, production)")
	cmd.Flags().BoolVar(&autoMigrate, "auto-migrate", false, "Automatically run database migrations on startup (not recommended for production)")
	cmd.Flags().BoolVar(&skipMigrationCheck, "skip-migration-check", false, "Skip migration status check on startup")

	return cmd
}

func run(cmd *cobra.Command, args []string) error {
	if envVar := os.Getenv("ENV"); envVar != "" {
		env = envVar
	}

	cfg, err := config.Load(env)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	cfg.Server.Mode = mapEnvToGinMode(env)

	if err := logger.Init(&cfg.Logger); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	logger.Info("starting server",
		"environment", env,
		"auto_migrate", autoMigrate)

	if err := biztime.Init(cfg.Sync.Timezone); err != nil {
		return fmt.Errorf("failed to initialize business timezone: %w", err)
	}

	gin.SetMode(cfg.Server.Mode)
	gin.DefaultWriter = io.Discard
	gin.DebugPrintRouteFunc = func(httpMethod, absolutePath, handlerName string, nuHandlers int) {
	}

	if err := database.Init(&cfg.Database); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer database.Close()

	if err := handleMigrations(env); err != nil {
		return fmt.Errorf("migration handling failed: %w", err)
	}

	log := logger.NewLogger()
	db := database.Get()

	// Repositories.
	credentialRepo := repository.NewCredentialRepository(db)
	settingsRepo := repository.NewSyncSettingsRepository(db)
	mappingRepo := repository.NewSyncMappingRepository(db)
	queueRepo := repository.NewSyncQueueRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	eventRepo := repository.NewFinancialEventRepository(db)

	// External calendar adapters.
	oauth := googlecal.NewOAuthProvider(&cfg.OAuth.Google)
	calClient := googlecal.NewClient()
	stateStore := cache.NewOAuthStateStore()

	// Use cases.
	audit := usecases.NewAuditRecorder(auditRepo, log)
	tokens := usecases.NewTokenService(credentialRepo, oauth, audit, log)
	guard := calendarsync.NewLoopGuard(time.Duration(cfg.Sync.LoopWindowSeconds) * time.Second)
	window := usecases.SyncWindowConfig{
		Past:   time.Duration(cfg.Sync.FullSyncPastDays) * 24 * time.Hour,
		Future: time.Duration(cfg.Sync.FullSyncFutureDays) * 24 * time.Hour,
	}
	executor := usecases.NewSyncExecutor(settingsRepo, mappingRepo, eventRepo, calClient, tokens, guard, audit, window, log)
	queueService := usecases.NewQueueService(queueRepo, cfg.Sync.MaxRetries, log)

	channelCfg := usecases.ChannelConfig{
		Address:     cfg.Server.BaseURL + "/api/v1/calendar/webhook",
		TTL:         time.Duration(cfg.Sync.ChannelTTLHours) * time.Hour,
		RenewalLead: time.Duration(cfg.Sync.RenewalLeadHours) * time.Hour,
	}
	channelRegistry := usecases.NewRegisterChannelUseCase(settingsRepo, calClient, tokens, audit, channelCfg, log)
	channelRenewal := usecases.NewRenewChannelsUseCase(settingsRepo, channelRegistry, audit, channelCfg.RenewalLead, log)

	initiateConnect := usecases.NewInitiateConnectUseCase(oauth, stateStore, log)
	handleCallback := usecases.NewHandleConnectCallbackUseCase(oauth, stateStore, credentialRepo, settingsRepo, queueService, channelRegistry, audit, log)
	disconnect := usecases.NewDisconnectUseCase(oauth, credentialRepo, settingsRepo, mappingRepo, queueRepo, channelRegistry, audit, log)
	syncStatus := usecases.NewGetSyncStatusUseCase(credentialRepo, settingsRepo, queueRepo)
	handleWebhook := usecases.NewHandleWebhookUseCase(settingsRepo, queueService, audit, log)
	processQueue := usecases.NewProcessQueueUseCase(queueRepo, executor, audit, cfg.Sync.QueueBatchSize, log)
	pollFallback := usecases.NewPollFallbackUseCase(settingsRepo, queueRepo, queueService, log)

	// Background scheduler.
	schedulerManager, err := scheduler.NewSchedulerManager(log)
	if err != nil {
		return fmt.Errorf("failed to create scheduler: %w", err)
	}
	if err := schedulerManager.RegisterQueueWorker(processQueue, time.Duration(cfg.Sync.WorkerPollSeconds)*time.Second); err != nil {
		return fmt.Errorf("failed to register queue worker: %w", err)
	}
	if err := schedulerManager.RegisterChannelRenewal(channelRenewal, time.Duration(cfg.Sync.RenewalSweepMinutes)*time.Minute); err != nil {
		return fmt.Errorf("failed to register channel renewal: %w", err)
	}
	if err := schedulerManager.RegisterPollingFallback(pollFallback, time.Duration(cfg.Sync.PollingMinutes)*time.Minute); err != nil {
		return fmt.Errorf("failed to register polling fallback: %w", err)
	}
	schedulerManager.Start()
	defer func() {
		if err := schedulerManager.Stop(); err != nil {
			logger.Error("failed to stop scheduler", "error", err)
		}
	}()

	// HTTP surface.
	syncHandler := handlers.NewCalendarSyncHandler(
		initiateConnect, handleCallback, queueService, syncStatus, disconnect,
		calendarsync.PriorityHigh, log,
	)
	webhookHandler := handlers.NewWebhookHandler(handleWebhook, log)

	router := httpRouter.NewRouter(cfg, syncHandler, webhookHandler, log)
	router.SetupRoutes(cfg)

	srv := &http.Server{
		Addr:         cfg.Server.GetAddr(),
		Handler:      router.Engine(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server starting",
			"address", cfg.Server.GetAddr(),
			"mode", cfg.Server.Mode)

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("failed to start server", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		return err
	}

	logger.Info("server exited gracefully")
	return nil
}

func handleMigrations(environment string) error {
	if skipMigrationCheck {
		logger.Info("skipping migration check")
		return nil
	}

	if autoMigrate {
		if environment == "production" {
			logger.Warn("auto-migration is enabled in production environment - this is not recommended!")
		}

		logger.Info("running auto-migration")
		migrationManager := migration.NewManager(environment)
		if err := migrationManager.Migrate(database.Get(), migration.AutoMigrateModels()...); err != nil {
			return fmt.Errorf("auto-migration failed: %w", err)
		}
		logger.Info("auto-migration completed successfully")
		return nil
	}

	logger.Info("checking migration status")

	scriptsPath, err := filepath.Abs(migration.DefaultScriptsPath)
	if err != nil {
		logger.Warn("failed to get migration scripts path", "error", err)
		return nil
	}

	strategy := migration.NewGolangMigrateStrategy(scriptsPath)
	version, dirty, err := strategy.GetVersion(database.Get())
	if err != nil {
		logger.Warn("failed to check migration status", "error", err)
		return nil
	}

	logger.Info("current migration version", "version", version, "dirty", dirty)
	return nil
}

func mapEnvToGinMode(environment string) string {
	switch environment {
	case "production", "prod":
		return "release"
	case "development", "dev":
		return "debug"
	case "test", "testing":
		return "test"
	case "debug", "release":
		return environment
	default:
		return "debug"
	}
}
