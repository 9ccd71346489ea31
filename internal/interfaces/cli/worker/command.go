package worker

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"aegiswallet/internal/application/calendarsync/usecases"
	"aegiswallet/internal/domain/calendarsync"
	"aegiswallet/internal/infrastructure/config"
	"aegiswallet/internal/infrastructure/database"
	"aegiswallet/internal/infrastructure/googlecal"
	"aegiswallet/internal/infrastructure/repository"
	"aegiswallet/internal/infrastructure/scheduler"
	"aegiswallet/internal/shared/biztime"
	"aegiswallet/internal/shared/logger"
)

var env string

// NewCommand creates the standalone worker command. It runs the queue
// worker, channel renewal and polling fallback without the HTTP surface,
// for deployments that separate web and background processing.
func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Start the background sync worker",
		Long:  `Start the background worker that drains the sync queue, renews webhook channels and polls channel-less users.`,
		RunE:  run,
	}

	cmd.Flags().StringVarP(&env, "env", "e", "development", "Environment (development, test, production)")

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

	if err := logger.Init(&cfg.Logger); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	logger.Info("starting sync worker", "environment", env)

	if err := biztime.Init(cfg.Sync.Timezone); err != nil {
		return fmt.Errorf("failed to initialize business timezone: %w", err)
	}

	if err := database.Init(&cfg.Database); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer database.Close()

	log := logger.NewLogger()
	db := database.Get()

	credentialRepo := repository.NewCredentialRepository(db)
	settingsRepo := repository.NewSyncSettingsRepository(db)
	mappingRepo := repository.NewSyncMappingRepository(db)
	queueRepo := repository.NewSyncQueueRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	eventRepo := repository.NewFinancialEventRepository(db)

	oauth := googlecal.NewOAuthProvider(&cfg.OAuth.Google)
	calClient := googlecal.NewClient()

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

	processQueue := usecases.NewProcessQueueUseCase(queueRepo, executor, audit, cfg.Sync.QueueBatchSize, log)
	pollFallback := usecases.NewPollFallbackUseCase(settingsRepo, queueRepo, queueService, log)

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

	logger.Info("sync worker started",
		"worker_poll_seconds", cfg.Sync.WorkerPollSeconds,
		"renewal_sweep_minutes", cfg.Sync.RenewalSweepMinutes,
		"polling_minutes", cfg.Sync.PollingMinutes)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down sync worker...")

	if err := schedulerManager.Stop(); err != nil {
		logger.Error("failed to stop scheduler", "error", err)
		return err
	}

	logger.Info("sync worker exited gracefully")
	return nil
}
