// Package scheduler provides unified scheduler management using gocron v2.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"

	"aegiswallet/internal/shared/biztime"
	"aegiswallet/internal/shared/logger"
)

// BatchJob defines the interface for a scheduled batch processing job.
// Each Execute call processes a batch and returns the number of items processed.
type BatchJob interface {
	Execute(ctx context.Context) (int, error)
}

// SchedulerManager manages all scheduled jobs using gocron v2. It drives the
// durable sync queue and keeps webhook channels alive.
type SchedulerManager struct {
	scheduler gocron.Scheduler
	logger    logger.Interface

	started   bool
	startedMu sync.RWMutex
}

// NewSchedulerManager creates a new SchedulerManager instance.
// It initializes gocron with the business timezone for cron expressions.
func NewSchedulerManager(log logger.Interface) (*SchedulerManager, error) {
	scheduler, err := gocron.NewScheduler(
		gocron.WithLocation(biztime.Location()),
	)
	if err != nil {
		return nil, err
	}

	return &SchedulerManager{
		scheduler: scheduler,
		logger:    log,
	}, nil
}

// RegisterQueueWorker registers the sync queue drain job. Each tick drains
// batches until the queue has no more due jobs, so a burst of webhook
// notifications does not wait a full interval per batch.
func (m *SchedulerManager) RegisterQueueWorker(worker BatchJob, interval time.Duration) error {
	if interval <= 0 {
		interval = 15 * time.Second
	}

	_, err := m.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			defer cancel()
			m.drainQueue(ctx, worker)
		}),
		gocron.WithStartAt(gocron.WithStartImmediately()),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithTags("calendarsync", "queue"),
		gocron.WithName("sync-queue-worker"),
	)
	if err != nil {
		return err
	}

	m.logger.Infow("registered sync queue worker", "interval", interval)
	return nil
}

func (m *SchedulerManager) drainQueue(ctx context.Context, worker BatchJob) {
	total := 0
	for {
		processed, err := worker.Execute(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			m.logger.Errorw("failed to process sync queue batch", "error", err)
			return
		}
		total += processed
		if processed == 0 {
			break
		}
	}
	if total > 0 {
		m.logger.Debugw("sync queue drained", "processed", total)
	}
}

// RegisterChannelRenewal registers the webhook channel renewal sweep.
func (m *SchedulerManager) RegisterChannelRenewal(renewal BatchJob, interval time.Duration) error {
	if interval <= 0 {
		interval = time.Hour
	}

	_, err := m.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			defer cancel()
			m.renewChannels(ctx, renewal)
		}),
		gocron.WithStartAt(gocron.WithStartImmediately()),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithTags("calendarsync", "channels"),
		gocron.WithName("channel-renewal"),
	)
	if err != nil {
		return err
	}

	m.logger.Infow("registered channel renewal sweep", "interval", interval)
	return nil
}

func (m *SchedulerManager) renewChannels(ctx context.Context, renewal BatchJob) {
	startTime := biztime.NowUTC()

	renewed, err := renewal.Execute(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		m.logger.Errorw("channel renewal sweep failed",
			"error", err,
			"duration", time.Since(startTime),
		)
		return
	}

	if renewed > 0 {
		m.logger.Infow("webhook channels renewed",
			"count", renewed,
			"duration", time.Since(startTime),
		)
	} else {
		m.logger.Debugw("no webhook channels due for renewal",
			"duration", time.Since(startTime),
		)
	}
}

// RegisterPollingFallback registers a low-frequency inbound poll so users
// without a working webhook channel still converge.
func (m *SchedulerManager) RegisterPollingFallback(poller BatchJob, interval time.Duration) error {
	if interval <= 0 {
		interval = 15 * time.Minute
	}

	_, err := m.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
			defer cancel()
			m.pollUsers(ctx, poller)
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithTags("calendarsync", "polling"),
		gocron.WithName("polling-fallback"),
	)
	if err != nil {
		return err
	}

	m.logger.Infow("registered polling fallback", "interval", interval)
	return nil
}

func (m *SchedulerManager) pollUsers(ctx context.Context, poller BatchJob) {
	queued, err := poller.Execute(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		m.logger.Errorw("polling fallback failed", "error", err)
		return
	}
	if queued > 0 {
		m.logger.Debugw("polling fallback queued syncs", "count", queued)
	}
}

// Start starts the scheduler and all registered jobs.
func (m *SchedulerManager) Start() {
	m.startedMu.Lock()
	defer m.startedMu.Unlock()

	if m.started {
		return
	}

	m.scheduler.Start()
	m.started = true
	m.logger.Infow("scheduler manager started", "job_count", len(m.scheduler.Jobs()))
}

// Stop gracefully stops the scheduler.
// It waits for all running jobs to complete before returning.
func (m *SchedulerManager) Stop() error {
	m.startedMu.Lock()
	defer m.startedMu.Unlock()

	if !m.started {
		return nil
	}

	m.logger.Infow("stopping scheduler manager")

	err := m.scheduler.Shutdown()
	m.started = false

	if err != nil {
		m.logger.Errorw("scheduler manager shutdown with error", "error", err)
		return err
	}

	m.logger.Infow("scheduler manager stopped")
	return nil
}

// IsStarted returns whether the scheduler is running.
func (m *SchedulerManager) IsStarted() bool {
	m.startedMu.RLock()
	defer m.startedMu.RUnlock()
	return m.started
}

// Jobs returns all registered jobs for inspection.
func (m *SchedulerManager) Jobs() []gocron.Job {
	return m.scheduler.Jobs()
}
