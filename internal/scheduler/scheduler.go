package scheduler

import (
	"log/slog"
	"time"

	"transparency-monitor/internal/config"
	"transparency-monitor/internal/service"
)

// Scheduler handles periodic tasks: the appeal-window expiration sweep
// and verification-code cleanup
type Scheduler struct {
	assessmentSvc *service.AssessmentService
	authSvc       *service.AuthService
	config        *config.SchedulerConfig
	stopChan      chan bool
}

// NewScheduler creates a new scheduler
func NewScheduler(
	assessmentSvc *service.AssessmentService,
	authSvc *service.AuthService,
	cfg *config.SchedulerConfig,
) *Scheduler {
	return &Scheduler{
		assessmentSvc: assessmentSvc,
		authSvc:       authSvc,
		config:        cfg,
		stopChan:      make(chan bool),
	}
}

// Start starts all scheduled tasks
func (s *Scheduler) Start() {
	slog.Info("Starting scheduler",
		"sweep_interval", s.config.SweepInterval,
		"sweep_at_start", s.config.SweepAtStart,
		"code_cleanup_enabled", s.config.CodeCleanupEnabled,
	)

	go s.scheduleIntervalTask(s.config.SweepInterval, s.config.SweepAtStart, "appeal_expiration_sweep", s.sweepExpiredAppeals)

	if s.config.CodeCleanupEnabled {
		go s.scheduleIntervalTask(s.config.CodeCleanupEvery, false, "verification_code_cleanup", s.authSvc.CleanupExpiredCodes)
	}

	slog.Info("Scheduler started")
}

// Stop stops the scheduler
func (s *Scheduler) Stop() {
	slog.Info("Stopping scheduler")
	close(s.stopChan)
}

// scheduleIntervalTask runs a task at regular intervals, optionally
// running it once immediately. Each run is isolated: a panic in one
// tick is logged and the ticker keeps going.
func (s *Scheduler) scheduleIntervalTask(interval time.Duration, runAtStart bool, taskName string, task func()) {
	slog.Info("Starting interval task", "task", taskName, "interval", interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	if runAtStart {
		s.runTask(taskName, task)
	}

	for {
		select {
		case <-ticker.C:
			s.runTask(taskName, task)
		case <-s.stopChan:
			return
		}
	}
}

func (s *Scheduler) runTask(taskName string, task func()) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Scheduled task panicked", "task", taskName, "panic", r)
		}
	}()
	task()
}

// sweepExpiredAppeals forces the expiry transition on every assessment
// whose appeal deadline passed without an appeal
func (s *Scheduler) sweepExpiredAppeals() {
	processed := s.assessmentSvc.SweepExpiredAppeals()
	if processed > 0 {
		slog.Info("Appeal expiration sweep completed", "expired", processed)
	}
}
