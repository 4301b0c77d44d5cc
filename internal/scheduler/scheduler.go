package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/yshioka/equipmatch/internal/config"
	"github.com/yshioka/equipmatch/internal/service/loans"
	"github.com/yshioka/equipmatch/internal/service/matching"
)

// Scheduler manages the background jobs: the window liveness sweep and the
// overdue-loan reminder.
type Scheduler struct {
	cron        *cron.Cron
	matchingSvc *matching.Service
	loanSvc     *loans.Service
	cfg         config.Config
	logger      *zap.Logger
}

// NewScheduler creates a new scheduler instance.
func NewScheduler(cfg config.Config, matchingSvc *matching.Service, loanSvc *loans.Service, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Scheduler{
		cron:        cron.New(),
		matchingSvc: matchingSvc,
		loanSvc:     loanSvc,
		cfg:         cfg,
		logger:      logger,
	}
}

// Start registers the jobs and starts the cron loop.
func (s *Scheduler) Start() {
	s.logger.Info("starting scheduler")

	// Window liveness runs every minute: a window that stopped sending
	// heartbeats is treated as closed, the way the opener used to poll
	// its child handles.
	if _, err := s.cron.AddFunc("* * * * *", s.sweepSessions); err != nil {
		s.logger.Error("failed to schedule session sweep", zap.Error(err))
	}

	if _, err := s.cron.AddFunc(s.cfg.Scheduler.OverdueCron, s.remindOverdueLoans); err != nil {
		s.logger.Error("failed to schedule overdue reminders", zap.Error(err))
	}

	s.cron.Start()
}

// Stop stops the scheduler.
func (s *Scheduler) Stop() {
	s.logger.Info("stopping scheduler")
	s.cron.Stop()
}

func (s *Scheduler) sweepSessions() {
	if n := s.matchingSvc.SweepStale(s.cfg.Matching.SessionTTL); n > 0 {
		s.logger.Info("closed stale window sessions", zap.Int("count", n))
	}
}

func (s *Scheduler) remindOverdueLoans() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	sent, err := s.loanSvc.RemindOverdue(ctx)
	if err != nil {
		s.logger.Error("failed to send overdue reminders", zap.Error(err))
		return
	}
	if sent > 0 {
		s.logger.Info("overdue reminders sent", zap.Int("count", sent))
	}
}
