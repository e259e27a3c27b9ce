package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Pruner is the slice of the achievement store the scheduler needs.
type Pruner interface {
	Prune(ctx context.Context, now time.Time) error
}

// MaintenanceScheduler runs periodic housekeeping jobs. Currently a single
// job: pruning expired weekly-goal achievement records (hydration prunes
// too, but a long-lived process would otherwise never prune again).
type MaintenanceScheduler struct {
	cronEngine    *cron.Cron
	pruner        Pruner
	logger        *logrus.Entry
	cronSpecPrune string
}

func NewMaintenanceScheduler(pruner Pruner, logger *logrus.Entry, cronSpecPrune string) *MaintenanceScheduler {
	return &MaintenanceScheduler{
		cronEngine:    cron.New(cron.WithLocation(time.Local)),
		pruner:        pruner,
		logger:        logger,
		cronSpecPrune: cronSpecPrune,
	}
}

func (s *MaintenanceScheduler) Start() error {
	_, err := s.cronEngine.AddFunc(s.cronSpecPrune, func() {
		s.logger.Info("Cron job triggered for achievement pruning")
		ctx, cancel := context.WithTimeout(context.Background(), 1*time.Minute)
		defer cancel()
		if err := s.pruner.Prune(ctx, time.Now()); err != nil {
			s.logger.WithError(err).Error("Achievement pruning failed")
		}
	})
	if err != nil {
		return err
	}

	s.cronEngine.Start()
	s.logger.Info("Maintenance scheduler started")
	return nil
}

func (s *MaintenanceScheduler) Stop() {
	s.logger.Info("Stopping maintenance scheduler...")
	ctx := s.cronEngine.Stop() // waits for running jobs
	<-ctx.Done()
	s.logger.Info("Maintenance scheduler gracefully stopped")
}
