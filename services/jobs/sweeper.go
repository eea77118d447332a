package jobs

import (
	"context"
	"time"

	"legal_marketplace_go/models"
	"legal_marketplace_go/services"

	"github.com/robfig/cron/v3"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Sweeper re-enqueues cases whose processing was lost: runs interrupted by a
// restart (the queue lives in memory) and intakes rejected by a full queue.
// Runs that failed on their own are left alone.
type Sweeper struct {
	db           *gorm.DB
	queue        services.JobEnqueuer
	stalledAfter time.Duration
	now          func() time.Time
}

func NewSweeper(db *gorm.DB, queue services.JobEnqueuer, stalledAfter time.Duration) *Sweeper {
	return &Sweeper{db: db, queue: queue, stalledAfter: stalledAfter, now: time.Now}
}

// Sweep enqueues every stalled case and returns how many were enqueued
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	cutoff := s.now().Add(-s.stalledAfter)

	var cases []models.Case
	err := s.db.WithContext(ctx).
		Where("estado IN ?", []string{models.CaseStatusDraft, models.CaseStatusAvailable}).
		Where("updated_at < ?", cutoff).
		Where(
			s.db.Where("estado_procesamiento IN ?", []string{models.ProcessingPending, models.ProcessingGenerating, models.ProcessingFinalizing}).
				Or("estado_procesamiento = ? AND error_procesamiento LIKE ?", models.ProcessingFailed, services.EnqueueFailurePrefix+"%"),
		).
		Order("updated_at").
		Find(&cases).Error
	if err != nil {
		return 0, eris.Wrap(err, "find stalled cases")
	}

	enqueued := 0
	for i := range cases {
		c := &cases[i]
		if err := s.queue.Enqueue(services.JobFromCase(c, "")); err != nil {
			// The rest will be picked up by the next sweep
			zap.L().Warn("sweep stopped, queue rejected job", zap.String("case_id", c.ID), zap.Error(err))
			break
		}
		enqueued++
	}

	if len(cases) > 0 {
		zap.L().Info("stalled case sweep", zap.Int("found", len(cases)), zap.Int("enqueued", enqueued))
	}
	return enqueued, nil
}

// StartScheduler runs the sweep on a cron schedule. The caller stops the
// returned scheduler on shutdown.
func StartScheduler(schedule string, sweeper *Sweeper) (*cron.Cron, error) {
	c := cron.New()

	_, err := c.AddFunc(schedule, func() {
		if _, err := sweeper.Sweep(context.Background()); err != nil {
			zap.L().Error("stalled case sweep failed", zap.Error(err))
		}
	})
	if err != nil {
		return nil, eris.Wrapf(err, "schedule sweep %q", schedule)
	}

	c.Start()
	zap.L().Info("sweep scheduler started", zap.String("schedule", schedule))
	return c, nil
}
