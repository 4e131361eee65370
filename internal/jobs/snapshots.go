package jobs

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/usethallo/thallo-api/internal/port"
	"github.com/usethallo/thallo-api/internal/score"

	"github.com/robfig/cron/v3"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var tracer = otel.Tracer("jobs")

const snapshotWorkers = 4

// Snapshotter computes and persists a score snapshot for one user.
// Satisfied by service.ScoreService.
type Snapshotter interface {
	SnapshotNow(ctx context.Context, userID string) (*score.HealthScore, error)
}

// SnapshotJob computes and persists a health score snapshot for every
// onboarded user on a cron schedule, so score history accrues even for
// users who never open the app.
type SnapshotJob struct {
	scores   Snapshotter
	profiles port.ProfileStore
	cron     *cron.Cron
	schedule string
	timeout  time.Duration
	logger   *zap.Logger
}

func NewSnapshotJob(scores Snapshotter, profiles port.ProfileStore, schedule string, logger *zap.Logger) *SnapshotJob {
	return &SnapshotJob{
		scores:   scores,
		profiles: profiles,
		cron:     cron.New(),
		schedule: schedule,
		timeout:  10 * time.Minute,
		logger:   logger,
	}
}

// Start registers the schedule and begins running. Call Stop on shutdown.
func (j *SnapshotJob) Start() error {
	_, err := j.cron.AddFunc(j.schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
		defer cancel()
		j.RunOnce(ctx)
	})
	if err != nil {
		return err
	}
	j.cron.Start()
	j.logger.Info("snapshot job scheduled", zap.String("schedule", j.schedule))
	return nil
}

// Stop halts the scheduler. Any snapshot run in flight finishes.
func (j *SnapshotJob) Stop() {
	ctx := j.cron.Stop()
	<-ctx.Done()
}

// RunOnce snapshots every onboarded user. Per-user failures are logged
// and skipped so one broken account cannot stall the rest of the run.
func (j *SnapshotJob) RunOnce(ctx context.Context) {
	ctx, span := tracer.Start(ctx, "SnapshotJob.RunOnce")
	defer span.End()

	start := time.Now()

	userIDs, err := j.profiles.ListOnboardedUserIDs(ctx)
	if err != nil {
		j.logger.Error("snapshot job: listing users failed", zap.Error(err))
		return
	}

	var failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(snapshotWorkers)

	for _, userID := range userIDs {
		userID := userID
		g.Go(func() error {
			if _, err := j.scores.SnapshotNow(gctx, userID); err != nil {
				failed.Add(1)
				j.logger.Warn("snapshot job: user snapshot failed",
					zap.String("user_id", userID),
					zap.Error(err),
				)
			}
			return nil
		})
	}
	g.Wait()

	j.logger.Info("snapshot job finished",
		zap.Int("users", len(userIDs)),
		zap.Int64("snapshotted", int64(len(userIDs))-failed.Load()),
		zap.Int64("failed", failed.Load()),
		zap.Duration("duration", time.Since(start)),
	)
}
