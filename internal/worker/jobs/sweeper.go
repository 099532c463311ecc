package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"

	"github.com/terrain-microservice/internal/worker"
)

const sweepTimeout = 30 * time.Second

// StaleJobFailer закрывает задачи, застрявшие в processing
type StaleJobFailer interface {
	SweepStale(ctx context.Context) (int64, error)
}

// StaleJobSweeper периодически переводит зависшие задачи в failed
type StaleJobSweeper struct {
	*worker.BaseWorker
	jobs      StaleJobFailer
	interval  time.Duration
	scheduler *gocron.Scheduler
}

// NewStaleJobSweeper создает новый StaleJobSweeper
func NewStaleJobSweeper(jobs StaleJobFailer, interval time.Duration, logger *zap.Logger) *StaleJobSweeper {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &StaleJobSweeper{
		BaseWorker: worker.NewBaseWorker("stale-job-sweeper", "", logger),
		jobs:       jobs,
		interval:   interval,
		scheduler:  gocron.NewScheduler(time.UTC),
	}
}

// Start запускает первую проверку сразу, следующие - с интервалом, и ждет остановки
func (w *StaleJobSweeper) Start(ctx context.Context) error {
	w.Logger().Info("Starting stale job sweeper", zap.Duration("interval", w.interval))

	_, err := w.scheduler.Every(w.interval).SingletonMode().Do(func() {
		w.Sweep(ctx)
	})
	if err != nil {
		return fmt.Errorf("failed to schedule sweep: %w", err)
	}
	w.scheduler.StartAsync()
	defer w.scheduler.Stop()

	select {
	case <-w.StopChan():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Sweep выполняет одну проверку
func (w *StaleJobSweeper) Sweep(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, sweepTimeout)
	defer cancel()

	n, err := w.jobs.SweepStale(ctx)
	if err != nil {
		w.Logger().Error("Failed to sweep stale jobs", zap.Error(err))
		return
	}
	w.Logger().Debug("Stale job sweep finished", zap.Int64("failed", n))
}
