package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/terrain-microservice/internal/domain"
	"github.com/terrain-microservice/internal/domain/repository"
	"github.com/terrain-microservice/internal/worker"
)

const errorBackoff = time.Second

// JobExecutor выполняет задачу из события стрима
type JobExecutor interface {
	Execute(ctx context.Context, event domain.TerrainJobEvent) (*domain.TerrainJobDoneEvent, error)
}

// JobWorker читает задачи из стримов stream:terrain:<тип>, выполняет их и
// публикует результат в stream:terrain:done
type JobWorker struct {
	*worker.BaseWorker
	streamRepo   repository.StreamRepository
	executor     JobExecutor
	consumerName string
	streams      []string
	batchSize    int64
	block        time.Duration
	concurrency  int
}

// NewJobWorker создает новый JobWorker
func NewJobWorker(
	streamRepo repository.StreamRepository,
	executor JobExecutor,
	consumerGroup string,
	batchSize int64,
	block time.Duration,
	concurrency int,
	logger *zap.Logger,
) *JobWorker {
	hostname, _ := os.Hostname()

	streams := make([]string, 0, len(domain.JobTypes))
	for _, t := range domain.JobTypes {
		streams = append(streams, t.Stream())
	}

	return &JobWorker{
		BaseWorker:   worker.NewBaseWorker("terrain-jobs", consumerGroup, logger),
		streamRepo:   streamRepo,
		executor:     executor,
		consumerName: fmt.Sprintf("%s-%d", hostname, os.Getpid()),
		streams:      streams,
		batchSize:    max(batchSize, 1),
		block:        block,
		concurrency:  max(concurrency, 1),
	}
}

// Start создает consumer group для каждого стрима и обрабатывает сообщения до остановки
func (w *JobWorker) Start(ctx context.Context) error {
	logger := w.Logger()
	logger.Info("Starting terrain job worker",
		zap.String("consumer_group", w.ConsumerGroup()),
		zap.String("consumer_name", w.consumerName),
		zap.Strings("streams", w.streams),
		zap.Int64("batch_size", w.batchSize),
		zap.Int("concurrency", w.concurrency))

	for _, stream := range w.streams {
		if err := w.streamRepo.CreateConsumerGroup(ctx, stream, w.ConsumerGroup()); err != nil {
			return fmt.Errorf("failed to create consumer group for %s: %w", stream, err)
		}
	}

	readCtx, cancel := w.StopContext(ctx)
	defer cancel()

	for {
		select {
		case <-w.StopChan():
			logger.Info("Worker stopped")
			return nil
		case <-ctx.Done():
			logger.Info("Context cancelled")
			return ctx.Err()
		default:
		}

		if _, err := w.ProcessBatch(ctx, readCtx); err != nil {
			logger.Error("Failed to process batch", zap.Error(err))
			w.Wait(ctx, errorBackoff)
		}
	}
}

// ProcessBatch читает одну пачку сообщений и обрабатывает ее. Чтение идет
// через readCtx, выполнение задач - через ctx, чтобы остановка воркера не
// обрывала уже начатые задачи. Возвращает число прочитанных сообщений.
func (w *JobWorker) ProcessBatch(ctx, readCtx context.Context) (int, error) {
	batch, err := w.streamRepo.ConsumeBatch(readCtx, w.streams, w.ConsumerGroup(), w.consumerName, w.batchSize, w.block)
	if err != nil {
		if readCtx.Err() != nil {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to consume batch: %w", err)
	}

	total := 0
	for stream, messages := range batch {
		total += len(messages)

		g := new(errgroup.Group)
		g.SetLimit(w.concurrency)
		for _, msg := range messages {
			g.Go(func() error {
				w.handle(ctx, stream, msg)
				return nil
			})
		}
		_ = g.Wait()

		// сообщения подтверждаются всегда: состояние задачи хранится в БД,
		// зависшие задачи закрывает StaleJobSweeper
		ids := make([]string, len(messages))
		for i, msg := range messages {
			ids[i] = msg.ID
		}
		if err := w.streamRepo.AckMessages(ctx, stream, w.ConsumerGroup(), ids...); err != nil {
			w.Logger().Error("Failed to ack messages", zap.String("stream", stream), zap.Error(err))
		}
	}

	if total > 0 {
		w.Logger().Debug("Batch processed", zap.Int("messages", total))
	}
	return total, nil
}

func (w *JobWorker) handle(ctx context.Context, stream string, msg domain.StreamMessage) {
	logger := w.Logger().With(zap.String("stream", stream), zap.String("message_id", msg.ID))

	event, err := parseEvent(stream, msg)
	if err != nil {
		logger.Warn("Failed to parse message, skipping", zap.Error(err))
		return
	}

	start := time.Now()
	done, err := w.executor.Execute(ctx, event)
	if err != nil {
		logger.Error("Job execution failed",
			zap.String("job_id", event.JobID.String()),
			zap.Error(err))
		return
	}
	if done == nil {
		logger.Info("Job already finished, skipping", zap.String("job_id", event.JobID.String()))
		return
	}

	logger.Info("Job finished",
		zap.String("job_id", done.JobID.String()),
		zap.String("type", string(done.Type)),
		zap.String("status", string(done.Status)),
		zap.Duration("duration", time.Since(start)))

	if err := w.streamRepo.PublishToStream(ctx, domain.StreamTerrainDone, done); err != nil {
		logger.Error("Failed to publish done event", zap.String("job_id", done.JobID.String()), zap.Error(err))
	}
}

// parseEvent разбирает событие; тип задачи без явного поля берется из имени стрима
func parseEvent(stream string, msg domain.StreamMessage) (domain.TerrainJobEvent, error) {
	var event domain.TerrainJobEvent
	if err := json.Unmarshal([]byte(msg.Data), &event); err != nil {
		return event, fmt.Errorf("failed to unmarshal event: %w", err)
	}
	if event.Type == "" {
		event.Type = domain.JobType(strings.TrimPrefix(stream, "stream:terrain:"))
	}
	return event, nil
}
