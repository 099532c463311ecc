package worker

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// BaseWorker - общая часть воркеров: имя, consumer group, логгер и сигнал остановки
type BaseWorker struct {
	name          string
	consumerGroup string
	logger        *zap.Logger

	stop     chan struct{}
	stopOnce sync.Once
	stopped  atomic.Bool
}

// NewBaseWorker создает BaseWorker; логгер помечается именем воркера
func NewBaseWorker(name, consumerGroup string, logger *zap.Logger) *BaseWorker {
	return &BaseWorker{
		name:          name,
		consumerGroup: consumerGroup,
		logger:        logger.With(zap.String("worker", name)),
		stop:          make(chan struct{}),
	}
}

func (w *BaseWorker) Name() string {
	return w.name
}

// Stop подает сигнал остановки; повторный вызов ничего не делает
func (w *BaseWorker) Stop() error {
	w.stopOnce.Do(func() {
		w.logger.Info("Stopping worker")
		w.stopped.Store(true)
		close(w.stop)
	})
	return nil
}

func (w *BaseWorker) IsStopped() bool {
	return w.stopped.Load()
}

// StopChan закрывается при Stop
func (w *BaseWorker) StopChan() <-chan struct{} {
	return w.stop
}

// StopContext возвращает контекст, отменяемый при Stop или отмене родителя.
// Им прерываются блокирующие чтения, чтобы остановка не ждала таймаута.
func (w *BaseWorker) StopContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	go func() {
		select {
		case <-w.stop:
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}

// Wait ждет d. Возвращает false, если раньше пришла остановка или отмена ctx.
func (w *BaseWorker) Wait(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-w.stop:
		return false
	case <-ctx.Done():
		return false
	}
}

func (w *BaseWorker) ConsumerGroup() string {
	return w.consumerGroup
}

func (w *BaseWorker) Logger() *zap.Logger {
	return w.logger
}
