package worker

import (
	"context"
)

// Worker - фоновый процесс, управляемый WorkerManager
type Worker interface {
	// Start блокируется до остановки воркера или отмены ctx
	Start(ctx context.Context) error

	// Stop сигнализирует воркеру завершиться; безопасен при повторном вызове
	Stop() error

	// Name возвращает имя воркера для логов
	Name() string
}
