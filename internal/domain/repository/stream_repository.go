package repository

import (
	"context"
	"time"

	"github.com/terrain-microservice/internal/domain"
)

// StreamRepository - очереди задач на Redis Streams
type StreamRepository interface {
	// CreateConsumerGroup создает consumer group; существующая группа не ошибка
	CreateConsumerGroup(ctx context.Context, stream, group string) error

	// ConsumeBatch читает до count сообщений из нескольких стримов, блокируясь не дольше block.
	// Результат сгруппирован по имени стрима; пустой результат не ошибка.
	ConsumeBatch(ctx context.Context, streams []string, group, consumer string, count int64, block time.Duration) (map[string][]domain.StreamMessage, error)

	// AckMessages подтверждает обработку сообщений одним вызовом
	AckMessages(ctx context.Context, stream, group string, messageIDs ...string) error

	// PublishToStream публикует data как JSON в поле data
	PublishToStream(ctx context.Context, stream string, data interface{}) error
}
