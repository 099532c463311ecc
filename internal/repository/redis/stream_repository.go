package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/terrain-microservice/internal/domain"
	"github.com/terrain-microservice/internal/domain/repository"
)

// dataField - поле сообщения с JSON полезной нагрузкой
const dataField = "data"

type streamRepository struct {
	client *redis.Client
	maxLen int64
	logger *zap.Logger
}

// NewStreamRepository создает репозиторий стримов. maxLen > 0 ограничивает
// длину стрима при публикации (приблизительный MAXLEN ~), 0 - без ограничения.
func NewStreamRepository(client *redis.Client, maxLen int64, logger *zap.Logger) repository.StreamRepository {
	return &streamRepository{
		client: client,
		maxLen: maxLen,
		logger: logger,
	}
}

// CreateConsumerGroup создает группу с позиции "$" вместе со стримом; существующая группа не ошибка
func (r *streamRepository) CreateConsumerGroup(ctx context.Context, stream, group string) error {
	err := r.client.XGroupCreateMkStream(ctx, stream, group, "$").Err()
	if err != nil {
		if strings.HasPrefix(err.Error(), "BUSYGROUP") {
			r.logger.Debug("Consumer group already exists",
				zap.String("stream", stream),
				zap.String("group", group))
			return nil
		}
		return fmt.Errorf("create consumer group %s on %s: %w", group, stream, err)
	}

	r.logger.Info("Consumer group created",
		zap.String("stream", stream),
		zap.String("group", group))
	return nil
}

// ConsumeBatch читает новые сообщения нескольких стримов одной командой XREADGROUP
func (r *streamRepository) ConsumeBatch(
	ctx context.Context,
	streams []string,
	group, consumer string,
	count int64,
	block time.Duration,
) (map[string][]domain.StreamMessage, error) {
	if len(streams) == 0 {
		return nil, fmt.Errorf("no streams to read")
	}

	args := make([]string, 0, len(streams)*2)
	args = append(args, streams...)
	for range streams {
		args = append(args, ">")
	}

	result, err := r.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    group,
		Consumer: consumer,
		Streams:  args,
		Count:    count,
		Block:    block,
	}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return map[string][]domain.StreamMessage{}, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("read batch: %w", err)
	}

	batch := make(map[string][]domain.StreamMessage, len(result))
	for _, s := range result {
		msgs, skipped := r.extract(s)
		if len(msgs) > 0 {
			batch[s.Stream] = msgs
		}
		if err := r.AckMessages(ctx, s.Stream, group, skipped...); err != nil {
			r.logger.Warn("Failed to ack malformed messages", zap.String("stream", s.Stream), zap.Error(err))
		}
	}
	return batch, nil
}

// extract достает JSON из поля data. Сообщения без него возвращаются в skipped:
// обработать их нельзя, и они подтверждаются сразу, чтобы не висеть в pending.
func (r *streamRepository) extract(s redis.XStream) (msgs []domain.StreamMessage, skipped []string) {
	msgs = make([]domain.StreamMessage, 0, len(s.Messages))
	for _, msg := range s.Messages {
		data, ok := msg.Values[dataField].(string)
		if !ok {
			r.logger.Warn("Message without data field",
				zap.String("stream", s.Stream),
				zap.String("message_id", msg.ID))
			skipped = append(skipped, msg.ID)
			continue
		}
		msgs = append(msgs, domain.StreamMessage{ID: msg.ID, Data: data})
	}
	return msgs, skipped
}

// AckMessages подтверждает обработку сообщений одной командой XACK
func (r *streamRepository) AckMessages(ctx context.Context, stream, group string, messageIDs ...string) error {
	if len(messageIDs) == 0 {
		return nil
	}
	if err := r.client.XAck(ctx, stream, group, messageIDs...).Err(); err != nil {
		return fmt.Errorf("ack %d messages on %s: %w", len(messageIDs), stream, err)
	}
	return nil
}

// PublishToStream сериализует data в JSON и добавляет в стрим
func (r *streamRepository) PublishToStream(ctx context.Context, stream string, data interface{}) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal stream payload: %w", err)
	}

	args := &redis.XAddArgs{
		Stream: stream,
		Values: map[string]interface{}{dataField: string(payload)},
	}
	if r.maxLen > 0 {
		args.MaxLen = r.maxLen
		args.Approx = true
	}

	id, err := r.client.XAdd(ctx, args).Result()
	if err != nil {
		return fmt.Errorf("publish to %s: %w", stream, err)
	}

	r.logger.Debug("Message published",
		zap.String("stream", stream),
		zap.String("message_id", id))
	return nil
}
