package engine

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// ListenRefreshRequests — "живучая" подписка на внешние запросы обновления через Redis.
// Каждое сообщение превращается в TriggerExternal с тем же правилом "занят — отброшено".
// Переподключение здесь касается только Redis, не push-канала сервиса детекции.
func ListenRefreshRequests(
	ctx context.Context,
	rdb *redis.Client,
	logger *zap.Logger,
	channel string,
	trigger func(Trigger) bool,
) {
	for {
		pubsub := rdb.Subscribe(ctx, channel)

		// Проверка успешности подписки
		if _, err := pubsub.Receive(ctx); err != nil {
			pubsub.Close()
			if ctx.Err() != nil {
				return
			}
			logger.Error("failed to subscribe", zap.String("chan", channel), zap.Error(err))
			if !sleepCtx(ctx, 5*time.Second) {
				return
			}
			continue
		}
		logger.Info("refresh request listener subscribed", zap.String("chan", channel))

		ch := pubsub.Channel()

	loop:
		for {
			select {
			case <-ctx.Done():
				pubsub.Close()
				return
			case msg, ok := <-ch:
				if !ok {
					break loop // Канал закрыт, идем на переподключение
				}
				logger.Debug("external refresh requested", zap.String("payload", msg.Payload))
				trigger(TriggerExternal)
			}
		}

		pubsub.Close()
		if !sleepCtx(ctx, time.Second) {
			return
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
