package broadcast

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// RedisSink публикует сообщения в Redis Pub/Sub.
type RedisSink struct {
	rdb *redis.Client
}

func NewRedisSink(rdb *redis.Client) *RedisSink {
	return &RedisSink{rdb: rdb}
}

func (s *RedisSink) Publish(ctx context.Context, channel string, payload []byte) error {
	return s.rdb.Publish(ctx, channel, payload).Err()
}
