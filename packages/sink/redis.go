package sink

import (
	"context"
	"encoding/json"
	"fmt"

	"pulse/packages/domain"

	"github.com/redis/go-redis/v9"
)

// RedisSink pushes each report onto a list and keeps the newest history entries.
type RedisSink struct {
	client  redis.UniversalClient
	key     string
	history int64
}

func NewRedisSink(client redis.UniversalClient, key string, history int64) *RedisSink {
	if history < 1 {
		history = 1
	}
	return &RedisSink{client: client, key: key, history: history}
}

// DialRedis connects and pings the server.
func DialRedis(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("could not connect to redis at %s: %w", addr, err)
	}
	return client, nil
}

func (s *RedisSink) Save(ctx context.Context, report *domain.Report) error {
	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	pipe := s.client.TxPipeline()
	pipe.LPush(ctx, s.key, payload)
	pipe.LTrim(ctx, s.key, 0, s.history-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("publish report to redis key %s: %w", s.key, err)
	}
	return nil
}
