package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/expfab/expfab/pkg/domain/experiment/ttl"
)

// ttl marks over redis. The mark is a key whose own expiry is the ttl, so
// redis evicts it by itself and Get measures what remains.
type ttlOnRedis struct {
	client redis.UniversalClient
	prefix string
}

func New(client redis.UniversalClient, prefix string) *ttlOnRedis {
	return &ttlOnRedis{client: client, prefix: prefix}
}

var _ ttl.Store = &ttlOnRedis{}

func (t *ttlOnRedis) keyOf(experimentId string) string {
	return fmt.Sprintf("%s:%s", t.prefix, experimentId)
}

func (t *ttlOnRedis) Set(ctx context.Context, experimentId string, ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("ttl should be positive: %s", ttl)
	}
	return t.client.Set(ctx, t.keyOf(experimentId), "1", ttl).Err()
}

func (t *ttlOnRedis) Get(ctx context.Context, experimentId string) (time.Duration, bool, error) {
	remaining, err := t.client.TTL(ctx, t.keyOf(experimentId)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, false, nil
		}
		return 0, false, err
	}
	// TTL returns negative durations for missing keys and keys without
	// expiry; neither counts as a ttl mark.
	if remaining < 0 {
		return 0, false, nil
	}
	return remaining, true, nil
}
