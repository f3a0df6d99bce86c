package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/expfab/expfab/pkg/conn/queue"
	"github.com/expfab/expfab/pkg/domain"
)

// queue over a redis list: RPUSH to enqueue, BLPOP to dequeue.
//
// Messages are JSON-encoded domain.Command. A message popped and then lost
// by a crashing worker is gone; the at-least-once property is provided by
// the caller re-issuing commands, not by this transport.
type queueOnRedis struct {
	client  redis.UniversalClient
	key     string
	popWait time.Duration
}

type Option func(*queueOnRedis) *queueOnRedis

// how long a single Dequeue blocks before returning (nil, nil).
func WithPopWait(d time.Duration) Option {
	return func(q *queueOnRedis) *queueOnRedis {
		q.popWait = d
		return q
	}
}

func New(client redis.UniversalClient, key string, options ...Option) *queueOnRedis {
	q := &queueOnRedis{
		client:  client,
		key:     key,
		popWait: 5 * time.Second,
	}
	for _, o := range options {
		q = o(q)
	}
	return q
}

var (
	_ queue.Producer = &queueOnRedis{}
	_ queue.Consumer = &queueOnRedis{}
)

func (q *queueOnRedis) Enqueue(ctx context.Context, command domain.Command) error {
	message, err := json.Marshal(command)
	if err != nil {
		return err
	}
	return q.client.RPush(ctx, q.key, message).Err()
}

func (q *queueOnRedis) Dequeue(ctx context.Context) (*domain.Command, error) {
	popped, err := q.client.BLPop(ctx, q.popWait, q.key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil // timed out, nothing queued
		}
		return nil, err
	}

	// BLPop returns [key, value]
	if len(popped) != 2 {
		return nil, nil
	}

	command := new(domain.Command)
	if err := json.Unmarshal([]byte(popped[1]), command); err != nil {
		return nil, err
	}
	if _, err := domain.AsTaskName(string(command.Task)); err != nil {
		return nil, err
	}
	return command, nil
}
