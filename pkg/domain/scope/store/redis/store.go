package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/expfab/expfab/pkg/domain"
	"github.com/expfab/expfab/pkg/domain/scope/store"
)

// grant store over redis.
//
// One key per (user, model, object); SET with TTL makes expiry eviction
// redis's job, and Get re-checks the recorded expiry anyway for clocks
// that disagree.
type grantsOnRedis struct {
	client redis.UniversalClient

	// key prefix. Keys are "<prefix>:<model>:<objectId>:<userId>".
	prefix string
}

func New(client redis.UniversalClient, prefix string) *grantsOnRedis {
	return &grantsOnRedis{client: client, prefix: prefix}
}

var _ store.GrantStore = &grantsOnRedis{}

func (g *grantsOnRedis) keyOf(userId string, model string, objectId string) string {
	return fmt.Sprintf("%s:%s:%s:%s", g.prefix, model, objectId, userId)
}

// wire shape of a stored grant.
type jsonGrant struct {
	Scope     []string  `json:"scope"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (g *grantsOnRedis) Put(ctx context.Context, grant domain.ScopeGrant) error {
	ttl := time.Until(grant.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("grant for %s is already expired", g.keyOf(grant.UserId, grant.Model, grant.ObjectId))
	}

	scope := domain.NormalizeScope(grant.Scope)
	payload, err := json.Marshal(jsonGrant{
		Scope: func() []string {
			ret := make([]string, 0, len(scope))
			for _, c := range scope {
				ret = append(ret, string(c))
			}
			return ret
		}(),
		ExpiresAt: grant.ExpiresAt,
	})
	if err != nil {
		return err
	}

	return g.client.Set(
		ctx, g.keyOf(grant.UserId, grant.Model, grant.ObjectId), payload, ttl,
	).Err()
}

func (g *grantsOnRedis) Get(ctx context.Context, userId string, model string, objectId string) (*domain.ScopeGrant, error) {
	payload, err := g.client.Get(ctx, g.keyOf(userId, model, objectId)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	stored := jsonGrant{}
	if err := json.Unmarshal(payload, &stored); err != nil {
		return nil, err
	}

	scope := make([]domain.Capability, 0, len(stored.Scope))
	for _, c := range stored.Scope {
		scope = append(scope, domain.Capability(c))
	}

	return &domain.ScopeGrant{
		UserId:    userId,
		Model:     model,
		ObjectId:  objectId,
		Scope:     scope,
		ExpiresAt: stored.ExpiresAt,
	}, nil
}
