package providerchangeinfra

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Abraxas-365/lingua/pkg/errx"
	"github.com/Abraxas-365/lingua/pkg/iam/providerchange"
	"github.com/Abraxas-365/lingua/pkg/kernel"
	"github.com/redis/go-redis/v9"
)

// RedisRepository keeps one JSON document per user under a TTL.
type RedisRepository struct {
	client *redis.Client
	prefix string
}

func NewRedisRepository(client *redis.Client) *RedisRepository {
	return &RedisRepository{client: client, prefix: "auth_provider_change:"}
}

func (r *RedisRepository) key(userID kernel.UserID) string {
	return fmt.Sprintf("%s%s", r.prefix, userID)
}

func (r *RedisRepository) Save(ctx context.Context, req providerchange.Request, ttl time.Duration) error {
	data, err := json.Marshal(req)
	if err != nil {
		return errx.Wrap(err, "failed to marshal provider change", errx.TypeInternal)
	}
	if err := r.client.Set(ctx, r.key(req.UserID), data, ttl).Err(); err != nil {
		return errx.Wrap(err, "failed to store provider change", errx.TypeInternal)
	}
	return nil
}

func (r *RedisRepository) Find(ctx context.Context, userID kernel.UserID) (*providerchange.Request, error) {
	data, err := r.client.Get(ctx, r.key(userID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, errx.Wrap(err, "failed to read provider change", errx.TypeInternal)
	}

	var req providerchange.Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, errx.Wrap(err, "failed to unmarshal provider change", errx.TypeInternal)
	}
	return &req, nil
}

func (r *RedisRepository) Delete(ctx context.Context, userID kernel.UserID) error {
	if err := r.client.Del(ctx, r.key(userID)).Err(); err != nil {
		return errx.Wrap(err, "failed to delete provider change", errx.TypeInternal)
	}
	return nil
}
