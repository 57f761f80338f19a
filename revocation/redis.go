package revocation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultKeyPrefix = "authist:revoked:"

// RedisStore shares revocations across instances. Each revoked id is a key
// that expires with the token it blocks.
type RedisStore struct {
	client    redis.UniversalClient
	keyPrefix string
}

func NewRedisStore(client redis.UniversalClient, keyPrefix string) *RedisStore {
	if keyPrefix == "" {
		keyPrefix = defaultKeyPrefix
	}
	return &RedisStore{client: client, keyPrefix: keyPrefix}
}

// DialRedis connects to addr and verifies the connection.
func DialRedis(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}

func (r *RedisStore) key(tokenID string) string {
	return r.keyPrefix + tokenID
}

// Consume implements authist.RevocationStore with SET NX, so only one
// caller across all instances sees true. Ids whose expiry already passed
// are reported as used without touching Redis.
func (r *RedisStore) Consume(ctx context.Context, tokenID string, until time.Time) (bool, error) {
	args := redis.SetArgs{Mode: "NX"}
	if !until.IsZero() {
		if !time.Now().Before(until) {
			return false, nil
		}
		args.ExpireAt = until
	}

	err := r.client.SetArgs(context.WithoutCancel(ctx), r.key(tokenID), "1", args).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// IsRevoked reports whether tokenID was consumed.
func (r *RedisStore) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := r.client.Exists(ctx, r.key(tokenID)).Result()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
