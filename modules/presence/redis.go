package presence

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisRegistry is a Registry backed by a shared Redis instance, for
// running more than one process behind the same presence view. Connection
// ids are kept in a sorted set per username, scored by an incrementing
// counter so ConnectionsFor preserves registration order.
type RedisRegistry struct {
	client    *redis.Client
	keyPrefix string
}

var _ Registry = (*RedisRegistry)(nil)

// NewRedisRegistry creates a registry over the given Redis client.
func NewRedisRegistry(client *redis.Client, keyPrefix string) *RedisRegistry {
	if keyPrefix == "" {
		keyPrefix = "presence"
	}
	return &RedisRegistry{
		client:    client,
		keyPrefix: keyPrefix,
	}
}

func (r *RedisRegistry) key(username string) string {
	return fmt.Sprintf("%s:%s", r.keyPrefix, username)
}

// Register records an open connection for the user.
func (r *RedisRegistry) Register(ctx context.Context, username, connectionID string) error {
	seq, err := r.client.Incr(ctx, r.keyPrefix+":seq").Result()
	if err != nil {
		return fmt.Errorf("failed to allocate presence sequence: %w", err)
	}
	if err := r.client.ZAdd(ctx, r.key(username), redis.Z{
		Score:  float64(seq),
		Member: connectionID,
	}).Err(); err != nil {
		return fmt.Errorf("failed to register presence: %w", err)
	}
	return nil
}

// Unregister removes one connection entry. Unknown pairs are a no-op.
func (r *RedisRegistry) Unregister(ctx context.Context, username, connectionID string) error {
	if err := r.client.ZRem(ctx, r.key(username), connectionID).Err(); err != nil {
		return fmt.Errorf("failed to unregister presence: %w", err)
	}
	return nil
}

// ConnectionsFor returns the user's connection ids in registration order.
func (r *RedisRegistry) ConnectionsFor(ctx context.Context, username string) ([]string, error) {
	ids, err := r.client.ZRange(ctx, r.key(username), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list presence: %w", err)
	}
	return ids, nil
}

// IsOnline reports whether the user has any open connection.
func (r *RedisRegistry) IsOnline(ctx context.Context, username string) (bool, error) {
	n, err := r.client.ZCard(ctx, r.key(username)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check presence: %w", err)
	}
	return n > 0, nil
}
