package relay

import (
	"context"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// Presence tracks which users are connected across instances.
type Presence interface {
	Online(ctx context.Context, userID int64) error
	Offline(ctx context.Context, userID int64) error
	List(ctx context.Context) ([]int64, error)
}

// NopPresence is used when no shared store is configured.
type NopPresence struct{}

func (NopPresence) Online(context.Context, int64) error   { return nil }
func (NopPresence) Offline(context.Context, int64) error  { return nil }
func (NopPresence) List(context.Context) ([]int64, error) { return nil, nil }

// RedisPresence keeps a per-user connection count in a Redis hash so a user
// connected to two instances stays online until both sockets close.
type RedisPresence struct {
	client *redis.Client
	key    string
}

// NewRedisPresence returns presence backed by client.
func NewRedisPresence(client *redis.Client, key string) *RedisPresence {
	if key == "" {
		key = "presence:online"
	}
	return &RedisPresence{client: client, key: key}
}

func (p *RedisPresence) Online(ctx context.Context, userID int64) error {
	return p.client.HIncrBy(ctx, p.key, strconv.FormatInt(userID, 10), 1).Err()
}

func (p *RedisPresence) Offline(ctx context.Context, userID int64) error {
	field := strconv.FormatInt(userID, 10)
	n, err := p.client.HIncrBy(ctx, p.key, field, -1).Result()
	if err != nil {
		return err
	}
	if n <= 0 {
		return p.client.HDel(ctx, p.key, field).Err()
	}
	return nil
}

func (p *RedisPresence) List(ctx context.Context) ([]int64, error) {
	fields, err := p.client.HKeys(ctx, p.key).Result()
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(fields))
	for _, f := range fields {
		id, err := strconv.ParseInt(f, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}
