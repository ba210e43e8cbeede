// Package cache opens the Redis client shared by sessions and the report cache.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrUnreachable wraps a failed startup ping. The client is still usable once Redis comes back.
var ErrUnreachable = errors.New("platform/cache: redis unreachable")

const pingTimeout = 5 * time.Second

// Open creates a Redis client for addr and pings it once.
// On a failed ping the client is returned together with an error wrapping ErrUnreachable.
func Open(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
	})

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return client, fmt.Errorf("%w: %s: %v", ErrUnreachable, addr, err)
	}
	return client, nil
}
