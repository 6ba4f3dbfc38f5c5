package redisx

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Open dials addr and pings once. A failed ping is returned but the client
// is still usable; go-redis reconnects on demand.
func Open(ctx context.Context, addr string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})
	return rdb, rdb.Ping(ctx).Err()
}
