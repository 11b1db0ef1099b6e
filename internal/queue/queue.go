// Package queue consumes schedule-change notifications from a Redis list.
// One message carries one serialized schedule record; malformed payloads are
// logged, parked on a dead-letter list, and dropped. Retry policy, if any,
// belongs to whoever publishes.
package queue

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// ReadyKey is the list the publisher pushes notifications onto.
func ReadyKey(name string) string {
	return "queue:" + name + ":ready"
}

// DLQKey is the list malformed payloads are parked on for later inspection.
func DLQKey(name string) string {
	return "queue:" + name + ":dlq"
}

// Connect parses the Redis URL, opens a client, and verifies the connection.
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, err
	}
	return rdb, nil
}
