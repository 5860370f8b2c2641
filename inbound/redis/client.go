package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

/* Redis implementations of inbound.Store and inbound.Queue
 * Records live in hashes indexed by sorted sets (score: created_at in ms)
 * Jobs flow through one stream per endpoint, read by consumer groups
 */

const (
	keyPrefix     = "inbound"         // inbound:{record_id}
	indexKey      = "inbound:index"   // every record, by created_at
	streamPrefix  = "inbound:jobs"    // inbound:jobs:{endpoint}
	consumerGroup = "inbound-workers" // one group shared by every worker
	heartbeatKey  = "inbound:worker:heartbeat"
)

// NewClient connects to Redis and checks the connection
func NewClient(addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connecting to Redis: %w", err)
	}

	return client, nil
}

func recordKey(id string) string {
	return fmt.Sprintf("%s:%s", keyPrefix, id)
}

func endpointIndexKey(name string) string {
	return fmt.Sprintf("%s:%s", indexKey, name)
}

func streamKey(endpoint string) string {
	return fmt.Sprintf("%s:%s", streamPrefix, endpoint)
}

// ensureGroup creates the consumer group of a stream, creating the stream too
func ensureGroup(ctx context.Context, client *redis.Client, stream string) error {
	err := client.XGroupCreateMkStream(ctx, stream, consumerGroup, "0").Err()
	if err != nil && !isBusyGroup(err) {
		return fmt.Errorf("creating consumer group: %w", err)
	}
	return nil
}

func isNoGroup(err error) bool {
	var redisErr redis.Error
	return errors.As(err, &redisErr) && strings.HasPrefix(redisErr.Error(), "NOGROUP")
}

func isBusyGroup(err error) bool {
	var redisErr redis.Error
	return errors.As(err, &redisErr) && strings.HasPrefix(redisErr.Error(), "BUSYGROUP")
}
