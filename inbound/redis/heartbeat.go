package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// HeartbeatTTL is how long a worker counts as active after its last heartbeat.
// Workers send one every HeartbeatTTL/2.
const HeartbeatTTL = 60 * time.Second

// WorkerHeartbeat represents the heartbeat data for a worker
type WorkerHeartbeat struct {
	WorkerID      string    `json:"worker_id"`
	Endpoint      string    `json:"endpoint"`
	Status        string    `json:"status"`
	LastHeartbeat time.Time `json:"last_heartbeat"`
}

// SetWorkerHeartbeat stores or refreshes the heartbeat of a worker on an endpoint
func (q *Queue) SetWorkerHeartbeat(ctx context.Context, workerID, endpoint, status string) error {
	key := fmt.Sprintf("%s:%s:%s", heartbeatKey, endpoint, workerID)

	data, err := json.Marshal(WorkerHeartbeat{
		WorkerID:      workerID,
		Endpoint:      endpoint,
		Status:        status,
		LastHeartbeat: time.Now(),
	})
	if err != nil {
		return fmt.Errorf("marshaling heartbeat: %w", err)
	}

	if err := q.client.Set(ctx, key, data, HeartbeatTTL).Err(); err != nil {
		return fmt.Errorf("setting heartbeat: %w", err)
	}
	return nil
}

// ActiveWorkers retrieves the workers with a live heartbeat on an endpoint
func (q *Queue) ActiveWorkers(ctx context.Context, endpoint string) ([]WorkerHeartbeat, error) {
	return q.scanHeartbeats(ctx, fmt.Sprintf("%s:%s:*", heartbeatKey, endpoint))
}

// AllActiveWorkers retrieves the live workers grouped by endpoint
func (q *Queue) AllActiveWorkers(ctx context.Context) (map[string][]WorkerHeartbeat, error) {
	workers, err := q.scanHeartbeats(ctx, heartbeatKey+":*")
	if err != nil {
		return nil, err
	}

	byEndpoint := make(map[string][]WorkerHeartbeat)
	for _, w := range workers {
		byEndpoint[w.Endpoint] = append(byEndpoint[w.Endpoint], w)
	}
	return byEndpoint, nil
}

func (q *Queue) scanHeartbeats(ctx context.Context, pattern string) ([]WorkerHeartbeat, error) {
	var workers []WorkerHeartbeat

	var cursor uint64
	for {
		keys, next, err := q.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return nil, fmt.Errorf("scanning worker keys: %w", err)
		}

		for _, key := range keys {
			data, err := q.client.Get(ctx, key).Result()
			if err == redis.Nil {
				// expired between scan and get
				continue
			}
			if err != nil {
				return nil, fmt.Errorf("getting worker heartbeat: %w", err)
			}

			var hb WorkerHeartbeat
			if err := json.Unmarshal([]byte(data), &hb); err != nil {
				continue
			}
			workers = append(workers, hb)
		}

		cursor = next
		if cursor == 0 {
			break
		}
	}

	return workers, nil
}
