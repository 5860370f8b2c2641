package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/marcelsud/inbound-processor/inbound/redis"
)

// RecordCounter is implemented by stores able to count the records of an endpoint
type RecordCounter interface {
	Count(ctx context.Context, endpoint string) (int64, error)
}

// QueueStats is the read side of the job queue
type QueueStats interface {
	Length(ctx context.Context, endpoint string) (int64, error)
	Pending(ctx context.Context, endpoint string) (int64, error)
	AllActiveWorkers(ctx context.Context) (map[string][]redis.WorkerHeartbeat, error)
}

// EndpointCollector implements Collector over the configured endpoints
type EndpointCollector struct {
	endpoints []string
	stores    map[string]RecordCounter
	queue     QueueStats
}

// NewCollector creates a collector. stores maps an endpoint to its store;
// endpoints whose store cannot count are left out of RecordCounts.
func NewCollector(endpoints []string, stores map[string]RecordCounter, queue QueueStats) *EndpointCollector {
	return &EndpointCollector{
		endpoints: endpoints,
		stores:    stores,
		queue:     queue,
	}
}

// Collect gathers every gauge
func (c *EndpointCollector) Collect(ctx context.Context) (Snapshot, error) {
	queueLengths, err := c.QueueLengths(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("getting queue lengths: %w", err)
	}

	pending, err := c.PendingJobs(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("getting pending jobs: %w", err)
	}

	records, err := c.RecordCounts(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("getting record counts: %w", err)
	}

	workers, err := c.ActiveWorkers(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("getting active workers: %w", err)
	}

	return Snapshot{
		QueueLengths: queueLengths,
		PendingJobs:  pending,
		RecordCounts: records,
		Workers:      workers,
		Timestamp:    time.Now(),
	}, nil
}

// QueueLengths returns the length of each endpoint stream.
// An endpoint that fails is skipped so one bad stream does not hide the others.
func (c *EndpointCollector) QueueLengths(ctx context.Context) (map[string]int64, error) {
	return c.perEndpoint(ctx, c.queue.Length), nil
}

// PendingJobs returns the unacknowledged deliveries of each endpoint
func (c *EndpointCollector) PendingJobs(ctx context.Context) (map[string]int64, error) {
	return c.perEndpoint(ctx, c.queue.Pending), nil
}

// RecordCounts returns the records held for each endpoint
func (c *EndpointCollector) RecordCounts(ctx context.Context) (map[string]int64, error) {
	counts := make(map[string]int64)
	for _, endpoint := range c.endpoints {
		store, ok := c.stores[endpoint]
		if !ok {
			continue
		}
		n, err := store.Count(ctx, endpoint)
		if err != nil {
			continue
		}
		counts[endpoint] = n
	}
	return counts, nil
}

// ActiveWorkers returns the live workers per endpoint
func (c *EndpointCollector) ActiveWorkers(ctx context.Context) (map[string][]WorkerInfo, error) {
	heartbeats, err := c.queue.AllActiveWorkers(ctx)
	if err != nil {
		return nil, fmt.Errorf("getting worker heartbeats: %w", err)
	}

	workers := make(map[string][]WorkerInfo, len(heartbeats))
	for endpoint, list := range heartbeats {
		for _, hb := range list {
			workers[endpoint] = append(workers[endpoint], WorkerInfo{
				WorkerID:      hb.WorkerID,
				Endpoint:      hb.Endpoint,
				Status:        hb.Status,
				LastHeartbeat: hb.LastHeartbeat,
			})
		}
	}
	return workers, nil
}

func (c *EndpointCollector) perEndpoint(ctx context.Context, fn func(context.Context, string) (int64, error)) map[string]int64 {
	values := make(map[string]int64, len(c.endpoints))
	for _, endpoint := range c.endpoints {
		n, err := fn(ctx, endpoint)
		if err != nil {
			continue
		}
		values[endpoint] = n
	}
	return values
}
