package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/marcelsud/inbound-processor/inbound"
	"github.com/redis/go-redis/v9"
)

// Delivery is a job read from a stream, pending until acknowledged
type Delivery struct {
	MessageID string
	Job       inbound.Job
}

// Queue is the Redis Streams implementation of inbound.Queue
type Queue struct {
	client *redis.Client
}

// NewQueue creates a queue on an existing client
func NewQueue(client *redis.Client) *Queue {
	return &Queue{client: client}
}

// Enqueue appends the job to the stream of its endpoint. It returns once
// Redis has accepted the entry; the job runs later on a worker.
func (q *Queue) Enqueue(ctx context.Context, job inbound.Job) error {
	stream := streamKey(job.Endpoint)
	if err := ensureGroup(ctx, q.client, stream); err != nil {
		return err
	}

	err := q.client.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		Values: map[string]interface{}{
			"job_id":     job.ID,
			"type":       job.Type,
			"record_id":  job.RecordID,
			"endpoint":   job.Endpoint,
			"created_at": job.CreatedAt.UnixMilli(),
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("adding to stream: %w", err)
	}
	return nil
}

// Consume reads up to count new jobs of an endpoint for consumer.
// block <= 0 returns immediately when the stream is empty.
func (q *Queue) Consume(ctx context.Context, endpoint, consumer string, count int64, block time.Duration) ([]Delivery, error) {
	stream := streamKey(endpoint)
	if err := ensureGroup(ctx, q.client, stream); err != nil {
		return nil, err
	}

	if block <= 0 {
		block = -1
	}

	streams, err := q.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    consumerGroup,
		Consumer: consumer,
		Streams:  []string{stream, ">"},
		Count:    count,
		Block:    block,
	}).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading from stream: %w", err)
	}

	var deliveries []Delivery
	for _, s := range streams {
		for _, msg := range s.Messages {
			deliveries = append(deliveries, Delivery{MessageID: msg.ID, Job: decodeJob(msg.Values)})
		}
	}
	return deliveries, nil
}

// Acknowledge removes a delivery from the pending list of the group
func (q *Queue) Acknowledge(ctx context.Context, endpoint, messageID string) error {
	if err := q.client.XAck(ctx, streamKey(endpoint), consumerGroup, messageID).Err(); err != nil {
		return fmt.Errorf("acknowledging message: %w", err)
	}
	return nil
}

// Length returns how many entries the stream of an endpoint holds
func (q *Queue) Length(ctx context.Context, endpoint string) (int64, error) {
	n, err := q.client.XLen(ctx, streamKey(endpoint)).Result()
	if err != nil {
		return 0, fmt.Errorf("reading stream length: %w", err)
	}
	return n, nil
}

// Pending returns how many deliveries of an endpoint are not acknowledged yet.
// A stream or group that does not exist yet has none; nothing is created.
func (q *Queue) Pending(ctx context.Context, endpoint string) (int64, error) {
	stream := streamKey(endpoint)
	exists, err := q.client.Exists(ctx, stream).Result()
	if err != nil {
		return 0, fmt.Errorf("checking stream: %w", err)
	}
	if exists == 0 {
		return 0, nil
	}

	pending, err := q.client.XPending(ctx, stream, consumerGroup).Result()
	if isNoGroup(err) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("reading pending entries: %w", err)
	}
	return pending.Count, nil
}

func decodeJob(values map[string]interface{}) inbound.Job {
	str := func(k string) string {
		s, _ := values[k].(string)
		return s
	}

	var createdAt time.Time
	var ms int64
	if _, err := fmt.Sscanf(str("created_at"), "%d", &ms); err == nil {
		createdAt = time.UnixMilli(ms)
	}

	return inbound.Job{
		ID:        str("job_id"),
		Type:      str("type"),
		RecordID:  str("record_id"),
		Endpoint:  str("endpoint"),
		CreatedAt: createdAt,
	}
}
