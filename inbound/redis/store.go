package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/marcelsud/inbound-processor/inbound"
	"github.com/redis/go-redis/v9"
)

// Store is the Redis implementation of inbound.Store
type Store struct {
	client *redis.Client
}

// NewStore creates a store on an existing client
func NewStore(client *redis.Client) *Store {
	return &Store{client: client}
}

// Create writes the record hash and indexes it by creation time
func (s *Store) Create(ctx context.Context, rec inbound.Record) error {
	fields, err := encodeRecord(rec)
	if err != nil {
		return err
	}

	score := float64(rec.CreatedAt.UnixMilli())
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, recordKey(rec.ID), fields)
		pipe.ZAdd(ctx, indexKey, redis.Z{Score: score, Member: rec.ID})
		pipe.ZAdd(ctx, endpointIndexKey(rec.Name), redis.Z{Score: score, Member: rec.ID})
		return nil
	})
	if err != nil {
		return fmt.Errorf("storing record %s: %w", rec.ID, err)
	}
	return nil
}

// Get retrieves a record by id
func (s *Store) Get(ctx context.Context, id string) (inbound.Record, error) {
	data, err := s.client.HGetAll(ctx, recordKey(id)).Result()
	if err != nil {
		return inbound.Record{}, fmt.Errorf("getting record: %w", err)
	}
	if len(data) == 0 {
		return inbound.Record{}, fmt.Errorf("%w: %s", inbound.ErrRecordNotFound, id)
	}
	return decodeRecord(data)
}

// SetException overwrites the exception field, nil clears it
func (s *Store) SetException(ctx context.Context, id string, exc *inbound.Exception, updatedAt time.Time) error {
	key := recordKey(id)

	exists, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("checking record: %w", err)
	}
	if exists == 0 {
		return fmt.Errorf("%w: %s", inbound.ErrRecordNotFound, id)
	}

	encoded, err := encodeException(exc)
	if err != nil {
		return err
	}

	err = s.client.HSet(ctx, key, map[string]interface{}{
		"exception":  encoded,
		"updated_at": formatTime(updatedAt),
	}).Err()
	if err != nil {
		return fmt.Errorf("updating exception: %w", err)
	}
	return nil
}

// CreatedBefore returns the ids of records created strictly before t
func (s *Store) CreatedBefore(ctx context.Context, t time.Time) ([]string, error) {
	ids, err := s.client.ZRangeByScore(ctx, indexKey, &redis.ZRangeBy{
		Min: "-inf",
		Max: "(" + strconv.FormatInt(t.UnixMilli(), 10),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("selecting records: %w", err)
	}
	return ids, nil
}

// Delete removes the records and their index entries
func (s *Store) Delete(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	names := make([]*redis.StringCmd, len(ids))
	_, err := s.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, id := range ids {
			names[i] = pipe.HGet(ctx, recordKey(id), "name")
		}
		return nil
	})
	if err != nil && err != redis.Nil {
		return 0, fmt.Errorf("reading records: %w", err)
	}

	dels := make([]*redis.IntCmd, len(ids))
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, id := range ids {
			dels[i] = pipe.Del(ctx, recordKey(id))
			pipe.ZRem(ctx, indexKey, id)
			if name := names[i].Val(); name != "" {
				pipe.ZRem(ctx, endpointIndexKey(name), id)
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("deleting records: %w", err)
	}

	var deleted int64
	for _, cmd := range dels {
		deleted += cmd.Val()
	}
	return deleted, nil
}

// Count returns how many records an endpoint currently holds
func (s *Store) Count(ctx context.Context, endpoint string) (int64, error) {
	n, err := s.client.ZCard(ctx, endpointIndexKey(endpoint)).Result()
	if err != nil {
		return 0, fmt.Errorf("counting records: %w", err)
	}
	return n, nil
}

func encodeRecord(rec inbound.Record) (map[string]interface{}, error) {
	headers, err := json.Marshal(rec.Headers)
	if err != nil {
		return nil, fmt.Errorf("marshaling headers: %w", err)
	}
	payload, err := json.Marshal(rec.Payload)
	if err != nil {
		return nil, fmt.Errorf("marshaling payload: %w", err)
	}
	exception, err := encodeException(rec.Exception)
	if err != nil {
		return nil, err
	}

	return map[string]interface{}{
		"id":         rec.ID,
		"name":       rec.Name,
		"url":        rec.URL,
		"headers":    string(headers),
		"payload":    string(payload),
		"exception":  exception,
		"created_at": formatTime(rec.CreatedAt),
		"updated_at": formatTime(rec.UpdatedAt),
	}, nil
}

func decodeRecord(data map[string]string) (inbound.Record, error) {
	rec := inbound.Record{
		ID:   data["id"],
		Name: data["name"],
		URL:  data["url"],
	}

	if raw := data["headers"]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &rec.Headers); err != nil {
			return inbound.Record{}, fmt.Errorf("unmarshaling headers: %w", err)
		}
	}
	if raw := data["payload"]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &rec.Payload); err != nil {
			return inbound.Record{}, fmt.Errorf("unmarshaling payload: %w", err)
		}
	}
	if raw := data["exception"]; raw != "" {
		rec.Exception = &inbound.Exception{}
		if err := json.Unmarshal([]byte(raw), rec.Exception); err != nil {
			return inbound.Record{}, fmt.Errorf("unmarshaling exception: %w", err)
		}
	}

	var err error
	if rec.CreatedAt, err = parseTime(data["created_at"]); err != nil {
		return inbound.Record{}, err
	}
	if rec.UpdatedAt, err = parseTime(data["updated_at"]); err != nil {
		return inbound.Record{}, err
	}
	return rec, nil
}

// encodeException returns "" for nil, so a cleared exception is an empty field
func encodeException(exc *inbound.Exception) (string, error) {
	if exc == nil {
		return "", nil
	}
	data, err := json.Marshal(exc)
	if err != nil {
		return "", fmt.Errorf("marshaling exception: %w", err)
	}
	return string(data), nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing timestamp %q: %w", s, err)
	}
	return t, nil
}
