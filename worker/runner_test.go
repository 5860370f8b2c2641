package worker_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/marcelsud/inbound-processor/inbound"
	"github.com/marcelsud/inbound-processor/inbound/redis"
	"github.com/marcelsud/inbound-processor/inbound/signature"
	"github.com/marcelsud/inbound-processor/worker"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type env struct {
	store    *redis.Store
	queue    *redis.Queue
	registry *inbound.Registry
}

func setup(t *testing.T) env {
	t.Helper()

	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	store := redis.NewStore(client)
	c := inbound.NewComponents()
	c.MustRegister("hmac", signature.HMAC{})
	c.MustRegister("process-everything", inbound.ProcessEverything{})
	c.MustRegister("redis", store)
	c.MustRegister("process-record", inbound.JobType("process-record"))

	cfg, err := inbound.NewEndpointConfig(inbound.Settings{
		Name:                  "default",
		SigningSecret:         "s3cr3t",
		SignatureHeaderName:   "Signature",
		SignatureValidator:    "hmac",
		InboundProfile:        "process-everything",
		InboundDataModel:      "redis",
		ProcessInboundDataJob: "process-record",
	}, c)
	require.NoError(t, err)

	registry := inbound.NewRegistry()
	require.NoError(t, registry.Register(cfg))

	return env{store: store, queue: redis.NewQueue(client), registry: registry.Freeze()}
}

// seed stores a record and queues a job of jobType for it
func (e env) seed(t *testing.T, id, jobType string, exc *inbound.Exception) {
	t.Helper()

	ctx := context.Background()
	now := time.Now().UTC()
	require.NoError(t, e.store.Create(ctx, inbound.Record{
		ID:        id,
		Name:      "default",
		URL:       "https://example.test/webhooks/default",
		Headers:   map[string][]string{},
		Payload:   map[string]any{"a": "1"},
		Exception: exc,
		CreatedAt: now,
		UpdatedAt: now,
	}))
	require.NoError(t, e.queue.Enqueue(ctx, inbound.Job{ID: "job-" + id, Type: jobType, RecordID: id, Endpoint: "default", CreatedAt: now}))
}

func (e env) runner(t *testing.T, handlers worker.Handlers, cfg worker.Config) *worker.Runner {
	t.Helper()

	if cfg.WorkerID == "" {
		cfg.WorkerID = "worker-1"
	}
	cfg.Endpoints = []string{"default"}
	r, err := worker.NewRunner(cfg, e.queue, e.registry, handlers, zerolog.Nop())
	require.NoError(t, err)
	return r
}

func (e env) pending(t *testing.T) int64 {
	t.Helper()
	n, err := e.queue.Pending(context.Background(), "default")
	require.NoError(t, err)
	return n
}

func TestNewRunner(t *testing.T) {
	e := setup(t)

	_, err := worker.NewRunner(worker.Config{Endpoints: []string{"default"}}, e.queue, e.registry, worker.Handlers{}, zerolog.Nop())
	assert.EqualError(t, err, "worker id cannot be empty")

	_, err = worker.NewRunner(worker.Config{WorkerID: "w"}, e.queue, e.registry, worker.Handlers{}, zerolog.Nop())
	assert.EqualError(t, err, "no endpoints to consume")

	_, err = worker.NewRunner(worker.Config{WorkerID: "w", Endpoints: []string{"nope"}}, e.queue, e.registry, worker.Handlers{}, zerolog.Nop())
	assert.ErrorIs(t, err, inbound.ErrEndpointNotFound)
}

func TestRunner_Poll(t *testing.T) {
	ctx := context.Background()

	t.Run("success clears a stale exception and acks", func(t *testing.T) {
		e := setup(t)
		e.seed(t, "r1", "process-record", &inbound.Exception{Message: "old"})

		var seen []string
		handlers := worker.Handlers{}
		require.NoError(t, handlers.Register("process-record", worker.HandlerFunc(func(_ context.Context, rec inbound.Record, job inbound.Job) error {
			seen = append(seen, rec.ID+"/"+job.ID)
			return nil
		})))

		n, err := e.runner(t, handlers, worker.Config{}).Poll(ctx, "default")
		require.NoError(t, err)
		assert.Equal(t, 1, n)
		assert.Equal(t, []string{"r1/job-r1"}, seen)

		rec, err := e.store.Get(ctx, "r1")
		require.NoError(t, err)
		assert.Nil(t, rec.Exception)
		assert.Zero(t, e.pending(t))
	})

	t.Run("handler failure is saved on the record", func(t *testing.T) {
		e := setup(t)
		e.seed(t, "r1", "process-record", nil)

		handlers := worker.Handlers{"process-record": worker.HandlerFunc(func(context.Context, inbound.Record, inbound.Job) error {
			return errors.New("boom")
		})}

		n, err := e.runner(t, handlers, worker.Config{}).Poll(ctx, "default")
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		rec, err := e.store.Get(ctx, "r1")
		require.NoError(t, err)
		require.NotNil(t, rec.Exception)
		assert.Equal(t, "boom", rec.Exception.Message)
		assert.Zero(t, e.pending(t))
	})

	t.Run("unknown job type is saved on the record", func(t *testing.T) {
		e := setup(t)
		e.seed(t, "r1", "other", nil)

		_, err := e.runner(t, worker.Handlers{}, worker.Config{}).Poll(ctx, "default")
		require.NoError(t, err)

		rec, err := e.store.Get(ctx, "r1")
		require.NoError(t, err)
		require.NotNil(t, rec.Exception)
		assert.Equal(t, "no handler registered for job type other", rec.Exception.Message)
	})

	t.Run("job of a pruned record is dropped", func(t *testing.T) {
		e := setup(t)
		require.NoError(t, e.queue.Enqueue(ctx, inbound.Job{ID: "j1", Type: "process-record", RecordID: "gone", Endpoint: "default"}))

		called := false
		handlers := worker.Handlers{"process-record": worker.HandlerFunc(func(context.Context, inbound.Record, inbound.Job) error {
			called = true
			return nil
		})}

		n, err := e.runner(t, handlers, worker.Config{}).Poll(ctx, "default")
		require.NoError(t, err)
		assert.Equal(t, 1, n)
		assert.False(t, called)
		assert.Zero(t, e.pending(t))
	})

	t.Run("empty stream", func(t *testing.T) {
		e := setup(t)
		n, err := e.runner(t, worker.Handlers{}, worker.Config{}).Poll(ctx, "default")
		require.NoError(t, err)
		assert.Zero(t, n)
	})
}

func TestRunner_Run(t *testing.T) {
	e := setup(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var seen []string
	handlers := worker.Handlers{"process-record": worker.HandlerFunc(func(_ context.Context, rec inbound.Record, _ inbound.Job) error {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, rec.ID)
		return nil
	})}
	r := e.runner(t, handlers, worker.Config{PollInterval: 10 * time.Millisecond})

	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	e.seed(t, "r1", "process-record", nil)
	e.seed(t, "r2", "process-record", nil)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) == 2
	}, 2*time.Second, 10*time.Millisecond)

	workers, err := e.queue.ActiveWorkers(context.Background(), "default")
	require.NoError(t, err)
	require.Len(t, workers, 1)
	assert.Equal(t, "worker-1", workers[0].WorkerID)
	assert.Equal(t, worker.StatusProcessing, workers[0].Status)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("runner did not stop")
	}
}

func TestLogRecord(t *testing.T) {
	rec := inbound.Record{
		ID:   "r1",
		Name: "default",
		Payload: inbound.BuildPayload(inbound.Call{
			Files: map[string][]inbound.UploadedFile{
				"receipt": {{OriginalName: "r.txt", MimeType: "text/plain", Size: 5, Content: []byte("hello")}},
			},
		}),
	}

	err := worker.LogRecord(zerolog.Nop()).Handle(context.Background(), rec, inbound.Job{ID: "j1"})
	assert.NoError(t, err)
}
