package inbound_test

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/marcelsud/inbound-processor/inbound"
	"github.com/marcelsud/inbound-processor/inbound/mocks"
	"github.com/marcelsud/inbound-processor/inbound/signature"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// recorder collects every event it is notified of
type recorder struct {
	mu     sync.Mutex
	events []inbound.Event
}

func (r *recorder) Notify(_ context.Context, ev inbound.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
}

func (r *recorder) kinds() []inbound.EventKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	kinds := make([]inbound.EventKind, 0, len(r.events))
	for _, ev := range r.events {
		kinds = append(kinds, ev.Kind)
	}
	return kinds
}

func signedCall(secret, body string) inbound.Call {
	return inbound.Call{
		Method: http.MethodPost,
		URL:    "https://example.test/webhooks/default",
		Header: http.Header{
			"Signature":    {signature.ComputeHMAC([]byte(secret), []byte(body))},
			"Content-Type": {"application/json"},
			"X-Request-Id": {"req-1"},
		},
		Body:   []byte(body),
		Fields: map[string]any{"a": float64(1)},
	}
}

func TestProcessor_Process(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	t.Run("success - stores, dispatches and acknowledges", func(t *testing.T) {
		c, store := components(t)
		s := defaultSettings()
		s.StoreHeaders = inbound.StoreHeaderNames("x-request-id")
		cfg, err := inbound.NewEndpointConfig(s, c)
		require.NoError(t, err)
		queue := mocks.NewQueue(t)
		events := &recorder{}

		var stored inbound.Record
		store.On("Create", ctx, inbound.MatchRecord(func(r inbound.Record) bool {
			stored = r
			return r.Name == "default" && r.Payload["a"] == float64(1)
		})).Return(nil).Once()
		store.On("SetException", ctx, mock.AnythingOfType("string"), (*inbound.Exception)(nil), now).Return(nil).Once()
		queue.On("Enqueue", ctx, inbound.MatchJob(func(j inbound.Job) bool {
			return j.Type == "process-record" && j.RecordID == stored.ID && j.Endpoint == "default"
		})).Return(nil).Once()

		p := inbound.NewProcessor(inbound.NewDispatcher(queue), inbound.NewNotifier(events), inbound.WithClock(clock))
		reply, err := p.Process(ctx, signedCall("s3cr3t", `{"a":1}`), cfg)

		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, reply.StatusCode)
		assert.Equal(t, "application/json", reply.Header.Get("Content-Type"))
		assert.JSONEq(t, `{"status":"ok"}`, string(reply.Body))

		assert.NotEmpty(t, stored.ID)
		assert.Equal(t, "https://example.test/webhooks/default", stored.URL)
		assert.Equal(t, map[string][]string{"X-Request-Id": {"req-1"}}, stored.Headers)
		assert.Nil(t, stored.Exception)
		assert.Equal(t, now, stored.CreatedAt)
		assert.Equal(t, now, stored.UpdatedAt)
		assert.Equal(t, []inbound.EventKind{inbound.EventStored, inbound.EventDispatched}, events.kinds())
	})

	t.Run("error - missing signature header", func(t *testing.T) {
		c, store := components(t)
		cfg, err := inbound.NewEndpointConfig(defaultSettings(), c)
		require.NoError(t, err)
		queue := mocks.NewQueue(t)
		events := &recorder{}

		call := signedCall("s3cr3t", `{"a":1}`)
		call.Header.Del("Signature")

		p := inbound.NewProcessor(inbound.NewDispatcher(queue), inbound.NewNotifier(events))
		_, err = p.Process(ctx, call, cfg)

		assert.ErrorIs(t, err, inbound.ErrSignatureInvalid)
		assert.Equal(t, "the signature is invalid", err.Error())
		assert.Equal(t, []inbound.EventKind{inbound.EventInvalidSignature}, events.kinds())
		assert.Equal(t, "default", events.events[0].Endpoint)
		require.NotNil(t, events.events[0].Call)
		store.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		queue.AssertNotCalled(t, "Enqueue", mock.Anything, mock.Anything)
	})

	t.Run("error - body altered after signing", func(t *testing.T) {
		c, store := components(t)
		cfg, err := inbound.NewEndpointConfig(defaultSettings(), c)
		require.NoError(t, err)
		events := &recorder{}

		call := signedCall("s3cr3t", `{"a":1}`)
		call.Body = []byte(`{"a":2}`)

		p := inbound.NewProcessor(inbound.NewDispatcher(mocks.NewQueue(t)), inbound.NewNotifier(events))
		_, err = p.Process(ctx, call, cfg)

		assert.ErrorIs(t, err, inbound.ErrSignatureInvalid)
		assert.Len(t, events.kinds(), 1)
		store.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("error - signing secret not configured", func(t *testing.T) {
		c, _ := components(t)
		s := defaultSettings()
		s.SigningSecret = ""
		cfg, err := inbound.NewEndpointConfig(s, c)
		require.NoError(t, err)
		events := &recorder{}

		p := inbound.NewProcessor(inbound.NewDispatcher(mocks.NewQueue(t)), inbound.NewNotifier(events))
		_, err = p.Process(ctx, signedCall("s3cr3t", `{"a":1}`), cfg)

		assert.ErrorIs(t, err, inbound.ErrSignatureInvalid)
		assert.ErrorIs(t, err, inbound.ErrMissingSigningSecret)
		assert.True(t, inbound.IsConfigurationError(err))
		assert.Equal(t, []inbound.EventKind{inbound.EventInvalidSignature}, events.kinds())
	})

	t.Run("skipped - profile declines", func(t *testing.T) {
		f := newFixture(t, inbound.HeaderPolicy{})
		queue := mocks.NewQueue(t)
		events := &recorder{}
		call := signedCall("s3cr3t", `{"a":1}`)

		f.profile.On("ShouldProcess", ctx, mock.Anything).Return(false).Once()

		p := inbound.NewProcessor(inbound.NewDispatcher(queue), inbound.NewNotifier(events))
		reply, err := p.Process(ctx, call, f.cfg)

		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, reply.StatusCode)
		assert.Equal(t, []inbound.EventKind{inbound.EventSkipped}, events.kinds())
		f.store.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		f.jobs.AssertNotCalled(t, "NewJob", mock.Anything)
		queue.AssertNotCalled(t, "Enqueue", mock.Anything, mock.Anything)
	})

	t.Run("custom response strategy", func(t *testing.T) {
		c, store := components(t)
		response := mocks.NewResponseStrategy(t)
		c.MustRegister("accepted", response)
		s := defaultSettings()
		s.InboundResponse = strPtr("accepted")
		cfg, err := inbound.NewEndpointConfig(s, c)
		require.NoError(t, err)
		queue := mocks.NewQueue(t)

		store.On("Create", ctx, mock.Anything).Return(nil).Once()
		store.On("SetException", ctx, mock.Anything, (*inbound.Exception)(nil), mock.Anything).Return(nil).Once()
		queue.On("Enqueue", ctx, mock.Anything).Return(nil).Once()
		response.On("RespondTo", ctx, mock.Anything, cfg).Return(inbound.Reply{StatusCode: http.StatusAccepted}, nil).Once()

		reply, err := inbound.NewProcessor(inbound.NewDispatcher(queue), nil).Process(ctx, signedCall("s3cr3t", `{"a":1}`), cfg)

		require.NoError(t, err)
		assert.Equal(t, http.StatusAccepted, reply.StatusCode)
	})

	t.Run("error - dispatch failure surfaces after being recorded", func(t *testing.T) {
		c, store := components(t)
		cfg, err := inbound.NewEndpointConfig(defaultSettings(), c)
		require.NoError(t, err)
		queue := mocks.NewQueue(t)
		events := &recorder{}

		store.On("Create", ctx, mock.Anything).Return(nil).Once()
		store.On("SetException", ctx, mock.Anything, (*inbound.Exception)(nil), mock.Anything).Return(nil).Once()
		queue.On("Enqueue", ctx, mock.Anything).Return(errors.New("broker down")).Once()
		store.On("SetException", ctx, mock.Anything, withMessage("broker down"), mock.Anything).Return(nil).Once()

		p := inbound.NewProcessor(inbound.NewDispatcher(queue), inbound.NewNotifier(events))
		reply, err := p.Process(ctx, signedCall("s3cr3t", `{"a":1}`), cfg)

		var procErr *inbound.ProcessingError
		require.True(t, errors.As(err, &procErr))
		assert.Zero(t, reply.StatusCode)
		assert.Equal(t, []inbound.EventKind{inbound.EventStored, inbound.EventDispatchFailed}, events.kinds())
	})

	t.Run("error - store failure", func(t *testing.T) {
		c, store := components(t)
		cfg, err := inbound.NewEndpointConfig(defaultSettings(), c)
		require.NoError(t, err)
		queue := mocks.NewQueue(t)

		store.On("Create", ctx, mock.Anything).Return(errors.New("disk full")).Once()

		_, err = inbound.NewProcessor(inbound.NewDispatcher(queue), nil).Process(ctx, signedCall("s3cr3t", `{"a":1}`), cfg)

		assert.ErrorContains(t, err, "storing inbound data: disk full")
		queue.AssertNotCalled(t, "Enqueue", mock.Anything, mock.Anything)
	})
}

func TestNotifier(t *testing.T) {
	ctx := context.Background()

	t.Run("fans out in subscription order", func(t *testing.T) {
		var order []string
		n := inbound.NewNotifier(inbound.ListenerFunc(func(context.Context, inbound.Event) {
			order = append(order, "first")
		}))
		n.Subscribe(inbound.ListenerFunc(func(context.Context, inbound.Event) {
			order = append(order, "second")
		}))

		n.Notify(ctx, inbound.Event{Kind: inbound.EventStored})

		assert.Equal(t, []string{"first", "second"}, order)
	})

	t.Run("stamps the occurrence time", func(t *testing.T) {
		events := &recorder{}
		inbound.NewNotifier(events).Notify(ctx, inbound.Event{Kind: inbound.EventStored})

		require.Len(t, events.events, 1)
		assert.False(t, events.events[0].OccurredAt.IsZero())
	})

	t.Run("invalid message", func(t *testing.T) {
		listener := mocks.NewListener(t)
		listener.On("Notify", ctx, mock.MatchedBy(func(ev inbound.Event) bool {
			return ev.Kind == inbound.EventInvalidMessage &&
				ev.Endpoint == "default" &&
				ev.Reason == "malformed json" &&
				string(ev.RawPayload) == "{oops"
		})).Once()

		inbound.NewNotifier(listener).InvalidMessage(ctx, "default", "malformed json", []byte("{oops"))
	})

	t.Run("nil notifier is a no-op", func(t *testing.T) {
		var n *inbound.Notifier
		assert.NotPanics(t, func() { n.Notify(ctx, inbound.Event{}) })
	})
}
