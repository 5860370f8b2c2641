package events

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	cloudevents "github.com/cloudevents/sdk-go/v2"
	cehttp "github.com/cloudevents/sdk-go/v2/protocol/http"
	"github.com/google/uuid"
	"github.com/marcelsud/inbound-processor/inbound"
	"github.com/rs/zerolog"
)

// TypePrefix prefixes the CloudEvent type of every pipeline event, e.g. "inbound.stored"
const TypePrefix = "inbound."

// SinkConfig configures an HTTP CloudEvents sink.
type SinkConfig struct {
	// TargetURL receives one POST per event, binary content mode
	TargetURL string

	// Client is the HTTP client to use (default: http.DefaultClient with a 10s timeout)
	Client *http.Client

	// Source is the CloudEvents source attribute (default: "inbound-processor")
	Source string

	// Buffer is how many events may wait to be sent (default: 256).
	// Events arriving on a full buffer are dropped.
	Buffer int

	Logger zerolog.Logger
}

func (c SinkConfig) parse() SinkConfig {
	if c.Client == nil {
		c.Client = &http.Client{Timeout: 10 * time.Second}
	}
	if c.Source == "" {
		c.Source = "inbound-processor"
	}
	if c.Buffer <= 0 {
		c.Buffer = 256
	}
	return c
}

// Payload is the data of a pipeline CloudEvent
type Payload struct {
	Endpoint   string `json:"endpoint"`
	RecordID   string `json:"record_id,omitempty"`
	Method     string `json:"method,omitempty"`
	URL        string `json:"url,omitempty"`
	Reason     string `json:"reason,omitempty"`
	Error      string `json:"error,omitempty"`
	RawPayload []byte `json:"raw_payload,omitempty"`
}

/* Sink is an inbound.Listener forwarding pipeline events as CloudEvents
 * Notify only enqueues; a single goroutine started by Start does the HTTP work
 */
type Sink struct {
	cfg     SinkConfig
	events  chan inbound.Event
	dropped atomic.Int64

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewSink creates a sink. Call Start before events flow and Close on shutdown.
func NewSink(cfg SinkConfig) *Sink {
	cfg = cfg.parse()
	return &Sink{
		cfg:    cfg,
		events: make(chan inbound.Event, cfg.Buffer),
	}
}

// Start runs the sender until Close is called.
// Sends outlive the cancellation of ctx so the events drained by Close still go out.
func (s *Sink) Start(ctx context.Context) {
	ctx = context.WithoutCancel(ctx)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for ev := range s.events {
			if err := s.Send(ctx, ev); err != nil {
				s.cfg.Logger.Warn().Err(err).Str("endpoint", ev.Endpoint).Str("kind", string(ev.Kind)).Msg("cloudevent not delivered")
			}
		}
	}()
}

// Notify enqueues ev without blocking. Events arriving after Close are dropped.
func (s *Sink) Notify(_ context.Context, ev inbound.Event) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		s.dropped.Add(1)
		s.cfg.Logger.Warn().Str("endpoint", ev.Endpoint).Str("kind", string(ev.Kind)).Msg("cloudevent sink closed, event dropped")
		return
	}

	select {
	case s.events <- ev:
	default:
		s.dropped.Add(1)
		s.cfg.Logger.Warn().Str("endpoint", ev.Endpoint).Str("kind", string(ev.Kind)).Msg("cloudevent sink buffer full, event dropped")
	}
}

// Dropped returns how many events were discarded on a full buffer or after Close
func (s *Sink) Dropped() int64 {
	return s.dropped.Load()
}

// Close stops accepting events and waits for the queued ones to be sent
func (s *Sink) Close() {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		close(s.events)
	}
	s.mu.Unlock()
	s.wg.Wait()
}

// Send posts one event synchronously
func (s *Sink) Send(ctx context.Context, ev inbound.Event) error {
	event, err := ToCloudEvent(ev, s.cfg.Source)
	if err != nil {
		return err
	}

	req, err := cehttp.NewHTTPRequestFromEvent(ctx, s.cfg.TargetURL, event)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}

	resp, err := s.cfg.Client.Do(req)
	if err != nil {
		return fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
	}
	return nil
}

// ToCloudEvent converts a pipeline event
func ToCloudEvent(ev inbound.Event, source string) (cloudevents.Event, error) {
	data := Payload{
		Endpoint:   ev.Endpoint,
		RecordID:   ev.RecordID,
		Reason:     ev.Reason,
		RawPayload: ev.RawPayload,
	}
	if ev.Call != nil {
		data.Method = ev.Call.Method
		data.URL = ev.Call.URL
	}
	if ev.Err != nil {
		data.Error = ev.Err.Error()
	}

	occurred := ev.OccurredAt
	if occurred.IsZero() {
		occurred = time.Now()
	}

	event := cloudevents.NewEvent()
	event.SetID(uuid.NewString())
	event.SetSource(source)
	event.SetType(TypePrefix + string(ev.Kind))
	event.SetTime(occurred)
	if ev.Endpoint != "" {
		event.SetSubject(ev.Endpoint)
	}
	if err := event.SetData(cloudevents.ApplicationJSON, data); err != nil {
		return cloudevents.Event{}, fmt.Errorf("encoding event data: %w", err)
	}

	if err := event.Validate(); err != nil {
		return cloudevents.Event{}, fmt.Errorf("validating event: %w", err)
	}
	return event, nil
}
