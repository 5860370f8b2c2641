package profile

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// eventTypePattern validates event types: hierarchical, full-stop delimited, [a-zA-Z0-9_.]
var eventTypePattern = regexp.MustCompile(`^[a-zA-Z0-9_]+(\.[a-zA-Z0-9_]+)*$`)

// wildcardSuffix turns an event type into a prefix filter, "user.*" matches "user.created"
const wildcardSuffix = ".*"

// Envelope is a Standard Webhooks payload: {"type", "timestamp", "data"}
type Envelope struct {
	Type      string          `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// Validate checks the envelope structure
func (e Envelope) Validate() error {
	if e.Type == "" {
		return fmt.Errorf("type is required")
	}
	if !eventTypePattern.MatchString(e.Type) {
		return fmt.Errorf("type must be hierarchical and contain only [a-zA-Z0-9_.]: %s", e.Type)
	}
	if e.Timestamp.IsZero() {
		return fmt.Errorf("timestamp is required")
	}
	if len(e.Data) == 0 || string(e.Data) == "null" {
		return fmt.Errorf("data is required")
	}
	return nil
}

// ParseEnvelope decodes and validates a raw body. Timestamps are RFC 3339, with or without fractions.
func ParseEnvelope(body []byte) (Envelope, error) {
	var raw struct {
		Type      string          `json:"type"`
		Timestamp string          `json:"timestamp"`
		Data      json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return Envelope{}, fmt.Errorf("unmarshaling envelope: %w", err)
	}

	e := Envelope{Type: raw.Type, Data: raw.Data}
	if raw.Timestamp != "" {
		ts, err := time.Parse(time.RFC3339Nano, raw.Timestamp)
		if err != nil {
			return Envelope{}, fmt.Errorf("parsing timestamp: %w", err)
		}
		e.Timestamp = ts
	}

	if err := e.Validate(); err != nil {
		return Envelope{}, fmt.Errorf("validating envelope: %w", err)
	}
	return e, nil
}

// MatchesEventType reports whether the envelope type matches one of the filters.
// No filter matches everything.
func (e Envelope) MatchesEventType(filters []string) bool {
	if len(filters) == 0 {
		return true
	}

	for _, f := range filters {
		if e.Type == f {
			return true
		}
		if prefix, ok := strings.CutSuffix(f, wildcardSuffix); ok && prefix != "" {
			if strings.HasPrefix(e.Type, prefix+".") {
				return true
			}
		}
	}
	return false
}

// ValidateEventType checks a filter, allowing a trailing ".*"
func ValidateEventType(filter string) error {
	if filter == "" {
		return fmt.Errorf("event type cannot be empty")
	}

	filter = strings.TrimSuffix(filter, wildcardSuffix)
	if !eventTypePattern.MatchString(filter) {
		return fmt.Errorf("event type must be hierarchical and contain only [a-zA-Z0-9_.]: %s", filter)
	}
	return nil
}
