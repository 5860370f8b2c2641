package profile

import (
	"context"
	"fmt"

	"github.com/marcelsud/inbound-processor/inbound"
)

// StandardPayload keeps only calls whose body is a valid Standard Webhooks envelope
type StandardPayload struct{}

func (StandardPayload) ShouldProcess(_ context.Context, call inbound.Call) bool {
	_, err := ParseEnvelope(call.Body)
	return err == nil
}

/* EventTypes keeps envelopes whose type matches one of its filters
 * A filter is an exact type or a prefix ending in ".*"
 */
type EventTypes struct {
	filters []string
}

// NewEventTypes validates the filters up front so a typo fails at boot
func NewEventTypes(filters ...string) (EventTypes, error) {
	for _, f := range filters {
		if err := ValidateEventType(f); err != nil {
			return EventTypes{}, fmt.Errorf("invalid event type filter: %w", err)
		}
	}
	return EventTypes{filters: append([]string(nil), filters...)}, nil
}

func (p EventTypes) ShouldProcess(_ context.Context, call inbound.Call) bool {
	e, err := ParseEnvelope(call.Body)
	if err != nil {
		return false
	}
	return e.MatchesEventType(p.filters)
}
