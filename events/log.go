package events

import (
	"context"

	"github.com/marcelsud/inbound-processor/inbound"
	"github.com/rs/zerolog"
)

// LogListener writes pipeline events to logger. Rejections are warnings,
// dispatch failures errors, everything else debug.
func LogListener(logger zerolog.Logger) inbound.Listener {
	return inbound.ListenerFunc(func(_ context.Context, ev inbound.Event) {
		var e *zerolog.Event
		switch ev.Kind {
		case inbound.EventInvalidSignature, inbound.EventInvalidMessage:
			e = logger.Warn()
		case inbound.EventDispatchFailed:
			e = logger.Error()
		default:
			e = logger.Debug()
		}

		e = e.Str("event", string(ev.Kind)).Str("endpoint", ev.Endpoint)
		if ev.RecordID != "" {
			e = e.Str("record_id", ev.RecordID)
		}
		if ev.Reason != "" {
			e = e.Str("reason", ev.Reason)
		}
		if ev.Err != nil {
			e = e.Err(ev.Err)
		}
		e.Msg("inbound event")
	})
}
