package profile

import (
	"context"
	"testing"

	"github.com/marcelsud/inbound-processor/inbound"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envelopeBody(eventType string) []byte {
	return []byte(`{"type":"` + eventType + `","timestamp":"2024-01-01T12:00:00Z","data":{"id":1}}`)
}

func TestParseEnvelope(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		e, err := ParseEnvelope(envelopeBody("user.created"))

		require.NoError(t, err)
		assert.Equal(t, "user.created", e.Type)
		assert.Equal(t, 2024, e.Timestamp.Year())
		assert.JSONEq(t, `{"id":1}`, string(e.Data))
	})

	t.Run("success - fractional timestamp", func(t *testing.T) {
		e, err := ParseEnvelope([]byte(`{"type":"a.b","timestamp":"2024-01-01T12:00:00.123456789Z","data":{}}`))

		require.NoError(t, err)
		assert.Equal(t, 123456789, e.Timestamp.Nanosecond())
	})

	tests := []struct {
		name string
		body string
		want string
	}{
		{"invalid json", `{invalid}`, "unmarshaling envelope"},
		{"missing type", `{"timestamp":"2024-01-01T12:00:00Z","data":{}}`, "type is required"},
		{"bad type", `{"type":"user-created","timestamp":"2024-01-01T12:00:00Z","data":{}}`, "hierarchical"},
		{"missing timestamp", `{"type":"a.b","data":{}}`, "timestamp is required"},
		{"bad timestamp", `{"type":"a.b","timestamp":"yesterday","data":{}}`, "parsing timestamp"},
		{"missing data", `{"type":"a.b","timestamp":"2024-01-01T12:00:00Z"}`, "data is required"},
		{"null data", `{"type":"a.b","timestamp":"2024-01-01T12:00:00Z","data":null}`, "data is required"},
	}
	for _, tt := range tests {
		t.Run("error - "+tt.name, func(t *testing.T) {
			_, err := ParseEnvelope([]byte(tt.body))
			assert.ErrorContains(t, err, tt.want)
		})
	}
}

func TestEnvelope_MatchesEventType(t *testing.T) {
	e := Envelope{Type: "user.created"}

	assert.True(t, e.MatchesEventType(nil))
	assert.True(t, e.MatchesEventType([]string{"user.created"}))
	assert.True(t, e.MatchesEventType([]string{"invoice.paid", "user.*"}))
	assert.False(t, e.MatchesEventType([]string{"user"}))
	assert.False(t, e.MatchesEventType([]string{"use.*"}))
	assert.False(t, Envelope{Type: "user"}.MatchesEventType([]string{"user.*"}))
}

func TestValidateEventType(t *testing.T) {
	assert.NoError(t, ValidateEventType("user.created"))
	assert.NoError(t, ValidateEventType("user.*"))
	assert.Error(t, ValidateEventType(""))
	assert.Error(t, ValidateEventType(".*"))
	assert.Error(t, ValidateEventType("user-created"))
}

func TestStandardPayload(t *testing.T) {
	ctx := context.Background()

	assert.True(t, StandardPayload{}.ShouldProcess(ctx, inbound.Call{Body: envelopeBody("a.b")}))
	assert.False(t, StandardPayload{}.ShouldProcess(ctx, inbound.Call{Body: []byte(`{"a":1}`)}))
	assert.False(t, StandardPayload{}.ShouldProcess(ctx, inbound.Call{}))
}

func TestEventTypes(t *testing.T) {
	ctx := context.Background()

	p, err := NewEventTypes("invoice.*", "user.deleted")
	require.NoError(t, err)

	assert.True(t, p.ShouldProcess(ctx, inbound.Call{Body: envelopeBody("invoice.paid")}))
	assert.True(t, p.ShouldProcess(ctx, inbound.Call{Body: envelopeBody("user.deleted")}))
	assert.False(t, p.ShouldProcess(ctx, inbound.Call{Body: envelopeBody("user.created")}))
	assert.False(t, p.ShouldProcess(ctx, inbound.Call{Body: []byte(`not json`)}))

	_, err = NewEventTypes("bad type")
	assert.ErrorContains(t, err, "invalid event type filter")
}
