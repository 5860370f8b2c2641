package app

import (
	"fmt"

	"github.com/marcelsud/inbound-processor/inbound"
	"github.com/marcelsud/inbound-processor/inbound/profile"
	"github.com/marcelsud/inbound-processor/inbound/signature"
)

// Component identifiers usable in the endpoints file
const (
	ValidatorHMAC             = "hmac"
	ValidatorStandardWebhooks = "standard-webhooks"
	ProfileProcessEverything  = "process-everything"
	ProfileStandardPayload    = "standard-payload"
	ResponseJSONAck           = "json-ack"
	StoreRedis                = "redis"
	StorePostgres             = "postgres"
	JobProcessRecord          = "process-record"
)

// NewComponents registers the built-in components, the given stores by id and
// one profile per declared event-type profile.
func NewComponents(stores map[string]inbound.Store, eventTypeProfiles map[string][]string) (*inbound.Components, error) {
	c := inbound.NewComponents()
	c.MustRegister(ValidatorHMAC, signature.HMAC{})
	c.MustRegister(ValidatorStandardWebhooks, signature.StandardWebhooks{})
	c.MustRegister(ProfileProcessEverything, inbound.ProcessEverything{})
	c.MustRegister(ProfileStandardPayload, profile.StandardPayload{})
	c.MustRegister(ResponseJSONAck, inbound.JSONAck{})
	c.MustRegister(JobProcessRecord, inbound.JobType(JobProcessRecord))

	for id, store := range stores {
		if err := c.Register(id, store); err != nil {
			return nil, err
		}
	}

	for id, filters := range eventTypeProfiles {
		if _, taken := c.Lookup(id); taken {
			return nil, fmt.Errorf("event type profile %s: identifier already registered", id)
		}
		p, err := profile.NewEventTypes(filters...)
		if err != nil {
			return nil, fmt.Errorf("event type profile %s: %w", id, err)
		}
		c.MustRegister(id, p)
	}

	return c, nil
}
