package inbound_test

import (
	"testing"

	"github.com/marcelsud/inbound-processor/inbound"
	"github.com/marcelsud/inbound-processor/inbound/mocks"
	"github.com/marcelsud/inbound-processor/inbound/signature"
	"github.com/stretchr/testify/require"
)

// fixture bundles an endpoint config with the mocks behind it
type fixture struct {
	cfg     *inbound.EndpointConfig
	store   *mocks.Store
	profile *mocks.Profile
	jobs    *mocks.JobFactory
}

func components(t *testing.T) (*inbound.Components, *mocks.Store) {
	t.Helper()

	store := mocks.NewStore(t)
	c := inbound.NewComponents()
	c.MustRegister("hmac", signature.HMAC{})
	c.MustRegister("process-everything", inbound.ProcessEverything{})
	c.MustRegister("json-ack", inbound.JSONAck{})
	c.MustRegister("memory", store)
	c.MustRegister("process-record", inbound.JobType("process-record"))
	return c, store
}

func defaultSettings() inbound.Settings {
	return inbound.Settings{
		Name:                  "default",
		SigningSecret:         "s3cr3t",
		SignatureHeaderName:   "Signature",
		SignatureValidator:    "hmac",
		InboundProfile:        "process-everything",
		InboundDataModel:      "memory",
		ProcessInboundDataJob: "process-record",
	}
}

// newFixture builds the "default" endpoint with a mocked profile and job factory
func newFixture(t *testing.T, policy inbound.HeaderPolicy) fixture {
	t.Helper()

	c, store := components(t)
	profile := mocks.NewProfile(t)
	jobs := mocks.NewJobFactory(t)
	c.MustRegister("profile", profile)
	c.MustRegister("jobs", jobs)

	s := defaultSettings()
	s.InboundProfile = "profile"
	s.ProcessInboundDataJob = "jobs"
	s.StoreHeaders = policy

	cfg, err := inbound.NewEndpointConfig(s, c)
	require.NoError(t, err)

	return fixture{cfg: cfg, store: store, profile: profile, jobs: jobs}
}

func strPtr(s string) *string {
	return &s
}
