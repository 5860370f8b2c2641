package signature_test

import (
	"testing"

	"github.com/marcelsud/inbound-processor/inbound"
	"github.com/marcelsud/inbound-processor/inbound/mocks"
	"github.com/stretchr/testify/require"
)

// endpoint builds an endpoint config validated by v
func endpoint(t *testing.T, v inbound.SignatureValidator, secret, header string) *inbound.EndpointConfig {
	t.Helper()

	c := inbound.NewComponents()
	c.MustRegister("validator", v)
	c.MustRegister("everything", inbound.ProcessEverything{})
	c.MustRegister("store", mocks.NewStore(t))
	c.MustRegister("job", inbound.JobType("process"))

	cfg, err := inbound.NewEndpointConfig(inbound.Settings{
		Name:                  "default",
		SigningSecret:         secret,
		SignatureHeaderName:   header,
		SignatureValidator:    "validator",
		InboundProfile:        "everything",
		InboundDataModel:      "store",
		ProcessInboundDataJob: "job",
	}, c)
	require.NoError(t, err)
	return cfg
}
