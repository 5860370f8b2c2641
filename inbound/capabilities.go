package inbound

import (
	"context"
	"net/http"
)

// SignatureValidator authenticates a call against the config of its endpoint.
// A missing signature is (false, nil); a deployment defect such as an unset
// secret is returned as a *ConfigurationError.
type SignatureValidator interface {
	IsValid(ctx context.Context, call Call, cfg *EndpointConfig) (bool, error)
}

// Profile decides whether a call is worth persisting and processing.
// It must be free of side effects.
type Profile interface {
	ShouldProcess(ctx context.Context, call Call) bool
}

// ResponseStrategy produces the reply returned to the caller.
type ResponseStrategy interface {
	RespondTo(ctx context.Context, call Call, cfg *EndpointConfig) (Reply, error)
}

// Reply is the acknowledgement written back to the caller.
type Reply struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// ProcessEverything is the default profile: every call is kept.
type ProcessEverything struct{}

func (ProcessEverything) ShouldProcess(context.Context, Call) bool {
	return true
}

// JSONAck is the default response strategy: 200 with {"status":"ok"}.
type JSONAck struct{}

func (JSONAck) RespondTo(context.Context, Call, *EndpointConfig) (Reply, error) {
	return Reply{
		StatusCode: http.StatusOK,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       []byte(`{"status":"ok"}`),
	}, nil
}

// JobType is a JobFactory producing jobs of a fixed type identifier.
type JobType string

func (t JobType) NewJob(rec Record) (Job, error) {
	return newJob(string(t), rec)
}
