package endpoints

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/marcelsud/inbound-processor/inbound"
)

// Defaults applied to keys missing from the endpoints file
const (
	DefaultMethod              = http.MethodPost
	DefaultSignatureHeaderName = "Signature"
	DefaultSignatureValidator  = "hmac"
	DefaultInboundProfile      = "process-everything"
	pathPrefix                 = "/webhooks/"
)

var allowedMethods = map[string]struct{}{
	http.MethodGet:    {},
	http.MethodPost:   {},
	http.MethodPut:    {},
	http.MethodPatch:  {},
	http.MethodDelete: {},
}

/* Endpoint is one entry of the endpoints file
 * Settings are validated against the component registry in Build
 */
type Endpoint struct {
	Method   string
	Path     string
	Settings inbound.Settings
}

// Name returns the endpoint name
func (e *Endpoint) Name() string {
	return e.Settings.Name
}

// Validate checks what can be checked without the component registry
func (e *Endpoint) Validate() error {
	if strings.TrimSpace(e.Settings.Name) == "" {
		return fmt.Errorf("name cannot be empty")
	}
	if _, ok := allowedMethods[e.Method]; !ok {
		return &inbound.ConfigurationError{Key: "method", Value: e.Method, Err: inbound.ErrInvalidMethod}
	}
	if !strings.HasPrefix(e.Path, "/") {
		return fmt.Errorf("path must start with / for endpoint %s (got %q)", e.Settings.Name, e.Path)
	}
	return nil
}

// normalizeMethod upper-cases the configured method, defaulting to POST
func normalizeMethod(m string) string {
	m = strings.ToUpper(strings.TrimSpace(m))
	if m == "" {
		return DefaultMethod
	}
	return m
}
