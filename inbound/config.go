package inbound

import "strings"

// Configuration keys, as they appear in the endpoints file and in errors.
const (
	KeyName                  = "name"
	KeySigningSecret         = "signing_secret"
	KeySignatureHeaderName   = "signature_header_name"
	KeySignatureValidator    = "signature_validator"
	KeyInboundProfile        = "inbound_profile"
	KeyInboundResponse       = "inbound_response"
	KeyInboundDataModel      = "inbound_data_model"
	KeyStoreHeaders          = "store_headers"
	KeyProcessInboundDataJob = "process_inbound_data_job"
	KeyRetentionDays         = "retention_days"
)

// Names of the capabilities, used in ConfigurationError messages.
const (
	CapSignatureValidator = "inbound.SignatureValidator"
	CapProfile            = "inbound.Profile"
	CapResponseStrategy   = "inbound.ResponseStrategy"
	CapStore              = "inbound.Store"
	CapJobFactory         = "inbound.JobFactory"
)

// Settings are the raw, unvalidated settings of one endpoint.
type Settings struct {
	Name                string
	SigningSecret       string
	SignatureHeaderName string
	SignatureValidator  string
	InboundProfile      string
	// InboundResponse is nil when the key is absent; only then is the default used
	InboundResponse       *string
	InboundDataModel      string
	StoreHeaders          HeaderPolicy
	ProcessInboundDataJob string
}

/* EndpointConfig is the validated, immutable bundle of behavior for one endpoint
 * Uses pointer semantics: built once at boot and shared by every call
 */
type EndpointConfig struct {
	name                string
	signingSecret       string
	signatureHeaderName string
	storeHeaders        HeaderPolicy

	Validator SignatureValidator
	Profile   Profile
	Response  ResponseStrategy
	Store     Store
	Jobs      JobFactory
}

// NewEndpointConfig validates s against the component registry.
// Construction is all-or-nothing: the first violation is returned as a *ConfigurationError.
func NewEndpointConfig(s Settings, c *Components) (*EndpointConfig, error) {
	name := strings.TrimSpace(s.Name)
	if name == "" {
		return nil, &ConfigurationError{Key: KeyName, Err: errEmpty}
	}

	validator, err := resolve[SignatureValidator](c, KeySignatureValidator, s.SignatureValidator, CapSignatureValidator)
	if err != nil {
		return nil, err
	}

	profile, err := resolve[Profile](c, KeyInboundProfile, s.InboundProfile, CapProfile)
	if err != nil {
		return nil, err
	}

	var response ResponseStrategy = JSONAck{}
	if s.InboundResponse != nil {
		response, err = resolve[ResponseStrategy](c, KeyInboundResponse, *s.InboundResponse, CapResponseStrategy)
		if err != nil {
			return nil, err
		}
	}

	store, err := resolve[Store](c, KeyInboundDataModel, s.InboundDataModel, CapStore)
	if err != nil {
		return nil, err
	}

	jobs, err := resolve[JobFactory](c, KeyProcessInboundDataJob, s.ProcessInboundDataJob, CapJobFactory)
	if err != nil {
		return nil, err
	}

	return &EndpointConfig{
		name:                name,
		signingSecret:       s.SigningSecret,
		signatureHeaderName: s.SignatureHeaderName,
		storeHeaders:        s.StoreHeaders,
		Validator:           validator,
		Profile:             profile,
		Response:            response,
		Store:               store,
		Jobs:                jobs,
	}, nil
}

// Name returns the unique endpoint name
func (c *EndpointConfig) Name() string { return c.name }

// SigningSecret returns the shared secret, "" when none is configured yet
func (c *EndpointConfig) SigningSecret() string { return c.signingSecret }

// SignatureHeaderName returns the header carrying the call signature
func (c *EndpointConfig) SignatureHeaderName() string { return c.signatureHeaderName }

// StoreHeaders returns the header capture policy
func (c *EndpointConfig) StoreHeaders() HeaderPolicy { return c.storeHeaders }
