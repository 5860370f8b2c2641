package endpoints

import (
	"fmt"
	"os"
	"sort"

	"github.com/marcelsud/inbound-processor/inbound"
	"gopkg.in/yaml.v3"
)

/* Loader manages endpoint configuration from endpoints.yaml
 * It keeps the raw settings; Build turns them into a frozen inbound.Registry
 */

// File represents the structure of endpoints.yaml
type File struct {
	Endpoints []EndpointConfig `yaml:"endpoints"`
	// EventTypeProfiles declares event-type filtering profiles by component id
	EventTypeProfiles map[string][]string `yaml:"event_type_profiles"`
}

// EndpointConfig represents a single endpoint in the YAML file
type EndpointConfig struct {
	Name          string `yaml:"name"`
	Path          string `yaml:"path"`
	Method        string `yaml:"method"`
	SigningSecret string `yaml:"signing_secret"`
	// SigningSecretEnv names an environment variable holding the secret; it wins over signing_secret
	SigningSecretEnv      string               `yaml:"signing_secret_env"`
	SignatureHeaderName   *string              `yaml:"signature_header_name"`
	SignatureValidator    string               `yaml:"signature_validator"`
	InboundProfile        string               `yaml:"inbound_profile"`
	InboundResponse       *string              `yaml:"inbound_response"`
	InboundDataModel      string               `yaml:"inbound_data_model"`
	StoreHeaders          inbound.HeaderPolicy `yaml:"store_headers"`
	ProcessInboundDataJob string               `yaml:"process_inbound_data_job"`
}

// Loader holds the loaded endpoints
type Loader struct {
	endpoints map[string]*Endpoint
	profiles  map[string][]string
	lookupEnv func(string) (string, bool)
}

// NewLoader creates a new endpoint loader reading secrets from the process environment
func NewLoader() *Loader {
	return &Loader{
		endpoints: make(map[string]*Endpoint),
		profiles:  make(map[string][]string),
		lookupEnv: os.LookupEnv,
	}
}

// WithEnv replaces the environment lookup used for signing_secret_env
func (l *Loader) WithEnv(lookup func(string) (string, bool)) *Loader {
	l.lookupEnv = lookup
	return l
}

// Load reads and parses the endpoints file
func (l *Loader) Load(filePath string) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("reading endpoints file: %w", err)
	}
	return l.Parse(data)
}

// Parse parses endpoints YAML
func (l *Loader) Parse(data []byte) error {
	var file File
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parsing endpoints YAML: %w", err)
	}

	routes := make(map[string]string)
	for _, ec := range file.Endpoints {
		e := l.toEndpoint(ec)
		if err := e.Validate(); err != nil {
			return fmt.Errorf("validating endpoint %s: %w", ec.Name, err)
		}
		if _, exists := l.endpoints[e.Name()]; exists {
			return fmt.Errorf("duplicate endpoint name %s", e.Name())
		}
		route := e.Method + " " + e.Path
		if other, exists := routes[route]; exists {
			return fmt.Errorf("endpoints %s and %s both serve %s", other, e.Name(), route)
		}
		routes[route] = e.Name()
		l.endpoints[e.Name()] = e
	}

	for id, filters := range file.EventTypeProfiles {
		l.profiles[id] = filters
	}

	return nil
}

func (l *Loader) toEndpoint(ec EndpointConfig) *Endpoint {
	secret := ec.SigningSecret
	if ec.SigningSecretEnv != "" {
		if v, ok := l.lookupEnv(ec.SigningSecretEnv); ok {
			secret = v
		}
	}

	header := DefaultSignatureHeaderName
	if ec.SignatureHeaderName != nil {
		header = *ec.SignatureHeaderName
	}

	path := ec.Path
	if path == "" {
		path = pathPrefix + ec.Name
	}

	return &Endpoint{
		Method: normalizeMethod(ec.Method),
		Path:   path,
		Settings: inbound.Settings{
			Name:                  ec.Name,
			SigningSecret:         secret,
			SignatureHeaderName:   header,
			SignatureValidator:    orDefault(ec.SignatureValidator, DefaultSignatureValidator),
			InboundProfile:        orDefault(ec.InboundProfile, DefaultInboundProfile),
			InboundResponse:       ec.InboundResponse,
			InboundDataModel:      ec.InboundDataModel,
			StoreHeaders:          ec.StoreHeaders,
			ProcessInboundDataJob: ec.ProcessInboundDataJob,
		},
	}
}

// Get retrieves an endpoint by name
func (l *Loader) Get(name string) (*Endpoint, error) {
	e, exists := l.endpoints[name]
	if !exists {
		return nil, &inbound.ConfigurationError{Key: inbound.KeyName, Value: name, Err: inbound.ErrEndpointNotFound}
	}
	return e, nil
}

// List returns all loaded endpoints sorted by name
func (l *Loader) List() []*Endpoint {
	list := make([]*Endpoint, 0, len(l.endpoints))
	for _, e := range l.endpoints {
		list = append(list, e)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name() < list[j].Name() })
	return list
}

// EventTypeProfiles returns the declared event-type profiles by component id
func (l *Loader) EventTypeProfiles() map[string][]string {
	return l.profiles
}

// Build validates every endpoint against the components and returns the frozen registry.
// The first invalid endpoint aborts the build.
func (l *Loader) Build(c *inbound.Components) (*inbound.Registry, error) {
	registry := inbound.NewRegistry()
	for _, e := range l.List() {
		cfg, err := inbound.NewEndpointConfig(e.Settings, c)
		if err != nil {
			return nil, fmt.Errorf("building endpoint %s: %w", e.Name(), err)
		}
		if err := registry.Register(cfg); err != nil {
			return nil, err
		}
	}
	return registry.Freeze(), nil
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
