package inbound

import (
	"errors"
	"fmt"
	"sort"
)

var errEmpty = errors.New("cannot be empty")

/* Registry maps endpoint names to their configs
 * Built once at boot, then frozen: lookups after Freeze are lock-free
 * because nothing writes to the map anymore.
 */
type Registry struct {
	configs map[string]*EndpointConfig
	frozen  bool
}

// NewRegistry creates an empty, writable registry
func NewRegistry() *Registry {
	return &Registry{configs: make(map[string]*EndpointConfig)}
}

// Register inserts or overwrites the config under its name
func (r *Registry) Register(cfg *EndpointConfig) error {
	if cfg == nil {
		return fmt.Errorf("registering endpoint config: config is nil")
	}
	if r.frozen {
		return fmt.Errorf("registering endpoint config %s: registry is frozen", cfg.Name())
	}
	r.configs[cfg.Name()] = cfg
	return nil
}

// Freeze makes the registry read-only. Call it before serving traffic.
func (r *Registry) Freeze() *Registry {
	r.frozen = true
	return r
}

// Lookup returns the config registered under name.
// An unknown name is a configuration error, never a silent default.
func (r *Registry) Lookup(name string) (*EndpointConfig, error) {
	cfg, ok := r.configs[name]
	if !ok {
		return nil, &ConfigurationError{Key: KeyName, Value: name, Err: ErrEndpointNotFound}
	}
	return cfg, nil
}

// Names returns the registered endpoint names, sorted
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.configs))
	for name := range r.configs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered endpoints
func (r *Registry) Len() int {
	return len(r.configs)
}
