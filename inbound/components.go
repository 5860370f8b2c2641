package inbound

import (
	"fmt"
	"sort"
	"strings"
)

/* Components maps configuration identifiers to the component instances
 * endpoint configs are built from. It is filled once at boot; capability
 * checks happen when configs are constructed, never per call.
 */
type Components struct {
	entries map[string]any
}

// NewComponents creates an empty component registry
func NewComponents() *Components {
	return &Components{entries: make(map[string]any)}
}

// Register binds an identifier to a component instance
func (c *Components) Register(id string, component any) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("component identifier cannot be empty")
	}
	if component == nil {
		return fmt.Errorf("component %q is nil", id)
	}
	c.entries[id] = component
	return nil
}

// MustRegister is Register for boot code that cannot recover from a bad registration
func (c *Components) MustRegister(id string, component any) {
	if err := c.Register(id, component); err != nil {
		panic(err)
	}
}

// Lookup returns the component registered under id
func (c *Components) Lookup(id string) (any, bool) {
	if c == nil {
		return nil, false
	}
	component, ok := c.entries[id]
	return component, ok
}

// IDs returns the registered identifiers, sorted
func (c *Components) IDs() []string {
	ids := make([]string, 0, len(c.entries))
	for id := range c.entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// resolve looks up id and asserts it provides capability T
func resolve[T any](c *Components, key, id, expected string) (T, error) {
	var zero T
	component, ok := c.Lookup(id)
	if !ok {
		return zero, invalidComponent(key, id, expected)
	}
	typed, ok := component.(T)
	if !ok {
		return zero, invalidComponent(key, id, expected)
	}
	return typed, nil
}
