package inbound

import (
	"fmt"
	"net/http"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// WildcardHeaders is the store_headers marker meaning "store every header".
const WildcardHeaders = "*"

/* HeaderPolicy decides which request headers are kept on a record.
 * The zero value stores nothing.
 */
type HeaderPolicy struct {
	all   bool
	names map[string]struct{}
}

// StoreAllHeaders returns a policy that keeps every header verbatim
func StoreAllHeaders() HeaderPolicy {
	return HeaderPolicy{all: true}
}

// StoreHeaderNames returns a policy keeping only the named headers, matched case-insensitively
func StoreHeaderNames(names ...string) HeaderPolicy {
	p := HeaderPolicy{names: make(map[string]struct{}, len(names))}
	for _, n := range names {
		n = strings.ToLower(strings.TrimSpace(n))
		if n == "" {
			continue
		}
		p.names[n] = struct{}{}
	}
	return p
}

// All reports whether the policy is the wildcard
func (p HeaderPolicy) All() bool {
	return p.all
}

// Names returns the lower-cased allow-list, sorted
func (p HeaderPolicy) Names() []string {
	names := make([]string, 0, len(p.names))
	for n := range p.names {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Filter snapshots the headers allowed by the policy.
// Values are copied so later mutation of the request does not leak into the record.
func (p HeaderPolicy) Filter(h http.Header) map[string][]string {
	out := make(map[string][]string)
	for name, values := range h {
		if !p.all {
			if _, ok := p.names[strings.ToLower(name)]; !ok {
				continue
			}
		}
		out[name] = append([]string(nil), values...)
	}
	return out
}

// UnmarshalYAML accepts either "*" or a list of header names
func (p *HeaderPolicy) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		if node.Value == WildcardHeaders {
			*p = StoreAllHeaders()
			return nil
		}
		if node.Value == "" || node.Tag == "!!null" {
			*p = HeaderPolicy{}
			return nil
		}
		return fmt.Errorf("store_headers must be %q or a list of header names, got %q", WildcardHeaders, node.Value)
	case yaml.SequenceNode:
		var names []string
		if err := node.Decode(&names); err != nil {
			return fmt.Errorf("decoding store_headers: %w", err)
		}
		*p = StoreHeaderNames(names...)
		return nil
	default:
		return fmt.Errorf("store_headers must be %q or a list of header names", WildcardHeaders)
	}
}
