package routetable

import (
	"fmt"
	"strings"
)

// Table maps request-path prefixes to backend addresses. It is immutable
// after construction and safe for concurrent use by any number of
// connection handlers without locking.
type Table struct {
	defaultBackend string
	routes         map[string]string
}

// New builds a Table from a default backend and a prefix-to-backend map.
// Every prefix must start with '/'. The map is copied; later mutation of
// the argument does not affect the table.
func New(defaultBackend string, routes map[string]string) (*Table, error) {
	if defaultBackend == "" {
		return nil, fmt.Errorf("default backend must not be empty")
	}

	copied := make(map[string]string, len(routes))
	for prefix, backend := range routes {
		if !strings.HasPrefix(prefix, "/") {
			return nil, fmt.Errorf("route path must start with '/': %q", prefix)
		}
		if backend == "" {
			return nil, fmt.Errorf("route %q has an empty backend address", prefix)
		}
		copied[prefix] = backend
	}

	return &Table{
		defaultBackend: defaultBackend,
		routes:         copied,
	}, nil
}

// Resolve selects the backend for a request path. An exact key match wins
// outright; otherwise the longest configured prefix of the path wins. When
// nothing matches, the default backend is returned with an empty prefix.
func (t *Table) Resolve(path string) (backend, matchedPrefix string) {
	if backend, ok := t.routes[path]; ok {
		return backend, path
	}

	backend = t.defaultBackend
	for prefix, b := range t.routes {
		if strings.HasPrefix(path, prefix) && len(prefix) > len(matchedPrefix) {
			matchedPrefix = prefix
			backend = b
		}
	}

	return backend, matchedPrefix
}

// DefaultBackend returns the address used when no route prefix matches.
func (t *Table) DefaultBackend() string {
	return t.defaultBackend
}

// Routes returns a copy of the configured prefix-to-backend map, for
// startup logging.
func (t *Table) Routes() map[string]string {
	copied := make(map[string]string, len(t.routes))
	for prefix, backend := range t.routes {
		copied[prefix] = backend
	}
	return copied
}
