package types

import (
	"fmt"
	"strings"
)

// DefaultNamespace is the namespace under which keys pass through unprefixed.
const DefaultNamespace = "default"

// Namespacer prefixes raw keys with a namespace. Keys in the default
// namespace are stored bare so single-tenant deployments pay no overhead.
type Namespacer struct {
	namespace string
}

// NewNamespacer creates a Namespacer. Namespace names must not contain ':'
// since it is the prefix separator.
func NewNamespacer(namespace string) (*Namespacer, error) {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	if strings.Contains(namespace, ":") {
		return nil, fmt.Errorf("%w: namespace %q must not contain ':'", ErrInvalidKey, namespace)
	}
	return &Namespacer{namespace: namespace}, nil
}

func (n *Namespacer) Namespace() string {
	return n.namespace
}

// IsDefault reports whether this is the pass-through namespace.
func (n *Namespacer) IsDefault() bool {
	return n.namespace == DefaultNamespace
}

// Apply converts a raw key to its namespaced form.
func (n *Namespacer) Apply(key string) string {
	if n.IsDefault() {
		return key
	}
	return n.namespace + ":" + key
}

// Strip converts a namespaced key back to its raw form.
// Keys outside this namespace are returned unchanged.
func (n *Namespacer) Strip(key string) string {
	if n.IsDefault() {
		return key
	}
	return strings.TrimPrefix(key, n.namespace+":")
}

// Pattern returns the match-all pattern for this namespace.
func (n *Namespacer) Pattern() string {
	if n.IsDefault() {
		return "*"
	}
	return n.namespace + ":*"
}
