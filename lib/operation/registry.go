// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package operation

import "fmt"

// Registry maps operation names to descriptors. It is built once and
// never modified, so concurrent lookups need no locking.
type Registry struct {
	ordered []*Descriptor
	byName  map[string]*Descriptor
}

// NewRegistry builds a Registry preserving the order given. Empty and
// duplicate names are rejected.
func NewRegistry(descriptors ...*Descriptor) (*Registry, error) {
	registry := &Registry{
		ordered: make([]*Descriptor, 0, len(descriptors)),
		byName:  make(map[string]*Descriptor, len(descriptors)),
	}
	for _, descriptor := range descriptors {
		if descriptor == nil || descriptor.Name == "" {
			return nil, fmt.Errorf("operation: descriptor %d has no name", len(registry.ordered))
		}
		if _, exists := registry.byName[descriptor.Name]; exists {
			return nil, fmt.Errorf("operation: duplicate operation %q", descriptor.Name)
		}
		registry.byName[descriptor.Name] = descriptor
		registry.ordered = append(registry.ordered, descriptor)
	}
	return registry, nil
}

// Lookup returns the descriptor registered under name.
func (r *Registry) Lookup(name string) (*Descriptor, bool) {
	descriptor, ok := r.byName[name]
	return descriptor, ok
}

// List returns every descriptor in registration order. The slice is a
// copy; the descriptors are shared.
func (r *Registry) List() []*Descriptor {
	return append([]*Descriptor(nil), r.ordered...)
}

// Len returns the number of registered operations.
func (r *Registry) Len() int { return len(r.ordered) }
