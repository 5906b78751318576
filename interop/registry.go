// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package interop

import (
	"sync"
)

// ExtensionSource is a library that needs backend extensions enabled on
// the devices it shares.
type ExtensionSource interface {
	// InstanceExtensions lists the instance extensions to enable.
	InstanceExtensions() []string

	// DeviceExtensions lists the device extensions to enable on the named
	// adapter.
	DeviceExtensions(adapter string) []string
}

// Extensions is an ExtensionSource with fixed lists.
type Extensions struct {
	Instance []string
	Device   []string
}

// InstanceExtensions implements ExtensionSource.
func (e Extensions) InstanceExtensions() []string { return e.Instance }

// DeviceExtensions implements ExtensionSource. The list does not depend on
// the adapter.
func (e Extensions) DeviceExtensions(string) []string { return e.Device }

// Registry collects extension sources for device bootstrap.
//
// A Registry is owned by its caller and passed to Open. Sources are asked
// in registration order and duplicate names are dropped, keeping the first
// occurrence.
//
// Registry is safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	sources []ExtensionSource
}

// NewRegistry creates a registry holding sources.
func NewRegistry(sources ...ExtensionSource) *Registry {
	r := &Registry{}
	for _, s := range sources {
		r.Register(s)
	}
	return r
}

// Register adds a source. Register panics if src is nil.
func (r *Registry) Register(src ExtensionSource) {
	if src == nil {
		panic("interop: Register source is nil")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sources = append(r.sources, src)
}

// Len returns the number of registered sources.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sources)
}

// InstanceExtensions returns the merged instance extensions of every
// source.
func (r *Registry) InstanceExtensions() []string {
	return r.merge(func(s ExtensionSource) []string { return s.InstanceExtensions() })
}

// DeviceExtensions returns the merged device extensions of every source
// for the named adapter.
func (r *Registry) DeviceExtensions(adapter string) []string {
	return r.merge(func(s ExtensionSource) []string { return s.DeviceExtensions(adapter) })
}

func (r *Registry) merge(list func(ExtensionSource) []string) []string {
	if r == nil {
		return nil
	}
	r.mu.RLock()
	sources := append([]ExtensionSource(nil), r.sources...)
	r.mu.RUnlock()

	var out []string
	seen := make(map[string]struct{})
	for _, s := range sources {
		for _, name := range list(s) {
			if name == "" {
				continue
			}
			if _, dup := seen[name]; dup {
				continue
			}
			seen[name] = struct{}{}
			out = append(out, name)
		}
	}
	return out
}
