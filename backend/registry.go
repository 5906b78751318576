package backend

import (
	"slices"
	"sync"

	"github.com/cockroachdb/errors"

	"github.com/gogpu/d3d11/gpucore"
)

// registry holds registered backends.
var (
	registryMu sync.RWMutex
	backends   = make(map[string]Factory)
	// Priority order for backend selection (first that opens wins).
	backendPriority = []string{BackendNative, BackendSoftware}
)

// Register registers a device factory with the given name.
// This is typically called from init() functions in backend packages.
// If a backend with the same name is already registered, it will be replaced.
func Register(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	backends[name] = factory
}

// Unregister removes a backend from the registry.
// This is useful for testing.
func Unregister(name string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	delete(backends, name)
}

// Available returns the sorted names of registered backends.
func Available() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// IsRegistered checks if a backend with the given name is registered.
func IsRegistered(name string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := backends[name]
	return ok
}

// Open opens a device from the named backend with a zero Config.
func Open(name string) (gpucore.Device, error) {
	return OpenConfig(name, Config{})
}

// OpenConfig opens a device from the named backend.
func OpenConfig(name string, cfg Config) (gpucore.Device, error) {
	registryMu.RLock()
	factory, ok := backends[name]
	registryMu.RUnlock()

	if !ok {
		return nil, errors.Wrapf(ErrBackendNotAvailable, "backend %q", name)
	}
	dev, err := factory(cfg)
	if err != nil {
		return nil, errors.Wrapf(err, "open backend %q", name)
	}
	return dev, nil
}

// OpenDefault opens the first backend in priority order that succeeds.
// Priority order: native > software.
func OpenDefault() (gpucore.Device, string, error) {
	return OpenDefaultConfig(Config{})
}

// OpenDefaultConfig is OpenDefault with bootstrap parameters.
func OpenDefaultConfig(cfg Config) (gpucore.Device, string, error) {
	var errs error
	for _, name := range backendPriority {
		if !IsRegistered(name) {
			continue
		}
		dev, err := OpenConfig(name, cfg)
		if err == nil {
			return dev, name, nil
		}
		errs = errors.CombineErrors(errs, err)
	}
	if errs == nil {
		errs = ErrBackendNotAvailable
	}
	return nil, "", errs
}
