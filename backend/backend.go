package backend

import (
	"github.com/cockroachdb/errors"

	"github.com/gogpu/d3d11/gpucore"
)

// Common backend errors.
var (
	// ErrBackendNotAvailable is returned when a requested backend is not available.
	ErrBackendNotAvailable = errors.New("backend: not available")

	// ErrNoAdapter is returned when a backend finds no usable adapter.
	ErrNoAdapter = errors.New("backend: no suitable adapter")
)

// Backend name constants.
const (
	// BackendSoftware is the in-memory reference device.
	BackendSoftware = "software"
	// BackendNative is the Pure Go GPU backend (gogpu/wgpu hal).
	BackendNative = "native"
)

// Config carries bootstrap parameters to a Factory.
type Config struct {
	// Debug enables backend validation where available.
	Debug bool

	// InstanceExtensions are requested on top of the backend's own.
	InstanceExtensions []string

	// DeviceExtensions returns the extensions to request for the named
	// adapter. It may be nil.
	DeviceExtensions func(adapter string) []string
}

// Factory opens a device.
type Factory func(cfg Config) (gpucore.Device, error)
