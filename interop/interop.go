// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package interop

import (
	"github.com/cockroachdb/errors"

	"github.com/gogpu/d3d11"
	"github.com/gogpu/d3d11/backend"
	"github.com/gogpu/d3d11/gpucore"
)

// ErrNoHandles is returned when a device's backend does not export native
// objects.
var ErrNoHandles = errors.New("interop: backend exports no native handles")

// Config selects the backend a shared device is opened on.
type Config struct {
	// Backend names the backend. Empty selects the best available one.
	Backend string

	// Debug enables backend validation where available.
	Debug bool

	// Options configure the d3d11 device.
	Options []d3d11.Option
}

// Open bootstraps a device with the extensions requested through reg. A
// nil reg requests none. The returned device owns its backend device.
func Open(cfg Config, reg *Registry) (*d3d11.Device, error) {
	bc := backend.Config{
		Debug:              cfg.Debug,
		InstanceExtensions: reg.InstanceExtensions(),
		DeviceExtensions:   reg.DeviceExtensions,
	}
	if reg == nil {
		bc.DeviceExtensions = nil
	}
	log := d3d11.Logger()
	if len(bc.InstanceExtensions) > 0 {
		log.Info("interop: instance extensions requested", "extensions", bc.InstanceExtensions)
	}

	var (
		dev gpucore.Device
		err error
	)
	if cfg.Backend == "" {
		var name string
		dev, name, err = backend.OpenDefaultConfig(bc)
		if err == nil {
			log.Info("interop: backend selected", "backend", name, "debug", cfg.Debug)
		}
	} else {
		dev, err = backend.OpenConfig(cfg.Backend, bc)
	}
	if err != nil {
		return nil, errors.WithSecondaryError(errors.Wrapf(d3d11.ErrUnsupported, "interop: open: %v", err), err)
	}
	return d3d11.Adopt(dev, cfg.Options...)
}

func exporter(d *d3d11.Device) (gpucore.HandleExporter, error) {
	ex, ok := d.Backend().(gpucore.HandleExporter)
	if !ok {
		return nil, errors.Wrapf(ErrNoHandles, "backend %q", d.Info().Backend)
	}
	return ex, nil
}

// DeviceHandles returns the instance, adapter, device, queue family and
// queue behind d.
func DeviceHandles(d *d3d11.Device) (gpucore.NativeHandles, error) {
	ex, err := exporter(d)
	if err != nil {
		return gpucore.NativeHandles{}, err
	}
	return ex.NativeHandles(), nil
}

// Image describes an exported texture.
type Image struct {
	Handle  any
	Width   uint32
	Height  uint32
	Format  gpucore.Format
	Samples uint32
}

// ExportImage returns the native image behind a texture together with the
// facts needed to use it.
func ExportImage(t *d3d11.Texture) (Image, error) {
	ex, err := exporter(t.Device())
	if err != nil {
		return Image{}, err
	}
	h := ex.NativeImage(t.Image())
	if h == nil {
		return Image{}, errors.Newf("interop: texture %q has no native image", t.Label())
	}
	desc := t.Image().Desc()
	return Image{
		Handle:  h,
		Width:   desc.Extent.Width,
		Height:  desc.Extent.Height,
		Format:  desc.Format,
		Samples: uint32(desc.Samples),
	}, nil
}

// AdapterIndex returns the enumeration index of adapter among the adapters
// of d's instance, or -1 when it is not one of them.
func AdapterIndex(d *d3d11.Device, adapter any) int {
	ex, err := exporter(d)
	if err != nil {
		return -1
	}
	for i, a := range ex.Adapters() {
		if a == adapter {
			return i
		}
	}
	return -1
}
