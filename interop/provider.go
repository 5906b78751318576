// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package interop

import (
	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"

	"github.com/gogpu/d3d11"
	"github.com/gogpu/d3d11/gpucore"
)

// Provider shares a d3d11 device with gogpu libraries through
// gpucontext.DeviceProvider.
//
// Provider must be used from the goroutine driving the device's immediate
// context.
type Provider struct {
	dev     *device
	queue   *queue
	adapter *adapter
	format  gputypes.TextureFormat
}

var _ gpucontext.DeviceProvider = (*Provider)(nil)

// NewProvider wraps d. The surface format defaults to BGRA8Unorm.
func NewProvider(d *d3d11.Device) *Provider {
	return &Provider{
		dev:     &device{d: d},
		queue:   &queue{d: d},
		adapter: &adapter{info: d.Info()},
		format:  gputypes.TextureFormatBGRA8Unorm,
	}
}

// Device implements gpucontext.DeviceProvider.
func (p *Provider) Device() gpucontext.Device { return p.dev }

// Queue implements gpucontext.DeviceProvider.
func (p *Provider) Queue() gpucontext.Queue { return p.queue }

// Adapter implements gpucontext.DeviceProvider.
func (p *Provider) Adapter() gpucontext.Adapter { return p.adapter }

// SurfaceFormat implements gpucontext.DeviceProvider.
func (p *Provider) SurfaceFormat() gputypes.TextureFormat { return p.format }

// D3D11 returns the wrapped device.
func (p *Provider) D3D11() *d3d11.Device { return p.dev.d }

// device adapts d3d11.Device to gpucontext.Device.
type device struct {
	d *d3d11.Device
}

// Poll submits pending immediate work. With wait it also blocks until the
// execution thread has replayed it.
func (v *device) Poll(wait bool) {
	ctx := v.d.ImmediateContext()
	ctx.Flush()
	if wait {
		ctx.Synchronize()
	}
}

func (v *device) Destroy() {
	if err := v.d.Close(); err != nil {
		d3d11.Logger().Error("interop: close shared device", "error", err)
	}
}

type queue struct {
	d *d3d11.Device
}

type adapter struct {
	info gpucore.DeviceInfo
}

// Info describes the adapter's device.
func (a *adapter) Info() gpucore.DeviceInfo { return a.info }
