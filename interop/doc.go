// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package interop shares d3d11 devices with code that drives the backend
// directly.
//
// Open bootstraps a device with the backend extensions collected in a
// Registry. DeviceHandles and ExportImage return the backend objects behind
// a device or texture, and AdapterIndex maps an adapter back to its
// enumeration index. Provider exposes a device as a
// gpucontext.DeviceProvider for gogpu libraries.
//
//	reg := interop.NewRegistry(interop.Extensions{
//	    Device: []string{"VK_KHR_external_memory"},
//	})
//	dev, err := interop.Open(interop.Config{Backend: "native"}, reg)
package interop
