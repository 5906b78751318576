package d3d11

import "fmt"

// Usage describes how a resource is read and written.
type Usage uint8

// Resource usages.
const (
	// UsageDefault resources are read and written by the GPU.
	UsageDefault Usage = iota

	// UsageImmutable resources are initialized at creation and only read.
	UsageImmutable

	// UsageDynamic resources are written by the CPU and read by the GPU,
	// typically once per frame.
	UsageDynamic

	// UsageStaging resources transfer data between GPU and CPU.
	UsageStaging
)

var usageNames = [...]string{
	UsageDefault:   "Default",
	UsageImmutable: "Immutable",
	UsageDynamic:   "Dynamic",
	UsageStaging:   "Staging",
}

// String returns the name of the usage.
func (u Usage) String() string {
	if int(u) < len(usageNames) {
		return usageNames[u]
	}
	return fmt.Sprintf("Usage(%d)", u)
}

// CPUAccess is a bitmask of CPU access rights.
type CPUAccess uint8

// CPU access flags.
const (
	CPUAccessWrite CPUAccess = 1 << iota
	CPUAccessRead
)

// BindFlags is a bitmask of pipeline bindings.
type BindFlags uint32

// Bind flags.
const (
	BindVertexBuffer BindFlags = 1 << iota
	BindIndexBuffer
	BindConstantBuffer
	BindShaderResource
	BindRenderTarget
	BindDepthStencil
	BindUnorderedAccess
)

// MiscFlags are miscellaneous resource flags.
type MiscFlags uint32

// Miscellaneous flags.
const (
	// MiscTextureCube creates a 2D texture array usable as a cube map. The
	// array size must be a multiple of six.
	MiscTextureCube MiscFlags = 1 << iota
)

// MapType selects the CPU access a Map grants.
type MapType uint8

// Map types.
const (
	MapRead MapType = iota + 1
	MapWrite
	MapReadWrite

	// MapWriteDiscard discards the previous contents. The resource is
	// renamed, so the call never waits for the GPU.
	MapWriteDiscard

	// MapWriteNoOverwrite promises not to touch data the GPU may still read
	// and returns the memory of the previous discard map.
	MapWriteNoOverwrite
)

var mapTypeNames = [...]string{
	MapRead:             "Read",
	MapWrite:            "Write",
	MapReadWrite:        "ReadWrite",
	MapWriteDiscard:     "WriteDiscard",
	MapWriteNoOverwrite: "WriteNoOverwrite",
}

// String returns the name of the map type.
func (t MapType) String() string {
	if t > 0 && int(t) < len(mapTypeNames) {
		return mapTypeNames[t]
	}
	return fmt.Sprintf("MapType(%d)", t)
}

func (t MapType) reads() bool  { return t == MapRead || t == MapReadWrite }
func (t MapType) writes() bool { return t != MapRead }

// MapFlags modify a Map call.
type MapFlags uint32

// Map flags.
const (
	// MapFlagDoNotWait makes Map fail with ErrWasStillDrawing instead of
	// blocking. It is honored only on devices opened WithMapNoWait.
	MapFlagDoNotWait MapFlags = 1 << iota
)

// MappedSubresource is the CPU view of a mapped subresource. Data stays
// valid until the matching Unmap.
type MappedSubresource struct {
	Data       []byte
	RowPitch   uint64
	DepthPitch uint64
}

// SubresourceData is initial data for one subresource. Zero pitches mean
// tightly packed rows and slices.
type SubresourceData struct {
	Data       []byte
	RowPitch   uint64
	DepthPitch uint64
}
