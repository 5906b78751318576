package d3d11

import "fmt"

// MapMode is how the CPU reaches the contents of a texture. It is fixed at
// creation.
type MapMode uint8

// Map modes.
const (
	// MapModeNone is used for textures without CPU access.
	MapModeNone MapMode = iota

	// MapModeDirect maps a host-visible, linearly tiled image.
	MapModeDirect

	// MapModeBuffer relays maps through a host-visible shadow buffer that
	// is copied to and from an optimally tiled image.
	MapModeBuffer
)

var mapModeNames = [...]string{
	MapModeNone:   "None",
	MapModeDirect: "Direct",
	MapModeBuffer: "Buffer",
}

// String returns the name of the mode.
func (m MapMode) String() string {
	if int(m) < len(mapModeNames) {
		return mapModeNames[m]
	}
	return fmt.Sprintf("MapMode(%d)", m)
}

// DetermineMapMode selects the map mode of a texture. linearSupported
// reports whether the device can create the texture with linear tiling.
//
// Dynamic textures always use a shadow buffer: the GPU copy stays optimally
// tiled and the CPU pitch does not depend on the driver.
func DetermineMapMode(usage Usage, cpuAccess CPUAccess, linearSupported bool) MapMode {
	switch {
	case cpuAccess == 0:
		return MapModeNone
	case usage == UsageDynamic:
		return MapModeBuffer
	case linearSupported:
		return MapModeDirect
	default:
		return MapModeBuffer
	}
}
