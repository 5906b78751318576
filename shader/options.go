package shader

// Options are device-specific compiler switches, mostly driver workarounds.
type Options struct {
	// AddExtraDrefCoordComponent pads depth-compare coordinate vectors by
	// one component. It is honored by bytecode front ends and carried on
	// the module for them.
	AddExtraDrefCoordComponent bool

	// UseSimpleMinMaxClamp replaces NaN-aware min, max and clamp with the
	// plain floating-point versions.
	UseSimpleMinMaxClamp bool

	// UseStorageImageReadWithoutFormat declares the capability to read
	// storage images of any format. Without it only scalar 32-bit formats
	// can be read.
	UseStorageImageReadWithoutFormat bool
}
