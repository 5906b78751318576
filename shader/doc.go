// Package shader turns shader source into SPIR-V modules for gpucore
// devices.
//
// WGSL source is compiled with naga. Ready-made SPIR-V is accepted as is.
// Either way the module is validated and then patched according to
// Options, which carry device-specific workarounds.
package shader
