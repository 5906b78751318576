package shader

import (
	"encoding/binary"

	"github.com/cockroachdb/errors"
)

// SPIR-V constants used when patching modules.
const (
	spirvMagic      = 0x07230203
	spirvHeaderSize = 5

	opExtInstImport = 11
	opExtInst       = 12
	opCapability    = 17

	capStorageImageReadWithoutFormat = 55

	glslFMin   = 37
	glslFMax   = 40
	glslFClamp = 43
	glslNMin   = 79
	glslNMax   = 80
	glslNClamp = 81
)

// ErrInvalidSPIRV is returned for malformed modules.
var ErrInvalidSPIRV = errors.New("shader: invalid SPIR-V")

// Words converts little-endian SPIR-V bytes to words.
func Words(b []byte) ([]uint32, error) {
	if len(b)%4 != 0 {
		return nil, errors.Wrapf(ErrInvalidSPIRV, "length %d is not a multiple of 4", len(b))
	}
	words := make([]uint32, len(b)/4)
	for i := range words {
		words[i] = binary.LittleEndian.Uint32(b[i*4:])
	}
	return words, nil
}

// instruction is one decoded SPIR-V instruction.
type instruction struct {
	offset int
	opcode uint16
	words  []uint32
}

// walk calls fn for every instruction after the header. It fails on a
// truncated or zero-length instruction.
func walk(module []uint32, fn func(inst instruction) bool) error {
	for off := spirvHeaderSize; off < len(module); {
		count := int(module[off] >> 16)
		if count == 0 || off+count > len(module) {
			return errors.Wrapf(ErrInvalidSPIRV, "bad instruction at word %d", off)
		}
		inst := instruction{offset: off, opcode: uint16(module[off]), words: module[off : off+count]}
		if !fn(inst) {
			return nil
		}
		off += count
	}
	return nil
}

func validate(module []uint32) error {
	if len(module) < spirvHeaderSize {
		return errors.Wrapf(ErrInvalidSPIRV, "%d words is shorter than the header", len(module))
	}
	if module[0] != spirvMagic {
		return errors.Wrapf(ErrInvalidSPIRV, "magic %#08x", module[0])
	}
	return walk(module, func(instruction) bool { return true })
}

// hasCapability reports whether module declares capability c.
func hasCapability(module []uint32, c uint32) bool {
	found := false
	_ = walk(module, func(inst instruction) bool {
		if inst.opcode == opCapability && len(inst.words) > 1 && inst.words[1] == c {
			found = true
			return false
		}
		return true
	})
	return found
}

// addCapability returns module with capability c declared. Capabilities
// come first in a module, so the instruction goes right after the header.
func addCapability(module []uint32, c uint32) []uint32 {
	if hasCapability(module, c) {
		return module
	}
	out := make([]uint32, 0, len(module)+2)
	out = append(out, module[:spirvHeaderSize]...)
	out = append(out, 2<<16|opCapability, c)
	return append(out, module[spirvHeaderSize:]...)
}

// simplifyMinMax rewrites NMin, NMax and NClamp of the GLSL.std.450
// instruction set to FMin, FMax and FClamp in place. It returns the number
// of rewritten instructions.
func simplifyMinMax(module []uint32) int {
	glsl := uint32(0)
	_ = walk(module, func(inst instruction) bool {
		if inst.opcode == opExtInstImport && len(inst.words) > 2 && literalString(inst.words[2:]) == "GLSL.std.450" {
			glsl = inst.words[1]
			return false
		}
		return true
	})
	if glsl == 0 {
		return 0
	}

	replaced := 0
	_ = walk(module, func(inst instruction) bool {
		// OpExtInst: result type, result, set, instruction, operands.
		if inst.opcode != opExtInst || len(inst.words) < 5 || inst.words[3] != glsl {
			return true
		}
		switch inst.words[4] {
		case glslNMin:
			inst.words[4] = glslFMin
		case glslNMax:
			inst.words[4] = glslFMax
		case glslNClamp:
			inst.words[4] = glslFClamp
		default:
			return true
		}
		replaced++
		return true
	})
	return replaced
}

// literalString decodes a nul-terminated SPIR-V literal string.
func literalString(words []uint32) string {
	b := make([]byte, 0, len(words)*4)
	for _, w := range words {
		for i := range 4 {
			c := byte(w >> (8 * i))
			if c == 0 {
				return string(b)
			}
			b = append(b, c)
		}
	}
	return string(b)
}
