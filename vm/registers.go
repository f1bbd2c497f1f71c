/*
   us64 core: register width accessors.

   Copyright (c) 2024, Richard Cornwell

   Permission is hereby granted, free of charge, to any person obtaining a
   copy of this software and associated documentation files (the "Software"),
   to deal in the Software without restriction, including without limitation
   the rights to use, copy, modify, merge, publish, distribute, sublicense,
   and/or sell copies of the Software, and to permit persons to whom the
   Software is furnished to do so, subject to the following conditions:

   The above copyright notice and this permission notice shall be included in
   all copies or substantial portions of the Software.

   THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
   IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
   FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT.  IN NO EVENT SHALL
   ROBERT M SUPNIK BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY, WHETHER
   IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM, OUT OF OR IN
   CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.

*/

package vm

// GetReg reads width bytes (1, 2, 4, or 8) from register r. Width-1
// reads select the low byte for r < 4 and the high byte of (r-4) for
// r >= 4, following the conventional assembler mapping (AL/CL/DL/BL,
// AH/CH/DH/BH-equivalent).
func (m *Machine) GetReg(r uint8, width uint64) uint64 {
	switch width {
	case 1:
		if r < 4 {
			return m.Regs[r] & 0xff
		}
		return (m.Regs[r-4] >> 8) & 0xff
	case 2:
		return m.Regs[r] & 0xffff
	case 4:
		return m.Regs[r] & 0xffffffff
	default:
		return m.Regs[r]
	}
}

// SetReg writes width bytes into register r. A width-4 write
// zero-extends to the full 64 bits; width-2 preserves the upper 48
// bits; width-8 overwrites entirely; width-1 writes touch only the
// selected high/low byte.
func (m *Machine) SetReg(r uint8, width uint64, value uint64) {
	switch width {
	case 1:
		if r < 4 {
			m.Regs[r] = (m.Regs[r] &^ 0xff) | (value & 0xff)
		} else {
			idx := r - 4
			m.Regs[idx] = (m.Regs[idx] &^ 0xff00) | ((value & 0xff) << 8)
		}
	case 2:
		m.Regs[r] = (m.Regs[r] &^ 0xffff) | (value & 0xffff)
	case 4:
		m.Regs[r] = value & 0xffffffff
	default:
		m.Regs[r] = value
	}
}

// farPointer packs a segment index and 48-bit offset.
func farPointer(segx uint16, offset uint64) uint64 {
	return uint64(segx)<<48 | (offset & AMask)
}

// splitFarPointer unpacks a far pointer into its segment index and offset.
func splitFarPointer(fp uint64) (segx uint16, offset uint64) {
	return uint16(fp >> 48), fp & AMask
}

// widthForOpcode implements the (op&1, has_ZOV) -> width table.
func widthForOpcode(opLowBit uint8, hasZOV bool) uint64 {
	switch {
	case opLowBit == 0 && !hasZOV:
		return 1
	case opLowBit == 0 && hasZOV:
		return 2
	case opLowBit != 0 && !hasZOV:
		return 4
	default:
		return 8
	}
}
