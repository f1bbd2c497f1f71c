/*
   us64 core: segmented address translation.

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

import "encoding/binary"

// sde is a decoded Segment Descriptor Entry (32 bits on the wire).
type sde struct {
	base  uint64
	size  uint64
	perm  uint8
	iopl  uint8
}

// decodeSDE unpacks the 32-bit wire encoding of a segment descriptor:
// a scale/granularity pair for both address and size, a 16-bit base
// offset, a permission nibble, and an IOPL.
func decodeSDE(raw uint32) sde {
	sizeScale := uint64(1) << (raw & 0x3)
	sizeGran := (raw >> 2) & 0x3
	addrScale := uint64(1) << ((raw >> 4) & 0x3)
	addrGran := (raw >> 6) & 0x3
	offset := uint64((raw >> 8) & 0xffff)

	return sde{
		base: addrScale<<(10*addrGran) + (offset << 2),
		size: sizeScale << (10 * sizeGran),
		perm: uint8((raw >> 24) & 0xf),
		iopl: uint8((raw >> 28) & 0x3),
	}
}

// readSDE fetches the SDE for segx directly out of physical memory,
// bypassing the translator. The SDT's own segment is never itself
// translated through Translate: doing so would make the translator
// recurse into itself for every virtual access once V is set.
func (m *Machine) readSDE(segx uint16) (sde, bool) {
	sdtSegx, sdtBase := splitFarPointer(m.Regs[SDT])
	_ = sdtSegx // the SDT's own segment index is not itself translated
	addr := sdtBase + uint64(segx)*4
	if !m.Mem.InBounds(addr, 4) {
		return sde{}, false
	}
	raw := binary.LittleEndian.Uint32(m.Mem.ReadPhysical(addr, 4))
	return decodeSDE(raw), true
}

// Translate converts a (segx, addr) virtual reference into a physical
// address, truncating or rejecting size as required. On success it
// returns NIRQs with addr and size rewritten in place; on failure it
// returns the IRQ code that was raised (the interrupt has already been
// entered via Int).
func (m *Machine) Translate(segx uint16, addr *uint64, size *uint64, perm uint8) uint32 {
	if m.Regs[FLAGS]&FlagV == 0 {
		return m.translateIdentity(addr, size)
	}

	d, ok := m.readSDE(segx)
	if !ok {
		return m.Int(SegmentFault)
	}

	requested := perm | PermP
	if (requested & d.perm) != requested {
		return m.Int(SegmentProtect)
	}
	if d.iopl < m.IOPL() {
		return m.Int(SegmentProtect)
	}

	if *addr > d.size {
		return m.Int(SegmentFault)
	}
	remaining := d.size - *addr
	if *size > remaining {
		if m.Regs[FLAGS]&FlagIB == 0 {
			return m.Int(SegmentFault)
		}
		*size = remaining
	}

	*addr = d.base + *addr
	m.logf("translate", "segx", segx, "addr", *addr, "size", *size)
	return NIRQs
}

// translateIdentity implements the V=0 path: the virtual address is the
// physical address, subject only to bounds checking and IB truncation.
func (m *Machine) translateIdentity(addr *uint64, size *uint64) uint32 {
	memSize := m.Mem.Size()
	if *addr > memSize {
		return m.Int(SegmentFault)
	}
	remaining := memSize - *addr
	if *size > remaining {
		if m.Regs[FLAGS]&FlagIB == 0 {
			return m.Int(SegmentFault)
		}
		*size = remaining
	}
	m.logf("translate", "addr", *addr, "size", *size)
	return NIRQs
}
