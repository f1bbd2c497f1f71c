/*
   us64 core: translated memory read/write.

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

// ReadMem reads size bytes at (segx, addr) through the translator.
// Translation precedes the copy; on failure no bytes are returned and
// the raised IRQ is reported.
func (m *Machine) ReadMem(segx uint16, addr uint64, size uint64) ([]byte, uint32) {
	phys := addr
	sz := size
	if irq := m.Translate(segx, &phys, &sz, PermR); irq != NIRQs {
		return nil, irq
	}
	m.logf("mem read", "segx", segx, "addr", addr, "size", sz)
	return m.Mem.ReadPhysical(phys, sz), NIRQs
}

// WriteMem writes data at (segx, addr) through the translator. No
// partial writes are persisted if translation fails.
func (m *Machine) WriteMem(segx uint16, addr uint64, data []byte) uint32 {
	phys := addr
	sz := uint64(len(data))
	if irq := m.Translate(segx, &phys, &sz, PermW); irq != NIRQs {
		return irq
	}
	m.logf("mem write", "segx", segx, "addr", addr, "size", sz)
	m.Mem.WritePhysical(phys, data[:sz])
	return NIRQs
}

// readUint reads a width-byte (1, 2, 4, or 8) little-endian unsigned
// value at (segx, addr).
func (m *Machine) readUint(segx uint16, addr uint64, width uint64) (uint64, uint32) {
	data, irq := m.ReadMem(segx, addr, width)
	if irq != NIRQs {
		return 0, irq
	}
	return decodeUint(data), NIRQs
}

// writeUint writes the low width bytes of value little-endian at
// (segx, addr).
func (m *Machine) writeUint(segx uint16, addr uint64, width uint64, value uint64) uint32 {
	return m.WriteMem(segx, addr, encodeUint(width, value))
}

func decodeUint(data []byte) uint64 {
	switch len(data) {
	case 1:
		return uint64(data[0])
	case 2:
		return uint64(binary.LittleEndian.Uint16(data))
	case 4:
		return uint64(binary.LittleEndian.Uint32(data))
	case 8:
		return binary.LittleEndian.Uint64(data)
	default:
		var v uint64
		for i := len(data) - 1; i >= 0; i-- {
			v = (v << 8) | uint64(data[i])
		}
		return v
	}
}

func encodeUint(width uint64, value uint64) []byte {
	buf := make([]byte, width)
	switch width {
	case 1:
		buf[0] = byte(value)
	case 2:
		binary.LittleEndian.PutUint16(buf, uint16(value))
	case 4:
		binary.LittleEndian.PutUint32(buf, uint32(value))
	case 8:
		binary.LittleEndian.PutUint64(buf, value)
	default:
		for i := uint64(0); i < width; i++ {
			buf[i] = byte(value >> (8 * i))
		}
	}
	return buf
}
