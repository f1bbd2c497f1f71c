// Package memory implements the flat byte-addressable store owned by a
// single machine instance.
/*
 * us64  - Low level memory
 *
 * Copyright 2024, Richard Cornwell
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in
 * all copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 */

package memory

// Memory is the byte array backing a machine. Its size never changes
// once constructed.
type Memory struct {
	data []byte
}

// New allocates size bytes of zeroed memory.
func New(size uint64) *Memory {
	return &Memory{data: make([]byte, size)}
}

// Size returns the number of bytes owned by this memory.
func (m *Memory) Size() uint64 {
	return uint64(len(m.data))
}

// InBounds reports whether [addr, addr+size) lies entirely within memory.
func (m *Memory) InBounds(addr, size uint64) bool {
	if addr > m.Size() {
		return false
	}
	end := addr + size
	return end >= addr && end <= m.Size()
}

// ReadPhysical copies size bytes starting at addr into a new slice. The
// caller must have already bounds-checked; this is the direct physical
// path used by the translator itself when it fetches descriptor table
// entries, bypassing any further translation.
func (m *Memory) ReadPhysical(addr, size uint64) []byte {
	out := make([]byte, size)
	copy(out, m.data[addr:addr+size])
	return out
}

// WritePhysical copies data into memory starting at addr.
func (m *Memory) WritePhysical(addr uint64, data []byte) {
	copy(m.data[addr:addr+uint64(len(data))], data)
}
