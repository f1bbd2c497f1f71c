/*
   us64 core: stack discipline.

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

// Push decrements SP by n and writes n bytes (little-endian value) at
// (STACK, SP). n must be one of {1, 2, 4, 8}. A failed write raises
// StackOverflow.
func (m *Machine) Push(n uint64, value uint64) uint32 {
	return m.pushBytesFault(n, encodeUint(n, value), StackOverflow)
}

// PushBytes pushes a raw byte slice whose length must be one of
// {1, 2, 4, 8}. A failed write raises StackOverflow.
func (m *Machine) PushBytes(data []byte) uint32 {
	return m.pushBytesFault(uint64(len(data)), data, StackOverflow)
}

// Pop reads n bytes at (STACK, SP) and advances SP by n. n must be one
// of {1, 2, 4, 8}. A failed read raises StackUnderflow.
func (m *Machine) Pop(n uint64) (uint64, uint32) {
	data, irq := m.popBytesFault(n, StackUnderflow)
	if irq != NIRQs {
		return 0, irq
	}
	return decodeUint(data), NIRQs
}

// PopBytes reads n raw bytes at (STACK, SP) and advances SP by n. A
// failed read raises StackUnderflow.
func (m *Machine) PopBytes(n uint64) ([]byte, uint32) {
	return m.popBytesFault(n, StackUnderflow)
}

// pushBytesFault decrements SP, writes data at (STACK, SP), and raises
// onFail if the write does not succeed. The target address is resolved
// with stackAddr rather than WriteMem, because WriteMem raises its own
// SegmentFault/SegmentProtect through Translate on failure; going
// through it here would double-fault into that ISR before this
// function's own m.Int(onFail) ever ran, masking StackOverflow or
// StackUnderflow behind whatever Translate raised instead.
func (m *Machine) pushBytesFault(n uint64, data []byte, onFail uint32) uint32 {
	addr, ok := m.stackAddr(m.Regs[SP]-n, n)
	if !ok {
		return m.Int(onFail)
	}
	m.Regs[SP] -= n
	m.Mem.WritePhysical(addr, data)
	return NIRQs
}

// popBytesFault reads n bytes at (STACK, SP), advances SP, and raises
// onFail if the read does not succeed. See pushBytesFault for why the
// address is resolved with stackAddr instead of ReadMem.
func (m *Machine) popBytesFault(n uint64, onFail uint32) ([]byte, uint32) {
	addr, ok := m.stackAddr(m.Regs[SP], n)
	if !ok {
		return nil, m.Int(onFail)
	}
	data := m.Mem.ReadPhysical(addr, n)
	m.Regs[SP] += n
	return data, NIRQs
}
