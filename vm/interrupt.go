/*
   us64 core: interrupt entry and return.

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

// readIDE fetches the Interrupt Descriptor Entry for irq directly out
// of physical memory. Like the SDE fetch, this bypasses the
// translator: the IDT's segment index is carried in the IDT register
// only for wire-format symmetry with other far pointers, the base is
// used directly as a physical address.
func (m *Machine) readIDE(irq uint32) (uint64, bool) {
	_, idtBase := splitFarPointer(m.Regs[IDT])
	addr := idtBase + uint64(irq)*8
	if !m.Mem.InBounds(addr, 8) {
		return 0, false
	}
	return binary.LittleEndian.Uint64(m.Mem.ReadPhysical(addr, 8)), true
}

// stackAddr translates a stack push/pop target the same way Translate
// would, but never raises a fault on failure: it just reports ok=false.
// enterISR and the pushBytesFault/popBytesFault helpers in stack.go use
// this instead of WriteMem/ReadMem, because those call Int directly on
// a translation failure, which would either recurse without bound
// (enterISR failing while already inside Int saving context for that
// same fault) or raise the wrong IRQ (a stack access masking
// StackOverflow/StackUnderflow behind whatever Translate itself
// raised).
func (m *Machine) stackAddr(offset, size uint64) (uint64, bool) {
	if m.Regs[FLAGS]&FlagV == 0 {
		memSize := m.Mem.Size()
		if offset > memSize || size > memSize-offset {
			return 0, false
		}
		return offset, true
	}
	d, ok := m.readSDE(m.Segs[STACK])
	if !ok || (d.perm&(PermP|PermW)) != (PermP|PermW) || d.iopl < m.IOPL() {
		return 0, false
	}
	if offset > d.size || size > d.size-offset {
		return 0, false
	}
	return d.base + offset, true
}

// enterISR runs the common push-context-and-jump sequence shared by a
// normal interrupt entry and the double-fault path. It never raises a
// further interrupt on a failed push: a push failure here means the
// stack itself cannot hold the saved context, so the caller is told to
// halt rather than recurse.
func (m *Machine) enterISR(ide uint64) (ok bool) {
	flagsLow := encodeUint(4, m.Regs[FLAGS]&0xffffffff)
	n := uint64(4)
	addr, fits := m.stackAddr(m.Regs[SP]-n, n)
	if !fits {
		return false
	}
	m.Mem.WritePhysical(addr, flagsLow)
	m.Regs[SP] -= n

	retFar := encodeUint(8, farPointer(m.Segs[CODE], m.Regs[IP]))
	n = 8
	addr, fits = m.stackAddr(m.Regs[SP]-n, n)
	if !fits {
		m.Regs[SP] += 4
		return false
	}
	m.Mem.WritePhysical(addr, retFar)
	m.Regs[SP] -= n

	m.Regs[FLAGS] |= FlagI
	codeSegx, isrOffset := splitFarPointer(ide)
	m.Segs[CODE] = codeSegx
	m.Regs[IP] = isrOffset
	return true
}

// Int enters IRQ unless it is masked. If the I flag is set and irq is
// not NonMaskable, the IRQ is merely recorded in LastIRQ and the
// current instruction NOPs with respect to control flow. Otherwise the
// full entry sequence runs: push FLAGS, push the return far pointer,
// set I so the handler cannot itself be interrupted by anything
// maskable, and jump to the ISR. Int returns irq when it was masked or
// its ISR was entered, and InterruptFault when the ISR could not be
// entered (see doubleFault); callers compare the result against NIRQs
// to discover whether anything was raised at all, regardless of masking.
func (m *Machine) Int(irq uint32) uint32 {
	m.LastIRQ = irq

	if m.Regs[FLAGS]&FlagI != 0 && irq != NonMaskable {
		m.logf("interrupt masked", "irq", irq)
		return irq
	}

	ide, ok := m.readIDE(irq)
	if !ok {
		return m.doubleFault()
	}
	if !m.enterISR(ide) {
		return m.doubleFault()
	}

	m.LastIRQ = irq
	m.logf("interrupt entered", "irq", irq)
	return irq
}

// doubleFault is reached when the ISR for the original IRQ cannot be
// entered (unreadable IDE or a failed context push). It retries once
// with InterruptFault's own IDE; if that also cannot be entered, the
// stack or descriptor table is broken beyond recovery and the machine
// halts (FlagRun cleared) instead of looping.
func (m *Machine) doubleFault() uint32 {
	m.LastIRQ = InterruptFault
	ide, ok := m.readIDE(InterruptFault)
	if ok && m.enterISR(ide) {
		return InterruptFault
	}
	m.Regs[FLAGS] &^= FlagRun
	m.logf("double fault, halting")
	return InterruptFault
}

// Iret pops the far return pointer and FLAGS, restoring CODE, IP, and
// the low 32 bits of FLAGS, then clears LastIRQ. Pop reads the value
// at SP before advancing SP past it, so the two pops here undo the two
// pushes enterISR made in reverse order.
func (m *Machine) Iret() uint32 {
	retFar, irq := m.Pop(8)
	if irq != NIRQs {
		return irq
	}
	flagsLow, irq := m.Pop(4)
	if irq != NIRQs {
		return irq
	}

	codeSegx, offset := splitFarPointer(retFar)
	m.Segs[CODE] = codeSegx
	m.Regs[IP] = offset
	m.Regs[FLAGS] = (m.Regs[FLAGS] &^ 0xffffffff) | flagsLow

	m.LastIRQ = NIRQs
	return NIRQs
}
