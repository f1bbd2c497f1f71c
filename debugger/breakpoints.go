/*
   us64 debugger: breakpoint table.

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

package debugger

import (
	"fmt"

	"github.com/rcornwell/us64/vm"
)

// breakpoint records the byte a BREAKPOINT (0x0E) install displaced,
// so Remove can restore it.
type breakpoint struct {
	segx   uint16
	addr   uint64
	byte   byte
	exists bool
}

// breakpoints is a simple slice-backed table; installs are rare enough
// relative to clock ticks that a map is not worth its overhead.
type breakpoints struct {
	points []breakpoint
}

func (b *breakpoints) find(segx uint16, addr uint64) int {
	for i := range b.points {
		if b.points[i].exists && b.points[i].segx == segx && b.points[i].addr == addr {
			return i
		}
	}
	return -1
}

// Install overwrites the byte at (segx, addr) with BREAKPOINT (0x0E),
// recording the displaced byte for later removal.
func (b *breakpoints) Install(m *vm.Machine, segx uint16, addr uint64) error {
	if b.find(segx, addr) >= 0 {
		return fmt.Errorf("breakpoint already set at %04x:%x", segx, addr)
	}
	data, irq := m.ReadMem(segx, addr, 1)
	if irq != vm.NIRQs {
		return fmt.Errorf("cannot read %04x:%x: irq %d", segx, addr, irq)
	}
	orig := data[0]
	if wirq := m.WriteMem(segx, addr, []byte{vm.OpBreak}); wirq != vm.NIRQs {
		return fmt.Errorf("cannot install breakpoint at %04x:%x: irq %d", segx, addr, wirq)
	}
	b.points = append(b.points, breakpoint{segx: segx, addr: addr, byte: orig, exists: true})
	return nil
}

// Remove restores the displaced byte at (segx, addr) and frees the
// slot iff a breakpoint was actually present there.
func (b *breakpoints) Remove(m *vm.Machine, segx uint16, addr uint64) error {
	i := b.find(segx, addr)
	if i < 0 {
		return fmt.Errorf("no breakpoint at %04x:%x", segx, addr)
	}
	bp := b.points[i]
	if wirq := m.WriteMem(bp.segx, bp.addr, []byte{bp.byte}); wirq != vm.NIRQs {
		return fmt.Errorf("cannot restore byte at %04x:%x: irq %d", segx, addr, wirq)
	}
	bp.exists = false
	b.points[i] = bp
	return nil
}

// List returns the currently installed breakpoints.
func (b *breakpoints) List() []breakpoint {
	out := make([]breakpoint, 0, len(b.points))
	for _, bp := range b.points {
		if bp.exists {
			out = append(out, bp)
		}
	}
	return out
}
