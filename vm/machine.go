/*
   us64 core: machine state.

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

import (
	"log/slog"

	"github.com/rcornwell/us64/memory"
)

// Options holds the tunable knobs that do not come from the loaded image.
type Options struct {
	Verbose   bool
	MaxClocks uint64 // all-ones ("unlimited") sentinel: never raise OutOfClocks
}

// Unlimited is the MaxClocks sentinel meaning "no clock budget".
const Unlimited uint64 = ^uint64(0)

// prefixes captures the prefix-scan results for the instruction in flight.
type prefixes struct {
	hasSegOverride bool
	segOverride    int
	hasSizeOv      bool // 0x66
	hasAddrOv      bool // 0x67
	hasRep         bool
	repCond        uint8
	hasIPRelative  bool
}

// modRM captures the decoded ModRM byte.
type modRM struct {
	mod uint8
	reg uint8
	rm  uint8
}

// sib captures the decoded SIB byte.
type sib struct {
	scale uint8
	index uint8
	base  uint8
}

// IWork is the instruction work area, reset at the start of every
// non-repeated clock tick.
type IWork struct {
	savedIP   uint64
	cp        int
	bodyCp    int // cp immediately after the opcode, before ModRM/SIB/immediate decode
	code      [16]byte
	op        [2]byte
	opSize    uint64
	addrSize  uint64
	pfx       prefixes
	rm        modRM
	sb        sib
	segx      uint16
	addr      uint64
	imm       int64
	immValid  bool
	memOperand bool // r/m operand resolved to memory, not a register
}

// Machine is the aggregate state of one register machine instance.
type Machine struct {
	Regs [NRegs]uint64
	Segs [NSegs]uint16

	Mem *memory.Memory
	Opt Options

	LastIRQ uint32

	inst IWork

	Log *slog.Logger
}

// New constructs a machine over the given memory with the given options.
// All registers, segment registers, and the instruction work area start
// zeroed; callers typically follow with an image load.
func New(mem *memory.Memory, opt Options, log *slog.Logger) *Machine {
	if log == nil {
		log = slog.Default()
	}
	m := &Machine{Mem: mem, Opt: opt, Log: log}
	m.LastIRQ = NIRQs
	return m
}

// Reset zeroes all registers, segment registers, and the instruction
// work area, as required after an image load.
func (m *Machine) Reset() {
	m.Regs = [NRegs]uint64{}
	m.Segs = [NSegs]uint16{}
	m.inst = IWork{}
	m.LastIRQ = NIRQs
}

// Running reports whether FLAGS.FlagRun is set.
func (m *Machine) Running() bool {
	return m.Regs[FLAGS]&FlagRun != 0
}

// IOPL returns the current I/O privilege level from FLAGS bits 12-13.
func (m *Machine) IOPL() uint8 {
	return uint8((m.Regs[FLAGS] & FlagIOPL) >> iopShift)
}

func (m *Machine) logf(msg string, args ...any) {
	if m.Opt.Verbose {
		m.Log.Debug(msg, args...)
	}
}
