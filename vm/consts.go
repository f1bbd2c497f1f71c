// Package vm implements the register machine: kernel and segment
// registers, the address translator, memory I/O, the stack, the
// interrupt engine, instruction fetch/decode/execute, and the clock
// driver described by the us64 architecture.
/*
   us64 core: register, segment, flag and IRQ enumerations.

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

// Kernel register indices.
const (
	AX = iota
	CX
	DX
	BX
	SP
	BP
	SI
	DI
	FLAGS
	IP
	IDT
	SDT
	CLOCK
	R13
	R14
	R15

	NRegs
)

// Segment register indices.
const (
	DATA = iota
	EXTRA
	STACK
	CODE

	NSegs
)

// FLAGS bit positions.
const (
	FlagC    = 1 << 0  // carry
	FlagRun  = 1 << 1  // "1-flag": execution continues while set
	FlagP    = 1 << 2  // parity
	FlagA    = 1 << 4  // auxiliary carry
	FlagZ    = 1 << 6  // zero
	FlagS    = 1 << 7  // sign
	FlagI    = 1 << 9  // interrupt mask: maskable IRQs are held off while set
	FlagD    = 1 << 10 // direction
	FlagO    = 1 << 11 // overflow
	FlagIOPL = 3 << 12 // I/O privilege level, 2 bits
	FlagV    = 1 << 14 // virtual addressing enabled
	FlagIB   = 1 << 15 // ignore-bounds: truncate instead of fault
	FlagB    = 1 << 16 // breakpoint-stop indicator; not set or cleared by the vm or debugger packages
)

const iopShift = 12

// IRQ codes.
const (
	DivByZero = iota
	SingleStep
	NonMaskable
	Breakpoint
	OutOfBounds
	SegmentProtect
	SegmentFault
	StackOverflow
	StackUnderflow
	UndefinedInst
	InterruptFault
	OutOfClocks

	NIRQs = 0x100 // sentinel: no interrupt pending
)

// Segment descriptor entry permission bits (bits 24-27 of the SDE).
const (
	PermP = 1 << 0 // present
	PermX = 1 << 1 // executable
	PermR = 1 << 2 // readable
	PermW = 1 << 3 // writable
)

// AMask masks a value down to the 48-bit offset carried by a far pointer.
const AMask uint64 = (1 << 48) - 1

// One-byte opcode space.
const (
	OpAddRRm   = 0x00
	OpAddRRmW  = 0x01
	OpAddRmR   = 0x02
	OpAddRmRW  = 0x03
	OpSubRRm   = 0x04
	OpSubRRmW  = 0x05
	OpSubRmR   = 0x06
	OpSubRmRW  = 0x07
	OpInt      = 0x08
	OpIret     = 0x09
	OpCmpRRm   = 0x0A
	OpCmpRRmW  = 0x0B
	OpCmpRmR   = 0x0C
	OpCmpRmRW  = 0x0D
	OpBreak    = 0x0E
	OpTwoByte  = 0x0F
	OpPrefixLo = 0x60 // first byte of the segment-override prefix range
	OpPrefixHi = 0x67 // last byte of the address-size override prefix
)
