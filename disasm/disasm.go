/*
   us64 disassembler.

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

// Package disasm renders one machine instruction as text, sharing the
// opcode and ModRM/SIB layout the vm package decodes with.
package disasm

import (
	"fmt"

	"github.com/rcornwell/us64/vm"
)

const (
	tyArith = 1 + iota
	tyImm8
	tyNone
)

type opcode struct {
	name string
	ty   int
}

var opMap = map[byte]opcode{
	vm.OpAddRRm:  {"add", tyArith},
	vm.OpAddRRmW: {"add", tyArith},
	vm.OpAddRmR:  {"add", tyArith},
	vm.OpAddRmRW: {"add", tyArith},
	vm.OpSubRRm:  {"sub", tyArith},
	vm.OpSubRRmW: {"sub", tyArith},
	vm.OpSubRmR:  {"sub", tyArith},
	vm.OpSubRmRW: {"sub", tyArith},
	vm.OpInt:     {"int", tyImm8},
	vm.OpIret:    {"iret", tyNone},
	vm.OpCmpRRm:  {"cmp", tyArith},
	vm.OpCmpRRmW: {"cmp", tyArith},
	vm.OpCmpRmR:  {"cmp", tyArith},
	vm.OpCmpRmRW: {"cmp", tyArith},
	vm.OpBreak:   {"int3", tyNone},
}

var regNames8 = [8]string{"al", "cl", "dl", "bl", "ah", "ch", "dh", "bh"}
var regNamesWide = [8]string{"ax", "cx", "dx", "bx", "sp", "bp", "si", "di"}

func regName(r uint8, width uint64) string {
	if width == 1 {
		return regNames8[r&7]
	}
	return regNamesWide[r&7]
}

// One disassembles the instruction at the start of code (which should
// hold at least 16 bytes, the architecture's fetch window) and returns
// its mnemonic text plus the number of bytes it occupies. An opcode
// byte this package does not recognize still decodes length correctly
// for the one-byte forms; unrecognized ModRM-bearing opcodes are not
// produced by the current table, so length falls back to 1.
func One(code []byte) (text string, length int) {
	cp := 0
	hasSizeOv := false
	for cp < len(code) {
		b := code[cp]
		if (b >= vm.OpPrefixLo && b <= vm.OpPrefixLo+3) || b == 0x64 || b == 0x65 || b == 0x66 || b == 0x67 {
			if b == 0x66 {
				hasSizeOv = true
			}
			cp++
			continue
		}
		break
	}
	if cp >= len(code) {
		return "(truncated)", cp
	}

	op := code[cp]
	cp++
	if op == vm.OpTwoByte {
		if cp >= len(code) {
			return "(truncated two-byte escape)", cp
		}
		cp++
		return "(undefined two-byte)", cp
	}

	def, ok := opMap[op]
	if !ok {
		if op >= vm.OpPrefixLo && op <= vm.OpPrefixHi {
			return "(corrupt opcode byte)", cp
		}
		return "(undefined)", cp
	}

	width := widthFor(op, hasSizeOv)

	switch def.ty {
	case tyNone:
		return def.name, cp
	case tyImm8:
		if cp >= len(code) {
			return def.name + " (truncated)", cp
		}
		imm := code[cp]
		cp++
		return fmt.Sprintf("%s 0x%02x", def.name, imm), cp
	case tyArith:
		if cp >= len(code) {
			return def.name + " (truncated)", cp
		}
		modrm := code[cp]
		cp++
		mod := (modrm >> 6) & 3
		reg := (modrm >> 3) & 7
		rm := modrm & 7

		var rmText string
		if mod == 3 {
			rmText = regName(rm, width)
		} else {
			rmText = fmt.Sprintf("[r%d]", rm)
			switch mod {
			case 0:
				if rm == 5 {
					cp += 4
					rmText = "[disp32]"
				} else if rm == 4 {
					if cp < len(code) {
						if code[cp]&7 == 5 {
							cp += 4 // SIB base=5 at mod=0: a disp32 replaces the base register
						}
						cp++
					}
					rmText = "[sib]"
				}
			case 1:
				if rm == 4 && cp < len(code) {
					cp++
				}
				if cp < len(code) {
					cp++
				}
			case 2:
				if rm == 4 && cp < len(code) {
					cp++
				}
				cp += 4
			}
		}

		regText := regName(reg, width)
		if op == vm.OpAddRmR || op == vm.OpAddRmRW || op == vm.OpSubRmR || op == vm.OpSubRmRW ||
			op == vm.OpCmpRmR || op == vm.OpCmpRmRW {
			return fmt.Sprintf("%s %s, %s", def.name, rmText, regText), cp
		}
		return fmt.Sprintf("%s %s, %s", def.name, regText, rmText), cp
	default:
		return "(undefined)", cp
	}
}

func widthFor(op byte, hasSizeOv bool) uint64 {
	switch {
	case op&1 == 0 && !hasSizeOv:
		return 1
	case op&1 == 0 && hasSizeOv:
		return 2
	case op&1 != 0 && !hasSizeOv:
		return 4
	default:
		return 8
	}
}
