/*
   us64 bootscript: pre-boot register and descriptor-table patching.

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

// Package bootscript parses a small line-oriented directive file used
// to seed machine state (registers, segment registers, SDT/IDT
// entries) before the clock loop starts, since the image format itself
// carries only the kernel payload and its entry point.
package bootscript

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"unicode"

	"github.com/rcornwell/us64/vm"
)

var regNames = map[string]uint8{
	"ax": vm.AX, "cx": vm.CX, "dx": vm.DX, "bx": vm.BX,
	"sp": vm.SP, "bp": vm.BP, "si": vm.SI, "di": vm.DI,
	"flags": vm.FLAGS, "ip": vm.IP, "idt": vm.IDT, "sdt": vm.SDT,
	"clock": vm.CLOCK,
}

var segNames = map[string]int{
	"data": vm.DATA, "extra": vm.EXTRA, "stack": vm.STACK, "code": vm.CODE,
}

// line is the per-line cursor, mirroring the position-tracking style
// used by the project's other line-oriented parser.
type line struct {
	text string
	pos  int
	num  int
}

func (l *line) skipSpace() {
	for l.pos < len(l.text) && unicode.IsSpace(rune(l.text[l.pos])) {
		l.pos++
	}
}

func (l *line) isEOL() bool {
	if l.pos >= len(l.text) {
		return true
	}
	return l.text[l.pos] == '#'
}

func (l *line) token() string {
	l.skipSpace()
	start := l.pos
	for l.pos < len(l.text) {
		b := l.text[l.pos]
		if unicode.IsSpace(rune(b)) || b == '#' {
			break
		}
		l.pos++
	}
	return l.text[start:l.pos]
}

// Run applies every directive line to m in order. Supported forms:
//
//	reg <name> <hex>    set a kernel register
//	seg <name> <hex>    set a segment register
//	sde <index> <hex>   write a 32-bit segment descriptor entry
//	ide <irq> <hex>     write a 64-bit interrupt descriptor entry
//
// Blank lines and lines whose first non-space character is '#' are
// ignored. sde/ide write the 32/64-bit value directly at the physical
// address implied by the already-set SDT/IDT register.
func Run(path string, m *vm.Machine) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("bootscript: %w", err)
	}
	defer f.Close()

	reader := bufio.NewReader(f)
	n := 0
	for {
		text, err := reader.ReadString('\n')
		n++
		if len(text) == 0 && err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("bootscript: line %d: %w", n, err)
		}
		l := &line{text: text, num: n}
		if applyErr := applyLine(l, m); applyErr != nil {
			return fmt.Errorf("bootscript: line %d: %w", n, applyErr)
		}
	}
}

func applyLine(l *line, m *vm.Machine) error {
	l.skipSpace()
	if l.isEOL() {
		return nil
	}

	directive := strings.ToLower(l.token())
	switch directive {
	case "reg":
		return applyReg(l, m)
	case "seg":
		return applySeg(l, m)
	case "sde":
		return applyDescriptor(l, m, vm.SDT, 4)
	case "ide":
		return applyDescriptor(l, m, vm.IDT, 8)
	default:
		return fmt.Errorf("unknown directive %q", directive)
	}
}

func applyReg(l *line, m *vm.Machine) error {
	name := strings.ToLower(l.token())
	r, ok := regNames[name]
	if !ok {
		return fmt.Errorf("unknown register %q", name)
	}
	val, err := parseHex(l.token())
	if err != nil {
		return err
	}
	m.Regs[r] = val
	return nil
}

func applySeg(l *line, m *vm.Machine) error {
	name := strings.ToLower(l.token())
	s, ok := segNames[name]
	if !ok {
		return fmt.Errorf("unknown segment %q", name)
	}
	val, err := parseHex(l.token())
	if err != nil {
		return err
	}
	m.Segs[s] = uint16(val)
	return nil
}

// applyDescriptor writes a raw descriptor-table entry. tableReg is
// SDT or IDT; the physical base is the low 48 bits of that register,
// which the caller must already have configured via a prior "reg"
// line.
func applyDescriptor(l *line, m *vm.Machine, tableReg uint8, width int) error {
	index, err := strconv.ParseUint(l.token(), 10, 32)
	if err != nil {
		return fmt.Errorf("bad index: %w", err)
	}
	val, err := parseHex(l.token())
	if err != nil {
		return err
	}

	base := m.Regs[tableReg] & vm.AMask
	addr := base + index*uint64(width)
	buf := make([]byte, width)
	switch width {
	case 4:
		binary.LittleEndian.PutUint32(buf, uint32(val))
	case 8:
		binary.LittleEndian.PutUint64(buf, val)
	}
	m.Mem.WritePhysical(addr, buf)
	return nil
}

func parseHex(tok string) (uint64, error) {
	tok = strings.TrimPrefix(strings.ToLower(tok), "0x")
	if tok == "" {
		return 0, errors.New("missing hex value")
	}
	return strconv.ParseUint(tok, 16, 64)
}
