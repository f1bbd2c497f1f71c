/*
   us64 debugger: interactive console collaborator.

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

// Package debugger is the external collaborator the clock driver
// yields to on a non-BREAKPOINT interrupt in non-verbose mode. Its
// command language and presentation are not normative; only the
// underlying register/memory/breakpoint operations it drives are.
package debugger

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/peterh/liner"

	"github.com/rcornwell/us64/disasm"
	"github.com/rcornwell/us64/util/hex"
	"github.com/rcornwell/us64/vm"
)

var regNames = []string{"ax", "cx", "dx", "bx", "sp", "bp", "si", "di", "flags", "ip", "idt", "sdt", "clock"}

// Console is a liner-backed REPL offered to the user whenever the
// clock driver yields. It satisfies vm.Debugger.
type Console struct {
	bp        breakpoints
	completer []string
}

// NewConsole builds a Console with its command completion table primed.
func NewConsole() *Console {
	return &Console{completer: []string{"regs", "mem", "break", "unbreak", "step", "cont", "dis", "quit"}}
}

// Enter is called by the clock driver when the machine yields on
// anything but BREAKPOINT. It prints the cause and runs a command
// loop until the user resumes or steps.
func (c *Console) Enter(m *vm.Machine, irq uint32) {
	fmt.Printf("stopped: irq=%d ip=%04x:%x\n", irq, m.Segs[vm.CODE], m.Regs[vm.IP])

	line := liner.NewLiner()
	defer line.Close()
	line.SetCtrlCAborts(true)
	line.SetCompleter(func(partial string) []string {
		var out []string
		for _, cmd := range c.completer {
			if strings.HasPrefix(cmd, partial) {
				out = append(out, cmd)
			}
		}
		return out
	})

	for {
		input, err := line.Prompt("us64dbg> ")
		if err != nil {
			if errors.Is(err, liner.ErrPromptAborted) {
				return
			}
			fmt.Println("error reading line: " + err.Error())
			return
		}
		line.AppendHistory(input)

		stop, err := c.dispatch(m, input)
		if err != nil {
			fmt.Println("error: " + err.Error())
		}
		if stop {
			return
		}
	}
}

func (c *Console) dispatch(m *vm.Machine, input string) (stop bool, err error) {
	fields := strings.Fields(input)
	if len(fields) == 0 {
		return false, nil
	}

	switch fields[0] {
	case "regs":
		printRegs(m)
	case "mem":
		return false, c.cmdMem(m, fields[1:])
	case "break":
		return false, c.cmdBreak(m, fields[1:])
	case "unbreak":
		return false, c.cmdUnbreak(m, fields[1:])
	case "dis":
		return false, c.cmdDis(m, fields[1:])
	case "step", "s":
		return true, nil
	case "cont", "c":
		m.Regs[vm.FLAGS] |= vm.FlagRun
		return true, nil
	case "quit", "q":
		m.Regs[vm.FLAGS] &^= vm.FlagRun
		return true, nil
	default:
		return false, fmt.Errorf("unknown command %q", fields[0])
	}
	return false, nil
}

func printRegs(m *vm.Machine) {
	for i, name := range regNames {
		fmt.Printf("%-5s = %#016x\n", name, m.Regs[i])
	}
	for i, name := range []string{"data", "extra", "stack", "code"} {
		fmt.Printf("%-5s = %#04x\n", name, m.Segs[i])
	}
}

func (c *Console) cmdMem(m *vm.Machine, args []string) error {
	if len(args) != 3 {
		return errors.New("usage: mem <segx> <addr> <len>")
	}
	segx, err := parseUint(args[0])
	if err != nil {
		return err
	}
	addr, err := parseUint(args[1])
	if err != nil {
		return err
	}
	length, err := parseUint(args[2])
	if err != nil {
		return err
	}
	data, irq := m.ReadMem(uint16(segx), addr, length)
	if irq != vm.NIRQs {
		return fmt.Errorf("read failed: irq %d", irq)
	}
	fmt.Print(hex.Dump(addr, data))
	return nil
}

func (c *Console) cmdBreak(m *vm.Machine, args []string) error {
	if len(args) != 2 {
		return errors.New("usage: break <segx> <addr>")
	}
	segx, err := parseUint(args[0])
	if err != nil {
		return err
	}
	addr, err := parseUint(args[1])
	if err != nil {
		return err
	}
	return c.bp.Install(m, uint16(segx), addr)
}

func (c *Console) cmdUnbreak(m *vm.Machine, args []string) error {
	if len(args) != 2 {
		return errors.New("usage: unbreak <segx> <addr>")
	}
	segx, err := parseUint(args[0])
	if err != nil {
		return err
	}
	addr, err := parseUint(args[1])
	if err != nil {
		return err
	}
	return c.bp.Remove(m, uint16(segx), addr)
}

func (c *Console) cmdDis(m *vm.Machine, args []string) error {
	segx := m.Segs[vm.CODE]
	addr := m.Regs[vm.IP]
	if len(args) == 2 {
		s, err := parseUint(args[0])
		if err != nil {
			return err
		}
		a, err := parseUint(args[1])
		if err != nil {
			return err
		}
		segx, addr = uint16(s), a
	}
	data, irq := m.ReadMem(segx, addr, 16)
	if irq != vm.NIRQs {
		return fmt.Errorf("read failed: irq %d", irq)
	}
	text, n := disasm.One(data)
	fmt.Printf("%04x:%x  %s  (%d bytes)\n", segx, addr, text, n)
	return nil
}

func parseUint(tok string) (uint64, error) {
	tok = strings.TrimPrefix(strings.ToLower(tok), "0x")
	return strconv.ParseUint(tok, 16, 64)
}
