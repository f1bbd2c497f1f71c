/*
   us64 core: clock driver.

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

// Clock runs one tick: check the clock budget, fetch-or-resume,
// execute, and advance CLOCK. It returns NIRQs on a clean tick or the
// IRQ code raised along the way. CLOCK advances whenever a tick
// actually attempts fetch/execute, whether or not that work raised an
// interrupt; the only tick that does not consume a CLOCK increment is
// one that never starts because the budget is already exhausted.
func (m *Machine) Clock() uint32 {
	if m.Regs[CLOCK] == m.Opt.MaxClocks {
		m.logf("clock budget exhausted", "clock", m.Regs[CLOCK])
		return m.Int(OutOfClocks)
	}
	m.logf("clock", "clock", m.Regs[CLOCK], "ip", m.Regs[IP])

	if !m.inst.pfx.hasRep {
		if irq := m.Fetch(); irq != NIRQs {
			m.Regs[CLOCK]++
			return irq
		}
		if irq := m.Decode(); irq != NIRQs {
			m.Regs[CLOCK]++
			return irq
		}
	} else {
		// A repeated tick skips Fetch/Decode but still re-runs Execute,
		// which re-decodes ModRM/SIB/immediate bytes itself. Those reads
		// are keyed off m.inst.cp, left at wherever the previous
		// iteration's decode advanced it to; rewind to the position
		// saved right after Decode so every iteration decodes the same
		// operand bytes instead of running off the end of the buffer.
		m.inst.cp = m.inst.bodyCp
		m.inst.immValid = false
	}

	irq := m.Execute()
	if irq == NIRQs && m.inst.pfx.hasRep {
		m.advanceRep()
	}
	m.Regs[CLOCK]++
	return irq
}

// advanceRep decrements the repeat counter (CX) and re-evaluates the
// REP_cc condition carried by the 0x64/0x65 prefix: repCond=0 behaves
// like REPE (continue while Z is set), repCond=1 like REPNE (continue
// while Z is clear). Once either the counter reaches zero or the
// condition fails, the instruction stops being cached for the next
// tick's Fetch-skip check.
func (m *Machine) advanceRep() {
	if m.Regs[CX] > 0 {
		m.Regs[CX]--
	}
	if m.Regs[CX] == 0 {
		m.inst.pfx.hasRep = false
		return
	}
	zeroFlag := m.Regs[FLAGS]&FlagZ != 0
	cont := zeroFlag
	if m.inst.pfx.repCond != 0 {
		cont = !zeroFlag
	}
	if !cont {
		m.inst.pfx.hasRep = false
	}
}

// Run ticks the machine until FLAGS.FlagRun clears or a tick returns
// an IRQ that the caller's filter function says should stop the loop.
// Callers that want per-IRQ policy (e.g. routing non-breakpoint faults
// to a debugger) pass stopOn; a nil stopOn runs until FlagRun clears or
// any non-NIRQs code is returned.
func (m *Machine) Run(stopOn func(irq uint32) bool) uint32 {
	for m.Running() {
		irq := m.Clock()
		if irq == NIRQs {
			continue
		}
		stop := stopOn == nil
		if stopOn != nil {
			stop = stopOn(irq)
		}
		if stop {
			return irq
		}
	}
	return NIRQs
}
