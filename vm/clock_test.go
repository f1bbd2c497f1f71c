package vm

import (
	"testing"

	"github.com/rcornwell/us64/memory"
)

func TestClockOutOfClocksWhenBudgetExhausted(t *testing.T) {
	mem := memory.New(4096)
	m := New(mem, Options{MaxClocks: 2}, nil)
	m.Regs[SP] = 2048
	writeIDE(m, 0, OutOfClocks, 1, 0x10)
	// ADD AX, CX twice: a clean two-byte instruction that never traps.
	m.Mem.WritePhysical(0, []byte{OpAddRRmW, 0xC1, OpAddRRmW, 0xC1})

	if irq := m.Clock(); irq != NIRQs {
		t.Fatalf("tick 1 irq = %d, want NIRQs", irq)
	}
	if irq := m.Clock(); irq != NIRQs {
		t.Fatalf("tick 2 irq = %d, want NIRQs", irq)
	}
	if m.Regs[CLOCK] != 2 {
		t.Fatalf("CLOCK = %d, want 2", m.Regs[CLOCK])
	}
	if irq := m.Clock(); irq != OutOfClocks {
		t.Fatalf("tick 3 irq = %d, want OutOfClocks", irq)
	}
	if m.Regs[CLOCK] != 2 {
		t.Errorf("CLOCK = %d, want unchanged at 2 (budget-exhausted tick never starts)", m.Regs[CLOCK])
	}
}

func TestClockCountsFaultingTicks(t *testing.T) {
	m := newTestMachine(4096)
	writeIDE(m, 0, UndefinedInst, 1, 0x10)
	m.Mem.WritePhysical(0, []byte{0xFE})

	if irq := m.Clock(); irq != UndefinedInst {
		t.Fatalf("irq = %d, want UndefinedInst", irq)
	}
	if m.Regs[CLOCK] != 1 {
		t.Errorf("CLOCK = %d, want 1 (a faulting tick still consumes a clock)", m.Regs[CLOCK])
	}
}

func TestAdvanceRepStopsWhenCounterReachesZero(t *testing.T) {
	m := newTestMachine(4096)
	m.Regs[CX] = 1
	m.inst.pfx.hasRep = true
	m.inst.pfx.repCond = 0

	m.advanceRep()
	if m.Regs[CX] != 0 {
		t.Fatalf("CX = %d, want 0", m.Regs[CX])
	}
	if m.inst.pfx.hasRep {
		t.Error("hasRep should clear once the counter hits zero")
	}
}

func TestAdvanceRepStopsOnConditionFailureREPE(t *testing.T) {
	m := newTestMachine(4096)
	m.Regs[CX] = 5
	m.Regs[FLAGS] &^= FlagZ
	m.inst.pfx.hasRep = true
	m.inst.pfx.repCond = 0 // REPE: continue while Z set

	m.advanceRep()
	if m.inst.pfx.hasRep {
		t.Error("REPE should stop once Z is clear, even though CX has not reached zero")
	}
	// FlagZ already clear above, so REPE's condition fails immediately.
	if m.Regs[CX] != 4 {
		t.Fatalf("CX = %d, want 4", m.Regs[CX])
	}
}

func TestAdvanceRepContinuesWhileConditionHolds(t *testing.T) {
	m := newTestMachine(4096)
	m.Regs[CX] = 5
	m.Regs[FLAGS] |= FlagZ
	m.inst.pfx.hasRep = true
	m.inst.pfx.repCond = 0 // REPE: continue while Z set

	m.advanceRep()
	if !m.inst.pfx.hasRep {
		t.Error("REPE should keep going while Z stays set and CX is nonzero")
	}
}

func TestAdvanceRepREPNEContinuesWhileZClear(t *testing.T) {
	m := newTestMachine(4096)
	m.Regs[CX] = 5
	m.Regs[FLAGS] &^= FlagZ
	m.inst.pfx.hasRep = true
	m.inst.pfx.repCond = 1 // REPNE: continue while Z clear

	m.advanceRep()
	if !m.inst.pfx.hasRep {
		t.Error("REPNE should keep going while Z stays clear and CX is nonzero")
	}
}

func TestRunStopsOnFlagRunClear(t *testing.T) {
	m := newTestMachine(4096)
	m.Regs[FLAGS] &^= FlagRun
	if irq := m.Run(nil); irq != NIRQs {
		t.Fatalf("Run irq = %d, want NIRQs when FlagRun is already clear", irq)
	}
}

func TestRunStopsOnPredicate(t *testing.T) {
	m := newTestMachine(4096)
	m.Regs[FLAGS] |= FlagRun
	writeIDE(m, 0, Breakpoint, 1, 0x10)
	m.Mem.WritePhysical(0, []byte{OpBreak})

	stopped := false
	irq := m.Run(func(irq uint32) bool {
		stopped = true
		return true
	})
	if irq != Breakpoint {
		t.Fatalf("Run irq = %d, want Breakpoint", irq)
	}
	if !stopped {
		t.Error("stopOn predicate was never consulted")
	}
}

// TestClockRepReDecodesModRMEachIteration exercises a REP-prefixed
// ModRM instruction across several ticks through Clock (not
// advanceRep directly), so it only passes if Execute re-decodes the
// ModRM byte from the same offset on every repeated iteration instead
// of reading forward from wherever the previous iteration's decode
// left cp.
func TestClockRepReDecodesModRMEachIteration(t *testing.T) {
	m := newTestMachine(4096)
	m.Regs[AX] = 1
	m.Regs[CX] = 3
	m.Regs[FLAGS] &^= FlagZ // REPNE: keep going while Z stays clear
	// REPNE prefix (0x65) + ADD AX, CX (reg=AX, rm=CX); every sum is
	// nonzero, so ADD leaves Z clear and only CX ends the repeat.
	m.Mem.WritePhysical(0, []byte{0x65, OpAddRRmW, 0xC1})

	if irq := m.Clock(); irq != NIRQs {
		t.Fatalf("tick 1 irq = %d, want NIRQs", irq)
	}
	if m.Regs[AX] != 1+3 {
		t.Fatalf("AX after tick 1 = %d, want %d", m.Regs[AX], 1+3)
	}
	if m.Regs[CX] != 2 {
		t.Fatalf("CX after tick 1 = %d, want 2", m.Regs[CX])
	}

	if irq := m.Clock(); irq != NIRQs {
		t.Fatalf("tick 2 irq = %d, want NIRQs", irq)
	}
	if m.Regs[AX] != 4+2 {
		t.Fatalf("AX after tick 2 = %d, want %d (ModRM must re-decode the same byte, not drift forward)", m.Regs[AX], 4+2)
	}
	if m.Regs[CX] != 1 {
		t.Fatalf("CX after tick 2 = %d, want 1", m.Regs[CX])
	}

	if irq := m.Clock(); irq != NIRQs {
		t.Fatalf("tick 3 irq = %d, want NIRQs", irq)
	}
	if m.Regs[AX] != 6+1 {
		t.Fatalf("AX after tick 3 = %d, want %d", m.Regs[AX], 6+1)
	}
	if m.Regs[CX] != 0 {
		t.Fatalf("CX after tick 3 = %d, want 0 (REP stops when the counter reaches zero)", m.Regs[CX])
	}
	if m.inst.pfx.hasRep {
		t.Error("hasRep should have cleared once CX reached zero")
	}
}
