package vm

import "testing"

func TestExecuteAddRegToReg(t *testing.T) {
	m := newTestMachine(4096)
	m.SetReg(AX, 4, 5)
	m.SetReg(CX, 4, 3)
	m.Mem.WritePhysical(0, []byte{OpAddRRmW, 0xC1}) // ADD AX, CX (mod=3 reg=AX rm=CX)

	if irq := m.Clock(); irq != NIRQs {
		t.Fatalf("Clock irq = %d, want NIRQs", irq)
	}
	if got := m.GetReg(AX, 4); got != 8 {
		t.Errorf("AX = %d, want 8", got)
	}
	if m.Regs[IP] != 2 {
		t.Errorf("IP = %d, want 2", m.Regs[IP])
	}
	if m.Regs[FLAGS]&FlagZ != 0 {
		t.Error("FlagZ should be clear for a nonzero result")
	}
	if m.Regs[FLAGS]&FlagC != 0 {
		t.Error("FlagC should be clear (no carry out of 5+3)")
	}
	if m.Regs[CLOCK] != 1 {
		t.Errorf("CLOCK = %d, want 1", m.Regs[CLOCK])
	}
}

func TestExecuteAddRmMemoryOperand(t *testing.T) {
	m := newTestMachine(4096)
	m.SetReg(AX, 4, 7)
	m.SetReg(BX, 8, 100)
	m.Mem.WritePhysical(116, encodeUint(4, 50))
	// ADD [BX+0x10], AX: mod=01 reg=AX(0) rm=BX(3), disp8=0x10
	m.Mem.WritePhysical(0, []byte{OpAddRmRW, 0x43, 0x10})

	if irq := m.Clock(); irq != NIRQs {
		t.Fatalf("Clock irq = %d, want NIRQs", irq)
	}
	got := decodeUint(m.Mem.ReadPhysical(116, 4))
	if got != 57 {
		t.Errorf("memory[116] = %d, want 57", got)
	}
	if m.Regs[IP] != 3 {
		t.Errorf("IP = %d, want 3", m.Regs[IP])
	}
}

func TestExecuteSubSetsFlags(t *testing.T) {
	m := newTestMachine(4096)
	m.SetReg(AX, 4, 3)
	m.SetReg(CX, 4, 5)
	m.Mem.WritePhysical(0, []byte{OpSubRRmW, 0xC1}) // SUB AX, CX -> AX = 3-5

	if irq := m.Clock(); irq != NIRQs {
		t.Fatalf("Clock irq = %d, want NIRQs", irq)
	}
	if m.Regs[FLAGS]&FlagC == 0 {
		t.Error("FlagC should be set (borrow out of 3-5)")
	}
	if m.Regs[FLAGS]&FlagS == 0 {
		t.Error("FlagS should be set (result is negative)")
	}
}

func TestExecuteCmpDoesNotModifyOperands(t *testing.T) {
	m := newTestMachine(4096)
	m.SetReg(AX, 1, 5)
	m.SetReg(CX, 1, 5)
	m.Mem.WritePhysical(0, []byte{OpCmpRRm, 0xC1}) // CMP AX, CX

	if irq := m.Clock(); irq != NIRQs {
		t.Fatalf("Clock irq = %d, want NIRQs", irq)
	}
	if m.Regs[FLAGS]&FlagZ == 0 {
		t.Error("FlagZ should be set (5 == 5)")
	}
	if got := m.GetReg(AX, 1); got != 5 {
		t.Errorf("AX = %d, want unchanged 5", got)
	}
	if got := m.GetReg(CX, 1); got != 5 {
		t.Errorf("CX = %d, want unchanged 5", got)
	}
}

func TestExecuteIntDispatches(t *testing.T) {
	m := newTestMachine(4096)
	writeIDE(m, 0, 0x20, 7, 0x300)
	m.Mem.WritePhysical(0, []byte{OpInt, 0x20})

	irq := m.Clock()
	if irq != 0x20 {
		t.Fatalf("Clock irq = %#x, want 0x20", irq)
	}
	if m.Segs[CODE] != 7 || m.Regs[IP] != 0x300 {
		t.Errorf("ISR entry: CODE=%d IP=%#x, want 7, 0x300", m.Segs[CODE], m.Regs[IP])
	}
}

func TestExecuteUndefinedOpcodeTraps(t *testing.T) {
	m := newTestMachine(4096)
	writeIDE(m, 0, UndefinedInst, 1, 0x10)
	m.Mem.WritePhysical(0, []byte{0xFE}) // not in the one-byte table

	irq := m.Clock()
	if irq != UndefinedInst {
		t.Fatalf("Clock irq = %d, want UndefinedInst", irq)
	}
}

func TestExecuteBreakpointTraps(t *testing.T) {
	m := newTestMachine(4096)
	writeIDE(m, 0, Breakpoint, 1, 0x20)
	m.Mem.WritePhysical(0, []byte{OpBreak})

	irq := m.Clock()
	if irq != Breakpoint {
		t.Fatalf("Clock irq = %d, want Breakpoint", irq)
	}
}
