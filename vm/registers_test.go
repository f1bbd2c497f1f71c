package vm

import "testing"

func TestGetSetRegWidth1LowHigh(t *testing.T) {
	m := newTestMachine(64)

	m.SetReg(0, 1, 0x12) // low byte of AX
	m.SetReg(4, 1, 0x34) // high byte of AX
	if m.Regs[AX] != 0x3412 {
		t.Fatalf("Regs[AX] = %#x, want 0x3412", m.Regs[AX])
	}
	if got := m.GetReg(0, 1); got != 0x12 {
		t.Errorf("GetReg(0,1) = %#x, want 0x12", got)
	}
	if got := m.GetReg(4, 1); got != 0x34 {
		t.Errorf("GetReg(4,1) = %#x, want 0x34", got)
	}
}

func TestGetSetRegWidth2(t *testing.T) {
	m := newTestMachine(64)
	m.Regs[CX] = 0xffffffffffffffff
	m.SetReg(CX, 2, 0xbeef)
	if m.Regs[CX] != 0xffffffffffffbeef {
		t.Errorf("Regs[CX] = %#x, want upper bits preserved", m.Regs[CX])
	}
	if got := m.GetReg(CX, 2); got != 0xbeef {
		t.Errorf("GetReg(CX,2) = %#x, want 0xbeef", got)
	}
}

func TestGetSetRegWidth4(t *testing.T) {
	m := newTestMachine(64)
	m.Regs[DX] = 0xffffffffffffffff
	m.SetReg(DX, 4, 0xdeadbeef)
	if m.Regs[DX] != 0xdeadbeef {
		t.Errorf("Regs[DX] = %#x, want zero-extended 0xdeadbeef", m.Regs[DX])
	}
}

func TestGetSetRegWidth8(t *testing.T) {
	m := newTestMachine(64)
	m.SetReg(BX, 8, 0x0123456789abcdef)
	if got := m.GetReg(BX, 8); got != 0x0123456789abcdef {
		t.Errorf("GetReg(BX,8) = %#x, want 0x0123456789abcdef", got)
	}
}

func TestFarPointerRoundTrip(t *testing.T) {
	fp := farPointer(0x1234, 0x0000deadbeefcafe)
	segx, offset := splitFarPointer(fp)
	if segx != 0x1234 {
		t.Errorf("segx = %#x, want 0x1234", segx)
	}
	if offset != 0x0000deadbeefcafe {
		t.Errorf("offset = %#x, want 0xdeadbeefcafe", offset)
	}
}

func TestWidthForOpcode(t *testing.T) {
	cases := []struct {
		lowBit uint8
		hasZOV bool
		want   uint64
	}{
		{0, false, 1},
		{0, true, 2},
		{1, false, 4},
		{1, true, 8},
	}
	for _, c := range cases {
		if got := widthForOpcode(c.lowBit, c.hasZOV); got != c.want {
			t.Errorf("widthForOpcode(%d,%v) = %d, want %d", c.lowBit, c.hasZOV, got, c.want)
		}
	}
}
