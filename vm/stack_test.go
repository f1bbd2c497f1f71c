package vm

import "testing"

func TestPushPopRoundTrip(t *testing.T) {
	m := newTestMachine(4096)
	sp0 := m.Regs[SP]

	if irq := m.Push(8, 0x1122334455667788); irq != NIRQs {
		t.Fatalf("Push irq = %d, want NIRQs", irq)
	}
	if m.Regs[SP] != sp0-8 {
		t.Fatalf("SP = %d, want %d", m.Regs[SP], sp0-8)
	}
	got, irq := m.Pop(8)
	if irq != NIRQs {
		t.Fatalf("Pop irq = %d, want NIRQs", irq)
	}
	if got != 0x1122334455667788 {
		t.Errorf("Pop = %#x, want 0x1122334455667788", got)
	}
	if m.Regs[SP] != sp0 {
		t.Errorf("SP = %d after round trip, want %d", m.Regs[SP], sp0)
	}
}

func TestPushBytesPopBytesRoundTrip(t *testing.T) {
	m := newTestMachine(4096)
	data := []byte{1, 2, 3, 4}
	if irq := m.PushBytes(data); irq != NIRQs {
		t.Fatalf("PushBytes irq = %d", irq)
	}
	got, irq := m.PopBytes(4)
	if irq != NIRQs {
		t.Fatalf("PopBytes irq = %d", irq)
	}
	for i, b := range data {
		if got[i] != b {
			t.Errorf("byte %d = %#x, want %#x", i, got[i], b)
		}
	}
}

// TestPushStackOverflow pushes more bytes than SP has room for while
// still leaving enough room below SP for the StackOverflow handler's
// own 12-byte context save, so the handler entry itself succeeds and
// the IRQ the caller observes is cleanly StackOverflow, not an
// escalation to InterruptFault.
func TestPushStackOverflow(t *testing.T) {
	m := newTestMachine(256)
	m.Regs[SP] = 16

	data := make([]byte, 20)
	if irq := m.PushBytes(data); irq != StackOverflow {
		t.Fatalf("irq = %d, want StackOverflow", irq)
	}
}

// TestPopStackUnderflow reads past the end of memory from near its top,
// where SP itself stays in bounds throughout, so the handler's own
// context save has all the room it needs.
func TestPopStackUnderflow(t *testing.T) {
	m := newTestMachine(256)
	m.Regs[SP] = 250

	_, irq := m.PopBytes(8)
	if irq != StackUnderflow {
		t.Fatalf("irq = %d, want StackUnderflow", irq)
	}
}
