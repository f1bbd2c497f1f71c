package vm

import (
	"sync"
	"testing"
	"time"
)

type recordingDebugger struct {
	mu      sync.Mutex
	entries []uint32
}

func (d *recordingDebugger) Enter(m *Machine, irq uint32) {
	d.mu.Lock()
	d.entries = append(d.entries, irq)
	d.mu.Unlock()
	m.Regs[FLAGS] &^= FlagRun
}

func (d *recordingDebugger) seen() []uint32 {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]uint32, len(d.entries))
	copy(out, d.entries)
	return out
}

func TestDriverStopsWhenMachineHalts(t *testing.T) {
	m := newTestMachine(4) // too small to hold any IDT: Breakpoint double-faults and halts
	m.Regs[SP] = 2
	m.Regs[FLAGS] |= FlagRun
	m.Mem.WritePhysical(0, []byte{OpBreak})

	d := NewDriver(m, nil)
	d.Start()
	defer d.Stop()

	deadline := time.Now().Add(time.Second)
	for m.Running() && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if m.Running() {
		t.Fatal("machine should have halted after a double fault")
	}
}

func TestDriverStopReturnsWhenIdle(t *testing.T) {
	m := newTestMachine(4096)
	m.Regs[FLAGS] &^= FlagRun

	d := NewDriver(m, nil)
	d.Start()
	d.Stop()
}

func TestDriverInvokesDebuggerOnNonBreakpointFaultWhenNotVerbose(t *testing.T) {
	m := newTestMachine(4096)
	m.Regs[FLAGS] |= FlagRun
	writeIDE(m, 0, UndefinedInst, 1, 0x10)
	m.Mem.WritePhysical(0, []byte{0xFE})

	dbg := &recordingDebugger{}
	d := NewDriver(m, dbg)
	d.Start()
	defer d.Stop()

	deadline := time.Now().Add(time.Second)
	for len(dbg.seen()) == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	seen := dbg.seen()
	if len(seen) == 0 || seen[0] != UndefinedInst {
		t.Fatalf("debugger entries = %v, want first entry UndefinedInst", seen)
	}
}

func TestDriverSkipsDebuggerWhenVerbose(t *testing.T) {
	m := newTestMachine(4096)
	m.Opt.Verbose = true
	m.Regs[FLAGS] |= FlagRun
	writeIDE(m, 0, UndefinedInst, 1, 0x10)
	m.Mem.WritePhysical(0, []byte{0xFE, 0xFE, 0xFE})

	dbg := &recordingDebugger{}
	d := NewDriver(m, dbg)
	d.Start()

	time.Sleep(20 * time.Millisecond)
	d.Stop()

	if len(dbg.seen()) != 0 {
		t.Errorf("debugger should not be consulted while verbose, got %v", dbg.seen())
	}
}
