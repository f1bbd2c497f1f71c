package debugger

import (
	"testing"

	"github.com/rcornwell/us64/memory"
	"github.com/rcornwell/us64/vm"
)

func newMachine() *vm.Machine {
	mem := memory.New(64)
	return vm.New(mem, vm.Options{MaxClocks: vm.Unlimited}, nil)
}

func TestInstallAndRemove(t *testing.T) {
	m := newMachine()
	m.Mem.WritePhysical(8, []byte{0x01, 0x02})

	var bp breakpoints
	if err := bp.Install(m, 0, 8); err != nil {
		t.Fatalf("Install: %v", err)
	}
	data, _ := m.ReadMem(0, 8, 1)
	if data[0] != vm.OpBreak {
		t.Errorf("byte at addr = %#x, want OpBreak", data[0])
	}

	if err := bp.Install(m, 0, 8); err == nil {
		t.Fatal("expected error re-installing at same address")
	}

	if err := bp.Remove(m, 0, 8); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	data, _ = m.ReadMem(0, 8, 1)
	if data[0] != 0x01 {
		t.Errorf("byte at addr after remove = %#x, want 0x01", data[0])
	}

	if err := bp.Remove(m, 0, 8); err == nil {
		t.Fatal("expected error removing already-removed breakpoint")
	}
}

func TestListOnlyShowsLive(t *testing.T) {
	m := newMachine()
	m.Mem.WritePhysical(0, []byte{0x01})
	m.Mem.WritePhysical(1, []byte{0x02})

	var bp breakpoints
	_ = bp.Install(m, 0, 0)
	_ = bp.Install(m, 0, 1)
	_ = bp.Remove(m, 0, 0)

	live := bp.List()
	if len(live) != 1 || live[0].addr != 1 {
		t.Errorf("List() = %+v", live)
	}
}
