package bootscript

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rcornwell/us64/memory"
	"github.com/rcornwell/us64/vm"
)

func writeScript(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "boot.txt")
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func newMachine() *vm.Machine {
	return vm.New(memory.New(4096), vm.Options{MaxClocks: vm.Unlimited}, nil)
}

func TestRunSetsRegistersAndSegments(t *testing.T) {
	path := writeScript(t, "# comment\nreg ax 0x2a\nseg code 0x1\n\nreg sp 0x100\n")
	m := newMachine()

	if err := Run(path, m); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if m.Regs[vm.AX] != 0x2a {
		t.Errorf("AX = %#x, want 0x2a", m.Regs[vm.AX])
	}
	if m.Segs[vm.CODE] != 1 {
		t.Errorf("CODE = %d, want 1", m.Segs[vm.CODE])
	}
	if m.Regs[vm.SP] != 0x100 {
		t.Errorf("SP = %#x, want 0x100", m.Regs[vm.SP])
	}
}

func TestRunWritesDescriptorEntries(t *testing.T) {
	path := writeScript(t, "reg sdt 0x0\nsde 1 0xdeadbeef\nreg idt 0x0\nide 3 0x1\n")
	m := newMachine()

	if err := Run(path, m); err != nil {
		t.Fatalf("Run: %v", err)
	}
	sde := m.Mem.ReadPhysical(4, 4)
	if sde[0] != 0xef || sde[3] != 0xde {
		t.Errorf("sde bytes = % x", sde)
	}
	ide := m.Mem.ReadPhysical(24, 8)
	if ide[0] != 1 {
		t.Errorf("ide bytes = % x", ide)
	}
}

func TestRunUnknownDirective(t *testing.T) {
	path := writeScript(t, "bogus foo\n")
	m := newMachine()
	if err := Run(path, m); err == nil {
		t.Fatal("expected error for unknown directive")
	}
}
