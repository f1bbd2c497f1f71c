package image

import (
	"testing"

	"github.com/rcornwell/us64/vm"
)

func TestBuildParseRoundTrip(t *testing.T) {
	payload := []byte{0x0E}
	raw := Build(1, 0, uint64(len(payload)), 0, payload)

	img, err := Parse(raw)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if img.MemSize != 1024 {
		t.Errorf("MemSize = %d, want 1024", img.MemSize)
	}
	if img.KerAddr != 0 || img.KerSize != 1 || img.KerJump != 0 {
		t.Errorf("header = %+v", img)
	}
	if len(img.Payload) != 1 || img.Payload[0] != 0x0E {
		t.Errorf("Payload = %v", img.Payload)
	}
}

func TestParseBadMagic(t *testing.T) {
	raw := Build(1, 0, 1, 0, []byte{0x0E})
	raw[0] = 0xFF
	if _, err := Parse(raw); err == nil {
		t.Fatal("expected error for bad magic")
	}
}

func TestParseKernelOutOfBounds(t *testing.T) {
	raw := Build(1, 2000, 1, 0, []byte{0x0E})
	if _, err := Parse(raw); err == nil {
		t.Fatal("expected error for kernel exceeding memory")
	}
}

func TestParseJumpOutOfBounds(t *testing.T) {
	raw := Build(1, 0, 1, 5, []byte{0x0E})
	if _, err := Parse(raw); err == nil {
		t.Fatal("expected error for entry offset outside kernel")
	}
}

func TestNewMachineSetsEntry(t *testing.T) {
	payload := []byte{0x0E}
	img, err := Parse(Build(1, 4, uint64(len(payload)), 0, payload))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	m := img.NewMachine(vm.Options{MaxClocks: vm.Unlimited}, nil)
	if m.Regs[vm.IP] != 4 {
		t.Errorf("IP = %d, want 4", m.Regs[vm.IP])
	}
	data := m.Mem.ReadPhysical(4, 1)
	if data[0] != 0x0E {
		t.Errorf("mem[4] = %x, want 0E", data[0])
	}
}
