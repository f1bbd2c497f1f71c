package disasm

import "testing"

func TestOneBreak(t *testing.T) {
	text, n := One([]byte{0x0E, 0, 0, 0})
	if text != "int3" || n != 1 {
		t.Errorf("got %q, %d", text, n)
	}
}

func TestOneInt(t *testing.T) {
	text, n := One([]byte{0x08, 0x03})
	if text != "int 0x03" || n != 2 {
		t.Errorf("got %q, %d", text, n)
	}
}

func TestOneArithRegDirect(t *testing.T) {
	// ADD AX,CX width-4 (op&1=1, no 0x66): modrm mod=3 reg=0(AX) rm=1(CX)
	modrm := byte(3<<6 | 0<<3 | 1)
	text, n := One([]byte{0x01, modrm})
	if text != "add ax, cx" || n != 2 {
		t.Errorf("got %q, %d", text, n)
	}
}

func TestOneUndefined(t *testing.T) {
	text, n := One([]byte{0xFF})
	if text != "(undefined)" || n != 1 {
		t.Errorf("got %q, %d", text, n)
	}
}
