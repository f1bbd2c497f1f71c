/*
   us64 core: instruction fetch and decode.

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

import "encoding/binary"

const codeBufSize = 16

// raiseFault advances IP past whatever has been consumed of the
// current instruction so far, then enters irq. A fault raised while
// decoding or executing must leave the saved return address pointing
// past the instruction that caused it, not at its first byte.
func (m *Machine) raiseFault(irq uint32) uint32 {
	m.Regs[IP] = m.inst.savedIP + uint64(m.inst.cp)
	return m.Int(irq)
}

// Fetch loads 16 bytes from (CODE, IP) into a fresh instruction work
// area. IB is forced on for the read so a code segment trimmed to
// fewer than 16 bytes at its tail truncates rather than faults, then
// cleared again.
func (m *Machine) Fetch() uint32 {
	m.inst = IWork{savedIP: m.Regs[IP]}

	m.Regs[FLAGS] |= FlagIB
	data, irq := m.ReadMem(m.Segs[CODE], m.Regs[IP], codeBufSize)
	m.Regs[FLAGS] &^= FlagIB
	if irq != NIRQs {
		return irq
	}
	copy(m.inst.code[:], data)
	return NIRQs
}

// Decode scans prefixes, reads the opcode byte or bytes, and resolves
// operand size, address size, and default segment. ModRM, SIB, and
// immediate decoding are opcode-specific and run lazily from Execute.
func (m *Machine) Decode() uint32 {
	m.scanPrefixes()
	if m.inst.cp >= codeBufSize {
		return m.raiseFault(NonMaskable)
	}
	if irq := m.readOpcode(); irq != NIRQs {
		return irq
	}
	m.applyDefaults()
	m.inst.bodyCp = m.inst.cp
	return NIRQs
}

func (m *Machine) scanPrefixes() {
	for m.inst.cp < codeBufSize {
		b := m.inst.code[m.inst.cp]
		switch {
		case b >= OpPrefixLo && b <= OpPrefixLo+3:
			m.inst.pfx.hasSegOverride = true
			m.inst.pfx.segOverride = int(b & 3)
		case b == 0x64 || b == 0x65:
			m.inst.pfx.hasRep = true
			m.inst.pfx.repCond = b & 1
		case b == 0x66:
			m.inst.pfx.hasSizeOv = true
		case b == 0x67:
			m.inst.pfx.hasAddrOv = true
		default:
			return
		}
		m.inst.cp++
	}
}

// readOpcode treats 0x0F as the two-byte escape, matching OpTwoByte's
// place in the one-byte opcode table rather than 0xF0.
func (m *Machine) readOpcode() uint32 {
	m.inst.op[0] = m.inst.code[m.inst.cp]
	m.inst.cp++
	if m.inst.op[0] == OpTwoByte {
		if m.inst.cp >= codeBufSize {
			return m.raiseFault(NonMaskable)
		}
		m.inst.op[1] = m.inst.code[m.inst.cp]
		m.inst.cp++
	}
	return NIRQs
}

func (m *Machine) applyDefaults() {
	m.inst.opSize = widthForOpcode(m.inst.op[0]&1, m.inst.pfx.hasSizeOv)
	if m.inst.pfx.hasAddrOv {
		m.inst.addrSize = 4
	} else {
		m.inst.addrSize = 8
	}
	m.inst.segx = m.Segs[DATA]
	if m.inst.pfx.hasSegOverride {
		m.inst.segx = m.Segs[m.inst.pfx.segOverride]
	}
}

// decodeModRM reads one ModRM byte and resolves either a register
// operand (mod=3) or an effective address, consuming SIB and
// displacement bytes as required.
func (m *Machine) decodeModRM() uint32 {
	if m.inst.cp >= codeBufSize {
		return m.raiseFault(NonMaskable)
	}
	b := m.inst.code[m.inst.cp]
	m.inst.cp++
	m.inst.rm.mod = (b >> 6) & 3
	m.inst.rm.reg = (b >> 3) & 7
	m.inst.rm.rm = b & 7

	if m.inst.rm.mod == 3 {
		m.inst.memOperand = false
		return NIRQs
	}
	m.inst.memOperand = true

	switch m.inst.rm.mod {
	case 0:
		switch m.inst.rm.rm {
		case 5:
			d, irq := m.readDisp32()
			if irq != NIRQs {
				return irq
			}
			m.inst.pfx.hasIPRelative = true
			m.inst.addr = uint64(d)
		case 4:
			if irq := m.decodeSIB(0); irq != NIRQs {
				return irq
			}
		default:
			m.inst.addr = m.GetReg(m.inst.rm.rm, m.inst.addrSize)
		}
	case 1:
		if irq := m.resolveBase(1); irq != NIRQs {
			return irq
		}
		d, irq := m.readDisp8()
		if irq != NIRQs {
			return irq
		}
		m.inst.addr += uint64(d)
	case 2:
		if irq := m.resolveBase(2); irq != NIRQs {
			return irq
		}
		d, irq := m.readDisp32()
		if irq != NIRQs {
			return irq
		}
		m.inst.addr += uint64(d)
	}
	return NIRQs
}

func (m *Machine) resolveBase(mod uint8) uint32 {
	if m.inst.rm.rm == 4 {
		return m.decodeSIB(mod)
	}
	m.inst.addr = m.GetReg(m.inst.rm.rm, m.inst.addrSize)
	return NIRQs
}

// decodeSIB reads one SIB byte. For mod=0 with base=5 the base
// register is replaced by a trailing 32-bit displacement; otherwise
// the base register always contributes, and the scaled index
// contributes unless index=4.
func (m *Machine) decodeSIB(mod uint8) uint32 {
	if m.inst.cp >= codeBufSize {
		return m.raiseFault(NonMaskable)
	}
	b := m.inst.code[m.inst.cp]
	m.inst.cp++
	m.inst.sb.scale = (b >> 6) & 3
	m.inst.sb.index = (b >> 3) & 7
	m.inst.sb.base = b & 7

	var addr uint64
	if mod == 0 && m.inst.sb.base == 5 {
		d, irq := m.readDisp32()
		if irq != NIRQs {
			return irq
		}
		addr = uint64(d)
	} else {
		addr = m.GetReg(m.inst.sb.base, m.inst.addrSize)
	}
	if m.inst.sb.index != 4 {
		addr += (uint64(1) << m.inst.sb.scale) * m.GetReg(m.inst.sb.index, m.inst.addrSize)
	}
	m.inst.addr = addr
	return NIRQs
}

func (m *Machine) readDisp8() (int64, uint32) {
	if m.inst.cp >= codeBufSize {
		return 0, m.raiseFault(NonMaskable)
	}
	v := int64(int8(m.inst.code[m.inst.cp]))
	m.inst.cp++
	return v, NIRQs
}

func (m *Machine) readDisp32() (int64, uint32) {
	if m.inst.cp+4 > codeBufSize {
		return 0, m.raiseFault(NonMaskable)
	}
	v := int64(int32(binary.LittleEndian.Uint32(m.inst.code[m.inst.cp : m.inst.cp+4])))
	m.inst.cp += 4
	return v, NIRQs
}

// readImm reads a little-endian immediate of the given width (1, 2, 4,
// or 8 bytes), sign-extends it, and advances cp.
func (m *Machine) readImm(width uint64) uint32 {
	if uint64(m.inst.cp)+width > codeBufSize {
		return m.raiseFault(NonMaskable)
	}
	data := m.inst.code[m.inst.cp : uint64(m.inst.cp)+width]
	m.inst.imm = signExtend(decodeUint(data), width)
	m.inst.immValid = true
	m.inst.cp += int(width)
	return NIRQs
}

func signExtend(v uint64, width uint64) int64 {
	bits := width * 8
	if bits >= 64 {
		return int64(v)
	}
	signBit := uint64(1) << (bits - 1)
	return int64((v ^ signBit) - signBit)
}
