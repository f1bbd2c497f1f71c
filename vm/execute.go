/*
   us64 core: instruction execution.

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

import "math/bits"

// Execute dispatches the decoded instruction. The opcode byte alone
// selects the handler: the two-byte escape traps as UndefinedInst
// whatever op[1] holds, and every byte not named in the one-byte table
// ends up in the default arm.
func (m *Machine) Execute() uint32 {
	switch m.inst.op[0] {
	case OpAddRRm, OpAddRRmW:
		return m.execArith(false, false, m.inst.opSize)
	case OpAddRmR, OpAddRmRW:
		return m.execArith(false, true, m.inst.opSize)
	case OpSubRRm, OpSubRRmW:
		return m.execArith(true, false, m.inst.opSize)
	case OpSubRmR, OpSubRmRW:
		return m.execArith(true, true, m.inst.opSize)
	case OpInt:
		return m.execInt()
	case OpIret:
		return m.execIret()
	case OpCmpRRm, OpCmpRRmW:
		return m.execCmp(false, m.inst.opSize)
	case OpCmpRmR, OpCmpRmRW:
		return m.execCmp(true, m.inst.opSize)
	case OpBreak:
		return m.execTrap(Breakpoint)
	case OpTwoByte:
		return m.execTrap(UndefinedInst)
	default:
		if m.inst.op[0] >= OpPrefixLo && m.inst.op[0] <= OpPrefixHi {
			return m.execTrap(NonMaskable)
		}
		return m.execTrap(UndefinedInst)
	}
}

// execTrap advances IP past the current instruction and raises irq
// unconditionally; used for INT3, the two-byte escape, and any
// undecoded or corrupt opcode byte.
func (m *Machine) execTrap(irq uint32) uint32 {
	m.Regs[IP] = m.inst.savedIP + uint64(m.inst.cp)
	return m.Int(irq)
}

func (m *Machine) execInt() uint32 {
	if irq := m.readImm(1); irq != NIRQs {
		return irq
	}
	vector := uint32(uint8(m.inst.imm))
	m.Regs[IP] = m.inst.savedIP + uint64(m.inst.cp)
	return m.Int(vector)
}

func (m *Machine) execIret() uint32 {
	m.Regs[IP] = m.inst.savedIP + uint64(m.inst.cp)
	return m.Iret()
}

// execArith implements ADD/SUB's {r,r/m}/{r/m,r} forms. rmDest selects
// which side of the operation is written back.
func (m *Machine) execArith(isSub, rmDest bool, width uint64) uint32 {
	if irq := m.decodeModRM(); irq != NIRQs {
		return irq
	}
	m.Regs[IP] = m.inst.savedIP + uint64(m.inst.cp)

	regVal := m.GetReg(m.inst.rm.reg, width)
	rmVal, irq := m.readRM(width)
	if irq != NIRQs {
		return irq
	}

	var a, b uint64
	if rmDest {
		a, b = rmVal, regVal
	} else {
		a, b = regVal, rmVal
	}
	var result uint64
	if isSub {
		result = (a - b) & widthMask(width)
	} else {
		result = (a + b) & widthMask(width)
	}
	m.updateFlagsArith(isSub, a, b, width)

	if rmDest {
		return m.writeRM(width, result)
	}
	m.SetReg(m.inst.rm.reg, width, result)
	return NIRQs
}

// execCmp computes r-rm or rm-r for flags only; neither operand is
// written back.
func (m *Machine) execCmp(rmDest bool, width uint64) uint32 {
	if irq := m.decodeModRM(); irq != NIRQs {
		return irq
	}
	m.Regs[IP] = m.inst.savedIP + uint64(m.inst.cp)

	regVal := m.GetReg(m.inst.rm.reg, width)
	rmVal, irq := m.readRM(width)
	if irq != NIRQs {
		return irq
	}

	var a, b uint64
	if rmDest {
		a, b = rmVal, regVal
	} else {
		a, b = regVal, rmVal
	}
	m.updateFlagsArith(true, a, b, width)
	return NIRQs
}

// readRM reads the ModRM r/m operand: the register rm.rm at mod=3,
// otherwise memory at the resolved (segx, addr).
func (m *Machine) readRM(width uint64) (uint64, uint32) {
	if !m.inst.memOperand {
		return m.GetReg(m.inst.rm.rm, width), NIRQs
	}
	return m.readUint(m.inst.segx, m.inst.addr, width)
}

// writeRM writes the ModRM r/m operand, register or memory.
func (m *Machine) writeRM(width uint64, value uint64) uint32 {
	if !m.inst.memOperand {
		m.SetReg(m.inst.rm.rm, width, value)
		return NIRQs
	}
	return m.writeUint(m.inst.segx, m.inst.addr, width, value)
}

func widthMask(width uint64) uint64 {
	if width >= 8 {
		return ^uint64(0)
	}
	return (uint64(1) << (width * 8)) - 1
}

// updateFlagsArith sets C, P, A, Z, S, O per conventional two's
// complement rules for a+b (isSub false) or a-b (isSub true) at the
// given operand width. Parity is computed over the low byte of the
// result, matching the architecture's byte-granular parity convention.
func (m *Machine) updateFlagsArith(isSub bool, a, b, width uint64) {
	bitWidth := width * 8
	mask := widthMask(width)
	am, bm := a&mask, b&mask

	var sum uint64
	var carry bool
	if isSub {
		sum = (am - bm) & mask
		carry = am < bm
	} else {
		full := am + bm
		sum = full & mask
		carry = full > mask
	}

	signBit := uint64(1) << (bitWidth - 1)
	signA := am&signBit != 0
	signB := bm&signBit != 0
	signR := sum&signBit != 0

	var overflow bool
	if isSub {
		overflow = signA != signB && signR != signA
	} else {
		overflow = signA == signB && signR != signA
	}

	aux := (am&0xF)+(bm&0xF) > 0xF
	if isSub {
		aux = am&0xF < bm&0xF
	}

	m.Regs[FLAGS] &^= uint64(FlagC | FlagP | FlagA | FlagZ | FlagS | FlagO)
	if carry {
		m.Regs[FLAGS] |= FlagC
	}
	if bits.OnesCount8(uint8(sum))%2 == 0 {
		m.Regs[FLAGS] |= FlagP
	}
	if aux {
		m.Regs[FLAGS] |= FlagA
	}
	if sum == 0 {
		m.Regs[FLAGS] |= FlagZ
	}
	if signR {
		m.Regs[FLAGS] |= FlagS
	}
	if overflow {
		m.Regs[FLAGS] |= FlagO
	}
}
