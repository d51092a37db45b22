package cpu

// parityTable holds F_PARITY for every byte value with even parity.
var parityTable [256]uint8

func init() {
	for i := 0; i < 256; i++ {
		v := uint8(i)
		ones := 0
		for b := 0; b < 8; b++ {
			if v&(1<<b) != 0 {
				ones++
			}
		}
		if ones%2 == 0 {
			parityTable[i] = F_PARITY
		}
	}
}

// setFlags is the shared flag primitive: Carry from the given bit,
// Zero from result == 0, Sign from result bit 7, Parity from even
// parity of the result and HalfCarry from the given bit. N is left
// to the caller; arithmetic paths overwrite Parity with overflow.
func (p *Chip) setFlags(carry bool, result uint8, auxCarry bool) {
	f := p.F &^ (F_CARRY | F_ZERO | F_SIGN | F_PARITY | F_HALFCARRY)
	if carry {
		f |= F_CARRY
	}
	if result == 0 {
		f |= F_ZERO
	}
	f |= result & F_SIGN
	f |= parityTable[result]
	if auxCarry {
		f |= F_HALFCARRY
	}
	p.F = f
}

// add8 implements ADD/ADC A,val. The result is computed in 16 bit
// scratch so Carry falls out of bit 8 and HalfCarry out of bit 4 of
// the low nibble sum. P/V is signed overflow: operands of equal sign
// producing a result of the other sign.
func (p *Chip) add8(val uint8, carryIn uint8) {
	sum := uint16(p.A) + uint16(val) + uint16(carryIn)
	res := uint8(sum)
	aux := (p.A&0x0F)+(val&0x0F)+carryIn > 0x0F
	p.setFlags(sum > 0xFF, res, aux)
	p.setFlag(F_PARITY, (p.A^res)&(val^res)&0x80 != 0)
	p.setFlag(F_SUBTRACT, false)
	p.A = res
}

// sub8flags computes dst-val-carryIn and sets all flags as a
// subtraction would, returning the result without storing it. SUB,
// SBC, CP, NEG and the block compares all funnel through here; DEC
// uses dec8 instead.
func (p *Chip) sub8flags(dst, val uint8, carryIn uint8) uint8 {
	diff := uint16(dst) - uint16(val) - uint16(carryIn)
	res := uint8(diff)
	aux := (dst & 0x0F) < (val&0x0F)+carryIn
	p.setFlags(diff > 0xFF, res, aux)
	p.setFlag(F_PARITY, (dst^val)&(dst^res)&0x80 != 0)
	p.setFlag(F_SUBTRACT, true)
	return res
}

// sub8 implements SUB/SBC A,val.
func (p *Chip) sub8(val uint8, carryIn uint8) {
	p.A = p.sub8flags(p.A, val, carryIn)
}

// and8/or8/xor8 implement the logical group. All three write parity
// into P/V and clear Carry and N. AND sets HalfCarry, OR/XOR clear it.
func (p *Chip) and8(val uint8) {
	p.A &= val
	p.setFlags(false, p.A, true)
	p.setFlag(F_SUBTRACT, false)
}

func (p *Chip) or8(val uint8) {
	p.A |= val
	p.setFlags(false, p.A, false)
	p.setFlag(F_SUBTRACT, false)
}

func (p *Chip) xor8(val uint8) {
	p.A ^= val
	p.setFlags(false, p.A, false)
	p.setFlag(F_SUBTRACT, false)
}

// inc8 returns val+1 and sets S/Z/H/P(overflow)/N leaving Carry alone.
func (p *Chip) inc8(val uint8) uint8 {
	res := val + 1
	p.setFlag(F_ZERO, res == 0)
	p.setFlag(F_SIGN, res&0x80 != 0)
	p.setFlag(F_HALFCARRY, val&0x0F == 0x0F)
	p.setFlag(F_PARITY, val == 0x7F)
	p.setFlag(F_SUBTRACT, false)
	return res
}

// dec8 returns val-1 and sets S/Z/H/P(overflow)/N leaving Carry alone.
func (p *Chip) dec8(val uint8) uint8 {
	res := val - 1
	p.setFlag(F_ZERO, res == 0)
	p.setFlag(F_SIGN, res&0x80 != 0)
	p.setFlag(F_HALFCARRY, val&0x0F == 0x00)
	p.setFlag(F_PARITY, val == 0x80)
	p.setFlag(F_SUBTRACT, true)
	return res
}

// alu8 dispatches ALU operation idx 0-7 (ADD ADC SUB SBC AND XOR OR CP)
// against A.
func (p *Chip) alu8(idx uint8, val uint8) {
	var carry uint8
	if p.F&F_CARRY != 0 {
		carry = 1
	}
	switch idx {
	case 0:
		p.add8(val, 0)
	case 1:
		p.add8(val, carry)
	case 2:
		p.sub8(val, 0)
	case 3:
		p.sub8(val, carry)
	case 4:
		p.and8(val)
	case 5:
		p.xor8(val)
	case 6:
		p.or8(val)
	default:
		// CP: flags as SUB without storing.
		p.sub8flags(p.A, val, 0)
	}
}

// add16 implements ADD HL,rr (and ADD IX/IY,rr): HalfCarry from bit
// 11, Carry from bit 15, N cleared. S, Z and P/V are untouched.
func (p *Chip) add16(dst, val uint16) uint16 {
	sum := uint32(dst) + uint32(val)
	p.setFlag(F_HALFCARRY, (dst&0x0FFF)+(val&0x0FFF) > 0x0FFF)
	p.setFlag(F_CARRY, sum > 0xFFFF)
	p.setFlag(F_SUBTRACT, false)
	return uint16(sum)
}

// adc16 implements ADC HL,rr with the full flag set.
func (p *Chip) adc16(val uint16) {
	hl := p.HL()
	var carry uint32
	if p.F&F_CARRY != 0 {
		carry = 1
	}
	sum := uint32(hl) + uint32(val) + carry
	res := uint16(sum)
	p.setFlag(F_CARRY, sum > 0xFFFF)
	p.setFlag(F_ZERO, res == 0)
	p.setFlag(F_SIGN, res&0x8000 != 0)
	p.setFlag(F_HALFCARRY, (hl&0x0FFF)+(val&0x0FFF)+uint16(carry) > 0x0FFF)
	p.setFlag(F_PARITY, (hl^res)&(val^res)&0x8000 != 0)
	p.setFlag(F_SUBTRACT, false)
	p.SetHL(res)
}

// sbc16 implements SBC HL,rr with the full flag set.
func (p *Chip) sbc16(val uint16) {
	hl := p.HL()
	var carry uint32
	if p.F&F_CARRY != 0 {
		carry = 1
	}
	diff := uint32(hl) - uint32(val) - carry
	res := uint16(diff)
	p.setFlag(F_CARRY, diff > 0xFFFF)
	p.setFlag(F_ZERO, res == 0)
	p.setFlag(F_SIGN, res&0x8000 != 0)
	p.setFlag(F_HALFCARRY, hl&0x0FFF < val&0x0FFF+uint16(carry))
	p.setFlag(F_PARITY, (hl^val)&(hl^res)&0x8000 != 0)
	p.setFlag(F_SUBTRACT, true)
	p.SetHL(res)
}

// szpFlags applies the logical flag rule with Carry preserved: S/Z/P
// from the value, H and N cleared. Used by IN r,(C), RLD/RRD and
// LD A,I/R (which then overwrites P with IFF2).
func (p *Chip) szpFlags(val uint8) {
	carry := p.F&F_CARRY != 0
	p.setFlags(carry, val, false)
	p.setFlag(F_SUBTRACT, false)
}
