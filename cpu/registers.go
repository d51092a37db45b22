package cpu

// Register pairs are little endian composites of their halves:
// pair = (high << 8) | low. The setters update both halves.

// AF returns the A and F pair.
func (p *Chip) AF() uint16 {
	return uint16(p.A)<<8 | uint16(p.F)
}

// SetAF sets the A and F pair.
func (p *Chip) SetAF(val uint16) {
	p.A = uint8(val >> 8)
	p.F = uint8(val)
}

// BC returns the B and C pair.
func (p *Chip) BC() uint16 {
	return uint16(p.B)<<8 | uint16(p.C)
}

// SetBC sets the B and C pair.
func (p *Chip) SetBC(val uint16) {
	p.B = uint8(val >> 8)
	p.C = uint8(val)
}

// DE returns the D and E pair.
func (p *Chip) DE() uint16 {
	return uint16(p.D)<<8 | uint16(p.E)
}

// SetDE sets the D and E pair.
func (p *Chip) SetDE(val uint16) {
	p.D = uint8(val >> 8)
	p.E = uint8(val)
}

// HL returns the H and L pair.
func (p *Chip) HL() uint16 {
	return uint16(p.H)<<8 | uint16(p.L)
}

// SetHL sets the H and L pair.
func (p *Chip) SetHL(val uint16) {
	p.H = uint8(val >> 8)
	p.L = uint8(val)
}

// readPair16 reads pair index 0-3 as BC DE HL SP.
func (p *Chip) readPair16(idx uint8) uint16 {
	switch idx {
	case 0:
		return p.BC()
	case 1:
		return p.DE()
	case 2:
		return p.HL()
	}
	return p.SP
}

// writePair16 writes pair index 0-3 as BC DE HL SP.
func (p *Chip) writePair16(idx uint8, val uint16) {
	switch idx {
	case 0:
		p.SetBC(val)
	case 1:
		p.SetDE(val)
	case 2:
		p.SetHL(val)
	default:
		p.SP = val
	}
}

// Individual flag access. Each flag reads and writes independently.

// Sign returns the S flag.
func (p *Chip) Sign() bool { return p.F&F_SIGN != 0 }

// Zero returns the Z flag.
func (p *Chip) Zero() bool { return p.F&F_ZERO != 0 }

// HalfCarry returns the H flag.
func (p *Chip) HalfCarry() bool { return p.F&F_HALFCARRY != 0 }

// ParityOverflow returns the P/V flag.
func (p *Chip) ParityOverflow() bool { return p.F&F_PARITY != 0 }

// Subtract returns the N flag.
func (p *Chip) Subtract() bool { return p.F&F_SUBTRACT != 0 }

// Carry returns the C flag.
func (p *Chip) Carry() bool { return p.F&F_CARRY != 0 }

// SetSign sets the S flag.
func (p *Chip) SetSign(v bool) { p.setFlag(F_SIGN, v) }

// SetZero sets the Z flag.
func (p *Chip) SetZero(v bool) { p.setFlag(F_ZERO, v) }

// SetHalfCarry sets the H flag.
func (p *Chip) SetHalfCarry(v bool) { p.setFlag(F_HALFCARRY, v) }

// SetParityOverflow sets the P/V flag.
func (p *Chip) SetParityOverflow(v bool) { p.setFlag(F_PARITY, v) }

// SetSubtract sets the N flag.
func (p *Chip) SetSubtract(v bool) { p.setFlag(F_SUBTRACT, v) }

// SetCarry sets the C flag.
func (p *Chip) SetCarry(v bool) { p.setFlag(F_CARRY, v) }

func (p *Chip) setFlag(mask uint8, v bool) {
	if v {
		p.F |= mask
	} else {
		p.F &^= mask
	}
}
