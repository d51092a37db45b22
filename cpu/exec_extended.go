package cpu

// stepExtended executes one ED prefixed opcode: block ops, 16 bit
// arithmetic, register I/R traffic, I/O over the C port and the
// interrupt control group. Immediates sit at PC+2 behind the prefix.
func (p *Chip) stepExtended(op uint8) error {
	switch op {
	case 0x40, 0x48, 0x50, 0x58, 0x60, 0x68, 0x78: // IN r,(C)
		v := p.portIn(p.C)
		p.szpFlags(v)
		return p.writeReg8((op>>3)&7, v)

	case 0x41, 0x49, 0x51, 0x59, 0x61, 0x69, 0x79: // OUT (C),r
		v, err := p.readReg8((op >> 3) & 7)
		if err != nil {
			return err
		}
		p.portOut(p.C, v)

	case 0x42, 0x52, 0x62, 0x72: // SBC HL,rr
		p.sbc16(p.readPair16((op >> 4) & 3))

	case 0x4A, 0x5A, 0x6A, 0x7A: // ADC HL,rr
		p.adc16(p.readPair16((op >> 4) & 3))

	case 0x43, 0x53, 0x63, 0x73: // LD (nn),rr
		addr, err := p.readPC16(2)
		if err != nil {
			return err
		}
		return p.writeWord(addr, p.readPair16((op>>4)&3))

	case 0x4B, 0x5B, 0x6B, 0x7B: // LD rr,(nn)
		addr, err := p.readPC16(2)
		if err != nil {
			return err
		}
		w, err := p.readWord(addr)
		if err != nil {
			return err
		}
		p.writePair16((op>>4)&3, w)

	case 0x44: // NEG
		p.A = p.sub8flags(0, p.A, 0)

	case 0x45, 0x4D: // RETN, RETI
		p.iff1 = p.iff2
		return p.ret()

	case 0x46: // IM 0
		p.im = 0
	case 0x56: // IM 1
		p.im = 1
	case 0x5E: // IM 2
		p.im = 2

	case 0x47: // LD I,A
		p.I = p.A
	case 0x4F: // LD R,A
		p.R = p.A

	case 0x57: // LD A,I
		p.A = p.I
		p.szpFlags(p.A)
		p.setFlag(F_PARITY, p.iff2)

	case 0x5F: // LD A,R
		p.A = p.R
		p.szpFlags(p.A)
		p.setFlag(F_PARITY, p.iff2)

	case 0x67: // RRD
		m, err := p.ram.Read(p.HL())
		if err != nil {
			return err
		}
		if err := p.ram.Write(p.HL(), p.A<<4|m>>4); err != nil {
			return err
		}
		p.A = p.A&0xF0 | m&0x0F
		p.szpFlags(p.A)

	case 0x6F: // RLD
		m, err := p.ram.Read(p.HL())
		if err != nil {
			return err
		}
		if err := p.ram.Write(p.HL(), m<<4|p.A&0x0F); err != nil {
			return err
		}
		p.A = p.A&0xF0 | m>>4
		p.szpFlags(p.A)

	case 0xA0, 0xA8, 0xB0, 0xB8: // LDI, LDD, LDIR, LDDR
		return p.blockTransfer(op)

	case 0xA1, 0xA9, 0xB1, 0xB9: // CPI, CPD, CPIR, CPDR
		return p.blockCompare(op)

	case 0xA2, 0xAA, 0xB2, 0xBA: // INI, IND, INIR, INDR
		return p.blockIn(op)

	case 0xA3, 0xAB, 0xB3, 0xBB: // OUTI, OUTD, OTIR, OTDR
		return p.blockOut(op)
	}
	return nil
}

// blockTransfer copies (HL) to (DE), walks HL and DE by +-1 and
// counts BC down. The repeating forms hold PC (and report the high
// cycle count) until BC reaches zero.
func (p *Chip) blockTransfer(op uint8) error {
	v, err := p.ram.Read(p.HL())
	if err != nil {
		return err
	}
	if err := p.ram.Write(p.DE(), v); err != nil {
		return err
	}
	delta := uint16(1)
	if op&0x08 != 0 {
		delta = 0xFFFF
	}
	p.SetHL(p.HL() + delta)
	p.SetDE(p.DE() + delta)
	p.SetBC(p.BC() - 1)
	p.setFlag(F_HALFCARRY, false)
	p.setFlag(F_SUBTRACT, false)
	p.setFlag(F_PARITY, p.BC() != 0)
	if op&0x10 != 0 {
		if p.BC() != 0 {
			p.holdPC = true
		} else {
			p.altCycles = true
		}
	}
	return nil
}

// blockCompare computes A-(HL) without storing, walks HL and counts
// BC down. Carry is preserved and P/V reports BC != 0. The repeating
// forms continue while BC != 0 and the bytes didn't match.
func (p *Chip) blockCompare(op uint8) error {
	v, err := p.ram.Read(p.HL())
	if err != nil {
		return err
	}
	carry := p.F&F_CARRY != 0
	p.sub8flags(p.A, v, 0)
	p.setFlag(F_CARRY, carry)
	delta := uint16(1)
	if op&0x08 != 0 {
		delta = 0xFFFF
	}
	p.SetHL(p.HL() + delta)
	p.SetBC(p.BC() - 1)
	p.setFlag(F_PARITY, p.BC() != 0)
	if op&0x10 != 0 {
		if p.BC() != 0 && p.F&F_ZERO == 0 {
			p.holdPC = true
		} else {
			p.altCycles = true
		}
	}
	return nil
}

// blockIn reads the C port into (HL), walks HL and counts B down.
func (p *Chip) blockIn(op uint8) error {
	v := p.portIn(p.C)
	if err := p.ram.Write(p.HL(), v); err != nil {
		return err
	}
	delta := uint16(1)
	if op&0x08 != 0 {
		delta = 0xFFFF
	}
	p.SetHL(p.HL() + delta)
	p.B--
	p.setFlag(F_ZERO, p.B == 0)
	p.setFlag(F_SUBTRACT, true)
	if op&0x10 != 0 {
		if p.B != 0 {
			p.holdPC = true
		} else {
			p.altCycles = true
		}
	}
	return nil
}

// blockOut writes (HL) to the C port, walks HL and counts B down.
func (p *Chip) blockOut(op uint8) error {
	v, err := p.ram.Read(p.HL())
	if err != nil {
		return err
	}
	p.B--
	p.portOut(p.C, v)
	delta := uint16(1)
	if op&0x08 != 0 {
		delta = 0xFFFF
	}
	p.SetHL(p.HL() + delta)
	p.setFlag(F_ZERO, p.B == 0)
	p.setFlag(F_SUBTRACT, true)
	if op&0x10 != 0 {
		if p.B != 0 {
			p.holdPC = true
		} else {
			p.altCycles = true
		}
	}
	return nil
}
