package cpu

// stepStandard executes one unprefixed opcode. PC still points at the
// opcode byte so immediate operands live at PC+1.
func (p *Chip) stepStandard(op uint8) error {
	// The two fully regular blocks first: LD r,r' and ALU A,r.
	if op >= 0x40 && op <= 0x7F && op != HALT_OPCODE {
		v, err := p.readReg8(op & 7)
		if err != nil {
			return err
		}
		return p.writeReg8((op>>3)&7, v)
	}
	if op >= 0x80 && op <= 0xBF {
		v, err := p.readReg8(op & 7)
		if err != nil {
			return err
		}
		p.alu8((op>>3)&7, v)
		return nil
	}

	switch op {
	case 0x00: // NOP

	case 0x01, 0x11, 0x21, 0x31: // LD rr,nn
		nn, err := p.readPC16(1)
		if err != nil {
			return err
		}
		p.writePair16(op>>4, nn)

	case 0x02: // LD (BC),A
		return p.ram.Write(p.BC(), p.A)

	case 0x03, 0x13, 0x23, 0x33: // INC rr
		p.writePair16(op>>4, p.readPair16(op>>4)+1)

	case 0x0B, 0x1B, 0x2B, 0x3B: // DEC rr
		p.writePair16(op>>4, p.readPair16(op>>4)-1)

	case 0x04, 0x0C, 0x14, 0x1C, 0x24, 0x2C, 0x34, 0x3C: // INC r
		y := (op >> 3) & 7
		v, err := p.readReg8(y)
		if err != nil {
			return err
		}
		return p.writeReg8(y, p.inc8(v))

	case 0x05, 0x0D, 0x15, 0x1D, 0x25, 0x2D, 0x35, 0x3D: // DEC r
		y := (op >> 3) & 7
		v, err := p.readReg8(y)
		if err != nil {
			return err
		}
		return p.writeReg8(y, p.dec8(v))

	case 0x06, 0x0E, 0x16, 0x1E, 0x26, 0x2E, 0x36, 0x3E: // LD r,n
		n, err := p.readPC(1)
		if err != nil {
			return err
		}
		return p.writeReg8((op>>3)&7, n)

	case 0x07: // RLCA
		c := p.A >> 7
		p.A = p.A<<1 | c
		p.setFlag(F_CARRY, c != 0)
		p.setFlag(F_HALFCARRY, false)
		p.setFlag(F_SUBTRACT, false)

	case 0x0F: // RRCA
		c := p.A & 1
		p.A = p.A>>1 | c<<7
		p.setFlag(F_CARRY, c != 0)
		p.setFlag(F_HALFCARRY, false)
		p.setFlag(F_SUBTRACT, false)

	case 0x17: // RLA
		var oldC uint8
		if p.F&F_CARRY != 0 {
			oldC = 1
		}
		c := p.A >> 7
		p.A = p.A<<1 | oldC
		p.setFlag(F_CARRY, c != 0)
		p.setFlag(F_HALFCARRY, false)
		p.setFlag(F_SUBTRACT, false)

	case 0x1F: // RRA
		var oldC uint8
		if p.F&F_CARRY != 0 {
			oldC = 1
		}
		c := p.A & 1
		p.A = p.A>>1 | oldC<<7
		p.setFlag(F_CARRY, c != 0)
		p.setFlag(F_HALFCARRY, false)
		p.setFlag(F_SUBTRACT, false)

	case 0x08: // EX AF,AF'
		p.A, p.alt.A = p.alt.A, p.A
		p.F, p.alt.F = p.alt.F, p.F

	case 0x09, 0x19, 0x29, 0x39: // ADD HL,rr
		p.SetHL(p.add16(p.HL(), p.readPair16(op>>4)))

	case 0x0A: // LD A,(BC)
		v, err := p.ram.Read(p.BC())
		if err != nil {
			return err
		}
		p.A = v

	case 0x12: // LD (DE),A
		return p.ram.Write(p.DE(), p.A)

	case 0x1A: // LD A,(DE)
		v, err := p.ram.Read(p.DE())
		if err != nil {
			return err
		}
		p.A = v

	case 0x10: // DJNZ e
		p.B--
		if p.B != 0 {
			return p.jumpRel()
		}
		p.altCycles = true

	case 0x18: // JR e
		return p.jumpRel()

	case 0x20, 0x28, 0x30, 0x38: // JR cc,e
		if p.cond((op>>3)&7 - 4) {
			return p.jumpRel()
		}
		p.altCycles = true

	case 0x22: // LD (nn),HL
		addr, err := p.readPC16(1)
		if err != nil {
			return err
		}
		return p.writeWord(addr, p.HL())

	case 0x2A: // LD HL,(nn)
		addr, err := p.readPC16(1)
		if err != nil {
			return err
		}
		w, err := p.readWord(addr)
		if err != nil {
			return err
		}
		p.SetHL(w)

	case 0x32: // LD (nn),A
		addr, err := p.readPC16(1)
		if err != nil {
			return err
		}
		return p.ram.Write(addr, p.A)

	case 0x3A: // LD A,(nn)
		addr, err := p.readPC16(1)
		if err != nil {
			return err
		}
		v, err := p.ram.Read(addr)
		if err != nil {
			return err
		}
		p.A = v

	case 0x27: // DAA
		p.daa()

	case 0x2F: // CPL
		p.A ^= 0xFF
		p.setFlag(F_HALFCARRY, true)
		p.setFlag(F_SUBTRACT, true)

	case 0x37: // SCF
		p.setFlag(F_CARRY, true)
		p.setFlag(F_HALFCARRY, false)
		p.setFlag(F_SUBTRACT, false)

	case 0x3F: // CCF
		oldC := p.F&F_CARRY != 0
		p.setFlag(F_HALFCARRY, oldC)
		p.setFlag(F_CARRY, !oldC)
		p.setFlag(F_SUBTRACT, false)

	case HALT_OPCODE:
		p.halted = true
		p.holdPC = true

	case 0xC0, 0xC8, 0xD0, 0xD8, 0xE0, 0xE8, 0xF0, 0xF8: // RET cc
		if p.cond((op >> 3) & 7) {
			return p.ret()
		}
		p.altCycles = true

	case 0xC9: // RET
		return p.ret()

	case 0xC1, 0xD1, 0xE1, 0xF1: // POP rr
		w, err := p.pop()
		if err != nil {
			return err
		}
		p.writePushPair((op>>4)&3, w)

	case 0xC5, 0xD5, 0xE5, 0xF5: // PUSH rr
		return p.push(p.readPushPair((op >> 4) & 3))

	case 0xC2, 0xCA, 0xD2, 0xDA, 0xE2, 0xEA, 0xF2, 0xFA: // JP cc,nn
		nn, err := p.readPC16(1)
		if err != nil {
			return err
		}
		if p.cond((op >> 3) & 7) {
			p.PC = nn
			p.holdPC = true
		}

	case 0xC3: // JP nn
		nn, err := p.readPC16(1)
		if err != nil {
			return err
		}
		p.PC = nn
		p.holdPC = true

	case 0xC4, 0xCC, 0xD4, 0xDC, 0xE4, 0xEC, 0xF4, 0xFC: // CALL cc,nn
		if p.cond((op >> 3) & 7) {
			return p.call()
		}
		p.altCycles = true

	case 0xCD: // CALL nn
		return p.call()

	case 0xC7, 0xCF, 0xD7, 0xDF, 0xE7, 0xEF, 0xF7, 0xFF: // RST p
		if err := p.push(p.PC + 1); err != nil {
			return err
		}
		p.PC = uint16(op & 0x38)
		p.holdPC = true

	case 0xC6, 0xCE, 0xD6, 0xDE, 0xE6, 0xEE, 0xF6, 0xFE: // ALU A,n
		n, err := p.readPC(1)
		if err != nil {
			return err
		}
		p.alu8((op>>3)&7, n)

	case 0xD3: // OUT (n),A
		n, err := p.readPC(1)
		if err != nil {
			return err
		}
		p.portOut(n, p.A)

	case 0xDB: // IN A,(n)
		n, err := p.readPC(1)
		if err != nil {
			return err
		}
		p.A = p.portIn(n)

	case 0xD9: // EXX
		p.B, p.alt.B = p.alt.B, p.B
		p.C, p.alt.C = p.alt.C, p.C
		p.D, p.alt.D = p.alt.D, p.D
		p.E, p.alt.E = p.alt.E, p.E
		p.H, p.alt.H = p.alt.H, p.H
		p.L, p.alt.L = p.alt.L, p.L

	case 0xEB: // EX DE,HL
		p.D, p.H = p.H, p.D
		p.E, p.L = p.L, p.E

	case 0xE3: // EX (SP),HL
		w, err := p.readWord(p.SP)
		if err != nil {
			return err
		}
		if err := p.writeWord(p.SP, p.HL()); err != nil {
			return err
		}
		p.SetHL(w)

	case 0xE9: // JP (HL)
		p.PC = p.HL()
		p.holdPC = true

	case 0xF9: // LD SP,HL
		p.SP = p.HL()

	case 0xF3: // DI
		p.iff1, p.iff2 = false, false

	case 0xFB: // EI
		p.iff1, p.iff2 = true, true
		p.deferInt = true
	}
	return nil
}

// jumpRel applies the signed displacement at PC+1 relative to the
// instruction following the JR/DJNZ.
func (p *Chip) jumpRel() error {
	e, err := p.readPC(1)
	if err != nil {
		return err
	}
	p.PC = p.PC + 2 + uint16(int16(int8(e)))
	p.holdPC = true
	return nil
}

// call pushes the address of the instruction following the CALL and
// jumps to the immediate target.
func (p *Chip) call() error {
	nn, err := p.readPC16(1)
	if err != nil {
		return err
	}
	if err := p.push(p.PC + 3); err != nil {
		return err
	}
	p.PC = nn
	p.holdPC = true
	return nil
}

// ret pops the return address into PC.
func (p *Chip) ret() error {
	w, err := p.pop()
	if err != nil {
		return err
	}
	p.PC = w
	p.holdPC = true
	return nil
}

// readPushPair reads pair index 0-3 as BC DE HL AF (the PUSH/POP set).
func (p *Chip) readPushPair(idx uint8) uint16 {
	switch idx {
	case 0:
		return p.BC()
	case 1:
		return p.DE()
	case 2:
		return p.HL()
	}
	return p.AF()
}

// writePushPair writes pair index 0-3 as BC DE HL AF.
func (p *Chip) writePushPair(idx uint8, val uint16) {
	switch idx {
	case 0:
		p.SetBC(val)
	case 1:
		p.SetDE(val)
	case 2:
		p.SetHL(val)
	default:
		p.SetAF(val)
	}
}

// daa decimal adjusts A after a BCD add or subtract, using N to tell
// which direction the last operation went.
func (p *Chip) daa() {
	var adjust uint8
	carry := p.F&F_CARRY != 0
	if p.F&F_HALFCARRY != 0 || p.A&0x0F > 9 {
		adjust = 0x06
	}
	if carry || p.A > 0x99 {
		adjust |= 0x60
		carry = true
	}
	if p.F&F_SUBTRACT != 0 {
		p.sub8(adjust, 0)
	} else {
		p.add8(adjust, 0)
	}
	p.setFlag(F_CARRY, carry)
	p.setFlag(F_PARITY, parityTable[p.A] != 0)
}
