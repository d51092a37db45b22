package cpu

// stepIndex executes one DD or FD prefixed opcode against the given
// index register. PC still points at the prefix so the displacement
// byte sits at PC+2 and an immediate after it at PC+3.
func (p *Chip) stepIndex(op uint8, reg *uint16) error {
	// LD block with half register renaming. When one side is the
	// indexed memory cell the register side uses the plain set.
	if op >= 0x40 && op <= 0x7F && op != HALT_OPCODE {
		y, z := (op>>3)&7, op&7
		switch {
		case z == 6: // LD r,(IX+d)
			addr, err := p.idxAddr(reg)
			if err != nil {
				return err
			}
			v, err := p.ram.Read(addr)
			if err != nil {
				return err
			}
			return p.writeReg8(y, v)
		case y == 6: // LD (IX+d),r
			v, err := p.readReg8(z)
			if err != nil {
				return err
			}
			addr, err := p.idxAddr(reg)
			if err != nil {
				return err
			}
			return p.ram.Write(addr, v)
		default:
			v, err := p.readIdx8(z, reg)
			if err != nil {
				return err
			}
			return p.writeIdx8(y, v, reg)
		}
	}
	if op >= 0x80 && op <= 0xBF { // ALU A,(IX+d) / half registers
		v, err := p.readIdx8(op&7, reg)
		if err != nil {
			return err
		}
		p.alu8((op>>3)&7, v)
		return nil
	}

	switch op {
	case 0x09, 0x19, 0x29, 0x39: // ADD IX,rr
		var val uint16
		switch op >> 4 {
		case 0:
			val = p.BC()
		case 1:
			val = p.DE()
		case 2:
			val = *reg
		default:
			val = p.SP
		}
		*reg = p.add16(*reg, val)

	case 0x21: // LD IX,nn
		nn, err := p.readPC16(2)
		if err != nil {
			return err
		}
		*reg = nn

	case 0x22: // LD (nn),IX
		addr, err := p.readPC16(2)
		if err != nil {
			return err
		}
		return p.writeWord(addr, *reg)

	case 0x2A: // LD IX,(nn)
		addr, err := p.readPC16(2)
		if err != nil {
			return err
		}
		w, err := p.readWord(addr)
		if err != nil {
			return err
		}
		*reg = w

	case 0x23: // INC IX
		*reg++
	case 0x2B: // DEC IX
		*reg--

	case 0x24: // INC IXH
		*reg = *reg&0x00FF | uint16(p.inc8(uint8(*reg>>8)))<<8
	case 0x25: // DEC IXH
		*reg = *reg&0x00FF | uint16(p.dec8(uint8(*reg>>8)))<<8
	case 0x2C: // INC IXL
		*reg = *reg&0xFF00 | uint16(p.inc8(uint8(*reg)))
	case 0x2D: // DEC IXL
		*reg = *reg&0xFF00 | uint16(p.dec8(uint8(*reg)))

	case 0x26: // LD IXH,n
		n, err := p.readPC(2)
		if err != nil {
			return err
		}
		*reg = *reg&0x00FF | uint16(n)<<8
	case 0x2E: // LD IXL,n
		n, err := p.readPC(2)
		if err != nil {
			return err
		}
		*reg = *reg&0xFF00 | uint16(n)

	case 0x34: // INC (IX+d)
		addr, err := p.idxAddr(reg)
		if err != nil {
			return err
		}
		v, err := p.ram.Read(addr)
		if err != nil {
			return err
		}
		return p.ram.Write(addr, p.inc8(v))

	case 0x35: // DEC (IX+d)
		addr, err := p.idxAddr(reg)
		if err != nil {
			return err
		}
		v, err := p.ram.Read(addr)
		if err != nil {
			return err
		}
		return p.ram.Write(addr, p.dec8(v))

	case 0x36: // LD (IX+d),n
		addr, err := p.idxAddr(reg)
		if err != nil {
			return err
		}
		n, err := p.readPC(3)
		if err != nil {
			return err
		}
		return p.ram.Write(addr, n)

	case 0xE1: // POP IX
		w, err := p.pop()
		if err != nil {
			return err
		}
		*reg = w

	case 0xE3: // EX (SP),IX
		w, err := p.readWord(p.SP)
		if err != nil {
			return err
		}
		if err := p.writeWord(p.SP, *reg); err != nil {
			return err
		}
		*reg = w

	case 0xE5: // PUSH IX
		return p.push(*reg)

	case 0xE9: // JP (IX)
		p.PC = *reg
		p.holdPC = true

	case 0xF9: // LD SP,IX
		p.SP = *reg
	}
	return nil
}

// stepIndexBit executes one DD CB / FD CB opcode. The displacement
// was consumed by the decoder; every final byte operates on the
// indexed memory cell.
func (p *Chip) stepIndexBit(op uint8, disp int8, reg *uint16) error {
	addr := *reg + uint16(int16(disp))
	v, err := p.ram.Read(addr)
	if err != nil {
		return err
	}
	x, y := op>>6, (op>>3)&7
	switch x {
	case 0:
		return p.ram.Write(addr, p.rotOp(y, v))
	case 1:
		p.bitTest(y, v)
		return nil
	case 2:
		return p.ram.Write(addr, v&^(1<<y))
	}
	return p.ram.Write(addr, v|1<<y)
}

// idxAddr forms (IX+d)/(IY+d) from the signed displacement at PC+2.
func (p *Chip) idxAddr(reg *uint16) (uint16, error) {
	d, err := p.readPC(2)
	if err != nil {
		return 0, err
	}
	return *reg + uint16(int16(int8(d))), nil
}

// readIdx8 reads register index z with the H/L slots mapped onto the
// index register halves and slot 6 mapped to (IX+d).
func (p *Chip) readIdx8(z uint8, reg *uint16) (uint8, error) {
	switch z {
	case 4:
		return uint8(*reg >> 8), nil
	case 5:
		return uint8(*reg), nil
	case 6:
		addr, err := p.idxAddr(reg)
		if err != nil {
			return 0, err
		}
		return p.ram.Read(addr)
	}
	return p.readReg8(z)
}

// writeIdx8 writes register index z under the same mapping.
func (p *Chip) writeIdx8(z uint8, val uint8, reg *uint16) error {
	switch z {
	case 4:
		*reg = *reg&0x00FF | uint16(val)<<8
	case 5:
		*reg = *reg&0xFF00 | uint16(val)
	case 6:
		addr, err := p.idxAddr(reg)
		if err != nil {
			return err
		}
		return p.ram.Write(addr, val)
	default:
		return p.writeReg8(z, val)
	}
	return nil
}
