// Package disassemble implements a disassembler for Z80 opcodes.
package disassemble

import (
	"fmt"
	"strings"

	"github.com/jmchacon/z80/cpu"
	"github.com/jmchacon/z80/memory"
)

// Step will take the given PC value and disassemble the instruction at
// that location returning a string for the disassembly and the bytes
// forward the PC should move to get to the next instruction. This does
// not interpret the instructions so LD, JP, LD in memory will
// disassemble as that sequence and not follow the JP. Bytes with no
// table entry render as a DB directive of length one.
func Step(pc uint16, r memory.Bank) (string, int, error) {
	op, err := r.Read(pc)
	if err != nil {
		return "", 0, err
	}
	fam := cpu.STANDARD
	final := op
	switch op {
	case cpu.PREFIX_CB:
		fam = cpu.EXTENDED_BIT
		if final, err = r.Read(pc + 1); err != nil {
			return "", 0, err
		}
	case cpu.PREFIX_ED:
		fam = cpu.EXTENDED_STANDARD
		if final, err = r.Read(pc + 1); err != nil {
			return "", 0, err
		}
	case cpu.PREFIX_DD, cpu.PREFIX_FD:
		fam = cpu.IX
		if op == cpu.PREFIX_FD {
			fam = cpu.IY
		}
		if final, err = r.Read(pc + 1); err != nil {
			return "", 0, err
		}
		if final == cpu.PREFIX_CB {
			if fam == cpu.IX {
				fam = cpu.IX_BIT
			} else {
				fam = cpu.IY_BIT
			}
			if final, err = r.Read(pc + 3); err != nil {
				return "", 0, err
			}
		}
	}

	opc := cpu.Lookup(fam, final)
	if opc == nil {
		return fmt.Sprintf("DB 0x%.2X", op), 1, nil
	}

	out := opc.Mnemonic

	// A 16 bit immediate is always the last two bytes and an 8 bit
	// one the last byte of the encoding, regardless of family.
	if strings.Contains(out, "nn") {
		lo, err := r.Read(pc + uint16(opc.Size) - 2)
		if err != nil {
			return "", 0, err
		}
		hi, err := r.Read(pc + uint16(opc.Size) - 1)
		if err != nil {
			return "", 0, err
		}
		out = strings.Replace(out, "nn", fmt.Sprintf("$%.4X", uint16(hi)<<8|uint16(lo)), 1)
	}

	// Indexed displacements always sit right after the prefix pair.
	if strings.Contains(out, "+d)") {
		d, err := r.Read(pc + 2)
		if err != nil {
			return "", 0, err
		}
		sd := int8(d)
		if sd < 0 {
			out = strings.Replace(out, "+d)", fmt.Sprintf("-$%.2X)", -int16(sd)), 1)
		} else {
			out = strings.Replace(out, "+d)", fmt.Sprintf("+$%.2X)", sd), 1)
		}
	}

	// Relative branches render as their resolved target.
	if strings.HasSuffix(out, " e") || strings.HasSuffix(out, ",e") {
		e, err := r.Read(pc + 1)
		if err != nil {
			return "", 0, err
		}
		target := pc + 2 + uint16(int16(int8(e)))
		out = out[:len(out)-1] + fmt.Sprintf("$%.4X", target)
	}

	// Remaining bare n placeholders are 8 bit immediates.
	if idx := bareN(out); idx >= 0 {
		n, err := r.Read(pc + uint16(opc.Size) - 1)
		if err != nil {
			return "", 0, err
		}
		out = out[:idx] + fmt.Sprintf("$%.2X", n) + out[idx+1:]
	}

	return out, opc.Size, nil
}

// bareN finds a single character n operand (not part of a word such
// as INC) or -1 if there is none.
func bareN(s string) int {
	for i := 0; i < len(s); i++ {
		if s[i] != 'n' {
			continue
		}
		before := i == 0 || s[i-1] == ' ' || s[i-1] == ',' || s[i-1] == '('
		after := i == len(s)-1 || s[i+1] == ')' || s[i+1] == ','
		if before && after {
			return i
		}
	}
	return -1
}
