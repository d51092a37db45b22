package cpu

import "fmt"

// The CB and DD CB / FD CB families are fully regular so their tables
// are derived rather than written out. Every byte decodes: x selects
// rotate/shift vs BIT vs RES vs SET, y the rotate kind or bit number,
// z the operand register ((HL) at 6).
func init() {
	for i := 0; i < 256; i++ {
		op := uint8(i)
		x, y, z := op>>6, (op>>3)&7, op&7
		var mnemonic string
		cycles := 8
		switch x {
		case 0:
			mnemonic = rotNames[y] + " " + regNames[z]
			if z == 6 {
				cycles = 15
			}
		case 1:
			mnemonic = fmt.Sprintf("BIT %d,%s", y, regNames[z])
			if z == 6 {
				cycles = 12
			}
		case 2:
			mnemonic = fmt.Sprintf("RES %d,%s", y, regNames[z])
			if z == 6 {
				cycles = 15
			}
		case 3:
			mnemonic = fmt.Sprintf("SET %d,%s", y, regNames[z])
			if z == 6 {
				cycles = 15
			}
		}
		def(EXTENDED_BIT, op, mnemonic, 2, cycles)
	}

	// DD CB / FD CB: all 256 final bytes operate on (IX+d)/(IY+d).
	// The undocumented copy-to-register encodings (z != 6) perform
	// the same memory operation here.
	for _, fam := range []Family{IX_BIT, IY_BIT} {
		name := "IX"
		if fam == IY_BIT {
			name = "IY"
		}
		ind := "(" + name + "+d)"
		for i := 0; i < 256; i++ {
			op := uint8(i)
			x, y := op>>6, (op>>3)&7
			switch x {
			case 0:
				def(fam, op, rotNames[y]+" "+ind, 4, 23)
			case 1:
				def(fam, op, fmt.Sprintf("BIT %d,%s", y, ind), 4, 20)
			case 2:
				def(fam, op, fmt.Sprintf("RES %d,%s", y, ind), 4, 23)
			case 3:
				def(fam, op, fmt.Sprintf("SET %d,%s", y, ind), 4, 23)
			}
		}
	}
}
