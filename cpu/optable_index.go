package cpu

// The DD and FD tables are identical modulo the register name, so one
// builder fills both. The whole LD/ALU block 0x40-0xBF (minus HALT)
// is defined, together with the other encodings where the prefix
// changes meaning; any other DD/FD opcode is left undefined and
// reports UnimplementedOpcode.
func init() {
	defIndexFamily(IX, "IX")
	defIndexFamily(IY, "IY")
}

func defIndexFamily(fam Family, name string) {
	ind := "(" + name + "+d)"
	// Half registers take the H/L slots in the 8 bit register space.
	halfNames := [8]string{"B", "C", "D", "E", name + "H", name + "L", ind, "A"}
	idxPairs := [4]string{"BC", "DE", name, "SP"}

	for q := uint8(0); q < 4; q++ {
		def(fam, q<<4|0x09, "ADD "+name+","+idxPairs[q], 2, 15)
	}
	def(fam, 0x21, "LD "+name+",nn", 4, 14)
	def(fam, 0x22, "LD (nn),"+name, 4, 20)
	def(fam, 0x23, "INC "+name, 2, 10)
	def(fam, 0x24, "INC "+name+"H", 2, 8)
	def(fam, 0x25, "DEC "+name+"H", 2, 8)
	def(fam, 0x26, "LD "+name+"H,n", 3, 11)
	def(fam, 0x2A, "LD "+name+",(nn)", 4, 20)
	def(fam, 0x2B, "DEC "+name, 2, 10)
	def(fam, 0x2C, "INC "+name+"L", 2, 8)
	def(fam, 0x2D, "DEC "+name+"L", 2, 8)
	def(fam, 0x2E, "LD "+name+"L,n", 3, 11)
	def(fam, 0x34, "INC "+ind, 3, 23)
	def(fam, 0x35, "DEC "+ind, 3, 23)
	def(fam, 0x36, "LD "+ind+",n", 4, 19)

	for y := uint8(0); y < 8; y++ {
		for z := uint8(0); z < 8; z++ {
			op := 0x40 | y<<3 | z
			if op != HALT_OPCODE {
				switch {
				case z == 6:
					// The register side uses the plain set when the
					// other operand is the indexed memory cell.
					def(fam, op, "LD "+regNames[y]+","+ind, 3, 19)
				case y == 6:
					def(fam, op, "LD "+ind+","+regNames[z], 3, 19)
				default:
					def(fam, op, "LD "+halfNames[y]+","+halfNames[z], 2, 8)
				}
			}

			op = 0x80 | y<<3 | z
			if z == 6 {
				def(fam, op, aluNames[y]+ind, 3, 19)
			} else {
				def(fam, op, aluNames[y]+halfNames[z], 2, 8)
			}
		}
	}

	def(fam, 0xE1, "POP "+name, 2, 14)
	def(fam, 0xE3, "EX (SP),"+name, 2, 23)
	def(fam, 0xE5, "PUSH "+name, 2, 15)
	def(fam, 0xE9, "JP ("+name+")", 2, 8)
	def(fam, 0xF9, "LD SP,"+name, 2, 10)
}
