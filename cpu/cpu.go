// Package cpu defines the Z80 architecture and provides
// the methods needed to run the CPU and interface with it
// for emulation.
package cpu

import (
	"fmt"

	"github.com/jmchacon/z80/io"
	"github.com/jmchacon/z80/irq"
	"github.com/jmchacon/z80/memory"
)

const (
	// Flag bits in F.
	F_CARRY     = uint8(0x01)
	F_SUBTRACT  = uint8(0x02)
	F_PARITY    = uint8(0x04) // Parity for logic ops, signed overflow for arithmetic.
	F_HALFCARRY = uint8(0x10)
	F_ZERO      = uint8(0x40)
	F_SIGN      = uint8(0x80)

	// Prefix bytes which shift decoding into another opcode family.
	PREFIX_CB = uint8(0xCB)
	PREFIX_DD = uint8(0xDD)
	PREFIX_ED = uint8(0xED)
	PREFIX_FD = uint8(0xFD)

	HALT_OPCODE = uint8(0x76)

	// Cycle costs of the interrupt acknowledge sequences.
	kRST_CYCLES = 11
	kIM1_CYCLES = 13
	kIM2_CYCLES = 19
)

// regFile is one bank of the 8 bit register set. The shadow bank is a
// second regFile which EX AF,AF' and EXX swap values with.
type regFile struct {
	A, F, B, C, D, E, H, L uint8
}

// Chip is a single Z80 instance. The exported registers may be read
// (and written) between Step calls; concurrent access during a step
// is undefined.
type Chip struct {
	A, F, B, C, D, E, H, L uint8  // Main register bank
	IX, IY                 uint16 // Index registers
	SP                     uint16 // Stack pointer
	PC                     uint16 // Program counter
	I                      uint8  // Interrupt vector base
	R                      uint8  // Refresh counter

	alt regFile // Shadow bank A'F'B'C'D'E'H'L'

	iff1, iff2 bool // Interrupt enable latches
	im         int  // Interrupt mode 0/1/2
	deferInt   bool // EI ran; mask interrupts for one more instruction
	halted     bool // Last executed opcode was HALT

	def     ChipDef      // Snapshot restored by Reset
	ram     memory.Bank  // All instruction memory traffic goes through here
	portIn  io.ReadPort  // IN family hook
	portOut io.WritePort // OUT family hook
	irqLine irq.Sender   // Optional polled interrupt line

	// Per step executor hints. An executor which took over PC (jump,
	// call, return, repeating block op, HALT) sets holdPC. One which
	// took the shorter of two timing paths sets altCycles.
	holdPC    bool
	altCycles bool
}

// Registers holds initial values for the programmer visible register
// set. The flag register is configured separately via Flags.
type Registers struct {
	A, B, C, D, E, H, L uint8
	IX, IY              uint16
}

// Flags holds initial values for the six user visible flag bits.
type Flags struct {
	Sign           bool
	Zero           bool
	HalfCarry      bool
	ParityOverflow bool
	Subtract       bool
	Carry          bool
}

// mask packs the booleans into an F register value.
func (f Flags) mask() uint8 {
	var v uint8
	if f.Sign {
		v |= F_SIGN
	}
	if f.Zero {
		v |= F_ZERO
	}
	if f.HalfCarry {
		v |= F_HALFCARRY
	}
	if f.ParityOverflow {
		v |= F_PARITY
	}
	if f.Subtract {
		v |= F_SUBTRACT
	}
	if f.Carry {
		v |= F_CARRY
	}
	return v
}

// ChipDef defines a Z80 processor instance.
type ChipDef struct {
	// Mem describes the RAM bank built for this instance (size,
	// writeable window, mirror window).
	Mem memory.Def
	// Registers and Flags are the initial values restored on Reset.
	Registers Registers
	Flags     Flags
	// ProgramCounter and StackPointer are the initial 16 bit values.
	ProgramCounter uint16
	StackPointer   uint16
	// InterruptsEnabled is the initial state of IFF1/IFF2.
	InterruptsEnabled bool
	// PortIn/PortOut are the device hooks for the IN/OUT families.
	// Nil installs the null device.
	PortIn  io.ReadPort
	PortOut io.WritePort
	// Irq is an optional interrupt source sampled before each Step.
	Irq irq.Sender
}

// A few custom error types to distinguish why the CPU stopped.

// UnimplementedOpcode means the table has no entry for the decoded
// (prefix, byte) pair.
type UnimplementedOpcode struct {
	Bytes []uint8
}

// Error implements the interface for error types.
func (e UnimplementedOpcode) Error() string {
	return fmt.Sprintf("unimplemented opcode % X", e.Bytes)
}

// InvalidOpcodeTable means the static opcode table is internally
// inconsistent. This is a bug in the table, not in guest code.
type InvalidOpcodeTable struct {
	Family Family
	Op     uint8
	Reason string
}

// Error implements the interface for error types.
func (e InvalidOpcodeTable) Error() string {
	return fmt.Sprintf("invalid opcode table entry %s/0x%.2X: %s", e.Family, e.Op, e.Reason)
}

// ExecutionAfterHalt means Step was called after HALT without an
// intervening Reset or StepInterrupt.
type ExecutionAfterHalt struct {
	PC uint16
}

// Error implements the interface for error types.
func (e ExecutionAfterHalt) Error() string {
	return fmt.Sprintf("execution after HALT at 0x%.4X", e.PC)
}

// UnhandledInterrupt means StepInterrupt was given an id outside 0-7.
type UnhandledInterrupt struct {
	ID int
}

// Error implements the interface for error types.
func (e UnhandledInterrupt) Error() string {
	return fmt.Sprintf("unhandled interrupt id %d (want 0-7)", e.ID)
}

// Init creates a new Z80 from the given definition and returns it in
// a reset state. The memory bank is allocated here and owned by the
// chip for its lifetime.
func Init(def *ChipDef) (*Chip, error) {
	if def == nil {
		return nil, fmt.Errorf("nil ChipDef")
	}
	ram, err := memory.NewFlatRAM(def.Mem)
	if err != nil {
		return nil, err
	}
	p := &Chip{
		def:     *def,
		ram:     ram,
		portIn:  def.PortIn,
		portOut: def.PortOut,
		irqLine: def.Irq,
	}
	if p.portIn == nil {
		p.portIn = io.NullIn
	}
	if p.portOut == nil {
		p.portOut = io.NullOut
	}
	p.Reset()
	return p, nil
}

// Reset reallocates memory and restores the configured register and
// flag snapshot. The halted latch clears so Step may be called again.
func (p *Chip) Reset() {
	p.ram.PowerOn()
	r := p.def.Registers
	p.A, p.B, p.C, p.D, p.E, p.H, p.L = r.A, r.B, r.C, r.D, r.E, r.H, r.L
	p.F = p.def.Flags.mask()
	p.IX, p.IY = r.IX, r.IY
	p.alt = regFile{}
	p.PC = p.def.ProgramCounter
	p.SP = p.def.StackPointer
	p.I = 0
	p.R = 0
	p.iff1 = p.def.InterruptsEnabled
	p.iff2 = p.def.InterruptsEnabled
	p.im = 0
	p.deferInt = false
	p.halted = false
}

// LoadMemory copies b into low memory and zero fills the rest.
func (p *Chip) LoadMemory(b []uint8) error {
	return p.ram.LoadImage(b)
}

// Memory exposes the raw memory buffer for inspection between steps.
// Writes through it bypass the writeable window check.
func (p *Chip) Memory() []uint8 {
	return p.ram.Buffer()
}

// RAM returns the memory bank the chip owns. Useful for collaborators
// such as the disassembler which need checked reads between steps.
func (p *Chip) RAM() memory.Bank {
	return p.ram
}

// Finished reports whether the last executed opcode was HALT and no
// interrupt has fired since.
func (p *Chip) Finished() bool {
	return p.halted
}

// InterruptMode returns the current interrupt mode (0, 1 or 2).
func (p *Chip) InterruptMode() int {
	return p.im
}

// InterruptsEnabled returns the state of IFF1.
func (p *Chip) InterruptsEnabled() bool {
	return p.iff1
}

// Step fetches, decodes and executes one instruction at PC and
// returns the number of machine cycles it consumed. When a polled
// interrupt line is installed and raised (with interrupts enabled and
// no EI deferral pending) the interrupt acknowledge runs instead of
// an instruction.
func (p *Chip) Step() (int, error) {
	if p.halted {
		return 0, ExecutionAfterHalt{PC: p.PC}
	}
	deferred := p.deferInt
	p.deferInt = false
	if p.irqLine != nil && p.iff1 && !deferred && p.irqLine.Raised() {
		return p.acceptInterrupt()
	}

	op, err := p.ram.Read(p.PC)
	if err != nil {
		return 0, err
	}
	p.bumpR()

	fam := STANDARD
	final := op
	var disp int8
	switch op {
	case PREFIX_CB:
		fam = EXTENDED_BIT
		if final, err = p.readPC(1); err != nil {
			return 0, err
		}
		p.bumpR()
	case PREFIX_ED:
		fam = EXTENDED_STANDARD
		if final, err = p.readPC(1); err != nil {
			return 0, err
		}
		p.bumpR()
	case PREFIX_DD, PREFIX_FD:
		fam = IX
		if op == PREFIX_FD {
			fam = IY
		}
		if final, err = p.readPC(1); err != nil {
			return 0, err
		}
		p.bumpR()
		if final == PREFIX_CB {
			// The displacement precedes the last opcode byte.
			if fam == IX {
				fam = IX_BIT
			} else {
				fam = IY_BIT
			}
			var d uint8
			if d, err = p.readPC(2); err != nil {
				return 0, err
			}
			disp = int8(d)
			if final, err = p.readPC(3); err != nil {
				return 0, err
			}
		}
	}

	opc := Lookup(fam, final)
	if opc == nil {
		return 0, UnimplementedOpcode{Bytes: rawBytes(fam, final, disp)}
	}

	p.holdPC = false
	p.altCycles = false

	switch fam {
	case STANDARD:
		err = p.stepStandard(final)
	case EXTENDED_BIT:
		err = p.stepBit(final)
	case EXTENDED_STANDARD:
		err = p.stepExtended(final)
	case IX:
		err = p.stepIndex(final, &p.IX)
	case IY:
		err = p.stepIndex(final, &p.IY)
	case IX_BIT:
		err = p.stepIndexBit(final, disp, &p.IX)
	case IY_BIT:
		err = p.stepIndexBit(final, disp, &p.IY)
	}
	if err != nil {
		return 0, err
	}

	if !p.holdPC {
		p.PC += uint16(opc.Size)
	}
	if p.altCycles {
		if opc.AltCycles == 0 {
			return 0, InvalidOpcodeTable{Family: fam, Op: final, Reason: "alternate cycles requested but not defined"}
		}
		return opc.AltCycles, nil
	}
	return opc.Cycles, nil
}

// StepInterrupt injects interrupt id (0-7) as the equivalent of a
// CALL to the RST vector 8*id: the resume PC is pushed, PC jumps to
// the vector and the RST cycle cost is returned. A halted chip
// resumes at the instruction after HALT.
func (p *Chip) StepInterrupt(id int) (int, error) {
	if id < 0 || id > 7 {
		return 0, UnhandledInterrupt{ID: id}
	}
	ret := p.PC
	if p.halted {
		ret++
		p.halted = false
	}
	p.iff1, p.iff2 = false, false
	if err := p.push(ret); err != nil {
		return 0, err
	}
	p.PC = uint16(id) * 8
	return kRST_CYCLES, nil
}

// acceptInterrupt runs the mode dependent acknowledge for the polled
// interrupt line. Modes 0 and 1 vector to 0x0038. Mode 2 composes the
// vector table address from I and the sender's data bus byte.
func (p *Chip) acceptInterrupt() (int, error) {
	p.iff1, p.iff2 = false, false
	if p.im == 2 {
		vec := uint8(0xFF)
		if v, ok := p.irqLine.(irq.Vectorer); ok {
			vec = v.Vector()
		}
		addr := uint16(p.I)<<8 | uint16(vec)
		lo, err := p.ram.Read(addr)
		if err != nil {
			return 0, err
		}
		hi, err := p.ram.Read(addr + 1)
		if err != nil {
			return 0, err
		}
		if err := p.push(p.PC); err != nil {
			return 0, err
		}
		p.PC = uint16(hi)<<8 | uint16(lo)
		return kIM2_CYCLES, nil
	}
	if err := p.push(p.PC); err != nil {
		return 0, err
	}
	p.PC = 0x0038
	return kIM1_CYCLES, nil
}

// rawBytes reconstructs the byte sequence consumed by the decoder for
// error reporting.
func rawBytes(fam Family, final uint8, disp int8) []uint8 {
	switch fam {
	case EXTENDED_BIT:
		return []uint8{PREFIX_CB, final}
	case EXTENDED_STANDARD:
		return []uint8{PREFIX_ED, final}
	case IX:
		return []uint8{PREFIX_DD, final}
	case IY:
		return []uint8{PREFIX_FD, final}
	case IX_BIT:
		return []uint8{PREFIX_DD, PREFIX_CB, uint8(disp), final}
	case IY_BIT:
		return []uint8{PREFIX_FD, PREFIX_CB, uint8(disp), final}
	}
	return []uint8{final}
}

// bumpR increments the refresh counter, preserving bit 7.
func (p *Chip) bumpR() {
	p.R = (p.R & 0x80) | ((p.R + 1) & 0x7F)
}

// readPC reads the byte at PC+off.
func (p *Chip) readPC(off uint16) (uint8, error) {
	return p.ram.Read(p.PC + off)
}

// readPC16 reads the little endian word at PC+off.
func (p *Chip) readPC16(off uint16) (uint16, error) {
	lo, err := p.ram.Read(p.PC + off)
	if err != nil {
		return 0, err
	}
	hi, err := p.ram.Read(p.PC + off + 1)
	if err != nil {
		return 0, err
	}
	return uint16(hi)<<8 | uint16(lo), nil
}

// readWord reads the little endian word at addr.
func (p *Chip) readWord(addr uint16) (uint16, error) {
	lo, err := p.ram.Read(addr)
	if err != nil {
		return 0, err
	}
	hi, err := p.ram.Read(addr + 1)
	if err != nil {
		return 0, err
	}
	return uint16(hi)<<8 | uint16(lo), nil
}

// writeWord writes the little endian word at addr.
func (p *Chip) writeWord(addr uint16, val uint16) error {
	if err := p.ram.Write(addr, uint8(val)); err != nil {
		return err
	}
	return p.ram.Write(addr+1, uint8(val>>8))
}

// push pre-decrements SP twice storing high then low so the high byte
// lands at the higher address.
func (p *Chip) push(val uint16) error {
	p.SP--
	if err := p.ram.Write(p.SP, uint8(val>>8)); err != nil {
		return err
	}
	p.SP--
	return p.ram.Write(p.SP, uint8(val))
}

// pop is the reverse of push.
func (p *Chip) pop() (uint16, error) {
	lo, err := p.ram.Read(p.SP)
	if err != nil {
		return 0, err
	}
	p.SP++
	hi, err := p.ram.Read(p.SP)
	if err != nil {
		return 0, err
	}
	p.SP++
	return uint16(hi)<<8 | uint16(lo), nil
}

// cond evaluates condition code idx: NZ Z NC C PO PE P M.
func (p *Chip) cond(idx uint8) bool {
	switch idx {
	case 0:
		return p.F&F_ZERO == 0
	case 1:
		return p.F&F_ZERO != 0
	case 2:
		return p.F&F_CARRY == 0
	case 3:
		return p.F&F_CARRY != 0
	case 4:
		return p.F&F_PARITY == 0
	case 5:
		return p.F&F_PARITY != 0
	case 6:
		return p.F&F_SIGN == 0
	}
	return p.F&F_SIGN != 0
}

// readReg8 reads register index 0-7 (B C D E H L (HL) A).
func (p *Chip) readReg8(idx uint8) (uint8, error) {
	switch idx {
	case 0:
		return p.B, nil
	case 1:
		return p.C, nil
	case 2:
		return p.D, nil
	case 3:
		return p.E, nil
	case 4:
		return p.H, nil
	case 5:
		return p.L, nil
	case 6:
		return p.ram.Read(p.HL())
	}
	return p.A, nil
}

// writeReg8 writes register index 0-7 (B C D E H L (HL) A).
func (p *Chip) writeReg8(idx uint8, val uint8) error {
	switch idx {
	case 0:
		p.B = val
	case 1:
		p.C = val
	case 2:
		p.D = val
	case 3:
		p.E = val
	case 4:
		p.H = val
	case 5:
		p.L = val
	case 6:
		return p.ram.Write(p.HL(), val)
	default:
		p.A = val
	}
	return nil
}
