// Package insts defines the instruction capability interface the timing
// pipeline is written against.
//
// Concrete instruction sets live in sub-packages (riscv, mips). Each of them
// decodes 32-bit instruction words into values that implement
// Instruction[W], where W is the architectural register width:
//
//	isa := riscv.New[uint64]()
//	inst := isa.Decode(0x00500513, 0x1000) // addi a0, zero, 5
//	inst.Execute()
//	fmt.Println(inst.Result()) // 5
package insts

import "fmt"

// Word is the set of supported register widths.
type Word interface {
	~uint32 | ~uint64
}

// Addr is a virtual address. Addresses are always tracked as 64-bit values;
// 32-bit ISAs simply never set the upper half.
type Addr = uint64

// Register identifies an architectural integer register.
type Register uint8

const (
	// RegZero is the hard-wired zero register in every supported ISA.
	RegZero Register = 0
	// RegNone marks an unused operand slot.
	RegNone Register = 0xFF
)

// NumRegisters is the number of architectural integer registers.
const NumRegisters = 32

// IsNone returns true if the register is not a real operand.
func (r Register) IsNone() bool {
	return r == RegNone
}

// IsTracked returns true if values written to the register are observable,
// i.e. it is a real register other than the zero register.
func (r Register) IsTracked() bool {
	return r != RegNone && r != RegZero && r < NumRegisters
}

func (r Register) String() string {
	if r == RegNone {
		return "-"
	}
	return fmt.Sprintf("r%d", uint8(r))
}

// Class groups instructions by the way the pipeline treats them.
type Class uint8

// Instruction classes.
const (
	ClassALU Class = iota
	ClassLongArith
	ClassLoad
	ClassStore
	ClassBranch
	ClassJump
	ClassIndirectJump
	ClassSystem
)

var classNames = [...]string{
	ClassALU:          "alu",
	ClassLongArith:    "long-arith",
	ClassLoad:         "load",
	ClassStore:        "store",
	ClassBranch:       "branch",
	ClassJump:         "jump",
	ClassIndirectJump: "indirect-jump",
	ClassSystem:       "system",
}

func (c Class) String() string {
	if int(c) < len(classNames) {
		return classNames[c]
	}
	return fmt.Sprintf("class(%d)", uint8(c))
}

// IsControlFlow returns true for conditional branches and jumps.
func (c Class) IsControlFlow() bool {
	return c == ClassBranch || c == ClassJump || c == ClassIndirectJump
}

// IsMemory returns true for loads and stores.
func (c Class) IsMemory() bool {
	return c == ClassLoad || c == ClassStore
}

// Trap is the kind of exception an instruction raises when it retires.
type Trap uint8

// Traps.
const (
	TrapNone Trap = iota
	TrapSyscall
	TrapBreakpoint
	TrapIllegal
)

func (t Trap) String() string {
	switch t {
	case TrapNone:
		return "none"
	case TrapSyscall:
		return "syscall"
	case TrapBreakpoint:
		return "breakpoint"
	case TrapIllegal:
		return "illegal"
	default:
		return fmt.Sprintf("trap(%d)", uint8(t))
	}
}

// BPInterface is the branch prediction record attached to every fetched
// instruction. The same record, with Resolved set, is sent back to the
// predictor once the outcome is known.
type BPInterface struct {
	// PC is the address of the predicted instruction.
	PC Addr
	// IsTaken is the predicted (or resolved) direction.
	IsTaken bool
	// Target is the predicted (or resolved) target.
	Target Addr
	// IsHit is true when the predictor had an entry for PC.
	IsHit bool
	// Resolved is true when the record carries the executed outcome rather
	// than a decode-time correction.
	Resolved bool
}

// Width returns the register width of W in bits.
func Width[W Word]() int {
	var zero W
	if uint64(^zero) == 0xFFFFFFFF {
		return 32
	}
	return 64
}

// Signed interprets v as a two's-complement value of its own width.
func Signed[W Word](v W) int64 {
	shift := 64 - Width[W]()
	return int64(uint64(v)<<shift) >> shift
}

// SignExtend sign-extends the low bits of v.
func SignExtend(v uint64, bits int) int64 {
	shift := 64 - bits
	return int64(v<<shift) >> shift
}

// FromBool converts a comparison result into a register value.
func FromBool[W Word](b bool) W {
	if b {
		return 1
	}
	return 0
}
