package insts

import "fmt"

// ABI describes the calling convention details the simulator needs: where the
// stack pointer lives and how system calls are passed.
type ABI struct {
	// StackPointer is the register holding the stack pointer.
	StackPointer Register
	// SyscallNumber is the register holding the system call number.
	SyscallNumber Register
	// SyscallArgs are the registers holding the first system call arguments.
	SyscallArgs [3]Register
	// SyscallReturn receives the system call result.
	SyscallReturn Register
	// SyscallError receives 0 or 1 to flag failure. RegNone if the ABI
	// reports errors as negative return values instead.
	SyscallError Register

	SysRead      uint64
	SysWrite     uint64
	SysClose     uint64
	SysExit      uint64
	SysExitGroup uint64
}

// ISA decodes instruction words of one instruction set at register width W.
type ISA[W Word] interface {
	// Name returns a short identifier such as "riscv64".
	Name() string
	// Decode decodes the instruction word found at pc. Words that do not
	// decode return an instruction that raises TrapIllegal at retirement.
	Decode(word uint32, pc Addr) Instruction[W]
	// ABI returns the calling convention of the ISA.
	ABI() ABI
}

// Instruction is a decoded instruction instance. An instance carries its own
// operand values and results, so it is used for exactly one dynamic
// execution.
type Instruction[W Word] interface {
	PC() Addr
	// NextPC is the fall-through address.
	NextPC() Addr

	Class() Class
	// Src returns the register read by operand slot i (0 or 1), or RegNone.
	Src(i int) Register
	// Dst returns the register written by the instruction, or RegNone.
	Dst() Register

	SrcValue(i int) W
	SetSrcValue(i int, v W)
	Result() W

	IsJump() bool
	IsBranch() bool
	IsDirectJump() bool
	IsIndirectJump() bool
	IsLikelyBranch() bool
	IsLongArithmetic() bool
	IsLoad() bool
	IsStore() bool

	// HasDecodedTarget is true when the control-flow target is known at
	// decode time.
	HasDecodedTarget() bool
	DecodedTarget() Addr

	// Execute computes the result, the control-flow outcome and the memory
	// address from the current source values.
	Execute()
	IsTaken() bool
	// ActualTarget is the address of the next instruction after execution.
	ActualTarget() Addr

	MemAddr() Addr
	MemSize() int
	StoreValue() W
	// SetLoadValue completes a load with the raw value read from memory.
	SetLoadValue(raw uint64)

	Trap() Trap
	String() string
}

// Base holds the state shared by every concrete instruction type. ISA
// packages embed it and implement Execute on top of it.
type Base[W Word] struct {
	pc     Addr
	disasm string
	class  Class

	src      [2]Register
	dst      Register
	srcValue [2]W
	result   W

	target    Addr
	hasTarget bool
	likely    bool

	taken     bool
	newPC     Addr
	completed bool

	memAddr    Addr
	memSize    int
	loadSigned bool
	storeValue W

	trap Trap
}

// NewBase returns a Base with no operands.
func NewBase[W Word](pc Addr, class Class, disasm string) Base[W] {
	return Base[W]{
		pc:     pc,
		class:  class,
		disasm: disasm,
		src:    [2]Register{RegNone, RegNone},
		dst:    RegNone,
	}
}

// SetOperands sets the source and destination registers.
func (b *Base[W]) SetOperands(src0, src1, dst Register) {
	b.src = [2]Register{src0, src1}
	b.dst = dst
}

// SetDecodedTarget records a control-flow target known at decode time.
func (b *Base[W]) SetDecodedTarget(target Addr) {
	b.target = target
	b.hasTarget = true
}

// SetLikely marks a branch-likely instruction.
func (b *Base[W]) SetLikely() {
	b.likely = true
}

// SetTrap makes the instruction raise t when it retires.
func (b *Base[W]) SetTrap(t Trap) {
	b.trap = t
}

// SetResult sets the value written to the destination register.
func (b *Base[W]) SetResult(v W) {
	b.result = v
}

// SetOutcome records the control-flow outcome of execution.
func (b *Base[W]) SetOutcome(taken bool, target Addr) {
	b.taken = taken
	b.newPC = target
	b.completed = true
}

// SetMemAccess records the effective address of a load or store.
func (b *Base[W]) SetMemAccess(addr Addr, size int, signed bool) {
	b.memAddr = addr
	b.memSize = size
	b.loadSigned = signed
}

// SetStoreValue records the value a store writes.
func (b *Base[W]) SetStoreValue(v W) {
	b.storeValue = v
}

func (b *Base[W]) PC() Addr     { return b.pc }
func (b *Base[W]) NextPC() Addr { return b.pc + 4 }
func (b *Base[W]) Class() Class { return b.class }

func (b *Base[W]) Dst() Register {
	return b.dst
}

func (b *Base[W]) Src(i int) Register {
	return b.src[i]
}

func (b *Base[W]) SrcValue(i int) W {
	return b.srcValue[i]
}

func (b *Base[W]) SetSrcValue(i int, v W) {
	b.srcValue[i] = v
}

func (b *Base[W]) Result() W { return b.result }

func (b *Base[W]) IsJump() bool           { return b.class.IsControlFlow() }
func (b *Base[W]) IsBranch() bool         { return b.class == ClassBranch }
func (b *Base[W]) IsDirectJump() bool     { return b.class == ClassJump }
func (b *Base[W]) IsIndirectJump() bool   { return b.class == ClassIndirectJump }
func (b *Base[W]) IsLikelyBranch() bool   { return b.likely }
func (b *Base[W]) IsLongArithmetic() bool { return b.class == ClassLongArith }
func (b *Base[W]) IsLoad() bool           { return b.class == ClassLoad }
func (b *Base[W]) IsStore() bool          { return b.class == ClassStore }

func (b *Base[W]) HasDecodedTarget() bool { return b.hasTarget }
func (b *Base[W]) DecodedTarget() Addr    { return b.target }

func (b *Base[W]) IsTaken() bool { return b.taken }

func (b *Base[W]) ActualTarget() Addr {
	if b.completed && b.taken {
		return b.newPC
	}
	return b.NextPC()
}

func (b *Base[W]) MemAddr() Addr { return b.memAddr }
func (b *Base[W]) MemSize() int  { return b.memSize }
func (b *Base[W]) StoreValue() W { return b.storeValue }
func (b *Base[W]) Trap() Trap    { return b.trap }

// SetLoadValue sign- or zero-extends raw according to the access size.
func (b *Base[W]) SetLoadValue(raw uint64) {
	bits := b.memSize * 8
	if bits < 64 {
		raw &= (uint64(1) << bits) - 1
		if b.loadSigned {
			raw = uint64(SignExtend(raw, bits))
		}
	}
	b.result = W(raw)
}

func (b *Base[W]) String() string {
	return fmt.Sprintf("0x%x: %s", b.pc, b.disasm)
}
