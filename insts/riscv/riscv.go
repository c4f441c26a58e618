// Package riscv implements the RV32IM and RV64IM integer subset.
package riscv

import "github.com/sarchlab/pipesim/insts"

// ABI register names.
const (
	Zero insts.Register = iota
	RA
	SP
	GP
	TP
	T0
	T1
	T2
	S0
	S1
	A0
	A1
	A2
	A3
	A4
	A5
	A6
	A7
	S2
	S3
	S4
	S5
	S6
	S7
	S8
	S9
	S10
	S11
	T3
	T4
	T5
	T6
)

var regNames = [insts.NumRegisters]string{
	"zero", "ra", "sp", "gp", "tp", "t0", "t1", "t2",
	"s0", "s1", "a0", "a1", "a2", "a3", "a4", "a5",
	"a6", "a7", "s2", "s3", "s4", "s5", "s6", "s7",
	"s8", "s9", "s10", "s11", "t3", "t4", "t5", "t6",
}

// RegName returns the ABI name of r.
func RegName(r insts.Register) string {
	if r < insts.NumRegisters {
		return regNames[r]
	}
	return r.String()
}

// Linux system call numbers.
const (
	SysRead      = 63
	SysWrite     = 64
	SysClose     = 57
	SysExit      = 93
	SysExitGroup = 94
)

// ISA is the RISC-V instruction set at register width W.
type ISA[W insts.Word] struct{}

// New returns the RISC-V ISA for register width W.
func New[W insts.Word]() *ISA[W] {
	return &ISA[W]{}
}

// Name returns "riscv32" or "riscv64".
func (*ISA[W]) Name() string {
	if insts.Width[W]() == 32 {
		return "riscv32"
	}
	return "riscv64"
}

// ABI returns the Linux calling convention.
func (*ISA[W]) ABI() insts.ABI {
	return insts.ABI{
		StackPointer:  SP,
		SyscallNumber: A7,
		SyscallArgs:   [3]insts.Register{A0, A1, A2},
		SyscallReturn: A0,
		SyscallError:  insts.RegNone,
		SysRead:       SysRead,
		SysWrite:      SysWrite,
		SysClose:      SysClose,
		SysExit:       SysExit,
		SysExitGroup:  SysExitGroup,
	}
}
