// Package mips implements a little-endian MIPS32/MIPS64 integer subset.
//
// Branches and jumps are modelled without delay slots: control transfers
// take effect after the branch itself and link registers receive PC+4.
// Branch-likely instructions (BEQL, BNEL) are supported and are always
// flagged as likely branches to the pipeline.
package mips

import "github.com/sarchlab/pipesim/insts"

// Register names.
const (
	Zero insts.Register = iota
	AT
	V0
	V1
	A0
	A1
	A2
	A3
	T0
	T1
	T2
	T3
	T4
	T5
	T6
	T7
	S0
	S1
	S2
	S3
	S4
	S5
	S6
	S7
	T8
	T9
	K0
	K1
	GP
	SP
	FP
	RA
)

var regNames = [insts.NumRegisters]string{
	"$zero", "$at", "$v0", "$v1", "$a0", "$a1", "$a2", "$a3",
	"$t0", "$t1", "$t2", "$t3", "$t4", "$t5", "$t6", "$t7",
	"$s0", "$s1", "$s2", "$s3", "$s4", "$s5", "$s6", "$s7",
	"$t8", "$t9", "$k0", "$k1", "$gp", "$sp", "$fp", "$ra",
}

// RegName returns the conventional name of r.
func RegName(r insts.Register) string {
	if r < insts.NumRegisters {
		return regNames[r]
	}
	return r.String()
}

// Linux o32 system call numbers.
const (
	SysReadO32      = 4003
	SysWriteO32     = 4004
	SysCloseO32     = 4006
	SysExitO32      = 4001
	SysExitGroupO32 = 4246
)

// Linux n64 system call numbers.
const (
	SysReadN64      = 5000
	SysWriteN64     = 5001
	SysCloseN64     = 5003
	SysExitN64      = 5058
	SysExitGroupN64 = 5205
)

// ISA is the MIPS instruction set at register width W.
type ISA[W insts.Word] struct{}

// New returns the MIPS ISA for register width W.
func New[W insts.Word]() *ISA[W] {
	return &ISA[W]{}
}

// Name returns "mips32" or "mips64".
func (*ISA[W]) Name() string {
	if insts.Width[W]() == 32 {
		return "mips32"
	}
	return "mips64"
}

// ABI returns the o32 convention for 32-bit and the n64 convention for
// 64-bit registers.
func (*ISA[W]) ABI() insts.ABI {
	abi := insts.ABI{
		StackPointer:  SP,
		SyscallNumber: V0,
		SyscallArgs:   [3]insts.Register{A0, A1, A2},
		SyscallReturn: V0,
		SyscallError:  A3,
	}
	if insts.Width[W]() == 32 {
		abi.SysRead, abi.SysWrite, abi.SysClose = SysReadO32, SysWriteO32, SysCloseO32
		abi.SysExit, abi.SysExitGroup = SysExitO32, SysExitGroupO32
	} else {
		abi.SysRead, abi.SysWrite, abi.SysClose = SysReadN64, SysWriteN64, SysCloseN64
		abi.SysExit, abi.SysExitGroup = SysExitN64, SysExitGroupN64
	}
	return abi
}
