package mips

import "github.com/sarchlab/pipesim/insts"

// Encoders for building test programs. Branch offsets are byte offsets
// relative to the branch instruction.

func encR(rs, rt, rd insts.Register, sa, funct uint32) uint32 {
	return uint32(rs)<<21 | uint32(rt)<<16 | uint32(rd)<<11 | (sa&0x1f)<<6 | funct
}

func encI(op uint32, rs, rt insts.Register, imm int32) uint32 {
	return op<<26 | uint32(rs)<<21 | uint32(rt)<<16 | uint32(imm)&0xffff
}

func branchImm(offset int32) int32 {
	return (offset - 4) >> 2
}

// ADDIU encodes addiu rt, rs, imm.
func ADDIU(rt, rs insts.Register, imm int32) uint32 { return encI(0x09, rs, rt, imm) }

// ORI encodes ori rt, rs, imm.
func ORI(rt, rs insts.Register, imm uint16) uint32 { return encI(0x0d, rs, rt, int32(imm)) }

// LUI encodes lui rt, imm.
func LUI(rt insts.Register, imm uint16) uint32 { return encI(0x0f, 0, rt, int32(imm)) }

// ADDU encodes addu rd, rs, rt.
func ADDU(rd, rs, rt insts.Register) uint32 { return encR(rs, rt, rd, 0, 0x21) }

// SUBU encodes subu rd, rs, rt.
func SUBU(rd, rs, rt insts.Register) uint32 { return encR(rs, rt, rd, 0, 0x23) }

// SLT encodes slt rd, rs, rt.
func SLT(rd, rs, rt insts.Register) uint32 { return encR(rs, rt, rd, 0, 0x2a) }

// SLL encodes sll rd, rt, sa.
func SLL(rd, rt insts.Register, sa uint32) uint32 { return encR(0, rt, rd, sa, 0x00) }

// MUL encodes mul rd, rs, rt.
func MUL(rd, rs, rt insts.Register) uint32 { return opSpecial2<<26 | encR(rs, rt, rd, 0, 0x02) }

// LW encodes lw rt, imm(rs).
func LW(rt, rs insts.Register, imm int32) uint32 { return encI(0x23, rs, rt, imm) }

// SW encodes sw rt, imm(rs).
func SW(rt, rs insts.Register, imm int32) uint32 { return encI(0x2b, rs, rt, imm) }

// BEQ encodes beq rs, rt, offset.
func BEQ(rs, rt insts.Register, offset int32) uint32 { return encI(0x04, rs, rt, branchImm(offset)) }

// BNE encodes bne rs, rt, offset.
func BNE(rs, rt insts.Register, offset int32) uint32 { return encI(0x05, rs, rt, branchImm(offset)) }

// BEQL encodes beql rs, rt, offset.
func BEQL(rs, rt insts.Register, offset int32) uint32 { return encI(0x14, rs, rt, branchImm(offset)) }

// BNEL encodes bnel rs, rt, offset.
func BNEL(rs, rt insts.Register, offset int32) uint32 { return encI(0x15, rs, rt, branchImm(offset)) }

// BGTZ encodes bgtz rs, offset.
func BGTZ(rs insts.Register, offset int32) uint32 { return encI(0x07, rs, 0, branchImm(offset)) }

// J encodes j target for an absolute target in the current 256 MiB region.
func J(target uint64) uint32 { return 0x02<<26 | uint32(target>>2)&0x03ffffff }

// JAL encodes jal target.
func JAL(target uint64) uint32 { return 0x03<<26 | uint32(target>>2)&0x03ffffff }

// JR encodes jr rs.
func JR(rs insts.Register) uint32 { return encR(rs, 0, 0, 0, 0x08) }

// SYSCALL encodes syscall.
func SYSCALL() uint32 { return 0x0000000c }

// BREAK encodes break.
func BREAK() uint32 { return 0x0000000d }

// NOP encodes sll $zero, $zero, 0.
func NOP() uint32 { return 0 }
