package riscv

import "github.com/sarchlab/pipesim/insts"

// Encoders for building test programs and micro-benchmarks without an
// external toolchain. Offsets are byte offsets relative to the instruction.

func encR(opcode, funct3, funct7 uint32, rd, rs1, rs2 insts.Register) uint32 {
	return funct7<<25 | uint32(rs2)<<20 | uint32(rs1)<<15 | funct3<<12 | uint32(rd)<<7 | opcode
}

func encI(opcode, funct3 uint32, rd, rs1 insts.Register, imm int32) uint32 {
	return uint32(imm&0xfff)<<20 | uint32(rs1)<<15 | funct3<<12 | uint32(rd)<<7 | opcode
}

func encS(funct3 uint32, rs1, rs2 insts.Register, imm int32) uint32 {
	u := uint32(imm)
	return (u>>5&0x7f)<<25 | uint32(rs2)<<20 | uint32(rs1)<<15 | funct3<<12 | (u&0x1f)<<7 | opcodeStore
}

func encB(funct3 uint32, rs1, rs2 insts.Register, offset int32) uint32 {
	u := uint32(offset)
	return (u>>12&1)<<31 | (u>>5&0x3f)<<25 | uint32(rs2)<<20 | uint32(rs1)<<15 |
		funct3<<12 | (u>>1&0xf)<<8 | (u>>11&1)<<7 | opcodeBranch
}

// LUI encodes lui rd, imm20.
func LUI(rd insts.Register, imm20 uint32) uint32 {
	return (imm20&0xfffff)<<12 | uint32(rd)<<7 | opcodeLUI
}

// JAL encodes jal rd, offset.
func JAL(rd insts.Register, offset int32) uint32 {
	u := uint32(offset)
	return (u>>20&1)<<31 | (u>>1&0x3ff)<<21 | (u>>11&1)<<20 | (u>>12&0xff)<<12 |
		uint32(rd)<<7 | opcodeJAL
}

// JALR encodes jalr rd, imm(rs1).
func JALR(rd, rs1 insts.Register, imm int32) uint32 {
	return encI(opcodeJALR, 0, rd, rs1, imm)
}

// BEQ encodes beq rs1, rs2, offset.
func BEQ(rs1, rs2 insts.Register, offset int32) uint32 { return encB(0, rs1, rs2, offset) }

// BNE encodes bne rs1, rs2, offset.
func BNE(rs1, rs2 insts.Register, offset int32) uint32 { return encB(1, rs1, rs2, offset) }

// BLT encodes blt rs1, rs2, offset.
func BLT(rs1, rs2 insts.Register, offset int32) uint32 { return encB(4, rs1, rs2, offset) }

// BGE encodes bge rs1, rs2, offset.
func BGE(rs1, rs2 insts.Register, offset int32) uint32 { return encB(5, rs1, rs2, offset) }

// LW encodes lw rd, imm(rs1).
func LW(rd, rs1 insts.Register, imm int32) uint32 { return encI(opcodeLoad, 2, rd, rs1, imm) }

// LD encodes ld rd, imm(rs1).
func LD(rd, rs1 insts.Register, imm int32) uint32 { return encI(opcodeLoad, 3, rd, rs1, imm) }

// LBU encodes lbu rd, imm(rs1).
func LBU(rd, rs1 insts.Register, imm int32) uint32 { return encI(opcodeLoad, 4, rd, rs1, imm) }

// SB encodes sb rs2, imm(rs1).
func SB(rs2, rs1 insts.Register, imm int32) uint32 { return encS(0, rs1, rs2, imm) }

// SW encodes sw rs2, imm(rs1).
func SW(rs2, rs1 insts.Register, imm int32) uint32 { return encS(2, rs1, rs2, imm) }

// SD encodes sd rs2, imm(rs1).
func SD(rs2, rs1 insts.Register, imm int32) uint32 { return encS(3, rs1, rs2, imm) }

// ADDI encodes addi rd, rs1, imm.
func ADDI(rd, rs1 insts.Register, imm int32) uint32 { return encI(opcodeOpImm, 0, rd, rs1, imm) }

// ANDI encodes andi rd, rs1, imm.
func ANDI(rd, rs1 insts.Register, imm int32) uint32 { return encI(opcodeOpImm, 7, rd, rs1, imm) }

// SLLI encodes slli rd, rs1, shamt.
func SLLI(rd, rs1 insts.Register, shamt uint32) uint32 {
	return encI(opcodeOpImm, 1, rd, rs1, int32(shamt&0x3f))
}

// ADD encodes add rd, rs1, rs2.
func ADD(rd, rs1, rs2 insts.Register) uint32 { return encR(opcodeOp, 0, 0x00, rd, rs1, rs2) }

// SUB encodes sub rd, rs1, rs2.
func SUB(rd, rs1, rs2 insts.Register) uint32 { return encR(opcodeOp, 0, 0x20, rd, rs1, rs2) }

// XOR encodes xor rd, rs1, rs2.
func XOR(rd, rs1, rs2 insts.Register) uint32 { return encR(opcodeOp, 4, 0x00, rd, rs1, rs2) }

// SLT encodes slt rd, rs1, rs2.
func SLT(rd, rs1, rs2 insts.Register) uint32 { return encR(opcodeOp, 2, 0x00, rd, rs1, rs2) }

// MUL encodes mul rd, rs1, rs2.
func MUL(rd, rs1, rs2 insts.Register) uint32 { return encR(opcodeOp, 0, 0x01, rd, rs1, rs2) }

// DIV encodes div rd, rs1, rs2.
func DIV(rd, rs1, rs2 insts.Register) uint32 { return encR(opcodeOp, 4, 0x01, rd, rs1, rs2) }

// REM encodes rem rd, rs1, rs2.
func REM(rd, rs1, rs2 insts.Register) uint32 { return encR(opcodeOp, 6, 0x01, rd, rs1, rs2) }

// ECALL encodes ecall.
func ECALL() uint32 { return 0x00000073 }

// EBREAK encodes ebreak.
func EBREAK() uint32 { return 0x00100073 }

// NOP encodes addi zero, zero, 0.
func NOP() uint32 { return ADDI(Zero, Zero, 0) }

// LI returns the instructions that load a signed 32-bit constant.
func LI(rd insts.Register, v int32) []uint32 {
	if v >= -2048 && v < 2048 {
		return []uint32{ADDI(rd, Zero, v)}
	}
	lo := v << 20 >> 20
	hi := uint32(v-lo) >> 12
	return []uint32{LUI(rd, hi), ADDI(rd, rd, lo)}
}
