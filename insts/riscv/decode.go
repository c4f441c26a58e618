package riscv

import (
	"fmt"

	"github.com/sarchlab/pipesim/insts"
)

// Op is a RISC-V operation.
type Op uint8

// Operations.
const (
	OpIllegal Op = iota
	OpLUI
	OpAUIPC
	OpJAL
	OpJALR
	OpBEQ
	OpBNE
	OpBLT
	OpBGE
	OpBLTU
	OpBGEU
	OpLB
	OpLH
	OpLW
	OpLD
	OpLBU
	OpLHU
	OpLWU
	OpSB
	OpSH
	OpSW
	OpSD
	OpADDI
	OpSLTI
	OpSLTIU
	OpXORI
	OpORI
	OpANDI
	OpSLLI
	OpSRLI
	OpSRAI
	OpADD
	OpSUB
	OpSLL
	OpSLT
	OpSLTU
	OpXOR
	OpSRL
	OpSRA
	OpOR
	OpAND
	OpMUL
	OpDIV
	OpDIVU
	OpREM
	OpREMU
	OpADDIW
	OpSLLIW
	OpSRLIW
	OpSRAIW
	OpADDW
	OpSUBW
	OpSLLW
	OpSRLW
	OpSRAW
	OpMULW
	OpECALL
	OpEBREAK
)

// Major opcodes.
const (
	opcodeLoad   = 0x03
	opcodeOpImm  = 0x13
	opcodeAUIPC  = 0x17
	opcodeOpImmW = 0x1b
	opcodeStore  = 0x23
	opcodeOp     = 0x33
	opcodeLUI    = 0x37
	opcodeOpW    = 0x3b
	opcodeBranch = 0x63
	opcodeJALR   = 0x67
	opcodeJAL    = 0x6f
	opcodeSystem = 0x73
)

// Instr is a decoded RISC-V instruction.
type Instr[W insts.Word] struct {
	insts.Base[W]
	op  Op
	imm int64
}

// Op returns the operation.
func (i *Instr[W]) Op() Op {
	return i.op
}

// Imm returns the sign-extended immediate.
func (i *Instr[W]) Imm() int64 {
	return i.imm
}

type fields struct {
	opcode uint32
	rd     insts.Register
	rs1    insts.Register
	rs2    insts.Register
	funct3 uint32
	funct7 uint32
}

func split(w uint32) fields {
	return fields{
		opcode: w & 0x7f,
		rd:     insts.Register((w >> 7) & 0x1f),
		funct3: (w >> 12) & 0x7,
		rs1:    insts.Register((w >> 15) & 0x1f),
		rs2:    insts.Register((w >> 20) & 0x1f),
		funct7: w >> 25,
	}
}

func immI(w uint32) int64 {
	return int64(int32(w) >> 20)
}

func immS(w uint32) int64 {
	return int64((int32(w)>>25)<<5) | int64((w>>7)&0x1f)
}

func immB(w uint32) int64 {
	v := ((w>>31)&1)<<12 | ((w>>7)&1)<<11 | ((w>>25)&0x3f)<<5 | ((w>>8)&0xf)<<1
	return insts.SignExtend(uint64(v), 13)
}

func immU(w uint32) int64 {
	return int64(int32(w & 0xfffff000))
}

func immJ(w uint32) int64 {
	v := ((w>>31)&1)<<20 | ((w>>12)&0xff)<<12 | ((w>>20)&1)<<11 | ((w>>21)&0x3ff)<<1
	return insts.SignExtend(uint64(v), 21)
}

// Decode decodes the instruction word at pc.
func (isa *ISA[W]) Decode(word uint32, pc insts.Addr) insts.Instruction[W] {
	f := split(word)
	is64 := insts.Width[W]() == 64

	switch f.opcode {
	case opcodeLUI:
		return isa.build(pc, OpLUI, insts.ClassALU, immU(word),
			insts.RegNone, insts.RegNone, f.rd, word)
	case opcodeAUIPC:
		return isa.build(pc, OpAUIPC, insts.ClassALU, immU(word),
			insts.RegNone, insts.RegNone, f.rd, word)
	case opcodeJAL:
		inst := isa.build(pc, OpJAL, insts.ClassJump, immJ(word),
			insts.RegNone, insts.RegNone, f.rd, word)
		inst.SetDecodedTarget(isa.wrap(pc + uint64(inst.imm)))
		return inst
	case opcodeJALR:
		if f.funct3 != 0 {
			break
		}
		return isa.build(pc, OpJALR, insts.ClassIndirectJump, immI(word),
			f.rs1, insts.RegNone, f.rd, word)
	case opcodeBranch:
		op, ok := branchOps[f.funct3]
		if !ok {
			break
		}
		inst := isa.build(pc, op, insts.ClassBranch, immB(word),
			f.rs1, f.rs2, insts.RegNone, word)
		inst.SetDecodedTarget(isa.wrap(pc + uint64(inst.imm)))
		return inst
	case opcodeLoad:
		op, ok := loadOps[f.funct3]
		if !ok || (!is64 && (op == OpLD || op == OpLWU)) {
			break
		}
		return isa.build(pc, op, insts.ClassLoad, immI(word),
			f.rs1, insts.RegNone, f.rd, word)
	case opcodeStore:
		op, ok := storeOps[f.funct3]
		if !ok || (!is64 && op == OpSD) {
			break
		}
		return isa.build(pc, op, insts.ClassStore, immS(word),
			f.rs1, f.rs2, insts.RegNone, word)
	case opcodeOpImm:
		if op, imm, ok := decodeOpImm(word, f, is64); ok {
			return isa.build(pc, op, insts.ClassALU, imm,
				f.rs1, insts.RegNone, f.rd, word)
		}
	case opcodeOp:
		if op, ok := decodeOp(f); ok {
			return isa.build(pc, op, classOf(op), 0, f.rs1, f.rs2, f.rd, word)
		}
	case opcodeOpImmW:
		if !is64 {
			break
		}
		if op, imm, ok := decodeOpImmW(word, f); ok {
			return isa.build(pc, op, insts.ClassALU, imm,
				f.rs1, insts.RegNone, f.rd, word)
		}
	case opcodeOpW:
		if !is64 {
			break
		}
		if op, ok := decodeOpW(f); ok {
			return isa.build(pc, op, classOf(op), 0, f.rs1, f.rs2, f.rd, word)
		}
	case opcodeSystem:
		switch word {
		case 0x00000073:
			inst := isa.build(pc, OpECALL, insts.ClassSystem, 0,
				insts.RegNone, insts.RegNone, insts.RegNone, word)
			inst.SetTrap(insts.TrapSyscall)
			return inst
		case 0x00100073:
			inst := isa.build(pc, OpEBREAK, insts.ClassSystem, 0,
				insts.RegNone, insts.RegNone, insts.RegNone, word)
			inst.SetTrap(insts.TrapBreakpoint)
			return inst
		}
	}

	inst := isa.build(pc, OpIllegal, insts.ClassSystem, 0,
		insts.RegNone, insts.RegNone, insts.RegNone, word)
	inst.SetTrap(insts.TrapIllegal)
	return inst
}

var branchOps = map[uint32]Op{
	0: OpBEQ, 1: OpBNE, 4: OpBLT, 5: OpBGE, 6: OpBLTU, 7: OpBGEU,
}

var loadOps = map[uint32]Op{
	0: OpLB, 1: OpLH, 2: OpLW, 3: OpLD, 4: OpLBU, 5: OpLHU, 6: OpLWU,
}

var storeOps = map[uint32]Op{
	0: OpSB, 1: OpSH, 2: OpSW, 3: OpSD,
}

func decodeOpImm(word uint32, f fields, is64 bool) (Op, int64, bool) {
	imm := immI(word)
	switch f.funct3 {
	case 0:
		return OpADDI, imm, true
	case 2:
		return OpSLTI, imm, true
	case 3:
		return OpSLTIU, imm, true
	case 4:
		return OpXORI, imm, true
	case 6:
		return OpORI, imm, true
	case 7:
		return OpANDI, imm, true
	}

	shamtMask, funct := uint32(0x1f), f.funct7
	if is64 {
		shamtMask, funct = 0x3f, (word>>26)<<1
	}
	shamt := int64((word >> 20) & shamtMask)

	switch {
	case f.funct3 == 1 && funct == 0:
		return OpSLLI, shamt, true
	case f.funct3 == 5 && funct == 0:
		return OpSRLI, shamt, true
	case f.funct3 == 5 && funct == 0x20:
		return OpSRAI, shamt, true
	}
	return OpIllegal, 0, false
}

func decodeOpImmW(word uint32, f fields) (Op, int64, bool) {
	shamt := int64((word >> 20) & 0x1f)
	switch {
	case f.funct3 == 0:
		return OpADDIW, immI(word), true
	case f.funct3 == 1 && f.funct7 == 0:
		return OpSLLIW, shamt, true
	case f.funct3 == 5 && f.funct7 == 0:
		return OpSRLIW, shamt, true
	case f.funct3 == 5 && f.funct7 == 0x20:
		return OpSRAIW, shamt, true
	}
	return OpIllegal, 0, false
}

type opKey struct{ funct7, funct3 uint32 }

var regOps = map[opKey]Op{
	{0x00, 0}: OpADD, {0x20, 0}: OpSUB, {0x00, 1}: OpSLL,
	{0x00, 2}: OpSLT, {0x00, 3}: OpSLTU, {0x00, 4}: OpXOR,
	{0x00, 5}: OpSRL, {0x20, 5}: OpSRA, {0x00, 6}: OpOR,
	{0x00, 7}: OpAND, {0x01, 0}: OpMUL, {0x01, 4}: OpDIV,
	{0x01, 5}: OpDIVU, {0x01, 6}: OpREM, {0x01, 7}: OpREMU,
}

func decodeOp(f fields) (Op, bool) {
	op, ok := regOps[opKey{f.funct7, f.funct3}]
	return op, ok
}

func decodeOpW(f fields) (Op, bool) {
	switch {
	case f.funct7 == 0x00 && f.funct3 == 0:
		return OpADDW, true
	case f.funct7 == 0x20 && f.funct3 == 0:
		return OpSUBW, true
	case f.funct7 == 0x00 && f.funct3 == 1:
		return OpSLLW, true
	case f.funct7 == 0x00 && f.funct3 == 5:
		return OpSRLW, true
	case f.funct7 == 0x20 && f.funct3 == 5:
		return OpSRAW, true
	case f.funct7 == 0x01 && f.funct3 == 0:
		return OpMULW, true
	}
	return OpIllegal, false
}

func classOf(op Op) insts.Class {
	switch op {
	case OpMUL, OpDIV, OpDIVU, OpREM, OpREMU, OpMULW:
		return insts.ClassLongArith
	default:
		return insts.ClassALU
	}
}

// wrap truncates an address to the register width.
func (*ISA[W]) wrap(addr insts.Addr) insts.Addr {
	return insts.Addr(W(addr))
}

func (*ISA[W]) build(
	pc insts.Addr,
	op Op,
	class insts.Class,
	imm int64,
	src0, src1, dst insts.Register,
	word uint32,
) *Instr[W] {
	inst := &Instr[W]{
		Base: insts.NewBase[W](pc, class, disassemble(op, imm, src0, src1, dst, word)),
		op:   op,
		imm:  imm,
	}
	inst.SetOperands(src0, src1, dst)
	return inst
}

func disassemble(op Op, imm int64, src0, src1, dst insts.Register, word uint32) string {
	name := op.String()
	switch {
	case op == OpIllegal:
		return fmt.Sprintf("illegal 0x%08x", word)
	case op == OpECALL || op == OpEBREAK:
		return name
	case op == OpLUI || op == OpAUIPC:
		return fmt.Sprintf("%s %s, 0x%x", name, RegName(dst), uint64(imm)>>12&0xfffff)
	case op == OpJAL:
		return fmt.Sprintf("%s %s, %d", name, RegName(dst), imm)
	case op >= OpBEQ && op <= OpBGEU:
		return fmt.Sprintf("%s %s, %s, %d", name, RegName(src0), RegName(src1), imm)
	case op >= OpLB && op <= OpLWU, op == OpJALR:
		return fmt.Sprintf("%s %s, %d(%s)", name, RegName(dst), imm, RegName(src0))
	case op >= OpSB && op <= OpSD:
		return fmt.Sprintf("%s %s, %d(%s)", name, RegName(src1), imm, RegName(src0))
	case src1.IsNone():
		return fmt.Sprintf("%s %s, %s, %d", name, RegName(dst), RegName(src0), imm)
	default:
		return fmt.Sprintf("%s %s, %s, %s", name, RegName(dst), RegName(src0), RegName(src1))
	}
}

var opNames = map[Op]string{
	OpIllegal: "illegal", OpLUI: "lui", OpAUIPC: "auipc", OpJAL: "jal",
	OpJALR: "jalr", OpBEQ: "beq", OpBNE: "bne", OpBLT: "blt", OpBGE: "bge",
	OpBLTU: "bltu", OpBGEU: "bgeu", OpLB: "lb", OpLH: "lh", OpLW: "lw",
	OpLD: "ld", OpLBU: "lbu", OpLHU: "lhu", OpLWU: "lwu", OpSB: "sb",
	OpSH: "sh", OpSW: "sw", OpSD: "sd", OpADDI: "addi", OpSLTI: "slti",
	OpSLTIU: "sltiu", OpXORI: "xori", OpORI: "ori", OpANDI: "andi",
	OpSLLI: "slli", OpSRLI: "srli", OpSRAI: "srai", OpADD: "add",
	OpSUB: "sub", OpSLL: "sll", OpSLT: "slt", OpSLTU: "sltu", OpXOR: "xor",
	OpSRL: "srl", OpSRA: "sra", OpOR: "or", OpAND: "and", OpMUL: "mul",
	OpDIV: "div", OpDIVU: "divu", OpREM: "rem", OpREMU: "remu",
	OpADDIW: "addiw", OpSLLIW: "slliw", OpSRLIW: "srliw", OpSRAIW: "sraiw",
	OpADDW: "addw", OpSUBW: "subw", OpSLLW: "sllw", OpSRLW: "srlw",
	OpSRAW: "sraw", OpMULW: "mulw", OpECALL: "ecall", OpEBREAK: "ebreak",
}

func (op Op) String() string {
	if name, ok := opNames[op]; ok {
		return name
	}
	return fmt.Sprintf("op(%d)", uint8(op))
}
