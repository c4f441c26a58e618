package mips

import (
	"fmt"

	"github.com/sarchlab/pipesim/insts"
)

// Op is a MIPS operation.
type Op uint8

// Operations.
const (
	OpIllegal Op = iota
	OpSLL
	OpSRL
	OpSRA
	OpSLLV
	OpSRLV
	OpSRAV
	OpJR
	OpJALR
	OpSYSCALL
	OpBREAK
	OpADD
	OpADDU
	OpSUB
	OpSUBU
	OpAND
	OpOR
	OpXOR
	OpNOR
	OpSLT
	OpSLTU
	OpDADDU
	OpDSUBU
	OpBLTZ
	OpBGEZ
	OpJ
	OpJAL
	OpBEQ
	OpBNE
	OpBLEZ
	OpBGTZ
	OpADDI
	OpADDIU
	OpSLTI
	OpSLTIU
	OpANDI
	OpORI
	OpXORI
	OpLUI
	OpBEQL
	OpBNEL
	OpDADDIU
	OpMUL
	OpLB
	OpLH
	OpLW
	OpLBU
	OpLHU
	OpLWU
	OpSB
	OpSH
	OpSW
	OpLD
	OpSD
)

// Primary opcodes.
const (
	opSpecial  = 0x00
	opRegImm   = 0x01
	opSpecial2 = 0x1c
)

var specialOps = map[uint32]Op{
	0x00: OpSLL, 0x02: OpSRL, 0x03: OpSRA, 0x04: OpSLLV, 0x06: OpSRLV,
	0x07: OpSRAV, 0x08: OpJR, 0x09: OpJALR, 0x0c: OpSYSCALL, 0x0d: OpBREAK,
	0x20: OpADD, 0x21: OpADDU, 0x22: OpSUB, 0x23: OpSUBU, 0x24: OpAND,
	0x25: OpOR, 0x26: OpXOR, 0x27: OpNOR, 0x2a: OpSLT, 0x2b: OpSLTU,
	0x2d: OpDADDU, 0x2f: OpDSUBU,
}

var primaryOps = map[uint32]Op{
	0x02: OpJ, 0x03: OpJAL, 0x04: OpBEQ, 0x05: OpBNE, 0x06: OpBLEZ,
	0x07: OpBGTZ, 0x08: OpADDI, 0x09: OpADDIU, 0x0a: OpSLTI, 0x0b: OpSLTIU,
	0x0c: OpANDI, 0x0d: OpORI, 0x0e: OpXORI, 0x0f: OpLUI, 0x14: OpBEQL,
	0x15: OpBNEL, 0x19: OpDADDIU, 0x20: OpLB, 0x21: OpLH, 0x23: OpLW,
	0x24: OpLBU, 0x25: OpLHU, 0x27: OpLWU, 0x28: OpSB, 0x29: OpSH,
	0x2b: OpSW, 0x37: OpLD, 0x3f: OpSD,
}

var only64 = map[Op]bool{
	OpDADDU: true, OpDSUBU: true, OpDADDIU: true, OpLWU: true, OpLD: true, OpSD: true,
}

// Instr is a decoded MIPS instruction.
type Instr[W insts.Word] struct {
	insts.Base[W]
	op  Op
	imm int64
}

// Op returns the operation.
func (i *Instr[W]) Op() Op {
	return i.op
}

// Decode decodes the instruction word at pc.
func (isa *ISA[W]) Decode(word uint32, pc insts.Addr) insts.Instruction[W] {
	op := lookup(word)
	if op == OpIllegal || (only64[op] && insts.Width[W]() == 32) {
		inst := isa.build(pc, OpIllegal, insts.ClassSystem, 0,
			insts.RegNone, insts.RegNone, insts.RegNone, word)
		inst.SetTrap(insts.TrapIllegal)
		return inst
	}

	rs := insts.Register((word >> 21) & 0x1f)
	rt := insts.Register((word >> 16) & 0x1f)
	rd := insts.Register((word >> 11) & 0x1f)
	sa := int64((word >> 6) & 0x1f)
	simm := int64(int16(word))
	zimm := int64(word & 0xffff)
	none := insts.RegNone
	branchTarget := isa.wrap(pc + 4 + uint64(simm<<2))

	switch op {
	case OpSLL, OpSRL, OpSRA:
		return isa.build(pc, op, insts.ClassALU, sa, rt, none, rd, word)
	case OpSLLV, OpSRLV, OpSRAV:
		return isa.build(pc, op, insts.ClassALU, 0, rt, rs, rd, word)
	case OpJR:
		return isa.build(pc, op, insts.ClassIndirectJump, 0, rs, none, none, word)
	case OpJALR:
		return isa.build(pc, op, insts.ClassIndirectJump, 0, rs, none, rd, word)
	case OpSYSCALL, OpBREAK:
		inst := isa.build(pc, op, insts.ClassSystem, 0, none, none, none, word)
		if op == OpSYSCALL {
			inst.SetTrap(insts.TrapSyscall)
		} else {
			inst.SetTrap(insts.TrapBreakpoint)
		}
		return inst
	case OpADD, OpADDU, OpSUB, OpSUBU, OpAND, OpOR, OpXOR, OpNOR,
		OpSLT, OpSLTU, OpDADDU, OpDSUBU:
		return isa.build(pc, op, insts.ClassALU, 0, rs, rt, rd, word)
	case OpMUL:
		return isa.build(pc, op, insts.ClassLongArith, 0, rs, rt, rd, word)
	case OpBLTZ, OpBGEZ, OpBLEZ, OpBGTZ:
		inst := isa.build(pc, op, insts.ClassBranch, simm, rs, none, none, word)
		inst.SetDecodedTarget(branchTarget)
		return inst
	case OpBEQ, OpBNE, OpBEQL, OpBNEL:
		inst := isa.build(pc, op, insts.ClassBranch, simm, rs, rt, none, word)
		inst.SetDecodedTarget(branchTarget)
		if op == OpBEQL || op == OpBNEL {
			inst.SetLikely()
		}
		return inst
	case OpJ, OpJAL:
		dst := none
		if op == OpJAL {
			dst = RA
		}
		index := uint64(word&0x03ffffff) << 2
		inst := isa.build(pc, op, insts.ClassJump, int64(index), none, none, dst, word)
		inst.SetDecodedTarget(isa.wrap((pc+4)&^0x0fffffff | index))
		return inst
	case OpANDI, OpORI, OpXORI:
		return isa.build(pc, op, insts.ClassALU, zimm, rs, none, rt, word)
	case OpLUI:
		return isa.build(pc, op, insts.ClassALU, zimm, none, none, rt, word)
	case OpADDI, OpADDIU, OpSLTI, OpSLTIU, OpDADDIU:
		return isa.build(pc, op, insts.ClassALU, simm, rs, none, rt, word)
	case OpLB, OpLH, OpLW, OpLBU, OpLHU, OpLWU, OpLD:
		return isa.build(pc, op, insts.ClassLoad, simm, rs, none, rt, word)
	default: // stores
		return isa.build(pc, op, insts.ClassStore, simm, rs, rt, none, word)
	}
}

func lookup(word uint32) Op {
	switch primary := word >> 26; primary {
	case opSpecial:
		if op, ok := specialOps[word&0x3f]; ok {
			return op
		}
	case opRegImm:
		switch (word >> 16) & 0x1f {
		case 0x00:
			return OpBLTZ
		case 0x01:
			return OpBGEZ
		}
	case opSpecial2:
		if word&0x3f == 0x02 {
			return OpMUL
		}
	default:
		if op, ok := primaryOps[primary]; ok {
			return op
		}
	}
	return OpIllegal
}

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
	switch op {
	case OpIllegal:
		return fmt.Sprintf("illegal 0x%08x", word)
	case OpSYSCALL, OpBREAK:
		return name
	case OpJ, OpJAL:
		return fmt.Sprintf("%s 0x%x", name, imm)
	case OpJR:
		return fmt.Sprintf("%s %s", name, RegName(src0))
	case OpJALR:
		return fmt.Sprintf("%s %s, %s", name, RegName(dst), RegName(src0))
	case OpLUI:
		return fmt.Sprintf("%s %s, 0x%x", name, RegName(dst), imm)
	case OpBLTZ, OpBGEZ, OpBLEZ, OpBGTZ:
		return fmt.Sprintf("%s %s, %d", name, RegName(src0), imm)
	case OpBEQ, OpBNE, OpBEQL, OpBNEL:
		return fmt.Sprintf("%s %s, %s, %d", name, RegName(src0), RegName(src1), imm)
	case OpLB, OpLH, OpLW, OpLBU, OpLHU, OpLWU, OpLD:
		return fmt.Sprintf("%s %s, %d(%s)", name, RegName(dst), imm, RegName(src0))
	case OpSB, OpSH, OpSW, OpSD:
		return fmt.Sprintf("%s %s, %d(%s)", name, RegName(src1), imm, RegName(src0))
	}
	if src1.IsNone() {
		return fmt.Sprintf("%s %s, %s, %d", name, RegName(dst), RegName(src0), imm)
	}
	return fmt.Sprintf("%s %s, %s, %s", name, RegName(dst), RegName(src0), RegName(src1))
}

var opNames = map[Op]string{
	OpIllegal: "illegal", OpSLL: "sll", OpSRL: "srl", OpSRA: "sra",
	OpSLLV: "sllv", OpSRLV: "srlv", OpSRAV: "srav", OpJR: "jr",
	OpJALR: "jalr", OpSYSCALL: "syscall", OpBREAK: "break", OpADD: "add",
	OpADDU: "addu", OpSUB: "sub", OpSUBU: "subu", OpAND: "and", OpOR: "or",
	OpXOR: "xor", OpNOR: "nor", OpSLT: "slt", OpSLTU: "sltu",
	OpDADDU: "daddu", OpDSUBU: "dsubu", OpBLTZ: "bltz", OpBGEZ: "bgez",
	OpJ: "j", OpJAL: "jal", OpBEQ: "beq", OpBNE: "bne", OpBLEZ: "blez",
	OpBGTZ: "bgtz", OpADDI: "addi", OpADDIU: "addiu", OpSLTI: "slti",
	OpSLTIU: "sltiu", OpANDI: "andi", OpORI: "ori", OpXORI: "xori",
	OpLUI: "lui", OpBEQL: "beql", OpBNEL: "bnel", OpDADDIU: "daddiu",
	OpMUL: "mul", OpLB: "lb", OpLH: "lh", OpLW: "lw", OpLBU: "lbu",
	OpLHU: "lhu", OpLWU: "lwu", OpSB: "sb", OpSH: "sh", OpSW: "sw",
	OpLD: "ld", OpSD: "sd",
}

func (op Op) String() string {
	if name, ok := opNames[op]; ok {
		return name
	}
	return fmt.Sprintf("op(%d)", uint8(op))
}
