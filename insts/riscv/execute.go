package riscv

import "github.com/sarchlab/pipesim/insts"

type memOp struct {
	size   int
	signed bool
}

var memOps = map[Op]memOp{
	OpLB: {1, true}, OpLH: {2, true}, OpLW: {4, true}, OpLD: {8, true},
	OpLBU: {1, false}, OpLHU: {2, false}, OpLWU: {4, false},
	OpSB: {1, false}, OpSH: {2, false}, OpSW: {4, false}, OpSD: {8, false},
}

// Execute computes the instruction outcome from its source values.
func (i *Instr[W]) Execute() {
	a, b := i.SrcValue(0), i.SrcValue(1)
	imm := W(i.imm)
	shamtMask := W(insts.Width[W]() - 1)

	switch i.op {
	case OpLUI:
		i.SetResult(imm)
	case OpAUIPC:
		i.SetResult(W(i.PC()) + imm)
	case OpJAL:
		i.SetResult(W(i.NextPC()))
		i.SetOutcome(true, i.DecodedTarget())
	case OpJALR:
		i.SetResult(W(i.NextPC()))
		i.SetOutcome(true, insts.Addr((a+imm)&^1))

	case OpBEQ:
		i.SetOutcome(a == b, i.DecodedTarget())
	case OpBNE:
		i.SetOutcome(a != b, i.DecodedTarget())
	case OpBLT:
		i.SetOutcome(insts.Signed(a) < insts.Signed(b), i.DecodedTarget())
	case OpBGE:
		i.SetOutcome(insts.Signed(a) >= insts.Signed(b), i.DecodedTarget())
	case OpBLTU:
		i.SetOutcome(a < b, i.DecodedTarget())
	case OpBGEU:
		i.SetOutcome(a >= b, i.DecodedTarget())

	case OpLB, OpLH, OpLW, OpLD, OpLBU, OpLHU, OpLWU:
		m := memOps[i.op]
		i.SetMemAccess(insts.Addr(a+imm), m.size, m.signed)
	case OpSB, OpSH, OpSW, OpSD:
		m := memOps[i.op]
		i.SetMemAccess(insts.Addr(a+imm), m.size, false)
		i.SetStoreValue(b)

	case OpADDI:
		i.SetResult(a + imm)
	case OpSLTI:
		i.SetResult(insts.FromBool[W](insts.Signed(a) < i.imm))
	case OpSLTIU:
		i.SetResult(insts.FromBool[W](a < imm))
	case OpXORI:
		i.SetResult(a ^ imm)
	case OpORI:
		i.SetResult(a | imm)
	case OpANDI:
		i.SetResult(a & imm)
	case OpSLLI:
		i.SetResult(a << (imm & shamtMask))
	case OpSRLI:
		i.SetResult(a >> (imm & shamtMask))
	case OpSRAI:
		i.SetResult(W(insts.Signed(a) >> (imm & shamtMask)))

	case OpADD:
		i.SetResult(a + b)
	case OpSUB:
		i.SetResult(a - b)
	case OpSLL:
		i.SetResult(a << (b & shamtMask))
	case OpSLT:
		i.SetResult(insts.FromBool[W](insts.Signed(a) < insts.Signed(b)))
	case OpSLTU:
		i.SetResult(insts.FromBool[W](a < b))
	case OpXOR:
		i.SetResult(a ^ b)
	case OpSRL:
		i.SetResult(a >> (b & shamtMask))
	case OpSRA:
		i.SetResult(W(insts.Signed(a) >> (b & shamtMask)))
	case OpOR:
		i.SetResult(a | b)
	case OpAND:
		i.SetResult(a & b)

	case OpMUL:
		i.SetResult(a * b)
	case OpDIV:
		i.SetResult(divSigned(a, b))
	case OpDIVU:
		if b == 0 {
			i.SetResult(^W(0))
		} else {
			i.SetResult(a / b)
		}
	case OpREM:
		i.SetResult(remSigned(a, b))
	case OpREMU:
		if b == 0 {
			i.SetResult(a)
		} else {
			i.SetResult(a % b)
		}

	case OpADDIW:
		i.SetResult(sext32[W](uint32(a) + uint32(imm)))
	case OpSLLIW:
		i.SetResult(sext32[W](uint32(a) << (imm & 31)))
	case OpSRLIW:
		i.SetResult(sext32[W](uint32(a) >> (imm & 31)))
	case OpSRAIW:
		i.SetResult(sext32[W](uint32(int32(uint32(a)) >> (imm & 31))))
	case OpADDW:
		i.SetResult(sext32[W](uint32(a) + uint32(b)))
	case OpSUBW:
		i.SetResult(sext32[W](uint32(a) - uint32(b)))
	case OpSLLW:
		i.SetResult(sext32[W](uint32(a) << (b & 31)))
	case OpSRLW:
		i.SetResult(sext32[W](uint32(a) >> (b & 31)))
	case OpSRAW:
		i.SetResult(sext32[W](uint32(int32(uint32(a)) >> (b & 31))))
	case OpMULW:
		i.SetResult(sext32[W](uint32(a) * uint32(b)))
	}
}

func sext32[W insts.Word](v uint32) W {
	return W(int64(int32(v)))
}

func divSigned[W insts.Word](a, b W) W {
	if b == 0 {
		return ^W(0)
	}
	return W(insts.Signed(a) / insts.Signed(b))
}

func remSigned[W insts.Word](a, b W) W {
	if b == 0 {
		return a
	}
	return W(insts.Signed(a) % insts.Signed(b))
}
