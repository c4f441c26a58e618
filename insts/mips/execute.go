package mips

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

	switch i.op {
	case OpSLL:
		i.SetResult(sext32[W](uint32(a) << (imm & 31)))
	case OpSRL:
		i.SetResult(sext32[W](uint32(a) >> (imm & 31)))
	case OpSRA:
		i.SetResult(sext32[W](uint32(int32(uint32(a)) >> (imm & 31))))
	case OpSLLV:
		i.SetResult(sext32[W](uint32(a) << (b & 31)))
	case OpSRLV:
		i.SetResult(sext32[W](uint32(a) >> (b & 31)))
	case OpSRAV:
		i.SetResult(sext32[W](uint32(int32(uint32(a)) >> (b & 31))))

	case OpJR:
		i.SetOutcome(true, insts.Addr(a))
	case OpJALR:
		i.SetResult(W(i.NextPC()))
		i.SetOutcome(true, insts.Addr(a))
	case OpJ:
		i.SetOutcome(true, i.DecodedTarget())
	case OpJAL:
		i.SetResult(W(i.NextPC()))
		i.SetOutcome(true, i.DecodedTarget())

	case OpBEQ, OpBEQL:
		i.SetOutcome(a == b, i.DecodedTarget())
	case OpBNE, OpBNEL:
		i.SetOutcome(a != b, i.DecodedTarget())
	case OpBLTZ:
		i.SetOutcome(insts.Signed(a) < 0, i.DecodedTarget())
	case OpBGEZ:
		i.SetOutcome(insts.Signed(a) >= 0, i.DecodedTarget())
	case OpBLEZ:
		i.SetOutcome(insts.Signed(a) <= 0, i.DecodedTarget())
	case OpBGTZ:
		i.SetOutcome(insts.Signed(a) > 0, i.DecodedTarget())

	case OpADD, OpADDU:
		i.SetResult(sext32[W](uint32(a) + uint32(b)))
	case OpSUB, OpSUBU:
		i.SetResult(sext32[W](uint32(a) - uint32(b)))
	case OpDADDU:
		i.SetResult(a + b)
	case OpDSUBU:
		i.SetResult(a - b)
	case OpAND:
		i.SetResult(a & b)
	case OpOR:
		i.SetResult(a | b)
	case OpXOR:
		i.SetResult(a ^ b)
	case OpNOR:
		i.SetResult(^(a | b))
	case OpSLT:
		i.SetResult(insts.FromBool[W](insts.Signed(a) < insts.Signed(b)))
	case OpSLTU:
		i.SetResult(insts.FromBool[W](a < b))
	case OpMUL:
		i.SetResult(sext32[W](uint32(a) * uint32(b)))

	case OpADDI, OpADDIU:
		i.SetResult(sext32[W](uint32(a) + uint32(imm)))
	case OpDADDIU:
		i.SetResult(a + imm)
	case OpSLTI:
		i.SetResult(insts.FromBool[W](insts.Signed(a) < i.imm))
	case OpSLTIU:
		i.SetResult(insts.FromBool[W](a < imm))
	case OpANDI:
		i.SetResult(a & imm)
	case OpORI:
		i.SetResult(a | imm)
	case OpXORI:
		i.SetResult(a ^ imm)
	case OpLUI:
		i.SetResult(sext32[W](uint32(i.imm) << 16))

	case OpLB, OpLH, OpLW, OpLBU, OpLHU, OpLWU, OpLD:
		m := memOps[i.op]
		i.SetMemAccess(insts.Addr(a+imm), m.size, m.signed)
	case OpSB, OpSH, OpSW, OpSD:
		m := memOps[i.op]
		i.SetMemAccess(insts.Addr(a+imm), m.size, false)
		i.SetStoreValue(b)
	}
}

func sext32[W insts.Word](v uint32) W {
	return W(int64(int32(v)))
}
