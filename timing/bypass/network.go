package bypass

import (
	"fmt"

	"github.com/sarchlab/pipesim/insts"
	"github.com/sarchlab/pipesim/timing/latency"
)

// DataBypass is the forwarding unit. It owns the producer table and answers
// the hazard questions of the decode stage.
//
// Ages count decode cycles since the producer was decoded. A consumer on
// unit u reads the value the producer posts at age a+u, where a is the
// producer's age when the consumer is decoded.
type DataBypass struct {
	table   *latency.Table
	long    uint64
	opLat   uint64
	entries ProducerTable
}

// NewDataBypass creates a forwarding unit using the latencies of table.
func NewDataBypass(table *latency.Table) *DataBypass {
	return &DataBypass{
		table: table,
		long:  table.LongLatency(),
	}
}

// Producers exposes the producer table.
func (b *DataBypass) Producers() *ProducerTable {
	return &b.entries
}

// OperationLatency returns the remaining busy time of the late ALU after a
// long-latency operation was issued. Decode stalls while it exceeds 1.
func (b *DataBypass) OperationLatency() uint64 {
	return b.opLat
}

// Update advances the tracked state by one cycle. It is called once per
// cycle before any other query.
func (b *DataBypass) Update() {
	b.entries.advance()
	if b.opLat > 0 {
		b.opLat--
	}
}

// HandleFlush forgets every in-flight producer.
func (b *DataBypass) HandleFlush() {
	b.entries.Clear()
	b.opLat = 0
}

// TraceNewInstr registers an instruction decoded in the previous cycle. It
// becomes the only producer of its destination register.
func (b *DataBypass) TraceNewInstr(instr Instruction) {
	if instr.Class() == insts.ClassLongArith {
		b.opLat = b.long
	}

	dst := instr.Dst()
	if !dst.IsTracked() {
		return
	}

	b.entries.insert(dst, b.newProducer(instr))
}

func (b *DataBypass) newProducer(instr Instruction) producer {
	class := instr.Class()
	unit := instr.Unit()
	p := producer{
		unit:  unit,
		class: class,
		age:   1,
		first: b.table.GetLatency(class) + uint64(unit),
	}

	switch {
	case unit == UnitLate && class.IsControlFlow():
		p.path = []Source{SourceLateALU, SourceBranch, SourceWriteback}
	case unit == UnitLate:
		p.path = []Source{SourceLateALU, SourceWriteback}
	case class.IsControlFlow():
		p.path = []Source{SourceExecute, SourceBranch, SourceWriteback}
	case class == insts.ClassLoad:
		p.path = []Source{SourceMemory, SourceWriteback}
	default:
		p.path = []Source{SourceExecute, SourceMemory, SourceWriteback}
	}

	return p
}

// Resolve decides how source operand src of instr is obtained. The most
// recent in-flight writer of the register wins.
func (b *DataBypass) Resolve(instr Instruction, src int) Decision {
	p, stage, ok := b.entries.find(instr.Src(src))
	if !ok {
		return Decision{Kind: Direct}
	}

	var extra uint64
	if p.first > p.age {
		extra = p.first - p.age
	}
	if extra > uint64(UnitLate) {
		return Decision{Kind: Stall, Stage: stage, Extra: extra}
	}

	source, _ := p.posting(p.age + extra)
	return Decision{
		Kind:   Forward,
		Stage:  stage,
		Source: source,
		Unit:   Unit(extra),
		Extra:  extra,
	}
}

// neededUnit returns the earliest unit at which every source is available.
func (b *DataBypass) neededUnit(instr Instruction) Unit {
	unit := UnitEarly
	for i := 0; i < 2; i++ {
		d := b.Resolve(instr, i)
		if d.Kind == Forward && d.Unit > unit {
			unit = d.Unit
		}
	}
	return unit
}

// Unit returns the functional unit instr must issue to. Long-latency
// arithmetic always issues to the late ALU, loads and stores always to the
// early ALU.
func (b *DataBypass) Unit(instr Instruction) Unit {
	switch {
	case instr.Class() == insts.ClassLongArith:
		return UnitLate
	case instr.Class().IsMemory():
		return UnitEarly
	default:
		return b.neededUnit(instr)
	}
}

// IsStall returns true if instr cannot issue this cycle.
func (b *DataBypass) IsStall(instr Instruction) bool {
	if b.opLat > 1 {
		return true
	}

	for i := 0; i < 2; i++ {
		if b.Resolve(instr, i).Kind == Stall {
			return true
		}
	}

	return instr.Class().IsMemory() && b.neededUnit(instr) != UnitEarly
}

// Command returns the bypass command for source src of instr when it issues
// to unit. It must not be called for an instruction that stalls.
func (b *DataBypass) Command(instr Instruction, src int, unit Unit) Command {
	reg := instr.Src(src)
	if reg.IsNone() {
		return Command{Kind: CommandNoSource}
	}

	p, _, ok := b.entries.find(reg)
	if !ok {
		return Command{Kind: CommandDirect}
	}

	k := p.age + uint64(unit)
	if k > p.commit() {
		return Command{Kind: CommandDirect}
	}

	source, ok := p.posting(k)
	if !ok {
		panic(fmt.Sprintf("bypass: %s is not available to %s at age %d", reg, unit, p.age))
	}

	var extra uint64
	if p.first > p.age {
		extra = p.first - p.age
	}
	return Command{Kind: CommandForward, Source: source, Unit: unit, Extra: extra}
}
