// Package bypass decides, at decode time, how every source operand of an
// instruction reaches its execution unit: from the register file, forwarded
// from the output of a later pipeline stage, or not in time at all.
//
// DataBypass tracks every in-flight register writer in a ProducerTable. The
// decode stage asks it for a Decision per source, picks the functional unit
// the instruction issues to, and sends one Command per source to that unit.
// The execution units then poll the stage outputs named by the commands for
// Data values.
package bypass

import (
	"fmt"

	"github.com/sarchlab/pipesim/insts"
)

// Unit is a functional unit index. Unit 0 is the early ALU in the execute
// stage; unit 1 is the late ALU one cycle later.
type Unit uint8

// Functional units.
const (
	UnitEarly Unit = 0
	UnitLate  Unit = 1
)

func (u Unit) String() string {
	return fmt.Sprintf("unit%d", uint8(u))
}

// Stage is a pipeline register tracked by the producer table.
type Stage uint8

// Tracked stages, from the freshest to the oldest.
const (
	StageDecodeExecute Stage = iota
	StageExecuteLateALU
	StageExecuteMemory
	StageLateALUWriteback
	StageMemoryWriteback
	NumStages
)

var stageNames = [...]string{
	StageDecodeExecute:    "decode->execute",
	StageExecuteLateALU:   "execute->late_alu",
	StageExecuteMemory:    "execute->memory",
	StageLateALUWriteback: "late_alu->writeback",
	StageMemoryWriteback:  "memory->writeback",
}

func (s Stage) String() string {
	if s < NumStages {
		return stageNames[s]
	}
	return fmt.Sprintf("stage(%d)", uint8(s))
}

// Source is a stage output that posts results on the bypass network.
type Source uint8

// Bypass sources.
const (
	SourceExecute Source = iota
	SourceMemory
	SourceBranch
	SourceLateALU
	SourceWriteback
	NumSources
)

var sourceNames = [...]string{
	SourceExecute:   "execute",
	SourceMemory:    "memory",
	SourceBranch:    "branch",
	SourceLateALU:   "late_alu",
	SourceWriteback: "writeback",
}

func (s Source) String() string {
	if s < NumSources {
		return sourceNames[s]
	}
	return fmt.Sprintf("source(%d)", uint8(s))
}

// DecisionKind tells how a source operand is obtained.
type DecisionKind uint8

// Decision kinds.
const (
	Direct DecisionKind = iota
	Forward
	Stall
)

func (k DecisionKind) String() string {
	switch k {
	case Direct:
		return "DIRECT"
	case Forward:
		return "FORWARD"
	case Stall:
		return "STALL"
	default:
		return fmt.Sprintf("decision(%d)", uint8(k))
	}
}

// Decision is the outcome of resolving one source operand.
type Decision struct {
	Kind DecisionKind
	// Stage holds the producer. Valid for Forward and Stall.
	Stage Stage
	// Source is the stage output the value is taken from when the operand
	// is read on Unit. Valid for Forward.
	Source Source
	// Unit is the earliest functional unit that can receive the value.
	Unit Unit
	// Extra is the number of cycles the operand is late for the early ALU.
	Extra uint64
}

func (d Decision) String() string {
	switch d.Kind {
	case Forward:
		return fmt.Sprintf("FORWARD(%s, %s, %s, +%d)", d.Stage, d.Source, d.Unit, d.Extra)
	case Stall:
		return fmt.Sprintf("STALL(%s, +%d)", d.Stage, d.Extra)
	default:
		return d.Kind.String()
	}
}

// CommandKind tells an execution unit where an operand comes from.
type CommandKind uint8

// Command kinds.
const (
	// CommandDirect reads the register file.
	CommandDirect CommandKind = iota
	// CommandForward polls a bypass source.
	CommandForward
	// CommandNoSource marks an unused operand slot.
	CommandNoSource
)

// Command is sent by decode to the execution unit an instruction issues to.
type Command struct {
	Kind   CommandKind
	Source Source
	Unit   Unit
	Extra  uint64
}

func (c Command) String() string {
	switch c.Kind {
	case CommandForward:
		return fmt.Sprintf("forward from %s", c.Source)
	case CommandNoSource:
		return "no source"
	default:
		return "direct"
	}
}

// Data is a result posted on the bypass network.
type Data[W insts.Word] struct {
	Reg   insts.Register
	Value W
}

// Instruction is what the bypass network needs to know about an
// instruction.
type Instruction interface {
	Src(i int) insts.Register
	Dst() insts.Register
	Class() insts.Class
	// Unit is the functional unit the instruction was issued to.
	Unit() Unit
}
