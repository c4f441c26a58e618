package pipeline

import (
	"fmt"

	"github.com/sarchlab/pipesim/insts"
	"github.com/sarchlab/pipesim/timing/bypass"
	"github.com/sarchlab/pipesim/timing/port"
)

// Instr is an instruction in flight. It is created by fetch and handed from
// stage to stage by pointer.
type Instr[W insts.Word] struct {
	insts.Instruction[W]

	// Seq is the fetch order. Younger instructions have larger numbers.
	Seq uint64
	// BP is the prediction made at fetch, corrected by decode.
	BP insts.BPInterface

	unit bypass.Unit
}

// Unit returns the functional unit the instruction was issued to.
func (i *Instr[W]) Unit() bypass.Unit {
	return i.unit
}

func (i *Instr[W]) String() string {
	return fmt.Sprintf("#%d %s", i.Seq, i.Instruction.String())
}

// Channel names.
const (
	FetchToDecode = "FETCH_2_DECODE"

	DecodeToDecode         = "DECODE_2_DECODE"
	DecodeToExecute        = "DECODE_2_EXECUTE"
	DecodeToFetchStall     = "DECODE_2_FETCH_STALL"
	DecodeToFetchFlush     = "DECODE_2_FETCH_FLUSH"
	DecodeToFetchTarget    = "DECODE_2_FETCH_TARGET"
	DecodeToFetch          = "DECODE_2_FETCH"
	DecodeToBypassNotify   = "DECODE_2_BYPASSING_UNIT_NOTIFY"
	DecodeToExecuteSrc1    = "DECODE_2_EXECUTE_SRC1_COMMAND"
	DecodeToExecuteSrc2    = "DECODE_2_EXECUTE_SRC2_COMMAND"
	DecodeToLateALUSrc1    = "DECODE_2_LATE_ALU_SRC1_COMMAND"
	DecodeToLateALUSrc2    = "DECODE_2_LATE_ALU_SRC2_COMMAND"
	ExecuteToLateALU       = "EXECUTE_2_LATE_ALU"
	ExecuteToMemory        = "EXECUTE_2_MEMORY"
	ExecuteToBranch        = "EXECUTE_2_BRANCH"
	LateALUToLongLatency   = "LATE_ALU_2_LATE_ALU_LONG_LATENCY"
	LateALUToWriteback     = "LATE_ALU_2_WRITEBACK"
	LateALUToBranch        = "LATE_ALU_2_BRANCH"
	MemoryToWriteback      = "MEMORY_2_WRITEBACK"
	BranchToWriteback      = "BRANCH_2_WRITEBACK"
	BranchToAllFlush       = "BRANCH_2_ALL_FLUSH"
	BranchToFetch          = "BRANCH_2_FETCH"
	BranchToFetchTarget    = "BRANCH_2_FETCH_TARGET"
	WritebackToAllFlush    = "WRITEBACK_2_ALL_FLUSH"
	WritebackToFetchTarget = "WRITEBACK_2_FETCH_TARGET"

	ExecuteBypass   = "EXECUTE_2_EXECUTE_BYPASS"
	MemoryBypass    = "MEMORY_2_EXECUTE_BYPASS"
	BranchBypass    = "BRANCH_2_EXECUTE_BYPASS"
	LateALUBypass   = "LATE_ALU_2_EXECUTE_BYPASS"
	WritebackBypass = "WRITEBACK_2_EXECUTE_BYPASS"
)

// bypassPorts maps every bypass source to its channel.
var bypassPorts = [bypass.NumSources]string{
	bypass.SourceExecute:   ExecuteBypass,
	bypass.SourceMemory:    MemoryBypass,
	bypass.SourceBranch:    BranchBypass,
	bypass.SourceLateALU:   LateALUBypass,
	bypass.SourceWriteback: WritebackBypass,
}

// pipelineLatency is the latency of every stage-to-stage channel.
const pipelineLatency port.Latency = 1
