// Package latency holds the timing parameters of the pipeline and the
// per-class latencies derived from them.
//
// Parameters are read from JSON or YAML files through TimingConfig.
package latency

import (
	"github.com/sarchlab/pipesim/insts"
)

// Table provides instruction latency lookups.
type Table struct {
	config *TimingConfig
}

// NewTable creates a new latency table with the default timing values.
func NewTable() *Table {
	return &Table{
		config: DefaultTimingConfig(),
	}
}

// NewTableWithConfig creates a new latency table with custom timing configuration.
func NewTableWithConfig(config *TimingConfig) *Table {
	return &Table{
		config: config,
	}
}

// GetLatency returns the number of cycles between an instruction entering
// its execution unit and its result appearing on a stage output.
func (t *Table) GetLatency(class insts.Class) uint64 {
	switch class {
	case insts.ClassLongArith:
		return t.config.LongALULatency
	case insts.ClassLoad:
		// Execute computes the address, memory returns the value.
		return 2
	default:
		return 1
	}
}

// LongLatency returns the latency of long-latency arithmetic.
func (t *Table) LongLatency() uint64 {
	return t.config.LongALULatency
}

// LoopLatency returns the delay of the late ALU's long-latency self loop.
// The first cycle of a long operation is spent before entering the loop.
func (t *Table) LoopLatency() uint64 {
	return t.config.LongALULatency - 1
}

// IsMemoryOp returns true if the class accesses memory.
func (t *Table) IsMemoryOp(class insts.Class) bool {
	return class.IsMemory()
}

// IsLoadOp returns true if the class is a load.
func (t *Table) IsLoadOp(class insts.Class) bool {
	return class == insts.ClassLoad
}

// IsBranchOp returns true if the class is resolved by the branch stage.
func (t *Table) IsBranchOp(class insts.Class) bool {
	return class.IsControlFlow()
}

// Config returns the current timing configuration.
func (t *Table) Config() *TimingConfig {
	return t.config
}
