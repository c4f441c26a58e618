package pipeline

import (
	"log/slog"

	"github.com/sarchlab/pipesim/emu"
	"github.com/sarchlab/pipesim/insts"
	"github.com/sarchlab/pipesim/timing/bypass"
	"github.com/sarchlab/pipesim/timing/port"
)

// ExecuteStage is functional unit 0, the early ALU. Instructions issued to
// the late ALU pass through it unchanged.
type ExecuteStage[W insts.Word] struct {
	stats    *Statistics
	logger   *slog.Logger
	operands operandReaders[W]

	in    *port.Reader[*Instr[W]]
	flush flushSignals

	toLateALU *port.Writer[*Instr[W]]
	toMemory  *port.Writer[*Instr[W]]
	toBranch  *port.Writer[*Instr[W]]
	result    *port.Writer[bypass.Data[W]]
}

// NewExecuteStage creates a new execute stage.
func NewExecuteStage[W insts.Word](
	r *port.Registry,
	regFile *emu.RegFile[W],
	stats *Statistics,
	logger *slog.Logger,
) *ExecuteStage[W] {
	logger = logger.With("stage", "execute")
	return &ExecuteStage[W]{
		stats:  stats,
		logger: logger,
		operands: newOperandReaders(r, regFile, logger,
			[2]string{DecodeToExecuteSrc1, DecodeToExecuteSrc2}, pipelineLatency),

		in:    port.NewReader[*Instr[W]](r, DecodeToExecute, pipelineLatency),
		flush: newFlushSignals(r),

		toLateALU: port.NewWriter[*Instr[W]](r, ExecuteToLateALU, 1),
		toMemory:  port.NewWriter[*Instr[W]](r, ExecuteToMemory, 1),
		toBranch:  port.NewWriter[*Instr[W]](r, ExecuteToBranch, 1),
		result:    port.NewWriter[bypass.Data[W]](r, ExecuteBypass, 1),
	}
}

// Tick processes cycle c.
func (s *ExecuteStage[W]) Tick(c port.Cycle) {
	if flush, trap := s.flush.read(c); flush || trap {
		return
	}

	instr, ok := readOne(s.in, c)
	if !ok {
		return
	}

	if instr.Unit() == bypass.UnitLate {
		s.toLateALU.Write(instr, c)
		return
	}

	s.stats.ForwardedOperands += uint64(s.operands.resolve(instr, c))
	instr.Execute()

	if !instr.IsLoad() {
		postResult(s.result, instr, c)
	}

	if instr.IsJump() {
		s.toBranch.Write(instr, c)
	} else {
		s.toMemory.Write(instr, c)
	}

	s.logger.Debug("execute", "cycle", c, "instr", instr.String())
}
