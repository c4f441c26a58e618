package pipeline

import (
	"log/slog"

	"github.com/sarchlab/pipesim/emu"
	"github.com/sarchlab/pipesim/insts"
	"github.com/sarchlab/pipesim/timing/bypass"
	"github.com/sarchlab/pipesim/timing/port"
)

// LateALUStage is functional unit 1. It executes one cycle after the early
// ALU, so it can take operands that were one cycle late there. Long-latency
// arithmetic circulates in a self loop before it completes.
type LateALUStage[W insts.Word] struct {
	stats       *Statistics
	logger      *slog.Logger
	operands    operandReaders[W]
	loopLatency uint64

	in    *port.Reader[*Instr[W]]
	loop  *port.Reader[*Instr[W]]
	flush flushSignals

	toLoop      *port.Writer[*Instr[W]]
	toWriteback *port.Writer[*Instr[W]]
	toBranch    *port.Writer[*Instr[W]]
	result      *port.Writer[bypass.Data[W]]

	// flushExpiration counts the cycles in which instructions leaving the
	// loop still belong to a flushed path.
	flushExpiration uint64
}

// NewLateALUStage creates the late ALU. loopLatency is the delay of the
// long-latency self loop, one cycle less than a long operation takes.
func NewLateALUStage[W insts.Word](
	r *port.Registry,
	regFile *emu.RegFile[W],
	loopLatency uint64,
	stats *Statistics,
	logger *slog.Logger,
) *LateALUStage[W] {
	logger = logger.With("stage", "late_alu")
	return &LateALUStage[W]{
		stats:       stats,
		logger:      logger,
		loopLatency: loopLatency,
		operands: newOperandReaders(r, regFile, logger,
			[2]string{DecodeToLateALUSrc1, DecodeToLateALUSrc2}, 2*pipelineLatency),

		in:    port.NewReader[*Instr[W]](r, ExecuteToLateALU, pipelineLatency),
		loop:  port.NewReader[*Instr[W]](r, LateALUToLongLatency, port.Latency(loopLatency)),
		flush: newFlushSignals(r),

		toLoop:      port.NewWriter[*Instr[W]](r, LateALUToLongLatency, 1),
		toWriteback: port.NewWriter[*Instr[W]](r, LateALUToWriteback, 2),
		toBranch:    port.NewWriter[*Instr[W]](r, LateALUToBranch, 1),
		result:      port.NewWriter[bypass.Data[W]](r, LateALUBypass, 2),
	}
}

// Reset forgets a pending flush.
func (s *LateALUStage[W]) Reset() {
	s.flushExpiration = 0
}

// Tick processes cycle c.
func (s *LateALUStage[W]) Tick(c port.Cycle) {
	if flush, trap := s.flush.read(c); flush || trap {
		s.flushExpiration = s.loopLatency
		return
	}

	if s.flushExpiration > 0 {
		s.flushExpiration--
	}

	if instr, ok := readOne(s.loop, c); ok {
		if s.flushExpiration > 0 {
			s.logger.Debug("late_alu", "cycle", c, "event", "discard", "instr", instr.String())
		} else {
			s.complete(instr, c)
		}
	}

	instr, ok := readOne(s.in, c)
	if !ok {
		return
	}

	s.stats.ForwardedOperands += uint64(s.operands.resolve(instr, c))
	instr.Execute()

	if instr.IsLongArithmetic() {
		s.stats.LongOperations++
		s.toLoop.Write(instr, c)
		s.logger.Debug("late_alu", "cycle", c, "event", "loop", "instr", instr.String())
		return
	}

	s.complete(instr, c)
}

// complete posts the result of instr and routes it onward.
func (s *LateALUStage[W]) complete(instr *Instr[W], c port.Cycle) {
	postResult(s.result, instr, c)

	if instr.IsJump() {
		s.toBranch.Write(instr, c)
	} else {
		s.toWriteback.Write(instr, c)
	}

	s.logger.Debug("late_alu", "cycle", c, "event", "complete", "instr", instr.String())
}
