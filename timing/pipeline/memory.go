package pipeline

import (
	"log/slog"

	"github.com/sarchlab/pipesim/emu"
	"github.com/sarchlab/pipesim/insts"
	"github.com/sarchlab/pipesim/timing/bypass"
	"github.com/sarchlab/pipesim/timing/port"
)

// MemoryStage performs loads. Stores are performed at writeback so that a
// flushed store never reaches memory.
type MemoryStage[W insts.Word] struct {
	lsu    *emu.LoadStoreUnit[W]
	logger *slog.Logger

	in    *port.Reader[*Instr[W]]
	flush flushSignals

	out    *port.Writer[*Instr[W]]
	result *port.Writer[bypass.Data[W]]
}

// NewMemoryStage creates a new memory stage.
func NewMemoryStage[W insts.Word](
	r *port.Registry,
	lsu *emu.LoadStoreUnit[W],
	logger *slog.Logger,
) *MemoryStage[W] {
	return &MemoryStage[W]{
		lsu:    lsu,
		logger: logger.With("stage", "memory"),

		in:    port.NewReader[*Instr[W]](r, ExecuteToMemory, pipelineLatency),
		flush: newFlushSignals(r),

		out:    port.NewWriter[*Instr[W]](r, MemoryToWriteback, 1),
		result: port.NewWriter[bypass.Data[W]](r, MemoryBypass, 1),
	}
}

// Tick processes cycle c.
func (s *MemoryStage[W]) Tick(c port.Cycle) {
	if flush, trap := s.flush.read(c); flush || trap {
		return
	}

	instr, ok := readOne(s.in, c)
	if !ok {
		return
	}

	if instr.IsLoad() {
		s.lsu.Load(instr)
		s.logger.Debug("memory", "cycle", c, "event", "load",
			"instr", instr.String(), "addr", instr.MemAddr())
	}

	postResult(s.result, instr, c)
	s.out.Write(instr, c)
}
