package pipeline

import (
	"log/slog"
	"sort"

	"github.com/sarchlab/pipesim/insts"
	"github.com/sarchlab/pipesim/timing/bypass"
	"github.com/sarchlab/pipesim/timing/port"
)

// BranchStage resolves control flow. It receives jumps from both ALUs,
// trains the predictor with every outcome and flushes the pipeline when the
// effective prediction was wrong.
type BranchStage[W insts.Word] struct {
	stats  *Statistics
	logger *slog.Logger

	fromExecute *port.Reader[*Instr[W]]
	fromLateALU *port.Reader[*Instr[W]]
	flush       flushSignals

	toWriteback *port.Writer[*Instr[W]]
	flushAll    *port.Writer[bool]
	target      *port.Writer[insts.Addr]
	update      *port.Writer[insts.BPInterface]
	result      *port.Writer[bypass.Data[W]]
}

// NewBranchStage creates a new branch stage.
func NewBranchStage[W insts.Word](
	r *port.Registry,
	stats *Statistics,
	logger *slog.Logger,
) *BranchStage[W] {
	return &BranchStage[W]{
		stats:  stats,
		logger: logger.With("stage", "branch"),

		fromExecute: port.NewReader[*Instr[W]](r, ExecuteToBranch, pipelineLatency),
		fromLateALU: port.NewReader[*Instr[W]](r, LateALUToBranch, pipelineLatency),
		flush:       newFlushSignals(r),

		toWriteback: port.NewWriter[*Instr[W]](r, BranchToWriteback, 2),
		flushAll:    port.NewWriter[bool](r, BranchToAllFlush, 1),
		target:      port.NewWriter[insts.Addr](r, BranchToFetchTarget, 1),
		update:      port.NewWriter[insts.BPInterface](r, BranchToFetch, 2),
		result:      port.NewWriter[bypass.Data[W]](r, BranchBypass, 2),
	}
}

// IsResolvedMispredicted reports whether the effective prediction of an
// executed control-flow instruction was wrong.
func IsResolvedMispredicted[W insts.Word](instr *Instr[W]) bool {
	bp := instr.BP
	if bp.IsTaken != instr.IsTaken() {
		return true
	}
	return instr.IsTaken() && bp.Target != instr.ActualTarget()
}

// Tick processes cycle c.
func (s *BranchStage[W]) Tick(c port.Cycle) {
	arrivals := append(readAll(s.fromExecute, c), readAll(s.fromLateALU, c)...)

	if flush, trap := s.flush.read(c); flush || trap {
		return
	}

	sort.Slice(arrivals, func(i, j int) bool {
		return arrivals[i].Seq < arrivals[j].Seq
	})

	for _, instr := range arrivals {
		s.update.Write(insts.BPInterface{
			PC:       instr.PC(),
			IsTaken:  instr.IsTaken(),
			Target:   instr.ActualTarget(),
			IsHit:    instr.BP.IsHit,
			Resolved: true,
		}, c)
		postResult(s.result, instr, c)
		s.toWriteback.Write(instr, c)

		if IsResolvedMispredicted(instr) {
			s.stats.BranchMispredictions++
			s.stats.Flushes++
			s.flushAll.Write(true, c)
			s.target.Write(instr.ActualTarget(), c)
			s.logger.Debug("branch", "cycle", c, "event", "mispredict",
				"instr", instr.String(), "target", instr.ActualTarget())
			return
		}

		s.stats.BranchCorrect++
	}
}
