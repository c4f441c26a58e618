package pipeline

import (
	"log/slog"
	"sort"

	"github.com/sarchlab/pipesim/emu"
	"github.com/sarchlab/pipesim/insts"
	"github.com/sarchlab/pipesim/timing/bypass"
	"github.com/sarchlab/pipesim/timing/port"
)

// WritebackStage retires instructions in program order. It is the only
// stage that writes the register file or stores to memory, and it raises
// traps.
type WritebackStage[W insts.Word] struct {
	regFile        *emu.RegFile[W]
	lsu            *emu.LoadStoreUnit[W]
	syscallHandler emu.SyscallHandler
	stats          *Statistics
	logger         *slog.Logger

	fromMemory  *port.Reader[*Instr[W]]
	fromBranch  *port.Reader[*Instr[W]]
	fromLateALU *port.Reader[*Instr[W]]
	flush       flushSignals

	flushAll *port.Writer[bool]
	target   *port.Writer[insts.Addr]
	result   *port.Writer[bypass.Data[W]]

	halted   bool
	exitCode int64
	err      error
}

// NewWritebackStage creates a new writeback stage.
func NewWritebackStage[W insts.Word](
	r *port.Registry,
	regFile *emu.RegFile[W],
	lsu *emu.LoadStoreUnit[W],
	syscallHandler emu.SyscallHandler,
	stats *Statistics,
	logger *slog.Logger,
) *WritebackStage[W] {
	return &WritebackStage[W]{
		regFile:        regFile,
		lsu:            lsu,
		syscallHandler: syscallHandler,
		stats:          stats,
		logger:         logger.With("stage", "writeback"),

		fromMemory:  port.NewReader[*Instr[W]](r, MemoryToWriteback, pipelineLatency),
		fromBranch:  port.NewReader[*Instr[W]](r, BranchToWriteback, pipelineLatency),
		fromLateALU: port.NewReader[*Instr[W]](r, LateALUToWriteback, pipelineLatency),
		flush:       newFlushSignals(r),

		flushAll: port.NewWriter[bool](r, WritebackToAllFlush, 1),
		target:   port.NewWriter[insts.Addr](r, WritebackToFetchTarget, 1),
		result:   port.NewWriter[bypass.Data[W]](r, WritebackBypass, 2),
	}
}

// Halted returns true once the program exited or failed.
func (s *WritebackStage[W]) Halted() bool {
	return s.halted
}

// ExitCode returns the exit code after halting.
func (s *WritebackStage[W]) ExitCode() int64 {
	return s.exitCode
}

// Err returns the error that halted the program, if any.
func (s *WritebackStage[W]) Err() error {
	return s.err
}

// Reset clears the halt state.
func (s *WritebackStage[W]) Reset() {
	s.halted = false
	s.exitCode = 0
	s.err = nil
}

// Tick processes cycle c.
func (s *WritebackStage[W]) Tick(c port.Cycle) {
	fromBranch := readAll(s.fromBranch, c)
	arrivals := append(readAll(s.fromMemory, c), readAll(s.fromLateALU, c)...)

	flush, trap := s.flush.read(c)
	if trap {
		return
	}

	if flush {
		// Only the flushing branch and older instructions survive.
		var lastBranch uint64
		for _, instr := range fromBranch {
			lastBranch = max(lastBranch, instr.Seq)
		}
		kept := fromBranch
		for _, instr := range arrivals {
			if instr.Seq < lastBranch {
				kept = append(kept, instr)
			}
		}
		arrivals = kept
	} else {
		arrivals = append(arrivals, fromBranch...)
	}

	sort.Slice(arrivals, func(i, j int) bool {
		return arrivals[i].Seq < arrivals[j].Seq
	})

	for _, instr := range arrivals {
		if !s.retire(instr, c) {
			return
		}
	}
}

// retire commits instr. It returns false when instr trapped, in which case
// every younger instruction is discarded.
func (s *WritebackStage[W]) retire(instr *Instr[W], c port.Cycle) bool {
	s.stats.Instructions++

	switch instr.Trap() {
	case insts.TrapNone:
	case insts.TrapIllegal:
		s.halt(-1, emu.IllegalInstructionError[W](instr.Instruction))
		return false
	case insts.TrapBreakpoint:
		s.halt(0, nil)
		return false
	case insts.TrapSyscall:
		s.regFile.PC = instr.NextPC()
		res := s.syscallHandler.Handle()
		if res.Exited {
			s.halt(res.ExitCode, nil)
			return false
		}
		s.raiseTrap(instr, c)
		return false
	}

	if instr.IsStore() {
		s.lsu.Store(instr)
	}
	s.regFile.WriteDestination(instr)
	s.regFile.PC = instr.ActualTarget()
	postResult(s.result, instr, c)

	s.logger.Debug("writeback", "cycle", c, "event", "retire", "instr", instr.String())
	return true
}

// raiseTrap flushes every stage and restarts fetch after instr.
func (s *WritebackStage[W]) raiseTrap(instr *Instr[W], c port.Cycle) {
	s.stats.Traps++
	s.flushAll.Write(true, c)
	s.target.Write(instr.NextPC(), c)
	s.logger.Debug("writeback", "cycle", c, "event", "trap", "instr", instr.String())
}

func (s *WritebackStage[W]) halt(code int64, err error) {
	s.halted = true
	s.exitCode = code
	s.err = err
}
