package pipeline

import (
	"log/slog"

	"github.com/sarchlab/pipesim/emu"
	"github.com/sarchlab/pipesim/insts"
	"github.com/sarchlab/pipesim/timing/port"
)

// FetchStage reads one instruction per cycle, decodes it through the ISA
// and attaches a branch prediction.
type FetchStage[W insts.Word] struct {
	isa       insts.ISA[W]
	memory    *emu.Memory
	predictor *BranchPredictor
	stats     *Statistics
	logger    *slog.Logger

	out *port.Writer[*Instr[W]]

	stall        *port.Reader[bool]
	decodeTarget *port.Reader[insts.Addr]
	branchTarget *port.Reader[insts.Addr]
	trapTarget   *port.Reader[insts.Addr]
	decodeUpdate *port.Reader[insts.BPInterface]
	branchUpdate *port.Reader[insts.BPInterface]

	pc     insts.Addr
	lastPC insts.Addr
	seq    uint64
}

// NewFetchStage creates a new fetch stage.
func NewFetchStage[W insts.Word](
	r *port.Registry,
	isa insts.ISA[W],
	memory *emu.Memory,
	predictor *BranchPredictor,
	stats *Statistics,
	logger *slog.Logger,
) *FetchStage[W] {
	return &FetchStage[W]{
		isa:       isa,
		memory:    memory,
		predictor: predictor,
		stats:     stats,
		logger:    logger.With("stage", "fetch"),

		out: port.NewWriter[*Instr[W]](r, FetchToDecode, 1),

		stall:        port.NewReader[bool](r, DecodeToFetchStall, pipelineLatency),
		decodeTarget: port.NewReader[insts.Addr](r, DecodeToFetchTarget, pipelineLatency),
		branchTarget: port.NewReader[insts.Addr](r, BranchToFetchTarget, pipelineLatency),
		trapTarget:   port.NewReader[insts.Addr](r, WritebackToFetchTarget, pipelineLatency),
		decodeUpdate: port.NewReader[insts.BPInterface](r, DecodeToFetch, pipelineLatency),
		branchUpdate: port.NewReader[insts.BPInterface](r, BranchToFetch, pipelineLatency),
	}
}

// PC returns the address fetched next.
func (s *FetchStage[W]) PC() insts.Addr {
	return s.pc
}

// SetPC redirects fetch.
func (s *FetchStage[W]) SetPC(pc insts.Addr) {
	s.pc = pc
	s.lastPC = pc
}

// Reset clears the sequence counter.
func (s *FetchStage[W]) Reset() {
	s.pc = 0
	s.lastPC = 0
	s.seq = 0
}

// Tick fetches the instruction of cycle c.
func (s *FetchStage[W]) Tick(c port.Cycle) {
	for _, rec := range readAll(s.decodeUpdate, c) {
		s.predictor.Update(rec)
	}
	for _, rec := range readAll(s.branchUpdate, c) {
		s.predictor.Update(rec)
	}

	pc := s.nextPC(c)

	inst := s.isa.Decode(s.memory.Read32(pc), pc)
	instr := &Instr[W]{
		Instruction: inst,
		Seq:         s.seq,
		BP:          insts.BPInterface{PC: pc},
	}
	s.seq++

	if inst.IsJump() {
		pred := s.predictor.Predict(pc)
		instr.BP.IsTaken = pred.Taken && pred.TargetKnown
		instr.BP.Target = pred.Target
		instr.BP.IsHit = pred.TargetKnown
		s.stats.BranchPredictions++
	}

	s.out.Write(instr, c)
	s.logger.Debug("fetch", "cycle", c, "instr", instr.String(),
		"predicted_taken", instr.BP.IsTaken)

	s.lastPC = pc
	if instr.BP.IsTaken {
		s.pc = instr.BP.Target
	} else {
		s.pc = inst.NextPC()
	}
}

// nextPC picks the address to fetch in cycle c. A trap redirect wins over
// a branch redirect, which wins over a decode redirect. A stall refetches
// the previous address.
func (s *FetchStage[W]) nextPC(c port.Cycle) insts.Addr {
	trapTarget, trap := readOne(s.trapTarget, c)
	branchTarget, branch := readOne(s.branchTarget, c)
	decodeTarget, decode := readOne(s.decodeTarget, c)
	stall := readFlag(s.stall, c)

	switch {
	case trap:
		return trapTarget
	case branch:
		return branchTarget
	case decode:
		return decodeTarget
	case stall:
		s.stats.FetchStalls++
		return s.lastPC
	default:
		return s.pc
	}
}
