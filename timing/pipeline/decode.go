package pipeline

import (
	"log/slog"

	"github.com/sarchlab/pipesim/insts"
	"github.com/sarchlab/pipesim/timing/bypass"
	"github.com/sarchlab/pipesim/timing/port"
)

// DecodeStage issues one instruction per cycle. It checks static branch
// targets against the prediction, asks the bypass network whether the
// operands are available, and either stalls the instruction for replay or
// sends it with its bypass commands to the chosen functional unit.
type DecodeStage[W insts.Word] struct {
	bypass *bypass.DataBypass
	stats  *Statistics
	logger *slog.Logger

	in         *port.Reader[*Instr[W]]
	stalled    *port.Reader[*Instr[W]]
	notified   *port.Reader[*Instr[W]]
	fetchFlush *port.Reader[bool]
	flush      flushSignals

	out        *port.Writer[*Instr[W]]
	replay     *port.Writer[*Instr[W]]
	notify     *port.Writer[*Instr[W]]
	stallFetch *port.Writer[bool]
	flushFetch *port.Writer[bool]
	target     *port.Writer[insts.Addr]
	update     *port.Writer[insts.BPInterface]
	earlySrc   [2]*port.Writer[bypass.Command]
	lateSrc    [2]*port.Writer[bypass.Command]
}

// NewDecodeStage creates a new decode stage.
func NewDecodeStage[W insts.Word](
	r *port.Registry,
	b *bypass.DataBypass,
	stats *Statistics,
	logger *slog.Logger,
) *DecodeStage[W] {
	return &DecodeStage[W]{
		bypass: b,
		stats:  stats,
		logger: logger.With("stage", "decode"),

		in:         port.NewReader[*Instr[W]](r, FetchToDecode, pipelineLatency),
		stalled:    port.NewReader[*Instr[W]](r, DecodeToDecode, pipelineLatency),
		notified:   port.NewReader[*Instr[W]](r, DecodeToBypassNotify, pipelineLatency),
		fetchFlush: port.NewReader[bool](r, DecodeToFetchFlush, pipelineLatency),
		flush:      newFlushSignals(r),

		out:        port.NewWriter[*Instr[W]](r, DecodeToExecute, 1),
		replay:     port.NewWriter[*Instr[W]](r, DecodeToDecode, 1),
		notify:     port.NewWriter[*Instr[W]](r, DecodeToBypassNotify, 1),
		stallFetch: port.NewWriter[bool](r, DecodeToFetchStall, 1),
		flushFetch: port.NewWriter[bool](r, DecodeToFetchFlush, 1),
		target:     port.NewWriter[insts.Addr](r, DecodeToFetchTarget, 1),
		update:     port.NewWriter[insts.BPInterface](r, DecodeToFetch, 1),
		earlySrc: [2]*port.Writer[bypass.Command]{
			port.NewWriter[bypass.Command](r, DecodeToExecuteSrc1, 1),
			port.NewWriter[bypass.Command](r, DecodeToExecuteSrc2, 1),
		},
		lateSrc: [2]*port.Writer[bypass.Command]{
			port.NewWriter[bypass.Command](r, DecodeToLateALUSrc1, 1),
			port.NewWriter[bypass.Command](r, DecodeToLateALUSrc2, 1),
		},
	}
}

// Tick processes cycle c.
func (s *DecodeStage[W]) Tick(c port.Cycle) {
	s.bypass.Update()
	if instr, ok := readOne(s.notified, c); ok {
		s.bypass.TraceNewInstr(instr)
	}

	fresh, hasFresh := readOne(s.in, c)
	replay, hasReplay := readOne(s.stalled, c)
	flush, trap := s.flush.read(c)
	fetchFlush := readFlag(s.fetchFlush, c)

	switch {
	case trap:
		s.bypass.HandleFlush()
		s.logger.Debug("decode", "cycle", c, "event", "trap")
		return
	case flush:
		s.bypass.HandleFlush()
		s.logger.Debug("decode", "cycle", c, "event", "flush")
		return
	case fetchFlush:
		s.logger.Debug("decode", "cycle", c, "event", "fetch_flush")
		return
	}

	var instr *Instr[W]
	switch {
	case hasReplay:
		instr = replay
	case hasFresh:
		instr = fresh
	default:
		s.stats.Bubbles++
		s.logger.Debug("decode", "cycle", c, "event", "bubble")
		return
	}

	isStall := s.bypass.IsStall(instr)

	if instr.IsJump() {
		if !hasReplay {
			s.stats.Jumps++
		}
		s.checkPrediction(instr, c, isStall, hasReplay)
	}

	if isStall {
		s.replay.Write(instr, c)
		s.stallFetch.Write(true, c)
		s.stats.Stalls++
		s.logger.Debug("decode", "cycle", c, "event", "stall", "instr", instr.String())
		return
	}

	s.issue(instr, c)
}

// IsMispredicted applies the decode-time misprediction rule to a
// control-flow instruction.
func IsMispredicted[W insts.Word](instr *Instr[W]) bool {
	bp := instr.BP
	switch {
	case !bp.IsTaken && (instr.IsDirectJump() || instr.IsIndirectJump()):
		return true
	case instr.IsLikelyBranch() && !bp.IsHit:
		return true
	case bp.IsTaken && (instr.IsDirectJump() || instr.IsBranch()) &&
		instr.HasDecodedTarget() && bp.Target != instr.DecodedTarget():
		return true
	default:
		return false
	}
}

// checkPrediction corrects a wrong prediction whose target is known at
// decode. The correction is applied to the instruction, so a replayed
// instruction is never corrected twice.
//
// A jump that stalls redirects fetch without a fetch flush, which would
// drop its own replay in the next cycle. Fetch is held while the jump
// stalls and has already followed the redirect when the jump replays, so
// the replay issues without flushing fetch again.
func (s *DecodeStage[W]) checkPrediction(instr *Instr[W], c port.Cycle, isStall, isReplay bool) {
	if !IsMispredicted(instr) {
		return
	}

	if !instr.HasDecodedTarget() {
		// Indirect jumps are redirected by the branch stage.
		if !isReplay {
			s.stats.DecodeMispredictions++
		}
		return
	}

	s.stats.DecodeMispredictions++
	target := instr.DecodedTarget()
	s.update.Write(insts.BPInterface{
		PC:      instr.PC(),
		IsTaken: true,
		Target:  target,
		IsHit:   instr.BP.IsHit,
	}, c)

	instr.BP.IsTaken = true
	instr.BP.Target = target
	instr.BP.IsHit = true

	if !isStall {
		s.flushFetch.Write(true, c)
	}
	if !isReplay {
		s.target.Write(target, c)
	}

	s.logger.Debug("decode", "cycle", c, "event", "mispredict",
		"instr", instr.String(), "target", target)
}

// issue sends instr to its functional unit.
func (s *DecodeStage[W]) issue(instr *Instr[W], c port.Cycle) {
	unit := s.bypass.Unit(instr)
	instr.unit = unit

	commands := s.earlySrc
	if unit == bypass.UnitLate {
		commands = s.lateSrc
		s.stats.LateIssues++
	}

	for i := 0; i < 2; i++ {
		cmd := s.bypass.Command(instr, i, unit)
		if cmd.Kind == bypass.CommandForward {
			s.stats.ForwardCommands++
		}
		commands[i].Write(cmd, c)
	}

	s.notify.Write(instr, c)
	s.out.Write(instr, c)
	s.logger.Debug("decode", "cycle", c, "event", "commit",
		"instr", instr.String(), "unit", unit.String())
}
