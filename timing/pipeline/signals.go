package pipeline

import (
	"log/slog"

	"github.com/sarchlab/pipesim/emu"
	"github.com/sarchlab/pipesim/insts"
	"github.com/sarchlab/pipesim/timing/bypass"
	"github.com/sarchlab/pipesim/timing/port"
)

// readOne consumes one value of cycle c, if there is one.
func readOne[T any](r *port.Reader[T], c port.Cycle) (T, bool) {
	if !r.IsReady(c) {
		var zero T
		return zero, false
	}
	return r.Read(c), true
}

// readAll consumes every value of cycle c.
func readAll[T any](r *port.Reader[T], c port.Cycle) []T {
	var values []T
	for r.IsReady(c) {
		values = append(values, r.Read(c))
	}
	return values
}

// readFlag returns true if a true value arrives in cycle c.
func readFlag(r *port.Reader[bool], c port.Cycle) bool {
	set := false
	for r.IsReady(c) {
		set = r.Read(c) || set
	}
	return set
}

// flushSignals are the two global flush channels every stage listens to.
type flushSignals struct {
	branch *port.Reader[bool]
	trap   *port.Reader[bool]
}

func newFlushSignals(r *port.Registry) flushSignals {
	return flushSignals{
		branch: port.NewReader[bool](r, BranchToAllFlush, pipelineLatency),
		trap:   port.NewReader[bool](r, WritebackToAllFlush, pipelineLatency),
	}
}

// read returns whether a branch misprediction flush or a trap flush is
// asserted in cycle c.
func (f flushSignals) read(c port.Cycle) (flush, trap bool) {
	return readFlag(f.branch, c), readFlag(f.trap, c)
}

// operandReaders obtain the source values of an instruction in an ALU:
// forwarded from a stage output when decode sent a forward command,
// otherwise from the register file.
type operandReaders[W insts.Word] struct {
	commands [2]*port.Reader[bypass.Command]
	data     [2][bypass.NumSources]*port.Reader[bypass.Data[W]]
	regFile  *emu.RegFile[W]
	logger   *slog.Logger
}

func newOperandReaders[W insts.Word](
	r *port.Registry,
	regFile *emu.RegFile[W],
	logger *slog.Logger,
	commandPorts [2]string,
	commandLatency port.Latency,
) operandReaders[W] {
	o := operandReaders[W]{regFile: regFile, logger: logger}
	for i := 0; i < 2; i++ {
		o.commands[i] = port.NewReader[bypass.Command](r, commandPorts[i], commandLatency)
		for s := bypass.Source(0); s < bypass.NumSources; s++ {
			o.data[i][s] = port.NewReader[bypass.Data[W]](r, bypassPorts[s], pipelineLatency)
		}
	}
	return o
}

// resolve loads both source values of instr in cycle c and returns how many
// of them were forwarded.
func (o *operandReaders[W]) resolve(instr *Instr[W], c port.Cycle) int {
	forwarded := 0
	for i := 0; i < 2; i++ {
		cmd, ok := readOne(o.commands[i], c)
		if ok && cmd.Kind == bypass.CommandForward {
			if v, found := o.poll(i, cmd.Source, instr.Src(i), c); found {
				instr.SetSrcValue(i, v)
				forwarded++
				continue
			}
			o.logger.Warn("forwarded value missing",
				"cycle", c, "instr", instr.String(), "source", cmd.Source.String())
		}

		o.regFile.ReadSource(instr, i)
	}
	return forwarded
}

// poll drains the bypass channel of source for operand slot i. The last
// value posted for reg wins.
func (o *operandReaders[W]) poll(
	i int,
	source bypass.Source,
	reg insts.Register,
	c port.Cycle,
) (W, bool) {
	var (
		value W
		found bool
	)
	for _, d := range readAll(o.data[i][source], c) {
		if d.Reg == reg {
			value = d.Value
			found = true
		}
	}
	return value, found
}

// postResult puts the result of instr on a bypass channel.
func postResult[W insts.Word](w *port.Writer[bypass.Data[W]], instr *Instr[W], c port.Cycle) {
	if instr.Dst().IsTracked() {
		w.Write(bypass.Data[W]{Reg: instr.Dst(), Value: instr.Result()}, c)
	}
}
