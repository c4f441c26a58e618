package bypass

import "github.com/sarchlab/pipesim/insts"

// producer describes one in-flight register writer.
type producer struct {
	active bool
	unit   Unit
	class  insts.Class
	age    uint64

	// path lists the stage outputs posting the result, one per age
	// starting at first. The last one is writeback.
	path  []Source
	first uint64
}

func (p *producer) commit() uint64 {
	return p.first + uint64(len(p.path)) - 1
}

// posting returns the stage output holding the result at age k.
func (p *producer) posting(k uint64) (Source, bool) {
	if k < p.first || k > p.commit() {
		return 0, false
	}
	return p.path[k-p.first], true
}

// stage returns the pipeline register the producer occupies at its age.
func (p *producer) stage() Stage {
	switch {
	case p.age <= 1:
		return StageDecodeExecute
	case p.unit == UnitEarly && p.age == 2:
		return StageExecuteMemory
	case p.unit == UnitEarly:
		return StageMemoryWriteback
	case p.age <= p.first:
		return StageExecuteLateALU
	default:
		return StageLateALUWriteback
	}
}

// ProducerTable records, per tracked stage and register, the in-flight
// instruction that last writes the register. A register has at most one
// producer across all stages.
type ProducerTable struct {
	entries [NumStages][insts.NumRegisters]producer
}

// IsProducer returns true if an in-flight instruction in stage s writes
// reg.
func (t *ProducerTable) IsProducer(s Stage, reg insts.Register) bool {
	if s >= NumStages || !reg.IsTracked() {
		return false
	}
	return t.entries[s][reg].active
}

// ProducerUnit returns the functional unit of the producer of reg in stage
// s. It is only meaningful when IsProducer is true.
func (t *ProducerTable) ProducerUnit(s Stage, reg insts.Register) Unit {
	if !t.IsProducer(s, reg) {
		return UnitEarly
	}
	return t.entries[s][reg].unit
}

// IsEmpty returns true if no stage holds a producer.
func (t *ProducerTable) IsEmpty() bool {
	for s := Stage(0); s < NumStages; s++ {
		for r := range t.entries[s] {
			if t.entries[s][r].active {
				return false
			}
		}
	}
	return true
}

// find returns the producer of reg, scanning from the freshest stage.
func (t *ProducerTable) find(reg insts.Register) (*producer, Stage, bool) {
	if !reg.IsTracked() {
		return nil, 0, false
	}
	for s := Stage(0); s < NumStages; s++ {
		if t.entries[s][reg].active {
			return &t.entries[s][reg], s, true
		}
	}
	return nil, 0, false
}

// insert makes p the only producer of reg.
func (t *ProducerTable) insert(reg insts.Register, p producer) {
	t.remove(reg)
	p.active = true
	t.entries[p.stage()][reg] = p
}

func (t *ProducerTable) remove(reg insts.Register) {
	for s := Stage(0); s < NumStages; s++ {
		t.entries[s][reg] = producer{}
	}
}

// advance ages every producer by one cycle, moves it to the stage it now
// occupies and drops it once its result is in the register file.
func (t *ProducerTable) advance() {
	var next [NumStages][insts.NumRegisters]producer
	for s := Stage(0); s < NumStages; s++ {
		for r := range t.entries[s] {
			p := t.entries[s][r]
			if !p.active {
				continue
			}
			p.age++
			if p.age > p.commit() {
				continue
			}
			next[p.stage()][r] = p
		}
	}
	t.entries = next
}

// Clear removes every producer.
func (t *ProducerTable) Clear() {
	t.entries = [NumStages][insts.NumRegisters]producer{}
}
