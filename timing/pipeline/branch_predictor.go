package pipeline

import (
	akitacache "github.com/sarchlab/akita/v4/mem/cache"

	"github.com/sarchlab/pipesim/insts"
	"github.com/sarchlab/pipesim/timing/latency"
)

// btbBlockSize makes every BTB tag an instruction address.
const btbBlockSize = 4

// BranchPredictorConfig holds configuration for the branch predictor.
type BranchPredictorConfig struct {
	// BHTSize is the number of entries in the Branch History Table.
	// Must be a power of 2. Default is 1024.
	BHTSize uint32
	// BTBSize is the number of entries in the Branch Target Buffer.
	// Default is 256.
	BTBSize uint32
	// BTBWays is the associativity of the Branch Target Buffer.
	// Default is 4.
	BTBWays uint32
}

// DefaultBranchPredictorConfig returns a default configuration.
func DefaultBranchPredictorConfig() BranchPredictorConfig {
	return BranchPredictorConfig{
		BHTSize: 1024,
		BTBSize: 256,
		BTBWays: 4,
	}
}

// BranchPredictorConfigFrom takes the predictor sizes from a timing
// configuration.
func BranchPredictorConfigFrom(config *latency.TimingConfig) BranchPredictorConfig {
	return BranchPredictorConfig{
		BHTSize: uint32(config.BHTSize),
		BTBSize: uint32(config.BTBSize),
		BTBWays: uint32(config.BTBWays),
	}
}

// BranchPredictorStats holds statistics for the branch predictor.
type BranchPredictorStats struct {
	// Predictions is the total number of branch predictions made.
	Predictions uint64
	// Correct is the number of resolved branches whose direction was
	// predicted correctly.
	Correct uint64
	// Mispredictions is the number of resolved branches whose direction
	// was predicted incorrectly.
	Mispredictions uint64
	// Corrections is the number of decode-time target corrections.
	Corrections uint64
	// BTBHits is the number of BTB hits.
	BTBHits uint64
	// BTBMisses is the number of BTB misses.
	BTBMisses uint64
}

// Accuracy returns the prediction accuracy as a percentage.
func (s BranchPredictorStats) Accuracy() float64 {
	resolved := s.Correct + s.Mispredictions
	if resolved == 0 {
		return 0
	}
	return float64(s.Correct) / float64(resolved) * 100
}

// MispredictionRate returns the misprediction rate as a percentage.
func (s BranchPredictorStats) MispredictionRate() float64 {
	resolved := s.Correct + s.Mispredictions
	if resolved == 0 {
		return 0
	}
	return float64(s.Mispredictions) / float64(resolved) * 100
}

// BTBHitRate returns the BTB hit rate as a percentage.
func (s BranchPredictorStats) BTBHitRate() float64 {
	total := s.BTBHits + s.BTBMisses
	if total == 0 {
		return 0
	}
	return float64(s.BTBHits) / float64(total) * 100
}

// Prediction represents a branch prediction result.
type Prediction struct {
	// Taken indicates whether the branch is predicted to be taken.
	Taken bool
	// Target is the predicted target address (if known from BTB).
	Target insts.Addr
	// TargetKnown indicates whether the target address is known.
	TargetKnown bool
}

// BranchPredictor implements a 2-bit saturating counter (bimodal) predictor
// with a set-associative Branch Target Buffer (BTB).
type BranchPredictor struct {
	// Branch History Table (BHT) - 2-bit saturating counters
	// States: 0=Strongly Not Taken, 1=Weakly Not Taken,
	//         2=Weakly Taken, 3=Strongly Taken
	bht []uint8

	// The BTB tag store is an LRU directory keyed by branch PC. targets is
	// indexed by set and way.
	btb     *akitacache.DirectoryImpl
	targets []insts.Addr

	bhtSize uint32
	btbWays uint32

	stats BranchPredictorStats
}

// NewBranchPredictor creates a new branch predictor with the given configuration.
func NewBranchPredictor(config BranchPredictorConfig) *BranchPredictor {
	bhtSize := config.BHTSize
	btbSize := config.BTBSize
	btbWays := config.BTBWays

	// Default sizes if not specified
	if bhtSize == 0 {
		bhtSize = 1024
	}
	if btbSize == 0 {
		btbSize = 256
	}
	if btbWays == 0 || btbWays > btbSize {
		btbWays = 1
	}
	numSets := btbSize / btbWays

	bp := &BranchPredictor{
		bht: make([]uint8, bhtSize),
		btb: akitacache.NewDirectory(
			int(numSets),
			int(btbWays),
			btbBlockSize,
			akitacache.NewLRUVictimFinder(),
		),
		targets: make([]insts.Addr, numSets*btbWays),
		bhtSize: bhtSize,
		btbWays: btbWays,
	}

	// Initialize BHT with weakly taken (2) - biased towards taken
	for i := range bp.bht {
		bp.bht[i] = 2
	}

	return bp
}

// bhtIndex computes the BHT index for a given PC.
func (bp *BranchPredictor) bhtIndex(pc insts.Addr) uint32 {
	// Use lower bits of PC (excluding alignment bits)
	return uint32((pc >> 2) & uint64(bp.bhtSize-1))
}

func (bp *BranchPredictor) targetIndex(block *akitacache.Block) int {
	return block.SetID*int(bp.btbWays) + block.WayID
}

// Predict makes a branch prediction for the given PC.
func (bp *BranchPredictor) Predict(pc insts.Addr) Prediction {
	pred := Prediction{}

	counter := bp.bht[bp.bhtIndex(pc)]
	pred.Taken = counter >= 2 // Taken if counter is 2 or 3

	block := bp.btb.Lookup(0, pc)
	if block != nil && block.IsValid {
		pred.Target = bp.targets[bp.targetIndex(block)]
		pred.TargetKnown = true
		bp.btb.Visit(block)
		bp.stats.BTBHits++
	} else {
		bp.stats.BTBMisses++
	}

	bp.stats.Predictions++
	return pred
}

// Update trains the predictor with an update record. Only resolved records
// train the direction counters; every taken record installs its target in
// the BTB.
func (bp *BranchPredictor) Update(rec insts.BPInterface) {
	if rec.Resolved {
		bp.updateDirection(rec.PC, rec.IsTaken)
	} else {
		bp.stats.Corrections++
	}

	if rec.IsTaken {
		bp.updateTarget(rec.PC, rec.Target)
	}
}

func (bp *BranchPredictor) updateDirection(pc insts.Addr, taken bool) {
	bhtIdx := bp.bhtIndex(pc)
	counter := bp.bht[bhtIdx]

	// Check if prediction was correct
	predicted := counter >= 2
	if predicted == taken {
		bp.stats.Correct++
	} else {
		bp.stats.Mispredictions++
	}

	// Update 2-bit saturating counter
	if taken {
		if counter < 3 {
			bp.bht[bhtIdx] = counter + 1
		}
	} else {
		if counter > 0 {
			bp.bht[bhtIdx] = counter - 1
		}
	}
}

func (bp *BranchPredictor) updateTarget(pc, target insts.Addr) {
	block := bp.btb.Lookup(0, pc)
	if block == nil || !block.IsValid {
		block = bp.btb.FindVictim(pc)
		block.Tag = pc
		block.IsValid = true
	}

	bp.targets[bp.targetIndex(block)] = target
	bp.btb.Visit(block)
}

// Stats returns the branch predictor statistics.
func (bp *BranchPredictor) Stats() BranchPredictorStats {
	return bp.stats
}

// Reset clears all predictor state and statistics.
func (bp *BranchPredictor) Reset() {
	// Reset BHT to weakly taken
	for i := range bp.bht {
		bp.bht[i] = 2
	}

	bp.btb.Reset()
	for i := range bp.targets {
		bp.targets[i] = 0
	}

	bp.stats = BranchPredictorStats{}
}
