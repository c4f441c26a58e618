package pipeline_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/pipesim/insts"
	"github.com/sarchlab/pipesim/timing/latency"
	"github.com/sarchlab/pipesim/timing/pipeline"
)

func resolved(pc insts.Addr, taken bool, target insts.Addr) insts.BPInterface {
	return insts.BPInterface{PC: pc, IsTaken: taken, Target: target, Resolved: true}
}

var _ = Describe("BranchPredictor", func() {
	var bp *pipeline.BranchPredictor

	BeforeEach(func() {
		config := pipeline.BranchPredictorConfig{
			BHTSize: 16,
			BTBSize: 8,
			BTBWays: 2,
		}
		bp = pipeline.NewBranchPredictor(config)
	})

	Describe("Prediction", func() {
		It("should initially predict taken (biased)", func() {
			pred := bp.Predict(0x1000)
			Expect(pred.Taken).To(BeTrue())
		})

		It("should not know target initially", func() {
			pred := bp.Predict(0x1000)
			Expect(pred.TargetKnown).To(BeFalse())
		})

		It("should learn branch patterns", func() {
			pc := uint64(0x1000)
			target := uint64(0x2000)

			// Train the predictor: always taken
			for i := 0; i < 10; i++ {
				bp.Update(resolved(pc, true, target))
			}

			pred := bp.Predict(pc)
			Expect(pred.Taken).To(BeTrue())
			Expect(pred.TargetKnown).To(BeTrue())
			Expect(pred.Target).To(Equal(target))
		})

		It("should learn not-taken pattern", func() {
			pc := uint64(0x1000)

			for i := 0; i < 10; i++ {
				bp.Update(resolved(pc, false, 0))
			}

			pred := bp.Predict(pc)
			Expect(pred.Taken).To(BeFalse())
		})
	})

	Describe("2-bit saturating counter", func() {
		It("should require 2 mispredictions to change direction", func() {
			pc := uint64(0x1000)
			target := uint64(0x2000)

			// Start with strongly taken (saturate up)
			bp.Update(resolved(pc, true, target))
			bp.Update(resolved(pc, true, target))
			bp.Update(resolved(pc, true, target))

			// One not-taken -> still predicts taken
			bp.Update(resolved(pc, false, 0))
			Expect(bp.Predict(pc).Taken).To(BeTrue())

			// Another not-taken -> now predicts not taken
			bp.Update(resolved(pc, false, 0))
			Expect(bp.Predict(pc).Taken).To(BeFalse())
		})
	})

	Describe("Decode corrections", func() {
		It("should install the target without training the direction", func() {
			pc := uint64(0x1000)
			bp.Update(resolved(pc, false, 0))
			bp.Update(resolved(pc, false, 0))

			bp.Update(insts.BPInterface{PC: pc, IsTaken: true, Target: 0x3000})

			pred := bp.Predict(pc)
			Expect(pred.Taken).To(BeFalse())
			Expect(pred.TargetKnown).To(BeTrue())
			Expect(pred.Target).To(Equal(uint64(0x3000)))
			Expect(bp.Stats().Corrections).To(Equal(uint64(1)))
		})
	})

	Describe("BTB", func() {
		It("should cache branch targets", func() {
			pc := uint64(0x1000)
			target := uint64(0x2000)

			pred := bp.Predict(pc)
			Expect(pred.TargetKnown).To(BeFalse())

			bp.Update(resolved(pc, true, target))

			pred = bp.Predict(pc)
			Expect(pred.TargetKnown).To(BeTrue())
			Expect(pred.Target).To(Equal(target))
		})

		It("should not cache not-taken branches", func() {
			pc := uint64(0x1000)

			bp.Update(resolved(pc, false, 0x2000))

			Expect(bp.Predict(pc).TargetKnown).To(BeFalse())
		})

		It("should overwrite the target of a known branch", func() {
			pc := uint64(0x1000)
			bp.Update(resolved(pc, true, 0x2000))
			bp.Update(resolved(pc, true, 0x4000))

			Expect(bp.Predict(pc).Target).To(Equal(uint64(0x4000)))
		})

		It("should keep branches that share a set", func() {
			// 4 sets of 4-byte blocks: these PCs map to the same set.
			a := uint64(0x1000)
			b := uint64(0x1010)
			bp.Update(resolved(a, true, 0x2000))
			bp.Update(resolved(b, true, 0x3000))

			Expect(bp.Predict(a).Target).To(Equal(uint64(0x2000)))
			Expect(bp.Predict(b).Target).To(Equal(uint64(0x3000)))
		})

		It("should evict the least recently used branch of a set", func() {
			a := uint64(0x1000)
			b := uint64(0x1010)
			c := uint64(0x1020)
			bp.Update(resolved(a, true, 0x2000))
			bp.Update(resolved(b, true, 0x3000))
			bp.Predict(a)
			bp.Update(resolved(c, true, 0x4000))

			Expect(bp.Predict(a).TargetKnown).To(BeTrue())
			Expect(bp.Predict(b).TargetKnown).To(BeFalse())
			Expect(bp.Predict(c).TargetKnown).To(BeTrue())
		})
	})

	Describe("Statistics", func() {
		It("should count predictions and BTB lookups", func() {
			bp.Predict(0x1000)
			bp.Update(resolved(0x1000, true, 0x2000))
			bp.Predict(0x1000)

			stats := bp.Stats()
			Expect(stats.Predictions).To(Equal(uint64(2)))
			Expect(stats.BTBMisses).To(Equal(uint64(1)))
			Expect(stats.BTBHits).To(Equal(uint64(1)))
			Expect(stats.BTBHitRate()).To(BeNumerically("~", 50.0, 0.01))
		})

		It("should track direction accuracy of resolved branches", func() {
			bp.Update(resolved(0x1000, true, 0x2000))
			bp.Update(resolved(0x1000, false, 0))
			bp.Update(resolved(0x1000, true, 0x2000))
			bp.Update(resolved(0x1000, true, 0x2000))

			stats := bp.Stats()
			Expect(stats.Correct).To(Equal(uint64(3)))
			Expect(stats.Mispredictions).To(Equal(uint64(1)))
			Expect(stats.Accuracy()).To(BeNumerically("~", 75.0, 0.01))
			Expect(stats.MispredictionRate()).To(BeNumerically("~", 25.0, 0.01))
		})

		It("should report zero rates without data", func() {
			stats := bp.Stats()
			Expect(stats.Accuracy()).To(Equal(0.0))
			Expect(stats.BTBHitRate()).To(Equal(0.0))
		})
	})

	Describe("Reset", func() {
		It("should forget targets, counters and statistics", func() {
			bp.Update(resolved(0x1000, false, 0))
			bp.Update(resolved(0x1000, false, 0))
			bp.Update(resolved(0x1004, true, 0x2000))

			bp.Reset()

			Expect(bp.Stats()).To(Equal(pipeline.BranchPredictorStats{}))
			Expect(bp.Predict(0x1000).Taken).To(BeTrue())
			Expect(bp.Predict(0x1004).TargetKnown).To(BeFalse())
		})
	})

	Describe("Configuration", func() {
		It("should take sizes from a timing configuration", func() {
			config := latency.DefaultTimingConfig()
			config.BTBSize = 32
			config.BTBWays = 2

			c := pipeline.BranchPredictorConfigFrom(config)
			Expect(c.BHTSize).To(Equal(uint32(1024)))
			Expect(c.BTBSize).To(Equal(uint32(32)))
			Expect(c.BTBWays).To(Equal(uint32(2)))
		})

		It("should fall back to defaults for zero sizes", func() {
			bp = pipeline.NewBranchPredictor(pipeline.BranchPredictorConfig{})
			bp.Update(resolved(0x1000, true, 0x2000))
			Expect(bp.Predict(0x1000).Target).To(Equal(uint64(0x2000)))
		})
	})
})
