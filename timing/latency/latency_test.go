package latency_test

import (
	"errors"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/pipesim/insts"
	"github.com/sarchlab/pipesim/timing/latency"
)

var _ = Describe("Latency", func() {
	var table *latency.Table

	BeforeEach(func() {
		table = latency.NewTable()
	})

	Describe("Default Timing Values", func() {
		It("should have a long ALU latency of 3", func() {
			Expect(table.Config().LongALULatency).To(Equal(uint64(3)))
		})

		It("should size the branch predictor", func() {
			config := table.Config()
			Expect(config.BHTSize).To(Equal(uint64(1024)))
			Expect(config.BTBSize).To(Equal(uint64(256)))
			Expect(config.BTBWays).To(Equal(uint64(4)))
		})
	})

	Describe("Class Latencies", func() {
		It("should return 1 cycle for ALU operations", func() {
			Expect(table.GetLatency(insts.ClassALU)).To(Equal(uint64(1)))
		})

		It("should return 1 cycle for jumps", func() {
			Expect(table.GetLatency(insts.ClassJump)).To(Equal(uint64(1)))
			Expect(table.GetLatency(insts.ClassIndirectJump)).To(Equal(uint64(1)))
		})

		It("should return 2 cycles for loads", func() {
			Expect(table.GetLatency(insts.ClassLoad)).To(Equal(uint64(2)))
		})

		It("should return the long latency for long arithmetic", func() {
			Expect(table.GetLatency(insts.ClassLongArith)).To(Equal(uint64(3)))
			Expect(table.LongLatency()).To(Equal(uint64(3)))
		})

		It("should loop one cycle less than the long latency", func() {
			Expect(table.LoopLatency()).To(Equal(uint64(2)))
		})
	})

	Describe("Class Detection", func() {
		It("should detect memory operations", func() {
			Expect(table.IsMemoryOp(insts.ClassLoad)).To(BeTrue())
			Expect(table.IsMemoryOp(insts.ClassStore)).To(BeTrue())
			Expect(table.IsMemoryOp(insts.ClassALU)).To(BeFalse())
		})

		It("should detect loads", func() {
			Expect(table.IsLoadOp(insts.ClassLoad)).To(BeTrue())
			Expect(table.IsLoadOp(insts.ClassStore)).To(BeFalse())
		})

		It("should detect branch operations", func() {
			Expect(table.IsBranchOp(insts.ClassBranch)).To(BeTrue())
			Expect(table.IsBranchOp(insts.ClassIndirectJump)).To(BeTrue())
			Expect(table.IsBranchOp(insts.ClassSystem)).To(BeFalse())
		})
	})

	Describe("Custom Configuration", func() {
		It("should use custom config values", func() {
			config := latency.DefaultTimingConfig()
			config.LongALULatency = 8
			customTable := latency.NewTableWithConfig(config)

			Expect(customTable.GetLatency(insts.ClassLongArith)).To(Equal(uint64(8)))
			Expect(customTable.LoopLatency()).To(Equal(uint64(7)))
			Expect(customTable.GetLatency(insts.ClassALU)).To(Equal(uint64(1)))
		})
	})
})

var _ = Describe("TimingConfig", func() {
	Describe("Default Config", func() {
		It("should create valid default config", func() {
			config := latency.DefaultTimingConfig()
			Expect(config.Validate()).To(Succeed())
		})
	})

	Describe("Validation", func() {
		It("should reject a long latency below 2", func() {
			config := latency.DefaultTimingConfig()
			config.LongALULatency = 1
			err := config.Validate()
			Expect(errors.Is(err, latency.ErrInvalidConfig)).To(BeTrue())
		})

		It("should reject a long latency above 63", func() {
			config := latency.DefaultTimingConfig()
			config.LongALULatency = 64
			Expect(config.Validate()).To(MatchError(latency.ErrInvalidConfig))
		})

		It("should accept the latency bounds", func() {
			config := latency.DefaultTimingConfig()
			config.LongALULatency = 2
			Expect(config.Validate()).To(Succeed())
			config.LongALULatency = 63
			Expect(config.Validate()).To(Succeed())
		})

		It("should reject a BHT size that is not a power of two", func() {
			config := latency.DefaultTimingConfig()
			config.BHTSize = 1000
			Expect(config.Validate()).To(MatchError(latency.ErrInvalidConfig))
		})

		It("should reject a BTB size that does not divide into ways", func() {
			config := latency.DefaultTimingConfig()
			config.BTBSize = 10
			Expect(config.Validate()).To(MatchError(latency.ErrInvalidConfig))
		})

		It("should reject zero BTB ways", func() {
			config := latency.DefaultTimingConfig()
			config.BTBWays = 0
			Expect(config.Validate()).To(MatchError(latency.ErrInvalidConfig))
		})

		It("should reject a non-positive clock frequency", func() {
			config := latency.DefaultTimingConfig()
			config.ClockFrequencyGHz = 0
			Expect(config.Validate()).To(MatchError(latency.ErrInvalidConfig))
		})
	})

	Describe("Clone", func() {
		It("should create independent copy", func() {
			original := latency.DefaultTimingConfig()
			clone := original.Clone()

			clone.LongALULatency = 10

			Expect(original.LongALULatency).To(Equal(uint64(3)))
			Expect(clone.LongALULatency).To(Equal(uint64(10)))
		})
	})

	Describe("File Operations", func() {
		var tempDir string

		BeforeEach(func() {
			var err error
			tempDir, err = os.MkdirTemp("", "latency-test")
			Expect(err).NotTo(HaveOccurred())
		})

		AfterEach(func() {
			_ = os.RemoveAll(tempDir)
		})

		It("should save and load JSON config", func() {
			original := latency.DefaultTimingConfig()
			original.LongALULatency = 5
			original.MaxCycles = 1000

			path := filepath.Join(tempDir, "timing.json")
			Expect(original.SaveConfig(path)).To(Succeed())

			loaded, err := latency.LoadConfig(path)
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded).To(Equal(original))
		})

		It("should save and load YAML config", func() {
			original := latency.DefaultTimingConfig()
			original.BTBSize = 64
			original.ClockFrequencyGHz = 2.5

			path := filepath.Join(tempDir, "timing.yaml")
			Expect(original.SaveConfig(path)).To(Succeed())

			loaded, err := latency.LoadConfig(path)
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded).To(Equal(original))
		})

		It("should keep defaults for fields missing from YAML", func() {
			path := filepath.Join(tempDir, "timing.yml")
			err := os.WriteFile(path, []byte("longALULatency: 6\n"), 0644)
			Expect(err).NotTo(HaveOccurred())

			loaded, err := latency.LoadConfig(path)
			Expect(err).NotTo(HaveOccurred())
			Expect(loaded.LongALULatency).To(Equal(uint64(6)))
			Expect(loaded.BHTSize).To(Equal(uint64(1024)))
		})

		It("should reject an invalid loaded config", func() {
			path := filepath.Join(tempDir, "timing.json")
			err := os.WriteFile(path, []byte(`{"long_alu_latency": 1}`), 0644)
			Expect(err).NotTo(HaveOccurred())

			_, err = latency.LoadConfig(path)
			Expect(err).To(MatchError(latency.ErrInvalidConfig))
		})

		It("should return error for non-existent file", func() {
			_, err := latency.LoadConfig("/nonexistent/path/timing.json")
			Expect(err).To(HaveOccurred())
		})

		It("should return error for invalid JSON", func() {
			path := filepath.Join(tempDir, "invalid.json")
			err := os.WriteFile(path, []byte("not valid json"), 0644)
			Expect(err).NotTo(HaveOccurred())

			_, err = latency.LoadConfig(path)
			Expect(err).To(HaveOccurred())
		})
	})
})
