package core_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/akita/v4/sim"

	"github.com/sarchlab/pipesim/emu"
	"github.com/sarchlab/pipesim/insts/riscv"
	"github.com/sarchlab/pipesim/timing/core"
	"github.com/sarchlab/pipesim/timing/latency"
	"github.com/sarchlab/pipesim/timing/pipeline"
)

var _ = Describe("Core", func() {
	var (
		regFile *emu.RegFile[uint64]
		memory  *emu.Memory
		c       *core.Core[uint64]
	)

	BeforeEach(func() {
		regFile = &emu.RegFile[uint64]{}
		memory = emu.NewMemory()

		var err error
		c, err = core.NewCore(riscv.New[uint64](), regFile, memory)
		Expect(err).NotTo(HaveOccurred())
	})

	It("should create a core with pipeline", func() {
		Expect(c).NotTo(BeNil())
		Expect(c.Pipeline).NotTo(BeNil())
		Expect(c.RegFile()).To(BeIdenticalTo(regFile))
		Expect(c.Memory()).To(BeIdenticalTo(memory))
	})

	It("should reject an invalid configuration", func() {
		config := latency.DefaultTimingConfig()
		config.ClockFrequencyGHz = 0

		_, err := core.NewCore(riscv.New[uint64](), regFile, memory, pipeline.WithConfig(config))
		Expect(err).To(MatchError(latency.ErrInvalidConfig))
	})

	It("should set and get PC", func() {
		c.SetPC(0x1000)
		Expect(c.Pipeline.PC()).To(Equal(uint64(0x1000)))
	})

	It("should not be halted initially", func() {
		Expect(c.Halted()).To(BeFalse())
	})

	It("should execute instructions through tick", func() {
		memory.LoadWords(0x1000, []uint32{
			riscv.ADDI(riscv.A1, riscv.Zero, 42),
			riscv.NOP(),
			riscv.NOP(),
			riscv.NOP(),
			riscv.NOP(),
		})

		c.SetPC(0x1000)

		for i := 0; i < 10; i++ {
			c.Tick()
		}

		Expect(regFile.ReadReg(riscv.A1)).To(Equal(uint64(42)))
	})

	It("should return stats", func() {
		memory.LoadWords(0x1000, []uint32{riscv.ADDI(riscv.A1, riscv.Zero, 42), riscv.NOP()})

		c.SetPC(0x1000)
		c.Tick()
		c.Tick()

		stats := c.Stats()
		Expect(stats.Cycles).To(Equal(uint64(2)))
	})

	It("should run until halt and return exit code", func() {
		memory.LoadWords(0x1000, []uint32{
			riscv.ADDI(riscv.A0, riscv.Zero, 10),
			riscv.ADDI(riscv.A7, riscv.Zero, riscv.SysExit),
			riscv.ECALL(),
		})

		c.SetPC(0x1000)
		exitCode := c.Run()

		Expect(c.Halted()).To(BeTrue())
		Expect(c.Err()).NotTo(HaveOccurred())
		Expect(exitCode).To(Equal(int64(10)))
		Expect(c.ExitCode()).To(Equal(int64(10)))
		Expect(c.Stats().Instructions).To(Equal(uint64(3)))
		Expect(c.Stats().CPI).To(BeNumerically(">", 1))
	})

	It("should run for specified cycles and return running status", func() {
		memory.LoadWords(0x1000, []uint32{
			riscv.ADDI(riscv.A1, riscv.A1, 1),
			riscv.JAL(riscv.Zero, -4),
		})

		c.SetPC(0x1000)
		running := c.RunCycles(5)

		Expect(running).To(BeTrue())
		Expect(c.Halted()).To(BeFalse())

		stats := c.Stats()
		Expect(stats.Cycles).To(Equal(uint64(5)))
	})

	It("should stop running cycles when halted", func() {
		memory.LoadWords(0x1000, []uint32{
			riscv.ADDI(riscv.A7, riscv.Zero, riscv.SysExit),
			riscv.ECALL(),
		})

		c.SetPC(0x1000)
		running := c.RunCycles(100)

		Expect(running).To(BeFalse())
		Expect(c.Halted()).To(BeTrue())
	})

	Describe("simulated time", func() {
		It("should default to a 1 GHz clock", func() {
			Expect(c.Freq()).To(Equal(1 * sim.GHz))
		})

		It("should convert cycles at the configured frequency", func() {
			config := latency.DefaultTimingConfig()
			config.ClockFrequencyGHz = 2
			fast, err := core.NewCore(riscv.New[uint64](), regFile, memory, pipeline.WithConfig(config))
			Expect(err).NotTo(HaveOccurred())

			memory.LoadWords(0x1000, []uint32{riscv.JAL(riscv.Zero, 0)})
			fast.SetPC(0x1000)
			fast.RunCycles(1000)

			Expect(fast.SimulatedTime()).To(BeNumerically("~", 500e-9, 1e-15))
			Expect(fast.Stats().SimulatedTime).To(Equal(fast.SimulatedTime()))
		})
	})

	It("should reset core state", func() {
		memory.LoadWords(0x1000, []uint32{
			riscv.ADDI(riscv.A1, riscv.Zero, 1),
			riscv.JAL(riscv.Zero, 0),
		})

		c.SetPC(0x1000)
		for i := 0; i < 10; i++ {
			c.Tick()
		}

		stats := c.Stats()
		Expect(stats.Cycles).To(BeNumerically(">", 0))

		c.Reset()

		statsAfterReset := c.Stats()
		Expect(statsAfterReset.Cycles).To(Equal(uint64(0)))
		Expect(statsAfterReset.Instructions).To(Equal(uint64(0)))
		Expect(statsAfterReset.SimulatedTime).To(BeZero())
		Expect(c.Halted()).To(BeFalse())
	})
})
