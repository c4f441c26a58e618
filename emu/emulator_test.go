package emu_test

import (
	"bytes"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/pipesim/emu"
	"github.com/sarchlab/pipesim/insts"
	"github.com/sarchlab/pipesim/insts/mips"
	"github.com/sarchlab/pipesim/insts/riscv"
)

func concat(parts ...[]uint32) []uint32 {
	var out []uint32
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

var _ = Describe("Emulator", func() {
	var stdoutBuf *bytes.Buffer

	BeforeEach(func() {
		stdoutBuf = &bytes.Buffer{}
	})

	Context("RISC-V", func() {
		var e *emu.Emulator[uint64]

		BeforeEach(func() {
			e = emu.NewEmulator[uint64](riscv.New[uint64](),
				emu.WithStdout(stdoutBuf),
				emu.WithStackPointer(0x80000),
			)
		})

		It("should create an emulator with initialized components", func() {
			Expect(e.RegFile()).NotTo(BeNil())
			Expect(e.Memory()).NotTo(BeNil())
			Expect(e.RegFile().ReadReg(riscv.SP)).To(Equal(uint64(0x80000)))
		})

		It("should set the PC to the entry point", func() {
			e.LoadProgram(0x1000, []byte{0x13, 0x00, 0x00, 0x00})

			Expect(e.RegFile().PC).To(Equal(uint64(0x1000)))
			Expect(e.Memory().Read8(0x1000)).To(Equal(byte(0x13)))
		})

		It("should execute ALU instructions", func() {
			e.LoadProgram(0x1000, []uint32{
				riscv.ADDI(riscv.A0, riscv.Zero, 5),
				riscv.ADDI(riscv.A1, riscv.A0, 3),
			})

			Expect(e.Step().Err).NotTo(HaveOccurred())
			Expect(e.Step().Err).NotTo(HaveOccurred())
			Expect(e.RegFile().ReadReg(riscv.A1)).To(Equal(uint64(8)))
			Expect(e.RegFile().PC).To(Equal(uint64(0x1008)))
			Expect(e.InstructionCount()).To(Equal(uint64(2)))
		})

		It("should run a counting loop to exit", func() {
			e.LoadProgram(0x1000, []uint32{
				riscv.ADDI(riscv.A0, riscv.Zero, 0),
				riscv.ADDI(riscv.T0, riscv.Zero, 10),
				riscv.ADDI(riscv.A0, riscv.A0, 2),
				riscv.ADDI(riscv.T0, riscv.T0, -1),
				riscv.BNE(riscv.T0, riscv.Zero, -8),
				riscv.ADDI(riscv.A7, riscv.Zero, riscv.SysExit),
				riscv.ECALL(),
			})

			Expect(e.Run()).To(Equal(int64(20)))
			Expect(e.InstructionCount()).To(Equal(uint64(2 + 3*10 + 2)))
		})

		It("should print through the write syscall", func() {
			e.LoadProgram(0x1000, concat(
				riscv.LI(riscv.T0, 0x2000),
				[]uint32{
					riscv.ADDI(riscv.T1, riscv.Zero, 'h'),
					riscv.SB(riscv.T1, riscv.T0, 0),
					riscv.ADDI(riscv.T1, riscv.Zero, 'i'),
					riscv.SB(riscv.T1, riscv.T0, 1),
					riscv.ADDI(riscv.A0, riscv.Zero, 1),
					riscv.ADDI(riscv.A1, riscv.T0, 0),
					riscv.ADDI(riscv.A2, riscv.Zero, 2),
					riscv.ADDI(riscv.A7, riscv.Zero, riscv.SysWrite),
					riscv.ECALL(),
					riscv.ADDI(riscv.A0, riscv.Zero, 0),
					riscv.ADDI(riscv.A7, riscv.Zero, riscv.SysExit),
					riscv.ECALL(),
				},
			))

			Expect(e.Run()).To(BeZero())
			Expect(stdoutBuf.String()).To(Equal("hi"))
		})

		It("should stop at ebreak", func() {
			e.LoadProgram(0x1000, []uint32{riscv.EBREAK()})

			result := e.Step()
			Expect(result.Exited).To(BeTrue())
			Expect(result.ExitCode).To(BeZero())
			Expect(result.Err).NotTo(HaveOccurred())
		})

		It("should report illegal instructions", func() {
			e.LoadProgram(0x1000, []uint32{0xFFFFFFFF})

			result := e.Step()
			Expect(errors.Is(result.Err, emu.ErrIllegalInstruction)).To(BeTrue())
		})

		It("should honour the instruction limit", func() {
			limited := emu.NewEmulator[uint64](riscv.New[uint64](), emu.WithMaxInstructions(1))
			limited.LoadProgram(0x1000, []uint32{riscv.NOP(), riscv.NOP()})

			Expect(limited.Step().Err).NotTo(HaveOccurred())
			Expect(limited.Step().Err).To(MatchError(emu.ErrMaxInstructions))
		})

		It("should follow calls and returns", func() {
			e.LoadProgram(0x1000, []uint32{
				riscv.JAL(riscv.RA, 12),
				riscv.ADDI(riscv.A7, riscv.Zero, riscv.SysExit),
				riscv.ECALL(),
				riscv.ADDI(riscv.A0, riscv.Zero, 7),
				riscv.JALR(riscv.Zero, riscv.RA, 0),
			})

			Expect(e.Run()).To(Equal(int64(7)))
		})

		It("should reset state", func() {
			e.LoadProgram(0x1000, []uint32{riscv.ADDI(riscv.A0, riscv.Zero, 1)})
			e.Step()
			e.Reset()

			Expect(e.InstructionCount()).To(BeZero())
			Expect(e.RegFile().ReadReg(riscv.A0)).To(BeZero())
			Expect(e.Memory().Read32(0x1000)).To(BeZero())
		})
	})

	Context("MIPS", func() {
		It("should run a multiply loop on mips32", func() {
			e := emu.NewEmulator[uint32](mips.New[uint32](), emu.WithStdout(stdoutBuf))
			e.LoadProgram(0x400000, []uint32{
				mips.ADDIU(mips.T0, mips.Zero, 1),
				mips.ADDIU(mips.T1, mips.Zero, 5),
				mips.MUL(mips.T0, mips.T0, mips.T1),
				mips.ADDIU(mips.T1, mips.T1, -1),
				mips.BGTZ(mips.T1, -8),
				mips.ADDU(mips.A0, mips.T0, mips.Zero),
				mips.ADDIU(mips.V0, mips.Zero, mips.SysExitO32),
				mips.SYSCALL(),
			})

			Expect(e.Run()).To(Equal(int64(120)))
		})

		It("should keep the 32-bit PC on mips64", func() {
			e := emu.NewEmulator[uint64](mips.New[uint64]())
			e.LoadProgram(0x400000, []uint32{mips.J(0x400010)})

			e.Step()
			Expect(e.RegFile().PC).To(Equal(insts.Addr(0x400010)))
		})
	})
})
