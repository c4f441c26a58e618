package riscv_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/pipesim/insts"
	"github.com/sarchlab/pipesim/insts/riscv"
)

func decode64(word uint32, pc insts.Addr) *riscv.Instr[uint64] {
	return riscv.New[uint64]().Decode(word, pc).(*riscv.Instr[uint64])
}

func decode32(word uint32, pc insts.Addr) *riscv.Instr[uint32] {
	return riscv.New[uint32]().Decode(word, pc).(*riscv.Instr[uint32])
}

var _ = Describe("Decoder", func() {
	It("should name the ISA by width", func() {
		Expect(riscv.New[uint32]().Name()).To(Equal("riscv32"))
		Expect(riscv.New[uint64]().Name()).To(Equal("riscv64"))
	})

	Context("ALU instructions", func() {
		It("should decode addi", func() {
			inst := decode64(riscv.ADDI(riscv.A0, riscv.A1, -5), 0x1000)

			Expect(inst.Op()).To(Equal(riscv.OpADDI))
			Expect(inst.Class()).To(Equal(insts.ClassALU))
			Expect(inst.Src(0)).To(Equal(riscv.A1))
			Expect(inst.Src(1)).To(Equal(insts.RegNone))
			Expect(inst.Dst()).To(Equal(riscv.A0))
			Expect(inst.Imm()).To(Equal(int64(-5)))
			Expect(inst.String()).To(Equal("0x1000: addi a0, a1, -5"))
		})

		It("should decode add with two sources", func() {
			inst := decode64(riscv.ADD(riscv.T0, riscv.T1, riscv.T2), 0)

			Expect(inst.Op()).To(Equal(riscv.OpADD))
			Expect(inst.Src(0)).To(Equal(riscv.T1))
			Expect(inst.Src(1)).To(Equal(riscv.T2))
			Expect(inst.Dst()).To(Equal(riscv.T0))
		})

		It("should classify mul and div as long arithmetic", func() {
			Expect(decode64(riscv.MUL(riscv.A0, riscv.A1, riscv.A2), 0).IsLongArithmetic()).To(BeTrue())
			Expect(decode64(riscv.DIV(riscv.A0, riscv.A1, riscv.A2), 0).IsLongArithmetic()).To(BeTrue())
			Expect(decode64(riscv.REM(riscv.A0, riscv.A1, riscv.A2), 0).IsLongArithmetic()).To(BeTrue())
			Expect(decode64(riscv.ADD(riscv.A0, riscv.A1, riscv.A2), 0).IsLongArithmetic()).To(BeFalse())
		})

		It("should decode lui", func() {
			inst := decode64(riscv.LUI(riscv.A0, 0x12345), 0)

			Expect(inst.Op()).To(Equal(riscv.OpLUI))
			Expect(inst.Src(0)).To(Equal(insts.RegNone))
			Expect(inst.Imm()).To(Equal(int64(0x12345000)))
		})
	})

	Context("control flow", func() {
		It("should decode jal with a decoded target", func() {
			inst := decode64(riscv.JAL(riscv.RA, 0x40), 0x1000)

			Expect(inst.Op()).To(Equal(riscv.OpJAL))
			Expect(inst.IsJump()).To(BeTrue())
			Expect(inst.IsDirectJump()).To(BeTrue())
			Expect(inst.HasDecodedTarget()).To(BeTrue())
			Expect(inst.DecodedTarget()).To(Equal(uint64(0x1040)))
			Expect(inst.Dst()).To(Equal(riscv.RA))
		})

		It("should decode backward branches", func() {
			inst := decode64(riscv.BNE(riscv.A0, riscv.Zero, -8), 0x1010)

			Expect(inst.Op()).To(Equal(riscv.OpBNE))
			Expect(inst.IsBranch()).To(BeTrue())
			Expect(inst.IsLikelyBranch()).To(BeFalse())
			Expect(inst.DecodedTarget()).To(Equal(uint64(0x1008)))
			Expect(inst.Dst()).To(Equal(insts.RegNone))
		})

		It("should decode jalr as an indirect jump", func() {
			inst := decode64(riscv.JALR(riscv.Zero, riscv.RA, 0), 0x1000)

			Expect(inst.Op()).To(Equal(riscv.OpJALR))
			Expect(inst.IsIndirectJump()).To(BeTrue())
			Expect(inst.HasDecodedTarget()).To(BeFalse())
			Expect(inst.Src(0)).To(Equal(riscv.RA))
		})
	})

	Context("memory access", func() {
		It("should decode loads", func() {
			inst := decode64(riscv.LD(riscv.A0, riscv.SP, 16), 0)

			Expect(inst.Op()).To(Equal(riscv.OpLD))
			Expect(inst.IsLoad()).To(BeTrue())
			Expect(inst.Src(0)).To(Equal(riscv.SP))
			Expect(inst.Dst()).To(Equal(riscv.A0))
			Expect(inst.Imm()).To(Equal(int64(16)))
		})

		It("should decode stores with a negative offset", func() {
			inst := decode64(riscv.SW(riscv.A1, riscv.SP, -4), 0)

			Expect(inst.Op()).To(Equal(riscv.OpSW))
			Expect(inst.IsStore()).To(BeTrue())
			Expect(inst.Src(0)).To(Equal(riscv.SP))
			Expect(inst.Src(1)).To(Equal(riscv.A1))
			Expect(inst.Dst()).To(Equal(insts.RegNone))
			Expect(inst.Imm()).To(Equal(int64(-4)))
		})
	})

	Context("system instructions", func() {
		It("should decode ecall as a syscall trap", func() {
			inst := decode64(riscv.ECALL(), 0)

			Expect(inst.Op()).To(Equal(riscv.OpECALL))
			Expect(inst.Trap()).To(Equal(insts.TrapSyscall))
		})

		It("should decode ebreak as a breakpoint", func() {
			Expect(decode64(riscv.EBREAK(), 0).Trap()).To(Equal(insts.TrapBreakpoint))
		})

		It("should mark unknown words illegal", func() {
			inst := decode64(0xFFFFFFFF, 0x2000)

			Expect(inst.Op()).To(Equal(riscv.OpIllegal))
			Expect(inst.Trap()).To(Equal(insts.TrapIllegal))
			Expect(inst.String()).To(Equal("0x2000: illegal 0xffffffff"))
		})
	})

	Context("register width", func() {
		It("should reject 64-bit loads on riscv32", func() {
			Expect(decode32(riscv.LD(riscv.A0, riscv.SP, 0), 0).Trap()).To(Equal(insts.TrapIllegal))
		})

		It("should reject 64-bit stores on riscv32", func() {
			Expect(decode32(riscv.SD(riscv.A0, riscv.SP, 0), 0).Trap()).To(Equal(insts.TrapIllegal))
		})

		It("should accept shift amounts above 31 on riscv64 only", func() {
			Expect(decode64(riscv.SLLI(riscv.A0, riscv.A0, 40), 0).Op()).To(Equal(riscv.OpSLLI))
			Expect(decode32(riscv.SLLI(riscv.A0, riscv.A0, 40), 0).Trap()).To(Equal(insts.TrapIllegal))
		})

		It("should wrap jump targets on riscv32", func() {
			inst := decode32(riscv.JAL(riscv.Zero, -8), 0x4)
			Expect(inst.DecodedTarget()).To(Equal(uint64(0xFFFFFFFC)))
		})
	})

	Describe("ABI", func() {
		It("should use the Linux convention", func() {
			abi := riscv.New[uint64]().ABI()

			Expect(abi.StackPointer).To(Equal(riscv.SP))
			Expect(abi.SyscallNumber).To(Equal(riscv.A7))
			Expect(abi.SyscallReturn).To(Equal(riscv.A0))
			Expect(abi.SyscallError).To(Equal(insts.RegNone))
			Expect(abi.SysWrite).To(Equal(uint64(64)))
			Expect(abi.SysExit).To(Equal(uint64(93)))
		})
	})
})
