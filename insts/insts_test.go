package insts_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/pipesim/insts"
)

var _ = Describe("Insts Package", func() {
	Describe("Width", func() {
		It("should report 32 bits for uint32", func() {
			Expect(insts.Width[uint32]()).To(Equal(32))
		})

		It("should report 64 bits for uint64", func() {
			Expect(insts.Width[uint64]()).To(Equal(64))
		})
	})

	Describe("Signed", func() {
		It("should sign-extend negative 32-bit values", func() {
			Expect(insts.Signed(uint32(0xFFFFFFFF))).To(Equal(int64(-1)))
		})

		It("should keep positive 32-bit values", func() {
			Expect(insts.Signed(uint32(0x7FFFFFFF))).To(Equal(int64(0x7FFFFFFF)))
		})

		It("should reinterpret 64-bit values", func() {
			Expect(insts.Signed(uint64(0xFFFFFFFFFFFFFFFE))).To(Equal(int64(-2)))
		})
	})

	Describe("Register", func() {
		It("should not track the zero register", func() {
			Expect(insts.RegZero.IsTracked()).To(BeFalse())
		})

		It("should not track the none marker", func() {
			Expect(insts.RegNone.IsTracked()).To(BeFalse())
			Expect(insts.RegNone.IsNone()).To(BeTrue())
		})

		It("should track ordinary registers", func() {
			Expect(insts.Register(5).IsTracked()).To(BeTrue())
		})
	})

	Describe("Class", func() {
		It("should classify control flow", func() {
			Expect(insts.ClassBranch.IsControlFlow()).To(BeTrue())
			Expect(insts.ClassJump.IsControlFlow()).To(BeTrue())
			Expect(insts.ClassIndirectJump.IsControlFlow()).To(BeTrue())
			Expect(insts.ClassALU.IsControlFlow()).To(BeFalse())
		})

		It("should classify memory access", func() {
			Expect(insts.ClassLoad.IsMemory()).To(BeTrue())
			Expect(insts.ClassStore.IsMemory()).To(BeTrue())
			Expect(insts.ClassLongArith.IsMemory()).To(BeFalse())
		})
	})
})
