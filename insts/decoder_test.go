package insts_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/pipesim/insts"
)

var _ = Describe("Base", func() {
	var b insts.Base[uint64]

	BeforeEach(func() {
		b = insts.NewBase[uint64](0x1000, insts.ClassLoad, "ld a0, 0(sp)")
	})

	It("should start without operands", func() {
		Expect(b.Src(0)).To(Equal(insts.RegNone))
		Expect(b.Src(1)).To(Equal(insts.RegNone))
		Expect(b.Dst()).To(Equal(insts.RegNone))
	})

	It("should fall through to PC+4", func() {
		Expect(b.NextPC()).To(Equal(uint64(0x1004)))
		Expect(b.ActualTarget()).To(Equal(uint64(0x1004)))
	})

	It("should use the taken target after execution", func() {
		b.SetOutcome(true, 0x2000)
		Expect(b.IsTaken()).To(BeTrue())
		Expect(b.ActualTarget()).To(Equal(uint64(0x2000)))
	})

	It("should fall through when not taken", func() {
		b.SetOutcome(false, 0x2000)
		Expect(b.ActualTarget()).To(Equal(uint64(0x1004)))
	})

	It("should sign-extend signed loads", func() {
		b.SetMemAccess(0x100, 2, true)
		b.SetLoadValue(0xFFFF8000)
		Expect(b.Result()).To(Equal(uint64(0xFFFFFFFFFFFF8000)))
	})

	It("should zero-extend unsigned loads", func() {
		b.SetMemAccess(0x100, 1, false)
		b.SetLoadValue(0x1FF)
		Expect(b.Result()).To(Equal(uint64(0xFF)))
	})

	It("should format with the PC", func() {
		Expect(b.String()).To(Equal("0x1000: ld a0, 0(sp)"))
	})
})
