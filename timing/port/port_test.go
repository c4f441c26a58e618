package port_test

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/pipesim/timing/port"
)

var _ = Describe("Port", func() {
	var r *port.Registry

	BeforeEach(func() {
		r = port.NewRegistry()
	})

	Describe("Timing", func() {
		It("should deliver a value after the reader latency", func() {
			w := port.NewWriter[int](r, "A_2_B", 1)
			rd := port.NewReader[int](r, "A_2_B", 2)
			Expect(r.Init()).To(Succeed())

			w.Write(42, 10)

			Expect(rd.IsReady(10)).To(BeFalse())
			Expect(rd.IsReady(11)).To(BeFalse())
			Expect(rd.IsReady(12)).To(BeTrue())
			Expect(rd.Read(12)).To(Equal(42))
			Expect(rd.IsReady(12)).To(BeFalse())
		})

		It("should not consume on IsReady", func() {
			w := port.NewWriter[int](r, "A_2_B", 1)
			rd := port.NewReader[int](r, "A_2_B", 1)

			w.Write(7, 0)

			Expect(rd.IsReady(1)).To(BeTrue())
			Expect(rd.IsReady(1)).To(BeTrue())
			Expect(rd.Read(1)).To(Equal(7))
		})

		It("should support same-cycle delivery with zero latency", func() {
			w := port.NewWriter[string](r, "SELF", 1)
			rd := port.NewReader[string](r, "SELF", 0)

			w.Write("now", 5)

			Expect(rd.IsReady(5)).To(BeTrue())
			Expect(rd.Read(5)).To(Equal("now"))
		})

		It("should broadcast to every reader with its own latency", func() {
			w := port.NewWriter[int](r, "BYPASS", 1)
			fast := port.NewReader[int](r, "BYPASS", 1)
			slow := port.NewReader[int](r, "BYPASS", 3)
			Expect(r.Init()).To(Succeed())

			w.Write(9, 0)

			Expect(fast.Read(1)).To(Equal(9))
			Expect(slow.IsReady(1)).To(BeFalse())
			Expect(slow.Read(3)).To(Equal(9))
			Expect(slow.Latency()).To(Equal(port.Latency(3)))
		})

		It("should keep values from consecutive cycles apart", func() {
			w := port.NewWriter[int](r, "A_2_B", 1)
			rd := port.NewReader[int](r, "A_2_B", 1)

			w.Write(1, 0)
			w.Write(2, 1)

			Expect(rd.Read(1)).To(Equal(1))
			Expect(rd.IsReady(1)).To(BeFalse())
			Expect(rd.Read(2)).To(Equal(2))
		})

		It("should deliver several values of one cycle in write order", func() {
			w := port.NewWriter[int](r, "WIDE", 2)
			rd := port.NewReader[int](r, "WIDE", 1)

			w.Write(1, 0)
			w.Write(2, 0)

			Expect(rd.Read(1)).To(Equal(1))
			Expect(rd.Read(1)).To(Equal(2))
			Expect(rd.IsReady(1)).To(BeFalse())
		})

		It("should not report values scheduled for an earlier cycle", func() {
			w := port.NewWriter[int](r, "A_2_B", 1)
			rd := port.NewReader[int](r, "A_2_B", 1)

			w.Write(1, 0)

			Expect(rd.IsReady(2)).To(BeFalse())
			Expect(rd.Pending()).To(Equal(0))
		})
	})

	Describe("Discipline", func() {
		It("should panic when the bandwidth is exceeded", func() {
			w := port.NewWriter[int](r, "A_2_B", 1)
			port.NewReader[int](r, "A_2_B", 1)

			w.Write(1, 3)
			Expect(func() { w.Write(2, 3) }).To(Panic())
		})

		It("should reset the bandwidth every cycle", func() {
			w := port.NewWriter[int](r, "A_2_B", 1)
			port.NewReader[int](r, "A_2_B", 1)

			w.Write(1, 3)
			Expect(func() { w.Write(2, 4) }).NotTo(Panic())
		})

		It("should panic when reading a port that is not ready", func() {
			port.NewWriter[int](r, "A_2_B", 1)
			rd := port.NewReader[int](r, "A_2_B", 1)

			Expect(func() { rd.Read(0) }).To(Panic())
		})
	})

	Describe("CleanUp", func() {
		It("should drop unread values of the cycle", func() {
			w := port.NewWriter[int](r, "A_2_B", 1)
			rd := port.NewReader[int](r, "A_2_B", 1)

			w.Write(1, 0)
			w.Write(2, 1)
			r.CleanUp(1)

			Expect(rd.Pending()).To(Equal(1))
			Expect(rd.Read(2)).To(Equal(2))
		})
	})

	Describe("Reset", func() {
		It("should drop everything in flight", func() {
			w := port.NewWriter[int](r, "A_2_B", 1)
			rd := port.NewReader[int](r, "A_2_B", 4)

			w.Write(1, 0)
			r.Reset()

			Expect(rd.Pending()).To(Equal(0))
			Expect(rd.IsReady(4)).To(BeFalse())
		})
	})

	Describe("Init", func() {
		It("should report a channel without a reader", func() {
			port.NewWriter[int](r, "LONELY", 1)

			err := r.Init()
			Expect(errors.Is(err, port.ErrNoReader)).To(BeTrue())
			Expect(err.Error()).To(ContainSubstring("LONELY"))
		})

		It("should report a channel without a writer", func() {
			port.NewReader[int](r, "ORPHAN", 1)

			Expect(errors.Is(r.Init(), port.ErrNoWriter)).To(BeTrue())
		})

		It("should report two writers", func() {
			port.NewWriter[int](r, "A_2_B", 1)
			port.NewWriter[int](r, "A_2_B", 1)
			port.NewReader[int](r, "A_2_B", 1)

			Expect(errors.Is(r.Init(), port.ErrDuplicateWriter)).To(BeTrue())
		})

		It("should report mismatched payload types", func() {
			port.NewWriter[int](r, "A_2_B", 1)
			port.NewReader[string](r, "A_2_B", 1)

			Expect(errors.Is(r.Init(), port.ErrTypeMismatch)).To(BeTrue())
		})

		It("should collect every wiring error", func() {
			port.NewWriter[int](r, "X", 1)
			port.NewReader[int](r, "Y", 1)

			err := r.Init()
			Expect(errors.Is(err, port.ErrNoReader)).To(BeTrue())
			Expect(errors.Is(err, port.ErrNoWriter)).To(BeTrue())
		})
	})
})
