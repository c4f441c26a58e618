package loader_test

import (
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/pipesim/emu"
	"github.com/sarchlab/pipesim/insts/riscv"
	"github.com/sarchlab/pipesim/loader"
)

const (
	emMIPS    = 8
	emX86_64  = 62
	emRISCV   = 243
	pfExecute = 0x1
	pfWrite   = 0x2
	pfRead    = 0x4
)

type testSegment struct {
	addr    uint64
	data    []byte
	memSize uint64
	flags   uint32
	ptype   uint32
}

func codeSegment(addr uint64, code []byte) testSegment {
	return testSegment{addr: addr, data: code, memSize: uint64(len(code)), flags: pfRead | pfExecute, ptype: 1}
}

// writeELF writes a little-endian ELF executable with one program header
// per segment.
func writeELF(path string, is64 bool, machine uint16, entry uint64, segs []testSegment) {
	ehSize, phSize := 52, 32
	if is64 {
		ehSize, phSize = 64, 56
	}

	header := make([]byte, ehSize)
	copy(header[0:4], []byte{0x7f, 'E', 'L', 'F'})
	header[4] = 1
	if is64 {
		header[4] = 2
	}
	header[5] = 1
	header[6] = 1
	le := binary.LittleEndian
	le.PutUint16(header[16:18], 2)
	le.PutUint16(header[18:20], machine)
	le.PutUint32(header[20:24], 1)

	if is64 {
		le.PutUint64(header[24:32], entry)
		le.PutUint64(header[32:40], uint64(ehSize))
		le.PutUint16(header[52:54], uint16(ehSize))
		le.PutUint16(header[54:56], uint16(phSize))
		le.PutUint16(header[56:58], uint16(len(segs)))
		le.PutUint16(header[58:60], 64)
	} else {
		le.PutUint32(header[24:28], uint32(entry))
		le.PutUint32(header[28:32], uint32(ehSize))
		le.PutUint16(header[40:42], uint16(ehSize))
		le.PutUint16(header[42:44], uint16(phSize))
		le.PutUint16(header[44:46], uint16(len(segs)))
		le.PutUint16(header[46:48], 40)
	}

	offset := uint64(ehSize + phSize*len(segs))
	var phdrs, payload []byte
	for _, s := range segs {
		ph := make([]byte, phSize)
		if is64 {
			le.PutUint32(ph[0:4], s.ptype)
			le.PutUint32(ph[4:8], s.flags)
			le.PutUint64(ph[8:16], offset)
			le.PutUint64(ph[16:24], s.addr)
			le.PutUint64(ph[24:32], s.addr)
			le.PutUint64(ph[32:40], uint64(len(s.data)))
			le.PutUint64(ph[40:48], s.memSize)
			le.PutUint64(ph[48:56], 0x1000)
		} else {
			le.PutUint32(ph[0:4], s.ptype)
			le.PutUint32(ph[4:8], uint32(offset))
			le.PutUint32(ph[8:12], uint32(s.addr))
			le.PutUint32(ph[12:16], uint32(s.addr))
			le.PutUint32(ph[16:20], uint32(len(s.data)))
			le.PutUint32(ph[20:24], uint32(s.memSize))
			le.PutUint32(ph[24:28], s.flags)
			le.PutUint32(ph[28:32], 0x1000)
		}
		phdrs = append(phdrs, ph...)
		payload = append(payload, s.data...)
		offset += uint64(len(s.data))
	}

	out := append(append(header, phdrs...), payload...)
	Expect(os.WriteFile(path, out, 0644)).To(Succeed())
}

func wordBytes(words ...uint32) []byte {
	out := make([]byte, 4*len(words))
	for i, w := range words {
		binary.LittleEndian.PutUint32(out[4*i:], w)
	}
	return out
}

var _ = Describe("ELF Loader", func() {
	var tempDir string

	BeforeEach(func() {
		tempDir = GinkgoT().TempDir()
	})

	Describe("Load", func() {
		Context("with a valid RISC-V 64-bit binary", func() {
			var (
				elfPath string
				code    []byte
			)

			BeforeEach(func() {
				elfPath = filepath.Join(tempDir, "test.elf")
				code = wordBytes(riscv.ADDI(riscv.A0, riscv.Zero, 42), riscv.EBREAK())
				writeELF(elfPath, true, emRISCV, 0x10080, []testSegment{codeSegment(0x10000, code)})
			})

			It("should extract the machine and class", func() {
				prog, err := loader.Load(elfPath)
				Expect(err).NotTo(HaveOccurred())
				Expect(prog.Machine).To(Equal(loader.MachineRISCV))
				Expect(prog.Is64).To(BeTrue())
				Expect(prog.ISAName()).To(Equal("riscv64"))
			})

			It("should extract the correct entry point", func() {
				prog, err := loader.Load(elfPath)
				Expect(err).NotTo(HaveOccurred())
				Expect(prog.EntryPoint).To(Equal(uint64(0x10080)))
			})

			It("should set up a 64-bit stack", func() {
				prog, err := loader.Load(elfPath)
				Expect(err).NotTo(HaveOccurred())
				Expect(prog.InitialSP).To(Equal(uint64(loader.DefaultStackTop64)))
			})

			It("should load segment contents and permissions", func() {
				prog, err := loader.Load(elfPath)
				Expect(err).NotTo(HaveOccurred())
				Expect(prog.Segments).To(HaveLen(1))

				seg := prog.Segments[0]
				Expect(seg.VirtAddr).To(Equal(uint64(0x10000)))
				Expect(seg.Data).To(Equal(code))
				Expect(seg.Flags & loader.SegmentFlagExecute).NotTo(BeZero())
				Expect(seg.Flags & loader.SegmentFlagWrite).To(BeZero())
			})

			It("should copy segments into memory", func() {
				prog, err := loader.Load(elfPath)
				Expect(err).NotTo(HaveOccurred())

				memory := emu.NewMemory()
				prog.LoadIntoMemory(memory)
				Expect(memory.Read32(0x10004)).To(Equal(riscv.EBREAK()))
			})
		})

		Context("with a MIPS 32-bit binary", func() {
			It("should use the 32-bit stack", func() {
				elfPath := filepath.Join(tempDir, "mips.elf")
				writeELF(elfPath, false, emMIPS, 0x400000,
					[]testSegment{codeSegment(0x400000, wordBytes(0, 0))})

				prog, err := loader.Load(elfPath)
				Expect(err).NotTo(HaveOccurred())
				Expect(prog.Machine).To(Equal(loader.MachineMIPS))
				Expect(prog.ISAName()).To(Equal("mips32"))
				Expect(prog.InitialSP).To(Equal(uint64(loader.DefaultStackTop32)))
				Expect(prog.Segments[0].Data).To(HaveLen(8))
			})
		})

		Context("with an invalid file", func() {
			It("should return error for non-existent file", func() {
				_, err := loader.Load("/nonexistent/path/to/file.elf")
				Expect(err).To(HaveOccurred())
				Expect(err.Error()).To(ContainSubstring("failed to open"))
			})

			It("should return error for non-ELF file", func() {
				notElfPath := filepath.Join(tempDir, "not-elf.bin")
				Expect(os.WriteFile(notElfPath, []byte("not an elf file"), 0644)).To(Succeed())

				_, err := loader.Load(notElfPath)
				Expect(err).To(HaveOccurred())
			})
		})

		Context("with an unsupported machine", func() {
			It("should return ErrUnsupported for x86-64", func() {
				elfPath := filepath.Join(tempDir, "x86.elf")
				writeELF(elfPath, true, emX86_64, 0, nil)

				_, err := loader.Load(elfPath)
				Expect(errors.Is(err, loader.ErrUnsupported)).To(BeTrue())
			})
		})
	})

	Describe("Multi-segment ELFs", func() {
		It("should load code, data and BSS segments", func() {
			elfPath := filepath.Join(tempDir, "multi.elf")
			writeELF(elfPath, true, emRISCV, 0x10000, []testSegment{
				codeSegment(0x10000, wordBytes(riscv.NOP())),
				{addr: 0x20000, data: []byte{1, 2, 3, 4}, memSize: 0x100, flags: pfRead | pfWrite, ptype: 1},
				{addr: 0x30000, memSize: 0x40, flags: pfRead | pfWrite, ptype: 1},
				{addr: 0x40000, ptype: 4},
			})

			prog, err := loader.Load(elfPath)
			Expect(err).NotTo(HaveOccurred())
			Expect(prog.Segments).To(HaveLen(3))

			data := prog.Segments[1]
			Expect(data.MemSize).To(Equal(uint64(0x100)))
			Expect(data.Data).To(Equal([]byte{1, 2, 3, 4}))
			Expect(data.Flags & loader.SegmentFlagWrite).NotTo(BeZero())

			bss := prog.Segments[2]
			Expect(bss.Data).To(BeEmpty())
			Expect(bss.MemSize).To(Equal(uint64(0x40)))
		})
	})
})
