// Package loader provides ELF binary loading for RISC-V and MIPS
// executables.
package loader

import (
	"debug/elf"
	"errors"
	"fmt"
	"io"

	"github.com/sarchlab/pipesim/emu"
)

// ErrUnsupported is returned for ELF files the simulator cannot run.
var ErrUnsupported = errors.New("unsupported ELF file")

// SegmentFlags represents memory protection flags for a segment.
type SegmentFlags uint32

const (
	// SegmentFlagExecute indicates the segment is executable.
	SegmentFlagExecute SegmentFlags = 1 << iota
	// SegmentFlagWrite indicates the segment is writable.
	SegmentFlagWrite
	// SegmentFlagRead indicates the segment is readable.
	SegmentFlagRead
)

// Machine is the instruction set of a program.
type Machine uint8

// Supported machines.
const (
	MachineRISCV Machine = iota
	MachineMIPS
)

func (m Machine) String() string {
	if m == MachineMIPS {
		return "mips"
	}
	return "riscv"
}

// Default stack tops for 32-bit and 64-bit user space.
const (
	DefaultStackTop32 = 0x7fff0000
	DefaultStackTop64 = 0x7ffffffff000
)

// DefaultStackSize is the default stack size (8MB).
const DefaultStackSize = 8 * 1024 * 1024

// Segment represents a loadable segment from an ELF binary.
type Segment struct {
	// VirtAddr is the virtual address where this segment should be loaded.
	VirtAddr uint64
	// Data contains the segment contents from the file.
	Data []byte
	// MemSize is the size in memory (may be larger than len(Data) for BSS).
	MemSize uint64
	// Flags contains the segment protection flags.
	Flags SegmentFlags
}

// Program represents a loaded ELF program ready for execution.
type Program struct {
	// Machine is the instruction set the program is compiled for.
	Machine Machine
	// Is64 is true for ELFCLASS64 files.
	Is64 bool
	// EntryPoint is the virtual address where execution should begin.
	EntryPoint uint64
	// Segments contains all loadable segments from the ELF file.
	Segments []Segment
	// InitialSP is the initial stack pointer value.
	InitialSP uint64
}

// ISAName returns the name of the ISA, such as "riscv64" or "mips32".
func (p *Program) ISAName() string {
	if p.Is64 {
		return p.Machine.String() + "64"
	}
	return p.Machine.String() + "32"
}

// LoadIntoMemory copies every segment into memory. BSS bytes are left as
// zero.
func (p *Program) LoadIntoMemory(memory *emu.Memory) {
	for _, seg := range p.Segments {
		memory.LoadProgram(seg.VirtAddr, seg.Data)
	}
}

// Load parses a little-endian RISC-V or MIPS ELF binary and returns a
// Program ready for loading into memory.
func Load(path string) (*Program, error) {
	f, err := elf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open ELF file: %w", err)
	}
	defer func() { _ = f.Close() }()

	if f.Data != elf.ELFDATA2LSB {
		return nil, fmt.Errorf("%w: not a little-endian ELF file", ErrUnsupported)
	}

	prog := &Program{EntryPoint: f.Entry}

	switch f.Class {
	case elf.ELFCLASS32:
		prog.InitialSP = DefaultStackTop32
	case elf.ELFCLASS64:
		prog.Is64 = true
		prog.InitialSP = DefaultStackTop64
	default:
		return nil, fmt.Errorf("%w: unknown ELF class %v", ErrUnsupported, f.Class)
	}

	switch f.Machine {
	case elf.EM_RISCV:
		prog.Machine = MachineRISCV
	case elf.EM_MIPS:
		prog.Machine = MachineMIPS
	default:
		return nil, fmt.Errorf("%w: not a RISC-V or MIPS ELF file (machine type: %v)",
			ErrUnsupported, f.Machine)
	}

	for _, phdr := range f.Progs {
		if phdr.Type != elf.PT_LOAD {
			continue
		}

		seg, err := readSegment(phdr)
		if err != nil {
			return nil, err
		}
		prog.Segments = append(prog.Segments, seg)
	}

	return prog, nil
}

func readSegment(phdr *elf.Prog) (Segment, error) {
	data := make([]byte, phdr.Filesz)
	if phdr.Filesz > 0 {
		n, err := phdr.ReadAt(data, 0)
		if err != nil && err != io.EOF {
			return Segment{}, fmt.Errorf("failed to read segment at 0x%x: %w", phdr.Vaddr, err)
		}
		if uint64(n) != phdr.Filesz {
			return Segment{}, fmt.Errorf("short read for segment at 0x%x: got %d bytes, expected %d",
				phdr.Vaddr, n, phdr.Filesz)
		}
	}

	var flags SegmentFlags
	if phdr.Flags&elf.PF_X != 0 {
		flags |= SegmentFlagExecute
	}
	if phdr.Flags&elf.PF_W != 0 {
		flags |= SegmentFlagWrite
	}
	if phdr.Flags&elf.PF_R != 0 {
		flags |= SegmentFlagRead
	}

	return Segment{
		VirtAddr: phdr.Vaddr,
		Data:     data,
		MemSize:  phdr.Memsz,
		Flags:    flags,
	}, nil
}
