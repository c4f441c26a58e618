package emu

import (
	"encoding/binary"

	"github.com/sarchlab/pipesim/insts"
)

const (
	pageBits = 12
	pageSize = 1 << pageBits
	pageMask = pageSize - 1
)

// Memory is a sparse little-endian byte-addressable memory. Pages are
// allocated on first write; unwritten bytes read as zero.
type Memory struct {
	pages map[uint64]*[pageSize]byte
}

// NewMemory creates an empty memory.
func NewMemory() *Memory {
	return &Memory{pages: make(map[uint64]*[pageSize]byte)}
}

func (m *Memory) page(addr insts.Addr, alloc bool) *[pageSize]byte {
	n := addr >> pageBits
	p := m.pages[n]
	if p == nil && alloc {
		p = new([pageSize]byte)
		m.pages[n] = p
	}
	return p
}

// Read8 reads a byte.
func (m *Memory) Read8(addr insts.Addr) byte {
	p := m.page(addr, false)
	if p == nil {
		return 0
	}
	return p[addr&pageMask]
}

// Write8 writes a byte.
func (m *Memory) Write8(addr insts.Addr, value byte) {
	m.page(addr, true)[addr&pageMask] = value
}

// ReadBytes copies len(buf) bytes starting at addr into buf.
func (m *Memory) ReadBytes(addr insts.Addr, buf []byte) {
	for len(buf) > 0 {
		off := addr & pageMask
		n := min(uint64(len(buf)), pageSize-off)
		if p := m.page(addr, false); p != nil {
			copy(buf[:n], p[off:off+n])
		} else {
			clear(buf[:n])
		}
		buf = buf[n:]
		addr += n
	}
}

// WriteBytes copies data into memory starting at addr.
func (m *Memory) WriteBytes(addr insts.Addr, data []byte) {
	for len(data) > 0 {
		off := addr & pageMask
		n := min(uint64(len(data)), pageSize-off)
		copy(m.page(addr, true)[off:off+n], data[:n])
		data = data[n:]
		addr += n
	}
}

// Read reads a little-endian value of size 1, 2, 4 or 8 bytes.
func (m *Memory) Read(addr insts.Addr, size int) uint64 {
	var buf [8]byte
	m.ReadBytes(addr, buf[:size])
	return binary.LittleEndian.Uint64(buf[:])
}

// Write writes the low size bytes of value in little-endian order.
func (m *Memory) Write(addr insts.Addr, size int, value uint64) {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], value)
	m.WriteBytes(addr, buf[:size])
}

// Read16 reads a 16-bit value.
func (m *Memory) Read16(addr insts.Addr) uint16 { return uint16(m.Read(addr, 2)) }

// Read32 reads a 32-bit value.
func (m *Memory) Read32(addr insts.Addr) uint32 { return uint32(m.Read(addr, 4)) }

// Read64 reads a 64-bit value.
func (m *Memory) Read64(addr insts.Addr) uint64 { return m.Read(addr, 8) }

// Write16 writes a 16-bit value.
func (m *Memory) Write16(addr insts.Addr, value uint16) { m.Write(addr, 2, uint64(value)) }

// Write32 writes a 32-bit value.
func (m *Memory) Write32(addr insts.Addr, value uint32) { m.Write(addr, 4, uint64(value)) }

// Write64 writes a 64-bit value.
func (m *Memory) Write64(addr insts.Addr, value uint64) { m.Write(addr, 8, value) }

// LoadProgram copies a program image into memory at addr.
func (m *Memory) LoadProgram(addr insts.Addr, program []byte) {
	m.WriteBytes(addr, program)
}

// LoadWords stores instruction words contiguously starting at addr.
func (m *Memory) LoadWords(addr insts.Addr, words []uint32) {
	for i, w := range words {
		m.Write32(addr+insts.Addr(4*i), w)
	}
}
