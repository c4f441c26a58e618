package emu

import (
	"io"
	"os"
	"sync"
)

// FileDescriptor is an entry of the guest file descriptor table.
type FileDescriptor struct {
	Name   string    // stdin, stdout or stderr
	Reader io.Reader // nil if not readable
	Writer io.Writer // nil if not writable
	IsOpen bool
}

// FDTable maps guest file descriptors to host streams.
type FDTable struct {
	fds map[uint64]*FileDescriptor
	mu  sync.Mutex
}

// NewFDTable creates a table with the three standard streams open. Nil
// streams are replaced by io.Discard on output and EOF on input.
func NewFDTable(stdin io.Reader, stdout, stderr io.Writer) *FDTable {
	if stdout == nil {
		stdout = io.Discard
	}
	if stderr == nil {
		stderr = io.Discard
	}

	t := &FDTable{fds: make(map[uint64]*FileDescriptor)}
	t.fds[0] = &FileDescriptor{Name: "stdin", Reader: stdin, IsOpen: true}
	t.fds[1] = &FileDescriptor{Name: "stdout", Writer: stdout, IsOpen: true}
	t.fds[2] = &FileDescriptor{Name: "stderr", Writer: stderr, IsOpen: true}
	return t
}

// SetStdin replaces the reader behind descriptor 0.
func (t *FDTable) SetStdin(r io.Reader) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if entry, ok := t.fds[0]; ok {
		entry.Reader = r
	}
}

// Get returns the entry if it exists and is open.
func (t *FDTable) Get(fd uint64) (*FileDescriptor, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry, exists := t.fds[fd]
	if !exists || !entry.IsOpen {
		return nil, false
	}
	return entry, true
}

// IsOpen checks if a file descriptor is open.
func (t *FDTable) IsOpen(fd uint64) bool {
	_, ok := t.Get(fd)
	return ok
}

// Close marks a descriptor closed. Host streams stay untouched.
func (t *FDTable) Close(fd uint64) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	entry, exists := t.fds[fd]
	if !exists || !entry.IsOpen {
		return os.ErrInvalid
	}
	entry.IsOpen = false
	return nil
}

// Read reads from a readable descriptor. A descriptor without a reader is
// at end of file.
func (t *FDTable) Read(fd uint64, buf []byte) (int, error) {
	entry, ok := t.Get(fd)
	if !ok || entry.Writer != nil {
		return 0, os.ErrInvalid
	}
	if entry.Reader == nil {
		return 0, io.EOF
	}
	return entry.Reader.Read(buf)
}

// Write writes to a writable descriptor.
func (t *FDTable) Write(fd uint64, buf []byte) (int, error) {
	entry, ok := t.Get(fd)
	if !ok || entry.Writer == nil {
		return 0, os.ErrInvalid
	}
	return entry.Writer.Write(buf)
}
