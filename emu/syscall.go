package emu

import (
	"io"

	"github.com/sarchlab/pipesim/insts"
)

// Linux error codes.
const (
	EBADF  = 9  // Bad file descriptor
	ENOSYS = 38 // Function not implemented
	EIO    = 5  // I/O error
)

// SyscallResult represents the result of a syscall execution.
type SyscallResult struct {
	// Exited is true if the syscall caused program termination.
	Exited bool

	// ExitCode is the exit status if Exited is true.
	ExitCode int64
}

// SyscallHandler is the interface for handling guest system calls.
type SyscallHandler interface {
	// Handle executes the syscall indicated by the register file state.
	Handle() SyscallResult
}

// DefaultSyscallHandler implements read, write, close and exit on top of
// the calling convention of the ISA.
type DefaultSyscallHandler[W insts.Word] struct {
	regFile *RegFile[W]
	memory  *Memory
	abi     insts.ABI
	fds     *FDTable
}

// NewDefaultSyscallHandler creates a default syscall handler.
func NewDefaultSyscallHandler[W insts.Word](
	regFile *RegFile[W],
	memory *Memory,
	abi insts.ABI,
	stdout, stderr io.Writer,
) *DefaultSyscallHandler[W] {
	return &DefaultSyscallHandler[W]{
		regFile: regFile,
		memory:  memory,
		abi:     abi,
		fds:     NewFDTable(nil, stdout, stderr),
	}
}

// SetStdin sets the stdin reader for the syscall handler.
func (h *DefaultSyscallHandler[W]) SetStdin(stdin io.Reader) {
	h.fds.SetStdin(stdin)
}

// FDTable returns the guest file descriptor table.
func (h *DefaultSyscallHandler[W]) FDTable() *FDTable {
	return h.fds
}

// Handle executes the syscall indicated by the register file state.
func (h *DefaultSyscallHandler[W]) Handle() SyscallResult {
	num := uint64(h.regFile.ReadReg(h.abi.SyscallNumber))

	switch num {
	case h.abi.SysRead:
		return h.handleRead()
	case h.abi.SysWrite:
		return h.handleWrite()
	case h.abi.SysClose:
		return h.handleClose()
	case h.abi.SysExit, h.abi.SysExitGroup:
		return h.handleExit()
	default:
		h.setError(ENOSYS)
		return SyscallResult{}
	}
}

func (h *DefaultSyscallHandler[W]) arg(i int) W {
	return h.regFile.ReadReg(h.abi.SyscallArgs[i])
}

func (h *DefaultSyscallHandler[W]) handleExit() SyscallResult {
	return SyscallResult{
		Exited:   true,
		ExitCode: insts.Signed(h.arg(0)),
	}
}

func (h *DefaultSyscallHandler[W]) handleRead() SyscallResult {
	fd := uint64(h.arg(0))
	bufPtr := insts.Addr(h.arg(1))
	count := uint64(h.arg(2))

	buf := make([]byte, count)
	n, err := h.fds.Read(fd, buf)
	if err != nil && n == 0 {
		if err == io.EOF {
			h.setReturn(0)
		} else {
			h.setError(EBADF)
		}
		return SyscallResult{}
	}

	h.memory.WriteBytes(bufPtr, buf[:n])
	h.setReturn(W(n))
	return SyscallResult{}
}

func (h *DefaultSyscallHandler[W]) handleWrite() SyscallResult {
	fd := uint64(h.arg(0))
	bufPtr := insts.Addr(h.arg(1))
	count := uint64(h.arg(2))

	if !h.fds.IsOpen(fd) {
		h.setError(EBADF)
		return SyscallResult{}
	}

	buf := make([]byte, count)
	h.memory.ReadBytes(bufPtr, buf)

	n, err := h.fds.Write(fd, buf)
	if err != nil {
		h.setError(EIO)
		return SyscallResult{}
	}

	h.setReturn(W(n))
	return SyscallResult{}
}

func (h *DefaultSyscallHandler[W]) handleClose() SyscallResult {
	if err := h.fds.Close(uint64(h.arg(0))); err != nil {
		h.setError(EBADF)
		return SyscallResult{}
	}
	h.setReturn(0)
	return SyscallResult{}
}

func (h *DefaultSyscallHandler[W]) setReturn(v W) {
	h.regFile.WriteReg(h.abi.SyscallReturn, v)
	h.regFile.WriteReg(h.abi.SyscallError, 0)
}

// setError reports errno either as a negative return value or, when the ABI
// has an error flag register, as a positive value with the flag set.
func (h *DefaultSyscallHandler[W]) setError(errno int) {
	if h.abi.SyscallError.IsNone() {
		h.regFile.WriteReg(h.abi.SyscallReturn, W(-int64(errno)))
		return
	}
	h.regFile.WriteReg(h.abi.SyscallReturn, W(errno))
	h.regFile.WriteReg(h.abi.SyscallError, 1)
}
