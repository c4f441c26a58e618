package emu

import "github.com/sarchlab/pipesim/insts"

// LoadStoreUnit performs the memory side of executed loads and stores.
type LoadStoreUnit[W insts.Word] struct {
	memory *Memory
}

// NewLoadStoreUnit creates a LoadStoreUnit connected to memory.
func NewLoadStoreUnit[W insts.Word](memory *Memory) *LoadStoreUnit[W] {
	return &LoadStoreUnit[W]{memory: memory}
}

// Load completes an executed load with the value at its effective address.
func (lsu *LoadStoreUnit[W]) Load(inst insts.Instruction[W]) {
	inst.SetLoadValue(lsu.memory.Read(inst.MemAddr(), inst.MemSize()))
}

// Store writes the store value of an executed store.
func (lsu *LoadStoreUnit[W]) Store(inst insts.Instruction[W]) {
	lsu.memory.Write(inst.MemAddr(), inst.MemSize(), uint64(inst.StoreValue()))
}

// Access performs the load or store of inst, if any.
func (lsu *LoadStoreUnit[W]) Access(inst insts.Instruction[W]) {
	switch {
	case inst.IsLoad():
		lsu.Load(inst)
	case inst.IsStore():
		lsu.Store(inst)
	}
}
