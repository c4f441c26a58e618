package benchmarks

import (
	"github.com/sarchlab/pipesim/emu"
	"github.com/sarchlab/pipesim/insts"
	"github.com/sarchlab/pipesim/insts/mips"
	"github.com/sarchlab/pipesim/insts/riscv"
)

// GetMicrobenchmarks returns the standard set of microbenchmarks. Each
// benchmark targets a specific pipeline characteristic.
func GetMicrobenchmarks() []Benchmark {
	return []Benchmark{
		arithmeticSequential(),
		dependencyChain(),
		memorySequential(),
		loadUse(),
		functionCalls(),
		branchTaken(),
		countedLoop(),
		longArithChain(),
		matrixOperations(),
		mipsCountedLoop(),
		mipsLikelyLoop(),
	}
}

// GetCoreBenchmarks returns a minimal set of 3 core benchmarks for quick
// validation: loop, matrix-style memory traffic and branch-heavy code.
func GetCoreBenchmarks() []Benchmark {
	return []Benchmark{
		countedLoop(),
		matrixOperations(),
		branchTaken(),
	}
}

// riscvExit sets the exit system call number.
func riscvExit(setReg func(insts.Register, uint64)) {
	setReg(riscv.A7, riscv.SysExit)
}

// 1. Arithmetic Sequential - Tests issue rate with independent operations
func arithmeticSequential() Benchmark {
	program := make([]uint32, 0, 21)
	for i := 0; i < 4; i++ {
		program = append(program,
			riscv.ADDI(riscv.A0, riscv.A0, 1),
			riscv.ADDI(riscv.A1, riscv.A1, 1),
			riscv.ADDI(riscv.A2, riscv.A2, 1),
			riscv.ADDI(riscv.A3, riscv.A3, 1),
			riscv.ADDI(riscv.A4, riscv.A4, 1),
		)
	}
	program = append(program, riscv.ECALL())

	return Benchmark{
		Name:        "arithmetic_sequential",
		Description: "20 ADDs spread over 5 registers - measures issue rate",
		ISA:         "riscv64",
		Setup: func(setReg func(insts.Register, uint64), _ *emu.Memory) {
			riscvExit(setReg)
		},
		Program:      program,
		ExpectedExit: 4, // a0 = 4*1
	}
}

// 2. Dependency Chain - Every instruction consumes the previous result
func dependencyChain() Benchmark {
	program := make([]uint32, 0, 21)
	for i := 0; i < 20; i++ {
		program = append(program, riscv.ADDI(riscv.A0, riscv.A0, 1))
	}
	program = append(program, riscv.ECALL())

	return Benchmark{
		Name:        "dependency_chain",
		Description: "20 dependent ADDs (a0 = a0 + 1) - measures forwarding",
		ISA:         "riscv64",
		Setup: func(setReg func(insts.Register, uint64), _ *emu.Memory) {
			riscvExit(setReg)
		},
		Program:      program,
		ExpectedExit: 20,
	}
}

// 3. Memory Sequential - Store/load pairs to sequential addresses
func memorySequential() Benchmark {
	program := make([]uint32, 0, 21)
	for i := int32(0); i < 10; i++ {
		program = append(program,
			riscv.SD(riscv.A0, riscv.T0, 8*i),
			riscv.LD(riscv.A0, riscv.T0, 8*i),
		)
	}
	program = append(program, riscv.ECALL())

	return Benchmark{
		Name:        "memory_sequential",
		Description: "10 store/load pairs to sequential addresses - measures memory stage traffic",
		ISA:         "riscv64",
		Setup: func(setReg func(insts.Register, uint64), _ *emu.Memory) {
			riscvExit(setReg)
			setReg(riscv.T0, 0x8000) // base address
			setReg(riscv.A0, 42)     // value to store/load
		},
		Program:      program,
		ExpectedExit: 42,
	}
}

// 4. Load Use - Each load feeds the next ALU operation
func loadUse() Benchmark {
	program := []uint32{riscv.ADDI(riscv.A0, riscv.Zero, 0)}
	for i := int32(0); i < 5; i++ {
		program = append(program,
			riscv.LD(riscv.T1, riscv.T0, 8*i),
			riscv.ADD(riscv.A0, riscv.A0, riscv.T1),
		)
	}
	program = append(program, riscv.ECALL())

	return Benchmark{
		Name:        "load_use",
		Description: "5 loads each consumed by the next ADD - exercises the late ALU",
		ISA:         "riscv64",
		Setup: func(setReg func(insts.Register, uint64), memory *emu.Memory) {
			riscvExit(setReg)
			setReg(riscv.T0, 0x8000)
			for i := uint64(0); i < 5; i++ {
				memory.Write64(0x8000+8*i, i+1)
			}
		},
		Program:      program,
		ExpectedExit: 15, // 1+2+3+4+5
	}
}

// 5. Function Calls - Tests JAL/JALR overhead
func functionCalls() Benchmark {
	return Benchmark{
		Name:        "function_calls",
		Description: "5 function calls (JAL + return pairs) - measures call overhead",
		ISA:         "riscv64",
		Setup: func(setReg func(insts.Register, uint64), _ *emu.Memory) {
			riscvExit(setReg)
		},
		Program: []uint32{
			// main: call add_one 5 times
			riscv.JAL(riscv.RA, 24), // add_one is 6 instructions ahead
			riscv.JAL(riscv.RA, 20),
			riscv.JAL(riscv.RA, 16),
			riscv.JAL(riscv.RA, 12),
			riscv.JAL(riscv.RA, 8),
			riscv.ECALL(), // exit with a0

			// add_one
			riscv.ADDI(riscv.A0, riscv.A0, 1),
			riscv.JALR(riscv.Zero, riscv.RA, 0),
		},
		ExpectedExit: 5,
	}
}

// 6. Branch Taken - Tests unconditional jump overhead
func branchTaken() Benchmark {
	program := make([]uint32, 0, 16)
	for i := 0; i < 5; i++ {
		program = append(program,
			riscv.JAL(riscv.Zero, 8),           // skip next instruction
			riscv.ADDI(riscv.A1, riscv.A1, 99), // skipped
			riscv.ADDI(riscv.A0, riscv.A0, 1),
		)
	}
	program = append(program, riscv.ECALL())

	return Benchmark{
		Name:        "branch_taken",
		Description: "5 forward jumps - measures decode-time redirects",
		ISA:         "riscv64",
		Setup: func(setReg func(insts.Register, uint64), _ *emu.Memory) {
			riscvExit(setReg)
		},
		Program:      program,
		ExpectedExit: 5,
	}
}

// 7. Counted Loop - for i := 10; i > 0; i-- { sum += i }
func countedLoop() Benchmark {
	return Benchmark{
		Name:        "counted_loop",
		Description: "10-iteration loop with a backward branch - tests predictor training",
		ISA:         "riscv64",
		Setup: func(setReg func(insts.Register, uint64), _ *emu.Memory) {
			riscvExit(setReg)
		},
		Program: []uint32{
			riscv.ADDI(riscv.A0, riscv.Zero, 0),
			riscv.ADDI(riscv.T0, riscv.Zero, 10),
			riscv.ADD(riscv.A0, riscv.A0, riscv.T0),
			riscv.ADDI(riscv.T0, riscv.T0, -1),
			riscv.BNE(riscv.T0, riscv.Zero, -8),
			riscv.ECALL(),
		},
		ExpectedExit: 55,
	}
}

// 8. Long Arithmetic Chain - Dependent multiplies through the late ALU loop
func longArithChain() Benchmark {
	program := []uint32{
		riscv.ADDI(riscv.A0, riscv.Zero, 1),
		riscv.ADDI(riscv.T0, riscv.Zero, 2),
	}
	for i := 0; i < 5; i++ {
		program = append(program, riscv.MUL(riscv.A0, riscv.A0, riscv.T0))
	}
	program = append(program, riscv.ECALL())

	return Benchmark{
		Name:        "long_arith_chain",
		Description: "5 dependent MULs - measures long-latency stalls",
		ISA:         "riscv32",
		Setup: func(setReg func(insts.Register, uint64), _ *emu.Memory) {
			riscvExit(setReg)
		},
		Program:      program,
		ExpectedExit: 32,
	}
}

// 9. Matrix Operations - C[i] = A[i] + B[i] with a final reduction
func matrixOperations() Benchmark {
	return Benchmark{
		Name:        "matrix_operations",
		Description: "Matrix-style load/compute/store pattern - tests memory forwarding",
		ISA:         "riscv64",
		Setup: func(setReg func(insts.Register, uint64), memory *emu.Memory) {
			riscvExit(setReg)
			// Array A at 0x8000: [10, 20, 30, 40]
			setReg(riscv.T0, 0x8000)
			memory.Write64(0x8000, 10)
			memory.Write64(0x8008, 20)
			memory.Write64(0x8010, 30)
			memory.Write64(0x8018, 40)

			// Array B at 0x8100: [1, 2, 3, 4]
			setReg(riscv.T1, 0x8100)
			memory.Write64(0x8100, 1)
			memory.Write64(0x8108, 2)
			memory.Write64(0x8110, 3)
			memory.Write64(0x8118, 4)

			// Array C at 0x8200 (result)
			setReg(riscv.T2, 0x8200)
		},
		Program: []uint32{
			riscv.LD(riscv.S2, riscv.T0, 0),
			riscv.LD(riscv.S3, riscv.T0, 8),
			riscv.LD(riscv.S4, riscv.T0, 16),
			riscv.LD(riscv.S5, riscv.T0, 24),

			riscv.LD(riscv.S6, riscv.T1, 0),
			riscv.LD(riscv.S7, riscv.T1, 8),
			riscv.LD(riscv.S8, riscv.T1, 16),
			riscv.LD(riscv.S9, riscv.T1, 24),

			riscv.ADD(riscv.S2, riscv.S2, riscv.S6), // 11
			riscv.ADD(riscv.S3, riscv.S3, riscv.S7), // 22
			riscv.ADD(riscv.S4, riscv.S4, riscv.S8), // 33
			riscv.ADD(riscv.S5, riscv.S5, riscv.S9), // 44

			riscv.SD(riscv.S2, riscv.T2, 0),
			riscv.SD(riscv.S3, riscv.T2, 8),
			riscv.SD(riscv.S4, riscv.T2, 16),
			riscv.SD(riscv.S5, riscv.T2, 24),

			riscv.ADD(riscv.A0, riscv.S2, riscv.S3),
			riscv.ADD(riscv.A0, riscv.A0, riscv.S4),
			riscv.ADD(riscv.A0, riscv.A0, riscv.S5),

			riscv.ECALL(),
		},
		ExpectedExit: 110,
	}
}

// 10. MIPS Counted Loop - the counted loop on the o32 ABI
func mipsCountedLoop() Benchmark {
	return Benchmark{
		Name:        "mips_counted_loop",
		Description: "10-iteration MIPS loop - tests the second decoder",
		ISA:         "mips32",
		Setup: func(setReg func(insts.Register, uint64), _ *emu.Memory) {
			setReg(mips.V0, mips.SysExitO32)
		},
		Program: []uint32{
			mips.ADDIU(mips.A0, mips.Zero, 0),
			mips.ADDIU(mips.T0, mips.Zero, 10),
			mips.ADDU(mips.A0, mips.A0, mips.T0),
			mips.ADDIU(mips.T0, mips.T0, -1),
			mips.BNE(mips.T0, mips.Zero, -8),
			mips.SYSCALL(),
		},
		ExpectedExit: 55,
	}
}

// 11. MIPS Likely Loop - the counted loop closed by a branch-likely
func mipsLikelyLoop() Benchmark {
	return Benchmark{
		Name:        "mips_likely_loop",
		Description: "10-iteration loop closed by BNEL - tests likely-branch prediction",
		ISA:         "mips64",
		Setup: func(setReg func(insts.Register, uint64), _ *emu.Memory) {
			setReg(mips.V0, mips.SysExitN64)
		},
		Program: []uint32{
			mips.ADDIU(mips.A0, mips.Zero, 0),
			mips.ADDIU(mips.T0, mips.Zero, 10),
			mips.ADDU(mips.A0, mips.A0, mips.T0),
			mips.ADDIU(mips.T0, mips.T0, -1),
			mips.BNEL(mips.T0, mips.Zero, -8),
			mips.SYSCALL(),
		},
		ExpectedExit: 55,
	}
}
