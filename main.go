// Package main provides the entry point for pipesim.
// pipesim is a cycle-accurate in-order pipeline simulator for RISC-V and
// MIPS programs.
//
// For the full CLI, use: go run ./cmd/pipesim
package main

import (
	"fmt"
	"os"
)

func main() {
	fmt.Println("pipesim - In-order Pipeline Timing Simulator")
	fmt.Println("RISC-V and MIPS, 32-bit and 64-bit")
	fmt.Println("")
	fmt.Println("Usage: pipesim [options] <program.elf>")
	fmt.Println("")
	fmt.Println("Options:")
	fmt.Println("  -timing      Enable timing simulation mode")
	fmt.Println("  -config      Path to timing configuration JSON or YAML file")
	fmt.Println("  -check       Compare the timing run against the emulator")
	fmt.Println("  -max-cycles  Stop the timing run after this many cycles")
	fmt.Println("  -v           Verbose output")
	fmt.Println("")
	fmt.Println("Run 'go run ./cmd/pipesim' for the full CLI.")

	if len(os.Args) > 1 {
		fmt.Println("\nNote: You provided arguments. Use 'go run ./cmd/pipesim' instead.")
	}
}
