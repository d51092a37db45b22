// z80run loads a flat Z80 binary image and either runs it until HALT
// (or a cycle budget runs out) dumping the final machine state, or
// disassembles it to stdout. OUT traffic prints to stdout and IN
// reads as an undriven bus.
package main

import (
	"fmt"
	"io/ioutil"
	"log"
	"os"

	"github.com/davecgh/go-spew/spew"
	"github.com/jmchacon/z80/cpu"
	"github.com/jmchacon/z80/disassemble"
	"github.com/jmchacon/z80/memory"
	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "z80run",
		Short: "Run or disassemble flat Z80 binary images",
	}

	var startPC, startSP, maxCycles int
	var trace bool
	runCmd := &cobra.Command{
		Use:   "run <filename>",
		Short: "Execute the image until HALT or the cycle budget is spent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := ioutil.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("can't open %s - %v", args[0], err)
			}
			if startPC < 0 || startPC > 65535 || startSP < 0 || startSP > 65535 {
				return fmt.Errorf("--start_pc and --start_sp must be between 0-65535")
			}
			c, err := cpu.Init(&cpu.ChipDef{
				Mem:            memory.Def{Size: 65536},
				ProgramCounter: uint16(startPC),
				StackPointer:   uint16(startSP),
				PortOut: func(port uint8, data uint8) {
					fmt.Printf("OUT (0x%.2X) <- 0x%.2X\n", port, data)
				},
			})
			if err != nil {
				return err
			}
			if err := c.LoadMemory(b); err != nil {
				return err
			}

			total, steps := 0, 0
			for !c.Finished() {
				if maxCycles > 0 && total >= maxCycles {
					fmt.Printf("Cycle budget spent at PC 0x%.4X\n", c.PC)
					break
				}
				if trace {
					dis, _, err := disassemble.Step(c.PC, c.RAM())
					if err != nil {
						return err
					}
					fmt.Printf("%.4X: %s\n", c.PC, dis)
				}
				cycles, err := c.Step()
				if err != nil {
					log.Fatalf("Execution stopped at PC 0x%.4X - %v", c.PC, err)
				}
				total += cycles
				steps++
			}

			fmt.Printf("Ran %d instructions in %d cycles\n", steps, total)
			fmt.Printf("A=%.2X F=%.2X BC=%.4X DE=%.4X HL=%.4X IX=%.4X IY=%.4X SP=%.4X PC=%.4X\n",
				c.A, c.F, c.BC(), c.DE(), c.HL(), c.IX, c.IY, c.SP, c.PC)
			cs := spew.ConfigState{Indent: "  ", MaxDepth: 1}
			cs.Fdump(os.Stdout, c)
			return nil
		},
	}
	runCmd.Flags().IntVar(&startPC, "start_pc", 0x0000, "PC value to start execution")
	runCmd.Flags().IntVar(&startSP, "start_sp", 0x0000, "Initial stack pointer")
	runCmd.Flags().IntVar(&maxCycles, "max_cycles", 0, "Stop after this many cycles (0 = no limit)")
	runCmd.Flags().BoolVar(&trace, "trace", false, "Disassemble each instruction before executing it")

	var disPC int
	disasmCmd := &cobra.Command{
		Use:   "disasm <filename>",
		Short: "Disassemble the image to stdout",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			b, err := ioutil.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("can't open %s - %v", args[0], err)
			}
			ram, err := memory.NewFlatRAM(memory.Def{Size: 65536})
			if err != nil {
				return err
			}
			if err := ram.LoadImage(b); err != nil {
				return err
			}
			pc := disPC
			for pc < len(b) && pc < 65536 {
				dis, size, err := disassemble.Step(uint16(pc), ram)
				if err != nil {
					return err
				}
				fmt.Printf("%.4X: %s\n", pc, dis)
				pc += size
			}
			return nil
		},
	}
	disasmCmd.Flags().IntVar(&disPC, "start_pc", 0x0000, "PC value to start disassembling")

	rootCmd.AddCommand(runCmd, disasmCmd)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
