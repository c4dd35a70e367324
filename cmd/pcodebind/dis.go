package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/birchlake/pcodebind/loader"
	"github.com/birchlake/pcodebind/pcode"
)

var (
	disAt    string
	disCount int
	disBlock bool
	disPcode bool
)

var disCmd = &cobra.Command{
	Use:   "dis <binary>",
	Short: "Disassemble an ELF binary to instructions and pcode",
	Args:  cobra.ExactArgs(1),
	RunE:  runDis,
}

func init() {
	disCmd.Flags().StringVar(&disAt, "at", "",
		"address to start decoding at (default: entry point)")
	disCmd.Flags().IntVar(&disCount, "count", 16,
		"maximum number of instructions to decode")
	disCmd.Flags().BoolVar(&disBlock, "block", false,
		"stop at the end of the basic block")
	disCmd.Flags().BoolVar(&disPcode, "pcode", false,
		"print the pcode operations of each instruction")
}

func runDis(cmd *cobra.Command, args []string) error {
	prog, err := loader.Load(args[0])
	if err != nil {
		return err
	}
	logger.Debug("loaded binary",
		"path", args[0], "language", prog.Language, "entry", fmt.Sprintf("%#x", prog.EntryPoint))

	e, err := newEngine(prog.Language)
	if err != nil {
		return err
	}
	e.Bind(prog.Image)

	start := prog.EntryPoint
	if disAt != "" {
		if start, err = parseAddr(disAt); err != nil {
			return err
		}
	}

	var insts []pcode.Instruction
	if disBlock {
		insts, err = e.ReadBlockAt(start, disCount)
	} else {
		insts, err = e.ReadAt(start, disCount)
	}
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, inst := range insts {
		fmt.Fprintf(out, "%#08x  %-8s %s\n",
			inst.Address, inst.Disassembly.Mnemonic, inst.Disassembly.Operands)
		if disPcode {
			for _, op := range inst.Ops {
				fmt.Fprintf(out, "            %s\n", op)
			}
		}
	}
	return nil
}
