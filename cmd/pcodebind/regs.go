package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var regsCmd = &cobra.Command{
	Use:   "regs",
	Short: "List the register table of an architecture description",
	Args:  cobra.NoArgs,
	RunE:  runRegs,
}

func runRegs(cmd *cobra.Command, args []string) error {
	e, err := newEngine("")
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%-10s %s\n", "NAME", "LOCATION")
	for _, reg := range e.AllRegisters() {
		fmt.Fprintf(out, "%-10s %s\n", reg.Name, reg.Varnode)
	}
	return nil
}
