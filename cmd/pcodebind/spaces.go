package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var spacesCmd = &cobra.Command{
	Use:   "spaces",
	Short: "List the address spaces of an architecture description",
	Args:  cobra.NoArgs,
	RunE:  runSpaces,
}

func runSpaces(cmd *cobra.Command, args []string) error {
	e, err := newEngine("")
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%-5s %-10s %-8s %-10s %-5s %s\n",
		"INDEX", "NAME", "SHORTCUT", "KIND", "SIZE", "ENDIAN")
	for _, space := range e.Spaces() {
		endian := "little"
		if space.BigEndian {
			endian = "big"
		}
		fmt.Fprintf(out, "%-5d %-10s %-8s %-10s %-5d %s\n",
			space.Index, space.Name, space.Shortcut, space.Kind, space.AddressSize, endian)
	}
	return nil
}
