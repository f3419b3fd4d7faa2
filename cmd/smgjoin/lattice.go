package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"honnef.co/go/shape/join"
)

var latticeCmd = &cobra.Command{
	Use:   "lattice",
	Short: "Print the order of join statuses as a Graphviz graph",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Fprintln(cmd.OutOrStdout(), join.StatusDot())
		return nil
	},
}
