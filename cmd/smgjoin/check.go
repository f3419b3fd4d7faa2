package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"honnef.co/go/shape/smg"
)

var checkCmd = &cobra.Command{
	Use:   "check graph.toml...",
	Short: "Check heap graph descriptions for consistency",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		failed := 0
		for _, path := range args {
			g, err := readGraph(path)
			if err == nil {
				err = smg.Check(g.Graph)
			}
			if err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", path, err)
				failed++
				continue
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: ok\n", path)
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d graphs are inconsistent", failed, len(args))
		}
		return nil
	},
}
