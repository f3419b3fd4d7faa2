package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"honnef.co/go/shape/abstraction"
)

var abstractCmd = &cobra.Command{
	Use:   "abstract graph.toml",
	Short: "Fold the list chains of a heap graph into segments",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := options()
		if err != nil {
			return err
		}
		g, err := readGraph(args[0])
		if err != nil {
			return err
		}

		w := cmd.OutOrStdout()
		for {
			ts := abstraction.Find(g.Graph, opts.Abstraction)
			if len(ts) == 0 {
				break
			}
			if err := abstraction.Execute(g.Graph, ts[0]); err != nil {
				return err
			}
			logger.Debug("folded chain", zap.Stringer("template", &ts[0]))
			if !dotFlag {
				fmt.Fprintf(w, "folded %s\n", &ts[0])
			}
		}
		g.Collect()
		printGraph(w, g.Graph)
		return nil
	},
}
