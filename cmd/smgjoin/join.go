package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"honnef.co/go/shape/join"
)

var joinCmd = &cobra.Command{
	Use:   "join left.toml right.toml",
	Short: "Join two heap graphs",
	Long: `Joins the heap graphs described by two files and prints the join status
and the joined graph. If the graphs cannot be joined, the reason is printed and
the command fails.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := options()
		if err != nil {
			return err
		}
		left, err := readGraph(args[0])
		if err != nil {
			return err
		}
		right, err := readGraph(args[1])
		if err != nil {
			return err
		}

		res, err := join.New(opts).Join(&join.State{Graph: left.Graph}, &join.State{Graph: right.Graph})
		if err != nil {
			return err
		}
		if !res.Defined {
			logger.Debug("join not defined", zap.String("left", args[0]), zap.String("right", args[1]))
			return fmt.Errorf("not joinable: %s", res.Reason)
		}

		w := cmd.OutOrStdout()
		if !dotFlag {
			fmt.Fprintln(w, "status:", res.Status)
			for _, c := range res.Candidates {
				fmt.Fprintf(w, "folded %s at %s\n", &c.Template, c.Value)
			}
			for i := range res.Abstracted {
				fmt.Fprintf(w, "abstracted %s\n", &res.Abstracted[i])
			}
		}
		printGraph(w, res.State.Graph)
		return nil
	},
}
