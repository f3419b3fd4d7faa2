// Smgjoin joins heap graphs described in TOML files and prints the result.
//
// Usage:
//
//	smgjoin join left.toml right.toml
//	smgjoin abstract graph.toml
//	smgjoin check graph.toml...
//	smgjoin lattice
//
// Settings are read from smgjoin.conf files in the working directory and its
// parents, or in the directory given by --config.
package main

import (
	"fmt"
	"io"
	"os"
	"runtime/debug"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"honnef.co/go/shape/config"
	"honnef.co/go/shape/join"
	"honnef.co/go/shape/smg"
	"honnef.co/go/shape/smg/smgdesc"
)

var (
	configDir   string
	dotFlag     bool
	verboseFlag bool

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:           "smgjoin",
	Short:         "smgjoin - join and abstract symbolic memory graphs",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if verboseFlag {
			logger, err = zap.NewDevelopment()
		} else {
			logger = zap.NewNop()
		}
		return err
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

// buildVersion returns the module version recorded in the binary, or "devel"
// for builds from a working tree.
func buildVersion() string {
	info, ok := debug.ReadBuildInfo()
	if !ok || info.Main.Version == "" || info.Main.Version == "(devel)" {
		return "devel"
	}
	return info.Main.Version
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configDir, "config", ".", "Directory to look up smgjoin.conf from")
	rootCmd.PersistentFlags().BoolVar(&dotFlag, "dot", false, "Print graphs in Graphviz format")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "Log the engine's decisions")
	rootCmd.Version = buildVersion()

	rootCmd.AddCommand(joinCmd)
	rootCmd.AddCommand(abstractCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(latticeCmd)
}

func main() {
	err := rootCmd.Execute()
	if logger != nil {
		_ = logger.Sync()
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "smgjoin:", err)
		os.Exit(1)
	}
}

// options loads the configuration and returns the join options it describes.
func options() (join.Options, error) {
	cfg, err := config.Load(configDir)
	if err != nil {
		return join.Options{}, err
	}
	opts := cfg.Options()
	opts.Logger = logger
	return opts, nil
}

func readGraph(path string) (*smgdesc.Graph, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	g, err := smgdesc.Parse(string(b))
	if err != nil {
		return nil, fmt.Errorf("%s: %v", path, err)
	}
	return g, nil
}

func printGraph(w io.Writer, g *smg.Graph) {
	if dotFlag {
		fmt.Fprint(w, g.Dot())
	} else {
		fmt.Fprint(w, g.String())
	}
}
