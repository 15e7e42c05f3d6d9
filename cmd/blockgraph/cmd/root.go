package cmd

import (
	"context"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/blockgraph/blockgraph/pkg/logging"
	"github.com/blockgraph/blockgraph/pkg/telemetry"
)

var (
	verbose  bool
	logger   logging.Logger
	shutdown telemetry.ShutdownFunc
)

// rootCmd represents the base command.
var rootCmd = &cobra.Command{
	Use:   "blockgraph",
	Short: "An out-of-core graph storage and query engine",
	Long: `blockgraph packs a graph into fixed-size, block-aligned vertex
and edge blocks, and serves cached, parallel traversals over it without
holding the whole graph in memory.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := logging.LevelInfo
		if verbose {
			level = logging.LevelDebug
		}
		logger = logging.New(level, os.Stdout)
		logging.SetGlobal(logger)

		sd, err := telemetry.Init(context.Background())
		if err != nil {
			logger.Warn("telemetry init failed: %v", err)
			return nil
		}
		shutdown = sd
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if shutdown != nil {
			return shutdown(context.Background())
		}
		return nil
	},
}

// Execute adds all child commands to the root command and runs it.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	binName := BinName()
	rootCmd.Example = `  # Pack an edge list into a blockgraph file
  ` + binName + ` dump -i edges.txt -o graph.bin

  # Run breadth-first search from vertex 0
  ` + binName + ` run bfs -f graph.bin --source 0

  # Run PageRank with a larger cache
  ` + binName + ` run pagerank -f graph.bin --cache-mb 2048`
}

// GetLogger returns the configured logger.
func GetLogger() logging.Logger {
	if logger == nil {
		return logging.Global()
	}
	return logger
}

// BinName returns the base name of the current executable.
func BinName() string {
	return filepath.Base(os.Args[0])
}
