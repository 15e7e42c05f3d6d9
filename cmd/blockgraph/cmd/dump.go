package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/blockgraph/blockgraph/internal/edgelist"
	"github.com/blockgraph/blockgraph/pkg/graph"
	"github.com/blockgraph/blockgraph/pkg/serializer"
)

var (
	dumpInputPath  string
	dumpOutputPath string
	dumpNumNodes   int
	dumpUndirected bool
)

var dumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Pack a whitespace edge list into a blockgraph file",
	RunE: func(cmd *cobra.Command, args []string) error {
		if dumpInputPath == "" || dumpOutputPath == "" {
			return fmt.Errorf("both --input and --output are required")
		}

		f, err := os.Open(dumpInputPath)
		if err != nil {
			return fmt.Errorf("open input: %w", err)
		}
		defer f.Close()

		g := graph.New(GetLogger())
		if err := g.InitSerializer(dumpOutputPath, serializer.ModeWrite); err != nil {
			return fmt.Errorf("open output: %w", err)
		}
		defer g.Close()

		directedness := edgelist.Directed
		if dumpUndirected {
			directedness = edgelist.Undirected
		}
		if err := edgelist.ParseEdgeList(f, g, dumpNumNodes, directedness); err != nil {
			return fmt.Errorf("parse edge list: %w", err)
		}

		if err := g.DumpGraph(); err != nil {
			return fmt.Errorf("dump graph: %w", err)
		}

		GetLogger().Info("wrote %s (%d nodes)", dumpOutputPath, g.GetNumNodes())
		return nil
	},
}

func init() {
	dumpCmd.Flags().StringVarP(&dumpInputPath, "input", "i", "", "input edge list path")
	dumpCmd.Flags().StringVarP(&dumpOutputPath, "output", "o", "", "output blockgraph file path")
	dumpCmd.Flags().IntVarP(&dumpNumNodes, "nodes", "n", 0, "node count, used when the input has no '# Nodes:' header")
	dumpCmd.Flags().BoolVar(&dumpUndirected, "undirected", false, "add the reverse edge for every input line")
	rootCmd.AddCommand(dumpCmd)
}
