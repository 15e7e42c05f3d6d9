package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var queryVertex uint32

var queryCmd = &cobra.Command{
	Use:   "query",
	Short: "Look up a single vertex's degree and out-neighbors",
	RunE: func(cmd *cobra.Command, args []string) error {
		g, err := openQueryGraph()
		if err != nil {
			return err
		}
		defer g.Close()
		g.DisableCache()

		degree, err := g.GetDegree(queryVertex)
		if err != nil {
			return err
		}
		edges, err := g.GetEdges(queryVertex)
		if err != nil {
			return err
		}
		fmt.Printf("vertex %d: degree=%d edges=%v\n", queryVertex, degree, edges)
		return nil
	},
}

func init() {
	queryCmd.Flags().StringVarP(&runFilePath, "file", "f", "", "blockgraph file path")
	queryCmd.Flags().Uint32Var(&queryVertex, "vertex", 0, "vertex id to look up")
	rootCmd.AddCommand(queryCmd)
}
