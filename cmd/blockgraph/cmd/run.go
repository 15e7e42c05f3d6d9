package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/blockgraph/blockgraph/internal/algorithm"
	"github.com/blockgraph/blockgraph/internal/config"
	"github.com/blockgraph/blockgraph/pkg/graph"
	"github.com/blockgraph/blockgraph/pkg/serializer"
)

var (
	runFilePath    string
	runCacheMB     int
	runCacheMode   string
	runThreads     int
	runSource      uint32
	runEps         float64
	runIterations  int
	runInBlocks    bool
	runNumWalks    int
	runSteps       int
	runSeed        int64
	runConfigPath  string
	runMaxDFSStack int
	runMaxDFSTasks int
	runTarget      int64
)

// dfsPoolConfig resolves the worker-pool sizing for DFS: an explicit
// --max-dfs-stack/--max-dfs-tasks flag wins, otherwise the value falls
// back to internal/config's Pool section (config file, or its
// built-in defaults when runConfigPath is empty).
func dfsPoolConfig() (maxStack, maxTasks int, err error) {
	cfg, err := config.Load(runConfigPath)
	if err != nil {
		return 0, 0, err
	}
	maxStack = runMaxDFSStack
	if maxStack <= 0 {
		maxStack = cfg.Pool.MaxDFSStack
	}
	maxTasks = runMaxDFSTasks
	if maxTasks <= 0 {
		maxTasks = cfg.Pool.MaxDFSTasks
	}
	return maxStack, maxTasks, nil
}

var runCmd = &cobra.Command{
	Use:   "run [bfs|dfs|wcc|pagerank|tc|randomwalk]",
	Short: "Run a traversal or analytics algorithm over a blockgraph file",
}

func openQueryGraph() (*graph.Graph, error) {
	if runFilePath == "" {
		return nil, fmt.Errorf("--file is required")
	}
	g := graph.New(GetLogger())
	if err := g.InitSerializer(runFilePath, serializer.ModeSyncRead); err != nil {
		return nil, err
	}
	if err := g.InitMetadata(); err != nil {
		return nil, err
	}
	if err := g.InitVertexData(); err != nil {
		return nil, err
	}

	if runThreads > 0 {
		g.SetThreadPoolSize(runThreads)
	}

	switch runCacheMode {
	case "simple":
		g.SetCacheMode(graph.CacheModeSimple)
	case "none":
		g.SetCacheMode(graph.CacheModeNone)
	default:
		g.SetCacheMode(graph.CacheModeNormal)
	}
	if runCacheMode != "none" && runCacheMB > 0 {
		g.SetCacheSizeMB(runCacheMB)
	}
	return g, nil
}

var runBFSCmd = &cobra.Command{
	Use:   "bfs",
	Short: "Breadth-first traversal from a source vertex",
	RunE: func(cmd *cobra.Command, args []string) error {
		g, err := openQueryGraph()
		if err != nil {
			return err
		}
		defer g.Close()

		count, err := algorithm.BFS(context.Background(), g, runSource)
		if err != nil {
			return err
		}
		fmt.Printf("%d vertices visited\n", count)
		return nil
	},
}

var runDFSCmd = &cobra.Command{
	Use:   "dfs",
	Short: "Depth-first traversal from a source vertex, or a reachability query with --target",
	RunE: func(cmd *cobra.Command, args []string) error {
		g, err := openQueryGraph()
		if err != nil {
			return err
		}
		defer g.Close()

		maxStack, maxTasks, err := dfsPoolConfig()
		if err != nil {
			return err
		}

		if runTarget >= 0 {
			found, err := algorithm.PathExists(context.Background(), g, runSource, uint32(runTarget), maxStack, maxTasks)
			if err != nil {
				return err
			}
			fmt.Printf("path exists: %t\n", found)
			return nil
		}

		count, err := algorithm.DFS(context.Background(), g, runSource, maxStack, maxTasks)
		if err != nil {
			return err
		}
		fmt.Printf("%d vertices visited\n", count)
		return nil
	},
}

var runWCCCmd = &cobra.Command{
	Use:   "wcc",
	Short: "Count weakly connected components",
	RunE: func(cmd *cobra.Command, args []string) error {
		g, err := openQueryGraph()
		if err != nil {
			return err
		}
		defer g.Close()

		var n int
		if runInBlocks {
			n, err = algorithm.WCCInBlocks(context.Background(), g)
		} else {
			n, err = algorithm.WCC(context.Background(), g)
		}
		if err != nil {
			return err
		}
		fmt.Printf("%d components\n", n)
		return nil
	},
}

var runPageRankCmd = &cobra.Command{
	Use:   "pagerank",
	Short: "Run PageRank to convergence",
	RunE: func(cmd *cobra.Command, args []string) error {
		g, err := openQueryGraph()
		if err != nil {
			return err
		}
		defer g.Close()

		var pr []float64
		if runIterations > 0 {
			pr, err = algorithm.PageRankFixedIterations(context.Background(), g, runIterations, runInBlocks)
		} else {
			pr, err = algorithm.PageRank(context.Background(), g, runEps)
		}
		if err != nil {
			return err
		}
		if len(pr) > 0 {
			fmt.Printf("score[0] = %f\n", pr[0])
		}
		return nil
	},
}

var runTCCmd = &cobra.Command{
	Use:   "tc",
	Short: "Count triangles",
	RunE: func(cmd *cobra.Command, args []string) error {
		g, err := openQueryGraph()
		if err != nil {
			return err
		}
		defer g.Close()

		var count uint64
		if runThreads != 0 || runInBlocks {
			count, err = algorithm.TriangleCountParallel(context.Background(), g)
		} else {
			count, err = algorithm.TriangleCount(g)
		}
		if err != nil {
			return err
		}
		fmt.Printf("%d triangles\n", count)
		return nil
	},
}

var runRandomWalkCmd = &cobra.Command{
	Use:   "randomwalk",
	Short: "Run fixed-length random walks from random start vertices",
	RunE: func(cmd *cobra.Command, args []string) error {
		g, err := openQueryGraph()
		if err != nil {
			return err
		}
		defer g.Close()

		var visited int
		if runInBlocks {
			visited, err = algorithm.RandomWalkInBlocks(context.Background(), g, runNumWalks, runSteps, runSeed)
		} else {
			visited, err = algorithm.RandomWalk(context.Background(), g, runNumWalks, runSteps, runSeed)
		}
		if err != nil {
			return err
		}
		fmt.Printf("%d visits across %d walks\n", visited, runNumWalks)
		return nil
	},
}

func init() {
	runCmd.PersistentFlags().StringVarP(&runFilePath, "file", "f", "", "blockgraph file path")
	runCmd.PersistentFlags().IntVar(&runCacheMB, "cache-mb", 64, "cache size in megabytes")
	runCmd.PersistentFlags().StringVar(&runCacheMode, "cache-mode", "normal", "cache mode: normal, simple, none")
	runCmd.PersistentFlags().IntVar(&runThreads, "threads", 0, "worker pool size (0 = NumCPU)")
	runCmd.PersistentFlags().BoolVar(&runInBlocks, "in-blocks", false, "use the edge-block-parallel schedule")
	runCmd.PersistentFlags().StringVar(&runConfigPath, "config", "", "config file path (optional; falls back to built-in defaults)")

	runBFSCmd.Flags().Uint32Var(&runSource, "source", 0, "source vertex")
	runDFSCmd.Flags().Uint32Var(&runSource, "source", 0, "source vertex")
	runDFSCmd.Flags().Int64Var(&runTarget, "target", -1, "if set, report whether target is reachable from source instead of a full traversal")
	runDFSCmd.Flags().IntVar(&runMaxDFSStack, "max-dfs-stack", 0, "DFS split threshold (0 = use config's pool.max_dfs_stack)")
	runDFSCmd.Flags().IntVar(&runMaxDFSTasks, "max-dfs-tasks", 0, "max concurrent DFS tasks (0 = use config's pool.max_dfs_tasks, which itself 0 = NumCPU)")
	runPageRankCmd.Flags().Float64Var(&runEps, "eps", 0.01, "convergence threshold")
	runPageRankCmd.Flags().IntVar(&runIterations, "iterations", 0, "fixed iteration count (0 = run to convergence)")

	runRandomWalkCmd.Flags().IntVar(&runNumWalks, "walks", 1000, "number of independent walks")
	runRandomWalkCmd.Flags().IntVar(&runSteps, "steps", 1000, "steps per walk")
	runRandomWalkCmd.Flags().Int64Var(&runSeed, "seed", 42, "random seed")

	runCmd.AddCommand(runBFSCmd, runDFSCmd, runWCCCmd, runPageRankCmd, runTCCmd, runRandomWalkCmd)
	rootCmd.AddCommand(runCmd)
}
