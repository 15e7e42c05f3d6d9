// Package edgelist parses SNAP-style whitespace-separated edge list
// files into a graph.Graph under construction.
package edgelist

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/blockgraph/blockgraph/pkg/graph"
	"github.com/blockgraph/blockgraph/pkg/graphErr"
)

// Directedness controls whether ParseEdgeList adds the reverse edge for
// every line it reads.
type Directedness int

const (
	// Directed adds only src -> dst for each line.
	Directed Directedness = iota
	// Undirected adds both src -> dst and dst -> src for each line.
	Undirected
)

// ParseEdgeList reads a SNAP-style edge list from r into g.
//
// Comment lines begin with "#". A "# Nodes: N" comment declares the
// vertex count via g.InitNodes before any edge line is read; if no such
// comment appears, numNodesHint is used instead. A "# Directed" or
// "# Undirected" comment overrides directedness for the remainder of
// the file. All other non-blank lines are "src dst" edges.
func ParseEdgeList(r io.Reader, g *graph.Graph, numNodesHint int, directedness Directedness) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	initialized := false
	ensureInit := func(n int) {
		if !initialized {
			g.InitNodes(n)
			initialized = true
		}
	}

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)

		if fields[0] == "#" {
			if len(fields) < 2 {
				continue
			}
			switch fields[1] {
			case "Nodes:":
				if len(fields) < 3 {
					return graphErr.New(graphErr.CodeCorruption, "malformed Nodes header")
				}
				n, err := strconv.Atoi(fields[2])
				if err != nil {
					return graphErr.Wrap(graphErr.CodeCorruption, "malformed Nodes header", err)
				}
				ensureInit(n)
			case "Directed":
				directedness = Directed
			case "Undirected":
				directedness = Undirected
			}
			continue
		}

		ensureInit(numNodesHint)

		if len(fields) < 2 {
			return graphErr.New(graphErr.CodeCorruption, "edge line must have two endpoints: "+line)
		}
		src, err := strconv.ParseUint(fields[0], 10, 32)
		if err != nil {
			return graphErr.Wrap(graphErr.CodeCorruption, "malformed source id", err)
		}
		dst, err := strconv.ParseUint(fields[1], 10, 32)
		if err != nil {
			return graphErr.Wrap(graphErr.CodeCorruption, "malformed destination id", err)
		}

		if err := g.AddEdge(uint32(src), uint32(dst)); err != nil {
			return err
		}
		if directedness == Undirected {
			if err := g.AddEdge(uint32(dst), uint32(src)); err != nil {
				return err
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return graphErr.Wrap(graphErr.CodeIO, "reading edge list", err)
	}

	g.FinalizeEdgelist()
	return nil
}
