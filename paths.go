package fattree

// paths.go provides a graph view of a Topology, used to check connectivity and to
// enumerate the equal-cost shortest paths the fat tree offers between two nodes.

// The topology is converted into the data structures of a graph package that has
// built-in path discovery.  Weighting every link by 1, a shortest path minimizes
// the number of hops; in a fat tree there are usually several of them, and the
// all-shortest-paths form of Dijkstra's algorithm reports every one.  Trees of
// shortest paths are cached by root, and a path from dst to src is reused, reversed,
// for a query from src to dst.

import (
	"fmt"
	"sort"
	"strings"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/path"
	"gonum.org/v1/gonum/graph/simple"
	gtopo "gonum.org/v1/gonum/graph/topo"
)

// PathGraph is the graph-package representation of a Topology.  It caches
// shortest path trees, so a PathGraph must not be shared between goroutines.
type PathGraph struct {
	g         *simple.UndirectedGraph
	idByLabel map[string]int64
	labelByID map[int64]string

	// cachedSP saves the result of computing shortest-path trees, keyed by root id
	cachedSP map[int64]path.ShortestAlts
}

// nodeIDs numbers the nodes of the topology tier by tier in construction order.
// The same numbering is used by the name dictionary.
func nodeIDs(topo *Topology) map[string]int64 {
	ids := make(map[string]int64)
	for idx, node := range topo.Nodes() {
		ids[node.Label] = int64(idx)
	}
	return ids
}

// NewPathGraph builds the graph view of topo
func NewPathGraph(topo *Topology) *PathGraph {
	pg := &PathGraph{
		g:         simple.NewUndirectedGraph(),
		idByLabel: nodeIDs(topo),
		labelByID: make(map[int64]string),
		cachedSP:  make(map[int64]path.ShortestAlts),
	}
	for label, id := range pg.idByLabel {
		pg.labelByID[id] = label
		pg.g.AddNode(simple.Node(id))
	}
	for _, link := range topo.links {
		from, to := pg.idByLabel[link.Upper], pg.idByLabel[link.Lower]
		pg.g.SetEdge(simple.Edge{F: simple.Node(from), T: simple.Node(to)})
	}
	return pg
}

// Connected reports whether every node is reachable from every other
func (pg *PathGraph) Connected() bool {
	return len(gtopo.ConnectedComponents(pg.g)) == 1
}

// getSPTree returns the shortest path tree rooted in from, computing and caching it if needed
func (pg *PathGraph) getSPTree(from int64) path.ShortestAlts {
	spTree, present := pg.cachedSP[from]
	if present {
		return spTree
	}
	spTree = path.DijkstraAllFrom(pg.g.Node(from), pg.g)
	pg.cachedSP[from] = spTree
	return spTree
}

// convertNodeSeq turns a sequence of graph nodes into node labels
func (pg *PathGraph) convertNodeSeq(nsQ []graph.Node) []string {
	labels := make([]string, len(nsQ))
	for idx, node := range nsQ {
		labels[idx] = pg.labelByID[node.ID()]
	}
	return labels
}

// EqualCostPaths returns every shortest path from src to dst as a sequence of
// labels, both ends included.  Paths are sorted so the result is reproducible.
func (pg *PathGraph) EqualCostPaths(src, dst string) ([][]string, error) {
	srcID, present := pg.idByLabel[src]
	if !present {
		return nil, fmt.Errorf("%w: unknown node %s", ErrConfig, src)
	}
	dstID, present := pg.idByLabel[dst]
	if !present {
		return nil, fmt.Errorf("%w: unknown node %s", ErrConfig, dst)
	}

	routes := [][]string{}
	if spTree, present := pg.cachedSP[dstID]; present && srcID != dstID {
		// by symmetry the paths rooted at dst are the ones we want, reversed
		nodeSeqs, _ := spTree.AllTo(srcID)
		for _, nodeSeq := range nodeSeqs {
			route := pg.convertNodeSeq(nodeSeq)
			for i, j := 0, len(route)-1; i < j; i, j = i+1, j-1 {
				route[i], route[j] = route[j], route[i]
			}
			routes = append(routes, route)
		}
	} else {
		nodeSeqs, _ := pg.getSPTree(srcID).AllTo(dstID)
		for _, nodeSeq := range nodeSeqs {
			routes = append(routes, pg.convertNodeSeq(nodeSeq))
		}
	}

	if len(routes) == 0 {
		return nil, fmt.Errorf("%w: no path from %s to %s", ErrInternal, src, dst)
	}
	sort.Slice(routes, func(i, j int) bool {
		return strings.Join(routes[i], ",") < strings.Join(routes[j], ",")
	})
	return routes, nil
}

// Hops returns the number of links on a shortest path from src to dst
func (pg *PathGraph) Hops(src, dst string) (int, error) {
	routes, err := pg.EqualCostPaths(src, dst)
	if err != nil {
		return 0, err
	}
	return len(routes[0]) - 1, nil
}

// ShowPath returns the labels of a path as a comma-separated string
func ShowPath(route []string) string {
	return strings.Join(route, ",")
}
