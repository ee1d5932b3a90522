package fattree

// file topology.go holds the Link and Topology types.  A Topology is created
// only by Build and never changes afterwards; every accessor hands out copies.

import (
	"golang.org/x/exp/slices"
)

// Link joins a node of an upper tier to a node of the tier directly below it.
// Links are undirected; Upper and Lower only fix the order in which the
// endpoints are reported.
type Link struct {
	Upper string
	Lower string
	Pair  TierPair
	Attrs LinkAttrs
}

// Other returns the endpoint of the link that is not label
func (l Link) Other(label string) string {
	if l.Upper == label {
		return l.Lower
	}
	return l.Upper
}

// Key identifies the link independently of endpoint order
func (l Link) Key() [2]string {
	return linkKey(l.Upper, l.Lower)
}

func linkKey(a, b string) [2]string {
	if b < a {
		return [2]string{b, a}
	}
	return [2]string{a, b}
}

// Topology is the complete fat tree: four tiers of nodes and the links between them
type Topology struct {
	params Params
	tiers  map[Tier][]Node
	links  []Link

	// byLabel finds a node from its label, linksOf the indices (into links)
	// of the links touching a label
	byLabel map[string]Node
	linksOf map[string][]int
}

func newTopology(params Params, tiers map[Tier][]Node, links []Link) *Topology {
	topo := &Topology{
		params:  params,
		tiers:   tiers,
		links:   links,
		byLabel: make(map[string]Node),
		linksOf: make(map[string][]int),
	}
	for _, tier := range Tiers {
		for _, node := range tiers[tier] {
			topo.byLabel[node.Label] = node
		}
	}
	for idx, link := range links {
		topo.linksOf[link.Upper] = append(topo.linksOf[link.Upper], idx)
		topo.linksOf[link.Lower] = append(topo.linksOf[link.Lower], idx)
	}
	return topo
}

// Name returns the name given in the build parameters
func (t *Topology) Name() string {
	return t.params.Name
}

// Params returns the parameters the topology was built from
func (t *Topology) Params() Params {
	params := t.params
	params.Policy = t.params.Policy.clone()
	return params
}

// Tier returns the nodes of one tier in position order
func (t *Topology) Tier(tier Tier) []Node {
	return slices.Clone(t.tiers[tier])
}

// Core returns the core switches
func (t *Topology) Core() []Node { return t.Tier(CoreTier) }

// Aggr returns the aggregation switches
func (t *Topology) Aggr() []Node { return t.Tier(AggrTier) }

// Edge returns the edge switches
func (t *Topology) Edge() []Node { return t.Tier(EdgeTier) }

// Hosts returns the hosts
func (t *Topology) Hosts() []Node { return t.Tier(HostTier) }

// Nodes returns every node, tier by tier in construction order
func (t *Topology) Nodes() []Node {
	nodes := make([]Node, 0, len(t.byLabel))
	for _, tier := range Tiers {
		nodes = append(nodes, t.tiers[tier]...)
	}
	return nodes
}

// Switches returns the core, aggregation and edge switches in that order
func (t *Topology) Switches() []Node {
	nodes := make([]Node, 0, len(t.byLabel))
	for _, tier := range Tiers {
		if tier.IsSwitch() {
			nodes = append(nodes, t.tiers[tier]...)
		}
	}
	return nodes
}

// Links returns every link in emission order
func (t *Topology) Links() []Link {
	return slices.Clone(t.links)
}

// LinksOfPair returns the links joining the two tiers of tp
func (t *Topology) LinksOfPair(tp TierPair) []Link {
	links := []Link{}
	for _, link := range t.links {
		if link.Pair == tp {
			links = append(links, link)
		}
	}
	return links
}

// NumNodes returns the number of nodes in all tiers
func (t *Topology) NumNodes() int {
	return len(t.byLabel)
}

// NumLinks returns the number of links
func (t *Topology) NumLinks() int {
	return len(t.links)
}

// Node looks up a node by label
func (t *Topology) Node(label string) (Node, bool) {
	node, present := t.byLabel[label]
	return node, present
}

// LinksOf returns the links touching the labeled node
func (t *Topology) LinksOf(label string) []Link {
	links := make([]Link, 0, len(t.linksOf[label]))
	for _, idx := range t.linksOf[label] {
		links = append(links, t.links[idx])
	}
	return links
}

// Neighbors returns the nodes of the given tier linked to the labeled node,
// in link emission order
func (t *Topology) Neighbors(label string, tier Tier) []Node {
	nbrs := []Node{}
	for _, idx := range t.linksOf[label] {
		nbr := t.byLabel[t.links[idx].Other(label)]
		if nbr.Tier == tier {
			nbrs = append(nbrs, nbr)
		}
	}
	return nbrs
}

// Degree counts the links from the labeled node to nodes of the given tier
func (t *Topology) Degree(label string, tier Tier) int {
	return len(t.Neighbors(label, tier))
}
