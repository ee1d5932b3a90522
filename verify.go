package fattree

import (
	"fmt"

	"golang.org/x/exp/slices"
)

// Verify checks a topology against the fat-tree invariants: tier sizes, unique
// labels, no duplicate links, the core half chosen by aggregation parity, the
// shared aggregation pair of each pod, one edge switch per host, and
// connectivity.  Violations are reported together, wrapped in ErrInternal.
func Verify(topo *Topology) error {
	p := topo.params
	errs := []error{}

	sizes := map[Tier]int{CoreTier: p.CoreCount, AggrTier: p.AggrCount, EdgeTier: p.EdgeCount, HostTier: p.HostCount}
	total := 0
	for _, tier := range Tiers {
		if got := len(topo.tiers[tier]); got != sizes[tier] {
			errs = append(errs, fmt.Errorf("%s tier holds %d nodes, want %d", tier, got, sizes[tier]))
		}
		total += len(topo.tiers[tier])
	}
	if total != len(topo.byLabel) {
		errs = append(errs, fmt.Errorf("%d nodes share %d labels", total, len(topo.byLabel)))
	}

	seen := make(map[[2]string]bool)
	for _, link := range topo.links {
		if seen[link.Key()] {
			errs = append(errs, fmt.Errorf("duplicate link %s-%s", link.Upper, link.Lower))
		}
		seen[link.Key()] = true

		upper, uok := topo.byLabel[link.Upper]
		lower, lok := topo.byLabel[link.Lower]
		if !uok || !lok {
			errs = append(errs, fmt.Errorf("link %s-%s names an unknown node", link.Upper, link.Lower))
			continue
		}
		if tp, err := pairOf(upper.Tier, lower.Tier); err != nil || tp != link.Pair {
			errs = append(errs, fmt.Errorf("link %s-%s is tagged %s but joins %s to %s",
				link.Upper, link.Lower, link.Pair, upper.Tier, lower.Tier))
		}
	}

	errs = append(errs, verifyCoreAggr(topo)...)
	errs = append(errs, verifyAggrEdge(topo)...)
	errs = append(errs, verifyEdgeHost(topo)...)

	if len(errs) == 0 && !NewPathGraph(topo).Connected() {
		errs = append(errs, fmt.Errorf("topology is not connected"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %s: %v", ErrInternal, p.Name, ReportErrs(errs))
	}
	return nil
}

func positions(nodes []Node) []int {
	pos := make([]int, len(nodes))
	for idx, node := range nodes {
		pos[idx] = node.Pos
	}
	slices.Sort(pos)
	return pos
}

func verifyCoreAggr(topo *Topology) []error {
	errs := []error{}
	coreCount := len(topo.tiers[CoreTier])
	aggrCount := len(topo.tiers[AggrTier])

	for _, aggr := range topo.tiers[AggrTier] {
		want, err := coreHalf(aggr.Pos, coreCount)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		got := positions(topo.Neighbors(aggr.Label, CoreTier))
		if !slices.Equal(got, want) {
			errs = append(errs, fmt.Errorf("aggregation switch %s links to core positions %v, want %v", aggr.Label, got, want))
		}
	}
	for _, core := range topo.tiers[CoreTier] {
		if deg := topo.Degree(core.Label, AggrTier); 2*deg != aggrCount {
			errs = append(errs, fmt.Errorf("core switch %s links to %d aggregation switches, want %d", core.Label, deg, aggrCount/2))
		}
	}
	return errs
}

func verifyAggrEdge(topo *Topology) []error {
	errs := []error{}
	aggrCount := len(topo.tiers[AggrTier])

	for _, edge := range topo.tiers[EdgeTier] {
		want, err := aggrPair(edge.Pos, aggrCount)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		got := positions(topo.Neighbors(edge.Label, AggrTier))
		if !slices.Equal(got, want[:]) {
			errs = append(errs, fmt.Errorf("edge switch %s links to aggregation positions %v, want %v", edge.Label, got, want))
		}
	}
	for _, aggr := range topo.tiers[AggrTier] {
		if deg := topo.Degree(aggr.Label, EdgeTier); deg != 2 {
			errs = append(errs, fmt.Errorf("aggregation switch %s links to %d edge switches, want 2", aggr.Label, deg))
		}
	}
	return errs
}

func verifyEdgeHost(topo *Topology) []error {
	errs := []error{}
	edgeCount := len(topo.tiers[EdgeTier])

	for _, host := range topo.tiers[HostTier] {
		if links := len(topo.linksOf[host.Label]); links != 1 {
			errs = append(errs, fmt.Errorf("host %s has %d links, want 1", host.Label, links))
			continue
		}
		edge := topo.Neighbors(host.Label, EdgeTier)
		if len(edge) != 1 {
			errs = append(errs, fmt.Errorf("host %s is not linked to an edge switch", host.Label))
			continue
		}
		want, err := hostEdge(host.Pos, topo.params.HostsPerEdge, edgeCount)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if edge[0].Pos != want {
			errs = append(errs, fmt.Errorf("host %s is on edge position %d, want %d", host.Label, edge[0].Pos, want))
		}
	}
	return errs
}
