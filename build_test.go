package fattree

import (
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slices"
)

func mustBuild(t *testing.T, params Params) *Topology {
	t.Helper()
	topo, err := Build(params)
	require.NoError(t, err)
	require.NotNil(t, topo)
	return topo
}

func neighborPositions(topo *Topology, label string, tier Tier) []int {
	return positions(topo.Neighbors(label, tier))
}

func TestBuild_DefaultTree(t *testing.T) {
	topo := mustBuild(t, DefaultParams())

	assert.Equal(t, "fatTree", topo.Name())
	assert.Equal(t, 36, topo.NumNodes())
	assert.Equal(t, 48, topo.NumLinks())
	for _, tp := range TierPairs {
		assert.Len(t, topo.LinksOfPair(tp), 16, "links of %s", tp)
	}

	assert.Len(t, topo.Core(), 4)
	assert.Len(t, topo.Aggr(), 8)
	assert.Len(t, topo.Edge(), 8)
	assert.Len(t, topo.Hosts(), 16)
	assert.Len(t, topo.Switches(), 20)

	assert.Equal(t, "s1001", topo.Core()[0].Label)
	assert.Equal(t, "s2008", topo.Aggr()[7].Label)
	assert.Equal(t, "s3001", topo.Edge()[0].Label)
	assert.Equal(t, "h4016", topo.Hosts()[15].Label)

	// core position 0 serves the even aggregation switches
	assert.Equal(t, []int{0, 2, 4, 6}, neighborPositions(topo, "s1001", AggrTier))
	assert.Equal(t, []int{1, 3, 5, 7}, neighborPositions(topo, "s1004", AggrTier))

	// edge position 3 belongs to the pod of aggregation positions 2 and 3
	assert.Equal(t, []int{2, 3}, neighborPositions(topo, "s3004", AggrTier))

	// h4003 is host position 2, on edge position 1
	assert.Equal(t, []int{1}, neighborPositions(topo, "h4003", EdgeTier))
	assert.Equal(t, []int{0, 1}, neighborPositions(topo, "s3001", HostTier))

	links := topo.Links()
	assert.Equal(t, Link{Upper: "s1001", Lower: "s2001", Pair: CoreAggr}, links[0])
	assert.Equal(t, Link{Upper: "s3008", Lower: "h4016", Pair: EdgeHost}, links[47])
}

func TestBuild_LabAttributes(t *testing.T) {
	topo := mustBuild(t, LabParams())
	assert.Equal(t, "fatTree-lab", topo.Name())

	for _, link := range topo.LinksOfPair(CoreAggr) {
		assert.Equal(t, LinkAttrs{Bandwidth: 100, Loss: 2}, link.Attrs)
	}
	for _, link := range topo.LinksOfPair(AggrEdge) {
		assert.Equal(t, LinkAttrs{Bandwidth: 100}, link.Attrs)
	}
	for _, link := range topo.LinksOfPair(EdgeHost) {
		assert.True(t, link.Attrs.IsZero())
	}
}

func TestBuild_ConfigErrors(t *testing.T) {
	tests := []struct {
		name   string
		modify func(p *Params)
	}{
		{"hosts not divisible by hosts per edge", func(p *Params) { p.HostCount = 15 }},
		{"hosts fill too many edge switches", func(p *Params) { p.HostCount = 18 }},
		{"odd core count", func(p *Params) { *p = ParamsForK(3, 2) }},
		{"core halves of one switch", func(p *Params) { *p = ParamsForK(2, 2) }},
		{"start index overflows labels", func(p *Params) { p.StartIndex = math.MaxInt / 2 }},
		{"start index near max int", func(p *Params) { p.StartIndex = math.MaxInt - 2 }},
		{"aggregation not twice core", func(p *Params) { p.AggrCount = 6 }},
		{"edge not twice core", func(p *Params) { p.EdgeCount = 10; p.HostCount = 20 }},
		{"core count below minimum", func(p *Params) { p.CoreCount = 0 }},
		{"zero hosts per edge", func(p *Params) { p.HostsPerEdge = 0 }},
		{"negative start index", func(p *Params) { p.StartIndex = -1 }},
		{"missing name", func(p *Params) { p.Name = "" }},
		{"loss above 100", func(p *Params) { p.Policy = AttrPolicy{CoreAggr: {Loss: 150}} }},
		{"negative bandwidth", func(p *Params) { p.Policy = AttrPolicy{EdgeHost: {Bandwidth: -1}} }},
		{"unparseable delay", func(p *Params) { p.Policy = AttrPolicy{AggrEdge: {Delay: "soon"}} }},
		{"unknown tier pair", func(p *Params) { p.Policy = AttrPolicy{TierPair(7): {Bandwidth: 10}} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params := DefaultParams()
			tt.modify(&params)

			topo, err := Build(params)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrConfig), "want ErrConfig, got %v", err)
			assert.False(t, errors.Is(err, ErrInternal))
			assert.Nil(t, topo)
		})
	}
}

func TestBuild_ReportsEveryProblem(t *testing.T) {
	params := DefaultParams()
	params.AggrCount = 6
	params.HostCount = 15

	err := params.Validate()
	require.ErrorIs(t, err, ErrConfig)
	assert.Contains(t, err.Error(), "aggregation count 6")
	assert.Contains(t, err.Error(), "host count 15")
}

func TestBuild_Idempotent(t *testing.T) {
	first := mustBuild(t, LabParams())
	second := mustBuild(t, LabParams())
	assert.Equal(t, first.Transform(), second.Transform())
}

func TestBuild_LargeStartIndex(t *testing.T) {
	params := DefaultParams()
	params.StartIndex = 100000000000000000
	topo := mustBuild(t, params)

	for _, node := range topo.Nodes() {
		number, err := labelNumber(node.Label)
		require.NoError(t, err)
		assert.Equal(t, int(node.Tier), number/1000000000000000000, node.Label)
	}
	_, err := CreateNameDict(topo)
	assert.NoError(t, err)
}

func TestBuild_Concurrent(t *testing.T) {
	want := mustBuild(t, LabParams()).Transform()

	var wg sync.WaitGroup
	results := make([]TopoDesc, 16)
	errs := make([]error, len(results))
	for idx := range results {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			params := LabParams()
			if idx%2 == 1 {
				params.HostCount = 15
			}
			topo, err := Build(params)
			errs[idx] = err
			if err == nil {
				results[idx] = topo.Transform()
			}
		}(idx)
	}
	wg.Wait()

	for idx := range results {
		if idx%2 == 1 {
			assert.ErrorIs(t, errs[idx], ErrConfig)
			continue
		}
		require.NoError(t, errs[idx])
		assert.Equal(t, want, results[idx])
	}
}

func TestBuild_DoesNotShareState(t *testing.T) {
	params := LabParams()
	topo := mustBuild(t, params)

	params.Policy[CoreAggr] = LinkAttrs{Bandwidth: 1}
	assert.Equal(t, LinkAttrs{Bandwidth: 100, Loss: 2}, topo.Params().Policy[CoreAggr])

	got := topo.Params()
	got.Policy[AggrEdge] = LinkAttrs{Loss: 50}
	assert.Equal(t, LinkAttrs{Bandwidth: 100}, topo.Params().Policy[AggrEdge])

	hosts := topo.Hosts()
	hosts[0].Label = "h0"
	assert.Equal(t, "h4001", topo.Hosts()[0].Label)

	links := topo.Links()
	links[0].Upper = "s0"
	assert.Equal(t, "s1001", topo.Links()[0].Upper)
}

func TestVerify_DetectsBrokenTopology(t *testing.T) {
	good := mustBuild(t, DefaultParams())

	// move the first host to the second edge switch
	links := good.Links()
	links[32].Upper = "s3002"
	broken := newTopology(good.Params(), good.tiers, links)
	assert.ErrorIs(t, Verify(broken), ErrInternal)

	// drop a core-aggregation link
	broken = newTopology(good.Params(), good.tiers, good.Links()[1:])
	assert.ErrorIs(t, Verify(broken), ErrInternal)

	// duplicate a link
	broken = newTopology(good.Params(), good.tiers, append(good.Links(), good.Links()[0]))
	assert.ErrorIs(t, Verify(broken), ErrInternal)

	assert.NoError(t, Verify(good))
}

// genK draws even k from 4 to 16
func genK() gopter.Gen {
	return gen.IntRange(2, 8).Map(func(half int) int { return 2 * half })
}

func TestBuildProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 40
	properties := gopter.NewProperties(parameters)

	properties.Property("node and link counts follow k", prop.ForAll(
		func(k, hpe int) bool {
			topo, err := Build(ParamsForK(k, hpe))
			if err != nil {
				return false
			}
			nodes := k + 4*k + 2*k*hpe
			links := 2*k*(k/2) + 2*2*k + 2*k*hpe
			return topo.NumNodes() == nodes && topo.NumLinks() == links
		},
		genK(), gen.IntRange(1, 4),
	))

	properties.Property("every node has the degree its tier requires", prop.ForAll(
		func(k, hpe int) bool {
			topo, err := Build(ParamsForK(k, hpe))
			if err != nil {
				return false
			}
			for _, node := range topo.Core() {
				if topo.Degree(node.Label, AggrTier) != k {
					return false
				}
			}
			for _, node := range topo.Aggr() {
				deg := topo.Degree(node.Label, CoreTier)
				if deg != k/2 || deg < 2 || topo.Degree(node.Label, EdgeTier) != 2 {
					return false
				}
			}
			for _, node := range topo.Edge() {
				if topo.Degree(node.Label, AggrTier) != 2 || topo.Degree(node.Label, HostTier) != hpe {
					return false
				}
			}
			for _, node := range topo.Hosts() {
				if len(topo.LinksOf(node.Label)) != 1 || topo.Degree(node.Label, EdgeTier) != 1 {
					return false
				}
			}
			return true
		},
		genK(), gen.IntRange(1, 4),
	))

	properties.Property("aggregation parity partitions the core tier", prop.ForAll(
		func(k int) bool {
			topo, err := Build(ParamsForK(k, 1))
			if err != nil {
				return false
			}
			for _, aggr := range topo.Aggr() {
				for _, pos := range neighborPositions(topo, aggr.Label, CoreTier) {
					if (aggr.Pos%2 == 0) != (pos < k/2) {
						return false
					}
				}
			}
			for _, core := range topo.Core() {
				for _, pos := range neighborPositions(topo, core.Label, AggrTier) {
					if (pos%2 == 0) != (core.Pos < k/2) {
						return false
					}
				}
			}
			return true
		},
		genK(),
	))

	properties.Property("the two edge switches of a pod share their aggregation pair", prop.ForAll(
		func(k int) bool {
			topo, err := Build(ParamsForK(k, 1))
			if err != nil {
				return false
			}
			edge := topo.Edge()
			for pos := 0; pos < len(edge); pos += 2 {
				left := neighborPositions(topo, edge[pos].Label, AggrTier)
				right := neighborPositions(topo, edge[pos+1].Label, AggrTier)
				if !slices.Equal(left, right) || !slices.Equal(left, []int{pos, pos + 1}) {
					return false
				}
			}
			return true
		},
		genK(),
	))

	properties.Property("hosts are grouped contiguously on edge switches", prop.ForAll(
		func(k, hpe int) bool {
			topo, err := Build(ParamsForK(k, hpe))
			if err != nil {
				return false
			}
			for _, host := range topo.Hosts() {
				edge := neighborPositions(topo, host.Label, EdgeTier)
				if len(edge) != 1 || edge[0] != host.Pos/hpe {
					return false
				}
			}
			return true
		},
		genK(), gen.IntRange(1, 4),
	))

	properties.Property("attributes never change which links exist", prop.ForAll(
		func(k int, bw, loss float64) bool {
			plain, err := Build(ParamsForK(k, 2))
			if err != nil {
				return false
			}
			params := ParamsForK(k, 2)
			params.Policy = AttrPolicy{CoreAggr: {Bandwidth: bw, Loss: loss}, EdgeHost: {Bandwidth: bw}}
			shaped, err := Build(params)
			if err != nil {
				return false
			}

			plainLinks, shapedLinks := plain.Links(), shaped.Links()
			if len(plainLinks) != len(shapedLinks) {
				return false
			}
			for idx := range plainLinks {
				if plainLinks[idx].Key() != shapedLinks[idx].Key() || plainLinks[idx].Pair != shapedLinks[idx].Pair {
					return false
				}
				if shapedLinks[idx].Attrs != params.Policy.Attrs(shapedLinks[idx].Pair) {
					return false
				}
			}
			return true
		},
		genK(), gen.Float64Range(0, 10000), gen.Float64Range(0, 100),
	))

	properties.Property("building twice gives the same topology", prop.ForAll(
		func(k, hpe int) bool {
			first, err := Build(ParamsForK(k, hpe))
			if err != nil {
				return false
			}
			second, err := Build(ParamsForK(k, hpe))
			if err != nil {
				return false
			}
			return slices.Equal(first.Links(), second.Links()) && slices.Equal(first.Nodes(), second.Nodes())
		},
		genK(), gen.IntRange(1, 4),
	))

	properties.Property("host counts not divisible by hosts per edge are rejected", prop.ForAll(
		func(k, hpe, extra int) bool {
			params := ParamsForK(k, hpe)
			params.HostCount += extra % hpe
			if extra%hpe == 0 {
				params.HostCount++
			}
			_, err := Build(params)
			return errors.Is(err, ErrConfig)
		},
		genK(), gen.IntRange(2, 4), gen.IntRange(1, 100),
	))

	properties.TestingRun(t)
}
