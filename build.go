package fattree

// file build.go holds the structural parameters of a fat tree and the
// assembler that turns them into a Topology

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/op/go-logging"
)

var log = logging.MustGetLogger("fattree")

var (
	// ErrConfig marks structural parameters that cannot describe a fat tree
	ErrConfig = errors.New("fat-tree configuration error")

	// ErrInternal marks a connectivity rule producing something it never should
	ErrInternal = errors.New("fat-tree internal consistency error")
)

// validate is the validator instance shared by the struct-tag checks
var validate = validator.New()

// Params are the structural parameters of a fat tree.  With k core switches,
// AggrCount and EdgeCount are 2k and HostCount is EdgeCount*HostsPerEdge.  k is
// even and at least 4, so each core half has at least 2 members.
type Params struct {
	Name         string `validate:"required"`
	CoreCount    int    `validate:"min=4"`
	AggrCount    int    `validate:"min=8"`
	EdgeCount    int    `validate:"min=8"`
	HostCount    int    `validate:"min=1"`
	HostsPerEdge int    `validate:"min=1"`

	// first index of every tier, 1 gives labels s1001, s2001, s3001, h4001
	StartIndex int `validate:"min=0"`

	Policy AttrPolicy
}

// ParamsForK returns the parameters of a k-ary tree in this family: k core
// switches, 2k aggregation and edge switches, hostsPerEdge hosts on each edge switch
func ParamsForK(k, hostsPerEdge int) Params {
	return Params{
		Name:         fmt.Sprintf("fatTree-k%d", k),
		CoreCount:    k,
		AggrCount:    2 * k,
		EdgeCount:    2 * k,
		HostCount:    2 * k * hostsPerEdge,
		HostsPerEdge: hostsPerEdge,
		StartIndex:   1,
	}
}

// DefaultParams is the classic instance: 4 core, 8 aggregation, 8 edge switches
// and 16 hosts, with no link attributes
func DefaultParams() Params {
	params := ParamsForK(4, 2)
	params.Name = "fatTree"
	return params
}

// LabParams is DefaultParams with LabPolicy link attributes
func LabParams() Params {
	params := DefaultParams()
	params.Name = "fatTree-lab"
	params.Policy = LabPolicy()
	return params
}

// Validate checks the parameters against the structural ratios of the tree.
// Every problem found is reported, wrapped in ErrConfig.
func (p *Params) Validate() error {
	if err := validate.Struct(p); err != nil {
		return fmt.Errorf("%w: %v", ErrConfig, formatValidationError(err))
	}

	errs := []error{}
	if _, err := exactDiv(p.CoreCount, 2); err != nil {
		errs = append(errs, fmt.Errorf("core count %d cannot be split into two halves", p.CoreCount))
	}
	if p.AggrCount != 2*p.CoreCount {
		errs = append(errs, fmt.Errorf("aggregation count %d is not twice the core count %d", p.AggrCount, p.CoreCount))
	}
	if p.EdgeCount != 2*p.CoreCount {
		errs = append(errs, fmt.Errorf("edge count %d is not twice the core count %d", p.EdgeCount, p.CoreCount))
	}
	if _, err := exactDiv(p.EdgeCount, 2); err != nil {
		errs = append(errs, fmt.Errorf("edge count %d cannot be split into pods of 2", p.EdgeCount))
	}

	perEdge, err := exactDiv(p.HostCount, p.HostsPerEdge)
	if err != nil {
		errs = append(errs, fmt.Errorf("host count %d is not divisible by hosts per edge %d", p.HostCount, p.HostsPerEdge))
	} else if perEdge != p.EdgeCount {
		errs = append(errs, fmt.Errorf("host count %d fills %d edge switches at %d per switch, topology has %d",
			p.HostCount, perEdge, p.HostsPerEdge, p.EdgeCount))
	}

	counts := map[Tier]int{CoreTier: p.CoreCount, AggrTier: p.AggrCount, EdgeTier: p.EdgeCount, HostTier: p.HostCount}
	for _, tier := range Tiers {
		if _, err := labelRange(tier, counts[tier], p.StartIndex); err != nil {
			errs = append(errs, err)
		}
	}

	if err := p.Policy.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("link attributes: %v", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %s: %v", ErrConfig, p.Name, ReportErrs(errs))
	}
	return nil
}

// formatValidationError turns validator field errors into a single readable error
func formatValidationError(err error) error {
	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return err
	}

	errs := make([]error, 0, len(validationErrs))
	for _, fe := range validationErrs {
		switch fe.Tag() {
		case "required":
			errs = append(errs, fmt.Errorf("%s is required", fe.Field()))
		case "min", "gte":
			errs = append(errs, fmt.Errorf("%s must be at least %s, got %v", fe.Field(), fe.Param(), fe.Value()))
		case "max", "lte":
			errs = append(errs, fmt.Errorf("%s must not exceed %s, got %v", fe.Field(), fe.Param(), fe.Value()))
		default:
			errs = append(errs, fmt.Errorf("%s failed %s validation", fe.Field(), fe.Tag()))
		}
	}
	return ReportErrs(errs)
}

// topoBuilder accumulates nodes and links during a single Build call
type topoBuilder struct {
	params Params
	tiers  map[Tier][]Node
	links  []Link

	// connected records every pair of labels already joined by a link
	connected map[[2]string]bool
}

func newTopoBuilder(params Params) *topoBuilder {
	return &topoBuilder{
		params:    params,
		tiers:     make(map[Tier][]Node),
		links:     make([]Link, 0),
		connected: make(map[[2]string]bool),
	}
}

// Build constructs the fat tree described by params: core, aggregation, edge and
// host nodes in that order, then core-aggregation, aggregation-edge and
// edge-host links.  Any violated invariant aborts construction and no Topology
// is returned.
func Build(params Params) (*Topology, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	params.Policy = params.Policy.clone()

	tb := newTopoBuilder(params)

	counts := map[Tier]int{
		CoreTier: params.CoreCount,
		AggrTier: params.AggrCount,
		EdgeTier: params.EdgeCount,
		HostTier: params.HostCount,
	}
	for _, tier := range Tiers {
		nodes, err := GenerateTier(tier, counts[tier], params.StartIndex)
		if err != nil {
			return nil, err
		}
		tb.tiers[tier] = nodes
	}
	log.Debugf("%s: generated %d core, %d aggregation, %d edge switches and %d hosts",
		params.Name, params.CoreCount, params.AggrCount, params.EdgeCount, params.HostCount)

	if err := tb.connCoreAggr(); err != nil {
		return nil, err
	}
	if err := tb.connAggrEdge(); err != nil {
		return nil, err
	}
	if err := tb.connEdgeHost(); err != nil {
		return nil, err
	}

	topo := newTopology(params, tb.tiers, tb.links)
	if err := Verify(topo); err != nil {
		return nil, err
	}
	log.Debugf("%s: built %d nodes and %d links", params.Name, topo.NumNodes(), topo.NumLinks())
	return topo, nil
}

// connCoreAggr links each aggregation switch to the half of the core tier its parity selects
func (tb *topoBuilder) connCoreAggr() error {
	core := tb.tiers[CoreTier]
	for _, aggr := range tb.tiers[AggrTier] {
		positions, err := coreHalf(aggr.Pos, len(core))
		if err != nil {
			return err
		}
		for _, pos := range positions {
			if err := tb.addLink(core[pos], aggr); err != nil {
				return err
			}
		}
	}
	return nil
}

// connAggrEdge links each edge switch to the aggregation pair of its pod
func (tb *topoBuilder) connAggrEdge() error {
	aggr := tb.tiers[AggrTier]
	for _, edge := range tb.tiers[EdgeTier] {
		pair, err := aggrPair(edge.Pos, len(aggr))
		if err != nil {
			return err
		}
		for _, pos := range pair {
			if err := tb.addLink(aggr[pos], edge); err != nil {
				return err
			}
		}
	}
	return nil
}

// connEdgeHost links each host to the edge switch of its contiguous group
func (tb *topoBuilder) connEdgeHost() error {
	edge := tb.tiers[EdgeTier]
	for _, host := range tb.tiers[HostTier] {
		pos, err := hostEdge(host.Pos, tb.params.HostsPerEdge, len(edge))
		if err != nil {
			return err
		}
		if err := tb.addLink(edge[pos], host); err != nil {
			return err
		}
	}
	return nil
}

// addLink records a link between an upper and a lower tier node, tagging it with
// the policy attributes of the tier pair.  A second link between the same nodes
// is a defect of the rules.
func (tb *topoBuilder) addLink(upper, lower Node) error {
	tp, err := pairOf(upper.Tier, lower.Tier)
	if err != nil {
		return err
	}
	key := linkKey(upper.Label, lower.Label)
	if tb.connected[key] {
		return fmt.Errorf("%w: duplicate link %s-%s", ErrInternal, upper.Label, lower.Label)
	}
	tb.connected[key] = true

	tb.links = append(tb.links, Link{
		Upper: upper.Label,
		Lower: lower.Label,
		Pair:  tp,
		Attrs: tb.params.Policy.Attrs(tp),
	})
	return nil
}
