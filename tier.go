package fattree

// file tier.go holds the tier enumeration, the Node type, and the generator
// of the labeled node sequences that populate each tier of a fat tree

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Tier identifies the connectivity role of a node in the fat tree
type Tier int

const (
	CoreTier Tier = iota + 1
	AggrTier
	EdgeTier
	HostTier
)

// Tiers lists the tiers in construction order
var Tiers = []Tier{CoreTier, AggrTier, EdgeTier, HostTier}

var tierToStr = map[Tier]string{
	CoreTier: "Core",
	AggrTier: "Aggr",
	EdgeTier: "Edge",
	HostTier: "Host",
}

// String returns the name of the tier, e.g. "Core"
func (tier Tier) String() string {
	name, present := tierToStr[tier]
	if !present {
		return fmt.Sprintf("Tier(%d)", int(tier))
	}
	return name
}

// TierFromStr is the inverse of String.  The comparison ignores case.
func TierFromStr(name string) (Tier, error) {
	for tier, tierName := range tierToStr {
		if strings.EqualFold(tierName, name) {
			return tier, nil
		}
	}
	return 0, fmt.Errorf("%w: unrecognized tier %q", ErrConfig, name)
}

// IsSwitch reports whether nodes of the tier are switches (as opposed to hosts)
func (tier Tier) IsSwitch() bool {
	return tier == CoreTier || tier == AggrTier || tier == EdgeTier
}

// valid reports whether the tier is one of the four known tiers
func (tier Tier) valid() bool {
	_, present := tierToStr[tier]
	return present
}

// Node is one switch or host of the topology.  Index is the tier-local index
// the label is derived from, Pos is the 0-based position of the node in its tier.
type Node struct {
	Tier  Tier
	Index int
	Pos   int
	Label string
}

// minLabelStride is the width of the numeric range reserved for a tier.  It
// grows by powers of ten when a tier holds more indices than fit.
const minLabelStride = 1000

// labelStride returns the smallest power of ten, no smaller than minLabelStride,
// that is strictly larger than maxIndex.  Prefixing the index with the tier
// digit at this stride keeps the leading digit of every label equal to its tier.
// A stride that would not fit in an int is refused.
func labelStride(maxIndex int) (int, error) {
	stride := minLabelStride
	for maxIndex >= stride {
		if stride > math.MaxInt/10 {
			return 0, fmt.Errorf("%w: index %d is too large to label", ErrConfig, maxIndex)
		}
		stride *= 10
	}
	return stride, nil
}

// labelRange checks that count nodes of the tier starting at startIndex get
// labels representable as an int, and returns the stride they use
func labelRange(tier Tier, count, startIndex int) (int, error) {
	if startIndex > math.MaxInt-(count-1) {
		return 0, fmt.Errorf("%w: %s tier of %d nodes starting at index %d overflows", ErrConfig, tier, count, startIndex)
	}
	maxIndex := startIndex + count - 1
	stride, err := labelStride(maxIndex)
	if err != nil {
		return 0, err
	}
	if stride > (math.MaxInt-maxIndex)/int(tier) {
		return 0, fmt.Errorf("%w: %s tier labels for index %d would overflow", ErrConfig, tier, maxIndex)
	}
	return stride, nil
}

func labelPrefix(tier Tier) string {
	if tier == HostTier {
		return "h"
	}
	return "s"
}

// GenerateTier creates count nodes of the given tier with strictly increasing
// indices beginning at startIndex.  Switches are labeled 's', hosts 'h', followed
// by the tier digit scaled to the tier's stride plus the index, so with startIndex 1
// the core tier of a small tree is s1001, s1002, ...
func GenerateTier(tier Tier, count, startIndex int) ([]Node, error) {
	if !tier.valid() {
		return nil, fmt.Errorf("%w: unknown tier %d", ErrConfig, int(tier))
	}
	if count <= 0 {
		return nil, fmt.Errorf("%w: %s tier needs a positive node count, got %d", ErrConfig, tier, count)
	}
	if startIndex < 0 {
		return nil, fmt.Errorf("%w: %s tier start index %d is negative", ErrConfig, tier, startIndex)
	}

	stride, err := labelRange(tier, count, startIndex)
	if err != nil {
		return nil, err
	}
	prefix := labelPrefix(tier)

	nodes := make([]Node, count)
	for pos := 0; pos < count; pos++ {
		index := startIndex + pos
		label := prefix + strconv.Itoa(int(tier)*stride+index)
		nodes[pos] = Node{Tier: tier, Index: index, Pos: pos, Label: label}
	}
	return nodes, nil
}

// labelNumber returns the numeric part of a node label
func labelNumber(label string) (int, error) {
	if len(label) < 2 || (label[0] != 's' && label[0] != 'h') {
		return 0, fmt.Errorf("%w: %q is not a node label", ErrConfig, label)
	}
	number, err := strconv.Atoi(label[1:])
	if err != nil || number <= 0 {
		return 0, fmt.Errorf("%w: %q is not a node label", ErrConfig, label)
	}
	return number, nil
}
