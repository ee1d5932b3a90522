package fattree

// file param.go holds the link attribute policy: which tier-to-tier links carry
// which bandwidth, loss, and delay.  The policy is a table indexed by tier pair,
// so attribute assignment never touches the connectivity rules.  A serializable
// form (LinkPolicyCfg) lists the table as individual parameters.

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"golang.org/x/exp/slices"
)

// TierPair names the two tiers a link joins, upper tier first
type TierPair int

const (
	CoreAggr TierPair = iota + 1
	AggrEdge
	EdgeHost
)

// TierPairs lists the tier pairs in link emission order
var TierPairs = []TierPair{CoreAggr, AggrEdge, EdgeHost}

var tierPairToStr = map[TierPair]string{
	CoreAggr: "core-aggr",
	AggrEdge: "aggr-edge",
	EdgeHost: "edge-host",
}

func (tp TierPair) String() string {
	name, present := tierPairToStr[tp]
	if !present {
		return fmt.Sprintf("TierPair(%d)", int(tp))
	}
	return name
}

// TierPairFromStr is the inverse of String
func TierPairFromStr(name string) (TierPair, error) {
	for tp, tpName := range tierPairToStr {
		if tpName == strings.ToLower(name) {
			return tp, nil
		}
	}
	return 0, fmt.Errorf("%w: unrecognized tier pair %q", ErrConfig, name)
}

// Tiers returns the upper and lower tier joined by links of the pair
func (tp TierPair) Tiers() (Tier, Tier) {
	switch tp {
	case CoreAggr:
		return CoreTier, AggrTier
	case AggrEdge:
		return AggrTier, EdgeTier
	case EdgeHost:
		return EdgeTier, HostTier
	}
	return 0, 0
}

// pairOf returns the tier pair for a link between an upper and a lower tier node.
// Tiers that are not adjacent have no pair.
func pairOf(upper, lower Tier) (TierPair, error) {
	for _, tp := range TierPairs {
		u, l := tp.Tiers()
		if u == upper && l == lower {
			return tp, nil
		}
	}
	return 0, fmt.Errorf("%w: no fat-tree link joins tier %s to tier %s", ErrInternal, upper, lower)
}

// LinkAttrs are the physical characteristics attached to a link.  Bandwidth is
// in Mbit/s with 0 meaning unlimited, Loss is a percentage, Delay is optional and
// uses Go duration syntax, e.g. "2ms".
type LinkAttrs struct {
	Bandwidth float64 `json:"bw" yaml:"bw" validate:"gte=0"`
	Loss      float64 `json:"loss" yaml:"loss" validate:"gte=0,lte=100"`
	Delay     string  `json:"delay,omitempty" yaml:"delay,omitempty"`
}

// IsZero reports whether no attribute is set
func (la LinkAttrs) IsZero() bool {
	return la == LinkAttrs{}
}

// Validate checks the ranges of the attribute values
func (la LinkAttrs) Validate() error {
	if err := validate.Struct(la); err != nil {
		return formatValidationError(err)
	}
	if len(la.Delay) > 0 {
		delay, err := time.ParseDuration(la.Delay)
		if err != nil {
			return fmt.Errorf("delay %q: %v", la.Delay, err)
		}
		if delay < 0 {
			return fmt.Errorf("delay %q is negative", la.Delay)
		}
	}
	return nil
}

// AttrPolicy maps each tier pair to the attributes its links receive.
// Pairs absent from the table get zero attributes.
type AttrPolicy map[TierPair]LinkAttrs

// Attrs returns the attributes for links of the tier pair
func (ap AttrPolicy) Attrs(tp TierPair) LinkAttrs {
	return ap[tp]
}

// Validate checks every entry of the policy, reporting all problems at once
func (ap AttrPolicy) Validate() error {
	errs := []error{}
	for _, tp := range TierPairs {
		attrs, present := ap[tp]
		if !present {
			continue
		}
		if err := attrs.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %v", tp, err))
		}
	}
	for tp := range ap {
		if !slices.Contains(TierPairs, tp) {
			errs = append(errs, fmt.Errorf("unknown tier pair %d in attribute policy", int(tp)))
		}
	}
	return ReportErrs(errs)
}

// clone returns an independent copy, so a Topology never shares its policy with the caller
func (ap AttrPolicy) clone() AttrPolicy {
	if ap == nil {
		return nil
	}
	cp := make(AttrPolicy, len(ap))
	for tp, attrs := range ap {
		cp[tp] = attrs
	}
	return cp
}

// LabPolicy is the attributed variant of the classic 4-ary tree: core to
// aggregation links limited to 100 Mbit/s with 2% loss, aggregation to edge
// limited to 100 Mbit/s, edge to host links left unshaped
func LabPolicy() AttrPolicy {
	return AttrPolicy{
		CoreAggr: {Bandwidth: 100, Loss: 2},
		AggrEdge: {Bandwidth: 100},
	}
}

// LinkParams lists the parameter names a LinkParameter may set
var LinkParams = []string{"bandwidth", "loss", "delay"}

// LinkParameter sets one attribute for the links of one tier pair
type LinkParameter struct {
	// tier pair, e.g. "core-aggr"
	Pair string `json:"pair" yaml:"pair"`

	// one of LinkParams
	Param string `json:"param" yaml:"param"`

	// string-encoded value
	Value string `json:"value" yaml:"value"`
}

// LinkPolicyCfg is the serializable form of an AttrPolicy.  Parameters are
// applied in order, so a later parameter overrides an earlier one for the same
// tier pair and attribute.
type LinkPolicyCfg struct {
	Name       string          `json:"policyname" yaml:"policyname"`
	Parameters []LinkParameter `json:"parameters" yaml:"parameters"`
}

// CreateLinkPolicyCfg is a constructor
func CreateLinkPolicyCfg(name string) *LinkPolicyCfg {
	return &LinkPolicyCfg{Name: name, Parameters: make([]LinkParameter, 0)}
}

// ValidateParameter returns an error if the pair and param names are not recognized
func ValidateParameter(pair, param string) error {
	if _, err := TierPairFromStr(pair); err != nil {
		return err
	}
	if !slices.Contains(LinkParams, param) {
		return fmt.Errorf("%w: link parameter %q is not one of %s", ErrConfig, param, strings.Join(LinkParams, ","))
	}
	return nil
}

// AddParameter validates the names and appends a parameter to the configuration
func (lpc *LinkPolicyCfg) AddParameter(tp TierPair, param, value string) error {
	if err := ValidateParameter(tp.String(), param); err != nil {
		return err
	}
	lpc.Parameters = append(lpc.Parameters, LinkParameter{Pair: tp.String(), Param: param, Value: value})
	return nil
}

// BuildPolicy decodes the parameter list into an AttrPolicy and validates it
func (lpc *LinkPolicyCfg) BuildPolicy() (AttrPolicy, error) {
	policy := make(AttrPolicy)
	errs := []error{}

	for _, lp := range lpc.Parameters {
		if err := ValidateParameter(lp.Pair, lp.Param); err != nil {
			errs = append(errs, err)
			continue
		}
		tp, _ := TierPairFromStr(lp.Pair)
		attrs := policy[tp]

		switch lp.Param {
		case "bandwidth", "loss":
			value, err := strconv.ParseFloat(lp.Value, 64)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s %s: value %q is not a number", lp.Pair, lp.Param, lp.Value))
				continue
			}
			if lp.Param == "bandwidth" {
				attrs.Bandwidth = value
			} else {
				attrs.Loss = value
			}
		case "delay":
			attrs.Delay = lp.Value
		}
		policy[tp] = attrs
	}

	if len(errs) == 0 {
		if err := policy.Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("%w: link policy %s: %v", ErrConfig, lpc.Name, ReportErrs(errs))
	}
	return policy, nil
}

// PolicyCfg converts an AttrPolicy into its serializable form.  Only attributes
// that are set are listed, in tier pair order, so the output is reproducible.
func PolicyCfg(name string, ap AttrPolicy) *LinkPolicyCfg {
	lpc := CreateLinkPolicyCfg(name)

	pairs := make([]TierPair, 0, len(ap))
	for tp := range ap {
		pairs = append(pairs, tp)
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i] < pairs[j] })

	for _, tp := range pairs {
		attrs := ap[tp]
		if attrs.Bandwidth != 0 {
			lpc.Parameters = append(lpc.Parameters,
				LinkParameter{Pair: tp.String(), Param: "bandwidth", Value: strconv.FormatFloat(attrs.Bandwidth, 'f', -1, 64)})
		}
		if attrs.Loss != 0 {
			lpc.Parameters = append(lpc.Parameters,
				LinkParameter{Pair: tp.String(), Param: "loss", Value: strconv.FormatFloat(attrs.Loss, 'f', -1, 64)})
		}
		if len(attrs.Delay) > 0 {
			lpc.Parameters = append(lpc.Parameters, LinkParameter{Pair: tp.String(), Param: "delay", Value: attrs.Delay})
		}
	}
	return lpc
}

// WriteToFile stores the LinkPolicyCfg to the file whose name is given.
// Serialization to json or to yaml is selected based on the extension of this name.
func (lpc *LinkPolicyCfg) WriteToFile(filename string) error {
	return writeDesc(filename, lpc)
}

// ReadLinkPolicyCfg deserializes a byte slice holding a LinkPolicyCfg.  If dict is
// empty the file whose name is given is read to acquire the bytes.
func ReadLinkPolicyCfg(filename string, useYAML bool, dict []byte) (*LinkPolicyCfg, error) {
	example := LinkPolicyCfg{}
	if err := readDesc(filename, useYAML, dict, &example); err != nil {
		return nil, err
	}
	return &example, nil
}
