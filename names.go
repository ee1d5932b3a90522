package fattree

import (
	"fmt"
	"sort"
)

// NameType is an entry in the dictionary that maps node id numbers to a (name,type) pair
type NameType struct {
	Name string `json:"name" yaml:"name"`
	Type string `json:"type" yaml:"type"`
}

// NameDict gives a consumer of a topology stable integer ids for its nodes, and
// the OpenFlow datapath id of every switch.  Ids number the nodes tier by tier
// in construction order, starting at 0.
type NameDict struct {
	TopoName string `json:"toponame" yaml:"toponame"`

	// text name and tier associated with each id
	NameByID map[int]NameType `json:"namebyid" yaml:"namebyid"`

	// datapath id of each switch, by label
	DPIDByName map[string]string `json:"dpids" yaml:"dpids"`
}

// CreateNameDict builds the dictionary for topo
func CreateNameDict(topo *Topology) (*NameDict, error) {
	nd := &NameDict{
		TopoName:   topo.Name(),
		NameByID:   make(map[int]NameType),
		DPIDByName: make(map[string]string),
	}

	for label, id := range nodeIDs(topo) {
		node, _ := topo.Node(label)
		if err := nd.AddName(int(id), label, node.Tier.String()); err != nil {
			return nil, err
		}
		if !node.Tier.IsSwitch() {
			continue
		}
		dpid, err := DPID(label)
		if err != nil {
			return nil, err
		}
		nd.DPIDByName[label] = dpid
	}
	return nd, nil
}

// AddName adds an element to the id -> (name,type) dictionary
func (nd *NameDict) AddName(id int, name string, objDesc string) error {
	if _, present := nd.NameByID[id]; present {
		return fmt.Errorf("%w: duplicated id %d in name dictionary", ErrInternal, id)
	}
	nd.NameByID[id] = NameType{Name: name, Type: objDesc}
	return nil
}

// IDByName returns the id of the named node
func (nd *NameDict) IDByName(name string) (int, bool) {
	for id, nt := range nd.NameByID {
		if nt.Name == name {
			return id, true
		}
	}
	return 0, false
}

// IDs returns the ids in the dictionary in increasing order
func (nd *NameDict) IDs() []int {
	ids := make([]int, 0, len(nd.NameByID))
	for id := range nd.NameByID {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// WriteToFile stores the NameDict to the file whose name is given.
// Serialization to json or to yaml is selected based on the extension of this name.
func (nd *NameDict) WriteToFile(filename string) error {
	return writeDesc(filename, nd)
}

// ReadNameDict deserializes a NameDict from dict, or from the named file when dict is empty
func ReadNameDict(filename string, useYAML bool, dict []byte) (*NameDict, error) {
	example := NameDict{}
	if err := readDesc(filename, useYAML, dict, &example); err != nil {
		return nil, err
	}
	return &example, nil
}

// DPID returns the datapath id a controller sees for the labeled switch: the
// numeric part of the label in hex, zero-padded to 16 digits, so s1001 has
// datapath id 00000000000003e9
func DPID(label string) (string, error) {
	if len(label) == 0 || label[0] != 's' {
		return "", fmt.Errorf("%w: %q does not label a switch", ErrConfig, label)
	}
	number, err := labelNumber(label)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%016x", number), nil
}
