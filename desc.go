package fattree

// file desc.go holds the serializable description of a fat tree and the
// functions that write and read it.

// A Topology holds typed values and lookup tables; to serialize it we transform
// it into a TopoDesc, which holds only strings and numbers and is completely
// described without pointers.  Node labels and link attributes are the only
// externally visible format, and the same parameters always produce the same
// bytes, in yaml or in json.

import (
	"encoding/json"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// NodeDesc is the serializable description of a node
type NodeDesc struct {
	Label string `json:"label" yaml:"label"`
	Tier  string `json:"tier" yaml:"tier"`
	Index int    `json:"index" yaml:"index"`
}

// LinkDesc is the serializable description of a link
type LinkDesc struct {
	Upper     string `json:"upper" yaml:"upper"`
	Lower     string `json:"lower" yaml:"lower"`
	Pair      string `json:"pair" yaml:"pair"`
	LinkAttrs `yaml:",inline"`
}

// ParamsDesc is the serializable form of Params, with the attribute policy
// listed as a LinkPolicyCfg
type ParamsDesc struct {
	Name         string        `json:"name" yaml:"name"`
	Core         int           `json:"core" yaml:"core"`
	Aggr         int           `json:"aggr" yaml:"aggr"`
	Edge         int           `json:"edge" yaml:"edge"`
	Hosts        int           `json:"hosts" yaml:"hosts"`
	HostsPerEdge int           `json:"hostsperedge" yaml:"hostsperedge"`
	StartIndex   int           `json:"startindex" yaml:"startindex"`
	Policy       LinkPolicyCfg `json:"policy" yaml:"policy"`
}

// Transform returns the serializable form of the parameters
func (p *Params) Transform() ParamsDesc {
	return ParamsDesc{
		Name:         p.Name,
		Core:         p.CoreCount,
		Aggr:         p.AggrCount,
		Edge:         p.EdgeCount,
		Hosts:        p.HostCount,
		HostsPerEdge: p.HostsPerEdge,
		StartIndex:   p.StartIndex,
		Policy:       *PolicyCfg(p.Name+"-links", p.Policy),
	}
}

// Params decodes the description back into Params, building the attribute policy
func (pd *ParamsDesc) Params() (Params, error) {
	params := Params{
		Name:         pd.Name,
		CoreCount:    pd.Core,
		AggrCount:    pd.Aggr,
		EdgeCount:    pd.Edge,
		HostCount:    pd.Hosts,
		HostsPerEdge: pd.HostsPerEdge,
		StartIndex:   pd.StartIndex,
	}
	if len(pd.Policy.Parameters) > 0 {
		policy, err := pd.Policy.BuildPolicy()
		if err != nil {
			return Params{}, err
		}
		params.Policy = policy
	}
	return params, nil
}

// TopoDesc is the serializable description of a Topology
type TopoDesc struct {
	Name   string     `json:"name" yaml:"name"`
	Params ParamsDesc `json:"params" yaml:"params"`
	Core   []NodeDesc `json:"core" yaml:"core"`
	Aggr   []NodeDesc `json:"aggr" yaml:"aggr"`
	Edge   []NodeDesc `json:"edge" yaml:"edge"`
	Hosts  []NodeDesc `json:"hosts" yaml:"hosts"`
	Links  []LinkDesc `json:"links" yaml:"links"`
}

func transformNodes(nodes []Node) []NodeDesc {
	nds := make([]NodeDesc, len(nodes))
	for idx, node := range nodes {
		nds[idx] = NodeDesc{Label: node.Label, Tier: node.Tier.String(), Index: node.Index}
	}
	return nds
}

// Transform converts a Topology into a TopoDesc, for serialization
func (t *Topology) Transform() TopoDesc {
	td := TopoDesc{
		Name:   t.params.Name,
		Params: t.params.Transform(),
		Core:   transformNodes(t.tiers[CoreTier]),
		Aggr:   transformNodes(t.tiers[AggrTier]),
		Edge:   transformNodes(t.tiers[EdgeTier]),
		Hosts:  transformNodes(t.tiers[HostTier]),
		Links:  make([]LinkDesc, len(t.links)),
	}
	for idx, link := range t.links {
		td.Links[idx] = LinkDesc{Upper: link.Upper, Lower: link.Lower, Pair: link.Pair.String(), LinkAttrs: link.Attrs}
	}
	return td
}

// nodeSet and linkSet give order-independent views of a description
func (td *TopoDesc) nodeSet() map[NodeDesc]bool {
	set := make(map[NodeDesc]bool)
	for _, nds := range [][]NodeDesc{td.Core, td.Aggr, td.Edge, td.Hosts} {
		for _, nd := range nds {
			set[nd] = true
		}
	}
	return set
}

func (td *TopoDesc) linkSet() map[LinkDesc]bool {
	set := make(map[LinkDesc]bool)
	for _, ld := range td.Links {
		key := linkKey(ld.Upper, ld.Lower)
		ld.Upper, ld.Lower = key[0], key[1]
		set[ld] = true
	}
	return set
}

func sameSet[K comparable](a, b map[K]bool) bool {
	if len(a) != len(b) {
		return false
	}
	for key := range a {
		if !b[key] {
			return false
		}
	}
	return true
}

// Topology rebuilds the Topology from the parameters carried in the description
// and checks that the nodes and links listed match the rebuilt ones, in any order
func (td *TopoDesc) Topology() (*Topology, error) {
	params, err := td.Params.Params()
	if err != nil {
		return nil, err
	}
	topo, err := Build(params)
	if err != nil {
		return nil, err
	}

	built := topo.Transform()
	if td.Name != built.Name {
		return nil, fmt.Errorf("%w: description named %s carries parameters for %s", ErrConfig, td.Name, built.Name)
	}
	if !sameSet(td.nodeSet(), built.nodeSet()) {
		return nil, fmt.Errorf("%w: nodes of %s do not match its parameters", ErrConfig, td.Name)
	}
	if !sameSet(td.linkSet(), built.linkSet()) {
		return nil, fmt.Errorf("%w: links of %s do not match its parameters", ErrConfig, td.Name)
	}
	return topo, nil
}

// WriteToFile serializes the TopoDesc and writes to the file whose name is given as an input argument.
// Extension of the file name selects whether serialization is to json or to yaml format.
func (td *TopoDesc) WriteToFile(filename string) error {
	return writeDesc(filename, td)
}

// ReadTopoDesc deserializes a slice of bytes into a TopoDesc.  If the input arg of bytes
// is empty, the file whose name is given as an argument is read.
func ReadTopoDesc(topoFileName string, useYAML bool, dict []byte) (*TopoDesc, error) {
	example := TopoDesc{}
	if err := readDesc(topoFileName, useYAML, dict, &example); err != nil {
		return nil, err
	}
	return &example, nil
}

// ReadTopo reads a TopoDesc from the named file and returns the Topology it describes
func ReadTopo(topoFileName string) (*Topology, error) {
	td, err := ReadTopoDesc(topoFileName, isYAML(topoFileName), nil)
	if err != nil {
		return nil, err
	}
	return td.Topology()
}

// A TopoDescDict holds instances of TopoDesc structures, in a map whose key is
// a name for the topology.  Used to store pre-built instances of fat trees
type TopoDescDict struct {
	DictName string              `json:"dictname" yaml:"dictname"`
	Descs    map[string]TopoDesc `json:"descs" yaml:"descs"`
}

// CreateTopoDescDict is a constructor. Saves the dictionary name, initializes the TopoDesc map.
func CreateTopoDescDict(name string) *TopoDescDict {
	return &TopoDescDict{DictName: name, Descs: make(map[string]TopoDesc)}
}

// AddTopoDesc includes a TopoDesc into the dictionary, returning an error
// if one with the same name is present and overwrite is false
func (tdd *TopoDescDict) AddTopoDesc(td *TopoDesc, overwrite bool) error {
	if !overwrite {
		if _, present := tdd.Descs[td.Name]; present {
			return fmt.Errorf("attempt to overwrite TopoDesc %s in TopoDescDict %s", td.Name, tdd.DictName)
		}
	}
	tdd.Descs[td.Name] = *td
	return nil
}

// RecoverTopoDesc returns a copy (if one exists) of the TopoDesc with name equal to the input argument name.
// Returns a boolean indicating whether the entry was actually found
func (tdd *TopoDescDict) RecoverTopoDesc(name string) (*TopoDesc, bool) {
	td, present := tdd.Descs[name]
	if present {
		return &td, true
	}
	return nil, false
}

// Names returns the names of the stored descriptions in sorted order
func (tdd *TopoDescDict) Names() []string {
	names := make([]string, 0, len(tdd.Descs))
	for name := range tdd.Descs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// WriteToFile serializes the TopoDescDict and writes to the file whose name is given as an input argument.
// Extension of the file name selects whether serialization is to json or to yaml format.
func (tdd *TopoDescDict) WriteToFile(filename string) error {
	return writeDesc(filename, tdd)
}

// ReadTopoDescDict deserializes a slice of bytes into a TopoDescDict.  If the input arg of bytes
// is empty, the file whose name is given as an argument is read.
func ReadTopoDescDict(dictFileName string, useYAML bool, dict []byte) (*TopoDescDict, error) {
	example := TopoDescDict{}
	if err := readDesc(dictFileName, useYAML, dict, &example); err != nil {
		return nil, err
	}
	return &example, nil
}

// isYAML reports whether the file name extension selects yaml
func isYAML(filename string) bool {
	ext := strings.ToLower(path.Ext(filename))
	return ext == ".yaml" || ext == ".yml"
}

// writeDesc serializes v to yaml or json, as chosen by the extension of filename,
// and writes the bytes to the file
func writeDesc(filename string, v any) error {
	var bytes []byte
	var merr error

	switch strings.ToLower(path.Ext(filename)) {
	case ".yaml", ".yml":
		bytes, merr = yaml.Marshal(v)
	case ".json":
		bytes, merr = json.MarshalIndent(v, "", "\t")
	default:
		return fmt.Errorf("cannot choose a serialization for %s, use a .yaml, .yml or .json extension", filename)
	}
	if merr != nil {
		return merr
	}

	f, cerr := os.Create(filename)
	if cerr != nil {
		return cerr
	}
	_, werr := f.Write(bytes)
	if werr != nil {
		f.Close()
		return werr
	}
	return f.Close()
}

// readDesc deserializes dict into v, reading the bytes from filename when dict is empty
func readDesc(filename string, useYAML bool, dict []byte, v any) error {
	var err error

	// read from the file only if the byte slice is empty
	if len(dict) == 0 {
		fileInfo, serr := os.Stat(filename)
		if serr != nil || fileInfo.IsDir() {
			return fmt.Errorf("%s does not exist or cannot be read", filename)
		}
		dict, err = os.ReadFile(filename)
		if err != nil {
			return err
		}
	}

	if useYAML {
		return yaml.Unmarshal(dict, v)
	}
	return json.Unmarshal(dict, v)
}

// ReportErrs gathers the non-nil errors of a list into one error whose message
// is their comma-separated messages.  Every constituent stays reachable through
// errors.Is and errors.As.
func ReportErrs(errs []error) error {
	causes := make([]any, 0, len(errs))
	for _, err := range errs {
		if err != nil {
			causes = append(causes, err)
		}
	}
	if len(causes) == 0 {
		return nil
	}

	verbs := strings.TrimSuffix(strings.Repeat("%w,", len(causes)), ",")
	return fmt.Errorf(verbs, causes...)
}

// CheckDirectories probes the file system for the existence
// of every directory listed in the list of files.  Returns a boolean
// indicating whether all dirs are valid, and returns an aggregated error
// if any checks failed.
func CheckDirectories(dirs []string) (bool, error) {
	failures := []error{}

	for _, dir := range dirs {
		if len(dir) == 0 {
			continue
		}
		fileInfo, err := os.Stat(dir)
		if err != nil {
			failures = append(failures, fmt.Errorf("%s not reachable", dir))
			continue
		}
		if !fileInfo.IsDir() {
			failures = append(failures, fmt.Errorf("%s not a directory", dir))
		}
	}
	if len(failures) == 0 {
		return true, nil
	}
	return false, ReportErrs(failures)
}

// CheckReadableFiles probes the file system to ensure that every
// one of the argument filenames exists and is readable
func CheckReadableFiles(names []string) (bool, error) {
	return CheckFiles(names, true)
}

// CheckOutputFiles probes the file system to ensure that every
// argument filename can be written.
func CheckOutputFiles(names []string) (bool, error) {
	return CheckFiles(names, false)
}

// CheckFiles probes the file system for permitted access to all the
// argument filenames, optionally checking also for the existence
// of those files for the purposes of reading them.
func CheckFiles(names []string, checkExistence bool) (bool, error) {
	errs := make([]error, 0)

	for _, name := range names {
		if len(name) == 0 {
			continue
		}

		// split off the directory portion of the path
		directory, _ := filepath.Split(name)
		if len(directory) == 0 {
			directory = "."
		}
		if _, err := os.Stat(directory); err != nil {
			errs = append(errs, err)
			continue
		}
		if checkExistence {
			if _, err := os.Stat(name); err != nil {
				errs = append(errs, err)
			}
		}
	}

	if len(errs) == 0 {
		return true, nil
	}
	return false, ReportErrs(errs)
}
