package fattree

// file exp.go describes, declaratively, the diagnostics a network emulation
// layer may run against a built topology: which controller to attach, whether to
// dump connections and ping every pair of hosts, and which hosts run paired
// iperf measurements.  Nothing here runs anything.

import (
	"fmt"
	"math/rand/v2"
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// ControllerDesc names a remote controller and where to reach it
type ControllerDesc struct {
	Name string `json:"name" yaml:"name" validate:"required"`
	IP   string `json:"ip" yaml:"ip" validate:"required,ip"`
	Port int    `json:"port" yaml:"port" validate:"min=1,max=65535"`
}

// DefaultController is a floodlight controller on the local host at the OpenFlow port
func DefaultController() ControllerDesc {
	return ControllerDesc{Name: "floodlight", IP: "127.0.0.1", Port: 6653}
}

// IperfDesc describes one throughput measurement: an iperf server on one host,
// a client on another, and the log each writes.  Duration and Interval are in seconds.
type IperfDesc struct {
	Name      string `json:"name" yaml:"name" validate:"required"`
	Server    string `json:"server" yaml:"server" validate:"required"`
	Client    string `json:"client" yaml:"client" validate:"required"`
	Proto     string `json:"proto" yaml:"proto" validate:"oneof=udp tcp"`
	Duration  int    `json:"duration" yaml:"duration" validate:"min=1"`
	Interval  int    `json:"interval" yaml:"interval" validate:"min=1"`
	Rate      string `json:"rate" yaml:"rate"`
	ServerLog string `json:"serverlog" yaml:"serverlog"`
	ClientLog string `json:"clientlog" yaml:"clientlog"`
}

// ExpDesc gathers the diagnostics to be run against the named topology
type ExpDesc struct {
	Name            string          `json:"expname" yaml:"expname"`
	TopoName        string          `json:"toponame" yaml:"toponame"`
	Controller      *ControllerDesc `json:"controller,omitempty" yaml:"controller,omitempty"`
	DumpConnections bool            `json:"dumpconnections" yaml:"dumpconnections"`
	PingAll         bool            `json:"pingall" yaml:"pingall"`
	Iperf           []IperfDesc     `json:"iperf" yaml:"iperf"`
}

// CreateExpDesc is a constructor
func CreateExpDesc(name, topoName string) *ExpDesc {
	return &ExpDesc{Name: name, TopoName: topoName, Iperf: make([]IperfDesc, 0)}
}

// SetController validates and records the controller
func (ed *ExpDesc) SetController(cd ControllerDesc) error {
	if err := validate.Struct(cd); err != nil {
		return fmt.Errorf("%w: controller: %v", ErrConfig, formatValidationError(err))
	}
	ed.Controller = &cd
	return nil
}

// AddIperf appends a UDP measurement of 10 seconds at 100 Mbit/s with 1 second
// reports, each host logging to <host>.log, and returns its position in ed.Iperf
func (ed *ExpDesc) AddIperf(server, client string) int {
	ed.Iperf = append(ed.Iperf, IperfDesc{
		Name:      "iperf.[" + strconv.Itoa(len(ed.Iperf)) + "]",
		Server:    server,
		Client:    client,
		Proto:     "udp",
		Duration:  10,
		Interval:  1,
		Rate:      "100m",
		ServerLog: server + ".log",
		ClientLog: client + ".log",
	})
	return len(ed.Iperf) - 1
}

// LabExpDesc is the classic lab run: attach the default controller, dump the
// host connections, ping every pair, then let the first host on the second edge
// switch send to two servers, the first host (same pod) and the first host of
// the second half of the tree (another pod).  For the 4-ary tree these are
// client h4003 and servers h4001 and h4009.
func LabExpDesc(topo *Topology) (*ExpDesc, error) {
	hosts := topo.Hosts()
	p := topo.Params()

	ed := CreateExpDesc(topo.Name()+"-lab", topo.Name())
	if err := ed.SetController(DefaultController()); err != nil {
		return nil, err
	}
	ed.DumpConnections = true
	ed.PingAll = true

	client := hosts[p.HostsPerEdge].Label
	ed.AddIperf(hosts[0].Label, client)
	ed.AddIperf(hosts[len(hosts)/2].Label, client)

	if err := ValidateExp(topo, ed); err != nil {
		return nil, err
	}
	return ed, nil
}

// ValidateExp checks the description against the topology it names: every host
// must exist in topo, and no measurement may pair a host with itself
func ValidateExp(topo *Topology, ed *ExpDesc) error {
	errs := []error{}
	if ed.TopoName != topo.Name() {
		errs = append(errs, fmt.Errorf("experiment %s names topology %s, not %s", ed.Name, ed.TopoName, topo.Name()))
	}
	if ed.Controller != nil {
		if err := validate.Struct(ed.Controller); err != nil {
			errs = append(errs, fmt.Errorf("controller: %v", formatValidationError(err)))
		}
	}

	isHost := func(label string) bool {
		node, present := topo.Node(label)
		return present && node.Tier == HostTier
	}
	for _, ipd := range ed.Iperf {
		if err := validate.Struct(ipd); err != nil {
			errs = append(errs, fmt.Errorf("%s: %v", ipd.Name, formatValidationError(err)))
		}
		if !isHost(ipd.Server) {
			errs = append(errs, fmt.Errorf("%s: server %s is not a host of %s", ipd.Name, ipd.Server, topo.Name()))
		}
		if !isHost(ipd.Client) {
			errs = append(errs, fmt.Errorf("%s: client %s is not a host of %s", ipd.Name, ipd.Client, topo.Name()))
		}
		if ipd.Server == ipd.Client {
			errs = append(errs, fmt.Errorf("%s: host %s cannot measure itself", ipd.Name, ipd.Server))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %v", ErrConfig, ReportErrs(errs))
	}
	return nil
}

// PermutationPairs returns a random permutation traffic pattern over the hosts of
// topo: every host is the client of exactly one pair and the server of exactly
// one other, and no host is paired with itself.  The permutation is a single
// cycle drawn with Sattolo's algorithm from a generator seeded by the stream
// name, so the same topology and stream name always give the same pairs.
// Pairs are returned as {client, server}.
func PermutationPairs(topo *Topology, streamName string) ([][2]string, error) {
	hosts := topo.Hosts()
	if len(hosts) < 2 {
		return nil, fmt.Errorf("%w: a permutation needs at least 2 hosts, %s has %d", ErrConfig, topo.Name(), len(hosts))
	}

	seed := xxhash.Sum64String(streamName)
	rng := rand.New(rand.NewPCG(seed, seed^uint64(len(hosts))))

	perm := make([]int, len(hosts))
	for idx := range perm {
		perm[idx] = idx
	}
	for i := len(perm) - 1; i > 0; i-- {
		j := rng.IntN(i)
		perm[i], perm[j] = perm[j], perm[i]
	}

	pairs := make([][2]string, len(hosts))
	for idx, host := range hosts {
		pairs[idx] = [2]string{host.Label, hosts[perm[idx]].Label}
	}
	return pairs, nil
}

// AddPermutation appends one iperf measurement per pair of PermutationPairs
func (ed *ExpDesc) AddPermutation(topo *Topology, streamName string) error {
	pairs, err := PermutationPairs(topo, streamName)
	if err != nil {
		return err
	}
	for _, pair := range pairs {
		ed.AddIperf(pair[1], pair[0])
	}
	return nil
}

// WriteToFile stores the ExpDesc to the file whose name is given.
// Serialization to json or to yaml is selected based on the extension of this name.
func (ed *ExpDesc) WriteToFile(filename string) error {
	return writeDesc(filename, ed)
}

// ReadExpDesc deserializes an ExpDesc from dict, or from the named file when dict is empty
func ReadExpDesc(filename string, useYAML bool, dict []byte) (*ExpDesc, error) {
	example := ExpDesc{}
	if err := readDesc(filename, useYAML, dict, &example); err != nil {
		return nil, err
	}
	return &example, nil
}
