package main

// fattree-prb builds the pre-built fat-tree topologies and writes them into a
// dictionary for later retrieval by an emulation layer.  Two topologies go into
// the dictionary: the plain tree and the same tree with lab link attributes.
// Optionally it writes the lab experiment description and the name dictionary.

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/iti/fattree"
	"github.com/op/go-logging"
)

const logFormat = "%{time:2006-01-02 15:04:05.000} [%{level:.4s}] %{shortfile} %{message}"

var log = logging.MustGetLogger("fattree-prb")

type options struct {
	prbLib       string
	topoPrb      string
	expPrb       string
	namePrb      string
	paramsFile   string
	policyFile   string
	k            int
	hostsPerEdge int
	logLevel     string
}

func parseOptions(args []string, errW io.Writer) (*options, error) {
	opts := new(options)
	fs := flag.NewFlagSet("fattree-prb", flag.ContinueOnError)
	fs.SetOutput(errW)

	fs.StringVar(&opts.prbLib, "prbLib", ".", "directory of the output files")
	fs.StringVar(&opts.topoPrb, "topoPrb", "topo-prb.yaml", "name of output file for the topology dictionary")
	fs.StringVar(&opts.expPrb, "expPrb", "", "name of output file for the lab experiment description")
	fs.StringVar(&opts.namePrb, "namePrb", "", "name of output file for the node name dictionary")
	fs.StringVar(&opts.paramsFile, "params", "", "file of build parameters, replaces -k and -hosts")
	fs.StringVar(&opts.policyFile, "policy", "", "file of link attributes for the attributed variant")
	fs.IntVar(&opts.k, "k", 4, "number of core switches")
	fs.IntVar(&opts.hostsPerEdge, "hosts", 2, "hosts per edge switch")
	fs.StringVar(&opts.logLevel, "loglevel", "info", "log level")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return opts, nil
}

func initLog(errW io.Writer, levelName string) error {
	level, err := logging.LogLevel(strings.ToUpper(levelName))
	if err != nil {
		return err
	}
	backend := logging.AddModuleLevel(logging.NewBackendFormatter(
		logging.NewLogBackend(errW, "", 0),
		logging.MustStringFormatter(logFormat),
	))
	backend.SetLevel(level, "")
	logging.SetBackend(backend)
	return nil
}

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// run holds the command logic so tests can drive it with their own arguments
func run(args []string, outW, errW io.Writer) error {
	opts, err := parseOptions(args, errW)
	if err != nil {
		return err
	}
	if err := initLog(errW, opts.logLevel); err != nil {
		return err
	}

	// make sure the library directory exists and the outputs can be written
	if valid, err := fattree.CheckDirectories([]string{opts.prbLib}); !valid {
		return err
	}
	outFiles := []string{}
	for _, name := range []string{opts.topoPrb, opts.expPrb, opts.namePrb} {
		if len(name) > 0 {
			outFiles = append(outFiles, filepath.Join(opts.prbLib, name))
		}
	}
	if valid, err := fattree.CheckOutputFiles(outFiles); !valid {
		return err
	}

	params := fattree.ParamsForK(opts.k, opts.hostsPerEdge)
	params.Name = "fatTree"
	if len(opts.paramsFile) > 0 {
		params, err = fattree.LoadParams(opts.paramsFile)
		if err != nil {
			return err
		}
	}

	labPolicy := fattree.LabPolicy()
	if len(opts.policyFile) > 0 {
		labPolicy, err = fattree.LoadPolicy(opts.policyFile)
		if err != nil {
			return err
		}
	}

	labParams := params
	labParams.Name = params.Name + "-lab"
	labParams.Policy = labPolicy

	topoPrbDict := fattree.CreateTopoDescDict("TopoDesc-1")
	var labTopo *fattree.Topology
	for _, p := range []fattree.Params{params, labParams} {
		topo, err := fattree.Build(p)
		if err != nil {
			return err
		}
		td := topo.Transform()
		if err := topoPrbDict.AddTopoDesc(&td, false); err != nil {
			return err
		}
		log.Infof("added %s to %s: %d nodes, %d links", td.Name, topoPrbDict.DictName, topo.NumNodes(), topo.NumLinks())
		fmt.Fprintf(outW, "Added TopoDesc %s to TopoDescDict\n", td.Name)
		labTopo = topo
	}

	if err := topoPrbDict.WriteToFile(filepath.Join(opts.prbLib, opts.topoPrb)); err != nil {
		return err
	}

	if len(opts.expPrb) > 0 {
		ed, err := fattree.LabExpDesc(labTopo)
		if err != nil {
			return err
		}
		if err := ed.WriteToFile(filepath.Join(opts.prbLib, opts.expPrb)); err != nil {
			return err
		}
	}

	if len(opts.namePrb) > 0 {
		nd, err := fattree.CreateNameDict(labTopo)
		if err != nil {
			return err
		}
		if err := nd.WriteToFile(filepath.Join(opts.prbLib, opts.namePrb)); err != nil {
			return err
		}
	}

	fmt.Fprintln(outW, "Output files written!")
	return nil
}
