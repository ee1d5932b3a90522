package fattree

// load.go has the functions that read build parameters and attribute policies
// from files and build topologies from them

// LoadParams reads a ParamsDesc from a yaml or json file (the extension decides)
// and decodes it into Params.  The parameters are validated by Build, not here.
func LoadParams(paramsFile string) (Params, error) {
	pd := ParamsDesc{}
	if err := readDesc(paramsFile, isYAML(paramsFile), nil, &pd); err != nil {
		return Params{}, err
	}
	return pd.Params()
}

// WriteParams writes the serializable form of params to the named file
func WriteParams(paramsFile string, params Params) error {
	pd := params.Transform()
	return writeDesc(paramsFile, &pd)
}

// LoadPolicy reads a LinkPolicyCfg from a yaml or json file and builds the AttrPolicy it describes
func LoadPolicy(policyFile string) (AttrPolicy, error) {
	lpc, err := ReadLinkPolicyCfg(policyFile, isYAML(policyFile), nil)
	if err != nil {
		return nil, err
	}
	return lpc.BuildPolicy()
}

// BuildFromFile bundles LoadParams and Build
func BuildFromFile(paramsFile string) (*Topology, error) {
	params, err := LoadParams(paramsFile)
	if err != nil {
		return nil, err
	}
	log.Debugf("loaded parameters %s from %s", params.Name, paramsFile)
	return Build(params)
}
