package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/BurntSushi/toml"

	"honnef.co/go/shape/abstraction"
	"honnef.co/go/shape/join"
)

type config struct {
	cfg  Config
	meta toml.MetaData
}

func mergeLists(a, b []string) []string {
	out := make([]string, 0, len(a)+len(b))
	for _, el := range b {
		if el == "inherit" {
			out = append(out, a...)
		} else {
			out = append(out, el)
		}
	}
	return out
}

func normalizeList(list []string) []string {
	if len(list) > 1 {
		sort.Strings(list)
		nlist := make([]string, 0, len(list))
		nlist = append(nlist, list[0])
		for i, el := range list[1:] {
			if el != list[i] {
				nlist = append(nlist, el)
			}
		}
		list = nlist
	}

	for _, el := range list {
		if el == "inherit" {
			// This should never happen, because the default config
			// should not use "inherit"
			panic(`unresolved "inherit"`)
		}
		if el == "all" {
			return []string{"all"}
		}
	}

	return list
}

func (cfg config) Merge(ocfg config) config {
	if ocfg.meta.IsDefined("join", "verify") {
		cfg.cfg.Join.Verify = ocfg.cfg.Join.Verify
	}
	if ocfg.meta.IsDefined("join", "execute_candidates") {
		cfg.cfg.Join.ExecuteCandidates = ocfg.cfg.Join.ExecuteCandidates
	}
	if ocfg.meta.IsDefined("join", "abstract") {
		cfg.cfg.Join.Abstract = ocfg.cfg.Join.Abstract
	}

	if ocfg.meta.IsDefined("abstraction", "min_length") {
		cfg.cfg.Abstraction.MinLength = ocfg.cfg.Abstraction.MinLength
	}
	if ocfg.meta.IsDefined("abstraction", "kinds") {
		cfg.cfg.Abstraction.Kinds = mergeLists(cfg.cfg.Abstraction.Kinds, ocfg.cfg.Abstraction.Kinds)
	}
	return cfg
}

type Config struct {
	Join        JoinConfig        `toml:"join"`
	Abstraction AbstractionConfig `toml:"abstraction"`
}

type JoinConfig struct {
	// Verify checks the consistency of all graphs after every join step.
	Verify bool `toml:"verify"`
	// ExecuteCandidates folds list segments discovered while joining.
	ExecuteCandidates bool `toml:"execute_candidates"`
	// Abstract folds chains of list nodes in the joined graph.
	Abstract bool `toml:"abstract"`
}

type AbstractionConfig struct {
	MinLength int `toml:"min_length"`
	// Kinds lists the segment kinds to fold: "sll", "dll" or "all".
	Kinds []string `toml:"kinds"`
}

var defaultConfig = Config{
	Join:        defaultJoinConfig,
	Abstraction: defaultAbstractionConfig,
}

var defaultJoinConfig = JoinConfig{
	Verify:            false,
	ExecuteCandidates: true,
	Abstract:          false,
}

var defaultAbstractionConfig = AbstractionConfig{
	MinLength: 2,
	Kinds:     []string{"all"},
}

const configName = "smgjoin.conf"

func parseConfigs(dir string) ([]config, error) {
	var out []config

	for dir != "" {
		f, err := os.Open(filepath.Join(dir, configName))
		if os.IsNotExist(err) {
			ndir := filepath.Dir(dir)
			if ndir == dir {
				break
			}
			dir = ndir
			continue
		}
		if err != nil {
			return nil, err
		}
		var cfg Config
		meta, err := toml.DecodeReader(f, &cfg)
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("%s: %v", filepath.Join(dir, configName), err)
		}
		out = append(out, config{cfg, meta})
		ndir := filepath.Dir(dir)
		if ndir == dir {
			break
		}
		dir = ndir
	}
	out = append(out, config{
		cfg:  defaultConfig,
		meta: toml.MetaData{}, // meta of the base config should never be accessed
	})
	if len(out) < 2 {
		return out, nil
	}
	for i := 0; i < len(out)/2; i++ {
		out[i], out[len(out)-1-i] = out[len(out)-1-i], out[i]
	}
	return out, nil
}

func mergeConfigs(confs []config) Config {
	if len(confs) == 0 {
		// This shouldn't happen because we always have at least a
		// default config.
		panic("trying to merge zero configs")
	}
	if len(confs) == 1 {
		return confs[0].cfg
	}
	conf := confs[0]
	for _, oconf := range confs[1:] {
		conf = conf.Merge(oconf)
	}
	return conf.cfg
}

// Load reads smgjoin.conf from dir and all of its parents, innermost files
// taking precedence, and merges them with the defaults.
func Load(dir string) (Config, error) {
	confs, err := parseConfigs(dir)
	if err != nil {
		return Config{}, err
	}
	conf := mergeConfigs(confs)

	conf.Abstraction.Kinds = normalizeList(conf.Abstraction.Kinds)
	for _, k := range conf.Abstraction.Kinds {
		switch k {
		case "all", "sll", "dll":
		default:
			return Config{}, fmt.Errorf("unknown segment kind %q", k)
		}
	}
	if conf.Abstraction.MinLength < 1 {
		return Config{}, fmt.Errorf("abstraction.min_length must be positive, is %d", conf.Abstraction.MinLength)
	}

	return conf, nil
}

// Options returns the join options described by cfg.
func (cfg Config) Options() join.Options {
	opts := join.Options{
		Verify:            cfg.Join.Verify,
		ExecuteCandidates: cfg.Join.ExecuteCandidates,
		Abstract:          cfg.Join.Abstract,
		Abstraction:       abstraction.Options{MinLength: cfg.Abstraction.MinLength},
	}
	for _, k := range cfg.Abstraction.Kinds {
		switch k {
		case "all":
			opts.Abstraction.SLL = true
			opts.Abstraction.DLL = true
		case "sll":
			opts.Abstraction.SLL = true
		case "dll":
			opts.Abstraction.DLL = true
		}
	}
	return opts
}
