package main

import (
	"path/filepath"
	"regexp"
	"strings"

	"github.com/go-faster/errors"
	"github.com/roblaszczak/go-cleanarch/cleanarch"
)

type layerAliases struct {
	Domain         []string `yaml:"domain"`
	Application    []string `yaml:"application"`
	Interfaces     []string `yaml:"interfaces"`
	Infrastructure []string `yaml:"infrastructure"`
}

type config struct {
	Root           string       `yaml:"root"`
	IgnoreTests    bool         `yaml:"ignore_tests"`
	IgnorePackages []string     `yaml:"ignore_packages"`
	SharedModules  []string     `yaml:"shared_modules"`
	Allowed        []string     `yaml:"allow_violations"`
	Aliases        layerAliases `yaml:"aliases"`
}

// defaultConfig matches the modules/<name>/{domain,services,presentation,infrastructure} layout.
func defaultConfig() *config {
	return &config{
		Root:        ".",
		IgnoreTests: true,
		Aliases: layerAliases{
			Domain:         []string{"domain"},
			Application:    []string{"services"},
			Interfaces:     []string{"presentation"},
			Infrastructure: []string{"infrastructure"},
		},
	}
}

func (c *config) layers() map[string]cleanarch.Layer {
	out := map[string]cleanarch.Layer{}
	add := func(names []string, layer cleanarch.Layer) {
		for _, n := range names {
			if n = strings.TrimSpace(n); n != "" {
				out[n] = layer
			}
		}
	}
	add(c.Aliases.Domain, cleanarch.LayerDomain)
	add(c.Aliases.Application, cleanarch.LayerApplication)
	add(c.Aliases.Interfaces, cleanarch.LayerInterfaces)
	add(c.Aliases.Infrastructure, cleanarch.LayerInfrastructure)
	return out
}

func check(cfg *config) ([]error, error) {
	root, err := filepath.Abs(cfg.Root)
	if err != nil {
		return nil, errors.Wrap(err, "resolve root")
	}
	ok, errs, err := cleanarch.NewValidator(cfg.layers()).Validate(root, cfg.IgnoreTests, cfg.IgnorePackages)
	if err != nil {
		return nil, errors.Wrap(err, "run go-cleanarch")
	}
	if ok {
		return nil, nil
	}
	found := make([]error, 0, len(errs))
	for _, e := range errs {
		found = append(found, e)
	}
	return filterViolations(found, cfg), nil
}

var crossModulePattern = regexp.MustCompile(`between ([\w-]+) and ([\w-]+) modules`)

// filterViolations drops violations that touch a shared module or match an
// allow-listed fragment.
func filterViolations(errs []error, cfg *config) []error {
	shared := map[string]struct{}{}
	for _, m := range cfg.SharedModules {
		if m = strings.TrimSpace(m); m != "" {
			shared[m] = struct{}{}
		}
	}
	var out []error
	for _, e := range errs {
		msg := e.Error()
		if touchesShared(msg, shared) || allowed(msg, cfg.Allowed) {
			continue
		}
		out = append(out, e)
	}
	return out
}

func touchesShared(msg string, shared map[string]struct{}) bool {
	m := crossModulePattern.FindStringSubmatch(msg)
	if len(m) != 3 {
		return false
	}
	_, a := shared[m[1]]
	_, b := shared[m[2]]
	return a || b
}

func allowed(msg string, patterns []string) bool {
	for _, p := range patterns {
		if p != "" && strings.Contains(msg, p) {
			return true
		}
	}
	return false
}
