// Command archguard checks that module packages only import inward:
// presentation and infrastructure may use services and domain, services may
// use domain, domain imports no other layer.
package main

import (
	"os"

	"github.com/go-faster/errors"
	"github.com/roblaszczak/go-cleanarch/cleanarch"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var errViolations = errors.New("layering check failed")

func main() {
	if err := newRootCmd().Execute(); err != nil {
		logrus.Error(err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		configPath string
		debug      bool
	)
	cmd := &cobra.Command{
		Use:           "archguard [root]",
		Short:         "Check import direction between module layers",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := defaultConfig()
			if configPath != "" {
				var err error
				if cfg, err = loadConfig(configPath); err != nil {
					return err
				}
			}
			if len(args) == 1 {
				cfg.Root = args[0]
			}
			if debug {
				cleanarch.Log.SetOutput(cmd.ErrOrStderr())
			}
			log := logrus.New()
			log.SetOutput(cmd.ErrOrStderr())
			violations, err := check(cfg)
			if err != nil {
				return err
			}
			for _, v := range violations {
				log.Warn(v.Error())
			}
			if len(violations) > 0 {
				return errors.Wrapf(errViolations, "%d violation(s)", len(violations))
			}
			log.Info("layering check passed")
			return nil
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "YAML config overriding the built-in layer aliases")
	cmd.Flags().BoolVar(&debug, "debug", false, "Print go-cleanarch debug output")
	return cmd
}

func loadConfig(path string) (*config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read config")
	}
	cfg := defaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrap(err, "parse config")
	}
	if cfg.Root == "" {
		cfg.Root = "."
	}
	return cfg, nil
}
