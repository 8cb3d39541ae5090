package main

import (
	"github.com/go-faster/errors"
	"github.com/spf13/cobra"

	"github.com/iota-uz/sedar/pkg/formstate"
)

func newProjectCmd() *cobra.Command {
	var (
		t           target
		recordPath  string
		lookupsPath string
	)
	cmd := &cobra.Command{
		Use:   "project",
		Short: "Project a backend record into the form field set",
		RunE: func(cmd *cobra.Command, args []string) error {
			form, mode, err := t.resolve(newLogger(cmd, t.verbose))
			if err != nil {
				return err
			}
			lookups, err := readLookups(cmd.InOrStdin(), lookupsPath)
			if err != nil {
				return err
			}
			record := formstate.EntityRecord{}
			if mode.RequiresRecord() {
				if recordPath == "" {
					return withCode(exitUsage, errors.Errorf("--record is required in %s mode", mode))
				}
				raw, err := readDocument(cmd.InOrStdin(), recordPath)
				if err != nil {
					return err
				}
				record, err = form.Normalizer.Normalize(raw)
				if err != nil {
					return withCode(exitValidation, err)
				}
			}
			fields := form.Project(mode, record, lookups)
			return writeJSON(cmd.OutOrStdout(), fields)
		},
	}
	t.bind(cmd)
	cmd.Flags().StringVar(&recordPath, "record", "", "Backend record, JSON or YAML (\"-\" for stdin)")
	cmd.Flags().StringVar(&lookupsPath, "lookups", "", "Lookup lists keyed by lookup name")
	cmd.Flags().BoolVarP(&t.verbose, "verbose", "v", false, "Log projection details")
	return cmd
}
