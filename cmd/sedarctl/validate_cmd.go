package main

import (
	"github.com/go-faster/errors"
	"github.com/spf13/cobra"

	"github.com/iota-uz/sedar/pkg/formstate"
)

type validateOutput struct {
	OK     bool              `json:"ok"`
	Errors map[string]bool   `json:"errors"`
	Tags   map[string]string `json:"tags,omitempty"`
}

func newValidateCmd() *cobra.Command {
	var (
		t          target
		fieldsPath string
	)
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate a field set; exits 2 when any field fails",
		RunE: func(cmd *cobra.Command, args []string) error {
			form, mode, err := t.resolve(newLogger(cmd, t.verbose))
			if err != nil {
				return err
			}
			fields, err := readFields(cmd.InOrStdin(), form.Schema, form.Project(formstate.ModeCreate, nil, nil), fieldsPath)
			if err != nil {
				return err
			}
			res := form.Validate(fields, mode)
			if err := writeJSON(cmd.OutOrStdout(), validateOutput{OK: res.OK, Errors: res.Errors, Tags: res.Tags}); err != nil {
				return err
			}
			if !res.OK {
				return withCode(exitValidation, errors.Errorf("invalid fields: %v", res.Failed()))
			}
			return nil
		},
	}
	t.bind(cmd)
	cmd.Flags().StringVar(&fieldsPath, "fields", "-", "Field set, JSON or YAML (\"-\" for stdin)")
	return cmd
}
