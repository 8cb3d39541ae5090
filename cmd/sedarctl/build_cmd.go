package main

import (
	"encoding/json"
	"os"
	"sort"

	"github.com/go-faster/errors"
	"github.com/spf13/cobra"

	"github.com/iota-uz/sedar/pkg/formstate"
)

type buildOutput struct {
	Method    string          `json:"method"`
	Multipart bool            `json:"multipart"`
	Values    json.RawMessage `json:"values"`
	Files     []string        `json:"files,omitempty"`
}

func newBuildCmd() *cobra.Command {
	var (
		t             target
		fieldsPath    string
		lookupsPath   string
		skipValidate  bool
		multipartPath string
	)
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build the wire payload the backend receives for a field set",
		RunE: func(cmd *cobra.Command, args []string) error {
			form, mode, err := t.resolve(newLogger(cmd, t.verbose))
			if err != nil {
				return err
			}
			fields, err := readFields(cmd.InOrStdin(), form.Schema, form.Project(formstate.ModeCreate, nil, nil), fieldsPath)
			if err != nil {
				return err
			}
			lookups, err := readLookups(cmd.InOrStdin(), lookupsPath)
			if err != nil {
				return err
			}
			if !skipValidate {
				if res := form.Validate(fields, mode); !res.OK {
					return withCode(exitValidation, errors.Errorf("invalid fields: %v", res.Failed()))
				}
			}
			payload, err := form.Build(fields, mode, lookups)
			if err != nil {
				return withCode(exitValidation, err)
			}
			values, err := payload.MarshalJSON()
			if err != nil {
				return errors.Wrap(err, "encode payload")
			}
			out := buildOutput{
				Method:    payload.Method,
				Multipart: payload.NeedsMultipart(),
				Values:    values,
			}
			for name := range payload.Files {
				out.Files = append(out.Files, name)
			}
			sort.Strings(out.Files)

			if multipartPath != "" {
				f, err := os.Create(multipartPath)
				if err != nil {
					return errors.Wrap(err, "create multipart body")
				}
				contentType, err := payload.WriteMultipart(f)
				if cerr := f.Close(); err == nil && cerr != nil {
					err = cerr
				}
				if err != nil {
					return errors.Wrap(err, "write multipart body")
				}
				cmd.PrintErrf("multipart body written to %s (%s)\n", multipartPath, contentType)
			}
			return writeJSON(cmd.OutOrStdout(), out)
		},
	}
	t.bind(cmd)
	cmd.Flags().StringVar(&fieldsPath, "fields", "-", "Field set, JSON or YAML (\"-\" for stdin)")
	cmd.Flags().StringVar(&lookupsPath, "lookups", "", "Lookup lists used to resolve labels to ids")
	cmd.Flags().BoolVar(&skipValidate, "no-validate", false, "Build even when validation fails")
	cmd.Flags().StringVar(&multipartPath, "multipart-out", "", "Also write the multipart request body to this file")
	cmd.Flags().BoolVarP(&t.verbose, "verbose", "v", false, "Log build details")
	return cmd
}
