package main

import (
	"github.com/spf13/cobra"

	"github.com/iota-uz/sedar/modules/hrm/forms"
)

type fieldInfo struct {
	Key      string   `json:"key"`
	Kind     string   `json:"kind"`
	ReadOnly bool     `json:"read_only,omitempty"`
	Required []string `json:"required,omitempty"`
	Rules    string   `json:"rules,omitempty"`
	Lookup   string   `json:"lookup,omitempty"`
}

type formInfo struct {
	Kind     string      `json:"kind"`
	Resource string      `json:"resource"`
	Fields   []fieldInfo `json:"fields,omitempty"`
}

func describe(f *forms.Form, withFields bool) formInfo {
	info := formInfo{Kind: string(f.Kind), Resource: f.Resource()}
	if !withFields {
		return info
	}
	for _, fld := range f.Schema.Fields {
		fi := fieldInfo{
			Key:      fld.Key,
			Kind:     fld.Kind.String(),
			ReadOnly: !fld.Editable(),
			Rules:    fld.Rules,
			Lookup:   fld.Lookup,
		}
		for _, m := range fld.Required {
			fi.Required = append(fi.Required, string(m))
		}
		info.Fields = append(info.Fields, fi)
	}
	return info
}

func newFormsCmd() *cobra.Command {
	var kind string
	cmd := &cobra.Command{
		Use:   "forms",
		Short: "List registered forms, or the fields of one form",
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := forms.NewRegistry(newLogger(cmd, false))
			if err != nil {
				return err
			}
			if kind != "" {
				f, err := reg.Get(forms.Kind(kind))
				if err != nil {
					return withCode(exitUsage, err)
				}
				return writeJSON(cmd.OutOrStdout(), describe(f, true))
			}
			out := make([]formInfo, 0)
			for _, k := range reg.Kinds() {
				f, err := reg.Get(k)
				if err != nil {
					return err
				}
				out = append(out, describe(f, false))
			}
			return writeJSON(cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().StringVar(&kind, "kind", "", "Show the fields of this form")
	return cmd
}
