package main

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/iota-uz/sedar/modules/hrm/forms"
	"github.com/iota-uz/sedar/pkg/formstate"
)

// target is the form and mode every pipeline command works on.
type target struct {
	kind    string
	mode    string
	verbose bool
}

func (t *target) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&t.kind, "kind", "", "Form kind, e.g. employee or rest_day (required)")
	cmd.Flags().StringVar(&t.mode, "mode", string(formstate.ModeCreate), "Form mode: create, edit or view")
	_ = cmd.MarkFlagRequired("kind")
}

func (t *target) resolve(log logrus.FieldLogger) (*forms.Form, formstate.Mode, error) {
	mode, err := formstate.ParseMode(t.mode)
	if err != nil {
		return nil, "", withCode(exitUsage, err)
	}
	reg, err := forms.NewRegistry(log)
	if err != nil {
		return nil, "", err
	}
	form, err := reg.Get(forms.Kind(t.kind))
	if err != nil {
		return nil, "", withCode(exitUsage, err)
	}
	return form, mode, nil
}

func newLogger(cmd *cobra.Command, verbose bool) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(cmd.ErrOrStderr())
	log.SetLevel(logrus.WarnLevel)
	if verbose {
		log.SetLevel(logrus.DebugLevel)
	}
	return log
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "sedarctl",
		Short:         "Offline tools for SEDAR HR form payloads",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.AddCommand(
		newFormsCmd(),
		newProjectCmd(),
		newValidateCmd(),
		newBuildCmd(),
	)
	return cmd
}
