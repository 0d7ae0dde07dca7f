package harnesssync

import (
	"fmt"

	"github.com/arthur-debert/harnesssync/pkg/conflict"
	"github.com/arthur-debert/harnesssync/pkg/errors"
	"github.com/arthur-debert/harnesssync/pkg/secrets"
	"github.com/arthur-debert/harnesssync/pkg/types"
	"github.com/arthur-debert/harnesssync/pkg/ui"
	"github.com/spf13/cobra"
)

// checkReport is what check finds, in encodable form.
type checkReport struct {
	Findings  []types.SecretFinding            `json:"findings,omitempty" yaml:"findings,omitempty" toml:"findings,omitempty"`
	Conflicts map[string][]types.ConflictEntry `json:"conflicts,omitempty" yaml:"conflicts,omitempty" toml:"conflicts,omitempty"`
}

func newCheckCmd(g *globalOptions) *cobra.Command {
	var (
		scope       string
		targetNames []string
	)

	cmd := &cobra.Command{
		Use:     "check",
		Short:   MsgCheckShort,
		GroupID: "core",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := g.setup()
			if err != nil {
				return err
			}
			opts, err := a.options(g, scope, targetNames)
			if err != nil {
				return err
			}

			res, err := a.pipeline.Resolver(opts.Scope).Resolve()
			if err != nil {
				return err
			}
			status, err := a.pipeline.Status(opts)
			if err != nil {
				return err
			}

			report := checkReport{
				Findings:  secrets.New(a.cfg.Secrets).ScanServers(res.Flat()),
				Conflicts: make(map[string][]types.ConflictEntry),
			}
			for _, ts := range status.Targets {
				if len(ts.Conflicts) > 0 {
					report.Conflicts[ts.Name] = ts.Conflicts
				}
			}

			out := cmd.OutOrStdout()
			format := ui.Resolve(a.format, out)
			if format.IsStructured() {
				if err := ui.Encode(out, format, report); err != nil {
					return err
				}
			} else {
				if len(report.Findings) > 0 {
					fmt.Fprintln(out, ui.Paint(format, ui.StyleWarning, secrets.FormatWarnings(report.Findings)))
				}
				if conflict.Count(report.Conflicts) > 0 {
					fmt.Fprintln(out, ui.Paint(format, ui.StyleWarning, conflict.FormatWarnings(report.Conflicts)))
				}
				if len(report.Findings) == 0 && conflict.Count(report.Conflicts) == 0 {
					fmt.Fprintln(out, ui.Paint(format, ui.StyleSynced, MsgCheckClean))
				}
			}

			if len(report.Findings) > 0 {
				return errors.Newf(errors.ErrSecretsDetected, MsgErrCheckFailed, len(report.Findings))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&scope, "scope", "s", "", MsgFlagScope)
	cmd.Flags().StringSliceVarP(&targetNames, "target", "t", nil, MsgFlagTarget)
	_ = cmd.RegisterFlagCompletionFunc("target", targetNamesCompletion(g))

	return cmd
}
