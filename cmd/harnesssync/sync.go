package harnesssync

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/arthur-debert/harnesssync/pkg/compat"
	"github.com/arthur-debert/harnesssync/pkg/errors"
	"github.com/arthur-debert/harnesssync/pkg/pipeline"
	"github.com/arthur-debert/harnesssync/pkg/types"
	"github.com/arthur-debert/harnesssync/pkg/ui"
	"github.com/spf13/cobra"
)

func newSyncCmd(g *globalOptions) *cobra.Command {
	var (
		allowSecrets bool
		force        bool
		scope        string
		targetNames  []string
	)

	cmd := &cobra.Command{
		Use:     "sync",
		Short:   MsgSyncShort,
		Long:    MsgSyncLong,
		Example: MsgSyncExample,
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
			opts.AllowSecrets = allowSecrets
			opts.Force = force

			res, runErr := a.pipeline.Run(cmd.Context(), opts)

			// Warnings go to stderr so structured stdout stays parseable.
			stderr := cmd.ErrOrStderr()
			if res != nil && res.Warnings != "" {
				fmt.Fprintln(stderr, res.Warnings)
			}
			if res != nil && res.ConflictWarnings != "" {
				fmt.Fprintln(stderr, res.ConflictWarnings)
			}
			if runErr != nil {
				return runErr
			}

			out := cmd.OutOrStdout()
			format := ui.Resolve(a.format, out)
			if format.IsStructured() {
				if err := ui.Encode(out, format, res); err != nil {
					return err
				}
				return rolledBackError(res)
			}

			if err := printSyncResult(out, format, res, opts); err != nil {
				return err
			}
			return rolledBackError(res)
		},
	}

	cmd.Flags().BoolVar(&allowSecrets, "allow-secrets", false, MsgFlagAllowSecrets)
	cmd.Flags().BoolVarP(&force, "force", "f", false, MsgFlagForce)
	cmd.Flags().StringVarP(&scope, "scope", "s", "", MsgFlagScope)
	cmd.Flags().StringSliceVarP(&targetNames, "target", "t", nil, MsgFlagTarget)
	_ = cmd.RegisterFlagCompletionFunc("target", targetNamesCompletion(g))

	return cmd
}

func printSyncResult(w io.Writer, format ui.Format, res *pipeline.Result, opts pipeline.Options) error {
	if res.Debounced {
		_, err := fmt.Fprintf(w, MsgDebounced, opts.Debounce)
		return err
	}

	if res.DryRun {
		printPreviews(w, format, res.Previews)
		_, err := fmt.Fprintln(w, MsgDryRunNotice)
		return err
	}

	if len(res.Results) == 0 {
		fmt.Fprintln(w, MsgNoAdapters)
	}

	rolledBack := make(map[string]bool, len(res.RolledBack))
	for _, name := range res.RolledBack {
		rolledBack[name] = true
	}
	for _, name := range types.SortedNames(res.Results) {
		if rolledBack[name] {
			fmt.Fprint(w, ui.Paint(format, ui.StyleFailed, fmt.Sprintf(MsgTargetRolledBack, name)))
			continue
		}
		synced, adapted, skipped, failed := res.Results[name].Counts()
		fmt.Fprintf(w, MsgTargetSynced, ui.Paint(format, ui.StyleTarget, name), synced, adapted, skipped, failed)
	}

	if n := res.CleanedLinks.Total(); n > 0 {
		fmt.Fprintf(w, MsgLinksRemoved, n)
	}

	if len(res.PackageDrift) > 0 {
		printPackageDrift(w, format, res.PackageDrift)
	}

	if compat.HasIssues(res.Report) {
		fmt.Fprintln(w)
		return compat.Render(w, res.Report, format)
	}
	return nil
}

func printPreviews(w io.Writer, format ui.Format, previews map[string]pipeline.Preview) {
	for _, name := range types.SortedNames(previews) {
		fmt.Fprintf(w, MsgPreviewTarget, ui.Paint(format, ui.StyleTarget, name))

		pv := previews[name]
		categories := make([]string, 0, len(pv))
		for c := range pv {
			categories = append(categories, string(c))
		}
		sort.Strings(categories)
		for _, c := range categories {
			fmt.Fprintf(w, MsgPreviewItem, c, strings.Join(pv[types.Category(c)], ", "))
		}
	}
}

func printPackageDrift(w io.Writer, format ui.Format, drift map[string]string) {
	fmt.Fprintln(w, ui.Paint(format, ui.StyleHeader, MsgPackageDriftHead))
	for _, name := range types.SortedNames(drift) {
		fmt.Fprintf(w, MsgPackageDrift, name, drift[name])
	}
}

// rolledBackError turns rolled back targets into a non-zero exit.
func rolledBackError(res *pipeline.Result) error {
	if len(res.RolledBack) == 0 {
		return nil
	}
	return errors.Newf(errors.ErrAdapterFailed, "%d target(s) failed and were rolled back: %s",
		len(res.RolledBack), strings.Join(res.RolledBack, ", ")).
		WithDetail("targets", res.RolledBack)
}
