package harnesssync

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/arthur-debert/harnesssync/pkg/pipeline"
	"github.com/arthur-debert/harnesssync/pkg/ui"
	"github.com/spf13/cobra"
)

var statusHeader = []string{"TARGET", "ADAPTER", "LAST SYNC", "STATUS", "SYNCED", "ADAPTED", "SKIPPED", "FAILED", "FILES", "DRIFTED", "BACKUPS", "BROKEN LINKS"}

func newStatusCmd(g *globalOptions) *cobra.Command {
	var (
		scope       string
		targetNames []string
	)

	cmd := &cobra.Command{
		Use:     "status",
		Short:   MsgStatusShort,
		Long:    MsgStatusLong,
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

			report, err := a.pipeline.Status(opts)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			format := ui.Resolve(a.format, out)
			if format.IsStructured() {
				return ui.Encode(out, format, report)
			}
			return printStatus(out, format, report)
		},
	}

	cmd.Flags().StringVarP(&scope, "scope", "s", "", MsgFlagScope)
	cmd.Flags().StringSliceVarP(&targetNames, "target", "t", nil, MsgFlagTarget)
	_ = cmd.RegisterFlagCompletionFunc("target", targetNamesCompletion(g))

	return cmd
}

func printStatus(w io.Writer, format ui.Format, report *pipeline.StatusReport) error {
	rows := make([][]string, 0, len(report.Targets))
	for _, ts := range report.Targets {
		last, status := MsgNeverSynced, "-"
		if ts.LastSync != nil {
			last = ts.LastSync.Local().Format(time.DateTime)
			status = string(ts.Status)
			if format == ui.FormatTerminal {
				status = ui.StatusStyle(status).Sprint(status)
			}
		}
		adapter := "no"
		if ts.HasAdapter {
			adapter = "yes"
		}
		rows = append(rows, []string{
			ts.Name,
			adapter,
			last,
			status,
			strconv.Itoa(ts.Counts.Synced),
			strconv.Itoa(ts.Counts.Adapted),
			strconv.Itoa(ts.Counts.Skipped),
			strconv.Itoa(ts.Counts.Failed),
			strconv.Itoa(ts.Files),
			strconv.Itoa(len(ts.Conflicts)),
			strconv.Itoa(ts.Backups),
			strconv.Itoa(len(ts.BrokenLinks)),
		})
	}

	fmt.Fprintln(w, ui.Paint(format, ui.StyleHeader, report.ProjectDir))
	if err := ui.RenderTable(w, format, statusHeader, rows); err != nil {
		return err
	}

	if len(report.PackageDrift) > 0 {
		printPackageDrift(w, format, report.PackageDrift)
	}
	return nil
}
