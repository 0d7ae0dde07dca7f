package harnesssync

import (
	"fmt"

	"github.com/arthur-debert/harnesssync/pkg/lock"
	"github.com/arthur-debert/harnesssync/pkg/symlinks"
	"github.com/arthur-debert/harnesssync/pkg/targets"
	"github.com/arthur-debert/harnesssync/pkg/ui"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newCleanLinksCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:               "clean-links [target...]",
		Short:             MsgCleanLinksShort,
		GroupID:           "core",
		ValidArgsFunction: targetNamesCompletion(g),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := g.setup()
			if err != nil {
				return err
			}
			selected, err := targets.Select(a.pipeline.Targets(), args)
			if err != nil {
				return err
			}

			cleaner := a.pipeline.Cleaner()
			result := make(symlinks.Result)

			if g.dryRun {
				for _, t := range selected {
					broken, err := cleaner.Preview(t.Name)
					if err != nil {
						return err
					}
					if len(broken) > 0 {
						result[t.Name] = broken
					}
				}
			} else {
				l, err := lock.Acquire(cmd.Context(), a.paths.LockPath(), a.cfg.Lock.Wait)
				if err != nil {
					return err
				}
				defer func() {
					if err := l.Release(); err != nil {
						log.Warn().Err(err).Msg("Failed to release project lock")
					}
				}()

				names := make([]string, 0, len(selected))
				for _, t := range selected {
					names = append(names, t.Name)
				}
				if result, err = cleaner.CleanupTargets(names...); err != nil {
					return err
				}
			}

			out := cmd.OutOrStdout()
			format := ui.Resolve(a.format, out)
			if format.IsStructured() {
				return ui.Encode(out, format, result)
			}

			switch {
			case result.Total() == 0:
				fmt.Fprintln(out, MsgNoBrokenLinks)
			case g.dryRun:
				fmt.Fprintf(out, MsgLinksWouldRemove, result.Total())
			default:
				fmt.Fprintf(out, MsgLinksRemoved, result.Total())
			}
			for _, t := range selected {
				for _, link := range result[t.Name] {
					fmt.Fprintf(out, MsgLinkItem, ui.Paint(format, ui.StyleMuted, link))
				}
			}
			if g.dryRun {
				fmt.Fprintln(out, MsgDryRunNotice)
			}
			return nil
		},
	}
}
