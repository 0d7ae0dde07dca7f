package harnesssync

import (
	"fmt"
	"time"

	"github.com/arthur-debert/harnesssync/pkg/backup"
	"github.com/arthur-debert/harnesssync/pkg/lock"
	"github.com/arthur-debert/harnesssync/pkg/ui"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newBackupsCmd(g *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "backups",
		Short:   MsgBackupsShort,
		GroupID: "misc",
	}
	cmd.AddCommand(newBackupsListCmd(g))
	cmd.AddCommand(newBackupsPruneCmd(g))
	return cmd
}

// backupTargets returns args, or every target with a backup directory.
func backupTargets(m *backup.Manager, args []string) ([]string, error) {
	if len(args) > 0 {
		return args, nil
	}
	return m.Targets()
}

func newBackupsListCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list [target...]",
		Short: MsgBackupsListShort,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := g.setup()
			if err != nil {
				return err
			}
			manager := a.pipeline.Backups()
			names, err := backupTargets(manager, args)
			if err != nil {
				return err
			}

			var snapshots []backup.Snapshot
			for _, name := range names {
				list, err := manager.List(name)
				if err != nil {
					return err
				}
				snapshots = append(snapshots, list...)
			}

			out := cmd.OutOrStdout()
			format := ui.Resolve(a.format, out)
			if format.IsStructured() {
				return ui.Encode(out, format, snapshots)
			}
			if len(snapshots) == 0 {
				fmt.Fprintln(out, MsgNoBackups)
				return nil
			}

			rows := make([][]string, 0, len(snapshots))
			for _, s := range snapshots {
				rows = append(rows, []string{s.Target, s.Name, s.Timestamp.Local().Format(time.DateTime), s.Path})
			}
			return ui.RenderTable(out, format, []string{"TARGET", "ARTIFACT", "TAKEN", "PATH"}, rows)
		},
	}
}

func newBackupsPruneCmd(g *globalOptions) *cobra.Command {
	var keep int

	cmd := &cobra.Command{
		Use:   "prune [target...]",
		Short: MsgBackupsPruneShort,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := g.setup()
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("keep") {
				keep = a.cfg.Backup.Keep
			}

			manager := a.pipeline.Backups()
			names, err := backupTargets(manager, args)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if g.dryRun {
				excess := 0
				for _, name := range names {
					list, err := manager.List(name)
					if err != nil {
						return err
					}
					if len(list) > keep {
						excess += len(list) - keep
					}
				}
				fmt.Fprintf(out, MsgBackupsPruned, excess)
				fmt.Fprintln(out, MsgDryRunNotice)
				return nil
			}

			l, err := lock.Acquire(cmd.Context(), a.paths.LockPath(), a.cfg.Lock.Wait)
			if err != nil {
				return err
			}
			defer func() {
				if err := l.Release(); err != nil {
					log.Warn().Err(err).Msg("Failed to release project lock")
				}
			}()

			removed := 0
			for _, name := range names {
				removed += manager.Prune(name, keep)
			}
			fmt.Fprintf(out, MsgBackupsPruned, removed)
			return nil
		},
	}

	cmd.Flags().IntVarP(&keep, "keep", "k", 0, MsgFlagKeep)

	return cmd
}
