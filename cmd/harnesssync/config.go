package harnesssync

import (
	"fmt"

	"github.com/arthur-debert/harnesssync/pkg/config"
	"github.com/arthur-debert/harnesssync/pkg/ui"
	"github.com/spf13/cobra"
)

func newConfigCmd(g *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "config",
		Short:   MsgConfigShort,
		GroupID: "misc",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: MsgConfigShowShort,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := g.setup()
			if err != nil {
				return err
			}
			// Human formats fall back to YAML, the closest to the files users edit.
			format := ui.Resolve(a.format, cmd.OutOrStdout())
			if !format.IsStructured() {
				format = ui.FormatYAML
			}
			return ui.Encode(cmd.OutOrStdout(), format, a.cfg)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "defaults",
		Short: MsgConfigDefaultShort,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), config.DefaultContent())
			return err
		},
	})

	return cmd
}
