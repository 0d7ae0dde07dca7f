package harnesssync

import (
	"fmt"
	"strings"

	"github.com/arthur-debert/harnesssync/pkg/source"
	"github.com/arthur-debert/harnesssync/pkg/types"
	"github.com/arthur-debert/harnesssync/pkg/ui"
	"github.com/spf13/cobra"
)

// resolvedServer is one row of the resolve output.
type resolvedServer struct {
	Name       string             `json:"name" yaml:"name" toml:"name"`
	Provenance types.Provenance   `json:"provenance" yaml:"provenance" toml:"provenance"`
	Config     types.ServerConfig `json:"config" yaml:"config" toml:"config"`
}

type skippedLayer struct {
	Layer string `json:"layer" yaml:"layer" toml:"layer"`
	Path  string `json:"path" yaml:"path" toml:"path"`
	Error string `json:"error" yaml:"error" toml:"error"`
}

type resolveView struct {
	Servers          []resolvedServer `json:"servers" yaml:"servers" toml:"servers"`
	Skipped          []skippedLayer   `json:"skipped,omitempty" yaml:"skipped,omitempty" toml:"skipped,omitempty"`
	DisabledPackages []string         `json:"disabled_packages,omitempty" yaml:"disabled_packages,omitempty" toml:"disabled_packages,omitempty"`
}

func newResolveView(res *source.Resolution) resolveView {
	view := resolveView{DisabledPackages: res.DisabledPackages}
	for _, e := range res.Entries() {
		view.Servers = append(view.Servers, resolvedServer{Name: e.Name, Provenance: e.Provenance, Config: e.Config})
	}
	for _, s := range res.Skipped {
		view.Skipped = append(view.Skipped, skippedLayer{Layer: s.Layer, Path: s.Path, Error: s.Err.Error()})
	}
	return view
}

// launchLine is the command and arguments of a stdio server, or the url of
// a remote one.
func launchLine(cfg types.ServerConfig) string {
	if cfg.Command() == "" {
		return cfg.URL()
	}
	return strings.Join(append([]string{cfg.Command()}, cfg.Args()...), " ")
}

func newResolveCmd(g *globalOptions) *cobra.Command {
	var scope string

	cmd := &cobra.Command{
		Use:     "resolve",
		Short:   MsgResolveShort,
		Long:    MsgResolveLong,
		GroupID: "core",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := g.setup()
			if err != nil {
				return err
			}
			opts, err := a.options(g, scope, nil)
			if err != nil {
				return err
			}

			res, err := a.pipeline.Resolver(opts.Scope).Resolve()
			if err != nil {
				return err
			}
			view := newResolveView(res)

			out := cmd.OutOrStdout()
			format := ui.Resolve(a.format, out)
			if format.IsStructured() {
				return ui.Encode(out, format, view)
			}

			for _, s := range view.Skipped {
				fmt.Fprintf(cmd.ErrOrStderr(), MsgSkippedLayer, s.Layer, s.Path, s.Error)
			}

			if len(view.Servers) == 0 {
				fmt.Fprintln(out, MsgNoServers)
			} else {
				rows := make([][]string, 0, len(view.Servers))
				for _, s := range view.Servers {
					rows = append(rows, []string{s.Name, s.Provenance.String(), launchLine(s.Config), s.Provenance.SourcePath})
				}
				if err := ui.RenderTable(out, format, []string{"NAME", "PROVENANCE", "COMMAND", "SOURCE"}, rows); err != nil {
					return err
				}
			}

			if len(view.DisabledPackages) > 0 {
				fmt.Fprintf(out, MsgDisabledPackages, strings.Join(view.DisabledPackages, ", "))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&scope, "scope", "s", "", MsgFlagScope)

	return cmd
}
