package harnesssync

import (
	"embed"
	"fmt"

	"github.com/arthur-debert/harnesssync/internal/version"
	"github.com/arthur-debert/harnesssync/pkg/cobrax/topics"
	"github.com/arthur-debert/harnesssync/pkg/config"
	"github.com/arthur-debert/harnesssync/pkg/logging"
	"github.com/arthur-debert/harnesssync/pkg/paths"
	"github.com/arthur-debert/harnesssync/pkg/pipeline"
	"github.com/arthur-debert/harnesssync/pkg/types"
	"github.com/arthur-debert/harnesssync/pkg/ui"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

//go:embed topics
var topicFS embed.FS

// globalOptions holds the persistent flags shared by every command.
type globalOptions struct {
	verbosity  int
	dryRun     bool
	project    string
	configFile string
	format     string

	adapters []pipeline.Adapter
}

// app is what a command needs once flags are parsed.
type app struct {
	paths    paths.Paths
	cfg      *config.Config
	pipeline *pipeline.Pipeline
	format   ui.Format
}

// NewRootCmd creates and returns the root command. adapters are registered
// with every pipeline the commands build.
func NewRootCmd(adapters ...pipeline.Adapter) *cobra.Command {
	// Initialize custom template formatting functions
	initTemplateFormatting()

	g := &globalOptions{adapters: adapters}

	rootCmd := &cobra.Command{
		Use:     "harnesssync",
		Short:   MsgRootShort,
		Long:    MsgRootLong,
		Version: version.Version,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Setup logging based on verbosity
			logging.SetupLogger(g.verbosity)
			log.Debug().Str("command", cmd.Name()).Msg("Command started")
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			// If we get here, no subcommand was provided
			_ = cmd.Help()
			return fmt.Errorf("no command specified")
		},
		SilenceUsage:      true,
		SilenceErrors:     true,
		DisableAutoGenTag: true,
	}

	// Global flags
	rootCmd.PersistentFlags().CountVarP(&g.verbosity, "verbose", "v", MsgFlagVerbose)
	rootCmd.PersistentFlags().BoolVar(&g.dryRun, "dry-run", false, MsgFlagDryRun)
	rootCmd.PersistentFlags().StringVarP(&g.project, "project", "C", "", MsgFlagProject)
	rootCmd.PersistentFlags().StringVar(&g.configFile, "config", "", MsgFlagConfig)
	rootCmd.PersistentFlags().StringVarP(&g.format, "format", "o", "auto", MsgFlagFormat)

	rootCmd.AddGroup(&cobra.Group{
		ID:    "core",
		Title: "COMMANDS:",
	})
	rootCmd.AddGroup(&cobra.Group{
		ID:    "misc",
		Title: "MISC:",
	})

	rootCmd.SetUsageTemplate(MsgUsageTemplate)

	rootCmd.AddCommand(newSyncCmd(g))
	rootCmd.AddCommand(newCheckCmd(g))
	rootCmd.AddCommand(newStatusCmd(g))
	rootCmd.AddCommand(newResolveCmd(g))
	rootCmd.AddCommand(newCleanLinksCmd(g))
	rootCmd.AddCommand(newBackupsCmd(g))
	rootCmd.AddCommand(newConfigCmd(g))
	rootCmd.AddCommand(newVersionCmd())

	// Topic help rendered as markdown
	tm, err := topics.Load(topicFS, "topics", topics.Options{Renderer: topics.NewGlamourRenderer()})
	if err == nil {
		topics.Install(rootCmd, tm)
	} else {
		log.Warn().Err(err).Msg("Help topics unavailable")
	}
	rootCmd.SetHelpCommandGroupID("misc")
	rootCmd.SetCompletionCommandGroupID("misc")

	return rootCmd
}

// configFiles returns the files config.Load should consider.
func (g *globalOptions) configFiles(p paths.Paths) []string {
	if g.configFile != "" {
		return []string{g.configFile}
	}
	return p.ConfigFiles()
}

// setup resolves paths, loads the configuration and builds the pipeline.
func (g *globalOptions) setup() (*app, error) {
	format, err := ui.ParseFormat(g.format)
	if err != nil {
		return nil, fmt.Errorf(MsgErrFormat, err)
	}

	p, err := paths.New(g.project)
	if err != nil {
		return nil, fmt.Errorf(MsgErrInitPaths, err)
	}
	if err := logging.AttachFile(p.LogFilePath()); err != nil {
		log.Warn().Err(err).Msg("Logging to console only")
	}

	cfg, err := config.Load(g.configFiles(p), nil)
	if err != nil {
		return nil, fmt.Errorf(MsgErrLoadConfig, err)
	}
	if cfg.Source != "" {
		log.Debug().Str("config", cfg.Source).Msg("Loaded configuration file")
	}

	pl, err := pipeline.New(p, cfg, pipeline.WithAdapters(g.adapters...))
	if err != nil {
		return nil, err
	}

	return &app{paths: p, cfg: cfg, pipeline: pl, format: format}, nil
}

// options builds pipeline options from the configuration and the shared flags.
func (a *app) options(g *globalOptions, scope string, targetNames []string) (pipeline.Options, error) {
	opts := pipeline.OptionsFromConfig(a.cfg)
	opts.DryRun = g.dryRun
	opts.Targets = targetNames
	if scope != "" {
		f, err := types.ParseScopeFilter(scope)
		if err != nil {
			return opts, fmt.Errorf(MsgErrScope, err)
		}
		opts.Scope = f
	}
	return opts, nil
}

// targetNamesCompletion provides shell completion for configured targets
func targetNamesCompletion(g *globalOptions) func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
	return func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		a, err := g.setup()
		if err != nil {
			return nil, cobra.ShellCompDirectiveError
		}

		used := make(map[string]bool, len(args))
		for _, arg := range args {
			used[arg] = true
		}
		var names []string
		for _, name := range a.cfg.TargetNames() {
			if !used[name] {
				names = append(names, name)
			}
		}
		return names, cobra.ShellCompDirectiveNoFileComp
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "version",
		Short:   MsgVersionShort,
		GroupID: "misc",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "harnesssync %s (commit %s, built %s)\n",
				version.Version, version.Commit, version.Date)
			return err
		},
	}
}
