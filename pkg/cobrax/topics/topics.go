// Package topics adds free-form help topics to a cobra application. Topics
// are files in an fs.FS (usually embedded); "app help <topic>" prints one
// and "app help topics" lists them. Anything that is not a topic falls back
// to cobra's own command help.
package topics

import (
	"fmt"
	"io"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/spf13/cobra"
)

// ListKeyword is the help argument that lists the topics.
const ListKeyword = "topics"

// optionPrefix marks topics that document a flag, e.g. option-dry-run.md.
const optionPrefix = "option-"

// Topic is one help file.
type Topic struct {
	Name string
	Ext  string
	Body string
}

// Options configures Load.
type Options struct {
	// Extensions accepted as topics. Defaults to .md and .txt.
	Extensions []string
	// Renderer formats topics before printing. Defaults to PlainRenderer.
	Renderer Renderer
}

// Manager holds the loaded topics.
type Manager struct {
	topics   map[string]Topic
	renderer Renderer
}

// Load reads every topic file under root in fsys. Topic names are file base
// names without extension; a later duplicate replaces an earlier one.
func Load(fsys fs.FS, root string, opts Options) (*Manager, error) {
	exts := opts.Extensions
	if len(exts) == 0 {
		exts = []string{".md", ".txt"}
	}
	m := &Manager{topics: make(map[string]Topic), renderer: opts.Renderer}
	if m.renderer == nil {
		m.renderer = PlainRenderer{}
	}

	err := fs.WalkDir(fsys, root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := path.Ext(p)
		if !contains(exts, ext) {
			return nil
		}
		body, err := fs.ReadFile(fsys, p)
		if err != nil {
			return err
		}
		name := strings.TrimSuffix(path.Base(p), ext)
		m.topics[name] = Topic{Name: name, Ext: ext, Body: string(body)}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load help topics: %w", err)
	}
	return m, nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// Get finds a topic by name. Flag spellings ("--dry-run") find the
// matching option topic.
func (m *Manager) Get(name string) (Topic, bool) {
	name = strings.TrimLeft(name, "-")
	if t, ok := m.topics[name]; ok {
		return t, true
	}
	t, ok := m.topics[optionPrefix+name]
	return t, ok
}

// Names lists the topic names in lexical order.
func (m *Manager) Names() []string {
	names := make([]string, 0, len(m.topics))
	for name := range m.topics {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Render returns a topic formatted by the manager's renderer.
func (m *Manager) Render(t Topic) string {
	return m.renderer.Render(t.Body, t.Ext)
}

// WriteList prints the topics, general ones first, then option topics.
func (m *Manager) WriteList(w io.Writer, app string) {
	names := m.Names()
	if len(names) == 0 {
		fmt.Fprintln(w, "No help topics available.")
		return
	}

	var general, options []string
	for _, name := range names {
		if strings.HasPrefix(name, optionPrefix) {
			options = append(options, "--"+strings.TrimPrefix(name, optionPrefix))
		} else {
			general = append(general, name)
		}
	}

	fmt.Fprintln(w, "Available help topics:")
	if len(general) > 0 {
		fmt.Fprintln(w, "\nGeneral topics:")
		for _, name := range general {
			fmt.Fprintf(w, "  %s\n", name)
		}
	}
	if len(options) > 0 {
		fmt.Fprintln(w, "\nOption topics:")
		for _, name := range options {
			fmt.Fprintf(w, "  %s\n", name)
		}
	}
	fmt.Fprintf(w, "\nUse '%s help <topic>' to read about a specific topic.\n", app)
}

// Install replaces root's help command with one that also knows about the
// topics in m.
func Install(root *cobra.Command, m *Manager) {
	commandHelp := root.HelpFunc()

	helpCmd := &cobra.Command{
		Use:   "help [command or topic]",
		Short: "Help about any command or topic",
		Long: "Help provides help for any command or topic.\n\n" +
			"To see all available help topics:\n  " + root.Name() + " help " + ListKeyword,
		ValidArgsFunction: func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
			completions := []string{ListKeyword}
			for _, c := range root.Commands() {
				if !c.Hidden {
					completions = append(completions, c.Name())
				}
			}
			completions = append(completions, m.Names()...)
			return completions, cobra.ShellCompDirectiveNoFileComp
		},
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			switch {
			case len(args) == 0:
				commandHelp(root, args)
			case args[0] == ListKeyword:
				m.WriteList(out, root.Name())
			default:
				if t, ok := m.Get(args[0]); ok {
					fmt.Fprint(out, m.Render(t))
					return
				}
				target, _, err := root.Find(args)
				if err != nil || target == nil {
					target = root
				}
				commandHelp(target, args)
			}
		},
	}

	for _, c := range root.Commands() {
		if c.Name() == "help" {
			root.RemoveCommand(c)
			break
		}
	}
	root.SetHelpCommand(helpCmd)
}
