package harnesssync

import (
	"os"
	"strings"
	"text/template"

	"github.com/mattn/go-isatty"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

// stdoutIsTerminal gates styling in help output; piped help stays plain.
func stdoutIsTerminal() bool {
	fd := os.Stdout.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func templateFuncs() template.FuncMap {
	bold := func(s string) string {
		if !stdoutIsTerminal() {
			return s
		}
		return pterm.Bold.Sprint(s)
	}
	return template.FuncMap{
		"bold":      bold,
		"upper":     strings.ToUpper,
		"boldUpper": func(s string) string { return bold(strings.ToUpper(s)) },
	}
}

// initTemplateFormatting registers the funcs used by the usage template.
func initTemplateFormatting() {
	cobra.AddTemplateFuncs(templateFuncs())
}
