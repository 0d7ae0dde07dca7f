// Package ui decides how harnesssync output is rendered and provides the
// shared pieces every command uses: format detection, structured encoders,
// semantic lipgloss styles and pterm tables.
package ui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"
)

// Format selects how a command prints its result. Terminal and Text are
// for people; JSON, YAML and TOML are encodings of the same values.
type Format int

const (
	FormatAuto Format = iota
	FormatTerminal
	FormatText
	FormatJSON
	FormatYAML
	FormatTOML
)

var formatNames = [...]string{
	FormatAuto:     "auto",
	FormatTerminal: "term",
	FormatText:     "text",
	FormatJSON:     "json",
	FormatYAML:     "yaml",
	FormatTOML:     "toml",
}

// formatAliases are accepted by ParseFormat besides the canonical names.
var formatAliases = map[string]Format{
	"":         FormatAuto,
	"terminal": FormatTerminal,
	"plain":    FormatText,
	"yml":      FormatYAML,
}

func (f Format) String() string {
	if f < 0 || int(f) >= len(formatNames) {
		return "unknown"
	}
	return formatNames[f]
}

// IsStructured is true for the data encodings.
func (f Format) IsStructured() bool {
	switch f {
	case FormatJSON, FormatYAML, FormatTOML:
		return true
	}
	return false
}

// ParseFormat accepts a canonical name or alias, case-insensitively.
func ParseFormat(s string) (Format, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range formatNames {
		if name == s {
			return Format(i), nil
		}
	}
	if f, ok := formatAliases[s]; ok {
		return f, nil
	}
	return FormatAuto, fmt.Errorf("unknown format %q (want one of %s)", s, strings.Join(formatNames[:], ", "))
}

// DetectFormat picks Terminal only for a color-capable tty and when
// NO_COLOR is unset.
func DetectFormat(out *os.File) Format {
	if os.Getenv("NO_COLOR") != "" {
		return FormatText
	}
	fd := out.Fd()
	if !isatty.IsTerminal(fd) && !isatty.IsCygwinTerminal(fd) {
		return FormatText
	}
	if termenv.ColorProfile() == termenv.Ascii {
		return FormatText
	}
	return FormatTerminal
}

// Resolve turns FormatAuto into a concrete format for w. Writers that are
// not files never get terminal styling.
func Resolve(format Format, w io.Writer) Format {
	if format != FormatAuto {
		return format
	}
	if f, ok := w.(*os.File); ok {
		return DetectFormat(f)
	}
	return FormatText
}
