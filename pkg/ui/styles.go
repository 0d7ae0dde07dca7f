package ui

import (
	"github.com/charmbracelet/lipgloss"
)

// Semantic style names. Every styled fragment of output goes through one of
// these so light and dark terminals get consistent colors.
const (
	StyleHeader  = "Header"
	StyleTarget  = "Target"
	StyleSynced  = "Synced"
	StyleAdapted = "Adapted"
	StyleSkipped = "Skipped"
	StyleFailed  = "Failed"
	StyleMuted   = "Muted"
	StyleWarning = "Warning"
)

var colors = map[string]lipgloss.AdaptiveColor{
	"green":  {Light: "#1a7f37", Dark: "#3fb950"},
	"yellow": {Light: "#9a6700", Dark: "#d29922"},
	"red":    {Light: "#cf222e", Dark: "#f85149"},
	"blue":   {Light: "#0969da", Dark: "#58a6ff"},
	"gray":   {Light: "#6e7781", Dark: "#8b949e"},
}

var styleRegistry = map[string]lipgloss.Style{
	StyleHeader:  lipgloss.NewStyle().Bold(true),
	StyleTarget:  lipgloss.NewStyle().Bold(true).Foreground(colors["blue"]),
	StyleSynced:  lipgloss.NewStyle().Foreground(colors["green"]),
	StyleAdapted: lipgloss.NewStyle().Foreground(colors["yellow"]),
	StyleSkipped: lipgloss.NewStyle().Foreground(colors["gray"]),
	StyleFailed:  lipgloss.NewStyle().Bold(true).Foreground(colors["red"]),
	StyleMuted:   lipgloss.NewStyle().Faint(true),
	StyleWarning: lipgloss.NewStyle().Foreground(colors["yellow"]),
}

// GetStyle returns the named style, or an unstyled one for unknown names.
func GetStyle(name string) lipgloss.Style {
	if style, ok := styleRegistry[name]; ok {
		return style
	}
	return lipgloss.NewStyle()
}

// Paint renders s with the named style when format is FormatTerminal and
// returns it untouched otherwise.
func Paint(format Format, name, s string) string {
	if format != FormatTerminal {
		return s
	}
	return GetStyle(name).Render(s)
}
