package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/pterm/pterm"
)

// StatusStyle returns the pterm style for a target sync status.
func StatusStyle(status string) *pterm.Style {
	switch status {
	case "success":
		return pterm.NewStyle(pterm.FgGreen)
	case "partial":
		return pterm.NewStyle(pterm.FgYellow)
	case "failed":
		return pterm.NewStyle(pterm.FgRed, pterm.Bold)
	default:
		return pterm.NewStyle(pterm.FgGray)
	}
}

// RenderTable writes a header row plus rows. Terminal output is a pterm
// table; every other format gets tab separated plain text so it stays
// greppable.
func RenderTable(w io.Writer, format Format, header []string, rows [][]string) error {
	if format != FormatTerminal {
		lines := make([]string, 0, len(rows)+1)
		lines = append(lines, strings.Join(header, "\t"))
		for _, row := range rows {
			lines = append(lines, strings.Join(row, "\t"))
		}
		_, err := fmt.Fprintln(w, strings.Join(lines, "\n"))
		return err
	}

	data := pterm.TableData{header}
	data = append(data, rows...)
	out, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, out)
	return err
}
