package compat

import (
	"fmt"
	"io"
	"strings"

	"github.com/arthur-debert/harnesssync/pkg/types"
	"github.com/arthur-debert/harnesssync/pkg/ui"
)

const (
	ruleWidth       = 60
	maxFailReasons  = 3
	reportTitle     = "Sync Compatibility Report"
	summaryTemplate = "%d synced | %d adapted | %d skipped | %d failed"
)

type painter func(style, s string) string

func plain(_, s string) string { return s }

// Format renders the report as plain text. Targets are sorted, categories
// follow the reporting order and at most three failure reasons are shown
// per category, so the same results always give the same text. An empty
// report renders as "".
func Format(r Report) string {
	return render(r, plain)
}

// Render writes the report to w. Structured formats encode the report
// itself; terminal output gets colors; anything else gets Format's text.
func Render(w io.Writer, r Report, format ui.Format) error {
	format = ui.Resolve(format, w)
	if format.IsStructured() {
		return ui.Encode(w, format, r)
	}

	out := render(r, func(style, s string) string { return ui.Paint(format, style, s) })
	if out == "" {
		return nil
	}
	_, err := fmt.Fprintln(w, out)
	return err
}

func render(r Report, paint painter) string {
	if len(r) == 0 {
		return ""
	}

	heavy := strings.Repeat("=", ruleWidth)
	light := strings.Repeat("-", ruleWidth)

	lines := []string{
		"\n" + heavy,
		paint(ui.StyleHeader, reportTitle),
		heavy,
	}

	for _, name := range r.Targets() {
		tr := r[name]
		lines = append(lines,
			"\n"+paint(ui.StyleTarget, strings.ToUpper(name)),
			light,
		)

		for _, l := range tr.Synced {
			lines = append(lines, paint(ui.StyleSynced, fmt.Sprintf("  ✓ %s: %d synced (direct map)", l.Category, l.Count)))
		}
		for _, l := range tr.Adapted {
			lines = append(lines,
				paint(ui.StyleAdapted, fmt.Sprintf("  → %s: %d adapted", l.Category, l.Count)),
				paint(ui.StyleMuted, fmt.Sprintf("     (%s)", l.Explanation)),
			)
		}
		for _, l := range tr.Skipped {
			lines = append(lines, paint(ui.StyleSkipped, fmt.Sprintf("  - %s: %d skipped", l.Category, l.Count)))
		}
		for _, l := range tr.Failed {
			lines = append(lines, paint(ui.StyleFailed, fmt.Sprintf("  ✗ %s: %d failed", l.Category, l.Count)))
			for i, item := range l.Items {
				if i == maxFailReasons {
					break
				}
				lines = append(lines, paint(ui.StyleMuted, "     Reason: "+failReason(item)))
			}
		}

		s := tr.Summary
		lines = append(lines,
			"\n  Summary: "+fmt.Sprintf(summaryTemplate, s.Synced, s.Adapted, s.Skipped, s.Failed),
			"  Status: "+paint(statusStyle(s.Status), string(s.Status)),
		)
	}

	total := r.Totals()
	lines = append(lines,
		"\n"+heavy,
		"Overall: "+fmt.Sprintf(summaryTemplate, total.Synced, total.Adapted, total.Skipped, total.Failed),
		heavy+"\n",
	)
	return strings.Join(lines, "\n")
}

func failReason(item types.Item) string {
	switch {
	case item.Reason == "":
		return item.Name
	case item.Name == "":
		return item.Reason
	default:
		return item.Name + ": " + item.Reason
	}
}

func statusStyle(s Status) string {
	switch s {
	case StatusSuccess:
		return ui.StyleSynced
	case StatusPartial:
		return ui.StyleAdapted
	case StatusFailed:
		return ui.StyleFailed
	default:
		return ui.StyleSkipped
	}
}
