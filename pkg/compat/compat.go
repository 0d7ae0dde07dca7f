// Package compat turns the per-target adapter results of a sync into a
// compatibility report: what each target received verbatim, what had to be
// translated, what was left alone and what failed.
package compat

import (
	"sort"

	"github.com/arthur-debert/harnesssync/pkg/types"
)

// Status is the overall outcome for one target.
type Status string

const (
	StatusSuccess Status = "success"
	StatusPartial Status = "partial"
	StatusFailed  Status = "failed"
	StatusNothing Status = "nothing"
)

var explanations = map[types.Category]string{
	types.CategoryRules:    "Rules content concatenated/inlined to target format",
	types.CategoryAgents:   "Agent .md files converted to target skill/agent format",
	types.CategoryCommands: "Command .md files converted to target format",
	types.CategoryMCP:      "MCP server config translated from JSON to target format",
	types.CategorySettings: "Settings mapped with conservative permission defaults",
	types.CategorySkills:   "Skills synced via symlinks",
}

// Explanation says how items of a category are adapted to a target.
func Explanation(c types.Category) string {
	if e, ok := explanations[c]; ok {
		return e
	}
	return string(c) + " adapted to target format"
}

// Line is the count of one bucket of one category.
type Line struct {
	Category    types.Category `json:"category" yaml:"category" toml:"category"`
	Count       int            `json:"count" yaml:"count" toml:"count"`
	Explanation string         `json:"explanation,omitempty" yaml:"explanation,omitempty" toml:"explanation,omitempty"`
	Items       []types.Item   `json:"items,omitempty" yaml:"items,omitempty" toml:"items,omitempty"`
}

// Summary totals the buckets of a target, or of the whole report.
type Summary struct {
	Synced  int    `json:"synced" yaml:"synced" toml:"synced"`
	Adapted int    `json:"adapted" yaml:"adapted" toml:"adapted"`
	Skipped int    `json:"skipped" yaml:"skipped" toml:"skipped"`
	Failed  int    `json:"failed" yaml:"failed" toml:"failed"`
	Status  Status `json:"status,omitempty" yaml:"status,omitempty" toml:"status,omitempty"`
}

// TargetReport is the breakdown of one target. Lines are in category order.
type TargetReport struct {
	Synced  []Line  `json:"synced,omitempty" yaml:"synced,omitempty" toml:"synced,omitempty"`
	Adapted []Line  `json:"adapted,omitempty" yaml:"adapted,omitempty" toml:"adapted,omitempty"`
	Skipped []Line  `json:"skipped,omitempty" yaml:"skipped,omitempty" toml:"skipped,omitempty"`
	Failed  []Line  `json:"failed,omitempty" yaml:"failed,omitempty" toml:"failed,omitempty"`
	Summary Summary `json:"summary" yaml:"summary" toml:"summary"`
}

// Report maps target names to their breakdown. It is derived from adapter
// results on every sync and never persisted.
type Report map[string]TargetReport

// Generate buckets every item of every target.
func Generate(results map[string]types.TargetResult) Report {
	report := make(Report, len(results))
	for name, result := range results {
		report[name] = generateTarget(result)
	}
	return report
}

func generateTarget(result types.TargetResult) TargetReport {
	var tr TargetReport
	for _, category := range orderedCategories(result) {
		r := result[category]

		if n := len(r.Synced); n > 0 {
			tr.Synced = append(tr.Synced, Line{Category: category, Count: n, Items: r.Synced})
			tr.Summary.Synced += n
		}
		if n := len(r.Adapted); n > 0 {
			tr.Adapted = append(tr.Adapted, Line{Category: category, Count: n, Explanation: Explanation(category), Items: r.Adapted})
			tr.Summary.Adapted += n
		}
		if n := len(r.Skipped); n > 0 {
			tr.Skipped = append(tr.Skipped, Line{Category: category, Count: n, Items: r.Skipped})
			tr.Summary.Skipped += n
		}
		if n := len(r.Failed); n > 0 {
			tr.Failed = append(tr.Failed, Line{Category: category, Count: n, Items: r.Failed})
			tr.Summary.Failed += n
		}
	}
	tr.Summary.Status = statusOf(tr.Summary)
	return tr
}

// orderedCategories lists the known categories first, in reporting order,
// then any others alphabetically.
func orderedCategories(result types.TargetResult) []types.Category {
	var out []types.Category
	known := make(map[types.Category]bool, len(types.Categories))
	for _, c := range types.Categories {
		known[c] = true
		if _, ok := result[c]; ok {
			out = append(out, c)
		}
	}

	var extra []types.Category
	for c := range result {
		if !known[c] {
			extra = append(extra, c)
		}
	}
	sort.Slice(extra, func(i, j int) bool { return extra[i] < extra[j] })
	return append(out, extra...)
}

func statusOf(s Summary) Status {
	switch {
	case s.Failed > 0 && s.Synced+s.Adapted > 0:
		return StatusPartial
	case s.Failed > 0:
		return StatusFailed
	case s.Synced+s.Adapted+s.Skipped == 0:
		return StatusNothing
	default:
		return StatusSuccess
	}
}

// HasIssues reports whether any target has adapted or failed items. Clean
// syncs do not surface a report.
func HasIssues(r Report) bool {
	for _, tr := range r {
		if tr.Summary.Adapted > 0 || tr.Summary.Failed > 0 {
			return true
		}
	}
	return false
}

// Totals sums the summaries of every target. The status is left empty.
func (r Report) Totals() Summary {
	var total Summary
	for _, tr := range r {
		total.Synced += tr.Summary.Synced
		total.Adapted += tr.Summary.Adapted
		total.Skipped += tr.Summary.Skipped
		total.Failed += tr.Summary.Failed
	}
	return total
}

// Targets returns the target names in lexical order.
func (r Report) Targets() []string {
	return types.SortedNames(r)
}
