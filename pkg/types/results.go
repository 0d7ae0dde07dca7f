package types

// Category is a kind of configuration an adapter syncs.
type Category string

const (
	CategoryRules    Category = "rules"
	CategorySkills   Category = "skills"
	CategoryAgents   Category = "agents"
	CategoryCommands Category = "commands"
	CategoryMCP      Category = "mcp"
	CategorySettings Category = "settings"
)

// Categories lists the known categories in reporting order.
var Categories = []Category{
	CategoryRules,
	CategorySkills,
	CategoryAgents,
	CategoryCommands,
	CategoryMCP,
	CategorySettings,
}

// Item is one processed configuration item. Reason explains adapted and
// failed items and is empty otherwise.
type Item struct {
	Name   string `json:"name"`
	Reason string `json:"reason,omitempty"`
}

// SyncResult is what an adapter reports for one category of one target.
type SyncResult struct {
	Synced  []Item `json:"synced,omitempty"`
	Adapted []Item `json:"adapted,omitempty"`
	Skipped []Item `json:"skipped,omitempty"`
	Failed  []Item `json:"failed,omitempty"`

	// Written lists the target files the adapter wrote; their hashes become
	// the drift baseline for the next sync.
	Written []string `json:"written,omitempty"`
}

// Total is the number of items processed.
func (r SyncResult) Total() int {
	return len(r.Synced) + len(r.Adapted) + len(r.Skipped) + len(r.Failed)
}

// Merge combines two results additively.
func (r SyncResult) Merge(other SyncResult) SyncResult {
	return SyncResult{
		Synced:  append(append([]Item{}, r.Synced...), other.Synced...),
		Adapted: append(append([]Item{}, r.Adapted...), other.Adapted...),
		Skipped: append(append([]Item{}, r.Skipped...), other.Skipped...),
		Failed:  append(append([]Item{}, r.Failed...), other.Failed...),
		Written: append(append([]string{}, r.Written...), other.Written...),
	}
}

// TargetResult holds the per-category results of one target.
type TargetResult map[Category]SyncResult

// Counts sums the four buckets over every category.
func (t TargetResult) Counts() (synced, adapted, skipped, failed int) {
	for _, r := range t {
		synced += len(r.Synced)
		adapted += len(r.Adapted)
		skipped += len(r.Skipped)
		failed += len(r.Failed)
	}
	return synced, adapted, skipped, failed
}

// Written returns every file written for the target.
func (t TargetResult) Written() []string {
	var out []string
	for _, c := range Categories {
		out = append(out, t[c].Written...)
	}
	for c, r := range t {
		if !isKnownCategory(c) {
			out = append(out, r.Written...)
		}
	}
	return out
}

func isKnownCategory(c Category) bool {
	for _, known := range Categories {
		if known == c {
			return true
		}
	}
	return false
}
