package types

import "time"

// BackupRecord describes one artifact snapshot taken before a sync overwrote it.
// Records are written once and never modified.
type BackupRecord struct {
	TargetName   string    `json:"target_name"`
	OriginalPath string    `json:"original_path"`
	BackupPath   string    `json:"backup_path"`
	Timestamp    time.Time `json:"timestamp"`
	// Existed is false when the artifact was absent at backup time. Rolling
	// such a record back removes whatever the sync created at OriginalPath.
	Existed bool `json:"existed"`
}

// ConflictStatus classifies a drifted target file.
type ConflictStatus string

const (
	ConflictModified ConflictStatus = "modified"
	ConflictDeleted  ConflictStatus = "deleted"
)

// ConflictEntry is a target file whose content no longer matches the hash
// recorded at the last sync. Conflicts are computed on every check and never stored.
type ConflictEntry struct {
	TargetName  string         `json:"target_name"`
	FilePath    string         `json:"file_path"`
	StoredHash  string         `json:"stored_hash"`
	CurrentHash string         `json:"current_hash"`
	Status      ConflictStatus `json:"status"`
}

// Confidence labels how sure the secret scanner is about a finding.
type Confidence string

const (
	ConfidenceMedium Confidence = "medium"
	ConfidenceHigh   Confidence = "high"
)

// SecretFinding names an environment variable that likely holds a secret.
// It deliberately has no field for the value.
type SecretFinding struct {
	VariableName    string     `json:"variable_name"`
	Server          string     `json:"server,omitempty"`
	MatchedKeywords []string   `json:"matched_keywords"`
	Confidence      Confidence `json:"confidence"`
}
