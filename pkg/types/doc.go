// Package types defines the core types and interfaces used throughout harnesssync.
// This includes the provenance-tagged configuration entries produced by source
// resolution, the records produced by the safety components (backups, conflicts,
// secret findings) and the per-target sync results consumed by reporting.
package types
