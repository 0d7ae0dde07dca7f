// Package state persists what harnesssync knows about past syncs of a
// project: per-target file hashes and item counts, installed package
// summaries and the time of the last sync.
//
// The state file is JSON written atomically (temp file, fsync, rename). A
// file that cannot be parsed is moved aside and replaced by an empty state.
package state
