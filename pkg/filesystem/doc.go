// Package filesystem provides the types.FS implementation used by harnesssync.
//
// Everything goes through afero. NewOS is backed by afero.OsFs and is what
// the CLI uses; NewMemory is backed by afero.MemMapFs for tests of
// components that never touch symlinks. New wraps any other afero.Fs, such
// as a read-only or base-path filesystem.
package filesystem
