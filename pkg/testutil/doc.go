// Package testutil provides utilities for testing harnesssync components.
//
// Key components:
//   - TestEnvironment: an isolated home, project and state directory with the
//     environment variables pointed at them and a matching paths.Paths
//   - file helpers: CreateFile, WriteJSON, CreateSymlink and friends, all
//     failing the test on error
//
// Usage guidelines:
//   - Tests touching symlinks use the real filesystem under t.TempDir()
//   - Pure content tests may use filesystem.NewMemory() instead
//   - All test data should be defined inline, not in external files
package testutil
