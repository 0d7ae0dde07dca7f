// Package paths provides centralized path handling for harnesssync.
//
// It resolves three families of locations:
//
//   - harnesssync's own directories (state, backups, locks, log file, user
//     config), following the XDG Base Directory specification
//   - the Claude configuration it reads from (the Claude home directory,
//     ~/.claude.json, the plugin registry and settings)
//   - the project being synced (its .mcp.json and .claude directory)
//
// # Environment Variables
//
//   - HARNESSSYNC_HOME: overrides the state directory (default: $XDG_STATE_HOME/harnesssync)
//   - HARNESSSYNC_CONFIG_DIR: overrides the config directory (default: $XDG_CONFIG_HOME/harnesssync)
//   - CLAUDE_CONFIG_DIR: overrides the Claude home directory (default: ~/.claude)
//
// # Usage
//
//	p, err := paths.New("")  // project = git root, or the working directory
//	if err != nil {
//	    return err
//	}
//	p.StateFile()       // ~/.local/state/harnesssync/projects/<key>/state.json
//	p.BackupRoot()      // ~/.local/state/harnesssync/projects/<key>/backups
//	p.LockPath()        // ~/.local/state/harnesssync/locks/<key>.lock
//	p.PluginRegistry()  // ~/.claude/plugins/installed_plugins.json
package paths
