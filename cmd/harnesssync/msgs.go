package harnesssync

import (
	_ "embed"
	"strings"
)

// Short messages (one-liners)
const (
	// Command descriptions
	MsgRootShort          = "Keep other AI coding CLIs in sync with your Claude Code setup"
	MsgSyncShort          = "Sync configuration into the target CLIs"
	MsgCheckShort         = "Report drifted target files and likely secrets without syncing"
	MsgResolveShort       = "Show the merged MCP server view with provenance"
	MsgStatusShort        = "Show per-target sync status"
	MsgCleanLinksShort    = "Remove broken symlinks from target link directories"
	MsgBackupsShort       = "Inspect and prune backups"
	MsgBackupsListShort   = "List backups per target, newest first"
	MsgBackupsPruneShort  = "Delete all but the newest backups of each target"
	MsgConfigShort        = "Show harnesssync's own configuration"
	MsgConfigShowShort    = "Print the effective configuration"
	MsgConfigDefaultShort = "Print the built-in defaults"
	MsgVersionShort       = "Print version information"

	// Status messages
	MsgDryRunNotice     = "\nDRY RUN MODE - No changes were made"
	MsgDebounced        = "Skipped: the previous sync finished less than %s ago (use --force to sync anyway)\n"
	MsgNoAdapters       = "No target has an adapter registered; nothing was written."
	MsgTargetSynced     = "  ✓ %s: %d synced, %d adapted, %d skipped, %d failed\n"
	MsgTargetRolledBack = "  ✗ %s: failed, changes rolled back\n"
	MsgPreviewTarget    = "\n%s would receive:\n"
	MsgPreviewItem      = "  %s: %s\n"
	MsgLinksRemoved     = "Removed %d broken symlink(s)\n"
	MsgLinkItem         = "  %s\n"
	MsgLinksWouldRemove = "Would remove %d broken symlink(s)\n"
	MsgNoBrokenLinks    = "No broken symlinks."
	MsgBackupsPruned    = "Deleted %d old backup(s)\n"
	MsgNoBackups        = "No backups."
	MsgNoServers        = "No MCP servers found."
	MsgSkippedLayer     = "⚠ skipped %s (%s): %v\n"
	MsgDisabledPackages = "Disabled packages: %s\n"
	MsgPackageDrift     = "  %s: %s\n"
	MsgPackageDriftHead = "\nPackages changed since last sync:"
	MsgCheckClean       = "No drift and no likely secrets."
	MsgNeverSynced      = "never"

	// Error messages
	MsgErrInitPaths   = "failed to initialize paths: %w"
	MsgErrLoadConfig  = "failed to load configuration: %w"
	MsgErrFormat      = "invalid --format: %w"
	MsgErrScope       = "invalid --scope: %w"
	MsgErrBlocked     = "sync blocked: potential secrets in MCP server environment"
	MsgErrCheckFailed = "check found %d potential secret(s)"

	// Flag descriptions
	MsgFlagVerbose      = "Increase verbosity (-v INFO, -vv DEBUG, -vvv TRACE)"
	MsgFlagDryRun       = "Preview changes without executing them"
	MsgFlagProject      = "Project directory (default: enclosing git repository or current directory)"
	MsgFlagConfig       = "Config file to use instead of the default locations"
	MsgFlagFormat       = "Output format: auto, term, text, json, yaml or toml"
	MsgFlagAllowSecrets = "Sync even when server environments look like they hold secrets (NOT recommended)"
	MsgFlagScope        = "Configuration scopes to read: user, project or all"
	MsgFlagTarget       = "Limit to this target (repeatable)"
	MsgFlagForce        = "Sync even within the debounce window"
	MsgFlagKeep         = "Backups to keep per target (default from config)"
)

// Long messages from embedded files
var (
	//go:embed msgs/root-long.txt
	msgRootLongRaw string
	MsgRootLong    = strings.TrimSpace(msgRootLongRaw)

	//go:embed msgs/sync-long.txt
	msgSyncLongRaw string
	MsgSyncLong    = strings.TrimSpace(msgSyncLongRaw)

	//go:embed msgs/sync-example.txt
	msgSyncExampleRaw string
	MsgSyncExample    = strings.TrimRight(msgSyncExampleRaw, "\n")

	//go:embed msgs/status-long.txt
	msgStatusLongRaw string
	MsgStatusLong    = strings.TrimSpace(msgStatusLongRaw)

	//go:embed msgs/resolve-long.txt
	msgResolveLongRaw string
	MsgResolveLong    = strings.TrimSpace(msgResolveLongRaw)

	//go:embed msgs/usage-template.txt
	msgUsageTemplateRaw string
	MsgUsageTemplate    = strings.TrimSpace(msgUsageTemplateRaw)
)
