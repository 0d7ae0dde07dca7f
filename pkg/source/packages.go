package source

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/arthur-debert/harnesssync/pkg/types"
)

// PluginRootPlaceholder is replaced with a package's install directory in
// every string of its server definitions.
const PluginRootPlaceholder = "${CLAUDE_PLUGIN_ROOT}"

// InstallRecord is one entry of the package registry.
type InstallRecord struct {
	InstallPath string `json:"installPath"`
	Version     string `json:"version"`
	Scope       string `json:"scope"`
	ProjectPath string `json:"projectPath"`
}

// Package is an installed package with its registry key.
type Package struct {
	Key     string
	Name    string
	Enabled bool
	Install InstallRecord
}

// PackageSummary describes what one package contributed to the resolution.
type PackageSummary struct {
	Name    string   `json:"name"`
	Version string   `json:"version"`
	Servers []string `json:"servers"`
}

// Packages summarizes the servers each package contributed, keyed by
// package name. Servers later overridden by a file layer still count.
func (r *Resolution) Packages() map[string]PackageSummary {
	out := make(map[string]PackageSummary)
	for _, layer := range r.Layers {
		if layer.Name != LayerUserPackage {
			continue
		}
		for _, name := range types.SortedNames(layer.Entries) {
			prov := layer.Entries[name].Provenance
			sum := out[prov.PackageName]
			sum.Name = prov.PackageName
			sum.Version = prov.PackageVersion
			sum.Servers = append(sum.Servers, name)
			out[prov.PackageName] = sum
		}
	}
	return out
}

// packageName strips the marketplace suffix from a registry key.
func packageName(key string) string {
	name, _, _ := strings.Cut(key, "@")
	return name
}

// InstalledPackages lists every install record of the registry that applies
// to the current project, ordered by key. Enabled reflects the user
// settings; a package is enabled unless explicitly set to false.
func (r *Resolver) InstalledPackages() ([]Package, error) {
	doc, _, err := readObject(r.fs, r.paths.PluginRegistry())
	if err != nil {
		return nil, err
	}

	var plugins map[string]json.RawMessage
	if raw, ok := doc["plugins"]; ok {
		if err := json.Unmarshal(raw, &plugins); err != nil {
			return nil, fmt.Errorf("invalid plugins section: %w", err)
		}
	}

	enabled := r.enabledPlugins()

	var pkgs []Package
	for _, key := range types.SortedNames(plugins) {
		on := true
		if v, ok := enabled[key]; ok && !v {
			on = false
		}
		for _, rec := range decodeInstalls(plugins[key]) {
			if rec.InstallPath == "" {
				continue
			}
			if !r.installApplies(rec) {
				r.logger.Debug().Str("package", key).Str("project", rec.ProjectPath).Msg("Skipping package installed for another project")
				continue
			}
			pkgs = append(pkgs, Package{Key: key, Name: packageName(key), Enabled: on, Install: rec})
		}
	}
	return pkgs, nil
}

// decodeInstalls accepts either a list of install records or a single one.
func decodeInstalls(raw json.RawMessage) []InstallRecord {
	var list []InstallRecord
	if err := json.Unmarshal(raw, &list); err == nil {
		return list
	}
	var one InstallRecord
	if err := json.Unmarshal(raw, &one); err == nil {
		return []InstallRecord{one}
	}
	return nil
}

// installApplies reports whether a project or local install belongs to the
// current project. User installs always apply.
func (r *Resolver) installApplies(rec InstallRecord) bool {
	switch types.Scope(rec.Scope) {
	case types.ScopeProject, types.ScopeLocal:
		if rec.ProjectPath == "" {
			return true
		}
		return filepath.Clean(rec.ProjectPath) == r.paths.ProjectDir()
	default:
		return true
	}
}

func (r *Resolver) enabledPlugins() map[string]bool {
	doc, _, err := readObject(r.fs, r.paths.ClaudeSettings())
	if err != nil {
		r.logger.Debug().Err(err).Msg("Ignoring unreadable user settings")
		return nil
	}
	var enabled map[string]bool
	if raw, ok := doc["enabledPlugins"]; ok {
		if err := json.Unmarshal(raw, &enabled); err != nil {
			r.logger.Debug().Err(err).Msg("Ignoring malformed enabledPlugins")
			return nil
		}
	}
	return enabled
}

func (r *Resolver) disabledPackageKeys() []string {
	pkgs, err := r.InstalledPackages()
	if err != nil {
		return nil
	}
	set := make(map[string]bool)
	for _, p := range pkgs {
		if !p.Enabled {
			set[p.Key] = true
		}
	}
	if len(set) == 0 {
		return nil
	}
	return sortedKeys(set)
}

func (r *Resolver) loadPackages() (map[string]types.ConfigEntry, []LayerError) {
	pkgs, err := r.InstalledPackages()
	if err != nil {
		return nil, []LayerError{{Layer: LayerUserPackage, Path: r.paths.PluginRegistry(), Err: err}}
	}

	entries := make(map[string]types.ConfigEntry)
	var errs []LayerError
	for _, pkg := range pkgs {
		if !pkg.Enabled {
			r.logger.Debug().Str("package", pkg.Key).Msg("Skipping disabled package")
			continue
		}

		servers, descriptor, err := r.packageServers(pkg.Install.InstallPath)
		if err != nil {
			errs = append(errs, LayerError{Layer: LayerUserPackage, Path: descriptor, Err: err})
			continue
		}

		for _, name := range types.SortedNames(servers) {
			cfg, err := ExpandPlaceholder(servers[name], pkg.Install.InstallPath)
			if err != nil {
				errs = append(errs, LayerError{Layer: LayerUserPackage, Path: descriptor, Err: err})
				continue
			}
			servers[name] = cfg
		}

		for name, entry := range r.entriesFrom(LayerUserPackage, servers, types.Provenance{
			Scope:          types.ScopeUser,
			Origin:         types.OriginPackage,
			PackageName:    pkg.Name,
			PackageVersion: pkg.Install.Version,
			PackageScope:   pkg.Install.Scope,
			SourcePath:     descriptor,
		}) {
			entries[name] = entry
		}
	}
	return entries, errs
}

// packageServers reads the server definitions a package declares. A
// standalone .mcp.json is read first; inline mcpServers in the plugin
// manifest override it. The returned path names the last file read.
func (r *Resolver) packageServers(installPath string) (map[string]types.ServerConfig, string, error) {
	servers := make(map[string]types.ServerConfig)
	descriptor := filepath.Join(installPath, ".mcp.json")

	doc, exists, err := readObject(r.fs, descriptor)
	if err != nil {
		return nil, descriptor, err
	}
	if exists {
		if raw, ok := doc["mcpServers"]; ok {
			mergeServers(servers, decodeServers(raw))
		} else {
			for name, raw := range doc {
				var cfg types.ServerConfig
				if err := json.Unmarshal(raw, &cfg); err == nil && cfg != nil {
					servers[name] = cfg
				}
			}
		}
	}

	for _, manifest := range []string{
		filepath.Join(installPath, ".claude-plugin", "plugin.json"),
		filepath.Join(installPath, "plugin.json"),
	} {
		doc, exists, err := readObject(r.fs, manifest)
		if err != nil {
			return nil, manifest, err
		}
		if !exists {
			continue
		}
		if raw, ok := doc["mcpServers"]; ok {
			mergeServers(servers, decodeServers(raw))
			descriptor = manifest
		}
		break
	}
	return servers, descriptor, nil
}

func mergeServers(dst, src map[string]types.ServerConfig) {
	for name, cfg := range src {
		dst[name] = cfg
	}
}

// ExpandPlaceholder replaces PluginRootPlaceholder with root in every string
// of cfg, however deeply nested.
func ExpandPlaceholder(cfg types.ServerConfig, root string) (types.ServerConfig, error) {
	data, err := json.Marshal(cfg)
	if err != nil {
		return nil, err
	}
	if !strings.Contains(string(data), PluginRootPlaceholder) {
		return cfg, nil
	}

	quoted, err := json.Marshal(root)
	if err != nil {
		return nil, err
	}
	escaped := string(quoted[1 : len(quoted)-1])
	expanded := strings.ReplaceAll(string(data), PluginRootPlaceholder, escaped)

	var out types.ServerConfig
	if err := json.Unmarshal([]byte(expanded), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// EnabledUserPackages returns enabled packages installed at user scope,
// ordered by key.
func (r *Resolver) EnabledUserPackages() []Package {
	pkgs, err := r.InstalledPackages()
	if err != nil {
		r.logger.Warn().Err(err).Str("path", r.paths.PluginRegistry()).Msg("Skipping malformed package registry")
		return nil
	}
	var out []Package
	for _, p := range pkgs {
		if p.Enabled && (p.Install.Scope == "" || types.Scope(p.Install.Scope) == types.ScopeUser) {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}
