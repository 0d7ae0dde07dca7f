// Package source discovers the configuration harnesssync mirrors into its
// targets and resolves MCP server definitions across scopes.
//
// Server definitions come from four layers, folded in ascending precedence
// into one map keyed by server name:
//
//  1. user-package: servers contributed by installed, enabled packages
//  2. user-file:    ~/.claude.json mcpServers
//  3. project:      <project>/.mcp.json mcpServers
//  4. local:        ~/.claude.json projects[<abs project>].mcpServers
//
// A later layer replaces an earlier entry of the same name entirely,
// provenance included. A layer whose file cannot be parsed is skipped and
// reported; resolution continues with the others.
package source

import (
	"encoding/json"
	"sort"

	"github.com/arthur-debert/harnesssync/pkg/logging"
	"github.com/arthur-debert/harnesssync/pkg/paths"
	"github.com/arthur-debert/harnesssync/pkg/types"
	"github.com/rs/zerolog"
)

// Layer names, in precedence order.
const (
	LayerUserPackage = "user-package"
	LayerUserFile    = "user-file"
	LayerProject     = "project"
	LayerLocal       = "local"
)

// Layer is one source of server definitions.
type Layer struct {
	Name   string
	Scope  types.Scope
	Origin types.Origin
	Load   func() (map[string]types.ConfigEntry, []LayerError)
}

// LayerError records a file that was skipped during discovery.
type LayerError struct {
	Layer string `json:"layer"`
	Path  string `json:"path"`
	Err   error  `json:"-"`
}

func (e LayerError) Error() string {
	return e.Layer + ": " + e.Path + ": " + e.Err.Error()
}

// MarshalJSON includes the error text.
func (e LayerError) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]string{"layer": e.Layer, "path": e.Path, "error": e.Err.Error()})
}

// LayerResult is what one layer contributed before merging.
type LayerResult struct {
	Name    string                       `json:"name"`
	Scope   types.Scope                  `json:"scope"`
	Origin  types.Origin                 `json:"origin"`
	Entries map[string]types.ConfigEntry `json:"entries"`
}

// Resolution is the merged view of every participating layer.
type Resolution struct {
	Servers          map[string]types.ConfigEntry `json:"servers"`
	Skipped          []LayerError                 `json:"skipped,omitempty"`
	DisabledPackages []string                     `json:"disabled_packages,omitempty"`
	Layers           []LayerResult                `json:"-"`
}

// Flat returns the resolved definitions without provenance.
func (r *Resolution) Flat() map[string]types.ServerConfig {
	flat := make(map[string]types.ServerConfig, len(r.Servers))
	for name, entry := range r.Servers {
		flat[name] = entry.Config
	}
	return flat
}

// Entries returns the resolved entries ordered by name.
func (r *Resolution) Entries() []types.ConfigEntry {
	out := make([]types.ConfigEntry, 0, len(r.Servers))
	for _, name := range types.SortedNames(r.Servers) {
		out = append(out, r.Servers[name])
	}
	return out
}

// Resolver reads configuration for one project.
type Resolver struct {
	fs     types.FS
	paths  paths.Paths
	scope  types.ScopeFilter
	logger zerolog.Logger

	claudeJSON *claudeJSONCache
}

// New creates a resolver. scope limits which layers participate.
func New(fsys types.FS, p paths.Paths, scope types.ScopeFilter) *Resolver {
	return &Resolver{
		fs:     fsys,
		paths:  p,
		scope:  scope,
		logger: logging.GetLogger("source"),
	}
}

// Layers returns the participating layers in ascending precedence.
func (r *Resolver) Layers() []Layer {
	var layers []Layer
	if r.scope.IncludesUser() {
		layers = append(layers,
			Layer{Name: LayerUserPackage, Scope: types.ScopeUser, Origin: types.OriginPackage, Load: r.loadPackages},
			Layer{Name: LayerUserFile, Scope: types.ScopeUser, Origin: types.OriginFile, Load: r.loadUserFile},
		)
	}
	if r.scope.IncludesProject() {
		layers = append(layers,
			Layer{Name: LayerProject, Scope: types.ScopeProject, Origin: types.OriginFile, Load: r.loadProjectFile},
			Layer{Name: LayerLocal, Scope: types.ScopeLocal, Origin: types.OriginFile, Load: r.loadLocal},
		)
	}
	return layers
}

// DiscoverLayers loads every participating layer without merging them.
func (r *Resolver) DiscoverLayers() ([]LayerResult, []LayerError) {
	r.claudeJSON = nil
	defer func() { r.claudeJSON = nil }()

	var results []LayerResult
	var skipped []LayerError
	for _, layer := range r.Layers() {
		entries, errs := layer.Load()
		for _, e := range errs {
			r.logger.Warn().Err(e.Err).Str("layer", e.Layer).Str("path", e.Path).Msg("Skipping malformed configuration")
		}
		skipped = append(skipped, errs...)
		results = append(results, LayerResult{
			Name:    layer.Name,
			Scope:   layer.Scope,
			Origin:  layer.Origin,
			Entries: entries,
		})
	}
	return results, skipped
}

// Resolve discovers every layer and folds them into one view.
func (r *Resolver) Resolve() (*Resolution, error) {
	done := logging.Track(r.logger, "resolve")
	defer done()

	layers, skipped := r.DiscoverLayers()

	res := &Resolution{
		Servers: make(map[string]types.ConfigEntry),
		Skipped: skipped,
		Layers:  layers,
	}
	for _, layer := range layers {
		for name, entry := range layer.Entries {
			if prev, ok := res.Servers[name]; ok {
				r.logger.Debug().
					Str("server", name).
					Str("from", prev.Provenance.String()).
					Str("to", entry.Provenance.String()).
					Msg("Server overridden by higher precedence layer")
			}
			res.Servers[name] = entry
		}
	}

	if r.scope.IncludesUser() {
		res.DisabledPackages = r.disabledPackageKeys()
	}

	r.logger.Info().
		Int("servers", len(res.Servers)).
		Int("skipped", len(res.Skipped)).
		Str("scope", string(r.scope)).
		Msg("Resolved server definitions")
	return res, nil
}

// entriesFrom validates servers and tags them with provenance. Definitions
// without a command or url are dropped.
func (r *Resolver) entriesFrom(layer string, servers map[string]types.ServerConfig, prov types.Provenance) map[string]types.ConfigEntry {
	entries := make(map[string]types.ConfigEntry, len(servers))
	for name, cfg := range servers {
		if !cfg.IsValid() {
			r.logger.Debug().Str("layer", layer).Str("server", name).Msg("Dropping server without command or url")
			continue
		}
		entries[name] = types.ConfigEntry{Name: name, Config: cfg, Provenance: prov}
	}
	return entries
}

func (r *Resolver) loadUserFile() (map[string]types.ConfigEntry, []LayerError) {
	doc, err := r.readClaudeJSON()
	if err != nil {
		return nil, []LayerError{{Layer: LayerUserFile, Path: r.paths.ClaudeJSON(), Err: err}}
	}
	servers := decodeServers(doc["mcpServers"])
	return r.entriesFrom(LayerUserFile, servers, types.Provenance{
		Scope:      types.ScopeUser,
		Origin:     types.OriginFile,
		SourcePath: r.paths.ClaudeJSON(),
	}), nil
}

func (r *Resolver) loadProjectFile() (map[string]types.ConfigEntry, []LayerError) {
	path := r.paths.ProjectMCP()
	doc, _, err := readObject(r.fs, path)
	if err != nil {
		return nil, []LayerError{{Layer: LayerProject, Path: path, Err: err}}
	}
	return r.entriesFrom(LayerProject, decodeServers(doc["mcpServers"]), types.Provenance{
		Scope:      types.ScopeProject,
		Origin:     types.OriginFile,
		SourcePath: path,
	}), nil
}

func (r *Resolver) loadLocal() (map[string]types.ConfigEntry, []LayerError) {
	doc, err := r.readClaudeJSON()
	if err != nil {
		return nil, []LayerError{{Layer: LayerLocal, Path: r.paths.ClaudeJSON(), Err: err}}
	}

	var projects map[string]struct {
		MCPServers json.RawMessage `json:"mcpServers"`
	}
	if raw, ok := doc["projects"]; ok {
		if err := json.Unmarshal(raw, &projects); err != nil {
			r.logger.Debug().Err(err).Msg("Ignoring malformed projects section")
			return nil, nil
		}
	}

	project, ok := projects[r.paths.ProjectDir()]
	if !ok {
		return nil, nil
	}
	return r.entriesFrom(LayerLocal, decodeServers(project.MCPServers), types.Provenance{
		Scope:      types.ScopeLocal,
		Origin:     types.OriginFile,
		SourcePath: r.paths.ClaudeJSON(),
	}), nil
}

// claudeJSONCache holds ~/.claude.json for one discovery pass, since two
// layers read it.
type claudeJSONCache struct {
	doc map[string]json.RawMessage
	err error
}

func (r *Resolver) readClaudeJSON() (map[string]json.RawMessage, error) {
	if r.claudeJSON == nil {
		doc, _, err := readObject(r.fs, r.paths.ClaudeJSON())
		r.claudeJSON = &claudeJSONCache{doc: doc, err: err}
	}
	return r.claudeJSON.doc, r.claudeJSON.err
}

// sortedKeys returns the keys of a set in lexical order.
func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
