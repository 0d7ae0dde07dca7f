package source

import (
	"path/filepath"
	"strings"

	"github.com/arthur-debert/harnesssync/pkg/paths"
	"github.com/arthur-debert/harnesssync/pkg/types"
)

const (
	rulesFileName      = "CLAUDE.md"
	localRulesFileName = "CLAUDE.local.md"
	skillMarker        = "SKILL.md"
	rulesSeparator     = "\n\n---\n\n"
)

// RuleFile is one rules document with the header it is shown under.
type RuleFile struct {
	Label   string `json:"label"`
	Path    string `json:"path"`
	Content string `json:"-"`
}

// Snapshot is everything discovered for one project in a single pass.
type Snapshot struct {
	Rules      string                      `json:"-"`
	RuleFiles  []RuleFile                  `json:"rules"`
	Skills     map[string]string           `json:"skills"`
	Agents     map[string]string           `json:"agents"`
	Commands   map[string]string           `json:"commands"`
	Settings   map[string]any              `json:"settings"`
	Resolution *Resolution                 `json:"mcp"`
	Sources    map[types.Category][]string `json:"-"`
}

// Snapshot discovers every category at once.
func (r *Resolver) Snapshot() (*Snapshot, error) {
	res, err := r.Resolve()
	if err != nil {
		return nil, err
	}
	files := r.RuleFiles()
	return &Snapshot{
		Rules:      JoinRules(files),
		RuleFiles:  files,
		Skills:     r.Skills(),
		Agents:     r.Agents(),
		Commands:   r.Commands(),
		Settings:   r.Settings(),
		Resolution: res,
		Sources:    r.SourcePaths(),
	}, nil
}

// RuleFiles returns the rules documents that exist, user level first.
func (r *Resolver) RuleFiles() []RuleFile {
	type candidate struct{ label, path string }
	var candidates []candidate
	if r.scope.IncludesUser() {
		candidates = append(candidates, candidate{
			"User-level rules from ~/.claude/CLAUDE.md",
			filepath.Join(r.paths.ClaudeHome(), rulesFileName),
		})
	}
	if r.scope.IncludesProject() {
		for _, name := range []string{rulesFileName, localRulesFileName} {
			candidates = append(candidates, candidate{
				"Project rules from " + name,
				filepath.Join(r.paths.ProjectDir(), name),
			})
		}
		candidates = append(candidates, candidate{
			"Project rules from .claude/CLAUDE.md",
			filepath.Join(r.paths.ProjectClaudeDir(), rulesFileName),
		})
	}

	var files []RuleFile
	for _, c := range candidates {
		data, err := r.fs.ReadFile(c.path)
		if err != nil {
			continue
		}
		files = append(files, RuleFile{Label: c.label, Path: c.path, Content: strings.ToValidUTF8(string(data), "�")})
	}
	return files
}

// Rules returns the combined rules text, or "" when there is none.
func (r *Resolver) Rules() string {
	return JoinRules(r.RuleFiles())
}

// JoinRules renders rules documents under their headers.
func JoinRules(files []RuleFile) string {
	sections := make([]string, 0, len(files))
	for _, f := range files {
		sections = append(sections, "# ["+f.Label+"]\n\n"+f.Content)
	}
	return strings.Join(sections, rulesSeparator)
}

// Skills maps skill names to their directories. A skill is a directory
// holding SKILL.md; project skills shadow user skills of the same name.
func (r *Resolver) Skills() map[string]string {
	skills := make(map[string]string)
	for _, dir := range r.skillDirs() {
		entries, err := r.fs.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, e := range entries {
			path := filepath.Join(dir, e.Name())
			info, err := r.fs.Stat(path)
			if err != nil || !info.IsDir() {
				continue
			}
			if _, err := r.fs.Stat(filepath.Join(path, skillMarker)); err != nil {
				continue
			}
			skills[e.Name()] = path
		}
	}
	return skills
}

func (r *Resolver) skillDirs() []string {
	var dirs []string
	if r.scope.IncludesUser() {
		dirs = append(dirs, filepath.Join(r.paths.ClaudeHome(), "skills"))
		for _, pkg := range r.EnabledUserPackages() {
			dirs = append(dirs, filepath.Join(pkg.Install.InstallPath, "skills"))
		}
	}
	if r.scope.IncludesProject() {
		dirs = append(dirs, filepath.Join(r.paths.ProjectClaudeDir(), "skills"))
	}
	return dirs
}

// Agents maps agent names to their definition files.
func (r *Resolver) Agents() map[string]string {
	return r.markdownFiles("agents")
}

// Commands maps slash command names to their definition files.
func (r *Resolver) Commands() map[string]string {
	return r.markdownFiles("commands")
}

// markdownFiles collects visible .md files from the user and project
// copies of sub, keyed by file stem.
func (r *Resolver) markdownFiles(sub string) map[string]string {
	var dirs []string
	if r.scope.IncludesUser() {
		dirs = append(dirs, filepath.Join(r.paths.ClaudeHome(), sub))
	}
	if r.scope.IncludesProject() {
		dirs = append(dirs, filepath.Join(r.paths.ProjectClaudeDir(), sub))
	}

	out := make(map[string]string)
	for _, dir := range dirs {
		entries, err := r.fs.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, e := range entries {
			name := e.Name()
			if strings.HasPrefix(name, ".") || filepath.Ext(name) != ".md" {
				continue
			}
			path := filepath.Join(dir, name)
			info, err := r.fs.Stat(path)
			if err != nil || !info.Mode().IsRegular() {
				continue
			}
			out[strings.TrimSuffix(name, ".md")] = path
		}
	}
	return out
}

func (r *Resolver) settingsFiles() []string {
	var files []string
	if r.scope.IncludesUser() {
		files = append(files, r.paths.ClaudeSettings())
	}
	if r.scope.IncludesProject() {
		files = append(files,
			filepath.Join(r.paths.ProjectClaudeDir(), paths.SettingsFileName),
			filepath.Join(r.paths.ProjectClaudeDir(), paths.LocalSettingsName),
		)
	}
	return files
}

// Settings shallow-merges user, project and local settings, later files
// winning per top-level key. Unreadable files are skipped.
func (r *Resolver) Settings() map[string]any {
	merged := make(map[string]any)
	for _, path := range r.settingsFiles() {
		obj, _, err := readObjectAny(r.fs, path)
		if err != nil {
			r.logger.Warn().Err(err).Str("path", path).Msg("Skipping malformed settings")
			continue
		}
		for k, v := range obj {
			merged[k] = v
		}
	}
	return merged
}

// SourcePaths lists the source files found per category. Skills are
// reported as directories.
func (r *Resolver) SourcePaths() map[types.Category][]string {
	out := make(map[types.Category][]string)

	for _, f := range r.RuleFiles() {
		out[types.CategoryRules] = append(out[types.CategoryRules], f.Path)
	}
	out[types.CategorySkills] = sortedValues(r.Skills())
	out[types.CategoryAgents] = sortedValues(r.Agents())
	out[types.CategoryCommands] = sortedValues(r.Commands())

	var mcp []string
	if r.scope.IncludesUser() {
		mcp = append(mcp, r.paths.ClaudeJSON())
	}
	if r.scope.IncludesProject() {
		mcp = append(mcp, r.paths.ProjectMCP())
	}
	out[types.CategoryMCP] = r.existing(mcp)
	out[types.CategorySettings] = r.existing(r.settingsFiles())

	return out
}

func (r *Resolver) existing(files []string) []string {
	var out []string
	for _, p := range files {
		if _, err := r.fs.Stat(p); err == nil {
			out = append(out, p)
		}
	}
	return out
}

func sortedValues(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for _, name := range types.SortedNames(m) {
		out = append(out, m[name])
	}
	return out
}
