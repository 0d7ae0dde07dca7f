package types

import "fmt"

// Scope is one of the precedence tiers configuration can be declared at.
type Scope string

const (
	ScopeUser    Scope = "user"
	ScopeProject Scope = "project"
	ScopeLocal   Scope = "local"
)

// Origin tells whether an entry came from a plain file or from an installed package.
type Origin string

const (
	OriginFile    Origin = "file"
	OriginPackage Origin = "package"
)

// Provenance records where a resolved configuration entry was declared.
type Provenance struct {
	Scope          Scope  `json:"scope" yaml:"scope" toml:"scope"`
	Origin         Origin `json:"origin" yaml:"origin" toml:"origin"`
	PackageName    string `json:"package_name,omitempty" yaml:"package_name,omitempty" toml:"package_name,omitempty"`
	PackageVersion string `json:"package_version,omitempty" yaml:"package_version,omitempty" toml:"package_version,omitempty"`
	// PackageScope is the install scope the package registry declared, which
	// may differ from the precedence Scope the entry resolved at.
	PackageScope string `json:"package_scope,omitempty" yaml:"package_scope,omitempty" toml:"package_scope,omitempty"`
	SourcePath   string `json:"source_path,omitempty" yaml:"source_path,omitempty" toml:"source_path,omitempty"`
}

// String renders the provenance the way status output shows it, e.g.
// "user/package (github@1.2.0)".
func (p Provenance) String() string {
	if p.Origin == OriginPackage {
		return fmt.Sprintf("%s/%s (%s@%s)", p.Scope, p.Origin, p.PackageName, p.PackageVersion)
	}
	return fmt.Sprintf("%s/%s", p.Scope, p.Origin)
}

// ScopeFilter limits which scopes participate in source resolution.
type ScopeFilter string

const (
	FilterUser    ScopeFilter = "user"
	FilterProject ScopeFilter = "project"
	FilterAll     ScopeFilter = "all"
)

// ParseScopeFilter parses a scope filter name, defaulting to all.
func ParseScopeFilter(s string) (ScopeFilter, error) {
	switch ScopeFilter(s) {
	case "", FilterAll:
		return FilterAll, nil
	case FilterUser, FilterProject:
		return ScopeFilter(s), nil
	default:
		return "", fmt.Errorf("unknown scope %q (want user, project or all)", s)
	}
}

// IncludesUser reports whether user-scope layers are read.
func (f ScopeFilter) IncludesUser() bool {
	return f == FilterUser || f == FilterAll || f == ""
}

// IncludesProject reports whether project and local layers are read.
func (f ScopeFilter) IncludesProject() bool {
	return f == FilterProject || f == FilterAll || f == ""
}
