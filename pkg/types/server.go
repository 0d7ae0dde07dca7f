package types

import "sort"

// ServerConfig is a single MCP server definition as declared in JSON. It is
// kept as a generic object so fields unknown to harnesssync survive a sync.
type ServerConfig map[string]any

// Command returns the launch command of a stdio server.
func (c ServerConfig) Command() string {
	s, _ := c["command"].(string)
	return s
}

// URL returns the endpoint of a remote server.
func (c ServerConfig) URL() string {
	s, _ := c["url"].(string)
	return s
}

// Args returns the launch arguments, skipping non-string values.
func (c ServerConfig) Args() []string {
	raw, _ := c["args"].([]any)
	args := make([]string, 0, len(raw))
	for _, a := range raw {
		if s, ok := a.(string); ok {
			args = append(args, s)
		}
	}
	return args
}

// Env returns the string-valued environment variables of the server.
func (c ServerConfig) Env() map[string]string {
	env := make(map[string]string)
	switch raw := c["env"].(type) {
	case map[string]any:
		for k, v := range raw {
			if s, ok := v.(string); ok {
				env[k] = s
			}
		}
	case map[string]string:
		for k, v := range raw {
			env[k] = v
		}
	}
	return env
}

// IsValid reports whether the definition can be launched at all: it needs a
// command (stdio) or a url (remote).
func (c ServerConfig) IsValid() bool {
	return c.Command() != "" || c.URL() != ""
}

// ConfigEntry is a named server definition together with where it came from.
type ConfigEntry struct {
	Name       string       `json:"name" yaml:"name" toml:"name"`
	Config     ServerConfig `json:"config" yaml:"config" toml:"config"`
	Provenance Provenance   `json:"provenance" yaml:"provenance" toml:"provenance"`
}

// SortedNames returns the keys of a resolved view in lexical order.
func SortedNames[T any](m map[string]T) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
