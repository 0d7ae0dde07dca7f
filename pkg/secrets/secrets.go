// Package secrets flags environment variables that probably hold credentials
// before they are copied into target configuration.
//
// A variable is reported only when its name contains a secret-suggestive
// keyword and its value looks like a token (long, drawn from a base64/hex
// style alphabet). Names starting with a safe prefix such as TEST_ are never
// reported. Values are read for matching and then dropped: no finding, log
// line or message produced here contains one.
package secrets

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode"

	"github.com/arthur-debert/harnesssync/pkg/config"
	"github.com/arthur-debert/harnesssync/pkg/logging"
	"github.com/arthur-debert/harnesssync/pkg/types"
	"github.com/rs/zerolog"
)

// highConfidenceLength is the value length from which a mixed letter and
// digit value is reported with high confidence.
const highConfidenceLength = 32

// Detector scans environment variable maps.
type Detector struct {
	keywords     []string
	safePrefixes []string
	valuePattern *regexp.Regexp
	logger       zerolog.Logger
}

// New creates a detector from the secrets section of the configuration.
func New(cfg config.SecretsConfig) *Detector {
	d := &Detector{
		valuePattern: regexp.MustCompile(fmt.Sprintf(`^[A-Za-z0-9_\-+=/.]{%d,}$`, cfg.MinLength)),
		logger:       logging.GetLogger("secrets"),
	}
	for _, k := range cfg.Keywords {
		d.keywords = append(d.keywords, strings.ToUpper(k))
	}
	for _, p := range cfg.SafePrefixes {
		d.safePrefixes = append(d.safePrefixes, strings.ToUpper(p))
	}
	return d
}

// Default creates a detector with the built-in keyword and prefix lists.
func Default() *Detector {
	return New(config.Default().Secrets)
}

// Scan checks every variable of env. Findings are ordered by variable name.
func (d *Detector) Scan(env map[string]string) []types.SecretFinding {
	var findings []types.SecretFinding
	for _, name := range types.SortedNames(env) {
		if f, ok := d.check(name, env[name]); ok {
			findings = append(findings, f)
		}
	}
	return findings
}

// ScanServers scans the env map of every server definition and tags each
// finding with its server. Findings are ordered by server, then variable.
func (d *Detector) ScanServers(servers map[string]types.ServerConfig) []types.SecretFinding {
	var findings []types.SecretFinding
	for _, server := range types.SortedNames(servers) {
		for _, f := range d.Scan(servers[server].Env()) {
			f.Server = server
			findings = append(findings, f)
		}
	}

	if len(findings) > 0 {
		d.logger.Debug().
			Int("findings", len(findings)).
			Int("servers", len(servers)).
			Msg("Potential secrets found in server environments")
	}
	return findings
}

func (d *Detector) check(name, value string) (types.SecretFinding, bool) {
	upper := strings.ToUpper(name)

	for _, prefix := range d.safePrefixes {
		if strings.HasPrefix(upper, prefix) {
			d.logger.Trace().Str("variable", name).Msg("Skipping whitelisted variable")
			return types.SecretFinding{}, false
		}
	}

	var matched []string
	for _, keyword := range d.keywords {
		if strings.Contains(upper, keyword) {
			matched = append(matched, keyword)
		}
	}
	if len(matched) == 0 {
		return types.SecretFinding{}, false
	}

	if !d.valuePattern.MatchString(value) {
		return types.SecretFinding{}, false
	}

	return types.SecretFinding{
		VariableName:    name,
		MatchedKeywords: matched,
		Confidence:      confidence(value),
	}, true
}

func confidence(value string) types.Confidence {
	if len(value) < highConfidenceLength {
		return types.ConfidenceMedium
	}
	var letters, digits bool
	for _, r := range value {
		switch {
		case unicode.IsLetter(r):
			letters = true
		case unicode.IsDigit(r):
			digits = true
		}
	}
	if letters && digits {
		return types.ConfidenceHigh
	}
	return types.ConfidenceMedium
}

// ShouldBlock reports whether a sync must stop: there are findings and the
// caller did not allow secrets for this run.
func ShouldBlock(findings []types.SecretFinding, allow bool) bool {
	return len(findings) > 0 && !allow
}

// FormatWarnings renders findings for the user. It returns "" for none.
func FormatWarnings(findings []types.SecretFinding) string {
	if len(findings) == 0 {
		return ""
	}

	sorted := append([]types.SecretFinding(nil), findings...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Server != sorted[j].Server {
			return sorted[i].Server < sorted[j].Server
		}
		return sorted[i].VariableName < sorted[j].VariableName
	})

	lines := []string{
		fmt.Sprintf("\n⚠ Detected %d potential secret(s) in environment variables:", len(sorted)),
	}
	for _, f := range sorted {
		name := f.VariableName
		if f.Server != "" {
			name = fmt.Sprintf("%s (server %s)", f.VariableName, f.Server)
		}
		lines = append(lines, fmt.Sprintf("  · %s: contains keywords %s [%s confidence]",
			name, strings.Join(f.MatchedKeywords, ", "), f.Confidence))
	}
	lines = append(lines,
		"\nSecrets should not be synced to target configs.",
		"Use --allow-secrets to override this warning (NOT recommended).",
	)
	return strings.Join(lines, "\n")
}
