package redaction

import (
	"regexp"
	"strings"
)

// Engine performs regex-based secret detection and redaction.
type Engine struct {
	rules []rule
}

// rule pairs a detection pattern with the category tag written into the
// output. The replacement may reference capture groups to preserve the
// non-secret context around a match.
type rule struct {
	category    string
	pattern     *regexp.Regexp
	replacement string
}

// NewEngine creates a redaction engine with the default secret rules.
func NewEngine() *Engine {
	return &Engine{
		rules: defaultRules(),
	}
}

// Redact replaces every detected secret with a deterministic category
// token. The same input always yields the same output.
func (e *Engine) Redact(input string) (string, error) {
	result := input
	for _, r := range e.rules {
		result = r.pattern.ReplaceAllString(result, r.replacement)
	}
	return result, nil
}

// IsRedacted checks whether content contains redaction tokens.
func (e *Engine) IsRedacted(content string) bool {
	return strings.Contains(content, "[REDACTED:")
}

// defaultRules returns the default detection rules. Order matters: the
// multi-line and most specific patterns run first so that broader rules
// never see their matches.
func defaultRules() []rule {
	specs := []struct {
		category    string
		pattern     string
		replacement string // empty means replace the whole match with the token
	}{
		// Private keys (PEM blocks, any key type)
		{
			category: "private-key",
			pattern:  `-----BEGIN\s+(?:RSA|EC|OPENSSH|DSA|ENCRYPTED)?\s*PRIVATE\s+KEY-----[\s\S]*?-----END\s+(?:RSA|EC|OPENSSH|DSA|ENCRYPTED)?\s*PRIVATE\s+KEY-----`,
		},
		// JWT tokens, before the generic bearer rule
		{
			category: "jwt",
			pattern:  `eyJ[a-zA-Z0-9_-]+\.eyJ[a-zA-Z0-9_-]+\.[a-zA-Z0-9_-]+`,
		},
		// Generic bearer credentials, keeping the scheme word
		{
			category:    "token",
			pattern:     `(Bearer\s+)[a-zA-Z0-9_\-\.=]+`,
			replacement: `${1}[REDACTED:token]`,
		},
		// OpenAI / Anthropic style API keys
		{
			category: "api-key",
			pattern:  `sk-[a-zA-Z0-9\-]{20,}`,
		},
		// AWS Access Key ID
		{
			category: "aws-key",
			pattern:  `AKIA[0-9A-Z]{16}`,
		},
		// AWS Secret Access Key assigned near an "aws" mention
		{
			category:    "aws-secret",
			pattern:     `(?i)(aws.{0,30}?['"])[0-9a-zA-Z/+]{40}(['"])`,
			replacement: `${1}[REDACTED:aws-secret]${2}`,
		},
		// GitHub tokens
		{
			category: "github-token",
			pattern:  `gh[opsur]_[a-zA-Z0-9]{20,}`,
		},
		// Google API keys
		{
			category: "google-api-key",
			pattern:  `AIza[0-9A-Za-z\-_]{35}`,
		},
		// Slack tokens
		{
			category: "slack-token",
			pattern:  `xox[baprs]-[a-zA-Z0-9\-]{10,}`,
		},
		// Password assignments, keeping the key and quoting
		{
			category:    "password",
			pattern:     `(?i)((?:password|passwd|pwd)\s*[:=]\s*)(["']?)[^\s"']{4,}(["']?)`,
			replacement: `${1}${2}[REDACTED:password]${3}`,
		},
	}

	rules := make([]rule, 0, len(specs))
	for _, s := range specs {
		replacement := s.replacement
		if replacement == "" {
			replacement = "[REDACTED:" + s.category + "]"
		}
		rules = append(rules, rule{
			category:    s.category,
			pattern:     regexp.MustCompile(s.pattern),
			replacement: replacement,
		})
	}
	return rules
}
