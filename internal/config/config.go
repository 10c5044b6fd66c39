package config

// Config represents the full application configuration.
type Config struct {
	Output    OutputConfig    `yaml:"output"`
	GitHub    GitHubConfig    `yaml:"github"`
	Git       GitConfig       `yaml:"git"`
	History   HistoryConfig   `yaml:"history"`
	Redaction RedactionConfig `yaml:"redaction"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// OutputConfig controls where documents are written and in which format.
type OutputConfig struct {
	Directory string `yaml:"directory"`
	Format    string `yaml:"format"` // txt, md, html
}

// GitHubConfig holds API access settings. Token may reference an
// environment variable with ${VAR} syntax; PRDUMP_GITHUB_TOKEN takes
// precedence over the file value, and GITHUB_TOKEN is the fallback when
// neither is set.
type GitHubConfig struct {
	Token      string `yaml:"token"`
	Repository string `yaml:"repository"` // owner/name override for repository discovery
}

// GitConfig locates the working repository for slug discovery and the
// local diff mode.
type GitConfig struct {
	RepositoryDir string `yaml:"repositoryDir"`
	BaseBranch    string `yaml:"baseBranch"`
}

// HistoryConfig configures the run-history store.
type HistoryConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// RedactionConfig toggles secret scrubbing of archived content.
type RedactionConfig struct {
	Enabled bool `yaml:"enabled"`
}

// LoggingConfig configures diagnostic output on stderr.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // auto, console, json
}
