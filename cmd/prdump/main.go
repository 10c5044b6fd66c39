package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/prdump/prdump/internal/adapter/cli"
	"github.com/prdump/prdump/internal/adapter/git"
	"github.com/prdump/prdump/internal/adapter/github"
	"github.com/prdump/prdump/internal/adapter/observability"
	"github.com/prdump/prdump/internal/adapter/output"
	"github.com/prdump/prdump/internal/adapter/store/sqlite"
	"github.com/prdump/prdump/internal/config"
	"github.com/prdump/prdump/internal/redaction"
	"github.com/prdump/prdump/internal/store"
	"github.com/prdump/prdump/internal/usecase/archive"
	"github.com/prdump/prdump/internal/version"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "prdump: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Cancellable context with signal handling for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load(config.LoaderOptions{})
	if err != nil {
		return fmt.Errorf("config load failed: %w", err)
	}

	if err := observability.Setup(cfg.Logging.Level, cfg.Logging.Format); err != nil {
		return fmt.Errorf("logging setup failed: %w", err)
	}

	token := resolveToken(cfg.GitHub.Token)
	if token == "" {
		log.Warn().Msg("no GitHub token configured; API requests are unauthenticated and heavily rate limited")
	}
	fetcher := github.NewClient(token)

	repoDir := cfg.Git.RepositoryDir
	if repoDir == "" {
		repoDir = "."
	}
	gitEngine := git.NewEngine(repoDir)

	// The engine is always wired; redaction.enabled only controls whether
	// runs redact by default. --redact / --redact=false override per run.
	redactor := redaction.NewEngine()

	// History is best effort: a failed store never blocks archiving.
	var history store.Store
	if cfg.History.Enabled {
		if err := os.MkdirAll(filepath.Dir(cfg.History.Path), 0o755); err != nil {
			log.Warn().Err(err).Msg("failed to create history directory")
		} else if s, err := sqlite.NewStore(cfg.History.Path); err != nil {
			log.Warn().Err(err).Str("path", cfg.History.Path).Msg("failed to open history store")
		} else {
			history = s
			defer history.Close()
		}
	}

	// Timestamp supplier for the summary's Generated line
	nowFunc := func() string {
		return time.Now().UTC().Format("2006-01-02T15-04-05Z")
	}

	newArchiver := func(opts cli.ArchiverOptions) cli.Archiver {
		runHistory := history
		if opts.NoHistory {
			runHistory = nil
		}
		return archive.NewOrchestrator(archive.Deps{
			Fetcher: fetcher,
			RenderFor: func(format string) (archive.Renderer, error) {
				return output.For(format)
			},
			Writer:   output.NewWriter(opts.OutputDir, nowFunc),
			Git:      gitEngine,
			History:  runHistory,
			Redactor: redactor,
		})
	}

	root := cli.NewRootCommand(cli.Dependencies{
		NewArchiver: newArchiver,
		History:     history,
		Defaults: cli.Defaults{
			OutputDir:  cfg.Output.Directory,
			Format:     cfg.Output.Format,
			Repository: cfg.GitHub.Repository,
			BaseBranch: cfg.Git.BaseBranch,
			Redact:     cfg.Redaction.Enabled,
		},
		Version: version.Value(),
	})

	if err := root.ExecuteContext(ctx); err != nil {
		if errors.Is(err, cli.ErrVersionRequested) {
			return nil
		}
		return err
	}
	return nil
}

// resolveToken prefers the configured token (config file or
// PRDUMP_GITHUB_TOKEN) and falls back to the conventional GITHUB_TOKEN.
func resolveToken(configured string) string {
	if configured != "" {
		return configured
	}
	return os.Getenv("GITHUB_TOKEN")
}

// Compile-time interface compliance checks
var _ archive.Fetcher = (*github.Client)(nil)
var _ archive.GitEngine = (*git.Engine)(nil)
var _ archive.Writer = (*output.Writer)(nil)
var _ archive.Redactor = (*redaction.Engine)(nil)
var _ store.Store = (*sqlite.Store)(nil)
var _ cli.HistoryLister = (*sqlite.Store)(nil)
