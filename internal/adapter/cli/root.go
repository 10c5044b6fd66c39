package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/prdump/prdump/internal/adapter/output"
	"github.com/prdump/prdump/internal/usecase/archive"
)

// ErrVersionRequested indicates the user requested the CLI version and no
// further work should be done.
var ErrVersionRequested = errors.New("version requested")

// Archiver runs one archive request.
type Archiver interface {
	Run(ctx context.Context, req archive.Request) (archive.Result, error)
}

// ArchiverOptions carries the per-invocation wiring resolved from flags.
type ArchiverOptions struct {
	OutputDir string
	NoHistory bool
}

// Arguments encapsulates IO writers injected from the host process.
type Arguments struct {
	OutWriter io.Writer
	ErrWriter io.Writer
}

// Defaults carries configuration values that seed flag defaults.
type Defaults struct {
	OutputDir  string
	Format     string
	Repository string
	BaseBranch string
	Redact     bool
}

// Dependencies captures the collaborators for the CLI.
type Dependencies struct {
	NewArchiver func(opts ArchiverOptions) Archiver
	History     HistoryLister // Optional: nil when the run-history store is disabled
	Args        Arguments
	Defaults    Defaults
	Version     string
}

// NewRootCommand constructs the root Cobra command.
func NewRootCommand(deps Dependencies) *cobra.Command {
	versionString := deps.Version
	if versionString == "" {
		versionString = "v0.0.0-dev"
	}

	defaults := deps.Defaults
	if defaults.OutputDir == "" {
		defaults.OutputDir = "."
	}
	if defaults.Format == "" {
		defaults.Format = string(output.FormatText)
	}

	var (
		outputDir   string
		formatName  string
		baseRef     string
		repository  string
		local       bool
		redact      bool
		noHistory   bool
		verbose     bool
		showVersion bool
	)

	root := &cobra.Command{
		Use:   "prdump <pr-number>",
		Short: "Archive a pull request's review context for offline reading",
		Long: strings.TrimSpace(`
prdump fetches a pull request's diff, inline comment threads, general
discussion, and review verdicts, then writes one annotated document
(txt, md, or html) plus a short summary file.

The pull request may be given as a number, "#123", "owner/repo#123", or a
full pull request URL.`),
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return errors.New("pull request number required; pass 123, #123, or a pull request URL")
			}

			number, urlRepo, err := ParsePRArg(args[0])
			if err != nil {
				return err
			}

			// Unknown formats are rejected before any network or git work.
			format, err := output.Parse(formatName)
			if err != nil {
				return err
			}

			// An explicit --repo wins over the repository embedded in a
			// pasted reference.
			repo := repository
			if !cmd.Flags().Changed("repo") && urlRepo != "" {
				repo = urlRepo
			}

			archiver := deps.NewArchiver(ArchiverOptions{OutputDir: outputDir, NoHistory: noHistory})
			result, err := archiver.Run(cmd.Context(), archive.Request{
				Number:     number,
				Repository: repo,
				Format:     string(format),
				BaseRef:    baseRef,
				Local:      local,
				Redact:     redact,
			})
			if err != nil {
				return err
			}

			for _, warning := range result.Warnings {
				_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "warning: %s\n", warning)
			}
			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "Document: %s\n", result.DocumentPath)
			_, _ = fmt.Fprintf(out, "Summary:  %s\n", result.SummaryPath)
			return nil
		},
	}
	root.SilenceUsage = true
	root.SilenceErrors = true

	outWriter := deps.Args.OutWriter
	if outWriter == nil {
		outWriter = os.Stdout
	}
	errWriter := deps.Args.ErrWriter
	if errWriter == nil {
		errWriter = os.Stderr
	}
	root.SetOut(outWriter)
	root.SetErr(errWriter)

	flags := root.Flags()
	flags.StringVarP(&outputDir, "output", "o", defaults.OutputDir, "Directory to write the documents")
	flags.StringVarP(&formatName, "format", "f", defaults.Format, "Output format: txt, md, or html")
	flags.StringVar(&baseRef, "base", defaults.BaseBranch, "Base branch override for local diffs")
	flags.StringVar(&repository, "repo", defaults.Repository, "Repository as owner/name (skips discovery from the origin remote)")
	flags.BoolVar(&local, "local", false, "Generate the diff from the local repository instead of the API")
	flags.BoolVar(&redact, "redact", defaults.Redact, "Mask detected secrets in the diff and comment bodies")
	flags.BoolVar(&noHistory, "no-history", false, "Skip recording this run in the history store")

	root.PersistentFlags().BoolVar(&verbose, "verbose", false, "Enable debug logging")
	root.PersistentFlags().BoolVarP(&showVersion, "version", "v", false, "Show version and exit")

	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if showVersion {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), versionString)
			return ErrVersionRequested
		}
		if verbose {
			zerolog.SetGlobalLevel(zerolog.DebugLevel)
		}
		return nil
	}

	root.AddCommand(historyCommand(deps.History))

	return root
}

// ParsePRArg extracts a pull request number from the forms users paste:
// "123", "#123", "owner/repo#123", or a pull request URL. Forms that carry
// the repository also yield its owner/name slug.
func ParsePRArg(arg string) (int, string, error) {
	cleaned := strings.TrimSpace(arg)
	if cleaned == "" {
		return 0, "", errors.New("empty pull request reference")
	}

	if strings.Contains(cleaned, "/pull/") {
		return parsePRURL(cleaned)
	}

	if repo, rest, ok := strings.Cut(cleaned, "#"); ok && strings.Count(repo, "/") == 1 {
		number, err := parsePositive(rest)
		if err != nil {
			return 0, "", fmt.Errorf("invalid pull request reference %q", arg)
		}
		return number, repo, nil
	}

	number, err := parsePositive(strings.TrimPrefix(cleaned, "#"))
	if err != nil {
		return 0, "", fmt.Errorf("invalid pull request number %q", arg)
	}
	return number, "", nil
}

func parsePRURL(raw string) (int, string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return 0, "", fmt.Errorf("invalid pull request URL %q", raw)
	}

	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	if u.Host == "" && len(segments) > 0 && strings.Contains(segments[0], ".") {
		// Scheme-less form: "github.com/owner/repo/pull/123".
		segments = segments[1:]
	}
	if len(segments) < 4 || segments[2] != "pull" {
		return 0, "", fmt.Errorf("%q does not look like a pull request URL", raw)
	}

	number, err := parsePositive(segments[3])
	if err != nil {
		return 0, "", fmt.Errorf("invalid pull request number in %q", raw)
	}
	return number, segments[0] + "/" + segments[1], nil
}

func parsePositive(s string) (int, error) {
	number, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if number <= 0 {
		return 0, fmt.Errorf("must be positive, got %d", number)
	}
	return number, nil
}
