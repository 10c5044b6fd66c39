// Package archive implements the end-to-end pipeline for one pull request:
// fetch metadata, diff, and comments; parse and index; annotate; render;
// and persist the documents plus an optional run-history record.
package archive

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/prdump/prdump/internal/diff"
	"github.com/prdump/prdump/internal/domain"
	"github.com/prdump/prdump/internal/store"
	"github.com/prdump/prdump/internal/usecase/annotate"
)

// Fetcher defines the outbound port for pull request data.
type Fetcher interface {
	// FetchPullRequest returns the PR metadata.
	FetchPullRequest(ctx context.Context, repoSlug string, number int) (domain.PullRequest, error)

	// FetchDiff returns the unified diff text reviewers commented on.
	FetchDiff(ctx context.Context, repoSlug string, number int) (string, error)

	// FetchInlineComments returns every inline review comment, including
	// outdated ones whose anchor no longer resolves.
	FetchInlineComments(ctx context.Context, repoSlug string, number int) ([]domain.Comment, error)

	// FetchGeneralComments returns the issue-style conversation comments.
	FetchGeneralComments(ctx context.Context, repoSlug string, number int) ([]domain.GeneralComment, error)

	// FetchReviews returns the submitted review summaries.
	FetchReviews(ctx context.Context, repoSlug string, number int) ([]domain.Review, error)
}

// GitEngine abstracts the local repository operations used for repo
// discovery and local diff generation.
type GitEngine interface {
	// RepoSlug derives "owner/name" from the origin remote URL.
	RepoSlug() (string, error)

	// DefaultBaseBranch resolves the branch the origin HEAD points at.
	DefaultBaseBranch() (string, error)

	// Acquire checks out headRef and returns a release function that
	// restores the previously checked-out state.
	Acquire(ctx context.Context, headRef string) (func() error, error)

	// Diff generates the merge-base diff between two refs.
	Diff(ctx context.Context, baseRef, headRef string) (string, error)
}

// Renderer turns an archive into one complete document.
type Renderer interface {
	Render(archive domain.Archive) (string, error)
}

// RendererFor resolves an output format name to its renderer.
type RendererFor func(format string) (Renderer, error)

// ParseFunc parses unified diff text into the structured model.
type ParseFunc func(diffText string) (diff.Model, error)

// Writer persists fully assembled documents.
type Writer interface {
	WriteDocument(prNumber int, format string, content string) (string, error)
	WriteSummary(report domain.SummaryReport) (string, error)
}

// Redactor defines the outbound port for secret redaction.
type Redactor interface {
	Redact(input string) (string, error)
}

// Deps captures the orchestrator's collaborators.
type Deps struct {
	Fetcher   Fetcher
	RenderFor RendererFor
	Writer    Writer
	Git       GitEngine        // Optional: required for local diffs and repo discovery
	History   store.Store      // Optional: run-history recording, failures never abort a run
	Redactor  Redactor         // Optional: required only when Request.Redact is set
	Parse     ParseFunc        // Optional: defaults to diff.Parse
	Clock     func() time.Time // Optional: defaults to time.Now
}

// Request describes one archive run.
type Request struct {
	// Number is the pull request number. Must be positive.
	Number int

	// Repository is the "owner/name" slug. Discovered from the origin
	// remote when empty.
	Repository string

	// Format is the canonical output format name and document extension.
	Format string

	// BaseRef overrides the PR's base branch for local diffs.
	BaseRef string

	// Local generates the diff from the local repository instead of the API.
	Local bool

	// Redact masks detected secrets in the diff and all comment bodies.
	Redact bool
}

// Result captures the artifacts of a completed run.
type Result struct {
	DocumentPath string
	SummaryPath  string
	Report       domain.SummaryReport

	// RunID is empty when history is disabled or recording failed.
	RunID string

	// Warnings lists non-fatal conditions, such as skipped diff sections.
	Warnings []string
}

// Orchestrator drives the archive pipeline.
type Orchestrator struct {
	deps Deps
}

// NewOrchestrator wires the orchestrator dependencies. Missing optional
// functions get their defaults: Parse falls back to diff.Parse, Clock to
// time.Now.
func NewOrchestrator(deps Deps) *Orchestrator {
	if deps.Parse == nil {
		deps.Parse = diff.Parse
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	return &Orchestrator{deps: deps}
}

// validateDependencies checks that all required dependencies are present.
func (o *Orchestrator) validateDependencies() error {
	if o.deps.Fetcher == nil {
		return errors.New("fetcher is required")
	}
	if o.deps.RenderFor == nil {
		return errors.New("renderer registry is required")
	}
	if o.deps.Writer == nil {
		return errors.New("writer is required")
	}
	// Git is optional
	// History is optional
	// Redactor is optional
	return nil
}

// Run archives one pull request's review context. The document and summary
// are written only after they are fully assembled in memory, so a failed or
// canceled run leaves no partial output behind.
func (o *Orchestrator) Run(ctx context.Context, req Request) (Result, error) {
	if err := o.validateDependencies(); err != nil {
		return Result{}, err
	}
	if req.Number <= 0 {
		return Result{}, fmt.Errorf("invalid pull request number %d", req.Number)
	}
	if req.Redact && o.deps.Redactor == nil {
		return Result{}, errors.New("redaction requested but no redactor is configured")
	}

	// Resolve the renderer before anything else so an unsupported format
	// fails with nothing fetched and nothing written.
	renderer, err := o.deps.RenderFor(req.Format)
	if err != nil {
		return Result{}, err
	}

	repoSlug, err := o.resolveRepository(req)
	if err != nil {
		return Result{}, err
	}

	log.Debug().
		Str("repository", repoSlug).
		Int("pr", req.Number).
		Str("format", req.Format).
		Bool("local", req.Local).
		Msg("archiving pull request")

	// The PR metadata comes first: local diff mode needs the head and base
	// branch names before it can generate anything.
	pr, err := o.deps.Fetcher.FetchPullRequest(ctx, repoSlug, req.Number)
	if err != nil {
		return Result{}, err
	}

	// The diff and the three comment lists are mutually independent reads.
	var (
		wg          sync.WaitGroup
		diffText    string
		diffCommand string
		inline      []domain.Comment
		general     []domain.GeneralComment
		reviews     []domain.Review
	)
	errs := make(chan error, 4)

	wg.Add(4)
	go func() {
		defer wg.Done()
		var err error
		diffText, diffCommand, err = o.produceDiff(ctx, req, pr, repoSlug)
		if err != nil {
			errs <- fmt.Errorf("diff: %w", err)
		}
	}()
	go func() {
		defer wg.Done()
		var err error
		inline, err = o.deps.Fetcher.FetchInlineComments(ctx, repoSlug, req.Number)
		if err != nil {
			errs <- fmt.Errorf("inline comments: %w", err)
		}
	}()
	go func() {
		defer wg.Done()
		var err error
		general, err = o.deps.Fetcher.FetchGeneralComments(ctx, repoSlug, req.Number)
		if err != nil {
			errs <- fmt.Errorf("general comments: %w", err)
		}
	}()
	go func() {
		defer wg.Done()
		var err error
		reviews, err = o.deps.Fetcher.FetchReviews(ctx, repoSlug, req.Number)
		if err != nil {
			errs <- fmt.Errorf("reviews: %w", err)
		}
	}()

	wg.Wait()
	close(errs)

	var fetchErrs []error
	for err := range errs {
		fetchErrs = append(fetchErrs, err)
	}
	if len(fetchErrs) > 0 {
		return Result{}, errors.Join(fetchErrs...)
	}

	if req.Redact {
		if diffText, err = o.deps.Redactor.Redact(diffText); err != nil {
			return Result{}, fmt.Errorf("redact diff: %w", err)
		}
		if err := redactAll(o.deps.Redactor, &pr, inline, general, reviews); err != nil {
			return Result{}, err
		}
	}

	// Parsing the diff and indexing the comments depend only on the fetched
	// data, not on each other. Annotation joins both.
	var (
		join     sync.WaitGroup
		model    diff.Model
		parseErr error
		idx      *annotate.Index
	)
	join.Add(2)
	go func() {
		defer join.Done()
		model, parseErr = o.deps.Parse(diffText)
	}()
	go func() {
		defer join.Done()
		idx = annotate.BuildIndex(inline, general, reviews)
	}()
	join.Wait()
	if parseErr != nil {
		return Result{}, fmt.Errorf("parse diff: %w", parseErr)
	}

	annotated := annotate.Annotate(model, idx)

	arch := domain.Archive{
		PR:              pr,
		Diff:            annotated,
		GeneralComments: idx.GeneralComments(),
		Reviews:         idx.Reviews(),
		DiffCommand:     diffCommand,
		Warnings:        model.Warnings,
	}

	// Rendering and summarizing both only read the archive.
	var (
		out       sync.WaitGroup
		document  string
		renderErr error
		report    domain.SummaryReport
	)
	out.Add(2)
	go func() {
		defer out.Done()
		document, renderErr = renderer.Render(arch)
	}()
	go func() {
		defer out.Done()
		report = annotate.Summarize(arch)
	}()
	out.Wait()
	if renderErr != nil {
		return Result{}, fmt.Errorf("render %s: %w", req.Format, renderErr)
	}

	docPath, err := o.deps.Writer.WriteDocument(pr.Number, req.Format, document)
	if err != nil {
		return Result{}, err
	}
	report.MainDocument = filepath.Base(docPath)

	summaryPath, err := o.deps.Writer.WriteSummary(report)
	if err != nil {
		return Result{}, err
	}

	result := Result{
		DocumentPath: docPath,
		SummaryPath:  summaryPath,
		Report:       report,
		Warnings:     model.Warnings,
	}
	if o.deps.History != nil {
		result.RunID = o.recordRun(ctx, repoSlug, req.Format, docPath, report)
	}

	log.Info().
		Str("document", docPath).
		Str("summary", summaryPath).
		Int("files", report.FilesChanged).
		Int("inline_comments", report.InlineComments()).
		Msg("archive complete")

	return result, nil
}

// resolveRepository returns the explicit slug or discovers one from the
// origin remote.
func (o *Orchestrator) resolveRepository(req Request) (string, error) {
	if req.Repository != "" {
		return req.Repository, nil
	}
	if o.deps.Git == nil {
		return "", errors.New("no repository given and no git engine available to discover one")
	}
	slug, err := o.deps.Git.RepoSlug()
	if err != nil {
		return "", fmt.Errorf("discover repository: %w", err)
	}
	return slug, nil
}

// produceDiff obtains the unified diff text plus a description of how it was
// obtained, from the API by default or from the local repository in local
// mode. In local mode the head branch is checked out for the duration of the
// diff and the original state is restored on every exit path.
func (o *Orchestrator) produceDiff(ctx context.Context, req Request, pr domain.PullRequest, repoSlug string) (string, string, error) {
	if !req.Local {
		command := fmt.Sprintf("GET /repos/%s/pulls/%d (application/vnd.github.v3.diff)", repoSlug, req.Number)
		text, err := o.deps.Fetcher.FetchDiff(ctx, repoSlug, req.Number)
		return text, command, err
	}

	if o.deps.Git == nil {
		return "", "", errors.New("local diff requested but no git engine is configured")
	}

	base := req.BaseRef
	if base == "" {
		base = pr.BaseRef
	}
	if base == "" {
		var err error
		if base, err = o.deps.Git.DefaultBaseBranch(); err != nil {
			return "", "", err
		}
	}

	release, err := o.deps.Git.Acquire(ctx, pr.HeadRef)
	if err != nil {
		return "", "", fmt.Errorf("checkout %s: %w", pr.HeadRef, err)
	}
	defer func() {
		if rerr := release(); rerr != nil {
			log.Warn().Err(rerr).Msg("failed to restore original branch")
		}
	}()

	text, err := o.deps.Git.Diff(ctx, base, pr.HeadRef)
	if err != nil {
		return "", "", err
	}
	command := fmt.Sprintf("git diff --merge-base -U3 --find-renames %s %s", base, pr.HeadRef)
	return text, command, nil
}

// redactAll masks secrets in every user-authored text field. The diff text
// is handled separately by the caller.
func redactAll(r Redactor, pr *domain.PullRequest, inline []domain.Comment, general []domain.GeneralComment, reviews []domain.Review) error {
	var err error
	if pr.Title, err = r.Redact(pr.Title); err != nil {
		return fmt.Errorf("redact title: %w", err)
	}
	if pr.Body, err = r.Redact(pr.Body); err != nil {
		return fmt.Errorf("redact description: %w", err)
	}
	for i := range inline {
		if inline[i].Body, err = r.Redact(inline[i].Body); err != nil {
			return fmt.Errorf("redact comment %d: %w", inline[i].ID, err)
		}
	}
	for i := range general {
		if general[i].Body, err = r.Redact(general[i].Body); err != nil {
			return fmt.Errorf("redact comment %d: %w", general[i].ID, err)
		}
	}
	for i := range reviews {
		if reviews[i].Body, err = r.Redact(reviews[i].Body); err != nil {
			return fmt.Errorf("redact review by %s: %w", reviews[i].Author, err)
		}
	}
	return nil
}

// recordRun persists the run record. History failures never abort a run;
// they log a warning and leave the run ID empty.
func (o *Orchestrator) recordRun(ctx context.Context, repoSlug, format, docPath string, report domain.SummaryReport) string {
	now := o.deps.Clock()
	run := store.Run{
		RunID:            store.GenerateRunID(now, repoSlug, report.PRNumber),
		Timestamp:        now,
		Repository:       repoSlug,
		PRNumber:         report.PRNumber,
		Format:           format,
		OutputPath:       docPath,
		FilesChanged:     report.FilesChanged,
		InlineComments:   report.InlineComments(),
		OrphanedComments: report.OrphanedComments,
		GeneralComments:  report.GeneralComments,
		Reviews:          report.Reviews,
	}
	if err := o.deps.History.RecordRun(ctx, run); err != nil {
		log.Warn().Err(err).Str("run_id", run.RunID).Msg("failed to record run history")
		return ""
	}
	return run.RunID
}
