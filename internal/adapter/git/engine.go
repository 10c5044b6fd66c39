// Package git resolves repository context (remote slug, branches) and
// produces pull request diffs from a local checkout.
package git

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"os/exec"
	"strings"

	goGit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// Engine answers repository questions through go-git and shells out to the
// git binary for the operations go-git does not cover well (merge-base
// diffs, branch switching).
type Engine struct {
	repoDir string
}

// NewEngine constructs a Git engine for the provided repository directory.
func NewEngine(repoDir string) *Engine {
	return &Engine{repoDir: repoDir}
}

func (e *Engine) open() (*goGit.Repository, error) {
	repo, err := goGit.PlainOpenWithOptions(e.repoDir, &goGit.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("open repo: %w", err)
	}
	return repo, nil
}

// RepoSlug derives "owner/name" from the origin remote URL. SSH, scp-like,
// and HTTPS remote forms are understood.
func (e *Engine) RepoSlug() (string, error) {
	repo, err := e.open()
	if err != nil {
		return "", err
	}

	remote, err := repo.Remote("origin")
	if err != nil {
		return "", fmt.Errorf("resolve origin remote: %w", err)
	}
	urls := remote.Config().URLs
	if len(urls) == 0 {
		return "", fmt.Errorf("origin remote has no URL")
	}

	return ParseRepoSlug(urls[0])
}

// ParseRepoSlug extracts "owner/name" from a git remote URL.
func ParseRepoSlug(remoteURL string) (string, error) {
	cleaned := strings.TrimSuffix(strings.TrimSpace(remoteURL), ".git")

	// scp-like syntax: git@github.com:owner/repo
	if !strings.Contains(cleaned, "://") {
		if _, after, found := strings.Cut(cleaned, ":"); found {
			return validateSlug(after, remoteURL)
		}
		return "", fmt.Errorf("cannot derive owner/repo from remote %q", remoteURL)
	}

	u, err := url.Parse(cleaned)
	if err != nil || u.Path == "" {
		return "", fmt.Errorf("cannot derive owner/repo from remote %q", remoteURL)
	}
	return validateSlug(u.Path, remoteURL)
}

func validateSlug(slug, remoteURL string) (string, error) {
	slug = strings.Trim(slug, "/")
	parts := strings.Split(slug, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", fmt.Errorf("cannot derive owner/repo from remote %q", remoteURL)
	}
	return slug, nil
}

// CurrentBranch returns the name of the checked-out branch.
func (e *Engine) CurrentBranch(ctx context.Context) (string, error) {
	repo, err := e.open()
	if err != nil {
		return "", err
	}
	head, err := repo.Head()
	if err != nil {
		return "", fmt.Errorf("resolve HEAD: %w", err)
	}
	name := head.Name()
	if name.IsBranch() {
		return name.Short(), nil
	}
	return "", fmt.Errorf("detached HEAD")
}

// DefaultBaseBranch resolves the branch pull requests merge into. It prefers
// the origin HEAD reference and falls back to main, then master.
func (e *Engine) DefaultBaseBranch() (string, error) {
	repo, err := e.open()
	if err != nil {
		return "", err
	}

	if ref, err := repo.Reference(plumbing.ReferenceName("refs/remotes/origin/HEAD"), true); err == nil {
		// Short() yields "origin/<branch>"; the branch name may itself
		// contain slashes.
		if _, branch, found := strings.Cut(ref.Name().Short(), "/"); found {
			return branch, nil
		}
	}

	for _, candidate := range []string{"main", "master"} {
		if _, err := resolveCommit(repo, candidate); err == nil {
			return candidate, nil
		}
	}

	return "", fmt.Errorf("cannot determine base branch: no origin HEAD and neither main nor master exists")
}

// Acquire checks out the given head ref and returns a release function that
// restores the previously checked-out branch. Release is idempotent and uses
// a fresh context so a canceled run still restores the original branch.
func (e *Engine) Acquire(ctx context.Context, headRef string) (func() error, error) {
	original, err := e.CurrentBranch(ctx)
	if err != nil {
		return nil, err
	}

	if original == headRef {
		return func() error { return nil }, nil
	}

	if _, err := runGitCommand(ctx, e.repoDir, "checkout", headRef); err != nil {
		return nil, fmt.Errorf("checkout %s: %w", headRef, err)
	}

	released := false
	release := func() error {
		if released {
			return nil
		}
		released = true
		if _, err := runGitCommand(context.Background(), e.repoDir, "checkout", original); err != nil {
			return fmt.Errorf("restore %s: %w", original, err)
		}
		return nil
	}
	return release, nil
}

// Diff produces the unified diff between the merge base of the two refs and
// the head, which is the same shape the hosting platform serves for a pull
// request. Refs are resolved to commits first so that branches only present
// under origin still work.
func (e *Engine) Diff(ctx context.Context, baseRef, headRef string) (string, error) {
	repo, err := e.open()
	if err != nil {
		return "", err
	}

	baseCommit, err := resolveCommit(repo, baseRef)
	if err != nil {
		return "", fmt.Errorf("resolve base ref %s: %w", baseRef, err)
	}
	headCommit, err := resolveCommit(repo, headRef)
	if err != nil {
		return "", fmt.Errorf("resolve head ref %s: %w", headRef, err)
	}

	out, err := runGitCommand(ctx, e.repoDir, "diff", "--merge-base", "-U3", "--find-renames",
		baseCommit.Hash.String(), headCommit.Hash.String())
	if err != nil {
		return "", err
	}
	return out, nil
}

func resolveCommit(repo *goGit.Repository, ref string) (*object.Commit, error) {
	candidates := []string{
		ref,
		fmt.Sprintf("refs/heads/%s", ref),
		fmt.Sprintf("refs/remotes/origin/%s", ref),
	}

	var lastErr error
	for _, candidate := range candidates {
		name := plumbing.Revision(candidate)
		hash, err := repo.ResolveRevision(name)
		if err != nil {
			lastErr = err
			continue
		}
		return repo.CommitObject(*hash)
	}
	if lastErr != nil {
		return nil, lastErr
	}
	return nil, fmt.Errorf("unable to resolve ref %s", ref)
}

func runGitCommand(ctx context.Context, repoDir string, args ...string) (string, error) {
	fullArgs := append([]string{"-C", repoDir}, args...)
	cmd := exec.CommandContext(ctx, "git", fullArgs...)
	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("git %v: %w", args, ctx.Err())
		}
		if stderr.Len() > 0 {
			err = fmt.Errorf("%w: %s", err, strings.TrimSpace(stderr.String()))
		}
		return "", fmt.Errorf("git %v: %w", args, err)
	}
	return stdout.String(), nil
}
