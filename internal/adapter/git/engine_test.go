package git_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	goGit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/prdump/prdump/internal/adapter/git"
)

func TestParseRepoSlug(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		want    string
		wantErr bool
	}{
		{name: "scp-like ssh", url: "git@github.com:acme/api.git", want: "acme/api"},
		{name: "scp-like without suffix", url: "git@github.com:acme/api", want: "acme/api"},
		{name: "https", url: "https://github.com/acme/api.git", want: "acme/api"},
		{name: "https without suffix", url: "https://github.com/acme/api", want: "acme/api"},
		{name: "ssh scheme", url: "ssh://git@github.com/acme/api.git", want: "acme/api"},
		{name: "local path", url: "/home/dev/repos/api", wantErr: true},
		{name: "missing repo", url: "https://github.com/acme", wantErr: true},
		{name: "empty", url: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := git.ParseRepoSlug(tt.url)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseRepoSlug(%q) expected error, got %q", tt.url, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseRepoSlug(%q) returned error: %v", tt.url, err)
			}
			if got != tt.want {
				t.Errorf("ParseRepoSlug(%q) = %q, want %q", tt.url, got, tt.want)
			}
		})
	}
}

func TestEngineRepoSlug(t *testing.T) {
	tmp := t.TempDir()
	repo := initRepo(t, tmp)
	commitFile(t, repo, tmp, "main.go", "package main\n")

	if _, err := repo.CreateRemote(&config.RemoteConfig{
		Name: "origin",
		URLs: []string{"git@github.com:acme/api.git"},
	}); err != nil {
		t.Fatalf("create remote error: %v", err)
	}

	engine := git.NewEngine(tmp)
	slug, err := engine.RepoSlug()
	if err != nil {
		t.Fatalf("RepoSlug returned error: %v", err)
	}
	if slug != "acme/api" {
		t.Errorf("RepoSlug = %q, want %q", slug, "acme/api")
	}
}

func TestEngineRepoSlugWithoutOrigin(t *testing.T) {
	tmp := t.TempDir()
	repo := initRepo(t, tmp)
	commitFile(t, repo, tmp, "main.go", "package main\n")

	engine := git.NewEngine(tmp)
	if _, err := engine.RepoSlug(); err == nil {
		t.Fatal("RepoSlug should fail without an origin remote")
	}
}

func TestEngineCurrentBranch(t *testing.T) {
	ctx := context.Background()
	tmp := t.TempDir()
	repo := initRepo(t, tmp)
	commitFile(t, repo, tmp, "main.go", "package main\n")

	engine := git.NewEngine(tmp)
	branch, err := engine.CurrentBranch(ctx)
	if err != nil {
		t.Fatalf("CurrentBranch returned error: %v", err)
	}
	if branch != "master" {
		t.Errorf("CurrentBranch = %q, want %q", branch, "master")
	}
}

func TestEngineDefaultBaseBranchFromOriginHead(t *testing.T) {
	tmp := t.TempDir()
	repo := initRepo(t, tmp)
	commitFile(t, repo, tmp, "main.go", "package main\n")

	head, err := repo.Head()
	if err != nil {
		t.Fatalf("head error: %v", err)
	}
	if err := repo.Storer.SetReference(plumbing.NewHashReference("refs/remotes/origin/main", head.Hash())); err != nil {
		t.Fatalf("set reference error: %v", err)
	}
	if err := repo.Storer.SetReference(plumbing.NewSymbolicReference("refs/remotes/origin/HEAD", "refs/remotes/origin/main")); err != nil {
		t.Fatalf("set symbolic reference error: %v", err)
	}

	engine := git.NewEngine(tmp)
	base, err := engine.DefaultBaseBranch()
	if err != nil {
		t.Fatalf("DefaultBaseBranch returned error: %v", err)
	}
	if base != "main" {
		t.Errorf("DefaultBaseBranch = %q, want %q", base, "main")
	}
}

func TestEngineDefaultBaseBranchFallback(t *testing.T) {
	tmp := t.TempDir()
	repo := initRepo(t, tmp)
	commitFile(t, repo, tmp, "main.go", "package main\n")

	engine := git.NewEngine(tmp)
	base, err := engine.DefaultBaseBranch()
	if err != nil {
		t.Fatalf("DefaultBaseBranch returned error: %v", err)
	}
	if base != "master" {
		t.Errorf("DefaultBaseBranch = %q, want %q", base, "master")
	}
}

func TestEngineDiffBetweenBranches(t *testing.T) {
	ctx := context.Background()
	tmp := t.TempDir()
	repo := initRepo(t, tmp)
	commitFile(t, repo, tmp, "main.go", "package main\n\nfunc main() {\n\tprintln(\"hello\")\n}\n")

	checkoutBranch(t, repo, "feature", true)
	commitFile(t, repo, tmp, "main.go", "package main\n\nfunc main() {\n\tprintln(\"feature\")\n}\n")

	engine := git.NewEngine(tmp)
	diff, err := engine.Diff(ctx, "master", "feature")
	if err != nil {
		t.Fatalf("Diff returned error: %v", err)
	}

	if !strings.Contains(diff, "diff --git") {
		t.Fatalf("expected unified diff output, got: %s", diff)
	}
	if !strings.Contains(diff, "-\tprintln(\"hello\")") {
		t.Errorf("diff missing removed line: %s", diff)
	}
	if !strings.Contains(diff, "+\tprintln(\"feature\")") {
		t.Errorf("diff missing added line: %s", diff)
	}
}

func TestEngineDiffUnknownRef(t *testing.T) {
	ctx := context.Background()
	tmp := t.TempDir()
	repo := initRepo(t, tmp)
	commitFile(t, repo, tmp, "main.go", "package main\n")

	engine := git.NewEngine(tmp)
	if _, err := engine.Diff(ctx, "no-such-branch", "master"); err == nil {
		t.Fatal("Diff should fail for an unknown base ref")
	}
}

func TestEngineAcquireRestoresBranch(t *testing.T) {
	ctx := context.Background()
	tmp := t.TempDir()
	repo := initRepo(t, tmp)
	commitFile(t, repo, tmp, "main.go", "package main\n")

	checkoutBranch(t, repo, "feature", true)
	commitFile(t, repo, tmp, "extra.go", "package main\n")
	checkoutBranch(t, repo, "master", false)

	engine := git.NewEngine(tmp)
	release, err := engine.Acquire(ctx, "feature")
	if err != nil {
		t.Fatalf("Acquire returned error: %v", err)
	}

	branch, err := engine.CurrentBranch(ctx)
	if err != nil {
		t.Fatalf("CurrentBranch returned error: %v", err)
	}
	if branch != "feature" {
		t.Errorf("after Acquire branch = %q, want %q", branch, "feature")
	}

	if err := release(); err != nil {
		t.Fatalf("release returned error: %v", err)
	}

	branch, err = engine.CurrentBranch(ctx)
	if err != nil {
		t.Fatalf("CurrentBranch returned error: %v", err)
	}
	if branch != "master" {
		t.Errorf("after release branch = %q, want %q", branch, "master")
	}

	// Release is idempotent.
	if err := release(); err != nil {
		t.Fatalf("second release returned error: %v", err)
	}
}

func TestEngineAcquireNoopOnSameBranch(t *testing.T) {
	ctx := context.Background()
	tmp := t.TempDir()
	repo := initRepo(t, tmp)
	commitFile(t, repo, tmp, "main.go", "package main\n")

	engine := git.NewEngine(tmp)
	release, err := engine.Acquire(ctx, "master")
	if err != nil {
		t.Fatalf("Acquire returned error: %v", err)
	}
	if err := release(); err != nil {
		t.Fatalf("release returned error: %v", err)
	}

	branch, err := engine.CurrentBranch(ctx)
	if err != nil {
		t.Fatalf("CurrentBranch returned error: %v", err)
	}
	if branch != "master" {
		t.Errorf("branch = %q, want %q", branch, "master")
	}
}

func initRepo(t *testing.T, dir string) *goGit.Repository {
	t.Helper()
	repo, err := goGit.PlainInit(dir, false)
	if err != nil {
		t.Fatalf("failed to init repo: %v", err)
	}
	return repo
}

func commitFile(t *testing.T, repo *goGit.Repository, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600); err != nil {
		t.Fatalf("write file error: %v", err)
	}
	worktree, err := repo.Worktree()
	if err != nil {
		t.Fatalf("worktree error: %v", err)
	}
	if _, err := worktree.Add(name); err != nil {
		t.Fatalf("add error: %v", err)
	}
	if _, err := worktree.Commit("update "+name, &goGit.CommitOptions{Author: defaultSignature()}); err != nil {
		t.Fatalf("commit error: %v", err)
	}
}

func checkoutBranch(t *testing.T, repo *goGit.Repository, branch string, create bool) {
	t.Helper()
	worktree, err := repo.Worktree()
	if err != nil {
		t.Fatalf("worktree error: %v", err)
	}
	if err := worktree.Checkout(&goGit.CheckoutOptions{
		Branch: plumbing.NewBranchReferenceName(branch),
		Create: create,
	}); err != nil {
		t.Fatalf("checkout error: %v", err)
	}
}

func defaultSignature() *object.Signature {
	return &object.Signature{
		Name:  "Test",
		Email: "test@example.com",
		When:  time.Unix(0, 0).UTC(),
	}
}
