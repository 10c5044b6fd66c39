package html_test

import (
	"strings"
	"testing"
	"time"

	"github.com/prdump/prdump/internal/adapter/output/html"
	"github.com/prdump/prdump/internal/diff"
	"github.com/prdump/prdump/internal/domain"
)

var renderBase = time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC)

func sampleArchive() domain.Archive {
	thread := domain.Thread{
		Root: domain.Comment{
			ID: 1, Author: "alice", Body: "This needs **bold** care.\n\n<script>alert(1)</script>",
			CreatedAt: renderBase, Path: "internal/guard/guard.go",
			Side: domain.SideNew, Line: diff.IntPtr(11),
		},
		Replies: []domain.Comment{{
			ID: 2, Author: "bob", Body: "Done.",
			CreatedAt: renderBase.Add(time.Hour), Path: "internal/guard/guard.go",
			Side: domain.SideNew,
		}},
	}
	return domain.Archive{
		PR: domain.PullRequest{
			Number: 7, Title: "Fix <Parser> & co", Body: "Hardens the *guard* clause.",
			Author: "alice", State: "open", BaseRef: "main", HeadRef: "fix/guard",
			CreatedAt: renderBase, Repository: "acme/api",
		},
		Diff: domain.AnnotatedDiff{
			Files: []domain.AnnotatedFile{{
				OldPath: "internal/guard/guard.go", NewPath: "internal/guard/guard.go", Status: diff.StatusModified,
				Hunks: []domain.AnnotatedHunk{{
					OldStart: 10, OldLines: 2, NewStart: 10, NewLines: 3,
					Lines: []domain.AnnotatedLine{
						{Line: diff.Line{Type: diff.LineContext, Content: "func guard(x, y int) bool {", OldLine: diff.IntPtr(10), NewLine: diff.IntPtr(10)}},
						{Line: diff.Line{Type: diff.LineAddition, Content: "\tif x < 10 && y > 2 {", NewLine: diff.IntPtr(11)}, Threads: []domain.Thread{thread}},
						{Line: diff.Line{Type: diff.LineContext, Content: "}", OldLine: diff.IntPtr(11), NewLine: diff.IntPtr(12)}},
					},
				}},
			}},
		},
		Reviews: []domain.Review{{
			Author: "dave", SubmittedAt: renderBase.Add(5 * time.Hour),
			State: domain.ReviewChangesRequested, Body: "One blocker.",
		}},
	}
}

func render(t *testing.T, archive domain.Archive) string {
	t.Helper()
	doc, err := html.NewRenderer().Render(archive)
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	return doc
}

func TestRenderer_SelfContainedDocument(t *testing.T) {
	doc := render(t, sampleArchive())

	for _, want := range []string{
		"<!DOCTYPE html>",
		"<style>",
		"<h1>PR #7: Fix &lt;Parser&gt; &amp; co</h1>",
		"<h2>Changes</h2>",
		"<h2>Annotated diff</h2>",
		"<h2>Reviews</h2>",
		"</html>",
	} {
		if !strings.Contains(doc, want) {
			t.Errorf("document missing %q", want)
		}
	}
	if strings.Contains(doc, "<link") || strings.Contains(doc, "src=") {
		t.Error("document must not reference external assets")
	}
}

func TestRenderer_EscapesDiffContent(t *testing.T) {
	doc := render(t, sampleArchive())

	if !strings.Contains(doc, "\tif x &lt; 10 &amp;&amp; y &gt; 2 {") {
		t.Error("diff content not escaped")
	}
	if strings.Contains(doc, "if x < 10 && y > 2") {
		t.Error("raw diff content leaked into the document")
	}
}

func TestRenderer_LineClassesAndNumbers(t *testing.T) {
	doc := render(t, sampleArchive())

	if !strings.Contains(doc, `<tr class="diff-line diff-add">`) {
		t.Error("addition row missing diff-add class")
	}
	if !strings.Contains(doc, `<tr class="diff-line diff-context"><td class="lineno">10</td><td class="lineno">10</td>`) {
		t.Error("context row missing dual line numbers")
	}
	// Addition has no old-side number.
	if !strings.Contains(doc, `<tr class="diff-line diff-add"><td class="lineno"></td><td class="lineno">11</td>`) {
		t.Error("addition row must leave the old gutter empty")
	}
}

func TestRenderer_SanitizesCommentBodies(t *testing.T) {
	doc := render(t, sampleArchive())

	if strings.Contains(doc, "<script>") {
		t.Error("script tag survived sanitization")
	}
	if !strings.Contains(doc, "<strong>bold</strong>") {
		t.Error("markdown in comment bodies not rendered")
	}
}

func TestRenderer_ThreadFollowsItsLine(t *testing.T) {
	doc := render(t, sampleArchive())

	line := strings.Index(doc, "if x &lt; 10")
	comment := strings.Index(doc, `<span class="author">alice</span> commented`)
	reply := strings.Index(doc, `<span class="author">bob</span> replied`)
	next := strings.Index(doc, `<td class="line-content"> }`)
	if line < 0 || comment < 0 || reply < 0 || next < 0 {
		t.Fatalf("missing blocks (line=%d comment=%d reply=%d next=%d)", line, comment, reply, next)
	}
	if !(line < comment && comment < reply && reply < next) {
		t.Error("thread not rendered between its line and the rest of the hunk")
	}
}

func TestRenderer_ReviewState(t *testing.T) {
	doc := render(t, sampleArchive())

	if !strings.Contains(doc, "Changes Requested") {
		t.Error("review state not title-cased")
	}
}

func TestRenderer_EmptyDiffNotice(t *testing.T) {
	archive := sampleArchive()
	archive.Diff.Files = nil

	doc := render(t, archive)

	if !strings.Contains(doc, `<p class="notice">No changes found.</p>`) {
		t.Error("empty diff must render the no-changes notice")
	}
	if strings.Contains(doc, "diff-table") {
		t.Error("empty diff must not render a diff table")
	}
}
