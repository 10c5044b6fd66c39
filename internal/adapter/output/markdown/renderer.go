// Package markdown renders an archive as a Markdown document. Diff hunks go
// into fenced ```diff blocks with the change marker at column zero so that
// standard highlighters pick them up; comment threads interrupt the fence as
// blockquotes right under the line they anchor to.
package markdown

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/prdump/prdump/internal/diff"
	"github.com/prdump/prdump/internal/domain"
)

// Renderer emits Markdown documents.
type Renderer struct {
	caser cases.Caser
}

// NewRenderer constructs a Markdown renderer.
func NewRenderer() *Renderer {
	return &Renderer{caser: cases.Title(language.English)}
}

// Render builds the complete document for one archive.
func (r *Renderer) Render(archive domain.Archive) (string, error) {
	var b strings.Builder

	r.writeHeader(&b, archive)
	r.writeDescription(&b, archive.PR.Body)
	r.writeChanges(&b, archive.Diff)
	r.writeFiles(&b, archive.Diff.Files)
	r.writeMissingFiles(&b, archive.Diff.MissingFiles)
	r.writeGeneralComments(&b, archive.GeneralComments)
	r.writeReviews(&b, archive.Reviews)

	return b.String(), nil
}

func (r *Renderer) writeHeader(b *strings.Builder, archive domain.Archive) {
	pr := archive.PR
	fmt.Fprintf(b, "# PR #%d: %s\n\n", pr.Number, pr.Title)
	fmt.Fprintf(b, "- **Repository:** %s\n", pr.Repository)
	fmt.Fprintf(b, "- **Author:** %s\n", pr.Author)
	fmt.Fprintf(b, "- **State:** %s\n", pr.State)
	fmt.Fprintf(b, "- **Branches:** %s -> %s\n", pr.HeadRef, pr.BaseRef)
	fmt.Fprintf(b, "- **Created:** %s\n", formatTime(pr.CreatedAt))
	fmt.Fprintf(b, "- **Updated:** %s\n", formatTime(pr.UpdatedAt))
	fmt.Fprintf(b, "- **Mergeable:** %s\n", mergeableLabel(pr.Mergeable))
	if archive.DiffCommand != "" {
		fmt.Fprintf(b, "- **Diff command:** `%s`\n", archive.DiffCommand)
	}
	b.WriteString("\n")
	if len(archive.Warnings) > 0 {
		b.WriteString("**Warnings:**\n\n")
		for _, w := range archive.Warnings {
			fmt.Fprintf(b, "- %s\n", w)
		}
		b.WriteString("\n")
	}
}

func (r *Renderer) writeDescription(b *strings.Builder, body string) {
	if strings.TrimSpace(body) == "" {
		return
	}
	b.WriteString("## Description\n\n")
	b.WriteString(strings.TrimRight(body, "\n"))
	b.WriteString("\n\n")
}

func (r *Renderer) writeChanges(b *strings.Builder, d domain.AnnotatedDiff) {
	b.WriteString("## Changes\n\n")
	if d.Empty() {
		b.WriteString("No changes found.\n\n")
		return
	}
	totalAdded, totalRemoved := 0, 0
	for _, f := range d.Files {
		added, removed := f.Stats()
		totalAdded += added
		totalRemoved += removed
	}
	fmt.Fprintf(b, "%d files changed (+%d -%d)\n\n", len(d.Files), totalAdded, totalRemoved)
	for _, f := range d.Files {
		added, removed := f.Stats()
		fmt.Fprintf(b, "- %s (+%d -%d)\n", fileLabel(f), added, removed)
	}
	b.WriteString("\n")
}

func (r *Renderer) writeFiles(b *strings.Builder, files []domain.AnnotatedFile) {
	if len(files) == 0 {
		return
	}
	b.WriteString("## Annotated diff\n\n")
	for _, f := range files {
		fmt.Fprintf(b, "### %s\n\n", fileLabel(f))
		if f.Status == diff.StatusBinary {
			b.WriteString("(binary file differs)\n\n")
		}
		for _, h := range f.Hunks {
			r.writeHunk(b, h)
		}
		if len(f.Orphaned) > 0 {
			b.WriteString("**Orphaned comments (anchor not in current diff):**\n\n")
			for _, th := range f.Orphaned {
				r.writeThread(b, th, anchorLabel(th.Root))
			}
		}
	}
}

// writeHunk streams a hunk into a ```diff fence, interrupting the fence
// wherever a line carries threads.
func (r *Renderer) writeHunk(b *strings.Builder, h domain.AnnotatedHunk) {
	open := false
	ensureOpen := func() {
		if !open {
			b.WriteString("```diff\n")
			open = true
		}
	}
	closeFence := func() {
		if open {
			b.WriteString("```\n\n")
			open = false
		}
	}

	ensureOpen()
	fmt.Fprintf(b, "%s\n", h.Header())
	for _, l := range h.Lines {
		ensureOpen()
		b.WriteString(formatLine(l.Line))
		if len(l.Threads) > 0 {
			closeFence()
			for _, th := range l.Threads {
				r.writeThread(b, th, "")
			}
		}
	}
	closeFence()
}

// writeThread renders one thread as a single blockquote. A non-empty anchor
// notes where the thread originally pointed.
func (r *Renderer) writeThread(b *strings.Builder, th domain.Thread, anchor string) {
	if anchor != "" {
		fmt.Fprintf(b, "> **%s** commented at %s %s\n", th.Root.Author, formatTime(th.Root.CreatedAt), anchor)
	} else {
		fmt.Fprintf(b, "> **%s** commented at %s\n", th.Root.Author, formatTime(th.Root.CreatedAt))
	}
	writeQuotedBody(b, th.Root.Body)
	for _, reply := range th.Replies {
		b.WriteString(">\n")
		fmt.Fprintf(b, "> **%s** replied at %s\n", reply.Author, formatTime(reply.CreatedAt))
		writeQuotedBody(b, reply.Body)
	}
	b.WriteString("\n")
}

func (r *Renderer) writeMissingFiles(b *strings.Builder, missing []domain.FileThreads) {
	if len(missing) == 0 {
		return
	}
	b.WriteString("## Comments on files not in this diff\n\n")
	for _, ft := range missing {
		fmt.Fprintf(b, "### %s\n\n", ft.Path)
		for _, th := range ft.Threads {
			r.writeThread(b, th, anchorLabel(th.Root))
		}
	}
}

func (r *Renderer) writeGeneralComments(b *strings.Builder, comments []domain.GeneralComment) {
	if len(comments) == 0 {
		return
	}
	b.WriteString("## General comments\n\n")
	for _, c := range comments {
		fmt.Fprintf(b, "> **%s** commented at %s\n", c.Author, formatTime(c.CreatedAt))
		writeQuotedBody(b, c.Body)
		b.WriteString("\n")
	}
}

func (r *Renderer) writeReviews(b *strings.Builder, reviews []domain.Review) {
	if len(reviews) == 0 {
		return
	}
	b.WriteString("## Reviews\n\n")
	for _, review := range reviews {
		fmt.Fprintf(b, "> **%s** reviewed at %s: **%s**\n",
			review.Author, formatTime(review.SubmittedAt), r.stateLabel(review.State))
		writeQuotedBody(b, review.Body)
		b.WriteString("\n")
	}
}

func (r *Renderer) stateLabel(state domain.ReviewState) string {
	return r.caser.String(strings.ReplaceAll(string(state), "_", " "))
}

// formatLine renders one diff line with the change marker at column zero
// and the dual line-number gutter after it.
func formatLine(l diff.Line) string {
	oldNum, newNum := "", ""
	if l.OldLine != nil {
		oldNum = fmt.Sprintf("%d", *l.OldLine)
	}
	if l.NewLine != nil {
		newNum = fmt.Sprintf("%d", *l.NewLine)
	}
	out := fmt.Sprintf("%s%6s %6s  %s\n", l.Type.Marker(), oldNum, newNum, l.Content)
	if l.NoNewline {
		out += `\ No newline at end of file` + "\n"
	}
	return out
}

// writeQuotedBody emits a body inside the current blockquote.
func writeQuotedBody(b *strings.Builder, body string) {
	if body == "" {
		return
	}
	b.WriteString(">\n")
	for _, line := range strings.Split(strings.TrimRight(body, "\n"), "\n") {
		if line == "" {
			b.WriteString(">\n")
			continue
		}
		fmt.Fprintf(b, "> %s\n", line)
	}
}

func fileLabel(f domain.AnnotatedFile) string {
	if f.Status == diff.StatusRenamed && f.OldPath != "" && f.OldPath != f.NewPath {
		return fmt.Sprintf("`%s` -> `%s` (renamed)", f.OldPath, f.NewPath)
	}
	return fmt.Sprintf("`%s` (%s)", f.Path(), f.Status)
}

func anchorLabel(c domain.Comment) string {
	if c.Line == nil {
		return "(no anchor)"
	}
	return fmt.Sprintf("(%s line %d)", c.Side, *c.Line)
}

func mergeableLabel(m *bool) string {
	switch {
	case m == nil:
		return "unknown"
	case *m:
		return "yes"
	default:
		return "no"
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "unknown"
	}
	return t.UTC().Format(time.RFC3339)
}
