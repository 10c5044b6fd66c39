// Package text renders an archive as a plain-text document. The layout is
// deliberately grep-friendly: fixed dual line-number gutters, ASCII-only
// markers, and one logical block per section.
package text

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/prdump/prdump/internal/diff"
	"github.com/prdump/prdump/internal/domain"
)

const rule = "--------------------------------------------------------------------------------"

// Renderer emits plain-text documents.
type Renderer struct {
	caser cases.Caser
}

// NewRenderer constructs a text renderer.
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
	banner := strings.Repeat("=", len(rule))
	b.WriteString(banner + "\n")
	fmt.Fprintf(b, "PR #%d: %s\n", pr.Number, pr.Title)
	b.WriteString(banner + "\n")
	fmt.Fprintf(b, "Repository:   %s\n", pr.Repository)
	fmt.Fprintf(b, "Author:       %s\n", pr.Author)
	fmt.Fprintf(b, "State:        %s\n", pr.State)
	fmt.Fprintf(b, "Branches:     %s -> %s\n", pr.HeadRef, pr.BaseRef)
	fmt.Fprintf(b, "Created:      %s\n", formatTime(pr.CreatedAt))
	fmt.Fprintf(b, "Updated:      %s\n", formatTime(pr.UpdatedAt))
	fmt.Fprintf(b, "Mergeable:    %s\n", mergeableLabel(pr.Mergeable))
	if archive.DiffCommand != "" {
		fmt.Fprintf(b, "Diff command: %s\n", archive.DiffCommand)
	}
	if len(archive.Warnings) > 0 {
		b.WriteString("\nWarnings:\n")
		for _, w := range archive.Warnings {
			fmt.Fprintf(b, "  - %s\n", w)
		}
	}
	b.WriteString("\n")
}

func (r *Renderer) writeDescription(b *strings.Builder, body string) {
	if strings.TrimSpace(body) == "" {
		return
	}
	b.WriteString("Description\n" + rule + "\n")
	b.WriteString(strings.TrimRight(body, "\n"))
	b.WriteString("\n\n")
}

func (r *Renderer) writeChanges(b *strings.Builder, d domain.AnnotatedDiff) {
	b.WriteString("Changes\n" + rule + "\n")
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
		fmt.Fprintf(b, "  %s (+%d -%d)\n", fileLabel(f), added, removed)
	}
	b.WriteString("\n")
}

func (r *Renderer) writeFiles(b *strings.Builder, files []domain.AnnotatedFile) {
	if len(files) == 0 {
		return
	}
	b.WriteString("Annotated diff\n" + rule + "\n")
	for _, f := range files {
		fmt.Fprintf(b, "\n--- %s\n", fileLabel(f))
		if f.Status == diff.StatusBinary {
			b.WriteString("    (binary file differs)\n")
		}
		for _, h := range f.Hunks {
			fmt.Fprintf(b, "\n%s\n", h.Header())
			for _, l := range h.Lines {
				b.WriteString(formatLine(l.Line))
				for _, th := range l.Threads {
					r.writeThread(b, th, "    ")
				}
			}
		}
		if len(f.Orphaned) > 0 {
			b.WriteString("\n  Orphaned comments (anchor not in current diff):\n")
			for _, th := range f.Orphaned {
				r.writeAnchoredThread(b, th, "    ")
			}
		}
	}
	b.WriteString("\n")
}

func (r *Renderer) writeMissingFiles(b *strings.Builder, missing []domain.FileThreads) {
	if len(missing) == 0 {
		return
	}
	b.WriteString("Comments on files not in this diff\n" + rule + "\n")
	for _, ft := range missing {
		fmt.Fprintf(b, "\n%s:\n", ft.Path)
		for _, th := range ft.Threads {
			r.writeAnchoredThread(b, th, "  ")
		}
	}
	b.WriteString("\n")
}

func (r *Renderer) writeGeneralComments(b *strings.Builder, comments []domain.GeneralComment) {
	if len(comments) == 0 {
		return
	}
	b.WriteString("General comments\n" + rule + "\n")
	for _, c := range comments {
		fmt.Fprintf(b, "\n[comment] %s at %s\n", c.Author, formatTime(c.CreatedAt))
		writeBody(b, c.Body, "  ")
	}
	b.WriteString("\n")
}

func (r *Renderer) writeReviews(b *strings.Builder, reviews []domain.Review) {
	if len(reviews) == 0 {
		return
	}
	b.WriteString("Reviews\n" + rule + "\n")
	for _, review := range reviews {
		fmt.Fprintf(b, "\n[review] %s at %s: %s\n",
			review.Author, formatTime(review.SubmittedAt), r.stateLabel(review.State))
		writeBody(b, review.Body, "  ")
	}
}

// writeThread renders a thread under an attached line.
func (r *Renderer) writeThread(b *strings.Builder, th domain.Thread, indent string) {
	fmt.Fprintf(b, "%s[comment] %s at %s\n", indent, th.Root.Author, formatTime(th.Root.CreatedAt))
	writeBody(b, th.Root.Body, indent+"  ")
	for _, reply := range th.Replies {
		fmt.Fprintf(b, "%s[reply] %s at %s\n", indent, reply.Author, formatTime(reply.CreatedAt))
		writeBody(b, reply.Body, indent+"  ")
	}
}

// writeAnchoredThread is writeThread plus the original anchor, for threads
// shown away from any diff line.
func (r *Renderer) writeAnchoredThread(b *strings.Builder, th domain.Thread, indent string) {
	fmt.Fprintf(b, "%s[comment] %s at %s %s\n",
		indent, th.Root.Author, formatTime(th.Root.CreatedAt), anchorLabel(th.Root))
	writeBody(b, th.Root.Body, indent+"  ")
	for _, reply := range th.Replies {
		fmt.Fprintf(b, "%s[reply] %s at %s\n", indent, reply.Author, formatTime(reply.CreatedAt))
		writeBody(b, reply.Body, indent+"  ")
	}
}

func (r *Renderer) stateLabel(state domain.ReviewState) string {
	return r.caser.String(strings.ReplaceAll(string(state), "_", " "))
}

// formatLine renders one diff line with its dual line-number gutter.
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
		out += " " + strings.Repeat(" ", 14) + `\ No newline at end of file` + "\n"
	}
	return out
}

func writeBody(b *strings.Builder, body, indent string) {
	if body == "" {
		return
	}
	for _, line := range strings.Split(strings.TrimRight(body, "\n"), "\n") {
		fmt.Fprintf(b, "%s%s\n", indent, line)
	}
}

func fileLabel(f domain.AnnotatedFile) string {
	if f.Status == diff.StatusRenamed && f.OldPath != "" && f.OldPath != f.NewPath {
		return fmt.Sprintf("%s -> %s (renamed)", f.OldPath, f.NewPath)
	}
	return fmt.Sprintf("%s (%s)", f.Path(), f.Status)
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
