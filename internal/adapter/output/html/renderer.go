// Package html renders an archive as a single self-contained HTML document
// with an embedded stylesheet. Diff lines become table rows with a dual
// line-number gutter; comment threads become rows spliced in right under
// the line they anchor to.
//
// All literal content (diff lines, titles, paths, authors) is HTML-escaped.
// Comment bodies are Markdown: they are converted with goldmark and then
// sanitized with bluemonday, so no raw user markup survives into the
// document.
package html

import (
	"bytes"
	"fmt"
	stdhtml "html"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	ghtml "github.com/yuin/goldmark/renderer/html"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/prdump/prdump/internal/diff"
	"github.com/prdump/prdump/internal/domain"
)

var (
	mdRenderer    goldmark.Markdown
	htmlSanitizer *bluemonday.Policy
)

func init() {
	mdRenderer = goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(ghtml.WithUnsafe()),
	)

	htmlSanitizer = bluemonday.UGCPolicy()
}

// renderMarkdown converts a Markdown body to sanitized HTML.
func renderMarkdown(src string) string {
	if src == "" {
		return ""
	}

	var buf bytes.Buffer
	if err := mdRenderer.Convert([]byte(src), &buf); err != nil {
		return htmlSanitizer.Sanitize(src)
	}

	return htmlSanitizer.Sanitize(buf.String())
}

// Renderer emits self-contained HTML documents.
type Renderer struct {
	caser cases.Caser
}

// NewRenderer constructs an HTML renderer.
func NewRenderer() *Renderer {
	return &Renderer{caser: cases.Title(language.English)}
}

// Render builds the complete document for one archive.
func (r *Renderer) Render(archive domain.Archive) (string, error) {
	var b strings.Builder

	title := fmt.Sprintf("PR #%d: %s", archive.PR.Number, archive.PR.Title)
	b.WriteString("<!DOCTYPE html>\n<html lang=\"en\">\n<head>\n<meta charset=\"utf-8\">\n")
	fmt.Fprintf(&b, "<title>%s</title>\n", esc(title))
	b.WriteString("<style>\n" + stylesheet + "</style>\n</head>\n<body>\n<div class=\"container\">\n")

	r.writeHeader(&b, archive)
	r.writeDescription(&b, archive.PR.Body)
	r.writeChanges(&b, archive.Diff)
	r.writeFiles(&b, archive.Diff.Files)
	r.writeMissingFiles(&b, archive.Diff.MissingFiles)
	r.writeGeneralComments(&b, archive.GeneralComments)
	r.writeReviews(&b, archive.Reviews)

	b.WriteString("</div>\n</body>\n</html>\n")
	return b.String(), nil
}

func (r *Renderer) writeHeader(b *strings.Builder, archive domain.Archive) {
	pr := archive.PR
	b.WriteString("<header>\n")
	fmt.Fprintf(b, "<h1>PR #%d: %s</h1>\n", pr.Number, esc(pr.Title))
	b.WriteString("<ul class=\"meta\">\n")
	writeMeta(b, "Repository", pr.Repository)
	writeMeta(b, "Author", pr.Author)
	writeMeta(b, "State", pr.State)
	writeMeta(b, "Branches", fmt.Sprintf("%s -> %s", pr.HeadRef, pr.BaseRef))
	writeMeta(b, "Created", formatTime(pr.CreatedAt))
	writeMeta(b, "Updated", formatTime(pr.UpdatedAt))
	writeMeta(b, "Mergeable", mergeableLabel(pr.Mergeable))
	if archive.DiffCommand != "" {
		writeMeta(b, "Diff command", archive.DiffCommand)
	}
	b.WriteString("</ul>\n")
	if len(archive.Warnings) > 0 {
		b.WriteString("<div class=\"warnings\"><strong>Warnings:</strong><ul>\n")
		for _, w := range archive.Warnings {
			fmt.Fprintf(b, "<li>%s</li>\n", esc(w))
		}
		b.WriteString("</ul></div>\n")
	}
	b.WriteString("</header>\n")
}

func (r *Renderer) writeDescription(b *strings.Builder, body string) {
	if strings.TrimSpace(body) == "" {
		return
	}
	b.WriteString("<section class=\"description\">\n<h2>Description</h2>\n")
	b.WriteString("<div class=\"body\">" + renderMarkdown(body) + "</div>\n</section>\n")
}

func (r *Renderer) writeChanges(b *strings.Builder, d domain.AnnotatedDiff) {
	b.WriteString("<section class=\"changes\">\n<h2>Changes</h2>\n")
	if d.Empty() {
		b.WriteString("<p class=\"notice\">No changes found.</p>\n</section>\n")
		return
	}
	totalAdded, totalRemoved := 0, 0
	for _, f := range d.Files {
		added, removed := f.Stats()
		totalAdded += added
		totalRemoved += removed
	}
	fmt.Fprintf(b, "<p>%d files changed (<span class=\"add\">+%d</span> <span class=\"del\">-%d</span>)</p>\n",
		len(d.Files), totalAdded, totalRemoved)
	b.WriteString("<ul class=\"file-list\">\n")
	for _, f := range d.Files {
		added, removed := f.Stats()
		fmt.Fprintf(b, "<li>%s (<span class=\"add\">+%d</span> <span class=\"del\">-%d</span>)</li>\n",
			esc(fileLabel(f)), added, removed)
	}
	b.WriteString("</ul>\n</section>\n")
}

func (r *Renderer) writeFiles(b *strings.Builder, files []domain.AnnotatedFile) {
	if len(files) == 0 {
		return
	}
	b.WriteString("<section class=\"files\">\n<h2>Annotated diff</h2>\n")
	for _, f := range files {
		b.WriteString("<div class=\"file\">\n")
		fmt.Fprintf(b, "<h3>%s</h3>\n", esc(fileLabel(f)))
		if f.Status == diff.StatusBinary {
			b.WriteString("<p class=\"notice\">(binary file differs)</p>\n")
		}
		if len(f.Hunks) > 0 {
			b.WriteString("<table class=\"diff-table\">\n")
			for _, h := range f.Hunks {
				r.writeHunk(b, h)
			}
			b.WriteString("</table>\n")
		}
		if len(f.Orphaned) > 0 {
			b.WriteString("<div class=\"orphans\">\n<h4>Orphaned comments (anchor not in current diff)</h4>\n")
			for _, th := range f.Orphaned {
				r.writeThread(b, th, anchorLabel(th.Root))
			}
			b.WriteString("</div>\n")
		}
		b.WriteString("</div>\n")
	}
	b.WriteString("</section>\n")
}

func (r *Renderer) writeHunk(b *strings.Builder, h domain.AnnotatedHunk) {
	fmt.Fprintf(b, "<tr class=\"hunk-header\"><td colspan=\"3\">%s</td></tr>\n", esc(h.Header()))
	for _, l := range h.Lines {
		oldNum, newNum := "", ""
		if l.Line.OldLine != nil {
			oldNum = fmt.Sprintf("%d", *l.Line.OldLine)
		}
		if l.Line.NewLine != nil {
			newNum = fmt.Sprintf("%d", *l.Line.NewLine)
		}
		fmt.Fprintf(b, "<tr class=\"diff-line %s\"><td class=\"lineno\">%s</td><td class=\"lineno\">%s</td><td class=\"line-content\">%s%s</td></tr>\n",
			lineClass(l.Line.Type), oldNum, newNum, esc(l.Line.Type.Marker()), esc(l.Line.Content))
		if l.Line.NoNewline {
			b.WriteString("<tr class=\"diff-line no-newline\"><td class=\"lineno\"></td><td class=\"lineno\"></td><td class=\"line-content\">\\ No newline at end of file</td></tr>\n")
		}
		if len(l.Threads) > 0 {
			b.WriteString("<tr class=\"comment-row\"><td colspan=\"3\">\n")
			for _, th := range l.Threads {
				r.writeThread(b, th, "")
			}
			b.WriteString("</td></tr>\n")
		}
	}
}

// writeThread renders one thread as a card stack. A non-empty anchor notes
// where the thread originally pointed.
func (r *Renderer) writeThread(b *strings.Builder, th domain.Thread, anchor string) {
	b.WriteString("<div class=\"thread\">\n")
	r.writeComment(b, th.Root.Author, "commented", formatTime(th.Root.CreatedAt), anchor, th.Root.Body, false)
	for _, reply := range th.Replies {
		r.writeComment(b, reply.Author, "replied", formatTime(reply.CreatedAt), "", reply.Body, true)
	}
	b.WriteString("</div>\n")
}

func (r *Renderer) writeComment(b *strings.Builder, author, verb, ts, anchor, body string, reply bool) {
	class := "comment"
	if reply {
		class = "comment reply"
	}
	fmt.Fprintf(b, "<div class=\"%s\">\n", class)
	fmt.Fprintf(b, "<div class=\"comment-head\"><span class=\"author\">%s</span> %s at <span class=\"time\">%s</span>", esc(author), verb, esc(ts))
	if anchor != "" {
		fmt.Fprintf(b, " <span class=\"anchor\">%s</span>", esc(anchor))
	}
	b.WriteString("</div>\n")
	if body != "" {
		b.WriteString("<div class=\"body\">" + renderMarkdown(body) + "</div>\n")
	}
	b.WriteString("</div>\n")
}

func (r *Renderer) writeMissingFiles(b *strings.Builder, missing []domain.FileThreads) {
	if len(missing) == 0 {
		return
	}
	b.WriteString("<section class=\"missing\">\n<h2>Comments on files not in this diff</h2>\n")
	for _, ft := range missing {
		fmt.Fprintf(b, "<h3>%s</h3>\n", esc(ft.Path))
		for _, th := range ft.Threads {
			r.writeThread(b, th, anchorLabel(th.Root))
		}
	}
	b.WriteString("</section>\n")
}

func (r *Renderer) writeGeneralComments(b *strings.Builder, comments []domain.GeneralComment) {
	if len(comments) == 0 {
		return
	}
	b.WriteString("<section class=\"general\">\n<h2>General comments</h2>\n")
	for _, c := range comments {
		b.WriteString("<div class=\"thread\">\n")
		r.writeComment(b, c.Author, "commented", formatTime(c.CreatedAt), "", c.Body, false)
		b.WriteString("</div>\n")
	}
	b.WriteString("</section>\n")
}

func (r *Renderer) writeReviews(b *strings.Builder, reviews []domain.Review) {
	if len(reviews) == 0 {
		return
	}
	b.WriteString("<section class=\"reviews\">\n<h2>Reviews</h2>\n")
	for _, review := range reviews {
		b.WriteString("<div class=\"thread\">\n<div class=\"comment\">\n")
		fmt.Fprintf(b, "<div class=\"comment-head\"><span class=\"author\">%s</span> reviewed at <span class=\"time\">%s</span> <span class=\"state\">%s</span></div>\n",
			esc(review.Author), esc(formatTime(review.SubmittedAt)), esc(r.stateLabel(review.State)))
		if review.Body != "" {
			b.WriteString("<div class=\"body\">" + renderMarkdown(review.Body) + "</div>\n")
		}
		b.WriteString("</div>\n</div>\n")
	}
	b.WriteString("</section>\n")
}

func (r *Renderer) stateLabel(state domain.ReviewState) string {
	return r.caser.String(strings.ReplaceAll(string(state), "_", " "))
}

func writeMeta(b *strings.Builder, label, value string) {
	fmt.Fprintf(b, "<li><span class=\"label\">%s:</span> %s</li>\n", esc(label), esc(value))
}

func lineClass(t diff.LineType) string {
	switch t {
	case diff.LineAddition:
		return "diff-add"
	case diff.LineDeletion:
		return "diff-del"
	default:
		return "diff-context"
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

func esc(s string) string {
	return stdhtml.EscapeString(s)
}

const stylesheet = `body { margin: 0; font-family: -apple-system, "Segoe UI", sans-serif; background: #0f172a; color: #e2e8f0; }
.container { max-width: 1100px; margin: 0 auto; padding: 24px; }
header h1 { font-size: 1.4rem; margin-bottom: 8px; }
.meta { list-style: none; padding: 0; margin: 0 0 16px; font-size: 0.9rem; }
.meta .label { color: #94a3b8; }
.warnings { border: 1px solid #b45309; border-radius: 6px; padding: 8px 12px; margin-bottom: 16px; }
section { margin-bottom: 28px; }
h2 { font-size: 1.1rem; border-bottom: 1px solid #1e293b; padding-bottom: 6px; }
h3 { font-size: 0.95rem; font-family: ui-monospace, monospace; }
.notice { color: #94a3b8; font-style: italic; }
.add { color: #4ade80; }
.del { color: #f87171; }
.file-list { font-family: ui-monospace, monospace; font-size: 0.85rem; }
.diff-table { width: 100%; border-collapse: collapse; font-family: ui-monospace, monospace; font-size: 0.8rem; }
.diff-table td { padding: 1px 8px; vertical-align: top; }
.lineno { width: 1%; min-width: 42px; text-align: right; color: #64748b; user-select: none; }
.line-content { white-space: pre-wrap; word-break: break-all; }
.hunk-header td { background: rgba(96,165,250,0.08); color: #93c5fd; padding: 4px 8px; }
.diff-line { background: rgba(15,23,42,0.6); }
.diff-add { background: rgba(34,197,94,0.12); }
.diff-add .line-content { color: #bbf7d0; }
.diff-del { background: rgba(239,68,68,0.12); }
.diff-del .line-content { color: #fecdd3; }
.no-newline .line-content { color: #64748b; }
.comment-row td { padding: 8px 16px; background: rgba(30,41,59,0.8); }
.thread { border: 1px solid #334155; border-radius: 6px; padding: 8px 12px; margin: 6px 0; }
.comment { margin: 4px 0; }
.comment.reply { margin-left: 20px; border-left: 2px solid #334155; padding-left: 10px; }
.comment-head { font-size: 0.85rem; color: #94a3b8; }
.comment-head .author { color: #e2e8f0; font-weight: 600; }
.comment-head .state { color: #93c5fd; font-weight: 600; }
.comment-head .anchor { color: #64748b; }
.comment .body { font-size: 0.9rem; }
.comment .body pre { background: #111827; padding: 8px; border-radius: 4px; overflow-x: auto; }
.orphans { margin-top: 8px; }
.orphans h4 { margin: 8px 0 4px; color: #fbbf24; font-size: 0.85rem; }
`
