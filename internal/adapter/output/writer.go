package output

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/prdump/prdump/internal/domain"
)

type clock func() string

// Writer persists rendered documents under a single output directory.
type Writer struct {
	dir string
	now clock
}

// NewWriter constructs a document writer with a timestamp supplier.
func NewWriter(dir string, now clock) *Writer {
	return &Writer{dir: dir, now: now}
}

// DocumentName returns the filename of the annotated diff document.
func DocumentName(prNumber int, format string) string {
	return fmt.Sprintf("pr_%d_annotated_diff.%s", prNumber, format)
}

// SummaryName returns the filename of the companion summary.
func SummaryName(prNumber int) string {
	return fmt.Sprintf("pr_%d_summary.txt", prNumber)
}

// WriteDocument persists a fully assembled annotated diff document and
// returns its path. Nothing is written until the content is complete, so a
// failed run never leaves a partial document behind.
func (w *Writer) WriteDocument(prNumber int, format string, content string) (string, error) {
	return w.write(DocumentName(prNumber, format), content)
}

// WriteSummary renders the companion report and persists it next to the
// main document.
func (w *Writer) WriteSummary(report domain.SummaryReport) (string, error) {
	return w.write(SummaryName(report.PRNumber), w.buildSummary(report))
}

func (w *Writer) write(filename, content string) (string, error) {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}

	path := filepath.Join(w.dir, filename)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", filename, err)
	}

	return path, nil
}

func (w *Writer) buildSummary(report domain.SummaryReport) string {
	var builder strings.Builder
	fmt.Fprintf(&builder, "PR #%d review context summary\n", report.PRNumber)
	if report.Repository != "" {
		fmt.Fprintf(&builder, "Repository: %s\n", report.Repository)
	}
	fmt.Fprintf(&builder, "Generated: %s\n", w.now())
	if report.MainDocument != "" {
		fmt.Fprintf(&builder, "Main document: %s\n", report.MainDocument)
	}
	builder.WriteString("\n")

	fmt.Fprintf(&builder, "Files changed: %d\n", report.FilesChanged)
	fmt.Fprintf(&builder, "Inline comments: %d (attached %d, orphaned %d, file not in diff %d)\n",
		report.InlineComments(), report.AttachedComments, report.OrphanedComments, report.MissingFileComments)
	fmt.Fprintf(&builder, "General comments: %d\n", report.GeneralComments)
	fmt.Fprintf(&builder, "Reviews: %d\n", report.Reviews)

	if len(report.ChangedFiles) > 0 {
		builder.WriteString("\nChanged files:\n")
		for _, path := range report.ChangedFiles {
			fmt.Fprintf(&builder, "  %s\n", path)
		}
	}

	return builder.String()
}
