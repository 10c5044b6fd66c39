package domain

import "github.com/prdump/prdump/internal/diff"

// AnnotatedLine pairs one diff line with the threads anchored to it,
// in deterministic thread order.
type AnnotatedLine struct {
	Line    diff.Line
	Threads []Thread
}

// AnnotatedHunk mirrors a diff hunk with attachments per line.
type AnnotatedHunk struct {
	OldStart int
	OldLines int
	NewStart int
	NewLines int
	Section  string
	Lines    []AnnotatedLine
}

// Header reconstructs the canonical "@@ -a,b +c,d @@ section" header.
func (h AnnotatedHunk) Header() string {
	return diff.Hunk{
		OldStart: h.OldStart,
		OldLines: h.OldLines,
		NewStart: h.NewStart,
		NewLines: h.NewLines,
		Section:  h.Section,
	}.Header()
}

// AnnotatedFile is one diff file with attached and orphaned threads.
// Orphaned holds threads whose anchor does not resolve to any line of the
// current diff (outdated comments, or anchors outside the context window).
type AnnotatedFile struct {
	OldPath  string
	NewPath  string
	Status   diff.FileStatus
	Hunks    []AnnotatedHunk
	Orphaned []Thread
}

// Path returns the display path: the new path, falling back to the old
// path for deletions.
func (f AnnotatedFile) Path() string {
	if f.NewPath != "" {
		return f.NewPath
	}
	return f.OldPath
}

// Stats counts added and removed lines across all hunks.
func (f AnnotatedFile) Stats() (added, removed int) {
	for _, h := range f.Hunks {
		for _, l := range h.Lines {
			switch l.Line.Type {
			case diff.LineAddition:
				added++
			case diff.LineDeletion:
				removed++
			}
		}
	}
	return added, removed
}

// FileThreads groups the threads of a file that appears in the comment data
// but not in the diff.
type FileThreads struct {
	Path    string
	Threads []Thread
}

// AnnotatedDiff is the merged view of a diff and its review comments.
type AnnotatedDiff struct {
	Files []AnnotatedFile
	// MissingFiles holds threads for files absent from the diff, sorted by
	// path.
	MissingFiles []FileThreads
}

// Empty reports whether the diff contains no file changes.
func (d AnnotatedDiff) Empty() bool {
	return len(d.Files) == 0
}

// Archive is the immutable context for one run: everything the renderers
// and the summary builder read. Built once, never mutated.
type Archive struct {
	PR              PullRequest
	Diff            AnnotatedDiff
	GeneralComments []GeneralComment
	Reviews         []Review
	// DiffCommand describes how the diff text was obtained, for the
	// document header.
	DiffCommand string
	// Warnings carries non-fatal conditions (skipped file sections and the
	// like) surfaced as document content rather than failures.
	Warnings []string
}

// SummaryReport aggregates the counts shown in the companion summary file.
type SummaryReport struct {
	PRNumber            int
	Repository          string
	FilesChanged        int
	AttachedComments    int
	OrphanedComments    int
	MissingFileComments int
	GeneralComments     int
	Reviews             int
	ChangedFiles        []string
	// MainDocument names the annotated diff document this report points at.
	MainDocument string
}

// InlineComments is the total number of inline comments across all buckets.
func (r SummaryReport) InlineComments() int {
	return r.AttachedComments + r.OrphanedComments + r.MissingFileComments
}
