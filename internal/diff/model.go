package diff

import (
	"fmt"
	"strings"
)

// FileStatus classifies how a file changed.
type FileStatus string

const (
	StatusAdded    FileStatus = "added"
	StatusDeleted  FileStatus = "deleted"
	StatusRenamed  FileStatus = "renamed"
	StatusModified FileStatus = "modified"
	StatusBinary   FileStatus = "binary"
)

// LineType represents the type of a line in a diff hunk.
type LineType int

const (
	// LineContext represents an unchanged context line (starts with ' ').
	LineContext LineType = iota
	// LineAddition represents an added line (starts with '+').
	LineAddition
	// LineDeletion represents a removed line (starts with '-').
	LineDeletion
)

// Marker returns the leading character the line carries in diff text.
func (t LineType) Marker() string {
	switch t {
	case LineAddition:
		return "+"
	case LineDeletion:
		return "-"
	default:
		return " "
	}
}

// Line is a single line in a diff hunk.
type Line struct {
	Type      LineType // The type of change
	Content   string   // The line content (without the marker)
	OldLine   *int     // Line number in the old file (nil for additions)
	NewLine   *int     // Line number in the new file (nil for deletions)
	NoNewline bool     // Set when followed by a "\ No newline at end of file" marker
}

// Hunk represents a single @@ hunk in a unified diff.
type Hunk struct {
	OldStart int    // Starting line in old file
	OldLines int    // Number of lines from old file
	NewStart int    // Starting line in new file
	NewLines int    // Number of lines in new file
	Section  string // Optional function context from the header
	Lines    []Line // The lines in this hunk
}

// Header reconstructs the canonical "@@ -a,b +c,d @@ section" header.
func (h Hunk) Header() string {
	var b strings.Builder
	fmt.Fprintf(&b, "@@ -%d,%d +%d,%d @@", h.OldStart, h.OldLines, h.NewStart, h.NewLines)
	if h.Section != "" {
		b.WriteString(" ")
		b.WriteString(h.Section)
	}
	return b.String()
}

// File is one file section of a unified diff.
type File struct {
	OldPath string // Empty when the file was added
	NewPath string // Empty when the file was deleted
	Status  FileStatus
	Hunks   []Hunk
}

// Path returns the path a reader would know the file by: the new path,
// falling back to the old path for deletions.
func (f File) Path() string {
	if f.NewPath != "" {
		return f.NewPath
	}
	return f.OldPath
}

// Matches reports whether the given comment path refers to this file,
// on either side of a rename.
func (f File) Matches(path string) bool {
	if path == "" {
		return false
	}
	return path == f.NewPath || path == f.OldPath
}

// Stats counts added and removed lines across all hunks.
func (f File) Stats() (added, removed int) {
	for _, h := range f.Hunks {
		for _, l := range h.Lines {
			switch l.Type {
			case LineAddition:
				added++
			case LineDeletion:
				removed++
			}
		}
	}
	return added, removed
}

// Model is the parsed form of a complete unified diff.
type Model struct {
	Files []File
	// Warnings describes file sections that were skipped as unparseable.
	Warnings []string
}

// Empty reports whether the diff contains no file changes.
func (m Model) Empty() bool {
	return len(m.Files) == 0
}

// MalformedError reports a diff whose structure cannot be parsed at all.
type MalformedError struct {
	LineNo int    // 1-indexed line in the diff text, 0 when not line-specific
	Reason string
}

func (e *MalformedError) Error() string {
	if e.LineNo > 0 {
		return fmt.Sprintf("malformed diff at line %d: %s", e.LineNo, e.Reason)
	}
	return fmt.Sprintf("malformed diff: %s", e.Reason)
}

// IntPtr returns a pointer to the given int value.
// Exported for use in tests across packages.
func IntPtr(n int) *int {
	return &n
}
