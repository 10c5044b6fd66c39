package diff

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var hunkHeaderRe = regexp.MustCompile(`^@@ -(\d+)(?:,(\d+))? \+(\d+)(?:,(\d+))? @@(?: (.*))?$`)

// Parse parses unified diff text into a Model.
// It handles standard git diff output including file headers, renames,
// binary markers, and missing-newline markers. File sections that cannot
// be parsed are skipped and reported in Model.Warnings; Parse returns a
// *MalformedError only when the input has no parseable structure at all.
func Parse(diffText string) (Model, error) {
	if strings.TrimSpace(diffText) == "" {
		return Model{}, nil
	}

	lines := strings.Split(diffText, "\n")
	sections := splitFileSections(lines)
	if len(sections) == 0 {
		return Model{}, &MalformedError{Reason: "no file headers or hunks found"}
	}

	var model Model
	for _, sec := range sections {
		file, err := parseFileSection(sec)
		if err != nil {
			model.Warnings = append(model.Warnings, fmt.Sprintf("skipped %s: %v", sec.describe(), err))
			continue
		}
		model.Files = append(model.Files, file)
	}

	if len(model.Files) == 0 {
		return Model{}, &MalformedError{LineNo: sections[0].start, Reason: "no file section could be parsed"}
	}
	return model, nil
}

// section is one file's slice of the diff, with its starting line number
// retained for warnings.
type section struct {
	start int // 1-indexed line number of the first line
	lines []string
}

func (s section) describe() string {
	for _, line := range s.lines {
		if strings.HasPrefix(line, "diff --git ") {
			old, new := parseGitHeaderPaths(line)
			if new != "" {
				return fmt.Sprintf("file section %q", new)
			}
			if old != "" {
				return fmt.Sprintf("file section %q", old)
			}
			break
		}
	}
	return fmt.Sprintf("file section at line %d", s.start)
}

// splitFileSections cuts the diff into per-file sections on "diff --git"
// markers. Diffs without git headers (plain unified format) become a single
// section starting at the first "---" header or "@@" hunk.
func splitFileSections(lines []string) []section {
	var sections []section
	for i, line := range lines {
		if strings.HasPrefix(line, "diff --git ") {
			if n := len(sections); n > 0 {
				last := &sections[n-1]
				last.lines = lines[last.start-1 : i]
			}
			sections = append(sections, section{start: i + 1})
		}
	}
	if len(sections) > 0 {
		last := &sections[len(sections)-1]
		last.lines = lines[last.start-1:]
		return sections
	}

	// No git headers. Accept a bare unified diff as one section.
	for i, line := range lines {
		if strings.HasPrefix(line, "--- ") || strings.HasPrefix(line, "@@ -") {
			return []section{{start: i + 1, lines: lines[i:]}}
		}
	}
	return nil
}

// parseFileSection parses one file's headers and hunks.
func parseFileSection(sec section) (File, error) {
	var (
		file    File
		added   bool
		deleted bool
		renamed bool
		binary  bool
		i       int
	)

	// Header phase: everything up to the first hunk.
	for ; i < len(sec.lines); i++ {
		line := sec.lines[i]
		if strings.HasPrefix(line, "@@") {
			break
		}
		switch {
		case strings.HasPrefix(line, "diff --git "):
			file.OldPath, file.NewPath = parseGitHeaderPaths(line)
		case strings.HasPrefix(line, "new file mode"):
			added = true
		case strings.HasPrefix(line, "deleted file mode"):
			deleted = true
		case strings.HasPrefix(line, "rename from "):
			renamed = true
			file.OldPath = strings.TrimPrefix(line, "rename from ")
		case strings.HasPrefix(line, "rename to "):
			renamed = true
			file.NewPath = strings.TrimPrefix(line, "rename to ")
		case strings.HasPrefix(line, "copy from "):
			renamed = true
			file.OldPath = strings.TrimPrefix(line, "copy from ")
		case strings.HasPrefix(line, "copy to "):
			renamed = true
			file.NewPath = strings.TrimPrefix(line, "copy to ")
		case strings.HasPrefix(line, "--- "):
			file.OldPath = stripPathPrefix(strings.TrimPrefix(line, "--- "))
		case strings.HasPrefix(line, "+++ "):
			file.NewPath = stripPathPrefix(strings.TrimPrefix(line, "+++ "))
		case strings.HasPrefix(line, "Binary files "), line == "GIT binary patch":
			binary = true
		}
	}

	switch {
	case binary:
		file.Status = StatusBinary
	case added || (file.OldPath == "" && file.NewPath != ""):
		file.Status = StatusAdded
		file.OldPath = ""
	case deleted || (file.NewPath == "" && file.OldPath != ""):
		file.Status = StatusDeleted
		file.NewPath = ""
	case renamed:
		file.Status = StatusRenamed
	default:
		file.Status = StatusModified
	}

	if file.OldPath == "" && file.NewPath == "" {
		return File{}, fmt.Errorf("no file paths in headers")
	}
	if binary {
		// Binary sections carry no hunks.
		return file, nil
	}

	// Hunk phase.
	for i < len(sec.lines) {
		line := sec.lines[i]
		if line == "" {
			i++
			continue
		}
		if !strings.HasPrefix(line, "@@") {
			return File{}, fmt.Errorf("unexpected content between hunks at line %d", sec.start+i)
		}
		hunk, consumed, err := parseHunk(sec.lines[i:])
		if err != nil {
			return File{}, fmt.Errorf("line %d: %w", sec.start+i, err)
		}
		file.Hunks = append(file.Hunks, hunk)
		i += consumed
	}

	return file, nil
}

// parseHunk parses a hunk header and exactly the number of body lines the
// header declares. It returns how many input lines it consumed.
func parseHunk(lines []string) (Hunk, int, error) {
	hunk, err := parseHunkHeader(lines[0])
	if err != nil {
		return Hunk{}, 0, err
	}

	var (
		oldN    = hunk.OldStart
		newN    = hunk.NewStart
		wantOld = hunk.OldLines
		wantNew = hunk.NewLines
		i       = 1
	)

	for wantOld > 0 || wantNew > 0 {
		if i >= len(lines) {
			return Hunk{}, 0, fmt.Errorf("hunk body ends before declared counts are met")
		}
		line := lines[i]
		i++

		var parsed Line
		switch {
		case strings.HasPrefix(line, "+"):
			if wantNew <= 0 {
				return Hunk{}, 0, fmt.Errorf("more added lines than the hunk header declares")
			}
			parsed = Line{Type: LineAddition, Content: line[1:], NewLine: IntPtr(newN)}
			newN++
			wantNew--
		case strings.HasPrefix(line, "-"):
			if wantOld <= 0 {
				return Hunk{}, 0, fmt.Errorf("more removed lines than the hunk header declares")
			}
			parsed = Line{Type: LineDeletion, Content: line[1:], OldLine: IntPtr(oldN)}
			oldN++
			wantOld--
		case strings.HasPrefix(line, "\\"):
			// "\ No newline at end of file" annotates the previous line and
			// consumes no numbering.
			if n := len(hunk.Lines); n > 0 {
				hunk.Lines[n-1].NoNewline = true
			}
			continue
		case strings.HasPrefix(line, " "), line == "":
			// Some transports strip trailing whitespace from empty context
			// lines, leaving them bare.
			if wantOld <= 0 || wantNew <= 0 {
				return Hunk{}, 0, fmt.Errorf("more context lines than the hunk header declares")
			}
			content := line
			if content != "" {
				content = line[1:]
			}
			parsed = Line{Type: LineContext, Content: content, OldLine: IntPtr(oldN), NewLine: IntPtr(newN)}
			oldN++
			newN++
			wantOld--
			wantNew--
		default:
			return Hunk{}, 0, fmt.Errorf("unrecognized line marker %q", line[:1])
		}

		hunk.Lines = append(hunk.Lines, parsed)
	}

	// A trailing missing-newline marker belongs to the last counted line.
	if i < len(lines) && strings.HasPrefix(lines[i], "\\") {
		if n := len(hunk.Lines); n > 0 {
			hunk.Lines[n-1].NoNewline = true
		}
		i++
	}

	return hunk, i, nil
}

// parseHunkHeader parses a header like "@@ -10,7 +10,8 @@ func (s *Server) Run".
// A missing count defaults to 1, per unified diff convention.
func parseHunkHeader(line string) (Hunk, error) {
	m := hunkHeaderRe.FindStringSubmatch(line)
	if m == nil {
		return Hunk{}, fmt.Errorf("malformed hunk header %q", line)
	}

	hunk := Hunk{
		OldStart: atoiOr(m[1], 0),
		OldLines: atoiOr(m[2], 1),
		NewStart: atoiOr(m[3], 0),
		NewLines: atoiOr(m[4], 1),
		Section:  m[5],
	}
	return hunk, nil
}

func atoiOr(s string, fallback int) int {
	if s == "" {
		return fallback
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return fallback
	}
	return n
}

// parseGitHeaderPaths extracts old and new paths from a "diff --git a/X b/Y"
// line. The last " b/" occurrence splits the two so paths containing spaces
// survive.
func parseGitHeaderPaths(line string) (oldPath, newPath string) {
	rest := strings.TrimPrefix(line, "diff --git ")
	idx := strings.LastIndex(rest, " b/")
	if idx < 0 {
		return "", ""
	}
	oldPath = strings.TrimPrefix(strings.Trim(rest[:idx], `"`), "a/")
	newPath = strings.Trim(rest[idx+3:], `"`)
	return oldPath, newPath
}

// stripPathPrefix normalizes a "---"/"+++" header path: drops the a/ or b/
// prefix, unquotes, and maps /dev/null to the empty string.
func stripPathPrefix(p string) string {
	p = strings.TrimSpace(p)
	p = strings.Trim(p, `"`)
	if p == "/dev/null" {
		return ""
	}
	if strings.HasPrefix(p, "a/") || strings.HasPrefix(p, "b/") {
		return p[2:]
	}
	return p
}
