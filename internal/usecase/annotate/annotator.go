package annotate

import (
	"sort"

	"github.com/prdump/prdump/internal/diff"
	"github.com/prdump/prdump/internal/domain"
)

// Annotate merges a parsed diff with an index of review threads.
//
// Every thread lands in exactly one bucket: attached to the first diff line
// whose side and number match its anchor, in the file's orphaned bucket when
// the anchor resolves to no line of the current diff, or in the top-level
// missing-files bucket when the thread's file does not appear in the diff at
// all. Running Annotate twice over the same inputs yields identical output.
func Annotate(model diff.Model, idx *Index) domain.AnnotatedDiff {
	consumed := make(map[int64]bool)
	matched := make(map[string]bool)

	files := make([]domain.AnnotatedFile, 0, len(model.Files))
	for _, f := range model.Files {
		files = append(files, annotateFile(f, idx, consumed))
		for _, p := range filePaths(f) {
			matched[p] = true
		}
	}

	var missing []domain.FileThreads
	for _, p := range idx.Paths() {
		if matched[p] {
			continue
		}
		missing = append(missing, domain.FileThreads{Path: p, Threads: idx.FileThreads(p)})
	}

	return domain.AnnotatedDiff{Files: files, MissingFiles: missing}
}

func annotateFile(f diff.File, idx *Index, consumed map[int64]bool) domain.AnnotatedFile {
	af := domain.AnnotatedFile{
		OldPath: f.OldPath,
		NewPath: f.NewPath,
		Status:  f.Status,
		Hunks:   make([]domain.AnnotatedHunk, 0, len(f.Hunks)),
	}
	paths := filePaths(f)
	for _, h := range f.Hunks {
		ah := domain.AnnotatedHunk{
			OldStart: h.OldStart,
			OldLines: h.OldLines,
			NewStart: h.NewStart,
			NewLines: h.NewLines,
			Section:  h.Section,
			Lines:    make([]domain.AnnotatedLine, 0, len(h.Lines)),
		}
		for _, l := range h.Lines {
			ah.Lines = append(ah.Lines, domain.AnnotatedLine{
				Line:    l,
				Threads: attach(l, paths, idx, consumed),
			})
		}
		af.Hunks = append(af.Hunks, ah)
	}
	af.Orphaned = orphansFor(paths, idx, consumed)
	return af
}

// attach collects the unconsumed threads whose anchor matches this line.
// Context lines carry both numberings and therefore match anchors on either
// side; added lines match new-side anchors only, removed lines old-side
// only. Renamed files are probed under both of their paths.
func attach(l diff.Line, paths []string, idx *Index, consumed map[int64]bool) []domain.Thread {
	var hits []domain.Thread
	collect := func(side domain.Side, line *int) {
		if line == nil {
			return
		}
		for _, p := range paths {
			for _, t := range idx.ThreadsAt(p, side, *line) {
				if consumed[t.Root.ID] {
					continue
				}
				consumed[t.Root.ID] = true
				hits = append(hits, t)
			}
		}
	}
	switch l.Type {
	case diff.LineAddition:
		collect(domain.SideNew, l.NewLine)
	case diff.LineDeletion:
		collect(domain.SideOld, l.OldLine)
	default:
		collect(domain.SideNew, l.NewLine)
		collect(domain.SideOld, l.OldLine)
	}
	if len(hits) > 1 {
		sort.SliceStable(hits, lessThreads(hits))
	}
	return hits
}

// orphansFor gathers the file's threads that no diff line claimed: anchors
// outside the context window, anchors the platform reported as outdated,
// and threads with no anchor at all.
func orphansFor(paths []string, idx *Index, consumed map[int64]bool) []domain.Thread {
	var orphans []domain.Thread
	for _, p := range paths {
		for _, t := range idx.FileThreads(p) {
			if consumed[t.Root.ID] {
				continue
			}
			consumed[t.Root.ID] = true
			orphans = append(orphans, t)
		}
	}
	if len(orphans) > 1 {
		sort.SliceStable(orphans, lessThreads(orphans))
	}
	return orphans
}

// filePaths returns the distinct non-empty paths a diff file is known by.
// For renames the comment data may reference either name.
func filePaths(f diff.File) []string {
	if f.OldPath == "" || f.OldPath == f.NewPath {
		if f.NewPath == "" {
			return nil
		}
		return []string{f.NewPath}
	}
	if f.NewPath == "" {
		return []string{f.OldPath}
	}
	return []string{f.OldPath, f.NewPath}
}
