package annotate_test

import (
	"reflect"
	"testing"

	"github.com/prdump/prdump/internal/diff"
	"github.com/prdump/prdump/internal/domain"
	"github.com/prdump/prdump/internal/usecase/annotate"
)

const annotatorDiff = `diff --git a/cmd/api/main.go b/cmd/api/main.go
index 83cb1a2..f40cd71 100644
--- a/cmd/api/main.go
+++ b/cmd/api/main.go
@@ -10,3 +10,4 @@ func run() error {
 	srv := api.New(cfg)
 	if err := srv.Start(); err != nil {
-		return err
+		return fmt.Errorf("start: %w", err)
+	}
`

func parseAnnotatorDiff(t *testing.T) diff.Model {
	t.Helper()
	model, err := diff.Parse(annotatorDiff)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	return model
}

// lineAt fetches the annotated line with the given new-side number.
func lineAt(t *testing.T, f domain.AnnotatedFile, newLine int) domain.AnnotatedLine {
	t.Helper()
	for _, h := range f.Hunks {
		for _, l := range h.Lines {
			if l.Line.NewLine != nil && *l.Line.NewLine == newLine {
				return l
			}
		}
	}
	t.Fatalf("no line with new number %d in %s", newLine, f.Path())
	return domain.AnnotatedLine{}
}

func TestAnnotate_AttachesToNewSideLine(t *testing.T) {
	model := parseAnnotatorDiff(t)
	idx := annotate.BuildIndex([]domain.Comment{
		anchoredComment(1, 0, "cmd/api/main.go", domain.SideNew, 11),
	}, nil, nil)

	got := annotate.Annotate(model, idx)

	if len(got.Files) != 1 {
		t.Fatalf("Annotate() produced %d files, want 1", len(got.Files))
	}
	line := lineAt(t, got.Files[0], 11)
	if len(line.Threads) != 1 || line.Threads[0].Root.ID != 1 {
		t.Fatalf("line 11 threads = %+v, want thread rooted at 1", line.Threads)
	}
	if line.Line.Type != diff.LineContext {
		t.Errorf("line 11 type = %v, want context", line.Line.Type)
	}
	if len(got.Files[0].Orphaned) != 0 {
		t.Errorf("orphaned = %d threads, want 0", len(got.Files[0].Orphaned))
	}
}

func TestAnnotate_AttachesToAddedAndRemovedLines(t *testing.T) {
	model := parseAnnotatorDiff(t)
	idx := annotate.BuildIndex([]domain.Comment{
		anchoredComment(1, 0, "cmd/api/main.go", domain.SideNew, 12),
		anchoredComment(2, 1, "cmd/api/main.go", domain.SideOld, 12),
	}, nil, nil)

	got := annotate.Annotate(model, idx)

	added := lineAt(t, got.Files[0], 12)
	if added.Line.Type != diff.LineAddition {
		t.Fatalf("new line 12 type = %v, want addition", added.Line.Type)
	}
	if len(added.Threads) != 1 || added.Threads[0].Root.ID != 1 {
		t.Errorf("added line threads = %+v, want thread rooted at 1", added.Threads)
	}

	var removed *domain.AnnotatedLine
	for _, h := range got.Files[0].Hunks {
		for i, l := range h.Lines {
			if l.Line.Type == diff.LineDeletion {
				removed = &h.Lines[i]
			}
		}
	}
	if removed == nil {
		t.Fatal("no removed line found")
	}
	if len(removed.Threads) != 1 || removed.Threads[0].Root.ID != 2 {
		t.Errorf("removed line threads = %+v, want thread rooted at 2", removed.Threads)
	}
}

func TestAnnotate_AnchorOutsideWindowIsOrphaned(t *testing.T) {
	model := parseAnnotatorDiff(t)
	idx := annotate.BuildIndex([]domain.Comment{
		anchoredComment(9, 0, "cmd/api/main.go", domain.SideNew, 500),
	}, nil, nil)

	got := annotate.Annotate(model, idx)

	f := got.Files[0]
	for _, h := range f.Hunks {
		for _, l := range h.Lines {
			if len(l.Threads) != 0 {
				t.Fatalf("thread attached to %q, want none", l.Line.Content)
			}
		}
	}
	if len(f.Orphaned) != 1 || f.Orphaned[0].Root.ID != 9 {
		t.Fatalf("orphaned = %+v, want thread rooted at 9", f.Orphaned)
	}
	if len(got.MissingFiles) != 0 {
		t.Errorf("missing files = %+v, want none", got.MissingFiles)
	}
}

func TestAnnotate_UnanchoredCommentIsOrphaned(t *testing.T) {
	model := parseAnnotatorDiff(t)
	idx := annotate.BuildIndex([]domain.Comment{
		{ID: 4, Author: "r", CreatedAt: indexBase, Path: "cmd/api/main.go", Side: domain.SideNew},
	}, nil, nil)

	got := annotate.Annotate(model, idx)

	if len(got.Files[0].Orphaned) != 1 || got.Files[0].Orphaned[0].Root.ID != 4 {
		t.Fatalf("orphaned = %+v, want thread rooted at 4", got.Files[0].Orphaned)
	}
}

func TestAnnotate_FileAbsentFromDiff(t *testing.T) {
	model := parseAnnotatorDiff(t)
	idx := annotate.BuildIndex([]domain.Comment{
		anchoredComment(3, 0, "zz/gone.go", domain.SideNew, 2),
		anchoredComment(4, 1, "aa/gone.go", domain.SideNew, 7),
	}, nil, nil)

	got := annotate.Annotate(model, idx)

	if len(got.MissingFiles) != 2 {
		t.Fatalf("missing files = %d, want 2", len(got.MissingFiles))
	}
	if got.MissingFiles[0].Path != "aa/gone.go" || got.MissingFiles[1].Path != "zz/gone.go" {
		t.Errorf("missing file order = [%s %s], want [aa/gone.go zz/gone.go]",
			got.MissingFiles[0].Path, got.MissingFiles[1].Path)
	}
}

func TestAnnotate_TwoThreadsSameLineKeepThreadOrder(t *testing.T) {
	model := parseAnnotatorDiff(t)
	idx := annotate.BuildIndex([]domain.Comment{
		anchoredComment(2, 10, "cmd/api/main.go", domain.SideNew, 10),
		anchoredComment(1, 0, "cmd/api/main.go", domain.SideNew, 10),
	}, nil, nil)

	got := annotate.Annotate(model, idx)

	line := lineAt(t, got.Files[0], 10)
	if len(line.Threads) != 2 {
		t.Fatalf("line 10 threads = %d, want 2", len(line.Threads))
	}
	if line.Threads[0].Root.ID != 1 || line.Threads[1].Root.ID != 2 {
		t.Errorf("thread order = [%d %d], want [1 2]",
			line.Threads[0].Root.ID, line.Threads[1].Root.ID)
	}
}

func TestAnnotate_RenamedFileMatchesOldPath(t *testing.T) {
	renameDiff := `diff --git a/pkg/old.go b/pkg/new.go
similarity index 90%
rename from pkg/old.go
rename to pkg/new.go
index 1111111..2222222 100644
--- a/pkg/old.go
+++ b/pkg/new.go
@@ -3,2 +3,2 @@
 package pkg
-var x = 1
+var x = 2
`
	model, err := diff.Parse(renameDiff)
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	idx := annotate.BuildIndex([]domain.Comment{
		anchoredComment(1, 0, "pkg/old.go", domain.SideOld, 4),
		anchoredComment(2, 1, "pkg/new.go", domain.SideNew, 4),
	}, nil, nil)

	got := annotate.Annotate(model, idx)

	if len(got.MissingFiles) != 0 {
		t.Fatalf("missing files = %+v, want none (both paths belong to the rename)", got.MissingFiles)
	}
	attached := 0
	for _, h := range got.Files[0].Hunks {
		for _, l := range h.Lines {
			attached += len(l.Threads)
		}
	}
	if attached != 2 {
		t.Errorf("attached threads = %d, want 2", attached)
	}
}

func TestAnnotate_EmptyDiffSendsEverythingToMissing(t *testing.T) {
	idx := annotate.BuildIndex([]domain.Comment{
		anchoredComment(1, 0, "main.go", domain.SideNew, 1),
	}, nil, nil)

	got := annotate.Annotate(diff.Model{}, idx)

	if !got.Empty() {
		t.Error("Empty() = false, want true")
	}
	if len(got.MissingFiles) != 1 || got.MissingFiles[0].Path != "main.go" {
		t.Fatalf("missing files = %+v, want main.go", got.MissingFiles)
	}
}

func TestAnnotate_EveryCommentLandsInExactlyOneBucket(t *testing.T) {
	model := parseAnnotatorDiff(t)
	comments := []domain.Comment{
		anchoredComment(1, 0, "cmd/api/main.go", domain.SideNew, 11),
		replyTo(1, 2, 1, "cmd/api/main.go"),
		anchoredComment(3, 2, "cmd/api/main.go", domain.SideNew, 999),
		anchoredComment(4, 3, "absent.go", domain.SideNew, 1),
		{ID: 5, Author: "r", CreatedAt: indexBase, Path: "cmd/api/main.go", Side: domain.SideNew},
	}
	idx := annotate.BuildIndex(comments, nil, nil)

	got := annotate.Annotate(model, idx)

	attached, orphaned, missing := 0, 0, 0
	for _, f := range got.Files {
		for _, h := range f.Hunks {
			for _, l := range h.Lines {
				for _, th := range l.Threads {
					attached += th.Size()
				}
			}
		}
		for _, th := range f.Orphaned {
			orphaned += th.Size()
		}
	}
	for _, ft := range got.MissingFiles {
		for _, th := range ft.Threads {
			missing += th.Size()
		}
	}
	if attached != 2 || orphaned != 2 || missing != 1 {
		t.Errorf("bucket sizes = attached %d orphaned %d missing %d, want 2/2/1",
			attached, orphaned, missing)
	}
	if total := attached + orphaned + missing; total != len(comments) {
		t.Errorf("total comments across buckets = %d, want %d", total, len(comments))
	}
}

func TestAnnotate_Deterministic(t *testing.T) {
	model := parseAnnotatorDiff(t)
	comments := []domain.Comment{
		anchoredComment(2, 5, "cmd/api/main.go", domain.SideNew, 11),
		anchoredComment(1, 0, "cmd/api/main.go", domain.SideNew, 11),
		anchoredComment(3, 2, "other.go", domain.SideNew, 4),
	}

	first := annotate.Annotate(model, annotate.BuildIndex(comments, nil, nil))
	second := annotate.Annotate(model, annotate.BuildIndex(comments, nil, nil))

	if !reflect.DeepEqual(first, second) {
		t.Error("two runs over the same input produced different output")
	}
}
