package diff_test

import (
	"testing"

	"github.com/prdump/prdump/internal/diff"
)

func TestHunk_Header(t *testing.T) {
	tests := []struct {
		name string
		hunk diff.Hunk
		want string
	}{
		{
			name: "with section",
			hunk: diff.Hunk{OldStart: 10, OldLines: 3, NewStart: 10, NewLines: 4, Section: "func run() error {"},
			want: "@@ -10,3 +10,4 @@ func run() error {",
		},
		{
			name: "without section",
			hunk: diff.Hunk{OldStart: 1, OldLines: 2, NewStart: 1, NewLines: 2},
			want: "@@ -1,2 +1,2 @@",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.hunk.Header(); got != tt.want {
				t.Errorf("Header() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFile_Stats(t *testing.T) {
	file := diff.File{
		Hunks: []diff.Hunk{
			{Lines: []diff.Line{
				{Type: diff.LineContext},
				{Type: diff.LineAddition},
				{Type: diff.LineAddition},
				{Type: diff.LineDeletion},
			}},
			{Lines: []diff.Line{
				{Type: diff.LineAddition},
			}},
		},
	}

	added, removed := file.Stats()
	if added != 3 {
		t.Errorf("expected 3 added, got %d", added)
	}
	if removed != 1 {
		t.Errorf("expected 1 removed, got %d", removed)
	}
}

func TestFile_Matches(t *testing.T) {
	file := diff.File{OldPath: "old/name.go", NewPath: "new/name.go"}

	if !file.Matches("old/name.go") {
		t.Error("should match the old path")
	}
	if !file.Matches("new/name.go") {
		t.Error("should match the new path")
	}
	if file.Matches("other.go") {
		t.Error("should not match an unrelated path")
	}
	if file.Matches("") {
		t.Error("should not match the empty path")
	}
}

func TestLineType_Marker(t *testing.T) {
	if diff.LineAddition.Marker() != "+" || diff.LineDeletion.Marker() != "-" || diff.LineContext.Marker() != " " {
		t.Error("unexpected line markers")
	}
}
