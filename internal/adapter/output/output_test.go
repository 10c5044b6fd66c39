package output_test

import (
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/prdump/prdump/internal/adapter/output"
	"github.com/prdump/prdump/internal/diff"
	"github.com/prdump/prdump/internal/domain"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  output.Format
	}{
		{name: "canonical txt", input: "txt", want: output.FormatText},
		{name: "text alias", input: "text", want: output.FormatText},
		{name: "canonical md", input: "md", want: output.FormatMarkdown},
		{name: "markdown alias", input: "markdown", want: output.FormatMarkdown},
		{name: "canonical html", input: "html", want: output.FormatHTML},
		{name: "mixed case", input: "Markdown", want: output.FormatMarkdown},
		{name: "surrounding space", input: "  html ", want: output.FormatHTML},
		{name: "leading dot", input: ".md", want: output.FormatMarkdown},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := output.Parse(tc.input)
			if err != nil {
				t.Fatalf("Parse(%q) error = %v", tc.input, err)
			}
			if got != tc.want {
				t.Errorf("Parse(%q) = %q, want %q", tc.input, got, tc.want)
			}
		})
	}
}

func TestParseRejectsUnknownFormat(t *testing.T) {
	for _, input := range []string{"pdf", "", "text/html"} {
		_, err := output.Parse(input)
		if !errors.Is(err, output.ErrUnsupportedFormat) {
			t.Errorf("Parse(%q) error = %v, want ErrUnsupportedFormat", input, err)
		}
	}

	_, err := output.Parse("pdf")
	if err == nil || !strings.Contains(err.Error(), "txt, md, html") {
		t.Errorf("error should list the supported formats, got %v", err)
	}
}

func TestFormats(t *testing.T) {
	want := []string{"txt", "md", "html"}
	if got := output.Formats(); !reflect.DeepEqual(got, want) {
		t.Errorf("Formats() = %v, want %v", got, want)
	}
}

func TestForResolvesEveryFormat(t *testing.T) {
	for _, name := range output.Formats() {
		renderer, err := output.For(name)
		if err != nil {
			t.Fatalf("For(%q) error = %v", name, err)
		}
		if renderer == nil {
			t.Fatalf("For(%q) returned nil renderer", name)
		}
	}

	if _, err := output.For("pdf"); !errors.Is(err, output.ErrUnsupportedFormat) {
		t.Errorf("For(\"pdf\") error = %v, want ErrUnsupportedFormat", err)
	}
}

// crossFormatArchive carries one uniquely worded body per content bucket so
// that ordering can be compared across renderers.
func crossFormatArchive() domain.Archive {
	base := time.Date(2025, 3, 14, 10, 0, 0, 0, time.UTC)
	return domain.Archive{
		PR: domain.PullRequest{
			Number: 42, Title: "Add retry logic", Body: "Retries transient failures.",
			Author: "alice", State: "open", BaseRef: "main", HeadRef: "feature/retry",
			CreatedAt: base, Repository: "acme/api",
		},
		Diff: domain.AnnotatedDiff{
			Files: []domain.AnnotatedFile{{
				OldPath: "cmd/api/main.go", NewPath: "cmd/api/main.go", Status: diff.StatusModified,
				Hunks: []domain.AnnotatedHunk{{
					OldStart: 10, OldLines: 1, NewStart: 10, NewLines: 2,
					Lines: []domain.AnnotatedLine{
						{Line: diff.Line{Type: diff.LineContext, Content: "\tsrv.Start()", OldLine: diff.IntPtr(10), NewLine: diff.IntPtr(10)}},
						{
							Line: diff.Line{Type: diff.LineAddition, Content: "\tsrv.Retry()", NewLine: diff.IntPtr(11)},
							Threads: []domain.Thread{{
								Root: domain.Comment{
									ID: 1, Author: "alice", Body: "Needs a nil check here.",
									CreatedAt: base, Path: "cmd/api/main.go",
									Side: domain.SideNew, Line: diff.IntPtr(11),
								},
								Replies: []domain.Comment{{
									ID: 2, Author: "bob", Body: "Fixed in the next push.",
									CreatedAt: base.Add(time.Hour), Path: "cmd/api/main.go",
									Side: domain.SideNew,
								}},
							}},
						},
					},
				}},
				Orphaned: []domain.Thread{{
					Root: domain.Comment{
						ID: 3, Author: "alice", Body: "This anchor is stale.",
						CreatedAt: base.Add(2 * time.Hour), Path: "cmd/api/main.go",
						Side: domain.SideNew, Line: diff.IntPtr(500),
					},
				}},
			}},
			MissingFiles: []domain.FileThreads{{
				Path: "pkg/gone.go",
				Threads: []domain.Thread{{
					Root: domain.Comment{
						ID: 4, Author: "carol", Body: "Left behind after the rebase.",
						CreatedAt: base.Add(3 * time.Hour), Path: "pkg/gone.go",
						Side: domain.SideOld, Line: diff.IntPtr(3),
					},
				}},
			}},
		},
		GeneralComments: []domain.GeneralComment{{
			ID: 5, Author: "carol", Body: "LGTM overall.", CreatedAt: base.Add(4 * time.Hour),
		}},
		Reviews: []domain.Review{{
			Author: "dave", SubmittedAt: base.Add(5 * time.Hour),
			State: domain.ReviewChangesRequested, Body: "Nice work, one blocker.",
		}},
	}
}

func TestRenderersAgreeOnContentOrder(t *testing.T) {
	markers := []string{
		"Retries transient failures.",
		"Needs a nil check here.",
		"Fixed in the next push.",
		"This anchor is stale.",
		"Left behind after the rebase.",
		"LGTM overall.",
		"Nice work, one blocker.",
	}
	archive := crossFormatArchive()

	for _, name := range output.Formats() {
		t.Run(name, func(t *testing.T) {
			renderer, err := output.For(name)
			if err != nil {
				t.Fatalf("For(%q) error = %v", name, err)
			}
			doc, err := renderer.Render(archive)
			if err != nil {
				t.Fatalf("Render() error = %v", err)
			}

			last := -1
			for _, marker := range markers {
				idx := strings.Index(doc, marker)
				if idx < 0 {
					t.Fatalf("%s document missing %q", name, marker)
				}
				if idx <= last {
					t.Errorf("%s document places %q out of order", name, marker)
				}
				last = idx
			}
		})
	}
}
