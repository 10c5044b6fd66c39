package annotate_test

import (
	"reflect"
	"testing"

	"github.com/prdump/prdump/internal/domain"
	"github.com/prdump/prdump/internal/usecase/annotate"
)

func TestSummarize_CountsEveryBucket(t *testing.T) {
	model := parseAnnotatorDiff(t)
	comments := []domain.Comment{
		anchoredComment(1, 0, "cmd/api/main.go", domain.SideNew, 11),
		replyTo(1, 2, 1, "cmd/api/main.go"),
		anchoredComment(3, 2, "cmd/api/main.go", domain.SideNew, 999),
		anchoredComment(4, 3, "absent.go", domain.SideNew, 1),
	}
	general := []domain.GeneralComment{{ID: 1, Author: "a", CreatedAt: indexBase}}
	reviews := []domain.Review{
		{Author: "r1", SubmittedAt: indexBase, State: domain.ReviewApproved},
		{Author: "r2", SubmittedAt: indexBase, State: domain.ReviewCommented},
	}
	idx := annotate.BuildIndex(comments, general, reviews)

	archive := domain.Archive{
		PR:              domain.PullRequest{Number: 42, Repository: "acme/api"},
		Diff:            annotate.Annotate(model, idx),
		GeneralComments: idx.GeneralComments(),
		Reviews:         idx.Reviews(),
	}
	report := annotate.Summarize(archive)

	want := domain.SummaryReport{
		PRNumber:            42,
		Repository:          "acme/api",
		FilesChanged:        1,
		AttachedComments:    2,
		OrphanedComments:    1,
		MissingFileComments: 1,
		GeneralComments:     1,
		Reviews:             2,
		ChangedFiles:        []string{"cmd/api/main.go"},
	}
	if !reflect.DeepEqual(report, want) {
		t.Errorf("Summarize() = %+v, want %+v", report, want)
	}
	if report.InlineComments() != 4 {
		t.Errorf("InlineComments() = %d, want 4", report.InlineComments())
	}
}

func TestSummarize_EmptyArchive(t *testing.T) {
	report := annotate.Summarize(domain.Archive{PR: domain.PullRequest{Number: 7}})

	if report.FilesChanged != 0 || report.InlineComments() != 0 {
		t.Errorf("empty archive report = %+v, want zero counts", report)
	}
	if report.PRNumber != 7 {
		t.Errorf("PRNumber = %d, want 7", report.PRNumber)
	}
}
