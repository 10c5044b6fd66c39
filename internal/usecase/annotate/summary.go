package annotate

import "github.com/prdump/prdump/internal/domain"

// Summarize derives the companion report from a finished archive.
// MainDocument is left empty; the caller fills it in once the annotated
// document's filename is known.
func Summarize(archive domain.Archive) domain.SummaryReport {
	report := domain.SummaryReport{
		PRNumber:   archive.PR.Number,
		Repository: archive.PR.Repository,
	}
	for _, f := range archive.Diff.Files {
		report.FilesChanged++
		report.ChangedFiles = append(report.ChangedFiles, f.Path())
		for _, h := range f.Hunks {
			for _, l := range h.Lines {
				for _, t := range l.Threads {
					report.AttachedComments += t.Size()
				}
			}
		}
		for _, t := range f.Orphaned {
			report.OrphanedComments += t.Size()
		}
	}
	for _, ft := range archive.Diff.MissingFiles {
		for _, t := range ft.Threads {
			report.MissingFileComments += t.Size()
		}
	}
	report.GeneralComments = len(archive.GeneralComments)
	report.Reviews = len(archive.Reviews)
	return report
}
