// Package diff parses unified diff text into a line-addressable model.
//
// The model keeps both numbering schemes a diff carries: every line records
// its old-file line number (absent for additions) and its new-file line
// number (absent for deletions). Review comments anchor to one side or the
// other, so both numbers are needed to attach a comment to the exact line
// the reviewer saw.
//
// Parsing is lenient at the file level: a file section that cannot be
// parsed is skipped and reported through Model.Warnings so that partial
// diffs still render. Parse fails outright only when no parseable file
// section remains.
package diff
