package domain

import "time"

// Side identifies which line numbering of a diff a comment anchor refers to.
type Side string

const (
	// SideOld anchors against the pre-change file (removed and context lines).
	SideOld Side = "old"

	// SideNew anchors against the post-change file (added and context lines).
	SideNew Side = "new"
)

// ReviewState represents the verdict attached to a submitted review.
type ReviewState string

const (
	ReviewApproved         ReviewState = "approved"
	ReviewChangesRequested ReviewState = "changes_requested"
	ReviewCommented        ReviewState = "commented"
	ReviewDismissed        ReviewState = "dismissed"
)

// UnknownAuthor is substituted when a payload carries no author login.
const UnknownAuthor = "unknown"

// PullRequest carries the metadata shown in a document's header block.
type PullRequest struct {
	Number     int
	Title      string
	Body       string
	Author     string
	State      string
	BaseRef    string
	HeadRef    string
	CreatedAt  time.Time
	UpdatedAt  time.Time
	Mergeable  *bool
	Repository string
}

// Comment is a single inline review comment.
//
// Line is nil when the platform could not resolve a current position for the
// comment (the anchor is outdated); such comments are reported in the
// orphaned section of the document instead of being attached to a line.
type Comment struct {
	ID        int64
	Author    string
	Body      string
	CreatedAt time.Time
	Path      string
	Side      Side
	Line      *int
	InReplyTo *int64
}

// Anchored reports whether the comment still resolves to a diff line.
func (c Comment) Anchored() bool {
	return c.Line != nil
}

// GeneralComment is an issue-style discussion comment with no diff anchor.
type GeneralComment struct {
	ID        int64
	Author    string
	Body      string
	CreatedAt time.Time
}

// Review is a submitted review verdict with an optional summary body.
type Review struct {
	Author      string
	SubmittedAt time.Time
	State       ReviewState
	Body        string
}

// Thread is a root comment followed by its replies in reply order.
type Thread struct {
	Root    Comment
	Replies []Comment
}

// Comments returns the root and replies as one ordered slice.
func (t Thread) Comments() []Comment {
	out := make([]Comment, 0, 1+len(t.Replies))
	out = append(out, t.Root)
	out = append(out, t.Replies...)
	return out
}

// Size is the number of comments in the thread, root included.
func (t Thread) Size() int {
	return 1 + len(t.Replies)
}
