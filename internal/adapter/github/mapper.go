package github

import (
	"strings"

	gh "github.com/google/go-github/v82/github"

	"github.com/prdump/prdump/internal/domain"
)

// mapPullRequest converts a go-github PullRequest to a domain PullRequest.
// It uses GetXxx() helper methods exclusively to avoid nil pointer panics.
func mapPullRequest(pr *gh.PullRequest, repoSlug string) domain.PullRequest {
	state := pr.GetState()
	if !pr.GetMergedAt().IsZero() {
		state = "merged"
	}

	return domain.PullRequest{
		Number:     pr.GetNumber(),
		Title:      pr.GetTitle(),
		Body:       pr.GetBody(),
		Author:     loginOrUnknown(pr.GetUser()),
		State:      state,
		BaseRef:    pr.GetBase().GetRef(),
		HeadRef:    pr.GetHead().GetRef(),
		CreatedAt:  pr.GetCreatedAt().Time,
		UpdatedAt:  pr.GetUpdatedAt().Time,
		Mergeable:  pr.Mergeable,
		Repository: repoSlug,
	}
}

// mapInlineComment converts a go-github PullRequestComment to a domain
// Comment. Line stays nil when the API could not resolve a current position
// (the comment is outdated).
func mapInlineComment(c *gh.PullRequestComment) domain.Comment {
	var line *int
	if c.Line != nil {
		v := c.GetLine()
		line = &v
	}

	var inReplyTo *int64
	if c.InReplyTo != nil {
		v := c.GetInReplyTo()
		inReplyTo = &v
	}

	return domain.Comment{
		ID:        c.GetID(),
		Author:    loginOrUnknown(c.GetUser()),
		Body:      c.GetBody(),
		CreatedAt: c.GetCreatedAt().Time,
		Path:      c.GetPath(),
		Side:      mapSide(c.GetSide()),
		Line:      line,
		InReplyTo: inReplyTo,
	}
}

// mapGeneralComment converts a go-github IssueComment to a domain
// GeneralComment.
func mapGeneralComment(c *gh.IssueComment) domain.GeneralComment {
	return domain.GeneralComment{
		ID:        c.GetID(),
		Author:    loginOrUnknown(c.GetUser()),
		Body:      c.GetBody(),
		CreatedAt: c.GetCreatedAt().Time,
	}
}

// mapReview converts a go-github PullRequestReview to a domain Review.
func mapReview(r *gh.PullRequestReview) domain.Review {
	return domain.Review{
		Author:      loginOrUnknown(r.GetUser()),
		SubmittedAt: r.GetSubmittedAt().Time,
		State:       domain.ReviewState(strings.ToLower(r.GetState())),
		Body:        r.GetBody(),
	}
}

// mapSide converts the API's LEFT/RIGHT side marker. RIGHT is the default:
// comments without an explicit side anchor against the post-change file.
func mapSide(side string) domain.Side {
	if strings.EqualFold(side, "LEFT") {
		return domain.SideOld
	}
	return domain.SideNew
}

func loginOrUnknown(u *gh.User) string {
	if login := u.GetLogin(); login != "" {
		return login
	}
	return domain.UnknownAuthor
}
