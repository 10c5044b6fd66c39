// Package github fetches pull request review context from the GitHub REST
// API and maps it to domain entities.
package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gofri/go-github-ratelimit/v2/github_ratelimit"
	gh "github.com/google/go-github/v82/github"
	"github.com/gregjones/httpcache"
	"github.com/rs/zerolog/log"

	"github.com/prdump/prdump/internal/domain"
)

const perPage = 100

// ErrPullRequestNotFound reports that the requested pull request does not
// exist or is not visible with the current credentials.
var ErrPullRequestNotFound = errors.New("pull request not found")

// Client fetches pull request review context over the GitHub REST API.
type Client struct {
	gh *gh.Client
}

// NewClient creates a GitHub API client with the following transport stack:
//  1. httpcache (ETag-based conditional request caching)
//  2. go-github-ratelimit (secondary rate limit middleware, sleeps on 429)
//  3. go-github (GitHub REST API client)
//
// An empty token leaves the client unauthenticated, which works for public
// repositories at a reduced rate limit.
func NewClient(token string) *Client {
	cacheTransport := httpcache.NewMemoryCacheTransport()
	rateLimitClient := github_ratelimit.NewClient(cacheTransport)

	client := gh.NewClient(rateLimitClient)
	if token != "" {
		client = client.WithAuthToken(token)
	}

	return &Client{gh: client}
}

// NewClientWithHTTPClient creates a Client with a custom http.Client and base
// URL. This constructor is intended for testing, allowing injection of an
// httptest server.
func NewClientWithHTTPClient(httpClient *http.Client, baseURL string) (*Client, error) {
	client := gh.NewClient(httpClient)

	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing base URL: %w", err)
	}
	client.BaseURL = u

	return &Client{gh: client}, nil
}

// FetchPullRequest retrieves the metadata of a single pull request.
func (c *Client) FetchPullRequest(ctx context.Context, repoSlug string, number int) (domain.PullRequest, error) {
	owner, repo, err := splitRepo(repoSlug)
	if err != nil {
		return domain.PullRequest{}, err
	}

	pr, resp, err := c.gh.PullRequests.Get(ctx, owner, repo, number)
	if err != nil {
		return domain.PullRequest{}, classifyError(resp, fmt.Sprintf("fetching %s#%d", repoSlug, number), err)
	}

	logRateLimit(resp, repoSlug+"/pull", 0, 1)

	return mapPullRequest(pr, repoSlug), nil
}

// FetchDiff retrieves the unified diff of a pull request as served by the
// API. This is the same diff reviewers commented on, so comment anchors line
// up with its line numbers.
func (c *Client) FetchDiff(ctx context.Context, repoSlug string, number int) (string, error) {
	owner, repo, err := splitRepo(repoSlug)
	if err != nil {
		return "", err
	}

	raw, resp, err := c.gh.PullRequests.GetRaw(ctx, owner, repo, number, gh.RawOptions{Type: gh.Diff})
	if err != nil {
		return "", classifyError(resp, fmt.Sprintf("fetching diff for %s#%d", repoSlug, number), err)
	}

	logRateLimit(resp, repoSlug+"/diff", 0, 1)

	return raw, nil
}

// FetchInlineComments retrieves every review comment on the pull request,
// replies included. It handles pagination automatically.
func (c *Client) FetchInlineComments(ctx context.Context, repoSlug string, number int) ([]domain.Comment, error) {
	owner, repo, err := splitRepo(repoSlug)
	if err != nil {
		return nil, err
	}

	opts := &gh.PullRequestListCommentsOptions{
		ListOptions: gh.ListOptions{PerPage: perPage},
	}
	var all []domain.Comment

	for {
		comments, resp, err := c.gh.PullRequests.ListComments(ctx, owner, repo, number, opts)
		if err != nil {
			return nil, classifyError(resp, fmt.Sprintf("listing inline comments for %s#%d (page %d)", repoSlug, number, opts.Page), err)
		}

		logRateLimit(resp, repoSlug+"/comments", opts.Page, len(comments))

		for _, comment := range comments {
			all = append(all, mapInlineComment(comment))
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return all, nil
}

// FetchGeneralComments retrieves the PR-level discussion comments, which the
// API serves through the Issues endpoint. It handles pagination
// automatically.
func (c *Client) FetchGeneralComments(ctx context.Context, repoSlug string, number int) ([]domain.GeneralComment, error) {
	owner, repo, err := splitRepo(repoSlug)
	if err != nil {
		return nil, err
	}

	opts := &gh.IssueListCommentsOptions{
		ListOptions: gh.ListOptions{PerPage: perPage},
	}
	var all []domain.GeneralComment

	for {
		comments, resp, err := c.gh.Issues.ListComments(ctx, owner, repo, number, opts)
		if err != nil {
			return nil, classifyError(resp, fmt.Sprintf("listing general comments for %s#%d (page %d)", repoSlug, number, opts.Page), err)
		}

		logRateLimit(resp, repoSlug+"/issue-comments", opts.Page, len(comments))

		for _, comment := range comments {
			all = append(all, mapGeneralComment(comment))
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return all, nil
}

// FetchReviews retrieves the submitted review verdicts for the pull request.
// Pending reviews (drafts not yet submitted) are skipped. It handles
// pagination automatically.
func (c *Client) FetchReviews(ctx context.Context, repoSlug string, number int) ([]domain.Review, error) {
	owner, repo, err := splitRepo(repoSlug)
	if err != nil {
		return nil, err
	}

	opts := &gh.ListOptions{PerPage: perPage}
	var all []domain.Review

	for {
		reviews, resp, err := c.gh.PullRequests.ListReviews(ctx, owner, repo, number, opts)
		if err != nil {
			return nil, classifyError(resp, fmt.Sprintf("listing reviews for %s#%d (page %d)", repoSlug, number, opts.Page), err)
		}

		logRateLimit(resp, repoSlug+"/reviews", opts.Page, len(reviews))

		for _, review := range reviews {
			if strings.EqualFold(review.GetState(), "PENDING") {
				continue
			}
			all = append(all, mapReview(review))
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return all, nil
}

// classifyError turns a go-github error into something actionable. A 404
// maps to ErrPullRequestNotFound; auth failures carry a hint about the token
// environment variables.
func classifyError(resp *gh.Response, op string, err error) error {
	if resp != nil {
		switch resp.StatusCode {
		case http.StatusNotFound:
			return fmt.Errorf("%s: %w", op, ErrPullRequestNotFound)
		case http.StatusUnauthorized, http.StatusForbidden:
			return fmt.Errorf("%s: %w (set PRDUMP_GITHUB_TOKEN or GITHUB_TOKEN, or check the token's repo scope)", op, err)
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

// logRateLimit logs the GitHub API rate limit status after each call.
func logRateLimit(resp *gh.Response, endpoint string, page, count int) {
	if resp == nil {
		return
	}

	log.Debug().
		Str("endpoint", endpoint).
		Int("page", page).
		Int("count", count).
		Int("rate_remaining", resp.Rate.Remaining).
		Int("rate_limit", resp.Rate.Limit).
		Msg("github api call")

	if resp.Rate.Limit > 0 && resp.Rate.Remaining < 100 {
		log.Warn().
			Int("remaining", resp.Rate.Remaining).
			Dur("reset_in", time.Until(resp.Rate.Reset.Time).Round(time.Second)).
			Msg("github rate limit low")
	}
}

// splitRepo splits a "owner/repo" string into its two components.
func splitRepo(fullName string) (string, string, error) {
	parts := strings.SplitN(fullName, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid repo name %q: expected owner/repo", fullName)
	}
	return parts[0], parts[1], nil
}
