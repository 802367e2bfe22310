// Package github provides the GitHub comment source that feeds the Trigger
// Parser: a minimal Client for listing repository comments plus a Poller
// that periodically checks configured repositories for new ones.
package github

import "time"

// Comment is a normalized issue or pull-request comment.
type Comment struct {
	ID            int64
	Body          string
	AuthorLogin   string
	IsPullRequest bool
	RepoOwner     string
	RepoName      string
	ItemNumber    int
	HTMLURL       string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// rawIssueComment is the JSON shape of GitHub's repo-wide issue comments
// endpoint (GET /repos/{owner}/{repo}/issues/comments), which returns
// comments on both issues and pull requests.
type rawIssueComment struct {
	ID        int64     `json:"id"`
	Body      string    `json:"body"`
	HTMLURL   string    `json:"html_url"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	IssueURL  string    `json:"issue_url"`
	User      struct {
		Login string `json:"login"`
	} `json:"user"`
}
