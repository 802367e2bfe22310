package github

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Client defines the narrow GitHub surface the comment source needs.
type Client interface {
	// IsAuthenticated reports whether the client can reach the API.
	IsAuthenticated(ctx context.Context) (bool, error)

	// GetAuthenticatedUser returns the login of the authenticated user, used
	// to avoid treating the bot's own comments as trigger directives.
	GetAuthenticatedUser(ctx context.Context) (string, error)

	// ListRepositoryComments lists comments across every issue and pull
	// request in owner/repo. If since is non-nil, only comments updated
	// after that time are returned.
	ListRepositoryComments(ctx context.Context, owner, repo string, since *time.Time) ([]Comment, error)
}

func convertRawIssueComment(raw rawIssueComment, owner, repo string) Comment {
	return Comment{
		ID:            raw.ID,
		Body:          raw.Body,
		AuthorLogin:   raw.User.Login,
		IsPullRequest: strings.Contains(raw.HTMLURL, "/pull/"),
		RepoOwner:     owner,
		RepoName:      repo,
		ItemNumber:    itemNumberFromIssueURL(raw.IssueURL),
		HTMLURL:       raw.HTMLURL,
		CreatedAt:     raw.CreatedAt,
		UpdatedAt:     raw.UpdatedAt,
	}
}

// itemNumberFromIssueURL extracts the trailing numeric segment of an
// issue_url like "https://api.github.com/repos/o/r/issues/42".
func itemNumberFromIssueURL(issueURL string) int {
	idx := strings.LastIndex(issueURL, "/")
	if idx < 0 || idx == len(issueURL)-1 {
		return 0
	}
	n, err := strconv.Atoi(issueURL[idx+1:])
	if err != nil {
		return 0
	}
	return n
}

func convertRawIssueComments(raw []rawIssueComment, owner, repo string) []Comment {
	comments := make([]Comment, len(raw))
	for i, c := range raw {
		comments[i] = convertRawIssueComment(c, owner, repo)
	}
	return comments
}

func repoSplit(repository string) (owner, name string, err error) {
	parts := strings.SplitN(repository, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid repository %q, want owner/name", repository)
	}
	return parts[0], parts[1], nil
}
