package github

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const githubAPIBase = "https://api.github.com"

// PATClient implements Client using a GitHub Personal Access Token against
// the plain REST API.
type PATClient struct {
	token      string
	httpClient *http.Client
	username   string // cached after first GetAuthenticatedUser call
}

// NewPATClient creates a new PAT-based GitHub client.
func NewPATClient(token string) *PATClient {
	return &PATClient{
		token: token,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (c *PATClient) IsAuthenticated(ctx context.Context) (bool, error) {
	_, err := c.GetAuthenticatedUser(ctx)
	return err == nil, nil
}

func (c *PATClient) GetAuthenticatedUser(ctx context.Context) (string, error) {
	if c.username != "" {
		return c.username, nil
	}
	var user struct {
		Login string `json:"login"`
	}
	if err := c.get(ctx, "/user", &user); err != nil {
		return "", fmt.Errorf("get authenticated user: %w", err)
	}
	c.username = user.Login
	return c.username, nil
}

func (c *PATClient) ListRepositoryComments(ctx context.Context, owner, repo string, since *time.Time) ([]Comment, error) {
	endpoint := fmt.Sprintf("/repos/%s/%s/issues/comments?sort=updated&direction=asc&per_page=100", owner, repo)
	if since != nil {
		endpoint += "&since=" + url.QueryEscape(since.UTC().Format(time.RFC3339))
	}
	var raw []rawIssueComment
	if err := c.get(ctx, endpoint, &raw); err != nil {
		return nil, fmt.Errorf("list repository comments: %w", err)
	}
	return convertRawIssueComments(raw, owner, repo), nil
}

func (c *PATClient) get(ctx context.Context, endpoint string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, githubAPIBase+endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("github api %s: status %d: %s", endpoint, resp.StatusCode, string(body))
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(body, out)
}
