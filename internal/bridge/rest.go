package bridge

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-hclog"

	"github.com/scan-io-git/issue-bridge/pkg/shared/config"
)

// defaultAPIBaseURL is the GitHub REST API root.
const defaultAPIBaseURL = "https://api.github.com"

// RestClient is the raw REST fallback transport for attachment uploads. It
// speaks plain HTTP with a token header and implements the same
// branch-ensure and file-write contract as the structured client.
type RestClient struct {
	resty   *resty.Client
	BaseURL string
	owner   string
	repo    string
	token   string
	branch  string
	logger  hclog.Logger
}

// NewRestClient builds a REST fallback client for the given repository and
// shared branch.
func NewRestClient(restyClient *resty.Client, creds *config.Credentials, branch string, logger hclog.Logger) *RestClient {
	return &RestClient{
		resty:   restyClient,
		BaseURL: defaultAPIBaseURL,
		owner:   creds.Owner,
		repo:    creds.Repo,
		token:   creds.Token,
		branch:  branch,
		logger:  logger,
	}
}

func (c *RestClient) name() string { return "rest" }

// repoURL builds a repository-scoped API URL from a relative path.
func (c *RestClient) repoURL(relPath string) string {
	return fmt.Sprintf("%s/repos/%s/%s%s", c.BaseURL, c.owner, c.repo, relPath)
}

// headersBuilder returns a request with the standard GitHub API headers set.
func (c *RestClient) headersBuilder(ctx context.Context) *resty.Request {
	return c.resty.R().
		SetContext(ctx).
		SetHeader("Accept", "application/vnd.github+json").
		SetHeader("Authorization", "token "+c.token).
		SetHeader("User-Agent", "issue-bridge")
}

// get sends a GET request to a repository-scoped path.
func (c *RestClient) get(ctx context.Context, relPath string, queryParams map[string]string) (*resty.Response, error) {
	return c.headersBuilder(ctx).
		SetQueryParams(queryParams).
		Get(c.repoURL(relPath))
}

// post sends a POST request with a JSON body to a repository-scoped path.
func (c *RestClient) post(ctx context.Context, relPath string, body interface{}) (*resty.Response, error) {
	return c.headersBuilder(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		Post(c.repoURL(relPath))
}

// put sends a PUT request with a JSON body to a repository-scoped path.
func (c *RestClient) put(ctx context.Context, relPath string, body interface{}) (*resty.Response, error) {
	return c.headersBuilder(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		Put(c.repoURL(relPath))
}

// branchExists probes the shared branch. 404 is a normal answer.
func (c *RestClient) branchExists(ctx context.Context) (bool, error) {
	resp, err := c.get(ctx, "/branches/"+c.branch, nil)
	if err != nil {
		return false, err
	}
	switch resp.StatusCode() {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, fmt.Errorf("unexpected status %d checking branch %q", resp.StatusCode(), c.branch)
	}
}

// defaultBranch fetches the repository's default branch name.
func (c *RestClient) defaultBranch(ctx context.Context) (string, error) {
	resp, err := c.get(ctx, "", nil)
	if err != nil {
		return "", err
	}
	if resp.StatusCode() != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d fetching repository info", resp.StatusCode())
	}

	var repoInfo struct {
		DefaultBranch string `json:"default_branch"`
	}
	if err := json.Unmarshal(resp.Body(), &repoInfo); err != nil {
		return "", fmt.Errorf("failed to decode repository info: %w", err)
	}
	if repoInfo.DefaultBranch == "" {
		return "", fmt.Errorf("repository info has no default branch")
	}
	return repoInfo.DefaultBranch, nil
}

// headSHA fetches the commit SHA a branch ref points at.
func (c *RestClient) headSHA(ctx context.Context, branch string) (string, error) {
	resp, err := c.get(ctx, "/git/refs/heads/"+branch, nil)
	if err != nil {
		return "", err
	}
	if resp.StatusCode() != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d fetching ref for %q", resp.StatusCode(), branch)
	}

	var ref struct {
		Object struct {
			SHA string `json:"sha"`
		} `json:"object"`
	}
	if err := json.Unmarshal(resp.Body(), &ref); err != nil {
		return "", fmt.Errorf("failed to decode ref: %w", err)
	}
	return ref.Object.SHA, nil
}

// ensureBranch creates the shared branch from the default branch head when
// it does not exist yet. A 422 from the ref API means another run created
// it first; that is confirmed with a re-check and accepted.
func (c *RestClient) ensureBranch(ctx context.Context) error {
	exists, err := c.branchExists(ctx)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	base, err := c.defaultBranch(ctx)
	if err != nil {
		return err
	}
	sha, err := c.headSHA(ctx, base)
	if err != nil {
		return err
	}

	payload := map[string]string{
		"ref": "refs/heads/" + c.branch,
		"sha": sha,
	}
	resp, err := c.post(ctx, "/git/refs", payload)
	if err != nil {
		return err
	}
	switch resp.StatusCode() {
	case http.StatusCreated, http.StatusOK:
		return nil
	case http.StatusUnprocessableEntity:
		if exists, checkErr := c.branchExists(ctx); checkErr == nil && exists {
			c.logger.Debug("branch created concurrently by another run", "branch", c.branch)
			return nil
		}
		return fmt.Errorf("failed to create branch %q: status %d: %s", c.branch, resp.StatusCode(), resp.String())
	default:
		return fmt.Errorf("failed to create branch %q: status %d: %s", c.branch, resp.StatusCode(), resp.String())
	}
}

// contentSHA returns the version token of the file at repoPath on the shared
// branch, or empty when it does not exist yet.
func (c *RestClient) contentSHA(ctx context.Context, repoPath string) (string, error) {
	resp, err := c.get(ctx, "/contents/"+repoPath, map[string]string{"ref": c.branch})
	if err != nil {
		return "", err
	}
	switch resp.StatusCode() {
	case http.StatusOK:
		var content struct {
			SHA string `json:"sha"`
		}
		if err := json.Unmarshal(resp.Body(), &content); err != nil {
			return "", fmt.Errorf("failed to decode content info: %w", err)
		}
		return content.SHA, nil
	case http.StatusNotFound:
		return "", nil
	default:
		return "", fmt.Errorf("unexpected status %d checking content at %q", resp.StatusCode(), repoPath)
	}
}

// writeFile creates or updates the file at repoPath on the shared branch.
// An existing file's SHA is sent as the update precondition; a stale SHA
// fails the write instead of clobbering a concurrent writer.
func (c *RestClient) writeFile(ctx context.Context, repoPath string, content []byte, message string) error {
	sha, err := c.contentSHA(ctx, repoPath)
	if err != nil {
		return err
	}

	payload := map[string]string{
		"message": message,
		"content": base64.StdEncoding.EncodeToString(content),
		"branch":  c.branch,
	}
	if sha != "" {
		payload["sha"] = sha
	}

	resp, err := c.put(ctx, "/contents/"+repoPath, payload)
	if err != nil {
		return err
	}
	if resp.StatusCode() != http.StatusCreated && resp.StatusCode() != http.StatusOK {
		return fmt.Errorf("failed to write %q: status %d: %s", repoPath, resp.StatusCode(), resp.String())
	}
	return nil
}
