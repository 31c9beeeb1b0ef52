package bridge

import (
	"context"
	"net/http"
	"time"

	"github.com/google/go-github/v47/github"
	"github.com/hashicorp/go-hclog"
	"golang.org/x/oauth2"

	"github.com/scan-io-git/issue-bridge/pkg/shared/config"
)

// issuesService is the subset of the GitHub issues API used by the bridge.
type issuesService interface {
	Create(ctx context.Context, owner, repo string, issue *github.IssueRequest) (*github.Issue, *github.Response, error)
	Get(ctx context.Context, owner, repo string, number int) (*github.Issue, *github.Response, error)
	CreateComment(ctx context.Context, owner, repo string, number int, comment *github.IssueComment) (*github.IssueComment, *github.Response, error)
}

// repositoriesService is the subset of the GitHub repositories API used by the bridge.
type repositoriesService interface {
	Get(ctx context.Context, owner, repo string) (*github.Repository, *github.Response, error)
	GetBranch(ctx context.Context, owner, repo, branch string, followRedirects bool) (*github.Branch, *github.Response, error)
	GetContents(ctx context.Context, owner, repo, path string, opts *github.RepositoryContentGetOptions) (*github.RepositoryContent, []*github.RepositoryContent, *github.Response, error)
	CreateFile(ctx context.Context, owner, repo, path string, opts *github.RepositoryContentFileOptions) (*github.RepositoryContentResponse, *github.Response, error)
	UpdateFile(ctx context.Context, owner, repo, path string, opts *github.RepositoryContentFileOptions) (*github.RepositoryContentResponse, *github.Response, error)
	IsCollaborator(ctx context.Context, owner, repo, user string) (bool, *github.Response, error)
}

// gitService is the subset of the GitHub git-data API used by the bridge.
type gitService interface {
	GetRef(ctx context.Context, owner, repo, ref string) (*github.Reference, *github.Response, error)
	CreateRef(ctx context.Context, owner, repo string, ref *github.Reference) (*github.Reference, *github.Response, error)
}

// Client wraps the structured GitHub client for one target repository.
type Client struct {
	Owner        string
	Repo         string
	Issues       issuesService
	Repositories repositoriesService
	Git          gitService
	Logger       hclog.Logger
}

// NewClient builds a Client authenticated with the given credentials. The
// underlying HTTP client carries a hard timeout so no call blocks forever.
func NewClient(creds *config.Credentials, timeout time.Duration, logger hclog.Logger) *Client {
	tokenSource := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: creds.Token})
	httpClient := oauth2.NewClient(context.Background(), tokenSource)
	httpClient.Timeout = timeout

	gh := github.NewClient(httpClient)
	return &Client{
		Owner:        creds.Owner,
		Repo:         creds.Repo,
		Issues:       gh.Issues,
		Repositories: gh.Repositories,
		Git:          gh.Git,
		Logger:       logger,
	}
}

// CheckConnection verifies the repository is reachable with the configured
// credentials before any issue is created.
func (c *Client) CheckConnection(ctx context.Context) error {
	_, _, err := c.Repositories.Get(ctx, c.Owner, c.Repo)
	return err
}

// ValidateAssignees filters the given logins down to repository
// collaborators. Invalid or unverifiable assignees are logged and skipped so
// one typo does not block issue creation.
func (c *Client) ValidateAssignees(ctx context.Context, assignees []string) []string {
	var valid []string
	for _, login := range assignees {
		isCollaborator, _, err := c.Repositories.IsCollaborator(ctx, c.Owner, c.Repo, login)
		if err != nil {
			c.Logger.Warn("failed to check assignee, skipping", "login", login, "error", err)
			continue
		}
		if !isCollaborator {
			c.Logger.Warn("assignee is not a collaborator, skipping", "login", login)
			continue
		}
		valid = append(valid, login)
	}
	return valid
}

// createComment posts a comment on the given issue.
func (c *Client) createComment(ctx context.Context, handle *IssueHandle, body string) error {
	comment := &github.IssueComment{Body: github.String(body)}
	_, _, err := c.Issues.CreateComment(ctx, handle.Owner, handle.Repo, handle.Number, comment)
	return err
}

// isNotFound reports whether a response is a 404. Not-found is normal
// control flow for branch and content probes, never an error path.
func isNotFound(resp *github.Response) bool {
	return resp != nil && resp.StatusCode == http.StatusNotFound
}

// isUnprocessable reports whether a response is a 422, which the ref API
// returns when a reference already exists.
func isUnprocessable(resp *github.Response) bool {
	return resp != nil && resp.StatusCode == http.StatusUnprocessableEntity
}
