package bridge

import (
	"context"
	"regexp"
	"strconv"

	"github.com/google/go-github/v47/github"
	"github.com/hashicorp/go-hclog"
)

// issueURLPattern recovers a numeric issue ID from the URL the gh CLI prints
// on success. A parse miss means no handle is available, not an error.
var issueURLPattern = regexp.MustCompile(`/issues/(\d+)`)

// PublishRequest carries everything needed to create one issue.
type PublishRequest struct {
	Title     string
	Body      string
	Assignees []string
	Labels    []string
}

// publishTransport is one strategy for creating an issue. Transports are
// tried in order; the next one runs only when the previous failed.
type publishTransport interface {
	name() string
	publish(ctx context.Context, req PublishRequest) PublishResult
}

// Publisher creates issues through an ordered chain of transports and
// normalizes their outcomes to a single PublishResult shape.
type Publisher struct {
	transports []publishTransport
	client     *Client
	logger     hclog.Logger
}

// NewPublisher builds a publisher with the structured client as the primary
// transport and the gh CLI as the fallback. Either may be nil.
func NewPublisher(client *Client, cli *CLITransport, logger hclog.Logger) *Publisher {
	p := &Publisher{client: client, logger: logger}
	if client != nil {
		p.transports = append(p.transports, &clientTransport{client: client})
	}
	if cli != nil {
		p.transports = append(p.transports, cli)
	}
	return p
}

// Publish runs the transport chain. On success it ensures a handle is
// attached when one can be recovered; a missing handle only means attachment
// upload is not possible this run.
func (p *Publisher) Publish(ctx context.Context, req PublishRequest) PublishResult {
	last := publishFailed("no publish transport configured")
	for _, transport := range p.transports {
		result := transport.publish(ctx, req)
		if result.Created {
			if result.Handle == nil {
				result.Handle = p.recoverHandle(ctx, result.Output)
			}
			return result
		}
		p.logger.Error("publish transport failed, trying next", "transport", transport.name(), "reason", result.Reason)
		last = result
	}
	return last
}

// recoverHandle pattern-matches an issue URL out of transport output and
// performs a secondary fetch to confirm the issue exists. Returns nil when
// the number cannot be recovered; the caller logs and skips attachments.
func (p *Publisher) recoverHandle(ctx context.Context, output string) *IssueHandle {
	if p.client == nil {
		return nil
	}

	match := issueURLPattern.FindStringSubmatch(output)
	if match == nil {
		p.logger.Warn("no issue URL found in transport output, handle unavailable")
		return nil
	}
	number, err := strconv.Atoi(match[1])
	if err != nil {
		return nil
	}

	if _, _, err := p.client.Issues.Get(ctx, p.client.Owner, p.client.Repo, number); err != nil {
		p.logger.Warn("failed to fetch issue recovered from output, handle unavailable", "number", number, "error", err)
		return nil
	}
	return &IssueHandle{Owner: p.client.Owner, Repo: p.client.Repo, Number: number}
}

// clientTransport creates issues through the structured GitHub client.
type clientTransport struct {
	client *Client
}

func (t *clientTransport) name() string { return "github-client" }

func (t *clientTransport) publish(ctx context.Context, req PublishRequest) PublishResult {
	issueReq := &github.IssueRequest{
		Title: github.String(req.Title),
		Body:  github.String(req.Body),
	}
	if len(req.Assignees) > 0 {
		issueReq.Assignees = &req.Assignees
	}
	if len(req.Labels) > 0 {
		issueReq.Labels = &req.Labels
	}

	issue, _, err := t.client.Issues.Create(ctx, t.client.Owner, t.client.Repo, issueReq)
	if err != nil {
		return publishFailed("failed to create issue via client: %v", err)
	}

	handle := &IssueHandle{Owner: t.client.Owner, Repo: t.client.Repo, Number: issue.GetNumber()}
	t.client.Logger.Info("issue created via client", "number", handle.Number, "title", req.Title)
	return PublishResult{Created: true, Handle: handle, Output: issue.GetHTMLURL()}
}
