package bridge

import (
	"bytes"
	"context"
	"os/exec"
	"strings"

	"github.com/hashicorp/go-hclog"
)

// commandRunner executes an external command and returns its stdout and
// stderr. Injected so tests can simulate the gh CLI.
type commandRunner func(ctx context.Context, name string, args ...string) (stdout, stderr string, err error)

// runCommand is the default commandRunner backed by os/exec.
func runCommand(ctx context.Context, name string, args ...string) (string, string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var outBuf, errBuf bytes.Buffer
	cmd.Stdout = &outBuf
	cmd.Stderr = &errBuf
	err := cmd.Run()
	return outBuf.String(), errBuf.String(), err
}

// CLITransport creates issues by invoking the gh CLI. It is the fallback
// transport: the structured client cannot correlate CLI output back to an
// issue number, so success here carries output text instead of a handle.
type CLITransport struct {
	runner commandRunner
	logger hclog.Logger
}

// NewCLITransport builds a CLI transport using the real gh binary.
func NewCLITransport(logger hclog.Logger) *CLITransport {
	return &CLITransport{runner: runCommand, logger: logger}
}

func (t *CLITransport) name() string { return "gh-cli" }

// publish checks for an authenticated gh session first; an unauthenticated
// CLI is a definitive failure, no creation is attempted.
func (t *CLITransport) publish(ctx context.Context, req PublishRequest) PublishResult {
	if _, stderr, err := t.runner(ctx, "gh", "auth", "status"); err != nil {
		return publishFailed("gh CLI not authenticated: %s", strings.TrimSpace(stderr))
	}

	args := []string{"issue", "create", "--title", req.Title, "--body", req.Body}
	if len(req.Assignees) > 0 {
		args = append(args, "--assignee", strings.Join(req.Assignees, ","))
	}
	for _, label := range req.Labels {
		args = append(args, "--label", label)
	}

	stdout, stderr, err := t.runner(ctx, "gh", args...)
	if err != nil {
		return publishFailed("gh issue create failed: %s", strings.TrimSpace(stderr))
	}

	t.logger.Info("issue created via gh CLI", "title", req.Title, "output", strings.TrimSpace(stdout))
	return PublishResult{Created: true, Output: stdout}
}
