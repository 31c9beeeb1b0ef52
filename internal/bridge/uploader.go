package bridge

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/go-github/v47/github"
	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"
)

const (
	// rawContentHost serves file content directly for a branch path.
	rawContentHost = "https://raw.githubusercontent.com"

	// attachmentsRoot is the top-level folder on the shared branch; each
	// ticket gets its own subfolder underneath it.
	attachmentsRoot = "attachments"
)

// uploadTransport performs branch-ensure and file-write for one attachment.
// Two implementations exist: the structured client and the raw REST client.
type uploadTransport interface {
	name() string
	ensureBranch(ctx context.Context) error
	writeFile(ctx context.Context, repoPath string, content []byte, message string) error
}

// commentPoster posts a comment on an issue. Satisfied by *Client.
type commentPoster interface {
	createComment(ctx context.Context, handle *IssueHandle, body string) error
}

// Uploader mirrors local attachment files onto a shared repository branch
// and embeds their raw URLs as issue comments. Failures degrade through a
// one-shot fallback transport and are always reported on the issue when
// possible; no error escapes the Upload boundary.
type Uploader struct {
	owner    string
	repo     string
	branch   string
	primary  uploadTransport
	fallback uploadTransport
	comments commentPoster
	runID    string
	logger   hclog.Logger
}

// NewUploader wires an uploader with the structured client as the primary
// transport and the REST client as the fallback. rest may be nil.
func NewUploader(client *Client, rest *RestClient, branch string, logger hclog.Logger) *Uploader {
	u := &Uploader{
		owner:    client.Owner,
		repo:     client.Repo,
		branch:   branch,
		primary:  &clientUploadTransport{client: client, branch: branch},
		comments: client,
		runID:    uuid.NewString(),
		logger:   logger,
	}
	if rest != nil {
		u.fallback = rest
	}
	logger.Info("uploader initialized", "branch", branch, "run_id", u.runID)
	return u
}

// UploadAll uploads each local file in the order given. One attachment's
// failure never aborts the rest.
func (u *Uploader) UploadAll(ctx context.Context, handle *IssueHandle, ticketKey string, localPaths []string) []UploadOutcome {
	outcomes := make([]UploadOutcome, 0, len(localPaths))
	for _, localPath := range localPaths {
		outcomes = append(outcomes, u.Upload(ctx, handle, ticketKey, localPath))
	}
	return outcomes
}

// Upload ensures the shared branch exists, writes the file to the per-ticket
// path and posts a comment embedding the raw content URL. On primary
// transport failure the REST fallback re-runs branch-ensure and file-write
// once. Always returns a tagged outcome.
func (u *Uploader) Upload(ctx context.Context, handle *IssueHandle, ticketKey, localPath string) UploadOutcome {
	content, err := os.ReadFile(localPath)
	if err != nil {
		reason := fmt.Sprintf("failed to read local file %q: %v", localPath, err)
		u.logger.Error("attachment unreadable", "path", localPath, "error", err)
		u.reportFailure(ctx, handle, localPath, reason)
		return uploadFailed(reason)
	}

	filename := SanitizeFilename(filepath.Base(localPath))
	repoPath := path.Join(attachmentsRoot, ticketKey, filename)
	message := fmt.Sprintf("Add attachment %s for %s (run %s)", filename, ticketKey, u.runID)

	err = u.writeVia(ctx, u.primary, repoPath, content, message)
	if err != nil && u.fallback != nil {
		u.logger.Warn("primary upload transport failed, retrying via fallback",
			"transport", u.primary.name(), "path", repoPath, "error", err)
		err = u.writeVia(ctx, u.fallback, repoPath, content, message)
	}
	if err != nil {
		reason := fmt.Sprintf("failed to upload %q to branch %q: %v", repoPath, u.branch, err)
		u.logger.Error("attachment upload failed", "path", repoPath, "error", err)
		u.reportFailure(ctx, handle, localPath, reason)
		return uploadFailed(reason)
	}

	rawURL := fmt.Sprintf("%s/%s/%s/%s/%s", rawContentHost, u.owner, u.repo, u.branch, repoPath)
	u.postEmbed(ctx, handle, filename, rawURL)
	return UploadOutcome{Uploaded: true, RawURL: rawURL}
}

// writeVia runs the branch-ensure and file-write states on one transport.
func (u *Uploader) writeVia(ctx context.Context, transport uploadTransport, repoPath string, content []byte, message string) error {
	if err := transport.ensureBranch(ctx); err != nil {
		return fmt.Errorf("ensure branch via %s: %w", transport.name(), err)
	}
	if err := transport.writeFile(ctx, repoPath, content, message); err != nil {
		return fmt.Errorf("write file via %s: %w", transport.name(), err)
	}
	return nil
}

// postEmbed comments the uploaded file's raw URL on the issue as a markdown
// image. A comment failure does not revert the upload; the file stays on the
// branch.
func (u *Uploader) postEmbed(ctx context.Context, handle *IssueHandle, filename, rawURL string) {
	if handle == nil {
		u.logger.Warn("no issue handle, skipping attachment comment", "url", rawURL)
		return
	}
	body := fmt.Sprintf("![%s](%s)", filename, rawURL)
	if err := u.comments.createComment(ctx, handle, body); err != nil {
		u.logger.Error("failed to post attachment comment, file remains on branch",
			"issue", handle.String(), "url", rawURL, "error", err)
	}
}

// reportFailure posts a best-effort comment stating the attachment could not
// be uploaded, naming the local path so the artifact can be found later.
func (u *Uploader) reportFailure(ctx context.Context, handle *IssueHandle, localPath, reason string) {
	if handle == nil {
		return
	}
	body := fmt.Sprintf("Failed to upload attachment `%s`: %s\n\nThe file remains available locally at `%s`.",
		filepath.Base(localPath), reason, localPath)
	if err := u.comments.createComment(ctx, handle, body); err != nil {
		u.logger.Error("failed to post upload-failure comment", "issue", handle.String(), "error", err)
	}
}

// SanitizeFilename makes a filename safe for use in a repository path:
// spaces become underscores and everything but alphanumerics, dots,
// underscores and hyphens is stripped. An empty result falls back to "file".
// Idempotent.
func SanitizeFilename(name string) string {
	replaced := strings.ReplaceAll(name, " ", "_")
	var b strings.Builder
	for _, r := range replaced {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.', r == '_', r == '-':
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "file"
	}
	return b.String()
}

// clientUploadTransport implements uploadTransport over the structured client.
type clientUploadTransport struct {
	client *Client
	branch string
}

func (t *clientUploadTransport) name() string { return "github-client" }

// ensureBranch checks the shared branch and creates it from the default
// branch head when absent. A ref-exists conflict from a concurrent run is
// confirmed with a re-check and then treated as success.
func (t *clientUploadTransport) ensureBranch(ctx context.Context) error {
	c := t.client

	_, resp, err := c.Repositories.GetBranch(ctx, c.Owner, c.Repo, t.branch, true)
	if err == nil {
		return nil
	}
	if !isNotFound(resp) {
		return fmt.Errorf("failed to check branch %q: %w", t.branch, err)
	}

	repoInfo, _, err := c.Repositories.Get(ctx, c.Owner, c.Repo)
	if err != nil {
		return fmt.Errorf("failed to get repository info: %w", err)
	}
	defaultBranch := repoInfo.GetDefaultBranch()

	baseRef, _, err := c.Git.GetRef(ctx, c.Owner, c.Repo, "heads/"+defaultBranch)
	if err != nil {
		return fmt.Errorf("failed to get head of default branch %q: %w", defaultBranch, err)
	}

	newRef := &github.Reference{
		Ref:    github.String("refs/heads/" + t.branch),
		Object: &github.GitObject{SHA: baseRef.Object.SHA},
	}
	_, resp, err = c.Git.CreateRef(ctx, c.Owner, c.Repo, newRef)
	if err != nil {
		if isUnprocessable(resp) {
			// Another run likely created the ref first; confirm before
			// declaring victory.
			if _, _, checkErr := c.Repositories.GetBranch(ctx, c.Owner, c.Repo, t.branch, true); checkErr == nil {
				c.Logger.Debug("branch created concurrently by another run", "branch", t.branch)
				return nil
			}
		}
		return fmt.Errorf("failed to create branch %q: %w", t.branch, err)
	}
	return nil
}

// writeFile creates or updates the file at repoPath on the shared branch.
// An existing file's SHA is supplied as the compare-and-swap token; a stale
// token surfaces as a write failure rather than clobbering a concurrent
// writer's newer version.
func (t *clientUploadTransport) writeFile(ctx context.Context, repoPath string, content []byte, message string) error {
	c := t.client

	getOpts := &github.RepositoryContentGetOptions{Ref: t.branch}
	existing, _, resp, err := c.Repositories.GetContents(ctx, c.Owner, c.Repo, repoPath, getOpts)

	var sha *string
	switch {
	case err == nil && existing != nil:
		sha = existing.SHA
	case err == nil:
		return fmt.Errorf("path %q on branch %q is not a file", repoPath, t.branch)
	case isNotFound(resp):
		// new file
	default:
		return fmt.Errorf("failed to check existing content at %q: %w", repoPath, err)
	}

	fileOpts := &github.RepositoryContentFileOptions{
		Message: github.String(message),
		Content: content,
		Branch:  github.String(t.branch),
		SHA:     sha,
	}

	if sha != nil {
		_, _, err = c.Repositories.UpdateFile(ctx, c.Owner, c.Repo, repoPath, fileOpts)
	} else {
		_, _, err = c.Repositories.CreateFile(ctx, c.Owner, c.Repo, repoPath, fileOpts)
	}
	if err != nil {
		return fmt.Errorf("failed to write %q on branch %q: %w", repoPath, t.branch, err)
	}
	return nil
}
