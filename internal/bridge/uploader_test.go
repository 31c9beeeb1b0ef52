package bridge

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-github/v47/github"
	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "plain name unchanged",
			input:    "screenshot.png",
			expected: "screenshot.png",
		},
		{
			name:     "spaces become underscores",
			input:    "error log 2024.txt",
			expected: "error_log_2024.txt",
		},
		{
			name:     "forbidden characters stripped",
			input:    "a/b\\c:d*e?.png",
			expected: "abcde.png",
		},
		{
			name:     "unicode stripped",
			input:    "отчёт.pdf",
			expected: ".pdf",
		},
		{
			name:     "empty falls back to file",
			input:    "",
			expected: "file",
		},
		{
			name:     "only forbidden characters falls back to file",
			input:    "///***",
			expected: "file",
		},
		{
			name:     "keeps dots underscores hyphens",
			input:    "my_file-v2.tar.gz",
			expected: "my_file-v2.tar.gz",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, SanitizeFilename(tt.input))
		})
	}
}

func TestSanitizeFilenameIdempotent(t *testing.T) {
	inputs := []string{"a b c.png", "///", "", "clean.txt", "отчёт doc.pdf", "x*?y z.log"}
	for _, input := range inputs {
		once := SanitizeFilename(input)
		twice := SanitizeFilename(once)
		assert.Equal(t, once, twice, "input %q", input)
		assert.NotEmpty(t, once, "input %q", input)
	}
}

// fakeTransport is a scriptable uploadTransport.
type fakeTransport struct {
	transportName string
	branchErr     error
	writeErr      error
	branchCalls   int
	writeCalls    int
	wrotePaths    []string
}

func (f *fakeTransport) name() string { return f.transportName }

func (f *fakeTransport) ensureBranch(ctx context.Context) error {
	f.branchCalls++
	return f.branchErr
}

func (f *fakeTransport) writeFile(ctx context.Context, repoPath string, content []byte, message string) error {
	f.writeCalls++
	f.wrotePaths = append(f.wrotePaths, repoPath)
	return f.writeErr
}

// fakeCommenter records posted comments.
type fakeCommenter struct {
	comments []string
	err      error
}

func (f *fakeCommenter) createComment(ctx context.Context, handle *IssueHandle, body string) error {
	f.comments = append(f.comments, body)
	return f.err
}

func newTestUploader(primary, fallback uploadTransport, commenter commentPoster) *Uploader {
	return &Uploader{
		owner:    "acme",
		repo:     "shop",
		branch:   "attachments",
		primary:  primary,
		fallback: fallback,
		comments: commenter,
		runID:    "test-run",
		logger:   hclog.NewNullLogger(),
	}
}

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestUploadSuccessPostsEmbedComment(t *testing.T) {
	primary := &fakeTransport{transportName: "github-client"}
	commenter := &fakeCommenter{}
	uploader := newTestUploader(primary, nil, commenter)
	handle := &IssueHandle{Owner: "acme", Repo: "shop", Number: 7}

	localPath := writeTempFile(t, "stack trace.txt", "boom")
	outcome := uploader.Upload(context.Background(), handle, "PROJ-12", localPath)

	require.True(t, outcome.Uploaded)
	assert.Equal(t, "https://raw.githubusercontent.com/acme/shop/attachments/attachments/PROJ-12/stack_trace.txt", outcome.RawURL)
	assert.Equal(t, 1, primary.branchCalls)
	assert.Equal(t, []string{"attachments/PROJ-12/stack_trace.txt"}, primary.wrotePaths)

	require.Len(t, commenter.comments, 1)
	assert.Equal(t, "![stack_trace.txt]("+outcome.RawURL+")", commenter.comments[0])
}

func TestUploadFallsBackWhenPrimaryWriteFails(t *testing.T) {
	primary := &fakeTransport{transportName: "github-client", writeErr: errors.New("boom")}
	fallback := &fakeTransport{transportName: "rest"}
	commenter := &fakeCommenter{}
	uploader := newTestUploader(primary, fallback, commenter)
	handle := &IssueHandle{Owner: "acme", Repo: "shop", Number: 7}

	localPath := writeTempFile(t, "log.txt", "data")
	outcome := uploader.Upload(context.Background(), handle, "PROJ-12", localPath)

	require.True(t, outcome.Uploaded)
	assert.Equal(t, 1, fallback.branchCalls, "fallback re-runs branch ensure")
	assert.Equal(t, 1, fallback.writeCalls)
	require.Len(t, commenter.comments, 1, "comment still posted after fallback success")
	assert.Contains(t, commenter.comments[0], outcome.RawURL)
}

func TestUploadBothTransportsFail(t *testing.T) {
	primary := &fakeTransport{transportName: "github-client", writeErr: errors.New("primary down")}
	fallback := &fakeTransport{transportName: "rest", writeErr: errors.New("rest down")}
	commenter := &fakeCommenter{}
	uploader := newTestUploader(primary, fallback, commenter)
	handle := &IssueHandle{Owner: "acme", Repo: "shop", Number: 7}

	localPath := writeTempFile(t, "log.txt", "data")
	outcome := uploader.Upload(context.Background(), handle, "PROJ-12", localPath)

	require.False(t, outcome.Uploaded)
	assert.Contains(t, outcome.Reason, "rest down")

	require.Len(t, commenter.comments, 1, "failure comment posted")
	assert.Contains(t, commenter.comments[0], "Failed to upload attachment")
	assert.Contains(t, commenter.comments[0], localPath)
}

func TestUploadUnreadableLocalFile(t *testing.T) {
	primary := &fakeTransport{transportName: "github-client"}
	commenter := &fakeCommenter{}
	uploader := newTestUploader(primary, nil, commenter)
	handle := &IssueHandle{Owner: "acme", Repo: "shop", Number: 7}

	outcome := uploader.Upload(context.Background(), handle, "PROJ-12", filepath.Join(t.TempDir(), "absent.png"))

	require.False(t, outcome.Uploaded)
	assert.Contains(t, outcome.Reason, "failed to read local file")
	assert.Zero(t, primary.branchCalls, "no network calls for unreadable file")
	require.Len(t, commenter.comments, 1)
	assert.Contains(t, commenter.comments[0], "absent.png")
}

func TestUploadCommentFailureDoesNotRevertUpload(t *testing.T) {
	primary := &fakeTransport{transportName: "github-client"}
	commenter := &fakeCommenter{err: errors.New("comment API down")}
	uploader := newTestUploader(primary, nil, commenter)
	handle := &IssueHandle{Owner: "acme", Repo: "shop", Number: 7}

	localPath := writeTempFile(t, "ok.txt", "fine")
	outcome := uploader.Upload(context.Background(), handle, "PROJ-12", localPath)

	assert.True(t, outcome.Uploaded, "comment failure does not fail the upload")
}

func TestUploadNilHandleSkipsComments(t *testing.T) {
	primary := &fakeTransport{transportName: "github-client"}
	commenter := &fakeCommenter{}
	uploader := newTestUploader(primary, nil, commenter)

	localPath := writeTempFile(t, "ok.txt", "fine")
	outcome := uploader.Upload(context.Background(), nil, "PROJ-12", localPath)

	assert.True(t, outcome.Uploaded)
	assert.Empty(t, commenter.comments)
}

func TestUploadAllIsIndependentPerAttachment(t *testing.T) {
	// primary fails only for paths containing "bad"
	primary := &selectiveTransport{failSubstring: "bad"}
	commenter := &fakeCommenter{}
	uploader := newTestUploader(primary, nil, commenter)
	handle := &IssueHandle{Owner: "acme", Repo: "shop", Number: 7}

	good1 := writeTempFile(t, "good1.txt", "a")
	bad := writeTempFile(t, "bad.txt", "b")
	good2 := writeTempFile(t, "good2.txt", "c")

	outcomes := uploader.UploadAll(context.Background(), handle, "PROJ-12", []string{good1, bad, good2})

	require.Len(t, outcomes, 3)
	assert.True(t, outcomes[0].Uploaded)
	assert.False(t, outcomes[1].Uploaded)
	assert.True(t, outcomes[2].Uploaded, "failure of one attachment does not abort the rest")
}

// selectiveTransport fails writes whose path contains failSubstring.
type selectiveTransport struct {
	failSubstring string
}

func (s *selectiveTransport) name() string                           { return "selective" }
func (s *selectiveTransport) ensureBranch(ctx context.Context) error { return nil }

func (s *selectiveTransport) writeFile(ctx context.Context, repoPath string, content []byte, message string) error {
	if s.failSubstring != "" && strings.Contains(repoPath, s.failSubstring) {
		return fmt.Errorf("refusing %s", repoPath)
	}
	return nil
}

// --- clientUploadTransport against fake services ---

type fakeReposService struct {
	branches      map[string]bool
	defaultBranch string
	contents      map[string]string // repoPath -> sha
	createdFiles  []string
	updatedFiles  []string
	updateSHA     string
	getBranchErr  error
}

func ghResponse(status int) *github.Response {
	return &github.Response{Response: &http.Response{StatusCode: status}}
}

func (f *fakeReposService) Get(ctx context.Context, owner, repo string) (*github.Repository, *github.Response, error) {
	return &github.Repository{DefaultBranch: github.String(f.defaultBranch)}, ghResponse(200), nil
}

func (f *fakeReposService) GetBranch(ctx context.Context, owner, repo, branch string, followRedirects bool) (*github.Branch, *github.Response, error) {
	if f.getBranchErr != nil {
		return nil, ghResponse(500), f.getBranchErr
	}
	if f.branches[branch] {
		return &github.Branch{Name: github.String(branch)}, ghResponse(200), nil
	}
	return nil, ghResponse(404), errors.New("404 branch not found")
}

func (f *fakeReposService) GetContents(ctx context.Context, owner, repo, path string, opts *github.RepositoryContentGetOptions) (*github.RepositoryContent, []*github.RepositoryContent, *github.Response, error) {
	if sha, ok := f.contents[path]; ok {
		return &github.RepositoryContent{SHA: github.String(sha)}, nil, ghResponse(200), nil
	}
	return nil, nil, ghResponse(404), errors.New("404 content not found")
}

func (f *fakeReposService) CreateFile(ctx context.Context, owner, repo, path string, opts *github.RepositoryContentFileOptions) (*github.RepositoryContentResponse, *github.Response, error) {
	f.createdFiles = append(f.createdFiles, path)
	return &github.RepositoryContentResponse{}, ghResponse(201), nil
}

func (f *fakeReposService) UpdateFile(ctx context.Context, owner, repo, path string, opts *github.RepositoryContentFileOptions) (*github.RepositoryContentResponse, *github.Response, error) {
	f.updatedFiles = append(f.updatedFiles, path)
	if opts.SHA != nil {
		f.updateSHA = *opts.SHA
	}
	return &github.RepositoryContentResponse{}, ghResponse(200), nil
}

func (f *fakeReposService) IsCollaborator(ctx context.Context, owner, repo, user string) (bool, *github.Response, error) {
	return true, ghResponse(204), nil
}

type fakeGitService struct {
	createRefErr    error
	createRefStatus int
	createdRefs     []string
	// onCreateRef runs before returning, letting tests simulate a
	// concurrent run winning the branch-creation race.
	onCreateRef func()
}

func (f *fakeGitService) GetRef(ctx context.Context, owner, repo, ref string) (*github.Reference, *github.Response, error) {
	return &github.Reference{Object: &github.GitObject{SHA: github.String("abc123")}}, ghResponse(200), nil
}

func (f *fakeGitService) CreateRef(ctx context.Context, owner, repo string, ref *github.Reference) (*github.Reference, *github.Response, error) {
	if f.onCreateRef != nil {
		f.onCreateRef()
	}
	if f.createRefErr != nil {
		status := f.createRefStatus
		if status == 0 {
			status = 422
		}
		return nil, ghResponse(status), f.createRefErr
	}
	f.createdRefs = append(f.createdRefs, ref.GetRef())
	return ref, ghResponse(201), nil
}

func newTestClient(repos *fakeReposService, git *fakeGitService) *Client {
	return &Client{
		Owner:        "acme",
		Repo:         "shop",
		Repositories: repos,
		Git:          git,
		Logger:       hclog.NewNullLogger(),
	}
}

func TestClientTransportCreatesFileWhenBranchExists(t *testing.T) {
	repos := &fakeReposService{
		branches:      map[string]bool{"attachments": true},
		defaultBranch: "main",
		contents:      map[string]string{},
	}
	git := &fakeGitService{}
	transport := &clientUploadTransport{client: newTestClient(repos, git), branch: "attachments"}

	require.NoError(t, transport.ensureBranch(context.Background()))
	assert.Empty(t, git.createdRefs, "existing branch is not recreated")

	require.NoError(t, transport.writeFile(context.Background(), "attachments/PROJ-1/pic.png", []byte("img"), "msg"))
	assert.Equal(t, []string{"attachments/PROJ-1/pic.png"}, repos.createdFiles)
	assert.Empty(t, repos.updatedFiles)
}

func TestClientTransportUpdatesExistingFileWithSHA(t *testing.T) {
	repos := &fakeReposService{
		branches:      map[string]bool{"attachments": true},
		defaultBranch: "main",
		contents:      map[string]string{"attachments/PROJ-1/pic.png": "oldsha"},
	}
	transport := &clientUploadTransport{client: newTestClient(repos, &fakeGitService{}), branch: "attachments"}

	require.NoError(t, transport.writeFile(context.Background(), "attachments/PROJ-1/pic.png", []byte("img2"), "msg"))
	assert.Equal(t, []string{"attachments/PROJ-1/pic.png"}, repos.updatedFiles)
	assert.Equal(t, "oldsha", repos.updateSHA, "existing SHA supplied as version token")
	assert.Empty(t, repos.createdFiles)
}

func TestClientTransportCreatesMissingBranch(t *testing.T) {
	repos := &fakeReposService{
		branches:      map[string]bool{},
		defaultBranch: "main",
	}
	git := &fakeGitService{}
	transport := &clientUploadTransport{client: newTestClient(repos, git), branch: "attachments"}

	require.NoError(t, transport.ensureBranch(context.Background()))
	assert.Equal(t, []string{"refs/heads/attachments"}, git.createdRefs)
}

func TestClientTransportBranchCreationRace(t *testing.T) {
	// The ref API answers 422 because another run created the branch
	// between the check and the create; the re-check must confirm and the
	// ensure must succeed.
	repos := &fakeReposService{
		branches:      map[string]bool{},
		defaultBranch: "main",
	}
	git := &fakeGitService{
		createRefErr:    errors.New("422 Reference already exists"),
		createRefStatus: 422,
	}
	git.onCreateRef = func() { repos.branches["attachments"] = true }
	transport := &clientUploadTransport{client: newTestClient(repos, git), branch: "attachments"}

	require.NoError(t, transport.ensureBranch(context.Background()), "conflict resolves to success after re-check")
}

func TestClientTransportBranchCheckHardError(t *testing.T) {
	repos := &fakeReposService{getBranchErr: errors.New("500 server error")}
	transport := &clientUploadTransport{client: newTestClient(repos, &fakeGitService{}), branch: "attachments"}

	assert.Error(t, transport.ensureBranch(context.Background()))
}
