package uploadattachments

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/scan-io-git/issue-bridge/internal/bridge"
	"github.com/scan-io-git/issue-bridge/pkg/shared/config"
	"github.com/scan-io-git/issue-bridge/pkg/shared/errors"
	"github.com/scan-io-git/issue-bridge/pkg/shared/files"
	"github.com/scan-io-git/issue-bridge/pkg/shared/httpclient"
	"github.com/scan-io-git/issue-bridge/pkg/shared/logger"
)

// RunOptions holds flags for the upload-attachments command.
type RunOptions struct {
	IssueNumber int    `json:"issue_number,omitempty"`
	Dir         string `json:"dir,omitempty"`
	Branch      string `json:"branch,omitempty"`
}

var (
	AppConfig *config.Config
	opts      RunOptions

	exampleUploadUsage = `  # Upload every file from the attachments directory against issue #42
  JIRA_ISSUE_KEY=PROJ-42 issue-bridge upload-attachments --issue 42

  # Upload specific files onto a custom branch
  JIRA_ISSUE_KEY=PROJ-42 issue-bridge upload-attachments --issue 42 --branch evidence logs/crash.log screenshot.png`

	// UploadAttachmentsCmd uploads local files to the attachments branch and
	// embeds them into an existing issue via comments.
	UploadAttachmentsCmd = &cobra.Command{
		Use:                   "upload-attachments [files...] [--issue N] [--dir path] [--branch name]",
		Short:                 "Upload local attachments and embed them into an existing GitHub issue",
		Example:               exampleUploadUsage,
		SilenceUsage:          true,
		DisableFlagsInUseLine: true,
		RunE:                  runUploadAttachments,
	}
)

// Init wires config into this command.
func Init(cfg *config.Config) { AppConfig = cfg }

func runUploadAttachments(cmd *cobra.Command, args []string) error {
	lg := logger.NewLogger(AppConfig, "upload-attachments")
	config.LoadEnvFile()

	if err := resolveOptions(&opts); err != nil {
		return errors.NewCommandError(opts, fmt.Errorf("invalid arguments: %w", err), 1)
	}

	ticketKey := strings.TrimSpace(os.Getenv("JIRA_ISSUE_KEY"))
	if ticketKey == "" {
		return errors.NewCommandError(opts, fmt.Errorf("JIRA_ISSUE_KEY environment variable not set"), 1)
	}

	creds, err := config.LoadCredentials()
	if err != nil {
		return errors.NewCommandError(opts, err, 1)
	}

	paths := args
	if len(paths) == 0 {
		paths = files.ListRegularFiles(opts.Dir)
	}
	if len(paths) == 0 {
		lg.Warn("no attachments found, nothing to upload", "dir", opts.Dir)
		return nil
	}

	ctx := context.Background()
	client := bridge.NewClient(creds, config.SetThen(AppConfig.HttpClient.Timeout, config.DefaultHttpConfig().Timeout), lg)
	if err := client.CheckConnection(ctx); err != nil {
		lg.Error("failed to connect to repository", "repository", creds.Owner+"/"+creds.Repo, "error", err)
		return errors.NewCommandError(opts, fmt.Errorf("failed to connect to repository: %w", err), 1)
	}

	handle := &bridge.IssueHandle{Owner: creds.Owner, Repo: creds.Repo, Number: opts.IssueNumber}

	restyClient := httpclient.InitializeRestyClient(lg, AppConfig)
	restClient := bridge.NewRestClient(restyClient, creds, opts.Branch, lg)
	uploader := bridge.NewUploader(client, restClient, opts.Branch, lg)

	outcomes := uploader.UploadAll(ctx, handle, ticketKey, paths)
	uploaded := 0
	for i, outcome := range outcomes {
		if outcome.Uploaded {
			uploaded++
			lg.Info("attachment uploaded", "path", paths[i], "url", outcome.RawURL)
		} else {
			lg.Error("attachment upload failed", "path", paths[i], "reason", outcome.Reason)
		}
	}

	fmt.Printf("\nUploaded %d of %d attachments to %s\n", uploaded, len(paths), handle)
	if uploaded == 0 {
		return errors.NewCommandError(opts, fmt.Errorf("no attachments could be uploaded"), 1)
	}
	return nil
}

// resolveOptions fills unset flags from the environment and config defaults.
// The issue number must resolve to a positive value from either source.
func resolveOptions(options *RunOptions) error {
	if options.IssueNumber == 0 {
		raw := strings.TrimSpace(os.Getenv("ISSUE_NUMBER"))
		if raw == "" {
			return fmt.Errorf("issue number is required, pass --issue or set ISSUE_NUMBER")
		}
		number, err := strconv.Atoi(raw)
		if err != nil {
			return fmt.Errorf("invalid ISSUE_NUMBER %q: %w", raw, err)
		}
		options.IssueNumber = number
	}
	if options.IssueNumber <= 0 {
		return fmt.Errorf("issue number must be positive, got %d", options.IssueNumber)
	}

	if options.Dir == "" {
		options.Dir = config.SetThen(os.Getenv("ATTACHMENTS_DIR"), AppConfig.Bridge.AttachmentsDir)
	}
	if options.Branch == "" {
		options.Branch = config.SetThen(os.Getenv("ATTACHMENTS_BRANCH"), AppConfig.Bridge.AttachmentsBranch)
	}
	return nil
}

func init() {
	UploadAttachmentsCmd.Flags().IntVar(&opts.IssueNumber, "issue", 0, "Number of the existing issue to attach files to (defaults to ISSUE_NUMBER)")
	UploadAttachmentsCmd.Flags().StringVar(&opts.Dir, "dir", "", "Directory scanned for attachments when no files are given")
	UploadAttachmentsCmd.Flags().StringVar(&opts.Branch, "branch", "", "Branch that stores uploaded attachments")
	UploadAttachmentsCmd.Flags().BoolP("help", "h", false, "Show help for upload-attachments command.")
}
