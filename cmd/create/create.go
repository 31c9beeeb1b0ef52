package create

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/scan-io-git/issue-bridge/pkg/shared/config"
	"github.com/scan-io-git/issue-bridge/pkg/shared/errors"
	"github.com/scan-io-git/issue-bridge/pkg/shared/logger"
)

// defaultInputFile is the workbook name used when no positional argument is given.
const defaultInputFile = "vulnerabilities-issues.xlsx"

// RunOptions holds flags for the create command.
type RunOptions struct {
	InputFile string   `json:"input_file,omitempty"`
	DryRun    bool     `json:"dry_run,omitempty"`
	Labels    []string `json:"labels,omitempty"`
	FromJira  bool     `json:"from_jira,omitempty"`
}

var (
	AppConfig *config.Config
	opts      RunOptions

	exampleCreateUsage = `  # Create issues from the default vulnerability workbook
  issue-bridge create

  # Create issues from a specific workbook with extra labels
  issue-bridge create scan-results.xlsx --labels team:backend,quarterly

  # Preview without creating anything
  issue-bridge create scan-results.xlsx --dry-run

  # Create a single issue from Jira environment variables
  JIRA_ISSUE_KEY=PROJ-42 JIRA_SUMMARY='Login broken' issue-bridge create --from-jira`

	// CreateCmd represents the command to create GitHub issues from scan data or a Jira ticket.
	CreateCmd = &cobra.Command{
		Use:                   "create [input-file] [--dry-run] [--labels label[,label...]] [--from-jira]",
		Short:                 "Create GitHub issues from a vulnerability workbook or Jira inputs",
		Example:               exampleCreateUsage,
		SilenceUsage:          true,
		DisableFlagsInUseLine: true,
		Args:                  cobra.MaximumNArgs(1),
		RunE:                  runCreate,
	}
)

// Init wires config into this command.
func Init(cfg *config.Config) { AppConfig = cfg }

func runCreate(cmd *cobra.Command, args []string) error {
	opts.InputFile = defaultInputFile
	if len(args) > 0 {
		opts.InputFile = args[0]
	}

	if err := validate(&opts); err != nil {
		return errors.NewCommandError(opts, fmt.Errorf("invalid arguments: %w", err), 1)
	}

	lg := logger.NewLogger(AppConfig, "create")
	config.LoadEnvFile()

	if opts.FromJira {
		return runTicketFlow(opts, AppConfig, lg)
	}
	return runSpreadsheetFlow(opts, AppConfig, lg)
}

func init() {
	CreateCmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "Print issues without creating them")
	CreateCmd.Flags().StringSliceVar(&opts.Labels, "labels", nil, "Additional labels to add to issues (repeat flag or use comma-separated values)")
	CreateCmd.Flags().BoolVar(&opts.FromJira, "from-jira", false, "Create issue from Jira environment variables instead of a workbook")
	CreateCmd.Flags().BoolP("help", "h", false, "Show help for create command.")
}
