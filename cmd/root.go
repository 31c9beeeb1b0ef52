package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/scan-io-git/issue-bridge/cmd/create"
	uploadattachments "github.com/scan-io-git/issue-bridge/cmd/upload-attachments"
	"github.com/scan-io-git/issue-bridge/cmd/version"
	"github.com/scan-io-git/issue-bridge/pkg/shared/config"
	"github.com/scan-io-git/issue-bridge/pkg/shared/errors"
)

var (
	cfgFile   string
	AppConfig *config.Config
	rootCmd   = &cobra.Command{
		Use:                   "issue-bridge [command]",
		SilenceUsage:          true,
		DisableFlagsInUseLine: true,
		Short:                 "Issue-bridge turns vulnerability scan rows and Jira tickets into GitHub issues.",
		Long: `Issue-bridge converts vulnerability scan spreadsheets and Jira ticket metadata
	into GitHub issues, mirroring local attachments onto a shared repository branch
	so they can be embedded in issue comments.
	`,
	}
)

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is config.yml)")
	rootCmd.AddCommand(create.CreateCmd)
	rootCmd.AddCommand(uploadattachments.UploadAttachmentsCmd)
	rootCmd.AddCommand(version.NewVersionCmd())
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return errors.ExitCodeOf(err)
	}
	return 0
}

func initConfig() {
	var err error

	if cfgFile == "" {
		cfgFile = "config.yml"
	}
	AppConfig, err = config.LoadConfig(cfgFile)
	if err != nil {
		fmt.Printf("failed to initialize config file - %v\n", err)
		os.Exit(1)
	}

	create.Init(AppConfig)
	uploadattachments.Init(AppConfig)
}
