package create

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/scan-io-git/issue-bridge/internal/bridge"
	"github.com/scan-io-git/issue-bridge/internal/labels"
	"github.com/scan-io-git/issue-bridge/internal/render"
	"github.com/scan-io-git/issue-bridge/internal/vulnreport"
	"github.com/scan-io-git/issue-bridge/pkg/shared/config"
	"github.com/scan-io-git/issue-bridge/pkg/shared/errors"
	"github.com/scan-io-git/issue-bridge/pkg/shared/files"
	"github.com/scan-io-git/issue-bridge/pkg/shared/httpclient"
)

// runSpreadsheetFlow iterates workbook rows, filters them by the target
// instance and publishes one issue per retained row. Per-row publish
// failures are logged and do not abort the remaining rows.
func runSpreadsheetFlow(options RunOptions, cfg *config.Config, lg hclog.Logger) error {
	inputPath, err := files.ExpandPath(options.InputFile)
	if err != nil {
		return errors.NewCommandError(options, fmt.Errorf("failed to resolve input path: %w", err), 1)
	}
	if err := files.ValidatePath(inputPath); err != nil {
		return errors.NewCommandError(options, fmt.Errorf("invalid input file: %w", err), 1)
	}

	records, err := vulnreport.Load(inputPath)
	if err != nil {
		lg.Error("failed to load workbook", "path", inputPath, "error", err)
		return errors.NewCommandError(options, fmt.Errorf("failed to load workbook: %w", err), 1)
	}

	target := config.TargetInstance(cfg)
	matched := vulnreport.Filter(records, target)
	lg.Info("workbook loaded", "rows", len(records), "matched", len(matched), "target_instance", target)

	if options.DryRun {
		printSpreadsheetDryRun(matched)
		return nil
	}

	creds, err := config.LoadCredentials()
	if err != nil {
		return errors.NewCommandError(options, err, 1)
	}

	ctx := context.Background()
	client := bridge.NewClient(creds, httpTimeout(cfg), lg)
	if err := client.CheckConnection(ctx); err != nil {
		lg.Error("failed to connect to repository", "repository", creds.Owner+"/"+creds.Repo, "error", err)
		return errors.NewCommandError(options, fmt.Errorf("failed to connect to repository: %w", err), 1)
	}
	fmt.Printf("Connected to repository: %s/%s\n", creds.Owner, creds.Repo)

	assignees := client.ValidateAssignees(ctx, config.SplitList(os.Getenv("ASSIGNEES")))
	publisher := bridge.NewPublisher(client, bridge.NewCLITransport(lg), lg)

	created := 0
	for i, record := range matched {
		lg.Info("processing vulnerability", "index", i+1, "total", len(matched), "id", record.ID, "name", record.Name)

		body, err := render.VulnerabilityBody(cfg.Bridge.TemplateDir, vulnFields(record))
		if err != nil {
			lg.Error("failed to render issue body, skipping row", "id", record.ID, "error", err)
			continue
		}

		result := publisher.Publish(ctx, bridge.PublishRequest{
			Title:     vulnTitle(record),
			Body:      body,
			Assignees: assignees,
			Labels:    labels.Build(record.CVSSScore, options.Labels),
		})
		if result.Created {
			created++
		} else {
			lg.Error("failed to create issue", "id", record.ID, "reason", result.Reason)
		}
	}

	fmt.Printf("\nSuccessfully created %d issues out of %d matched vulnerabilities\n", created, len(matched))
	return nil
}

// runTicketFlow creates one issue from Jira environment variables and then
// uploads any discovered local attachments against the resulting handle.
func runTicketFlow(options RunOptions, cfg *config.Config, lg hclog.Logger) error {
	ticket, err := config.LoadTicketConfig()
	if err != nil {
		return errors.NewCommandError(options, err, 1)
	}

	title := ticketTitle(ticket)

	if options.DryRun || ticket.DryRun {
		printTicketDryRun(ticket, title)
		return nil
	}

	creds, err := config.LoadCredentials()
	if err != nil {
		return errors.NewCommandError(options, err, 1)
	}

	ctx := context.Background()
	client := bridge.NewClient(creds, httpTimeout(cfg), lg)
	if err := client.CheckConnection(ctx); err != nil {
		lg.Error("failed to connect to repository", "repository", creds.Owner+"/"+creds.Repo, "error", err)
		return errors.NewCommandError(options, fmt.Errorf("failed to connect to repository: %w", err), 1)
	}

	body, err := render.TicketBody(cfg.Bridge.TemplateDir, ticketFields(ticket))
	if err != nil {
		return errors.NewCommandError(options, fmt.Errorf("failed to render issue body: %w", err), 1)
	}

	assignees := client.ValidateAssignees(ctx, ticket.Assignees)
	publisher := bridge.NewPublisher(client, bridge.NewCLITransport(lg), lg)

	result := publisher.Publish(ctx, bridge.PublishRequest{
		Title:     title,
		Body:      body,
		Assignees: assignees,
		Labels:    append([]string{"jira-issue"}, options.Labels...),
	})
	if !result.Created {
		lg.Error("failed to create issue", "ticket", ticket.Key, "reason", result.Reason)
		return errors.NewCommandError(options, fmt.Errorf("failed to create issue for %s: %s", ticket.Key, result.Reason), 1)
	}
	fmt.Printf("\nSuccessfully created issue for %s\n", ticket.Key)

	attachments := discoverAttachments(ticket, attachmentsDir(cfg))
	if len(attachments) == 0 {
		return nil
	}
	if result.Handle == nil {
		lg.Warn("no issue handle available, skipping attachment upload", "count", len(attachments))
		return nil
	}

	restyClient := httpclient.InitializeRestyClient(lg, cfg)
	restClient := bridge.NewRestClient(restyClient, creds, attachmentsBranch(cfg), lg)
	uploader := bridge.NewUploader(client, restClient, attachmentsBranch(cfg), lg)

	outcomes := uploader.UploadAll(ctx, result.Handle, ticket.Key, attachments)
	for i, outcome := range outcomes {
		if outcome.Uploaded {
			lg.Info("attachment uploaded", "path", attachments[i], "url", outcome.RawURL)
		} else {
			lg.Error("attachment upload failed", "path", attachments[i], "reason", outcome.Reason)
		}
	}
	return nil
}

// vulnTitle builds the issue title for a spreadsheet row.
func vulnTitle(record vulnreport.Record) string {
	name := record.Name
	if name == "" {
		name = "Vulnerability"
	}
	id := record.ID
	if id == "" {
		id = "Unknown ID"
	}
	return fmt.Sprintf("[Security] %s - %s", name, id)
}

// ticketTitle builds the issue title for a ticket run. An empty summary
// falls back to a key-only form instead of failing.
func ticketTitle(ticket *config.TicketConfig) string {
	if ticket.Summary == "" {
		return fmt.Sprintf("[Security] %s", ticket.Key)
	}
	return fmt.Sprintf("[Security] %s - %s", ticket.Summary, ticket.Key)
}

// vulnFields maps a record onto sanitized template fields.
func vulnFields(record vulnreport.Record) map[string]string {
	return map[string]string{
		"scan_type":           render.Sanitize(record.ScanType),
		"vuln_id":             render.Sanitize(record.ID),
		"name":                render.Sanitize(record.Name),
		"cvss_score":          render.Sanitize(record.CVSSScore),
		"severity":            labels.DisplaySeverity(record.CVSSScore),
		"total_count":         render.Sanitize(record.TotalCount),
		"finding_type":        render.Sanitize(record.FindingType),
		"compliance":          render.Sanitize(record.ComplianceFrameworks),
		"teams_impacted":      render.Sanitize(record.Teams),
		"unique_instances":    render.Sanitize(record.UniqueInstanceList),
		"description":         render.Sanitize(record.Description),
		"recommendation":      render.Sanitize(record.Recommendation),
		"exploit_available":   render.Sanitize(record.ExploitAvailable),
		"exploit_rating":      render.Sanitize(record.ExploitRating),
		"exploit_consequence": render.Sanitize(record.ExploitConsequence),
	}
}

// ticketFields maps ticket metadata onto sanitized template fields.
func ticketFields(ticket *config.TicketConfig) map[string]string {
	return map[string]string{
		"jira_issue_key":   render.Sanitize(ticket.Key),
		"jira_summary":     render.Sanitize(ticket.Summary),
		"jira_description": render.Sanitize(ticket.Description),
	}
}

// discoverAttachments returns the local attachment paths for a ticket run:
// the explicit hint list when present, otherwise every regular file in the
// attachments directory. Order is preserved as discovered.
func discoverAttachments(ticket *config.TicketConfig, dir string) []string {
	if len(ticket.AttachmentHints) > 0 {
		paths := make([]string, 0, len(ticket.AttachmentHints))
		for _, hint := range ticket.AttachmentHints {
			paths = append(paths, filepath.Join(dir, hint.Filename))
		}
		return paths
	}
	return files.ListRegularFiles(dir)
}

// attachmentsDir resolves the local attachments directory, environment first.
func attachmentsDir(cfg *config.Config) string {
	if dir := os.Getenv("ATTACHMENTS_DIR"); dir != "" {
		return dir
	}
	return cfg.Bridge.AttachmentsDir
}

// attachmentsBranch resolves the shared branch name, environment first.
func attachmentsBranch(cfg *config.Config) string {
	if branch := os.Getenv("ATTACHMENTS_BRANCH"); branch != "" {
		return branch
	}
	return cfg.Bridge.AttachmentsBranch
}

// httpTimeout resolves the HTTP timeout from config with the shared default.
func httpTimeout(cfg *config.Config) time.Duration {
	return config.SetThen(cfg.HttpClient.Timeout, config.DefaultHttpConfig().Timeout)
}

func printSpreadsheetDryRun(matched []vulnreport.Record) {
	fmt.Println("\n=== DRY RUN MODE ===")
	fmt.Printf("Would create %d issues:\n", len(matched))
	for _, record := range matched {
		fmt.Printf("  - %s\n", vulnTitle(record))
		fmt.Printf("    CVSS Score: %s\n", render.Sanitize(record.CVSSScore))
		fmt.Printf("    Severity: %s\n", labels.DisplaySeverity(record.CVSSScore))
		fmt.Printf("    Finding Type: %s\n\n", render.Sanitize(record.FindingType))
	}
}

func printTicketDryRun(ticket *config.TicketConfig, title string) {
	fmt.Println("\n=== DRY RUN MODE ===")
	fmt.Println("Would create issue:")
	fmt.Printf("  Title: %s\n", title)
	fmt.Printf("  Jira Key: %s\n", ticket.Key)
	fmt.Printf("  Summary: %s\n", render.Sanitize(ticket.Summary))
}
