package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// TicketConfig carries the Jira ticket metadata that drives a single
// ticket-based issue creation run. All values come from the environment.
type TicketConfig struct {
	Key             string
	Summary         string
	Description     string
	AttachmentHints []AttachmentHint
	DryRun          bool
	Assignees       []string
}

// AttachmentHint names one expected local attachment, optionally with
// free-form metadata after a colon ("screenshot.png:ui").
type AttachmentHint struct {
	Filename string
	Metadata string
}

// Credentials holds the token and target repository for the GitHub API.
type Credentials struct {
	Token string
	Owner string
	Repo  string
}

// LoadEnvFile loads a .env file when present. Missing files are fine; real
// environment variables always win.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadTicketConfig reads the ticket metadata from environment variables.
// JIRA_ISSUE_KEY is the only required value; the summary became optional
// once key-only titles were supported.
func LoadTicketConfig() (*TicketConfig, error) {
	key := strings.TrimSpace(os.Getenv("JIRA_ISSUE_KEY"))
	if key == "" {
		return nil, fmt.Errorf("JIRA_ISSUE_KEY environment variable not set")
	}

	cfg := &TicketConfig{
		Key:         key,
		Summary:     strings.TrimSpace(os.Getenv("JIRA_SUMMARY")),
		Description: strings.TrimSpace(os.Getenv("JIRA_DESCRIPTION")),
		DryRun:      strings.EqualFold(os.Getenv("DRY_RUN"), "true"),
		Assignees:   SplitList(os.Getenv("ASSIGNEES")),
	}

	for _, raw := range SplitList(os.Getenv("JIRA_ATTACHMENTS")) {
		name, meta, _ := strings.Cut(raw, ":")
		if name = strings.TrimSpace(name); name == "" {
			continue
		}
		cfg.AttachmentHints = append(cfg.AttachmentHints, AttachmentHint{
			Filename: name,
			Metadata: strings.TrimSpace(meta),
		})
	}

	return cfg, nil
}

// LoadCredentials reads the GitHub token and target repository from the
// environment. Both are required before any network call is made.
func LoadCredentials() (*Credentials, error) {
	token := strings.TrimSpace(os.Getenv("GH_PAT_AGENT"))
	if token == "" {
		return nil, fmt.Errorf("GH_PAT_AGENT environment variable not set")
	}

	repository := strings.TrimSpace(os.Getenv("GITHUB_REPOSITORY"))
	if repository == "" {
		return nil, fmt.Errorf("GITHUB_REPOSITORY environment variable not set")
	}

	owner, repo, err := SplitRepository(repository)
	if err != nil {
		return nil, err
	}

	return &Credentials{Token: token, Owner: owner, Repo: repo}, nil
}

// SplitRepository splits an "owner/repo" identifier into its parts.
func SplitRepository(repository string) (string, string, error) {
	owner, repo, ok := strings.Cut(repository, "/")
	if !ok || owner == "" || repo == "" {
		return "", "", fmt.Errorf("invalid repository identifier %q, expected owner/repo", repository)
	}
	return owner, repo, nil
}

// SplitList splits a comma-separated value into trimmed non-empty entries.
func SplitList(value string) []string {
	var parts []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			parts = append(parts, part)
		}
	}
	return parts
}

// TargetInstance returns the configured target-instance filter, preferring
// the TARGET_INSTANCE environment variable over the YAML setting.
func TargetInstance(cfg *Config) string {
	if v := strings.TrimSpace(os.Getenv("TARGET_INSTANCE")); v != "" {
		return strings.ToLower(v)
	}
	if cfg != nil && cfg.Bridge.TargetInstance != "" {
		return strings.ToLower(cfg.Bridge.TargetInstance)
	}
	return DefaultTargetInstance
}
