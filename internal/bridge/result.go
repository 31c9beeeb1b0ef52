package bridge

import "fmt"

// IssueHandle identifies a created issue well enough to comment on it. It is
// the normalized shape for both origins: an issue object returned by the
// structured client, or a numeric ID recovered from CLI output.
type IssueHandle struct {
	Owner  string
	Repo   string
	Number int
}

func (h IssueHandle) String() string {
	return fmt.Sprintf("%s/%s#%d", h.Owner, h.Repo, h.Number)
}

// PublishResult is the normalized outcome of an issue creation attempt.
// Created without a Handle means the transport succeeded but could not
// correlate the new issue to a numeric ID (the CLI path).
type PublishResult struct {
	Created bool
	Handle  *IssueHandle
	Output  string
	Reason  string
}

// publishFailed builds a failed PublishResult with a formatted reason.
func publishFailed(format string, args ...interface{}) PublishResult {
	return PublishResult{Reason: fmt.Sprintf(format, args...)}
}

// UploadOutcome is the tagged result of one attachment upload. Exactly one
// of RawURL or Reason is meaningful, keyed by Uploaded.
type UploadOutcome struct {
	Uploaded bool
	RawURL   string
	Reason   string
}

// uploadFailed builds a failed UploadOutcome with a formatted reason.
func uploadFailed(format string, args ...interface{}) UploadOutcome {
	return UploadOutcome{Reason: fmt.Sprintf(format, args...)}
}
