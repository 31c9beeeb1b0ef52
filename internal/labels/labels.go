package labels

import (
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// VulnerabilityLabel marks every issue created from scan data.
const VulnerabilityLabel = "vulnerability"

// severity bucket thresholds, inclusive lower bounds
const (
	criticalThreshold = 9.0
	highThreshold     = 7.0
	mediumThreshold   = 4.0
)

// ParseScore converts a raw CVSS score value to a float. Absent, sentinel,
// or unparsable values are treated as 0.0, never as an error.
func ParseScore(raw string) float64 {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.EqualFold(raw, "N/A") {
		return 0.0
	}
	score, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0.0
	}
	return score
}

// SeverityBucket maps a CVSS score to its coarse severity bucket.
func SeverityBucket(score float64) string {
	switch {
	case score >= criticalThreshold:
		return "critical"
	case score >= highThreshold:
		return "high"
	case score >= mediumThreshold:
		return "medium"
	default:
		return "low"
	}
}

// SeverityLabel returns the severity label for a raw score value.
func SeverityLabel(raw string) string {
	return "severity:" + SeverityBucket(ParseScore(raw))
}

// DisplaySeverity returns a title-cased severity bucket for human output.
func DisplaySeverity(raw string) string {
	return cases.Title(language.Und).String(SeverityBucket(ParseScore(raw)))
}

// Build composes the label set for one issue: caller-supplied extras in
// their given order, then the fixed vulnerability marker, then the severity
// label derived from the raw score. Empty entries are dropped and duplicates
// are removed preserving first occurrence.
func Build(rawScore string, extras []string) []string {
	combined := make([]string, 0, len(extras)+2)
	combined = append(combined, extras...)
	combined = append(combined, VulnerabilityLabel, SeverityLabel(rawScore))

	seen := make(map[string]struct{}, len(combined))
	deduped := make([]string, 0, len(combined))
	for _, label := range combined {
		if label == "" {
			continue
		}
		if _, ok := seen[label]; ok {
			continue
		}
		seen[label] = struct{}{}
		deduped = append(deduped, label)
	}
	return deduped
}
