package vulnreport

import "strings"

// Record is one row of vulnerability scan data. Values are kept as raw
// strings; parsing (e.g. of the CVSS score) happens at the point of use so
// a malformed cell never fails the load.
type Record struct {
	ScanType             string
	ID                   string
	Name                 string
	Description          string
	Recommendation       string
	CVSSScore            string
	TotalCount           string
	UniqueInstanceList   string
	Teams                string
	FindingType          string
	ComplianceFrameworks string
	ExploitAvailable     string
	ExploitRating        string
	ExploitConsequence   string
}

// column headers consumed from the input sheet, after trimming
const (
	colScanType       = "Scan Type"
	colID             = "ID"
	colName           = "Name"
	colDescription    = "Description"
	colRecommendation = "Recommendation"
	colCVSSScore      = "CVSS Score"
	colTotalCount     = "Total Count"
	colInstanceList   = "Unique Instance List"
	colTeams          = "Teams"
	colFindingType    = "Finding Type"
	colCompliance     = "Compliance Framework(s)"
	colExploitAvail   = "Exploit Available"
	colExploitRating  = "Exploit Rating"
	colExploitConseq  = "Exploit Consequence"
)

// MatchesInstance reports whether the record's instance list contains the
// target instance as a case-insensitive substring.
func (r Record) MatchesInstance(target string) bool {
	if target == "" {
		return true
	}
	return strings.Contains(strings.ToLower(r.UniqueInstanceList), strings.ToLower(target))
}

// Filter returns the records whose instance list matches the target instance.
func Filter(records []Record, target string) []Record {
	var matched []Record
	for _, record := range records {
		if record.MatchesInstance(target) {
			matched = append(matched, record)
		}
	}
	return matched
}
