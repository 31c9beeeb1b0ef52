package vulnreport

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Load reads vulnerability records from the first sheet of an xlsx workbook.
// The first row is treated as the header; header names are trimmed before
// matching. Cells under unknown headers are ignored, missing cells load as
// empty strings.
func Load(path string) ([]Record, error) {
	workbook, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook %q: %w", path, err)
	}
	defer workbook.Close()

	sheets := workbook.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook %q has no sheets", path)
	}

	rows, err := workbook.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	headers := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		headers[i] = strings.TrimSpace(h)
	}

	records := make([]Record, 0, len(rows)-1)
	for _, row := range rows[1:] {
		records = append(records, recordFromRow(headers, row))
	}
	return records, nil
}

// recordFromRow maps one data row onto a Record using the header positions.
func recordFromRow(headers []string, row []string) Record {
	var record Record
	for i, header := range headers {
		value := ""
		if i < len(row) {
			value = strings.TrimSpace(row[i])
		}

		switch header {
		case colScanType:
			record.ScanType = value
		case colID:
			record.ID = value
		case colName:
			record.Name = value
		case colDescription:
			record.Description = value
		case colRecommendation:
			record.Recommendation = value
		case colCVSSScore:
			record.CVSSScore = value
		case colTotalCount:
			record.TotalCount = value
		case colInstanceList:
			record.UniqueInstanceList = value
		case colTeams:
			record.Teams = value
		case colFindingType:
			record.FindingType = value
		case colCompliance:
			record.ComplianceFrameworks = value
		case colExploitAvail:
			record.ExploitAvailable = value
		case colExploitRating:
			record.ExploitRating = value
		case colExploitConseq:
			record.ExploitConsequence = value
		}
	}
	return record
}
