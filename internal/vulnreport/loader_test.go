package vulnreport

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

// writeWorkbook writes a single-sheet xlsx file with the given rows.
func writeWorkbook(t *testing.T, rows [][]string) string {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}

	path := filepath.Join(t.TempDir(), "vulns.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestLoadReadsRecords(t *testing.T) {
	path := writeWorkbook(t, [][]string{
		{"ID", "Name", "CVSS Score", "Unique Instance List", "Description", "Recommendation", "Teams", "Finding Type"},
		{"VULN-001", "SQL Injection", "9.8", "login.py:45", "SQL injection vulnerability", "Use parameterized queries", "Backend Team", "Injection"},
		{"VULN-002", "Weak Cipher", "4.2", "tls.py:10", "", "Use TLS 1.2+", "Platform", "Crypto"},
	})

	records, err := Load(path)
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "VULN-001", records[0].ID)
	assert.Equal(t, "SQL Injection", records[0].Name)
	assert.Equal(t, "9.8", records[0].CVSSScore)
	assert.Equal(t, "login.py:45", records[0].UniqueInstanceList)
	assert.Equal(t, "Backend Team", records[0].Teams)
	assert.Equal(t, "Injection", records[0].FindingType)
	assert.Equal(t, "", records[1].Description)
}

func TestLoadTrimsHeaders(t *testing.T) {
	path := writeWorkbook(t, [][]string{
		{"  ID  ", " Name ", " CVSS Score"},
		{"VULN-003", "XSS", "6.1"},
	})

	records, err := Load(path)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "VULN-003", records[0].ID)
	assert.Equal(t, "XSS", records[0].Name)
	assert.Equal(t, "6.1", records[0].CVSSScore)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.xlsx"))
	assert.Error(t, err)
}

func TestMatchesInstance(t *testing.T) {
	tests := []struct {
		name     string
		record   Record
		target   string
		expected bool
	}{
		{
			name:     "exact substring",
			record:   Record{UniqueInstanceList: "brand_landscape_analyzer/api"},
			target:   "brand_landscape_analyzer",
			expected: true,
		},
		{
			name:     "case insensitive",
			record:   Record{UniqueInstanceList: "Brand_Landscape_Analyzer/api"},
			target:   "brand_landscape_analyzer",
			expected: true,
		},
		{
			name:     "no match",
			record:   Record{UniqueInstanceList: "other_service/api"},
			target:   "brand_landscape_analyzer",
			expected: false,
		},
		{
			name:     "empty instance list",
			record:   Record{},
			target:   "brand_landscape_analyzer",
			expected: false,
		},
		{
			name:     "empty target matches everything",
			record:   Record{UniqueInstanceList: "anything"},
			target:   "",
			expected: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.record.MatchesInstance(tt.target))
		})
	}
}

func TestFilter(t *testing.T) {
	records := []Record{
		{ID: "A", UniqueInstanceList: "brand_landscape_analyzer/web"},
		{ID: "B", UniqueInstanceList: "other/web"},
		{ID: "C", UniqueInstanceList: "api, BRAND_LANDSCAPE_ANALYZER"},
	}

	matched := Filter(records, "brand_landscape_analyzer")
	require.Len(t, matched, 2)
	assert.Equal(t, "A", matched[0].ID)
	assert.Equal(t, "C", matched[1].ID)
}
