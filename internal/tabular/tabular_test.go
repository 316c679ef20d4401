// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package tabular

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/oscal-engine/pkg/types"
)

func poamMapping() types.ColumnMapping {
	return types.ColumnMapping{
		IDField: "poam_id",
		Fields: map[string]types.ColumnSpec{
			"poam_id": {
				Synonyms: []string{"POA&M ID", "POAM ID", "Item ID"},
				Required: true,
				Type:     types.FieldString,
			},
			"weakness_name": {
				Synonyms: []string{"Weakness Name", "Weakness"},
				Required: true,
				Type:     types.FieldString,
			},
			"severity": {
				Synonyms: []string{"Severity", "Risk Rating"},
				Type:     types.FieldSeverity,
			},
			"status": {
				Synonyms: []string{"Status"},
				Type:     types.FieldStatus,
			},
			"scheduled_completion": {
				Synonyms: []string{"Scheduled Completion Date"},
				Type:     types.FieldDate,
			},
			"control_ids": {
				Synonyms: []string{"Controls", "Related Controls"},
				Type:     types.FieldList,
			},
			"asset_id": {
				Synonyms: []string{"Asset Identifier"},
				Type:     types.FieldIdentifier,
			},
			"milestone_description": {
				Synonyms: []string{"Milestone"},
				Type:     types.FieldString,
			},
			"milestone_date": {
				Synonyms: []string{"Milestone Date"},
				Type:     types.FieldDate,
			},
		},
	}
}

func poamGrid(rows ...[]string) types.Grid {
	return types.Grid{
		ArtifactPath: "poam.xlsx",
		Sheet:        "POA&M Items",
		Headers: []string{
			"POA&M ID", "Weakness Name", "Severity", "Status",
			"Scheduled Completion Date", "Related Controls",
			"Asset Identifier", "Milestone", "Milestone Date", "Notes",
		},
		Rows: rows,
	}
}

func TestExtractRow(t *testing.T) {
	e, err := New(types.TabularPOAM, poamMapping())
	require.NoError(t, err)

	grid := poamGrid([]string{
		"V-001", "Unpatched kernel", "MED", "In Progress",
		"03/15/2026", "AC-2, AC-6; SI-2", "Web Server 01",
		"Apply vendor patch", "2026-02-01", "tracked in Jira",
	})

	records, diags := e.Extract(grid)
	require.Len(t, records, 1)
	assert.Empty(t, diags)

	rec := records[0]
	assert.Equal(t, "V-001", rec.RecordID)
	assert.Equal(t, types.TabularPOAM, rec.Kind)

	assert.Equal(t, "Moderate", rec.Field("severity"))
	assert.Equal(t, "Ongoing", rec.Field("status"))
	assert.Equal(t, "2026-03-15", rec.Field("scheduled_completion"))
	assert.Equal(t, "web-server-01", rec.Field("asset_id"))

	require.Len(t, rec.Lists["control_ids"], 3)
	assert.Equal(t, "AC-2", rec.Lists["control_ids"][0].Value)
	assert.Equal(t, "SI-2", rec.Lists["control_ids"][2].Value)

	require.Len(t, rec.Milestones, 1)
	assert.Equal(t, "Apply vendor patch", rec.Milestones[0].Description.Value)
	assert.Equal(t, "2026-02-01", rec.Milestones[0].ScheduledDate.Value)

	require.Contains(t, rec.Extra, "Notes")
	assert.Equal(t, "tracked in Jira", rec.Extra["Notes"].Value)

	assert.ElementsMatch(t, []string{"poam_id", "weakness_name"}, rec.RequiredPresent)
}

func TestExtractCellProvenance(t *testing.T) {
	e, err := New(types.TabularPOAM, poamMapping())
	require.NoError(t, err)

	grid := poamGrid(
		[]string{"V-001", "First", "Low", "", "", "", "", "", "", ""},
		[]string{"V-002", "Second", "High", "", "", "", "", "", "", ""},
	)

	records, _ := e.Extract(grid)
	require.Len(t, records, 2)

	sev := records[1].Fields["severity"]
	assert.Equal(t, types.LocatorCell, sev.Origin.Kind)
	assert.Equal(t, "poam.xlsx", sev.Origin.ArtifactPath)
	assert.Equal(t, "POA&M Items", sev.Origin.Sheet)
	assert.Equal(t, 3, sev.Origin.Row, "header is row 1, second body row is row 3")
	assert.Equal(t, "Severity", sev.Origin.Column)
}

func TestExtractCoercionFailureRetainsOriginal(t *testing.T) {
	e, err := New(types.TabularPOAM, poamMapping())
	require.NoError(t, err)

	grid := poamGrid([]string{
		"V-001", "Weak", "sometime soonish", "TBD",
		"next quarter", "", "", "", "", "",
	})

	records, diags := e.Extract(grid)
	require.Len(t, records, 1)
	rec := records[0]

	sev := rec.Fields["severity"]
	assert.True(t, sev.CoercionFailed)
	assert.Equal(t, "sometime soonish", sev.Value)

	assert.True(t, rec.Fields["status"].CoercionFailed)
	assert.True(t, rec.Fields["scheduled_completion"].CoercionFailed)

	require.Equal(t, 3, diags.Count(types.SeverityWarning))
	for _, d := range diags {
		assert.Equal(t, types.CodeTypeCoercionFailure, d.Code)
		require.NotNil(t, d.Pointer)
		assert.Equal(t, 2, d.Pointer.Row)
	}
}

func TestExtractColumnConflictKeepsFirst(t *testing.T) {
	e, err := New(types.TabularPOAM, poamMapping())
	require.NoError(t, err)

	grid := types.Grid{
		ArtifactPath: "poam.xlsx",
		Sheet:        "Items",
		Headers:      []string{"POA&M ID", "Weakness Name", "Severity", "Risk Rating"},
		Rows:         [][]string{{"V-001", "Weak", "Low", "High"}},
	}

	records, diags := e.Extract(grid)
	require.Len(t, records, 1)

	assert.Equal(t, "Low", records[0].Field("severity"), "first matching column wins")

	require.Equal(t, 1, diags.Count(types.SeverityWarning))
	assert.Equal(t, types.CodeColumnMappingConflict, diags[0].Code)
	assert.Contains(t, diags[0].Message, "Risk Rating")
}

func TestExtractSynthesizedRecordID(t *testing.T) {
	e, err := New(types.TabularPOAM, poamMapping())
	require.NoError(t, err)

	grid := poamGrid(
		[]string{"", "No identifier here", "", "", "", "", "", "", "", ""},
	)

	records, _ := e.Extract(grid)
	require.Len(t, records, 1)
	assert.Equal(t, "poam-row-2", records[0].RecordID)
	assert.Equal(t, []string{"weakness_name"}, records[0].RequiredPresent,
		"the missing identifier must not be marked present")
}

func TestExtractNormalizesControlCitations(t *testing.T) {
	e, err := New(types.TabularPOAM, poamMapping())
	require.NoError(t, err)

	grid := poamGrid([]string{
		"V-001", "Weak", "", "", "", "ac-2, Ac-6; si-2(4)", "", "", "", "",
	})

	records, diags := e.Extract(grid)
	require.Len(t, records, 1)
	assert.Empty(t, diags)

	refs := records[0].Lists["control_ids"]
	require.Len(t, refs, 3)
	assert.Equal(t, "AC-2", refs[0].Value)
	assert.Equal(t, "AC-6", refs[1].Value)
	assert.Equal(t, "SI-2(4)", refs[2].Value)
}

func TestExtractSynonymHeadersConverge(t *testing.T) {
	mapping := types.ColumnMapping{
		IDField: "asset_id",
		Fields: map[string]types.ColumnSpec{
			"asset_id": {Synonyms: []string{"Asset ID"}, Required: true, Type: types.FieldIdentifier},
			"name":     {Synonyms: []string{"Asset Name", "Name"}, Type: types.FieldString},
		},
	}
	e, err := New(types.TabularInventory, mapping)
	require.NoError(t, err)

	long := types.Grid{
		ArtifactPath: "inventory-a.csv",
		Sheet:        "a",
		Headers:      []string{"Asset ID", "Asset Name"},
		Rows:         [][]string{{"web-01", "Front Door"}},
	}
	short := types.Grid{
		ArtifactPath: "inventory-b.csv",
		Sheet:        "b",
		Headers:      []string{"Asset ID", "Name"},
		Rows:         [][]string{{"web-01", "Front Door"}},
	}

	aRecs, aDiags := e.Extract(long)
	bRecs, bDiags := e.Extract(short)
	assert.Empty(t, aDiags)
	assert.Empty(t, bDiags)
	require.Len(t, aRecs, 1)
	require.Len(t, bRecs, 1)

	values := func(rec types.TabularRecord) map[string]string {
		out := make(map[string]string, len(rec.Fields))
		for field, v := range rec.Fields {
			out[field] = v.Value
		}
		return out
	}
	assert.Equal(t, values(aRecs[0]), values(bRecs[0]),
		"either declared synonym populates the same canonical fields")

	// Provenance still names the header each sheet actually used.
	assert.Equal(t, "Asset Name", aRecs[0].Fields["name"].Origin.Column)
	assert.Equal(t, "Name", bRecs[0].Fields["name"].Origin.Column)
}

func TestExtractSkipsEmptyRows(t *testing.T) {
	e, err := New(types.TabularPOAM, poamMapping())
	require.NoError(t, err)

	grid := poamGrid(
		[]string{"V-001", "First", "", "", "", "", "", "", "", ""},
		[]string{"", "", "", "  ", "", "", "", "", "", ""},
		[]string{"V-003", "Third", "", "", "", "", "", "", "", ""},
	)

	records, _ := e.Extract(grid)
	require.Len(t, records, 2)
	assert.Equal(t, "V-001", records[0].RecordID)
	assert.Equal(t, "V-003", records[1].RecordID)
	assert.Equal(t, 4, records[1].Origin.Row, "skipped row still counts toward row numbers")
}

func TestNewRejectsAmbiguousSynonym(t *testing.T) {
	mapping := types.ColumnMapping{
		Fields: map[string]types.ColumnSpec{
			"a": {Synonyms: []string{"Shared"}},
			"b": {Synonyms: []string{"shared"}},
		},
	}
	_, err := New(types.TabularInventory, mapping)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "shared")
}

func TestNormalizeSeverity(t *testing.T) {
	tests := []struct {
		raw  string
		want string
		ok   bool
	}{
		{"Low", "Low", true},
		{"MED", "Moderate", true},
		{"medium", "Moderate", true},
		{" m ", "Moderate", true},
		{"Crit", "Critical", true},
		{"severe", "", false},
	}
	for _, tt := range tests {
		got, ok := NormalizeSeverity(tt.raw)
		assert.Equal(t, tt.ok, ok, tt.raw)
		assert.Equal(t, tt.want, got, tt.raw)
	}
}

func TestNormalizeStatus(t *testing.T) {
	tests := []struct {
		raw  string
		want string
		ok   bool
	}{
		{"Open", "Open", true},
		{"IN  PROGRESS", "Ongoing", true},
		{"closed", "Completed", true},
		{"Risk Accepted", "Risk Accepted", true},
		{"deferred", "", false},
	}
	for _, tt := range tests {
		got, ok := NormalizeStatus(tt.raw)
		assert.Equal(t, tt.ok, ok, tt.raw)
		assert.Equal(t, tt.want, got, tt.raw)
	}
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		raw  string
		want string
		ok   bool
	}{
		{"2026-03-15", "2026-03-15", true},
		{"03/15/2026", "2026-03-15", true},
		{"3/5/2026", "2026-03-05", true},
		{"March 15, 2026", "2026-03-15", true},
		{"soon", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseDate(tt.raw)
		assert.Equal(t, tt.ok, ok, tt.raw)
		assert.Equal(t, tt.want, got, tt.raw)
	}
}

func TestReadGridCSV(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "inventory.csv")
	data := "Asset ID,IP Address,Function\nweb-01,10.0.0.5,Web Server\ndb-01,10.0.0.9\n"
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	grid, err := ReadGridCSV(path)
	require.NoError(t, err)

	assert.Equal(t, "inventory", grid.Sheet)
	assert.Equal(t, []string{"Asset ID", "IP Address", "Function"}, grid.Headers)
	require.Len(t, grid.Rows, 2)
	assert.Equal(t, []string{"db-01", "10.0.0.9", ""}, grid.Rows[1], "short rows padded to header width")
	assert.Equal(t, 3, grid.RowNumber(1))
}
