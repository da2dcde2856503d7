package ingest

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"

	"github.com/OlawumiPT/power-transitions-dashboard-sub000/internal/model"
	"github.com/OlawumiPT/power-transitions-dashboard-sub000/internal/ranking"
	"github.com/OlawumiPT/power-transitions-dashboard-sub000/internal/scoring"
)

func createTestXLSX(t *testing.T, sheets map[string][][]string) string {
	t.Helper()
	f := xlsx.NewFile()
	for name, rows := range sheets {
		sheet, err := f.AddSheet(name)
		require.NoError(t, err)
		for _, rowData := range rows {
			row := sheet.AddRow()
			for _, cellData := range rowData {
				row.AddCell().SetString(cellData)
			}
		}
	}
	path := filepath.Join(t.TempDir(), "import.xlsx")
	require.NoError(t, f.Save(path))
	return path
}

func TestLookupHeader(t *testing.T) {
	tests := []struct {
		header string
		want   string
	}{
		{"Project Name", "project_name"},
		{"  project name ", "project_name"},
		{"project_name", "project_name"},
		{"Envionmental Score", "environmental_score"},
		{"Environmental Score", "environmental_score"},
		{"Plant  COD", "plant_cod"},
		{"Process (P) or Bilateral (B)", "process_type"},
		{"Legacy Nameplate Capacity (MW)", "legacy_nameplate_capacity_mw"},
		{"POI Voltage (KV)", "poi_voltage_kv"},
		{"Co-Locate/Repower", "co_locate_repower"},
	}

	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			f, ok := LookupHeader(tt.header)
			require.True(t, ok)
			assert.Equal(t, tt.want, f.Key)
		})
	}

	_, ok := LookupHeader("Overall Project Score")
	assert.False(t, ok)
}

func TestFields_UniqueKeys(t *testing.T) {
	seen := make(map[string]bool)
	for _, f := range Fields {
		assert.False(t, seen[f.Key], "duplicate key %s", f.Key)
		seen[f.Key] = true

		var a model.AssetRecord
		f.Set(&a, "x")
		assert.Equal(t, "x", f.Get(a), f.Key)
	}
}

func TestCleanValue(t *testing.T) {
	assert.Equal(t, "", CleanValue("#REF!"))
	assert.Equal(t, "", CleanValue("=XLOOKUP(A2,B:B,C:C)"))
	assert.Equal(t, "", CleanValue(" N/A "))
	assert.Equal(t, "PJM", CleanValue(" PJM "))
	assert.Equal(t, "0", CleanValue("0"))
}

func TestMapRow(t *testing.T) {
	headers := []string{"Project Name", "ISO", "Envionmental Score", "IX", "Unknown Column", "Legacy COD"}

	a, ok := MapRow(headers, []string{"Roseton", "NYISO", "2", "#N/A", "ignored"})
	require.True(t, ok)
	assert.Equal(t, "Roseton", a.ProjectName)
	assert.Equal(t, "NYISO", a.ISO)
	assert.Equal(t, "2", a.EnvironmentalScore)
	assert.Empty(t, a.IX, "sentinel is blanked")
	assert.Empty(t, a.LegacyCOD, "short row leaves trailing fields blank")

	_, ok = MapRow(headers, []string{"", "PJM"})
	assert.False(t, ok)
}

func TestParse_FindsHeaderRow(t *testing.T) {
	rows := [][]string{
		{"Pipeline export", ""},
		{},
		{"Project Name", "Plant Owner", "Redev Tier"},
		{"Alpha", "Vistra", "II"},
		{"", "", ""},
		{"", "NRG", "I"},
		{"Bravo", "NRG", "I"},
	}

	res, err := Parse(rows)
	require.NoError(t, err)
	require.Len(t, res.Assets, 2)
	assert.Equal(t, 1, res.Skipped)
	assert.Equal(t, "Alpha", res.Assets[0].ProjectName)
	assert.Equal(t, "II", res.Assets[0].RedevTier)
	assert.Equal(t, "Bravo", res.Assets[1].ProjectName)
}

func TestParse_NoHeader(t *testing.T) {
	_, err := Parse([][]string{{"a", "b"}, {"1", "2"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no header row")
}

func TestReadXLSX_SheetSelection(t *testing.T) {
	path := createTestXLSX(t, map[string][][]string{
		"Projects": {{"Project Name"}, {"Alpha"}},
	})

	rows, err := ReadXLSX(path, Options{SheetName: "Projects"})
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"Project Name"}, {"Alpha"}}, rows)

	_, err = ReadXLSX(path, Options{SheetName: "Missing"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")

	_, err = ReadXLSX(path, Options{SheetIndex: 3})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out of range")
}

func TestReadCSV(t *testing.T) {
	rows, err := ReadCSV(strings.NewReader("Project Name,ISO\nAlpha,PJM\nBravo\n"))
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"Project Name", "ISO"}, {"Alpha", "PJM"}, {"Bravo"}}, rows)
}

func TestLoadFile_XLSX(t *testing.T) {
	path := createTestXLSX(t, map[string][][]string{
		"Sheet1": {
			{"Project Name", "ISO", "Legacy COD", "Transactability", "Envionmental Score"},
			{"Alpha", "PJM", "1998", "1", "3"},
			{"Bravo", "ERCOT", "=XLOOKUP(A3,X:X,Y:Y)", "Competitive", "#VALUE!"},
		},
	})

	res, err := LoadFile(context.Background(), path, Options{})
	require.NoError(t, err)
	require.Len(t, res.Assets, 2)
	assert.Equal(t, "1998", res.Assets[0].LegacyCOD)
	assert.Equal(t, "3", res.Assets[0].EnvironmentalScore)
	assert.Empty(t, res.Assets[1].LegacyCOD)
	assert.Empty(t, res.Assets[1].EnvironmentalScore)
}

func TestLoadFile_CSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "import.csv")
	require.NoError(t, os.WriteFile(path, []byte("project_name,iso,redev_tier\nAlpha,PJM,0\n"), 0o644))

	res, err := LoadFile(context.Background(), path, Options{})
	require.NoError(t, err)
	require.Len(t, res.Assets, 1)
	assert.Equal(t, "0", res.Assets[0].RedevTier)
}

func TestLoadFile_Errors(t *testing.T) {
	_, err := LoadFile(context.Background(), "assets.json", Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported file type")

	_, err = LoadFile(context.Background(), filepath.Join(t.TempDir(), "missing.csv"), Options{})
	require.Error(t, err)
}

func TestWriteTemplate_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "template.xlsx")
	require.NoError(t, WriteTemplate(path))

	rows, err := ReadXLSX(path, Options{})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Len(t, rows[0], len(Fields))
	for _, h := range rows[0] {
		_, ok := LookupHeader(h)
		assert.True(t, ok, h)
	}
}

func TestExportXLSX_ReimportsAssets(t *testing.T) {
	assets := []model.AssetRecord{
		{ProjectName: "Alpha", ISO: "PJM", LegacyCOD: "1998", Transactability: "1", RedevTier: "II"},
		{ProjectName: "Bravo", ISO: "ERCOT"},
	}
	rows := ranking.NewRows(assets, scoring.NewCalculator(scoring.DefaultConfig()), 2025)

	path := filepath.Join(t.TempDir(), "export.xlsx")
	require.NoError(t, ExportXLSX(path, rows))

	raw, err := ReadXLSX(path, Options{SheetName: exportSheet})
	require.NoError(t, err)
	require.Len(t, raw, 3)
	assert.Equal(t, "Overall Project Score", raw[0][len(Fields)+2])
	assert.Equal(t, "N/A", raw[2][len(Fields)+2])

	res, err := Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, assets[0].ProjectName, res.Assets[0].ProjectName)
	assert.Equal(t, assets[0].RedevTier, res.Assets[0].RedevTier)
	assert.Equal(t, assets[1].ISO, res.Assets[1].ISO)
}

func TestMapRecord(t *testing.T) {
	a, unknown := MapRecord(map[string]any{
		"project_name":       "Roseton",
		"ISO":                "NYISO",
		"legacy_cod":         float64(1974),
		"Envionmental Score": "#N/A",
		"transactability":    nil,
		"overall_score":      4.2,
		"ix":                 json.Number("3"),
	})

	assert.Equal(t, "Roseton", a.ProjectName)
	assert.Equal(t, "NYISO", a.ISO)
	assert.Equal(t, "1974", a.LegacyCOD)
	assert.Empty(t, a.EnvironmentalScore)
	assert.Empty(t, a.Transactability)
	assert.Equal(t, "3", a.IX)
	assert.Equal(t, []string{"overall_score"}, unknown)
}

func TestApplyRecord(t *testing.T) {
	a := model.AssetRecord{ProjectName: "Roseton", ISO: "NYISO", IX: "3", LegacyCOD: "1974"}

	unknown := ApplyRecord(&a, map[string]any{
		"ix":         json.Number("0"),
		"Legacy COD": nil,
		"rating":     "Strong",
		"notes":      "x",
	})

	assert.Equal(t, "Roseton", a.ProjectName)
	assert.Equal(t, "NYISO", a.ISO)
	assert.Equal(t, "0", a.IX)
	assert.Empty(t, a.LegacyCOD)
	assert.Equal(t, []string{"notes", "rating"}, unknown)
}
