package ingest

import (
	"strconv"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/OlawumiPT/power-transitions-dashboard-sub000/internal/ranking"
)

const (
	templateSheet = "Projects"
	exportSheet   = "Scored Projects"
)

// scoreHeaders are appended after the asset columns in an export.
var scoreHeaders = []string{
	"Thermal Operating Score", "Redevelopment Score", "Overall Project Score",
	"Infrastructure Score", "Rating", "Status", "Confidence",
}

func addRow(sheet *xlsx.Sheet, values []string) {
	row := sheet.AddRow()
	for _, v := range values {
		row.AddCell().SetString(v)
	}
}

// WriteTemplate writes an empty import workbook with one header per field.
func WriteTemplate(path string) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet(templateSheet)
	if err != nil {
		return eris.Wrap(err, "ingest: add template sheet")
	}

	headers := make([]string, len(Fields))
	for i, fd := range Fields {
		headers[i] = fd.Header
	}
	addRow(sheet, headers)

	if err := f.Save(path); err != nil {
		return eris.Wrap(err, "ingest: save template")
	}
	return nil
}

// ExportXLSX writes scored rows to a workbook that re-imports cleanly: the
// asset columns match the template and the computed scores follow them.
func ExportXLSX(path string, rows []ranking.Row) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet(exportSheet)
	if err != nil {
		return eris.Wrap(err, "ingest: add export sheet")
	}

	headers := make([]string, 0, len(Fields)+len(scoreHeaders))
	for _, fd := range Fields {
		headers = append(headers, fd.Header)
	}
	addRow(sheet, append(headers, scoreHeaders...))

	for _, r := range rows {
		values := make([]string, 0, len(headers)+len(scoreHeaders))
		for _, fd := range Fields {
			values = append(values, fd.Get(r.Asset))
		}
		res := r.Result
		values = append(values,
			res.ThermalScore.String(),
			res.RedevelopmentScore.String(),
			res.OverallScore.String(),
			res.InfrastructureScore.String(),
			string(res.Rating),
			string(r.Status),
			strconv.Itoa(res.Confidence),
		)
		addRow(sheet, values)
	}

	if err := f.Save(path); err != nil {
		return eris.Wrap(err, "ingest: save export")
	}
	return nil
}
