package ingest

import (
	"context"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/OlawumiPT/power-transitions-dashboard-sub000/internal/model"
	"github.com/OlawumiPT/power-transitions-dashboard-sub000/internal/resilience"
)

// Options configures an import.
type Options struct {
	SheetName  string        // if set, overrides SheetIndex
	SheetIndex int           // default 0
	FTPTimeout time.Duration // for ftp:// sources
	FTPRetry   resilience.RetryConfig
}

// Result is the outcome of parsing an import.
type Result struct {
	Assets  []model.AssetRecord
	Skipped int // data rows without a project name
}

// ReadXLSX reads one sheet of a workbook and returns all rows as strings.
func ReadXLSX(path string, opts Options) ([][]string, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "ingest: open xlsx")
	}

	sheet, err := getSheet(f, opts)
	if err != nil {
		return nil, err
	}

	rows := make([][]string, 0, len(sheet.Rows))
	for _, row := range sheet.Rows {
		cells := make([]string, len(row.Cells))
		for j, cell := range row.Cells {
			cells[j] = cell.String()
		}
		rows = append(rows, cells)
	}
	return rows, nil
}

func getSheet(f *xlsx.File, opts Options) (*xlsx.Sheet, error) {
	if opts.SheetName != "" {
		sheet, ok := f.Sheet[opts.SheetName]
		if !ok {
			return nil, eris.Errorf("ingest: sheet %q not found", opts.SheetName)
		}
		return sheet, nil
	}

	if opts.SheetIndex < 0 || opts.SheetIndex >= len(f.Sheets) {
		return nil, eris.Errorf("ingest: sheet index %d out of range (file has %d sheets)", opts.SheetIndex, len(f.Sheets))
	}
	return f.Sheets[opts.SheetIndex], nil
}

// ReadCSV reads all CSV records. Rows may have differing field counts.
func ReadCSV(r io.Reader) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var rows [][]string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			return rows, nil
		}
		if err != nil {
			return nil, eris.Wrap(err, "ingest: read csv row")
		}
		rows = append(rows, record)
	}
}

// Parse locates the header row and maps every following row to an asset.
func Parse(rows [][]string) (*Result, error) {
	hdr := findHeaderRow(rows)
	if hdr < 0 {
		return nil, eris.New("ingest: no header row with a Project Name column")
	}

	headers := rows[hdr]
	res := &Result{}
	for _, cells := range rows[hdr+1:] {
		if blankRow(cells) {
			continue
		}
		a, ok := MapRow(headers, cells)
		if !ok {
			res.Skipped++
			continue
		}
		res.Assets = append(res.Assets, a)
	}
	return res, nil
}

func blankRow(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// LoadFile reads and parses an import from a local path or an ftp:// URL.
// The format is chosen by file extension: .xlsx/.xlsm or .csv.
func LoadFile(ctx context.Context, src string, opts Options) (*Result, error) {
	path := src
	if strings.HasPrefix(strings.ToLower(src), "ftp://") {
		tmp, err := os.CreateTemp("", "import-*"+filepath.Ext(src))
		if err != nil {
			return nil, eris.Wrap(err, "ingest: create temp file")
		}
		tmp.Close()                 //nolint:errcheck
		defer os.Remove(tmp.Name()) //nolint:errcheck

		dl := NewFTPDownloader(opts.FTPTimeout)
		retry := opts.FTPRetry
		if retry.OnRetry == nil {
			retry.OnRetry = resilience.RetryLogger("ftp download", zap.String("src", src))
		}
		var n int64
		err = resilience.Do(ctx, retry, func(ctx context.Context) error {
			var dlErr error
			n, dlErr = dl.DownloadToFile(ctx, src, tmp.Name())
			return dlErr
		})
		if err != nil {
			return nil, err
		}
		zap.L().Debug("ingest: downloaded import", zap.String("src", src), zap.Int64("bytes", n))
		path = tmp.Name()
	}

	var (
		rows [][]string
		err  error
	)
	switch ext := strings.ToLower(filepath.Ext(src)); ext {
	case ".xlsx", ".xlsm":
		rows, err = ReadXLSX(path, opts)
	case ".csv":
		var f *os.File
		f, err = os.Open(path)
		if err != nil {
			return nil, eris.Wrap(err, "ingest: open csv")
		}
		defer f.Close() //nolint:errcheck
		rows, err = ReadCSV(f)
	default:
		return nil, eris.Errorf("ingest: unsupported file type %q", ext)
	}
	if err != nil {
		return nil, err
	}

	res, err := Parse(rows)
	if err != nil {
		return nil, eris.Wrapf(err, "ingest: parse %s", filepath.Base(src))
	}
	return res, nil
}
