package artera

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	csvp "outreach/internal/parser/csv"
	"outreach/internal/parser/excel"
	"outreach/internal/schema"
	"outreach/internal/table"
)

// Result bundles everything a caller needs after a workbook run: the
// normalized upload, the diagnostics that explain it, and where the CSV went.
type Result struct {
	Upload    *table.Table
	ColumnMap schema.ColumnMap
	SheetName string
	CSVPath   string
}

// SelectSheetAndNormalize is the composite front door: pick (or accept) a
// sheet, infer its column map, and normalize it to the upload schema.
//
// When sheetName is non-empty, selection is skipped and that sheet is used
// directly — its column map is still inferred. Otherwise the best-scoring
// sheet wins (see schema.SelectBestSheet).
func SelectSheetAndNormalize(
	sheets []excel.Sheet,
	sheetName string,
	extra schema.AliasTable,
	languageRecode map[string]string,
) (Result, error) {
	var sel schema.Selection

	if sheetName != "" {
		found := false
		for _, s := range sheets {
			if s.Name == sheetName {
				sel = schema.Selection{
					Name:      s.Name,
					Table:     s.Table,
					ColumnMap: schema.InferColumnMap(s.Table, extra),
				}
				found = true
				break
			}
		}
		if !found {
			return Result{}, fmt.Errorf("artera: sheet %q not found in workbook", sheetName)
		}
	} else {
		ordered := make([]schema.SheetTable, len(sheets))
		for i, s := range sheets {
			ordered[i] = schema.SheetTable{Name: s.Name, Table: s.Table}
		}
		var err error
		sel, err = schema.SelectBestSheet(ordered, extra)
		if err != nil {
			return Result{}, err
		}
	}

	upload, err := BuildUpload(sel.Table, sel.ColumnMap, languageRecode)
	if err != nil {
		return Result{}, err
	}
	return Result{Upload: upload, ColumnMap: sel.ColumnMap, SheetName: sel.Name}, nil
}

// WriteUploadCSV writes the upload to <outDir>/<prefix><YYYYMMDD>.csv,
// creating outDir as needed, and returns the full path. The date stamp comes
// from today so unattended runs and tests stay deterministic.
func WriteUploadCSV(upload *table.Table, outDir, prefix string, today time.Time) (string, error) {
	if outDir == "" {
		outDir = "."
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	path := filepath.Join(outDir, prefix+today.Format("20060102")+".csv")
	if err := csvp.WriteFile(path, upload); err != nil {
		return "", fmt.Errorf("write upload csv: %w", err)
	}
	return path, nil
}

// WorkbookOptions configures BuildUploadFromWorkbook.
type WorkbookOptions struct {
	// SheetName skips auto-selection when non-empty.
	SheetName string
	// ExtraAliases are merged into the default alias table.
	ExtraAliases schema.AliasTable
	// LanguageRecode applies before assembly; nil means no recoding.
	LanguageRecode map[string]string
	// OutDir and FilePrefix control the CSV location. OutDir defaults to ".".
	OutDir     string
	FilePrefix string
	// Today stamps the output filename; zero means time.Now().
	Today time.Time
}

// BuildUploadFromWorkbook crawls a workbook (or a CSV file), infers columns,
// normalizes to the upload schema, and writes the dated CSV.
func BuildUploadFromWorkbook(path string, opt WorkbookOptions) (Result, error) {
	if opt.FilePrefix == "" {
		opt.FilePrefix = "SBNC_Outreach"
	}
	if opt.Today.IsZero() {
		opt.Today = time.Now()
	}

	sheets, err := loadSheets(path, opt.SheetName)
	if err != nil {
		return Result{}, err
	}

	res, err := SelectSheetAndNormalize(sheets, opt.SheetName, opt.ExtraAliases, opt.LanguageRecode)
	if err != nil {
		return Result{}, err
	}

	csvPath, err := WriteUploadCSV(res.Upload, opt.OutDir, opt.FilePrefix, opt.Today)
	if err != nil {
		return Result{}, err
	}
	res.CSVPath = csvPath
	return res, nil
}

func loadSheets(path, sheetName string) ([]excel.Sheet, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		t, err := csvp.ReadFile(path, csvp.Options{})
		if err != nil {
			return nil, err
		}
		name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		return []excel.Sheet{{Name: name, Table: t}}, nil
	default:
		if sheetName != "" {
			t, err := excel.ReadSheet(path, sheetName)
			if err != nil {
				return nil, err
			}
			return []excel.Sheet{{Name: sheetName, Table: t}}, nil
		}
		return excel.ReadWorkbook(path)
	}
}
