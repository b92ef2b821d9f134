// Package csv reads and writes Table data as CSV.
//
// Reading is best-effort in the same spirit as the sampling parser this grew
// out of: rows with a mismatched field count are skipped, cell whitespace is
// trimmed, a UTF-8 BOM on the first header is stripped, and empty cells load
// as missing (nil). Registry exports are sometimes Windows-1252 rather than
// UTF-8, so an optional legacy encoding can be applied on the way in.
package csv

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"outreach/internal/table"
)

// Options controls CSV reading.
type Options struct {
	// Comma is the field delimiter. Zero means ','.
	Comma rune
	// Encoding selects a legacy single-byte decode applied before parsing.
	// Supported: "" (UTF-8 passthrough), "windows-1252", "latin-1".
	Encoding string
	// LazyQuotes is passed through to encoding/csv.
	LazyQuotes bool
}

// Read parses CSV into a Table. The first record is the header row.
func Read(r io.Reader, opt Options) (*table.Table, error) {
	dec, err := decodeReader(r, opt.Encoding)
	if err != nil {
		return nil, err
	}

	cr := csv.NewReader(dec)
	if opt.Comma != 0 {
		cr.Comma = opt.Comma
	}
	cr.FieldsPerRecord = -1 // validated manually below
	cr.LazyQuotes = opt.LazyQuotes

	hdr, err := cr.Read()
	if err == io.EOF {
		return &table.Table{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	for i := range hdr {
		hdr[i] = strings.TrimSpace(hdr[i])
	}
	if len(hdr) > 0 {
		hdr[0] = strings.TrimPrefix(hdr[0], "\uFEFF")
	}

	t := table.New(hdr...)
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csv read: %w", err)
		}
		if len(rec) != len(hdr) {
			continue
		}
		row := make([]any, len(hdr))
		for i, v := range rec {
			v = strings.TrimSpace(v)
			if v == "" {
				row[i] = nil
			} else {
				row[i] = v
			}
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

// ReadFile parses the named CSV file.
func ReadFile(path string, opt Options) (*table.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Read(f, opt)
}

// Write renders the table as CSV in exact column order. Missing cells render
// as empty fields.
func Write(w io.Writer, t *table.Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Columns); err != nil {
		return err
	}
	rec := make([]string, len(t.Columns))
	for _, row := range t.Rows {
		for i := range t.Columns {
			rec[i] = table.CellString(row[i])
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteFile writes the table as CSV to path.
func WriteFile(path string, t *table.Table) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Write(f, t); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func decodeReader(r io.Reader, encoding string) (io.Reader, error) {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "", "utf-8", "utf8":
		return r, nil
	case "windows-1252", "cp1252":
		return transform.NewReader(r, charmap.Windows1252.NewDecoder()), nil
	case "latin-1", "latin1", "iso-8859-1":
		return transform.NewReader(r, charmap.ISO8859_1.NewDecoder()), nil
	default:
		return nil, fmt.Errorf("csv: unsupported encoding %q", encoding)
	}
}
