// Command outreach builds the patient outreach list from a registry export.
//
// It loads an Excel/CSV export, applies the outreach filtering rules, and
// writes the surviving rows to CSV/XLSX (or prints a preview).
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"outreach/internal/metrics"
	"outreach/internal/metrics/datadog"
	"outreach/internal/outreach"
	csvp "outreach/internal/parser/csv"
	"outreach/internal/parser/excel"
	"outreach/internal/table"
)

func main() {
	var (
		input    string
		sheet    string
		output   string
		encoding string
		preview  int
	)

	flag.StringVar(&input, "input", "", "input .xlsx/.csv export (required)")
	flag.StringVar(&sheet, "sheet", "", "sheet name (Excel only; default first sheet)")
	flag.StringVar(&output, "output", "", "output path (.csv or .xlsx); empty prints a preview")
	flag.StringVar(&encoding, "encoding", "", "CSV input encoding (windows-1252, latin-1; default UTF-8)")
	flag.IntVar(&preview, "preview", 20, "rows to print when no -output is given")
	metricsBackend := flag.String("metrics-backend", "", "metrics backend (datadog, none)")
	verbose := flag.Bool("v", false, "enable verbose logs")
	flag.Parse()

	if input == "" {
		fatalf("missing -input")
	}

	shutdownMetrics := setupMetrics(*metricsBackend, "outreach_filter", *verbose)
	defer shutdownMetrics()

	in, err := loadInput(input, sheet, encoding)
	if err != nil {
		fatalf("load input: %v", err)
	}

	start := time.Now()
	out := outreach.Filter(in, time.Now())
	metrics.IncCounter(metrics.RowsTotal, float64(in.NumRows()), metrics.Labels{"kind": "in"})
	metrics.IncCounter(metrics.RowsTotal, float64(out.NumRows()), metrics.Labels{"kind": "out"})
	metrics.ObserveHistogram(metrics.StepDurationSeconds, time.Since(start).Seconds(), metrics.Labels{"step": "filter"})

	if *verbose {
		log.Printf("filter: rows_in=%d rows_out=%d duration=%s",
			in.NumRows(), out.NumRows(), time.Since(start).Truncate(time.Millisecond))
	}

	if output == "" {
		printPreview(out, preview)
		return
	}

	switch strings.ToLower(filepath.Ext(output)) {
	case ".csv":
		err = csvp.WriteFile(output, out)
	case ".xlsx":
		err = excel.WriteTable(output, out, "Outreach")
	default:
		fatalf("-output must end in .csv or .xlsx")
	}
	if err != nil {
		fatalf("write output: %v", err)
	}
	log.Printf("wrote %d rows to %s", out.NumRows(), output)
}

func loadInput(input, sheet, encoding string) (*table.Table, error) {
	switch strings.ToLower(filepath.Ext(input)) {
	case ".csv":
		return csvp.ReadFile(input, csvp.Options{Encoding: encoding})
	case ".xlsx", ".xlsm":
		if sheet != "" {
			return excel.ReadSheet(input, sheet)
		}
		sheets, err := excel.ReadWorkbook(input)
		if err != nil {
			return nil, err
		}
		if len(sheets) == 0 {
			return nil, fmt.Errorf("workbook has no sheets")
		}
		return sheets[0].Table, nil
	default:
		return nil, fmt.Errorf("unsupported input type %q (want .xlsx, .xlsm, or .csv)", filepath.Ext(input))
	}
}

func printPreview(t *table.Table, n int) {
	if n > t.NumRows() {
		n = t.NumRows()
	}
	fmt.Println(strings.Join(t.Columns, ","))
	for _, row := range t.Rows[:n] {
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = table.CellString(v)
		}
		fmt.Println(strings.Join(cells, ","))
	}
	fmt.Printf("(showing first %d of %d rows)\n", n, t.NumRows())
}

// setupMetrics resolves the metrics backend flag → env → default and returns
// the shutdown func to defer.
func setupMetrics(backendFlag, job string, verbose bool) func() {
	name := backendFlag
	if name == "" {
		name = os.Getenv("METRICS_BACKEND")
	}
	switch name {
	case "datadog":
		b, err := datadog.NewBackend(context.Background(), datadog.Options{
			JobName: job,
			Tags:    datadog.ParseTagsCSV(os.Getenv("METRICS_TAGS")),
		})
		if err != nil {
			log.Printf("metrics: failed to init datadog backend: %v; using nop", err)
			return func() {}
		}
		metrics.SetBackend(b)
		return func() {
			if err := b.Close(); err != nil {
				log.Printf("metrics: datadog close/flush error: %v", err)
			}
		}
	case "", "none":
		if verbose {
			log.Printf("metrics: disabled (backend=%q)", name)
		}
	default:
		log.Printf("metrics: unknown backend %q; metrics disabled", name)
	}
	return func() {}
}

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}
