// Command artera normalizes a registry export into the Artera upload CSV.
//
// It crawls the workbook (auto-selecting the best sheet unless -sheet is
// given), infers the column map, normalizes to the upload schema, writes the
// dated CSV, and optionally sends it over SFTP.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"outreach/internal/artera"
	"outreach/internal/metrics"
	"outreach/internal/metrics/datadog"
	"outreach/internal/schema"
	sftpx "outreach/internal/sftp"
)

func main() {
	var (
		input  string
		sheet  string
		outdir string
		prefix string
	)

	flag.StringVar(&input, "input", "", "input .xlsx/.csv export (required)")
	flag.StringVar(&sheet, "sheet", "", "sheet name (empty = auto-select best sheet)")
	flag.StringVar(&outdir, "outdir", ".", "output directory for the upload CSV")
	flag.StringVar(&prefix, "prefix", "SBNC_Outreach", "output file prefix")
	noRecode := flag.Bool("no-language-recode", false, "skip the Spanish; Castilian -> Spanish recode")
	upload := flag.Bool("upload", false, "send the result over SFTP (SFTP_* env config)")
	remoteDir := flag.String("remote-dir", "/", "remote directory for -upload")
	metricsBackend := flag.String("metrics-backend", "", "metrics backend (datadog, none)")
	verbose := flag.Bool("v", false, "enable verbose logs")
	flag.Parse()

	if input == "" {
		fatalf("missing -input")
	}

	shutdownMetrics := setupMetrics(*metricsBackend, "artera_upload", *verbose)
	defer shutdownMetrics()

	recode := artera.DefaultLanguageRecode()
	if *noRecode {
		recode = nil
	}

	start := time.Now()
	res, err := artera.BuildUploadFromWorkbook(input, artera.WorkbookOptions{
		SheetName:      sheet,
		LanguageRecode: recode,
		OutDir:         outdir,
		FilePrefix:     prefix,
	})
	if err != nil {
		fatalf("build upload: %v", err)
	}
	metrics.IncCounter(metrics.RowsTotal, float64(res.Upload.NumRows()), metrics.Labels{"kind": "out"})
	metrics.ObserveHistogram(metrics.StepDurationSeconds, time.Since(start).Seconds(), metrics.Labels{"step": "normalize"})

	log.Printf("upload CSV created: %s (sheet=%q rows=%d)", res.CSVPath, res.SheetName, res.Upload.NumRows())
	printColumnMap(res.ColumnMap)

	if *upload {
		if err := send(res.CSVPath, *remoteDir); err != nil {
			fatalf("sftp upload: %v", err)
		}
	}
}

func printColumnMap(m schema.ColumnMap) {
	log.Printf("inferred column map:")
	for _, f := range schema.FieldOrder {
		label := m.Get(f)
		if label == "" {
			label = "<none>"
		}
		log.Printf("  %-12s -> %s", f, label)
	}
}

func send(localPath, remoteDir string) error {
	client, err := sftpx.Dial(sftpx.Config{}.FromEnv())
	if err != nil {
		return err
	}
	defer client.Close()

	remotePath, sent, err := client.Upload(localPath, remoteDir, func(sent, total int64) {
		pct := int64(0)
		if total > 0 {
			pct = sent * 100 / total
		}
		fmt.Fprintf(os.Stderr, "\ruploading: %d%% (%d/%d bytes)", pct, sent, total)
	})
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return err
	}
	metrics.ObserveHistogram(metrics.UploadBytes, float64(sent), nil)
	log.Printf("uploaded to %s (%d bytes)", remotePath, sent)
	return nil
}

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
