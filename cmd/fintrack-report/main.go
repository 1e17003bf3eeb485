// Command fintrack-report prints one report for a preset or date range.
//
//	fintrack-report -preset lastYear -format text
//	fintrack-report -start 2025-01-01 -end 2025-03-31 -labels short
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"fintrack/internal/backend"
	"fintrack/internal/cli"
	"fintrack/internal/log"
	"fintrack/internal/report"
	"fintrack/internal/services"
)

type options struct {
	preset     string
	start, end string
	labels     string
	top        int
	months     int
	format     string
}

func parseFlags(args []string) (options, error) {
	var o options
	fs := flag.NewFlagSet("fintrack-report", flag.ContinueOnError)
	fs.StringVar(&o.preset, "preset", "", "range preset: "+presetNames())
	fs.StringVar(&o.start, "start", "", "first day, YYYY-MM-DD")
	fs.StringVar(&o.end, "end", "", "last day, YYYY-MM-DD")
	fs.StringVar(&o.labels, "labels", "", "month labels: short or long")
	fs.IntVar(&o.top, "top", 0, "number of top categories (0 for default)")
	fs.IntVar(&o.months, "months", 0, "months in the comparison (0 for default)")
	fs.StringVar(&o.format, "format", "text", "output format: text or json")
	if err := fs.Parse(args); err != nil {
		return o, err
	}
	if o.format != "text" && o.format != "json" {
		return o, fmt.Errorf("unknown format %q", o.format)
	}
	return o, nil
}

func presetNames() string {
	names := make([]string, len(report.Presets))
	for i, p := range report.Presets {
		names[i] = string(p)
	}
	return strings.Join(names, ", ")
}

func (o options) request() (services.ReportRequest, error) {
	req := services.ReportRequest{
		Preset:           report.Preset(o.preset),
		TopLimit:         o.top,
		ComparisonMonths: o.months,
	}
	labels, ok := report.ParseLabelFormat(o.labels)
	if !ok {
		return req, fmt.Errorf("unknown labels %q", o.labels)
	}
	req.Labels = labels
	for _, d := range []struct {
		raw string
		dst *time.Time
	}{{o.start, &req.Start}, {o.end, &req.End}} {
		if d.raw == "" {
			continue
		}
		t, err := time.Parse("2006-01-02", d.raw)
		if err != nil {
			return req, fmt.Errorf("invalid date %q", d.raw)
		}
		*d.dst = t
	}
	return req, nil
}

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(envOr("LOG_LEVEL", "warn"), log.ComponentReport)

	opts, err := parseFlags(os.Args[1:])
	if err != nil {
		os.Exit(2)
	}
	req, err := opts.request()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	cfg := cli.LoadAndValidateConfig(logger)
	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}
	// Read-only: no ledger events are produced.
	backendCfg.AMQPURL = ""

	ctx := context.Background()
	result, err := backend.NewFactory(logger, nil).CreateBackend(ctx, backendCfg)
	if err != nil {
		logger.Error("Failed to create backend", log.FieldError, err)
		os.Exit(1)
	}
	defer result.Close()

	rep, err := result.Reports.Report(ctx, req)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		_ = result.Close()
		os.Exit(1)
	}

	if opts.format == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		err = enc.Encode(rep)
	} else {
		err = writeText(os.Stdout, rep)
	}
	if err != nil {
		logger.Error("Failed to write report", log.FieldError, err)
		_ = result.Close()
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func writeText(out io.Writer, rep report.Report) error {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', tabwriter.AlignRight)

	fmt.Fprintf(w, "Range\t%s .. %s\t(%d days)\t\n", day(rep.Range.Start), day(rep.Range.End), rep.Days)
	fmt.Fprintf(w, "Income\t%s\t\n", rep.Summary.TotalIncome)
	fmt.Fprintf(w, "Expenses\t%s\t\n", rep.Summary.TotalExpenses)
	fmt.Fprintf(w, "Net\t%s\t\n", rep.Summary.NetBalance)
	fmt.Fprintf(w, "Savings rate\t%.1f%%\t\n", rep.SavingsRate)
	fmt.Fprintf(w, "Transactions\t%d\t\n", rep.Summary.Count)
	if rep.Trend != nil {
		change := "n/a"
		if rep.Trend.PercentChange != nil {
			change = fmt.Sprintf("%+.1f%%", *rep.Trend.PercentChange)
		}
		fmt.Fprintf(w, "Expense trend\t%s\t%s\t\n", rep.Trend.Direction, change)
	}

	fmt.Fprintf(w, "\t\t\t\t\n")
	fmt.Fprintf(w, "Month\tIncome\tExpenses\tNet\t\n")
	for _, b := range rep.Monthly {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t\n", b.Label, b.Income, b.Expenses, b.Net())
	}

	if len(rep.TopCategories) > 0 {
		fmt.Fprintf(w, "\t\t\t\t\n")
		fmt.Fprintf(w, "Category\tSpent\tShare\t\n")
		for _, c := range rep.TopCategories {
			fmt.Fprintf(w, "%s\t%s\t%.1f%%\t\n", c.Name, c.Amount, c.Share(rep.Summary.TotalExpenses))
		}
	}
	return w.Flush()
}

func day(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("2006-01-02")
}
