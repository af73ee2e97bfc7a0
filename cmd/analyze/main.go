// Command analyze runs a historical analysis of one or more addresses and
// prints the classification report. Results are saved to the configured
// store unless -save=false.
//
// Usage:
//
//	analyze [flags] ADDRESS...
//	analyze -list
//	analyze -show ADDRESS
//	analyze -delete ADDRESS
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/SprengerV/volume-analyzer/internal/analysis"
	"github.com/SprengerV/volume-analyzer/internal/app"
	"github.com/SprengerV/volume-analyzer/internal/config"
	"github.com/SprengerV/volume-analyzer/internal/reporting"
	"github.com/SprengerV/volume-analyzer/internal/storage"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config file")
	lookback := flag.Int("lookback", 0, "Number of recent signatures to inspect (0 uses the configured default)")
	format := flag.String("format", "text", "Output format: text, markdown, csv, table")
	showRules := flag.Bool("rules", false, "Print the evaluation of every classification rule")
	save := flag.Bool("save", true, "Save results to the configured store")
	list := flag.Bool("list", false, "List saved analyses and exit")
	show := flag.String("show", "", "Print the saved analysis of an address and exit")
	del := flag.String("delete", "", "Delete the saved analysis of an address and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing: %v\n", err)
		os.Exit(1)
	}

	code := run(ctx, a, os.Stdout, runOptions{
		addresses: flag.Args(),
		lookback:  *lookback,
		format:    *format,
		rules:     *showRules,
		save:      *save,
		list:      *list,
		show:      *show,
		del:       *del,
	})
	if err := a.Close(); err != nil {
		a.Logger.WithError(err).Warn("shutdown")
	}
	os.Exit(code)
}

type runOptions struct {
	addresses []string
	lookback  int
	format    string
	rules     bool
	save      bool
	list      bool
	show      string
	del       string
}

func run(ctx context.Context, a *app.App, w io.Writer, opts runOptions) int {
	switch {
	case opts.list:
		return listSaved(ctx, a.Store, w)
	case opts.show != "":
		return showSaved(ctx, a.Store, w, opts.show)
	case opts.del != "":
		if err := a.Store.Delete(ctx, opts.del); err != nil {
			fmt.Fprintf(os.Stderr, "Error deleting %s: %v\n", opts.del, err)
			return 1
		}
		fmt.Fprintf(w, "Deleted %s\n", opts.del)
		return 0
	}

	if len(opts.addresses) == 0 {
		fmt.Fprintln(os.Stderr, "Error: at least one address is required")
		flag.Usage()
		return 2
	}

	code := 0
	for i, addr := range opts.addresses {
		if i > 0 {
			fmt.Fprintln(w)
		}
		res, err := a.Analyzer.Analyze(ctx, addr, opts.lookback)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error analyzing %s: %v\n", addr, err)
			code = 1
			if errors.Is(err, context.Canceled) {
				return code
			}
			continue
		}

		if err := printResult(w, res, opts.format, opts.rules); err != nil {
			fmt.Fprintf(os.Stderr, "Error rendering %s: %v\n", addr, err)
			code = 1
		}

		if opts.save {
			if err := a.Store.Save(ctx, res.Analysis()); err != nil {
				fmt.Fprintf(os.Stderr, "Error saving %s: %v\n", addr, err)
				code = 1
			}
		}
	}
	return code
}

func printResult(w io.Writer, res *analysis.Result, format string, rules bool) error {
	switch format {
	case "text":
		fmt.Fprintf(w, "== %s ==\n", res.Address)
		fmt.Fprint(w, res.Report)
		if res.Report != "" && res.Report[len(res.Report)-1] != '\n' {
			fmt.Fprintln(w)
		}
		if rules {
			for _, r := range res.Rules {
				mark := " "
				if r.Matched {
					mark = "*"
				}
				fmt.Fprintf(w, "%s %-28s %-48s %s\n", mark, r.Name, r.Condition, r.Actual)
			}
		}
	case "markdown":
		fmt.Fprint(w, reporting.RenderMarkdown(res.ReportData()))
	case "csv":
		fmt.Fprint(w, reporting.RenderSwapsCSV(res.Swaps))
	case "table":
		fmt.Fprintf(w, "%s: %s\n", res.Address, res.Label)
		return reporting.RenderSwapTable(w, res.Swaps)
	default:
		return fmt.Errorf("unknown format %q", format)
	}
	return nil
}

func listSaved(ctx context.Context, store storage.AnalysisStore, w io.Writer) int {
	addrs, err := store.ListAddresses(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error listing analyses: %v\n", err)
		return 1
	}
	for _, addr := range addrs {
		an, err := store.Get(ctx, addr)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				continue
			}
			fmt.Fprintf(os.Stderr, "Error loading %s: %v\n", addr, err)
			return 1
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", addr, an.Label, an.AnalyzedAt.Format("2006-01-02 15:04:05"))
	}
	return 0
}

func showSaved(ctx context.Context, store storage.AnalysisStore, w io.Writer, address string) int {
	an, err := store.Get(ctx, address)
	if errors.Is(err, storage.ErrNotFound) {
		fmt.Fprintf(os.Stderr, "No saved analysis for %s\n", address)
		return 1
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading %s: %v\n", address, err)
		return 1
	}
	fmt.Fprintf(w, "== %s (%s) ==\n", an.Address, an.AnalyzedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprint(w, an.Report)
	return 0
}
