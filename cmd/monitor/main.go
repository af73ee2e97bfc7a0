// Command monitor watches one or more addresses live and prints every
// BOT_ACTIVITY, BOT_SILENCE and ERROR event. On exit the event log of each
// address is exported to <export_dir>/<address>_<timestamp>.txt.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/SprengerV/volume-analyzer/internal/app"
	"github.com/SprengerV/volume-analyzer/internal/config"
	"github.com/SprengerV/volume-analyzer/internal/domain"
	"github.com/SprengerV/volume-analyzer/internal/monitor"
	"github.com/SprengerV/volume-analyzer/internal/reporting"
)

func main() {
	configPath := flag.String("config", "", "Path to YAML config file")
	interval := flag.Duration("interval", 0, "Poll interval (0 uses the configured default)")
	silence := flag.Duration("silence", 0, "Silence threshold (0 uses the configured default)")
	exportDir := flag.String("export-dir", "", "Directory for event log exports (empty uses the configured default)")
	noExport := flag.Bool("no-export", false, "Do not export event logs on exit")
	flag.Parse()

	if flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "Usage: monitor [flags] ADDRESS...")
		flag.PrintDefaults()
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if *interval > 0 {
		cfg.Monitor.PollInterval = *interval
	}
	if *silence > 0 {
		cfg.Monitor.SilenceThreshold = *silence
	}
	if *exportDir != "" {
		cfg.Monitor.ExportDir = *exportDir
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error initializing: %v\n", err)
		os.Exit(1)
	}

	logs := newTranscripts(os.Stdout)
	for _, addr := range flag.Args() {
		if _, err := a.Registry.Start(addr, logs.observer(addr)); err != nil {
			fmt.Fprintf(os.Stderr, "Error starting monitor for %s: %v\n", addr, err)
			continue
		}
		a.Logger.WithField("address", addr).Info("monitoring")
	}
	if len(a.Registry.List()) == 0 {
		a.Close()
		os.Exit(1)
	}

	<-ctx.Done()
	a.Logger.Info("stopping monitors")
	a.Registry.StopAll()

	code := 0
	if !*noExport {
		files, err := logs.export(cfg.Monitor.ExportDir, time.Now())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error exporting event logs: %v\n", err)
			code = 1
		}
		for _, f := range files {
			fmt.Printf("Event log saved to %s\n", f)
		}
	}

	if err := a.Close(); err != nil {
		a.Logger.WithError(err).Warn("shutdown")
	}
	os.Exit(code)
}

// transcripts prints events as they arrive and keeps every line per
// address for export.
type transcripts struct {
	mu    sync.Mutex
	out   io.Writer
	lines map[string][]string
	order []string
}

func newTranscripts(out io.Writer) *transcripts {
	return &transcripts{out: out, lines: make(map[string][]string)}
}

func (t *transcripts) observer(address string) monitor.Observer {
	t.mu.Lock()
	if _, ok := t.lines[address]; !ok {
		t.lines[address] = nil
		t.order = append(t.order, address)
	}
	t.mu.Unlock()

	return monitor.ObserverFunc(func(ev domain.Event) {
		line := reporting.FormatEvent(ev)

		t.mu.Lock()
		defer t.mu.Unlock()
		t.lines[address] = append(t.lines[address], line)
		fmt.Fprintln(t.out, line)
	})
}

// export writes one file per address that logged at least one event and
// returns the written paths.
func (t *transcripts) export(dir string, now time.Time) ([]string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create export dir: %w", err)
	}

	var files []string
	for _, addr := range t.order {
		lines := t.lines[addr]
		if len(lines) == 0 {
			continue
		}
		path := filepath.Join(dir, reporting.ExportFileName(addr, now))
		if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0o644); err != nil {
			return files, fmt.Errorf("write %s: %w", path, err)
		}
		files = append(files, path)
	}
	return files, nil
}
