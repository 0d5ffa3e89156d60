// netdiag is the one-shot diagnostic CLI: it reads the collected time
// series and prints an ANSI report per path, optionally running a fresh
// collection pass first.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"netmond/internal/app"
	"netmond/internal/collector"
	"netmond/internal/config"
	"netmond/internal/diagnose"
	"netmond/internal/storage"
	"netmond/pkg/logx"
)

func main() {
	var (
		cfgPath string
		source  string
		dest    string
		hours   int
		collect bool
	)
	flag.StringVar(&cfgPath, "config", "./netmond.yaml", "path to config file (yaml or json)")
	flag.StringVar(&source, "source", "", "source host (empty: all configured paths)")
	flag.StringVar(&dest, "dest", "", "destination host")
	flag.IntVar(&hours, "hours", 0, "history window in hours (0: config default)")
	flag.BoolVar(&collect, "collect", false, "run a collection pass before diagnosing")
	flag.Parse()

	_ = godotenv.Load()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfgPath, source, dest, hours, collect); err != nil {
		fmt.Fprintln(os.Stderr, "netdiag:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfgPath, source, dest string, hours int, collect bool) error {
	cfg, err := config.NewManager(cfgPath).Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Reports go to stdout; keep logging quiet unless something breaks.
	log := logx.NewConsole("warn")

	sc, err := app.MapStorageConfig(cfg)
	if err != nil {
		return err
	}
	store, err := storage.Open(sc, log)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	if store == nil {
		return fmt.Errorf("storage is disabled; nothing to diagnose")
	}
	defer store.Close()

	if collect {
		ccfg, err := app.MapCollectorConfig(cfg)
		if err != nil {
			return err
		}
		collector.New(ccfg, store, log).Collect(ctx)
	}

	dcfg := app.MapDiagnoseConfig(cfg)
	if hours > 0 {
		dcfg.HistoryHours = hours
	}
	d := diagnose.New(dcfg, store, log)

	paths := pathsToDiagnose(cfg, source, dest)
	for _, p := range paths {
		diag, err := d.Diagnose(ctx, p[0], p[1])
		if err != nil {
			return err
		}
		fmt.Print(diagnose.FormatReport(diag))
	}

	// The uplink is part of the picture: show recent egress results when
	// the daemon has been collecting them.
	if rows, err := store.RecentEgress(ctx, 3); err == nil {
		fmt.Print(diagnose.FormatEgressSummary(rows))
	}
	return nil
}

// pathsToDiagnose expands an empty selection to every configured path;
// with no configured paths it falls back to the most recent one in the
// store (empty source and dest).
func pathsToDiagnose(cfg *config.Config, source, dest string) [][2]string {
	if source != "" || dest != "" || len(cfg.Collector.Paths) == 0 {
		return [][2]string{{source, dest}}
	}
	out := make([][2]string, 0, len(cfg.Collector.Paths))
	for _, p := range cfg.Collector.Paths {
		out = append(out, [2]string{p.Source, p.Dest})
	}
	return out
}
