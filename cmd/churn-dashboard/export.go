package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/ramonehamilton/churn-dashboard/internal/charts"
	"github.com/ramonehamilton/churn-dashboard/internal/views"
)

// runExportCommand loads every view once and writes dashboard.html plus one
// standalone page per chart.
func runExportCommand(args []string) {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	outDir := fs.String("out", "dashboard-export", "Output directory")
	open := fs.Bool("open", false, "Open dashboard.html when done")
	if err := fs.Parse(args); err != nil {
		log.Fatalf("Failed to parse export flags: %v", err)
	}

	cfg, _ := loadConfig()
	timeout, _ := cfg.GetBackendTimeout()

	ctx, cancel := context.WithTimeout(context.Background(), timeout+10*time.Second)
	defer cancel()

	a, err := newApp(ctx, cfg, "", false)
	if err != nil {
		log.Fatalf("Failed to set up dashboard: %v", err)
	}
	defer a.close()

	if err := a.dashboard.LoadAll(ctx, a.dashboard.Names(), views.LoadOptions{Force: true, Trigger: views.TriggerPage}); err != nil {
		log.Printf("Some views failed to load:\n%v", err)
	}

	written, err := exportDashboard(a.dashboard, *outDir)
	if err != nil {
		log.Fatalf("Export failed: %v", err)
	}
	fmt.Printf("Wrote %d files to %s\n", written, *outDir)

	if *open {
		if err := charts.OpenInBrowser(filepath.Join(*outDir, "dashboard.html")); err != nil {
			log.Printf("Failed to open browser: %v", err)
		}
	}
}

// exportDashboard writes the page and every live chart under dir.
func exportDashboard(d *views.Dashboard, dir string) (int, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("create export directory: %w", err)
	}

	page, err := os.Create(filepath.Join(dir, "dashboard.html"))
	if err != nil {
		return 0, fmt.Errorf("create dashboard page: %w", err)
	}
	if err := d.RenderPage(page); err != nil {
		_ = page.Close()
		return 0, err
	}
	if err := page.Close(); err != nil {
		return 0, fmt.Errorf("close dashboard page: %w", err)
	}
	written := 1

	for _, v := range d.Views() {
		for _, name := range v.Owner().Names() {
			w, ok := v.Owner().Get(name)
			if !ok || w.Destroyed() {
				continue
			}
			path := filepath.Join(dir, fmt.Sprintf("%s_%s.html", v.Name(), name))
			if err := charts.RenderFile(w.Chart, path); err != nil {
				return written, fmt.Errorf("export %s/%s: %w", v.Name(), name, err)
			}
			written++
		}
	}
	return written, nil
}
