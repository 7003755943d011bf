// Package main runs the customer churn analytics dashboard.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/ramonehamilton/churn-dashboard/internal/config"
	"github.com/ramonehamilton/churn-dashboard/internal/storage"
	"github.com/ramonehamilton/churn-dashboard/internal/version"
)

var (
	configPath = flag.String("config", "", "Path to config file (default: ~/.churn-dashboard/config.toml)")
	port       = flag.Int("port", 0, "Dashboard port (overrides config)")
	backendURL = flag.String("backend-url", "", "Analytics backend base URL (overrides config)")
	debugMode  = flag.Bool("debug-mode", false, "Enable verbose debug logging")
	debugShort = flag.Bool("d", false, "Enable debug logging (shorthand for -debug-mode)")
)

func main() {
	flag.Usage = printUsage
	flag.Parse()

	command := "serve"
	if flag.NArg() > 0 {
		command = flag.Arg(0)
	}

	switch command {
	case "serve":
		runServeCommand()
	case "export":
		runExportCommand(flag.Args()[1:])
	case "migrate":
		runMigrationCommand(flag.Args()[1:])
	case "service":
		runServiceCommand(flag.Args()[1:])
	case "version":
		fmt.Printf("churn-dashboard %s\n", version.GetVersion())
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Customer Churn Analytics Dashboard")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  churn-dashboard [flags] [command]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  serve      Run the dashboard server (default)")
	fmt.Println("  export     Load every view and write static HTML files")
	fmt.Println("  migrate    Manage the snapshot database schema (up|down|status)")
	fmt.Println("  service    Manage the dashboard OS service (install|uninstall|start|stop|restart|status)")
	fmt.Println("  version    Print the version")
	fmt.Println()
	fmt.Println("Flags:")
	flag.PrintDefaults()
}

// resolveConfigPath returns the config file in use, falling back to the default location.
func resolveConfigPath() string {
	if *configPath != "" {
		return *configPath
	}
	path, err := config.DefaultPath()
	if err != nil {
		log.Printf("Could not resolve default config path: %v", err)
		return ""
	}
	return path
}

// loadConfig loads and validates the config file, then applies flag overrides.
func loadConfig() (*config.Config, string) {
	path := resolveConfigPath()

	cfg := config.DefaultConfig()
	if path != "" {
		loaded, err := config.LoadFile(path)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		cfg = loaded
	}

	if *port != 0 {
		cfg.Server.Port = *port
	}
	if *backendURL != "" {
		cfg.Backend.BaseURL = *backendURL
	}
	if *debugMode || *debugShort {
		cfg.App.DebugMode = true
	}

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	return cfg, path
}

func runServeCommand() {
	cfg, path := loadConfig()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, path, true)
	if err != nil {
		log.Fatalf("Failed to start dashboard: %v", err)
	}
	defer a.close()

	fmt.Printf("Dashboard running at http://localhost:%d\n", cfg.Server.Port)
	fmt.Printf("Analytics backend: %s\n", cfg.Backend.BaseURL)
	fmt.Println("Press Ctrl+C to stop")

	if err := a.serve(ctx); err != nil {
		log.Printf("Dashboard stopped with error: %v", err)
		return
	}
	fmt.Println("Dashboard stopped.")
}

func runMigrationCommand(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: churn-dashboard migrate [up|down|status|steps <n>]")
		os.Exit(1)
	}

	cfg, _ := loadConfig()
	dbPath, err := cfg.StoragePath()
	if err != nil {
		log.Fatalf("Error resolving database path: %v", err)
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		log.Fatalf("Error creating database directory: %v", err)
	}

	mgr, err := storage.NewMigrationManager(dbPath)
	if err != nil {
		log.Fatalf("Error creating migration manager: %v", err)
	}
	defer func() {
		if err := mgr.Close(); err != nil {
			log.Printf("Error closing migration manager: %v", err)
		}
	}()

	switch args[0] {
	case "up":
		fmt.Println("Applying all pending migrations...")
		if err := mgr.Up(); err != nil {
			log.Fatalf("Error applying migrations: %v", err)
		}
	case "down":
		fmt.Println("Rolling back all migrations...")
		if err := mgr.Down(); err != nil {
			log.Fatalf("Error rolling back migration: %v", err)
		}
	case "steps":
		if len(args) < 2 {
			fmt.Println("Usage: churn-dashboard migrate steps <n>")
			os.Exit(1)
		}
		n, err := strconv.Atoi(args[1])
		if err != nil {
			log.Fatalf("Invalid step count: %v", err)
		}
		if err := mgr.Steps(n); err != nil {
			log.Fatalf("Error migrating %d steps: %v", n, err)
		}
	case "status", "version":
	default:
		fmt.Printf("Unknown migrate command: %s\n", args[0])
		os.Exit(1)
	}

	current, dirty, err := mgr.Version()
	if err != nil {
		log.Fatalf("Error getting version: %v", err)
	}
	if dirty {
		fmt.Printf("Current version: %d (dirty - migration failed or interrupted)\n", current)
	} else {
		fmt.Printf("Current version: %d\n", current)
	}
}
