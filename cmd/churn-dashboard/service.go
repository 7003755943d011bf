package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/kardianos/service"
)

// dashboardProgram implements service.Interface
type dashboardProgram struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// Start implements service.Interface
func (p *dashboardProgram) Start(s service.Service) error {
	log.Println("Starting churn dashboard service...")
	cfg, path := loadConfig()

	ctx, cancel := context.WithCancel(context.Background())
	a, err := newApp(ctx, cfg, path, true)
	if err != nil {
		cancel()
		return err
	}

	p.cancel = cancel
	p.done = make(chan struct{})
	go func() {
		defer close(p.done)
		defer a.close()
		if err := a.serve(ctx); err != nil {
			log.Printf("Dashboard stopped with error: %v", err)
		}
	}()
	return nil
}

// Stop implements service.Interface
func (p *dashboardProgram) Stop(s service.Service) error {
	log.Println("Stopping churn dashboard service...")
	if p.cancel != nil {
		p.cancel()
		<-p.done
	}
	return nil
}

// getServiceConfig returns the service configuration
func getServiceConfig() *service.Config {
	cfg := &service.Config{
		Name:        "ChurnDashboard",
		DisplayName: "Churn Analytics Dashboard",
		Description: "Serves the customer churn analytics dashboard over HTTP",
		Arguments:   []string{"service", "run"},
	}
	if *configPath != "" {
		cfg.Arguments = append([]string{"-config", *configPath}, cfg.Arguments...)
	}
	return cfg
}

// runServiceCommand handles service management commands
func runServiceCommand(args []string) {
	if len(args) < 1 {
		fmt.Println("Usage: churn-dashboard service [install|uninstall|start|stop|restart|status|run]")
		fmt.Println("\nAvailable commands:")
		fmt.Println("  install    - Install the dashboard as a system service")
		fmt.Println("  uninstall  - Uninstall the dashboard service")
		fmt.Println("  start      - Start the dashboard service")
		fmt.Println("  stop       - Stop the dashboard service")
		fmt.Println("  restart    - Restart the dashboard service")
		fmt.Println("  status     - Show dashboard service status")
		fmt.Println("  run        - Run under the service manager (used by the installed service)")
		os.Exit(1)
	}

	action := args[0]

	prg := &dashboardProgram{}
	svcConfig := getServiceConfig()
	s, err := service.New(prg, svcConfig)
	if err != nil {
		log.Fatalf("Failed to create service: %v", err)
	}

	switch action {
	case "run":
		if err := s.Run(); err != nil {
			log.Fatalf("Service failed: %v", err)
		}

	case "install":
		if err := s.Install(); err != nil {
			log.Fatalf("Failed to install service: %v", err)
		}
		fmt.Println("✓ Service installed successfully")
		fmt.Println("\nNext steps:")
		fmt.Println("  1. Start the service: churn-dashboard service start")
		fmt.Println("  2. Verify it's running: churn-dashboard service status")
		fmt.Println("  3. View logs:")
		switch service.Platform() {
		case "darwin":
			fmt.Printf("     tail -f ~/Library/Logs/%s.log\n", svcConfig.Name)
		case "windows-service":
			fmt.Println("     Check Event Viewer")
		default:
			fmt.Printf("     journalctl -u %s -f\n", svcConfig.Name)
		}

	case "uninstall":
		if err := s.Uninstall(); err != nil {
			log.Fatalf("Failed to uninstall service: %v", err)
		}
		fmt.Println("✓ Service uninstalled successfully")

	case "start":
		if err := s.Start(); err != nil {
			log.Fatalf("Failed to start service: %v", err)
		}
		fmt.Println("✓ Service started successfully")

	case "stop":
		if err := s.Stop(); err != nil {
			log.Fatalf("Failed to stop service: %v", err)
		}
		fmt.Println("✓ Service stopped successfully")

	case "restart":
		if err := s.Restart(); err != nil {
			log.Fatalf("Failed to restart service: %v", err)
		}
		fmt.Println("✓ Service restarted successfully")

	case "status":
		status, err := s.Status()
		if err != nil {
			log.Fatalf("Failed to get service status: %v", err)
		}

		fmt.Println("Service Status:")
		switch status {
		case service.StatusRunning:
			fmt.Println("  Status: ✓ Running")
		case service.StatusStopped:
			fmt.Println("  Status: ● Stopped")
		default:
			fmt.Println("  Status: ? Unknown")
		}

		fmt.Println("\nService Details:")
		fmt.Printf("  Name: %s\n", svcConfig.Name)
		fmt.Printf("  Display Name: %s\n", svcConfig.DisplayName)
		fmt.Printf("  Description: %s\n", svcConfig.Description)

	default:
		fmt.Printf("Unknown service command: %s\n", action)
		fmt.Println("Usage: churn-dashboard service [install|uninstall|start|stop|restart|status|run]")
		os.Exit(1)
	}
}
