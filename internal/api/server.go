package api

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/ramonehamilton/churn-dashboard/internal/api/handlers"
	"github.com/ramonehamilton/churn-dashboard/internal/api/websocket"
	"github.com/ramonehamilton/churn-dashboard/internal/metrics"
	"github.com/ramonehamilton/churn-dashboard/internal/views"
)

// Server serves the dashboard page, its JSON API and the event feed.
type Server struct {
	router     *chi.Mux
	httpServer *http.Server
	port       int

	// Browser auto-open configuration
	openBrowser bool

	// WebSocket hub for view and section events
	wsHub *websocket.Hub

	dashboard *views.Dashboard
	snapshots handlers.SnapshotLister
	metrics   *metrics.DashboardMetrics
	client    handlers.ClientStatsProvider

	requestTimeout time.Duration
	allowedOrigins []string
}

// Config holds configuration for the dashboard server.
type Config struct {
	Port           int
	OpenBrowser    bool          // Whether to auto-open browser on startup
	RequestTimeout time.Duration // Per-request timeout, covers synchronous view loads
	AllowedOrigins []string      // CORS and WebSocket origin patterns
}

// DefaultConfig returns the default server configuration.
func DefaultConfig() *Config {
	return &Config{
		Port:           8080,
		OpenBrowser:    false,
		RequestTimeout: 60 * time.Second,
		AllowedOrigins: []string{"http://localhost:*", "http://127.0.0.1:*"},
	}
}

// Services holds what the server exposes. Only Dashboard is required.
type Services struct {
	Dashboard *views.Dashboard
	Snapshots handlers.SnapshotLister
	Metrics   *metrics.DashboardMetrics
	Client    handlers.ClientStatsProvider
}

// NewServer creates a new dashboard server.
func NewServer(cfg *Config, services Services) *Server {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	s := &Server{
		router:         chi.NewRouter(),
		port:           cfg.Port,
		openBrowser:    cfg.OpenBrowser,
		wsHub:          websocket.NewHub(cfg.AllowedOrigins...),
		dashboard:      services.Dashboard,
		snapshots:      services.Snapshots,
		metrics:        services.Metrics,
		client:         services.Client,
		requestTimeout: timeout,
		allowedOrigins: cfg.AllowedOrigins,
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

// setupMiddleware configures the middleware stack.
func (s *Server) setupMiddleware() {
	// Request ID for tracing
	s.router.Use(middleware.RequestID)

	// Real IP detection
	s.router.Use(middleware.RealIP)

	// Logging
	s.router.Use(middleware.Logger)

	// Panic recovery
	s.router.Use(middleware.Recoverer)

	// Request timeout
	s.router.Use(middleware.Timeout(s.requestTimeout))

	// CORS configuration
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
}

// jsonContentTypeMiddleware enforces application/json content-type for requests with bodies.
func (s *Server) jsonContentTypeMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost || r.Method == http.MethodPut || r.Method == http.MethodPatch {
			// Skip if there's no content
			if r.ContentLength == 0 {
				next.ServeHTTP(w, r)
				return
			}

			contentType := r.Header.Get("Content-Type")
			if contentType == "" || (contentType != "application/json" && !strings.HasPrefix(contentType, "application/json;")) {
				http.Error(w, "Content-Type must be application/json", http.StatusUnsupportedMediaType)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the server in a goroutine.
func (s *Server) Start() error {
	// Start WebSocket hub
	go s.wsHub.Run()

	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.router,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      s.requestTimeout + 5*time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		log.Printf("[Server] Dashboard starting on port %d", s.port)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("[Server] Error: %v", err)
		}
	}()

	if s.openBrowser {
		url := fmt.Sprintf("http://localhost:%d/", s.port)
		go func() {
			time.Sleep(500 * time.Millisecond)
			if err := openBrowser(url); err != nil {
				log.Printf("[Server] Failed to open browser: %v", err)
			} else {
				log.Printf("[Server] Opened browser to %s", url)
			}
		}()
	}

	return nil
}

// openBrowser opens the specified URL in the default browser.
func openBrowser(url string) error {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}

	return cmd.Start()
}

// Shutdown stops the hub and gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.wsHub.Stop()
	if s.httpServer == nil {
		return nil
	}

	log.Println("[Server] Shutting down...")
	return s.httpServer.Shutdown(ctx)
}

// Port returns the port the server is configured to listen on.
func (s *Server) Port() int {
	return s.port
}

// WebSocketHub returns the WebSocket hub.
func (s *Server) WebSocketHub() *websocket.Hub {
	return s.wsHub
}

// NewWebSocketObserver creates an observer that forwards view and section
// events to WebSocket clients. Register it with an EventDispatcher.
func (s *Server) NewWebSocketObserver() *websocket.WebSocketObserver {
	return websocket.NewWebSocketObserver(s.wsHub, "view:", "section:", "config:")
}
