// Package http serves the expense dashboard.
package http

import (
	"context"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"budgetdash/internal/controller"
	applog "budgetdash/internal/log"
	"budgetdash/internal/middleware/ratelimit"
	"budgetdash/internal/middleware/security"
	"budgetdash/internal/middleware/trace"
	appweb "budgetdash/web"
)

// Dashboard is the controller surface the handlers drive.
type Dashboard interface {
	Load(ctx context.Context) error
	AddExpense(ctx context.Context, form controller.AddForm) error
	DeleteExpense(ctx context.Context, id string, confirm controller.Confirmer) error
}

// Settings are the display values the page template needs besides the
// dashboard state.
type Settings struct {
	CurrencySymbol string
	Budget         string
	// RequestTimeout bounds the controller work of each request.
	RequestTimeout time.Duration
}

type Server struct {
	http.Server
	templates *template.Template
	dashboard Dashboard
	page      *Page
	settings  Settings
	limiter   *ratelimit.Limiter
	detector  *security.Detector
	logger    *applog.Logger
	started   time.Time

	shutdownOnce sync.Once
}

// NewServer configures routes and templates, returning a ready-to-run server.
func NewServer(addr string, dashboard Dashboard, page *Page, settings Settings, logger *applog.Logger) (*Server, error) {
	if settings.RequestTimeout <= 0 {
		settings.RequestTimeout = 30 * time.Second
	}
	t, err := template.ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	s := &Server{
		templates: t,
		dashboard: dashboard,
		page:      page,
		settings:  settings,
		limiter:   ratelimit.NewLimiter(ratelimit.DefaultConfig()),
		detector:  security.NewDetector(),
		logger:    logger.WithComponent(applog.ComponentHTTP),
		started:   time.Now(),
	}

	mux := http.NewServeMux()

	static, err := fs.Sub(appweb.StaticFS, "static")
	if err != nil {
		return nil, fmt.Errorf("mount static assets: %w", err)
	}
	mux.Handle("GET /static/", security.StaticAssetMiddleware(3600)(
		http.StripPrefix("/static/", http.FileServer(http.FS(static)))))

	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /ui/dashboard", s.handleDashboard)
	mux.HandleFunc("POST /expenses", s.handleCreateExpense)
	mux.HandleFunc("POST /expenses/{id}/delete", s.handleDeleteExpense)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	var h http.Handler = mux
	h = s.limiter.Middleware(s.detector.ExtractClientIP, nil, http.MethodPost)(h)
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)
	h = s.detector.Middleware(s.logger)(h)
	h = trace.NewMiddleware(logger, s.detector.ExtractClientIP).Middleware(h)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      2 * settings.RequestTimeout,
		IdleTimeout:       120 * time.Second,
	}
	return s, nil
}

// Shutdown gracefully shuts down the server and its cleanup routines
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}
