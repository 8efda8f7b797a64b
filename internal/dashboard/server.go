// Package dashboard serves the status board UI and the JSON API over the
// tracking database. Write operations go through the reconciliation engine;
// the package itself never mutates rack state.
package dashboard

import (
	"context"
	"fmt"
	"html/template"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/zulandar/bomsync/internal/reconcile"
	"gorm.io/gorm"
)

// Reconciler is the engine surface the write endpoints drive.
// *reconcile.Engine satisfies it; tests substitute a fake.
type Reconciler interface {
	Refresh(ctx context.Context, itemNumber string, opts reconcile.RefreshOpts) (*reconcile.Result, error)
	Push(ctx context.Context, itemNumber string, opts reconcile.PushOpts) (*reconcile.Result, error)
	RecordEdit(itemNumber string, startRow, endRow int) (*reconcile.Result, error)
}

// StartOpts holds configuration for the dashboard server.
type StartOpts struct {
	DB     *gorm.DB
	Engine Reconciler
	Port   int
	Out    io.Writer
}

// Start launches the dashboard HTTP server. It blocks until ctx is cancelled,
// then shuts down gracefully.
func Start(ctx context.Context, opts StartOpts) error {
	if opts.DB == nil {
		return fmt.Errorf("dashboard: db is required")
	}
	if opts.Engine == nil {
		return fmt.Errorf("dashboard: engine is required")
	}
	if opts.Port <= 0 {
		opts.Port = 8080
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	tmpl, err := parseTemplates()
	if err != nil {
		return fmt.Errorf("dashboard: %w", err)
	}
	router.SetHTMLTemplate(tmpl)

	registerRoutes(router, opts.DB, opts.Engine)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", opts.Port),
		Handler: router,
	}

	// Graceful shutdown on context cancellation.
	go func() {
		<-ctx.Done()
		srv.Shutdown(context.Background())
	}()

	if opts.Out != nil {
		fmt.Fprintf(opts.Out, "Dashboard running at http://localhost:%d\n", opts.Port)
	}

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("dashboard: %w", err)
	}
	return nil
}

// parseTemplates loads the embedded HTML templates.
func parseTemplates() (*template.Template, error) {
	tmpl, err := template.ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return tmpl, nil
}
