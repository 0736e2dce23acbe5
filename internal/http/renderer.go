package httpx

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"strconv"

	domainauth "github.com/target/storefront-gate/internal/domain/auth"
)

// PageData is the view model shared by every page template.
type PageData struct {
	Title       string
	Page        string
	Location    string // same-origin path the page links back to
	LoginURL    string
	Profile     *domainauth.Profile
	AutoRefresh bool // reload the page after a second
}

// TemplateRenderer renders the placeholder pages served by the gateway.
type TemplateRenderer struct {
	pages   map[string]*template.Template
	fsys    fs.FS
	devMode bool
	logger  *slog.Logger
}

// TemplateRendererConfig holds configuration for creating a TemplateRenderer.
type TemplateRendererConfig struct {
	TemplateFS fs.FS        // Filesystem containing layout.html and one file per page (required)
	DevMode    bool         // Re-parse templates on every render
	Logger     *slog.Logger // Logger for template errors (optional)
}

// NewTemplateRenderer parses the layout and every page in Pages().
func NewTemplateRenderer(cfg TemplateRendererConfig) (*TemplateRenderer, error) {
	if cfg.TemplateFS == nil {
		return nil, errors.New("TemplateFS is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := &TemplateRenderer{fsys: cfg.TemplateFS, devMode: cfg.DevMode, logger: logger}
	pages, err := parsePages(cfg.TemplateFS)
	if err != nil {
		logger.Error("template parsing failed",
			slog.Any("error", err),
			slog.String("phase", "initialization"),
		)
		return nil, err
	}
	r.pages = pages
	return r, nil
}

func parsePages(fsys fs.FS) (map[string]*template.Template, error) {
	base, err := template.New("root").ParseFS(fsys, "layout.html")
	if err != nil {
		return nil, err
	}
	pages := make(map[string]*template.Template, len(Pages()))
	for _, name := range Pages() {
		t, cloneErr := base.Clone()
		if cloneErr != nil {
			return nil, cloneErr
		}
		if _, err = t.ParseFS(fsys, name+".html"); err != nil {
			return nil, fmt.Errorf("page %s: %w", name, err)
		}
		pages[name] = t
	}
	return pages, nil
}

// Render writes data.Page with the given status. HTMX requests get only the
// content fragment.
func (r *TemplateRenderer) Render(w http.ResponseWriter, req *http.Request, status int, data PageData) error {
	pages := r.pages
	if r.devMode {
		reloaded, err := parsePages(r.fsys)
		if err != nil {
			r.logTemplateError(data.Page, err)
			return err
		}
		pages = reloaded
	}

	t, ok := pages[data.Page]
	if !ok {
		err := fmt.Errorf("unknown page %q", data.Page)
		r.logTemplateError(data.Page, err)
		return err
	}

	name := "layout"
	if WantsPartial(req) {
		name = "content"
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, name, data); err != nil {
		r.logTemplateError(data.Page, err)
		return err
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		// Headers are already sent; the client went away.
		r.logger.Debug("failed to write rendered template",
			slog.String("template", data.Page),
			slog.Any("error", err),
		)
	}
	return nil
}

func (r *TemplateRenderer) logTemplateError(page string, err error) {
	r.logger.Error("template execution failed",
		slog.String("template", page),
		slog.Any("error", err),
	)
}

// renderPage renders through r, falling back to plain text when r is nil or
// rendering fails before anything was written.
func renderPage(w http.ResponseWriter, req *http.Request, r *TemplateRenderer, status int, data PageData) {
	if r != nil {
		if err := r.Render(w, req, status, data); err == nil {
			return
		}
	}
	http.Error(w, data.Title, status)
}
