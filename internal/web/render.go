package web

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/hpungsan/cassettes/internal/errors"
	"github.com/hpungsan/cassettes/internal/logging"
	"github.com/hpungsan/cassettes/internal/tape"
)

// PageData contains common fields used across all page templates.
type PageData struct {
	Title   string
	Version string
	Nav     string // active nav item: "tapes", "new", "help"
}

// ListPageData is the template data for the tape list page.
type ListPageData struct {
	PageData
	Items     []tape.Tape
	Query     string
	Filtering bool
	Count     int
	Status    string
}

// FormPageData is the template data for the add and edit dialogs.
type FormPageData struct {
	PageData
	Tape  tape.Tape // ID is zero when adding
	IsNew bool
	Error string
	Field string // name of the field the error is about
}

// HelpPageData is the template data for the help page.
type HelpPageData struct {
	PageData
	Content template.HTML
}

// ErrorPageData is the template data for the error page.
type ErrorPageData struct {
	PageData
	StatusCode int
	Message    string
}

// Renderer manages template parsing and rendering.
type Renderer struct {
	templates map[string]*template.Template
	help      template.HTML
	version   string
}

// NewRenderer parses every page template from templateFS and renders the
// markdown help text once.
func NewRenderer(templateFS fs.FS, version string) (*Renderer, error) {
	layout, err := template.New("layout").ParseFS(templateFS, "layout.html")
	if err != nil {
		return nil, fmt.Errorf("parse layout: %w", err)
	}

	pages := map[string]string{
		"list":  "list.html",
		"form":  "form.html",
		"help":  "help.html",
		"error": "error.html",
	}

	templates := make(map[string]*template.Template, len(pages))
	for name, file := range pages {
		t, err := layout.Clone()
		if err != nil {
			return nil, err
		}
		if _, err := t.ParseFS(templateFS, file); err != nil {
			return nil, fmt.Errorf("parse %s: %w", file, err)
		}
		templates[name] = t
	}

	md, err := fs.ReadFile(templateFS, "help.md")
	if err != nil {
		return nil, fmt.Errorf("read help: %w", err)
	}
	help, err := renderMarkdown(md)
	if err != nil {
		return nil, fmt.Errorf("render help: %w", err)
	}

	return &Renderer{
		templates: templates,
		help:      help,
		version:   version,
	}, nil
}

// page builds the common page fields.
func (r *Renderer) page(title, nav string) PageData {
	return PageData{Title: title, Version: r.version, Nav: nav}
}

// renderPage renders a named page template with the given data and HTTP 200 status.
func (r *Renderer) renderPage(w http.ResponseWriter, req *http.Request, name string, data any) {
	r.renderPageStatus(w, req, http.StatusOK, name, data)
}

// renderPageStatus renders a full page, or only its "content" block for
// htmx requests so the layout is not duplicated.
func (r *Renderer) renderPageStatus(w http.ResponseWriter, req *http.Request, status int, name string, data any) {
	block := "layout"
	if isHX(req) {
		block = "content"
	}
	r.renderBlock(w, req, status, name, block, data)
}

// renderBlock renders a specific named block from a page template.
func (r *Renderer) renderBlock(w http.ResponseWriter, req *http.Request, status int, page, block string, data any) {
	log := logging.FromContext(req.Context())

	t, ok := r.templates[page]
	if !ok {
		log.Error().Str("template", page).Msg("template not found")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, block, data); err != nil {
		log.Error().Err(err).Str("template", page).Str("block", block).Msg("template execution failed")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

// renderError renders an error response with content negotiation.
func (r *Renderer) renderError(w http.ResponseWriter, req *http.Request, err error) {
	var cErr *errors.CatalogError
	if !stderrors.As(err, &cErr) {
		cErr = errors.NewInternal(err)
	}

	status := cErr.Status
	message := cErr.Message
	if status >= 500 {
		log := logging.FromContext(req.Context())
		log.Error().Err(err).Msg("request failed")
		// Driver messages stay in the log.
		message = "the catalog could not be read or written"
	}

	if isHX(req) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(status)
		fmt.Fprintf(w, `<div class="error-message" role="alert">%s</div>`, template.HTMLEscapeString(message))
		return
	}

	if wantsJSON(req) {
		renderJSON(w, status, map[string]any{
			"error": map[string]any{
				"code":    string(cErr.Code),
				"message": message,
				"status":  status,
			},
		})
		return
	}

	r.renderPageStatus(w, req, status, "error", ErrorPageData{
		PageData:   r.page(fmt.Sprintf("Erreur %d", status), ""),
		StatusCode: status,
		Message:    message,
	})
}

// renderJSON writes a JSON response.
func renderJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// renderMarkdown converts markdown to HTML. Raw HTML in the source is not
// passed through.
func renderMarkdown(md []byte) (template.HTML, error) {
	gm := goldmark.New(goldmark.WithExtensions(extension.Table, extension.Typographer))

	var buf bytes.Buffer
	if err := gm.Convert(md, &buf); err != nil {
		return "", err
	}
	return template.HTML(buf.String()), nil
}

func isHX(req *http.Request) bool {
	return req != nil && req.Header.Get("HX-Request") == "true"
}

func wantsJSON(req *http.Request) bool {
	return strings.Contains(req.Header.Get("Accept"), "application/json")
}
