// Package view renders the dashboard's server-side HTML pages.
package view

import (
	"bytes"
	"errors"
	"html/template"
	"net/http"
	"sync"
	"time"

	"github.com/ttl-analytics/insights-dashboard/web"
)

// ErrNoEngine is returned by Render on a nil engine.
var ErrNoEngine = errors.New("view: template engine not initialised")

// templateGlobs are parsed in order so pages can reference layouts and partials.
var templateGlobs = []string{
	"templates/layouts/*.html",
	"templates/partials/*.html",
	"templates/pages/*.html",
}

var buffers = sync.Pool{New: func() any { return new(bytes.Buffer) }}

// Engine renders HTML templates.
type Engine struct {
	templates *template.Template
}

// TemplateData contains values shared across templates.
type TemplateData struct {
	Title       string
	CurrentPath string
	// RefreshURL, when set, makes the page reload itself after RefreshAfter seconds.
	RefreshURL   string
	RefreshAfter int
	Data         any
}

func funcs() template.FuncMap {
	return template.FuncMap{
		"formatDate": func(t time.Time) string {
			if t.IsZero() {
				return ""
			}
			return t.Format("02 Jan 2006 15:04")
		},
	}
}

// NewEngine parses the embedded templates.
func NewEngine() (*Engine, error) {
	tpl, err := template.New("root").Funcs(funcs()).ParseFS(web.Templates, templateGlobs...)
	if err != nil {
		return nil, err
	}
	return &Engine{templates: tpl}, nil
}

// Render executes the named template. Nothing is written to w unless the
// whole page rendered.
func (e *Engine) Render(w http.ResponseWriter, name string, data TemplateData) error {
	if e == nil {
		return ErrNoEngine
	}
	buf := buffers.Get().(*bytes.Buffer)
	buf.Reset()
	defer buffers.Put(buf)

	if err := e.templates.ExecuteTemplate(buf, name, data); err != nil {
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, err := buf.WriteTo(w)
	return err
}
