package handler

import (
	"bytes"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sakif/bookstore/internal/model"
	"github.com/sakif/bookstore/internal/session"
)

var pageNames = []string{"index", "signup", "login", "logout", "user", "search", "book", "error"}

// page is the data every template receives. Content holds the page-specific
// part.
type page struct {
	Title    string
	Identity model.Identity
	LoggedIn bool
	Error    string
	Content  any
}

// Renderer executes the page templates. Each page is parsed together with
// base.html into its own set, so every page can define "content".
type Renderer struct {
	pages  map[string]*template.Template
	logger *slog.Logger
}

var funcs = template.FuncMap{
	"stars": func(n int) string {
		if n < 0 {
			n = 0
		}
		if n > 5 {
			n = 5
		}
		return strings.Repeat("★", n) + strings.Repeat("☆", 5-n)
	},
	"date": func(t time.Time) string {
		return t.Format("2 Jan 2006")
	},
}

func NewRenderer(templates fs.FS, logger *slog.Logger) (*Renderer, error) {
	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		tmpl, err := template.New(name).Funcs(funcs).ParseFS(templates, "base.html", name+".html")
		if err != nil {
			return nil, fmt.Errorf("parsing %s template: %w", name, err)
		}
		pages[name] = tmpl
	}
	return &Renderer{pages: pages, logger: logger}, nil
}

// render writes the named page with status. The identity in the request
// context, if any, is filled in for the header. Output is buffered so a
// template error can still produce a clean 500.
func (rn *Renderer) render(w http.ResponseWriter, r *http.Request, status int, name string, p page) {
	tmpl, ok := rn.pages[name]
	if !ok {
		rn.logger.Error("unknown template", slog.String("name", name))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	if id, ok := session.IdentityFrom(r.Context()); ok {
		p.Identity, p.LoggedIn = id, true
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "base", p); err != nil {
		rn.logger.Error("failed to render template",
			slog.String("template", name),
			slog.String("error", err.Error()),
		)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

type errorContent struct {
	Status     int
	StatusText string
	Message    string
}

// renderError shows the error page for err. Typed application errors show
// their own message; anything else is logged and shown as a generic 500.
func (rn *Renderer) renderError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	message := publicMessage(err)
	if status == http.StatusInternalServerError {
		rn.logger.Error("request failed",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
	}
	rn.renderStatus(w, r, status, message)
}

func (rn *Renderer) renderStatus(w http.ResponseWriter, r *http.Request, status int, message string) {
	rn.render(w, r, status, "error", page{
		Title: http.StatusText(status),
		Content: errorContent{
			Status:     status,
			StatusText: http.StatusText(status),
			Message:    message,
		},
	})
}
