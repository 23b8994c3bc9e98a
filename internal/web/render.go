package web

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/hpungsan/mnemo/internal/errors"
	"github.com/hpungsan/mnemo/internal/logging"
	"github.com/hpungsan/mnemo/internal/session"
)

// PageData contains common fields used across all page templates.
type PageData struct {
	Title   string
	Version string
}

// CardPageData is the template data for the mnemonic card page.
type CardPageData struct {
	PageData
	SessionID    string
	Digits       string
	Words        []string
	RenderedHTML template.HTML
}

// ErrorPageData is the template data for the error page.
type ErrorPageData struct {
	PageData
	StatusCode int
	Code       string
	Message    string
}

// Renderer manages template parsing and rendering.
type Renderer struct {
	templates map[string]*template.Template
	version   string
	markdown  goldmark.Markdown
	logger    *slog.Logger
}

// NewRenderer creates a Renderer by parsing templates from the given FS.
func NewRenderer(templateFS fs.FS, version string, logger *slog.Logger) *Renderer {
	funcMap := template.FuncMap{
		"add": func(a, b int) int { return a + b },
	}

	layoutTmpl := template.Must(template.New("layout").Funcs(funcMap).ParseFS(templateFS, "layout.html"))

	pages := map[string]string{
		"card":  "card.html",
		"error": "error.html",
	}

	templates := make(map[string]*template.Template, len(pages))
	for name, file := range pages {
		t := template.Must(layoutTmpl.Clone())
		template.Must(t.ParseFS(templateFS, file))
		templates[name] = t
	}

	return &Renderer{
		templates: templates,
		version:   version,
		markdown:  goldmark.New(goldmark.WithExtensions(extension.Table)),
		logger:    logging.OrDiscard(logger),
	}
}

// renderPage renders a named page template with the given data and HTTP status code.
// For HTMX requests, only the "content" block is rendered to avoid duplicating the layout.
func (r *Renderer) renderPage(w http.ResponseWriter, req *http.Request, status int, name string, data any) {
	t, ok := r.templates[name]
	if !ok {
		r.logger.Error("template not found", "template", name)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	block := "layout"
	if req != nil && req.Header.Get("HX-Request") == "true" {
		block = "content"
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, block, data); err != nil {
		r.logger.Error("template execution failed", "template", name, "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

// renderErrorPage renders an error as HTML, or as JSON when the client asks for it.
func (r *Renderer) renderErrorPage(w http.ResponseWriter, req *http.Request, err error) {
	if strings.Contains(req.Header.Get("Accept"), "application/json") {
		writeError(w, r.logger, err)
		return
	}

	mErr := publicError(r.logger, err)
	r.renderPage(w, req, mErr.Status, "error", ErrorPageData{
		PageData: PageData{
			Title:   fmt.Sprintf("Error %d", mErr.Status),
			Version: r.version,
		},
		StatusCode: mErr.Status,
		Code:       string(mErr.Code),
		Message:    mErr.Message,
	})
}

// publicError converts err to a MnemoError safe to show to clients.
// Internal errors are logged and replaced with a generic message.
func publicError(logger *slog.Logger, err error) *errors.MnemoError {
	mErr, ok := errors.As(err)
	if !ok {
		mErr = errors.NewInternal(err)
	}
	if mErr.Code == errors.ErrInternal || mErr.Status >= 500 {
		logger.Error("request failed", "code", string(mErr.Code), "error", err)
	}
	if mErr.Code == errors.ErrInternal {
		return errors.NewInternal(nil)
	}
	return mErr
}

// writeError writes err as a JSON error envelope.
func writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	mErr := publicError(logger, err)
	body := map[string]any{
		"code":    string(mErr.Code),
		"message": mErr.Message,
		"status":  mErr.Status,
	}
	if mErr.Code != errors.ErrInternal && len(mErr.Details) > 0 {
		body["details"] = mErr.Details
	}
	renderJSON(w, mErr.Status, map[string]any{"error": body})
}

// renderJSON writes a JSON response.
func renderJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(data)
}

var markdownEscaper = strings.NewReplacer(
	`\`, `\\`, "`", "\\`", "*", `\*`, "_", `\_`, "[", `\[`, "]", `\]`,
	"<", `\<`, ">", `\>`, "#", `\#`, "|", `\|`,
)

// cardMarkdown builds the markdown body of a mnemonic card.
func cardMarkdown(snap session.Snapshot) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", markdownEscaper.Replace(snap.Input))
	b.WriteString("| # | Digits | Word | |\n|---|---|---|---|\n")
	for i, sl := range snap.Slots {
		lock := ""
		if sl.Locked {
			lock = "locked"
		}
		fmt.Fprintf(&b, "| %d | `%s` | **%s** | %s |\n",
			i+1, sl.Chunk.Value, markdownEscaper.Replace(sl.Selected), lock)
	}
	if len(snap.Words) > 0 {
		fmt.Fprintf(&b, "\n> %s\n", markdownEscaper.Replace(strings.Join(snap.Words, " ")))
	}
	return b.String()
}

// renderMarkdown converts markdown text to HTML using goldmark.
// Raw HTML in the source is omitted.
func (r *Renderer) renderMarkdown(md string) template.HTML {
	var buf bytes.Buffer
	if err := r.markdown.Convert([]byte(md), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(md))
	}
	return template.HTML(buf.String())
}
