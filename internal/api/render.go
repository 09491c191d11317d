package api

import (
	"html/template"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"notesapp/internal/auth"
)

const flashCookieName = "flash"

// Flash is a one-shot message shown on the next rendered page.
type Flash struct {
	Category string
	Message  string
}

func parseTemplates(dir string) (map[string]*template.Template, error) {
	templates := map[string]*template.Template{}
	layout := filepath.Join(dir, "layout.html")
	pages, err := filepath.Glob(filepath.Join(dir, "*.html"))
	if err != nil {
		return nil, err
	}
	for _, page := range pages {
		if filepath.Base(page) == "layout.html" {
			continue
		}
		t, err := template.ParseFiles(layout, page)
		if err != nil {
			return nil, err
		}
		name := strings.TrimSuffix(filepath.Base(page), ".html")
		templates[name] = t
	}
	return templates, nil
}

func (h *Handlers) setFlash(w http.ResponseWriter, category, message string) {
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookieName,
		Value:    url.QueryEscape(category + "|" + message),
		Path:     "/",
		HttpOnly: true,
	})
}

func (h *Handlers) popFlash(w http.ResponseWriter, r *http.Request) *Flash {
	cookie, err := r.Cookie(flashCookieName)
	if err != nil {
		return nil
	}
	http.SetCookie(w, &http.Cookie{Name: flashCookieName, Path: "/", MaxAge: -1})
	decoded, err := url.QueryUnescape(cookie.Value)
	if err != nil {
		return nil
	}
	category, message, ok := strings.Cut(decoded, "|")
	if !ok {
		return nil
	}
	return &Flash{Category: category, Message: message}
}

func (h *Handlers) render(w http.ResponseWriter, r *http.Request, name string, data map[string]any) {
	h.renderStatus(w, r, http.StatusOK, name, data)
}

func (h *Handlers) renderStatus(w http.ResponseWriter, r *http.Request, status int, name string, data map[string]any) {
	t, ok := h.tmpl[name]
	if !ok {
		h.log.Error("template not found", zap.String("template", name))
		http.Error(w, "template not found", http.StatusInternalServerError)
		return
	}
	if data == nil {
		data = map[string]any{}
	}
	data["Flash"] = h.popFlash(w, r)
	_, loggedIn := auth.GetUserIDFromContext(r.Context())
	data["LoggedIn"] = loggedIn

	w.WriteHeader(status)
	if err := t.ExecuteTemplate(w, "layout", data); err != nil {
		h.log.Error("render error", zap.String("template", name), zap.Error(err))
	}
}

func (h *Handlers) notFound(w http.ResponseWriter, r *http.Request) {
	h.renderStatus(w, r, http.StatusNotFound, "404", nil)
}

func (h *Handlers) forbidden(w http.ResponseWriter, r *http.Request) {
	h.renderStatus(w, r, http.StatusForbidden, "403", nil)
}

func (h *Handlers) serverError(w http.ResponseWriter, r *http.Request, err error) {
	h.log.Error("server error", zap.String("path", r.URL.Path), zap.Error(err))
	h.renderStatus(w, r, http.StatusInternalServerError, "500", nil)
}
