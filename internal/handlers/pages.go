package handlers

import (
	"context"
	"io/fs"
	"net/http"
	"strings"
	"time"

	"spendlog/internal/log"
)

// Page returns a handler serving one HTML file from the static site.
func (h *Handlers) Page(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		http.ServeFileFS(w, r, h.pages, name)
	}
}

// routedPages are the HTML files that have their own route.
var routedPages = map[string]bool{
	"home":         true,
	"register":     true,
	"login":        true,
	"dashboard":    true,
	"add-expense":  true,
	"edit-expense": true,
	"settings":     true,
}

// StaticFiles serves the static tree. A routed page requested by file name
// is redirected to its route so that the same access checks apply.
func StaticFiles(static fs.FS) http.Handler {
	files := http.FileServerFS(static)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		name, ok := strings.CutSuffix(strings.TrimPrefix(r.URL.Path, "/"), ".html")
		if ok && routedPages[name] {
			target := "/" + name
			if r.URL.RawQuery != "" {
				target += "?" + r.URL.RawQuery
			}
			http.Redirect(w, r, target, http.StatusMovedPermanently)
			return
		}
		files.ServeHTTP(w, r)
	})
}

// LoginPage renders the login page, or sends a signed-in visitor to the
// dashboard.
func (h *Handlers) LoginPage(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.authenticate(w, r); ok {
		http.Redirect(w, r, "/dashboard", http.StatusFound)
		return
	}
	http.ServeFileFS(w, r, h.pages, "login.html")
}

// Health reports whether the database is reachable.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.db.Ping(ctx); err != nil {
		h.logger(r, log.ComponentStorage).Error("Health check failed", log.FieldError, err)
		writeText(w, http.StatusServiceUnavailable, "database unavailable")
		return
	}
	writeText(w, http.StatusOK, "ok")
}
