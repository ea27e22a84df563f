// Package handler contains HTTP request handlers for the RSVP site.
//
// HANDLER RESPONSIBILITIES:
// 1. Parse the incoming HTTP request (query params, body, cookies)
// 2. Call the service layer
// 3. Write the HTTP response (status code, headers, body)
//
// Handlers should NOT contain business logic; they are the glue between
// HTTP and the services.
package handler

import (
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path"
	"strings"
)

// SPAHandler serves the built single-page app.
//
// Requests for existing files are served as-is; every other GET path gets
// index.html, so client-side routes survive a page reload.
type SPAHandler struct {
	root   fs.FS
	files  http.Handler
	logger *slog.Logger
}

// NewSPAHandler serves files from dir.
func NewSPAHandler(dir string, logger *slog.Logger) *SPAHandler {
	return NewSPAHandlerFS(os.DirFS(dir), logger)
}

// NewSPAHandlerFS serves files from root.
func NewSPAHandlerFS(root fs.FS, logger *slog.Logger) *SPAHandler {
	return &SPAHandler{
		root:   root,
		files:  http.FileServer(http.FS(root)),
		logger: logger,
	}
}

// ServeHTTP implements http.Handler.
func (h *SPAHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimPrefix(path.Clean("/"+r.URL.Path), "/")
	if name == "" {
		name = "index.html"
	}

	info, err := fs.Stat(h.root, name)
	if err == nil && !info.IsDir() {
		h.files.ServeHTTP(w, r)
		return
	}

	h.serveIndex(w, r)
}

func (h *SPAHandler) serveIndex(w http.ResponseWriter, r *http.Request) {
	index, err := fs.ReadFile(h.root, "index.html")
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			h.logger.Error("failed to read index.html", slog.String("error", err.Error()))
		}
		http.Error(w, "frontend not built", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	w.Write(index)
}
