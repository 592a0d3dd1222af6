// Package static serves files from a document root for every path the
// API does not claim. It resolves "/" to index.html, maps extensions to
// MIME types, and refuses paths that escape the root.
package static

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/parkd-io/parkd/internal/httpd"
)

// mimeTypes maps the extensions the frontend actually ships.
var mimeTypes = map[string]string{
	".html": "text/html",
	".css":  "text/css",
	".js":   "application/javascript",
	".json": "application/json",
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".ico":  "image/x-icon",
}

// Resolver maps request paths to files under a document root.
type Resolver struct {
	root   string
	logger zerolog.Logger
}

// NewResolver creates a resolver rooted at dir.
func NewResolver(dir string, logger zerolog.Logger) *Resolver {
	return &Resolver{root: dir, logger: logger}
}

// Handler serves one static-file request.
func (r *Resolver) Handler(req *httpd.Request) *httpd.Response {
	content, mime, ok := r.Resolve(req.Path)
	if !ok {
		return httpd.JSON(404, false, "File not found", nil)
	}

	resp := httpd.NewResponse(200)
	resp.Header["Content-Type"] = mime
	resp.Body = content
	return resp
}

// Resolve returns the content and MIME type for a request path, or
// ok=false when the file is missing or the path escapes the root.
func (r *Resolver) Resolve(path string) (content []byte, mime string, ok bool) {
	if path == "/" {
		path = "/index.html"
	}

	// Clean before joining so ".." segments collapse, then verify the
	// result is still inside the root.
	full := filepath.Join(r.root, filepath.Clean("/"+path))
	rel, err := filepath.Rel(r.root, full)
	if err != nil || strings.HasPrefix(rel, "..") {
		r.logger.Warn().Str("path", path).Msg("static path escapes document root")
		return nil, "", false
	}

	data, err := os.ReadFile(full)
	if err != nil {
		r.logger.Debug().Str("path", full).Err(err).Msg("static file not found")
		return nil, "", false
	}
	return data, mimeFor(full), true
}

func mimeFor(path string) string {
	ext := strings.ToLower(filepath.Ext(path))
	if m, ok := mimeTypes[ext]; ok {
		return m
	}
	return "application/octet-stream"
}
