// Package static serves the built PWA: its shell, manifest, service worker
// and hashed assets.
package static

import (
	"errors"
	"fmt"
	"io/fs"
	"mime"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const (
	// assets under /static carry content hashes in their names
	assetMaxAge = 31536000
	shellMaxAge = 0
)

func init() {
	// Some minimal container images lack /etc/mime.types
	_ = mime.AddExtensionType(".webmanifest", "application/manifest+json")
	_ = mime.AddExtensionType(".js", "application/javascript; charset=utf-8")
	_ = mime.AddExtensionType(".woff2", "font/woff2")
}

// Frontend serves files from a frontend build directory
type Frontend struct {
	root   string
	logger *zap.Logger
}

// NewFrontend creates a frontend for dir
func NewFrontend(dir string, logger *zap.Logger) *Frontend {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Frontend{root: dir, logger: logger}
}

// Available reports whether the build directory exists
func (f *Frontend) Available() bool {
	if f.root == "" {
		return false
	}
	info, err := os.Stat(f.root)
	return err == nil && info.IsDir()
}

// Mount registers the frontend routes on r. Nothing is mounted when the
// build directory is missing, so those paths 404.
func (f *Frontend) Mount(r chi.Router) {
	if !f.Available() {
		f.logger.Info("frontend build not found, skipping static routes", zap.String("dir", f.root))
		return
	}

	r.Get("/", f.file("index.html", shellMaxAge))
	r.Get("/manifest.json", f.file("manifest.json", shellMaxAge))
	r.Get("/sw.js", f.serviceWorker)
	r.Get("/static/*", f.assets)
	f.logger.Info("serving frontend", zap.String("dir", f.root))
}

func (f *Frontend) file(name string, maxAge int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f.serve(w, r, name, maxAge)
	}
}

// serviceWorker must never be cached by the browser or updates stall
func (f *Frontend) serviceWorker(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Service-Worker-Allowed", "/")
	f.serve(w, r, "sw.js", shellMaxAge)
}

func (f *Frontend) assets(w http.ResponseWriter, r *http.Request) {
	f.serve(w, r, path.Join("static", chi.URLParam(r, "*")), assetMaxAge)
}

func (f *Frontend) serve(w http.ResponseWriter, r *http.Request, name string, maxAge int) {
	filePath, err := f.resolve(name)
	if err != nil {
		http.NotFound(w, r)
		return
	}

	info, err := os.Stat(filePath)
	if err != nil || info.IsDir() {
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			f.logger.Warn("stat frontend file", zap.String("file", filePath), zap.Error(err))
		}
		http.NotFound(w, r)
		return
	}

	if maxAge > 0 {
		w.Header().Set("Cache-Control", fmt.Sprintf("public, max-age=%d, immutable", maxAge))
	} else {
		w.Header().Set("Cache-Control", "no-cache")
	}
	if ct := mime.TypeByExtension(filepath.Ext(filePath)); ct != "" {
		w.Header().Set("Content-Type", ct)
	}
	w.Header().Set("ETag", fmt.Sprintf(`W/"%x-%x"`, info.Size(), info.ModTime().UnixNano()))

	// ServeFile handles If-None-Match, If-Modified-Since and ranges
	http.ServeFile(w, r, filePath)
}

// resolve maps a request name into the build directory, refusing anything
// that would escape it
func (f *Frontend) resolve(name string) (string, error) {
	clean := path.Clean("/" + name)
	if strings.Contains(clean, "..") {
		return "", errors.New("invalid path")
	}

	absRoot, err := filepath.Abs(f.root)
	if err != nil {
		return "", err
	}
	absFile := filepath.Join(absRoot, filepath.FromSlash(clean))
	if absFile != absRoot && !strings.HasPrefix(absFile, absRoot+string(filepath.Separator)) {
		return "", errors.New("path escapes root")
	}
	return absFile, nil
}
