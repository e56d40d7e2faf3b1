package rest

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

type FrontendHandler struct {
	dir   string
	index string
}

// NewFrontendHandler serves the built single-page app from dir. Paths that do not
// match a file fall back to index so client-side routes work; unknown /api paths
// get the JSON 404 body instead.
func NewFrontendHandler(dir, index string) *FrontendHandler {
	return &FrontendHandler{dir: dir, index: index}
}

func (h *FrontendHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.URL.Path, "/api/") || r.URL.Path == "/api" {
		WriteError(w, http.StatusNotFound)
		return
	}

	path := filepath.Join(h.dir, filepath.Clean("/"+r.URL.Path))
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		indexPath := filepath.Join(h.dir, h.index)
		if _, err := os.Stat(indexPath); err != nil {
			WriteError(w, http.StatusNotFound)
			return
		}
		http.ServeFile(w, r, indexPath)
		return
	}
	http.FileServer(http.Dir(h.dir)).ServeHTTP(w, r)
}
