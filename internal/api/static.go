package api

import (
	"errors"
	"io/fs"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// handleStatic serves the built widget from dir, falling back to index.html
// for client-side routes. Without a build it answers with a short JSON note.
func handleStatic(dir string) http.HandlerFunc {
	files := http.FileServer(http.Dir(dir))
	index := filepath.Join(dir, "index.html")

	return func(w http.ResponseWriter, r *http.Request) {
		if dir == "" {
			notBuilt(w)
			return
		}
		clean := path.Clean("/" + r.URL.Path)
		fi, err := os.Stat(filepath.Join(dir, filepath.FromSlash(clean)))
		if err == nil && !fi.IsDir() {
			files.ServeHTTP(w, r)
			return
		}
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			httpError(w, http.StatusInternalServerError, "api_error", "reading static files")
			return
		}
		// Missing asset files are real 404s; anything else is an app route.
		if strings.Contains(path.Base(clean), ".") && clean != "/" {
			http.NotFound(w, r)
			return
		}
		if _, err := os.Stat(index); err != nil {
			notBuilt(w)
			return
		}
		http.ServeFile(w, r, index)
	}
}

func notBuilt(w http.ResponseWriter) {
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Dobbs assistant API is running. The chat widget has not been built.",
	})
}
