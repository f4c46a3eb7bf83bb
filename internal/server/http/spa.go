package httpserver

import (
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// spa serves the built front end from a directory.
type spa struct {
	dir string
}

func newSPA(dir string) *spa { return &spa{dir: dir} }

// index serves index.html with the given status. A missing bundle still
// answers with the status so routing stays observable without a build.
func (p *spa) index(status int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if p.dir != "" {
			if b, err := os.ReadFile(filepath.Join(p.dir, "index.html")); err == nil {
				w.Header().Set("Content-Type", "text/html; charset=utf-8")
				w.WriteHeader(status)
				_, _ = w.Write(b)
				return
			}
		}
		http.Error(w, http.StatusText(status), status)
	}
}

// fallback serves static files that exist on disk and the 404 page otherwise.
func (p *spa) fallback(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}
	if p.dir != "" {
		clean := path.Clean("/" + r.URL.Path)
		if !strings.HasSuffix(clean, "/") {
			full := filepath.Join(p.dir, filepath.FromSlash(clean))
			if st, err := os.Stat(full); err == nil && !st.IsDir() {
				http.ServeFile(w, r, full)
				return
			}
		}
	}
	p.index(http.StatusNotFound)(w, r)
}
