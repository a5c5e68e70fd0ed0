package app

import (
	"io/fs"
	"mime"
	"net/http"
	"path"
)

// staticTypes covers the asset extensions served from web/static; some
// minimal container images ship without a mime table for them.
var staticTypes = map[string]string{
	".css": "text/css; charset=utf-8",
	".svg": "image/svg+xml",
}

func init() {
	for ext, typ := range staticTypes {
		if mime.TypeByExtension(ext) == "" {
			_ = mime.AddExtensionType(ext, typ)
		}
	}
}

// staticHandler serves the embedded assets under /static/ with a one hour
// browser cache. Directory listings are not exposed.
func staticHandler(assets fs.FS) http.Handler {
	files := http.StripPrefix("/static/", http.FileServer(http.FS(assets)))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/static/" || path.Ext(r.URL.Path) == "" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Cache-Control", "public, max-age=3600")
		files.ServeHTTP(w, r)
	})
}
