package middleware

import (
	"net/http"
	"strings"
)

// TrimSlash strips a trailing slash from the request path. Safe methods
// are redirected to the canonical path; other methods are rewritten in
// place so that request bodies are not replayed. The root path is left
// alone.
func TrimSlash() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(r.URL.Path) <= 1 || !strings.HasSuffix(r.URL.Path, "/") {
				next.ServeHTTP(w, r)
				return
			}

			path := strings.TrimRight(r.URL.Path, "/")
			if path == "" {
				path = "/"
			}

			switch r.Method {
			case http.MethodGet, http.MethodHead:
				target := path
				if r.URL.RawQuery != "" {
					target += "?" + r.URL.RawQuery
				}
				http.Redirect(w, r, target, http.StatusMovedPermanently)
			default:
				r2 := r.Clone(r.Context())
				r2.URL.Path = path
				r2.URL.RawPath = ""
				next.ServeHTTP(w, r2)
			}
		})
	}
}
