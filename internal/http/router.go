package http

import (
	"net/http"
	"strings"
)

// RouterConfig wires handlers and middleware into the router.
type RouterConfig struct {
	Runs       *RunHandler
	Middleware []func(http.Handler) http.Handler
}

// NewRouter builds the HTTP routing table.
func NewRouter(cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()

	if cfg.Runs != nil {
		mux.HandleFunc("/runs", func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet:
				cfg.Runs.List(w, r)
			case http.MethodPost:
				cfg.Runs.Create(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodPost)
			}
		})
		mux.HandleFunc("/runs/", func(w http.ResponseWriter, r *http.Request) {
			id := strings.TrimPrefix(r.URL.Path, "/runs/")
			if id == "" {
				http.NotFound(w, r)
				return
			}
			ctx := ContextWithRunID(r.Context(), id)
			r = r.WithContext(ctx)
			switch r.Method {
			case http.MethodGet:
				cfg.Runs.Get(w, r)
			case http.MethodDelete:
				cfg.Runs.Delete(w, r)
			default:
				methodNotAllowed(w, http.MethodGet, http.MethodDelete)
			}
		})
	}

	var handler http.Handler = mux
	for i := len(cfg.Middleware) - 1; i >= 0; i-- {
		if cfg.Middleware[i] != nil {
			handler = cfg.Middleware[i](handler)
		}
	}
	return handler
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	if len(allowed) > 0 {
		w.Header().Set("Allow", strings.Join(allowed, ", "))
	}
	http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
}
