// Package gateway is the public entry point of the platform. It owns no
// business logic: requests are forwarded verbatim, Authorization headers
// included, to the auth and catalog services.
package gateway

import (
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"

	"github.com/dpolyakov/minimart/internal/logging"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type Gateway struct {
	log logging.Logger
}

func New(log logging.Logger) *Gateway {
	return &Gateway{log: log.With("module", "gateway")}
}

// newProxy builds a reverse proxy to a backend base URL. Paths are forwarded
// unchanged; the backends register the full /api/... routes themselves.
func (g *Gateway) newProxy(backend *url.URL) *httputil.ReverseProxy {
	proxy := httputil.NewSingleHostReverseProxy(backend)
	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		g.log.Error(r.Context(), "backend unreachable", "backend", backend.Host, "path", r.URL.Path, "error", err.Error())
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadGateway)
		fmt.Fprint(w, `{"error":{"code":"bad_gateway","message":"upstream unavailable"}}`)
	}
	return proxy
}

// Routes mounts the auth and catalog backends under their path prefixes.
func (g *Gateway) Routes(authURL, catalogURL string) (http.Handler, error) {
	auth, err := url.Parse(authURL)
	if err != nil {
		return nil, fmt.Errorf("invalid auth service url: %w", err)
	}
	catalog, err := url.Parse(catalogURL)
	if err != nil {
		return nil, fmt.Errorf("invalid catalog service url: %w", err)
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Handle("/api/auth/*", g.newProxy(auth))
	r.Handle("/api/products", g.newProxy(catalog))
	r.Handle("/api/products/*", g.newProxy(catalog))

	return r, nil
}
