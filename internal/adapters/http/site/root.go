// Package site serves the embedded stylesheet and other static assets of the
// dashboard page.
package site

import (
	"context"
	"errors"
	"net/http"
)

// Prefix is the URL path static assets are mounted under.
const Prefix = "/assets/"

// ErrNilMux is the panic value when Register is given no mux.
var ErrNilMux = errors.New("site: mux is nil")

// Register attaches the static asset routes to mux.
func Register(_ context.Context, mux *http.ServeMux) {
	if mux == nil {
		panic(ErrNilMux)
	}
	mux.Handle(Prefix, NewAssetHandler())
}

// AssetHandler serves GET requests for embedded assets.
type AssetHandler struct {
	files http.Handler
}

// NewAssetHandler creates a handler for paths under Prefix.
func NewAssetHandler() *AssetHandler {
	return &AssetHandler{files: http.StripPrefix(Prefix, http.FileServer(FS()))}
}

func (h *AssetHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.NotFound(w, r)
		return
	}
	// Directory listings are not served.
	if r.URL.Path == Prefix {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Cache-Control", "public, max-age=3600")
	h.files.ServeHTTP(w, r)
}
