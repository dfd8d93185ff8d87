// Package sitehandler serves the embedded landing page and its assets.
package sitehandler

import (
	"io/fs"
	"net/http"
	"path"
	"strings"
)

type Handler struct {
	opts Options
}

func New(opts Options) (*Handler, error) {
	opts.setDefaults()
	if err := opts.validate(); err != nil {
		return nil, err
	}
	return &Handler{opts: opts}, nil
}

// Index serves index.html.
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, "index.html")
}

// Asset serves /assets/<name> from the root of FS.
func (h *Handler) Asset(w http.ResponseWriter, r *http.Request) {
	name, ok := resolveAsset(strings.TrimPrefix(r.URL.Path, "/assets/"))
	if !ok || !existsFile(h.opts.FS, name) {
		h.opts.NotFound.ServeHTTP(w, r)
		return
	}
	h.serve(w, r, name)
}

func (h *Handler) serve(w http.ResponseWriter, r *http.Request, name string) {
	if cc := h.cacheControl(name); cc != "" {
		w.Header().Set("Cache-Control", cc)
	}
	http.ServeFileFS(w, r, h.opts.FS, name)
}

func (h *Handler) cacheControl(name string) string {
	switch strings.ToLower(path.Ext(name)) {
	case ".html", "":
		return h.opts.HTMLCacheControl
	default:
		return h.opts.AssetCacheControl
	}
}

// resolveAsset rejects anything that is not a plain file name below the root.
func resolveAsset(p string) (string, bool) {
	if p == "" || strings.ContainsAny(p, "\x00\\") || strings.HasPrefix(p, "/") {
		return "", false
	}
	for _, seg := range strings.Split(p, "/") {
		if seg == "" || strings.HasPrefix(seg, ".") {
			return "", false
		}
	}
	if !fs.ValidPath(p) || strings.HasSuffix(p, ".html") {
		return "", false
	}
	return p, true
}

func existsFile(fsys fs.FS, name string) bool {
	fi, err := fs.Stat(fsys, name)
	return err == nil && !fi.IsDir()
}
