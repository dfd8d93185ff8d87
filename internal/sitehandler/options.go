package sitehandler

import (
	"errors"
	"fmt"
	"io/fs"
	"net/http"
)

var ErrInvalidOptions = errors.New("sitehandler: invalid options")

type Options struct {
	// FS holds index.html plus any assets served under /assets/.
	FS fs.FS

	// NotFound answers paths with no file behind them. Defaults to http.NotFound.
	NotFound http.Handler

	// Cache policies applied by file extension.
	HTMLCacheControl  string // default: "no-cache"
	AssetCacheControl string // default: "public, max-age=3600"
}

func (o *Options) setDefaults() {
	if o.NotFound == nil {
		o.NotFound = http.NotFoundHandler()
	}
	if o.HTMLCacheControl == "" {
		o.HTMLCacheControl = "no-cache"
	}
	if o.AssetCacheControl == "" {
		o.AssetCacheControl = "public, max-age=3600"
	}
}

func (o *Options) validate() error {
	if o.FS == nil {
		return fmt.Errorf("%w: FS is nil", ErrInvalidOptions)
	}
	// fail at boot if mispackaged
	if _, err := fs.Stat(o.FS, "index.html"); err != nil {
		return fmt.Errorf("%w: missing index.html: %v", ErrInvalidOptions, err)
	}
	return nil
}
