// Package fetcher downloads the catalog feed over HTTP or FTP and decodes XLSX and CSV sheets.
package fetcher

import (
	"context"
	"io"
	"net/url"
	"strings"

	"github.com/rotisserie/eris"
)

// Fetcher defines the interface for downloading remote data.
type Fetcher interface {
	// Download fetches the URL and returns the response body.
	Download(ctx context.Context, url string) (io.ReadCloser, error)
}

// Router dispatches downloads to a Fetcher by URL scheme.
type Router struct {
	schemes map[string]Fetcher
}

// NewRouter creates a Router serving http/https with h and ftp with f.
// Either may be nil to disable that scheme.
func NewRouter(h *HTTPFetcher, f *FTPFetcher) *Router {
	r := &Router{schemes: make(map[string]Fetcher)}
	if h != nil {
		r.schemes["http"] = h
		r.schemes["https"] = h
	}
	if f != nil {
		r.schemes["ftp"] = f
	}
	return r
}

// Download routes the request to the fetcher registered for the URL scheme.
func (r *Router) Download(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, eris.Wrap(err, "parse feed url")
	}
	f, ok := r.schemes[strings.ToLower(u.Scheme)]
	if !ok {
		return nil, eris.Errorf("no fetcher for scheme %q", u.Scheme)
	}
	return f.Download(ctx, rawURL)
}
