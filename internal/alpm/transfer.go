package alpm

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/cockroachdb/errors"
)

// newRequest builds a GET request carrying the tool's user agent. When
// modSince is non-zero an If-Modified-Since header is attached so the
// server can answer 304 for unchanged files.
func (h *Handle) newRequest(ctx context.Context, rawURL string, modSince time.Time) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid URL %s", rawURL)
	}
	req.Header.Set("User-Agent", userAgent)
	if !modSince.IsZero() {
		req.Header.Set("If-Modified-Since", modSince.UTC().Format(http.TimeFormat))
	}
	return req, nil
}

// saveResponse streams body into dir/name through a temporary file,
// renaming into place only after a complete, synced write. It returns
// the final path and the number of bytes written.
func saveResponse(dir, name string, body io.Reader, modTime time.Time) (string, int64, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", 0, errors.Wrap(err, "cannot create download directory")
	}
	tmp, err := os.CreateTemp(dir, "."+name+".*")
	if err != nil {
		return "", 0, errors.Wrap(err, "cannot create temporary file")
	}
	defer func() {
		tmp.Close()
		os.Remove(tmp.Name())
	}()

	n, err := io.Copy(tmp, body)
	if err != nil {
		return "", 0, errors.Wrap(err, "download interrupted")
	}
	if err := tmp.Sync(); err != nil {
		return "", 0, errors.Wrap(err, "fsync failed")
	}
	if err := tmp.Close(); err != nil {
		return "", 0, errors.Wrap(err, "close failed")
	}

	dest := filepath.Join(dir, name)
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return "", 0, errors.Wrap(err, "cannot move download into place")
	}
	if !modTime.IsZero() {
		if err := os.Chtimes(dest, modTime, modTime); err != nil {
			return "", 0, errors.Wrap(err, "cannot set modification time")
		}
	}
	if err := dirSync(dir); err != nil {
		return "", 0, errors.Wrap(err, "cannot sync download directory")
	}
	return dest, n, nil
}

// serverHost extracts the host part of a mirror URL for diagnostics,
// falling back to the raw string.
func serverHost(server string) string {
	if u, err := url.Parse(server); err == nil && u.Host != "" {
		return u.Host
	}
	return server
}
