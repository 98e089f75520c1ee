package alpm

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"log/slog"
	"net/http"
	"os"
	pathpkg "path"
	"path/filepath"
	"strings"
	"time"

	"github.com/cheggaaa/pb/v3"
	"github.com/cockroachdb/errors"
	"golang.org/x/sync/errgroup"
)

// FetchRequest names one remote package archive and the expected
// properties recorded in its database entry. Size and SHA256 are
// optional; zero values skip the corresponding check.
type FetchRequest struct {
	URL    string
	Size   int64
	SHA256 string
}

// Fetch downloads each requested archive into the first writable cache
// directory, skipping files already cached. It returns the local path
// for every request, in request order. Transfers run concurrently up to
// the handle's parallel download limit.
func (h *Handle) Fetch(ctx context.Context, reqs []FetchRequest) ([]string, error) {
	if len(reqs) == 0 {
		return nil, nil
	}
	destDir, err := h.writableCacheDir()
	if err != nil {
		return nil, err
	}

	paths := make([]string, len(reqs))
	sem := make(chan struct{}, h.maxParallel)
	g, ctx := errgroup.WithContext(ctx)
	for i, req := range reqs {
		g.Go(func() error {
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				return ctx.Err()
			}
			defer func() { <-sem }()

			p, err := h.fetchOne(ctx, req, destDir)
			if err != nil {
				return err
			}
			paths[i] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return paths, nil
}

// fetchOne resolves a single request against the cache, downloading and
// checksumming the archive when absent, then collects its detached
// signature when the remote policy checks package signatures.
func (h *Handle) fetchOne(ctx context.Context, req FetchRequest, destDir string) (string, error) {
	name := pathpkg.Base(req.URL)
	if name == "." || name == "/" || name == "" {
		return "", errors.Newf("cannot derive file name from URL %s", req.URL)
	}

	if cached := h.findCached(name, req.Size); cached != "" {
		slog.Debug("package already cached", "file", name, "path", cached)
		if h.RemoteFileSigLevel()&SigPackage != 0 {
			if err := h.fetchSignature(ctx, req.URL, filepath.Dir(cached), name); err != nil {
				return "", err
			}
		}
		return cached, nil
	}

	h.emitDownload(name, DownloadEvent{Kind: DownloadInit, Total: req.Size})
	dest, err := h.downloadPackage(ctx, req, destDir, name)
	if err != nil {
		h.emitDownload(name, DownloadEvent{Kind: DownloadCompleted, Result: DownloadFailed})
		return "", err
	}
	h.emitDownload(name, DownloadEvent{Kind: DownloadCompleted, Result: DownloadSuccess, Total: req.Size})

	if h.RemoteFileSigLevel()&SigPackage != 0 {
		if err := h.fetchSignature(ctx, req.URL, destDir, name); err != nil {
			return "", err
		}
	}
	return dest, nil
}

// findCached returns the cached location of name, or "" when no cache
// directory holds a file of the expected size.
func (h *Handle) findCached(name string, size int64) string {
	for _, dir := range h.cacheDirs {
		p := filepath.Join(dir, name)
		st, err := os.Stat(p)
		if err != nil || st.IsDir() {
			continue
		}
		if size > 0 && st.Size() != size {
			continue
		}
		return p
	}
	return ""
}

// writableCacheDir returns the first cache directory that exists or can
// be created and accepts writes.
func (h *Handle) writableCacheDir() (string, error) {
	for _, dir := range h.cacheDirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			continue
		}
		probe, err := os.CreateTemp(dir, ".pacfetch-probe-*")
		if err != nil {
			continue
		}
		probe.Close()
		os.Remove(probe.Name())
		return dir, nil
	}
	return "", errors.New("no writable cache directory")
}

func (h *Handle) downloadPackage(ctx context.Context, req FetchRequest, destDir, name string) (string, error) {
	hreq, err := h.newRequest(ctx, req.URL, time.Time{})
	if err != nil {
		return "", err
	}
	resp, err := h.client.Do(hreq)
	if err != nil {
		return "", errors.Wrapf(err, "failed retrieving file '%s'", name)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", errors.Newf("failed retrieving file '%s' from %s: status %s", name, req.URL, resp.Status)
	}

	var body io.Reader = resp.Body
	var bar *pb.ProgressBar
	if h.showProgress {
		total := req.Size
		if total <= 0 {
			total = resp.ContentLength
		}
		if total > 0 {
			bar = pb.Full.Start64(total)
			bar.Set(pb.Bytes, true)
			bar.SetWriter(os.Stderr)
			body = bar.NewProxyReader(resp.Body)
		}
	}
	if bar != nil {
		defer bar.Finish()
	}

	sum := sha256.New()
	dest, n, err := saveResponse(destDir, name, io.TeeReader(body, sum), time.Time{})
	if err != nil {
		return "", err
	}
	if req.Size > 0 && n != req.Size {
		os.Remove(dest)
		return "", errors.Newf("size mismatch for %s: got %d, expected %d", name, n, req.Size)
	}
	if req.SHA256 != "" {
		if got := hex.EncodeToString(sum.Sum(nil)); !strings.EqualFold(got, req.SHA256) {
			os.Remove(dest)
			return "", errors.Newf("invalid checksum for %s", name)
		}
	}
	return dest, nil
}

// fetchSignature retrieves the package's detached signature companion.
// Absence is tolerated when the policy marks package signatures
// optional.
func (h *Handle) fetchSignature(ctx context.Context, pkgURL, destDir, name string) error {
	sigName := name + ".sig"
	if h.findCached(sigName, 0) != "" {
		return nil
	}
	hreq, err := h.newRequest(ctx, pkgURL+".sig", time.Time{})
	if err != nil {
		return err
	}
	resp, err := h.client.Do(hreq)
	if err == nil {
		defer resp.Body.Close()
		if resp.StatusCode == http.StatusOK {
			h.emitDownload(sigName, DownloadEvent{Kind: DownloadInit, Total: resp.ContentLength})
			if _, _, err := saveResponse(destDir, sigName, resp.Body, time.Time{}); err != nil {
				h.emitDownload(sigName, DownloadEvent{Kind: DownloadCompleted, Result: DownloadFailed})
				return err
			}
			h.emitDownload(sigName, DownloadEvent{Kind: DownloadCompleted, Result: DownloadSuccess})
			return nil
		}
	}
	if h.RemoteFileSigLevel()&SigPackageOptional != 0 {
		if err != nil {
			slog.Debug("signature not retrieved", "file", sigName, "error", err)
		} else {
			slog.Debug("signature not available", "file", sigName, "status", resp.Status)
		}
		return nil
	}
	if err != nil {
		return errors.Wrapf(err, "failed retrieving file '%s'", sigName)
	}
	return errors.Newf("failed retrieving file '%s' from %s: status %s", sigName, pkgURL+".sig", resp.Status)
}
