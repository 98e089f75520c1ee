package fetch

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/pacfetch/pacfetch/internal/alpm"
)

// Run resolves each target, downloads the matching archives into the
// cache, verifies them under the remote archive policy, and writes the
// cached path for each target to out in target order.
func Run(ctx context.Context, h *alpm.Handle, targets []string, localOnly bool, out io.Writer) error {
	reqs := make([]alpm.FetchRequest, 0, len(targets))
	for _, target := range targets {
		pkg, err := FindPackage(h, target, localOnly)
		if err != nil {
			return err
		}
		url, err := DownloadURL(pkg)
		if err != nil {
			return err
		}
		reqs = append(reqs, alpm.FetchRequest{
			URL:    url,
			Size:   pkg.Size(),
			SHA256: pkg.SHA256Sum(),
		})
	}

	slog.Debug("fetching packages", "count", len(reqs))
	paths, err := h.Fetch(ctx, reqs)
	if err != nil {
		return err
	}
	if err := VerifyPackages(h, h.RemoteFileSigLevel(), paths); err != nil {
		return err
	}
	for _, p := range paths {
		fmt.Fprintln(out, p)
	}
	return nil
}

// URLs resolves each target and returns its download location without
// fetching anything.
func URLs(h *alpm.Handle, targets []string, localOnly bool) ([]string, error) {
	urls := make([]string, 0, len(targets))
	for _, target := range targets {
		pkg, err := FindPackage(h, target, localOnly)
		if err != nil {
			return nil, err
		}
		url, err := DownloadURL(pkg)
		if err != nil {
			return nil, err
		}
		urls = append(urls, url)
	}
	return urls, nil
}
