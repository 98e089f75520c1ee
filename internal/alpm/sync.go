package alpm

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/cockroachdb/errors"
	"golang.org/x/sync/errgroup"
)

// Update refreshes every database in the list from its mirrors. With
// force set, databases are fetched even when the server copy is no newer
// than the local file. Transfers run concurrently up to the handle's
// parallel download limit.
func (dbs DBList) Update(ctx context.Context, force bool) error {
	if len(dbs) == 0 {
		return nil
	}
	h := dbs[0].handle

	sem := make(chan struct{}, h.maxParallel)
	g, ctx := errgroup.WithContext(ctx)
	for _, db := range dbs {
		g.Go(func() error {
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				return ctx.Err()
			}
			defer func() { <-sem }()
			return db.update(ctx, force)
		})
	}
	return g.Wait()
}

// update fetches this database from the first answering mirror, falling
// back through the server list with a warning per failed mirror.
func (db *DB) update(ctx context.Context, force bool) error {
	h := db.handle
	if len(db.servers) == 0 {
		return errors.Wrap(ErrServerNone, db.name)
	}
	name := db.name + h.dbExt
	dir := filepath.Join(h.dbPath, "sync")

	var modSince time.Time
	if !force {
		if st, err := os.Stat(filepath.Join(dir, name)); err == nil {
			modSince = st.ModTime()
		}
	}

	var lastErr error
	for _, server := range db.servers {
		result, err := db.fetchFrom(ctx, server, dir, name, modSince)
		if err != nil {
			lastErr = err
			h.emitLog(LogWarning, fmt.Sprintf("failed retrieving file '%s' from %s : %s\n", name, serverHost(server), err))
			continue
		}
		h.emitDownload(name, DownloadEvent{Kind: DownloadCompleted, Result: result})
		if result == DownloadSuccess {
			db.invalidate()
			slog.Debug("database updated", "db", db.name)
		} else {
			slog.Debug("database is up to date", "db", db.name)
		}
		return nil
	}
	h.emitDownload(name, DownloadEvent{Kind: DownloadCompleted, Result: DownloadFailed})
	return errors.Wrapf(lastErr, "failed to update %s", db.name)
}

// fetchFrom retrieves the database archive from one mirror. A 304
// answer maps to DownloadUpToDate without touching the local file.
func (db *DB) fetchFrom(ctx context.Context, server, dir, name string, modSince time.Time) (DownloadResult, error) {
	h := db.handle
	dbURL := server + "/" + name
	req, err := h.newRequest(ctx, dbURL, modSince)
	if err != nil {
		return DownloadFailed, err
	}
	resp, err := h.client.Do(req)
	if err != nil {
		return DownloadFailed, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusNotModified:
		return DownloadUpToDate, nil
	case http.StatusOK:
	default:
		return DownloadFailed, errors.Newf("status %s", resp.Status)
	}

	h.emitDownload(name, DownloadEvent{Kind: DownloadInit, Total: resp.ContentLength})
	var modTime time.Time
	if t, err := http.ParseTime(resp.Header.Get("Last-Modified")); err == nil {
		modTime = t
	}
	if _, _, err := saveResponse(dir, name, resp.Body, modTime); err != nil {
		return DownloadFailed, err
	}

	if err := db.fetchDBSignature(ctx, dbURL, dir, name); err != nil {
		return DownloadFailed, err
	}
	return DownloadSuccess, nil
}

// fetchDBSignature retrieves the database's detached signature when the
// policy checks database signatures. Absence is tolerated under an
// optional policy; a stale local signature is removed in that case so it
// cannot outlive the database it signed.
func (db *DB) fetchDBSignature(ctx context.Context, dbURL, dir, name string) error {
	h := db.handle
	level := db.SigLevel()
	if level&SigDatabase == 0 {
		return nil
	}
	sigName := name + ".sig"
	req, err := h.newRequest(ctx, dbURL+".sig", time.Time{})
	if err != nil {
		return err
	}
	resp, err := h.client.Do(req)
	if err == nil {
		defer resp.Body.Close()
		if resp.StatusCode == http.StatusOK {
			_, _, err := saveResponse(dir, sigName, resp.Body, time.Time{})
			return err
		}
	}
	if level&SigDatabaseOptional != 0 {
		os.Remove(filepath.Join(dir, sigName))
		slog.Debug("database signature not available", "db", db.name)
		return nil
	}
	if err != nil {
		return errors.Wrapf(err, "failed retrieving file '%s'", sigName)
	}
	return errors.Newf("failed retrieving file '%s' from %s: status %s", sigName, dbURL+".sig", resp.Status)
}
