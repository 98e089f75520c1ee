package alpm

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type dbEntry struct {
	name string
	data string
}

// tarArchive builds an uncompressed tar stream of the given entries.
// Names ending in "/" become directories.
func tarArchive(t *testing.T, entries []dbEntry) []byte {
	t.Helper()
	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	for _, e := range entries {
		hdr := &tar.Header{
			Name:     e.name,
			Mode:     0o644,
			Size:     int64(len(e.data)),
			Typeflag: tar.TypeReg,
		}
		if strings.HasSuffix(e.name, "/") {
			hdr.Typeflag = tar.TypeDir
			hdr.Mode = 0o755
			hdr.Size = 0
		}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatal(err)
		}
		if hdr.Typeflag == tar.TypeReg {
			if _, err := tw.Write([]byte(e.data)); err != nil {
				t.Fatal(err)
			}
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func gzipData(t *testing.T, raw []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if _, err := gz.Write(raw); err != nil {
		t.Fatal(err)
	}
	if err := gz.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

// newTestHandle opens a handle over fresh temporary root and dbpath
// directories with progress bars disabled.
func newTestHandle(t *testing.T) *Handle {
	t.Helper()
	h, err := New(t.TempDir(), t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	h.SetProgress(false)
	return h
}

// writeSyncDB writes a gzip-compressed sync database archive for the
// named database under the handle's dbpath.
func writeSyncDB(t *testing.T, h *Handle, name string, entries []dbEntry) {
	t.Helper()
	dir := filepath.Join(h.DBPath(), "sync")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	data := gzipData(t, tarArchive(t, entries))
	if err := os.WriteFile(filepath.Join(dir, name+h.DBExt()), data, 0o644); err != nil {
		t.Fatal(err)
	}
}

// buildPackage writes a minimal gzip-compressed package archive and
// returns its path.
func buildPackage(t *testing.T, dir, filename, pkginfo string, extra ...dbEntry) string {
	t.Helper()
	entries := append([]dbEntry{{name: ".PKGINFO", data: pkginfo}}, extra...)
	data := gzipData(t, tarArchive(t, entries))
	p := filepath.Join(dir, filename)
	if err := os.WriteFile(p, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}
