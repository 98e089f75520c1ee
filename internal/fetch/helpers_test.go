package fetch

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pacfetch/pacfetch/internal/alpm"
)

type archiveEntry struct {
	name string
	data string
}

func tarGz(t *testing.T, entries []archiveEntry) []byte {
	t.Helper()
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	tw := tar.NewWriter(gz)
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
	if err := gz.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func pkgDesc(name, version, extra string) string {
	return "%NAME%\n" + name + "\n\n%VERSION%\n" + version + "\n" + extra
}

// writeSyncDBFile places a sync database archive under dbPath without
// going through the network.
func writeSyncDBFile(t *testing.T, dbPath, filename string, entries []archiveEntry) {
	t.Helper()
	dir := filepath.Join(dbPath, "sync")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, filename), tarGz(t, entries), 0o644); err != nil {
		t.Fatal(err)
	}
}

// writePackageArchive writes a loadable package archive and returns its
// path.
func writePackageArchive(t *testing.T, dir, filename, name, version string) string {
	t.Helper()
	pkginfo := "pkgname = " + name + "\npkgver = " + version + "\narch = x86_64\n"
	data := tarGz(t, []archiveEntry{
		{name: ".PKGINFO", data: pkginfo},
		{name: "usr/bin/" + name, data: "#!ELF"},
	})
	p := filepath.Join(dir, filename)
	if err := os.WriteFile(p, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

// newHandle opens a handle over temporary directories with reporting
// and progress kept quiet.
func newHandle(t *testing.T) *alpm.Handle {
	t.Helper()
	h, err := alpm.New(t.TempDir(), t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	h.SetProgress(false)
	return h
}
