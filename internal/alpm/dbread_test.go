package alpm

import (
	"archive/tar"
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"
)

func xzData(t *testing.T, raw []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w, err := xz.NewWriter(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write(raw); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func zstdData(t *testing.T, raw []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w, err := zstd.NewWriter(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write(raw); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestOpenArchive(t *testing.T) {
	t.Parallel()

	raw := tarArchive(t, []dbEntry{{name: "probe-1-1/desc", data: "%NAME%\nprobe\n"}})

	tests := []struct {
		format string
		data   []byte
	}{
		{"gzip", gzipData(t, raw)},
		{"xz", xzData(t, raw)},
		{"zstd", zstdData(t, raw)},
		{"tar", raw},
	}

	for _, tt := range tests {
		r, err := openArchive(bytes.NewReader(tt.data))
		if err != nil {
			t.Errorf("openArchive(%s): %v", tt.format, err)
			continue
		}
		tr := tar.NewReader(r)
		hdr, err := tr.Next()
		if err != nil {
			t.Errorf("openArchive(%s): reading first entry: %v", tt.format, err)
			continue
		}
		if hdr.Name != "probe-1-1/desc" {
			t.Errorf("openArchive(%s): first entry = %q", tt.format, hdr.Name)
		}
		if err := r.Close(); err != nil {
			t.Errorf("openArchive(%s): close: %v", tt.format, err)
		}
	}

	if _, err := openArchive(bytes.NewReader([]byte("not an archive at all"))); err == nil {
		t.Error("openArchive accepted garbage input")
	}
	if _, err := openArchive(bytes.NewReader(nil)); err == nil {
		t.Error("openArchive accepted empty input")
	}
}

func TestValidateEntryName(t *testing.T) {
	t.Parallel()

	valid := []string{"tmux-3.4-1/desc", "tmux-3.4-1/", "a/b/c"}
	for _, name := range valid {
		if err := validateEntryName(name); err != nil {
			t.Errorf("validateEntryName(%q): %v", name, err)
		}
	}

	invalid := []string{"", "/etc/passwd", "../escape/desc", "a/../../b"}
	for _, name := range invalid {
		if err := validateEntryName(name); err == nil {
			t.Errorf("validateEntryName(%q) accepted", name)
		}
	}
}

func TestSplitNameVersion(t *testing.T) {
	t.Parallel()

	tests := []struct {
		dir, name, version string
	}{
		{"tmux-3.4-1", "tmux", "3.4-1"},
		{"gcc-libs-13.2.1-3", "gcc-libs", "13.2.1-3"},
		{"a-1-1", "a", "1-1"},
		{"noversion", "noversion", ""},
		{"one-dash", "one-dash", ""},
	}
	for _, tt := range tests {
		name, version := splitNameVersion(tt.dir)
		if name != tt.name || version != tt.version {
			t.Errorf("splitNameVersion(%q) = %q, %q, want %q, %q",
				tt.dir, name, version, tt.name, tt.version)
		}
	}
}

const tmuxDesc = `%FILENAME%
tmux-3.4-1-x86_64.pkg.tar.zst

%NAME%
tmux

%BASE%
tmux

%VERSION%
3.4-1

%DESC%
Terminal multiplexer

%CSIZE%
501116

%ISIZE%
1032802

%URL%
https://tmux.github.io/

%LICENSE%
ISC

%ARCH%
x86_64

%BUILDDATE%
1700000000

%PACKAGER%
Arch Tester <tester@example.org>

%SHA256SUM%
aa11bb22cc33dd44ee55ff66aa77bb88cc99dd00ee11ff22aa33bb44cc55dd66

%PGPSIG%
aVFJemJBQVlKS29aSQ==

%PROVIDES%
multiplexer=3.4

%DEPENDS%
ncurses
libevent>=2.1

%OPTDEPENDS%
bash-completion: completion support
`

func TestReadSyncDB(t *testing.T) {
	t.Parallel()

	h := newTestHandle(t)
	writeSyncDB(t, h, "extra", []dbEntry{
		{name: "tmux-3.4-1/", data: ""},
		{name: "tmux-3.4-1/desc", data: tmuxDesc},
		{name: "zsh-5.9-5/desc", data: "%NAME%\nzsh\n\n%VERSION%\n5.9-5\n"},
	})
	db, err := h.RegisterSyncDB("extra", SigUseDefault)
	if err != nil {
		t.Fatal(err)
	}

	pkgs, err := db.Pkgs()
	if err != nil {
		t.Fatal(err)
	}
	if len(pkgs) != 2 {
		t.Fatalf("got %d packages, want 2", len(pkgs))
	}
	if pkgs[0].Name() != "tmux" || pkgs[1].Name() != "zsh" {
		t.Errorf("package order = %s, %s", pkgs[0].Name(), pkgs[1].Name())
	}

	pkg := pkgs[0]
	if pkg.Version() != "3.4-1" {
		t.Errorf("Version = %q", pkg.Version())
	}
	if pkg.Filename() != "tmux-3.4-1-x86_64.pkg.tar.zst" {
		t.Errorf("Filename = %q", pkg.Filename())
	}
	if pkg.Description() != "Terminal multiplexer" {
		t.Errorf("Description = %q", pkg.Description())
	}
	if pkg.Size() != 501116 {
		t.Errorf("Size = %d", pkg.Size())
	}
	if pkg.InstalledSize() != 1032802 {
		t.Errorf("InstalledSize = %d", pkg.InstalledSize())
	}
	if pkg.Architecture() != "x86_64" {
		t.Errorf("Architecture = %q", pkg.Architecture())
	}
	if got := pkg.BuildDate(); !got.Equal(time.Unix(1700000000, 0)) {
		t.Errorf("BuildDate = %v", got)
	}
	if pkg.SHA256Sum() != "aa11bb22cc33dd44ee55ff66aa77bb88cc99dd00ee11ff22aa33bb44cc55dd66" {
		t.Errorf("SHA256Sum = %q", pkg.SHA256Sum())
	}
	if pkg.PGPSig() == "" {
		t.Error("PGPSig is empty")
	}
	if len(pkg.Licenses()) != 1 || pkg.Licenses()[0] != "ISC" {
		t.Errorf("Licenses = %v", pkg.Licenses())
	}
	wantProvides := Depend{Name: "multiplexer", Mod: DepModEQ, Version: "3.4"}
	if len(pkg.Provides()) != 1 || pkg.Provides()[0] != wantProvides {
		t.Errorf("Provides = %v", pkg.Provides())
	}
	if len(pkg.Depends()) != 2 || pkg.Depends()[1].Name != "libevent" {
		t.Errorf("Depends = %v", pkg.Depends())
	}
	if len(pkg.OptDepends()) != 1 || pkg.OptDepends()[0].Name != "bash-completion" {
		t.Errorf("OptDepends = %v", pkg.OptDepends())
	}
	if pkg.DB() != db {
		t.Error("package not bound to its database")
	}
}

func TestReadSyncDBFileLists(t *testing.T) {
	t.Parallel()

	h := newTestHandle(t)
	h.SetDBExt(".files")
	writeSyncDB(t, h, "core", []dbEntry{
		{name: "tmux-3.4-1/desc", data: "%NAME%\ntmux\n\n%VERSION%\n3.4-1\n"},
		{name: "tmux-3.4-1/files", data: "%FILES%\nusr/\nusr/bin/\nusr/bin/tmux\n"},
	})
	db, err := h.RegisterSyncDB("core", SigUseDefault)
	if err != nil {
		t.Fatal(err)
	}

	pkg, err := db.Pkg("tmux")
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"usr/", "usr/bin/", "usr/bin/tmux"}
	files := pkg.Files()
	if len(files) != len(want) {
		t.Fatalf("Files = %v, want %v", files, want)
	}
	for i := range want {
		if files[i] != want[i] {
			t.Errorf("Files[%d] = %q, want %q", i, files[i], want[i])
		}
	}
}

func TestReadSyncDBRejectsUnsafeEntries(t *testing.T) {
	t.Parallel()

	db := &DB{name: "bad"}
	raw := tarArchive(t, []dbEntry{{name: "../escape/desc", data: "%NAME%\nevil\n"}})
	file := filepath.Join(t.TempDir(), "bad.db")
	if err := os.WriteFile(file, gzipData(t, raw), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := readSyncDB(db, file); err == nil {
		t.Error("traversal entry accepted")
	}
}

func TestParseDescOversizedValue(t *testing.T) {
	t.Parallel()

	long := bytes.Repeat([]byte("x"), 100*1024)
	var pkg Package
	input := "%DESC%\n" + string(long) + "\n"
	if err := parseDesc(bytes.NewReader([]byte(input)), &pkg); err != nil {
		t.Fatal(err)
	}
	if len(pkg.desc) != len(long) {
		t.Errorf("desc length = %d, want %d", len(pkg.desc), len(long))
	}
}
