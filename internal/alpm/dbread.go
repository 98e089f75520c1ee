package alpm

import (
	"archive/tar"
	"bufio"
	"bytes"
	"compress/gzip"
	"io"
	"os"
	pathpkg "path"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/klauspost/compress/zstd"
	"github.com/ulikunitz/xz"
)

var (
	gzipMagic = []byte{0x1f, 0x8b}
	xzMagic   = []byte{0xfd, '7', 'z', 'X', 'Z', 0x00}
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
)

// openArchive wraps r with the decompressor matching its leading magic
// bytes. Plain tar is recognised by the ustar magic at offset 257. The
// caller must close the result to release decompressor state.
func openArchive(r io.Reader) (io.ReadCloser, error) {
	br := bufio.NewReader(r)
	head, err := br.Peek(262)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	switch {
	case bytes.HasPrefix(head, gzipMagic):
		return gzip.NewReader(br)
	case bytes.HasPrefix(head, xzMagic):
		xr, err := xz.NewReader(br)
		if err != nil {
			return nil, err
		}
		return io.NopCloser(xr), nil
	case bytes.HasPrefix(head, zstdMagic):
		zr, err := zstd.NewReader(br, zstd.WithDecoderConcurrency(1))
		if err != nil {
			return nil, err
		}
		return zr.IOReadCloser(), nil
	case len(head) >= 262 && bytes.Equal(head[257:262], []byte("ustar")):
		return io.NopCloser(br), nil
	}
	return nil, errors.New("unrecognized archive format")
}

// validateEntryName rejects archive member names that could escape the
// namespace of the archive.
func validateEntryName(name string) error {
	if name == "" {
		return errors.New("empty entry name")
	}
	if strings.HasPrefix(name, "/") {
		return errors.Newf("absolute entry name: %s", name)
	}
	for _, part := range strings.Split(name, "/") {
		if part == ".." {
			return errors.Newf("unsafe entry name: %s", name)
		}
	}
	return nil
}

// splitNameVersion splits a "name-version-release" directory name. The
// version is always the last two dash-separated fields.
func splitNameVersion(dir string) (name, version string) {
	i := strings.LastIndex(dir, "-")
	if i < 0 {
		return dir, ""
	}
	j := strings.LastIndex(dir[:i], "-")
	if j < 0 {
		return dir, ""
	}
	return dir[:j], dir[j+1:]
}

// readSyncDB parses a sync database archive: one directory per package,
// each holding a desc entry and, in ".files" databases, a files entry.
// Package order follows the archive.
func readSyncDB(db *DB, file string) ([]*Package, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot open database %s", db.name)
	}
	defer f.Close()

	ar, err := openArchive(f)
	if err != nil {
		return nil, errors.Wrapf(err, "database %s", db.name)
	}
	defer ar.Close()

	byDir := make(map[string]*Package)
	var order []string
	tr := tar.NewReader(ar)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "database %s", db.name)
		}
		if err := validateEntryName(hdr.Name); err != nil {
			return nil, errors.Wrapf(err, "database %s", db.name)
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		dir, base := pathpkg.Split(pathpkg.Clean(hdr.Name))
		dir = strings.TrimSuffix(dir, "/")
		if dir == "" {
			continue
		}
		pkg := byDir[dir]
		if pkg == nil {
			pkg = &Package{db: db}
			pkg.name, pkg.version = splitNameVersion(dir)
			byDir[dir] = pkg
			order = append(order, dir)
		}
		switch base {
		case "desc", "depends", "files":
			if err := parseDesc(tr, pkg); err != nil {
				return nil, errors.Wrapf(err, "database %s: %s", db.name, hdr.Name)
			}
		}
	}

	pkgs := make([]*Package, 0, len(order))
	for _, dir := range order {
		pkgs = append(pkgs, byDir[dir])
	}
	return pkgs, nil
}

// readLocalDB reads the installed-package database: one directory per
// package under <dbpath>/local. A missing directory yields an empty
// database.
func readLocalDB(db *DB, dir string) ([]*Package, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "cannot read local database")
	}

	var pkgs []*Package
	for _, ent := range entries {
		if !ent.IsDir() {
			continue
		}
		pkg := &Package{db: db}
		pkg.name, pkg.version = splitNameVersion(ent.Name())
		for _, file := range []string{"desc", "files"} {
			f, err := os.Open(filepath.Join(dir, ent.Name(), file))
			if err != nil {
				if os.IsNotExist(err) {
					continue
				}
				return nil, errors.Wrapf(err, "local database entry %s", ent.Name())
			}
			err = parseDesc(f, pkg)
			f.Close()
			if err != nil {
				return nil, errors.Wrapf(err, "local database entry %s", ent.Name())
			}
		}
		pkgs = append(pkgs, pkg)
	}
	return pkgs, nil
}

// parseDesc reads the %SECTION% keyed format shared by desc, depends,
// and files entries. Unknown sections are skipped so newer database
// fields do not break parsing.
func parseDesc(r io.Reader, pkg *Package) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 4*1024*1024)
	section := ""
	for sc.Scan() {
		line := sc.Text()
		if len(line) > 2 && strings.HasPrefix(line, "%") && strings.HasSuffix(line, "%") {
			section = strings.Trim(line, "%")
			continue
		}
		if line == "" {
			continue
		}
		setDescField(pkg, section, line)
	}
	return sc.Err()
}

func setDescField(pkg *Package, section, value string) {
	switch section {
	case "NAME":
		pkg.name = value
	case "BASE":
		pkg.base = value
	case "VERSION":
		pkg.version = value
	case "DESC":
		pkg.desc = value
	case "URL":
		pkg.url = value
	case "PACKAGER":
		pkg.packager = value
	case "ARCH":
		pkg.arch = value
	case "FILENAME":
		pkg.filename = value
	case "CSIZE":
		pkg.csize, _ = strconv.ParseInt(value, 10, 64)
	case "ISIZE":
		pkg.isize, _ = strconv.ParseInt(value, 10, 64)
	case "BUILDDATE":
		if sec, err := strconv.ParseInt(value, 10, 64); err == nil {
			pkg.buildDate = time.Unix(sec, 0).UTC()
		}
	case "SHA256SUM":
		pkg.sha256 = value
	case "PGPSIG":
		pkg.pgpSig = value
	case "LICENSE":
		pkg.licenses = append(pkg.licenses, value)
	case "GROUPS":
		pkg.groups = append(pkg.groups, value)
	case "PROVIDES":
		pkg.provides = append(pkg.provides, ParseDepend(value))
	case "DEPENDS":
		pkg.depends = append(pkg.depends, ParseDepend(value))
	case "OPTDEPENDS":
		name, _, _ := strings.Cut(value, ": ")
		pkg.optDepends = append(pkg.optDepends, ParseDepend(name))
	case "CONFLICTS":
		pkg.conflicts = append(pkg.conflicts, ParseDepend(value))
	case "REPLACES":
		pkg.replaces = append(pkg.replaces, ParseDepend(value))
	case "FILES":
		pkg.files = append(pkg.files, value)
	}
}
