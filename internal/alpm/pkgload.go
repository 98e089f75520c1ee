package alpm

import (
	"archive/tar"
	"bufio"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
)

// LoadedPackage is a package read directly from an archive file rather
// than from a database.
type LoadedPackage struct {
	Package
	handle *Handle
	path   string
}

// Path returns the archive location the package was loaded from.
func (lp *LoadedPackage) Path() string { return lp.path }

// LoadPackage reads package metadata from an archive on disk. With full
// set, the contained file list is collected as well; otherwise reading
// stops at the metadata entry.
func (h *Handle) LoadPackage(file string, full bool) (*LoadedPackage, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, errors.Wrap(err, "cannot open package")
	}
	defer f.Close()

	ar, err := openArchive(f)
	if err != nil {
		return nil, errors.Wrapf(err, "package %s", file)
	}
	defer ar.Close()

	lp := &LoadedPackage{handle: h, path: file}
	lp.filename = filepath.Base(file)
	found := false
	tr := tar.NewReader(ar)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "package %s", file)
		}
		if err := validateEntryName(hdr.Name); err != nil {
			return nil, errors.Wrapf(err, "package %s", file)
		}
		name := strings.TrimPrefix(hdr.Name, "./")
		if name == ".PKGINFO" {
			if err := parsePkgInfo(tr, &lp.Package); err != nil {
				return nil, errors.Wrapf(err, "package %s", file)
			}
			found = true
			if !full {
				break
			}
			continue
		}
		if full && !strings.HasPrefix(name, ".") {
			lp.files = append(lp.files, name)
		}
	}
	if !found {
		return nil, errors.Wrapf(ErrPkgInvalid, "%s: missing .PKGINFO", file)
	}
	if lp.name == "" || lp.version == "" {
		return nil, errors.Wrapf(ErrPkgInvalid, "%s: incomplete metadata", file)
	}
	return lp, nil
}

// CheckSignature validates the archive against its detached ".sig"
// companion using the handle keyring. The signature file must sit next
// to the archive.
func (lp *LoadedPackage) CheckSignature() error {
	return lp.handle.verifyDetachedFile(lp.path, lp.path+".sig")
}

// parsePkgInfo reads the "key = value" metadata entry embedded in
// package archives. Repeated keys accumulate.
func parsePkgInfo(r io.Reader, pkg *Package) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		switch key {
		case "pkgname":
			pkg.name = value
		case "pkgbase":
			pkg.base = value
		case "pkgver":
			pkg.version = value
		case "pkgdesc":
			pkg.desc = value
		case "url":
			pkg.url = value
		case "packager":
			pkg.packager = value
		case "arch":
			pkg.arch = value
		case "size":
			pkg.isize, _ = strconv.ParseInt(value, 10, 64)
		case "builddate":
			if sec, err := strconv.ParseInt(value, 10, 64); err == nil {
				pkg.buildDate = time.Unix(sec, 0).UTC()
			}
		case "license":
			pkg.licenses = append(pkg.licenses, value)
		case "group":
			pkg.groups = append(pkg.groups, value)
		case "provides":
			pkg.provides = append(pkg.provides, ParseDepend(value))
		case "depend":
			pkg.depends = append(pkg.depends, ParseDepend(value))
		case "optdepend":
			name, _, _ := strings.Cut(value, ": ")
			pkg.optDepends = append(pkg.optDepends, ParseDepend(name))
		case "conflict":
			pkg.conflicts = append(pkg.conflicts, ParseDepend(value))
		case "replaces":
			pkg.replaces = append(pkg.replaces, ParseDepend(value))
		}
	}
	return sc.Err()
}
